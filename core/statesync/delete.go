package statesync

import (
	"context"
	"fmt"
)

type DeleteStatus int

const (
	DeleteInitial DeleteStatus = iota
	DeleteInProgress
	DeleteSuccess
	DeleteFailed
)

func (s DeleteStatus) String() string {
	switch s {
	case DeleteInitial:
		return "Initial"
	case DeleteInProgress:
		return "InProgress"
	case DeleteSuccess:
		return "Success"
	case DeleteFailed:
		return "Failed"
	}
	return fmt.Sprintf("DeleteStatus(%d)", int(s))
}

// DeleteOutcome reports the progress of the last delete issued on a list. Err is set when Failed.
type DeleteOutcome struct {
	Status DeleteStatus
	Err    error
}

// Compensation is a local change and the change that reverts it.
type Compensation struct {
	Apply func()
	Undo  func()
}

// Optimistic applies c, runs remote and undoes c when remote fails.
func Optimistic(ctx context.Context, c Compensation, remote func(ctx context.Context) error) error {
	if c.Apply != nil {
		c.Apply()
	}
	if err := remote(ctx); err != nil {
		if c.Undo != nil {
			c.Undo()
		}
		return err
	}
	return nil
}

type discardLogger struct{}

func (discardLogger) Debug(string, ...interface{}) {}
func (discardLogger) Info(string, ...interface{})  {}
func (discardLogger) Warn(string, ...interface{})  {}
func (discardLogger) Error(string, ...interface{}) {}
func (discardLogger) Fatal(string, ...interface{}) {}
