package statesync

import (
	"context"
	"fmt"
	"sync"

	"github.com/trezcool/littledragons/core"
)

type SubmitStatus int

const (
	SubmitInitial SubmitStatus = iota
	SubmitInProgress
	SubmitSuccess
	SubmitFailed
)

func (s SubmitStatus) String() string {
	switch s {
	case SubmitInitial:
		return "Initial"
	case SubmitInProgress:
		return "InProgress"
	case SubmitSuccess:
		return "Success"
	case SubmitFailed:
		return "Failed"
	}
	return fmt.Sprintf("SubmitStatus(%d)", int(s))
}

// Submission is the state of a form's last submission. Err is set when Failed.
type Submission struct {
	Status SubmitStatus
	Err    error
}

type FormOptions[D any] struct {
	Name      string // used in log messages, eg. "event"
	Logger    core.Logger
	Validator *core.Validator

	// Initial returns a cleared draft. The zero D is used when nil.
	Initial func() D
	// Trim normalizes the draft's text fields before validation.
	Trim func(d *D)
	// Rules returns the validation table for the draft.
	Rules func(d D) []core.FieldRule
	Save  func(ctx context.Context, d D) error

	// BlockAfterSuccess makes Submit a no-op once a submission succeeded, until Clear.
	BlockAfterSuccess bool
}

// Form owns a draft, its per-field invalid flags and the state of its submission.
// A successful submission clears the draft and publishes true on the refresh signal,
// telling list holders to reload.
type Form[D any] struct {
	opts FormOptions[D]

	mu      sync.Mutex
	draft   D
	invalid map[string]string // {field: message}

	state   *Observable[Submission]
	refresh *Observable[bool]
}

func NewForm[D any](opts FormOptions[D]) *Form[D] {
	if opts.Logger == nil {
		opts.Logger = discardLogger{}
	}
	if opts.Validator == nil {
		opts.Validator = core.NewValidator()
	}
	f := &Form[D]{
		opts:    opts,
		invalid: make(map[string]string),
		state:   NewObservable(Submission{}),
		refresh: NewObservable(false),
	}
	f.draft = f.initial()
	return f
}

func (f *Form[D]) State() *Observable[Submission] { return f.state }

// Refresh is the one-shot signal: false when a submission starts, true once it succeeded.
func (f *Form[D]) Refresh() *Observable[bool] { return f.refresh }

// OnRefresh calls fn every time a submission succeeds.
func (f *Form[D]) OnRefresh(fn func()) (unsubscribe func()) {
	return f.refresh.Subscribe(func(v bool) {
		if v {
			fn()
		}
	})
}

// Draft returns a copy of the draft.
func (f *Form[D]) Draft() D {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// Invalid reports whether field failed the last validation.
func (f *Form[D]) Invalid(field string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.invalid[field]
	return ok
}

// FieldError returns the message of field's last validation failure, if any.
func (f *Form[D]) FieldError(field string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invalid[field]
}

// Update applies mutate to the draft and clears field's invalid flag.
func (f *Form[D]) Update(field string, mutate func(d *D)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	mutate(&f.draft)
	delete(f.invalid, field)
}

// Load replaces the draft, eg. with an existing record to edit.
func (f *Form[D]) Load(d D) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft = d
	f.invalid = make(map[string]string)
}

// Clear resets the draft, the invalid flags and the submission state.
func (f *Form[D]) Clear() {
	f.mu.Lock()
	f.draft = f.initial()
	f.invalid = make(map[string]string)
	f.mu.Unlock()
	f.state.Update(func(s Submission) (Submission, bool) {
		return Submission{}, s.Status != SubmitInitial
	})
}

// Submit validates the draft and saves it. An invalid draft only sets the invalid flags.
func (f *Form[D]) Submit(ctx context.Context) {
	f.mu.Lock()
	switch st := f.state.Value().Status; {
	case st == SubmitInProgress:
		f.mu.Unlock()
		return
	case st == SubmitSuccess && f.opts.BlockAfterSuccess:
		f.mu.Unlock()
		return
	}

	if f.opts.Trim != nil {
		f.opts.Trim(&f.draft)
	}
	f.invalid = make(map[string]string)
	if f.opts.Rules != nil {
		for _, fe := range f.opts.Validator.CheckFields(f.opts.Rules(f.draft)) {
			if _, seen := f.invalid[fe.Field]; !seen {
				f.invalid[fe.Field] = fe.Error
			}
		}
	}
	if len(f.invalid) > 0 {
		f.mu.Unlock()
		return
	}

	draft := f.draft
	f.state.Set(Submission{Status: SubmitInProgress})
	f.mu.Unlock()
	f.refresh.Set(false)

	if err := f.opts.Save(ctx, draft); err != nil {
		f.opts.Logger.Error(fmt.Sprintf("Unable to save %s", f.opts.Name), err)
		f.state.Set(Submission{Status: SubmitFailed, Err: err})
		return
	}

	f.mu.Lock()
	f.draft = f.initial()
	f.invalid = make(map[string]string)
	f.mu.Unlock()
	f.state.Set(Submission{Status: SubmitSuccess})
	f.refresh.Set(true)
}

func (f *Form[D]) initial() D {
	if f.opts.Initial != nil {
		return f.opts.Initial()
	}
	var zero D
	return zero
}
