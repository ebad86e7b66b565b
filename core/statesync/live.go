package statesync

import (
	"context"
	"fmt"
	"sort"

	"github.com/trezcool/littledragons/core"
)

// LiveOptions configures a LiveHolder.
type LiveOptions[E any] struct {
	Name   string
	Logger core.Logger

	// Listen calls fn with every snapshot of the source until ctx is done or the source fails.
	Listen func(ctx context.Context, fn func([]E)) error
	Less   func(a, b E) bool
}

// LiveHolder mirrors a listened-to collection: Loading until the first snapshot,
// then Loaded with every new snapshot.
type LiveHolder[E any] struct {
	opts  LiveOptions[E]
	state *Observable[ListState[E, struct{}]]
}

func NewLiveHolder[E any](opts LiveOptions[E]) *LiveHolder[E] {
	if opts.Logger == nil {
		opts.Logger = discardLogger{}
	}
	return &LiveHolder[E]{opts: opts, state: NewObservable(ListState[E, struct{}]{})}
}

func (h *LiveHolder[E]) State() *Observable[ListState[E, struct{}]] { return h.state }

// Items returns the last snapshot, or nil if none was received.
func (h *LiveHolder[E]) Items() []E {
	return h.state.Value().Items
}

// Run listens until ctx is done. A source failure is emitted as Failed and returned.
func (h *LiveHolder[E]) Run(ctx context.Context) error {
	h.state.Set(Loading[E](struct{}{}))
	err := h.opts.Listen(ctx, func(items []E) {
		sorted := append(make([]E, 0, len(items)), items...)
		if h.opts.Less != nil {
			sort.SliceStable(sorted, func(i, j int) bool { return h.opts.Less(sorted[i], sorted[j]) })
		}
		h.state.Set(Loaded(struct{}{}, sorted))
	})
	if err != nil && ctx.Err() == nil {
		h.opts.Logger.Error(fmt.Sprintf("Unable to listen to %s", h.opts.Name), err)
		h.state.Set(Failed[E](struct{}{}, err))
		return err
	}
	return nil
}
