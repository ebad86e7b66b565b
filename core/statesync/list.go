package statesync

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/trezcool/littledragons/core"
)

type ListStatus int

const (
	ListInitial ListStatus = iota
	ListLoading
	ListLoaded
	ListFailed
)

func (s ListStatus) String() string {
	switch s {
	case ListInitial:
		return "Initial"
	case ListLoading:
		return "Loading"
	case ListLoaded:
		return "Loaded"
	case ListFailed:
		return "Failed"
	}
	return fmt.Sprintf("ListStatus(%d)", int(s))
}

// ListState is the state of a list: Items is set when Loaded, Err when Failed.
// Params are the parameters of the load that produced the state.
type ListState[E any, P comparable] struct {
	Status ListStatus
	Params P
	Items  []E
	Err    error
}

func Loading[E any, P comparable](params P) ListState[E, P] {
	return ListState[E, P]{Status: ListLoading, Params: params}
}

func Loaded[E any, P comparable](params P, items []E) ListState[E, P] {
	if items == nil {
		items = []E{}
	}
	return ListState[E, P]{Status: ListLoaded, Params: params, Items: items}
}

func Failed[E any, P comparable](params P, err error) ListState[E, P] {
	return ListState[E, P]{Status: ListFailed, Params: params, Err: err}
}

type ListOptions[E any, P comparable] struct {
	Name   string // used in log messages, eg. "events"
	Logger core.Logger

	Fetch  func(ctx context.Context, params P) ([]E, error)
	Remove func(ctx context.Context, item E) error
	Key    func(E) string
	Less   func(a, b E) bool // natural order of the list

	// Precheck, when set, runs before a load. Its error is emitted as Failed without going through Loading.
	Precheck func(params P) error
}

// ListHolder exposes the state of a remote list and deletes from it optimistically.
//
// A load that proceeds cancels the load in flight, whose result is then discarded.
// Deletes are never guarded: a delete racing a load can leave a deleted item visible
// until the next forced load.
type ListHolder[E any, P comparable] struct {
	opts    ListOptions[E, P]
	state   *Observable[ListState[E, P]]
	deleted *Observable[DeleteOutcome]

	mu     sync.Mutex
	gen    atomic.Uint64
	cancel context.CancelFunc
}

func NewListHolder[E any, P comparable](opts ListOptions[E, P]) *ListHolder[E, P] {
	if opts.Logger == nil {
		opts.Logger = discardLogger{}
	}
	return &ListHolder[E, P]{
		opts:    opts,
		state:   NewObservable(ListState[E, P]{}),
		deleted: NewObservable(DeleteOutcome{}),
	}
}

func (h *ListHolder[E, P]) State() *Observable[ListState[E, P]] { return h.state }

func (h *ListHolder[E, P]) DeleteOutcome() *Observable[DeleteOutcome] { return h.deleted }

// Load fetches the list for params. Unless forced, it is a no-op while a load for the
// same params is in flight or done.
func (h *ListHolder[E, P]) Load(ctx context.Context, params P, force bool) {
	h.mu.Lock()
	cur := h.state.Value()
	if !force && (cur.Status == ListLoading || cur.Status == ListLoaded) && cur.Params == params {
		h.mu.Unlock()
		return
	}

	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	gen := h.gen.Add(1)

	if h.opts.Precheck != nil {
		if err := h.opts.Precheck(params); err != nil {
			h.state.Set(Failed[E](params, err))
			h.mu.Unlock()
			return
		}
	}

	loadCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.state.Set(Loading[E](params))
	h.mu.Unlock()
	defer cancel()

	items, err := h.opts.Fetch(loadCtx, params)

	var next ListState[E, P]
	if err != nil {
		next = Failed[E](params, err)
	} else {
		sorted := append(make([]E, 0, len(items)), items...)
		h.sort(sorted)
		next = Loaded(params, sorted)
	}

	h.state.Update(func(ListState[E, P]) (ListState[E, P], bool) {
		return next, h.gen.Load() == gen // superseded loads are discarded
	})
	if err != nil && h.gen.Load() == gen {
		h.opts.Logger.Error(fmt.Sprintf("Unable to fetch %s list", h.opts.Name), err)
	}

	h.mu.Lock()
	if h.gen.Load() == gen {
		h.cancel = nil
	}
	h.mu.Unlock()
}

// Delete removes item from the loaded list, deletes it remotely and puts it back if that fails.
func (h *ListHolder[E, P]) Delete(ctx context.Context, item E) {
	h.deleted.Set(DeleteOutcome{Status: DeleteInProgress})

	key := h.opts.Key(item)
	err := Optimistic(ctx, Compensation{
		Apply: func() { h.state.Update(h.without(key)) },
		Undo:  func() { h.state.Update(h.with(item)) },
	}, func(ctx context.Context) error {
		return h.opts.Remove(ctx, item)
	})
	if err != nil {
		h.opts.Logger.Error(fmt.Sprintf("Unable to delete from %s list", h.opts.Name), err)
		h.deleted.Set(DeleteOutcome{Status: DeleteFailed, Err: err})
		return
	}
	h.deleted.Set(DeleteOutcome{Status: DeleteSuccess})
}

func (h *ListHolder[E, P]) without(key string) func(ListState[E, P]) (ListState[E, P], bool) {
	return func(s ListState[E, P]) (ListState[E, P], bool) {
		if s.Status != ListLoaded {
			return s, false
		}
		items := make([]E, 0, len(s.Items))
		for _, it := range s.Items {
			if h.opts.Key(it) != key {
				items = append(items, it)
			}
		}
		return Loaded(s.Params, items), true
	}
}

func (h *ListHolder[E, P]) with(item E) func(ListState[E, P]) (ListState[E, P], bool) {
	key := h.opts.Key(item)
	return func(s ListState[E, P]) (ListState[E, P], bool) {
		if s.Status != ListLoaded {
			return s, false
		}
		for _, it := range s.Items {
			if h.opts.Key(it) == key {
				return s, false // already back, eg. after a reload
			}
		}
		items := append(append(make([]E, 0, len(s.Items)+1), s.Items...), item)
		h.sort(items)
		return Loaded(s.Params, items), true
	}
}

func (h *ListHolder[E, P]) sort(items []E) {
	if h.opts.Less == nil {
		return
	}
	sort.SliceStable(items, func(i, j int) bool { return h.opts.Less(items[i], items[j]) })
}
