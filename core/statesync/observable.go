// Package statesync holds the state containers shared by every feature:
// observables, list holders with optimistic deletes, live holders and forms.
package statesync

import "sync"

// Bus fans values out to its listeners synchronously, in registration order.
// Listeners must not publish on the bus they are called from.
type Bus[T any] struct {
	emitMu sync.Mutex // serializes emissions so every listener sees the same order

	mu        sync.Mutex
	nextID    int
	listeners []listener[T]
}

type listener[T any] struct {
	id int
	fn func(T)
}

// Add registers fn and returns its id for Remove.
func (b *Bus[T]) Add(fn func(T)) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.listeners = append(b.listeners, listener[T]{id: b.nextID, fn: fn})
	return b.nextID
}

// Remove unregisters the listener with the given id. It reports whether it was registered.
func (b *Bus[T]) Remove(id int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, l := range b.listeners {
		if l.id == id {
			b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
			return true
		}
	}
	return false
}

func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

func (b *Bus[T]) Publish(v T) {
	b.emitMu.Lock()
	defer b.emitMu.Unlock()
	b.publishLocked(v)
}

func (b *Bus[T]) snapshot() []listener[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]listener[T](nil), b.listeners...)
}

// publishLocked must be called with emitMu held.
func (b *Bus[T]) publishLocked(v T) {
	for _, l := range b.snapshot() {
		l.fn(v)
	}
}

// Observable holds a value and replays only the latest one to new subscribers.
//
// Subscribers are called synchronously while the observable is locked for emission:
// they must not set the observable or call back into its owner; hand the value to
// a goroutine or a channel instead.
type Observable[T any] struct {
	bus Bus[T]

	mu    sync.RWMutex
	value T
}

func NewObservable[T any](initial T) *Observable[T] {
	return &Observable[T]{value: initial}
}

func (o *Observable[T]) Value() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.value
}

func (o *Observable[T]) Set(v T) {
	o.bus.emitMu.Lock()
	defer o.bus.emitMu.Unlock()
	o.store(v)
	o.bus.publishLocked(v)
}

// Update atomically replaces the value with fn(current) when fn reports a change.
func (o *Observable[T]) Update(fn func(current T) (T, bool)) {
	o.bus.emitMu.Lock()
	defer o.bus.emitMu.Unlock()
	next, changed := fn(o.Value())
	if !changed {
		return
	}
	o.store(next)
	o.bus.publishLocked(next)
}

// Subscribe calls fn with the current value, then with every new one until the returned func is called.
func (o *Observable[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	o.bus.emitMu.Lock()
	id := o.bus.Add(fn)
	fn(o.Value())
	o.bus.emitMu.Unlock()
	return func() { o.bus.Remove(id) }
}

func (o *Observable[T]) store(v T) {
	o.mu.Lock()
	o.value = v
	o.mu.Unlock()
}
