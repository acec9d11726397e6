// Package pubsub is the small publish-subscribe primitive the rest of
// the consensus layer uses in place of hand-maintained observer
// lists. Registration returns a Subscription whose Close detaches it,
// which removes the "clear the trigger before every return path"
// discipline such lists otherwise require.
package pubsub

import "sync"

// Registry fans a value of type T out to every currently-registered
// subscriber. A Registry is safe for concurrent use.
type Registry[T any] struct {
	mu   sync.Mutex
	next int
	subs map[int]func(T)
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{subs: make(map[int]func(T))}
}

// Subscription is a handle to a single registration. Close is
// idempotent and safe to call more than once.
type Subscription struct {
	close func()
	once  sync.Once
}

// Close detaches the subscription. Safe to call multiple times.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.close != nil {
			s.close()
		}
	})
}

// Subscribe registers fn and returns a Subscription that detaches it.
func (r *Registry[T]) Subscribe(fn func(T)) *Subscription {
	r.mu.Lock()
	id := r.next
	r.next++
	r.subs[id] = fn
	r.mu.Unlock()

	return &Subscription{close: func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}}
}

// Publish calls every currently-registered subscriber with v. Publish
// takes a snapshot of the subscriber set before calling out, so a
// subscriber that subscribes or unsubscribes from within its own
// callback cannot deadlock or skip siblings.
func (r *Registry[T]) Publish(v T) {
	r.mu.Lock()
	fns := make([]func(T), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len reports the number of live subscriptions. Mainly useful in tests
// asserting that a mode switch installed or removed observers.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
