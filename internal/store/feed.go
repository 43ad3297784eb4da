package store

import (
	"sync"
	"sync/atomic"
)

// Feed keeps the live subscribers of each key and delivers values to them
type Feed[T any] struct {
	mu   sync.RWMutex
	next uint64
	subs map[string]map[uint64]*Subscriber[T]

	// OnCount, when set, observes the subscriber count of a key after each change
	OnCount func(key string, count int)
}

// Subscriber is one registered callback
type Subscriber[T any] struct {
	id      uint64
	key     string
	fn      func(T)
	closed  atomic.Bool
	deliver sync.Mutex
}

// NewFeed returns an empty feed
func NewFeed[T any]() *Feed[T] {
	return &Feed[T]{subs: make(map[string]map[uint64]*Subscriber[T])}
}

// Add registers fn under key. The returned Unsubscribe is safe to call more
// than once and, once it returns, fn is not invoked again. It must not be
// called from inside fn.
func (f *Feed[T]) Add(key string, fn func(T)) (*Subscriber[T], Unsubscribe) {
	f.mu.Lock()
	f.next++
	sub := &Subscriber[T]{id: f.next, key: key, fn: fn}
	if f.subs[key] == nil {
		f.subs[key] = make(map[uint64]*Subscriber[T])
	}
	f.subs[key][sub.id] = sub
	count := len(f.subs[key])
	f.mu.Unlock()
	f.observe(key, count)

	var once sync.Once
	return sub, func() {
		once.Do(func() {
			sub.closed.Store(true)
			f.remove(sub)
			// wait for an in-flight delivery to finish
			sub.deliver.Lock()
			sub.deliver.Unlock()
		})
	}
}

func (f *Feed[T]) remove(sub *Subscriber[T]) {
	f.mu.Lock()
	delete(f.subs[sub.key], sub.id)
	count := len(f.subs[sub.key])
	if count == 0 {
		delete(f.subs, sub.key)
	}
	f.mu.Unlock()
	f.observe(sub.key, count)
}

func (f *Feed[T]) observe(key string, count int) {
	if f.OnCount != nil {
		f.OnCount(key, count)
	}
}

// Subscribers returns a snapshot of the subscribers of key
func (f *Feed[T]) Subscribers(key string) []*Subscriber[T] {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*Subscriber[T], 0, len(f.subs[key]))
	for _, sub := range f.subs[key] {
		out = append(out, sub)
	}
	return out
}

// Len returns the number of subscribers of key
func (f *Feed[T]) Len(key string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs[key])
}

// Broadcast delivers v to every subscriber of key
func (f *Feed[T]) Broadcast(key string, v T) {
	for _, sub := range f.Subscribers(key) {
		sub.Deliver(v)
	}
}

// Deliver invokes the callback unless the subscriber was closed
func (s *Subscriber[T]) Deliver(v T) bool {
	s.deliver.Lock()
	defer s.deliver.Unlock()
	if s.closed.Load() {
		return false
	}
	s.fn(v)
	return true
}

// Key returns the key the subscriber listens on
func (s *Subscriber[T]) Key() string {
	return s.key
}

// Closed reports whether the subscriber was detached
func (s *Subscriber[T]) Closed() bool {
	return s.closed.Load()
}
