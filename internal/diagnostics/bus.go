// Package diagnostics carries backend failures that are not returned to a
// caller (permission denials, configuration problems) to whoever displays them.
package diagnostics

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Kind classifies an event
type Kind string

const (
	KindPermission    Kind = "permission"
	KindConfiguration Kind = "configuration"
	KindStatus        Kind = "status"
)

// Event is one diagnostic notice
type Event struct {
	Kind    Kind      `json:"kind"`
	Message string    `json:"message"`
	Source  string    `json:"source,omitempty"`
	At      time.Time `json:"at"`
}

// Bus fans events out to listeners and remembers the most recent ones so a
// late listener (a browser that reconnects) still sees why sync is degraded.
type Bus struct {
	mu        sync.RWMutex
	next      int
	listeners map[int]func(Event)
	recent    []Event
	keep      int
	log       *zap.Logger
}

// NewBus returns a bus retaining up to keep recent events
func NewBus(keep int, log *zap.Logger) *Bus {
	if keep < 0 {
		keep = 0
	}
	return &Bus{listeners: make(map[int]func(Event)), keep: keep, log: log}
}

// Publish stamps and delivers e to every listener
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	b.log.Warn("Backend diagnostic",
		zap.String("kind", string(e.Kind)),
		zap.String("source", e.Source),
		zap.String("message", e.Message),
	)

	b.mu.Lock()
	if b.keep > 0 {
		b.recent = append(b.recent, e)
		if len(b.recent) > b.keep {
			b.recent = b.recent[len(b.recent)-b.keep:]
		}
	}
	listeners := make([]func(Event), 0, len(b.listeners))
	for _, fn := range b.listeners {
		listeners = append(listeners, fn)
	}
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(e)
	}
}

// Subscribe registers fn; the returned func removes it
func (b *Bus) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	b.next++
	id := b.next
	b.listeners[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}
}

// Recent returns the retained events, oldest first
func (b *Bus) Recent() []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Event, len(b.recent))
	copy(out, b.recent)
	return out
}
