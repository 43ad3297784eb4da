package service

import (
	"context"
	"sync"

	"retail-service/internal/store"
)

// job is one serialized unit of work
type job struct {
	ctx   context.Context
	run   func(ctx context.Context) error
	reply chan error
}

// ledger runs every mutation of a service on one goroutine, so a stock
// change never interleaves with another one issued by this process.
type ledger struct {
	jobs chan job
	quit chan struct{}
	done chan struct{}
	once sync.Once
}

func newLedger() *ledger {
	l := &ledger{
		jobs: make(chan job),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go l.loop()
	return l
}

func (l *ledger) loop() {
	defer close(l.done)
	for {
		select {
		case j := <-l.jobs:
			j.reply <- j.run(j.ctx)
		case <-l.quit:
			return
		}
	}
}

// Do queues fn and waits for its result. fn must not call Do.
// ctx only bounds the wait for a turn. Once accepted, fn runs to completion
// on a context that is never cancelled and Do returns its result.
func (l *ledger) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	reply := make(chan error, 1)
	select {
	case l.jobs <- job{ctx: context.WithoutCancel(ctx), run: fn, reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.quit:
		return store.ErrClosed
	}
	return <-reply
}

// Close stops the loop after the job in progress
func (l *ledger) Close() {
	l.once.Do(func() {
		close(l.quit)
		<-l.done
	})
}
