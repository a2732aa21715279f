// Package worker runs queued jobs one at a time on a background goroutine.
package worker

import (
	"context"
	"errors"
	"fmt"
)

var ErrQueueFull = errors.New("worker queue full")

type StartOptions[J any] struct {
	Ctx  context.Context
	Size int
	// Handle is never called concurrently with itself.
	Handle func(context.Context, J)
	// OnPanic receives the recovered value when Handle panics. The worker keeps running.
	OnPanic func(J, any)
}

// Serial is a bounded FIFO drained by a single goroutine.
type Serial[J any] struct {
	ctx  context.Context
	jobs chan J
	done chan struct{}
}

func Start[J any](opts StartOptions[J]) (*Serial[J], error) {
	if opts.Ctx == nil {
		return nil, fmt.Errorf("nil worker context")
	}
	if opts.Handle == nil {
		return nil, fmt.Errorf("nil worker handler")
	}
	size := opts.Size
	if size <= 0 {
		size = 1
	}
	s := &Serial[J]{
		ctx:  opts.Ctx,
		jobs: make(chan J, size),
		done: make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		for {
			select {
			case <-s.ctx.Done():
				return
			case job := <-s.jobs:
				run(s.ctx, job, opts.Handle, opts.OnPanic)
			}
		}
	}()
	return s, nil
}

func run[J any](ctx context.Context, job J, handle func(context.Context, J), onPanic func(J, any)) {
	defer func() {
		if r := recover(); r != nil && onPanic != nil {
			onPanic(job, r)
		}
	}()
	handle(ctx, job)
}

// Enqueue blocks until the job is queued, ctx is done, or the worker stops.
func (s *Serial[J]) Enqueue(ctx context.Context, job J) error {
	if ctx == nil {
		ctx = s.ctx
	}
	if err := s.ctx.Err(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return s.ctx.Err()
	case s.jobs <- job:
		return nil
	}
}

// TryEnqueue queues job without blocking.
func (s *Serial[J]) TryEnqueue(job J) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	select {
	case s.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *Serial[J]) Len() int {
	return len(s.jobs)
}

// Done is closed once the worker goroutine has returned.
func (s *Serial[J]) Done() <-chan struct{} {
	return s.done
}
