// Package scheduler implements the cooperative multiplexing scheduler of
// §4.8: a lazy, channel-based Stream type, fan-in multiplexing with bounded
// buffering and exactly-once exception propagation, loopback processing
// for proof/listener feedback, and a blocking-iterator bridge for
// synchronous callers. It is grounded in the teacher's channel-based Stream
// (pkg/minikanren/core.go) and worker pool (internal/parallel/pool.go),
// generalized from a relational-search primitive into a general-purpose
// lazy async stream.
package scheduler

import (
	"context"
	"sync"
)

// item is either a value or a terminal error carried through a Stream.
type item[T any] struct {
	value T
	err   error
}

// Stream is a lazy, single-consumer sequence of values of type T,
// optionally terminated by an error. It is safe to Push from multiple
// goroutines (e.g. multiple pump tasks feeding one multiplexed output) but
// is intended to be drained by exactly one consumer goroutine at a time,
// matching the teacher's Stream/ConstraintStore contract.
type Stream[T any] struct {
	ch        chan item[T]
	closeOnce sync.Once
	closed    chan struct{}
}

// NewStream creates a Stream with the given bounded buffer size. A buffer
// of 0 makes every Push block until a concurrent Next is ready to receive
// it, which is the tightest possible back-pressure.
func NewStream[T any](bufferSize int) *Stream[T] {
	if bufferSize < 0 {
		bufferSize = 0
	}
	return &Stream[T]{
		ch:     make(chan item[T], bufferSize),
		closed: make(chan struct{}),
	}
}

// Push delivers v to the stream's consumer, blocking until there is buffer
// room, the consumer closes the stream, or ctx is cancelled.
func (s *Stream[T]) Push(ctx context.Context, v T) error {
	select {
	case s.ch <- item[T]{value: v}:
		return nil
	case <-s.closed:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PushError delivers a terminal error to the stream's consumer. Once an
// error is pushed, the producer should stop pushing further values; Next
// will continue to drain whatever was already buffered before surfacing
// the error.
func (s *Stream[T]) PushError(ctx context.Context, err error) error {
	select {
	case s.ch <- item[T]{err: err}:
		return nil
	case <-s.closed:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close signals producers that the consumer is gone; further Push/PushError
// calls return context.Canceled instead of blocking forever. Close is
// idempotent and safe to call more than once.
func (s *Stream[T]) Close() {
	s.closeOnce.Do(func() { close(s.closed) })
}

// Done reports a channel closed once Close has been called, for producers
// that want to select on cancellation directly.
func (s *Stream[T]) Done() <-chan struct{} {
	return s.closed
}

// Next blocks for the next value or error. ok is false once the stream's
// channel is closed with no further items (End must be called by whoever
// owns the producing side once production is complete).
func (s *Stream[T]) Next(ctx context.Context) (value T, err error, ok bool) {
	select {
	case it, open := <-s.ch:
		if !open {
			return value, nil, false
		}
		return it.value, it.err, true
	case <-ctx.Done():
		return value, ctx.Err(), true
	}
}

// End closes the underlying channel, signalling the consumer that no more
// items will ever be pushed. Must be called exactly once by the producer
// side once it is done. PushEachToQueue never calls it; Multiplex and
// ProcessWithLoopback call it on the output streams they create.
func (s *Stream[T]) End() {
	close(s.ch)
}

// Collect drains every value from the stream until it ends, returning the
// first error encountered (if any). Intended for tests and small,
// known-finite streams; production call sites should prefer Next or
// ScheduleGenerator so they stay lazy.
func (s *Stream[T]) Collect(ctx context.Context) ([]T, error) {
	var out []T
	for {
		v, err, ok := s.Next(ctx)
		if !ok {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
}
