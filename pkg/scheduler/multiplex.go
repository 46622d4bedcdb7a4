package scheduler

import (
	"context"
	"sync"
)

// PushEachToQueue forwards every element of src onto dst until src ends or
// yields an error. It does not push the terminal error itself or end dst
// on src's behalf; callers that need those two things (Multiplex, among
// others) handle them so they can choose which context governs delivery of
// the terminal error versus the reads that precede it.
func PushEachToQueue[T any](ctx context.Context, src, dst *Stream[T]) (err error, ok bool) {
	for {
		v, rerr, rok := src.Next(ctx)
		if !rok {
			return nil, false
		}
		if rerr != nil {
			return rerr, true
		}
		if pushErr := dst.Push(ctx, v); pushErr != nil {
			return pushErr, false
		}
	}
}

// Multiplex fans sources into a single output stream. One pump goroutine
// runs per source, forwarding through PushEachToQueue. An error surfaced
// by any one source cancels every other pump (failure isolation, §7: "An
// exception in one multiplexed source cancels its siblings") and is
// re-raised exactly once on the output. Closing the output (or cancelling
// ctx) cancels every pump; the output is ended only after every pump has
// returned, but Close itself returns without waiting for the pumps.
func Multiplex[T any](ctx context.Context, bufferSize int, sources ...*Stream[T]) *Stream[T] {
	out := NewStream[T](bufferSize)
	innerCtx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	var failOnce sync.Once
	wg.Add(len(sources))
	for _, src := range sources {
		src := src
		go func() {
			defer wg.Done()
			// Reads respect innerCtx so a sibling's failure (or outer
			// cancellation) unblocks this pump promptly. The terminal
			// error, if any, is delivered with context.Background():
			// by the time we get here ctx (or innerCtx) may already be
			// cancelled, and a PushError guarded by that same context
			// would race its own delivery against the cancellation it is
			// trying to report. Only out's own Close (the consumer
			// abandoning it) should cut this delivery short.
			err, sawError := PushEachToQueue(innerCtx, src, out)
			if sawError {
				// Only the first error is delivered: siblings that fail
				// because of the resulting cancellation push nothing.
				failOnce.Do(func() {
					cancel()
					_ = out.PushError(context.Background(), err)
				})
			}
		}()
	}

	go func() {
		wg.Wait()
		cancel()
		out.End()
	}()

	// Propagate external cancellation (ctx done, or the consumer closing
	// out) into the pumps so they unwind promptly.
	go func() {
		select {
		case <-out.Done():
			cancel()
		case <-ctx.Done():
			cancel()
		case <-innerCtx.Done():
		}
	}()

	return out
}
