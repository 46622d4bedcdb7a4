package scheduler

import (
	"context"
	"sync"
)

// Processor handles one input element and optionally returns a stream of
// further elements to emit. Each emitted element is itself fed back through
// Processor (the "loopback" of §4.8), which is how a listener's derived
// conclusions get a chance to trigger further listeners recursively.
type Processor[T any] func(ctx context.Context, v T) (*Stream[T], error)

// ProcessWithLoopback drains input, running process over every element it
// yields and over every element process itself produces, recursively. The
// original scheduler counts a "start pill" per spawned task and a "poison
// pill" per finished one, ending the output once the count returns to
// zero; sync.WaitGroup is the idiomatic Go analogue of that counter.
// Failure in any call to process cancels the remaining in-flight work and
// surfaces exactly once on the output, mirroring Multiplex.
func ProcessWithLoopback[T any](ctx context.Context, bufferSize int, input *Stream[T], process Processor[T]) *Stream[T] {
	out := NewStream[T](bufferSize)
	innerCtx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	var failOnce sync.Once
	fail := func(err error) {
		failOnce.Do(func() {
			cancel()
			// context.Background(): see Multiplex for why the terminal
			// error must not be guarded by a context that may itself
			// already be the thing that got cancelled.
			_ = out.PushError(context.Background(), err)
		})
	}

	var spawn func(v T)
	spawn = func(v T) {
		defer wg.Done()
		result, err := process(innerCtx, v)
		if err != nil {
			fail(err)
			return
		}
		if result == nil {
			return
		}
		for {
			rv, rerr, ok := result.Next(innerCtx)
			if !ok {
				return
			}
			if rerr != nil {
				fail(rerr)
				return
			}
			if pushErr := out.Push(innerCtx, rv); pushErr != nil {
				return
			}
			wg.Add(1)
			go spawn(rv)
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			v, err, ok := input.Next(innerCtx)
			if !ok {
				return
			}
			if err != nil {
				fail(err)
				return
			}
			wg.Add(1)
			go spawn(v)
		}
	}()

	go func() {
		wg.Wait()
		cancel()
		out.End()
	}()

	return out
}
