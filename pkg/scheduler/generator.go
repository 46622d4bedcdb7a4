package scheduler

import "context"

// Generator is a blocking-iterator bridge over a Stream, for synchronous
// callers (tests, REPL-style helpers) that would rather call a function
// than select on a channel. It owns a derived context so Close can
// unblock and cancel whatever is feeding the stream without the caller
// needing to thread cancellation through by hand.
type Generator[T any] struct {
	stream *Stream[T]
	ctx    context.Context
	cancel context.CancelFunc
}

// ScheduleGenerator wraps s as a Generator bound to ctx.
func ScheduleGenerator[T any](ctx context.Context, s *Stream[T]) *Generator[T] {
	innerCtx, cancel := context.WithCancel(ctx)
	return &Generator[T]{stream: s, ctx: innerCtx, cancel: cancel}
}

// Next blocks for the stream's next value. ok is false once the stream is
// exhausted.
func (g *Generator[T]) Next() (value T, err error, ok bool) {
	return g.stream.Next(g.ctx)
}

// Close cancels the generator's context and closes the underlying stream,
// unblocking any pending Next and signalling producers to stop.
func (g *Generator[T]) Close() {
	g.cancel()
	g.stream.Close()
}
