package scheduler_test

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/abstrusekb/abstruse/pkg/scheduler"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func streamOf(ctx context.Context, values ...int) *scheduler.Stream[int] {
	s := scheduler.NewStream[int](len(values))
	go func() {
		for _, v := range values {
			_ = s.Push(ctx, v)
		}
		s.End()
	}()
	return s
}

func TestStreamCollectPreservesOrder(t *testing.T) {
	ctx := context.Background()
	s := streamOf(ctx, 1, 2, 3)
	got, err := s.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestMultiplexFansInAllElements(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := streamOf(ctx, 1, 2)
	b := streamOf(ctx, 3, 4)
	c := streamOf(ctx, 5)

	out := scheduler.Multiplex(ctx, 4, a, b, c)
	got, err := out.Collect(ctx)
	require.NoError(t, err)

	sort.Ints(got)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, got)
}

func TestMultiplexPropagatesErrorExactlyOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	boom := errors.New("boom")
	failing := scheduler.NewStream[int](1)
	go func() {
		_ = failing.PushError(ctx, boom)
	}()

	ok := streamOf(ctx, 1, 2, 3)

	out := scheduler.Multiplex(ctx, 4, failing, ok)
	_, err := out.Collect(ctx)
	require.Error(t, err)
	assert.Equal(t, boom, err)
}

func TestMultiplexCancellationUnblocksConsumer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	never := scheduler.NewStream[int](0) // never pushed to, never ended
	out := scheduler.Multiplex(ctx, 0, never)

	cancel()
	_, err, ok := out.Next(context.Background())
	require.True(t, ok)
	assert.Error(t, err)
}

func TestProcessWithLoopbackRecursesOverEmittedValues(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	input := streamOf(ctx, 3)

	// Counts down from each value to zero, emitting every step; each
	// emitted step feeds back through the same processor via loopback.
	var process scheduler.Processor[int]
	process = func(ctx context.Context, v int) (*scheduler.Stream[int], error) {
		if v <= 0 {
			return nil, nil
		}
		out := scheduler.NewStream[int](1)
		go func() {
			_ = out.Push(ctx, v-1)
			out.End()
		}()
		return out, nil
	}

	out := scheduler.ProcessWithLoopback(ctx, 4, input, process)
	got, err := out.Collect(ctx)
	require.NoError(t, err)

	sort.Sort(sort.Reverse(sort.IntSlice(got)))
	assert.Equal(t, []int{2, 1, 0}, got)
}

func TestScheduleGeneratorBridgesBlockingConsumers(t *testing.T) {
	ctx := context.Background()
	s := streamOf(ctx, 10, 20)

	gen := scheduler.ScheduleGenerator(ctx, s)
	defer gen.Close()

	v, err, ok := gen.Next()
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	v, err, ok = gen.Next()
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, 20, v)

	_, _, ok = gen.Next()
	assert.False(t, ok)
}

func TestExecutorRunsSubmittedTasks(t *testing.T) {
	ctx := context.Background()
	ex := scheduler.NewExecutor(2, 4)
	defer ex.Close()

	done := make(chan struct{}, 3)
	for i := 0; i < 3; i++ {
		require.NoError(t, ex.Submit(ctx, func() { done <- struct{}{} }))
	}

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("task did not run in time")
		}
	}
	// give the worker a moment to record the last completion after the task returns
	time.Sleep(10 * time.Millisecond)

	assert.EqualValues(t, 3, ex.Stats().TasksSubmitted)
	assert.EqualValues(t, 3, ex.Stats().TasksCompleted)
}

func TestExecutorRecordsPanicsAsFailures(t *testing.T) {
	ctx := context.Background()
	ex := scheduler.NewExecutor(1, 1)
	defer ex.Close()

	sync := make(chan struct{})
	require.NoError(t, ex.Submit(ctx, func() {
		defer close(sync)
		panic("handler exploded")
	}))
	<-sync
	// give the worker a moment to record the failure after the deferred recover
	time.Sleep(10 * time.Millisecond)
	assert.EqualValues(t, 1, ex.Stats().TasksFailed)
}
