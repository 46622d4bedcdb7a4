package engine

import "context"

// schedulerMarkerKey tags a context as already running "on" the cooperative
// scheduler — i.e. inside a prover/listener handler dispatch, or any code
// derived from one. Prove rejects being called from such a context (it must
// bridge from ordinary blocking code); AsyncProve requires one (§5 "these
// two call sites are disjoint and the engine must reject the wrong one
// explicitly").
type schedulerMarkerKey struct{}

func withSchedulerMarker(ctx context.Context) context.Context {
	return context.WithValue(ctx, schedulerMarkerKey{}, true)
}

func isOnScheduler(ctx context.Context) bool {
	v, _ := ctx.Value(schedulerMarkerKey{}).(bool)
	return v
}
