package engine

import (
	"github.com/hashicorp/go-hclog"

	"github.com/abstrusekb/abstruse/pkg/scheduler"
	"github.com/abstrusekb/abstruse/pkg/term"
)

// config accumulates Option values before New validates and freezes them,
// the same functional-options shape the teacher's ParallelConfig /
// DefaultParallelConfig pair uses in parallel.go.
type config struct {
	logger                hclog.Logger
	bufferSize            int
	executor              *scheduler.Executor
	executorWorkers       int
	closedWorldAssumption bool
	implies               *term.Constant
	not                   *term.Constant
}

// Option configures an Engine at construction time.
type Option func(*config)

// WithLogger sets the hclog.Logger the engine and its provers/listeners log
// through. Defaults to hclog.NewNullLogger().
func WithLogger(logger hclog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithBufferSize sets the bound on every Stream the engine creates
// (Multiplex outputs, ProcessWithLoopback outputs, per-source streams).
// Defaults to 1, the spec's suggested small default (§5 "Back-pressure").
func WithBufferSize(n int) Option {
	return func(c *config) { c.bufferSize = n }
}

// WithExecutor supplies a pre-built Executor (§4.8) that prover/listener
// handler dispatch calls are submitted through, bounding how many host
// handlers run concurrently. If not given, the Engine builds its own with
// WithExecutorWorkers' worker count (default 4) and shuts it down in
// Engine.Close. A supplied Executor is never closed by the Engine.
func WithExecutor(e *scheduler.Executor) Option {
	return func(c *config) { c.executor = e }
}

// WithExecutorWorkers sets the worker count for the Engine's own Executor,
// when one is not supplied via WithExecutor. Defaults to 4.
func WithExecutorWorkers(n int) Option {
	return func(c *config) { c.executorWorkers = n }
}

// WithClosedWorldAssumption opts into the Closed-World Assumption prover
// (§1 Non-goals: "no negation as failure except via an optional
// closed-world prover"; §4.7).
func WithClosedWorldAssumption() Option {
	return func(c *config) { c.closedWorldAssumption = true }
}

// WithImplies supplies the Constant symbol Restricted Modus Ponens
// recognizes as the Implies connective (the first child of an
// Implies(premise, conclusion) rule expression). If not given, the Engine
// mints its own in its Language and exposes it via Engine.Implies, which
// every client building rule formulas must then reuse — this is the
// explicit-Language redesign of §9 ("eliminate process-wide defaults").
func WithImplies(c *term.Constant) Option {
	return func(cfg *config) { cfg.implies = c }
}

// WithNot supplies the Constant symbol the Closed-World Assumption prover
// recognizes as the Not connective. See WithImplies for the same
// explicit-symbol rationale.
func WithNot(c *term.Constant) Option {
	return func(cfg *config) { cfg.not = c }
}
