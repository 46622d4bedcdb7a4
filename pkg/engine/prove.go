package engine

import (
	"context"

	"github.com/abstrusekb/abstruse/pkg/abserrors"
	"github.com/abstrusekb/abstruse/pkg/handler"
	"github.com/abstrusekb/abstruse/pkg/normalize"
	"github.com/abstrusekb/abstruse/pkg/scheduler"
	"github.com/abstrusekb/abstruse/pkg/term"
	"github.com/abstrusekb/abstruse/pkg/unify"
)

// Prove is the synchronous entry point for ordinary (blocking) callers: it
// bridges the proof stream through scheduler.ScheduleGenerator (§5 "prove
// may be called from outside the scheduler... it bridges via
// schedule_generator"). Calling it from inside a prover/listener handler
// (i.e. with a context Prove or Ponder has already marked as running on
// the scheduler, as every handler dispatch receives) is a
// ConcurrencyMisuseError; use AsyncProve there instead.
func (e *Engine) Prove(ctx context.Context, goal term.Term, previous *unify.Substitution, retrieveOnly bool) (*scheduler.Generator[*Proof], error) {
	if isOnScheduler(ctx) {
		return nil, &abserrors.ConcurrencyMisuseError{Reason: "Prove called from inside a handler already running on the scheduler; use AsyncProve"}
	}
	marked := withSchedulerMarker(ctx)
	stream, err := e.proveAsync(marked, goal, previous, retrieveOnly)
	if err != nil {
		return nil, err
	}
	return scheduler.ScheduleGenerator(ctx, stream), nil
}

// AsyncProve implements handler.KnowledgeBase: it is the entry point a
// handler uses to recursively call the engine while staying fully async
// (§6 "engine.async_prove(...) for use inside handlers"). Calling it from
// outside a handler dispatch (an unmarked context) is a
// ConcurrencyMisuseError; use Prove there instead.
func (e *Engine) AsyncProve(ctx context.Context, goal term.Term, previous *unify.Substitution) (*scheduler.Stream[any], error) {
	if !isOnScheduler(ctx) {
		return nil, &abserrors.ConcurrencyMisuseError{Reason: "AsyncProve called from outside the scheduler; use Prove"}
	}
	proofs, err := e.proveAsync(ctx, goal, previous, false)
	if err != nil {
		return nil, err
	}
	out := scheduler.NewStream[any](e.bufferSize)
	go func() {
		defer out.End()
		for {
			v, perr, ok := proofs.Next(ctx)
			if !ok {
				return
			}
			if perr != nil {
				_ = out.PushError(ctx, perr)
				return
			}
			if pushErr := out.Push(ctx, v); pushErr != nil {
				return
			}
		}
	}()
	return out, nil
}

var _ handler.KnowledgeBase = (*Engine)(nil)

// proveAsync is the internal, strongly-typed implementation of §4.7's
// prove algorithm: gather proof sources (the knowledge retriever, plus,
// unless retrieveOnly, RMP, the opt-in CWA prover, and every registered
// prover Component whose listened formula unifies with goal), then
// multiplex them into a single lazy stream (§4.7 step 3). ctx must already
// be scheduler-marked; callers reach this only via Prove/AsyncProve.
func (e *Engine) proveAsync(ctx context.Context, goal term.Term, previous *unify.Substitution, retrieveOnly bool) (*scheduler.Stream[*Proof], error) {
	if previous == nil {
		previous = unify.Empty()
	}
	sources := e.collectSources(ctx, goal, previous, retrieveOnly)
	return scheduler.Multiplex(ctx, e.bufferSize, sources...), nil
}

func (e *Engine) collectSources(ctx context.Context, goal term.Term, previous *unify.Substitution, retrieveOnly bool) []*scheduler.Stream[*Proof] {
	sources := []*scheduler.Stream[*Proof]{e.knowledgeRetrieverSource(ctx, goal, previous)}
	if retrieveOnly {
		return sources
	}

	sources = append(sources, e.restrictedModusPonensSource(ctx, goal, previous))
	if e.closedWorldAssumption {
		sources = append(sources, e.closedWorldAssumptionSource(ctx, goal, previous))
	}
	for _, comp := range e.provers.Retrieve(goal, true) {
		sources = append(sources, e.proverComponentSource(ctx, comp, goal, previous))
	}
	return sources
}

// knowledgeRetrieverSource proves goal iff it is unifiable with a stored
// term (§4.7's "dedicated knowledge retriever prover, always present").
func (e *Engine) knowledgeRetrieverSource(ctx context.Context, goal term.Term, previous *unify.Substitution) *scheduler.Stream[*Proof] {
	out := scheduler.NewStream[*Proof](e.bufferSize)
	go func() {
		defer out.End()
		candidates, err := e.storage.SearchUnifiable(previous.ApplyTo(goal), nil)
		if err != nil {
			_ = out.PushError(ctx, &abserrors.StorageError{Op: "search_unifiable", Err: err})
			return
		}
		for _, c := range candidates {
			// Each retrieved term gets fresh variables, so a stored rule used
			// more than once in one proof never shares variables with itself.
			renamer, err := normalize.NewFreshNormalizer(e.language)
			if err != nil {
				_ = out.PushError(ctx, err)
				return
			}
			subst, ok := unify.Unify(goal, renamer.Normalize(c.Term), previous)
			if !ok {
				continue
			}
			proof := &Proof{
				InferenceRule: knowledgeRetrieverInstance,
				Conclusion:    subst.ApplyTo(goal),
				Substitution:  subst,
			}
			if pushErr := out.Push(ctx, proof); pushErr != nil {
				return
			}
		}
	}()
	return out
}

var knowledgeRetrieverInstance = &KnowledgeRetriever{}
var restrictedModusPonensInstance = &RestrictedModusPonens{}
var closedWorldAssumptionInstance = &ClosedWorldAssumption{}

// restrictedModusPonensSource implements §4.7's Restricted Modus Ponens:
// when goal is not itself headed by Implies, look up Implies(premise,
// goal) rules and recursively prove each instantiated premise. Refusing to
// recurse into implication goals is what keeps this "restricted" (no
// trivial nontermination chaining implications against each other).
func (e *Engine) restrictedModusPonensSource(ctx context.Context, goal term.Term, previous *unify.Substitution) *scheduler.Stream[*Proof] {
	out := scheduler.NewStream[*Proof](e.bufferSize)
	go func() {
		defer out.End()

		expr, ok := goal.(*term.Expression)
		if !ok || expr.Arity() == 0 {
			return
		}
		if expr.Child(0).Equal(e.implies) {
			return
		}

		premiseVar, err := term.NewVariable(e.language, "premise")
		if err != nil {
			_ = out.PushError(ctx, err)
			return
		}
		rulePattern, err := term.NewExpression(e.implies, premiseVar, goal)
		if err != nil {
			_ = out.PushError(ctx, err)
			return
		}

		ruleStream, err := e.proveAsync(ctx, rulePattern, previous, false)
		if err != nil {
			_ = out.PushError(ctx, err)
			return
		}
		defer ruleStream.Close()
		for {
			ruleProof, rerr, rok := ruleStream.Next(ctx)
			if !rok {
				return
			}
			if rerr != nil {
				_ = out.PushError(ctx, rerr)
				return
			}

			premiseTerm, bound := ruleProof.Substitution.GetBoundObjectFor(premiseVar)
			if !bound {
				continue
			}

			premiseStream, err := e.proveAsync(ctx, premiseTerm, ruleProof.Substitution, false)
			if err != nil {
				_ = out.PushError(ctx, err)
				return
			}
			for {
				premiseProof, perr, pok := premiseStream.Next(ctx)
				if !pok {
					break
				}
				if perr != nil {
					_ = out.PushError(ctx, perr)
					return
				}
				proof := &Proof{
					InferenceRule: restrictedModusPonensInstance,
					Conclusion:    premiseProof.Substitution.ApplyTo(goal),
					Substitution:  premiseProof.Substitution,
					Premises:      []*Proof{ruleProof, premiseProof},
				}
				if pushErr := out.Push(ctx, proof); pushErr != nil {
					premiseStream.Close()
					return
				}
			}
		}
	}()
	return out
}

// closedWorldAssumptionSource implements the opt-in Closed-World
// Assumption prover (§4.7): if goal has the shape Not(P), a single attempt
// to prove P is made; an empty result concludes Not(P).
func (e *Engine) closedWorldAssumptionSource(ctx context.Context, goal term.Term, previous *unify.Substitution) *scheduler.Stream[*Proof] {
	out := scheduler.NewStream[*Proof](e.bufferSize)
	go func() {
		defer out.End()

		expr, ok := goal.(*term.Expression)
		if !ok || expr.Arity() != 2 || !expr.Child(0).Equal(e.not) {
			return
		}
		negated := expr.Child(1)

		attempt, err := e.proveAsync(ctx, negated, previous, false)
		if err != nil {
			_ = out.PushError(ctx, err)
			return
		}
		defer attempt.Close()

		_, perr, pok := attempt.Next(ctx)
		if perr != nil {
			_ = out.PushError(ctx, perr)
			return
		}
		if pok {
			// P has at least one proof: Not(P) is not concluded.
			return
		}

		proof := &Proof{
			InferenceRule: closedWorldAssumptionInstance,
			Conclusion:    previous.ApplyTo(goal),
			Substitution:  previous,
		}
		_ = out.Push(ctx, proof)
	}()
	return out
}

// proverComponentSource dispatches a user-registered prover Component
// (§4.6) against goal and turns each accepted handler result (§4.7's
// result-shape priority list) into a Proof tagged with the component
// itself as InferenceRule. The dispatch itself runs on the Engine's
// Executor (§4.8), so a slow or misbehaving host handler competes for a
// bounded worker pool rather than spawning an unbounded goroutine.
func (e *Engine) proverComponentSource(ctx context.Context, comp *handler.Component, goal term.Term, previous *unify.Substitution) *scheduler.Stream[*Proof] {
	out := scheduler.NewStream[*Proof](e.bufferSize)
	task := func() {
		defer out.End()

		resultStream, matched, err := comp.Dispatch(ctx, goal, previous, e)
		if err != nil {
			_ = out.PushError(ctx, err)
			return
		}
		if !matched {
			return
		}

		for {
			raw, rerr, ok := resultStream.Next(ctx)
			if !ok {
				return
			}
			if rerr != nil {
				_ = out.PushError(ctx, rerr)
				return
			}
			items, ferr := flattenHandlerResult(raw, previous)
			if ferr != nil {
				_ = out.PushError(ctx, ferr)
				return
			}
			for _, item := range items {
				proof := buildProof(comp, item, nil)
				if pushErr := out.Push(ctx, proof); pushErr != nil {
					return
				}
			}
		}
	}
	go func() {
		if err := e.executor.Submit(ctx, task); err != nil {
			_ = out.PushError(ctx, err)
			out.End()
		}
	}()
	return out
}
