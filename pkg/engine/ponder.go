package engine

import (
	"context"
	"errors"

	"github.com/hashicorp/go-multierror"

	"github.com/abstrusekb/abstruse/pkg/abserrors"
	"github.com/abstrusekb/abstruse/pkg/scheduler"
	"github.com/abstrusekb/abstruse/pkg/term"
	"github.com/abstrusekb/abstruse/pkg/unify"
)

// PonderMode selects which proofs of the triggering goals fire listeners
// during Ponder (§4.7, §GLOSSARY "Ponder mode").
type PonderMode int

const (
	// Known fires a goal's listeners only via the knowledge retriever: the
	// goal must already be stored, not merely derivable.
	Known PonderMode = iota
	// Prove fires listeners on any proof the goal derives, via the full
	// prover set.
	Prove
	// Hypothetically is reserved for hypothesis scopes; not implemented
	// (§4.7: "reserved for hypothesis scopes (not yet implemented; must
	// fail explicitly)").
	Hypothetically
)

func (m PonderMode) String() string {
	switch m {
	case Known:
		return "KNOWN"
	case Prove:
		return "PROVE"
	case Hypothetically:
		return "HYPOTHETICALLY"
	default:
		return "UNKNOWN"
	}
}

// ErrHypotheticalNotImplemented is returned by Ponder when called with
// Hypothetically, which §4.7 explicitly reserves without specifying a
// hypothesis-scope implementation.
var ErrHypotheticalNotImplemented = errors.New("engine: Ponder(HYPOTHETICALLY) is not implemented")

// Ponder is the listener-driven forward step of §4.7: for each goal, proofs
// are produced per mode, and for each emitted proof, listeners whose
// listened formula unifies with the proof's conclusion are dispatched;
// their results become new Proofs fed back into the same stream
// recursively (the "loopback" of §4.8/§GLOSSARY). Only the listener-derived
// proofs are yielded — the triggering proofs themselves are not
// re-emitted, matching scenario 5 of §8 ("yields one proof with conclusion
// Meows(dylan)").
func (e *Engine) Ponder(ctx context.Context, mode PonderMode, previous *unify.Substitution, goals ...term.Term) (*scheduler.Generator[*Proof], error) {
	if isOnScheduler(ctx) {
		return nil, &abserrors.ConcurrencyMisuseError{Reason: "Ponder called from inside a handler already running on the scheduler"}
	}
	if mode == Hypothetically {
		return nil, ErrHypotheticalNotImplemented
	}
	if previous == nil {
		previous = unify.Empty()
	}

	marked := withSchedulerMarker(ctx)

	triggerSources := make([]*scheduler.Stream[*Proof], 0, len(goals))
	for _, g := range goals {
		retrieveOnly := mode == Known
		src, err := e.proveAsync(marked, g, previous, retrieveOnly)
		if err != nil {
			return nil, err
		}
		triggerSources = append(triggerSources, src)
	}
	triggers := scheduler.Multiplex(marked, e.bufferSize, triggerSources...)

	out := scheduler.ProcessWithLoopback(marked, e.bufferSize, triggers, e.fireListeners)
	return scheduler.ScheduleGenerator(ctx, out), nil
}

// fireListeners is the Processor (§4.8) driving Ponder's loopback: given a
// triggering Proof, it dispatches every listener Component whose listened
// formula unifies with the proof's conclusion and turns each accepted
// handler result into a new Proof wrapped in a Pondering marker.
// Listener-side failures do not poison the stream (§7: "Listener-side
// failures do not poison the KB; the provoking proof is already emitted.");
// they are aggregated with go-multierror and logged instead of propagated.
func (e *Engine) fireListeners(ctx context.Context, proof *Proof) (*scheduler.Stream[*Proof], error) {
	candidates := e.listeners.Retrieve(proof.Conclusion, true)
	out := scheduler.NewStream[*Proof](e.bufferSize)

	task := func() {
		defer out.End()
		var errs *multierror.Error

		for _, comp := range candidates {
			resultStream, matched, err := comp.Dispatch(ctx, proof.Conclusion, proof.Substitution, e)
			if err != nil {
				errs = multierror.Append(errs, err)
				continue
			}
			if !matched {
				continue
			}

			for {
				raw, rerr, ok := resultStream.Next(ctx)
				if !ok {
					break
				}
				if rerr != nil {
					errs = multierror.Append(errs, rerr)
					break
				}
				items, ferr := flattenHandlerResult(raw, proof.Substitution)
				if ferr != nil {
					errs = multierror.Append(errs, ferr)
					continue
				}
				for _, item := range items {
					newProof := buildProof(&Pondering{Listener: comp, TriggerFormula: proof.Conclusion}, item, proof)
					if pushErr := out.Push(ctx, newProof); pushErr != nil {
						return
					}
				}
			}
		}

		if errs.ErrorOrNil() != nil {
			e.logger.Warn("ponder: listener dispatch reported errors", "error", errs)
		}
	}

	// fireListeners runs on the Engine's Executor (§4.8), the same bounded
	// worker pool proverComponentSource dispatches through, so a slow
	// listener handler cannot starve the rest of the system of goroutines.
	go func() {
		if err := e.executor.Submit(ctx, task); err != nil {
			e.logger.Warn("ponder: listener dispatch could not be scheduled", "error", err)
			out.End()
		}
	}()

	return out, nil
}
