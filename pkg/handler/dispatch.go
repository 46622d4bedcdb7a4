package handler

import (
	"context"

	"github.com/abstrusekb/abstruse/pkg/abserrors"
	"github.com/abstrusekb/abstruse/pkg/normalize"
	"github.com/abstrusekb/abstruse/pkg/scheduler"
	"github.com/abstrusekb/abstruse/pkg/term"
	"github.com/abstrusekb/abstruse/pkg/unify"
)

// Dispatch recomputes the unifier of query against a freshly-renamed copy
// of the component's listened formula, extracts arguments per the
// component's ArgumentMode, and invokes the handler. A false second return
// means the component does not apply: either the formula did not unify,
// or an argument-mode skip rule (MAPUnwrappedRequired, the *NoVariables
// modes) rejected the would-be arguments. Neither case is an error.
func (c *Component) Dispatch(ctx context.Context, query term.Term, previous *unify.Substitution, kb KnowledgeBase) (*scheduler.Stream[any], bool, error) {
	freshNormalizer, err := normalize.NewFreshNormalizer(c.freshLanguage)
	if err != nil {
		return nil, false, err
	}
	freshFormula := freshNormalizer.Normalize(c.listenedFormula)

	unifier, ok := unify.Unify(query, freshFormula, previous)
	if !ok {
		return nil, false, nil
	}

	args, ok, err := c.extractArgs(query, unifier, freshNormalizer)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	if c.passSubstAs != "" {
		args[c.passSubstAs] = unifier
	}
	if c.passKBAs != "" {
		args[c.passKBAs] = kb
	}

	call := &Call{Formula: query, Substitution: unifier, Args: args, KB: kb}
	stream, err := c.handler(ctx, call)
	if err != nil {
		return nil, false, err
	}
	return stream, true, nil
}

// extractArgs builds the per-name argument map before PassSubstitutionAs/
// PassKnowledgeBaseAs are layered in by Dispatch. The returned bool is
// false (with a nil error) when an argument-mode skip rule applies.
func (c *Component) extractArgs(formula term.Term, unifier *unify.Substitution, freshNormalizer *normalize.Normalizer) (map[string]any, bool, error) {
	if c.argumentMode == RAW {
		return map[string]any{"formula": formula}, true, nil
	}

	mapped := map[string]term.Term{}
	for _, name := range c.paramNames {
		original, isListened := c.variablesByName[name]
		if !isListened {
			continue
		}
		fresh, ok := freshNormalizer.MappingFor(original)
		if !ok {
			return nil, false, &abserrors.HandlerContractError{
				Reason: "listened variable " + name + " has no renamed counterpart for this dispatch",
			}
		}
		bound, isBound := unifier.GetBoundObjectFor(fresh)
		if !isBound {
			bound = fresh // still unbound: the handler receives the Variable itself
		}
		mapped[name] = bound
	}

	switch c.argumentMode {
	case MAP:
		// no further rules
	case MAPNoVariables:
		if anyVariable(mapped) {
			return nil, false, nil
		}
	case MAPUnwrapped:
		return unwrapAll(mapped), true, nil
	case MAPUnwrappedRequired:
		if !allWrapped(mapped) {
			return nil, false, nil
		}
		return unwrapAll(mapped), true, nil
	case MAPUnwrappedNoVariables:
		if anyVariable(mapped) {
			return nil, false, nil
		}
		return unwrapAll(mapped), true, nil
	default:
		return nil, false, &abserrors.HandlerContractError{Reason: "unsupported argument mode"}
	}

	args := make(map[string]any, len(mapped))
	for k, v := range mapped {
		args[k] = v
	}
	return args, true, nil
}

func anyVariable(args map[string]term.Term) bool {
	for _, v := range args {
		if _, ok := v.(*term.Variable); ok {
			return true
		}
	}
	return false
}

func allWrapped(args map[string]term.Term) bool {
	for _, v := range args {
		if _, ok := v.(*term.Wrapper); !ok {
			return false
		}
	}
	return true
}

func unwrapAll(args map[string]term.Term) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		if w, ok := v.(*term.Wrapper); ok {
			out[k] = w.Value()
			continue
		}
		out[k] = v
	}
	return out
}
