// Package engine implements the backward-chaining proof engine of §4.7: a
// Storage-backed knowledge base, an abstruse index of registered provers and
// listeners, the always-present knowledge retriever and Restricted Modus
// Ponens provers, an optional Closed-World Assumption prover, and the
// listener-driven Ponder forward step. It is grounded in
// original_source/aitools/proofs/{knowledge_base,provers,proof}.py, wired
// onto pkg/scheduler's Multiplex/ProcessWithLoopback for the concurrency
// model gokando's Stream/worker-pool machinery was generalized into.
package engine

import (
	"fmt"

	"github.com/abstrusekb/abstruse/pkg/abserrors"
	"github.com/abstrusekb/abstruse/pkg/handler"
	"github.com/abstrusekb/abstruse/pkg/term"
	"github.com/abstrusekb/abstruse/pkg/unify"
)

// Proof is an immutable DAG node: the inference rule that produced it, the
// conclusion it establishes (substitution already applied), the unifier
// that justifies it, and the sub-proofs it depends on. InferenceRule
// carries no fixed type — it is a marker distinguishing which rule fired:
// *KnowledgeRetriever, *RestrictedModusPonens, *ClosedWorldAssumption, a
// *Pondering wrapper around a firing listener, or a *handler.Component for
// a user-registered prover.
type Proof struct {
	InferenceRule any
	Conclusion    term.Term
	Substitution  *unify.Substitution
	Premises      []*Proof
}

func (p *Proof) String() string {
	return fmt.Sprintf("Proof{rule=%v, conclusion=%v, premises=%d}", p.InferenceRule, p.Conclusion, len(p.Premises))
}

// KnowledgeRetriever is the InferenceRule marker of the always-present
// builtin prover that proves a goal iff it unifies with a stored term (§4.7).
type KnowledgeRetriever struct{}

func (*KnowledgeRetriever) String() string { return "KnowledgeRetriever" }

// RestrictedModusPonens is the InferenceRule marker of the builtin prover
// that proves formula by finding a stored Implies(premise, formula) and
// recursively proving premise, refusing to recurse into implication goals
// themselves (§4.7).
type RestrictedModusPonens struct{}

func (*RestrictedModusPonens) String() string { return "RestrictedModusPonens" }

// ClosedWorldAssumption is the InferenceRule marker of the opt-in prover
// that proves Not(P) when a single attempt to prove P fails (§4.7, §1
// Non-goals: "negation as failure except via an optional closed-world
// prover").
type ClosedWorldAssumption struct{}

func (*ClosedWorldAssumption) String() string { return "ClosedWorldAssumption" }

// Pondering is the InferenceRule marker built for every proof a listener
// emits during Ponder: it names the firing listener and the formula that
// triggered it (§4.7 "a Pondering marker referencing the listener and the
// triggering formula").
type Pondering struct {
	Listener       *handler.Component
	TriggerFormula term.Term
}

func (p *Pondering) String() string {
	return fmt.Sprintf("Pondering{trigger=%v}", p.TriggerFormula)
}

// FormulaSubstitution is one of the shapes a prover/listener handler may
// return: a bare conclusion paired with an explicit substitution (§4.7).
type FormulaSubstitution struct {
	Formula      term.Term
	Substitution *unify.Substitution
}

// FormulaSubstitutionPremises is the richest shape a handler may return: a
// conclusion, its substitution, and the sub-proofs it depends on (§4.7).
type FormulaSubstitutionPremises struct {
	Formula      term.Term
	Substitution *unify.Substitution
	Premises     []*Proof
}

// rawResultItem is the parsed, uniform shape every accepted handler-result
// variant is flattened into before a Proof is built around it.
type rawResultItem struct {
	conclusion   term.Term
	substitution *unify.Substitution
	premises     []*Proof
}

// flattenHandlerResult parses one element popped off a handler's result
// stream into zero or more rawResultItems, honoring the priority order of
// §4.7: an already-formed Proof, a FormulaSubstitutionPremises triple, a
// FormulaSubstitution pair, a bare conclusion term (substitution defaults
// to defaultSubst), nil (dropped), or a []any of any of the above.
func flattenHandlerResult(raw any, defaultSubst *unify.Substitution) ([]rawResultItem, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case *Proof:
		return []rawResultItem{{conclusion: v.Conclusion, substitution: v.Substitution, premises: v.Premises}}, nil
	case FormulaSubstitutionPremises:
		return []rawResultItem{{conclusion: v.Formula, substitution: v.Substitution, premises: v.Premises}}, nil
	case *FormulaSubstitutionPremises:
		return []rawResultItem{{conclusion: v.Formula, substitution: v.Substitution, premises: v.Premises}}, nil
	case FormulaSubstitution:
		return []rawResultItem{{conclusion: v.Formula, substitution: v.Substitution}}, nil
	case *FormulaSubstitution:
		return []rawResultItem{{conclusion: v.Formula, substitution: v.Substitution}}, nil
	case []any:
		var out []rawResultItem
		for _, el := range v {
			items, err := flattenHandlerResult(el, defaultSubst)
			if err != nil {
				return nil, err
			}
			out = append(out, items...)
		}
		return out, nil
	case term.Term:
		return []rawResultItem{{conclusion: v, substitution: defaultSubst}}, nil
	default:
		return nil, &abserrors.HandlerContractError{
			Reason: fmt.Sprintf("handler returned a value of unsupported shape %T", raw),
		}
	}
}

// buildProof assembles a final Proof from one parsed rawResultItem, tagging
// it with rule and, if prepend is non-nil, prepending prepend to its
// premises (the triggering proof, for Pondering emissions).
func buildProof(rule any, item rawResultItem, prepend *Proof) *Proof {
	subst := item.substitution
	if subst == nil {
		subst = unify.Empty()
	}
	premises := item.premises
	if prepend != nil {
		combined := make([]*Proof, 0, len(premises)+1)
		combined = append(combined, prepend)
		combined = append(combined, premises...)
		premises = combined
	}
	return &Proof{
		InferenceRule: rule,
		Conclusion:    subst.ApplyTo(item.conclusion),
		Substitution:  subst,
		Premises:      premises,
	}
}
