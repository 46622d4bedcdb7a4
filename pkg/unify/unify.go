package unify

import "github.com/abstrusekb/abstruse/pkg/term"

// Unify computes the most general unifier of a and b, extending previous
// (or starting from Empty() if previous is nil). It returns the extended
// substitution and true on success, or (nil, false) if a and b have no
// unifier.
//
// A UnificationError can in principle surface from the internal
// WithBindings/JoinBindings machinery (e.g. two structurally incompatible
// heads forced together while merging bindings); Unify treats any such
// error as an ordinary "no unifier" outcome rather than propagating it,
// matching the documented contract that UnificationError is never emitted
// by top-level Unify. UnificationError remains visible to callers that
// build Substitutions by hand via WithBindings directly.
func Unify(a, b term.Term, previous *Substitution) (*Substitution, bool) {
	subst := previous
	if subst == nil {
		subst = Empty()
	}
	result, err := unify(a, b, subst)
	if err != nil {
		return nil, false
	}
	return result, true
}

func unify(a, b term.Term, subst *Substitution) (*Substitution, error) {
	a = subst.ApplyTo(a)
	b = subst.ApplyTo(b)

	if a.Equal(b) {
		return subst, nil
	}

	if av, ok := a.(*term.Variable); ok {
		return bindVariable(av, b, subst)
	}
	if bv, ok := b.(*term.Variable); ok {
		return bindVariable(bv, a, subst)
	}

	ae, aok := a.(*term.Expression)
	be, bok := b.(*term.Expression)
	if !aok || !bok {
		return nil, &noUnifierError{a: a, b: b}
	}
	if ae.Arity() != be.Arity() {
		return nil, &noUnifierError{a: a, b: b}
	}

	cur := subst
	for i := 0; i < ae.Arity(); i++ {
		next, err := unify(ae.Child(i), be.Child(i), cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

func bindVariable(v *term.Variable, other term.Term, subst *Substitution) (*Substitution, error) {
	if ov, ok := other.(*term.Variable); ok && v.Equal(ov) {
		return subst, nil
	}
	if other.Contains(v) {
		return nil, &noUnifierError{a: v, b: other}
	}
	binding, err := NewBinding([]*term.Variable{v}, other)
	if err != nil {
		return nil, err
	}
	return subst.WithBindings(binding)
}

// noUnifierError is an internal sentinel distinguishing "no unifier exists"
// from a genuine UnificationError raised deeper in the binding machinery.
// Both are folded into a boolean false by Unify's public contract.
type noUnifierError struct {
	a, b term.Term
}

func (e *noUnifierError) Error() string {
	return "no unifier for " + e.a.String() + " and " + e.b.String()
}
