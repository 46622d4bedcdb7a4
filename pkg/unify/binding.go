// Package unify implements Robinson-style most-general-unification over the
// term algebra in pkg/term: Bindings, Substitutions, and a top-level Unify
// entry point.
package unify

import (
	"fmt"
	"sort"

	"github.com/abstrusekb/abstruse/pkg/abserrors"
	"github.com/abstrusekb/abstruse/pkg/term"
)

// Binding groups a non-empty set of Variables known to share a value,
// together with an optional head term giving that shared value. A Binding
// with no head means "these variables are aliased to each other but still
// free"; a Binding with a head means "these variables, and only these, are
// bound to head".
type Binding struct {
	variables map[*term.Variable]struct{}
	head      term.Term // nil if unbound
}

// NewBinding constructs a Binding over the given variables (must be
// non-empty) with an optional head. If head is non-nil and occurs-checks
// against any of the variables, construction fails with MalformedTermError
// — a Binding may never alias a variable to a term containing itself.
func NewBinding(variables []*term.Variable, head term.Term) (*Binding, error) {
	if len(variables) == 0 {
		return nil, &abserrors.MalformedTermError{Reason: "binding must cover at least one variable"}
	}
	set := make(map[*term.Variable]struct{}, len(variables))
	for _, v := range variables {
		set[v] = struct{}{}
	}
	if head != nil {
		for v := range set {
			if head.Contains(v) {
				return nil, &abserrors.MalformedTermError{
					Reason: fmt.Sprintf("binding head %s contains its own variable %s (occurs check)", head, v),
				}
			}
		}
	}
	return &Binding{variables: set, head: head}, nil
}

// Variables returns the set of variables covered by this binding, in a
// deterministic order (by string form) so callers iterating for display or
// hashing get stable output.
func (b *Binding) Variables() []*term.Variable {
	out := make([]*term.Variable, 0, len(b.variables))
	for v := range b.variables {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Covers reports whether v is one of this binding's variables.
func (b *Binding) Covers(v *term.Variable) bool {
	_, ok := b.variables[v]
	return ok
}

// BoundObject returns the binding's head, or nil if the binding is still
// free (no variable in it has been given a value yet).
func (b *Binding) BoundObject() term.Term {
	return b.head
}

// JoinBindings merges two Bindings known to share at least one variable
// (the caller, Substitution.declareBinding, is responsible for only joining
// bindings that actually overlap or need merging). The resulting binding
// covers the union of both variable sets. If both had a head, the heads
// must themselves unify under previous (§4.2(iii): "the result of unifying
// the two heads under the current substitution") — a UnificationError is
// returned if they don't. previous may be nil, meaning the empty
// substitution.
func JoinBindings(a, b *Binding, previous *Substitution) (*Binding, error) {
	vars := make(map[*term.Variable]struct{}, len(a.variables)+len(b.variables))
	for v := range a.variables {
		vars[v] = struct{}{}
	}
	for v := range b.variables {
		vars[v] = struct{}{}
	}

	var head term.Term
	switch {
	case a.head == nil && b.head == nil:
		head = nil
	case a.head != nil && b.head == nil:
		head = a.head
	case a.head == nil && b.head != nil:
		head = b.head
	default:
		merged, ok := Unify(a.head, b.head, previous)
		if !ok {
			return nil, &abserrors.UnificationError{
				Reason: fmt.Sprintf("cannot join bindings with incompatible heads %s and %s", a.head, b.head),
			}
		}
		head = merged.ApplyTo(a.head)
	}

	varList := make([]*term.Variable, 0, len(vars))
	for v := range vars {
		varList = append(varList, v)
	}
	return NewBinding(varList, head)
}

func (b *Binding) String() string {
	vs := b.Variables()
	s := "{"
	for i, v := range vs {
		if i > 0 {
			s += ", "
		}
		s += v.String()
	}
	s += "}"
	if b.head != nil {
		s += " -> " + b.head.String()
	}
	return s
}
