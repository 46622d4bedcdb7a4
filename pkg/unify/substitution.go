package unify

import (
	"sort"

	"github.com/abstrusekb/abstruse/pkg/term"
)

// Substitution maps Variables to the Bindings that constrain them. It is
// immutable from the caller's point of view: every mutating operation
// (WithBindings) returns a new Substitution, sharing structure with its
// parent where unchanged.
type Substitution struct {
	byVariable map[*term.Variable]*Binding
}

// Empty returns the substitution with no bindings.
func Empty() *Substitution {
	return &Substitution{byVariable: map[*term.Variable]*Binding{}}
}

// IsEmpty reports whether this substitution has no bindings at all.
func (s *Substitution) IsEmpty() bool {
	return len(s.byVariable) == 0
}

// clone returns a shallow copy of the variable->binding map, safe to mutate
// without affecting s.
func (s *Substitution) clone() map[*term.Variable]*Binding {
	cp := make(map[*term.Variable]*Binding, len(s.byVariable))
	for v, b := range s.byVariable {
		cp[v] = b
	}
	return cp
}

// WithBindings returns a new Substitution extended with each of the given
// Bindings declared in turn. If declaring any binding requires joining it
// against an existing binding whose head fails to unify, a UnificationError
// is returned and the original Substitution is unaffected.
func (s *Substitution) WithBindings(bindings ...*Binding) (*Substitution, error) {
	cur := &Substitution{byVariable: s.clone()}
	for _, b := range bindings {
		next, err := cur.declareBinding(b)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// declareBinding merges binding into the substitution, joining it with any
// binding already covering one of its variables. Every variable touched by
// the (possibly merged) result ends up mapped to the same *Binding value.
func (s *Substitution) declareBinding(binding *Binding) (*Substitution, error) {
	merged := binding
	touched := make(map[*term.Variable]struct{})
	for v := range binding.variables {
		touched[v] = struct{}{}
	}

	for v := range binding.variables {
		if existing, ok := s.byVariable[v]; ok {
			var err error
			merged, err = JoinBindings(merged, existing, s)
			if err != nil {
				return nil, err
			}
			for ev := range existing.variables {
				touched[ev] = struct{}{}
			}
		}
	}

	cp := s.clone()
	for v := range touched {
		cp[v] = merged
	}
	return &Substitution{byVariable: cp}, nil
}

// GetBoundObjectFor returns the term v is bound to, and true, or (nil,
// false) if v is unbound or free in this substitution.
func (s *Substitution) GetBoundObjectFor(v *term.Variable) (term.Term, bool) {
	b, ok := s.byVariable[v]
	if !ok || b.head == nil {
		return nil, false
	}
	return b.head, true
}

// ApplyTo rewrites obj by following variable bindings to a fixed point:
// every Variable reachable from obj that has a bound head is replaced by
// that head (recursively), and Expressions are rebuilt from rewritten
// children. Terms with no reachable bound variables are returned unchanged.
func (s *Substitution) ApplyTo(obj term.Term) term.Term {
	switch t := obj.(type) {
	case *term.Variable:
		if head, ok := s.GetBoundObjectFor(t); ok {
			return s.ApplyTo(head)
		}
		return t
	case *term.Expression:
		children := t.Children()
		rewritten := make([]term.Term, len(children))
		changed := false
		for i, c := range children {
			rc := s.ApplyTo(c)
			rewritten[i] = rc
			if rc != c && !rc.Equal(c) {
				changed = true
			}
		}
		if !changed {
			return t
		}
		newExpr, err := term.NewExpression(rewritten...)
		if err != nil {
			// rewritten has the same non-zero length as children, so this
			// cannot fail.
			panic(err)
		}
		return newExpr
	default:
		return obj
	}
}

// Equal compares two substitutions by canonical bound-object value, not by
// internal binding-object layout: for every variable in s's domain, other
// must bind it to an equal term. This mirrors the original implementation's
// asymmetric check (only s's domain is walked) rather than a symmetric
// domain-equality check; two substitutions where s's domain is a strict
// subset of other's, but agrees on every shared variable, compare equal.
// This was an explicit Open Question in the spec, resolved in favor of
// matching the source's observed behavior rather than "fixing" it into a
// symmetric comparison.
func (s *Substitution) Equal(other *Substitution) bool {
	if other == nil {
		return s.IsEmpty()
	}
	for v, b := range s.byVariable {
		if b.head == nil {
			continue
		}
		otherHead, ok := other.GetBoundObjectFor(v)
		if !ok || !b.head.Equal(otherHead) {
			return false
		}
	}
	return true
}

func (s *Substitution) String() string {
	vars := make([]*term.Variable, 0, len(s.byVariable))
	seen := make(map[*term.Variable]bool)
	for v := range s.byVariable {
		if !seen[v] {
			seen[v] = true
			vars = append(vars, v)
		}
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i].String() < vars[j].String() })

	out := "{"
	for i, v := range vars {
		if i > 0 {
			out += ", "
		}
		head, ok := s.GetBoundObjectFor(v)
		if ok {
			out += v.String() + "=" + head.String()
		} else {
			out += v.String() + "=free"
		}
	}
	return out + "}"
}
