// Package normalize renames the variables of a term, either to brand new
// fresh variables or to a canonical, ordinal-position-indexed naming that
// makes alpha-equivalent terms compare structurally equal.
package normalize

import (
	"fmt"

	"github.com/abstrusekb/abstruse/pkg/abserrors"
	"github.com/abstrusekb/abstruse/pkg/term"
)

// VariableSource lazily mints and memoizes Variables keyed by an arbitrary
// comparable key (typically an ordinal position, for canonical renaming, or
// a name, for by-name renaming). Repeated lookups with the same key return
// the same Variable, so sharing one VariableSource across a normalization
// pass is what makes repeated occurrences of "the same" variable rename
// consistently.
type VariableSource struct {
	language *term.Language
	made     map[any]*term.Variable
}

// NewVariableSource creates a VariableSource that mints its variables in
// the given Language.
func NewVariableSource(language *term.Language) *VariableSource {
	return &VariableSource{language: language, made: map[any]*term.Variable{}}
}

// Get returns the Variable associated with key, minting and memoizing a
// fresh one named by fmt.Sprint(key) on first use.
func (vs *VariableSource) Get(key any) *term.Variable {
	if v, ok := vs.made[key]; ok {
		return v
	}
	v, err := term.NewVariable(vs.language, fmt.Sprint(key))
	if err != nil {
		panic(err)
	}
	vs.made[key] = v
	return v
}

// Mode selects how Normalizer renames variables.
type Mode int

const (
	// Fresh allocates a brand-new Variable (from a Language) for each
	// distinct input variable encountered, in first-occurrence order.
	Fresh Mode = iota
	// Canonical renames each distinct input variable to the Variable a
	// shared VariableSource associates with its ordinal position (0, 1,
	// 2, ...) of first occurrence, so structurally identical terms up to
	// variable renaming normalize to literally the same term.
	Canonical
)

// Normalizer rewrites a term's variables according to Mode. The mode is
// fixed by the constructor used (NewFreshNormalizer or
// NewCanonicalNormalizer), so exactly one of Fresh or Canonical is always in
// effect; a Normalizer with neither or both cannot be constructed.
type Normalizer struct {
	mode     Mode
	language *term.Language // used in Fresh mode
	source   *VariableSource // used in Canonical mode

	mapping map[*term.Variable]*term.Variable
	order   []*term.Variable
}

// NewFreshNormalizer builds a Normalizer that mints brand new Variables
// from language for each distinct variable it encounters.
func NewFreshNormalizer(language *term.Language) (*Normalizer, error) {
	if language == nil {
		return nil, &abserrors.MalformedTermError{Reason: "fresh normalizer requires a language"}
	}
	return &Normalizer{mode: Fresh, language: language, mapping: map[*term.Variable]*term.Variable{}}, nil
}

// NewCanonicalNormalizer builds a Normalizer that renames variables to
// source's ordinal-position variables. If source is nil, a private
// VariableSource is created using a fresh Language, matching the behavior
// of constructing canonical normalization with no shared context.
func NewCanonicalNormalizer(source *VariableSource) (*Normalizer, error) {
	if source == nil {
		source = NewVariableSource(term.NewLanguage())
	}
	return &Normalizer{mode: Canonical, source: source, mapping: map[*term.Variable]*term.Variable{}}, nil
}

// Normalize rewrites obj's variables according to the Normalizer's mode.
// Calling Normalize repeatedly on the same Normalizer reuses its variable
// mapping, so passing several related terms through one Normalizer keeps
// shared variables shared across all of them.
func (n *Normalizer) Normalize(obj term.Term) term.Term {
	switch t := obj.(type) {
	case *term.Variable:
		return n.rename(t)
	case *term.Expression:
		children := t.Children()
		rewritten := make([]term.Term, len(children))
		for i, c := range children {
			rewritten[i] = n.Normalize(c)
		}
		newExpr, err := term.NewExpression(rewritten...)
		if err != nil {
			panic(err)
		}
		return newExpr
	default:
		return obj
	}
}

// MappingFor reports the Variable v was renamed to by a prior Normalize
// call on this Normalizer, if v has been encountered yet.
func (n *Normalizer) MappingFor(v *term.Variable) (*term.Variable, bool) {
	renamed, ok := n.mapping[v]
	return renamed, ok
}

func (n *Normalizer) rename(v *term.Variable) *term.Variable {
	if existing, ok := n.mapping[v]; ok {
		return existing
	}

	var fresh *term.Variable
	switch n.mode {
	case Fresh:
		var err error
		fresh, err = term.NewVariable(n.language, v.Name())
		if err != nil {
			panic(err)
		}
	case Canonical:
		fresh = n.source.Get(len(n.order))
	default:
		panic(fmt.Sprintf("normalize: unknown mode %d", n.mode))
	}

	n.mapping[v] = fresh
	n.order = append(n.order, v)
	return fresh
}
