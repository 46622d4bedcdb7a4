package term

import (
	"fmt"
	"sync"

	"github.com/mitchellh/hashstructure"

	"github.com/abstrusekb/abstruse/pkg/abserrors"
)

// Term is the common interface implemented by every node of the term
// algebra: Constant, Variable, Expression, and Wrapper.
type Term interface {
	fmt.Stringer

	// Equal is structural equality: same kind, same identifier (for
	// symbols), same wrapped value (for wrappers), same arity and
	// pointwise-equal children (for expressions).
	Equal(other Term) bool

	// Hash is a structural hash consistent with Equal: equal terms hash
	// equal. It is NOT required that unequal terms hash unequal.
	Hash() uint64

	// Contains reports whether other occurs anywhere in the receiver's
	// structure, including the receiver itself.
	Contains(other Term) bool

	// IsVariable reports whether this term is a Variable. Exposed on the
	// interface because unification and normalization dispatch on it
	// constantly and a type switch on every Term implementation would be
	// both slower and more error-prone to keep in sync.
	IsVariable() bool
}

// symbolCore holds the state shared by Constant and Variable: an identity
// drawn from a Language, plus an optional display name.
type symbolCore struct {
	id   Identifier
	name string
}

func newSymbolCore(language *Language, name string) symbolCore {
	return symbolCore{id: language.GetNext(), name: name}
}

func (s symbolCore) ID() Identifier {
	return s.id
}

func (s symbolCore) Name() string {
	return s.name
}

func (s symbolCore) Hash() uint64 {
	h, err := hashstructure.Hash(struct {
		Lang uint64
		Seq  uint64
	}{
		Lang: hashLanguageID(s.id.Language),
		Seq:  s.id.Sequential,
	}, nil)
	if err != nil {
		// hashstructure only fails on unsupported kinds (chan, func); the
		// struct above is plain uint64s, so this is unreachable.
		panic(err)
	}
	return h
}

func hashLanguageID(l *Language) uint64 {
	var acc uint64
	for _, b := range l.id {
		acc = acc*31 + uint64(b)
	}
	return acc
}

func (s symbolCore) Contains(self, other Term) bool {
	return self.Equal(other)
}

// Constant is a Symbol that denotes an individual, fixed value of the
// domain (as opposed to a Variable, which ranges over it).
type Constant struct {
	symbolCore
}

// NewConstant mints a fresh Constant in the given Language. name must be
// non-empty.
func NewConstant(language *Language, name string) (*Constant, error) {
	if name == "" {
		return nil, &abserrors.MalformedTermError{Reason: "constant name must be non-empty"}
	}
	return &Constant{symbolCore: newSymbolCore(language, name)}, nil
}

func (c *Constant) Equal(other Term) bool {
	o, ok := other.(*Constant)
	if !ok {
		return false
	}
	return c.id.Equal(o.id)
}

func (c *Constant) Contains(other Term) bool {
	return c.symbolCore.Contains(c, other)
}

func (c *Constant) IsVariable() bool { return false }

func (c *Constant) String() string {
	if c.name != "" {
		return fmt.Sprintf("%s%s", c.name, c.id)
	}
	return fmt.Sprintf("o%s", c.id)
}

// Variable is a Symbol that ranges over the domain; it is the unit unified
// by the substitution machinery in pkg/unify.
type Variable struct {
	symbolCore
}

// NewVariable mints a fresh Variable in the given Language. name must be
// non-empty.
func NewVariable(language *Language, name string) (*Variable, error) {
	if name == "" {
		return nil, &abserrors.MalformedTermError{Reason: "variable name must be non-empty"}
	}
	return &Variable{symbolCore: newSymbolCore(language, name)}, nil
}

func (v *Variable) Equal(other Term) bool {
	o, ok := other.(*Variable)
	if !ok {
		return false
	}
	return v.id.Equal(o.id)
}

func (v *Variable) Contains(other Term) bool {
	return v.symbolCore.Contains(v, other)
}

func (v *Variable) IsVariable() bool { return true }

func (v *Variable) String() string {
	if v.name != "" {
		return fmt.Sprintf("?%s%s", v.name, v.id)
	}
	return fmt.Sprintf("?v%s", v.id)
}

// Wrapper embeds an opaque, hashable host value into the term algebra so it
// can appear as a leaf of an Expression. Equality holds both between two
// Wrappers of equal values, and between a Wrapper and the raw value it
// wraps (WrapperEqualsValue), matching the dual equality semantics of the
// original LogicWrapper.
type Wrapper struct {
	value any
}

// NewWrapper wraps a value. The value must be comparable with ==, since
// Equal and Hash rely on Go's native comparison and hashstructure hashing.
func NewWrapper(value any) *Wrapper {
	return &Wrapper{value: value}
}

// Value returns the wrapped host value.
func (w *Wrapper) Value() any {
	return w.value
}

func (w *Wrapper) Equal(other Term) bool {
	o, ok := other.(*Wrapper)
	if !ok {
		return false
	}
	return w.value == o.value
}

// WrapperEqualsValue reports whether w wraps exactly the given raw value.
// This is the asymmetric half of the original dual equality semantics:
// term.Term.Equal only ever compares two Terms, so comparing a Wrapper to
// a raw host value is a separate helper rather than an Equal overload.
func WrapperEqualsValue(w *Wrapper, value any) bool {
	return w.value == value
}

func (w *Wrapper) Hash() uint64 {
	h, err := hashstructure.Hash(w.value, nil)
	if err != nil {
		h, _ = hashstructure.Hash(fmt.Sprintf("%v", w.value), nil)
	}
	return h
}

func (w *Wrapper) Contains(other Term) bool {
	return w.Equal(other)
}

func (w *Wrapper) IsVariable() bool { return false }

func (w *Wrapper) String() string {
	return fmt.Sprintf("#%v", w.value)
}

// Expression is a non-leaf term: an ordered, non-empty sequence of
// children. The first child conventionally names the functor/predicate,
// the rest are its arguments, but the algebra itself does not distinguish
// them — arity and positional equality is all that structural equality
// checks.
type Expression struct {
	children []Term

	hashOnce sync.Once
	hashVal  uint64
}

// NewExpression builds an Expression from children. children must be
// non-empty; constructing an empty Expression is a malformed term.
func NewExpression(children ...Term) (*Expression, error) {
	if len(children) == 0 {
		return nil, &abserrors.MalformedTermError{Reason: "expression must have at least one child"}
	}
	cp := make([]Term, len(children))
	copy(cp, children)
	return &Expression{children: cp}, nil
}

// Children returns the expression's children. The returned slice is a
// fresh copy; callers may not mutate an Expression through it.
func (e *Expression) Children() []Term {
	cp := make([]Term, len(e.children))
	copy(cp, e.children)
	return cp
}

// Arity returns the number of children.
func (e *Expression) Arity() int {
	return len(e.children)
}

// Child returns the i-th child (0-indexed).
func (e *Expression) Child(i int) Term {
	return e.children[i]
}

func (e *Expression) Equal(other Term) bool {
	o, ok := other.(*Expression)
	if !ok {
		return false
	}
	if len(e.children) != len(o.children) {
		return false
	}
	for i, c := range e.children {
		if !c.Equal(o.children[i]) {
			return false
		}
	}
	return true
}

func (e *Expression) Hash() uint64 {
	e.hashOnce.Do(func() {
		childHashes := make([]uint64, len(e.children))
		for i, c := range e.children {
			childHashes[i] = c.Hash()
		}
		h, err := hashstructure.Hash(childHashes, nil)
		if err != nil {
			panic(err)
		}
		e.hashVal = h
	})
	return e.hashVal
}

func (e *Expression) Contains(other Term) bool {
	if e.Equal(other) {
		return true
	}
	for _, c := range e.children {
		if c.Contains(other) {
			return true
		}
	}
	return false
}

func (e *Expression) IsVariable() bool { return false }

func (e *Expression) String() string {
	s := "("
	for i, c := range e.children {
		if i > 0 {
			s += " "
		}
		s += c.String()
	}
	return s + ")"
}
