// Package index implements the abstruse discrimination index: a nested,
// per-depth trie of structural descriptors that narrows a formula lookup
// down to a small candidate set before real unification is attempted.
package index

import "github.com/abstrusekb/abstruse/pkg/term"

// KeyElem describes one sibling position's shape at a given trie level:
// an internal node of known arity (descend further), a wildcard standing
// for any variable (matches anything stored there and vice versa), or a
// leaf term compared by structural identity.
type KeyElem struct {
	wildcard bool
	arity    int
	hasLeaf  bool
	leaf     term.Term
}

func wildcardElem() KeyElem { return KeyElem{wildcard: true} }
func arityElem(n int) KeyElem { return KeyElem{arity: n} }
func leafElem(t term.Term) KeyElem { return KeyElem{hasLeaf: true, leaf: t} }

func (k KeyElem) equal(o KeyElem) bool {
	if k.wildcard || o.wildcard {
		return k.wildcard == o.wildcard
	}
	if k.hasLeaf != o.hasLeaf {
		return false
	}
	if k.hasLeaf {
		return k.leaf.Equal(o.leaf)
	}
	return k.arity == o.arity
}

// descriptorOf classifies t for the purposes of a single trie level. It
// goes through Term.IsVariable rather than a type assertion on
// *term.Variable so that synthetic wildcard placeholders (see
// wildcardPlaceholder in abstruse.go) are classified the same way a real
// stored/queried Variable is.
func descriptorOf(t term.Term) KeyElem {
	if t.IsVariable() {
		return wildcardElem()
	}
	if e, ok := t.(*term.Expression); ok {
		return arityElem(e.Arity())
	}
	return leafElem(t)
}

// buildKeyElems computes the per-position descriptors for a set of
// sibling terms at one trie level, along with the flattened children of
// every Expression among them (the "open" terms that continue to the next
// level) and whether any position is an Expression at all.
func buildKeyElems(openTerms []term.Term) (key []KeyElem, nextOpen []term.Term, anyExpression bool) {
	key = make([]KeyElem, len(openTerms))
	for i, t := range openTerms {
		key[i] = descriptorOf(t)
		if e, ok := t.(*term.Expression); ok {
			nextOpen = append(nextOpen, e.Children()...)
			anyExpression = true
		}
	}
	return key, nextOpen, anyExpression
}
