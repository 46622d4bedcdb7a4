package index

import (
	"fmt"

	"github.com/abstrusekb/abstruse/pkg/term"
)

// AbstruseIndex is a nested per-depth discrimination index: each level
// holds a terminal trie for objects fully distinguished at this depth, and
// a router trie that sends objects whose shape still has open Expression
// positions one level deeper. Add and Retrieve walk this structure in
// lock-step, level by level, exactly mirroring how the object's own
// subterms branch out.
//
// Retrieve is a sound over-approximation: a candidate it returns is not
// guaranteed to actually unify with the query, only to be structurally
// compatible at the depth the index inspected. The caller always re-checks
// every candidate with real unification. Retrieve implements §4.4's key
// projection: at each level it reads back the stored key actually matched
// (TrieIndex.RetrieveWithKeys) and rebuilds the next level's query from
// that, not from the query's own naive structure, so a query-side compound
// crossing a stored wildcard doesn't leak unrelated positions into the next
// level, and a query-side wildcard crossing a stored compound is padded
// with enough WILDCARD placeholders to keep exploring every stored child
// (see projectNextOpen).
type AbstruseIndex[T any] struct {
	level    int
	terminal *TrieIndex[T]
	router   *TrieIndex[*AbstruseIndex[T]]
}

// NewAbstruseIndex constructs an empty top-level index.
func NewAbstruseIndex[T any]() *AbstruseIndex[T] {
	return newAbstruseIndexLevel[T](0)
}

func newAbstruseIndexLevel[T any](level int) *AbstruseIndex[T] {
	return &AbstruseIndex[T]{
		level:    level,
		terminal: NewTrieIndex[T](),
		router:   NewTrieIndex[*AbstruseIndex[T]](),
	}
}

// Add inserts payload keyed by formula's structure.
func (idx *AbstruseIndex[T]) Add(formula term.Term, payload T) {
	idx.add([]term.Term{formula}, payload)
}

func (idx *AbstruseIndex[T]) add(openTerms []term.Term, payload T) {
	key, nextOpen, anyExpression := buildKeyElems(openTerms)
	if !anyExpression {
		idx.terminal.Add(key, payload)
		return
	}
	child := idx.getOrCreateChild(key)
	child.add(nextOpen, payload)
}

func (idx *AbstruseIndex[T]) getOrCreateChild(key []KeyElem) *AbstruseIndex[T] {
	existing := idx.router.Retrieve(key, false)
	if len(existing) > 1 {
		panic(fmt.Sprintf("abstruse index: more than one exact child at level %d for the same key", idx.level))
	}
	if len(existing) == 1 {
		return existing[0]
	}
	child := newAbstruseIndexLevel[T](idx.level + 1)
	idx.router.Add(key, child)
	return child
}

// Retrieve returns every payload whose stored formula is structurally
// compatible with query (considering wildcards on either side), per the
// rules documented on AbstruseIndex.
func (idx *AbstruseIndex[T]) Retrieve(query term.Term, useWildcard bool) []T {
	return idx.retrieve([]term.Term{query}, useWildcard)
}

func (idx *AbstruseIndex[T]) retrieve(queryOpen []term.Term, useWildcard bool) []T {
	key, _, anyExpression := buildKeyElems(queryOpen)

	out := idx.terminal.Retrieve(key, useWildcard)

	matches := idx.router.RetrieveWithKeys(key, useWildcard)
	if !anyExpression {
		for _, m := range matches {
			out = append(out, m.Value.collectAll()...)
		}
		return out
	}

	for _, m := range matches {
		nextOpen := projectNextOpen(queryOpen, key, m.MatchedKey)
		out = append(out, m.Value.retrieve(nextOpen, useWildcard)...)
	}
	return out
}

// wildcardPlaceholder stands in for a query position projectNextOpen had to
// synthesize: a stored Expression position matched against a query
// WILDCARD, so the query side had no real subterm there. It satisfies
// term.Term only well enough for descriptorOf to classify it as a
// WILDCARD (via IsVariable); it is never compared with Equal or Hash, since
// a synthesized position never reaches terminal.Retrieve's exact-leaf path.
type wildcardPlaceholder struct{}

func (wildcardPlaceholder) Equal(other term.Term) bool { return other.IsVariable() }
func (wildcardPlaceholder) Hash() uint64               { return 0 }
func (wildcardPlaceholder) Contains(term.Term) bool    { return false }
func (wildcardPlaceholder) IsVariable() bool           { return true }
func (wildcardPlaceholder) String() string             { return "_" }

var wildcardTerm term.Term = wildcardPlaceholder{}

// projectNextOpen rebuilds the next trie level's query-side open terms from
// storedKey — the key actually matched along this path (TrieIndex's
// matched_key) — rather than from queryOpen's own shape, per §4.4's Key
// projection algorithm. Per position i:
//
//   - storedKey[i] is a WILDCARD: the stored side was a Variable there, so
//     nothing recurses into a next level for this position regardless of
//     what query had — any compound query had here is consumed and
//     dropped, never carried forward.
//   - storedKey[i] is a leaf: neither side has further structure.
//   - storedKey[i] is an arity-k Expression: the stored side opens k slots
//     at the next level. If query also had a same-arity Expression there
//     (the ordinary case), its actual children are carried forward
//     unchanged. If query had a WILDCARD there instead (a query variable
//     matched this whole stored compound), k WILDCARD placeholders are
//     inserted so the next level still explores every one of the stored
//     compound's k children as "matches anything".
func projectNextOpen(queryOpen []term.Term, queryKey, storedKey []KeyElem) []term.Term {
	var next []term.Term
	for i, sk := range storedKey {
		if sk.wildcard || sk.hasLeaf {
			continue
		}
		qk := queryKey[i]
		if !qk.wildcard && !qk.hasLeaf && qk.arity == sk.arity {
			next = append(next, queryOpen[i].(*term.Expression).Children()...)
			continue
		}
		for j := 0; j < sk.arity; j++ {
			next = append(next, wildcardTerm)
		}
	}
	return next
}

// collectAll gathers every payload stored anywhere below this node.
func (idx *AbstruseIndex[T]) collectAll() []T {
	out := idx.terminal.AllObjects()
	for _, child := range idx.router.AllObjects() {
		out = append(out, child.collectAll()...)
	}
	return out
}

// Len reports the total number of payloads stored in the index.
func (idx *AbstruseIndex[T]) Len() int {
	n := idx.terminal.Len()
	for _, child := range idx.router.AllObjects() {
		n += child.Len()
	}
	return n
}
