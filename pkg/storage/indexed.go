package storage

import (
	"sync"

	"github.com/abstrusekb/abstruse/pkg/index"
	"github.com/abstrusekb/abstruse/pkg/normalize"
	"github.com/abstrusekb/abstruse/pkg/term"
	"github.com/abstrusekb/abstruse/pkg/unify"
)

// IndexedStorage backs Storage with the abstruse index (pkg/index),
// renormalizing every inserted term into a shared canonical variable space
// before insertion so that isomorphic open formulas (equal up to variable
// renaming) collapse to one stored entry. Canonical ordinals are assigned
// per term, starting fresh at 0 for each Add (via a fresh Normalizer per
// term sharing one VariableSource), so two isomorphic terms always produce
// the same canonical form regardless of what was normalized before them
// (§8 "Deduplication") — reusing a single long-lived Normalizer across
// terms would instead advance the ordinal counter across calls and make
// isomorphic terms normalize to different variables.
type IndexedStorage struct {
	mu     sync.Mutex
	source *normalize.VariableSource
	idx    *index.AbstruseIndex[term.Term]
	seen   map[uint64][]term.Term
	count  int
}

// NewIndexedStorage constructs an empty IndexedStorage. canonicalSource may
// be nil, in which case a private VariableSource is created.
func NewIndexedStorage(canonicalSource *normalize.VariableSource) (*IndexedStorage, error) {
	if canonicalSource == nil {
		canonicalSource = normalize.NewVariableSource(term.NewLanguage())
	}
	return &IndexedStorage{
		source: canonicalSource,
		idx:    index.NewAbstruseIndex[term.Term](),
		seen:   map[uint64][]term.Term{},
	}, nil
}

func (s *IndexedStorage) Add(terms ...term.Term) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range terms {
		normalizer, err := normalize.NewCanonicalNormalizer(s.source)
		if err != nil {
			return err
		}
		canon := normalizer.Normalize(t)
		if s.containsLocked(canon) {
			continue
		}
		s.idx.Add(canon, canon)
		s.recordLocked(canon)
		s.count++
	}
	return nil
}

func (s *IndexedStorage) containsLocked(canon term.Term) bool {
	for _, t := range s.seen[canon.Hash()] {
		if t.Equal(canon) {
			return true
		}
	}
	return false
}

func (s *IndexedStorage) recordLocked(canon term.Term) {
	h := canon.Hash()
	s.seen[h] = append(s.seen[h], canon)
}

func (s *IndexedStorage) SearchUnifiable(query term.Term, previous *unify.Substitution) ([]Candidate, error) {
	s.mu.Lock()
	candidates := s.idx.Retrieve(query, true)
	s.mu.Unlock()

	var out []Candidate
	for _, c := range candidates {
		if subst, ok := unify.Unify(query, c, previous); ok {
			out = append(out, Candidate{Term: c, Substitution: subst})
		}
	}
	return out, nil
}

func (s *IndexedStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *IndexedStorage) SupportsTransactions() bool { return false }

func (s *IndexedStorage) Transaction() (Transaction, error) {
	return nil, ErrTransactionsUnsupported
}
