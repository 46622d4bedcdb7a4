package storage

import (
	"sync"

	"github.com/abstrusekb/abstruse/pkg/term"
	"github.com/abstrusekb/abstruse/pkg/unify"
)

// MemoryStorage is the minimal Storage implementation: a set of terms held
// in a slice, searched by linear scan. It does not deduplicate and does
// not support transactions.
type MemoryStorage struct {
	mu    sync.Mutex
	terms []term.Term
}

// NewMemoryStorage constructs an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Add(terms ...term.Term) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terms = append(s.terms, terms...)
	return nil
}

func (s *MemoryStorage) SearchUnifiable(query term.Term, previous *unify.Substitution) ([]Candidate, error) {
	s.mu.Lock()
	scan := make([]term.Term, len(s.terms))
	copy(scan, s.terms)
	s.mu.Unlock()

	var out []Candidate
	for _, t := range scan {
		if subst, ok := unify.Unify(query, t, previous); ok {
			out = append(out, Candidate{Term: t, Substitution: subst})
		}
	}
	return out, nil
}

func (s *MemoryStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.terms)
}

func (s *MemoryStorage) SupportsTransactions() bool { return false }

func (s *MemoryStorage) Transaction() (Transaction, error) {
	return nil, ErrTransactionsUnsupported
}
