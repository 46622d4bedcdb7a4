// Package storage implements the Storage contract (§4.5): a set of terms
// supporting addition and unifiable search, with an optional transactional
// boundary, backed by an in-memory scan, an abstruse-index-backed
// deduplicating store, or a durable bolt-backed store.
package storage

import (
	"github.com/abstrusekb/abstruse/pkg/abserrors"
	"github.com/abstrusekb/abstruse/pkg/term"
	"github.com/abstrusekb/abstruse/pkg/unify"
)

// Candidate is one result of SearchUnifiable: a stored term together with
// the substitution that unifies it with the query.
type Candidate struct {
	Term         term.Term
	Substitution *unify.Substitution
}

// Storage is the common contract every backend satisfies.
type Storage interface {
	// Add inserts terms. Implementations that deduplicate (IndexedStorage)
	// silently drop terms already present up to canonical renaming.
	Add(terms ...term.Term) error

	// SearchUnifiable returns every stored term unifiable with query,
	// extending previous (or starting fresh if previous is nil).
	SearchUnifiable(query term.Term, previous *unify.Substitution) ([]Candidate, error)

	// Len reports the number of terms stored. Backends that do not
	// deduplicate (MemoryStorage) count repeated terms once per Add.
	Len() int

	// SupportsTransactions reports whether Transaction is usable.
	SupportsTransactions() bool

	// Transaction opens a transactional view of the store. Backends that
	// return false from SupportsTransactions must return
	// ErrTransactionsUnsupported here.
	Transaction() (Transaction, error)
}

// Transaction is a Storage-scoped unit of work that must be explicitly
// committed or rolled back.
type Transaction interface {
	Storage
	Commit() error
	Rollback() error
}

// ErrTransactionsUnsupported is returned by Transaction on backends with
// SupportsTransactions() == false.
var ErrTransactionsUnsupported = &abserrors.StorageError{Op: "transaction", Err: errTransactionsUnsupported{}}

type errTransactionsUnsupported struct{}

func (errTransactionsUnsupported) Error() string { return "storage backend does not support transactions" }
