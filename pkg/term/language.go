// Package term implements the first-order-logic term algebra: languages,
// symbols, and expressions, with structural equality and hashing.
package term

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Language allocates sequential ids for the symbols it mints, tagged by an
// opaque 128-bit id so that two Languages never collide even if their
// sequence counters happen to line up. Equality between Languages is by
// opaque id alone, which holds even after Seal.
type Language struct {
	id   uuid.UUID
	next uint64 // accessed only via atomic ops
	mu   sync.Mutex
	sealed bool
}

// NewLanguage creates a fresh Language with its own opaque id.
func NewLanguage() *Language {
	return &Language{id: uuid.New()}
}

// ID returns the Language's opaque 128-bit id.
func (l *Language) ID() uuid.UUID {
	return l.id
}

// Equal compares two Languages by opaque id only.
func (l *Language) Equal(other *Language) bool {
	if l == nil || other == nil {
		return l == other
	}
	return l.id == other.id
}

// Seal freezes the Language against further symbol allocation. A sealed
// Language still compares equal to itself by id; GetNext on a sealed
// Language panics, matching the invariant that sealing is irreversible and
// a programming error to violate.
func (l *Language) Seal() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sealed = true
}

// Sealed reports whether Seal has been called.
func (l *Language) Sealed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sealed
}

// GetNext allocates the next sequential id in this Language. It is safe for
// concurrent use.
func (l *Language) GetNext() Identifier {
	l.mu.Lock()
	if l.sealed {
		l.mu.Unlock()
		panic(fmt.Sprintf("term: GetNext called on sealed language %s", l.id))
	}
	l.mu.Unlock()

	seq := atomic.AddUint64(&l.next, 1)
	return Identifier{Language: l, Sequential: seq}
}

func (l *Language) String() string {
	return fmt.Sprintf("Language(%s)", l.id)
}

// Identifier uniquely names a Symbol within its Language: the pair of the
// Language's opaque id and a sequential counter value.
type Identifier struct {
	Language   *Language
	Sequential uint64
}

// Equal compares two Identifiers by Language identity and sequence number.
func (id Identifier) Equal(other Identifier) bool {
	return id.Language.Equal(other.Language) && id.Sequential == other.Sequential
}

func (id Identifier) String() string {
	return fmt.Sprintf("%s#%d", id.Language.id, id.Sequential)
}
