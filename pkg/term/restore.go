package term

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// NewLanguageWithID constructs a Language tagged with a specific opaque id,
// rather than minting a fresh one. This exists for storage backends that
// must reconstruct a Language from a persisted id so that rehydrated
// symbols compare equal to the ones that were serialized.
func NewLanguageWithID(id uuid.UUID) *Language {
	return &Language{id: id}
}

// restoreAtLeast advances the allocator counter to at least seq, so that
// subsequent GetNext calls never collide with a restored identifier.
func (l *Language) restoreAtLeast(seq uint64) {
	for {
		cur := atomic.LoadUint64(&l.next)
		if seq <= cur {
			return
		}
		if atomic.CompareAndSwapUint64(&l.next, cur, seq) {
			return
		}
	}
}

// RestoreConstant reconstructs a Constant with a specific identifier,
// rather than allocating a new one. Used when decoding a persisted term.
func RestoreConstant(language *Language, seq uint64, name string) *Constant {
	language.restoreAtLeast(seq)
	return &Constant{symbolCore{id: Identifier{Language: language, Sequential: seq}, name: name}}
}

// RestoreVariable reconstructs a Variable with a specific identifier,
// rather than allocating a new one. Used when decoding a persisted term.
func RestoreVariable(language *Language, seq uint64, name string) *Variable {
	language.restoreAtLeast(seq)
	return &Variable{symbolCore{id: Identifier{Language: language, Sequential: seq}, name: name}}
}
