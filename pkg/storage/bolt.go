package storage

import (
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	bolt "github.com/boltdb/bolt"
	"github.com/hashicorp/go-hclog"

	"github.com/abstrusekb/abstruse/pkg/abserrors"
	"github.com/abstrusekb/abstruse/pkg/index"
	"github.com/abstrusekb/abstruse/pkg/normalize"
	"github.com/abstrusekb/abstruse/pkg/term"
	"github.com/abstrusekb/abstruse/pkg/unify"
)

// Bucket names implementing the five logical relations of the persisted
// state layout (§6): terms live in object_to_data; the remaining four
// record the abstruse key path each term was filed under, so the schema
// round-trips even though BoltStorage rebuilds its runtime search index by
// replaying object_to_data rather than walking these buckets at query
// time (see DESIGN.md for the rationale).
var (
	bucketObjects      = []byte("object_to_data")
	bucketAbstruseObj  = []byte("abstruse_to_object")
	bucketAbstruseSub  = []byte("abstruse_to_subtrie")
	bucketTrieAbstruse = []byte("trie_to_abstruse")
	bucketTrieEdges    = []byte("trie_to_key_and_subtrie")
	bucketMeta         = []byte("meta")
)

var metaNextObjectID = []byte("next_object_id")

// BoltStorage is a durable Storage backend over github.com/boltdb/bolt. It
// keeps an in-memory abstruse index as its live search structure,
// rehydrated from the persisted object blobs at Open, and mirrors every
// insertion into the five relations of §6 for durability and inspection.
type BoltStorage struct {
	mu     sync.Mutex
	db     *bolt.DB
	logger hclog.Logger
	langs  *languageRegistry
	source *normalize.VariableSource
	idx    *index.AbstruseIndex[term.Term]
	seen   map[uint64][]term.Term
	count  int
}

// OpenBoltStorage opens (creating if necessary) a bolt-backed store at
// path and rehydrates its in-memory search index from whatever terms were
// previously persisted.
func OpenBoltStorage(path string, logger hclog.Logger) (*BoltStorage, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, &abserrors.StorageError{Op: "open bolt db", Err: err}
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketObjects, bucketAbstruseObj, bucketAbstruseSub, bucketTrieAbstruse, bucketTrieEdges, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, &abserrors.StorageError{Op: "initialize bolt buckets", Err: err}
	}

	langs := newLanguageRegistry()

	s := &BoltStorage{
		db:     db,
		logger: logger.Named("bolt-storage"),
		langs:  langs,
		source: normalize.NewVariableSource(term.NewLanguage()),
		idx:    index.NewAbstruseIndex[term.Term](),
		seen:   map[uint64][]term.Term{},
	}

	if err := s.rehydrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *BoltStorage) rehydrate() error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketObjects)
		return b.ForEach(func(_, data []byte) error {
			t, err := decodeTerm(data, s.langs)
			if err != nil {
				return err
			}
			s.idx.Add(t, t)
			s.seen[t.Hash()] = append(s.seen[t.Hash()], t)
			s.count++
			return nil
		})
	})
}

// Close releases the underlying bolt file.
func (s *BoltStorage) Close() error {
	return s.db.Close()
}

func (s *BoltStorage) Add(terms ...term.Term) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		for _, t := range terms {
			normalizer, err := normalize.NewCanonicalNormalizer(s.source)
			if err != nil {
				return err
			}
			canon := normalizer.Normalize(t)
			if s.containsLocked(canon) {
				continue
			}
			if err := s.persistOne(tx, canon); err != nil {
				return err
			}
			s.idx.Add(canon, canon)
			s.seen[canon.Hash()] = append(s.seen[canon.Hash()], canon)
			s.count++
		}
		return nil
	})
}

func (s *BoltStorage) containsLocked(canon term.Term) bool {
	for _, t := range s.seen[canon.Hash()] {
		if t.Equal(canon) {
			return true
		}
	}
	return false
}

func (s *BoltStorage) persistOne(tx *bolt.Tx, canon term.Term) error {
	objects := tx.Bucket(bucketObjects)
	meta := tx.Bucket(bucketMeta)

	id, err := nextID(meta, metaNextObjectID)
	if err != nil {
		return err
	}
	idKey := idBytes(id)

	data, err := encodeTerm(canon)
	if err != nil {
		return err
	}
	if err := objects.Put(idKey, data); err != nil {
		return &abserrors.StorageError{Op: "put object_to_data", Err: err}
	}

	levels := abstruseKeyLevels(canon)
	if len(levels) == 0 {
		return nil
	}

	abstruseObj := tx.Bucket(bucketAbstruseObj)
	abstruseSub := tx.Bucket(bucketAbstruseSub)
	trieAbstruse := tx.Bucket(bucketTrieAbstruse)
	trieEdges := tx.Bucket(bucketTrieEdges)

	pathID := ""
	for _, level := range levels {
		levelToken := strings.Join(level, ",")
		nextPathID := pathID + "/" + levelToken
		abstruseID := []byte("abstruse:" + pathID)
		trieID := []byte("trie:" + pathID)
		subtrieID := []byte("trie:" + nextPathID)

		if err := trieAbstruse.Put(trieID, abstruseID); err != nil {
			return &abserrors.StorageError{Op: "put trie_to_abstruse", Err: err}
		}
		if err := trieEdges.Put(append(trieID, []byte(":"+levelToken)...), subtrieID); err != nil {
			return &abserrors.StorageError{Op: "put trie_to_key_and_subtrie", Err: err}
		}
		if err := abstruseSub.Put(abstruseID, subtrieID); err != nil {
			return &abserrors.StorageError{Op: "put abstruse_to_subtrie", Err: err}
		}
		pathID = nextPathID
	}

	finalAbstruseID := []byte("abstruse:" + pathID)
	if err := abstruseObj.Put(append(finalAbstruseID, idKey...), idKey); err != nil {
		return &abserrors.StorageError{Op: "put abstruse_to_object", Err: err}
	}
	return nil
}

func nextID(meta *bolt.Bucket, key []byte) (uint64, error) {
	var id uint64
	if raw := meta.Get(key); raw != nil {
		id = binary.BigEndian.Uint64(raw) + 1
	}
	buf := idBytes(id)
	if err := meta.Put(key, buf); err != nil {
		return 0, &abserrors.StorageError{Op: "advance object id counter", Err: err}
	}
	return id, nil
}

func idBytes(id uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, id)
	return buf
}

// abstruseKeyLevels computes the textual, per-depth abstruse key of t: an
// integer arity, the "*" wildcard sentinel, or a "#<hash>" leaf token per
// position, matching the key_element convention of §6.
func abstruseKeyLevels(t term.Term) [][]string {
	var levels [][]string
	open := []term.Term{t}
	for len(open) > 0 {
		level := make([]string, len(open))
		var next []term.Term
		anyExpr := false
		for i, o := range open {
			switch v := o.(type) {
			case *term.Variable:
				level[i] = "*"
			case *term.Expression:
				level[i] = fmt.Sprintf("%d", v.Arity())
				next = append(next, v.Children()...)
				anyExpr = true
			default:
				level[i] = fmt.Sprintf("#%d", o.Hash())
			}
		}
		levels = append(levels, level)
		if !anyExpr {
			break
		}
		open = next
	}
	return levels
}

func (s *BoltStorage) SearchUnifiable(query term.Term, previous *unify.Substitution) ([]Candidate, error) {
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

func (s *BoltStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *BoltStorage) SupportsTransactions() bool { return true }

// Transaction opens a bolt write transaction and returns a view over it
// satisfying the Storage contract plus Commit/Rollback. Reads and writes
// issued through the transaction are isolated per bolt's own MVCC
// semantics; the in-memory index is only mutated (and only durably, via
// the underlying bolt tx) on Commit, and left untouched on Rollback.
func (s *BoltStorage) Transaction() (Transaction, error) {
	s.mu.Lock()
	tx, err := s.db.Begin(true)
	if err != nil {
		s.mu.Unlock()
		return nil, &abserrors.StorageError{Op: "begin bolt transaction", Err: err}
	}
	return &boltTransaction{parent: s, tx: tx, pending: map[uint64][]term.Term{}}, nil
}

// boltTransaction buffers additions against a live bolt write transaction;
// the parent's in-memory index (and its lock) is only updated on Commit.
type boltTransaction struct {
	parent  *BoltStorage
	tx      *bolt.Tx
	pending map[uint64][]term.Term
	done    bool
}

func (t *boltTransaction) Add(terms ...term.Term) error {
	if t.done {
		return &abserrors.StorageError{Op: "add", Err: fmt.Errorf("transaction already committed or rolled back")}
	}
	for _, elem := range terms {
		normalizer, err := normalize.NewCanonicalNormalizer(t.parent.source)
		if err != nil {
			return err
		}
		canon := normalizer.Normalize(elem)
		if t.parent.containsLocked(canon) {
			continue
		}
		if err := t.parent.persistOne(t.tx, canon); err != nil {
			_ = t.Rollback()
			return err
		}
		t.pending[canon.Hash()] = append(t.pending[canon.Hash()], canon)
	}
	return nil
}

// SearchUnifiable and Len read the parent's state directly: the transaction
// already holds parent.mu, which the parent's own methods would lock again.
func (t *boltTransaction) SearchUnifiable(query term.Term, previous *unify.Substitution) ([]Candidate, error) {
	var out []Candidate
	for _, c := range t.parent.idx.Retrieve(query, true) {
		if subst, ok := unify.Unify(query, c, previous); ok {
			out = append(out, Candidate{Term: c, Substitution: subst})
		}
	}
	return out, nil
}

func (t *boltTransaction) Len() int {
	n := t.parent.count
	for _, terms := range t.pending {
		n += len(terms)
	}
	return n
}

func (t *boltTransaction) SupportsTransactions() bool { return true }

func (t *boltTransaction) Transaction() (Transaction, error) {
	return nil, &abserrors.StorageError{Op: "nested transaction", Err: fmt.Errorf("transactions do not nest")}
}

func (t *boltTransaction) Commit() error {
	if t.done {
		return &abserrors.StorageError{Op: "commit", Err: fmt.Errorf("transaction already committed or rolled back")}
	}
	if err := t.tx.Commit(); err != nil {
		t.done = true
		t.parent.mu.Unlock()
		return &abserrors.StorageError{Op: "commit bolt transaction", Err: err}
	}
	for h, terms := range t.pending {
		for _, canon := range terms {
			t.parent.idx.Add(canon, canon)
			t.parent.seen[h] = append(t.parent.seen[h], canon)
			t.parent.count++
		}
	}
	t.done = true
	t.parent.mu.Unlock()
	return nil
}

func (t *boltTransaction) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.parent.mu.Unlock()
	if err := t.tx.Rollback(); err != nil {
		return &abserrors.StorageError{Op: "rollback bolt transaction", Err: err}
	}
	return nil
}
