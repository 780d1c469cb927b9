// Package memory provides an in-memory docstore backend.
//
// Transactions are serialized under a single mutex, which gives the
// serializable isolation the username registry relies on. The backend also
// supports per-collection failure injection so tests can exercise the
// session layer's partial-degradation paths deterministically.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/blacklink/accounts/docstore"
)

// compile-time interface check
var _ docstore.Store = (*Store)(nil)

// Store implements docstore.Store with plain maps.
type Store struct {
	mu sync.Mutex

	// collections -> document id -> fields
	collections map[string]map[string]map[string]any

	// injected failures
	readFailures map[string]error
	txFailure    error

	closed bool
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		collections:  make(map[string]map[string]map[string]any),
		readFailures: make(map[string]error),
	}
}

// FailReads makes every Get/Query on the collection return err until
// cleared with a nil err. Writes are unaffected.
func (s *Store) FailReads(collection string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		delete(s.readFailures, collection)
		return
	}
	s.readFailures[collection] = err
}

// FailTransactions makes every RunTransaction call fail with err before
// invoking its function, until cleared with a nil err.
func (s *Store) FailTransactions(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txFailure = err
}

// Len reports the number of documents in a collection.
func (s *Store) Len(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.collections[collection])
}

func (s *Store) Get(_ context.Context, collection, id string) (docstore.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return docstore.Document{}, docstore.ErrClosed
	}
	if err := s.readFailures[collection]; err != nil {
		return docstore.Document{}, err
	}

	return s.getLocked(collection, id)
}

func (s *Store) getLocked(collection, id string) (docstore.Document, error) {
	fields, ok := s.collections[collection][id]
	if !ok {
		return docstore.Document{}, docstore.ErrNotFound
	}
	return docstore.Document{ID: id, Fields: maps.Clone(fields)}, nil
}

func (s *Store) Set(_ context.Context, collection, id string, fields map[string]any, merge bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return docstore.ErrClosed
	}

	s.setLocked(collection, id, fields, merge)
	return nil
}

func (s *Store) setLocked(collection, id string, fields map[string]any, merge bool) {
	col, ok := s.collections[collection]
	if !ok {
		col = make(map[string]map[string]any)
		s.collections[collection] = col
	}

	existing, ok := col[id]
	if !ok || !merge {
		col[id] = maps.Clone(fields)
		return
	}
	for k, v := range fields {
		existing[k] = v
	}
}

func (s *Store) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return docstore.ErrClosed
	}

	delete(s.collections[collection], id)
	return nil
}

func (s *Store) Query(_ context.Context, collection string, filters []docstore.Filter, limit int) ([]docstore.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, docstore.ErrClosed
	}
	if err := s.readFailures[collection]; err != nil {
		return nil, err
	}

	var out []docstore.Document
	for docID, fields := range s.collections[collection] {
		doc := docstore.Document{ID: docID, Fields: fields}
		if !matchesAll(doc, filters) {
			continue
		}
		out = append(out, docstore.Document{ID: docID, Fields: maps.Clone(fields)})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func matchesAll(doc docstore.Document, filters []docstore.Filter) bool {
	for _, f := range filters {
		switch f.Op {
		case docstore.OpEqual:
			if doc.Fields[f.Field] != f.Value {
				return false
			}
		case docstore.OpArrayContains:
			found := false
			for _, v := range doc.Strings(f.Field) {
				if v == f.Value {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// RunTransaction executes fn under the store lock. Reads observe the
// committed state; writes buffer and apply only when fn returns nil.
func (s *Store) RunTransaction(ctx context.Context, fn func(tx docstore.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return docstore.ErrClosed
	}
	if s.txFailure != nil {
		return s.txFailure
	}

	tx := &memTx{store: s}
	if err := fn(tx); err != nil {
		return err
	}

	for _, w := range tx.writes {
		if w.delete {
			delete(s.collections[w.collection], w.id)
			continue
		}
		s.setLocked(w.collection, w.id, w.fields, w.merge)
	}
	return nil
}

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return docstore.ErrClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type bufferedWrite struct {
	collection string
	id         string
	fields     map[string]any
	merge      bool
	delete     bool
}

// memTx buffers transaction writes. The store lock is held for the whole
// transaction, so reads need no extra synchronization.
type memTx struct {
	store  *Store
	writes []bufferedWrite
}

func (t *memTx) Get(_ context.Context, collection, id string) (docstore.Document, error) {
	if err := t.store.readFailures[collection]; err != nil {
		return docstore.Document{}, err
	}
	return t.store.getLocked(collection, id)
}

func (t *memTx) Set(_ context.Context, collection, id string, fields map[string]any, merge bool) {
	t.writes = append(t.writes, bufferedWrite{
		collection: collection,
		id:         id,
		fields:     maps.Clone(fields),
		merge:      merge,
	})
}

func (t *memTx) Delete(_ context.Context, collection, id string) {
	t.writes = append(t.writes, bufferedWrite{collection: collection, id: id, delete: true})
}
