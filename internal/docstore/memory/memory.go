// Package memory provides an in-process docstore.Store used as the default
// backend and by tests. Atomic runs are serialized by a single mutex and
// buffer their writes in an overlay that is only merged on success.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/matten-rd/finaid/internal/docstore"
)

type Store struct {
	mu   sync.Mutex
	docs map[string]map[string][]byte // collection -> id -> JSON body
}

func New() *Store {
	return &Store{docs: make(map[string]map[string][]byte)}
}

func (s *Store) RunAtomic(ctx context.Context, fn func(tx docstore.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := &memTx{
		store:   s,
		staged:  make(map[string]map[string][]byte),
		deleted: make(map[string]map[string]bool),
	}
	if err := fn(t); err != nil {
		return err
	}
	t.commit()
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	body, ok := s.docs[collection][id]
	s.mu.Unlock()

	if !ok {
		return docstore.ErrNotFound
	}
	return json.Unmarshal(body, out)
}

func (s *Store) List(ctx context.Context, collection string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	bodies := make([]json.RawMessage, 0, len(s.docs[collection]))
	for _, body := range s.docs[collection] {
		bodies = append(bodies, json.RawMessage(body))
	}
	s.mu.Unlock()

	arr, err := json.Marshal(bodies)
	if err != nil {
		return fmt.Errorf("encode collection %s: %w", collection, err)
	}
	return json.Unmarshal(arr, out)
}

func (s *Store) Close() error { return nil }

// memTx stages writes so an aborted callback leaves the store untouched.
type memTx struct {
	store   *Store
	staged  map[string]map[string][]byte
	deleted map[string]map[string]bool
}

func (t *memTx) read(collection, id string) ([]byte, bool) {
	if t.deleted[collection][id] {
		return nil, false
	}
	if body, ok := t.staged[collection][id]; ok {
		return body, true
	}
	body, ok := t.store.docs[collection][id]
	return body, ok
}

func (t *memTx) write(collection, id string, body []byte) {
	if t.staged[collection] == nil {
		t.staged[collection] = make(map[string][]byte)
	}
	t.staged[collection][id] = body
	if t.deleted[collection] != nil {
		delete(t.deleted[collection], id)
	}
}

func (t *memTx) Get(collection, id string, out any) error {
	body, ok := t.read(collection, id)
	if !ok {
		return docstore.ErrNotFound
	}
	return json.Unmarshal(body, out)
}

func (t *memTx) Set(collection, id string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode document %s/%s: %w", collection, id, err)
	}
	t.write(collection, id, body)
	return nil
}

func (t *memTx) Increment(collection, id, field string, delta int64) error {
	body, _ := t.read(collection, id)
	next, err := docstore.ApplyIncrement(body, field, delta)
	if err != nil {
		return fmt.Errorf("increment %s/%s: %w", collection, id, err)
	}
	t.write(collection, id, next)
	return nil
}

func (t *memTx) Delete(collection, id string) error {
	if t.deleted[collection] == nil {
		t.deleted[collection] = make(map[string]bool)
	}
	t.deleted[collection][id] = true
	if t.staged[collection] != nil {
		delete(t.staged[collection], id)
	}
	return nil
}

func (t *memTx) commit() {
	for collection, ids := range t.deleted {
		for id, del := range ids {
			if del {
				delete(t.store.docs[collection], id)
			}
		}
	}
	for collection, docs := range t.staged {
		if t.store.docs[collection] == nil {
			t.store.docs[collection] = make(map[string][]byte)
		}
		for id, body := range docs {
			t.store.docs[collection][id] = body
		}
	}
}
