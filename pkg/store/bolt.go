package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BoltStore is an embedded single-file backend for standalone sites that
// run without a database server. Each collection maps to a bucket; values
// are the JSON encoding of the document.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the database file at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open bolt database: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Get returns the document under id, or ErrNotFound.
func (s *BoltStore) Get(_ context.Context, collection, id string) (Document, error) {
	var doc Document
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return ErrNotFound
		}
		data := b.Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Upsert stores the document under id, creating the bucket on first use.
func (s *BoltStore) Upsert(_ context.Context, collection, id string, doc Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(collection))
		if err != nil {
			return fmt.Errorf("create bucket %s: %w", collection, err)
		}
		return b.Put([]byte(id), data)
	})
}

// Query scans the collection bucket and returns documents matching the
// filter. The predicate runs in-process; bolt stays a plain KV store.
func (s *BoltStore) Query(_ context.Context, collection string, filter Filter) ([]Document, error) {
	results := make([]Document, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var doc Document
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("decode %s/%s: %w", collection, k, err)
			}
			if Matches(doc, filter) {
				results = append(results, doc)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Delete removes the document under id, reporting whether it existed.
func (s *BoltStore) Delete(_ context.Context, collection, id string) (bool, error) {
	existed := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		if b.Get([]byte(id)) == nil {
			return nil
		}
		existed = true
		return b.Delete([]byte(id))
	})
	return existed, err
}

// Close closes the underlying database file.
func (s *BoltStore) Close() error { return s.db.Close() }
