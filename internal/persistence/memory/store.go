// Package memory provides an in-memory persistence.Store, used in tests and
// local development in place of the postgres backend.
package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/coachpo/marketmaker/internal/errs"
	"github.com/coachpo/marketmaker/internal/persistence"
)

// Store is an in-memory implementation of persistence.Store.
type Store struct {
	mu   sync.RWMutex
	docs map[persistence.Key]persistence.Document
}

// New constructs an empty Store.
func New() *Store {
	return &Store{docs: make(map[persistence.Key]persistence.Document)}
}

func (s *Store) Get(ctx context.Context, key persistence.Key) (persistence.Document, error) {
	if err := key.Validate(); err != nil {
		return persistence.Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[key]
	if !ok {
		return persistence.Document{}, errs.New("memory.Get", errs.CodeNotFound, errs.WithField("kind", string(key.Kind)), errs.WithField("id", key.ID))
	}
	return doc, nil
}

func (s *Store) Put(ctx context.Context, doc persistence.Document) (persistence.Document, error) {
	if err := doc.Key.Validate(); err != nil {
		return persistence.Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	existing, ok := s.docs[doc.Key]
	doc.Version = 1
	doc.CreatedAt = now
	if ok {
		doc.Version = existing.Version + 1
		doc.CreatedAt = existing.CreatedAt
	}
	doc.UpdatedAt = now
	s.docs[doc.Key] = doc
	return doc, nil
}

func (s *Store) CompareAndSwap(ctx context.Context, prevVersion int64, doc persistence.Document) (persistence.Document, error) {
	if err := doc.Key.Validate(); err != nil {
		return persistence.Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.docs[doc.Key]
	if !ok {
		return persistence.Document{}, errs.New("memory.CompareAndSwap", errs.CodeNotFound)
	}
	if existing.Version != prevVersion {
		return persistence.Document{}, errs.New("memory.CompareAndSwap", errs.CodeConflict,
			errs.WithMessage("version mismatch"), errs.WithField("have", strconv.FormatInt(existing.Version, 10)), errs.WithField("want", strconv.FormatInt(prevVersion, 10)))
	}
	doc.Version = prevVersion + 1
	doc.CreatedAt = existing.CreatedAt
	doc.UpdatedAt = time.Now().UTC()
	s.docs[doc.Key] = doc
	return doc, nil
}

func (s *Store) Delete(ctx context.Context, key persistence.Key) error {
	if err := key.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, key)
	return nil
}

func (s *Store) List(ctx context.Context, kind persistence.Kind) ([]persistence.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]persistence.Document, 0)
	for k, doc := range s.docs {
		if k.Kind == kind {
			out = append(out, doc)
		}
	}
	return out, nil
}
