// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"sync"
)

// FlakySessionStore is a test double for session.Store backed by a map, with
// optional error injection on reads and writes.
type FlakySessionStore struct {
	mu          sync.Mutex
	values      map[string][]byte
	GetErr      error
	PutErr      error
	NotFoundErr error
}

// NewFlakySessionStore creates a FlakySessionStore that reports absence with
// the given sentinel (session.ErrNotFound in production code).
func NewFlakySessionStore(notFound error) *FlakySessionStore {
	return &FlakySessionStore{
		values:      make(map[string][]byte),
		NotFoundErr: notFound,
	}
}

func (s *FlakySessionStore) Get(_ context.Context, sid, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.GetErr != nil {
		return nil, s.GetErr
	}

	value, ok := s.values[sid+"/"+key]
	if !ok {
		return nil, s.NotFoundErr
	}
	return value, nil
}

func (s *FlakySessionStore) Put(_ context.Context, sid, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.PutErr != nil {
		return s.PutErr
	}

	s.values[sid+"/"+key] = append([]byte(nil), value...)
	return nil
}

func (s *FlakySessionStore) Delete(_ context.Context, sid, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, sid+"/"+key)
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

var _ io.Writer = (*FWriter)(nil)
