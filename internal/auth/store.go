package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/desertthunder/mixtape/internal/session"
)

// tokenKey is the fixed session attribute under which the record lives.
// Exactly one TokenRecord is live per session at any time.
const tokenKey = "token_info"

// TokenStore holds the current TokenRecord for a session. It is a thin
// pass-through to the session store: no caching, no locking.
type TokenStore struct {
	sessions session.Store
}

// NewTokenStore creates a TokenStore over the given session store.
func NewTokenStore(sessions session.Store) *TokenStore {
	return &TokenStore{sessions: sessions}
}

// Load retrieves the session's current record.
// Returns [ErrUnauthenticated] when the session holds none.
func (s *TokenStore) Load(ctx context.Context, sid string) (TokenRecord, error) {
	data, err := s.sessions.Get(ctx, sid, tokenKey)
	if errors.Is(err, session.ErrNotFound) {
		return TokenRecord{}, ErrUnauthenticated
	}
	if err != nil {
		return TokenRecord{}, fmt.Errorf("%w: loading token record: %v", ErrInternalAuth, err)
	}

	var record TokenRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return TokenRecord{}, fmt.Errorf("%w: decoding token record: %v", ErrInternalAuth, err)
	}

	return record, nil
}

// Save replaces the session's record wholesale.
func (s *TokenStore) Save(ctx context.Context, sid string, record TokenRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%w: encoding token record: %v", ErrInternalAuth, err)
	}

	if err := s.sessions.Put(ctx, sid, tokenKey, data); err != nil {
		return fmt.Errorf("%w: saving token record: %v", ErrInternalAuth, err)
	}

	return nil
}

// Clear removes the session's record. Used when the user restarts the
// authorize flow from scratch.
func (s *TokenStore) Clear(ctx context.Context, sid string) error {
	if err := s.sessions.Delete(ctx, sid, tokenKey); err != nil {
		return fmt.Errorf("%w: clearing token record: %v", ErrInternalAuth, err)
	}
	return nil
}
