// Package session provides the per-browser session mechanism backing the
// token lifecycle.
//
// A session is an opaque key-value store identified by a cookie-held id.
// [Store] is the pluggable persistence interface with in-memory and SQLite
// implementations; [Manager] is the middleware that issues the cookie and
// makes the session id available on the request context.
package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/shared"
)

// ErrNotFound is returned by [Store.Get] when no value exists for the key.
var ErrNotFound = errors.New("session value not found")

// Store is the session persistence abstraction: an opaque key-value store
// scoped to a session id. Implementations must make each Put atomic per key.
type Store interface {
	// Get retrieves a value by session id and key. Returns [ErrNotFound] if absent.
	Get(ctx context.Context, sid, key string) ([]byte, error)

	// Put stores a value under the session id and key, replacing any previous value.
	Put(ctx context.Context, sid, key string, value []byte) error

	// Delete removes a value. Deleting an absent key is not an error.
	Delete(ctx context.Context, sid, key string) error
}

type ctxKey string

const sidContextKey ctxKey = "session-id"

// DefaultCookieName is used when no cookie name is configured.
const DefaultCookieName = "mixtape_session"

// Manager ensures every request carries a session cookie and exposes the
// session id through the request context.
type Manager struct {
	cookieName string
	ttl        time.Duration
	logger     *log.Logger
}

// NewManager creates a session Manager from configuration.
func NewManager(cfg shared.SessionConfig, logger *log.Logger) *Manager {
	name := cfg.CookieName
	if name == "" {
		name = DefaultCookieName
	}

	hours := cfg.TTLHours
	if hours <= 0 {
		hours = 24
	}

	return &Manager{
		cookieName: name,
		ttl:        time.Duration(hours) * time.Hour,
		logger:     logger,
	}
}

// TTL returns the configured session lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Middleware sets the session cookie when absent and attaches the session id
// to the request context before calling the next handler.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := ""

		if cookie, err := r.Cookie(m.cookieName); err == nil && cookie.Value != "" {
			sid = cookie.Value
		}

		if sid == "" {
			sid = shared.GenerateID()
			http.SetCookie(w, &http.Cookie{
				Name:     m.cookieName,
				Value:    sid,
				Path:     "/",
				Expires:  time.Now().Add(m.ttl),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			m.logger.Debug("issued session cookie", "sid", sid)
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sidContextKey, sid)))
	})
}

// ID returns the session id attached by [Manager.Middleware], or an empty
// string when the request did not pass through the middleware.
func ID(ctx context.Context) string {
	sid, _ := ctx.Value(sidContextKey).(string)
	return sid
}

// WithID returns a context carrying the given session id. Intended for tests
// and non-HTTP callers of the auth gate.
func WithID(ctx context.Context, sid string) context.Context {
	return context.WithValue(ctx, sidContextKey, sid)
}
