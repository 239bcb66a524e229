package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/session"
)

// Refresher is the slice of the authorization client the gate depends on.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (TokenRecord, error)
}

// Gate resolves a ready-to-use credential for a session, refreshing and
// persisting it as needed. The decision per call is strictly ordered: check
// before use, replace then proceed, never proceed on a failed refresh.
//
// The gate takes no session-level lock: two concurrent requests for the same
// expired session may both refresh, and the authorization server's rotation
// semantics decide which stored record wins. The session store's per-key
// write atomicity keeps either outcome a whole record.
type Gate struct {
	store  *TokenStore
	client Refresher
	logger *log.Logger
	now    func() time.Time
}

// NewGate creates an auth gate over the given store and authorization client.
func NewGate(store *TokenStore, client Refresher, logger *log.Logger) *Gate {
	return &Gate{
		store:  store,
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// Ensure produces a usable credential for the session or a tagged failure.
//
//   - No record → [ErrUnauthenticated]; the authorization client is never called.
//   - Fresh record → returned as is.
//   - Stale record → one refresh exchange; on success the new record is saved
//     and returned, on failure [ErrReauthRequired] with the stored record left
//     untouched and the underlying reason logged, not surfaced.
func (g *Gate) Ensure(ctx context.Context, sid string) (record TokenRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("panic resolving credential", "sid", sid, "panic", r)
			record, err = TokenRecord{}, fmt.Errorf("%w: %v", ErrInternalAuth, r)
		}
	}()

	record, err = g.store.Load(ctx, sid)
	if err != nil {
		return TokenRecord{}, err
	}

	if !record.Expired(g.now()) {
		return record, nil
	}

	fresh, err := g.client.Refresh(ctx, record.RefreshToken)
	if err != nil {
		g.logger.Error("token refresh failed", "sid", sid, "error", err)
		return TokenRecord{}, ErrReauthRequired
	}

	if err := g.store.Save(ctx, sid, fresh); err != nil {
		return TokenRecord{}, err
	}

	return fresh, nil
}

type credentialKey struct{}

// Credential returns the TokenRecord injected by [Gate.Require].
func Credential(ctx context.Context) (TokenRecord, bool) {
	record, ok := ctx.Value(credentialKey{}).(TokenRecord)
	return record, ok
}

// WithCredential returns a context carrying the given record. Exposed for
// handler tests that bypass the middleware.
func WithCredential(ctx context.Context, record TokenRecord) context.Context {
	return context.WithValue(ctx, credentialKey{}, record)
}

// Require wraps a handler so it only runs with a valid credential on the
// request context. Failures are mapped to JSON responses via [WriteError];
// the wrapped handler reads the credential with [Credential].
func (g *Gate) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := session.ID(r.Context())
		if sid == "" {
			WriteError(w, ErrUnauthenticated)
			return
		}

		record, err := g.Ensure(r.Context(), sid)
		if err != nil {
			WriteError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithCredential(r.Context(), record)))
	})
}

// WriteError writes the JSON error body for a taxonomy member. Only the
// machine-readable code is emitted; underlying detail stays in server logs.
func WriteError(w http.ResponseWriter, err error) {
	if !isTaxonomy(err) {
		err = ErrInternalAuth
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(Status(err))
	json.NewEncoder(w).Encode(map[string]string{"error": Code(err)})
}

func isTaxonomy(err error) bool {
	for _, kind := range []error{
		ErrUnauthenticated, ErrReauthRequired, ErrAuthExchange, ErrAuthRefresh,
		ErrAuthorizationDenied, ErrMalformedCallback, ErrInternalAuth,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
