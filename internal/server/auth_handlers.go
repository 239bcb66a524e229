package server

import (
	"context"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/auth"
	"github.com/desertthunder/mixtape/internal/session"
	"github.com/desertthunder/mixtape/internal/shared"
)

// stateKey is the session attribute holding the pending OAuth state parameter.
const stateKey = "oauth_state"

// landingRoute is where authenticated users end up after login and when
// revisiting the index.
const landingRoute = "/profile"

// Exchanger is the slice of the authorization client the handlers need.
type Exchanger interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (auth.TokenRecord, error)
}

// AuthHandler serves the authorization entry point and the redirect callback.
// It is the sole producer of a session's first token record.
type AuthHandler struct {
	client   Exchanger
	tokens   *auth.TokenStore
	sessions session.Store
	logger   *log.Logger
}

// NewAuthHandler creates the handler for the index and callback routes.
func NewAuthHandler(client Exchanger, tokens *auth.TokenStore, sessions session.Store, logger *log.Logger) *AuthHandler {
	return &AuthHandler{
		client:   client,
		tokens:   tokens,
		sessions: sessions,
		logger:   logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthHandler) Routes() []string {
	return []string{"GET /{$}", "GET /callback", "GET /logout"}
}

// ServeHTTP dispatches to the index, callback or logout handler.
func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/":
		h.index(w, r)
	case "/callback":
		h.callback(w, r)
	case "/logout":
		h.logout(w, r)
	default:
		http.NotFound(w, r)
	}
}

// index redirects an authenticated session to the landing route, and everyone
// else to the authorization server with a fresh state parameter.
func (h *AuthHandler) index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := session.ID(ctx)

	if sid != "" {
		if _, err := h.tokens.Load(ctx, sid); err == nil {
			http.Redirect(w, r, landingRoute, http.StatusFound)
			return
		}
	}

	state := shared.GenerateID()
	if err := h.sessions.Put(ctx, sid, stateKey, []byte(state)); err != nil {
		h.logger.Error("failed to store oauth state", "error", err)
		auth.WriteError(w, auth.ErrInternalAuth)
		return
	}

	authURL := h.client.AuthURL(state)
	h.logger.Info("redirecting to authorization server", "sid", sid)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// callback consumes the authorization server's redirect.
//
// An error parameter wins over everything else and mutates no state. A
// missing code or a state mismatch is a malformed callback. A valid code is
// exchanged exactly once; only a successful exchange writes the session.
func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := session.ID(ctx)
	query := r.URL.Query()

	if errParam := query.Get("error"); errParam != "" {
		h.logger.Error("authorization server returned error", "error", errParam)
		auth.WriteError(w, auth.ErrAuthorizationDenied)
		return
	}

	code := query.Get("code")
	if code == "" {
		h.logger.Error("callback missing code and error parameters")
		auth.WriteError(w, auth.ErrMalformedCallback)
		return
	}

	stored, err := h.sessions.Get(ctx, sid, stateKey)
	if err != nil || query.Get("state") != string(stored) {
		h.logger.Error("state parameter mismatch", "sid", sid)
		auth.WriteError(w, auth.ErrMalformedCallback)
		return
	}

	// State is single-use
	if err := h.sessions.Delete(ctx, sid, stateKey); err != nil {
		h.logger.Warn("failed to clear oauth state", "error", err)
	}

	record, err := h.client.Exchange(ctx, code)
	if err != nil {
		h.logger.Error("code exchange failed", "error", err)
		auth.WriteError(w, err)
		return
	}

	if err := h.tokens.Save(ctx, sid, record); err != nil {
		h.logger.Error("failed to save token record", "error", err)
		auth.WriteError(w, err)
		return
	}

	http.Redirect(w, r, landingRoute, http.StatusFound)
}

// logout drops the session's token record and sends the user back to the
// index to restart the authorize flow. Idempotent for unauthenticated sessions.
func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := session.ID(ctx)

	if sid != "" {
		if err := h.tokens.Clear(ctx, sid); err != nil {
			h.logger.Error("failed to clear token record", "sid", sid, "error", err)
			auth.WriteError(w, err)
			return
		}
	}

	http.Redirect(w, r, "/", http.StatusFound)
}
