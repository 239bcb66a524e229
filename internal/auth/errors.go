package auth

import (
	"errors"
	"fmt"
	"net/http"
)

// Tagged failure kinds for the token lifecycle. Every failure path in this
// package resolves to exactly one of these; raw transport and provider errors
// are wrapped underneath and logged server-side, never written to responses.
var (
	// ErrUnauthenticated means the session holds no token record at all.
	ErrUnauthenticated = fmt.Errorf("no credential in session")

	// ErrReauthRequired means the stored record is stale and could not be
	// refreshed; the user must restart the authorize flow.
	ErrReauthRequired = fmt.Errorf("reauthorization required")

	// ErrAuthExchange wraps failures exchanging an authorization code.
	ErrAuthExchange = fmt.Errorf("code exchange failed")

	// ErrAuthRefresh wraps failures of the refresh grant.
	ErrAuthRefresh = fmt.Errorf("token refresh failed")

	// ErrAuthorizationDenied means the authorization server reported an error
	// in the redirect callback (e.g. the user declined consent).
	ErrAuthorizationDenied = fmt.Errorf("authorization denied")

	// ErrMalformedCallback means the redirect callback carried neither a code
	// nor an error, or an invalid state parameter.
	ErrMalformedCallback = fmt.Errorf("malformed callback")

	// ErrInternalAuth is the catch-all for unexpected failures inside the gate.
	ErrInternalAuth = fmt.Errorf("internal auth error")
)

// Code returns the machine-readable error code for a taxonomy member.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrReauthRequired):
		return "reauth_required"
	case errors.Is(err, ErrAuthorizationDenied):
		return "authorization_denied"
	case errors.Is(err, ErrMalformedCallback):
		return "malformed_callback"
	case errors.Is(err, ErrAuthExchange):
		return "auth_exchange_failed"
	case errors.Is(err, ErrAuthRefresh):
		return "auth_refresh_failed"
	default:
		return "internal_auth_error"
	}
}

// Status maps a taxonomy member to its HTTP status.
//
// Unauthenticated and ReauthRequired both surface as 401 so the client can
// uniformly restart the authorize flow.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrReauthRequired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAuthorizationDenied), errors.Is(err, ErrMalformedCallback):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuthExchange):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
