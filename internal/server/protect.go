package server

import (
	"net/http"

	"github.com/desertthunder/mixtape/internal/auth"
)

// protectedHandler wraps a Handler with the auth gate, keeping its routes.
type protectedHandler struct {
	inner   Handler
	wrapped http.Handler
}

// Protect wraps a Handler so every route it serves runs behind
// [auth.Gate.Require]: the handler only executes with a valid credential on
// the request context.
func Protect(gate *auth.Gate, handler Handler) Handler {
	return &protectedHandler{
		inner:   handler,
		wrapped: gate.Require(handler),
	}
}

func (p *protectedHandler) Routes() []string {
	return p.inner.Routes()
}

func (p *protectedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.wrapped.ServeHTTP(w, r)
}
