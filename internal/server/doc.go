// Package server provides HTTP routing, middleware, and the boundary
// handlers of the playlist service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] is applied in the order added: the first middleware is the
// outermost wrapper and sees the request first.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with
// method-qualified patterns.
//
// # Request pipeline
//
// Every request flows through Recover → RequestLogger → Throttle → session
// Manager, in that order. Routes that act on Spotify data are additionally
// wrapped with [Protect], which applies the auth gate and injects the
// resolved credential into the request context.
//
// # Boundary routes
//
//	GET  /                 → redirect to the authorize URL, or to /profile
//	GET  /callback         → OAuth redirect target; writes the session's token
//	GET  /logout           → drop the session's token, redirect to /
//	GET  /profile          → current user profile (gated)
//	GET  /recent-tracks    → recently played tracks (gated)
//	GET  /playlists        → the user's playlists (gated)
//	GET  /playlist-tracks  → tracks + audio features across playlists (gated)
//	POST /playlists        → create a playlist from track URIs (gated)
//	GET  /health           → liveness
//
// # Error responses
//
// All failures are JSON bodies of the form {"error": <code>} with a
// machine-readable code; human-readable detail is logged server-side only.
// Auth failures use the codes and statuses defined in the auth package.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib
// handler interface and adds routes, allowing handlers to register multiple
// routes and encapsulate route definitions within the implementation.
package server
