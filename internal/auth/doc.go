// Package auth implements the session-scoped OAuth token lifecycle: holding
// a per-session credential, deciding when it has expired, refreshing it
// transparently, and gating downstream API calls on a valid credential.
//
// # Token lifecycle
//
// A [TokenRecord] is minted by [Client.Exchange] (authorization code grant)
// or [Client.Refresh] (refresh grant) and stored wholesale under a fixed
// session key by [TokenStore]. [TokenRecord.Expired] applies a 60 second
// skew margin so tokens about to lapse are refreshed before use.
//
// # The gate
//
// [Gate.Ensure] is the per-request decision procedure:
//
//	no record        → ErrUnauthenticated (no network call)
//	fresh record     → proceed with the stored access token
//	stale record     → refresh, save, proceed; on failure ErrReauthRequired
//	anything else    → ErrInternalAuth
//
// [Gate.Require] is the middleware form: it resolves the session id from the
// request context, runs Ensure, and injects the credential for handlers to
// read with [Credential]. Handlers never see raw provider errors; every
// failure is one of the tagged kinds in errors.go with a distinct HTTP
// status and machine-readable code.
//
// # Exchange semantics
//
// Both grant operations are at-most-once per call. The package performs no
// internal retry: an authorization code is single-use, and retry policy for
// refreshes belongs to the caller.
package auth
