// Package services implements the Resource API client for the Spotify Web API.
//
// # Credential handling
//
// [Spotify] is stateless with respect to authentication: every
// method takes the bearer token that the auth gate resolved for the current
// request. The client never refreshes tokens itself; lifecycle management
// lives entirely in the auth package.
//
// # Error handling
//
// Failures map to sentinel errors from the shared package:
//   - [shared.ErrUnauthorized] : the API rejected the credential (401) even
//     though it passed the expiry policy; the caller restarts authorization
//   - [shared.ErrPlaylistNotFound] : 404 from a playlist endpoint
//   - [shared.ErrAPIRequest] : transport failure, other non-2xx, or a body
//     that could not be decoded
//   - [shared.ErrInvalidInput] : caller-side validation (empty or oversized
//     ID batches)
//
// # API mappings
//
// Response types mirror the upstream JSON shapes. Paginating endpoints
// (playlists, playlist tracks) are wrapped by AllPlaylists/PlaylistTracks,
// which follow the `next` cursor to exhaustion.
package services
