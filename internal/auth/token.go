package auth

import (
	"time"

	"golang.org/x/oauth2"
)

// Skew is the safety margin applied when deciding token expiry. A token with
// less than this much lifetime left is refreshed proactively rather than
// risking a failed downstream call from clock drift or in-flight latency.
const Skew = 60 * time.Second

// TokenRecord is a snapshot of a credential grant held in the session.
//
// Records are replaced wholesale, never field-mutated: a new record is minted
// only by a code exchange or a refresh, and ExpiresAt is derived there from
// the server-reported lifetime.
type TokenRecord struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Scope        string    `json:"scope,omitempty"`
}

// Expired reports whether the record is unusable at the given instant.
// A record with exactly the skew margin remaining is still usable.
func (t TokenRecord) Expired(now time.Time) bool {
	return t.ExpiresAt.Sub(now) < Skew
}

// newTokenRecord mints a TokenRecord from an oauth2 token. The oauth2 package
// sets Expiry from the server's expires_in at the time the grant completed.
func newTokenRecord(tok *oauth2.Token) TokenRecord {
	scope, _ := tok.Extra("scope").(string)

	return TokenRecord{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
		Scope:        scope,
	}
}
