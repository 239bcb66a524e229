package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"

	// grantTimeout bounds each round trip to the token endpoint.
	grantTimeout = 10 * time.Second
)

// Scopes requested during authorization. Carried opaquely after the grant.
var Scopes = []string{
	"user-top-read",
	"user-read-recently-played",
	"playlist-read-private",
	"playlist-modify-public",
	"playlist-modify-private",
}

// Client wraps the authorization server: authorize-URL construction, code
// exchange, and refresh exchange. Each exchange is a single round trip with
// no internal retry, since replaying a consumed one-time code is incorrect.
type Client struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// NewClient creates an authorization client from Spotify credentials.
func NewClient(cfg shared.SpotifyConfig) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	redirectURI := cfg.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://localhost:8080/callback"
	}

	config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: grantTimeout},
	}, nil
}

// SetEndpoint overrides the authorization server endpoints. Used in tests to
// point the client at a local fake.
func (c *Client) SetEndpoint(authURL, tokenURL string) {
	c.config.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL}
}

// AuthURL returns the authorize URL for the given state parameter.
// Pure construction from static configuration; safe to regenerate per request.
func (c *Client) AuthURL(state string) string {
	return c.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a new TokenRecord.
// Fails with [ErrAuthExchange] on network failure, non-2xx response, or a
// response missing the access token or lifetime.
func (c *Client) Exchange(ctx context.Context, code string) (TokenRecord, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err := c.config.Exchange(ctx, code)
	if err != nil {
		return TokenRecord{}, fmt.Errorf("%w: %v", ErrAuthExchange, err)
	}

	if tok.AccessToken == "" || tok.Expiry.IsZero() {
		return TokenRecord{}, fmt.Errorf("%w: token response missing access_token or expires_in", ErrAuthExchange)
	}

	return newTokenRecord(tok), nil
}

// Refresh trades a refresh token for a new TokenRecord.
//
// Grant servers may omit rotation, so the caller's refresh token is preserved
// when the response carries no new one. Fails with [ErrAuthRefresh] on network
// failure, non-2xx (including revoked grants), or a malformed body.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (TokenRecord, error) {
	if refreshToken == "" {
		return TokenRecord{}, fmt.Errorf("%w: no refresh token", ErrAuthRefresh)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	ts := c.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := ts.Token()
	if err != nil {
		return TokenRecord{}, fmt.Errorf("%w: %v", ErrAuthRefresh, err)
	}

	if tok.AccessToken == "" || tok.Expiry.IsZero() {
		return TokenRecord{}, fmt.Errorf("%w: token response missing access_token or expires_in", ErrAuthRefresh)
	}

	record := newTokenRecord(tok)
	if record.RefreshToken == "" {
		record.RefreshToken = refreshToken
	}

	return record, nil
}
