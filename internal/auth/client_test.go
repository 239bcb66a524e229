package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/mixtape/internal/shared"
)

func newTestClient(t *testing.T, tokenHandler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", tokenHandler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := NewClient(shared.SpotifyConfig{
		ClientID:     "test_client_id",
		ClientSecret: "test_client_secret",
		RedirectURI:  "http://localhost:8080/callback",
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	client.SetEndpoint(server.URL+"/authorize", server.URL+"/api/token")
	return client, server
}

func writeTokenResponse(w http.ResponseWriter, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

func TestClient(t *testing.T) {
	t.Run("NewClient", func(t *testing.T) {
		t.Run("Missing Credentials", func(t *testing.T) {
			_, err := NewClient(shared.SpotifyConfig{ClientID: "id_only"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Default Redirect URI", func(t *testing.T) {
			client, err := NewClient(shared.SpotifyConfig{
				ClientID:     "test_client_id",
				ClientSecret: "test_client_secret",
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if client.config.RedirectURL != "http://localhost:8080/callback" {
				t.Errorf("expected default redirect URI, got %s", client.config.RedirectURL)
			}
		})
	})

	t.Run("AuthURL", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

		authURL := client.AuthURL("test_state")

		for _, want := range []string{"client_id=test_client_id", "state=test_state", "response_type=code", "scope="} {
			if !strings.Contains(authURL, want) {
				t.Errorf("auth URL should contain %q, got %s", want, authURL)
			}
		}

		if client.AuthURL("test_state") != authURL {
			t.Error("AuthURL should be deterministic for the same state")
		}
	})

	t.Run("Exchange", func(t *testing.T) {
		t.Run("Success", func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if err := r.ParseForm(); err == nil {
					if grant := r.Form.Get("grant_type"); grant != "authorization_code" {
						t.Errorf("expected grant_type authorization_code, got %s", grant)
					}
				}

				writeTokenResponse(w, map[string]any{
					"access_token":  "A1",
					"token_type":    "Bearer",
					"refresh_token": "R1",
					"expires_in":    3600,
					"scope":         "playlist-read-private",
				})
			})

			record, err := client.Exchange(context.Background(), "auth_code")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if record.AccessToken != "A1" {
				t.Errorf("expected access token A1, got %s", record.AccessToken)
			}
			if record.RefreshToken != "R1" {
				t.Errorf("expected refresh token R1, got %s", record.RefreshToken)
			}
			if record.Scope != "playlist-read-private" {
				t.Errorf("expected scope to be carried, got %q", record.Scope)
			}

			remaining := time.Until(record.ExpiresAt)
			if remaining < 3500*time.Second || remaining > 3700*time.Second {
				t.Errorf("expected expiry about an hour out, got %v", remaining)
			}
		})

		t.Run("Non-2xx Response", func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				writeTokenResponse(w, map[string]any{"error": "invalid_grant"})
			})

			_, err := client.Exchange(context.Background(), "consumed_code")
			if !errors.Is(err, ErrAuthExchange) {
				t.Errorf("expected ErrAuthExchange, got %v", err)
			}
		})

		t.Run("Missing Access Token", func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeTokenResponse(w, map[string]any{"token_type": "Bearer", "expires_in": 3600})
			})

			_, err := client.Exchange(context.Background(), "auth_code")
			if !errors.Is(err, ErrAuthExchange) {
				t.Errorf("expected ErrAuthExchange for malformed body, got %v", err)
			}
		})
	})

	t.Run("Refresh", func(t *testing.T) {
		t.Run("Preserves Refresh Token When Server Omits It", func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeTokenResponse(w, map[string]any{
					"access_token": "A2",
					"token_type":   "Bearer",
					"expires_in":   3600,
				})
			})

			record, err := client.Refresh(context.Background(), "R1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if record.AccessToken != "A2" {
				t.Errorf("expected access token A2, got %s", record.AccessToken)
			}
			if record.RefreshToken != "R1" {
				t.Errorf("expected original refresh token preserved, got %s", record.RefreshToken)
			}
		})

		t.Run("Adopts Rotated Refresh Token", func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeTokenResponse(w, map[string]any{
					"access_token":  "A2",
					"token_type":    "Bearer",
					"refresh_token": "R2",
					"expires_in":    3600,
				})
			})

			record, err := client.Refresh(context.Background(), "R1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if record.RefreshToken != "R2" {
				t.Errorf("expected rotated refresh token R2, got %s", record.RefreshToken)
			}
		})

		t.Run("Revoked Grant", func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				writeTokenResponse(w, map[string]any{"error": "invalid_grant"})
			})

			_, err := client.Refresh(context.Background(), "revoked")
			if !errors.Is(err, ErrAuthRefresh) {
				t.Errorf("expected ErrAuthRefresh, got %v", err)
			}
		})

		t.Run("Empty Refresh Token", func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				t.Error("token endpoint should not be called without a refresh token")
			})

			_, err := client.Refresh(context.Background(), "")
			if !errors.Is(err, ErrAuthRefresh) {
				t.Errorf("expected ErrAuthRefresh, got %v", err)
			}
		})
	})
}
