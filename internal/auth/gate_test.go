package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/session"
	itesting "github.com/desertthunder/mixtape/internal/testing"
)

// fakeRefresher records refresh calls and returns a canned result.
type fakeRefresher struct {
	record TokenRecord
	err    error
	calls  int
	last   string
}

func (f *fakeRefresher) Refresh(_ context.Context, refreshToken string) (TokenRecord, error) {
	f.calls++
	f.last = refreshToken
	if f.err != nil {
		return TokenRecord{}, f.err
	}
	return f.record, nil
}

type panicRefresher struct{}

func (panicRefresher) Refresh(context.Context, string) (TokenRecord, error) {
	panic("unexpected nil dereference")
}

func newTestGate(refresher Refresher) (*Gate, *itesting.FlakySessionStore, *TokenStore) {
	sessions := itesting.NewFlakySessionStore(session.ErrNotFound)
	store := NewTokenStore(sessions)
	gate := NewGate(store, refresher, log.New(io.Discard))
	return gate, sessions, store
}

func TestGateEnsure(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("No Record", func(t *testing.T) {
		refresher := &fakeRefresher{}
		gate, _, _ := newTestGate(refresher)

		_, err := gate.Ensure(ctx, "sid")
		if !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("expected ErrUnauthenticated, got %v", err)
		}
		if refresher.calls != 0 {
			t.Errorf("authorization client should not be called, got %d calls", refresher.calls)
		}
	})

	t.Run("Fresh Record Passes Through", func(t *testing.T) {
		refresher := &fakeRefresher{}
		gate, _, store := newTestGate(refresher)
		gate.now = func() time.Time { return now }

		stored := TokenRecord{AccessToken: "A1", RefreshToken: "R1", ExpiresAt: now.Add(time.Hour)}
		if err := store.Save(ctx, "sid", stored); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		record, err := gate.Ensure(ctx, "sid")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if record.AccessToken != "A1" {
			t.Errorf("expected stored access token, got %s", record.AccessToken)
		}
		if refresher.calls != 0 {
			t.Errorf("fresh record should not trigger refresh, got %d calls", refresher.calls)
		}
	})

	t.Run("Stale Record Refreshes And Saves", func(t *testing.T) {
		refresher := &fakeRefresher{
			record: TokenRecord{AccessToken: "A2", RefreshToken: "R1", ExpiresAt: now.Add(time.Hour)},
		}
		gate, _, store := newTestGate(refresher)
		gate.now = func() time.Time { return now }

		// 30 seconds remaining sits inside the skew margin.
		stale := TokenRecord{AccessToken: "A1", RefreshToken: "R1", ExpiresAt: now.Add(30 * time.Second)}
		if err := store.Save(ctx, "sid", stale); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		record, err := gate.Ensure(ctx, "sid")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if record.AccessToken != "A2" {
			t.Errorf("expected refreshed access token A2, got %s", record.AccessToken)
		}
		if record.RefreshToken != "R1" {
			t.Errorf("expected retained refresh token R1, got %s", record.RefreshToken)
		}
		if refresher.calls != 1 || refresher.last != "R1" {
			t.Errorf("expected one refresh with R1, got %d calls with %q", refresher.calls, refresher.last)
		}

		persisted, err := store.Load(ctx, "sid")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if persisted.AccessToken != "A2" {
			t.Errorf("refreshed record should be persisted, found %s", persisted.AccessToken)
		}
	})

	t.Run("Refresh Failure Leaves Record Untouched", func(t *testing.T) {
		refresher := &fakeRefresher{err: ErrAuthRefresh}
		gate, _, store := newTestGate(refresher)
		gate.now = func() time.Time { return now }

		stale := TokenRecord{AccessToken: "A1", RefreshToken: "revoked", ExpiresAt: now.Add(-time.Minute)}
		if err := store.Save(ctx, "sid", stale); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		_, err := gate.Ensure(ctx, "sid")
		if !errors.Is(err, ErrReauthRequired) {
			t.Errorf("expected ErrReauthRequired, got %v", err)
		}
		if errors.Is(err, ErrAuthRefresh) {
			t.Error("underlying refresh failure should not surface to the caller")
		}

		persisted, loadErr := store.Load(ctx, "sid")
		if loadErr != nil {
			t.Fatalf("expected no error, got %v", loadErr)
		}
		if persisted.AccessToken != "A1" || persisted.RefreshToken != "revoked" {
			t.Errorf("stored record should be untouched after failed refresh, got %+v", persisted)
		}
	})

	t.Run("Save Failure After Refresh", func(t *testing.T) {
		refresher := &fakeRefresher{
			record: TokenRecord{AccessToken: "A2", RefreshToken: "R1", ExpiresAt: now.Add(time.Hour)},
		}
		gate, sessions, store := newTestGate(refresher)
		gate.now = func() time.Time { return now }

		stale := TokenRecord{AccessToken: "A1", RefreshToken: "R1", ExpiresAt: now}
		if err := store.Save(ctx, "sid", stale); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		sessions.PutErr = errors.New("backend unavailable")
		if _, err := gate.Ensure(ctx, "sid"); !errors.Is(err, ErrInternalAuth) {
			t.Errorf("expected ErrInternalAuth, got %v", err)
		}
	})

	t.Run("Panic Maps To Internal Error", func(t *testing.T) {
		gate, _, store := newTestGate(panicRefresher{})
		gate.now = func() time.Time { return now }

		stale := TokenRecord{AccessToken: "A1", RefreshToken: "R1", ExpiresAt: now}
		if err := store.Save(ctx, "sid", stale); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		_, err := gate.Ensure(ctx, "sid")
		if !errors.Is(err, ErrInternalAuth) {
			t.Errorf("expected ErrInternalAuth from recovered panic, got %v", err)
		}
	})
}

func TestGateRequire(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	okHandler := func(t *testing.T, sawCredential *bool) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			record, ok := Credential(r.Context())
			if !ok {
				t.Error("expected credential on request context")
			}
			if record.AccessToken == "" {
				t.Error("expected non-empty access token")
			}
			*sawCredential = true
			w.WriteHeader(http.StatusOK)
		})
	}

	decodeError := func(t *testing.T, rec *httptest.ResponseRecorder) string {
		t.Helper()

		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode error body: %v", err)
		}
		return body["error"]
	}

	t.Run("Missing Session", func(t *testing.T) {
		gate, _, _ := newTestGate(&fakeRefresher{})

		called := false
		handler := gate.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profile", nil))

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
		if code := decodeError(t, rec); code != "unauthenticated" {
			t.Errorf("expected unauthenticated code, got %q", code)
		}
		if called {
			t.Error("wrapped handler should not run")
		}
	})

	t.Run("Valid Credential Reaches Handler", func(t *testing.T) {
		gate, _, store := newTestGate(&fakeRefresher{})
		gate.now = func() time.Time { return now }

		record := TokenRecord{AccessToken: "A1", RefreshToken: "R1", ExpiresAt: now.Add(time.Hour)}
		if err := store.Save(context.Background(), "sid", record); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		saw := false
		handler := gate.Require(okHandler(t, &saw))

		req := httptest.NewRequest(http.MethodGet, "/profile", nil)
		req = req.WithContext(session.WithID(req.Context(), "sid"))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
		if !saw {
			t.Error("expected wrapped handler to run")
		}
	})

	t.Run("Reauth Required Response", func(t *testing.T) {
		gate, _, store := newTestGate(&fakeRefresher{err: ErrAuthRefresh})
		gate.now = func() time.Time { return now }

		record := TokenRecord{AccessToken: "A1", RefreshToken: "revoked", ExpiresAt: now}
		if err := store.Save(context.Background(), "sid", record); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		handler := gate.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("wrapped handler should not run")
		}))

		req := httptest.NewRequest(http.MethodGet, "/profile", nil)
		req = req.WithContext(session.WithID(req.Context(), "sid"))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
		if code := decodeError(t, rec); code != "reauth_required" {
			t.Errorf("expected reauth_required code, got %q", code)
		}
	})
}

func TestWriteError(t *testing.T) {
	t.Run("Untagged Error Becomes Internal", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, errors.New("something else"))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}

		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode error body: %v", err)
		}
		if body["error"] != "internal_auth_error" {
			t.Errorf("expected internal_auth_error, got %q", body["error"])
		}
	})

	t.Run("Exchange Failure Maps To Bad Gateway", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, ErrAuthExchange)

		if rec.Code != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", rec.Code)
		}
	})
}
