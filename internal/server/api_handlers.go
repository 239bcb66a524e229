package server

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/auth"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/tasks"
)

// ProfileHandler serves the authenticated user's profile and listening history.
type ProfileHandler struct {
	api    *services.Spotify
	logger *log.Logger
}

// NewProfileHandler creates the profile/recent-tracks handler.
func NewProfileHandler(api *services.Spotify, logger *log.Logger) *ProfileHandler {
	return &ProfileHandler{api: api, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *ProfileHandler) Routes() []string {
	return []string{"GET /profile", "GET /recent-tracks"}
}

func (h *ProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cred, ok := auth.Credential(r.Context())
	if !ok {
		auth.WriteError(w, auth.ErrUnauthenticated)
		return
	}

	switch r.URL.Path {
	case "/profile":
		h.profile(w, r, cred.AccessToken)
	case "/recent-tracks":
		h.recentTracks(w, r, cred.AccessToken)
	default:
		http.NotFound(w, r)
	}
}

func (h *ProfileHandler) profile(w http.ResponseWriter, r *http.Request, token string) {
	user, err := h.api.Profile(r.Context(), token)
	if err != nil {
		writeAPIError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *ProfileHandler) recentTracks(w http.ResponseWriter, r *http.Request, token string) {
	items, err := h.api.RecentlyPlayed(r.Context(), token, 10)
	if err != nil {
		writeAPIError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// PlaylistHandler serves playlist listing, track collection with audio
// features, and playlist creation.
type PlaylistHandler struct {
	api    *services.Spotify
	engine *tasks.FeatureEngine
	logger *log.Logger
}

// NewPlaylistHandler creates the playlist routes handler.
func NewPlaylistHandler(api *services.Spotify, engine *tasks.FeatureEngine, logger *log.Logger) *PlaylistHandler {
	return &PlaylistHandler{api: api, engine: engine, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *PlaylistHandler) Routes() []string {
	return []string{"GET /playlists", "POST /playlists", "GET /playlist-tracks"}
}

func (h *PlaylistHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cred, ok := auth.Credential(r.Context())
	if !ok {
		auth.WriteError(w, auth.ErrUnauthenticated)
		return
	}

	switch {
	case r.URL.Path == "/playlists" && r.Method == http.MethodGet:
		h.list(w, r, cred.AccessToken)
	case r.URL.Path == "/playlists" && r.Method == http.MethodPost:
		h.create(w, r, cred.AccessToken)
	case r.URL.Path == "/playlist-tracks":
		h.tracks(w, r, cred.AccessToken)
	default:
		http.NotFound(w, r)
	}
}

func (h *PlaylistHandler) list(w http.ResponseWriter, r *http.Request, token string) {
	playlists, err := h.api.AllPlaylists(r.Context(), token)
	if err != nil {
		writeAPIError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": playlists,
		"total": len(playlists),
	})
}

func (h *PlaylistHandler) tracks(w http.ResponseWriter, r *http.Request, token string) {
	playlistIDs := r.URL.Query()["playlist_ids"]
	if len(playlistIDs) == 0 {
		writeError(w, http.StatusBadRequest, "missing_playlist_ids")
		return
	}

	tracks, err := h.engine.CollectTracks(r.Context(), token, playlistIDs)
	if err != nil {
		writeAPIError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, tracks)
}

// createPlaylistRequest is the body for POST /playlists.
type createPlaylistRequest struct {
	Name   string `json:"name"`
	Public *bool  `json:"public"`
	Tracks []struct {
		URI string `json:"uri"`
	} `json:"tracks"`
}

func (h *PlaylistHandler) create(w http.ResponseWriter, r *http.Request, token string) {
	var req createPlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	if len(req.Tracks) == 0 {
		writeError(w, http.StatusBadRequest, "missing_tracks")
		return
	}

	uris := make([]string, 0, len(req.Tracks))
	for _, track := range req.Tracks {
		if track.URI == "" {
			writeError(w, http.StatusBadRequest, "missing_track_uri")
			return
		}
		uris = append(uris, track.URI)
	}

	if req.Name == "" {
		req.Name = "New Playlist"
	}
	public := true
	if req.Public != nil {
		public = *req.Public
	}

	ctx := r.Context()

	user, err := h.api.Profile(ctx, token)
	if err != nil {
		writeAPIError(w, h.logger, err)
		return
	}

	playlist, err := h.api.CreatePlaylist(ctx, token, user.ID, req.Name, public)
	if err != nil {
		writeAPIError(w, h.logger, err)
		return
	}

	if err := h.api.AddTracks(ctx, token, playlist.ID, uris); err != nil {
		writeAPIError(w, h.logger, err)
		return
	}

	h.logger.Info("playlist created", "id", playlist.ID, "tracks", len(uris))
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"id":      playlist.ID,
	})
}

// HealthHandler serves the liveness probe.
type HealthHandler struct{}

// Routes returns the HTTP routes this handler serves.
func (h *HealthHandler) Routes() []string {
	return []string{"GET /health"}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
