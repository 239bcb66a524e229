// Spotify Web API client.
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/mixtape/internal/shared"
)

const spotifyBaseURL = "https://api.spotify.com/v1"

// requestTimeout bounds every Resource API round trip.
const requestTimeout = 10 * time.Second

type followers struct {
	Total int `json:"total"`
}

// User represents a Spotify user profile.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Country     string    `json:"country"`
	Product     string    `json:"product"` // premium, free, etc.
	Followers   followers `json:"followers"`
	Images      []Image   `json:"images"`
}

// Image represents an image resource.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Artist represents a Spotify artist.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// Album represents a Spotify album.
type Album struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Artists     []Artist `json:"artists"`
	ReleaseDate string   `json:"release_date"`
	Images      []Image  `json:"images"`
	URI         string   `json:"uri"`
}

// Track represents a Spotify track.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []Artist `json:"artists"`
	Album      Album    `json:"album"`
	DurationMS int      `json:"duration_ms"`
	Explicit   bool     `json:"explicit"`
	Popularity int      `json:"popularity"`
	URI        string   `json:"uri"`
}

// PlaylistTrack represents a track within a playlist context.
type PlaylistTrack struct {
	AddedAt string `json:"added_at"`
	Track   Track  `json:"track"`
}

// AudioFeatures represents per-track audio analysis features.
type AudioFeatures struct {
	ID               string  `json:"id"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Key              int     `json:"key"`
	Loudness         float64 `json:"loudness"`
	Mode             int     `json:"mode"`
	Speechiness      float64 `json:"speechiness"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
	DurationMS       int     `json:"duration_ms"`
	TimeSignature    int     `json:"time_signature"`
	URI              string  `json:"uri"`
}

type owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type trackRef struct {
	Total int `json:"total"`
}

// Playlist represents a playlist object as returned by list endpoints.
type Playlist struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Owner       owner    `json:"owner"`
	Public      bool     `json:"public"`
	Tracks      trackRef `json:"tracks"`
	Images      []Image  `json:"images"`
	URI         string   `json:"uri"`
}

// PaginatedPlaylists represents a paginated response of playlists.
type PaginatedPlaylists struct {
	Items    []Playlist `json:"items"`
	Total    int        `json:"total"`
	Limit    int        `json:"limit"`
	Offset   int        `json:"offset"`
	Next     *string    `json:"next"`
	Previous *string    `json:"previous"`
}

type paginatedPlaylistTracks struct {
	Items []PlaylistTrack `json:"items"`
	Total int             `json:"total"`
	Next  *string         `json:"next"`
}

// PlayHistoryItem represents one recently played track.
type PlayHistoryItem struct {
	Track    Track  `json:"track"`
	PlayedAt string `json:"played_at"`
}

// Spotify is the Resource API client. It holds no credential of its own:
// every call takes the bearer token the auth gate resolved for the request.
type Spotify struct {
	baseURL    string
	httpClient *http.Client
}

// NewSpotify creates a Spotify client. A nil httpClient gets a default with
// a bounded timeout; baseURL is overridable for tests via [Spotify.SetBaseURL].
func NewSpotify(httpClient *http.Client) *Spotify {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}

	return &Spotify{
		baseURL:    spotifyBaseURL,
		httpClient: httpClient,
	}
}

// SetBaseURL overrides the API base URL. Used in tests to point at a local fake.
func (s *Spotify) SetBaseURL(baseURL string) {
	s.baseURL = strings.TrimSuffix(baseURL, "/")
}

// do performs an authenticated request against the API.
//
// A 401 response surfaces as [shared.ErrUnauthorized]: evidence the credential
// was invalid despite passing the expiry check, so the caller must restart
// the authorize flow.
func (s *Spotify) do(ctx context.Context, token, method, endpoint string, body, result any) error {
	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: status 401", shared.ErrUnauthorized)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: status 404", shared.ErrPlaylistNotFound)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
		}
	}

	return nil
}

// Profile retrieves the authenticated user's profile.
func (s *Spotify) Profile(ctx context.Context, token string) (*User, error) {
	var user User
	if err := s.do(ctx, token, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// RecentlyPlayed retrieves the user's recently played tracks.
func (s *Spotify) RecentlyPlayed(ctx context.Context, token string, limit int) ([]PlayHistoryItem, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	var response struct {
		Items []PlayHistoryItem `json:"items"`
	}

	endpoint := fmt.Sprintf("/me/player/recently-played?limit=%d", limit)
	if err := s.do(ctx, token, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	return response.Items, nil
}

// Playlists retrieves one page of the user's playlists.
func (s *Spotify) Playlists(ctx context.Context, token string, limit, offset int) (*PaginatedPlaylists, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", limit, offset)

	var response PaginatedPlaylists
	if err := s.do(ctx, token, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// AllPlaylists retrieves every playlist for the user, following pagination.
func (s *Spotify) AllPlaylists(ctx context.Context, token string) ([]Playlist, error) {
	var all []Playlist
	limit := 50
	offset := 0

	for {
		response, err := s.Playlists(ctx, token, limit, offset)
		if err != nil {
			return nil, err
		}

		all = append(all, response.Items...)

		if response.Next == nil {
			break
		}
		offset += limit
	}

	return all, nil
}

// PlaylistTracks retrieves all tracks of a playlist, following pagination.
func (s *Spotify) PlaylistTracks(ctx context.Context, token, playlistID string) ([]PlaylistTrack, error) {
	var all []PlaylistTrack
	limit := 100
	offset := 0

	for {
		endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", url.PathEscape(playlistID), limit, offset)

		var response paginatedPlaylistTracks
		if err := s.do(ctx, token, http.MethodGet, endpoint, nil, &response); err != nil {
			return nil, err
		}

		all = append(all, response.Items...)

		if response.Next == nil {
			break
		}
		offset += limit
	}

	return all, nil
}

// AudioFeatures retrieves audio features for up to 100 tracks. Tracks the API
// has no analysis for come back as nil entries, mirroring the upstream shape.
func (s *Spotify) AudioFeatures(ctx context.Context, token string, trackIDs []string) ([]*AudioFeatures, error) {
	if len(trackIDs) == 0 {
		return nil, fmt.Errorf("%w: no track IDs provided", shared.ErrInvalidInput)
	}
	if len(trackIDs) > 100 {
		return nil, fmt.Errorf("%w: maximum 100 track IDs allowed", shared.ErrInvalidInput)
	}

	ids := strings.Join(trackIDs, ",")
	endpoint := fmt.Sprintf("/audio-features?ids=%s", url.QueryEscape(ids))

	var response struct {
		AudioFeatures []*AudioFeatures `json:"audio_features"`
	}

	if err := s.do(ctx, token, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	return response.AudioFeatures, nil
}

// CreatePlaylist creates an empty playlist for the given user.
func (s *Spotify) CreatePlaylist(ctx context.Context, token, userID, name string, public bool) (*Playlist, error) {
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))

	body := map[string]any{
		"name":   name,
		"public": public,
	}

	var playlist Playlist
	if err := s.do(ctx, token, http.MethodPost, endpoint, body, &playlist); err != nil {
		return nil, err
	}

	return &playlist, nil
}

// AddTracks appends track URIs to a playlist, batching per the API's 100-URI limit.
func (s *Spotify) AddTracks(ctx context.Context, token, playlistID string, uris []string) error {
	if len(uris) == 0 {
		return fmt.Errorf("%w: no track URIs provided", shared.ErrInvalidInput)
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))

	for start := 0; start < len(uris); start += 100 {
		end := min(start+100, len(uris))

		body := map[string]any{"uris": uris[start:end]}
		if err := s.do(ctx, token, http.MethodPost, endpoint, body, nil); err != nil {
			return err
		}
	}

	return nil
}
