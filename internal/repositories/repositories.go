// package repositories provides the SQLite persistence layer.
//
// The playlist service persists no user playlists (those stay in Spotify);
// the only durable state besides sessions is the audio-feature cache, which
// saves repeat Resource API calls for tracks already analyzed.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/mixtape/internal/services"
)

// FeatureRepository caches audio-feature payloads by track id.
type FeatureRepository struct {
	db *sql.DB
}

// NewFeatureRepository creates a FeatureRepository with the given database connection.
func NewFeatureRepository(db *sql.DB) *FeatureRepository {
	return &FeatureRepository{db: db}
}

// Get retrieves cached features for a track. Returns (nil, nil) on a miss.
func (r *FeatureRepository) Get(ctx context.Context, trackID string) (*services.AudioFeatures, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, "SELECT payload FROM feature_cache WHERE track_id = ?", trackID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query feature cache: %w", err)
	}

	var features services.AudioFeatures
	if err := json.Unmarshal(payload, &features); err != nil {
		return nil, fmt.Errorf("failed to decode cached features: %w", err)
	}

	return &features, nil
}

// Put caches features for a track.
// Returns nil if the track is already cached (deduplication); only actual
// failures surface as errors, not constraint violations.
func (r *FeatureRepository) Put(ctx context.Context, features services.AudioFeatures) error {
	if features.ID == "" {
		return fmt.Errorf("cannot cache features without a track id")
	}

	payload, err := json.Marshal(features)
	if err != nil {
		return fmt.Errorf("failed to encode features: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO feature_cache (track_id, payload, cached_at) VALUES (?, ?, ?)",
		features.ID, payload, time.Now())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil
		}
		return fmt.Errorf("failed to cache features: %w", err)
	}

	return nil
}
