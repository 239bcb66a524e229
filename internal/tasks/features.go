// package tasks implements multi-playlist track collection with audio
// features merged per track.
//
// The core abstraction is FeatureEngine, which fans playlist fetches out over
// a worker pool, resolves audio features through a read-through cache, and
// flattens results in request order. API calls are rate limited so bulk
// requests stay inside the Resource API's quota.
package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/time/rate"
)

// API is the slice of the Resource API client the engine needs.
type API interface {
	PlaylistTracks(ctx context.Context, token, playlistID string) ([]services.PlaylistTrack, error)
	AudioFeatures(ctx context.Context, token string, trackIDs []string) ([]*services.AudioFeatures, error)
}

// FeatureCache is a read-through cache of audio features keyed by track id.
// Get returns (nil, nil) on a miss.
type FeatureCache interface {
	Get(ctx context.Context, trackID string) (*services.AudioFeatures, error)
	Put(ctx context.Context, features services.AudioFeatures) error
}

// TrackWithFeatures is the shaped response track: the playlist track merged
// with its audio features. Market and external-id noise from the raw API
// payload is not carried.
type TrackWithFeatures struct {
	services.Track
	AudioFeatures *services.AudioFeatures `json:"audio_features"`
}

// FeatureEngine collects tracks with features across playlists concurrently.
type FeatureEngine struct {
	api     API
	cache   FeatureCache
	limiter *rate.Limiter
	workers int
	logger  *log.Logger
}

// NewFeatureEngine creates a FeatureEngine. The cache may be nil, in which
// case every feature lookup goes to the API.
func NewFeatureEngine(api API, cache FeatureCache, cfg shared.FeaturesConfig, logger *log.Logger) *FeatureEngine {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	if workers > 10 {
		workers = 10
	}

	rps := cfg.RateLimit
	if rps <= 0 {
		rps = 5.0
	}

	return &FeatureEngine{
		api:     api,
		cache:   cache,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		workers: workers,
		logger:  logger,
	}
}

type playlistJob struct {
	index      int
	playlistID string
}

type playlistResult struct {
	index  int
	tracks []TrackWithFeatures
	err    error
}

// CollectTracks fetches every track of every given playlist with audio
// features attached, flattened in the order the playlist ids were given.
//
// Any playlist failure fails the whole collection, matching the all-or-nothing
// response contract of the playlist-tracks endpoint.
func (e *FeatureEngine) CollectTracks(ctx context.Context, token string, playlistIDs []string) ([]TrackWithFeatures, error) {
	if len(playlistIDs) == 0 {
		return nil, fmt.Errorf("%w: no playlist IDs provided", shared.ErrMissingArgument)
	}

	jobs := make(chan playlistJob, len(playlistIDs))
	results := make(chan playlistResult, len(playlistIDs))

	workers := min(e.workers, len(playlistIDs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				tracks, err := e.collectPlaylist(ctx, token, job.playlistID)
				results <- playlistResult{index: job.index, tracks: tracks, err: err}
			}
		}()
	}

	for i, id := range playlistIDs {
		jobs <- playlistJob{index: i, playlistID: id}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([][]TrackWithFeatures, len(playlistIDs))
	for res := range results {
		if res.err != nil {
			return nil, fmt.Errorf("playlist %s: %w", playlistIDs[res.index], res.err)
		}
		ordered[res.index] = res.tracks
	}

	var all []TrackWithFeatures
	for _, tracks := range ordered {
		all = append(all, tracks...)
	}

	e.logger.Info("collected tracks", "playlists", len(playlistIDs), "tracks", len(all))
	return all, nil
}

// collectPlaylist fetches one playlist's tracks and attaches features.
func (e *FeatureEngine) collectPlaylist(ctx context.Context, token, playlistID string) ([]TrackWithFeatures, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	items, err := e.api.PlaylistTracks(ctx, token, playlistID)
	if err != nil {
		return nil, err
	}

	tracks := make([]TrackWithFeatures, 0, len(items))
	for _, item := range items {
		// Local-file and removed entries come back without an id
		if item.Track.ID == "" {
			continue
		}
		tracks = append(tracks, TrackWithFeatures{Track: item.Track})
	}

	features, err := e.resolveFeatures(ctx, token, tracks)
	if err != nil {
		return nil, err
	}

	for i := range tracks {
		tracks[i].AudioFeatures = features[tracks[i].ID]
	}

	return tracks, nil
}

// resolveFeatures returns features for the given tracks, hitting the cache
// first and batch-fetching the rest from the API.
func (e *FeatureEngine) resolveFeatures(ctx context.Context, token string, tracks []TrackWithFeatures) (map[string]*services.AudioFeatures, error) {
	features := make(map[string]*services.AudioFeatures, len(tracks))
	var missing []string

	for _, track := range tracks {
		if _, seen := features[track.ID]; seen {
			continue
		}

		if e.cache != nil {
			cached, err := e.cache.Get(ctx, track.ID)
			if err != nil {
				e.logger.Warn("feature cache read failed", "track", track.ID, "error", err)
			} else if cached != nil {
				features[track.ID] = cached
				continue
			}
		}

		features[track.ID] = nil
		missing = append(missing, track.ID)
	}

	for start := 0; start < len(missing); start += 100 {
		end := min(start+100, len(missing))

		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		fetched, err := e.api.AudioFeatures(ctx, token, missing[start:end])
		if err != nil {
			return nil, err
		}

		for _, f := range fetched {
			if f == nil {
				continue
			}
			features[f.ID] = f

			if e.cache != nil {
				if err := e.cache.Put(ctx, *f); err != nil {
					e.logger.Warn("feature cache write failed", "track", f.ID, "error", err)
				}
			}
		}
	}

	return features, nil
}
