package usecases

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/sglre6355/ascend/internal/modules/music_player/application/ports"
	"github.com/sglre6355/ascend/internal/modules/music_player/domain"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Spotify import defaults.
const (
	DefaultImportLimit       = 50
	DefaultImportConcurrency = 4
	DefaultImportRate        = 5
)

// ImportConfig bounds the expansion of catalog links.
type ImportConfig struct {
	// Limit is the maximum number of tracks imported from one link.
	Limit int
	// Concurrency is the maximum number of concurrent lookups.
	Concurrency int
	// Rate is the maximum number of lookups per second.
	Rate float64
}

// LoadTrackInput contains the input for the LoadTrack use case.
type LoadTrackInput struct {
	Query  string
	Source domain.SearchSource
}

// LoadTrackOutput contains the result of the LoadTrack use case.
type LoadTrackOutput struct {
	Tracks       []domain.Track
	IsPlaylist   bool
	PlaylistName string
	// Unresolved counts catalog tracks that matched no playable source.
	Unresolved int
}

// TrackLoaderService handles track loading operations.
type TrackLoaderService struct {
	trackResolver ports.TrackResolver
	catalog       ports.SpotifyCatalog
	config        ImportConfig
	limiter       *rate.Limiter
}

// NewTrackLoaderService creates a new TrackLoaderService. catalog may be nil.
func NewTrackLoaderService(
	trackResolver ports.TrackResolver,
	catalog ports.SpotifyCatalog,
	config ImportConfig,
) *TrackLoaderService {
	if config.Limit <= 0 {
		config.Limit = DefaultImportLimit
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultImportConcurrency
	}
	if config.Rate <= 0 {
		config.Rate = DefaultImportRate
	}
	return &TrackLoaderService{
		trackResolver: trackResolver,
		catalog:       catalog,
		config:        config,
		limiter:       rate.NewLimiter(rate.Limit(config.Rate), config.Concurrency),
	}
}

// LoadTrack resolves a query to playable tracks.
// Spotify links are expanded through the catalog and each track is matched
// against the fallback sources. A search yields its first result; a playlist
// URL yields all of its tracks.
func (s *TrackLoaderService) LoadTrack(
	ctx context.Context,
	input LoadTrackInput,
) (*LoadTrackOutput, error) {
	if link, ok := domain.ParseSpotifyLink(input.Query); ok {
		return s.loadSpotify(ctx, link)
	}

	query := domain.NewSearchQueryWithSource(input.Query, input.Source)
	if !query.IsValid() {
		return nil, ErrNoResults
	}

	result, err := s.trackResolver.LoadTracks(ctx, query.LavalinkQuery())
	if err != nil {
		return nil, err
	}

	if result.Type == ports.LoadTypeEmpty || result.Type == ports.LoadTypeError ||
		len(result.Tracks) == 0 {
		return nil, ErrNoResults
	}

	if result.Type == ports.LoadTypePlaylist {
		return &LoadTrackOutput{
			Tracks:       result.Tracks,
			IsPlaylist:   true,
			PlaylistName: result.PlaylistName,
		}, nil
	}

	return &LoadTrackOutput{Tracks: result.Tracks[:1]}, nil
}

func (s *TrackLoaderService) loadSpotify(
	ctx context.Context,
	link domain.SpotifyLink,
) (*LoadTrackOutput, error) {
	if s.catalog == nil || !s.catalog.Enabled() {
		return nil, ErrSpotifyUnavailable
	}

	collection, err := s.catalog.Expand(ctx, link, s.config.Limit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to expand spotify %s %s", link.Kind, link.ID)
	}
	if len(collection.Tracks) == 0 {
		return nil, ErrNoResults
	}

	resolved := make([]*domain.Track, len(collection.Tracks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)
	for i, catalogTrack := range collection.Tracks {
		g.Go(func() error {
			track, err := s.resolveCatalogTrack(gctx, catalogTrack)
			if err != nil {
				return err
			}
			resolved[i] = track
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &LoadTrackOutput{
		IsPlaylist:   link.Kind != domain.SpotifyTrack,
		PlaylistName: collection.Name,
	}
	for _, track := range resolved {
		if track == nil {
			out.Unresolved++
			continue
		}
		out.Tracks = append(out.Tracks, *track)
	}

	if len(out.Tracks) == 0 {
		return nil, ErrNoResults
	}

	slog.Info(
		"imported spotify tracks",
		"kind", link.Kind,
		"id", link.ID,
		"resolved", len(out.Tracks),
		"unresolved", out.Unresolved,
	)

	return out, nil
}

// resolveCatalogTrack tries each fallback source in turn and returns the first
// match, or nil when no source has one. Only context errors abort the import.
func (s *TrackLoaderService) resolveCatalogTrack(
	ctx context.Context,
	catalogTrack ports.CatalogTrack,
) (*domain.Track, error) {
	term := catalogTrack.SearchTerm()

	for _, source := range domain.FallbackSources {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		query := domain.NewSearchQueryWithSource(term, source)
		result, err := s.trackResolver.LoadTracks(ctx, query.LavalinkQuery())
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Debug("catalog track lookup failed", "track", term, "source", source, "error", err)
			continue
		}
		if len(result.Tracks) > 0 && result.Type != ports.LoadTypeError {
			track := result.Tracks[0]
			return &track, nil
		}
	}

	slog.Debug("catalog track has no playable match", "track", term)
	return nil, nil
}

// SearchTracksInput contains the input for the SearchTracks use case.
type SearchTracksInput struct {
	Query  string
	Source domain.SearchSource
	Limit  int
}

// SearchTracksOutput contains the result of the SearchTracks use case.
type SearchTracksOutput struct {
	Tracks []domain.Track
}

// SearchTracks searches for tracks matching the query.
func (s *TrackLoaderService) SearchTracks(
	ctx context.Context,
	input SearchTracksInput,
) (*SearchTracksOutput, error) {
	if input.Query == "" {
		return &SearchTracksOutput{Tracks: nil}, nil
	}

	query := domain.NewSearchQueryWithSource(input.Query, input.Source)
	result, err := s.trackResolver.LoadTracks(ctx, query.LavalinkQuery())
	if err != nil {
		return nil, err
	}

	if result.Type == ports.LoadTypeEmpty || result.Type == ports.LoadTypeError {
		return &SearchTracksOutput{Tracks: nil}, nil
	}

	limit := input.Limit
	if limit <= 0 || limit > len(result.Tracks) {
		limit = len(result.Tracks)
	}

	return &SearchTracksOutput{
		Tracks: result.Tracks[:limit],
	}, nil
}
