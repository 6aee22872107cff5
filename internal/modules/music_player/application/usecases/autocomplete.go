package usecases

import (
	"context"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/ascend/internal/modules/music_player/application/ports"
	"github.com/sglre6355/ascend/internal/modules/music_player/domain"
)

// DefaultAutocompleteLimit leaves room for a "whole playlist" choice in Discord's 25-choice limit.
const DefaultAutocompleteLimit = 24

// GetQueueEntriesInput contains the input for the GetQueueEntries use case.
type GetQueueEntriesInput struct {
	GuildID snowflake.ID
}

// GetQueueEntriesOutput contains the output for the GetQueueEntries use case.
type GetQueueEntriesOutput struct {
	Current *domain.QueueEntry
	Entries []*domain.QueueEntry
}

// AutocompleteService handles autocomplete-related operations.
type AutocompleteService struct {
	repo        domain.PlayerStateRepository
	trackLoader ports.TrackResolver
	savedQueues ports.SavedQueueStore
}

// NewAutocompleteService creates a new AutocompleteService. savedQueues may be nil.
func NewAutocompleteService(
	repo domain.PlayerStateRepository,
	trackLoader ports.TrackResolver,
	savedQueues ports.SavedQueueStore,
) *AutocompleteService {
	return &AutocompleteService{
		repo:        repo,
		trackLoader: trackLoader,
		savedQueues: savedQueues,
	}
}

// GetQueueEntries returns the queue for autocomplete suggestions.
func (s *AutocompleteService) GetQueueEntries(
	ctx context.Context,
	input GetQueueEntriesInput,
) *GetQueueEntriesOutput {
	state, err := s.repo.Get(ctx, input.GuildID)
	if err != nil {
		return &GetQueueEntriesOutput{}
	}

	snapshot := state.Queue.Snapshot()
	return &GetQueueEntriesOutput{
		Current: snapshot.Current,
		Entries: snapshot.Entries,
	}
}

// SavedQueueNames returns saved queue names of the guild starting with prefix, ignoring case.
func (s *AutocompleteService) SavedQueueNames(
	ctx context.Context,
	guildID snowflake.ID,
	prefix string,
) ([]string, error) {
	if s.savedQueues == nil {
		return nil, nil
	}

	summaries, err := s.savedQueues.ListQueues(ctx, guildID)
	if err != nil {
		return nil, err
	}

	prefix = strings.ToLower(prefix)
	var names []string
	for _, summary := range summaries {
		if strings.HasPrefix(strings.ToLower(summary.Name), prefix) {
			names = append(names, summary.Name)
		}
	}
	return names, nil
}

// LoadTracksForAutocompleteInput contains the input for playlist-aware autocomplete.
type LoadTracksForAutocompleteInput struct {
	Query  string
	Source domain.SearchSource
	Limit  int // Max individual tracks to return (default 24, leaving room for playlist option)
}

// LoadTracksForAutocompleteOutput contains the result for playlist-aware autocomplete.
type LoadTracksForAutocompleteOutput struct {
	IsPlaylist   bool
	PlaylistName string
	PlaylistURL  string         // Original URL for "add all" option
	TrackCount   int            // Total tracks in playlist
	Tracks       []domain.Track // Individual tracks (limited)
}

// LoadTracksForAutocomplete loads tracks for autocomplete, with special handling for playlists.
// For playlists, returns playlist metadata and a limited list of individual tracks.
// Spotify links are not expanded here; they are offered as a single "import" choice.
func (s *AutocompleteService) LoadTracksForAutocomplete(
	ctx context.Context,
	input LoadTracksForAutocompleteInput,
) (*LoadTracksForAutocompleteOutput, error) {
	if s.trackLoader == nil || strings.TrimSpace(input.Query) == "" {
		return &LoadTracksForAutocompleteOutput{}, nil
	}

	if link, ok := domain.ParseSpotifyLink(input.Query); ok {
		return &LoadTracksForAutocompleteOutput{
			IsPlaylist:   link.Kind != domain.SpotifyTrack,
			PlaylistName: "Spotify " + string(link.Kind),
			PlaylistURL:  input.Query,
		}, nil
	}

	query := domain.NewSearchQueryWithSource(input.Query, input.Source)
	result, err := s.trackLoader.LoadTracks(ctx, query.LavalinkQuery())
	if err != nil {
		return nil, err
	}

	if result.Type == ports.LoadTypeEmpty || result.Type == ports.LoadTypeError ||
		len(result.Tracks) == 0 {
		return &LoadTracksForAutocompleteOutput{}, nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultAutocompleteLimit
	}

	tracks := result.Tracks
	if len(tracks) > limit {
		tracks = tracks[:limit]
	}

	return &LoadTracksForAutocompleteOutput{
		IsPlaylist:   result.Type == ports.LoadTypePlaylist,
		PlaylistName: result.PlaylistName,
		PlaylistURL:  input.Query,
		TrackCount:   len(result.Tracks),
		Tracks:       tracks,
	}, nil
}
