package ports

import (
	"context"

	"github.com/sglre6355/ascend/internal/modules/music_player/domain"
)

// TrackResolver turns a URL or a prefixed search such as "ytsearch:..." into playable tracks.
type TrackResolver interface {
	LoadTracks(ctx context.Context, query string) (*LoadResult, error)
}

// LoadResult is what a TrackResolver found for one query.
type LoadResult struct {
	Type         LoadType
	Tracks       []domain.Track
	PlaylistName string
}

// LoadType tells single tracks, playlists and search results apart.
type LoadType string

const (
	LoadTypeTrack    LoadType = "track"
	LoadTypePlaylist LoadType = "playlist"
	LoadTypeSearch   LoadType = "search"
	LoadTypeEmpty    LoadType = "empty"
	LoadTypeError    LoadType = "error"
)

// NowPlayingInfo is everything the "Now Playing" message shows.
type NowPlayingInfo struct {
	Entry       *domain.QueueEntry
	LoopMode    domain.LoopMode
	Shuffled    bool
	Autoplay    bool
	Paused      bool
	Volume      int
	QueueLength int
}
