package ports

import (
	"context"
	"strings"
	"time"

	"github.com/sglre6355/ascend/internal/modules/music_player/domain"
)

// CatalogTrack is track metadata from an external catalog.
// It carries no audio and must be resolved to a playable track.
type CatalogTrack struct {
	Title    string
	Artists  []string
	Duration time.Duration
}

// SearchTerm returns the text used to look the track up on a playable source.
func (t CatalogTrack) SearchTerm() string {
	if len(t.Artists) == 0 {
		return t.Title
	}
	return strings.Join(t.Artists, " ") + " - " + t.Title
}

// CatalogCollection is the expansion of a catalog link.
type CatalogCollection struct {
	Name   string
	Tracks []CatalogTrack
	// Total is the size of the source collection, which may exceed len(Tracks).
	Total int
}

// SpotifyCatalog looks up Spotify metadata.
type SpotifyCatalog interface {
	// Enabled reports whether credentials are configured.
	Enabled() bool

	// Expand returns up to limit tracks for a track, album or playlist link.
	Expand(ctx context.Context, link domain.SpotifyLink, limit int) (*CatalogCollection, error)
}
