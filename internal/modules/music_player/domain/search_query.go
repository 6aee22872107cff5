package domain

import (
	"net/url"
	"strings"
)

// SearchSource represents the source for searching tracks.
type SearchSource string

const (
	// SourceYouTube searches YouTube.
	SourceYouTube SearchSource = "ytsearch"
	// SourceYouTubeMusic searches YouTube Music.
	SourceYouTubeMusic SearchSource = "ytmsearch"
	// SourceSoundCloud searches SoundCloud.
	SourceSoundCloud SearchSource = "scsearch"
	// SourceDirect indicates a direct URL (no search prefix).
	SourceDirect SearchSource = ""
)

// FallbackSources is the order sources are tried in when matching a track
// found elsewhere (e.g. on Spotify) to something playable.
var FallbackSources = []SearchSource{SourceSoundCloud, SourceYouTubeMusic, SourceYouTube}

// ParseSearchSource converts a user facing source name to a SearchSource.
// Unknown names fall back to YouTube.
func ParseSearchSource(name string) SearchSource {
	switch strings.ToLower(name) {
	case "youtubemusic", "ytm", string(SourceYouTubeMusic):
		return SourceYouTubeMusic
	case "soundcloud", "sc", string(SourceSoundCloud):
		return SourceSoundCloud
	default:
		return SourceYouTube
	}
}

// SearchQuery represents a query for searching tracks.
type SearchQuery struct {
	Query  string       // The search term or URL
	Source SearchSource // The search source
	IsURL  bool         // Whether the query is a direct URL
}

// NewSearchQuery creates a SearchQuery from user input.
// If the input is a URL, it returns a direct query.
// Otherwise, it uses YouTube search as the default.
func NewSearchQuery(input string) *SearchQuery {
	return NewSearchQueryWithSource(input, SourceYouTube)
}

// NewSearchQueryWithSource creates a SearchQuery with a specific source.
func NewSearchQueryWithSource(input string, source SearchSource) *SearchQuery {
	input = strings.TrimSpace(input)

	if isURL(input) {
		return &SearchQuery{
			Query:  input,
			Source: SourceDirect,
			IsURL:  true,
		}
	}

	if source == SourceDirect {
		source = SourceYouTube
	}

	return &SearchQuery{
		Query:  input,
		Source: source,
		IsURL:  false,
	}
}

// LavalinkQuery returns the query string formatted for Lavalink.
func (q *SearchQuery) LavalinkQuery() string {
	if q.IsURL {
		return q.Query
	}
	return string(q.Source) + ":" + q.Query
}

// IsValid returns true if the query is not empty.
func (q *SearchQuery) IsValid() bool {
	return q.Query != ""
}

// isURL checks if the input looks like a URL.
func isURL(input string) bool {
	return strings.HasPrefix(input, "http://") ||
		strings.HasPrefix(input, "https://") ||
		strings.HasPrefix(input, "www.")
}

// SpotifyLinkKind is the kind of Spotify resource a link points at.
type SpotifyLinkKind string

const (
	SpotifyTrack    SpotifyLinkKind = "track"
	SpotifyAlbum    SpotifyLinkKind = "album"
	SpotifyPlaylist SpotifyLinkKind = "playlist"
)

// SpotifyLink identifies a Spotify track, album or playlist.
type SpotifyLink struct {
	Kind SpotifyLinkKind
	ID   string
}

// ParseSpotifyLink parses open.spotify.com URLs (including intl-xx paths)
// and spotify:kind:id URIs.
func ParseSpotifyLink(input string) (SpotifyLink, bool) {
	input = strings.TrimSpace(input)

	if rest, ok := strings.CutPrefix(input, "spotify:"); ok {
		kind, id, found := strings.Cut(rest, ":")
		if !found {
			return SpotifyLink{}, false
		}
		return newSpotifyLink(kind, id)
	}

	if strings.HasPrefix(input, "open.spotify.com") {
		input = "https://" + input
	}
	u, err := url.Parse(input)
	if err != nil || u.Host != "open.spotify.com" {
		return SpotifyLink{}, false
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) > 0 && strings.HasPrefix(parts[0], "intl-") {
		parts = parts[1:]
	}
	if len(parts) < 2 {
		return SpotifyLink{}, false
	}
	return newSpotifyLink(parts[0], parts[1])
}

// IsSpotifyURL returns true if input is a Spotify track, album or playlist link.
func IsSpotifyURL(input string) bool {
	_, ok := ParseSpotifyLink(input)
	return ok
}

func newSpotifyLink(kind, id string) (SpotifyLink, bool) {
	if id == "" {
		return SpotifyLink{}, false
	}
	switch k := SpotifyLinkKind(kind); k {
	case SpotifyTrack, SpotifyAlbum, SpotifyPlaylist:
		return SpotifyLink{Kind: k, ID: id}, true
	default:
		return SpotifyLink{}, false
	}
}
