package domain

import (
	"strconv"
	"time"
)

// Track is an immutable reference to a playable audio resource.
// Copies are cheap and entries own their copy.
type Track struct {
	Encoded    string // Lavalink encoded track data
	Identifier string // Source specific identifier (e.g. YouTube video ID)
	Title      string
	Author     string
	Duration   time.Duration // zero for live streams
	URI        string
	ArtworkURL string
	SourceName string // e.g. "youtube", "soundcloud"
	IsStream   bool
}

// Source returns the parsed TrackSource for this track.
func (t Track) Source() TrackSource {
	return ParseTrackSource(t.SourceName)
}

// IsValid returns true if the track has the minimum required fields.
func (t Track) IsValid() bool {
	return t.Encoded != "" && t.Title != ""
}

// FormattedDuration returns the duration as a human-readable string (mm:ss or hh:mm:ss).
func (t Track) FormattedDuration() string {
	if t.IsStream {
		return "LIVE"
	}
	return FormatDuration(t.Duration)
}

// FormatDuration formats d as mm:ss, or hh:mm:ss when it spans an hour or more.
func FormatDuration(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return pad(hours) + ":" + pad(minutes) + ":" + pad(seconds)
	}
	return pad(minutes) + ":" + pad(seconds)
}

func pad(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
