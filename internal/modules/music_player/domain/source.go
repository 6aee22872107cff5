package domain

// TrackSource is the platform Lavalink streamed a track from.
type TrackSource string

const (
	TrackSourceYouTube    TrackSource = "youtube"
	TrackSourceSoundCloud TrackSource = "soundcloud"
	TrackSourceBandcamp   TrackSource = "bandcamp"
	TrackSourceTwitch     TrackSource = "twitch"
	TrackSourceHTTP       TrackSource = "http"
	TrackSourceOther      TrackSource = "other"
)

var trackSourceLabels = map[TrackSource]string{
	TrackSourceYouTube:    "YouTube",
	TrackSourceSoundCloud: "SoundCloud",
	TrackSourceBandcamp:   "Bandcamp",
	TrackSourceTwitch:     "Twitch",
	TrackSourceHTTP:       "Direct link",
}

// ParseTrackSource maps a Lavalink source name onto a TrackSource.
// Unknown names, including plugin sources, become TrackSourceOther.
func ParseTrackSource(name string) TrackSource {
	source := TrackSource(name)
	if _, ok := trackSourceLabels[source]; ok {
		return source
	}
	return TrackSourceOther
}

// Label is the human readable platform name, empty for TrackSourceOther.
func (s TrackSource) Label() string {
	return trackSourceLabels[s]
}
