package infrastructure

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sglre6355/ascend/internal/modules/music_player/application/ports"
	"github.com/sglre6355/ascend/internal/modules/music_player/domain"
	"github.com/sony/gobreaker"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Spotify caps page sizes at 50 for albums and 100 for playlists.
const (
	spotifyAlbumPageSize    = 50
	spotifyPlaylistPageSize = 100
)

// SpotifyConfig holds the client credentials used for catalog lookups.
type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	Market       string
}

// SpotifyCatalog looks up track metadata through the Spotify Web API.
// It only reads public catalog data and never acts on behalf of a user.
type SpotifyCatalog struct {
	client  *spotify.Client
	breaker *gobreaker.CircuitBreaker
	market  string
}

// NewSpotifyCatalog creates a catalog. Without credentials the catalog is disabled.
func NewSpotifyCatalog(ctx context.Context, config SpotifyConfig) *SpotifyCatalog {
	if config.ClientID == "" || config.ClientSecret == "" {
		slog.Info("spotify credentials not configured, spotify links are disabled")
		return &SpotifyCatalog{}
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = nil

	// The token source and the API client share the retrying transport.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, retryClient.StandardClient())
	credentials := &clientcredentials.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}

	breaker := gobreaker.NewCircuitBreaker(spotifyBreakerSettings())

	return &SpotifyCatalog{
		client:  spotify.New(credentials.Client(ctx)),
		breaker: breaker,
		market:  config.Market,
	}
}

func spotifyBreakerSettings() gobreaker.Settings {
	return gobreaker.Settings{
		Name:         "spotify-api",
		MaxRequests:  3,
		Interval:     10 * time.Second,
		Timeout:      30 * time.Second,
		IsSuccessful: spotifyCallSucceeded,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn(
				"circuit breaker changed state",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}
}

// spotifyCallSucceeded reports whether err leaves the API healthy. Client
// errors such as a mistyped or private link say nothing about the API and
// must not trip the breaker; rate limiting does.
func spotifyCallSucceeded(err error) bool {
	if err == nil {
		return true
	}
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		return isClientStatus(apiErr.Status)
	}
	var apiErrPtr *spotify.Error
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return isClientStatus(apiErrPtr.Status)
	}
	return false
}

func isClientStatus(status int) bool {
	return status >= 400 && status < 500 && status != 429
}

// Enabled reports whether credentials are configured.
func (c *SpotifyCatalog) Enabled() bool {
	return c != nil && c.client != nil
}

// Expand returns up to limit tracks for a track, album or playlist link.
func (c *SpotifyCatalog) Expand(
	ctx context.Context,
	link domain.SpotifyLink,
	limit int,
) (*ports.CatalogCollection, error) {
	if !c.Enabled() {
		return nil, errors.New("spotify catalog is disabled")
	}
	if limit <= 0 {
		limit = 1
	}

	switch link.Kind {
	case domain.SpotifyTrack:
		return c.expandTrack(ctx, spotify.ID(link.ID))
	case domain.SpotifyAlbum:
		return c.expandAlbum(ctx, spotify.ID(link.ID), limit)
	case domain.SpotifyPlaylist:
		return c.expandPlaylist(ctx, spotify.ID(link.ID), limit)
	default:
		return nil, errors.Newf("unsupported spotify link kind %q", link.Kind)
	}
}

func (c *SpotifyCatalog) expandTrack(ctx context.Context, id spotify.ID) (*ports.CatalogCollection, error) {
	var track *spotify.FullTrack
	err := c.execute(func() error {
		t, err := c.client.GetTrack(ctx, id, c.options()...)
		if err != nil {
			return err
		}
		track = t
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get spotify track %s", id)
	}

	return &ports.CatalogCollection{
		Name:   track.Name,
		Tracks: []ports.CatalogTrack{convertSimpleTrack(track.SimpleTrack)},
		Total:  1,
	}, nil
}

func (c *SpotifyCatalog) expandAlbum(
	ctx context.Context,
	id spotify.ID,
	limit int,
) (*ports.CatalogCollection, error) {
	var album *spotify.FullAlbum
	err := c.execute(func() error {
		a, err := c.client.GetAlbum(ctx, id, c.options()...)
		if err != nil {
			return err
		}
		album = a
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get spotify album %s", id)
	}

	collection := &ports.CatalogCollection{
		Name:  album.Name,
		Total: int(album.Tracks.Total),
	}
	for _, track := range album.Tracks.Tracks {
		if len(collection.Tracks) >= limit {
			return collection, nil
		}
		collection.Tracks = append(collection.Tracks, convertSimpleTrack(track))
	}

	for offset := len(album.Tracks.Tracks); len(collection.Tracks) < limit && offset < collection.Total; {
		var page *spotify.SimpleTrackPage
		err := c.execute(func() error {
			p, err := c.client.GetAlbumTracks(ctx, id, append(c.options(),
				spotify.Limit(spotifyAlbumPageSize),
				spotify.Offset(offset),
			)...)
			if err != nil {
				return err
			}
			page = p
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to get tracks of spotify album %s", id)
		}
		if len(page.Tracks) == 0 {
			break
		}
		for _, track := range page.Tracks {
			if len(collection.Tracks) >= limit {
				break
			}
			collection.Tracks = append(collection.Tracks, convertSimpleTrack(track))
		}
		offset += len(page.Tracks)
	}

	return collection, nil
}

func (c *SpotifyCatalog) expandPlaylist(
	ctx context.Context,
	id spotify.ID,
	limit int,
) (*ports.CatalogCollection, error) {
	var playlist *spotify.FullPlaylist
	err := c.execute(func() error {
		p, err := c.client.GetPlaylist(ctx, id, append(c.options(), spotify.Fields("name"))...)
		if err != nil {
			return err
		}
		playlist = p
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get spotify playlist %s", id)
	}

	collection := &ports.CatalogCollection{Name: playlist.Name}
	offset := 0
	for len(collection.Tracks) < limit {
		var page *spotify.PlaylistItemPage
		err := c.execute(func() error {
			p, err := c.client.GetPlaylistItems(ctx, id, append(c.options(),
				spotify.Limit(min(spotifyPlaylistPageSize, limit-len(collection.Tracks))),
				spotify.Offset(offset),
			)...)
			if err != nil {
				return err
			}
			page = p
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to get items of spotify playlist %s", id)
		}

		collection.Total = int(page.Total)
		// Episodes and local files carry no catalog track.
		for _, item := range page.Items {
			if item.Track.Track == nil || item.Track.Track.ID == "" {
				continue
			}
			collection.Tracks = append(collection.Tracks, convertSimpleTrack(item.Track.Track.SimpleTrack))
		}

		offset += len(page.Items)
		if len(page.Items) == 0 || offset >= collection.Total {
			break
		}
	}

	return collection, nil
}

func (c *SpotifyCatalog) options() []spotify.RequestOption {
	if c.market == "" {
		return nil
	}
	return []spotify.RequestOption{spotify.Market(c.market)}
}

// execute runs fn through the circuit breaker.
func (c *SpotifyCatalog) execute(fn func() error) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

func convertSimpleTrack(track spotify.SimpleTrack) ports.CatalogTrack {
	artists := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		artists = append(artists, artist.Name)
	}
	return ports.CatalogTrack{
		Title:    track.Name,
		Artists:  artists,
		Duration: time.Duration(track.Duration) * time.Millisecond,
	}
}

// Ensure SpotifyCatalog implements ports.SpotifyCatalog.
var _ ports.SpotifyCatalog = (*SpotifyCatalog)(nil)
