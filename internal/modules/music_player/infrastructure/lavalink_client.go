package infrastructure

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/ascend/internal/modules/music_player/application/ports"
	"github.com/sglre6355/ascend/internal/modules/music_player/domain"
)

// voiceConnectionTimeout is the maximum time to wait for voice connection to be established.
const voiceConnectionTimeout = 10 * time.Second

// ErrNoLavalinkNode is returned when no Lavalink node is available.
var ErrNoLavalinkNode = errors.New("no available Lavalink node")

// LavalinkConfig contains Lavalink connection configuration.
type LavalinkConfig struct {
	NodeName string
	Address  string
	Password string
	Secure   bool
}

// LavalinkAdapter wraps DisGoLink to implement the audio, voice and track
// resolution ports. Track end events are published as domain.TrackEndedEvent.
type LavalinkAdapter struct {
	link      disgolink.Client
	session   *discordgo.Session
	botID     snowflake.ID
	voice     *voiceHandshakes
	publisher ports.EventPublisher
}

// NewLavalinkAdapter creates a new LavalinkAdapter and connects to the configured node.
func NewLavalinkAdapter(
	ctx context.Context,
	session *discordgo.Session,
	config LavalinkConfig,
	publisher ports.EventPublisher,
) (*LavalinkAdapter, error) {
	botID, err := snowflake.Parse(session.State.User.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse bot ID")
	}

	adapter := &LavalinkAdapter{
		session:   session,
		botID:     botID,
		publisher: publisher,
	}

	adapter.link = disgolink.New(botID,
		disgolink.WithListenerFunc(adapter.onTrackStart),
		disgolink.WithListenerFunc(adapter.onTrackEnd),
		disgolink.WithListenerFunc(adapter.onTrackException),
		disgolink.WithListenerFunc(adapter.onTrackStuck),
	)
	adapter.voice = newVoiceHandshakes(
		func(guildID snowflake.ID, channelID *snowflake.ID, sessionID string) {
			adapter.link.OnVoiceStateUpdate(context.Background(), guildID, channelID, sessionID)
		},
		func(guildID snowflake.ID, token, endpoint string) {
			adapter.link.OnVoiceServerUpdate(context.Background(), guildID, token, endpoint)
		},
	)

	if config.NodeName == "" {
		config.NodeName = "main"
	}
	node, err := adapter.link.AddNode(ctx, disgolink.NodeConfig{
		Name:     config.NodeName,
		Address:  config.Address,
		Password: config.Password,
		Secure:   config.Secure,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to add Lavalink node %q", config.NodeName)
	}

	slog.Info("connected to Lavalink", "node", node.Config().Name, "address", config.Address)

	return adapter, nil
}

// Close disconnects from all Lavalink nodes.
func (c *LavalinkAdapter) Close() {
	c.link.Close()
}

// JoinChannel connects to a voice channel.
// It waits until Lavalink has received the voice connection details.
func (c *LavalinkAdapter) JoinChannel(ctx context.Context, guildID, channelID snowflake.ID) error {
	ready := c.voice.await(guildID)

	err := c.session.ChannelVoiceJoinManual(guildID.String(), channelID.String(), false, true)
	if err != nil {
		c.voice.abandon(guildID)
		return errors.Wrap(err, "failed to join voice channel")
	}

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		c.voice.abandon(guildID)
		return errors.Wrap(ctx.Err(), "context cancelled while waiting for voice connection")
	case <-time.After(voiceConnectionTimeout):
		c.voice.abandon(guildID)
		return errors.New("timeout waiting for voice connection")
	}
}

// LeaveChannel destroys the player and disconnects from the voice channel.
func (c *LavalinkAdapter) LeaveChannel(ctx context.Context, guildID snowflake.ID) error {
	if player := c.link.ExistingPlayer(guildID); player != nil {
		if err := player.Destroy(ctx); err != nil {
			slog.Warn("failed to destroy player", "guild", guildID, "error", err)
		}
	}

	err := c.session.ChannelVoiceJoinManual(guildID.String(), "", false, false)
	if err != nil {
		return errors.Wrap(err, "failed to leave voice channel")
	}
	return nil
}

// Play starts playing a track, replacing the current one.
func (c *LavalinkAdapter) Play(ctx context.Context, guildID snowflake.ID, track domain.Track) error {
	// WithEncodedTrack avoids sending userData:null.
	if err := c.update(ctx, guildID, lavalink.WithEncodedTrack(track.Encoded)); err != nil {
		return errors.Wrap(err, "failed to play track")
	}
	return nil
}

// Stop stops the current playback.
func (c *LavalinkAdapter) Stop(ctx context.Context, guildID snowflake.ID) error {
	if err := c.update(ctx, guildID, lavalink.WithNullTrack()); err != nil {
		return errors.Wrap(err, "failed to stop playback")
	}
	return nil
}

// Pause pauses the current playback.
func (c *LavalinkAdapter) Pause(ctx context.Context, guildID snowflake.ID) error {
	if err := c.update(ctx, guildID, lavalink.WithPaused(true)); err != nil {
		return errors.Wrap(err, "failed to pause playback")
	}
	return nil
}

// Resume resumes the current playback.
func (c *LavalinkAdapter) Resume(ctx context.Context, guildID snowflake.ID) error {
	if err := c.update(ctx, guildID, lavalink.WithPaused(false)); err != nil {
		return errors.Wrap(err, "failed to resume playback")
	}
	return nil
}

// Seek moves the playback position of the current track.
func (c *LavalinkAdapter) Seek(ctx context.Context, guildID snowflake.ID, position time.Duration) error {
	if err := c.update(ctx, guildID, lavalink.WithPosition(toLavalinkDuration(position))); err != nil {
		return errors.Wrap(err, "failed to seek")
	}
	return nil
}

// SetVolume sets the player volume in percent.
func (c *LavalinkAdapter) SetVolume(ctx context.Context, guildID snowflake.ID, volume int) error {
	if err := c.update(ctx, guildID, lavalink.WithVolume(volume)); err != nil {
		return errors.Wrap(err, "failed to set volume")
	}
	return nil
}

// Position returns the playback position of the current track, or 0 without a player.
func (c *LavalinkAdapter) Position(guildID snowflake.ID) time.Duration {
	player := c.link.ExistingPlayer(guildID)
	if player == nil {
		return 0
	}
	return fromLavalinkDuration(player.Position())
}

func (c *LavalinkAdapter) update(
	ctx context.Context,
	guildID snowflake.ID,
	opts ...lavalink.PlayerUpdateOpt,
) error {
	return c.link.Player(guildID).Update(ctx, opts...)
}

// LoadTracks loads tracks from Lavalink.
func (c *LavalinkAdapter) LoadTracks(ctx context.Context, query string) (*ports.LoadResult, error) {
	node := c.link.BestNode()
	if node == nil {
		return nil, ErrNoLavalinkNode
	}

	result, err := node.LoadTracks(ctx, query)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load tracks for %q", query)
	}

	return convertLoadResult(result), nil
}

// convertLoadResult converts a Lavalink result to the ports result.
func convertLoadResult(result *lavalink.LoadResult) *ports.LoadResult {
	switch data := result.Data.(type) {
	case lavalink.Track:
		return &ports.LoadResult{
			Type:   ports.LoadTypeTrack,
			Tracks: []domain.Track{convertTrack(data)},
		}

	case lavalink.Playlist:
		return &ports.LoadResult{
			Type:         ports.LoadTypePlaylist,
			Tracks:       convertTracks(data.Tracks),
			PlaylistName: data.Info.Name,
		}

	case lavalink.Search:
		return &ports.LoadResult{
			Type:   ports.LoadTypeSearch,
			Tracks: convertTracks(data),
		}

	case lavalink.Exception:
		slog.Warn("lavalink failed to load tracks", "severity", data.Severity, "error", data.Message)
		return &ports.LoadResult{Type: ports.LoadTypeError}

	default:
		return &ports.LoadResult{Type: ports.LoadTypeEmpty}
	}
}

func convertTracks(tracks []lavalink.Track) []domain.Track {
	out := make([]domain.Track, len(tracks))
	for i, track := range tracks {
		out[i] = convertTrack(track)
	}
	return out
}

func convertTrack(track lavalink.Track) domain.Track {
	info := track.Info
	return domain.Track{
		Encoded:    track.Encoded,
		Identifier: info.Identifier,
		Title:      info.Title,
		Author:     info.Author,
		Duration:   fromLavalinkDuration(info.Length),
		URI:        deref(info.URI),
		ArtworkURL: deref(info.ArtworkURL),
		SourceName: info.SourceName,
		IsStream:   info.IsStream,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func fromLavalinkDuration(d lavalink.Duration) time.Duration {
	return time.Duration(d) * time.Millisecond
}

func toLavalinkDuration(d time.Duration) lavalink.Duration {
	return lavalink.Duration(d.Milliseconds())
}

// OnVoiceServerUpdate handles Discord voice server updates.
// This must be called from the Discord event handler.
func (c *LavalinkAdapter) OnVoiceServerUpdate(event *discordgo.VoiceServerUpdate) {
	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice server update", "error", err)
		return
	}

	c.voice.onServer(guildID, event.Token, event.Endpoint)
}

// OnVoiceStateUpdate handles Discord voice state updates of the bot itself.
// This must be called from the Discord event handler.
func (c *LavalinkAdapter) OnVoiceStateUpdate(event *discordgo.VoiceStateUpdate) {
	if event.UserID != c.botID.String() {
		return
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice state update", "error", err)
		return
	}

	// An empty channel means the bot disconnected.
	var channelID *snowflake.ID
	if event.ChannelID != "" {
		id, err := snowflake.Parse(event.ChannelID)
		if err != nil {
			slog.Error("failed to parse channel ID in voice state update", "error", err)
			return
		}
		channelID = &id
	}

	c.voice.onState(guildID, channelID, event.SessionID)
}

func (c *LavalinkAdapter) onTrackStart(player disgolink.Player, event lavalink.TrackStartEvent) {
	slog.Debug("track started", "guild", player.GuildID(), "track", event.Track.Info.Title)
}

func (c *LavalinkAdapter) onTrackEnd(player disgolink.Player, event lavalink.TrackEndEvent) {
	slog.Debug("track ended", "guild", player.GuildID(), "reason", event.Reason)
	c.publishTrackEnded(player.GuildID(), convertEndReason(event.Reason))
}

func (c *LavalinkAdapter) onTrackException(
	player disgolink.Player,
	event lavalink.TrackExceptionEvent,
) {
	// Lavalink follows an exception with a load_failed track end.
	slog.Warn(
		"track exception",
		"guild", player.GuildID(),
		"track", event.Track.Info.Title,
		"error", event.Exception.Message,
	)
}

func (c *LavalinkAdapter) onTrackStuck(player disgolink.Player, event lavalink.TrackStuckEvent) {
	slog.Warn(
		"track stuck, skipping",
		"guild", player.GuildID(),
		"track", event.Track.Info.Title,
		"threshold", fromLavalinkDuration(event.Threshold),
	)
	c.publishTrackEnded(player.GuildID(), domain.TrackEndLoadFailed)
}

func (c *LavalinkAdapter) publishTrackEnded(guildID snowflake.ID, reason domain.TrackEndReason) {
	if c.publisher == nil {
		return
	}
	err := c.publisher.Publish(domain.TrackEndedEvent{GuildID: guildID, Reason: reason})
	if err != nil {
		slog.Warn("failed to publish track ended event", "guild", guildID, "error", err)
	}
}

func convertEndReason(reason lavalink.TrackEndReason) domain.TrackEndReason {
	switch reason {
	case lavalink.TrackEndReasonFinished:
		return domain.TrackEndFinished
	case lavalink.TrackEndReasonLoadFailed:
		return domain.TrackEndLoadFailed
	case lavalink.TrackEndReasonStopped:
		return domain.TrackEndStopped
	case lavalink.TrackEndReasonReplaced:
		return domain.TrackEndReplaced
	case lavalink.TrackEndReasonCleanup:
		return domain.TrackEndCleanup
	default:
		return domain.TrackEndStopped
	}
}

// Ensure LavalinkAdapter implements port interfaces.
var (
	_ ports.AudioPlayer     = (*LavalinkAdapter)(nil)
	_ ports.VoiceConnection = (*LavalinkAdapter)(nil)
	_ ports.TrackResolver   = (*LavalinkAdapter)(nil)
)
