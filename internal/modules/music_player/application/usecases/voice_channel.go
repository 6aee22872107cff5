package usecases

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/ascend/internal/modules/music_player/application/ports"
	"github.com/sglre6355/ascend/internal/modules/music_player/domain"
)

// JoinInput contains the input for the Join use case.
type JoinInput struct {
	GuildID               snowflake.ID
	UserID                snowflake.ID
	NotificationChannelID snowflake.ID
	VoiceChannelID        snowflake.ID // Optional: specific channel to join (0 means use user's channel)
}

// JoinOutput contains the result of the Join use case.
type JoinOutput struct {
	VoiceChannelID snowflake.ID
	AlreadyJoined  bool
}

// LeaveInput contains the input for the Leave use case.
type LeaveInput struct {
	GuildID snowflake.ID
}

// BotVoiceStateChangeInput contains the input for handling bot voice state changes.
type BotVoiceStateChangeInput struct {
	GuildID      snowflake.ID
	NewChannelID *snowflake.ID // nil means disconnected
}

// ListenerLeftInput contains the input for handling a user leaving a voice channel.
type ListenerLeftInput struct {
	GuildID   snowflake.ID
	ChannelID snowflake.ID
}

// PlayerDefaults configures newly created player states.
type PlayerDefaults struct {
	Volume       int
	QueueOptions []domain.QueueOption
}

// VoiceChannelService handles voice channel operations and owns the session lifecycle.
type VoiceChannelService struct {
	repo            domain.PlayerStateRepository
	voiceConnection ports.VoiceConnection
	voiceState      ports.VoiceStateProvider
	publisher       ports.EventPublisher
	settings        ports.GuildSettingsStore
	defaults        PlayerDefaults
}

// NewVoiceChannelService creates a new VoiceChannelService.
func NewVoiceChannelService(
	repo domain.PlayerStateRepository,
	voiceConnection ports.VoiceConnection,
	voiceState ports.VoiceStateProvider,
	publisher ports.EventPublisher,
	settings ports.GuildSettingsStore,
	defaults PlayerDefaults,
) *VoiceChannelService {
	if defaults.Volume <= 0 {
		defaults.Volume = domain.DefaultVolume
	}
	return &VoiceChannelService{
		repo:            repo,
		voiceConnection: voiceConnection,
		voiceState:      voiceState,
		publisher:       publisher,
		settings:        settings,
		defaults:        defaults,
	}
}

// Join joins the bot to a voice channel, creating the guild's session on first use.
func (v *VoiceChannelService) Join(ctx context.Context, input JoinInput) (*JoinOutput, error) {
	existingState, err := v.repo.Get(ctx, input.GuildID)
	if err != nil {
		existingState = nil
	}

	// Determine which channel to join
	voiceChannelID := input.VoiceChannelID
	if voiceChannelID == 0 {
		userChannel, err := v.voiceState.GetUserVoiceChannel(input.GuildID, input.UserID)
		if err != nil {
			return nil, err
		}
		if userChannel == 0 {
			return nil, ErrUserNotInVoice
		}
		voiceChannelID = userChannel
	}

	// Already connected to the same channel - just update notification channel
	if existingState != nil && existingState.GetVoiceChannelID() == voiceChannelID {
		existingState.SetNotificationChannelID(input.NotificationChannelID)
		return &JoinOutput{VoiceChannelID: voiceChannelID, AlreadyJoined: true}, nil
	}

	if err := v.voiceConnection.JoinChannel(ctx, input.GuildID, voiceChannelID); err != nil {
		return nil, err
	}

	if existingState != nil {
		// Moving channels - preserve queue, update channel IDs
		existingState.SetVoiceChannelID(voiceChannelID)
		existingState.SetNotificationChannelID(input.NotificationChannelID)
		return &JoinOutput{VoiceChannelID: voiceChannelID}, nil
	}

	state := domain.NewPlayerState(
		input.GuildID,
		voiceChannelID,
		input.NotificationChannelID,
		domain.NewQueue(v.defaults.QueueOptions...),
	)
	state.SetVolume(v.defaults.Volume)
	v.restoreSettings(ctx, state)

	if err := v.repo.Save(ctx, state); err != nil {
		return nil, err
	}

	slog.Info(
		"player session created",
		"guild", input.GuildID,
		"channel", voiceChannelID,
	)

	return &JoinOutput{VoiceChannelID: voiceChannelID}, nil
}

func (v *VoiceChannelService) restoreSettings(ctx context.Context, state *domain.PlayerState) {
	if v.settings == nil {
		return
	}
	settings, err := v.settings.LoadSettings(ctx, state.GetGuildID())
	if err != nil {
		slog.Warn(
			"failed to load guild settings, using defaults",
			"guild", state.GetGuildID(),
			"error", err,
		)
		return
	}
	if settings != nil {
		applySettings(state, settings)
	}
}

// HandleBotVoiceStateChange handles external voice state changes (bot moved or disconnected).
// This should be called when the bot's voice state changes due to external factors
// (e.g., being moved by a user or disconnected by Discord).
func (v *VoiceChannelService) HandleBotVoiceStateChange(
	ctx context.Context,
	input BotVoiceStateChangeInput,
) {
	state, err := v.repo.Get(ctx, input.GuildID)
	if err != nil {
		// No player state exists, nothing to do
		return
	}

	if input.NewChannelID == nil {
		slog.Info("bot disconnected from voice, tearing down session", "guild", input.GuildID)
		v.teardown(ctx, state)
		return
	}

	// Bot was moved to a different channel
	if *input.NewChannelID != state.GetVoiceChannelID() {
		state.SetVoiceChannelID(*input.NewChannelID)
	}
}

// HandleListenerLeft leaves the voice channel once no human listener remains in it.
func (v *VoiceChannelService) HandleListenerLeft(ctx context.Context, input ListenerLeftInput) {
	state, err := v.repo.Get(ctx, input.GuildID)
	if err != nil || state.GetVoiceChannelID() != input.ChannelID {
		return
	}

	listeners, err := v.voiceState.CountListeners(input.GuildID, input.ChannelID)
	if err != nil {
		slog.Warn(
			"failed to count voice channel listeners",
			"guild", input.GuildID,
			"channel", input.ChannelID,
			"error", err,
		)
		return
	}
	if listeners > 0 {
		return
	}

	slog.Info("voice channel is empty, leaving", "guild", input.GuildID, "channel", input.ChannelID)
	if err := v.Leave(ctx, LeaveInput{GuildID: input.GuildID}); err != nil {
		slog.Warn("failed to leave empty voice channel", "guild", input.GuildID, "error", err)
	}
}

// Leave leaves the voice channel and deletes the player state.
func (v *VoiceChannelService) Leave(ctx context.Context, input LeaveInput) error {
	state, err := v.repo.Get(ctx, input.GuildID)
	if err != nil {
		return ErrNotConnected
	}

	if err := v.voiceConnection.LeaveChannel(ctx, input.GuildID); err != nil {
		return err
	}

	v.teardown(ctx, state)
	return nil
}

// CloseIdle leaves the guild's voice channel if nothing is playing.
// It reports whether the session was closed; a missing session is not an error.
func (v *VoiceChannelService) CloseIdle(ctx context.Context, guildID snowflake.ID) (bool, error) {
	state, err := v.repo.Get(ctx, guildID)
	if err != nil {
		return false, nil
	}
	if !state.IsIdle() {
		return false, nil
	}

	if err := v.Leave(ctx, LeaveInput{GuildID: guildID}); err != nil {
		if errors.Is(err, ErrNotConnected) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// LeaveAll disconnects every active session and returns how many were closed.
func (v *VoiceChannelService) LeaveAll(ctx context.Context) int {
	slog.Info("leaving all voice channels", "sessions", v.repo.Count(ctx))

	left := 0
	for _, guildID := range v.repo.GuildIDs(ctx) {
		if err := v.Leave(ctx, LeaveInput{GuildID: guildID}); err != nil {
			slog.Warn("failed to leave voice channel", "guild", guildID, "error", err)
			continue
		}
		left++
	}
	return left
}

// teardown discards the session. The "Now Playing" message is deleted before the state is lost.
func (v *VoiceChannelService) teardown(ctx context.Context, state *domain.PlayerState) {
	if msg := state.TakeNowPlayingMessage(); msg != nil {
		publish(v.publisher, domain.SessionClosedEvent{
			GuildID:           state.GetGuildID(),
			NowPlayingMessage: msg,
		})
	}

	if err := v.repo.Delete(ctx, state.GetGuildID()); err != nil {
		slog.Error("failed to delete player state", "guild", state.GetGuildID(), "error", err)
	}
}
