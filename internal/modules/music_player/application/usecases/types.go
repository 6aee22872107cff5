package usecases

import (
	"context"
	"log/slog"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/ascend/internal/modules/music_player/application/ports"
	"github.com/sglre6355/ascend/internal/modules/music_player/domain"
)

// Re-export domain types for presentation layer use.
// This allows presentation to depend mostly on usecases instead of importing domain directly.

// Track is an alias for domain.Track.
type Track = domain.Track

// QueueEntry is an alias for domain.QueueEntry.
type QueueEntry = domain.QueueEntry

// Requester is an alias for domain.Requester.
type Requester = domain.Requester

// PlayerStateRepository is an alias for domain.PlayerStateRepository.
type PlayerStateRepository = domain.PlayerStateRepository

// getState returns the guild's player state, mapping a missing state to ErrNotConnected.
// A non-zero notificationChannelID updates the state's notification channel.
func getState(
	ctx context.Context,
	repo domain.PlayerStateRepository,
	guildID, notificationChannelID snowflake.ID,
) (*domain.PlayerState, error) {
	state, err := repo.Get(ctx, guildID)
	if err != nil {
		return nil, ErrNotConnected
	}
	if notificationChannelID != 0 {
		state.SetNotificationChannelID(notificationChannelID)
	}
	return state, nil
}

// settingsOf captures the persisted preferences of a player state.
func settingsOf(state *domain.PlayerState) ports.GuildSettings {
	return ports.GuildSettings{
		GuildID:   state.GetGuildID(),
		Volume:    state.Volume(),
		LoopMode:  state.Queue.LoopMode(),
		Autoplay:  state.Queue.Autoplay(),
		Blacklist: state.Queue.Blacklist(),
	}
}

// applySettings restores persisted preferences onto a player state.
func applySettings(state *domain.PlayerState, settings *ports.GuildSettings) {
	state.SetVolume(settings.Volume)
	state.Queue.SetLoopMode(settings.LoopMode)
	state.Queue.SetAutoplay(settings.Autoplay)
	state.Queue.SetBlacklist(settings.Blacklist)
}

// persistSettings stores the state's preferences. Failures are logged, not returned:
// the in-memory change already took effect.
func persistSettings(ctx context.Context, store ports.GuildSettingsStore, state *domain.PlayerState) {
	if store == nil {
		return
	}
	if err := store.SaveSettings(ctx, settingsOf(state)); err != nil {
		slog.Error(
			"failed to persist guild settings",
			"guild", state.GetGuildID(),
			"error", err,
		)
	}
}

func publish(publisher ports.EventPublisher, event domain.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(event); err != nil {
		slog.Warn("failed to publish event", "event", event, "error", err)
	}
}
