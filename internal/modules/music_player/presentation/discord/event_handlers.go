package discord

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/ascend/internal/modules/music_player/application/usecases"
)

// EventHandlers handles Discord gateway events for the music player.
type EventHandlers struct {
	botID        snowflake.ID
	voiceChannel *usecases.VoiceChannelService
}

// NewEventHandlers creates a new EventHandlers.
func NewEventHandlers(
	botID snowflake.ID,
	voiceChannel *usecases.VoiceChannelService,
) *EventHandlers {
	return &EventHandlers{
		botID:        botID,
		voiceChannel: voiceChannel,
	}
}

// HandleVoiceStateUpdate follows the bot's own voice state and leaves
// channels that no listener remains in.
func (h *EventHandlers) HandleVoiceStateUpdate(
	_ *discordgo.Session,
	event *discordgo.VoiceStateUpdate,
) {
	ctx := context.Background()

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice state update", "error", err)
		return
	}

	if event.UserID == h.botID.String() {
		newChannelID, err := parseOptionalID(event.ChannelID)
		if err != nil {
			slog.Error("failed to parse channel ID in voice state update", "error", err)
			return
		}

		h.voiceChannel.HandleBotVoiceStateChange(ctx, usecases.BotVoiceStateChangeInput{
			GuildID:      guildID,
			NewChannelID: newChannelID,
		})
		return
	}

	left, ok := leftChannel(event)
	if !ok {
		return
	}
	channelID, err := snowflake.Parse(left)
	if err != nil {
		slog.Error("failed to parse channel ID in voice state update", "error", err)
		return
	}

	h.voiceChannel.HandleListenerLeft(ctx, usecases.ListenerLeftInput{
		GuildID:   guildID,
		ChannelID: channelID,
	})
}

// leftChannel returns the channel a user left, if the update moved them out of one.
func leftChannel(event *discordgo.VoiceStateUpdate) (string, bool) {
	if event.BeforeUpdate == nil || event.BeforeUpdate.ChannelID == "" {
		return "", false
	}
	if event.VoiceState != nil && event.ChannelID == event.BeforeUpdate.ChannelID {
		return "", false
	}
	return event.BeforeUpdate.ChannelID, true
}

// parseOptionalID parses id, returning nil for an empty id.
func parseOptionalID(id string) (*snowflake.ID, error) {
	if id == "" {
		return nil, nil
	}
	parsed, err := snowflake.Parse(id)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
