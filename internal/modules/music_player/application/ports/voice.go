package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
)

// VoiceConnection joins and leaves voice channels on behalf of the bot.
type VoiceConnection interface {
	// JoinChannel moves the bot into channelID, self-deafened.
	JoinChannel(ctx context.Context, guildID, channelID snowflake.ID) error

	// LeaveChannel disconnects the bot from the guild's voice channel.
	LeaveChannel(ctx context.Context, guildID snowflake.ID) error
}

// VoiceStateProvider reads the gateway's cached voice states.
type VoiceStateProvider interface {
	// GetUserVoiceChannel returns the channel the user is in, or 0.
	GetUserVoiceChannel(guildID, userID snowflake.ID) (snowflake.ID, error)

	// CountListeners returns the number of non-bot users in the channel.
	// Vote thresholds are computed from it.
	CountListeners(guildID, channelID snowflake.ID) (int, error)
}
