package ports

import (
	"github.com/disgoorg/snowflake/v2"
)

// UserInfo is how a member is shown in embeds.
type UserInfo struct {
	DisplayName string
	AvatarURL   string
}

// UserInfoProvider looks up guild members.
type UserInfoProvider interface {
	GetUserInfo(guildID, userID snowflake.ID) (*UserInfo, error)
}

// NotificationSender posts and removes the announcements in a guild's text channel.
type NotificationSender interface {
	// SendNowPlaying posts the now playing message with its controls and returns its ID.
	SendNowPlaying(channelID snowflake.ID, info *NowPlayingInfo) (messageID snowflake.ID, err error)

	DeleteMessage(channelID, messageID snowflake.ID) error

	// SendError posts a short error embed, e.g. when a track fails to load.
	SendError(channelID snowflake.ID, message string) error
}
