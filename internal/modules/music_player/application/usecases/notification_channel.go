package usecases

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/ascend/internal/modules/music_player/domain"
)

// NotificationChannelService moves a guild's now playing announcements between text channels.
type NotificationChannelService struct {
	repo domain.PlayerStateRepository
}

// NewNotificationChannelService creates a new NotificationChannelService.
func NewNotificationChannelService(repo domain.PlayerStateRepository) *NotificationChannelService {
	return &NotificationChannelService{repo: repo}
}

// FollowInput contains the input for the Follow use case.
type FollowInput struct {
	GuildID   snowflake.ID
	ChannelID snowflake.ID
}

// Follow points announcements at input.ChannelID. It reports whether the
// channel changed; a guild without a session is left alone.
func (n *NotificationChannelService) Follow(ctx context.Context, input FollowInput) (bool, error) {
	if input.ChannelID == 0 {
		return false, nil
	}

	state, err := n.repo.Get(ctx, input.GuildID)
	if errors.Is(err, domain.ErrPlayerStateNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to load player state")
	}

	if state.GetNotificationChannelID() == input.ChannelID {
		return false, nil
	}
	state.SetNotificationChannelID(input.ChannelID)

	if err := n.repo.Save(ctx, state); err != nil {
		return false, errors.Wrap(err, "failed to save player state")
	}
	return true, nil
}
