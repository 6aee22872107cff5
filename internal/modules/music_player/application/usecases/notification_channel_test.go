package usecases

import (
	"context"
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationChannelService_Follow(t *testing.T) {
	newChannelID := snowflake.ID(99)

	tests := []struct {
		name        string
		connected   bool
		channelID   snowflake.ID
		wantChanged bool
		wantChannel snowflake.ID
	}{
		{
			name:        "moves announcements to the new channel",
			connected:   true,
			channelID:   newChannelID,
			wantChanged: true,
			wantChannel: newChannelID,
		},
		{
			name:        "same channel is a no-op",
			connected:   true,
			channelID:   testTextChannelID,
			wantChannel: testTextChannelID,
		},
		{
			name:        "zero channel is ignored",
			connected:   true,
			channelID:   0,
			wantChannel: testTextChannelID,
		},
		{
			name:      "no session is ignored",
			channelID: newChannelID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepository()
			if tt.connected {
				repo.createConnectedState(testGuildID, testVoiceChannelID, testTextChannelID)
			}

			service := NewNotificationChannelService(repo)
			changed, err := service.Follow(context.Background(), FollowInput{
				GuildID:   testGuildID,
				ChannelID: tt.channelID,
			})

			require.NoError(t, err)
			assert.Equal(t, tt.wantChanged, changed)
			if tt.connected {
				state, err := repo.Get(context.Background(), testGuildID)
				require.NoError(t, err)
				assert.Equal(t, tt.wantChannel, state.GetNotificationChannelID())
			}
		})
	}
}
