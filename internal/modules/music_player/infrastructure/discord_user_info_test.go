package infrastructure

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscordUserInfoProvider_FromState(t *testing.T) {
	state := discordgo.NewState()
	require.NoError(t, state.GuildAdd(&discordgo.Guild{ID: "1"}))
	require.NoError(t, state.MemberAdd(&discordgo.Member{
		GuildID: "1",
		Nick:    "DJ",
		User:    &discordgo.User{ID: "2", Username: "user"},
	}))

	provider := NewDiscordUserInfoProvider(&discordgo.Session{State: state})

	info, err := provider.GetUserInfo(1, 2)

	require.NoError(t, err)
	assert.Equal(t, "DJ", info.DisplayName)
	assert.NotEmpty(t, info.AvatarURL)
}

func TestMemberInfo_NamePriority(t *testing.T) {
	tests := []struct {
		name   string
		member *discordgo.Member
		want   string
	}{
		{
			name:   "nickname",
			member: &discordgo.Member{Nick: "nick", User: &discordgo.User{GlobalName: "global", Username: "user"}},
			want:   "nick",
		},
		{
			name:   "global name",
			member: &discordgo.Member{User: &discordgo.User{GlobalName: "global", Username: "user"}},
			want:   "global",
		},
		{
			name:   "username",
			member: &discordgo.Member{User: &discordgo.User{Username: "user"}},
			want:   "user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, memberInfo(tt.member).DisplayName)
		})
	}
}
