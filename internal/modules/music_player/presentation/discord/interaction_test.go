package discord

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	"github.com/sglre6355/ascend/internal/bot"
	"github.com/sglre6355/ascend/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/ascend/internal/modules/music_player/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePosition(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{input: "90", want: 90 * time.Second},
		{input: "1:30", want: 90 * time.Second},
		{input: " 0:05 ", want: 5 * time.Second},
		{input: "1:02:03", want: time.Hour + 2*time.Minute + 3*time.Second},
		{input: "", wantErr: true},
		{input: "1:60", wantErr: true},
		{input: "a:10", wantErr: true},
		{input: "-5", wantErr: true},
		{input: "1:2:3:4", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parsePosition(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, usecases.ErrInvalidPosition)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		want      string
		wantKnown bool
	}{
		{
			name:      "sentinel",
			err:       usecases.ErrNotPlaying,
			want:      "Nothing is currently playing",
			wantKnown: true,
		},
		{
			name:      "wrapped sentinel shows the sentinel text",
			err:       errors.Wrap(domain.ErrQueueFull, "guild 1"),
			want:      capitalize(domain.ErrQueueFull.Error()),
			wantKnown: true,
		},
		{
			name:      "volume error keeps the allowed range",
			err:       errors.Wrap(usecases.ErrInvalidVolume, "volume must be between 0 and 150"),
			want:      "Volume must be between 0 and 150: invalid volume",
			wantKnown: true,
		},
		{
			name: "unknown error",
			err:  errors.New("lavalink exploded"),
			want: "Something went wrong while processing your request.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, known := userMessage(tt.err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantKnown, known)
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ああああ...", truncate("あああああああああ", 7))
}

func TestParseInvocation(t *testing.T) {
	i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		GuildID:   "100",
		ChannelID: "200",
		Member: &discordgo.Member{
			Nick: "DJ",
			User: &discordgo.User{ID: "300", Username: "user"},
		},
	}}

	inv, err := parseInvocation(i)

	require.NoError(t, err)
	assert.EqualValues(t, 100, inv.GuildID)
	assert.EqualValues(t, 200, inv.ChannelID)
	assert.EqualValues(t, 300, inv.UserID)
	assert.Equal(t, "DJ", inv.requester(nil).DisplayName)
}

func TestParseInvocation_RequiresGuild(t *testing.T) {
	i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ChannelID: "200",
		User:      &discordgo.User{ID: "300"},
	}}

	_, err := parseInvocation(i)

	assert.ErrorIs(t, err, errGuildOnly)
}

func TestRespondError_IsEphemeral(t *testing.T) {
	responder := &bot.MockResponder{}

	require.NoError(t, respondError(responder, usecases.ErrQueueEmpty))

	data := responder.LastResponse.Data
	assert.Equal(t, discordgo.MessageFlagsEphemeral, data.Flags)
	require.Len(t, data.Embeds, 1)
	assert.Equal(t, "The queue is empty", data.Embeds[0].Description)
	assert.Equal(t, colorError, data.Embeds[0].Color)
}

func TestFocused(t *testing.T) {
	options := []*discordgo.ApplicationCommandInteractionDataOption{
		{
			Name: "move",
			Type: discordgo.ApplicationCommandOptionSubCommand,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "from", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(2)},
				{Name: "to", Type: discordgo.ApplicationCommandOptionInteger, Value: "1", Focused: true},
			},
		},
	}

	opt := focused(options)

	require.NotNil(t, opt)
	assert.Equal(t, "to", opt.Name)
	assert.Nil(t, focused(options[0].Options[:1]))
}
