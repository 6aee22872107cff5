package discord

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/ascend/internal/bot"
	"github.com/sglre6355/ascend/internal/modules/music_player/application/ports"
	"github.com/sglre6355/ascend/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/ascend/internal/modules/music_player/domain"
)

// Embed colors.
const (
	colorSuccess = 0x08c404
	colorInfo    = 0x5865F2
	colorWarning = 0xF1C40F
	colorError   = 0xE74C3C
)

// Discord limits.
const (
	maxChoices          = 25
	maxChoiceNameLength = 100
	maxEmbedDescription = 4096
)

var errGuildOnly = errors.New("this command can only be used in a server")

// invocation is the guild, user and channel an interaction came from.
type invocation struct {
	GuildID     snowflake.ID
	UserID      snowflake.ID
	ChannelID   snowflake.ID
	Member      *discordgo.Member
	RoleIDs     []snowflake.ID
	ManageGuild bool
}

func parseInvocation(i *discordgo.InteractionCreate) (*invocation, error) {
	if i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		return nil, errGuildOnly
	}

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse guild id")
	}
	userID, err := snowflake.Parse(i.Member.User.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse user id")
	}
	channelID, err := snowflake.Parse(i.ChannelID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse channel id")
	}

	roleIDs := make([]snowflake.ID, 0, len(i.Member.Roles))
	for _, role := range i.Member.Roles {
		roleID, err := snowflake.Parse(role)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse role id")
		}
		roleIDs = append(roleIDs, roleID)
	}

	return &invocation{
		GuildID:     guildID,
		UserID:      userID,
		ChannelID:   channelID,
		Member:      i.Member,
		RoleIDs:     roleIDs,
		ManageGuild: i.Member.Permissions&(discordgo.PermissionManageGuild|discordgo.PermissionAdministrator) != 0,
	}, nil
}

func (inv *invocation) permissions() usecases.MemberPermissions {
	return usecases.MemberPermissions{
		GuildID:     inv.GuildID,
		RoleIDs:     inv.RoleIDs,
		ManageGuild: inv.ManageGuild,
	}
}

// requester builds the Requester for the invoking member, preferring the
// provider's view of the member when it is available.
func (inv *invocation) requester(users ports.UserInfoProvider) domain.Requester {
	requester := domain.Requester{
		ID:          inv.UserID,
		DisplayName: memberDisplayName(inv.Member),
		AvatarURL:   inv.Member.User.AvatarURL(""),
	}
	if users == nil {
		return requester
	}

	info, err := users.GetUserInfo(inv.GuildID, inv.UserID)
	if err != nil {
		slog.Debug("falling back to interaction member info", "user", inv.UserID, "error", err)
		return requester
	}
	requester.DisplayName = info.DisplayName
	requester.AvatarURL = info.AvatarURL
	return requester
}

func memberDisplayName(member *discordgo.Member) string {
	if member.Nick != "" {
		return member.Nick
	}
	if member.User.GlobalName != "" {
		return member.User.GlobalName
	}
	return member.User.Username
}

type commandOptions map[string]*discordgo.ApplicationCommandInteractionDataOption

func optionsOf(opts []*discordgo.ApplicationCommandInteractionDataOption) commandOptions {
	m := make(commandOptions, len(opts))
	for _, opt := range opts {
		m[opt.Name] = opt
	}
	return m
}

func (o commandOptions) String(name string) string {
	if opt, ok := o[name]; ok {
		return opt.StringValue()
	}
	return ""
}

func (o commandOptions) Int(name string, fallback int) int {
	if opt, ok := o[name]; ok {
		return int(opt.IntValue())
	}
	return fallback
}

func (o commandOptions) Bool(name string) bool {
	if opt, ok := o[name]; ok {
		return opt.BoolValue()
	}
	return false
}

// focused returns the option the user is typing in during autocomplete.
func focused(opts []*discordgo.ApplicationCommandInteractionDataOption) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range opts {
		if opt.Focused {
			return opt
		}
		if opt.Type == discordgo.ApplicationCommandOptionSubCommand {
			if f := focused(opt.Options); f != nil {
				return f
			}
		}
	}
	return nil
}

// parsePosition parses "90", "1:30" or "1:02:03" into a duration.
func parsePosition(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, usecases.ErrInvalidPosition
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, usecases.ErrInvalidPosition
	}

	var seconds int
	for idx, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, usecases.ErrInvalidPosition
		}
		// Every field after the first is base 60.
		if idx > 0 && n >= 60 {
			return 0, usecases.ErrInvalidPosition
		}
		seconds = seconds*60 + n
	}
	return time.Duration(seconds) * time.Second, nil
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

// Response helpers.

func respondEmbed(r bot.Responder, embed *discordgo.MessageEmbed) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}

func respondSuccess(r bot.Responder, description string) error {
	return respondEmbed(r, &discordgo.MessageEmbed{
		Description: description,
		Color:       colorSuccess,
	})
}

func respondEphemeral(r bot.Responder, description string, color int) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Description: description,
					Color:       color,
				},
			},
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
}

// respondError reports err to the user. Errors users can act on are shown as is,
// anything else is logged and shown as a generic failure.
func respondError(r bot.Responder, err error) error {
	message, known := userMessage(err)
	if !known {
		slog.Error("failed to handle interaction", "error", err)
	}

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       "Error",
					Description: message,
					Color:       colorError,
				},
			},
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
}

// editError reports err on a deferred response.
func editError(r bot.Responder, err error) error {
	message, known := userMessage(err)
	if !known {
		slog.Error("failed to handle interaction", "error", err)
	}

	return r.Edit(&discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{
			{
				Title:       "Error",
				Description: message,
				Color:       colorError,
			},
		},
	})
}

func editEmbed(r bot.Responder, embed *discordgo.MessageEmbed) error {
	return r.Edit(&discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{embed},
	})
}

func deferResponse(r bot.Responder) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

// userErrors are errors whose message is safe and useful to show.
var userErrors = []error{
	errGuildOnly,
	usecases.ErrNotConnected,
	usecases.ErrUserNotInVoice,
	usecases.ErrNotPlaying,
	usecases.ErrAlreadyPaused,
	usecases.ErrNotPaused,
	usecases.ErrNoResults,
	usecases.ErrQueueEmpty,
	usecases.ErrInvalidPosition,
	usecases.ErrNothingToGoBack,
	usecases.ErrSavedQueueNotFound,
	usecases.ErrSavedQueueExists,
	usecases.ErrInvalidName,
	usecases.ErrInvalidVolume,
	usecases.ErrSpotifyUnavailable,
	usecases.ErrRateLimited,
	usecases.ErrDJRequired,
	usecases.ErrManageGuildRequired,
	usecases.ErrSettingsUnavailable,
	domain.ErrQueueFull,
	domain.ErrBlacklisted,
	domain.ErrNoCurrentEntry,
}

func userMessage(err error) (string, bool) {
	for _, known := range userErrors {
		if !errors.Is(err, known) {
			continue
		}
		// The volume error is wrapped with the allowed range.
		if known == usecases.ErrInvalidVolume {
			return capitalize(err.Error()), true
		}
		return capitalize(known.Error()), true
	}
	return "Something went wrong while processing your request.", false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
