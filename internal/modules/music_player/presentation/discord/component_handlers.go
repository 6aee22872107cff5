package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	"github.com/sglre6355/ascend/internal/bot"
	"github.com/sglre6355/ascend/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/ascend/internal/modules/music_player/domain"
)

// ComponentHandler handles the now playing buttons, the queue pager and the add track modal.
type ComponentHandler struct {
	commands *CommandHandlers
}

// NewComponentHandler creates a new ComponentHandler sharing the services of commands.
func NewComponentHandler(commands *CommandHandlers) *ComponentHandler {
	return &ComponentHandler{commands: commands}
}

// Handle routes a component or modal interaction by its custom ID.
func (h *ComponentHandler) Handle(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInvocation(i)
	if err != nil {
		return respondError(r, err)
	}
	if h.commands.limiter != nil && !h.commands.limiter.Allow(inv.UserID) {
		return respondError(r, usecases.ErrRateLimited)
	}

	ctx := context.Background()

	if i.Type == discordgo.InteractionModalSubmit {
		data := i.ModalSubmitData()
		if data.CustomID != addModalID {
			return respondError(r, errors.Newf("unknown modal %q", data.CustomID))
		}
		return h.handleAddSubmit(ctx, inv, modalValue(data.Components, addQueryInputID), r)
	}

	customID := i.MessageComponentData().CustomID
	if page, ok := parseQueuePage(customID); ok {
		return h.handleQueuePage(ctx, inv, page, r)
	}

	switch customID {
	case idPrevious:
		return h.handlePrevious(ctx, inv, r)
	case idPlayPause:
		return h.handlePlayPause(ctx, inv, i, r)
	case idSkip:
		return h.handleSkip(ctx, inv, r)
	case idStop:
		return h.handleStop(ctx, inv, r)
	case idShuffle:
		return h.handleShuffle(ctx, inv, i, r)
	case idRepeat:
		return h.handleRepeat(ctx, inv, i, r)
	case idAutoplay:
		return h.handleAutoplay(ctx, inv, i, r)
	case idLike:
		return h.handleReaction(ctx, inv, true, r)
	case idDislike:
		return h.handleReaction(ctx, inv, false, r)
	case idQueue:
		return h.handleQueueButton(ctx, inv, r)
	case idAdd:
		return openAddModal(r)
	default:
		return respondError(r, errors.Newf("unknown component %q", customID))
	}
}

func (h *ComponentHandler) handlePrevious(ctx context.Context, inv *invocation, r bot.Responder) error {
	entry, err := h.commands.playback.Previous(ctx, usecases.PreviousInput{
		GuildID:               inv.GuildID,
		NotificationChannelID: inv.ChannelID,
	})
	if err != nil {
		return respondError(r, err)
	}
	return respondEphemeral(r, "Playing "+trackLink(entry.Track)+" again.", colorSuccess)
}

func (h *ComponentHandler) handlePlayPause(
	ctx context.Context,
	inv *invocation,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	if _, err := h.commands.playback.TogglePause(ctx, inv.GuildID); err != nil {
		return respondError(r, err)
	}
	return h.refreshControls(ctx, inv, i, r)
}

func (h *ComponentHandler) handleSkip(ctx context.Context, inv *invocation, r bot.Responder) error {
	output, err := h.commands.playback.Skip(ctx, usecases.SkipInput{
		GuildID:               inv.GuildID,
		NotificationChannelID: inv.ChannelID,
	})
	if err != nil {
		return respondError(r, err)
	}
	return respondEphemeral(r, skipDescription(output), colorSuccess)
}

func (h *ComponentHandler) handleStop(ctx context.Context, inv *invocation, r bot.Responder) error {
	if err := h.commands.requireDJ(ctx, inv); err != nil {
		return respondError(r, err)
	}
	err := h.commands.playback.Stop(ctx, usecases.StopInput{
		GuildID:               inv.GuildID,
		NotificationChannelID: inv.ChannelID,
	})
	if err != nil {
		return respondError(r, err)
	}
	return respondEphemeral(r, "Stopped playback and cleared the queue.", colorSuccess)
}

func (h *ComponentHandler) handleShuffle(
	ctx context.Context,
	inv *invocation,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	if err := h.commands.requireDJ(ctx, inv); err != nil {
		return respondError(r, err)
	}
	if _, err := h.commands.queue.Shuffle(ctx, inv.GuildID); err != nil {
		return respondError(r, err)
	}
	return h.refreshControls(ctx, inv, i, r)
}

func (h *ComponentHandler) handleRepeat(
	ctx context.Context,
	inv *invocation,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	_, err := h.commands.playback.CycleLoopMode(ctx, usecases.CycleLoopModeInput{
		GuildID:               inv.GuildID,
		NotificationChannelID: inv.ChannelID,
	})
	if err != nil {
		return respondError(r, err)
	}
	return h.refreshControls(ctx, inv, i, r)
}

func (h *ComponentHandler) handleAutoplay(
	ctx context.Context,
	inv *invocation,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	if _, err := h.commands.playback.ToggleAutoplay(ctx, inv.GuildID); err != nil {
		return respondError(r, err)
	}
	return h.refreshControls(ctx, inv, i, r)
}

func (h *ComponentHandler) handleReaction(ctx context.Context, inv *invocation, like bool, r bot.Responder) error {
	react, emoji := h.commands.playback.Like, "👍"
	if !like {
		react, emoji = h.commands.playback.Dislike, "👎"
	}

	entry, err := react(ctx, inv.GuildID)
	if err != nil {
		return respondError(r, err)
	}
	return respondEphemeral(r,
		fmt.Sprintf("%s %s (👍 %d 👎 %d)", emoji, trackLink(entry.Track), entry.Likes, entry.Dislikes),
		colorSuccess,
	)
}

func (h *ComponentHandler) handleQueueButton(ctx context.Context, inv *invocation, r bot.Responder) error {
	output, err := h.commands.queue.List(ctx, usecases.QueueListInput{
		GuildID:  inv.GuildID,
		Page:     1,
		PageSize: usecases.DefaultPageSize,
	})
	if err != nil {
		return respondError(r, err)
	}

	embed, components := renderQueue(output, usecases.DefaultPageSize)
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: components,
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	})
}

// handleQueuePage replaces the queue message with another page.
func (h *ComponentHandler) handleQueuePage(ctx context.Context, inv *invocation, page int, r bot.Responder) error {
	output, err := h.commands.queue.List(ctx, usecases.QueueListInput{
		GuildID:  inv.GuildID,
		Page:     page,
		PageSize: usecases.DefaultPageSize,
	})
	if err != nil {
		return respondError(r, err)
	}

	embed, components := renderQueue(output, usecases.DefaultPageSize)
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: components,
		},
	})
}

// refreshControls redraws the buttons and footer of the now playing message
// the interaction came from.
func (h *ComponentHandler) refreshControls(
	ctx context.Context,
	inv *invocation,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	output, err := h.commands.playback.NowPlaying(ctx, inv.GuildID)
	if err != nil || i.Message == nil {
		return respondEphemeral(r, "Updated.", colorSuccess)
	}

	embeds := make([]*discordgo.MessageEmbed, len(i.Message.Embeds))
	for idx, embed := range i.Message.Embeds {
		updated := *embed
		if idx == 0 {
			footer := discordgo.MessageEmbedFooter{}
			if embed.Footer != nil {
				footer = *embed.Footer
			}
			footer.Text = playerFlags(output.LoopMode, output.Shuffled, output.Autoplay, output.Volume)
			updated.Footer = &footer
		}
		embeds[idx] = &updated
	}

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     embeds,
			Components: playerControls(output.Paused, output.LoopMode, output.Shuffled, output.Autoplay),
		},
	})
}

func openAddModal(r bot.Responder) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: addModalID,
			Title:    "Add a track",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    addQueryInputID,
							Label:       "URL or search term",
							Style:       discordgo.TextInputShort,
							Placeholder: "never gonna give you up",
							Required:    true,
							MaxLength:   200,
						},
					},
				},
			},
		},
	})
}

func (h *ComponentHandler) handleAddSubmit(ctx context.Context, inv *invocation, query string, r bot.Responder) error {
	if err := deferResponse(r); err != nil {
		return err
	}

	description, err := h.commands.play(ctx, inv, strings.TrimSpace(query), domain.SourceYouTube, false)
	if err != nil {
		return editError(r, err)
	}
	return editEmbed(r, &discordgo.MessageEmbed{
		Description: description,
		Color:       colorSuccess,
	})
}

// modalValue returns the value of the text input with the given custom ID.
func modalValue(components []discordgo.MessageComponent, customID string) string {
	for _, component := range components {
		var children []discordgo.MessageComponent
		switch row := component.(type) {
		case *discordgo.ActionsRow:
			children = row.Components
		case discordgo.ActionsRow:
			children = row.Components
		}

		for _, child := range children {
			switch input := child.(type) {
			case *discordgo.TextInput:
				if input.CustomID == customID {
					return input.Value
				}
			case discordgo.TextInput:
				if input.CustomID == customID {
					return input.Value
				}
			}
		}
	}
	return ""
}
