package presentation

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/sglre6355/ascend/internal/bot"
	"github.com/sglre6355/ascend/internal/modules/system/application"
)

const colorInfo = 0x5865F2

// PingHandler handles the /ping command.
type PingHandler struct {
	interactor *application.PingInteractor
}

// NewPingHandler creates a new PingHandler.
func NewPingHandler(interactor *application.PingInteractor) *PingHandler {
	return &PingHandler{interactor: interactor}
}

// Handle processes the ping command and sends the response.
func (h *PingHandler) Handle(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	result := h.interactor.Execute()

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("%s Gateway latency: %dms", result.Message, result.LatencyMillis()),
		},
	})
}

// AboutHandler handles the /about command.
type AboutHandler struct {
	interactor *application.AboutInteractor
}

// NewAboutHandler creates a new AboutHandler.
func NewAboutHandler(interactor *application.AboutInteractor) *AboutHandler {
	return &AboutHandler{interactor: interactor}
}

// Handle processes the about command and sends the response.
func (h *AboutHandler) Handle(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	about := h.interactor.Execute()

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title: "Ascend",
					Color: colorInfo,
					Fields: []*discordgo.MessageEmbedField{
						{Name: "Version", Value: about.Version, Inline: true},
						{Name: "Uptime", Value: about.UptimeString(), Inline: true},
						{Name: "Servers", Value: humanize.Comma(int64(about.Guilds)), Inline: true},
						{Name: "Voice Sessions", Value: humanize.Comma(int64(about.VoiceSessions)), Inline: true},
					},
				},
			},
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
}
