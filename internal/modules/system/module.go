package system

import (
	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/ascend/internal/bot"
	"github.com/sglre6355/ascend/internal/modules/system/application"
	"github.com/sglre6355/ascend/internal/modules/system/infrastructure"
	"github.com/sglre6355/ascend/internal/modules/system/presentation"
)

func init() {
	bot.Register(&SystemModule{})
}

// SystemModule provides utility commands like /ping and /about.
type SystemModule struct {
	pingHandler  *presentation.PingHandler
	aboutHandler *presentation.AboutHandler
}

// Name returns the module name.
func (m *SystemModule) Name() string {
	return "system"
}

// Commands returns the slash commands for this module.
func (m *SystemModule) Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "ping",
			Description: "Check the bot's gateway latency",
		},
		{
			Name:        "about",
			Description: "Show version, uptime and usage",
		},
	}
}

// CommandHandlers returns the command handlers for this module.
func (m *SystemModule) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"ping":  m.pingHandler.Handle,
		"about": m.aboutHandler.Handle,
	}
}

// EventHandlers returns the event handlers for this module.
func (m *SystemModule) EventHandlers() []bot.EventHandler {
	return nil
}

// Init initializes the module.
func (m *SystemModule) Init(deps bot.ModuleDependencies) error {
	stats := infrastructure.NewSessionStats(deps.Session)

	m.pingHandler = presentation.NewPingHandler(application.NewPingInteractor(stats))
	m.aboutHandler = presentation.NewAboutHandler(
		application.NewAboutInteractor(stats, deps.Version, deps.StartedAt),
	)
	return nil
}

// Shutdown cleans up module resources.
func (m *SystemModule) Shutdown() error {
	return nil
}
