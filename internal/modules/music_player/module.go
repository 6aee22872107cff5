package music_player

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/ascend/internal/bot"
	"github.com/sglre6355/ascend/internal/modules/music_player/application"
	"github.com/sglre6355/ascend/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/ascend/internal/modules/music_player/domain"
	"github.com/sglre6355/ascend/internal/modules/music_player/infrastructure"
	"github.com/sglre6355/ascend/internal/modules/music_player/presentation/discord"
)

const shutdownTimeout = 5 * time.Second

func init() {
	bot.Register(&MusicPlayerModule{})
}

// Compile-time interface checks.
var (
	_ bot.ConfigurableModule = (*MusicPlayerModule)(nil)
	_ bot.ComponentModule    = (*MusicPlayerModule)(nil)
)

// MusicPlayerModule provides music playback commands.
type MusicPlayerModule struct {
	config *Config

	voiceChannel        *usecases.VoiceChannelService
	commandHandlers     *discord.CommandHandlers
	autocomplete        *discord.AutocompleteHandler
	componentHandler    *discord.ComponentHandler
	eventHandlers       *discord.EventHandlers
	lavalinkAdapter     *infrastructure.LavalinkAdapter
	store               *infrastructure.SQLiteStore
	eventBus            *infrastructure.ChannelEventBus
	playbackHandler     *application.PlaybackEventHandler
	notificationHandler *application.NotificationEventHandler
	idleHandler         *application.IdleEventHandler

	// Cancelled on shutdown to stop in-flight Lavalink and Spotify calls.
	ctx    context.Context
	cancel context.CancelFunc
}

// Name returns the module name.
func (m *MusicPlayerModule) Name() string {
	return "music_player"
}

// Commands returns the slash commands for this module.
func (m *MusicPlayerModule) Commands() []*discordgo.ApplicationCommand {
	return discord.Commands()
}

// CommandHandlers returns the command handlers for this module.
// Autocomplete requests are routed to the same command name.
func (m *MusicPlayerModule) CommandHandlers() map[string]bot.InteractionHandler {
	return discord.Route(m.commandHandlers.Handlers(), m.autocomplete.Handlers())
}

// ComponentHandlers returns the handlers for the now playing controls.
func (m *MusicPlayerModule) ComponentHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		discord.ComponentPrefix: m.componentHandler.Handle,
	}
}

// EventHandlers returns the event handlers for this module.
func (m *MusicPlayerModule) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		func(s *discordgo.Session, event *discordgo.VoiceServerUpdate) {
			m.handleVoiceServerUpdate(s, event)
		},
		func(s *discordgo.Session, event *discordgo.VoiceStateUpdate) {
			m.handleVoiceStateUpdate(s, event)
		},
	}
}

// LoadConfig loads module-specific configuration from environment variables.
func (m *MusicPlayerModule) LoadConfig() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	m.config = cfg
	return nil
}

// Init initializes the module.
func (m *MusicPlayerModule) Init(deps bot.ModuleDependencies) error {
	if deps.Session == nil || deps.Session.State == nil || deps.Session.State.User == nil {
		return errors.New("music_player requires an open discord session")
	}
	if m.config == nil {
		if err := m.LoadConfig(); err != nil {
			return err
		}
	}
	cfg := m.config

	m.ctx, m.cancel = context.WithCancel(context.Background())

	// The event bus must exist before the adapter, which publishes track events on it.
	m.eventBus = infrastructure.NewChannelEventBus(infrastructure.DefaultEventBufferSize)

	lavalinkAdapter, err := infrastructure.NewLavalinkAdapter(m.ctx, deps.Session, infrastructure.LavalinkConfig{
		NodeName: cfg.LavalinkNodeName,
		Address:  cfg.LavalinkAddress,
		Password: cfg.LavalinkPassword,
		Secure:   cfg.LavalinkSecure,
	}, m.eventBus)
	if err != nil {
		_ = m.Shutdown()
		return errors.Wrap(err, "failed to connect to lavalink")
	}
	m.lavalinkAdapter = lavalinkAdapter

	dbLevel, err := bot.ParseLogLevel(cfg.DatabaseLogLevel)
	if err != nil {
		_ = m.Shutdown()
		return err
	}
	store, err := infrastructure.NewSQLiteStore(
		cfg.DatabasePath,
		infrastructure.NewGormLogger(slog.Default(), infrastructure.GormLogLevel(dbLevel)),
	)
	if err != nil {
		_ = m.Shutdown()
		return errors.Wrap(err, "failed to open database")
	}
	m.store = store

	catalog := infrastructure.NewSpotifyCatalog(m.ctx, infrastructure.SpotifyConfig{
		ClientID:     cfg.SpotifyClientID,
		ClientSecret: cfg.SpotifyClientSecret,
		Market:       cfg.SpotifyMarket,
	})

	repo := infrastructure.NewMemoryRepository()
	voiceState := infrastructure.NewVoiceStateProvider(deps.Session)
	userInfo := infrastructure.NewDiscordUserInfoProvider(deps.Session)
	notifier := infrastructure.NewNotifier(deps.Session, discord.RenderNowPlaying)
	limiter := infrastructure.NewCommandLimiter(cfg.CommandRate, cfg.CommandBurst)

	voiceChannel := usecases.NewVoiceChannelService(
		repo,
		lavalinkAdapter,
		voiceState,
		m.eventBus,
		store,
		usecases.PlayerDefaults{
			Volume: cfg.DefaultVolume,
			QueueOptions: []domain.QueueOption{
				domain.WithMaxSize(cfg.QueueMaxSize),
				domain.WithHistorySize(cfg.QueueHistorySize),
				domain.WithAutoplayWindow(cfg.AutoplayWindow),
			},
		},
	)
	playback := usecases.NewPlaybackService(
		repo,
		lavalinkAdapter,
		voiceState,
		m.eventBus,
		store,
		usecases.PlaybackConfig{
			MaxVolume: cfg.MaxVolume,
			VoteRatio: cfg.VoteRatio,
		},
	)
	queue := usecases.NewQueueService(repo, m.eventBus, lavalinkAdapter, store)
	trackLoader := usecases.NewTrackLoaderService(lavalinkAdapter, catalog, usecases.ImportConfig{
		Limit:       cfg.SpotifyImportLimit,
		Concurrency: cfg.SpotifyImportConcurrency,
		Rate:        cfg.SpotifyImportRate,
	})
	autocomplete := usecases.NewAutocompleteService(repo, lavalinkAdapter, store)
	library := usecases.NewLibraryService(repo, queue, store, store)
	notificationChannel := usecases.NewNotificationChannelService(repo)
	permissions := usecases.NewPermissionService(store)

	m.playbackHandler = application.NewPlaybackEventHandler(playback, m.eventBus)
	m.notificationHandler = application.NewNotificationEventHandler(repo, m.eventBus, notifier, store)
	if err := m.playbackHandler.Start(); err != nil {
		_ = m.Shutdown()
		return errors.Wrap(err, "failed to start playback event handler")
	}
	if err := m.notificationHandler.Start(); err != nil {
		_ = m.Shutdown()
		return errors.Wrap(err, "failed to start notification event handler")
	}
	m.idleHandler = application.NewIdleEventHandler(voiceChannel, m.eventBus, cfg.IdleTimeout)
	if err := m.idleHandler.Start(); err != nil {
		_ = m.Shutdown()
		return errors.Wrap(err, "failed to start idle event handler")
	}

	botID, err := snowflake.Parse(deps.Session.State.User.ID)
	if err != nil {
		_ = m.Shutdown()
		return errors.Wrap(err, "failed to parse bot id")
	}

	m.commandHandlers = discord.NewCommandHandlers(
		voiceChannel,
		playback,
		queue,
		trackLoader,
		library,
		notificationChannel,
		permissions,
		userInfo,
		limiter,
	)
	m.voiceChannel = voiceChannel
	m.autocomplete = discord.NewAutocompleteHandler(autocomplete, queue)
	m.componentHandler = discord.NewComponentHandler(m.commandHandlers)
	m.eventHandlers = discord.NewEventHandlers(botID, voiceChannel)

	slog.Info("music_player module initialized",
		"lavalink", cfg.LavalinkAddress,
		"database", cfg.DatabasePath,
		"spotify", catalog.Enabled(),
	)

	return nil
}

// Shutdown disconnects every session and cleans up module resources.
func (m *MusicPlayerModule) Shutdown() error {
	if m.idleHandler != nil {
		m.idleHandler.Stop()
	}
	if m.voiceChannel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		left := m.voiceChannel.LeaveAll(ctx)
		cancel()
		slog.Info("closed voice sessions", "count", left)
	}
	if m.cancel != nil {
		m.cancel()
	}
	if m.eventBus != nil {
		m.eventBus.Close()
	}
	if m.lavalinkAdapter != nil {
		m.lavalinkAdapter.Close()
	}
	if m.store != nil {
		if err := m.store.Close(); err != nil {
			return errors.Wrap(err, "failed to close database")
		}
		m.store = nil
	}
	return nil
}

func (m *MusicPlayerModule) handleVoiceServerUpdate(
	_ *discordgo.Session,
	event *discordgo.VoiceServerUpdate,
) {
	if m.lavalinkAdapter != nil {
		m.lavalinkAdapter.OnVoiceServerUpdate(event)
	}
}

// handleVoiceStateUpdate forwards the bot's own voice state to Lavalink
// before the session logic sees it.
func (m *MusicPlayerModule) handleVoiceStateUpdate(
	s *discordgo.Session,
	event *discordgo.VoiceStateUpdate,
) {
	if m.lavalinkAdapter != nil {
		m.lavalinkAdapter.OnVoiceStateUpdate(event)
	}
	if m.eventHandlers != nil {
		m.eventHandlers.HandleVoiceStateUpdate(s, event)
	}
}
