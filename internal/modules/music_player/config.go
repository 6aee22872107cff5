package music_player

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

// Config holds the music player module configuration.
type Config struct {
	LavalinkAddress  string `env:"LAVALINK_ADDRESS,notEmpty"`
	LavalinkPassword string `env:"LAVALINK_PASSWORD,notEmpty"`
	LavalinkNodeName string `env:"LAVALINK_NODE_NAME" envDefault:"main"`
	LavalinkSecure   bool   `env:"LAVALINK_SECURE"`

	// Spotify links are disabled when either credential is empty.
	SpotifyClientID          string  `env:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret      string  `env:"SPOTIFY_CLIENT_SECRET"`
	SpotifyMarket            string  `env:"SPOTIFY_MARKET"`
	SpotifyImportLimit       int     `env:"SPOTIFY_IMPORT_LIMIT"       envDefault:"50" validate:"min=1,max=500"`
	SpotifyImportConcurrency int     `env:"SPOTIFY_IMPORT_CONCURRENCY" envDefault:"4"  validate:"min=1,max=16"`
	SpotifyImportRate        float64 `env:"SPOTIFY_IMPORT_RATE"        envDefault:"5"  validate:"gt=0"`

	DatabasePath     string `env:"DATABASE_PATH"      envDefault:"ascend.db" validate:"required"`
	DatabaseLogLevel string `env:"DATABASE_LOG_LEVEL" envDefault:"warn"      validate:"oneof=debug info warn error"`

	QueueMaxSize     int `env:"QUEUE_MAX_SIZE"     envDefault:"1000" validate:"min=1,max=10000"`
	QueueHistorySize int `env:"QUEUE_HISTORY_SIZE" envDefault:"100"  validate:"min=0"`
	AutoplayWindow   int `env:"AUTOPLAY_WINDOW"    envDefault:"20"   validate:"min=1"`

	VoteRatio     float64 `env:"VOTE_RATIO"     envDefault:"0.5" validate:"gt=0,lte=1"`
	DefaultVolume int     `env:"DEFAULT_VOLUME" envDefault:"100" validate:"min=0,max=200"`
	MaxVolume     int     `env:"MAX_VOLUME"     envDefault:"150" validate:"min=1,max=200,gtefield=DefaultVolume"`

	IdleTimeout time.Duration `env:"IDLE_TIMEOUT" envDefault:"5m" validate:"gt=0"`

	CommandRate  float64 `env:"COMMAND_RATE"  envDefault:"2" validate:"gt=0"`
	CommandBurst int     `env:"COMMAND_BURST" envDefault:"5" validate:"min=1"`
}

// loadConfig parses and validates the module configuration from the environment.
func loadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse music player config")
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid music player config")
	}
	return cfg, nil
}
