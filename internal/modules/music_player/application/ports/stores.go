package ports

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/ascend/internal/modules/music_player/domain"
)

// GuildSettings are the per-guild player preferences that outlive a session.
type GuildSettings struct {
	GuildID   snowflake.ID
	Volume    int
	LoopMode  domain.LoopMode
	Autoplay  bool
	Blacklist []string
}

// GuildSettingsStore persists GuildSettings.
type GuildSettingsStore interface {
	// LoadSettings returns the stored settings, or nil when the guild has none.
	LoadSettings(ctx context.Context, guildID snowflake.ID) (*GuildSettings, error)

	// SaveSettings creates or replaces the settings of a guild.
	SaveSettings(ctx context.Context, settings GuildSettings) error
}

// DJRoleStore persists the role allowed to use restricted queue controls.
// It shares the guild_settings row but is saved separately from GuildSettings.
type DJRoleStore interface {
	// LoadDJRole returns the guild's DJ role, or 0 when none is set.
	LoadDJRole(ctx context.Context, guildID snowflake.ID) (snowflake.ID, error)

	// SaveDJRole sets the guild's DJ role. A zero roleID clears it.
	SaveDJRole(ctx context.Context, guildID, roleID snowflake.ID) error
}

// PlayRecord is a single started track.
type PlayRecord struct {
	GuildID     snowflake.ID
	Track       domain.Track
	RequesterID snowflake.ID
	PlayedAt    time.Time
}

// TrackPlayCount aggregates the plays of a track in a guild.
type TrackPlayCount struct {
	Track      domain.Track
	Plays      int
	LastPlayed time.Time
}

// PlayHistoryStore persists play records.
type PlayHistoryStore interface {
	RecordPlay(ctx context.Context, record PlayRecord) error

	// TopTracks returns the most played tracks of a guild, most played first.
	TopTracks(ctx context.Context, guildID snowflake.ID, limit int) ([]TrackPlayCount, error)
}

// SavedQueue is a named snapshot of a queue.
type SavedQueue struct {
	GuildID   snowflake.ID
	Name      string
	OwnerID   snowflake.ID
	Tracks    []domain.Track
	CreatedAt time.Time
}

// SavedQueueSummary describes a SavedQueue without its tracks.
type SavedQueueSummary struct {
	Name       string
	OwnerID    snowflake.ID
	TrackCount int
	CreatedAt  time.Time
}

// SavedQueueStore persists SavedQueues. Names are unique per guild.
type SavedQueueStore interface {
	// SaveQueue creates the queue or replaces an existing one with the same name.
	SaveQueue(ctx context.Context, queue SavedQueue) error

	// FindQueue returns the named queue, or nil when it does not exist.
	FindQueue(ctx context.Context, guildID snowflake.ID, name string) (*SavedQueue, error)

	// ListQueues returns the saved queues of a guild ordered by name.
	ListQueues(ctx context.Context, guildID snowflake.ID) ([]SavedQueueSummary, error)

	// DeleteQueue removes the named queue and reports whether it existed.
	DeleteQueue(ctx context.Context, guildID snowflake.ID, name string) (bool, error)
}
