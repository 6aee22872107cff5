package infrastructure

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	"github.com/glebarez/sqlite"
	"github.com/sglre6355/ascend/internal/modules/music_player/application/ports"
	"github.com/sglre6355/ascend/internal/modules/music_player/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// trackColumns is the stored form of a domain.Track.
type trackColumns struct {
	Encoded    string
	Identifier string
	Title      string
	Author     string
	DurationMs int64
	URI        string
	ArtworkURL string
	SourceName string
	IsStream   bool
}

func newTrackColumns(track domain.Track) trackColumns {
	return trackColumns{
		Encoded:    track.Encoded,
		Identifier: track.Identifier,
		Title:      track.Title,
		Author:     track.Author,
		DurationMs: track.Duration.Milliseconds(),
		URI:        track.URI,
		ArtworkURL: track.ArtworkURL,
		SourceName: track.SourceName,
		IsStream:   track.IsStream,
	}
}

func (c trackColumns) toTrack() domain.Track {
	return domain.Track{
		Encoded:    c.Encoded,
		Identifier: c.Identifier,
		Title:      c.Title,
		Author:     c.Author,
		Duration:   time.Duration(c.DurationMs) * time.Millisecond,
		URI:        c.URI,
		ArtworkURL: c.ArtworkURL,
		SourceName: c.SourceName,
		IsStream:   c.IsStream,
	}
}

// trackKey identifies "the same" track across plays.
func trackKey(track domain.Track) string {
	if track.URI != "" {
		return track.URI
	}
	if track.Identifier != "" {
		return track.SourceName + ":" + track.Identifier
	}
	return track.Author + " - " + track.Title
}

type guildSettingsModel struct {
	GuildID   uint64   `gorm:"primaryKey;autoIncrement:false"`
	Volume    int      `gorm:"not null"`
	LoopMode  string   `gorm:"not null;default:'none'"`
	Autoplay  bool     `gorm:"not null;default:false"`
	Blacklist []string `gorm:"serializer:json"`
	DJRoleID  uint64   `gorm:"column:dj_role_id;not null;default:0"`
	UpdatedAt time.Time
}

func (guildSettingsModel) TableName() string {
	return "guild_settings"
}

type playHistoryModel struct {
	ID          uint         `gorm:"primaryKey"`
	GuildID     uint64       `gorm:"not null;index:idx_play_history_guild_track"`
	TrackKey    string       `gorm:"not null;index:idx_play_history_guild_track"`
	Track       trackColumns `gorm:"embedded;embeddedPrefix:track_"`
	RequesterID uint64
	PlayedAt    time.Time `gorm:"not null;index"`
}

func (playHistoryModel) TableName() string {
	return "play_history"
}

type savedQueueModel struct {
	ID        uint   `gorm:"primaryKey"`
	GuildID   uint64 `gorm:"not null;uniqueIndex:idx_saved_queue_guild_name"`
	Name      string `gorm:"not null;uniqueIndex:idx_saved_queue_guild_name"`
	OwnerID   uint64
	CreatedAt time.Time
	Tracks    []savedQueueTrackModel `gorm:"foreignKey:SavedQueueID;constraint:OnDelete:CASCADE"`
}

func (savedQueueModel) TableName() string {
	return "saved_queues"
}

type savedQueueTrackModel struct {
	ID           uint         `gorm:"primaryKey"`
	SavedQueueID uint         `gorm:"not null;index"`
	Position     int          `gorm:"not null"`
	Track        trackColumns `gorm:"embedded;embeddedPrefix:track_"`
}

func (savedQueueTrackModel) TableName() string {
	return "saved_queue_tracks"
}

// SQLiteStore persists guild settings, play history and saved queues in SQLite.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (creating if needed) the database at path and migrates its schema.
func NewSQLiteStore(path string, gormLogger logger.Interface) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if gormLogger == nil {
		gormLogger = logger.Default.LogMode(logger.Silent)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create database directory")
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormLogger,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database %s", path)
	}

	if err := applySQLitePragmas(db); err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&guildSettingsModel{},
		&playHistoryModel{},
		&savedQueueModel{},
		&savedQueueTrackModel{},
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to migrate database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to access database handle")
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &SQLiteStore{db: db}, nil
}

func applySQLitePragmas(db *gorm.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, stmt := range pragmas {
		if err := db.Exec(stmt).Error; err != nil {
			return errors.Wrapf(err, "failed to apply %q", stmt)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// LoadSettings returns the stored settings, or nil when the guild has none.
func (s *SQLiteStore) LoadSettings(ctx context.Context, guildID snowflake.ID) (*ports.GuildSettings, error) {
	var model guildSettingsModel
	err := s.db.WithContext(ctx).Where("guild_id = ?", uint64(guildID)).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load settings for guild %s", guildID)
	}

	return &ports.GuildSettings{
		GuildID:   snowflake.ID(model.GuildID),
		Volume:    model.Volume,
		LoopMode:  domain.ParseLoopMode(model.LoopMode),
		Autoplay:  model.Autoplay,
		Blacklist: model.Blacklist,
	}, nil
}

// SaveSettings creates or replaces the settings of a guild.
func (s *SQLiteStore) SaveSettings(ctx context.Context, settings ports.GuildSettings) error {
	model := guildSettingsModel{
		GuildID:   uint64(settings.GuildID),
		Volume:    settings.Volume,
		LoopMode:  settings.LoopMode.String(),
		Autoplay:  settings.Autoplay,
		Blacklist: settings.Blacklist,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "guild_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"volume", "loop_mode", "autoplay", "blacklist", "updated_at"}),
	}).Create(&model).Error
	if err != nil {
		return errors.Wrapf(err, "failed to save settings for guild %s", settings.GuildID)
	}
	return nil
}

// LoadDJRole returns the guild's DJ role, or 0 when none is set.
func (s *SQLiteStore) LoadDJRole(ctx context.Context, guildID snowflake.ID) (snowflake.ID, error) {
	var model guildSettingsModel
	err := s.db.WithContext(ctx).
		Select("dj_role_id").
		Where("guild_id = ?", uint64(guildID)).
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrapf(err, "failed to load dj role for guild %s", guildID)
	}
	return snowflake.ID(model.DJRoleID), nil
}

// SaveDJRole sets the guild's DJ role without touching the player preferences.
func (s *SQLiteStore) SaveDJRole(ctx context.Context, guildID, roleID snowflake.ID) error {
	model := guildSettingsModel{
		GuildID:  uint64(guildID),
		Volume:   domain.DefaultVolume,
		LoopMode: domain.LoopModeNone.String(),
		DJRoleID: uint64(roleID),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "guild_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"dj_role_id", "updated_at"}),
	}).Create(&model).Error
	if err != nil {
		return errors.Wrapf(err, "failed to save dj role for guild %s", guildID)
	}
	return nil
}

// RecordPlay appends a play record.
func (s *SQLiteStore) RecordPlay(ctx context.Context, record ports.PlayRecord) error {
	model := playHistoryModel{
		GuildID:     uint64(record.GuildID),
		TrackKey:    trackKey(record.Track),
		Track:       newTrackColumns(record.Track),
		RequesterID: uint64(record.RequesterID),
		PlayedAt:    record.PlayedAt,
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return errors.Wrapf(err, "failed to record play of %q", record.Track.Title)
	}
	return nil
}

// TopTracks returns the most played tracks of a guild, most played first.
// Ties go to the most recently played track.
func (s *SQLiteStore) TopTracks(ctx context.Context, guildID snowflake.ID, limit int) ([]ports.TrackPlayCount, error) {
	var rows []struct {
		Plays    int
		LatestID uint
	}
	err := s.db.WithContext(ctx).
		Model(&playHistoryModel{}).
		Select("COUNT(*) AS plays, MAX(id) AS latest_id").
		Where("guild_id = ?", uint64(guildID)).
		Group("track_key").
		Order("plays DESC, latest_id DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrapf(err, "failed to aggregate play history for guild %s", guildID)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]uint, len(rows))
	for i, row := range rows {
		ids[i] = row.LatestID
	}
	var latest []playHistoryModel
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&latest).Error; err != nil {
		return nil, errors.Wrap(err, "failed to load play history rows")
	}
	byID := make(map[uint]playHistoryModel, len(latest))
	for _, model := range latest {
		byID[model.ID] = model
	}

	result := make([]ports.TrackPlayCount, 0, len(rows))
	for _, row := range rows {
		model, ok := byID[row.LatestID]
		if !ok {
			continue
		}
		result = append(result, ports.TrackPlayCount{
			Track:      model.Track.toTrack(),
			Plays:      row.Plays,
			LastPlayed: model.PlayedAt,
		})
	}
	return result, nil
}

// SaveQueue creates the queue or replaces an existing one with the same name.
func (s *SQLiteStore) SaveQueue(ctx context.Context, queue ports.SavedQueue) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := deleteSavedQueue(tx, queue.GuildID, queue.Name)
		if err != nil {
			return err
		}

		model := savedQueueModel{
			GuildID:   uint64(queue.GuildID),
			Name:      queue.Name,
			OwnerID:   uint64(queue.OwnerID),
			CreatedAt: queue.CreatedAt,
			Tracks:    make([]savedQueueTrackModel, len(queue.Tracks)),
		}
		for i, track := range queue.Tracks {
			model.Tracks[i] = savedQueueTrackModel{Position: i, Track: newTrackColumns(track)}
		}
		return tx.Create(&model).Error
	})
	if err != nil {
		return errors.Wrapf(err, "failed to save queue %q", queue.Name)
	}
	return nil
}

// FindQueue returns the named queue, or nil when it does not exist.
func (s *SQLiteStore) FindQueue(ctx context.Context, guildID snowflake.ID, name string) (*ports.SavedQueue, error) {
	var model savedQueueModel
	err := s.db.WithContext(ctx).
		Preload("Tracks", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("guild_id = ? AND name = ?", uint64(guildID), name).
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to find queue %q", name)
	}

	tracks := make([]domain.Track, len(model.Tracks))
	for i, track := range model.Tracks {
		tracks[i] = track.Track.toTrack()
	}
	return &ports.SavedQueue{
		GuildID:   snowflake.ID(model.GuildID),
		Name:      model.Name,
		OwnerID:   snowflake.ID(model.OwnerID),
		Tracks:    tracks,
		CreatedAt: model.CreatedAt,
	}, nil
}

// ListQueues returns the saved queues of a guild ordered by name.
func (s *SQLiteStore) ListQueues(ctx context.Context, guildID snowflake.ID) ([]ports.SavedQueueSummary, error) {
	var rows []struct {
		Name       string
		OwnerID    uint64
		CreatedAt  time.Time
		TrackCount int
	}
	err := s.db.WithContext(ctx).
		Table("saved_queues").
		Select("saved_queues.name, saved_queues.owner_id, saved_queues.created_at, " +
			"(SELECT COUNT(*) FROM saved_queue_tracks WHERE saved_queue_tracks.saved_queue_id = saved_queues.id) AS track_count").
		Where("saved_queues.guild_id = ?", uint64(guildID)).
		Order("saved_queues.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list saved queues for guild %s", guildID)
	}

	summaries := make([]ports.SavedQueueSummary, len(rows))
	for i, row := range rows {
		summaries[i] = ports.SavedQueueSummary{
			Name:       row.Name,
			OwnerID:    snowflake.ID(row.OwnerID),
			TrackCount: row.TrackCount,
			CreatedAt:  row.CreatedAt,
		}
	}
	return summaries, nil
}

// DeleteQueue removes the named queue and reports whether it existed.
func (s *SQLiteStore) DeleteQueue(ctx context.Context, guildID snowflake.ID, name string) (bool, error) {
	var deleted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&savedQueueModel{}).
			Where("guild_id = ? AND name = ?", uint64(guildID), name).
			Count(&count).Error
		if err != nil {
			return err
		}
		deleted = count > 0
		return deleteSavedQueue(tx, guildID, name)
	})
	if err != nil {
		return false, errors.Wrapf(err, "failed to delete queue %q", name)
	}
	return deleted, nil
}

// deleteSavedQueue removes a saved queue and its tracks.
func deleteSavedQueue(tx *gorm.DB, guildID snowflake.ID, name string) error {
	var ids []uint
	err := tx.Model(&savedQueueModel{}).
		Where("guild_id = ? AND name = ?", uint64(guildID), name).
		Pluck("id", &ids).Error
	if err != nil || len(ids) == 0 {
		return err
	}
	if err := tx.Where("saved_queue_id IN ?", ids).Delete(&savedQueueTrackModel{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&savedQueueModel{}).Error
}

var (
	_ ports.GuildSettingsStore = (*SQLiteStore)(nil)
	_ ports.DJRoleStore        = (*SQLiteStore)(nil)
	_ ports.PlayHistoryStore   = (*SQLiteStore)(nil)
	_ ports.SavedQueueStore    = (*SQLiteStore)(nil)
)
