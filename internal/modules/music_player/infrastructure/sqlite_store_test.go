package infrastructure

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/ascend/internal/modules/music_player/application/ports"
	"github.com/sglre6355/ascend/internal/modules/music_player/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	base := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	store, err := NewSQLiteStore(
		filepath.Join(t.TempDir(), "data", "ascend.db"),
		NewGormLogger(base, logger.Silent),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func storedTrack(id string) domain.Track {
	return domain.Track{
		Encoded:    "enc-" + id,
		Identifier: id,
		Title:      "Track " + id,
		Author:     "Artist",
		Duration:   3*time.Minute + 250*time.Millisecond,
		URI:        "https://youtube.com/watch?v=" + id,
		SourceName: "youtube",
	}
}

func TestSQLiteStore_Settings(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	guildID := snowflake.ID(42)

	settings, err := store.LoadSettings(ctx, guildID)
	require.NoError(t, err)
	assert.Nil(t, settings)

	require.NoError(t, store.SaveSettings(ctx, ports.GuildSettings{
		GuildID:   guildID,
		Volume:    80,
		LoopMode:  domain.LoopModeQueue,
		Autoplay:  true,
		Blacklist: []string{"nightcore", "8d"},
	}))
	require.NoError(t, store.SaveSettings(ctx, ports.GuildSettings{
		GuildID:   guildID,
		Volume:    60,
		LoopMode:  domain.LoopModeTrack,
		Blacklist: []string{"slowed"},
	}))

	settings, err = store.LoadSettings(ctx, guildID)
	require.NoError(t, err)
	require.NotNil(t, settings)
	assert.Equal(t, ports.GuildSettings{
		GuildID:   guildID,
		Volume:    60,
		LoopMode:  domain.LoopModeTrack,
		Autoplay:  false,
		Blacklist: []string{"slowed"},
	}, *settings)
}

func TestSQLiteStore_DJRole(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	guildID := snowflake.ID(42)

	role, err := store.LoadDJRole(ctx, guildID)
	require.NoError(t, err)
	assert.Zero(t, role)

	t.Run("saved before any settings", func(t *testing.T) {
		require.NoError(t, store.SaveDJRole(ctx, guildID, 777))

		role, err := store.LoadDJRole(ctx, guildID)
		require.NoError(t, err)
		assert.EqualValues(t, 777, role)

		settings, err := store.LoadSettings(ctx, guildID)
		require.NoError(t, err)
		require.NotNil(t, settings)
		assert.Equal(t, domain.DefaultVolume, settings.Volume)
	})

	t.Run("survives a settings save", func(t *testing.T) {
		require.NoError(t, store.SaveSettings(ctx, ports.GuildSettings{GuildID: guildID, Volume: 70}))

		role, err := store.LoadDJRole(ctx, guildID)
		require.NoError(t, err)
		assert.EqualValues(t, 777, role)
	})

	t.Run("keeps the settings", func(t *testing.T) {
		require.NoError(t, store.SaveDJRole(ctx, guildID, 888))

		settings, err := store.LoadSettings(ctx, guildID)
		require.NoError(t, err)
		assert.Equal(t, 70, settings.Volume)
	})

	t.Run("cleared", func(t *testing.T) {
		require.NoError(t, store.SaveDJRole(ctx, guildID, 0))

		role, err := store.LoadDJRole(ctx, guildID)
		require.NoError(t, err)
		assert.Zero(t, role)
	})
}

func TestSQLiteStore_TopTracks(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	guildID := snowflake.ID(42)
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	plays := []string{"a", "b", "a", "c", "b", "a"}
	for i, id := range plays {
		require.NoError(t, store.RecordPlay(ctx, ports.PlayRecord{
			GuildID:     guildID,
			Track:       storedTrack(id),
			RequesterID: 7,
			PlayedAt:    start.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, store.RecordPlay(ctx, ports.PlayRecord{
		GuildID:  99,
		Track:    storedTrack("z"),
		PlayedAt: start,
	}))

	top, err := store.TopTracks(ctx, guildID, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)

	assert.Equal(t, storedTrack("a"), top[0].Track)
	assert.Equal(t, 3, top[0].Plays)
	assert.True(t, top[0].LastPlayed.Equal(start.Add(5*time.Minute)))
	assert.Equal(t, "Track b", top[1].Track.Title)
	assert.Equal(t, 2, top[1].Plays)

	empty, err := store.TopTracks(ctx, 1234, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLiteStore_SavedQueues(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	guildID := snowflake.ID(42)
	createdAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	found, err := store.FindQueue(ctx, guildID, "party")
	require.NoError(t, err)
	assert.Nil(t, found)

	require.NoError(t, store.SaveQueue(ctx, ports.SavedQueue{
		GuildID:   guildID,
		Name:      "party",
		OwnerID:   7,
		Tracks:    []domain.Track{storedTrack("a"), storedTrack("b"), storedTrack("c")},
		CreatedAt: createdAt,
	}))
	require.NoError(t, store.SaveQueue(ctx, ports.SavedQueue{
		GuildID:   guildID,
		Name:      "chill",
		OwnerID:   8,
		Tracks:    []domain.Track{storedTrack("d")},
		CreatedAt: createdAt,
	}))

	found, err = store.FindQueue(ctx, guildID, "party")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.EqualValues(t, 7, found.OwnerID)
	assert.Equal(t, []domain.Track{storedTrack("a"), storedTrack("b"), storedTrack("c")}, found.Tracks)

	t.Run("overwrite replaces tracks", func(t *testing.T) {
		require.NoError(t, store.SaveQueue(ctx, ports.SavedQueue{
			GuildID:   guildID,
			Name:      "party",
			OwnerID:   9,
			Tracks:    []domain.Track{storedTrack("e")},
			CreatedAt: createdAt,
		}))

		found, err := store.FindQueue(ctx, guildID, "party")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.EqualValues(t, 9, found.OwnerID)
		assert.Equal(t, []domain.Track{storedTrack("e")}, found.Tracks)
	})

	t.Run("list is ordered by name", func(t *testing.T) {
		list, err := store.ListQueues(ctx, guildID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "chill", list[0].Name)
		assert.Equal(t, 1, list[0].TrackCount)
		assert.Equal(t, "party", list[1].Name)
		assert.Equal(t, 1, list[1].TrackCount)
	})

	t.Run("queues are per guild", func(t *testing.T) {
		found, err := store.FindQueue(ctx, 99, "party")
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("delete", func(t *testing.T) {
		deleted, err := store.DeleteQueue(ctx, guildID, "chill")
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = store.DeleteQueue(ctx, guildID, "chill")
		require.NoError(t, err)
		assert.False(t, deleted)

		list, err := store.ListQueues(ctx, guildID)
		require.NoError(t, err)
		require.Len(t, list, 1)
	})
}

func TestTrackKey(t *testing.T) {
	tests := []struct {
		name  string
		track domain.Track
		want  string
	}{
		{name: "uri", track: domain.Track{URI: "https://a", Identifier: "x"}, want: "https://a"},
		{name: "identifier", track: domain.Track{Identifier: "x", SourceName: "youtube"}, want: "youtube:x"},
		{name: "title", track: domain.Track{Title: "Song", Author: "Band"}, want: "Band - Song"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, trackKey(tt.track))
		})
	}
}
