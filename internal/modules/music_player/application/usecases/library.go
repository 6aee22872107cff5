package usecases

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/ascend/internal/modules/music_player/application/ports"
	"github.com/sglre6355/ascend/internal/modules/music_player/domain"
)

// DefaultTopTracksLimit is the number of tracks TopTracks returns by default.
const DefaultTopTracksLimit = 10

// maxSavedQueueNameLength matches Discord's limit for autocomplete choice names.
const maxSavedQueueNameLength = 100

// SaveQueueInput contains the input for the SaveQueue use case.
type SaveQueueInput struct {
	GuildID   snowflake.ID
	OwnerID   snowflake.ID
	Name      string
	Overwrite bool
}

// SaveQueueOutput contains the result of the SaveQueue use case.
type SaveQueueOutput struct {
	Name       string
	TrackCount int
}

// LoadQueueInput contains the input for the LoadQueue use case.
type LoadQueueInput struct {
	GuildID               snowflake.ID
	Name                  string
	Requester             domain.Requester
	NotificationChannelID snowflake.ID
}

// LibraryService manages saved queues and play statistics.
type LibraryService struct {
	repo        domain.PlayerStateRepository
	queue       *QueueService
	savedQueues ports.SavedQueueStore
	history     ports.PlayHistoryStore
	now         func() time.Time
}

// NewLibraryService creates a new LibraryService.
func NewLibraryService(
	repo domain.PlayerStateRepository,
	queue *QueueService,
	savedQueues ports.SavedQueueStore,
	history ports.PlayHistoryStore,
) *LibraryService {
	return &LibraryService{
		repo:        repo,
		queue:       queue,
		savedQueues: savedQueues,
		history:     history,
		now:         time.Now,
	}
}

// SaveQueue stores the current entry and the upcoming entries under a name.
func (l *LibraryService) SaveQueue(ctx context.Context, input SaveQueueInput) (*SaveQueueOutput, error) {
	name, err := normalizeQueueName(input.Name)
	if err != nil {
		return nil, err
	}

	state, err := getState(ctx, l.repo, input.GuildID, 0)
	if err != nil {
		return nil, err
	}

	snapshot := state.Queue.Snapshot()
	tracks := make([]domain.Track, 0, len(snapshot.Entries)+1)
	if snapshot.Current != nil {
		tracks = append(tracks, snapshot.Current.Track)
	}
	for _, entry := range snapshot.Entries {
		tracks = append(tracks, entry.Track)
	}
	if len(tracks) == 0 {
		return nil, ErrQueueEmpty
	}

	if !input.Overwrite {
		existing, err := l.savedQueues.FindQueue(ctx, input.GuildID, name)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, ErrSavedQueueExists
		}
	}

	err = l.savedQueues.SaveQueue(ctx, ports.SavedQueue{
		GuildID:   input.GuildID,
		Name:      name,
		OwnerID:   input.OwnerID,
		Tracks:    tracks,
		CreatedAt: l.now(),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to save queue %q", name)
	}

	return &SaveQueueOutput{Name: name, TrackCount: len(tracks)}, nil
}

// LoadQueue appends the tracks of a saved queue to the live queue.
func (l *LibraryService) LoadQueue(
	ctx context.Context,
	input LoadQueueInput,
) (*QueueAddMultipleOutput, error) {
	name, err := normalizeQueueName(input.Name)
	if err != nil {
		return nil, err
	}

	saved, err := l.savedQueues.FindQueue(ctx, input.GuildID, name)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, ErrSavedQueueNotFound
	}

	return l.queue.AddMultiple(ctx, QueueAddMultipleInput{
		GuildID:               input.GuildID,
		Tracks:                saved.Tracks,
		Requester:             input.Requester,
		NotificationChannelID: input.NotificationChannelID,
	})
}

// ListSavedQueues returns the guild's saved queues.
func (l *LibraryService) ListSavedQueues(
	ctx context.Context,
	guildID snowflake.ID,
) ([]ports.SavedQueueSummary, error) {
	return l.savedQueues.ListQueues(ctx, guildID)
}

// DeleteSavedQueue removes a saved queue.
func (l *LibraryService) DeleteSavedQueue(ctx context.Context, guildID snowflake.ID, name string) error {
	name, err := normalizeQueueName(name)
	if err != nil {
		return err
	}

	deleted, err := l.savedQueues.DeleteQueue(ctx, guildID, name)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrSavedQueueNotFound
	}
	return nil
}

// TopTracks returns the guild's most played tracks.
func (l *LibraryService) TopTracks(
	ctx context.Context,
	guildID snowflake.ID,
	limit int,
) ([]ports.TrackPlayCount, error) {
	if limit <= 0 {
		limit = DefaultTopTracksLimit
	}
	return l.history.TopTracks(ctx, guildID, limit)
}

func normalizeQueueName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxSavedQueueNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}
