package usecases

import (
	"context"
	"slices"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/dustin/go-humanize"
	"github.com/sglre6355/ascend/internal/modules/music_player/application/ports"
	"github.com/sglre6355/ascend/internal/modules/music_player/domain"
)

// DefaultPageSize is the number of entries shown on one queue page.
const DefaultPageSize = 10

// QueueAddInput contains the input for the QueueAdd use case.
type QueueAddInput struct {
	GuildID               snowflake.ID
	Track                 domain.Track
	Requester             domain.Requester
	Priority              bool
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// QueueAddOutput contains the result of the QueueAdd use case.
type QueueAddOutput struct {
	Entry *domain.QueueEntry
	// WasIdle is true when nothing was playing, so the entry starts right away.
	WasIdle bool
	// StartsIn is a humanized estimate of when the entry starts, e.g. "4 minutes from now".
	StartsIn string
}

// QueueAddMultipleInput contains the input for the QueueAddMultiple use case.
type QueueAddMultipleInput struct {
	GuildID               snowflake.ID
	Tracks                []domain.Track
	Requester             domain.Requester
	NotificationChannelID snowflake.ID
}

// QueueAddMultipleOutput contains the result of the QueueAddMultiple use case.
type QueueAddMultipleOutput struct {
	Added   []*domain.QueueEntry
	Skipped int // Tracks rejected by capacity or blacklist
	WasIdle bool
}

// QueueListInput contains the input for the QueueList use case.
type QueueListInput struct {
	GuildID               snowflake.ID
	Page                  int          // 1-indexed page number
	PageSize              int          // Items per page (optional, defaults to 10)
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// QueueListItem is an upcoming entry with its estimated start.
type QueueListItem struct {
	Entry    *domain.QueueEntry
	StartsIn string
}

// QueueListOutput contains the result of the QueueList use case.
type QueueListOutput struct {
	Current       *domain.QueueEntry
	Items         []QueueListItem
	TotalEntries  int
	TotalDuration time.Duration
	CurrentPage   int
	TotalPages    int
	LoopMode      domain.LoopMode
	Shuffled      bool
	Autoplay      bool
}

// QueueRemoveInput contains the input for the QueueRemove use case.
type QueueRemoveInput struct {
	GuildID               snowflake.ID
	Position              int          // 0-indexed position among upcoming entries
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// QueueRemoveOutput contains the result of the QueueRemove use case.
type QueueRemoveOutput struct {
	Removed *domain.QueueEntry
}

// QueueMoveInput contains the input for the QueueMove use case.
type QueueMoveInput struct {
	GuildID  snowflake.ID
	From, To int // 0-indexed positions among upcoming entries
}

// QueueClearInput contains the input for the QueueClear use case.
type QueueClearInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// QueueClearOutput contains the result of the QueueClear use case.
type QueueClearOutput struct {
	ClearedCount int
}

// QueueService handles queue operations.
type QueueService struct {
	repo      domain.PlayerStateRepository
	publisher ports.EventPublisher
	player    ports.AudioPlayer
	settings  ports.GuildSettingsStore
	now       func() time.Time
}

// NewQueueService creates a new QueueService.
// player is used for start time estimates and may be nil.
func NewQueueService(
	repo domain.PlayerStateRepository,
	publisher ports.EventPublisher,
	player ports.AudioPlayer,
	settings ports.GuildSettingsStore,
) *QueueService {
	return &QueueService{
		repo:      repo,
		publisher: publisher,
		player:    player,
		settings:  settings,
		now:       time.Now,
	}
}

// Add adds a track to the queue and publishes an event to trigger playback if idle.
func (q *QueueService) Add(ctx context.Context, input QueueAddInput) (*QueueAddOutput, error) {
	state, err := getState(ctx, q.repo, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	wasIdle := state.IsIdle()
	entry, err := state.Queue.Add(input.Track, input.Requester, input.Priority)
	if err != nil {
		return nil, err
	}

	// PlaybackEventHandler starts playback if the player was idle
	publish(q.publisher, domain.TrackEnqueuedEvent{
		GuildID: input.GuildID,
		Entries: []*domain.QueueEntry{entry},
		WasIdle: wasIdle,
	})

	out := &QueueAddOutput{Entry: entry, WasIdle: wasIdle}
	if !wasIdle {
		out.StartsIn = q.startsIn(state, entry.Position)
	}
	return out, nil
}

// AddMultiple adds tracks in order, skipping those the queue rejects.
func (q *QueueService) AddMultiple(
	ctx context.Context,
	input QueueAddMultipleInput,
) (*QueueAddMultipleOutput, error) {
	state, err := getState(ctx, q.repo, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	wasIdle := state.IsIdle()
	added := state.Queue.AddMultiple(input.Tracks, input.Requester)

	if len(added) > 0 {
		publish(q.publisher, domain.TrackEnqueuedEvent{
			GuildID: input.GuildID,
			Entries: added,
			WasIdle: wasIdle,
		})
	}

	return &QueueAddMultipleOutput{
		Added:   added,
		Skipped: len(input.Tracks) - len(added),
		WasIdle: wasIdle,
	}, nil
}

// List returns the upcoming entries with pagination.
func (q *QueueService) List(ctx context.Context, input QueueListInput) (*QueueListOutput, error) {
	state, err := getState(ctx, q.repo, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	pageSize := input.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	snapshot := state.Queue.Snapshot()
	total := len(snapshot.Entries)
	totalPages := max(1, (total+pageSize-1)/pageSize)
	page := min(max(input.Page, 1), totalPages)

	start := min((page-1)*pageSize, total)
	end := min(start+pageSize, total)

	items := make([]QueueListItem, 0, end-start)
	for _, entry := range snapshot.Entries[start:end] {
		items = append(items, QueueListItem{
			Entry:    entry,
			StartsIn: q.startsIn(state, entry.Position),
		})
	}

	return &QueueListOutput{
		Current:       state.CurrentEntry(),
		Items:         items,
		TotalEntries:  total,
		TotalDuration: state.Queue.TotalDuration(),
		CurrentPage:   page,
		TotalPages:    totalPages,
		LoopMode:      snapshot.LoopMode,
		Shuffled:      snapshot.Shuffled,
		Autoplay:      snapshot.Autoplay,
	}, nil
}

// startsIn estimates when the upcoming entry at position starts, counting the
// remainder of the current track.
func (q *QueueService) startsIn(state *domain.PlayerState, position int) string {
	now := q.now()
	start := now.Add(state.Queue.StartOffset(position))

	if current := state.CurrentEntry(); current != nil && !current.Track.IsStream {
		remaining := current.Track.Duration
		if q.player != nil {
			remaining -= q.player.Position(state.GetGuildID())
		}
		start = start.Add(max(remaining, 0))
	}

	if !start.After(now) {
		return "now"
	}
	return humanize.RelTime(now, start, "from now", "ago")
}

// Remove removes the upcoming entry at the given position.
func (q *QueueService) Remove(ctx context.Context, input QueueRemoveInput) (*QueueRemoveOutput, error) {
	state, err := getState(ctx, q.repo, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	if state.Queue.Len() == 0 {
		return nil, ErrQueueEmpty
	}

	removed := state.Queue.Remove(input.Position)
	if removed == nil {
		return nil, ErrInvalidPosition
	}

	return &QueueRemoveOutput{Removed: removed}, nil
}

// Move relocates an upcoming entry.
func (q *QueueService) Move(ctx context.Context, input QueueMoveInput) (*domain.QueueEntry, error) {
	state, err := getState(ctx, q.repo, input.GuildID, 0)
	if err != nil {
		return nil, err
	}

	if state.Queue.Len() == 0 {
		return nil, ErrQueueEmpty
	}
	if !state.Queue.Move(input.From, input.To) {
		return nil, ErrInvalidPosition
	}

	return state.Queue.EntryAt(input.To), nil
}

// Clear drops the queue including the current entry; playback stops.
func (q *QueueService) Clear(ctx context.Context, input QueueClearInput) (*QueueClearOutput, error) {
	state, err := getState(ctx, q.repo, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	count := state.Queue.Len()
	if state.Queue.Current() != nil {
		count++
	}
	if count == 0 {
		return nil, ErrQueueEmpty
	}

	state.Queue.Clear()
	publish(q.publisher, domain.QueueClearedEvent{GuildID: input.GuildID})

	return &QueueClearOutput{ClearedCount: count}, nil
}

// Shuffle toggles shuffle mode and returns the new state.
func (q *QueueService) Shuffle(ctx context.Context, guildID snowflake.ID) (bool, error) {
	state, err := getState(ctx, q.repo, guildID, 0)
	if err != nil {
		return false, err
	}
	return state.Queue.ToggleShuffle(), nil
}

// Search returns the upcoming entries matching query.
func (q *QueueService) Search(
	ctx context.Context,
	guildID snowflake.ID,
	query string,
) ([]*domain.QueueEntry, error) {
	state, err := getState(ctx, q.repo, guildID, 0)
	if err != nil {
		return nil, err
	}
	return state.Queue.Search(query), nil
}

// Stats returns statistics over the upcoming entries.
func (q *QueueService) Stats(ctx context.Context, guildID snowflake.ID) (*domain.QueueStats, error) {
	state, err := getState(ctx, q.repo, guildID, 0)
	if err != nil {
		return nil, err
	}
	stats := state.Queue.Stats()
	return &stats, nil
}

// History returns up to limit finished entries, most recent first.
func (q *QueueService) History(
	ctx context.Context,
	guildID snowflake.ID,
	limit int,
) ([]*domain.QueueEntry, error) {
	state, err := getState(ctx, q.repo, guildID, 0)
	if err != nil {
		return nil, err
	}

	history := state.Queue.Snapshot().History
	slices.Reverse(history)
	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	return history, nil
}

// Entries returns the upcoming entries.
func (q *QueueService) Entries(ctx context.Context, guildID snowflake.ID) ([]*domain.QueueEntry, error) {
	state, err := getState(ctx, q.repo, guildID, 0)
	if err != nil {
		return nil, err
	}
	return state.Queue.Snapshot().Entries, nil
}

// AddToBlacklist adds a term to the guild's blacklist. It reports false for duplicates.
// The blacklist is persisted and can be edited without an active session.
func (q *QueueService) AddToBlacklist(ctx context.Context, guildID snowflake.ID, term string) (bool, error) {
	return q.editBlacklist(ctx, guildID, func(queue *domain.Queue) bool {
		return queue.AddToBlacklist(term)
	})
}

// RemoveFromBlacklist removes a term from the guild's blacklist. It reports false when absent.
func (q *QueueService) RemoveFromBlacklist(
	ctx context.Context,
	guildID snowflake.ID,
	term string,
) (bool, error) {
	return q.editBlacklist(ctx, guildID, func(queue *domain.Queue) bool {
		return queue.RemoveFromBlacklist(term)
	})
}

// Blacklist returns the guild's blacklisted terms.
func (q *QueueService) Blacklist(ctx context.Context, guildID snowflake.ID) ([]string, error) {
	if state, err := q.repo.Get(ctx, guildID); err == nil {
		return state.Queue.Blacklist(), nil
	}

	settings, err := q.loadSettings(ctx, guildID)
	if err != nil {
		return nil, err
	}
	return settings.Blacklist, nil
}

func (q *QueueService) editBlacklist(
	ctx context.Context,
	guildID snowflake.ID,
	edit func(*domain.Queue) bool,
) (bool, error) {
	if state, err := q.repo.Get(ctx, guildID); err == nil {
		changed := edit(state.Queue)
		if changed {
			persistSettings(ctx, q.settings, state)
		}
		return changed, nil
	}

	if q.settings == nil {
		return false, ErrNotConnected
	}

	// No session: edit the stored settings through a scratch queue so the
	// same normalisation rules apply.
	settings, err := q.loadSettings(ctx, guildID)
	if err != nil {
		return false, err
	}
	scratch := domain.NewPlayerState(guildID, 0, 0, nil)
	applySettings(scratch, settings)

	changed := edit(scratch.Queue)
	if changed {
		if err := q.settings.SaveSettings(ctx, settingsOf(scratch)); err != nil {
			return false, err
		}
	}
	return changed, nil
}

func (q *QueueService) loadSettings(ctx context.Context, guildID snowflake.ID) (*ports.GuildSettings, error) {
	if q.settings == nil {
		return &ports.GuildSettings{GuildID: guildID, Volume: domain.DefaultVolume}, nil
	}
	settings, err := q.settings.LoadSettings(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		settings = &ports.GuildSettings{GuildID: guildID, Volume: domain.DefaultVolume}
	}
	return settings, nil
}
