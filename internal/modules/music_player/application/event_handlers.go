package application

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/ascend/internal/modules/music_player/application/ports"
	"github.com/sglre6355/ascend/internal/modules/music_player/domain"
)

// PlaybackController drives the audio player from queue transitions.
// It is implemented by usecases.PlaybackService.
type PlaybackController interface {
	StartIfIdle(ctx context.Context, guildID snowflake.ID) error
	Advance(ctx context.Context, guildID snowflake.ID, failed bool) error
	Halt(ctx context.Context, guildID snowflake.ID) error
}

// PlaybackEventHandler handles events related to playback control.
// It subscribes to TrackEnqueued, TrackEnded and QueueCleared events to manage playback flow.
type PlaybackEventHandler struct {
	controller PlaybackController
	subscriber ports.EventSubscriber
}

// NewPlaybackEventHandler creates a new PlaybackEventHandler.
func NewPlaybackEventHandler(
	controller PlaybackController,
	subscriber ports.EventSubscriber,
) *PlaybackEventHandler {
	return &PlaybackEventHandler{
		controller: controller,
		subscriber: subscriber,
	}
}

// Start registers event handlers with the subscriber.
func (h *PlaybackEventHandler) Start() error {
	err := subscribe(h.subscriber, h.handleTrackEnqueued)
	if err != nil {
		return err
	}
	err = subscribe(h.subscriber, h.handleTrackEnded)
	if err != nil {
		return err
	}
	err = subscribe(h.subscriber, h.handleQueueCleared)
	if err != nil {
		return err
	}

	slog.Debug("playback event handlers properly registered")

	return nil
}

func (h *PlaybackEventHandler) handleTrackEnqueued(ctx context.Context, event domain.TrackEnqueuedEvent) {
	if !event.WasIdle {
		return
	}

	// Several enqueues may race while idle; StartIfIdle re-checks under the state.
	if err := h.controller.StartIfIdle(ctx, event.GuildID); err != nil {
		slog.Error(
			"failed to start playback after enqueue",
			"guild", event.GuildID,
			"error", err,
		)
	}
}

func (h *PlaybackEventHandler) handleTrackEnded(ctx context.Context, event domain.TrackEndedEvent) {
	if !event.Reason.ShouldAdvanceQueue() {
		return
	}

	slog.Debug(
		"track ended, advancing queue",
		"guild", event.GuildID,
		"reason", event.Reason,
	)

	failed := event.Reason == domain.TrackEndLoadFailed
	if err := h.controller.Advance(ctx, event.GuildID, failed); err != nil {
		slog.Error(
			"failed to advance queue",
			"guild", event.GuildID,
			"reason", event.Reason,
			"error", err,
		)
	}
}

func (h *PlaybackEventHandler) handleQueueCleared(ctx context.Context, event domain.QueueClearedEvent) {
	if err := h.controller.Halt(ctx, event.GuildID); err != nil {
		slog.Warn(
			"failed to halt playback after queue clear",
			"guild", event.GuildID,
			"error", err,
		)
	}
}

// NotificationEventHandler handles events related to Discord notifications.
// It keeps one "Now Playing" message per guild and records started tracks in the play history.
type NotificationEventHandler struct {
	playerStates domain.PlayerStateRepository
	subscriber   ports.EventSubscriber
	notifier     ports.NotificationSender
	history      ports.PlayHistoryStore
	now          func() time.Time
}

// NewNotificationEventHandler creates a new NotificationEventHandler. history may be nil.
func NewNotificationEventHandler(
	playerStates domain.PlayerStateRepository,
	subscriber ports.EventSubscriber,
	notifier ports.NotificationSender,
	history ports.PlayHistoryStore,
) *NotificationEventHandler {
	return &NotificationEventHandler{
		playerStates: playerStates,
		subscriber:   subscriber,
		notifier:     notifier,
		history:      history,
		now:          time.Now,
	}
}

// Start registers event handlers with the subscriber.
func (h *NotificationEventHandler) Start() error {
	err := subscribe(h.subscriber, h.handlePlaybackStarted)
	if err != nil {
		return err
	}
	err = subscribe(h.subscriber, h.handlePlaybackFinished)
	if err != nil {
		return err
	}
	err = subscribe(h.subscriber, h.handleSessionClosed)
	if err != nil {
		return err
	}

	slog.Debug("notification event handlers properly registered")

	return nil
}

func (h *NotificationEventHandler) handlePlaybackStarted(
	ctx context.Context,
	event domain.PlaybackStartedEvent,
) {
	h.recordPlay(ctx, event)

	state, err := h.playerStates.Get(ctx, event.GuildID)
	if err != nil {
		slog.Debug(
			"skipping now playing notification, state not found",
			"guild", event.GuildID,
		)
		return
	}

	h.deleteMessage(state.TakeNowPlayingMessage(), event.GuildID)

	// The entry may already be gone when a track fails right after starting.
	current := state.CurrentEntry()
	if current == nil || current.ID != event.Entry.ID {
		slog.Debug(
			"skipping now playing notification, entry is no longer current",
			"guild", event.GuildID,
			"track", event.Entry.Track.Title,
		)
		return
	}

	channelID := event.NotificationChannelID
	if channelID == 0 {
		channelID = state.GetNotificationChannelID()
	}
	if channelID == 0 {
		return
	}

	snapshot := state.Queue.Snapshot()
	messageID, err := h.notifier.SendNowPlaying(channelID, &ports.NowPlayingInfo{
		Entry:       event.Entry,
		LoopMode:    snapshot.LoopMode,
		Shuffled:    snapshot.Shuffled,
		Autoplay:    snapshot.Autoplay,
		Paused:      state.IsPaused(),
		Volume:      state.Volume(),
		QueueLength: len(snapshot.Entries),
	})
	if err != nil {
		slog.Error(
			"failed to send now playing notification",
			"guild", event.GuildID,
			"channel", channelID,
			"error", err,
		)
		return
	}

	state.SetNowPlayingMessage(channelID, messageID)
}

func (h *NotificationEventHandler) handlePlaybackFinished(
	ctx context.Context,
	event domain.PlaybackFinishedEvent,
) {
	state, err := h.playerStates.Get(ctx, event.GuildID)
	if err != nil {
		return
	}
	h.deleteMessage(state.TakeNowPlayingMessage(), event.GuildID)
}

func (h *NotificationEventHandler) handleSessionClosed(
	_ context.Context,
	event domain.SessionClosedEvent,
) {
	h.deleteMessage(event.NowPlayingMessage, event.GuildID)
}

func (h *NotificationEventHandler) deleteMessage(msg *domain.NowPlayingMessage, guildID snowflake.ID) {
	if msg == nil {
		return
	}
	if err := h.notifier.DeleteMessage(msg.ChannelID, msg.MessageID); err != nil {
		slog.Warn(
			"failed to delete now playing message",
			"guild", guildID,
			"channel", msg.ChannelID,
			"message", msg.MessageID,
			"error", err,
		)
	}
}

func (h *NotificationEventHandler) recordPlay(ctx context.Context, event domain.PlaybackStartedEvent) {
	if h.history == nil || event.Entry == nil {
		return
	}
	err := h.history.RecordPlay(ctx, ports.PlayRecord{
		GuildID:     event.GuildID,
		Track:       event.Entry.Track,
		RequesterID: event.Entry.Requester.ID,
		PlayedAt:    h.now(),
	})
	if err != nil {
		slog.Warn(
			"failed to record play",
			"guild", event.GuildID,
			"track", event.Entry.Track.Title,
			"error", err,
		)
	}
}

// DefaultIdleTimeout is how long a session may sit idle before it is closed.
const DefaultIdleTimeout = 5 * time.Minute

// SessionCloser disconnects a guild's voice session.
// It is implemented by usecases.VoiceChannelService.
type SessionCloser interface {
	CloseIdle(ctx context.Context, guildID snowflake.ID) (bool, error)
}

// IdleTimer is the part of *time.Timer the IdleEventHandler needs.
type IdleTimer interface {
	Stop() bool
}

// IdleEventHandler disconnects sessions that stay idle for the idle timeout
// after the queue runs out.
type IdleEventHandler struct {
	closer     SessionCloser
	subscriber ports.EventSubscriber
	timeout    time.Duration
	afterFunc  func(time.Duration, func()) IdleTimer

	mu     sync.Mutex
	timers map[snowflake.ID]*pendingClose
}

type pendingClose struct {
	timer IdleTimer
}

// NewIdleEventHandler creates a new IdleEventHandler. A non-positive timeout
// uses DefaultIdleTimeout.
func NewIdleEventHandler(
	closer SessionCloser,
	subscriber ports.EventSubscriber,
	timeout time.Duration,
) *IdleEventHandler {
	if timeout <= 0 {
		timeout = DefaultIdleTimeout
	}
	return &IdleEventHandler{
		closer:     closer,
		subscriber: subscriber,
		timeout:    timeout,
		afterFunc: func(d time.Duration, f func()) IdleTimer {
			return time.AfterFunc(d, f)
		},
		timers: make(map[snowflake.ID]*pendingClose),
	}
}

// Start registers event handlers with the subscriber.
func (h *IdleEventHandler) Start() error {
	err := subscribe(h.subscriber, h.handlePlaybackFinished)
	if err != nil {
		return err
	}
	err = subscribe(h.subscriber, h.handlePlaybackStarted)
	if err != nil {
		return err
	}
	err = subscribe(h.subscriber, h.handleSessionClosed)
	if err != nil {
		return err
	}

	slog.Debug("idle event handlers properly registered")

	return nil
}

// Stop cancels every pending idle timer.
func (h *IdleEventHandler) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for guildID, pending := range h.timers {
		pending.timer.Stop()
		delete(h.timers, guildID)
	}
}

func (h *IdleEventHandler) handlePlaybackFinished(_ context.Context, event domain.PlaybackFinishedEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if pending, ok := h.timers[event.GuildID]; ok {
		pending.timer.Stop()
	}

	pending := &pendingClose{}
	h.timers[event.GuildID] = pending
	pending.timer = h.afterFunc(h.timeout, func() { h.expire(event.GuildID, pending) })
}

func (h *IdleEventHandler) handlePlaybackStarted(_ context.Context, event domain.PlaybackStartedEvent) {
	h.cancel(event.GuildID)
}

func (h *IdleEventHandler) handleSessionClosed(_ context.Context, event domain.SessionClosedEvent) {
	h.cancel(event.GuildID)
}

func (h *IdleEventHandler) cancel(guildID snowflake.ID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if pending, ok := h.timers[guildID]; ok {
		pending.timer.Stop()
		delete(h.timers, guildID)
	}
}

// expire closes the session if pending is still the guild's pending close.
func (h *IdleEventHandler) expire(guildID snowflake.ID, pending *pendingClose) {
	h.mu.Lock()
	if h.timers[guildID] != pending {
		h.mu.Unlock()
		return
	}
	delete(h.timers, guildID)
	h.mu.Unlock()

	closed, err := h.closer.CloseIdle(context.Background(), guildID)
	if err != nil {
		slog.Warn("failed to close idle session", "guild", guildID, "error", err)
		return
	}
	if closed {
		slog.Info("closed idle session", "guild", guildID, "idle", h.timeout)
	}
}

// subscribe registers a typed handler for events of type E.
func subscribe[E domain.Event](
	subscriber ports.EventSubscriber,
	handler func(context.Context, E),
) error {
	return subscriber.Subscribe(
		reflect.TypeFor[E](),
		func(ctx context.Context, e domain.Event) {
			handler(ctx, e.(E))
		},
	)
}
