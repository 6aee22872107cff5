package application

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/ascend/internal/modules/music_player/application/ports"
	"github.com/sglre6355/ascend/internal/modules/music_player/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testGuildID       = snowflake.ID(1)
	testTextChannelID = snowflake.ID(3)
)

// syncSubscriber delivers published events synchronously.
type syncSubscriber struct {
	handlers map[reflect.Type][]func(context.Context, domain.Event)
}

func newSyncSubscriber() *syncSubscriber {
	return &syncSubscriber{handlers: make(map[reflect.Type][]func(context.Context, domain.Event))}
}

func (s *syncSubscriber) Subscribe(eventType reflect.Type, handler func(context.Context, domain.Event)) error {
	s.handlers[eventType] = append(s.handlers[eventType], handler)
	return nil
}

func (s *syncSubscriber) deliver(event domain.Event) {
	for _, handler := range s.handlers[reflect.TypeOf(event)] {
		handler(context.Background(), event)
	}
}

type controllerCall struct {
	method string
	failed bool
}

type mockController struct {
	calls []controllerCall
	err   error
}

func (m *mockController) StartIfIdle(_ context.Context, _ snowflake.ID) error {
	m.calls = append(m.calls, controllerCall{method: "start"})
	return m.err
}

func (m *mockController) Advance(_ context.Context, _ snowflake.ID, failed bool) error {
	m.calls = append(m.calls, controllerCall{method: "advance", failed: failed})
	return m.err
}

func (m *mockController) Halt(_ context.Context, _ snowflake.ID) error {
	m.calls = append(m.calls, controllerCall{method: "halt"})
	return m.err
}

type mockRepository struct {
	states map[snowflake.ID]*domain.PlayerState
}

func (m *mockRepository) Get(_ context.Context, guildID snowflake.ID) (*domain.PlayerState, error) {
	state, ok := m.states[guildID]
	if !ok {
		return nil, domain.ErrPlayerStateNotFound
	}
	return state, nil
}

func (m *mockRepository) Save(_ context.Context, state *domain.PlayerState) error {
	m.states[state.GetGuildID()] = state
	return nil
}

func (m *mockRepository) Delete(_ context.Context, guildID snowflake.ID) error {
	delete(m.states, guildID)
	return nil
}

func (m *mockRepository) Count(_ context.Context) int { return len(m.states) }

func (m *mockRepository) GuildIDs(_ context.Context) []snowflake.ID {
	ids := make([]snowflake.ID, 0, len(m.states))
	for id := range m.states {
		ids = append(ids, id)
	}
	return ids
}

type mockNotifier struct {
	sent          []*ports.NowPlayingInfo
	sentChannels  []snowflake.ID
	deleted       []snowflake.ID
	sendErr       error
	lastMessageID snowflake.ID
}

func (m *mockNotifier) SendNowPlaying(channelID snowflake.ID, info *ports.NowPlayingInfo) (snowflake.ID, error) {
	if m.sendErr != nil {
		return 0, m.sendErr
	}
	m.sent = append(m.sent, info)
	m.sentChannels = append(m.sentChannels, channelID)
	m.lastMessageID++
	return m.lastMessageID, nil
}

func (m *mockNotifier) DeleteMessage(_, messageID snowflake.ID) error {
	m.deleted = append(m.deleted, messageID)
	return nil
}

func (m *mockNotifier) SendError(_ snowflake.ID, _ string) error { return nil }

type mockHistory struct {
	records []ports.PlayRecord
}

func (m *mockHistory) RecordPlay(_ context.Context, record ports.PlayRecord) error {
	m.records = append(m.records, record)
	return nil
}

func (m *mockHistory) TopTracks(context.Context, snowflake.ID, int) ([]ports.TrackPlayCount, error) {
	return nil, nil
}

func playingState(t *testing.T) (*domain.PlayerState, *domain.QueueEntry) {
	t.Helper()

	state := domain.NewPlayerState(testGuildID, 2, testTextChannelID, nil)
	_, err := state.Queue.Add(
		domain.Track{Encoded: "x", Title: "Song", Duration: time.Minute},
		domain.Requester{ID: 123},
		false,
	)
	require.NoError(t, err)
	entry := state.Queue.Next()
	state.StartPlayback()
	return state, entry
}

func TestPlaybackEventHandler(t *testing.T) {
	tests := []struct {
		name  string
		event domain.Event
		want  []controllerCall
	}{
		{
			name:  "enqueue while idle starts playback",
			event: domain.TrackEnqueuedEvent{GuildID: testGuildID, WasIdle: true},
			want:  []controllerCall{{method: "start"}},
		},
		{
			name:  "enqueue while playing is ignored",
			event: domain.TrackEnqueuedEvent{GuildID: testGuildID},
		},
		{
			name:  "finished track advances",
			event: domain.TrackEndedEvent{GuildID: testGuildID, Reason: domain.TrackEndFinished},
			want:  []controllerCall{{method: "advance"}},
		},
		{
			name:  "failed track advances past it",
			event: domain.TrackEndedEvent{GuildID: testGuildID, Reason: domain.TrackEndLoadFailed},
			want:  []controllerCall{{method: "advance", failed: true}},
		},
		{
			name:  "replaced track does not advance",
			event: domain.TrackEndedEvent{GuildID: testGuildID, Reason: domain.TrackEndReplaced},
		},
		{
			name:  "stopped track does not advance",
			event: domain.TrackEndedEvent{GuildID: testGuildID, Reason: domain.TrackEndStopped},
		},
		{
			name:  "cleared queue halts",
			event: domain.QueueClearedEvent{GuildID: testGuildID},
			want:  []controllerCall{{method: "halt"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subscriber := newSyncSubscriber()
			controller := &mockController{}
			require.NoError(t, NewPlaybackEventHandler(controller, subscriber).Start())

			subscriber.deliver(tt.event)

			assert.Equal(t, tt.want, controller.calls)
		})
	}
}

func TestPlaybackEventHandler_ControllerErrorIsLogged(t *testing.T) {
	subscriber := newSyncSubscriber()
	controller := &mockController{err: errors.New("node down")}
	require.NoError(t, NewPlaybackEventHandler(controller, subscriber).Start())

	assert.NotPanics(t, func() {
		subscriber.deliver(domain.TrackEndedEvent{GuildID: testGuildID, Reason: domain.TrackEndFinished})
	})
}

type notificationFixture struct {
	repo       *mockRepository
	subscriber *syncSubscriber
	notifier   *mockNotifier
	history    *mockHistory
}

func newNotificationFixture(t *testing.T) *notificationFixture {
	t.Helper()

	f := &notificationFixture{
		repo:       &mockRepository{states: make(map[snowflake.ID]*domain.PlayerState)},
		subscriber: newSyncSubscriber(),
		notifier:   &mockNotifier{},
		history:    &mockHistory{},
	}
	handler := NewNotificationEventHandler(f.repo, f.subscriber, f.notifier, f.history)
	handler.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	require.NoError(t, handler.Start())
	return f
}

func TestNotificationEventHandler_PlaybackStarted(t *testing.T) {
	t.Run("replaces the previous message", func(t *testing.T) {
		f := newNotificationFixture(t)
		state, entry := playingState(t)
		state.SetVolume(80)
		state.SetNowPlayingMessage(testTextChannelID, 41)
		_ = f.repo.Save(context.Background(), state)

		f.subscriber.deliver(domain.PlaybackStartedEvent{
			GuildID:               testGuildID,
			Entry:                 entry,
			NotificationChannelID: 9,
		})

		assert.Equal(t, []snowflake.ID{41}, f.notifier.deleted)
		require.Len(t, f.notifier.sent, 1)
		assert.Equal(t, []snowflake.ID{9}, f.notifier.sentChannels)
		assert.Equal(t, entry.ID, f.notifier.sent[0].Entry.ID)
		assert.Equal(t, 80, f.notifier.sent[0].Volume)

		msg := state.GetNowPlayingMessage()
		require.NotNil(t, msg)
		assert.EqualValues(t, 9, msg.ChannelID)
		assert.EqualValues(t, 1, msg.MessageID)
	})

	t.Run("records the play", func(t *testing.T) {
		f := newNotificationFixture(t)
		state, entry := playingState(t)
		_ = f.repo.Save(context.Background(), state)

		f.subscriber.deliver(domain.PlaybackStartedEvent{GuildID: testGuildID, Entry: entry})

		require.Len(t, f.history.records, 1)
		assert.Equal(t, "Song", f.history.records[0].Track.Title)
		assert.EqualValues(t, 123, f.history.records[0].RequesterID)
		assert.Equal(t, []snowflake.ID{testTextChannelID}, f.notifier.sentChannels)
	})

	t.Run("stale entry is not announced", func(t *testing.T) {
		f := newNotificationFixture(t)
		state, entry := playingState(t)
		state.Queue.Finish()
		state.StopPlayback()
		_ = f.repo.Save(context.Background(), state)

		f.subscriber.deliver(domain.PlaybackStartedEvent{GuildID: testGuildID, Entry: entry})

		assert.Empty(t, f.notifier.sent)
	})

	t.Run("send failure leaves no message", func(t *testing.T) {
		f := newNotificationFixture(t)
		f.notifier.sendErr = errors.New("missing permissions")
		state, entry := playingState(t)
		_ = f.repo.Save(context.Background(), state)

		f.subscriber.deliver(domain.PlaybackStartedEvent{GuildID: testGuildID, Entry: entry})

		assert.Nil(t, state.GetNowPlayingMessage())
	})
}

func TestNotificationEventHandler_MessageCleanup(t *testing.T) {
	t.Run("playback finished", func(t *testing.T) {
		f := newNotificationFixture(t)
		state, _ := playingState(t)
		state.SetNowPlayingMessage(testTextChannelID, 7)
		_ = f.repo.Save(context.Background(), state)

		f.subscriber.deliver(domain.PlaybackFinishedEvent{GuildID: testGuildID})

		assert.Equal(t, []snowflake.ID{7}, f.notifier.deleted)
		assert.Nil(t, state.GetNowPlayingMessage())
	})

	t.Run("session closed", func(t *testing.T) {
		f := newNotificationFixture(t)

		f.subscriber.deliver(domain.SessionClosedEvent{
			GuildID:           testGuildID,
			NowPlayingMessage: &domain.NowPlayingMessage{ChannelID: testTextChannelID, MessageID: 8},
		})

		assert.Equal(t, []snowflake.ID{8}, f.notifier.deleted)
	})
}

type fakeTimer struct {
	fire    func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

type mockCloser struct {
	closed []snowflake.ID
	err    error
}

func (m *mockCloser) CloseIdle(_ context.Context, guildID snowflake.ID) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	m.closed = append(m.closed, guildID)
	return true, nil
}

func newIdleHandler(t *testing.T) (*IdleEventHandler, *syncSubscriber, *mockCloser, *[]*fakeTimer) {
	t.Helper()

	subscriber := newSyncSubscriber()
	closer := &mockCloser{}
	handler := NewIdleEventHandler(closer, subscriber, time.Minute)

	timers := &[]*fakeTimer{}
	handler.afterFunc = func(d time.Duration, f func()) IdleTimer {
		assert.Equal(t, time.Minute, d)
		timer := &fakeTimer{fire: f}
		*timers = append(*timers, timer)
		return timer
	}
	require.NoError(t, handler.Start())
	return handler, subscriber, closer, timers
}

func TestIdleEventHandler(t *testing.T) {
	t.Run("closes the session after the timeout", func(t *testing.T) {
		_, subscriber, closer, timers := newIdleHandler(t)

		subscriber.deliver(domain.PlaybackFinishedEvent{GuildID: testGuildID})
		require.Len(t, *timers, 1)

		(*timers)[0].fire()

		assert.Equal(t, []snowflake.ID{testGuildID}, closer.closed)
	})

	t.Run("playback start cancels the timer", func(t *testing.T) {
		_, subscriber, closer, timers := newIdleHandler(t)

		subscriber.deliver(domain.PlaybackFinishedEvent{GuildID: testGuildID})
		subscriber.deliver(domain.PlaybackStartedEvent{GuildID: testGuildID})

		require.Len(t, *timers, 1)
		assert.True(t, (*timers)[0].stopped)

		// A timer that already fired before Stop took effect is ignored.
		(*timers)[0].fire()
		assert.Empty(t, closer.closed)
	})

	t.Run("a second finish restarts the timer", func(t *testing.T) {
		_, subscriber, closer, timers := newIdleHandler(t)

		subscriber.deliver(domain.PlaybackFinishedEvent{GuildID: testGuildID})
		subscriber.deliver(domain.PlaybackFinishedEvent{GuildID: testGuildID})
		require.Len(t, *timers, 2)
		assert.True(t, (*timers)[0].stopped)

		(*timers)[0].fire()
		assert.Empty(t, closer.closed)

		(*timers)[1].fire()
		assert.Len(t, closer.closed, 1)
	})

	t.Run("session closed cancels the timer", func(t *testing.T) {
		_, subscriber, closer, timers := newIdleHandler(t)

		subscriber.deliver(domain.PlaybackFinishedEvent{GuildID: testGuildID})
		subscriber.deliver(domain.SessionClosedEvent{GuildID: testGuildID})

		(*timers)[0].fire()
		assert.Empty(t, closer.closed)
	})

	t.Run("stop cancels every timer", func(t *testing.T) {
		handler, subscriber, _, timers := newIdleHandler(t)

		subscriber.deliver(domain.PlaybackFinishedEvent{GuildID: 1})
		subscriber.deliver(domain.PlaybackFinishedEvent{GuildID: 2})
		handler.Stop()

		for _, timer := range *timers {
			assert.True(t, timer.stopped)
		}
	})

	t.Run("close error is logged", func(t *testing.T) {
		_, subscriber, closer, timers := newIdleHandler(t)
		closer.err = errors.New("gateway down")

		subscriber.deliver(domain.PlaybackFinishedEvent{GuildID: testGuildID})
		assert.NotPanics(t, (*timers)[0].fire)
	})
}

func TestNewIdleEventHandler_DefaultTimeout(t *testing.T) {
	handler := NewIdleEventHandler(&mockCloser{}, newSyncSubscriber(), 0)
	assert.Equal(t, DefaultIdleTimeout, handler.timeout)
}
