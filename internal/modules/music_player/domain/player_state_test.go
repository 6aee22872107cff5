package domain

import (
	"sync"
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testGuildID        = snowflake.ID(1)
	testVoiceChannelID = snowflake.ID(10)
	testTextChannelID  = snowflake.ID(20)
)

func newTestPlayerState() *PlayerState {
	return NewPlayerState(testGuildID, testVoiceChannelID, testTextChannelID, nil)
}

func TestNewPlayerState(t *testing.T) {
	queue := NewQueue(WithMaxSize(5))

	state := NewPlayerState(testGuildID, testVoiceChannelID, testTextChannelID, queue)

	assert.Equal(t, testGuildID, state.GetGuildID())
	assert.Equal(t, testVoiceChannelID, state.GetVoiceChannelID())
	assert.Equal(t, testTextChannelID, state.GetNotificationChannelID())
	assert.Same(t, queue, state.Queue)
	assert.True(t, state.IsIdle())
	assert.False(t, state.IsPaused())
	assert.Equal(t, DefaultVolume, state.Volume())
	assert.Nil(t, state.GetNowPlayingMessage())
}

func TestNewPlayerState_DefaultQueue(t *testing.T) {
	state := newTestPlayerState()

	require.NotNil(t, state.Queue)
	assert.Equal(t, DefaultMaxSize, state.Queue.MaxSize())
}

func TestPlayerState_Channels(t *testing.T) {
	state := newTestPlayerState()

	state.SetVoiceChannelID(99)
	state.SetNotificationChannelID(98)

	assert.Equal(t, snowflake.ID(99), state.GetVoiceChannelID())
	assert.Equal(t, snowflake.ID(98), state.GetNotificationChannelID())
}

func TestPlayerState_PlaybackLifecycle(t *testing.T) {
	state := newTestPlayerState()

	state.StartPlayback()
	assert.True(t, state.IsPlaybackActive())
	assert.False(t, state.IsIdle())

	state.SetPaused(true)
	assert.True(t, state.IsPaused())

	state.StartPlayback()
	assert.False(t, state.IsPaused(), "starting playback unpauses")

	state.SetPaused(true)
	state.StopPlayback()
	assert.True(t, state.IsIdle())
	assert.False(t, state.IsPaused())
}

func TestPlayerState_CurrentEntry(t *testing.T) {
	state := newTestPlayerState()
	_, err := state.Queue.Add(testTrack("a"), alice, false)
	require.NoError(t, err)
	state.Queue.Next()

	assert.Nil(t, state.CurrentEntry(), "idle player has no current entry")

	state.StartPlayback()
	entry := state.CurrentEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "a", entry.Track.Title)
}

func TestPlayerState_Volume(t *testing.T) {
	state := newTestPlayerState()

	state.SetVolume(42)

	assert.Equal(t, 42, state.Volume())
}

func TestPlayerState_NowPlayingMessage(t *testing.T) {
	state := newTestPlayerState()
	state.SetNowPlayingMessage(5, 6)

	msg := state.GetNowPlayingMessage()
	require.NotNil(t, msg)
	assert.Equal(t, NowPlayingMessage{ChannelID: 5, MessageID: 6}, *msg)

	msg.MessageID = 7
	assert.Equal(t, snowflake.ID(6), state.GetNowPlayingMessage().MessageID, "getter returns a copy")

	taken := state.TakeNowPlayingMessage()
	require.NotNil(t, taken)
	assert.Equal(t, snowflake.ID(6), taken.MessageID)
	assert.Nil(t, state.GetNowPlayingMessage())
	assert.Nil(t, state.TakeNowPlayingMessage())
}

func TestPlayerState_ConcurrentAccess(t *testing.T) {
	state := newTestPlayerState()
	var wg sync.WaitGroup

	for i := range 10 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			state.StartPlayback()
			state.SetVolume(i)
			state.SetNowPlayingMessage(snowflake.ID(i), snowflake.ID(i))
			state.SetPaused(i%2 == 0)
		}()
		go func() {
			defer wg.Done()
			_ = state.IsPaused()
			_ = state.Volume()
			_ = state.TakeNowPlayingMessage()
			_ = state.CurrentEntry()
		}()
	}
	wg.Wait()

	assert.True(t, state.IsPlaybackActive())
}
