package usecases

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/ascend/internal/modules/music_player/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type playbackFixture struct {
	repo      *mockRepository
	player    *mockAudioPlayer
	voice     *mockVoiceStateProvider
	publisher *mockEventPublisher
	settings  *mockSettingsStore
	service   *PlaybackService
}

func newPlaybackFixture() *playbackFixture {
	f := &playbackFixture{
		repo:      newMockRepository(),
		player:    &mockAudioPlayer{},
		voice:     &mockVoiceStateProvider{channels: map[snowflake.ID]snowflake.ID{}},
		publisher: &mockEventPublisher{},
		settings:  newMockSettingsStore(),
	}
	f.service = NewPlaybackService(f.repo, f.player, f.voice, f.publisher, f.settings, PlaybackConfig{})
	return f
}

func TestPlaybackService_Pause(t *testing.T) {
	tests := []struct {
		name        string
		setupRepo   func(*mockRepository)
		setupPlayer func(*mockAudioPlayer)
		wantErr     error
	}{
		{
			name: "pause successfully",
			setupRepo: func(m *mockRepository) {
				m.createPlayingState("track-1")
			},
		},
		{
			name:    "not connected",
			wantErr: ErrNotConnected,
		},
		{
			name: "not playing - idle",
			setupRepo: func(m *mockRepository) {
				m.createConnectedState(testGuildID, testVoiceChannelID, testTextChannelID)
			},
			wantErr: ErrNotPlaying,
		},
		{
			name: "already paused",
			setupRepo: func(m *mockRepository) {
				m.createPlayingState("track-1").SetPaused(true)
			},
			wantErr: ErrAlreadyPaused,
		},
		{
			name: "audio player error",
			setupRepo: func(m *mockRepository) {
				m.createPlayingState("track-1")
			},
			setupPlayer: func(m *mockAudioPlayer) {
				m.pauseErr = errors.New("pause failed")
			},
			wantErr: errors.New("pause failed"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPlaybackFixture()
			if tt.setupRepo != nil {
				tt.setupRepo(f.repo)
			}
			if tt.setupPlayer != nil {
				tt.setupPlayer(f.player)
			}

			err := f.service.Pause(context.Background(), PauseInput{GuildID: testGuildID})

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr.Error(), err.Error())
				return
			}
			require.NoError(t, err)
			state, _ := f.repo.Get(context.Background(), testGuildID)
			assert.True(t, state.IsPaused())
		})
	}
}

func TestPlaybackService_Resume(t *testing.T) {
	tests := []struct {
		name      string
		setupRepo func(*mockRepository)
		wantErr   error
	}{
		{
			name: "resume successfully",
			setupRepo: func(m *mockRepository) {
				m.createPlayingState("track-1").SetPaused(true)
			},
		},
		{
			name:    "not connected",
			wantErr: ErrNotConnected,
		},
		{
			name: "not paused",
			setupRepo: func(m *mockRepository) {
				m.createPlayingState("track-1")
			},
			wantErr: ErrNotPaused,
		},
		{
			name: "idle",
			setupRepo: func(m *mockRepository) {
				m.createConnectedState(testGuildID, testVoiceChannelID, testTextChannelID)
			},
			wantErr: ErrNotPlaying,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPlaybackFixture()
			if tt.setupRepo != nil {
				tt.setupRepo(f.repo)
			}

			err := f.service.Resume(context.Background(), ResumeInput{GuildID: testGuildID})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			state, _ := f.repo.Get(context.Background(), testGuildID)
			assert.False(t, state.IsPaused())
		})
	}
}

func TestPlaybackService_TogglePause(t *testing.T) {
	f := newPlaybackFixture()
	f.repo.createPlayingState("a")

	paused, err := f.service.TogglePause(context.Background(), testGuildID)
	require.NoError(t, err)
	assert.True(t, paused)

	paused, err = f.service.TogglePause(context.Background(), testGuildID)
	require.NoError(t, err)
	assert.False(t, paused)
}

func TestPlaybackService_Skip(t *testing.T) {
	t.Run("plays the next entry", func(t *testing.T) {
		f := newPlaybackFixture()
		f.repo.createPlayingState("a", "b")

		out, err := f.service.Skip(context.Background(), SkipInput{GuildID: testGuildID})

		require.NoError(t, err)
		assert.Equal(t, "Track a", out.Skipped.Track.Title)
		require.NotNil(t, out.Next)
		assert.Equal(t, "Track b", out.Next.Track.Title)
		require.Len(t, f.player.played, 1)
		assert.Equal(t, "Track b", f.player.played[0].Title)

		started := eventsOf[domain.PlaybackStartedEvent](f.publisher)
		require.Len(t, started, 1)
		assert.Equal(t, testTextChannelID, started[0].NotificationChannelID)
	})

	t.Run("ignores track loop", func(t *testing.T) {
		f := newPlaybackFixture()
		state := f.repo.createPlayingState("a", "b")
		state.Queue.SetLoopMode(domain.LoopModeTrack)

		out, err := f.service.Skip(context.Background(), SkipInput{GuildID: testGuildID})

		require.NoError(t, err)
		assert.Equal(t, "Track b", out.Next.Track.Title)
	})

	t.Run("stops at the end of the queue", func(t *testing.T) {
		f := newPlaybackFixture()
		state := f.repo.createPlayingState("a")

		out, err := f.service.Skip(context.Background(), SkipInput{GuildID: testGuildID})

		require.NoError(t, err)
		assert.Nil(t, out.Next)
		assert.Equal(t, 1, f.player.stopped)
		assert.True(t, state.IsIdle())
		assert.Nil(t, state.Queue.Current())
		assert.Len(t, eventsOf[domain.PlaybackFinishedEvent](f.publisher), 1)
	})

	t.Run("not playing", func(t *testing.T) {
		f := newPlaybackFixture()
		f.repo.createConnectedState(testGuildID, testVoiceChannelID, testTextChannelID)

		_, err := f.service.Skip(context.Background(), SkipInput{GuildID: testGuildID})

		assert.ErrorIs(t, err, ErrNotPlaying)
	})

	t.Run("play failure marks the player idle", func(t *testing.T) {
		f := newPlaybackFixture()
		state := f.repo.createPlayingState("a", "b")
		f.player.playErr = errors.New("node offline")

		_, err := f.service.Skip(context.Background(), SkipInput{GuildID: testGuildID})

		assert.ErrorContains(t, err, "node offline")
		assert.True(t, state.IsIdle())
	})
}

func TestPlaybackService_ConcurrentTransitions(t *testing.T) {
	run := func(t *testing.T, f *playbackFixture, steps ...func() error) {
		t.Helper()

		var wg sync.WaitGroup
		errs := make([]error, len(steps))
		for idx, step := range steps {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[idx] = step()
			}()
		}
		wg.Wait()

		for _, err := range errs {
			require.NoError(t, err)
		}
	}

	t.Run("two skips", func(t *testing.T) {
		f := newPlaybackFixture()
		f.player.playDelay = 50 * time.Millisecond
		state := f.repo.createPlayingState("a", "b", "c")

		skip := func() error {
			_, err := f.service.Skip(context.Background(), SkipInput{GuildID: testGuildID})
			return err
		}
		run(t, f, skip, skip)

		require.NotNil(t, state.Queue.Current())
		assert.Equal(t, "Track c", state.Queue.Current().Track.Title)
		assert.Equal(t, "Track c", f.player.lastPlayed().Title)
		assert.Equal(t, 0, state.Queue.Len())
	})

	t.Run("skip and track end", func(t *testing.T) {
		f := newPlaybackFixture()
		f.player.playDelay = 50 * time.Millisecond
		state := f.repo.createPlayingState("a", "b", "c")

		run(t, f,
			func() error {
				_, err := f.service.Skip(context.Background(), SkipInput{GuildID: testGuildID})
				return err
			},
			func() error {
				return f.service.Advance(context.Background(), testGuildID, false)
			},
		)

		require.NotNil(t, state.Queue.Current())
		assert.Equal(t, state.Queue.Current().Track.Title, f.player.lastPlayed().Title)
		assert.Equal(t, "Track c", f.player.lastPlayed().Title)
	})

	t.Run("skip and stop", func(t *testing.T) {
		f := newPlaybackFixture()
		f.player.playDelay = 50 * time.Millisecond
		state := f.repo.createPlayingState("a", "b", "c")

		var skipErr, stopErr error
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, skipErr = f.service.Skip(context.Background(), SkipInput{GuildID: testGuildID})
		}()
		go func() {
			defer wg.Done()
			stopErr = f.service.Stop(context.Background(), StopInput{GuildID: testGuildID})
		}()
		wg.Wait()

		require.NoError(t, stopErr)
		if skipErr != nil {
			assert.ErrorIs(t, skipErr, ErrNotPlaying)
		}
		assert.True(t, state.IsIdle())
		assert.Nil(t, state.Queue.Current())
		assert.Equal(t, 0, state.Queue.Len())
	})
}

func TestPlaybackService_SkipTo(t *testing.T) {
	f := newPlaybackFixture()
	state := f.repo.createPlayingState("a", "b", "c", "d")

	entry, err := f.service.SkipTo(context.Background(), SkipToInput{GuildID: testGuildID, Position: 1})

	require.NoError(t, err)
	assert.Equal(t, "Track c", entry.Track.Title)
	assert.Equal(t, 1, state.Queue.Len())

	_, err = f.service.SkipTo(context.Background(), SkipToInput{GuildID: testGuildID, Position: 5})
	assert.ErrorIs(t, err, ErrInvalidPosition)
}

func TestPlaybackService_Previous(t *testing.T) {
	f := newPlaybackFixture()
	state := f.repo.createPlayingState("a", "b")
	state.Queue.Next()

	prev, err := f.service.Previous(context.Background(), PreviousInput{GuildID: testGuildID})

	require.NoError(t, err)
	assert.Equal(t, "Track a", prev.Track.Title)
	assert.Equal(t, "Track a", f.player.played[0].Title)
	assert.Equal(t, "Track b", state.Queue.EntryAt(0).Track.Title)

	_, err = f.service.Previous(context.Background(), PreviousInput{GuildID: testGuildID})
	assert.ErrorIs(t, err, ErrNothingToGoBack)
}

func TestPlaybackService_Stop(t *testing.T) {
	f := newPlaybackFixture()
	state := f.repo.createPlayingState("a", "b", "c")

	err := f.service.Stop(context.Background(), StopInput{GuildID: testGuildID})

	require.NoError(t, err)
	assert.True(t, state.IsIdle())
	assert.Equal(t, 0, state.Queue.Len())
	assert.Nil(t, state.Queue.Current())
	assert.Equal(t, 1, f.player.stopped)

	err = f.service.Stop(context.Background(), StopInput{GuildID: testGuildID})
	assert.ErrorIs(t, err, ErrNotPlaying)
}

func TestPlaybackService_Seek(t *testing.T) {
	tests := []struct {
		name     string
		position time.Duration
		stream   bool
		wantErr  error
	}{
		{name: "within track", position: time.Minute},
		{name: "negative", position: -time.Second, wantErr: ErrInvalidPosition},
		{name: "past end", position: 3 * time.Minute, wantErr: ErrInvalidPosition},
		{name: "stream", position: time.Second, stream: true, wantErr: ErrInvalidPosition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPlaybackFixture()
			state := f.repo.createConnectedState(testGuildID, testVoiceChannelID, testTextChannelID)
			track := mockTrack("a")
			track.IsStream = tt.stream
			_, _ = state.Queue.Add(track, testRequester, false)
			state.Queue.Next()
			state.StartPlayback()

			err := f.service.Seek(context.Background(), SeekInput{GuildID: testGuildID, Position: tt.position})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []time.Duration{tt.position}, f.player.seeks)
		})
	}
}

func TestPlaybackService_SetVolume(t *testing.T) {
	f := newPlaybackFixture()
	state := f.repo.createPlayingState("a")

	require.NoError(t, f.service.SetVolume(context.Background(), SetVolumeInput{GuildID: testGuildID, Volume: 80}))

	assert.Equal(t, 80, state.Volume())
	assert.Equal(t, []int{80}, f.player.volumes)
	assert.Equal(t, 80, f.settings.settings[testGuildID].Volume)

	err := f.service.SetVolume(context.Background(), SetVolumeInput{GuildID: testGuildID, Volume: DefaultMaxVolume + 1})
	assert.ErrorIs(t, err, ErrInvalidVolume)
	assert.Equal(t, 80, state.Volume())
}

func TestPlaybackService_LoopAndAutoplayArePersisted(t *testing.T) {
	f := newPlaybackFixture()
	state := f.repo.createPlayingState("a")

	out, err := f.service.CycleLoopMode(context.Background(), CycleLoopModeInput{GuildID: testGuildID})
	require.NoError(t, err)
	assert.Equal(t, domain.LoopModeTrack, out.NewMode)

	require.NoError(t, f.service.SetLoopMode(context.Background(), SetLoopModeInput{
		GuildID: testGuildID,
		Mode:    domain.LoopModeQueue,
	}))
	enabled, err := f.service.ToggleAutoplay(context.Background(), testGuildID)
	require.NoError(t, err)
	assert.True(t, enabled)

	assert.Equal(t, domain.LoopModeQueue, state.Queue.LoopMode())
	saved := f.settings.settings[testGuildID]
	assert.Equal(t, domain.LoopModeQueue, saved.LoopMode)
	assert.True(t, saved.Autoplay)
	assert.Equal(t, 3, f.settings.saved)
}

func TestPlaybackService_LikeDislike(t *testing.T) {
	f := newPlaybackFixture()
	_, err := f.service.Like(context.Background(), testGuildID)
	assert.ErrorIs(t, err, ErrNotConnected)

	f.repo.createConnectedState(testGuildID, testVoiceChannelID, testTextChannelID)
	_, err = f.service.Like(context.Background(), testGuildID)
	assert.ErrorIs(t, err, ErrNotPlaying)

	f.repo.createPlayingState("a")
	entry, err := f.service.Like(context.Background(), testGuildID)
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Likes)

	entry, err = f.service.Dislike(context.Background(), testGuildID)
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Dislikes)
}

func TestPlaybackService_Vote(t *testing.T) {
	voterA := snowflake.ID(10)
	voterB := snowflake.ID(11)
	outsider := snowflake.ID(12)

	setup := func(listeners int) (*playbackFixture, *domain.PlayerState) {
		f := newPlaybackFixture()
		state := f.repo.createPlayingState("a", "b")
		f.voice.channels[voterA] = testVoiceChannelID
		f.voice.channels[voterB] = testVoiceChannelID
		f.voice.channels[outsider] = snowflake.ID(999)
		f.voice.listeners = listeners
		return f, state
	}

	t.Run("skip passes at threshold", func(t *testing.T) {
		f, state := setup(4)

		out, err := f.service.Vote(context.Background(), VoteInput{GuildID: testGuildID, UserID: voterA, Action: domain.VoteSkip})
		require.NoError(t, err)
		assert.False(t, out.Passed)
		assert.Equal(t, 2, out.Required)
		assert.Equal(t, 1, out.Outcome.Count)

		out, err = f.service.Vote(context.Background(), VoteInput{GuildID: testGuildID, UserID: voterB, Action: domain.VoteSkip})
		require.NoError(t, err)
		assert.True(t, out.Passed)
		assert.Equal(t, "Track b", state.Queue.Current().Track.Title)
		assert.Equal(t, 0, state.Queue.VoteCount(domain.VoteSkip))
	})

	t.Run("withdrawn vote does not pass", func(t *testing.T) {
		f, state := setup(1)
		state.Queue.Vote(domain.VoteStop, voterA)

		out, err := f.service.Vote(context.Background(), VoteInput{GuildID: testGuildID, UserID: voterA, Action: domain.VoteStop})

		require.NoError(t, err)
		assert.Equal(t, domain.VoteRemoved, out.Outcome.Action)
		assert.False(t, out.Passed)
		assert.False(t, state.IsIdle())
	})

	t.Run("stop vote clears the queue", func(t *testing.T) {
		f, state := setup(1)

		out, err := f.service.Vote(context.Background(), VoteInput{GuildID: testGuildID, UserID: voterA, Action: domain.VoteStop})

		require.NoError(t, err)
		assert.True(t, out.Passed)
		assert.True(t, state.IsIdle())
		assert.Equal(t, 0, state.Queue.Len())
	})

	t.Run("shuffle and pause votes", func(t *testing.T) {
		f, state := setup(1)

		_, err := f.service.Vote(context.Background(), VoteInput{GuildID: testGuildID, UserID: voterA, Action: domain.VoteShuffle})
		require.NoError(t, err)
		assert.True(t, state.Queue.IsShuffled())

		_, err = f.service.Vote(context.Background(), VoteInput{GuildID: testGuildID, UserID: voterA, Action: domain.VotePause})
		require.NoError(t, err)
		assert.True(t, state.IsPaused())
	})

	t.Run("voter outside the channel", func(t *testing.T) {
		f, _ := setup(2)

		_, err := f.service.Vote(context.Background(), VoteInput{GuildID: testGuildID, UserID: outsider, Action: domain.VoteSkip})

		assert.ErrorIs(t, err, ErrUserNotInVoice)
	})
}

func TestPlaybackService_NowPlaying(t *testing.T) {
	f := newPlaybackFixture()
	_, err := f.service.NowPlaying(context.Background(), testGuildID)
	assert.ErrorIs(t, err, ErrNotConnected)

	state := f.repo.createPlayingState("a", "b")
	state.SetVolume(70)
	f.player.position = 42 * time.Second

	out, err := f.service.NowPlaying(context.Background(), testGuildID)

	require.NoError(t, err)
	assert.Equal(t, "Track a", out.Entry.Track.Title)
	assert.Equal(t, 42*time.Second, out.Position)
	assert.Equal(t, 70, out.Volume)
	assert.Equal(t, 1, out.QueueLength)
}

func TestPlaybackService_StartIfIdle(t *testing.T) {
	t.Run("plays the first entry", func(t *testing.T) {
		f := newPlaybackFixture()
		state := f.repo.createConnectedState(testGuildID, testVoiceChannelID, testTextChannelID)
		state.SetVolume(60)
		_, _ = state.Queue.Add(mockTrack("a"), testRequester, false)

		require.NoError(t, f.service.StartIfIdle(context.Background(), testGuildID))

		assert.True(t, state.IsPlaybackActive())
		assert.Equal(t, "Track a", state.Queue.Current().Track.Title)
		assert.Equal(t, 0, state.Queue.Len())
		assert.Equal(t, []int{60}, f.player.volumes, "stored volume is applied on start")
	})

	t.Run("does nothing while playing", func(t *testing.T) {
		f := newPlaybackFixture()
		f.repo.createPlayingState("a", "b")

		require.NoError(t, f.service.StartIfIdle(context.Background(), testGuildID))

		assert.Empty(t, f.player.played)
	})

	t.Run("empty queue", func(t *testing.T) {
		f := newPlaybackFixture()
		state := f.repo.createConnectedState(testGuildID, testVoiceChannelID, testTextChannelID)

		require.NoError(t, f.service.StartIfIdle(context.Background(), testGuildID))

		assert.True(t, state.IsIdle())
	})
}

func TestPlaybackService_Advance(t *testing.T) {
	t.Run("track loop replays current", func(t *testing.T) {
		f := newPlaybackFixture()
		state := f.repo.createPlayingState("a", "b")
		state.Queue.SetLoopMode(domain.LoopModeTrack)

		require.NoError(t, f.service.Advance(context.Background(), testGuildID, false))

		assert.Equal(t, "Track a", f.player.played[0].Title)
	})

	t.Run("failed track is skipped in track loop", func(t *testing.T) {
		f := newPlaybackFixture()
		state := f.repo.createPlayingState("a", "b")
		state.Queue.SetLoopMode(domain.LoopModeTrack)

		require.NoError(t, f.service.Advance(context.Background(), testGuildID, true))

		assert.Equal(t, "Track b", f.player.played[0].Title)
	})

	t.Run("end of queue finishes", func(t *testing.T) {
		f := newPlaybackFixture()
		state := f.repo.createPlayingState("a")

		require.NoError(t, f.service.Advance(context.Background(), testGuildID, false))

		assert.True(t, state.IsIdle())
		assert.Nil(t, state.Queue.Current())
		assert.Len(t, eventsOf[domain.PlaybackFinishedEvent](f.publisher), 1)
		assert.Zero(t, f.player.stopped, "the node already stopped")
	})

	t.Run("missing session", func(t *testing.T) {
		f := newPlaybackFixture()

		err := f.service.Advance(context.Background(), testGuildID, false)

		assert.ErrorIs(t, err, ErrNotConnected)
	})
}
