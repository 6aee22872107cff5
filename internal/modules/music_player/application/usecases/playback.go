package usecases

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/ascend/internal/modules/music_player/application/ports"
	"github.com/sglre6355/ascend/internal/modules/music_player/domain"
)

// DefaultVoteRatio is the share of listeners whose votes pass a vote action.
const DefaultVoteRatio = 0.5

// DefaultMaxVolume is the highest volume users may set.
const DefaultMaxVolume = 150

// PlaybackConfig tunes the PlaybackService.
type PlaybackConfig struct {
	MaxVolume int
	VoteRatio float64
}

// PauseInput contains the input for the Pause use case.
type PauseInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// ResumeInput contains the input for the Resume use case.
type ResumeInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// SkipInput contains the input for the Skip use case.
type SkipInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// SkipOutput contains the result of the Skip use case.
type SkipOutput struct {
	Skipped *domain.QueueEntry
	Next    *domain.QueueEntry // nil if nothing follows
}

// SkipToInput contains the input for the SkipTo use case.
type SkipToInput struct {
	GuildID               snowflake.ID
	Position              int // 0-indexed position among upcoming entries
	NotificationChannelID snowflake.ID
}

// PreviousInput contains the input for the Previous use case.
type PreviousInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID
}

// StopInput contains the input for the Stop use case.
type StopInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID
}

// SeekInput contains the input for the Seek use case.
type SeekInput struct {
	GuildID  snowflake.ID
	Position time.Duration
}

// SetVolumeInput contains the input for the SetVolume use case.
type SetVolumeInput struct {
	GuildID snowflake.ID
	Volume  int
}

// SetLoopModeInput contains the input for the SetLoopMode use case.
type SetLoopModeInput struct {
	GuildID               snowflake.ID
	Mode                  domain.LoopMode
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// CycleLoopModeInput contains the input for the CycleLoopMode use case.
type CycleLoopModeInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// CycleLoopModeOutput contains the result of the CycleLoopMode use case.
type CycleLoopModeOutput struct {
	NewMode domain.LoopMode
}

// VoteInput contains the input for the Vote use case.
type VoteInput struct {
	GuildID snowflake.ID
	UserID  snowflake.ID
	Action  domain.VoteAction
}

// VoteOutput contains the result of the Vote use case.
type VoteOutput struct {
	Outcome  domain.VoteOutcome
	Required int
	// Passed is true when this vote reached the threshold and the action ran.
	Passed bool
}

// NowPlayingOutput describes the current playback.
type NowPlayingOutput struct {
	Entry       *domain.QueueEntry
	Position    time.Duration
	Paused      bool
	Volume      int
	LoopMode    domain.LoopMode
	Shuffled    bool
	Autoplay    bool
	QueueLength int
}

// PlaybackService handles playback operations.
// It also drives queue advancement for the application event handlers.
type PlaybackService struct {
	repo        domain.PlayerStateRepository
	audioPlayer ports.AudioPlayer
	voiceState  ports.VoiceStateProvider
	publisher   ports.EventPublisher
	settings    ports.GuildSettingsStore
	config      PlaybackConfig
}

// NewPlaybackService creates a new PlaybackService.
func NewPlaybackService(
	repo domain.PlayerStateRepository,
	audioPlayer ports.AudioPlayer,
	voiceState ports.VoiceStateProvider,
	publisher ports.EventPublisher,
	settings ports.GuildSettingsStore,
	config PlaybackConfig,
) *PlaybackService {
	if config.MaxVolume <= 0 {
		config.MaxVolume = DefaultMaxVolume
	}
	if config.VoteRatio <= 0 || config.VoteRatio > 1 {
		config.VoteRatio = DefaultVoteRatio
	}
	return &PlaybackService{
		repo:        repo,
		audioPlayer: audioPlayer,
		voiceState:  voiceState,
		publisher:   publisher,
		settings:    settings,
		config:      config,
	}
}

// Pause pauses the current playback.
func (p *PlaybackService) Pause(ctx context.Context, input PauseInput) error {
	state, err := getState(ctx, p.repo, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return err
	}

	if state.IsIdle() {
		return ErrNotPlaying
	}
	if state.IsPaused() {
		return ErrAlreadyPaused
	}

	if err := p.audioPlayer.Pause(ctx, input.GuildID); err != nil {
		return err
	}

	state.SetPaused(true)

	return nil
}

// Resume resumes the paused playback.
func (p *PlaybackService) Resume(ctx context.Context, input ResumeInput) error {
	state, err := getState(ctx, p.repo, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return err
	}

	if state.IsIdle() {
		return ErrNotPlaying
	}
	if !state.IsPaused() {
		return ErrNotPaused
	}

	if err := p.audioPlayer.Resume(ctx, input.GuildID); err != nil {
		return err
	}

	state.SetPaused(false)

	return nil
}

// TogglePause pauses playing audio or resumes paused audio. It returns the new paused state.
func (p *PlaybackService) TogglePause(ctx context.Context, guildID snowflake.ID) (bool, error) {
	state, err := getState(ctx, p.repo, guildID, 0)
	if err != nil {
		return false, err
	}

	if state.IsPaused() {
		return false, p.Resume(ctx, ResumeInput{GuildID: guildID})
	}
	return true, p.Pause(ctx, PauseInput{GuildID: guildID})
}

// Skip skips the current track and plays the next one from the queue.
// Skip always advances to the next track, regardless of loop mode.
func (p *PlaybackService) Skip(ctx context.Context, input SkipInput) (*SkipOutput, error) {
	state, err := getState(ctx, p.repo, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	state.LockTransition()
	defer state.UnlockTransition()

	skipped := state.CurrentEntry()
	if skipped == nil {
		return nil, ErrNotPlaying
	}

	next := state.Queue.Skip()
	if next == nil {
		if err := p.halt(ctx, state); err != nil {
			return nil, err
		}
		return &SkipOutput{Skipped: skipped}, nil
	}

	if err := p.play(ctx, state, next); err != nil {
		return nil, err
	}

	return &SkipOutput{Skipped: skipped, Next: next}, nil
}

// SkipTo discards the entries ahead of position and plays the entry at position.
func (p *PlaybackService) SkipTo(ctx context.Context, input SkipToInput) (*domain.QueueEntry, error) {
	state, err := getState(ctx, p.repo, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	state.LockTransition()
	defer state.UnlockTransition()

	if state.Queue.Len() == 0 {
		return nil, ErrQueueEmpty
	}

	entry := state.Queue.SkipTo(input.Position)
	if entry == nil {
		return nil, ErrInvalidPosition
	}

	if err := p.play(ctx, state, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Previous replays the most recently finished entry.
func (p *PlaybackService) Previous(ctx context.Context, input PreviousInput) (*domain.QueueEntry, error) {
	state, err := getState(ctx, p.repo, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	state.LockTransition()
	defer state.UnlockTransition()

	prev, err := state.Queue.Previous()
	if err != nil {
		return nil, err
	}
	if prev == nil {
		return nil, ErrNothingToGoBack
	}

	if err := p.play(ctx, state, prev); err != nil {
		return nil, err
	}
	return prev, nil
}

// Stop stops playback and clears the queue.
func (p *PlaybackService) Stop(ctx context.Context, input StopInput) error {
	state, err := getState(ctx, p.repo, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return err
	}

	state.LockTransition()
	defer state.UnlockTransition()

	if state.IsIdle() {
		return ErrNotPlaying
	}

	state.Queue.Clear()
	return p.halt(ctx, state)
}

// Seek moves the playback position of the current track.
func (p *PlaybackService) Seek(ctx context.Context, input SeekInput) error {
	state, err := getState(ctx, p.repo, input.GuildID, 0)
	if err != nil {
		return err
	}

	current := state.CurrentEntry()
	if current == nil {
		return ErrNotPlaying
	}
	if current.Track.IsStream || input.Position < 0 || input.Position >= current.Track.Duration {
		return ErrInvalidPosition
	}

	return p.audioPlayer.Seek(ctx, input.GuildID, input.Position)
}

// SetVolume sets and persists the player volume.
func (p *PlaybackService) SetVolume(ctx context.Context, input SetVolumeInput) error {
	if input.Volume < 0 || input.Volume > p.config.MaxVolume {
		return errors.Wrapf(ErrInvalidVolume, "volume must be between 0 and %d", p.config.MaxVolume)
	}

	state, err := getState(ctx, p.repo, input.GuildID, 0)
	if err != nil {
		return err
	}

	if state.IsPlaybackActive() {
		if err := p.audioPlayer.SetVolume(ctx, input.GuildID, input.Volume); err != nil {
			return err
		}
	}

	state.SetVolume(input.Volume)
	persistSettings(ctx, p.settings, state)

	return nil
}

// MaxVolume returns the highest volume SetVolume accepts.
func (p *PlaybackService) MaxVolume() int {
	return p.config.MaxVolume
}

// SetLoopMode sets the loop mode for the guild's player.
func (p *PlaybackService) SetLoopMode(ctx context.Context, input SetLoopModeInput) error {
	state, err := getState(ctx, p.repo, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return err
	}

	state.Queue.SetLoopMode(input.Mode)
	persistSettings(ctx, p.settings, state)

	return nil
}

// CycleLoopMode cycles through loop modes: None -> Track -> Queue -> None.
func (p *PlaybackService) CycleLoopMode(
	ctx context.Context,
	input CycleLoopModeInput,
) (*CycleLoopModeOutput, error) {
	state, err := getState(ctx, p.repo, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	newMode := state.Queue.CycleLoopMode()
	persistSettings(ctx, p.settings, state)

	return &CycleLoopModeOutput{NewMode: newMode}, nil
}

// ToggleAutoplay flips autoplay and returns the new state.
func (p *PlaybackService) ToggleAutoplay(ctx context.Context, guildID snowflake.ID) (bool, error) {
	state, err := getState(ctx, p.repo, guildID, 0)
	if err != nil {
		return false, err
	}

	enabled := state.Queue.ToggleAutoplay()
	persistSettings(ctx, p.settings, state)

	return enabled, nil
}

// Like records a like on the current entry.
func (p *PlaybackService) Like(ctx context.Context, guildID snowflake.ID) (*domain.QueueEntry, error) {
	return p.react(ctx, guildID, (*domain.Queue).LikeCurrent)
}

// Dislike records a dislike on the current entry.
func (p *PlaybackService) Dislike(ctx context.Context, guildID snowflake.ID) (*domain.QueueEntry, error) {
	return p.react(ctx, guildID, (*domain.Queue).DislikeCurrent)
}

func (p *PlaybackService) react(
	ctx context.Context,
	guildID snowflake.ID,
	fn func(*domain.Queue) (*domain.QueueEntry, error),
) (*domain.QueueEntry, error) {
	state, err := getState(ctx, p.repo, guildID, 0)
	if err != nil {
		return nil, err
	}
	if state.IsIdle() {
		return nil, ErrNotPlaying
	}

	entry, err := fn(state.Queue)
	if errors.Is(err, domain.ErrNoCurrentEntry) {
		return nil, ErrNotPlaying
	}
	return entry, err
}

// Vote toggles the user's vote for an action. When the votes reach the share of
// listeners required by the vote ratio, the action runs and its votes reset.
func (p *PlaybackService) Vote(ctx context.Context, input VoteInput) (*VoteOutput, error) {
	state, err := getState(ctx, p.repo, input.GuildID, 0)
	if err != nil {
		return nil, err
	}

	channelID := state.GetVoiceChannelID()
	userChannel, err := p.voiceState.GetUserVoiceChannel(input.GuildID, input.UserID)
	if err != nil {
		return nil, err
	}
	if userChannel != channelID {
		return nil, ErrUserNotInVoice
	}

	if state.IsIdle() && input.Action != domain.VoteShuffle {
		return nil, ErrNotPlaying
	}

	listeners, err := p.voiceState.CountListeners(input.GuildID, channelID)
	if err != nil {
		return nil, err
	}
	required := domain.RequiredVotes(listeners, p.config.VoteRatio)

	outcome := state.Queue.Vote(input.Action, input.UserID)
	out := &VoteOutput{Outcome: outcome, Required: required}
	if outcome.Action != domain.VoteAdded || outcome.Count < required {
		return out, nil
	}

	slog.Info(
		"vote passed",
		"guild", input.GuildID,
		"action", input.Action,
		"votes", outcome.Count,
		"required", required,
	)

	state.Queue.ResetVotes(input.Action)
	if err := p.runVoteAction(ctx, input.GuildID, input.Action); err != nil {
		return nil, err
	}
	out.Passed = true

	return out, nil
}

func (p *PlaybackService) runVoteAction(
	ctx context.Context,
	guildID snowflake.ID,
	action domain.VoteAction,
) error {
	switch action {
	case domain.VoteSkip:
		_, err := p.Skip(ctx, SkipInput{GuildID: guildID})
		return err
	case domain.VoteStop:
		return p.Stop(ctx, StopInput{GuildID: guildID})
	case domain.VoteShuffle:
		state, err := getState(ctx, p.repo, guildID, 0)
		if err != nil {
			return err
		}
		state.Queue.ToggleShuffle()
		return nil
	case domain.VotePause:
		_, err := p.TogglePause(ctx, guildID)
		return err
	default:
		return errors.Newf("unknown vote action %q", action)
	}
}

// NowPlaying returns the current playback.
func (p *PlaybackService) NowPlaying(ctx context.Context, guildID snowflake.ID) (*NowPlayingOutput, error) {
	state, err := getState(ctx, p.repo, guildID, 0)
	if err != nil {
		return nil, err
	}

	current := state.CurrentEntry()
	if current == nil {
		return nil, ErrNotPlaying
	}

	snapshot := state.Queue.Snapshot()
	return &NowPlayingOutput{
		Entry:       current,
		Position:    p.audioPlayer.Position(guildID),
		Paused:      state.IsPaused(),
		Volume:      state.Volume(),
		LoopMode:    snapshot.LoopMode,
		Shuffled:    snapshot.Shuffled,
		Autoplay:    snapshot.Autoplay,
		QueueLength: len(snapshot.Entries),
	}, nil
}

// StartIfIdle starts playing the next entry when the guild's player is idle.
func (p *PlaybackService) StartIfIdle(ctx context.Context, guildID snowflake.ID) error {
	state, err := getState(ctx, p.repo, guildID, 0)
	if err != nil {
		return err
	}

	state.LockTransition()
	defer state.UnlockTransition()
	if state.IsPlaybackActive() {
		return nil
	}

	next := state.Queue.Next()
	if next == nil {
		return nil
	}
	return p.play(ctx, state, next)
}

// Advance moves to the next entry after the current track ended.
// A failed track is skipped even in track loop so it is not retried forever.
func (p *PlaybackService) Advance(ctx context.Context, guildID snowflake.ID, failed bool) error {
	state, err := getState(ctx, p.repo, guildID, 0)
	if err != nil {
		return err
	}

	state.LockTransition()
	defer state.UnlockTransition()

	var next *domain.QueueEntry
	if failed {
		next = state.Queue.Skip()
	} else {
		next = state.Queue.Next()
	}

	if next == nil {
		state.Queue.Finish()
		state.StopPlayback()
		publish(p.publisher, domain.PlaybackFinishedEvent{GuildID: guildID})
		return nil
	}

	return p.play(ctx, state, next)
}

// Halt stops the audio player and marks the session idle.
func (p *PlaybackService) Halt(ctx context.Context, guildID snowflake.ID) error {
	state, err := getState(ctx, p.repo, guildID, 0)
	if err != nil {
		return err
	}

	state.LockTransition()
	defer state.UnlockTransition()
	return p.halt(ctx, state)
}

// halt and play expect the caller to hold the state's transition lock.
func (p *PlaybackService) halt(ctx context.Context, state *domain.PlayerState) error {
	guildID := state.GetGuildID()
	if err := p.audioPlayer.Stop(ctx, guildID); err != nil {
		return err
	}

	state.Queue.Finish()
	state.StopPlayback()
	publish(p.publisher, domain.PlaybackFinishedEvent{GuildID: guildID})

	return nil
}

// play hands entry to the audio player and announces it.
func (p *PlaybackService) play(ctx context.Context, state *domain.PlayerState, entry *domain.QueueEntry) error {
	guildID := state.GetGuildID()
	wasIdle := state.IsIdle()

	if err := p.audioPlayer.Play(ctx, guildID, entry.Track); err != nil {
		state.StopPlayback()
		return errors.Wrapf(err, "failed to play %q", entry.Track.Title)
	}
	state.StartPlayback()

	if volume := state.Volume(); wasIdle && volume != domain.DefaultVolume {
		if err := p.audioPlayer.SetVolume(ctx, guildID, volume); err != nil {
			slog.Warn("failed to apply player volume", "guild", guildID, "error", err)
		}
	}

	slog.Debug(
		"playback started",
		"guild", guildID,
		"track", entry.Track.Title,
	)

	publish(p.publisher, domain.PlaybackStartedEvent{
		GuildID:               guildID,
		Entry:                 entry,
		NotificationChannelID: state.GetNotificationChannelID(),
	})

	return nil
}
