package domain

import (
	"context"
	"sync"

	"github.com/disgoorg/snowflake/v2"
)

// DefaultVolume is the volume a new player starts at.
const DefaultVolume = 100

// NowPlayingMessage stores the channel and message ID for a "Now Playing" message.
// Both values are needed for deletion since the message may be in a different channel
// than the current notification channel if the user switched channels while playing.
type NowPlayingMessage struct {
	ChannelID snowflake.ID
	MessageID snowflake.ID
}

// PlayerState represents the playback session of a guild.
type PlayerState struct {
	guildID snowflake.ID
	Queue   *Queue

	// transition serializes a queue step with the audio call that follows it.
	transition sync.Mutex

	mu                    sync.RWMutex
	voiceChannelID        snowflake.ID       // Voice channel the bot is connected to
	notificationChannelID snowflake.ID       // Text channel for notifications
	nowPlayingMessage     *NowPlayingMessage // "Now Playing" message info (for deletion)
	isPlaybackActive      bool
	isPaused              bool
	volume                int
}

// NewPlayerState creates a new PlayerState for the given guild and channels.
func NewPlayerState(
	guildID, voiceChannelID, notificationChannelID snowflake.ID,
	queue *Queue,
) *PlayerState {
	if queue == nil {
		queue = NewQueue()
	}
	return &PlayerState{
		guildID:               guildID,
		voiceChannelID:        voiceChannelID,
		notificationChannelID: notificationChannelID,
		Queue:                 queue,
		volume:                DefaultVolume,
	}
}

// LockTransition blocks until no other playback transition of this guild is
// in progress. Hold it from picking the next entry until the audio player has
// been told about it.
func (p *PlayerState) LockTransition() {
	p.transition.Lock()
}

// UnlockTransition releases the lock taken by LockTransition.
func (p *PlayerState) UnlockTransition() {
	p.transition.Unlock()
}

// GetGuildID returns the guild ID.
func (p *PlayerState) GetGuildID() snowflake.ID {
	// No lock: guildID must not be modified after initialization
	return p.guildID
}

// GetVoiceChannelID returns the current voice channel ID.
func (p *PlayerState) GetVoiceChannelID() snowflake.ID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.voiceChannelID
}

// SetVoiceChannelID updates the voice channel ID.
func (p *PlayerState) SetVoiceChannelID(channelID snowflake.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.voiceChannelID = channelID
}

// GetNotificationChannelID returns the text channel notifications are sent to.
func (p *PlayerState) GetNotificationChannelID() snowflake.ID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.notificationChannelID
}

// SetNotificationChannelID updates the notification channel ID.
func (p *PlayerState) SetNotificationChannelID(channelID snowflake.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notificationChannelID = channelID
}

// IsPlaybackActive returns true if a track has been handed to the audio player.
func (p *PlayerState) IsPlaybackActive() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.isPlaybackActive
}

// IsIdle returns true if nothing is playing.
func (p *PlayerState) IsIdle() bool {
	return !p.IsPlaybackActive()
}

// StartPlayback marks playback as active and unpaused.
func (p *PlayerState) StartPlayback() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.isPlaybackActive = true
	p.isPaused = false
}

// StopPlayback marks playback as inactive.
func (p *PlayerState) StopPlayback() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.isPlaybackActive = false
	p.isPaused = false
}

// IsPaused returns true if playback is paused.
func (p *PlayerState) IsPaused() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.isPaused
}

// SetPaused sets the paused flag.
func (p *PlayerState) SetPaused(paused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.isPaused = paused
}

// Volume returns the player volume in percent.
func (p *PlayerState) Volume() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.volume
}

// SetVolume sets the player volume in percent.
func (p *PlayerState) SetVolume(volume int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume
}

// CurrentEntry returns the playing entry, or nil if playback is not active.
func (p *PlayerState) CurrentEntry() *QueueEntry {
	if !p.IsPlaybackActive() {
		return nil
	}
	return p.Queue.Current()
}

// GetNowPlayingMessage returns a copy of the "Now Playing" message info.
func (p *PlayerState) GetNowPlayingMessage() *NowPlayingMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.nowPlayingMessage == nil {
		return nil
	}
	msg := *p.nowPlayingMessage
	return &msg
}

// SetNowPlayingMessage stores the "Now Playing" message info for later deletion.
func (p *PlayerState) SetNowPlayingMessage(channelID, messageID snowflake.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nowPlayingMessage = &NowPlayingMessage{ChannelID: channelID, MessageID: messageID}
}

// TakeNowPlayingMessage clears and returns the stored "Now Playing" message info.
func (p *PlayerState) TakeNowPlayingMessage() *NowPlayingMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	msg := p.nowPlayingMessage
	p.nowPlayingMessage = nil
	return msg
}

// PlayerStateRepository owns the guild to PlayerState mapping.
type PlayerStateRepository interface {
	// Get returns the PlayerState for the guild, or ErrPlayerStateNotFound.
	Get(ctx context.Context, guildID snowflake.ID) (*PlayerState, error)

	// Save stores the PlayerState, replacing any existing state for its guild.
	Save(ctx context.Context, state *PlayerState) error

	// Delete removes the PlayerState for the guild.
	Delete(ctx context.Context, guildID snowflake.ID) error

	// Count returns the number of active player states.
	Count(ctx context.Context) int

	// GuildIDs returns the guilds with an active player state.
	GuildIDs(ctx context.Context) []snowflake.ID
}
