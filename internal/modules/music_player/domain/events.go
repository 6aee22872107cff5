package domain

import (
	"github.com/disgoorg/snowflake/v2"
)

// Event is implemented by all events published on the event bus.
type Event interface {
	EventGuildID() snowflake.ID
}

// TrackEndReason represents why a track ended.
type TrackEndReason string

const (
	// TrackEndFinished means the track finished normally.
	TrackEndFinished TrackEndReason = "finished"
	// TrackEndLoadFailed means the track failed to load.
	TrackEndLoadFailed TrackEndReason = "load_failed"
	// TrackEndStopped means the track was stopped by the user.
	TrackEndStopped TrackEndReason = "stopped"
	// TrackEndReplaced means the track was replaced by another.
	TrackEndReplaced TrackEndReason = "replaced"
	// TrackEndCleanup means the track was cleaned up.
	TrackEndCleanup TrackEndReason = "cleanup"
)

// ShouldAdvanceQueue returns true if this end reason should advance the queue.
func (r TrackEndReason) ShouldAdvanceQueue() bool {
	return r == TrackEndFinished || r == TrackEndLoadFailed
}

// TrackEnqueuedEvent is published when entries are added to the queue.
type TrackEnqueuedEvent struct {
	GuildID snowflake.ID
	Entries []*QueueEntry
	WasIdle bool // true if no track was playing when this was enqueued
}

// PlaybackStartedEvent is published when an entry starts playing.
type PlaybackStartedEvent struct {
	GuildID               snowflake.ID
	Entry                 *QueueEntry
	NotificationChannelID snowflake.ID
}

// PlaybackFinishedEvent is published when playback stops without a successor.
// It signals that the "Now Playing" message should be deleted.
type PlaybackFinishedEvent struct {
	GuildID snowflake.ID
}

// TrackEndedEvent is published when the audio node reports the end of a track.
type TrackEndedEvent struct {
	GuildID snowflake.ID
	Reason  TrackEndReason
}

// QueueClearedEvent is published when the queue is fully cleared, including the current entry.
type QueueClearedEvent struct {
	GuildID snowflake.ID
}

// SessionClosedEvent is published when a guild's player state is torn down.
// It carries the "Now Playing" message because the state is gone when handlers run.
type SessionClosedEvent struct {
	GuildID           snowflake.ID
	NowPlayingMessage *NowPlayingMessage
}

func (e TrackEnqueuedEvent) EventGuildID() snowflake.ID    { return e.GuildID }
func (e PlaybackStartedEvent) EventGuildID() snowflake.ID  { return e.GuildID }
func (e PlaybackFinishedEvent) EventGuildID() snowflake.ID { return e.GuildID }
func (e TrackEndedEvent) EventGuildID() snowflake.ID       { return e.GuildID }
func (e QueueClearedEvent) EventGuildID() snowflake.ID     { return e.GuildID }
func (e SessionClosedEvent) EventGuildID() snowflake.ID    { return e.GuildID }
