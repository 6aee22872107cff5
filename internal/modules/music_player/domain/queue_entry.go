package domain

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
)

// EntryID identifies a queue entry independently of its position.
type EntryID = uuid.UUID

// Requester identifies the user who queued an entry.
type Requester struct {
	ID          snowflake.ID
	DisplayName string
	AvatarURL   string
}

// QueueEntry wraps a Track with queue bookkeeping.
// Entries are owned by exactly one of a queue's entries, current, or history.
type QueueEntry struct {
	ID         EntryID
	Track      Track
	Requester  Requester
	EnqueuedAt time.Time
	Position   int
	Played     bool
	Likes      int
	Dislikes   int
	SkipVotes  map[snowflake.ID]struct{}
}

func newQueueEntry(track Track, requester Requester, now time.Time) *QueueEntry {
	return &QueueEntry{
		ID:         uuid.New(),
		Track:      track,
		Requester:  requester,
		EnqueuedAt: now,
		SkipVotes:  make(map[snowflake.ID]struct{}),
	}
}

// Weight returns the shuffle selection weight, never below 1.
func (e *QueueEntry) Weight() int {
	return max(1, e.Likes-e.Dislikes+1)
}

// clone returns a detached copy safe to hand to readers outside the queue lock.
func (e *QueueEntry) clone() QueueEntry {
	c := *e
	c.SkipVotes = make(map[snowflake.ID]struct{}, len(e.SkipVotes))
	for id := range e.SkipVotes {
		c.SkipVotes[id] = struct{}{}
	}
	return c
}
