package domain

import "github.com/cockroachdb/errors"

var (
	// ErrQueueFull is returned when adding to a queue that has reached its capacity.
	ErrQueueFull = errors.New("queue is full")

	// ErrBlacklisted is returned when a track matches a blacklisted term.
	ErrBlacklisted = errors.New("track is blacklisted")

	// ErrNoCurrentEntry is returned by operations that act on the current entry when there is none.
	ErrNoCurrentEntry = errors.New("no current entry")

	// ErrInvalidIndex is returned by callers that need to report an out-of-range queue index.
	ErrInvalidIndex = errors.New("invalid queue index")

	// ErrPlayerStateNotFound is returned when no player state exists for a guild.
	ErrPlayerStateNotFound = errors.New("player state not found")
)
