package domain

import (
	"math"

	"github.com/disgoorg/snowflake/v2"
)

// VoteAction is a group action listeners can vote on.
type VoteAction string

const (
	VoteSkip    VoteAction = "skip"
	VoteStop    VoteAction = "stop"
	VoteShuffle VoteAction = "shuffle"
	VotePause   VoteAction = "pause"
)

// ParseVoteAction converts a string to a VoteAction.
func ParseVoteAction(s string) (VoteAction, bool) {
	switch a := VoteAction(s); a {
	case VoteSkip, VoteStop, VoteShuffle, VotePause:
		return a, true
	default:
		return "", false
	}
}

// VoteChange reports whether a vote was cast or withdrawn.
type VoteChange string

const (
	VoteAdded   VoteChange = "added"
	VoteRemoved VoteChange = "removed"
)

// VoteOutcome is the result of toggling a vote.
type VoteOutcome struct {
	Action VoteChange
	Count  int
}

// VoteLedger tracks voters per action. It is not safe for concurrent use;
// Queue guards its ledger with the queue lock.
type VoteLedger struct {
	votes map[VoteAction]map[snowflake.ID]struct{}
}

// NewVoteLedger creates an empty VoteLedger.
func NewVoteLedger() *VoteLedger {
	return &VoteLedger{votes: make(map[VoteAction]map[snowflake.ID]struct{})}
}

// Vote toggles voter's vote for action.
func (l *VoteLedger) Vote(action VoteAction, voter snowflake.ID) VoteOutcome {
	voters, ok := l.votes[action]
	if !ok {
		voters = make(map[snowflake.ID]struct{})
		l.votes[action] = voters
	}

	if _, voted := voters[voter]; voted {
		delete(voters, voter)
		return VoteOutcome{Action: VoteRemoved, Count: len(voters)}
	}

	voters[voter] = struct{}{}
	return VoteOutcome{Action: VoteAdded, Count: len(voters)}
}

// Count returns the number of votes recorded for action.
func (l *VoteLedger) Count(action VoteAction) int {
	return len(l.votes[action])
}

// Reset drops all votes for action.
func (l *VoteLedger) Reset(action VoteAction) {
	delete(l.votes, action)
}

// Clear drops every vote.
func (l *VoteLedger) Clear() {
	clear(l.votes)
}

// RequiredVotes returns how many votes are needed among listeners for the given ratio.
// At least one vote is always required.
func RequiredVotes(listeners int, ratio float64) int {
	if listeners <= 0 || ratio <= 0 {
		return 1
	}
	return max(1, int(math.Ceil(float64(listeners)*ratio)))
}
