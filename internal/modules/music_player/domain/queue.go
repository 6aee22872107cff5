package domain

import (
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
)

const (
	// DefaultMaxSize is the default capacity of a queue.
	DefaultMaxSize = 1000
	// DefaultHistorySize is the default number of finished entries kept.
	DefaultHistorySize = 100
	// DefaultAutoplayWindow is how many recent history entries autoplay samples from.
	DefaultAutoplayWindow = 20
)

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithMaxSize sets the queue capacity.
func WithMaxSize(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.maxSize = n
		}
	}
}

// WithHistorySize sets the history capacity.
func WithHistorySize(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.historySize = n
		}
	}
}

// WithAutoplayWindow sets how many recent history entries autoplay samples from.
func WithAutoplayWindow(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.autoplayWindow = n
		}
	}
}

// WithRand sets the random source used for shuffling and autoplay.
func WithRand(r *rand.Rand) QueueOption {
	return func(q *Queue) {
		if r != nil {
			q.rng = r
		}
	}
}

// WithClock sets the clock used for timestamps and start time estimates.
func WithClock(now func() time.Time) QueueOption {
	return func(q *Queue) {
		if now != nil {
			q.now = now
		}
	}
}

// Queue is a guild's playback queue.
//
// The upcoming entries are kept in play order; the entry handed to playback is
// held separately as current and finished entries move into a bounded history.
// All methods are safe for concurrent use and each runs atomically.
// Entries returned by Queue are detached copies; mutate them through Queue methods.
type Queue struct {
	mu sync.Mutex

	entries []*QueueEntry
	current *QueueEntry
	history []*QueueEntry

	loopMode LoopMode
	autoplay bool
	shuffled bool
	// order is the pre-shuffle order, maintained while shuffled so that
	// turning shuffle off restores it for the entries still queued.
	order []*QueueEntry

	blacklist []string
	votes     *VoteLedger

	maxSize        int
	historySize    int
	autoplayWindow int
	rng            *rand.Rand
	now            func() time.Time
}

// NewQueue creates an empty queue.
func NewQueue(opts ...QueueOption) *Queue {
	q := &Queue{
		votes:          NewVoteLedger(),
		maxSize:        DefaultMaxSize,
		historySize:    DefaultHistorySize,
		autoplayWindow: DefaultAutoplayWindow,
		rng:            rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Add enqueues track for requester. A priority entry is placed at the front.
// It fails with ErrQueueFull at capacity and ErrBlacklisted when the title or
// author contains a blacklisted term.
func (q *Queue) Add(track Track, requester Requester, priority bool) (*QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, err := q.add(track, requester, priority)
	if err != nil {
		return nil, err
	}
	return detach(entry), nil
}

// AddMultiple enqueues tracks in order, skipping any rejected by capacity or blacklist.
func (q *Queue) AddMultiple(tracks []Track, requester Requester) []*QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	added := make([]*QueueEntry, 0, len(tracks))
	for _, track := range tracks {
		entry, err := q.add(track, requester, false)
		if err != nil {
			continue
		}
		added = append(added, detach(entry))
	}
	return added
}

func (q *Queue) add(track Track, requester Requester, priority bool) (*QueueEntry, error) {
	if len(q.entries) >= q.maxSize {
		return nil, errors.Wrapf(ErrQueueFull, "limit is %d tracks", q.maxSize)
	}
	if term, ok := q.matchBlacklist(track); ok {
		return nil, errors.Wrapf(ErrBlacklisted, "matches %q", term)
	}

	entry := newQueueEntry(track, requester, q.now())
	if priority {
		q.entries = slices.Insert(q.entries, 0, entry)
		if q.shuffled {
			q.order = slices.Insert(q.order, 0, entry)
		}
	} else {
		q.entries = append(q.entries, entry)
		if q.shuffled {
			q.order = append(q.order, entry)
		}
	}
	q.renumber()

	return entry, nil
}

// Remove removes the entry at index. It returns nil when index is out of range.
func (q *Queue) Remove(index int) *QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.validIndex(index) {
		return nil
	}
	entry := q.removeAt(index)
	q.renumber()
	return detach(entry)
}

// RemoveByID removes the entry with the given id. It returns nil when no such entry is queued.
func (q *Queue) RemoveByID(id EntryID) *QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	index := slices.IndexFunc(q.entries, func(e *QueueEntry) bool { return e.ID == id })
	if index < 0 {
		return nil
	}
	entry := q.removeAt(index)
	q.renumber()
	return detach(entry)
}

// Move relocates the entry at from to to. It returns false when either index is out of range.
func (q *Queue) Move(from, to int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.validIndex(from) || !q.validIndex(to) {
		return false
	}

	entry := q.entries[from]
	q.entries = slices.Delete(q.entries, from, from+1)
	q.entries = slices.Insert(q.entries, to, entry)
	q.renumber()
	return true
}

// Clear drops upcoming entries, the current entry, history and votes.
// Loop mode, shuffle, autoplay and the blacklist are kept.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.entries = nil
	q.current = nil
	q.history = nil
	q.order = nil
	q.votes.Clear()
}

// ToggleShuffle flips shuffle mode and returns the new state.
// Turning it on randomly permutes the upcoming entries; turning it off restores
// the pre-shuffle order of the entries that are still queued.
func (q *Queue) ToggleShuffle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.shuffled {
		q.unshuffle()
	} else {
		q.order = slices.Clone(q.entries)
		q.rng.Shuffle(len(q.entries), func(i, j int) {
			q.entries[i], q.entries[j] = q.entries[j], q.entries[i]
		})
		q.shuffled = true
	}
	q.renumber()
	return q.shuffled
}

func (q *Queue) unshuffle() {
	queued := make(map[*QueueEntry]struct{}, len(q.entries))
	for _, e := range q.entries {
		queued[e] = struct{}{}
	}

	restored := make([]*QueueEntry, 0, len(q.entries))
	for _, e := range q.order {
		if _, ok := queued[e]; ok {
			restored = append(restored, e)
			delete(queued, e)
		}
	}
	// Entries the snapshot does not know about keep their relative order at the end.
	for _, e := range q.entries {
		if _, ok := queued[e]; ok {
			restored = append(restored, e)
		}
	}

	q.entries = restored
	q.order = nil
	q.shuffled = false
}

// Next advances the queue and returns the entry that should play, or nil when
// the queue is exhausted.
//
// Track loop returns the current entry unchanged. An empty queue falls back to
// autoplay, which samples the most recent history. Otherwise the next entry is
// taken from the front, or by like-weighted random choice while shuffled; the
// previous current entry moves into history. Queue loop re-enqueues a fresh copy
// of the chosen track at the end.
func (q *Queue) Next() *QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	return detach(q.next(true))
}

// Skip behaves like Next but always moves past the current entry, even in track loop.
func (q *Queue) Skip() *QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	return detach(q.next(false))
}

func (q *Queue) next(honorTrackLoop bool) *QueueEntry {
	if honorTrackLoop && q.loopMode == LoopModeTrack && q.current != nil {
		return q.current
	}

	if len(q.entries) == 0 {
		if !q.autoplay || len(q.history) == 0 {
			return nil
		}
		window := q.history[max(0, len(q.history)-q.autoplayWindow):]
		source := window[q.rng.IntN(len(window))]
		entry := newQueueEntry(source.Track, source.Requester, q.now())
		q.promote(entry)
		return entry
	}

	index := 0
	if q.shuffled {
		index = q.weightedIndex()
	}
	chosen := q.removeAt(index)
	q.promote(chosen)

	if q.loopMode == LoopModeQueue {
		again := newQueueEntry(chosen.Track, chosen.Requester, q.now())
		q.entries = append(q.entries, again)
		if q.shuffled {
			q.order = append(q.order, again)
		}
	}
	q.renumber()

	return chosen
}

// Previous makes the most recent history entry current again and puts the
// current entry back at the front of the queue. It returns nil when history is empty.
func (q *Queue) Previous() (*QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.history) == 0 {
		return nil, nil
	}
	if q.current != nil && len(q.entries) >= q.maxSize {
		return nil, errors.Wrapf(ErrQueueFull, "limit is %d tracks", q.maxSize)
	}

	last := len(q.history) - 1
	prev := q.history[last]
	q.history = q.history[:last]

	if q.current != nil {
		q.current.Played = false
		q.entries = slices.Insert(q.entries, 0, q.current)
		if q.shuffled {
			q.order = slices.Insert(q.order, 0, q.current)
		}
	}
	prev.Played = false
	q.current = prev
	q.votes.Reset(VoteSkip)
	q.renumber()

	return detach(prev), nil
}

// SkipTo discards the entries before index and makes the entry at index current.
// It returns nil when index is out of range.
func (q *Queue) SkipTo(index int) *QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.validIndex(index) {
		return nil
	}

	for range index {
		q.removeAt(0)
	}
	chosen := q.removeAt(0)
	q.promote(chosen)

	if q.loopMode == LoopModeQueue {
		again := newQueueEntry(chosen.Track, chosen.Requester, q.now())
		q.entries = append(q.entries, again)
		if q.shuffled {
			q.order = append(q.order, again)
		}
	}
	q.renumber()

	return detach(chosen)
}

// Finish moves the current entry into history without choosing a successor.
func (q *Queue) Finish() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.promote(nil)
}

// promote retires the current entry into history and makes entry current.
func (q *Queue) promote(entry *QueueEntry) {
	if q.current != nil {
		q.current.Played = true
		q.history = append(q.history, q.current)
		if over := len(q.history) - q.historySize; over > 0 {
			q.history = slices.Delete(q.history, 0, over)
		}
	}
	if entry != nil {
		entry.Position = 0
	}
	q.current = entry
	q.votes.Reset(VoteSkip)
}

func (q *Queue) weightedIndex() int {
	total := 0
	for _, e := range q.entries {
		total += e.Weight()
	}

	r := q.rng.IntN(total)
	for i, e := range q.entries {
		w := e.Weight()
		if r < w {
			return i
		}
		r -= w
	}
	return len(q.entries) - 1
}

// LikeCurrent records a like on the current entry.
func (q *Queue) LikeCurrent() (*QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.current == nil {
		return nil, ErrNoCurrentEntry
	}
	q.current.Likes++
	return detach(q.current), nil
}

// DislikeCurrent records a dislike on the current entry.
func (q *Queue) DislikeCurrent() (*QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.current == nil {
		return nil, ErrNoCurrentEntry
	}
	q.current.Dislikes++
	return detach(q.current), nil
}

// Vote toggles voter's vote for action. Skip votes are mirrored onto the current entry.
func (q *Queue) Vote(action VoteAction, voter snowflake.ID) VoteOutcome {
	q.mu.Lock()
	defer q.mu.Unlock()

	outcome := q.votes.Vote(action, voter)
	if action == VoteSkip && q.current != nil {
		if outcome.Action == VoteAdded {
			q.current.SkipVotes[voter] = struct{}{}
		} else {
			delete(q.current.SkipVotes, voter)
		}
	}
	return outcome
}

// VoteCount returns the number of votes recorded for action.
func (q *Queue) VoteCount(action VoteAction) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.votes.Count(action)
}

// ResetVotes drops all votes for action.
func (q *Queue) ResetVotes(action VoteAction) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.votes.Reset(action)
	if action == VoteSkip && q.current != nil {
		clear(q.current.SkipVotes)
	}
}

// Search returns the queued entries whose title, author or requester name
// contains query, ignoring case, in queue order.
func (q *Queue) Search(query string) []*QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	needle := strings.ToLower(query)
	var matches []*QueueEntry
	for _, e := range q.entries {
		if strings.Contains(strings.ToLower(e.Track.Title), needle) ||
			strings.Contains(strings.ToLower(e.Track.Author), needle) ||
			strings.Contains(strings.ToLower(e.Requester.DisplayName), needle) {
			matches = append(matches, detach(e))
		}
	}
	return matches
}

// TotalDuration returns the summed duration of the upcoming entries, excluding current.
func (q *Queue) TotalDuration() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.durationBefore(len(q.entries))
}

// EstimatedStartTime returns when the entry at index is expected to start,
// counting only the upcoming entries ahead of it. Out of range indexes yield now.
func (q *Queue) EstimatedStartTime(index int) time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	if !q.validIndex(index) {
		return now
	}
	return now.Add(q.durationBefore(index))
}

// StartOffset returns the summed duration of the upcoming entries ahead of index.
// Out of range indexes yield zero.
func (q *Queue) StartOffset(index int) time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.validIndex(index) {
		return 0
	}
	return q.durationBefore(index)
}

func (q *Queue) durationBefore(index int) time.Duration {
	var total time.Duration
	for _, e := range q.entries[:index] {
		if e.Track.Duration > 0 {
			total += e.Track.Duration
		}
	}
	return total
}

// QueueStats summarises the upcoming entries.
type QueueStats struct {
	Count             int
	TotalDuration     time.Duration
	AverageDuration   time.Duration
	UniqueRequesters  int
	TopRequester      Requester
	TopRequesterCount int
}

// Stats returns statistics over the upcoming entries.
func (q *Queue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := QueueStats{
		Count:         len(q.entries),
		TotalDuration: q.durationBefore(len(q.entries)),
	}
	if stats.Count == 0 {
		return stats
	}
	stats.AverageDuration = stats.TotalDuration / time.Duration(stats.Count)

	counts := make(map[snowflake.ID]int)
	for _, e := range q.entries {
		counts[e.Requester.ID]++
		if n := counts[e.Requester.ID]; n > stats.TopRequesterCount {
			stats.TopRequester = e.Requester
			stats.TopRequesterCount = n
		}
	}
	stats.UniqueRequesters = len(counts)

	return stats
}

// AddToBlacklist adds term, lowercased. It returns false for blank or duplicate terms.
func (q *Queue) AddToBlacklist(term string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.addBlacklistTerm(term)
}

// RemoveFromBlacklist removes term, ignoring case. It returns false when absent.
func (q *Queue) RemoveFromBlacklist(term string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	term = normalizeTerm(term)
	index := slices.Index(q.blacklist, term)
	if index < 0 {
		return false
	}
	q.blacklist = slices.Delete(q.blacklist, index, index+1)
	return true
}

// SetBlacklist replaces the blacklist with terms.
func (q *Queue) SetBlacklist(terms []string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.blacklist = nil
	for _, term := range terms {
		q.addBlacklistTerm(term)
	}
}

// Blacklist returns the blacklisted terms in insertion order.
func (q *Queue) Blacklist() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	return slices.Clone(q.blacklist)
}

func (q *Queue) addBlacklistTerm(term string) bool {
	term = normalizeTerm(term)
	if term == "" || slices.Contains(q.blacklist, term) {
		return false
	}
	q.blacklist = append(q.blacklist, term)
	return true
}

func (q *Queue) matchBlacklist(track Track) (string, bool) {
	title := strings.ToLower(track.Title)
	author := strings.ToLower(track.Author)
	for _, term := range q.blacklist {
		if strings.Contains(title, term) || strings.Contains(author, term) {
			return term, true
		}
	}
	return "", false
}

func normalizeTerm(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

// LoopMode returns the repeat mode.
func (q *Queue) LoopMode() LoopMode {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.loopMode
}

// SetLoopMode sets the repeat mode.
func (q *Queue) SetLoopMode(mode LoopMode) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.loopMode = mode
}

// CycleLoopMode advances the repeat mode: None -> Track -> Queue -> None.
func (q *Queue) CycleLoopMode() LoopMode {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.loopMode = q.loopMode.Next()
	return q.loopMode
}

// Autoplay reports whether autoplay is enabled.
func (q *Queue) Autoplay() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.autoplay
}

// SetAutoplay enables or disables autoplay.
func (q *Queue) SetAutoplay(enabled bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.autoplay = enabled
}

// ToggleAutoplay flips autoplay and returns the new state.
func (q *Queue) ToggleAutoplay() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.autoplay = !q.autoplay
	return q.autoplay
}

// IsShuffled reports whether shuffle is enabled.
func (q *Queue) IsShuffled() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.shuffled
}

// Len returns the number of upcoming entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.entries)
}

// MaxSize returns the queue capacity.
func (q *Queue) MaxSize() int {
	return q.maxSize
}

// Current returns the current entry, or nil.
func (q *Queue) Current() *QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	return detach(q.current)
}

// EntryAt returns the upcoming entry at index, or nil when out of range.
func (q *Queue) EntryAt(index int) *QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.validIndex(index) {
		return nil
	}
	return detach(q.entries[index])
}

// QueueSnapshot is a point-in-time copy of a queue for rendering.
type QueueSnapshot struct {
	Current  *QueueEntry
	Entries  []*QueueEntry
	History  []*QueueEntry
	LoopMode LoopMode
	Shuffled bool
	Autoplay bool
	MaxSize  int
}

// Snapshot returns a copy of the queue's state.
func (q *Queue) Snapshot() QueueSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	return QueueSnapshot{
		Current:  detach(q.current),
		Entries:  detachAll(q.entries),
		History:  detachAll(q.history),
		LoopMode: q.loopMode,
		Shuffled: q.shuffled,
		Autoplay: q.autoplay,
		MaxSize:  q.maxSize,
	}
}

func (q *Queue) validIndex(index int) bool {
	return 0 <= index && index < len(q.entries)
}

func (q *Queue) removeAt(index int) *QueueEntry {
	entry := q.entries[index]
	q.entries = slices.Delete(q.entries, index, index+1)
	if q.shuffled {
		if i := slices.Index(q.order, entry); i >= 0 {
			q.order = slices.Delete(q.order, i, i+1)
		}
	}
	return entry
}

func (q *Queue) renumber() {
	for i, e := range q.entries {
		e.Position = i
	}
}

func detach(e *QueueEntry) *QueueEntry {
	if e == nil {
		return nil
	}
	c := e.clone()
	return &c
}

func detachAll(entries []*QueueEntry) []*QueueEntry {
	out := make([]*QueueEntry, len(entries))
	for i, e := range entries {
		out[i] = detach(e)
	}
	return out
}
