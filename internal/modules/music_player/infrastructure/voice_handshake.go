package infrastructure

import (
	"sync"

	"github.com/disgoorg/snowflake/v2"
)

// voiceSession collects the two halves Discord sends for a voice connection.
// Lavalink rejects a partial voice state, so nothing is forwarded until both
// VoiceStateUpdate and VoiceServerUpdate have arrived. Once established,
// later updates (moves, voice server failover) are forwarded as they come.
type voiceSession struct {
	hasState  bool
	channelID *snowflake.ID
	sessionID string

	hasServer bool
	token     string
	endpoint  string

	established bool
	ready       chan struct{}
}

// voiceHandshakes tracks voiceSession per guild.
type voiceHandshakes struct {
	mu     sync.Mutex
	guilds map[snowflake.ID]*voiceSession

	forwardState  func(guildID snowflake.ID, channelID *snowflake.ID, sessionID string)
	forwardServer func(guildID snowflake.ID, token, endpoint string)
}

func newVoiceHandshakes(
	forwardState func(guildID snowflake.ID, channelID *snowflake.ID, sessionID string),
	forwardServer func(guildID snowflake.ID, token, endpoint string),
) *voiceHandshakes {
	return &voiceHandshakes{
		guilds:        make(map[snowflake.ID]*voiceSession),
		forwardState:  forwardState,
		forwardServer: forwardServer,
	}
}

func (h *voiceHandshakes) session(guildID snowflake.ID) *voiceSession {
	s, ok := h.guilds[guildID]
	if !ok {
		s = &voiceSession{}
		h.guilds[guildID] = s
	}
	return s
}

// await returns a channel closed once the guild's voice connection is usable.
// For an established connection that is the next voice state update.
func (h *voiceHandshakes) await(guildID snowflake.ID) <-chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.session(guildID)
	s.ready = make(chan struct{})
	return s.ready
}

// abandon forgets a waiter that gave up.
func (h *voiceHandshakes) abandon(guildID snowflake.ID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.guilds[guildID]; ok {
		s.ready = nil
	}
}

func (h *voiceHandshakes) onState(guildID snowflake.ID, channelID *snowflake.ID, sessionID string) {
	if channelID == nil {
		h.forwardState(guildID, nil, sessionID)
		h.drop(guildID)
		return
	}

	h.mu.Lock()
	s := h.session(guildID)
	s.hasState = true
	s.channelID = channelID
	s.sessionID = sessionID

	if s.established {
		s.signal()
		h.mu.Unlock()
		h.forwardState(guildID, channelID, sessionID)
		return
	}
	complete := h.completeLocked(s)
	h.mu.Unlock()

	if complete != nil {
		complete(guildID)
	}
}

func (h *voiceHandshakes) onServer(guildID snowflake.ID, token, endpoint string) {
	h.mu.Lock()
	s := h.session(guildID)
	s.hasServer = true
	s.token = token
	s.endpoint = endpoint

	if s.established {
		h.mu.Unlock()
		h.forwardServer(guildID, token, endpoint)
		return
	}
	complete := h.completeLocked(s)
	h.mu.Unlock()

	if complete != nil {
		complete(guildID)
	}
}

// completeLocked marks s established when both halves are present and returns
// the forwarding to run after the lock is released.
func (h *voiceHandshakes) completeLocked(s *voiceSession) func(snowflake.ID) {
	if !s.hasState || !s.hasServer {
		return nil
	}
	s.established = true
	s.signal()

	channelID, sessionID := s.channelID, s.sessionID
	token, endpoint := s.token, s.endpoint
	return func(guildID snowflake.ID) {
		// Lavalink expects the state before the server.
		h.forwardState(guildID, channelID, sessionID)
		h.forwardServer(guildID, token, endpoint)
	}
}

func (s *voiceSession) signal() {
	if s.ready != nil {
		close(s.ready)
		s.ready = nil
	}
}

// drop forgets the guild's connection, releasing any waiter.
func (h *voiceHandshakes) drop(guildID snowflake.ID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.guilds, guildID)
}
