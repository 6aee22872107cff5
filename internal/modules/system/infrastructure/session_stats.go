package infrastructure

import (
	"time"

	"github.com/bwmarrin/discordgo"
)

// SessionStats reads gateway statistics from a discordgo session and its state cache.
type SessionStats struct {
	session *discordgo.Session
}

// NewSessionStats creates a new SessionStats.
func NewSessionStats(session *discordgo.Session) *SessionStats {
	return &SessionStats{session: session}
}

// HeartbeatLatency returns the latency of the last gateway heartbeat.
func (s *SessionStats) HeartbeatLatency() time.Duration {
	return s.session.HeartbeatLatency()
}

// GuildCount returns the number of guilds the bot is in.
func (s *SessionStats) GuildCount() int {
	s.session.State.RLock()
	defer s.session.State.RUnlock()

	return len(s.session.State.Guilds)
}

// VoiceSessionCount returns the number of guilds where the bot is in a voice channel.
func (s *SessionStats) VoiceSessionCount() int {
	if s.session.State.User == nil {
		return 0
	}
	return countVoiceSessions(s.session.State, s.session.State.User.ID)
}

func countVoiceSessions(state *discordgo.State, botID string) int {
	state.RLock()
	defer state.RUnlock()

	count := 0
	for _, guild := range state.Guilds {
		for _, vs := range guild.VoiceStates {
			if vs.UserID == botID && vs.ChannelID != "" {
				count++
				break
			}
		}
	}
	return count
}
