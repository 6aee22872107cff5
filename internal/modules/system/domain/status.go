package domain

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// PingResult represents the result of a ping operation.
type PingResult struct {
	Message   string
	Latency   time.Duration
	Timestamp time.Time
}

// NewPingResult creates a new PingResult for the measured gateway latency.
func NewPingResult(latency time.Duration) *PingResult {
	return &PingResult{
		Message:   "Pong!",
		Latency:   latency,
		Timestamp: time.Now(),
	}
}

// LatencyMillis returns the latency rounded to whole milliseconds.
func (r *PingResult) LatencyMillis() int64 {
	return r.Latency.Round(time.Millisecond).Milliseconds()
}

// About describes the running bot instance.
type About struct {
	Version       string
	StartedAt     time.Time
	Now           time.Time
	Guilds        int
	VoiceSessions int
}

// NewAbout creates an About snapshot taken at now.
func NewAbout(version string, startedAt, now time.Time, guilds, voiceSessions int) *About {
	if version == "" {
		version = "dev"
	}
	return &About{
		Version:       version,
		StartedAt:     startedAt,
		Now:           now,
		Guilds:        guilds,
		VoiceSessions: voiceSessions,
	}
}

// Uptime returns how long the bot has been connected.
func (a *About) Uptime() time.Duration {
	if a.StartedAt.IsZero() || a.Now.Before(a.StartedAt) {
		return 0
	}
	return a.Now.Sub(a.StartedAt)
}

// UptimeString returns the uptime in words, e.g. "3 hours".
func (a *About) UptimeString() string {
	if a.Uptime() < time.Second {
		return "just now"
	}
	return strings.TrimSpace(humanize.RelTime(a.StartedAt, a.Now, "", ""))
}
