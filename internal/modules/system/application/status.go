package application

import (
	"time"

	"github.com/sglre6355/ascend/internal/modules/system/domain"
)

// GatewayStats reports the state of the Discord connection.
type GatewayStats interface {
	HeartbeatLatency() time.Duration
	GuildCount() int
	VoiceSessionCount() int
}

// PingInteractor handles the ping use case.
type PingInteractor struct {
	stats GatewayStats
}

// NewPingInteractor creates a new PingInteractor.
func NewPingInteractor(stats GatewayStats) *PingInteractor {
	return &PingInteractor{stats: stats}
}

// Execute performs the ping operation and returns the result.
func (p *PingInteractor) Execute() *domain.PingResult {
	return domain.NewPingResult(p.stats.HeartbeatLatency())
}

// AboutInteractor handles the about use case.
type AboutInteractor struct {
	stats     GatewayStats
	version   string
	startedAt time.Time
	now       func() time.Time
}

// NewAboutInteractor creates a new AboutInteractor.
func NewAboutInteractor(stats GatewayStats, version string, startedAt time.Time) *AboutInteractor {
	return &AboutInteractor{
		stats:     stats,
		version:   version,
		startedAt: startedAt,
		now:       time.Now,
	}
}

// Execute returns a snapshot of the running instance.
func (a *AboutInteractor) Execute() *domain.About {
	return domain.NewAbout(
		a.version,
		a.startedAt,
		a.now(),
		a.stats.GuildCount(),
		a.stats.VoiceSessionCount(),
	)
}
