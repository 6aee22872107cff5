package infrastructure

import (
	"context"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/ascend/internal/modules/music_player/domain"
)

// MemoryRepository is an in-memory implementation of PlayerStateRepository.
// States are stored by pointer; callers mutate them through their own locks.
type MemoryRepository struct {
	mu     sync.RWMutex
	states map[snowflake.ID]*domain.PlayerState
}

// NewMemoryRepository creates a new MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		states: make(map[snowflake.ID]*domain.PlayerState),
	}
}

// Get returns the PlayerState for the given guild, or domain.ErrPlayerStateNotFound.
func (r *MemoryRepository) Get(
	_ context.Context,
	guildID snowflake.ID,
) (*domain.PlayerState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.states[guildID]
	if !ok {
		return nil, domain.ErrPlayerStateNotFound
	}
	return state, nil
}

// Save stores the PlayerState, replacing any state of the same guild.
func (r *MemoryRepository) Save(_ context.Context, state *domain.PlayerState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.states[state.GetGuildID()] = state
	return nil
}

// Delete removes the PlayerState for the given guild.
func (r *MemoryRepository) Delete(_ context.Context, guildID snowflake.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.states, guildID)
	return nil
}

// Count returns the number of active sessions.
func (r *MemoryRepository) Count(_ context.Context) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.states)
}

// GuildIDs returns the guilds with an active session, in no particular order.
func (r *MemoryRepository) GuildIDs(_ context.Context) []snowflake.ID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]snowflake.ID, 0, len(r.states))
	for id := range r.states {
		ids = append(ids, id)
	}
	return ids
}

// Ensure MemoryRepository implements PlayerStateRepository.
var _ domain.PlayerStateRepository = (*MemoryRepository)(nil)
