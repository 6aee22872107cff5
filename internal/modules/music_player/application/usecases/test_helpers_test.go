package usecases

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/ascend/internal/modules/music_player/application/ports"
	"github.com/sglre6355/ascend/internal/modules/music_player/domain"
)

const (
	testGuildID        = snowflake.ID(1)
	testTextChannelID  = snowflake.ID(3)
	testVoiceChannelID = snowflake.ID(4)
	testUserID         = snowflake.ID(123)
)

var testRequester = domain.Requester{ID: testUserID, DisplayName: "TestUser"}

func mockTrack(id string) domain.Track {
	return domain.Track{
		Identifier: id,
		Encoded:    "encoded-" + id,
		Title:      "Track " + id,
		Author:     "Artist",
		Duration:   3 * time.Minute,
		SourceName: "youtube",
	}
}

type mockRepository struct {
	mu      sync.Mutex
	states  map[snowflake.ID]*domain.PlayerState
	deleted []snowflake.ID
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		states: make(map[snowflake.ID]*domain.PlayerState),
	}
}

func (m *mockRepository) Get(_ context.Context, guildID snowflake.ID) (*domain.PlayerState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.states[guildID]
	if !ok {
		return nil, domain.ErrPlayerStateNotFound
	}
	return state, nil
}

func (m *mockRepository) Save(_ context.Context, state *domain.PlayerState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.states[state.GetGuildID()] = state
	return nil
}

func (m *mockRepository) Delete(_ context.Context, guildID snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleted = append(m.deleted, guildID)
	delete(m.states, guildID)
	return nil
}

func (m *mockRepository) Count(_ context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.states)
}

func (m *mockRepository) GuildIDs(_ context.Context) []snowflake.ID {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]snowflake.ID, 0, len(m.states))
	for id := range m.states {
		ids = append(ids, id)
	}
	return ids
}

// createConnectedState creates a PlayerState with the given IDs and saves it to the mock repository.
// Returns the state for further modification (e.g., adding tracks).
func (m *mockRepository) createConnectedState(
	guildID, voiceChannelID, notificationChannelID snowflake.ID,
) *domain.PlayerState {
	state := domain.NewPlayerState(guildID, voiceChannelID, notificationChannelID, nil)
	_ = m.Save(context.Background(), state)
	return state
}

// createPlayingState creates a connected state playing the first of the given tracks,
// with the rest queued.
func (m *mockRepository) createPlayingState(ids ...string) *domain.PlayerState {
	state := m.createConnectedState(testGuildID, testVoiceChannelID, testTextChannelID)
	for _, id := range ids {
		if _, err := state.Queue.Add(mockTrack(id), testRequester, false); err != nil {
			panic(err)
		}
	}
	if len(ids) > 0 {
		state.Queue.Next()
		state.StartPlayback()
	}
	return state
}

type mockAudioPlayer struct {
	mu        sync.Mutex
	playDelay time.Duration
	playErr   error
	stopErr   error
	pauseErr  error
	resumeErr error
	seekErr   error
	volumeErr error
	position  time.Duration

	played  []domain.Track
	stopped int
	seeks   []time.Duration
	volumes []int
}

func (m *mockAudioPlayer) Play(_ context.Context, _ snowflake.ID, track domain.Track) error {
	if m.playErr != nil {
		return m.playErr
	}
	time.Sleep(m.playDelay)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.played = append(m.played, track)
	return nil
}

func (m *mockAudioPlayer) lastPlayed() domain.Track {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.played) == 0 {
		return domain.Track{}
	}
	return m.played[len(m.played)-1]
}

func (m *mockAudioPlayer) Stop(_ context.Context, _ snowflake.ID) error {
	if m.stopErr != nil {
		return m.stopErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped++
	return nil
}

func (m *mockAudioPlayer) Pause(_ context.Context, _ snowflake.ID) error {
	return m.pauseErr
}

func (m *mockAudioPlayer) Resume(_ context.Context, _ snowflake.ID) error {
	return m.resumeErr
}

func (m *mockAudioPlayer) Seek(_ context.Context, _ snowflake.ID, position time.Duration) error {
	if m.seekErr != nil {
		return m.seekErr
	}
	m.seeks = append(m.seeks, position)
	return nil
}

func (m *mockAudioPlayer) SetVolume(_ context.Context, _ snowflake.ID, volume int) error {
	if m.volumeErr != nil {
		return m.volumeErr
	}
	m.volumes = append(m.volumes, volume)
	return nil
}

func (m *mockAudioPlayer) Position(_ snowflake.ID) time.Duration {
	return m.position
}

type mockVoiceConnection struct {
	joinErr  error
	leaveErr error
	joined   []snowflake.ID
	left     int
}

func (m *mockVoiceConnection) JoinChannel(_ context.Context, _, channelID snowflake.ID) error {
	if m.joinErr != nil {
		return m.joinErr
	}
	m.joined = append(m.joined, channelID)
	return nil
}

func (m *mockVoiceConnection) LeaveChannel(_ context.Context, _ snowflake.ID) error {
	if m.leaveErr != nil {
		return m.leaveErr
	}
	m.left++
	return nil
}

// mockTrackResolver answers queries from results, keyed by the full Lavalink query.
// Unknown queries fall back to loadResult.
type mockTrackResolver struct {
	mu         sync.Mutex
	loadErr    error
	loadResult *ports.LoadResult
	results    map[string]*ports.LoadResult
	queries    []string
}

func (m *mockTrackResolver) LoadTracks(_ context.Context, query string) (*ports.LoadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queries = append(m.queries, query)
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if result, ok := m.results[query]; ok {
		return result, nil
	}
	if m.loadResult != nil {
		return m.loadResult, nil
	}
	return &ports.LoadResult{Type: ports.LoadTypeEmpty}, nil
}

func (m *mockTrackResolver) queriesWithPrefix(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, q := range m.queries {
		if strings.HasPrefix(q, prefix) {
			n++
		}
	}
	return n
}

type mockVoiceStateProvider struct {
	channels  map[snowflake.ID]snowflake.ID // userID -> channelID
	listeners int
	err       error
}

func (m *mockVoiceStateProvider) GetUserVoiceChannel(_, userID snowflake.ID) (snowflake.ID, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.channels[userID], nil
}

func (m *mockVoiceStateProvider) CountListeners(_, _ snowflake.ID) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.listeners, nil
}

type mockEventPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (m *mockEventPublisher) Publish(event domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, event)
	return nil
}

func eventsOf[T domain.Event](m *mockEventPublisher) []T {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []T
	for _, e := range m.events {
		if typed, ok := e.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}

type mockSettingsStore struct {
	settings map[snowflake.ID]ports.GuildSettings
	loadErr  error
	saved    int
}

func newMockSettingsStore() *mockSettingsStore {
	return &mockSettingsStore{settings: make(map[snowflake.ID]ports.GuildSettings)}
}

func (m *mockSettingsStore) LoadSettings(_ context.Context, guildID snowflake.ID) (*ports.GuildSettings, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	settings, ok := m.settings[guildID]
	if !ok {
		return nil, nil
	}
	return &settings, nil
}

func (m *mockSettingsStore) SaveSettings(_ context.Context, settings ports.GuildSettings) error {
	m.settings[settings.GuildID] = settings
	m.saved++
	return nil
}

type mockSavedQueueStore struct {
	queues map[string]ports.SavedQueue
}

func newMockSavedQueueStore() *mockSavedQueueStore {
	return &mockSavedQueueStore{queues: make(map[string]ports.SavedQueue)}
}

func (m *mockSavedQueueStore) SaveQueue(_ context.Context, queue ports.SavedQueue) error {
	m.queues[queue.Name] = queue
	return nil
}

func (m *mockSavedQueueStore) FindQueue(_ context.Context, _ snowflake.ID, name string) (*ports.SavedQueue, error) {
	queue, ok := m.queues[name]
	if !ok {
		return nil, nil
	}
	return &queue, nil
}

func (m *mockSavedQueueStore) ListQueues(_ context.Context, _ snowflake.ID) ([]ports.SavedQueueSummary, error) {
	var out []ports.SavedQueueSummary
	for _, q := range m.queues {
		out = append(out, ports.SavedQueueSummary{
			Name:       q.Name,
			OwnerID:    q.OwnerID,
			TrackCount: len(q.Tracks),
			CreatedAt:  q.CreatedAt,
		})
	}
	return out, nil
}

func (m *mockSavedQueueStore) DeleteQueue(_ context.Context, _ snowflake.ID, name string) (bool, error) {
	_, ok := m.queues[name]
	delete(m.queues, name)
	return ok, nil
}

type mockPlayHistoryStore struct {
	top   []ports.TrackPlayCount
	limit int
}

func (m *mockPlayHistoryStore) RecordPlay(_ context.Context, _ ports.PlayRecord) error {
	return nil
}

func (m *mockPlayHistoryStore) TopTracks(_ context.Context, _ snowflake.ID, limit int) ([]ports.TrackPlayCount, error) {
	m.limit = limit
	return m.top, nil
}

type mockSpotifyCatalog struct {
	enabled    bool
	collection *ports.CatalogCollection
	err        error
	gotLimit   int
}

func (m *mockSpotifyCatalog) Enabled() bool {
	return m.enabled
}

func (m *mockSpotifyCatalog) Expand(
	_ context.Context,
	_ domain.SpotifyLink,
	limit int,
) (*ports.CatalogCollection, error) {
	m.gotLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.collection, nil
}
