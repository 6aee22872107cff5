package discord

import (
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/ascend/internal/modules/music_player/application/ports"
	"github.com/sglre6355/ascend/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/ascend/internal/modules/music_player/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntry(title string) *domain.QueueEntry {
	return &domain.QueueEntry{
		Track: domain.Track{
			Title:    title,
			Author:   "Artist",
			URI:      "https://example.com/" + title,
			Duration: 3 * time.Minute,
		},
		Requester: domain.Requester{ID: 42, DisplayName: "dj"},
	}
}

func TestRenderNowPlaying(t *testing.T) {
	entry := testEntry("song")
	entry.Track.SourceName = "soundcloud"
	entry.Likes = 2

	embed, components := RenderNowPlaying(&ports.NowPlayingInfo{
		Entry:       entry,
		LoopMode:    domain.LoopModeQueue,
		Shuffled:    true,
		Paused:      true,
		Volume:      80,
		QueueLength: 1,
	}, "https://img.example.com/song.jpg")

	assert.Equal(t, "song", embed.Title)
	assert.Equal(t, "Now Playing on SoundCloud", embed.Author.Name)
	assert.Equal(t, "https://img.example.com/song.jpg", embed.Thumbnail.URL)
	assert.Equal(t, "Loop: Queue · Shuffle · Volume 80%", embed.Footer.Text)
	require.Len(t, embed.Fields, 4)
	assert.Equal(t, "<@42>", embed.Fields[1].Value)
	assert.Equal(t, "1 track", embed.Fields[2].Value)
	assert.Equal(t, "Reactions", embed.Fields[3].Name)

	require.Len(t, components, 3)
	first := components[0].(discordgo.ActionsRow).Components
	assert.Equal(t, "▶️", first[1].(discordgo.Button).Emoji.Name)
	assert.Equal(t, discordgo.SuccessButton, first[4].(discordgo.Button).Style)
	second := components[1].(discordgo.ActionsRow).Components
	assert.Equal(t, "🔁", second[0].(discordgo.Button).Emoji.Name)
	assert.Equal(t, discordgo.SecondaryButton, second[1].(discordgo.Button).Style)
}

func TestRenderNowPlaying_NoReactionsOrThumbnail(t *testing.T) {
	embed, components := RenderNowPlaying(&ports.NowPlayingInfo{
		Entry:    testEntry("song"),
		LoopMode: domain.LoopModeTrack,
	}, "")

	assert.Equal(t, "Now Playing", embed.Author.Name)
	assert.Nil(t, embed.Thumbnail)
	assert.Len(t, embed.Fields, 3)
	assert.Equal(t, "Loop: Track", embed.Footer.Text)

	first := components[0].(discordgo.ActionsRow).Components
	assert.Equal(t, "⏸️", first[1].(discordgo.Button).Emoji.Name)
	second := components[1].(discordgo.ActionsRow).Components
	assert.Equal(t, "🔂", second[0].(discordgo.Button).Emoji.Name)
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		name     string
		position time.Duration
		total    time.Duration
		want     string
	}{
		{name: "start", position: 0, total: time.Minute, want: "🔘▬▬▬"},
		{name: "half", position: 30 * time.Second, total: time.Minute, want: "▬▬🔘▬"},
		{name: "end clamps to last cell", position: time.Minute, total: time.Minute, want: "▬▬▬🔘"},
		{name: "past the end", position: 2 * time.Minute, total: time.Minute, want: "▬▬▬🔘"},
		{name: "unknown length", position: time.Minute, total: 0, want: "🔘▬▬▬"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, progressBar(tt.position, tt.total, 4))
		})
	}

	assert.Empty(t, progressBar(time.Second, time.Minute, 0))
}

func TestRenderNowPlayingDetail_Stream(t *testing.T) {
	entry := testEntry("radio")
	entry.Track.IsStream = true
	entry.Track.Duration = 0

	embed := renderNowPlayingDetail(&usecases.NowPlayingOutput{
		Entry:  entry,
		Paused: true,
	})

	assert.Equal(t, "Paused", embed.Author.Name)
	assert.Contains(t, embed.Description, "LIVE")
	assert.NotContains(t, embed.Description, "🔘")
}

func TestRenderQueue(t *testing.T) {
	out := &usecases.QueueListOutput{
		Current: testEntry("current"),
		Items: []usecases.QueueListItem{
			{Entry: testEntry("eleventh"), StartsIn: "in 3 minutes"},
		},
		TotalEntries:  11,
		TotalDuration: 33 * time.Minute,
		CurrentPage:   2,
		TotalPages:    2,
	}

	embed, components := renderQueue(out, 10)

	assert.Contains(t, embed.Description, "**Now Playing**")
	assert.Contains(t, embed.Description, "`11.` [eleventh](https://example.com/eleventh)")
	assert.Contains(t, embed.Description, "in 3 minutes")
	assert.True(t, strings.HasPrefix(embed.Footer.Text, "Page 2/2 · 11 tracks · "))

	require.Len(t, components, 1)
	buttons := components[0].(discordgo.ActionsRow).Components
	prev := buttons[0].(discordgo.Button)
	next := buttons[1].(discordgo.Button)
	assert.Equal(t, queuePagePrefix+"1", prev.CustomID)
	assert.False(t, prev.Disabled)
	assert.True(t, next.Disabled)
}

func TestRenderQueue_SinglePageHasNoPager(t *testing.T) {
	embed, components := renderQueue(&usecases.QueueListOutput{CurrentPage: 1, TotalPages: 1}, 10)

	assert.Contains(t, embed.Description, "Nothing queued")
	assert.Nil(t, components)
}

func TestParseQueuePage(t *testing.T) {
	page, ok := parseQueuePage(queuePagePrefix + "3")
	assert.True(t, ok)
	assert.Equal(t, 3, page)

	for _, id := range []string{queuePagePrefix + "0", queuePagePrefix + "x", idQueue, idSkip} {
		_, ok := parseQueuePage(id)
		assert.False(t, ok, id)
	}
}

func TestRenderAdded(t *testing.T) {
	t.Run("single track with start time", func(t *testing.T) {
		entry := testEntry("song")
		got := renderAdded(&usecases.LoadTrackOutput{}, []*domain.QueueEntry{entry}, 0, "in 4 minutes")

		assert.Equal(t, "Added [song](https://example.com/song) `03:00` to the queue.\nStarts in 4 minutes.", got)
	})

	t.Run("playlist with skipped and unresolved tracks", func(t *testing.T) {
		loaded := &usecases.LoadTrackOutput{IsPlaylist: true, PlaylistName: "Mix", Unresolved: 1}
		added := []*domain.QueueEntry{testEntry("a"), testEntry("b")}

		got := renderAdded(loaded, added, 3, "")

		assert.Contains(t, got, "Added **2 tracks** from **Mix** to the queue.")
		assert.Contains(t, got, "Skipped 3 tracks")
		assert.Contains(t, got, "Could not find 1 track on any source.")
	})
}

func TestTrackLink(t *testing.T) {
	assert.Equal(t, "[a (b)](https://x.test)", trackLink(domain.Track{Title: "a [b]", URI: "https://x.test"}))
	assert.Equal(t, "**local**", trackLink(domain.Track{Title: "local"}))
}

func TestRequesterMention(t *testing.T) {
	assert.Equal(t, "<@7>", requesterMention(domain.Requester{ID: 7, DisplayName: "x"}))
	assert.Equal(t, "Autoplay", requesterMention(domain.Requester{DisplayName: "Autoplay"}))
}

func TestTrackCount(t *testing.T) {
	assert.Equal(t, "0 tracks", trackCount(0))
	assert.Equal(t, "1 track", trackCount(1))
	assert.Equal(t, "1,234 tracks", trackCount(1234))
}

func TestRenderStats(t *testing.T) {
	embed := renderStats(&domain.QueueStats{
		Count:             3,
		TotalDuration:     9 * time.Minute,
		AverageDuration:   3 * time.Minute,
		UniqueRequesters:  2,
		TopRequester:      domain.Requester{ID: 5},
		TopRequesterCount: 2,
	})

	require.Len(t, embed.Fields, 5)
	assert.Equal(t, "<@5> (2 tracks)", embed.Fields[4].Value)
}
