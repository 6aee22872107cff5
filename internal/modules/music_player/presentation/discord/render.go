package discord

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/sglre6355/ascend/internal/modules/music_player/application/ports"
	"github.com/sglre6355/ascend/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/ascend/internal/modules/music_player/domain"
)

// ComponentPrefix routes message components and modals to this module.
const ComponentPrefix = "music"

// Component custom IDs.
const (
	idPrevious  = ComponentPrefix + ":previous"
	idPlayPause = ComponentPrefix + ":playpause"
	idSkip      = ComponentPrefix + ":skip"
	idStop      = ComponentPrefix + ":stop"
	idShuffle   = ComponentPrefix + ":shuffle"
	idRepeat    = ComponentPrefix + ":repeat"
	idAutoplay  = ComponentPrefix + ":autoplay"
	idLike      = ComponentPrefix + ":like"
	idDislike   = ComponentPrefix + ":dislike"
	idQueue     = ComponentPrefix + ":queue"
	idAdd       = ComponentPrefix + ":add"

	queuePagePrefix = idQueue + ":page:"
	addModalID      = idAdd + ":submit"
	addQueryInputID = "query"
)

const progressBarWidth = 18

// RenderNowPlaying builds the "Now Playing" message with its playback controls.
func RenderNowPlaying(
	info *ports.NowPlayingInfo,
	thumbnailURL string,
) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	entry := info.Entry

	embed := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{
			Name: "Now Playing",
		},
		Title:       truncate(entry.Track.Title, 256),
		URL:         entry.Track.URI,
		Description: entry.Track.Author,
		Color:       colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Duration", Value: entry.Track.FormattedDuration(), Inline: true},
			{Name: "Requested by", Value: requesterMention(entry.Requester), Inline: true},
			{Name: "Up Next", Value: trackCount(info.QueueLength), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: playerFlags(info.LoopMode, info.Shuffled, info.Autoplay, info.Volume),
		},
	}
	if entry.Requester.AvatarURL != "" {
		embed.Footer.IconURL = entry.Requester.AvatarURL
	}
	if thumbnailURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: thumbnailURL}
	}
	if label := entry.Track.Source().Label(); label != "" {
		embed.Author.Name = "Now Playing on " + label
	}
	if entry.Likes > 0 || entry.Dislikes > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Reactions",
			Value:  fmt.Sprintf("👍 %d  👎 %d", entry.Likes, entry.Dislikes),
			Inline: true,
		})
	}

	return embed, playerControls(info.Paused, info.LoopMode, info.Shuffled, info.Autoplay)
}

func playerControls(paused bool, mode domain.LoopMode, shuffled, autoplay bool) []discordgo.MessageComponent {
	playPause := "⏸️"
	if paused {
		playPause = "▶️"
	}

	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				emojiButton(idPrevious, "⏮️", discordgo.SecondaryButton),
				emojiButton(idPlayPause, playPause, discordgo.PrimaryButton),
				emojiButton(idSkip, "⏭️", discordgo.SecondaryButton),
				emojiButton(idStop, "⏹️", discordgo.DangerButton),
				emojiButton(idShuffle, "🔀", toggleStyle(shuffled)),
			},
		},
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				emojiButton(idRepeat, loopEmoji(mode), toggleStyle(mode != domain.LoopModeNone)),
				emojiButton(idAutoplay, "♾️", toggleStyle(autoplay)),
				emojiButton(idLike, "👍", discordgo.SecondaryButton),
				emojiButton(idDislike, "👎", discordgo.SecondaryButton),
				emojiButton(idQueue, "📜", discordgo.SecondaryButton),
			},
		},
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Add a track",
					Style:    discordgo.SuccessButton,
					CustomID: idAdd,
					Emoji:    &discordgo.ComponentEmoji{Name: "➕"},
				},
			},
		},
	}
}

func emojiButton(customID, emoji string, style discordgo.ButtonStyle) discordgo.Button {
	return discordgo.Button{
		Style:    style,
		CustomID: customID,
		Emoji:    &discordgo.ComponentEmoji{Name: emoji},
	}
}

func toggleStyle(on bool) discordgo.ButtonStyle {
	if on {
		return discordgo.SuccessButton
	}
	return discordgo.SecondaryButton
}

func loopEmoji(mode domain.LoopMode) string {
	if mode == domain.LoopModeTrack {
		return "🔂"
	}
	return "🔁"
}

func playerFlags(mode domain.LoopMode, shuffled, autoplay bool, volume int) string {
	flags := []string{"Loop: " + loopModeLabel(mode)}
	if shuffled {
		flags = append(flags, "Shuffle")
	}
	if autoplay {
		flags = append(flags, "Autoplay")
	}
	if volume > 0 {
		flags = append(flags, fmt.Sprintf("Volume %d%%", volume))
	}
	return strings.Join(flags, " · ")
}

func loopModeLabel(mode domain.LoopMode) string {
	switch mode {
	case domain.LoopModeTrack:
		return "Track"
	case domain.LoopModeQueue:
		return "Queue"
	default:
		return "Off"
	}
}

// renderNowPlayingDetail builds the /nowplaying embed with a progress bar.
func renderNowPlayingDetail(out *usecases.NowPlayingOutput) *discordgo.MessageEmbed {
	track := out.Entry.Track

	progress := "🔴 LIVE"
	if !track.IsStream {
		progress = fmt.Sprintf("%s `%s / %s`",
			progressBar(out.Position, track.Duration, progressBarWidth),
			domain.FormatDuration(out.Position),
			track.FormattedDuration(),
		)
	}

	status := "Playing"
	if out.Paused {
		status = "Paused"
	}

	return &discordgo.MessageEmbed{
		Author:      &discordgo.MessageEmbedAuthor{Name: status},
		Title:       truncate(track.Title, 256),
		URL:         track.URI,
		Description: track.Author + "\n\n" + progress,
		Color:       colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Requested by", Value: requesterMention(out.Entry.Requester), Inline: true},
			{Name: "Up Next", Value: trackCount(out.QueueLength), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: playerFlags(out.LoopMode, out.Shuffled, out.Autoplay, out.Volume),
		},
	}
}

// progressBar draws position within total as a bar of width cells.
func progressBar(position, total time.Duration, width int) string {
	if width <= 0 {
		return ""
	}

	filled := 0
	if total > 0 {
		filled = int(int64(width) * int64(min(max(position, 0), total)) / int64(total))
	}
	if filled >= width {
		filled = width - 1
	}

	return strings.Repeat("▬", filled) + "🔘" + strings.Repeat("▬", width-filled-1)
}

// renderQueue builds the queue page and its pager buttons.
func renderQueue(out *usecases.QueueListOutput, pageSize int) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	var b strings.Builder

	if out.Current != nil {
		fmt.Fprintf(&b, "**Now Playing**\n%s `%s` · %s\n\n",
			trackLink(out.Current.Track),
			out.Current.Track.FormattedDuration(),
			requesterMention(out.Current.Requester),
		)
	}

	if len(out.Items) == 0 {
		b.WriteString("*Nothing queued.*")
	} else {
		b.WriteString("**Up Next**\n")
		offset := (out.CurrentPage - 1) * pageSize
		for idx, item := range out.Items {
			line := fmt.Sprintf("`%d.` %s `%s` · %s · %s\n",
				offset+idx+1,
				trackLink(item.Entry.Track),
				item.Entry.Track.FormattedDuration(),
				requesterMention(item.Entry.Requester),
				item.StartsIn,
			)
			if b.Len()+len(line) > maxEmbedDescription {
				break
			}
			b.WriteString(line)
		}
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Queue",
		Description: b.String(),
		Color:       colorInfo,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Page %d/%d · %s · %s · %s",
				out.CurrentPage,
				out.TotalPages,
				trackCount(out.TotalEntries),
				domain.FormatDuration(out.TotalDuration),
				playerFlags(out.LoopMode, out.Shuffled, out.Autoplay, 0),
			),
		},
	}

	if out.TotalPages <= 1 {
		return embed, nil
	}

	return embed, []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Previous",
					Style:    discordgo.SecondaryButton,
					CustomID: queuePagePrefix + strconv.Itoa(out.CurrentPage-1),
					Disabled: out.CurrentPage <= 1,
				},
				discordgo.Button{
					Label:    "Next",
					Style:    discordgo.SecondaryButton,
					CustomID: queuePagePrefix + strconv.Itoa(out.CurrentPage+1),
					Disabled: out.CurrentPage >= out.TotalPages,
				},
			},
		},
	}
}

// parseQueuePage extracts the page number from a pager custom ID.
func parseQueuePage(customID string) (int, bool) {
	rest, ok := strings.CutPrefix(customID, queuePagePrefix)
	if !ok {
		return 0, false
	}
	page, err := strconv.Atoi(rest)
	if err != nil || page < 1 {
		return 0, false
	}
	return page, true
}

func renderStats(stats *domain.QueueStats) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "Queue Statistics",
		Color: colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Tracks", Value: humanize.Comma(int64(stats.Count)), Inline: true},
			{Name: "Total Duration", Value: domain.FormatDuration(stats.TotalDuration), Inline: true},
			{Name: "Average Duration", Value: domain.FormatDuration(stats.AverageDuration), Inline: true},
			{Name: "Requesters", Value: humanize.Comma(int64(stats.UniqueRequesters)), Inline: true},
		},
	}
	if stats.TopRequesterCount > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Top Requester",
			Value: fmt.Sprintf("%s (%s)",
				requesterMention(stats.TopRequester),
				trackCount(stats.TopRequesterCount),
			),
			Inline: true,
		})
	}
	return embed
}

// renderEntryList lists entries with their queue positions, e.g. search results.
func renderEntryList(title string, entries []*domain.QueueEntry, numbered bool) *discordgo.MessageEmbed {
	var b strings.Builder
	for idx, entry := range entries {
		n := idx + 1
		if numbered {
			n = entry.Position + 1
		}
		line := fmt.Sprintf("`%d.` %s `%s` · %s\n",
			n,
			trackLink(entry.Track),
			entry.Track.FormattedDuration(),
			requesterMention(entry.Requester),
		)
		if b.Len()+len(line) > maxEmbedDescription {
			break
		}
		b.WriteString(line)
	}

	return &discordgo.MessageEmbed{
		Title:       title,
		Description: b.String(),
		Color:       colorInfo,
	}
}

func renderTopTracks(tracks []ports.TrackPlayCount) *discordgo.MessageEmbed {
	var b strings.Builder
	for idx, tc := range tracks {
		fmt.Fprintf(&b, "`%d.` %s · **%s** %s · last %s\n",
			idx+1,
			trackLink(tc.Track),
			humanize.Comma(int64(tc.Plays)),
			plural(tc.Plays, "play", "plays"),
			humanize.Time(tc.LastPlayed),
		)
	}

	return &discordgo.MessageEmbed{
		Title:       "Most Played",
		Description: b.String(),
		Color:       colorInfo,
	}
}

func renderSavedQueues(queues []ports.SavedQueueSummary) *discordgo.MessageEmbed {
	var b strings.Builder
	for _, q := range queues {
		fmt.Fprintf(&b, "**%s** · %s · by <@%d> · %s\n",
			q.Name,
			trackCount(q.TrackCount),
			q.OwnerID,
			humanize.Time(q.CreatedAt),
		)
	}

	return &discordgo.MessageEmbed{
		Title:       "Saved Playlists",
		Description: b.String(),
		Color:       colorInfo,
	}
}

func renderBlacklist(terms []string) *discordgo.MessageEmbed {
	quoted := make([]string, len(terms))
	for i, term := range terms {
		quoted[i] = "`" + term + "`"
	}

	return &discordgo.MessageEmbed{
		Title:       "Blacklisted Terms",
		Description: truncate(strings.Join(quoted, ", "), maxEmbedDescription),
		Color:       colorInfo,
	}
}

// renderAdded describes the result of adding tracks to the queue.
func renderAdded(loaded *usecases.LoadTrackOutput, added []*domain.QueueEntry, skipped int, startsIn string) string {
	var b strings.Builder

	switch {
	case loaded.IsPlaylist:
		name := loaded.PlaylistName
		if name == "" {
			name = "playlist"
		}
		fmt.Fprintf(&b, "Added **%s** from **%s** to the queue.",
			trackCount(len(added)), name)
	case len(added) == 1:
		fmt.Fprintf(&b, "Added %s `%s` to the queue.",
			trackLink(added[0].Track), added[0].Track.FormattedDuration())
		if startsIn != "" {
			fmt.Fprintf(&b, "\nStarts %s.", startsIn)
		}
	}

	if skipped > 0 {
		fmt.Fprintf(&b, "\nSkipped %s (queue full or blacklisted).", trackCount(skipped))
	}
	if loaded.Unresolved > 0 {
		fmt.Fprintf(&b, "\nCould not find %s on any source.", trackCount(loaded.Unresolved))
	}
	return b.String()
}

func trackLink(track domain.Track) string {
	title := truncate(escapeLinkText(track.Title), 80)
	if track.URI == "" {
		return "**" + title + "**"
	}
	return fmt.Sprintf("[%s](%s)", title, track.URI)
}

func escapeLinkText(s string) string {
	return strings.NewReplacer("[", "(", "]", ")").Replace(s)
}

func requesterMention(r domain.Requester) string {
	if r.ID == 0 {
		return r.DisplayName
	}
	return fmt.Sprintf("<@%d>", r.ID)
}

func trackCount(n int) string {
	return humanize.Comma(int64(n)) + " " + plural(n, "track", "tracks")
}

func plural(n int, singular, pluralForm string) string {
	if n == 1 {
		return singular
	}
	return pluralForm
}
