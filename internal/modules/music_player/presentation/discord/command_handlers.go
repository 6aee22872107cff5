package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/ascend/internal/bot"
	"github.com/sglre6355/ascend/internal/modules/music_player/application/ports"
	"github.com/sglre6355/ascend/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/ascend/internal/modules/music_player/domain"
)

const (
	historyLimit = 15
	searchLimit  = 15
)

// Limiter decides whether a user may run another command.
type Limiter interface {
	Allow(userID snowflake.ID) bool
}

// CommandHandlers holds all the command handlers.
type CommandHandlers struct {
	voiceChannel        *usecases.VoiceChannelService
	playback            *usecases.PlaybackService
	queue               *usecases.QueueService
	trackLoader         *usecases.TrackLoaderService
	library             *usecases.LibraryService
	notificationChannel *usecases.NotificationChannelService
	permissions         *usecases.PermissionService
	users               ports.UserInfoProvider
	limiter             Limiter
}

// NewCommandHandlers creates new CommandHandlers. permissions, users and limiter may be nil.
func NewCommandHandlers(
	voiceChannel *usecases.VoiceChannelService,
	playback *usecases.PlaybackService,
	queue *usecases.QueueService,
	trackLoader *usecases.TrackLoaderService,
	library *usecases.LibraryService,
	notificationChannel *usecases.NotificationChannelService,
	permissions *usecases.PermissionService,
	users ports.UserInfoProvider,
	limiter Limiter,
) *CommandHandlers {
	return &CommandHandlers{
		voiceChannel:        voiceChannel,
		playback:            playback,
		queue:               queue,
		trackLoader:         trackLoader,
		library:             library,
		notificationChannel: notificationChannel,
		permissions:         permissions,
		users:               users,
		limiter:             limiter,
	}
}

// commandFunc is a command handler that runs on a parsed invocation.
type commandFunc func(ctx context.Context, inv *invocation, i *discordgo.InteractionCreate, r bot.Responder) error

// wrap parses the invocation and applies the per-user rate limit.
func (h *CommandHandlers) wrap(fn commandFunc) bot.InteractionHandler {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate, r bot.Responder) error {
		inv, err := parseInvocation(i)
		if err != nil {
			return respondError(r, err)
		}
		if h.limiter != nil && !h.limiter.Allow(inv.UserID) {
			return respondError(r, usecases.ErrRateLimited)
		}
		return fn(context.Background(), inv, i, r)
	}
}

// Handlers returns the command handlers keyed by command name.
func (h *CommandHandlers) Handlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"join":       h.wrap(h.handleJoin),
		"leave":      h.wrap(h.handleLeave),
		"play":       h.wrap(h.handlePlay),
		"stop":       h.wrap(h.handleStop),
		"pause":      h.wrap(h.handlePause),
		"resume":     h.wrap(h.handleResume),
		"skip":       h.wrap(h.handleSkip),
		"previous":   h.wrap(h.handlePrevious),
		"skipto":     h.wrap(h.handleSkipTo),
		"seek":       h.wrap(h.handleSeek),
		"volume":     h.wrap(h.handleVolume),
		"nowplaying": h.wrap(h.handleNowPlaying),
		"queue":      h.wrap(h.handleQueue),
		"loop":       h.wrap(h.handleLoop),
		"autoplay":   h.wrap(h.handleAutoplay),
		"like":       h.wrap(h.handleLike),
		"dislike":    h.wrap(h.handleDislike),
		"vote":       h.wrap(h.handleVote),
		"blacklist":  h.wrap(h.handleBlacklist),
		"playlist":   h.wrap(h.handlePlaylist),
		"top":        h.wrap(h.handleTop),
		"settings":   h.wrap(h.handleSettings),
	}
}

// requireDJ returns ErrDJRequired when the guild has a DJ role the member lacks.
func (h *CommandHandlers) requireDJ(ctx context.Context, inv *invocation) error {
	if h.permissions == nil {
		return nil
	}
	return h.permissions.RequireDJ(ctx, inv.permissions())
}

func (h *CommandHandlers) handleJoin(
	ctx context.Context,
	inv *invocation,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	var voiceChannelID snowflake.ID
	if opt, ok := optionsOf(i.ApplicationCommandData().Options)["channel"]; ok {
		id, err := snowflake.Parse(fmt.Sprint(opt.Value))
		if err != nil {
			return respondError(r, errors.Wrap(err, "failed to parse voice channel id"))
		}
		voiceChannelID = id
	}

	output, err := h.voiceChannel.Join(ctx, usecases.JoinInput{
		GuildID:               inv.GuildID,
		UserID:                inv.UserID,
		NotificationChannelID: inv.ChannelID,
		VoiceChannelID:        voiceChannelID,
	})
	if err != nil {
		return respondError(r, err)
	}

	if output.AlreadyJoined {
		return respondSuccess(r, fmt.Sprintf("Already connected to <#%d>.", output.VoiceChannelID))
	}
	return respondSuccess(r, fmt.Sprintf("Connected to <#%d>.", output.VoiceChannelID))
}

func (h *CommandHandlers) handleLeave(
	ctx context.Context,
	inv *invocation,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	if err := h.voiceChannel.Leave(ctx, usecases.LeaveInput{GuildID: inv.GuildID}); err != nil {
		return respondError(r, err)
	}
	return respondSuccess(r, "Disconnected.")
}

func (h *CommandHandlers) handlePlay(
	ctx context.Context,
	inv *invocation,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	opts := optionsOf(i.ApplicationCommandData().Options)
	query := strings.TrimSpace(opts.String("query"))
	source := domain.ParseSearchSource(opts.String("source"))

	// Resolving playlists and Spotify links can exceed the interaction deadline.
	if err := deferResponse(r); err != nil {
		return err
	}

	description, err := h.play(ctx, inv, query, source, opts.Bool("priority"))
	if err != nil {
		return editError(r, err)
	}
	return editEmbed(r, &discordgo.MessageEmbed{
		Description: description,
		Color:       colorSuccess,
	})
}

// play joins the invoker's channel, resolves the query and queues the result.
func (h *CommandHandlers) play(
	ctx context.Context,
	inv *invocation,
	query string,
	source domain.SearchSource,
	priority bool,
) (string, error) {
	if query == "" {
		return "", usecases.ErrNoResults
	}

	_, err := h.voiceChannel.Join(ctx, usecases.JoinInput{
		GuildID:               inv.GuildID,
		UserID:                inv.UserID,
		NotificationChannelID: inv.ChannelID,
	})
	if err != nil {
		return "", err
	}

	loaded, err := h.trackLoader.LoadTrack(ctx, usecases.LoadTrackInput{
		Query:  query,
		Source: source,
	})
	if err != nil {
		return "", err
	}
	if len(loaded.Tracks) == 0 {
		return "", usecases.ErrNoResults
	}

	requester := inv.requester(h.users)

	if !loaded.IsPlaylist && len(loaded.Tracks) == 1 {
		output, err := h.queue.Add(ctx, usecases.QueueAddInput{
			GuildID:               inv.GuildID,
			Track:                 loaded.Tracks[0],
			Requester:             requester,
			Priority:              priority,
			NotificationChannelID: inv.ChannelID,
		})
		if err != nil {
			return "", err
		}

		startsIn := output.StartsIn
		if output.WasIdle {
			startsIn = ""
		}
		return renderAdded(loaded, []*domain.QueueEntry{output.Entry}, 0, startsIn), nil
	}

	output, err := h.queue.AddMultiple(ctx, usecases.QueueAddMultipleInput{
		GuildID:               inv.GuildID,
		Tracks:                loaded.Tracks,
		Requester:             requester,
		NotificationChannelID: inv.ChannelID,
	})
	if err != nil {
		return "", err
	}
	if len(output.Added) == 0 {
		return "", domain.ErrQueueFull
	}
	return renderAdded(loaded, output.Added, output.Skipped, ""), nil
}

// handleStop clears the queue and halts playback.
func (h *CommandHandlers) handleStop(
	ctx context.Context,
	inv *invocation,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	if err := h.requireDJ(ctx, inv); err != nil {
		return respondError(r, err)
	}

	err := h.playback.Stop(ctx, usecases.StopInput{
		GuildID:               inv.GuildID,
		NotificationChannelID: inv.ChannelID,
	})
	if err != nil {
		return respondError(r, err)
	}
	return respondSuccess(r, "Stopped playback and cleared the queue.")
}

func (h *CommandHandlers) handlePause(
	ctx context.Context,
	inv *invocation,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	err := h.playback.Pause(ctx, usecases.PauseInput{
		GuildID:               inv.GuildID,
		NotificationChannelID: inv.ChannelID,
	})
	if err != nil {
		return respondError(r, err)
	}
	return respondSuccess(r, "Paused.")
}

func (h *CommandHandlers) handleResume(
	ctx context.Context,
	inv *invocation,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	err := h.playback.Resume(ctx, usecases.ResumeInput{
		GuildID:               inv.GuildID,
		NotificationChannelID: inv.ChannelID,
	})
	if err != nil {
		return respondError(r, err)
	}
	return respondSuccess(r, "Resumed.")
}

func (h *CommandHandlers) handleSkip(
	ctx context.Context,
	inv *invocation,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	output, err := h.playback.Skip(ctx, usecases.SkipInput{
		GuildID:               inv.GuildID,
		NotificationChannelID: inv.ChannelID,
	})
	if err != nil {
		return respondError(r, err)
	}
	return respondSuccess(r, skipDescription(output))
}

func skipDescription(output *usecases.SkipOutput) string {
	description := "Skipped " + trackLink(output.Skipped.Track) + "."
	if output.Next == nil {
		return description + " The queue is now empty."
	}
	return description + "\nUp next: " + trackLink(output.Next.Track)
}

func (h *CommandHandlers) handlePrevious(
	ctx context.Context,
	inv *invocation,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	entry, err := h.playback.Previous(ctx, usecases.PreviousInput{
		GuildID:               inv.GuildID,
		NotificationChannelID: inv.ChannelID,
	})
	if err != nil {
		return respondError(r, err)
	}
	return respondSuccess(r, "Playing "+trackLink(entry.Track)+" again.")
}

func (h *CommandHandlers) handleSkipTo(
	ctx context.Context,
	inv *invocation,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	if err := h.requireDJ(ctx, inv); err != nil {
		return respondError(r, err)
	}
	opts := optionsOf(i.ApplicationCommandData().Options)

	entry, err := h.playback.SkipTo(ctx, usecases.SkipToInput{
		GuildID:               inv.GuildID,
		Position:              opts.Int("position", 1) - 1,
		NotificationChannelID: inv.ChannelID,
	})
	if err != nil {
		return respondError(r, err)
	}
	return respondSuccess(r, "Skipped to "+trackLink(entry.Track)+".")
}

func (h *CommandHandlers) handleSeek(
	ctx context.Context,
	inv *invocation,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	position, err := parsePosition(optionsOf(i.ApplicationCommandData().Options).String("position"))
	if err != nil {
		return respondError(r, err)
	}

	err = h.playback.Seek(ctx, usecases.SeekInput{
		GuildID:  inv.GuildID,
		Position: position,
	})
	if err != nil {
		return respondError(r, err)
	}
	return respondSuccess(r, "Seeked to `"+domain.FormatDuration(position)+"`.")
}

func (h *CommandHandlers) handleVolume(
	ctx context.Context,
	inv *invocation,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	volume := optionsOf(i.ApplicationCommandData().Options).Int("level", -1)
	if volume > domain.DefaultVolume {
		if err := h.requireDJ(ctx, inv); err != nil {
			return respondError(r, err)
		}
	}

	err := h.playback.SetVolume(ctx, usecases.SetVolumeInput{
		GuildID: inv.GuildID,
		Volume:  volume,
	})
	if err != nil {
		return respondError(r, err)
	}
	return respondSuccess(r, fmt.Sprintf("Volume set to **%d%%**.", volume))
}

func (h *CommandHandlers) handleNowPlaying(
	ctx context.Context,
	inv *invocation,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	output, err := h.playback.NowPlaying(ctx, inv.GuildID)
	if err != nil {
		return respondError(r, err)
	}

	// Announcements follow whoever last asked what is playing.
	moved, err := h.notificationChannel.Follow(ctx, usecases.FollowInput{
		GuildID:   inv.GuildID,
		ChannelID: inv.ChannelID,
	})
	if err != nil {
		slog.Warn("failed to move notification channel", "guild", inv.GuildID, "error", err)
	}

	embed := renderNowPlayingDetail(output)
	if moved {
		embed.Footer.Text += " · Announcements moved here"
	}
	return respondEmbed(r, embed)
}

func (h *CommandHandlers) handleQueue(
	ctx context.Context,
	inv *invocation,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return respondError(r, errors.New("missing subcommand"))
	}
	sub := options[0]
	opts := optionsOf(sub.Options)

	switch sub.Name {
	case "list":
		return h.queueList(ctx, inv, opts.Int("page", 1), r)
	case "remove":
		return h.queueRemove(ctx, inv, opts.Int("position", 1)-1, r)
	case "move":
		return h.queueMove(ctx, inv, opts.Int("from", 1)-1, opts.Int("to", 1)-1, r)
	case "clear":
		return h.queueClear(ctx, inv, r)
	case "shuffle":
		return h.queueShuffle(ctx, inv, r)
	case "search":
		return h.queueSearch(ctx, inv, opts.String("query"), r)
	case "stats":
		return h.queueStats(ctx, inv, r)
	case "history":
		return h.queueHistory(ctx, inv, r)
	default:
		return respondError(r, errors.Newf("unknown subcommand %q", sub.Name))
	}
}

func (h *CommandHandlers) queueList(ctx context.Context, inv *invocation, page int, r bot.Responder) error {
	output, err := h.queue.List(ctx, usecases.QueueListInput{
		GuildID:               inv.GuildID,
		Page:                  page,
		PageSize:              usecases.DefaultPageSize,
		NotificationChannelID: inv.ChannelID,
	})
	if err != nil {
		return respondError(r, err)
	}

	embed, components := renderQueue(output, usecases.DefaultPageSize)
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: components,
		},
	})
}

func (h *CommandHandlers) queueRemove(ctx context.Context, inv *invocation, position int, r bot.Responder) error {
	if err := h.requireDJ(ctx, inv); err != nil {
		return respondError(r, err)
	}

	output, err := h.queue.Remove(ctx, usecases.QueueRemoveInput{
		GuildID:               inv.GuildID,
		Position:              position,
		NotificationChannelID: inv.ChannelID,
	})
	if err != nil {
		return respondError(r, err)
	}
	return respondSuccess(r, "Removed "+trackLink(output.Removed.Track)+" from the queue.")
}

func (h *CommandHandlers) queueMove(ctx context.Context, inv *invocation, from, to int, r bot.Responder) error {
	if err := h.requireDJ(ctx, inv); err != nil {
		return respondError(r, err)
	}

	entry, err := h.queue.Move(ctx, usecases.QueueMoveInput{
		GuildID: inv.GuildID,
		From:    from,
		To:      to,
	})
	if err != nil {
		return respondError(r, err)
	}
	return respondSuccess(r, fmt.Sprintf("Moved %s to position **%d**.", trackLink(entry.Track), to+1))
}

func (h *CommandHandlers) queueClear(ctx context.Context, inv *invocation, r bot.Responder) error {
	if err := h.requireDJ(ctx, inv); err != nil {
		return respondError(r, err)
	}

	output, err := h.queue.Clear(ctx, usecases.QueueClearInput{
		GuildID:               inv.GuildID,
		NotificationChannelID: inv.ChannelID,
	})
	if err != nil {
		return respondError(r, err)
	}
	return respondSuccess(r, fmt.Sprintf("Cleared %s from the queue.", trackCount(output.ClearedCount)))
}

func (h *CommandHandlers) queueShuffle(ctx context.Context, inv *invocation, r bot.Responder) error {
	if err := h.requireDJ(ctx, inv); err != nil {
		return respondError(r, err)
	}

	shuffled, err := h.queue.Shuffle(ctx, inv.GuildID)
	if err != nil {
		return respondError(r, err)
	}
	if shuffled {
		return respondSuccess(r, "Shuffle enabled. Liked tracks come up more often.")
	}
	return respondSuccess(r, "Shuffle disabled. The original order is restored.")
}

func (h *CommandHandlers) queueSearch(ctx context.Context, inv *invocation, query string, r bot.Responder) error {
	entries, err := h.queue.Search(ctx, inv.GuildID, query)
	if err != nil {
		return respondError(r, err)
	}
	if len(entries) == 0 {
		return respondEphemeral(r, "No queued tracks match **"+truncate(query, 100)+"**.", colorWarning)
	}
	if len(entries) > searchLimit {
		entries = entries[:searchLimit]
	}
	return respondEmbed(r, renderEntryList("Search Results", entries, true))
}

func (h *CommandHandlers) queueStats(ctx context.Context, inv *invocation, r bot.Responder) error {
	stats, err := h.queue.Stats(ctx, inv.GuildID)
	if err != nil {
		return respondError(r, err)
	}
	if stats.Count == 0 {
		return respondError(r, usecases.ErrQueueEmpty)
	}
	return respondEmbed(r, renderStats(stats))
}

func (h *CommandHandlers) queueHistory(ctx context.Context, inv *invocation, r bot.Responder) error {
	history, err := h.queue.History(ctx, inv.GuildID, historyLimit)
	if err != nil {
		return respondError(r, err)
	}
	if len(history) == 0 {
		return respondEphemeral(r, "Nothing has been played yet.", colorWarning)
	}
	return respondEmbed(r, renderEntryList("Recently Played", history, false))
}

func (h *CommandHandlers) handleLoop(
	ctx context.Context,
	inv *invocation,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	opts := optionsOf(i.ApplicationCommandData().Options)

	if mode, ok := opts["mode"]; ok {
		newMode := domain.ParseLoopMode(mode.StringValue())
		err := h.playback.SetLoopMode(ctx, usecases.SetLoopModeInput{
			GuildID:               inv.GuildID,
			Mode:                  newMode,
			NotificationChannelID: inv.ChannelID,
		})
		if err != nil {
			return respondError(r, err)
		}
		return respondSuccess(r, "Loop mode set to **"+loopModeLabel(newMode)+"**.")
	}

	output, err := h.playback.CycleLoopMode(ctx, usecases.CycleLoopModeInput{
		GuildID:               inv.GuildID,
		NotificationChannelID: inv.ChannelID,
	})
	if err != nil {
		return respondError(r, err)
	}
	return respondSuccess(r, "Loop mode set to **"+loopModeLabel(output.NewMode)+"**.")
}

func (h *CommandHandlers) handleAutoplay(
	ctx context.Context,
	inv *invocation,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	enabled, err := h.playback.ToggleAutoplay(ctx, inv.GuildID)
	if err != nil {
		return respondError(r, err)
	}
	if enabled {
		return respondSuccess(r, "Autoplay enabled. Recent tracks keep playing when the queue runs out.")
	}
	return respondSuccess(r, "Autoplay disabled.")
}

func (h *CommandHandlers) handleLike(
	ctx context.Context,
	inv *invocation,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	entry, err := h.playback.Like(ctx, inv.GuildID)
	if err != nil {
		return respondError(r, err)
	}
	return respondSuccess(r, fmt.Sprintf("👍 Liked %s (%d).", trackLink(entry.Track), entry.Likes))
}

func (h *CommandHandlers) handleDislike(
	ctx context.Context,
	inv *invocation,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	entry, err := h.playback.Dislike(ctx, inv.GuildID)
	if err != nil {
		return respondError(r, err)
	}
	return respondSuccess(r, fmt.Sprintf("👎 Disliked %s (%d).", trackLink(entry.Track), entry.Dislikes))
}

func (h *CommandHandlers) handleVote(
	ctx context.Context,
	inv *invocation,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	name := optionsOf(i.ApplicationCommandData().Options).String("action")
	action, ok := domain.ParseVoteAction(name)
	if !ok {
		return respondError(r, errors.Newf("unknown vote action %q", name))
	}

	output, err := h.playback.Vote(ctx, usecases.VoteInput{
		GuildID: inv.GuildID,
		UserID:  inv.UserID,
		Action:  action,
	})
	if err != nil {
		return respondError(r, err)
	}
	return respondSuccess(r, voteDescription(action, output))
}

func voteDescription(action domain.VoteAction, output *usecases.VoteOutput) string {
	if output.Passed {
		return fmt.Sprintf("Vote to **%s** passed (%d/%d).", action, output.Outcome.Count, output.Required)
	}
	if output.Outcome.Action == domain.VoteRemoved {
		return fmt.Sprintf("Withdrew your vote to **%s** (%d/%d).", action, output.Outcome.Count, output.Required)
	}
	return fmt.Sprintf("Voted to **%s** (%d/%d).", action, output.Outcome.Count, output.Required)
}

func (h *CommandHandlers) handleBlacklist(
	ctx context.Context,
	inv *invocation,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return respondError(r, errors.New("missing subcommand"))
	}
	sub := options[0]
	term := strings.TrimSpace(optionsOf(sub.Options).String("term"))

	switch sub.Name {
	case "add":
		added, err := h.queue.AddToBlacklist(ctx, inv.GuildID, term)
		if err != nil {
			return respondError(r, err)
		}
		if !added {
			return respondEphemeral(r, "`"+term+"` is already blacklisted.", colorWarning)
		}
		return respondSuccess(r, "Blacklisted `"+term+"`.")
	case "remove":
		removed, err := h.queue.RemoveFromBlacklist(ctx, inv.GuildID, term)
		if err != nil {
			return respondError(r, err)
		}
		if !removed {
			return respondEphemeral(r, "`"+term+"` is not blacklisted.", colorWarning)
		}
		return respondSuccess(r, "Removed `"+term+"` from the blacklist.")
	case "list":
		terms, err := h.queue.Blacklist(ctx, inv.GuildID)
		if err != nil {
			return respondError(r, err)
		}
		if len(terms) == 0 {
			return respondEphemeral(r, "No terms are blacklisted.", colorInfo)
		}
		return respondEmbed(r, renderBlacklist(terms))
	default:
		return respondError(r, errors.Newf("unknown subcommand %q", sub.Name))
	}
}

func (h *CommandHandlers) handlePlaylist(
	ctx context.Context,
	inv *invocation,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return respondError(r, errors.New("missing subcommand"))
	}
	sub := options[0]
	opts := optionsOf(sub.Options)

	switch sub.Name {
	case "save":
		output, err := h.library.SaveQueue(ctx, usecases.SaveQueueInput{
			GuildID:   inv.GuildID,
			OwnerID:   inv.UserID,
			Name:      opts.String("name"),
			Overwrite: opts.Bool("overwrite"),
		})
		if err != nil {
			return respondError(r, err)
		}
		return respondSuccess(r, fmt.Sprintf("Saved **%s** with %s.", output.Name, trackCount(output.TrackCount)))
	case "load":
		if err := deferResponse(r); err != nil {
			return err
		}
		description, err := h.loadPlaylist(ctx, inv, opts.String("name"))
		if err != nil {
			return editError(r, err)
		}
		return editEmbed(r, &discordgo.MessageEmbed{Description: description, Color: colorSuccess})
	case "list":
		queues, err := h.library.ListSavedQueues(ctx, inv.GuildID)
		if err != nil {
			return respondError(r, err)
		}
		if len(queues) == 0 {
			return respondEphemeral(r, "No playlists have been saved yet.", colorInfo)
		}
		return respondEmbed(r, renderSavedQueues(queues))
	case "delete":
		name := opts.String("name")
		if err := h.library.DeleteSavedQueue(ctx, inv.GuildID, name); err != nil {
			return respondError(r, err)
		}
		return respondSuccess(r, "Deleted **"+strings.TrimSpace(name)+"**.")
	default:
		return respondError(r, errors.Newf("unknown subcommand %q", sub.Name))
	}
}

func (h *CommandHandlers) loadPlaylist(ctx context.Context, inv *invocation, name string) (string, error) {
	_, err := h.voiceChannel.Join(ctx, usecases.JoinInput{
		GuildID:               inv.GuildID,
		UserID:                inv.UserID,
		NotificationChannelID: inv.ChannelID,
	})
	if err != nil {
		return "", err
	}

	output, err := h.library.LoadQueue(ctx, usecases.LoadQueueInput{
		GuildID:               inv.GuildID,
		Name:                  name,
		Requester:             inv.requester(h.users),
		NotificationChannelID: inv.ChannelID,
	})
	if err != nil {
		return "", err
	}

	loaded := &usecases.LoadTrackOutput{IsPlaylist: true, PlaylistName: strings.TrimSpace(name)}
	return renderAdded(loaded, output.Added, output.Skipped, ""), nil
}

func (h *CommandHandlers) handleTop(
	ctx context.Context,
	inv *invocation,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	tracks, err := h.library.TopTracks(ctx, inv.GuildID, usecases.DefaultTopTracksLimit)
	if err != nil {
		return respondError(r, err)
	}
	if len(tracks) == 0 {
		return respondEphemeral(r, "Nothing has been played in this server yet.", colorInfo)
	}
	return respondEmbed(r, renderTopTracks(tracks))
}

func (h *CommandHandlers) handleSettings(
	ctx context.Context,
	inv *invocation,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return respondError(r, errors.New("missing subcommand"))
	}
	sub := options[0]

	switch sub.Name {
	case "dj":
		return h.settingsDJ(ctx, inv, optionsOf(sub.Options), r)
	default:
		return respondError(r, errors.Newf("unknown subcommand %q", sub.Name))
	}
}

// settingsDJ sets the DJ role, or clears it when no role is given.
func (h *CommandHandlers) settingsDJ(
	ctx context.Context,
	inv *invocation,
	opts commandOptions,
	r bot.Responder,
) error {
	if h.permissions == nil {
		return respondError(r, usecases.ErrSettingsUnavailable)
	}

	var roleID snowflake.ID
	if opt, ok := opts["role"]; ok {
		id, err := snowflake.Parse(fmt.Sprint(opt.Value))
		if err != nil {
			return respondError(r, errors.Wrap(err, "failed to parse role id"))
		}
		roleID = id
	}

	err := h.permissions.SetDJRole(ctx, usecases.SetDJRoleInput{
		Member: inv.permissions(),
		RoleID: roleID,
	})
	if err != nil {
		return respondError(r, err)
	}

	if roleID == 0 {
		return respondSuccess(r, "DJ role removed. Everyone can use the queue controls.")
	}
	return respondSuccess(r, fmt.Sprintf("DJ role set to <@&%d>.", roleID))
}
