package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/ascend/internal/bot"
	"github.com/sglre6355/ascend/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/ascend/internal/modules/music_player/domain"
)

const minQueryLength = 2

// AutocompleteHandler handles autocomplete requests.
type AutocompleteHandler struct {
	autocomplete *usecases.AutocompleteService
	queue        *usecases.QueueService
}

// NewAutocompleteHandler creates a new AutocompleteHandler.
func NewAutocompleteHandler(
	autocomplete *usecases.AutocompleteService,
	queue *usecases.QueueService,
) *AutocompleteHandler {
	return &AutocompleteHandler{
		autocomplete: autocomplete,
		queue:        queue,
	}
}

// Handlers returns the autocomplete handlers keyed by command name.
func (h *AutocompleteHandler) Handlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"play":      h.HandlePlay,
		"queue":     h.HandleQueuePosition,
		"skipto":    h.HandleQueuePosition,
		"playlist":  h.HandlePlaylistName,
		"blacklist": h.HandleBlacklistTerm,
	}
}

// Route merges command and autocomplete handlers of the same command into one
// handler that dispatches on the interaction type.
func Route(commands, autocompletes map[string]bot.InteractionHandler) map[string]bot.InteractionHandler {
	routed := make(map[string]bot.InteractionHandler, len(commands))
	for name, command := range commands {
		autocomplete, ok := autocompletes[name]
		if !ok {
			routed[name] = command
			continue
		}
		routed[name] = func(s *discordgo.Session, i *discordgo.InteractionCreate, r bot.Responder) error {
			if i.Type == discordgo.InteractionApplicationCommandAutocomplete {
				return autocomplete(s, i, r)
			}
			return command(s, i, r)
		}
	}
	return routed
}

// HandlePlay suggests tracks, and whole playlists, for the play query.
func (h *AutocompleteHandler) HandlePlay(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	options := i.ApplicationCommandData().Options
	opt := focused(options)
	if opt == nil || opt.Name != "query" {
		return respondChoices(r, nil)
	}

	query := strings.TrimSpace(opt.StringValue())
	if len(query) < minQueryLength {
		return respondChoices(r, nil)
	}

	output, err := h.autocomplete.LoadTracksForAutocomplete(ctx, usecases.LoadTracksForAutocompleteInput{
		Query:  query,
		Source: domain.ParseSearchSource(optionsOf(options).String("source")),
	})
	if err != nil {
		slog.Debug("failed to load autocomplete tracks", "query", query, "error", err)
		return respondChoices(r, nil)
	}

	return respondChoices(r, playChoices(output))
}

func playChoices(output *usecases.LoadTracksForAutocompleteOutput) []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, maxChoices)

	if output.PlaylistURL != "" && (output.IsPlaylist || len(output.Tracks) == 0) {
		name := "📋 " + output.PlaylistName
		if output.TrackCount > 0 {
			name = fmt.Sprintf("📋 %s (%s)", output.PlaylistName, trackCount(output.TrackCount))
		}
		if value, ok := choiceValue(output.PlaylistURL); ok {
			choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
				Name:  truncate(name, maxChoiceNameLength),
				Value: value,
			})
		}
	}

	for idx, track := range output.Tracks {
		if len(choices) == maxChoices {
			break
		}

		name := fmt.Sprintf("🎵 %s - %s", track.Title, track.Author)
		if output.IsPlaylist {
			name = fmt.Sprintf("🎵 %d. %s - %s", idx+1, track.Title, track.Author)
		}

		value, ok := choiceValue(track.URI)
		if !ok {
			value = truncate(track.Title+" "+track.Author, maxChoiceNameLength)
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncate(name, maxChoiceNameLength),
			Value: value,
		})
	}

	return choices
}

// choiceValue reports whether s fits in a choice value without truncation.
func choiceValue(s string) (string, bool) {
	if s == "" || len(s) > maxChoiceNameLength {
		return "", false
	}
	return s, true
}

// HandleQueuePosition suggests queue positions for remove, move and skipto.
func (h *AutocompleteHandler) HandleQueuePosition(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		slog.Warn("failed to parse guild ID in autocomplete", "error", err, "guild", i.GuildID)
		return respondChoices(r, nil)
	}

	opt := focused(i.ApplicationCommandData().Options)
	if opt == nil {
		return respondChoices(r, nil)
	}

	output := h.autocomplete.GetQueueEntries(ctx, usecases.GetQueueEntriesInput{GuildID: guildID})
	return respondChoices(r, positionChoices(output.Entries, fmt.Sprint(opt.Value)))
}

// positionChoices lists entries whose 1-indexed position starts with typed,
// or whose title or author contains it.
func positionChoices(entries []*domain.QueueEntry, typed string) []*discordgo.ApplicationCommandOptionChoice {
	typed = strings.ToLower(strings.TrimSpace(typed))

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, maxChoices)
	for idx, entry := range entries {
		if len(choices) == maxChoices {
			break
		}

		position := idx + 1
		if typed != "" &&
			!strings.HasPrefix(strconv.Itoa(position), typed) &&
			!strings.Contains(strings.ToLower(entry.Track.Title), typed) &&
			!strings.Contains(strings.ToLower(entry.Track.Author), typed) {
			continue
		}

		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name: truncate(
				fmt.Sprintf("%d. %s - %s", position, entry.Track.Title, entry.Track.Author),
				maxChoiceNameLength,
			),
			Value: position,
		})
	}
	return choices
}

// HandlePlaylistName suggests saved playlist names.
func (h *AutocompleteHandler) HandlePlaylistName(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondChoices(r, nil)
	}

	opt := focused(i.ApplicationCommandData().Options)
	if opt == nil || opt.Name != "name" {
		return respondChoices(r, nil)
	}

	names, err := h.autocomplete.SavedQueueNames(ctx, guildID, opt.StringValue())
	if err != nil {
		slog.Warn("failed to list saved queues for autocomplete", "guild", guildID, "error", err)
		return respondChoices(r, nil)
	}
	return respondChoices(r, stringChoices(names))
}

// HandleBlacklistTerm suggests blacklisted terms to remove.
func (h *AutocompleteHandler) HandleBlacklistTerm(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondChoices(r, nil)
	}

	opt := focused(i.ApplicationCommandData().Options)
	if opt == nil || opt.Name != "term" {
		return respondChoices(r, nil)
	}

	terms, err := h.queue.Blacklist(ctx, guildID)
	if err != nil {
		return respondChoices(r, nil)
	}

	prefix := strings.ToLower(opt.StringValue())
	var matching []string
	for _, term := range terms {
		if strings.HasPrefix(term, prefix) {
			matching = append(matching, term)
		}
	}
	return respondChoices(r, stringChoices(matching))
}

func stringChoices(values []string) []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, min(len(values), maxChoices))
	for _, value := range values {
		if len(choices) == maxChoices {
			break
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncate(value, maxChoiceNameLength),
			Value: value,
		})
	}
	return choices
}

func respondChoices(r bot.Responder, choices []*discordgo.ApplicationCommandOptionChoice) error {
	if choices == nil {
		choices = []*discordgo.ApplicationCommandOptionChoice{}
	}
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{
			Choices: choices,
		},
	})
}
