package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sglre6355/ascend/internal/modules/music_player/application/ports"
	"github.com/sglre6355/ascend/internal/modules/music_player/domain"
)

// Embed colors.
const (
	colorRed = 0xE74C3C
)

const thumbnailLookupTimeout = 5 * time.Second

// NowPlayingRenderer builds the "Now Playing" message for a track.
// thumbnailURL is the best artwork found for the track and may be empty.
type NowPlayingRenderer func(
	info *ports.NowPlayingInfo,
	thumbnailURL string,
) (*discordgo.MessageEmbed, []discordgo.MessageComponent)

// Notifier sends notifications to Discord channels.
type Notifier struct {
	session    *discordgo.Session
	render     NowPlayingRenderer
	httpClient *http.Client
}

// NewNotifier creates a new Notifier that renders messages with render.
func NewNotifier(session *discordgo.Session, render NowPlayingRenderer) *Notifier {
	client := retryablehttp.NewClient()
	client.RetryMax = 1
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = 500 * time.Millisecond
	client.Logger = nil
	client.HTTPClient.Timeout = thumbnailLookupTimeout

	return &Notifier{
		session:    session,
		render:     render,
		httpClient: client.StandardClient(),
	}
}

// SendNowPlaying sends a "Now Playing" message to the channel and returns the message ID.
func (n *Notifier) SendNowPlaying(
	channelID snowflake.ID,
	info *ports.NowPlayingInfo,
) (snowflake.ID, error) {
	if info == nil || info.Entry == nil {
		return 0, errors.New("now playing info has no entry")
	}

	track := info.Entry.Track
	embed, components := n.render(info, n.bestThumbnail(track))

	msg, err := n.session.ChannelMessageSendComplex(channelID.String(), &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: components,
	})
	if err != nil {
		return 0, errors.Wrapf(err, "failed to send now playing message to channel %s", channelID)
	}
	messageID, err := snowflake.Parse(msg.ID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to parse message id")
	}
	return messageID, nil
}

// DeleteMessage deletes a message from the channel.
func (n *Notifier) DeleteMessage(channelID snowflake.ID, messageID snowflake.ID) error {
	return n.session.ChannelMessageDelete(channelID.String(), messageID.String())
}

// SendError sends an error message embed to the channel.
func (n *Notifier) SendError(channelID snowflake.ID, message string) error {
	embed := &discordgo.MessageEmbed{
		Description: message,
		Color:       colorRed,
	}

	_, err := n.session.ChannelMessageSendEmbed(channelID.String(), embed)
	return err
}

// bestThumbnail attempts to find the best quality thumbnail for the track.
// For YouTube, it tries different quality levels (maxresdefault, sddefault, etc.).
// For Twitch, it attempts to use a higher resolution version.
// For other sources, it returns the original artwork URL.
func (n *Notifier) bestThumbnail(track domain.Track) string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*thumbnailLookupTimeout)
	defer cancel()

	for _, candidate := range thumbnailCandidates(track) {
		if n.urlExists(ctx, candidate) {
			return candidate
		}
	}
	return track.ArtworkURL
}

// thumbnailCandidates lists higher resolution artwork URLs worth probing, best first.
func thumbnailCandidates(track domain.Track) []string {
	switch track.Source() {
	case domain.TrackSourceYouTube:
		if track.Identifier == "" {
			return nil
		}
		qualities := []string{"maxresdefault", "sddefault", "hqdefault", "mqdefault"}
		urls := make([]string, 0, len(qualities))
		for _, quality := range qualities {
			urls = append(urls, fmt.Sprintf("https://img.youtube.com/vi/%s/%s.jpg", track.Identifier, quality))
		}
		return urls
	case domain.TrackSourceTwitch:
		highRes := strings.Replace(track.ArtworkURL, "440x248", "1280x720", 1)
		if highRes == track.ArtworkURL {
			return nil
		}
		return []string{highRes}
	default:
		return nil
	}
}

// urlExists checks if a URL returns a successful response using a HEAD request.
func (n *Notifier) urlExists(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

// Ensure Notifier implements ports.NotificationSender.
var _ ports.NotificationSender = (*Notifier)(nil)
