package usecases

import "github.com/cockroachdb/errors"

// Errors returned by the music player use cases.
var (
	// ErrNotConnected is returned when an operation requires the bot to be in a voice channel.
	ErrNotConnected = errors.New("not connected to a voice channel")

	// ErrUserNotInVoice is returned when the user is not in the bot's voice channel.
	ErrUserNotInVoice = errors.New("you must be in a voice channel")

	// ErrNotPlaying is returned when no track is currently playing.
	ErrNotPlaying = errors.New("nothing is currently playing")

	// ErrAlreadyPaused is returned when trying to pause while already paused.
	ErrAlreadyPaused = errors.New("playback is already paused")

	// ErrNotPaused is returned when trying to resume while not paused.
	ErrNotPaused = errors.New("playback is not paused")

	// ErrNoResults is returned when a search yields no results.
	ErrNoResults = errors.New("no results found")

	// ErrQueueEmpty is returned when the queue is empty.
	ErrQueueEmpty = errors.New("the queue is empty")

	// ErrInvalidPosition is returned when an invalid queue or seek position is specified.
	ErrInvalidPosition = errors.New("invalid position")

	// ErrNothingToGoBack is returned by Previous when the history is empty.
	ErrNothingToGoBack = errors.New("there is no previous track")

	// ErrSavedQueueNotFound is returned when a saved queue does not exist.
	ErrSavedQueueNotFound = errors.New("saved queue not found")

	// ErrSavedQueueExists is returned when saving over an existing queue without overwrite.
	ErrSavedQueueExists = errors.New("a saved queue with that name already exists")

	// ErrInvalidName is returned for blank saved queue names.
	ErrInvalidName = errors.New("invalid name")

	// ErrInvalidVolume is returned when a volume is outside the allowed range.
	ErrInvalidVolume = errors.New("invalid volume")

	// ErrSpotifyUnavailable is returned for Spotify links when no credentials are configured.
	ErrSpotifyUnavailable = errors.New("spotify links are not available")

	// ErrDJRequired is returned when a restricted control is used without the DJ role.
	ErrDJRequired = errors.New("you need the DJ role or the Manage Server permission to do that")

	// ErrManageGuildRequired is returned when a settings change lacks the Manage Server permission.
	ErrManageGuildRequired = errors.New("you need the Manage Server permission to do that")

	// ErrSettingsUnavailable is returned when guild settings cannot be stored.
	ErrSettingsUnavailable = errors.New("settings are not available")

	// ErrRateLimited is returned when a user sends commands too quickly.
	ErrRateLimited = errors.New("too many commands, slow down")
)
