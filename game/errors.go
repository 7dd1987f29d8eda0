// game/errors.go
package game

import "errors"

// Command failures returned to the originating caller. None of these are
// fatal; the worst outcome is the rejection of one command.
var (
	ErrRoomNotFound         = errors.New("room not found")
	ErrGameInProgress       = errors.New("game already in progress")
	ErrGameNotRunning       = errors.New("game not running")
	ErrUnauthorized         = errors.New("not authorized")
	ErrInsufficientPlayers  = errors.New("need at least 3 players")
	ErrDuplicateParticipant = errors.New("already in the room")
	ErrParticipantNotFound  = errors.New("player not in room")
	ErrQuestionNotSet       = errors.New("question not set")
	ErrRoomIDExhausted      = errors.New("room id space exhausted")
)

// Code maps a command failure to its wire identifier.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, ErrGameInProgress):
		return "game_in_progress"
	case errors.Is(err, ErrGameNotRunning):
		return "game_not_running"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInsufficientPlayers):
		return "insufficient_players"
	case errors.Is(err, ErrDuplicateParticipant):
		return "duplicate_participant"
	case errors.Is(err, ErrParticipantNotFound):
		return "participant_not_found"
	case errors.Is(err, ErrQuestionNotSet):
		return "question_not_set"
	default:
		return "internal"
	}
}
