// game/events.go
package game

// Gateway delivers room events to every participant of a room.
// This is defined here to break the import cycle between game and broadcast.
type Gateway interface {
	RosterChanged(roomID string, roster []RosterEntry)
	ChatChanged(roomID string, chat []ChatEntry)
	RoundStarted(roomID string, question string)
	RoundWon(roomID string, result RoundResult)
	RoundTimedOut(roomID string, answer string)
}

// RosterEntry is one participant as seen by the roster_changed event,
// in join order.
type RosterEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	IsMaster bool   `json:"is_master"`
}

// ScoreEntry is one row of the score table revealed when a round closes.
type ScoreEntry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// ChatEntry is one line of a room's append-only chat log.
type ChatEntry struct {
	System bool   `json:"system"`
	User   string `json:"user,omitempty"`
	Text   string `json:"text"`
}

// RoundResult is the payload of the round_won event.
type RoundResult struct {
	Winner string       `json:"winner"`
	Answer string       `json:"answer"`
	Scores []ScoreEntry `json:"scores"`
}
