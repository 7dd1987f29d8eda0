// game/room.go
package game

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wfunc/quizroom/timer"
)

// Phase 表示房间在一轮中的位置
type Phase int

const (
	PhaseLobby Phase = iota
	PhaseActive
	PhaseRoundEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseLobby:
		return "lobby"
	case PhaseActive:
		return "active"
	case PhaseRoundEnded:
		return "round_ended"
	}
	return "unknown"
}

// Settings carries the room rules.
type Settings struct {
	RoundDuration time.Duration
	AttemptBudget int
	MinPlayers    int
	PointsPerWin  int
}

// DefaultSettings matches the original game: one minute per round, three
// guesses per player, three players to start, ten points per win.
func DefaultSettings() Settings {
	return Settings{
		RoundDuration: 60 * time.Second,
		AttemptBudget: 3,
		MinPlayers:    3,
		PointsPerWin:  10,
	}
}

// Participant is one connected player inside a room. Identity is the opaque
// token the transport assigned to the connection.
type Participant struct {
	ID       string
	Name     string
	Score    int
	IsMaster bool
	Attempts int
}

// Room 是一个独立的猜谜房间。所有修改都在 mutex 下串行执行，
// 包括回合计时器的回调。
type Room struct {
	id       string
	settings Settings
	gateway  Gateway
	timers   *timer.Manager

	mutex        sync.Mutex
	participants []*Participant // join order; rotation depends on it
	question     string
	answer       string // stored lower-cased
	phase        Phase
	chat         []ChatEntry
	roundTimer   *timer.Handle
	round        uint64 // generation guard against stale timer fires
	closed       bool
}

func newRoom(id string, gateway Gateway, timers *timer.Manager, settings Settings) *Room {
	return &Room{
		id:       id,
		settings: settings,
		gateway:  gateway,
		timers:   timers,
		phase:    PhaseLobby,
	}
}

// ID returns the room identifier.
func (r *Room) ID() string {
	return r.id
}

// Phase returns the current phase.
func (r *Room) Phase() Phase {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.phase
}

// Question returns the current question text.
func (r *Room) Question() string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.question
}

// Roster returns the participants in join order.
func (r *Room) Roster() []RosterEntry {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.rosterLocked()
}

// ChatLog returns a copy of the full chat log.
func (r *Room) ChatLog() []ChatEntry {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.chatLocked()
}

// --- 命令处理 ---

// create seeds the room with its master participant.
func (r *Room) create(identity, name string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.participants = append(r.participants, &Participant{
		ID:       identity,
		Name:     name,
		IsMaster: true,
		Attempts: r.settings.AttemptBudget,
	})
	r.appendSystemChatLocked(fmt.Sprintf("%s created the room.", name))
	r.gateway.RosterChanged(r.id, r.rosterLocked())
	r.gateway.ChatChanged(r.id, r.chatLocked())
}

func (r *Room) join(identity, name string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed {
		return ErrRoomNotFound
	}
	if r.phase != PhaseLobby {
		return ErrGameInProgress
	}
	if r.findLocked(identity) != nil {
		return ErrDuplicateParticipant
	}

	r.participants = append(r.participants, &Participant{
		ID:       identity,
		Name:     name,
		Attempts: r.settings.AttemptBudget,
	})
	r.appendSystemChatLocked(fmt.Sprintf("%s joined the room.", name))
	r.gateway.RosterChanged(r.id, r.rosterLocked())
	r.gateway.ChatChanged(r.id, r.chatLocked())
	return nil
}

// leave removes the participant. Unknown identities are a no-op. The return
// value reports whether the room emptied; the last departure closes the room
// so no later command can resurrect it.
func (r *Room) leave(identity string) (empty bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	idx := -1
	for i, p := range r.participants {
		if p.ID == identity {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false
	}

	left := r.participants[idx]
	r.participants = append(r.participants[:idx], r.participants[idx+1:]...)
	r.appendSystemChatLocked(fmt.Sprintf("%s left the room.", left.Name))

	if len(r.participants) == 0 {
		r.closed = true
		r.cancelTimerLocked()
		return true
	}

	if left.IsMaster {
		// The new master is the participant that followed the departing
		// one in join order, which after the removal sits at idx.
		r.assignMasterLocked(idx % len(r.participants))
	}
	r.gateway.RosterChanged(r.id, r.rosterLocked())
	r.gateway.ChatChanged(r.id, r.chatLocked())
	return false
}

// SetQuestion stores the question/answer pair. Master only; the answer is
// lower-cased for the case-insensitive comparison. Repeated calls before
// Start overwrite the pair.
func (r *Room) SetQuestion(identity, question, answer string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	me := r.findLocked(identity)
	if me == nil || !me.IsMaster {
		return ErrUnauthorized
	}

	r.question = question
	r.answer = strings.ToLower(answer)
	r.appendSystemChatLocked("Master set a new question.")
	r.gateway.ChatChanged(r.id, r.chatLocked())
	return nil
}

// Start opens a round: resets every attempt budget, arms the round timer and
// announces the question (never the answer).
func (r *Room) Start(identity string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	me := r.findLocked(identity)
	if me == nil || !me.IsMaster {
		return ErrUnauthorized
	}
	if len(r.participants) < r.settings.MinPlayers {
		return ErrInsufficientPlayers
	}
	if r.question == "" {
		return ErrQuestionNotSet
	}

	for _, p := range r.participants {
		p.Attempts = r.settings.AttemptBudget
	}
	r.phase = PhaseActive

	r.round++
	round := r.round
	r.cancelTimerLocked()
	r.roundTimer = r.timers.Schedule(r.settings.RoundDuration, func() {
		r.handleRoundTimeout(round)
	})

	r.appendSystemChatLocked(fmt.Sprintf("Game started! Question: %s", r.question))
	r.gateway.RoundStarted(r.id, r.question)
	r.gateway.ChatChanged(r.id, r.chatLocked())
	return nil
}

// GuessResult is returned to the guesser. A win additionally reaches every
// participant through the round_won event.
type GuessResult struct {
	Correct      bool         `json:"correct"`
	AttemptsLeft int          `json:"attempts_left"`
	Winner       string       `json:"winner,omitempty"`
	Answer       string       `json:"answer,omitempty"`
	Scores       []ScoreEntry `json:"scores,omitempty"`
}

// Guess consumes one attempt and compares the text against the answer.
// On a match the round closes completely (score, events, master rotation,
// back to lobby) before Guess returns.
func (r *Room) Guess(identity, text string) (GuessResult, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.phase != PhaseActive {
		return GuessResult{}, ErrGameNotRunning
	}
	me := r.findLocked(identity)
	if me == nil {
		return GuessResult{}, ErrParticipantNotFound
	}
	if me.Attempts == 0 {
		// Out of attempts; repeated guesses are harmless no-ops.
		return GuessResult{AttemptsLeft: 0}, nil
	}

	me.Attempts--
	r.chat = append(r.chat, ChatEntry{User: me.Name, Text: fmt.Sprintf("guessed: %q", text)})
	r.gateway.ChatChanged(r.id, r.chatLocked())

	if strings.ToLower(strings.TrimSpace(text)) != r.answer {
		return GuessResult{AttemptsLeft: me.Attempts}, nil
	}

	// Winner. Cancelling before the phase change guarantees a queued timer
	// fire observes the closed round and backs off.
	r.cancelTimerLocked()
	me.Score += r.settings.PointsPerWin
	r.phase = PhaseRoundEnded
	r.appendSystemChatLocked(fmt.Sprintf("%s guessed correctly and won!", me.Name))

	result := RoundResult{
		Winner: me.Name,
		Answer: r.answer,
		Scores: r.scoresLocked(),
	}
	r.gateway.RoundWon(r.id, result)
	r.gateway.ChatChanged(r.id, r.chatLocked())

	r.rotateMasterLocked()
	r.phase = PhaseLobby

	return GuessResult{
		Correct:      true,
		AttemptsLeft: me.Attempts,
		Winner:       result.Winner,
		Answer:       result.Answer,
		Scores:       result.Scores,
	}, nil
}

// handleRoundTimeout runs when the round timer fires with no winner.
// A stale fire (won round, restarted round, emptied room) is a no-op.
func (r *Room) handleRoundTimeout(round uint64) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed || r.phase != PhaseActive || round != r.round {
		return
	}

	r.roundTimer = nil
	r.phase = PhaseRoundEnded
	r.appendSystemChatLocked(fmt.Sprintf("Time's up! Answer: %s", r.answer))
	r.gateway.RoundTimedOut(r.id, r.answer)
	r.gateway.ChatChanged(r.id, r.chatLocked())

	r.rotateMasterLocked()
	r.phase = PhaseLobby
}

// --- 内部方法，调用者必须持有 mutex ---

func (r *Room) findLocked(identity string) *Participant {
	for _, p := range r.participants {
		if p.ID == identity {
			return p
		}
	}
	return nil
}

// rotateMasterLocked hands the master role to the next participant in join
// order, wrapping at the end.
func (r *Room) rotateMasterLocked() {
	idx := -1
	for i, p := range r.participants {
		if p.IsMaster {
			idx = i
			break
		}
	}
	if idx == -1 {
		// Master left mid-round; departure already reassigned the role.
		return
	}
	r.participants[idx].IsMaster = false
	r.assignMasterLocked((idx + 1) % len(r.participants))
	r.gateway.RosterChanged(r.id, r.rosterLocked())
	r.gateway.ChatChanged(r.id, r.chatLocked())
}

func (r *Room) assignMasterLocked(idx int) {
	next := r.participants[idx]
	next.IsMaster = true
	r.appendSystemChatLocked(fmt.Sprintf("%s is the new Master.", next.Name))
}

func (r *Room) cancelTimerLocked() {
	if r.roundTimer != nil {
		r.roundTimer.Cancel()
		r.roundTimer = nil
	}
}

func (r *Room) appendSystemChatLocked(text string) {
	r.chat = append(r.chat, ChatEntry{System: true, Text: text})
}

func (r *Room) rosterLocked() []RosterEntry {
	roster := make([]RosterEntry, 0, len(r.participants))
	for _, p := range r.participants {
		roster = append(roster, RosterEntry{
			ID:       p.ID,
			Name:     p.Name,
			Score:    p.Score,
			IsMaster: p.IsMaster,
		})
	}
	return roster
}

func (r *Room) scoresLocked() []ScoreEntry {
	scores := make([]ScoreEntry, 0, len(r.participants))
	for _, p := range r.participants {
		scores = append(scores, ScoreEntry{Name: p.Name, Score: p.Score})
	}
	return scores
}

func (r *Room) chatLocked() []ChatEntry {
	chat := make([]ChatEntry, len(r.chat))
	copy(chat, r.chat)
	return chat
}
