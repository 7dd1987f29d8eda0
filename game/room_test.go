package game

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/quizroom/timer"
)

// recordingGateway is a test double for the Gateway interface. It keeps every
// event so tests can assert on what was broadcast.
type recordingGateway struct {
	mutex    sync.Mutex
	rosters  [][]RosterEntry
	chats    [][]ChatEntry
	started  []string
	won      []RoundResult
	timedOut []string
}

func (g *recordingGateway) RosterChanged(roomID string, roster []RosterEntry) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.rosters = append(g.rosters, roster)
}

func (g *recordingGateway) ChatChanged(roomID string, chat []ChatEntry) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.chats = append(g.chats, chat)
}

func (g *recordingGateway) RoundStarted(roomID string, question string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.started = append(g.started, question)
}

func (g *recordingGateway) RoundWon(roomID string, result RoundResult) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.won = append(g.won, result)
}

func (g *recordingGateway) RoundTimedOut(roomID string, answer string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.timedOut = append(g.timedOut, answer)
}

func (g *recordingGateway) wonCount() int {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return len(g.won)
}

func (g *recordingGateway) timedOutCount() int {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return len(g.timedOut)
}

// testSettings keeps the round timer far away so it cannot interleave with
// assertions; timeout tests use shortSettings instead.
func testSettings() Settings {
	s := DefaultSettings()
	s.RoundDuration = time.Hour
	return s
}

func shortSettings() Settings {
	s := DefaultSettings()
	s.RoundDuration = 100 * time.Millisecond
	return s
}

// newTestRoom builds a registry-backed room with n participants named
// p1..pn; p1 is the master.
func newTestRoom(t *testing.T, gw *recordingGateway, settings Settings, n int) (*Registry, *Room, string) {
	t.Helper()

	timers := timer.NewManager()
	t.Cleanup(timers.Stop)

	reg := NewRegistry(gw, timers, settings)
	roomID, err := reg.CreateRoom("p1", "p1")
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	for i := 2; i <= n; i++ {
		id := fmt.Sprintf("p%d", i)
		if err := reg.Join(roomID, id, id); err != nil {
			t.Fatalf("Join %s failed: %v", id, err)
		}
	}
	room, exists := reg.Room(roomID)
	if !exists {
		t.Fatal("created room should exist")
	}
	return reg, room, roomID
}

func masterOf(t *testing.T, room *Room) string {
	t.Helper()
	for _, p := range room.Roster() {
		if p.IsMaster {
			return p.Name
		}
	}
	t.Fatal("room has no master")
	return ""
}

func TestSetQuestion_NonMasterUnauthorized(t *testing.T) {
	gw := &recordingGateway{}
	_, room, _ := newTestRoom(t, gw, testSettings(), 3)

	if err := room.SetQuestion("p2", "q", "a"); err != ErrUnauthorized {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
	if room.Question() != "" {
		t.Errorf("Question should be unchanged, got %q", room.Question())
	}

	if err := room.SetQuestion("nobody", "q", "a"); err != ErrUnauthorized {
		t.Errorf("Expected ErrUnauthorized for unknown identity, got %v", err)
	}
}

func TestSetQuestion_LastWriteWins(t *testing.T) {
	gw := &recordingGateway{}
	_, room, _ := newTestRoom(t, gw, testSettings(), 3)

	if err := room.SetQuestion("p1", "first", "ONE"); err != nil {
		t.Fatalf("SetQuestion failed: %v", err)
	}
	if err := room.SetQuestion("p1", "second", "TWO"); err != nil {
		t.Fatalf("SetQuestion failed: %v", err)
	}
	if room.Question() != "second" {
		t.Errorf("Expected question %q, got %q", "second", room.Question())
	}
	if err := room.Start("p1"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// The answer is stored lower-cased.
	result, err := room.Guess("p2", "two")
	if err != nil {
		t.Fatalf("Guess failed: %v", err)
	}
	if !result.Correct {
		t.Error("lower-cased guess against upper-cased answer should match")
	}
}

func TestStart_Preconditions(t *testing.T) {
	gw := &recordingGateway{}
	_, room, _ := newTestRoom(t, gw, testSettings(), 2)

	if err := room.Start("p2"); err != ErrUnauthorized {
		t.Errorf("Expected ErrUnauthorized for non-master, got %v", err)
	}
	if err := room.Start("p1"); err != ErrInsufficientPlayers {
		t.Errorf("Expected ErrInsufficientPlayers with 2 players, got %v", err)
	}
	if room.Phase() != PhaseLobby {
		t.Errorf("Failed Start should leave phase lobby, got %v", room.Phase())
	}
}

func TestStart_RequiresQuestion(t *testing.T) {
	gw := &recordingGateway{}
	_, room, _ := newTestRoom(t, gw, testSettings(), 3)

	if err := room.Start("p1"); err != ErrQuestionNotSet {
		t.Errorf("Expected ErrQuestionNotSet, got %v", err)
	}
}

func TestStart_OpensRound(t *testing.T) {
	gw := &recordingGateway{}
	_, room, _ := newTestRoom(t, gw, testSettings(), 3)

	if err := room.SetQuestion("p1", "capital of France", "paris"); err != nil {
		t.Fatalf("SetQuestion failed: %v", err)
	}
	if err := room.Start("p1"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if room.Phase() != PhaseActive {
		t.Errorf("Expected phase active, got %v", room.Phase())
	}
	if len(gw.started) != 1 || gw.started[0] != "capital of France" {
		t.Errorf("Expected round_started with the question, got %v", gw.started)
	}
	for _, p := range room.participants {
		if p.Attempts != 3 {
			t.Errorf("Participant %s should have 3 attempts, got %d", p.Name, p.Attempts)
		}
	}
}

func TestGuess_WinScenario(t *testing.T) {
	gw := &recordingGateway{}
	_, room, _ := newTestRoom(t, gw, testSettings(), 3)

	if err := room.SetQuestion("p1", "capital of France", "paris"); err != nil {
		t.Fatalf("SetQuestion failed: %v", err)
	}
	if err := room.Start("p1"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	wrong, err := room.Guess("p2", "lyon")
	if err != nil {
		t.Fatalf("Guess failed: %v", err)
	}
	if wrong.Correct || wrong.AttemptsLeft != 2 {
		t.Errorf("Expected wrong guess with 2 attempts left, got %+v", wrong)
	}

	// Case-insensitive, trimmed.
	win, err := room.Guess("p3", " Paris ")
	if err != nil {
		t.Fatalf("Guess failed: %v", err)
	}
	if !win.Correct {
		t.Fatal("Expected the guess to match")
	}
	if win.Winner != "p3" || win.Answer != "paris" {
		t.Errorf("Expected winner p3 / answer paris, got %+v", win)
	}

	wantScores := []ScoreEntry{{Name: "p1", Score: 0}, {Name: "p2", Score: 0}, {Name: "p3", Score: 10}}
	if len(win.Scores) != len(wantScores) {
		t.Fatalf("Expected %d score rows, got %d", len(wantScores), len(win.Scores))
	}
	for i, want := range wantScores {
		if win.Scores[i] != want {
			t.Errorf("Score row %d: expected %+v, got %+v", i, want, win.Scores[i])
		}
	}

	if gw.wonCount() != 1 {
		t.Errorf("Expected one round_won event, got %d", gw.wonCount())
	}
	if room.Phase() != PhaseLobby {
		t.Errorf("Round should have closed back to lobby, got %v", room.Phase())
	}
	if master := masterOf(t, room); master != "p2" {
		t.Errorf("Master should have rotated to p2, got %s", master)
	}
}

func TestGuess_ScoreAccumulatesAcrossRounds(t *testing.T) {
	gw := &recordingGateway{}
	_, room, _ := newTestRoom(t, gw, testSettings(), 3)

	room.SetQuestion("p1", "q1", "one")
	room.Start("p1")
	if _, err := room.Guess("p3", "one"); err != nil {
		t.Fatalf("Guess failed: %v", err)
	}

	// Master is now p2; second round, same winner.
	room.SetQuestion("p2", "q2", "two")
	if err := room.Start("p2"); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}
	win, err := room.Guess("p3", "two")
	if err != nil {
		t.Fatalf("Guess failed: %v", err)
	}
	if win.Scores[2].Score != 20 {
		t.Errorf("Expected p3 to accumulate 20 points, got %d", win.Scores[2].Score)
	}
}

func TestGuess_GameNotRunning(t *testing.T) {
	gw := &recordingGateway{}
	_, room, _ := newTestRoom(t, gw, testSettings(), 3)

	if _, err := room.Guess("p2", "paris"); err != ErrGameNotRunning {
		t.Errorf("Expected ErrGameNotRunning in lobby, got %v", err)
	}
}

func TestGuess_UnknownParticipant(t *testing.T) {
	gw := &recordingGateway{}
	_, room, _ := newTestRoom(t, gw, testSettings(), 3)

	room.SetQuestion("p1", "q", "a")
	room.Start("p1")
	if _, err := room.Guess("ghost", "a"); err != ErrParticipantNotFound {
		t.Errorf("Expected ErrParticipantNotFound, got %v", err)
	}
}

func TestGuess_AttemptBudgetExhausted(t *testing.T) {
	gw := &recordingGateway{}
	_, room, _ := newTestRoom(t, gw, testSettings(), 3)

	room.SetQuestion("p1", "q", "secret")
	room.Start("p1")

	for want := 2; want >= 0; want-- {
		result, err := room.Guess("p2", "wrong")
		if err != nil {
			t.Fatalf("Guess failed: %v", err)
		}
		if result.AttemptsLeft != want {
			t.Errorf("Expected %d attempts left, got %d", want, result.AttemptsLeft)
		}
	}

	chatBefore := len(room.ChatLog())

	// Exhausted guesses are idempotent no-ops, even with the right answer.
	result, err := room.Guess("p2", "secret")
	if err != nil {
		t.Fatalf("Guess failed: %v", err)
	}
	if result.Correct || result.AttemptsLeft != 0 {
		t.Errorf("Exhausted guess should report 0 attempts and no match, got %+v", result)
	}
	if len(room.ChatLog()) != chatBefore {
		t.Error("Exhausted guess should not append to chat")
	}
	if room.Phase() != PhaseActive {
		t.Errorf("Round should still be running, got %v", room.Phase())
	}
}

func TestRoundTimeout(t *testing.T) {
	gw := &recordingGateway{}
	_, room, _ := newTestRoom(t, gw, shortSettings(), 3)

	room.SetQuestion("p1", "q", "paris")
	room.Start("p1")

	deadline := time.After(2 * time.Second)
	for gw.timedOutCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("Timed out waiting for the round timer to fire")
		case <-time.After(20 * time.Millisecond):
		}
	}

	gw.mutex.Lock()
	answer := gw.timedOut[0]
	gw.mutex.Unlock()
	if answer != "paris" {
		t.Errorf("Timeout should reveal the answer, got %q", answer)
	}
	if room.Phase() != PhaseLobby {
		t.Errorf("Timed out round should return to lobby, got %v", room.Phase())
	}
	if master := masterOf(t, room); master != "p2" {
		t.Errorf("Master should have rotated exactly once to p2, got %s", master)
	}
}

func TestWinPreventsTimerFire(t *testing.T) {
	gw := &recordingGateway{}
	_, room, _ := newTestRoom(t, gw, shortSettings(), 3)

	room.SetQuestion("p1", "q", "paris")
	room.Start("p1")
	if _, err := room.Guess("p2", "paris"); err != nil {
		t.Fatalf("Guess failed: %v", err)
	}

	// Wait well past the round duration; the cancelled timer must not
	// close the round a second time.
	time.Sleep(400 * time.Millisecond)

	if gw.timedOutCount() != 0 {
		t.Error("Cancelled round timer should not have fired")
	}
	if gw.wonCount() != 1 {
		t.Errorf("Expected exactly one round_won event, got %d", gw.wonCount())
	}
	if master := masterOf(t, room); master != "p2" {
		t.Errorf("Master should have rotated exactly once, got %s", master)
	}
}

func TestStaleTimerFireIsNoOp(t *testing.T) {
	gw := &recordingGateway{}
	_, room, _ := newTestRoom(t, gw, testSettings(), 3)

	room.SetQuestion("p1", "q", "one")
	room.Start("p1")
	room.Guess("p2", "one")

	// Master p2 opens the next round; a fire from the first round's timer
	// must observe the generation mismatch and back off.
	room.SetQuestion("p2", "q2", "two")
	if err := room.Start("p2"); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}
	room.handleRoundTimeout(1)

	if gw.timedOutCount() != 0 {
		t.Error("Stale timer fire should be a no-op")
	}
	if room.Phase() != PhaseActive {
		t.Errorf("Second round should still be running, got %v", room.Phase())
	}
}

func TestChatLog_GuessEntries(t *testing.T) {
	gw := &recordingGateway{}
	_, room, _ := newTestRoom(t, gw, testSettings(), 3)

	room.SetQuestion("p1", "q", "paris")
	room.Start("p1")
	room.Guess("p2", "lyon")

	chat := room.ChatLog()
	last := chat[len(chat)-1]
	if last.System || last.User != "p2" || !strings.Contains(last.Text, "lyon") {
		t.Errorf("Expected p2's guess in chat, got %+v", last)
	}
}
