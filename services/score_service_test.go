package services

import (
	"sync"
	"testing"
	"time"

	"github.com/wfunc/quizroom/game"
	"github.com/wfunc/quizroom/logger"
	"github.com/wfunc/quizroom/models"
	"github.com/wfunc/quizroom/persistence"
)

func init() {
	logger.Init()
}

// fakeStore is an in-memory test double for the persistence.Store interface.
type fakeStore struct {
	mutex   sync.Mutex
	records []*models.RoundRecord
}

func (f *fakeStore) SaveRoomSnapshot(snap *models.RoomSnapshot) error { return nil }
func (f *fakeStore) LoadRoomSnapshot(roomID string) (*models.RoomSnapshot, error) {
	return nil, persistence.ErrRecordNotFound
}
func (f *fakeStore) DeleteRoomSnapshot(roomID string) error { return nil }

func (f *fakeStore) SaveRoundRecord(rec *models.RoundRecord) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeStore) PlayerStats(name string) (*models.PlayerStats, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	stats := &models.PlayerStats{Name: name}
	for _, rec := range f.records {
		for _, row := range rec.Scores {
			if row.Name == name {
				stats.RoundsPlayed++
			}
		}
		if rec.Winner == name {
			stats.RoundsWon++
		}
	}
	return stats, nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) recordCount() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return len(f.records)
}

func TestScoreService_RecordWin(t *testing.T) {
	store := &fakeStore{}
	svc := NewScoreService(store)

	result := game.RoundResult{
		Winner: "p3",
		Answer: "paris",
		Scores: []game.ScoreEntry{{Name: "p1", Score: 0}, {Name: "p3", Score: 10}},
	}
	if err := svc.RecordWin("ABC123", result); err != nil {
		t.Fatalf("RecordWin failed: %v", err)
	}

	if store.recordCount() != 1 {
		t.Fatalf("Expected 1 record, got %d", store.recordCount())
	}
	rec := store.records[0]
	if rec.RoomID != "ABC123" || rec.Winner != "p3" || rec.Outcome != models.OutcomeWon {
		t.Errorf("Unexpected record: %+v", rec)
	}
	if len(rec.Scores) != 2 || rec.Scores[1].Score != 10 {
		t.Errorf("Score rows not carried over: %+v", rec.Scores)
	}
}

func TestScoreService_RecordTimeout(t *testing.T) {
	store := &fakeStore{}
	svc := NewScoreService(store)

	if err := svc.RecordTimeout("ABC123", "paris"); err != nil {
		t.Fatalf("RecordTimeout failed: %v", err)
	}

	rec := store.records[0]
	if rec.Outcome != models.OutcomeTimedOut || rec.Answer != "paris" || rec.Winner != "" {
		t.Errorf("Unexpected record: %+v", rec)
	}
}

func TestScoreService_Stats(t *testing.T) {
	store := &fakeStore{}
	svc := NewScoreService(store)

	svc.RecordWin("R1", game.RoundResult{
		Winner: "p1",
		Answer: "a",
		Scores: []game.ScoreEntry{{Name: "p1", Score: 10}, {Name: "p2", Score: 0}},
	})
	svc.RecordWin("R1", game.RoundResult{
		Winner: "p2",
		Answer: "b",
		Scores: []game.ScoreEntry{{Name: "p1", Score: 10}, {Name: "p2", Score: 10}},
	})

	stats, err := svc.Stats("p1")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.RoundsPlayed != 2 || stats.RoundsWon != 1 {
		t.Errorf("Expected 2 played / 1 won, got %+v", stats)
	}
}

// nullGateway satisfies game.Gateway and does nothing.
type nullGateway struct{}

func (nullGateway) RosterChanged(string, []game.RosterEntry) {}
func (nullGateway) ChatChanged(string, []game.ChatEntry)     {}
func (nullGateway) RoundStarted(string, string)              {}
func (nullGateway) RoundWon(string, game.RoundResult)        {}
func (nullGateway) RoundTimedOut(string, string)             {}

func TestRecorder_ArchivesRoundEnds(t *testing.T) {
	store := &fakeStore{}
	rec := NewRecorder(nullGateway{}, NewScoreService(store))

	rec.RoundWon("ABC123", game.RoundResult{Winner: "p1", Answer: "a"})
	rec.RoundTimedOut("ABC123", "b")

	// Archiving is asynchronous.
	deadline := time.After(2 * time.Second)
	for store.recordCount() < 2 {
		select {
		case <-deadline:
			t.Fatalf("Expected 2 archived records, got %d", store.recordCount())
		case <-time.After(10 * time.Millisecond):
		}
	}
}
