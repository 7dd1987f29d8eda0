// services/score_service.go
package services

import (
	"time"

	"github.com/wfunc/quizroom/game"
	"github.com/wfunc/quizroom/logger"
	"github.com/wfunc/quizroom/models"
	"github.com/wfunc/quizroom/persistence"
)

// ScoreService archives finished rounds and serves cross-room player stats.
type ScoreService struct {
	store persistence.Store
}

func NewScoreService(store persistence.Store) *ScoreService {
	return &ScoreService{store: store}
}

// RecordWin archives a round ended by a correct guess.
func (s *ScoreService) RecordWin(roomID string, result game.RoundResult) error {
	scores := make([]models.ScoreRow, 0, len(result.Scores))
	for _, row := range result.Scores {
		scores = append(scores, models.ScoreRow{Name: row.Name, Score: row.Score})
	}
	return s.store.SaveRoundRecord(&models.RoundRecord{
		RoomID:    roomID,
		Winner:    result.Winner,
		Answer:    result.Answer,
		Outcome:   models.OutcomeWon,
		Scores:    scores,
		CreatedAt: time.Now(),
	})
}

// RecordTimeout archives a round the timer ended.
func (s *ScoreService) RecordTimeout(roomID, answer string) error {
	return s.store.SaveRoundRecord(&models.RoundRecord{
		RoomID:    roomID,
		Answer:    answer,
		Outcome:   models.OutcomeTimedOut,
		CreatedAt: time.Now(),
	})
}

// Stats returns the aggregate stats for a nickname.
func (s *ScoreService) Stats(name string) (*models.PlayerStats, error) {
	return s.store.PlayerStats(name)
}

// Recorder wraps a game.Gateway and archives round results as they are
// broadcast. Archiving runs off the room's critical section; a failed write
// only costs the record.
type Recorder struct {
	inner  game.Gateway
	scores *ScoreService
}

func NewRecorder(inner game.Gateway, scores *ScoreService) *Recorder {
	return &Recorder{inner: inner, scores: scores}
}

func (r *Recorder) RosterChanged(roomID string, roster []game.RosterEntry) {
	r.inner.RosterChanged(roomID, roster)
}

func (r *Recorder) ChatChanged(roomID string, chat []game.ChatEntry) {
	r.inner.ChatChanged(roomID, chat)
}

func (r *Recorder) RoundStarted(roomID string, question string) {
	r.inner.RoundStarted(roomID, question)
}

func (r *Recorder) RoundWon(roomID string, result game.RoundResult) {
	r.inner.RoundWon(roomID, result)
	go func() {
		if err := r.scores.RecordWin(roomID, result); err != nil {
			logger.Log.Errorf("Failed to archive won round for room %s: %v", roomID, err)
		}
	}()
}

func (r *Recorder) RoundTimedOut(roomID string, answer string) {
	r.inner.RoundTimedOut(roomID, answer)
	go func() {
		if err := r.scores.RecordTimeout(roomID, answer); err != nil {
			logger.Log.Errorf("Failed to archive timed out round for room %s: %v", roomID, err)
		}
	}()
}
