// models/models.go
package models

import (
	"time"
)

// Round outcomes.
const (
	OutcomeWon      = "won"
	OutcomeTimedOut = "timed_out"
)

// RoundRecord 一轮结束后的存档
type RoundRecord struct {
	RoomID    string     `json:"room_id"`
	Winner    string     `json:"winner,omitempty"`
	Answer    string     `json:"answer"`
	Outcome   string     `json:"outcome"`
	Scores    []ScoreRow `json:"scores,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ScoreRow 存档中的一行比分
type ScoreRow struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// RoomSnapshot 房间的持久化快照（直通存储，核心不依赖它）
type RoomSnapshot struct {
	RoomID       string      `json:"room_id"`
	Phase        string      `json:"phase"`
	Question     string      `json:"question"`
	Participants []RosterRow `json:"participants"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// RosterRow 快照中的一个参与者
type RosterRow struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	IsMaster bool   `json:"is_master"`
}

// PlayerStats 玩家的跨房间统计
type PlayerStats struct {
	Name         string `json:"name"`
	RoundsPlayed int    `json:"rounds_played"`
	RoundsWon    int    `json:"rounds_won"`
}
