// models/gorm_models.go
package models

import (
	"gorm.io/gorm"
)

// GormRoundRecord 回合存档模型
type GormRoundRecord struct {
	gorm.Model
	RoomID  string     `gorm:"index;not null"`
	Winner  string     `gorm:"index"`
	Answer  string     `gorm:"not null"`
	Outcome string     `gorm:"not null"`
	Scores  []ScoreRow `gorm:"serializer:json;type:jsonb"`
}

// GormRoomSnapshot 房间快照模型
type GormRoomSnapshot struct {
	gorm.Model
	RoomID       string      `gorm:"uniqueIndex;not null"`
	Phase        string      `gorm:"not null"`
	Question     string
	Participants []RosterRow `gorm:"serializer:json;type:jsonb"`
}

// GormPlayerStats 玩家统计聚合（由回合存档事务维护）
type GormPlayerStats struct {
	gorm.Model
	Name         string `gorm:"uniqueIndex;not null"`
	RoundsPlayed int    `gorm:"default:0"`
	RoundsWon    int    `gorm:"default:0"`
}
