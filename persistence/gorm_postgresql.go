// persistence/gorm_postgresql.go
package persistence

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/quizroom/models"
)

// GormPostgreSQL 使用GORM的存储实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(
		&models.GormRoundRecord{},
		&models.GormRoomSnapshot{},
		&models.GormPlayerStats{},
	); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// SaveRoomSnapshot 保存房间快照
func (p *GormPostgreSQL) SaveRoomSnapshot(snap *models.RoomSnapshot) error {
	var row models.GormRoomSnapshot
	result := p.db.Where("room_id = ?", snap.RoomID).First(&row)

	if result.Error == gorm.ErrRecordNotFound {
		row = models.GormRoomSnapshot{
			RoomID:       snap.RoomID,
			Phase:        snap.Phase,
			Question:     snap.Question,
			Participants: snap.Participants,
		}
		return p.db.Create(&row).Error
	} else if result.Error != nil {
		return result.Error
	}

	row.Phase = snap.Phase
	row.Question = snap.Question
	row.Participants = snap.Participants
	return p.db.Save(&row).Error
}

// LoadRoomSnapshot 加载房间快照
func (p *GormPostgreSQL) LoadRoomSnapshot(roomID string) (*models.RoomSnapshot, error) {
	var row models.GormRoomSnapshot
	if err := p.db.Where("room_id = ?", roomID).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	return &models.RoomSnapshot{
		RoomID:       row.RoomID,
		Phase:        row.Phase,
		Question:     row.Question,
		Participants: row.Participants,
		UpdatedAt:    row.UpdatedAt,
	}, nil
}

// DeleteRoomSnapshot 删除房间快照
func (p *GormPostgreSQL) DeleteRoomSnapshot(roomID string) error {
	return p.db.Where("room_id = ?", roomID).Delete(&models.GormRoomSnapshot{}).Error
}

// SaveRoundRecord 保存回合存档，并在同一事务里维护玩家统计聚合
func (p *GormPostgreSQL) SaveRoundRecord(rec *models.RoundRecord) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		row := models.GormRoundRecord{
			RoomID:  rec.RoomID,
			Winner:  rec.Winner,
			Answer:  rec.Answer,
			Outcome: rec.Outcome,
			Scores:  rec.Scores,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		for _, s := range rec.Scores {
			if err := upsertPlayerStats(tx, s.Name, s.Name == rec.Winner); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertPlayerStats(tx *gorm.DB, name string, won bool) error {
	var stats models.GormPlayerStats
	err := tx.Where("name = ?", name).First(&stats).Error
	if err == gorm.ErrRecordNotFound {
		stats = models.GormPlayerStats{Name: name}
		if err := tx.Create(&stats).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"rounds_played": gorm.Expr("rounds_played + 1"),
	}
	if won {
		updates["rounds_won"] = gorm.Expr("rounds_won + 1")
	}
	return tx.Model(&stats).Updates(updates).Error
}

// PlayerStats 读取玩家统计聚合
func (p *GormPostgreSQL) PlayerStats(name string) (*models.PlayerStats, error) {
	var row models.GormPlayerStats
	if err := p.db.Where("name = ?", name).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	return &models.PlayerStats{
		Name:         row.Name,
		RoundsPlayed: row.RoundsPlayed,
		RoundsWon:    row.RoundsWon,
	}, nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
