// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq"

	"github.com/wfunc/quizroom/models"
)

// PostgreSQL 基于 database/sql 的存储实现
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS round_records (
            id SERIAL PRIMARY KEY,
            room_id VARCHAR(6) NOT NULL,
            winner VARCHAR(255) NOT NULL DEFAULT '',
            answer VARCHAR(255) NOT NULL,
            outcome VARCHAR(20) NOT NULL,
            scores JSONB NOT NULL DEFAULT '[]',
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS room_snapshots (
            id SERIAL PRIMARY KEY,
            room_id VARCHAR(6) UNIQUE NOT NULL,
            phase VARCHAR(20) NOT NULL,
            question TEXT NOT NULL DEFAULT '',
            participants JSONB NOT NULL DEFAULT '[]',
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE INDEX IF NOT EXISTS idx_round_records_room_id ON round_records(room_id);
        CREATE INDEX IF NOT EXISTS idx_round_records_winner ON round_records(winner);
        CREATE INDEX IF NOT EXISTS idx_room_snapshots_room_id ON room_snapshots(room_id);
    `)

	return err
}

// SaveRoomSnapshot 保存房间快照（UPSERT）
func (p *PostgreSQL) SaveRoomSnapshot(snap *models.RoomSnapshot) error {
	participants, err := json.Marshal(snap.Participants)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        INSERT INTO room_snapshots (room_id, phase, question, participants)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (room_id)
        DO UPDATE SET phase = $2, question = $3, participants = $4, updated_at = CURRENT_TIMESTAMP
    `

	_, err = p.db.ExecContext(ctx, query, snap.RoomID, snap.Phase, snap.Question, participants)
	return err
}

// LoadRoomSnapshot 加载房间快照
func (p *PostgreSQL) LoadRoomSnapshot(roomID string) (*models.RoomSnapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var (
		snap         models.RoomSnapshot
		participants []byte
	)
	query := `SELECT room_id, phase, question, participants, updated_at FROM room_snapshots WHERE room_id = $1`
	err := p.db.QueryRowContext(ctx, query, roomID).Scan(
		&snap.RoomID, &snap.Phase, &snap.Question, &participants, &snap.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(participants, &snap.Participants); err != nil {
		return nil, err
	}
	return &snap, nil
}

// DeleteRoomSnapshot 删除房间快照
func (p *PostgreSQL) DeleteRoomSnapshot(roomID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := p.db.ExecContext(ctx, `DELETE FROM room_snapshots WHERE room_id = $1`, roomID)
	return err
}

// SaveRoundRecord 保存回合存档
func (p *PostgreSQL) SaveRoundRecord(rec *models.RoundRecord) error {
	scores, err := json.Marshal(rec.Scores)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        INSERT INTO round_records (room_id, winner, answer, outcome, scores)
        VALUES ($1, $2, $3, $4, $5)
    `

	_, err = p.db.ExecContext(ctx, query, rec.RoomID, rec.Winner, rec.Answer, rec.Outcome, scores)
	return err
}

// PlayerStats 按昵称聚合回合存档
func (p *PostgreSQL) PlayerStats(name string) (*models.PlayerStats, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats := models.PlayerStats{Name: name}

	// scores 里出现过该昵称的回合都算参与过
	query := `
        SELECT
            COUNT(*) FILTER (WHERE scores @> $2::jsonb) as rounds_played,
            COUNT(*) FILTER (WHERE winner = $1) as rounds_won
        FROM round_records
    `
	member := fmt.Sprintf(`[{"name": %q}]`, name)
	err := p.db.QueryRowContext(ctx, query, name, member).Scan(&stats.RoundsPlayed, &stats.RoundsWon)
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
