// persistence/interface.go
package persistence

import (
	"fmt"

	"github.com/wfunc/quizroom/models"
)

// Store 是直通持久化接口。游戏核心从不调用它；服务器在事后保存
// 快照和回合存档。
type Store interface {
	SaveRoomSnapshot(snap *models.RoomSnapshot) error
	LoadRoomSnapshot(roomID string) (*models.RoomSnapshot, error)
	DeleteRoomSnapshot(roomID string) error
	SaveRoundRecord(rec *models.RoundRecord) error
	PlayerStats(name string) (*models.PlayerStats, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)
