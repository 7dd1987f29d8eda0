// broadcast/broadcast.go
package broadcast

import (
	"encoding/json"

	"github.com/wfunc/quizroom/game"
	"github.com/wfunc/quizroom/logger"
	"github.com/wfunc/quizroom/network"
	"github.com/wfunc/quizroom/session"
)

// RoomBroadcaster delivers game events to every session bound to a room.
// It implements game.Gateway.
type RoomBroadcaster struct {
	sessions *session.Manager
}

func NewRoomBroadcaster(sessions *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{sessions: sessions}
}

func (b *RoomBroadcaster) RosterChanged(roomID string, roster []game.RosterEntry) {
	b.send(roomID, network.MsgTypeRosterChanged, roster)
}

func (b *RoomBroadcaster) ChatChanged(roomID string, chat []game.ChatEntry) {
	b.send(roomID, network.MsgTypeChatChanged, chat)
}

func (b *RoomBroadcaster) RoundStarted(roomID string, question string) {
	b.send(roomID, network.MsgTypeRoundStarted, map[string]string{"question": question})
}

func (b *RoomBroadcaster) RoundWon(roomID string, result game.RoundResult) {
	b.send(roomID, network.MsgTypeRoundWon, result)
}

func (b *RoomBroadcaster) RoundTimedOut(roomID string, answer string) {
	b.send(roomID, network.MsgTypeRoundTimedOut, map[string]string{"answer": answer})
}

func (b *RoomBroadcaster) send(roomID string, msgID uint16, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Errorf("Failed to marshal event %d for room %s: %v", msgID, roomID, err)
		return
	}

	for _, s := range b.sessions.GetByRoom(roomID) {
		if err := s.Send(msgID, data); err != nil {
			// 发送失败，连接的读循环会负责清理
			continue
		}
	}
}
