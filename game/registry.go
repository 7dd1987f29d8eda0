// game/registry.go
package game

import (
	"sync"

	"github.com/wfunc/quizroom/timer"
)

// Registry 管理所有房间。目录操作（创建、查找、删除）在自己的读写锁下
// 并发安全；每个房间的内部修改由房间自身的互斥锁串行化。
type Registry struct {
	rooms    map[string]*Room
	mutex    sync.RWMutex
	gateway  Gateway
	timers   *timer.Manager
	settings Settings
}

// NewRegistry creates an empty registry.
func NewRegistry(gateway Gateway, timers *timer.Manager, settings Settings) *Registry {
	return &Registry{
		rooms:    make(map[string]*Room),
		gateway:  gateway,
		timers:   timers,
		settings: settings,
	}
}

// CreateRoom allocates a fresh room id, builds a lobby room with the caller
// as master and returns the id. The master is seated before the room enters
// the map: a concurrent Join must never observe a masterless lobby.
func (reg *Registry) CreateRoom(identity, name string) (string, error) {
	reg.mutex.Lock()
	defer reg.mutex.Unlock()

	id, err := reg.newRoomIDLocked()
	if err != nil {
		return "", err
	}
	room := newRoom(id, reg.gateway, reg.timers, reg.settings)
	room.create(identity, name)
	reg.rooms[id] = room
	return id, nil
}

// Join adds a participant to a lobby room.
func (reg *Registry) Join(roomID, identity, name string) error {
	room, exists := reg.Room(roomID)
	if !exists {
		return ErrRoomNotFound
	}
	return room.join(identity, name)
}

// Leave removes a participant. Unknown rooms and unknown identities are
// no-ops. The room is deleted the moment its last participant departs.
func (reg *Registry) Leave(roomID, identity string) {
	room, exists := reg.Room(roomID)
	if !exists {
		return
	}
	if room.leave(identity) {
		reg.remove(roomID, room)
	}
}

// SetQuestion routes the command to the addressed room.
func (reg *Registry) SetQuestion(roomID, identity, question, answer string) error {
	room, exists := reg.Room(roomID)
	if !exists {
		return ErrRoomNotFound
	}
	return room.SetQuestion(identity, question, answer)
}

// Start routes the command to the addressed room.
func (reg *Registry) Start(roomID, identity string) error {
	room, exists := reg.Room(roomID)
	if !exists {
		return ErrRoomNotFound
	}
	return room.Start(identity)
}

// Guess routes the command to the addressed room.
func (reg *Registry) Guess(roomID, identity, text string) (GuessResult, error) {
	room, exists := reg.Room(roomID)
	if !exists {
		return GuessResult{}, ErrRoomNotFound
	}
	return room.Guess(identity, text)
}

// Room looks up a room by id.
func (reg *Registry) Room(roomID string) (*Room, bool) {
	reg.mutex.RLock()
	defer reg.mutex.RUnlock()
	room, exists := reg.rooms[roomID]
	return room, exists
}

// Count returns the number of live rooms.
func (reg *Registry) Count() int {
	reg.mutex.RLock()
	defer reg.mutex.RUnlock()
	return len(reg.rooms)
}

// RoomIDs returns the ids of all live rooms.
func (reg *Registry) RoomIDs() []string {
	reg.mutex.RLock()
	defer reg.mutex.RUnlock()
	ids := make([]string, 0, len(reg.rooms))
	for id := range reg.rooms {
		ids = append(ids, id)
	}
	return ids
}

// remove deletes the entry only if it still maps to the emptied room, so a
// recycled id is never torn down by a stale deletion.
func (reg *Registry) remove(roomID string, room *Room) {
	reg.mutex.Lock()
	defer reg.mutex.Unlock()
	if current, exists := reg.rooms[roomID]; exists && current == room {
		delete(reg.rooms, roomID)
	}
}
