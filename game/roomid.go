// game/roomid.go
package game

import (
	"math/rand/v2"
	"strings"
)

// Room ids are short codes players type by hand, so the alphabet sticks to
// uppercase letters and digits.
const (
	roomIDLength   = 6
	roomIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// 36^6 ids; hitting this many collisions means the registry is full
	// beyond any realistic deployment.
	maxRoomIDDraws = 100
)

func randomRoomID() string {
	var b strings.Builder
	b.Grow(roomIDLength)
	for i := 0; i < roomIDLength; i++ {
		b.WriteByte(roomIDAlphabet[rand.IntN(len(roomIDAlphabet))])
	}
	return b.String()
}

// newRoomIDLocked draws ids until one is unused. Caller must hold reg.mutex.
func (reg *Registry) newRoomIDLocked() (string, error) {
	for i := 0; i < maxRoomIDDraws; i++ {
		id := randomRoomID()
		if _, taken := reg.rooms[id]; !taken {
			return id, nil
		}
	}
	return "", ErrRoomIDExhausted
}
