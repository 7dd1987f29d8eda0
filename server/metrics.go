// server/metrics.go
package server

import (
	"sync"
	"time"

	"github.com/wfunc/quizroom/game"
	"github.com/wfunc/quizroom/monitor"
)

// metricsGateway counts round events and measures round length on their way
// to the broadcaster.
type metricsGateway struct {
	inner   game.Gateway
	monitor *monitor.Monitor

	mutex  sync.Mutex
	starts map[string]time.Time // roomID -> round start
}

func newMetricsGateway(inner game.Gateway, m *monitor.Monitor) *metricsGateway {
	return &metricsGateway{
		inner:   inner,
		monitor: m,
		starts:  make(map[string]time.Time),
	}
}

func (g *metricsGateway) RosterChanged(roomID string, roster []game.RosterEntry) {
	g.inner.RosterChanged(roomID, roster)
}

func (g *metricsGateway) ChatChanged(roomID string, chat []game.ChatEntry) {
	g.inner.ChatChanged(roomID, chat)
}

func (g *metricsGateway) RoundStarted(roomID string, question string) {
	g.monitor.IncRoundsStarted()
	g.mutex.Lock()
	g.starts[roomID] = time.Now()
	g.mutex.Unlock()
	g.inner.RoundStarted(roomID, question)
}

func (g *metricsGateway) RoundWon(roomID string, result game.RoundResult) {
	g.monitor.IncRoundsWon()
	g.observe(roomID)
	g.inner.RoundWon(roomID, result)
}

func (g *metricsGateway) RoundTimedOut(roomID string, answer string) {
	g.monitor.IncRoundsTimedOut()
	g.observe(roomID)
	g.inner.RoundTimedOut(roomID, answer)
}

func (g *metricsGateway) observe(roomID string) {
	g.mutex.Lock()
	start, ok := g.starts[roomID]
	delete(g.starts, roomID)
	g.mutex.Unlock()
	if ok {
		g.monitor.ObserveRoundDuration(time.Since(start))
	}
}
