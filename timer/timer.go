// timer/timer.go
package timer

import (
	"container/heap"
	"sync"
	"time"
)

// task is a single-fire scheduled callback.
type task struct {
	id       int64
	fireAt   time.Time
	callback func()
	index    int
}

type taskQueue []*task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	return q[i].fireAt.Before(q[j].fireAt)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x interface{}) {
	n := len(*q)
	t := x.(*task)
	t.index = n
	*q = append(*q, t)
}

func (q *taskQueue) Pop() interface{} {
	old := *q
	n := len(old)
	t := old[n-1]
	t.index = -1
	*q = old[0 : n-1]
	return t
}

// Manager schedules single-fire delayed callbacks. Each Schedule call
// returns a Handle whose Cancel is idempotent and safe after the fire.
type Manager struct {
	queue   taskQueue
	pending map[int64]*task
	mutex   sync.Mutex
	nextID  int64
	done    chan struct{}
	once    sync.Once
}

func NewManager() *Manager {
	m := &Manager{
		queue:   make(taskQueue, 0),
		pending: make(map[int64]*task),
		nextID:  1,
		done:    make(chan struct{}),
	}
	heap.Init(&m.queue)
	go m.process()
	return m
}

// Schedule registers callback to run once after delay.
func (m *Manager) Schedule(delay time.Duration, callback func()) *Handle {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	t := &task{
		id:       m.nextID,
		fireAt:   time.Now().Add(delay),
		callback: callback,
	}
	m.nextID++

	heap.Push(&m.queue, t)
	m.pending[t.id] = t
	return &Handle{manager: m, id: t.id}
}

// Stop terminates the dispatch loop. Pending tasks never fire.
func (m *Manager) Stop() {
	m.once.Do(func() { close(m.done) })
}

func (m *Manager) cancel(id int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	t, ok := m.pending[id]
	if !ok {
		// Already fired or already cancelled.
		return
	}
	delete(m.pending, id)
	if t.index >= 0 {
		heap.Remove(&m.queue, t.index)
	}
}

// collectDue pops every task whose deadline has passed. A task popped here
// is removed from pending before its callback runs, so a Cancel racing with
// the fire resolves at the caller: whoever holds the room lock first wins.
func (m *Manager) collectDue(now time.Time) []*task {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var due []*task
	for m.queue.Len() > 0 {
		t := m.queue[0]
		if t.fireAt.After(now) {
			break
		}
		heap.Pop(&m.queue)
		delete(m.pending, t.id)
		due = append(due, t)
	}
	return due
}

func (m *Manager) process() {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			for _, t := range m.collectDue(now) {
				go t.callback()
			}
		case <-m.done:
			return
		}
	}
}

// Handle identifies one scheduled callback.
type Handle struct {
	manager *Manager
	id      int64
}

// Cancel removes the callback if it has not fired yet. Calling it after the
// fire, or more than once, is a no-op.
func (h *Handle) Cancel() {
	h.manager.cancel(h.id)
}
