package timer

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestManager_Schedule(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	var fired atomic.Int32
	m.Schedule(50*time.Millisecond, func() {
		fired.Add(1)
	})

	deadline := time.After(2 * time.Second)
	for fired.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("Scheduled callback never fired")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// Single-fire: the callback must not run again.
	time.Sleep(200 * time.Millisecond)
	if n := fired.Load(); n != 1 {
		t.Errorf("Expected exactly one fire, got %d", n)
	}
}

func TestManager_Cancel(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	var fired atomic.Int32
	h := m.Schedule(100*time.Millisecond, func() {
		fired.Add(1)
	})
	h.Cancel()

	time.Sleep(400 * time.Millisecond)
	if n := fired.Load(); n != 0 {
		t.Errorf("Cancelled callback should not fire, got %d fires", n)
	}
}

func TestHandle_CancelIsIdempotent(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	h := m.Schedule(50*time.Millisecond, func() {})
	h.Cancel()
	h.Cancel()

	// Cancelling after the fire is also a no-op.
	var fired atomic.Int32
	h2 := m.Schedule(50*time.Millisecond, func() {
		fired.Add(1)
	})
	deadline := time.After(2 * time.Second)
	for fired.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("Callback never fired")
		case <-time.After(10 * time.Millisecond):
		}
	}
	h2.Cancel()
	h2.Cancel()
}

func TestManager_IndependentTimers(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	var first, second atomic.Int32
	h1 := m.Schedule(60*time.Millisecond, func() { first.Add(1) })
	m.Schedule(60*time.Millisecond, func() { second.Add(1) })
	h1.Cancel()

	time.Sleep(400 * time.Millisecond)
	if first.Load() != 0 {
		t.Error("Cancelled timer fired")
	}
	if second.Load() != 1 {
		t.Errorf("Expected surviving timer to fire once, got %d", second.Load())
	}
}

func TestManager_StopDropsPending(t *testing.T) {
	m := NewManager()

	var fired atomic.Int32
	m.Schedule(50*time.Millisecond, func() { fired.Add(1) })
	m.Stop()
	m.Stop() // idempotent

	time.Sleep(300 * time.Millisecond)
	if fired.Load() != 0 {
		t.Error("Stopped manager should not fire pending timers")
	}
}
