package chat

import (
	"sync"
	"time"
)

// manualScheduler holds callbacks until the test fires them.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (m *manualScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	t := &manualTimer{delay: d, fn: fn}
	m.mu.Lock()
	m.timers = append(m.timers, t)
	m.mu.Unlock()
	return t
}

// FireNext runs the oldest live timer and reports whether one existed.
func (m *manualScheduler) FireNext() bool {
	m.mu.Lock()
	var next *manualTimer
	for _, t := range m.timers {
		t.mu.Lock()
		live := !t.stopped && !t.fired
		if live {
			t.fired = true
		}
		t.mu.Unlock()
		if live {
			next = t
			break
		}
	}
	m.mu.Unlock()

	if next == nil {
		return false
	}
	next.fn()
	return true
}

func (m *manualScheduler) FireAll() {
	for m.FireNext() {
	}
}

func (m *manualScheduler) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		t.mu.Lock()
		if !t.stopped && !t.fired {
			n++
		}
		t.mu.Unlock()
	}
	return n
}
