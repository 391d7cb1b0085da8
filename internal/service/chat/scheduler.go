package chat

import "time"

// Timer is a pending one-shot callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs fn once after d elapses, on a goroutine other than the caller's.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// RealScheduler schedules callbacks on the runtime timer heap.
type RealScheduler struct{}

// AfterFunc wraps time.AfterFunc.
func (RealScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
