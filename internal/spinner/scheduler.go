package spinner

import "time"

// Timer is a pending completion that can be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler arms the one-shot completion callback for a spin.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealScheduler uses the runtime timer.
func RealScheduler() Scheduler { return realScheduler{} }
