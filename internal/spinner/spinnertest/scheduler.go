// Package spinnertest provides a hand-driven scheduler so spin completion
// can be fired deterministically in tests.
package spinnertest

import (
	"sync"
	"time"

	"github.com/DoyleJ11/wheel-spinner/internal/spinner"
)

type ManualScheduler struct {
	mu     sync.Mutex
	timers []*ManualTimer
}

type ManualTimer struct {
	s       *ManualScheduler
	After   time.Duration
	f       func()
	stopped bool
	fired   bool
}

var _ spinner.Scheduler = (*ManualScheduler)(nil)

func NewManualScheduler() *ManualScheduler { return &ManualScheduler{} }

func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) spinner.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &ManualTimer{s: s, After: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (t *ManualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	live := !t.stopped && !t.fired
	t.stopped = true
	return live
}

// Fire runs the callback if the timer is still live, like the runtime timer
// would. It reports whether the callback ran.
func (t *ManualTimer) Fire() bool {
	t.s.mu.Lock()
	if t.stopped || t.fired {
		t.s.mu.Unlock()
		return false
	}
	t.fired = true
	t.s.mu.Unlock()
	t.f()
	return true
}

// ForceFire runs the callback even if Stop was called, standing in for a
// timer that fired just before it was cancelled.
func (t *ManualTimer) ForceFire() {
	t.s.mu.Lock()
	t.fired = true
	t.s.mu.Unlock()
	t.f()
}

// Timers returns every timer armed so far, oldest first.
func (s *ManualScheduler) Timers() []*ManualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*ManualTimer(nil), s.timers...)
}

// Last returns the most recently armed timer or nil.
func (s *ManualScheduler) Last() *ManualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.timers) == 0 {
		return nil
	}
	return s.timers[len(s.timers)-1]
}

// FireAll fires every live timer and returns how many ran.
func (s *ManualScheduler) FireAll() int {
	n := 0
	for _, t := range s.Timers() {
		if t.Fire() {
			n++
		}
	}
	return n
}
