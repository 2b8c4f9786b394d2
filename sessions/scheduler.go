package sessions

import (
	"sync"
	"time"

	"github.com/coder/quartz"
)

type scheduledTask struct {
	gen   uint64
	timer *quartz.Timer
}

// Scheduler runs one delayed callback per key. Rescheduling a key cancels
// its previous callback; a callback that fires after being superseded is
// dropped. Callbacks must still re-validate the nonce they were armed
// with, since a superseded callback may already be running.
type Scheduler struct {
	clock quartz.Clock

	mu    sync.Mutex
	gen   uint64
	tasks map[string]scheduledTask
}

// NewScheduler creates a scheduler on clock
func NewScheduler(clock quartz.Clock) *Scheduler {
	return &Scheduler{
		clock: clock,
		tasks: make(map[string]scheduledTask),
	}
}

// Schedule arms fn(nonce) to run after d, replacing any task for key
func (s *Scheduler) Schedule(key, nonce string, d time.Duration, fn func(nonce string)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.tasks[key]; ok {
		prev.timer.Stop()
	}
	s.scheduleLocked(key, nonce, d, fn)
}

// ScheduleIfIdle arms fn(nonce) only when key has no armed task. It reports
// whether the task was armed.
func (s *Scheduler) ScheduleIfIdle(key, nonce string, d time.Duration, fn func(nonce string)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[key]; ok {
		return false
	}
	s.scheduleLocked(key, nonce, d, fn)
	return true
}

func (s *Scheduler) scheduleLocked(key, nonce string, d time.Duration, fn func(nonce string)) {
	s.gen++
	gen := s.gen
	timer := s.clock.AfterFunc(d, func() {
		if !s.claim(key, gen) {
			return
		}
		fn(nonce)
	}, "sessions", "expiry")
	s.tasks[key] = scheduledTask{gen: gen, timer: timer}
}

// claim removes the task for key if it is still generation gen
func (s *Scheduler) claim(key string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[key]
	if !ok || task.gen != gen {
		return false
	}
	delete(s.tasks, key)
	return true
}

// Cancel stops the task for key, if any
func (s *Scheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task, ok := s.tasks[key]; ok {
		task.timer.Stop()
		delete(s.tasks, key)
	}
}

// Pending returns the number of armed tasks
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
