package editor

import (
	"log"
	"sync"
	"time"
)

// ─────────────────────────────────────────────────────────────
// Scheduler — debounced persistence of a value stream
// ─────────────────────────────────────────────────────────────

// DefaultDebounceDelay is the quiet period before a settled value is
// persisted.
const DefaultDebounceDelay = 500 * time.Millisecond

// Scheduler coalesces a stream of value updates into at most one
// persist call per quiet period. Values are told apart by identity:
// every Observe call is a new revision, and a revision is persisted at
// most once regardless of the persist outcome. Deep equality is never
// consulted; two Observe calls with equal values are two revisions.
type Scheduler[T any] struct {
	mu      sync.Mutex
	delay   time.Duration
	persist func(T) error

	timer    *time.Timer
	cur      T
	curRev   uint64
	savedRev uint64
	primed   bool
}

// NewScheduler creates a Scheduler that calls persist with the settled
// value after delay of quiescence. A non-positive delay falls back to
// DefaultDebounceDelay.
func NewScheduler[T any](delay time.Duration, persist func(T) error) *Scheduler[T] {
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}
	return &Scheduler[T]{delay: delay, persist: persist}
}

// Observe records a new value. The very first value is the baseline
// and is never persisted (the initial load must not be written back).
// Any later value cancels the pending timer and schedules a fresh one.
func (s *Scheduler[T]) Observe(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.curRev++
	s.cur = v

	if !s.primed {
		s.primed = true
		s.savedRev = s.curRev
		return
	}

	if s.timer != nil {
		s.timer.Stop()
	}
	rev := s.curRev
	s.timer = time.AfterFunc(s.delay, func() { s.fire(rev) })
}

// fire runs when the debounce timer elapses.
func (s *Scheduler[T]) fire(rev uint64) {
	s.mu.Lock()
	if rev != s.curRev || s.curRev == s.savedRev {
		// Superseded by a newer value, or already persisted.
		s.mu.Unlock()
		return
	}
	v := s.cur
	s.savedRev = s.curRev
	s.mu.Unlock()

	// At-most-once per settled value: the revision is marked persisted
	// before the callback runs, and a failure is logged, not retried.
	// The next settling value is the only recovery path.
	if err := s.persist(v); err != nil {
		log.Printf("editor: persist failed: %v", err)
	}
}

// Flush cancels the pending timer and, if the current value has not
// been persisted yet, persists it synchronously. Calling Flush again
// with no intervening Observe does nothing.
func (s *Scheduler[T]) Flush() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if !s.primed || s.curRev == s.savedRev {
		s.mu.Unlock()
		return nil
	}
	v := s.cur
	s.savedRev = s.curRev
	s.mu.Unlock()

	return s.persist(v)
}

// Reset adopts v as the persisted baseline: the pending timer is
// cancelled and v will not be written unless a newer value is
// observed. Used after a reconciling reload, which must not be
// persisted back (same rule as the initial load).
func (s *Scheduler[T]) Reset(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.curRev++
	s.cur = v
	s.savedRev = s.curRev
	s.primed = true
}

// Stop cancels any pending timer. In-flight persist calls are not
// interrupted.
func (s *Scheduler[T]) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
