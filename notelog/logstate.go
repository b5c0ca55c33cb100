package notelog

import (
	"sync"
	"time"
)

// logState is one note's in-memory bookkeeping inside the store (spec.md
// §4.4). pendingStartSeq is nil iff pendingUpdates is empty — represented
// here with a bool flag instead of a pointer for clarity.
type logState struct {
	mu sync.Mutex

	writeCounter uint64
	seen         map[string]uint64

	pendingUpdates  [][]byte
	pendingStartSeq uint64
	havePending     bool

	strategy   Strategy
	flushTimer *time.Timer

	initialized bool
	closed      bool
}

func newLogState(strategy Strategy) *logState {
	return &logState{
		seen:     make(map[string]uint64),
		strategy: strategy,
	}
}

func (s *logState) pendingBytes() int {
	total := 0
	for _, u := range s.pendingUpdates {
		total += len(u)
	}
	return total
}

func (s *logState) cancelTimerLocked() {
	if s.flushTimer != nil {
		s.flushTimer.Stop()
		s.flushTimer = nil
	}
}
