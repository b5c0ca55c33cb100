package notelog

// FlushDecision is the information a Strategy needs to decide whether the
// pending buffer should become a file right now.
type FlushDecision struct {
	UpdateCount     int
	TotalBytes      int
	FirstUpdateTime int64 // unix nanos; Store.AddUpdate leaves it 0, and no strategy here reads it
}

// Strategy decides when buffered updates become a packed file. It carries
// no state: an Idle strategy only supplies the delay for the idle timer
// that the store arms and owns; the decision itself is a pure function of
// the counters the store already tracks, so Strategy carries no mutable
// counters — the store is
// the single source of truth for pendingUpdates/pendingStartSeq (spec.md
// §4.3: "the store is responsible for the timer; the strategy only
// advises").
type Strategy interface {
	// ShouldFlush reports whether the store should flush right now, given
	// the current state of its pending buffer.
	ShouldFlush(d FlushDecision) bool
	// UsesIdleTimer reports whether the store should (re)arm an idle timer
	// after a call to AddUpdate that did not flush.
	UsesIdleTimer() bool
	// IdleDelay is the idle timeout to use when UsesIdleTimer is true.
	IdleDelay() int64 // milliseconds
}

const (
	defaultMaxUpdates = 100
	defaultMaxBytes   = 1 << 20 // 1 MiB
	defaultIdleMs     = 3000
)

// idleStrategy flushes once updateCount or totalBytes crosses a
// threshold, and otherwise leaves an idle timer (owned by the store) to
// fire after idleMs of inactivity.
type idleStrategy struct {
	maxUpdates int
	maxBytes   int
	idleMs     int64
}

// NewIdleStrategy returns the Idle variant from spec.md §4.3. A zero
// argument selects that field's documented default.
func NewIdleStrategy(maxUpdates, maxBytes int, idleMs int64) Strategy {
	if maxUpdates <= 0 {
		maxUpdates = defaultMaxUpdates
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	if idleMs <= 0 {
		idleMs = defaultIdleMs
	}
	return &idleStrategy{maxUpdates: maxUpdates, maxBytes: maxBytes, idleMs: idleMs}
}

func (s *idleStrategy) ShouldFlush(d FlushDecision) bool {
	return d.UpdateCount >= s.maxUpdates || d.TotalBytes >= s.maxBytes
}

func (s *idleStrategy) UsesIdleTimer() bool { return true }
func (s *idleStrategy) IdleDelay() int64    { return s.idleMs }

// immediateStrategy always flushes.
type immediateStrategy struct{}

// NewImmediateStrategy returns the Immediate variant from spec.md §4.3.
func NewImmediateStrategy() Strategy { return immediateStrategy{} }

func (immediateStrategy) ShouldFlush(FlushDecision) bool { return true }
func (immediateStrategy) UsesIdleTimer() bool            { return false }
func (immediateStrategy) IdleDelay() int64               { return 0 }

// countStrategy flushes once updateCount reaches n.
type countStrategy struct{ n int }

// NewCountStrategy returns the Count(n) variant from spec.md §4.3.
func NewCountStrategy(n int) Strategy {
	if n <= 0 {
		n = 1
	}
	return countStrategy{n: n}
}

func (s countStrategy) ShouldFlush(d FlushDecision) bool { return d.UpdateCount >= s.n }
func (countStrategy) UsesIdleTimer() bool                { return false }
func (countStrategy) IdleDelay() int64                   { return 0 }
