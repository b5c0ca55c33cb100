package notelog

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/drewcsillag/notecove-sub008/fsys"
	"github.com/drewcsillag/notecove-sub008/internal/zlog"
)

// UpdateRecord is one decoded update, tagged with who wrote it and at what
// sequence number — the shape ReadAllUpdates/ReadNewUpdates emit.
type UpdateRecord struct {
	InstanceID string
	Sequence   uint64
	Update     []byte
}

// Store produces and consumes packed/meta files for a set of notes. One
// Store is owned per process (per spec.md's "SyncManager owns exactly one
// UpdateStore"); it multiplexes many notes by noteID.
type Store struct {
	fs         fsys.FS
	notesRoot  string
	instanceID string
	strategy   Strategy
	log        *zap.Logger

	mu    sync.Mutex
	notes map[string]*logState
}

// NewStore constructs a Store. strategy is shared across every note the
// store handles — the Idle/Immediate/Count variants carry no per-note
// mutable state (the timer and pending buffer live in each note's
// logState), so one Strategy value is safe to reuse.
func NewStore(fs fsys.FS, notesRoot, instanceID string, strategy Strategy) *Store {
	return &Store{
		fs:         fs,
		notesRoot:  notesRoot,
		instanceID: instanceID,
		strategy:   strategy,
		log:        zlog.Named("notelog"),
		notes:      make(map[string]*logState),
	}
}

func (s *Store) stateFor(noteID string) *logState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.notes[noteID]
	if !ok {
		st = newLogState(s.strategy)
		s.notes[noteID] = st
	}
	return st
}

// Initialize loads <notesRoot>/<noteId>/meta/<self>.json if present,
// seeding writeCounter and seen from it. Corruption or absence seeds both
// to zero/empty rather than failing — corruption tolerance is a hard
// requirement (spec.md §4.5). Idempotent: calling it again is a no-op
// once the note has in-memory state.
func (s *Store) Initialize(noteID string) error {
	st := s.stateFor(noteID)

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.initialized {
		return nil
	}
	st.initialized = true

	path := metaPath(s.notesRoot, noteID, s.instanceID)
	data, err := s.fs.ReadFile(path)
	if err != nil {
		// Absent meta is expected for a brand-new note; anything else is
		// still corruption-tolerant per spec.md §4.5.
		return nil
	}

	var meta MetaFile
	if err := json.Unmarshal(data, &meta); err != nil {
		s.log.Warn("corrupt meta file, starting from empty state",
			zap.String("note", noteID), zap.Error(err))
		return nil
	}

	st.writeCounter = meta.LastWrite
	if meta.Seen != nil {
		st.seen = meta.Seen
	}
	return nil
}

// AddUpdate buffers an update for noteID, claims its pending start
// sequence if the buffer was empty, and flushes synchronously if the
// strategy says to. It returns whether a flush happened.
func (s *Store) AddUpdate(noteID string, update []byte) (bool, error) {
	st := s.stateFor(noteID)

	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		return false, ErrClosed
	}

	if !st.havePending {
		st.pendingStartSeq = st.writeCounter + 1
		st.havePending = true
	}
	st.pendingUpdates = append(st.pendingUpdates, update)

	decision := FlushDecision{
		UpdateCount: len(st.pendingUpdates),
		TotalBytes:  st.pendingBytes(),
	}
	shouldFlush := st.strategy.ShouldFlush(decision)
	st.mu.Unlock()

	if shouldFlush {
		return s.Flush(noteID)
	}

	s.armIdleTimer(noteID, st)
	return false, nil
}

func (s *Store) armIdleTimer(noteID string, st *logState) {
	if !st.strategy.UsesIdleTimer() {
		return
	}

	st.mu.Lock()
	st.cancelTimerLocked()
	delay := time.Duration(st.strategy.IdleDelay()) * time.Millisecond
	st.flushTimer = time.AfterFunc(delay, func() {
		if _, err := s.Flush(noteID); err != nil {
			s.log.Warn("idle flush failed", zap.String("note", noteID), zap.Error(err))
		}
	})
	st.mu.Unlock()
}

// Flush writes the pending buffer as a packed file. If the packed file
// write itself fails, Flush returns false (wrapping ErrIOFailure) without
// mutating writeCounter/pendingUpdates/pendingStartSeq/seen, so the
// caller may retry later with the buffer intact (spec.md §4.5). If the
// packed file write succeeds but the follow-up meta write fails, the
// flush still counts as done (true, nil): the data is durable and
// lastWrite/seen are recoverable per invariant 5, so there is nothing
// left in the buffer to usefully retry.
func (s *Store) Flush(noteID string) (bool, error) {
	st := s.stateFor(noteID)

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.closed {
		return false, ErrClosed
	}
	st.cancelTimerLocked()

	if !st.havePending || len(st.pendingUpdates) == 0 {
		return false, nil
	}

	startSeq := st.pendingStartSeq
	endSeq := startSeq + uint64(len(st.pendingUpdates)) - 1

	encoded := make([]string, len(st.pendingUpdates))
	for i, u := range st.pendingUpdates {
		encoded[i] = EncodeUpdate(u)
	}

	packed := PackedFile{
		Instance:  s.instanceID,
		Sequence:  [2]uint64{startSeq, endSeq},
		Timestamp: time.Now().UTC(),
		Updates:   encoded,
	}
	data, err := json.Marshal(packed)
	if err != nil {
		return false, err
	}

	path := updatesDir(s.notesRoot, noteID) + "/" + updateFilename(s.instanceID, startSeq, endSeq)
	if err := s.fs.WriteFile(path, data); err != nil {
		return false, errors.Wrap(ErrIOFailure, err.Error())
	}

	st.writeCounter = endSeq
	st.seen[s.instanceID] = endSeq
	st.pendingUpdates = nil
	st.pendingStartSeq = 0
	st.havePending = false

	// The packed file is already durable at this point; a failure here
	// only loses the cached lastWrite/seen (invariant 5: recoverable by
	// rescanning the writer's own update files), so the flush still
	// counts as done rather than asking the caller to redundantly retry.
	if err := s.writeMetaLocked(noteID, st); err != nil {
		s.log.Warn("meta write failed after successful flush",
			zap.String("note", noteID), zap.Error(err))
	}
	return true, nil
}

func (s *Store) writeMetaLocked(noteID string, st *logState) error {
	meta := MetaFile{
		InstanceID:  s.instanceID,
		LastWrite:   st.writeCounter,
		Seen:        st.seen,
		LastUpdated: time.Now().UTC(),
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return s.fs.WriteFile(metaPath(s.notesRoot, noteID, s.instanceID), data)
}

// ReadAllUpdates enumerates updates/ for noteID and returns every update
// from every writer, sorted by sequence ascending (ties broken by writer
// id). It does not consult or mutate seen. Used at cold start.
func (s *Store) ReadAllUpdates(noteID string) ([]UpdateRecord, error) {
	return s.readUpdates(noteID, nil)
}

// ReadNewUpdates is like ReadAllUpdates but skips anything already in
// seen, and advances seen for everything it emits, persisting the meta
// file if it emitted anything. Used during live sync.
func (s *Store) ReadNewUpdates(noteID string) ([]UpdateRecord, error) {
	st := s.stateFor(noteID)
	records, err := s.readUpdates(noteID, st)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return records, nil
	}

	st.mu.Lock()
	for _, r := range records {
		if r.Sequence > st.seen[r.InstanceID] {
			st.seen[r.InstanceID] = r.Sequence
		}
	}
	err = s.writeMetaLocked(noteID, st)
	st.mu.Unlock()
	return records, err
}

// readUpdates implements the shared body of ReadAllUpdates/ReadNewUpdates.
// When filterState is nil every update is emitted (ReadAllUpdates);
// otherwise entries already covered by filterState.seen are skipped
// (ReadNewUpdates).
func (s *Store) readUpdates(noteID string, filterState *logState) ([]UpdateRecord, error) {
	dir := updatesDir(s.notesRoot, noteID)
	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var records []UpdateRecord
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		parsed, ok := parseUpdateFilename(e.Name)
		if !ok {
			continue // spec.md §7 kind 4: silently ignored
		}

		if parsed.End < parsed.Start {
			s.log.Warn("packed file claims endSeq < startSeq, skipping",
				zap.String("note", noteID), zap.String("file", e.Name))
			continue
		}

		if filterState != nil {
			filterState.mu.Lock()
			already := parsed.End <= filterState.seen[parsed.Instance]
			filterState.mu.Unlock()
			if already {
				continue
			}
		}

		data, err := s.fs.ReadFile(dir + "/" + e.Name)
		if err != nil {
			s.log.Warn("failed to read packed file, skipping",
				zap.String("note", noteID), zap.String("file", e.Name), zap.Error(err))
			continue
		}

		var packed PackedFile
		if err := json.Unmarshal(data, &packed); err != nil {
			s.log.Warn("corrupt packed file, skipping",
				zap.String("note", noteID), zap.String("file", e.Name), zap.Error(err))
			continue
		}

		wantLen := int(packed.EndSeq()-packed.StartSeq()) + 1
		if len(packed.Updates) != wantLen {
			s.log.Warn("packed file update count does not match sequence range, skipping",
				zap.String("note", noteID), zap.String("file", e.Name))
			continue
		}

		for i, enc := range packed.Updates {
			seq := packed.StartSeq() + uint64(i)
			if filterState != nil {
				filterState.mu.Lock()
				already := seq <= filterState.seen[packed.Instance]
				filterState.mu.Unlock()
				if already {
					continue
				}
			}

			update, err := DecodeUpdate(enc)
			if err != nil {
				s.log.Warn("corrupt base64 update, skipping entry",
					zap.String("note", noteID), zap.String("file", e.Name))
				continue
			}

			records = append(records, UpdateRecord{
				InstanceID: packed.Instance,
				Sequence:   seq,
				Update:     update,
			})
		}
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Sequence != records[j].Sequence {
			return records[i].Sequence < records[j].Sequence
		}
		return records[i].InstanceID < records[j].InstanceID
	})

	return records, nil
}

// GetInstances lists writer ids known for noteID by enumerating meta/*.json.
func (s *Store) GetInstances(noteID string) ([]string, error) {
	entries, err := s.fs.ReadDir(metaDir(s.notesRoot, noteID))
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		const suffix = ".json"
		if len(e.Name) > len(suffix) && e.Name[len(e.Name)-len(suffix):] == suffix {
			ids = append(ids, e.Name[:len(e.Name)-len(suffix)])
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Cleanup cancels any idle timer and flushes pending updates for noteID.
// Safe to call on a note that was never initialized.
func (s *Store) Cleanup(noteID string) error {
	s.mu.Lock()
	st, ok := s.notes[noteID]
	s.mu.Unlock()
	if !ok {
		return nil
	}

	st.mu.Lock()
	st.cancelTimerLocked()
	hasPending := st.havePending && len(st.pendingUpdates) > 0
	st.mu.Unlock()

	if hasPending {
		if _, err := s.Flush(noteID); err != nil {
			return err
		}
	}

	st.mu.Lock()
	st.closed = true
	st.mu.Unlock()
	return nil
}
