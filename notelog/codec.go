// Package notelog implements the per-note, per-writer append-only update
// log: the packed-file/meta-file codec, the flush strategies that decide
// when buffered updates become a file, and the Update Store that ties
// them together.
package notelog

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// EncodeUpdate / DecodeUpdate round-trip an opaque update's bytes to and
// from the base64 string stored in a packed file's "updates" array.
// decode(encode(b)) == b for all b (testable property P2).
func EncodeUpdate(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func DecodeUpdate(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode update: %w", err)
	}
	return b, nil
}

// PackedFile is the on-disk JSON envelope for one or more consecutive
// updates from one writer for one note.
type PackedFile struct {
	Instance  string    `json:"instance"`
	Sequence  [2]uint64 `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	Updates   []string  `json:"updates"`
}

// StartSeq / EndSeq read the inclusive sequence range out of Sequence.
func (p PackedFile) StartSeq() uint64 { return p.Sequence[0] }
func (p PackedFile) EndSeq() uint64   { return p.Sequence[1] }

// MetaFile is the per (note, writer) bookkeeping record: the writer's own
// last emitted sequence, and its seen-vector over every writer it has
// consumed from (including itself).
type MetaFile struct {
	InstanceID  string           `json:"instanceId"`
	LastWrite   uint64           `json:"lastWrite"`
	Seen        map[string]uint64 `json:"seen"`
	LastUpdated time.Time        `json:"lastUpdated"`
}

// updateFilenamePattern implements spec.md §4.2's grammar:
// <instanceId> "." <startSeq:%06d> ("-" <endSeq:%06d>)? ".yjson"
var updateFilenamePattern = regexp.MustCompile(`^(.+)\.(\d+)(?:-(\d+))?\.yjson$`)

// parsedFilename is the result of successfully parsing an update log
// filename.
type parsedFilename struct {
	Instance string
	Start    uint64
	End      uint64
}

// parseUpdateFilename parses an update-log filename per spec.md §4.2.
// Names that don't match the grammar are not an error — the caller should
// silently ignore them (spec.md §7 kind 4: "parse-failing filenames").
func parseUpdateFilename(name string) (parsedFilename, bool) {
	m := updateFilenamePattern.FindStringSubmatch(name)
	if m == nil {
		return parsedFilename{}, false
	}

	start, err := strconv.ParseUint(m[2], 10, 64)
	if err != nil {
		return parsedFilename{}, false
	}

	end := start
	if m[3] != "" {
		end, err = strconv.ParseUint(m[3], 10, 64)
		if err != nil {
			return parsedFilename{}, false
		}
	}

	return parsedFilename{Instance: m[1], Start: start, End: end}, true
}

// updateFilename formats a packed file's name. Start/end are zero-padded
// to six digits for lexicographic-equals-numeric sort up to 10^6 updates
// per writer; callers must not assume that bound caps a writer's
// lifetime — parsing is always numeric, never string-compared beyond
// this formatting convenience.
func updateFilename(instanceID string, start, end uint64) string {
	if start == end {
		return fmt.Sprintf("%s.%06d.yjson", instanceID, start)
	}
	return fmt.Sprintf("%s.%06d-%06d.yjson", instanceID, start, end)
}

func updatesDir(notesRoot, noteID string) string {
	return notesRoot + "/" + noteID + "/updates"
}

func metaDir(notesRoot, noteID string) string {
	return notesRoot + "/" + noteID + "/meta"
}

func metaPath(notesRoot, noteID, instanceID string) string {
	return metaDir(notesRoot, noteID) + "/" + instanceID + ".json"
}
