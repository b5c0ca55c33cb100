package notelog

import "github.com/pkg/errors"

// The store never returns these for "a file was unparseable" or "a peer
// was unknown" — those are handled as ordinary control flow per spec.md
// §7 (skip-with-WARN, treat-seen-as-zero). They exist for the cases that
// genuinely are exceptional: I/O failure during a synchronous flush, and
// a caller misusing a store after Cleanup.

// ErrIOFailure wraps a transient I/O failure (permission denied, disk
// full, lock contention) surfaced by the filesystem capability. Store.Flush
// wraps it around the packed-file write's underlying error so callers can
// use errors.Is(err, ErrIOFailure) instead of matching on a raw fsys error.
var ErrIOFailure = errors.New("notelog: I/O failure")

// ErrClosed is returned by operations on a note whose store state has
// already been cleaned up (spec.md §7 kind 5, "programming error").
var ErrClosed = errors.New("notelog: store state closed")
