package fsys

import "errors"

// ErrNotFound is returned (wrapped) by ReadFile when the target path does
// not exist, matching the Filesystem Capability's NotFound contract.
var ErrNotFound = errors.New("fsys: file not found")
