// Package config loads the process-wide settings spec.md §6 calls for: the
// notes root path and the writer/instance identity, both overridable by
// environment variable for library/daemon embedding that never touches the
// cobra CLI in cmd/notedump.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/drewcsillag/notecove-sub008/fsys"
)

const (
	envNotesRoot  = "NOTECOVE_ROOT"
	envInstanceID = "NOTECOVE_INSTANCE_ID"

	instanceIDFile = ".instance-id"
)

// Config is the settings a Manager needs to start: where notes live on disk
// and which writer identity this process's edits are tagged with.
type Config struct {
	NotesRoot  string
	InstanceID string
}

// Load populates a Config from the environment (spec.md §6 "Environment").
// NotesRoot defaults to the current directory if NOTECOVE_ROOT is unset.
// InstanceID defaults to NOTECOVE_INSTANCE_ID if set, otherwise to whatever
// is persisted at <NotesRoot>/.instance-id, generating and persisting a
// fresh one on first run — spec.md §3 calls the instance id "chosen once
// per application installation and persisted".
func Load(fs fsys.FS) (Config, error) {
	root := strings.TrimSpace(os.Getenv(envNotesRoot))
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Config{}, errors.Wrap(err, "config: resolve working directory")
		}
		root = wd
	}
	root = filepath.Clean(root)

	if err := fs.MkdirAll(root); err != nil {
		return Config{}, errors.Wrapf(err, "config: create notes root %q", root)
	}

	instanceID := strings.TrimSpace(os.Getenv(envInstanceID))
	if instanceID == "" {
		var err error
		instanceID, err = loadOrCreateInstanceID(fs, root)
		if err != nil {
			return Config{}, err
		}
	}

	return Config{NotesRoot: root, InstanceID: instanceID}, nil
}

func loadOrCreateInstanceID(fs fsys.FS, root string) (string, error) {
	path := filepath.Join(root, instanceIDFile)
	if fs.Exists(path) {
		data, err := fs.ReadFile(path)
		if err == nil {
			if id := strings.TrimSpace(string(data)); id != "" {
				return id, nil
			}
		}
		// Corrupt or empty file: fall through and regenerate, same
		// tolerance the rest of this module gives corrupt state.
	}

	id := uuid.NewString()
	if err := fs.WriteFile(path, []byte(id)); err != nil {
		return "", errors.Wrapf(err, "config: persist instance id to %q", path)
	}
	return id, nil
}
