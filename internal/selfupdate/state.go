// SPDX-License-Identifier: MPL-2.0

package selfupdate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// StateFileName is the file holding the result of the last update check.
const StateFileName = "state.toml"

type (
	// CheckState records the outcome of the most recent check so later
	// invocations can mention a pending update without touching the network.
	CheckState struct {
		LastChecked     time.Time `toml:"last_checked"`
		CurrentVersion  string    `toml:"current_version"`
		LatestVersion   string    `toml:"latest_version"`
		UpdateAvailable bool      `toml:"update_available"`
	}

	// StateStore persists CheckState as TOML in a directory.
	StateStore struct {
		dir string
	}
)

// NewStateStore returns a store writing to dir/state.toml.
func NewStateStore(dir string) *StateStore {
	return &StateStore{dir: dir}
}

// Path returns the state file location.
func (s *StateStore) Path() string {
	return filepath.Join(s.dir, StateFileName)
}

// Load reads the stored state. A missing file yields (nil, nil).
func (s *StateStore) Load() (*CheckState, error) {
	data, err := os.ReadFile(s.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading update state: %w", err)
	}

	var st CheckState
	if err := toml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing update state %s: %w", s.Path(), err)
	}
	return &st, nil
}

// Save writes st, creating the directory if needed.
func (s *StateStore) Save(st CheckState) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	data, err := toml.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding update state: %w", err)
	}
	if err := os.WriteFile(s.Path(), data, 0o644); err != nil {
		return fmt.Errorf("writing update state: %w", err)
	}
	return nil
}

// CheckStateOf captures res for the state file.
func CheckStateOf(res *VersionCheckResult) CheckState {
	return CheckState{
		LastChecked:     res.CheckedAt,
		CurrentVersion:  res.CurrentVersion,
		LatestVersion:   res.LatestVersion,
		UpdateAvailable: res.UpdateAvailable,
	}
}

// PendingUpdate reports whether st records a release newer than current.
func (st *CheckState) PendingUpdate(current string) bool {
	if st == nil || st.LatestVersion == "" {
		return false
	}
	return IsNewer(st.LatestVersion, current)
}
