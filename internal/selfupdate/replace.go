// SPDX-License-Identifier: MPL-2.0

package selfupdate

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"

	"github.com/quillhq/quill/pkg/platform"
)

// BackupSuffix is appended to the executable path to form the backup path.
const BackupSuffix = ".old"

type (
	// Replacer swaps the executable at current for the file at newBinary.
	Replacer interface {
		Replace(newBinary, current string) error
	}

	// BackupReplacer renames the running executable to a ".old" backup,
	// copies the new binary into the vacated path, and removes the backup.
	//
	// If the copy fails after the rename, the live path is left empty and the
	// backup holds the only copy of the previous executable. The returned
	// *ReplaceError reports this with ExecutableMissing and BackupPath; no
	// automatic restore is attempted so recovery tooling finds the backup
	// where it expects it.
	BackupReplacer struct {
		Logger *log.Logger
		goos   string
	}

	// AtomicReplacer writes the new binary to a sibling temp file and renames
	// it over the live path, so the path is never empty.
	AtomicReplacer struct {
		Logger *log.Logger
		goos   string
	}
)

// BackupPath returns the backup location used for the executable at path.
func BackupPath(path string) string {
	return path + BackupSuffix
}

// Replace runs the five-step backup sequence. Each failing step aborts.
func (r BackupReplacer) Replace(newBinary, current string) error {
	goos := r.targetOS()
	backup := BackupPath(current)
	fail := func(step string, backupKept, missing bool, err error) error {
		return replaceFailure(step, current, backup, backupKept, missing, err)
	}

	mode := executableMode(current)

	// 1. Remove any backup left behind by an earlier run.
	if err := os.Remove(backup); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fail("removing stale backup", false, false, err)
	}

	// 2. Move the current executable aside.
	if err := os.Rename(current, backup); err != nil {
		return fail("backing up current executable", false, false, err)
	}

	// 3. Copy the new binary into the vacated path. From here until the copy
	// completes, the backup is the only copy of the previous executable.
	if err := copyFile(newBinary, current, mode); err != nil {
		return fail("installing new executable", true, true, err)
	}

	// 4. Mark it executable.
	if !platform.IsWindows(goos) {
		if err := os.Chmod(current, mode); err != nil {
			return fail("setting executable permission", true, false, err)
		}
	}

	// 5. Drop the backup. Windows keeps the running image locked, so the
	// backup is left for step 1 of the next update to remove.
	if err := os.Remove(backup); err != nil {
		if platform.IsWindows(goos) {
			loggerOrDiscard(r.Logger).Warn("backup left in place", "path", backup, "error", err)
			return nil
		}
		return fail("removing backup", true, false, err)
	}
	return nil
}

// replaceFailure builds the *ReplaceError for a failed step. BackupPath is
// set only when this run created the backup and it is still on disk.
func replaceFailure(step, current, backup string, backupKept, missing bool, err error) *ReplaceError {
	re := &ReplaceError{Step: step, Path: current, ExecutableMissing: missing, Err: err}
	if backupKept {
		if _, statErr := os.Lstat(backup); statErr == nil {
			re.BackupPath = backup
		}
	}
	return re
}

func (r BackupReplacer) targetOS() string {
	if r.goos != "" {
		return r.goos
	}
	return runtime.GOOS
}

// Replace installs newBinary at current with a single rename.
func (r AtomicReplacer) Replace(newBinary, current string) (err error) {
	goos := r.goos
	if goos == "" {
		goos = runtime.GOOS
	}
	backup := BackupPath(current)
	mode := executableMode(current)

	tmp, err := os.CreateTemp(filepath.Dir(current), ".quill-update-*")
	if err != nil {
		return &ReplaceError{Step: "creating staging file", Path: current, Err: err}
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := copyFile(newBinary, tmpPath, mode); err != nil {
		return &ReplaceError{Step: "staging new executable", Path: current, Err: err}
	}
	if !platform.IsWindows(goos) {
		if err := os.Chmod(tmpPath, mode); err != nil {
			return &ReplaceError{Step: "setting executable permission", Path: current, Err: err}
		}
	}

	// Windows refuses to rename over a running image but allows moving it.
	if platform.IsWindows(goos) {
		_ = os.Remove(backup)
		if err := os.Rename(current, backup); err != nil {
			return &ReplaceError{Step: "moving running executable aside", Path: current, Err: err}
		}
		if err := os.Rename(tmpPath, current); err != nil {
			if restoreErr := os.Rename(backup, current); restoreErr != nil {
				return &ReplaceError{Step: "renaming staged executable", Path: current, BackupPath: backup, ExecutableMissing: true, Err: err}
			}
			return &ReplaceError{Step: "renaming staged executable", Path: current, Err: err}
		}
		if rmErr := os.Remove(backup); rmErr != nil {
			loggerOrDiscard(r.Logger).Debug("backup left in place", "path", backup, "error", rmErr)
		}
		return nil
	}

	if err := os.Rename(tmpPath, current); err != nil {
		return &ReplaceError{Step: "renaming staged executable", Path: current, Err: err}
	}
	return nil
}

// executableMode returns the permission bits of the existing executable
// with the execute bits set, or 0o755 when it cannot be read.
func executableMode(path string) fs.FileMode {
	info, err := os.Stat(path)
	if err != nil {
		return 0o755
	}
	return info.Mode().Perm() | 0o111
}

// copyFile copies src to dst, creating or truncating dst. A partially written
// dst is removed on failure.
func copyFile(src, dst string, mode fs.FileMode) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer func() { _ = in.Close() }() // read-only file handle

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", dst, closeErr)
		}
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying to %s: %w", dst, err)
	}
	return out.Sync()
}

func loggerOrDiscard(l *log.Logger) *log.Logger {
	if l != nil {
		return l
	}
	return log.New(io.Discard)
}
