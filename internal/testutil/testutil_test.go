// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/quillhq/quill/pkg/platform"
)

const testEnvKey = "QUILL_TESTUTIL_PROBE"

func TestMustSetenv_RestoresUnset(t *testing.T) {
	// Not parallel: mutates process environment.
	_ = os.Unsetenv(testEnvKey)

	cleanup := MustSetenv(t, testEnvKey, "value")
	if got := os.Getenv(testEnvKey); got != "value" {
		t.Errorf("%s = %q, want %q", testEnvKey, got, "value")
	}

	cleanup()
	if _, ok := os.LookupEnv(testEnvKey); ok {
		t.Errorf("%s still set after cleanup", testEnvKey)
	}
}

func TestMustSetenv_RestoresPrevious(t *testing.T) {
	// Not parallel: mutates process environment.
	t.Cleanup(MustSetenv(t, testEnvKey, "original"))

	cleanup := MustSetenv(t, testEnvKey, "override")
	cleanup()

	if got := os.Getenv(testEnvKey); got != "original" {
		t.Errorf("%s = %q after cleanup, want %q", testEnvKey, got, "original")
	}
}

func TestMustUnsetenv(t *testing.T) {
	// Not parallel: mutates process environment.
	t.Cleanup(MustSetenv(t, testEnvKey, "keep"))

	cleanup := MustUnsetenv(t, testEnvKey)
	if _, ok := os.LookupEnv(testEnvKey); ok {
		t.Fatalf("%s still set", testEnvKey)
	}

	cleanup()
	if got := os.Getenv(testEnvKey); got != "keep" {
		t.Errorf("%s = %q after cleanup, want %q", testEnvKey, got, "keep")
	}
}

func TestSetHomeDir(t *testing.T) {
	// Not parallel: mutates process environment.
	envVar := "HOME"
	if platform.IsWindows(runtime.GOOS) {
		envVar = "USERPROFILE"
	}
	original := os.Getenv(envVar)
	tmpDir := t.TempDir()

	t.Run("subtest", func(t *testing.T) {
		t.Cleanup(SetHomeDir(t, tmpDir))

		if got := os.Getenv(envVar); got != tmpDir {
			t.Errorf("%s = %q, want %q", envVar, got, tmpDir)
		}
	})

	if got := os.Getenv(envVar); got != original {
		t.Errorf("after subtest, %s = %q, want %q", envVar, got, original)
	}
}

func TestMustWriteFile_CreatesParents(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a", "b", "file.txt")
	MustWriteFile(t, path, "content")

	if got := MustReadFile(t, path); got != "content" {
		t.Errorf("MustReadFile() = %q, want %q", got, "content")
	}
}
