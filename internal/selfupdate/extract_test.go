// SPDX-License-Identifier: MPL-2.0

package selfupdate

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

type archiveEntry struct {
	name    string
	content []byte
	mode    int64
	dir     bool
}

// createTarGz builds an in-memory .tar.gz from entries.
func createTarGz(t *testing.T, entries []archiveEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)

	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: e.mode, Size: int64(len(e.content)), Typeflag: tar.TypeReg}
		if e.dir {
			hdr.Typeflag = tar.TypeDir
			hdr.Size = 0
		}
		if hdr.Mode == 0 {
			hdr.Mode = 0o755
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("writing tar header: %v", err)
		}
		if !e.dir {
			if _, err := tw.Write(e.content); err != nil {
				t.Fatalf("writing tar body: %v", err)
			}
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar writer: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("closing gzip writer: %v", err)
	}
	return buf.Bytes()
}

// createZip builds an in-memory .zip from entries.
func createZip(t *testing.T, entries []archiveEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		name := e.name
		if e.dir {
			name += "/"
		}
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("creating zip entry: %v", err)
		}
		if !e.dir {
			if _, err := w.Write(e.content); err != nil {
				t.Fatalf("writing zip entry: %v", err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip writer: %v", err)
	}
	return buf.Bytes()
}

func writeArchive(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing archive: %v", err)
	}
	return path
}

func TestArchiveExtractor_TarGzNested(t *testing.T) {
	t.Parallel()

	archive := writeArchive(t, "quill-x86_64-unknown-linux-gnu.tar.gz", createTarGz(t, []archiveEntry{
		{name: "quill-1.2.0", dir: true},
		{name: "quill-1.2.0/quill", content: []byte("new-binary")},
		{name: "quill-1.2.0/README.md", content: []byte("readme"), mode: 0o644},
	}))
	dest := t.TempDir()

	if err := (ArchiveExtractor{}).Extract(archive, dest); err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	bin, err := LocateBinary(dest, "quill")
	if err != nil {
		t.Fatalf("LocateBinary() error: %v", err)
	}
	if filepath.Base(filepath.Dir(bin)) != "quill-1.2.0" {
		t.Errorf("located %s, want it inside quill-1.2.0/", bin)
	}
	got, err := os.ReadFile(bin)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new-binary" {
		t.Errorf("binary content = %q", got)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(bin)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm()&0o100 == 0 {
			t.Errorf("binary mode = %v, want owner-executable", info.Mode())
		}
	}
}

func TestArchiveExtractor_TgzFlat(t *testing.T) {
	t.Parallel()

	archive := writeArchive(t, "quill.tgz", createTarGz(t, []archiveEntry{
		{name: "quill", content: []byte("flat")},
	}))
	dest := t.TempDir()

	if err := (ArchiveExtractor{}).Extract(archive, dest); err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if _, err := LocateBinary(dest, "quill"); err != nil {
		t.Errorf("LocateBinary() error: %v", err)
	}
}

func TestArchiveExtractor_Zip(t *testing.T) {
	t.Parallel()

	archive := writeArchive(t, "quill-x86_64-pc-windows-msvc.zip", createZip(t, []archiveEntry{
		{name: "quill", dir: true},
		{name: "quill/quill.exe", content: []byte("MZ")},
	}))
	dest := t.TempDir()

	if err := (ArchiveExtractor{}).Extract(archive, dest); err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	bin, err := LocateBinary(dest, "quill.exe")
	if err != nil {
		t.Fatalf("LocateBinary() error: %v", err)
	}
	if got, _ := os.ReadFile(bin); string(got) != "MZ" {
		t.Errorf("binary content = %q", got)
	}
}

func TestArchiveExtractor_RejectsTraversal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		file string
		data func(*testing.T) []byte
	}{
		{"tar", "evil.tar.gz", func(t *testing.T) []byte {
			return createTarGz(t, []archiveEntry{{name: "../escape", content: []byte("x")}})
		}},
		{"zip", "evil.zip", func(t *testing.T) []byte {
			return createZip(t, []archiveEntry{{name: "../escape", content: []byte("x")}})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			archive := writeArchive(t, tt.file, tt.data(t))
			parent := t.TempDir()
			dest := filepath.Join(parent, "out")

			err := (ArchiveExtractor{}).Extract(archive, dest)
			if !errors.Is(err, ErrExtract) {
				t.Fatalf("expected ErrExtract, got %v", err)
			}
			if _, statErr := os.Stat(filepath.Join(parent, "escape")); !errors.Is(statErr, os.ErrNotExist) {
				t.Error("traversal entry was written outside the destination")
			}
		})
	}
}

func TestArchiveExtractor_CorruptArchive(t *testing.T) {
	t.Parallel()

	archive := writeArchive(t, "broken.tar.gz", []byte("this is not gzip"))

	err := (ArchiveExtractor{}).Extract(archive, t.TempDir())
	var ee *ExtractError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *ExtractError, got %T: %v", err, err)
	}
	if StageOf(err) != StageExtract {
		t.Errorf("StageOf() = %v, want %v", StageOf(err), StageExtract)
	}
}

func TestArchiveExtractor_UnsupportedFormat(t *testing.T) {
	t.Parallel()

	archive := writeArchive(t, "quill.rar", []byte("rar"))

	err := (ArchiveExtractor{}).Extract(archive, t.TempDir())
	if !errors.Is(err, errUnsupportedArchive) {
		t.Errorf("expected errUnsupportedArchive, got %v", err)
	}
}

func TestLocateBinary_NotFound(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "quill-helper"), []byte("x"), 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := LocateBinary(dir, "quill")
	if !errors.Is(err, ErrBinaryNotFound) {
		t.Errorf("expected ErrBinaryNotFound, got %v", err)
	}
}

func TestSafeJoin(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"a", "a/b", "./a", "a/../b"} {
		if _, err := safeJoin(dir, name); err != nil {
			t.Errorf("safeJoin(%q) unexpected error: %v", name, err)
		}
	}
	for _, name := range []string{"..", "../x", "a/../../x"} {
		if _, err := safeJoin(dir, name); err == nil {
			t.Errorf("safeJoin(%q) expected error", name)
		}
	}
}
