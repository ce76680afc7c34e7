// SPDX-License-Identifier: MPL-2.0

package selfupdate

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// maxEntryBytes is the upper bound on any single extracted file (500 MB).
// Prevents decompression bombs when unpacking a release archive.
const maxEntryBytes = 500 << 20

var errUnsupportedArchive = errors.New("unsupported archive format")

type (
	// Extractor unpacks a release archive into a directory.
	Extractor interface {
		Extract(archivePath, destDir string) error
	}

	// ArchiveExtractor handles the formats releases are published in:
	// .tar.gz/.tgz on Unix-like targets and .zip on Windows.
	ArchiveExtractor struct{}
)

// Extract unpacks archivePath into destDir, choosing the format by file
// extension. Entries that would land outside destDir are rejected.
func (ArchiveExtractor) Extract(archivePath, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return &ExtractError{Archive: archivePath, Err: fmt.Errorf("creating %s: %w", destDir, err)}
	}

	var err error
	lower := strings.ToLower(archivePath)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		err = extractTarGz(archivePath, destDir)
	case strings.HasSuffix(lower, ".zip"):
		err = extractZip(archivePath, destDir)
	default:
		err = errUnsupportedArchive
	}
	if err != nil {
		return &ExtractError{Archive: archivePath, Err: err}
	}
	return nil
}

func extractTarGz(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer func() { _ = f.Close() }() // read-only file handle

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("creating gzip reader: %w", err)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		hdr, nextErr := tr.Next()
		if errors.Is(nextErr, io.EOF) {
			return nil
		}
		if nextErr != nil {
			return fmt.Errorf("reading tar entry: %w", nextErr)
		}

		target, joinErr := safeJoin(destDir, hdr.Name)
		if joinErr != nil {
			return joinErr
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating directory %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := writeEntry(target, tr, fs.FileMode(hdr.Mode).Perm()); err != nil {
				return err
			}
		default:
			// Links and devices are never part of a release archive.
			continue
		}
	}
}

func extractZip(archivePath, destDir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("opening zip: %w", err)
	}
	defer func() { _ = zr.Close() }()

	for _, zf := range zr.File {
		target, joinErr := safeJoin(destDir, zf.Name)
		if joinErr != nil {
			return joinErr
		}

		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating directory %s: %w", target, err)
			}
			continue
		}
		if !zf.Mode().IsRegular() {
			continue
		}

		if err := func() error {
			rc, openErr := zf.Open()
			if openErr != nil {
				return fmt.Errorf("opening %s in zip: %w", zf.Name, openErr)
			}
			defer func() { _ = rc.Close() }()
			return writeEntry(target, rc, zf.Mode().Perm())
		}(); err != nil {
			return err
		}
	}
	return nil
}

// writeEntry copies at most maxEntryBytes from r into a new file at target.
func writeEntry(target string, r io.Reader, perm fs.FileMode) (err error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating parent of %s: %w", target, err)
	}
	if perm == 0 {
		perm = 0o644
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", target, closeErr)
		}
	}()

	n, err := io.Copy(out, io.LimitReader(r, maxEntryBytes+1))
	if err != nil {
		return fmt.Errorf("writing %s: %w", target, err)
	}
	if n > maxEntryBytes {
		return fmt.Errorf("%s exceeds %d bytes", filepath.Base(target), maxEntryBytes)
	}
	return nil
}

// safeJoin resolves name under dir and rejects paths that escape it.
func safeJoin(dir, name string) (string, error) {
	target := filepath.Join(dir, name)
	root := filepath.Clean(dir)
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("illegal path in archive: %s", name)
	}
	return target, nil
}

// LocateBinary searches dir for a regular file named name, matching by base
// name so both flat archives and archives with a top-level directory work.
// A missing binary is reported as ErrBinaryNotFound.
func LocateBinary(dir, name string) (string, error) {
	var found string
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && d.Name() == name {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if walkErr != nil {
		return "", fmt.Errorf("searching %s: %w", dir, walkErr)
	}
	if found == "" {
		return "", fmt.Errorf("%w: %s", ErrBinaryNotFound, name)
	}
	return found, nil
}
