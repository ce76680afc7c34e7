// SPDX-License-Identifier: MPL-2.0

package selfupdate

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// ChecksumEntry is one line of a checksum manifest.
type ChecksumEntry struct {
	Digest   string // lowercase hex
	Filename string
}

// ParseChecksums reads sha256sum-style lines ("<hex><whitespace><name>").
// A leading "*" on the name (binary mode marker) is dropped. Lines that do
// not have this shape are skipped, not rejected.
func ParseChecksums(r io.Reader) ([]ChecksumEntry, error) {
	var entries []ChecksumEntry

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 {
			continue
		}

		digest := fields[0]
		filename := strings.TrimPrefix(fields[1], "*")
		if filename == "" || !isHex(digest) {
			continue
		}

		entries = append(entries, ChecksumEntry{
			Digest:   strings.ToLower(digest),
			Filename: filename,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading checksums: %w", err)
	}
	return entries, nil
}

// ExpectedDigest returns the digest recorded for assetName in manifest.
// Matching is exact on the file name; the first entry wins.
func ExpectedDigest(manifest, assetName string) (string, bool) {
	entries, err := ParseChecksums(strings.NewReader(manifest))
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if e.Filename == assetName {
			return e.Digest, true
		}
	}
	return "", false
}

// VerifyFile computes the SHA256 hash of the file at path and compares it with
// expectedHash. Returns nil if the hashes match (case-insensitive comparison),
// or a *ChecksumError wrapping ErrChecksumMismatch if they differ.
func VerifyFile(path, expectedHash string) error {
	got, err := ComputeFileHash(path)
	if err != nil {
		return err
	}

	if !strings.EqualFold(got, strings.TrimSpace(expectedHash)) {
		return &ChecksumError{
			Filename: path,
			Expected: strings.ToLower(expectedHash),
			Got:      got,
		}
	}
	return nil
}

// ComputeFileHash returns the lowercase hex SHA256 digest of the file at path.
func ComputeFileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }() // read-only file handle

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing file %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// isHex reports whether s is a non-empty string of hex digits.
func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
