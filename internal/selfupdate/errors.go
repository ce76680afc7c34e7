// SPDX-License-Identifier: MPL-2.0

package selfupdate

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// StageFetch is the release feed request.
	StageFetch Stage = iota + 1
	// StageParse is release document parsing.
	StageParse
	// StagePlatform is asset selection for the running OS/architecture.
	StagePlatform
	// StageDownload is the asset or manifest transfer.
	StageDownload
	// StageVerify is checksum verification.
	StageVerify
	// StageExtract is archive unpacking.
	StageExtract
	// StageReplace is the executable swap.
	StageReplace
)

var (
	// ErrFetch classifies release feed failures.
	ErrFetch = errors.New("release feed request failed")
	// ErrParse classifies release documents missing required fields.
	ErrParse = errors.New("release document could not be parsed")
	// ErrUnsupportedPlatform classifies OS/architecture pairs with no published asset.
	ErrUnsupportedPlatform = errors.New("no release asset for this platform")
	// ErrDownload classifies transfer failures.
	ErrDownload = errors.New("download failed")
	// ErrChecksumMismatch indicates the computed SHA256 hash does not match the expected hash.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrChecksumMissing indicates the manifest has no entry for the downloaded asset.
	ErrChecksumMissing = errors.New("asset not listed in checksum manifest")
	// ErrUnverifiedAsset is returned when the release publishes no checksum
	// manifest and the updater is configured to require one.
	ErrUnverifiedAsset = errors.New("release publishes no checksum manifest")
	// ErrExtract classifies archive failures.
	ErrExtract = errors.New("archive extraction failed")
	// ErrBinaryNotFound indicates the archive unpacked cleanly but did not
	// contain the expected executable.
	ErrBinaryNotFound = errors.New("executable not found in archive")
	// ErrReplace classifies failures while swapping the executable.
	ErrReplace = errors.New("replacing executable failed")
	// ErrNoUpdateAvailable is returned by Apply for a check result that does
	// not report a newer version.
	ErrNoUpdateAvailable = errors.New("no update available")
	// ErrExecutableNotFound indicates the running executable's path could not
	// be determined. Nothing can be replaced without it.
	ErrExecutableNotFound = errors.New("cannot locate running executable")
	// ErrInsufficientSpace indicates the temp directory cannot hold the download.
	ErrInsufficientSpace = errors.New("insufficient disk space")
	// ErrInvalidVersion indicates a requested target version is not valid semver.
	ErrInvalidVersion = errors.New("invalid semantic version")
	// ErrReleaseNotFound is returned when a requested release tag does not exist.
	ErrReleaseNotFound = errors.New("release not found")
)

type (
	// Stage identifies which part of the update pipeline produced an error.
	Stage int

	// FetchError is returned when the release feed cannot be read.
	FetchError struct {
		URL        string
		StatusCode int // zero for transport failures
		Err        error
	}

	// RateLimitError is returned when the GitHub API rate limit is exceeded.
	// It is reported through a FetchError.
	RateLimitError struct {
		Limit     int
		Remaining int
		ResetAt   time.Time
	}

	// ParseError is returned when the release document has no version tag.
	ParseError struct {
		Reason string
	}

	// UnsupportedPlatformError is returned when no asset is mapped for the
	// running OS/architecture, or the release does not publish it.
	UnsupportedPlatformError struct {
		Platform Platform
		Asset    string // expected asset name; empty when the platform is unmapped
	}

	// DownloadError is returned when a URL cannot be saved to disk.
	DownloadError struct {
		URL        string
		StatusCode int
		Err        error
	}

	// ChecksumError provides details about a checksum verification failure.
	// It wraps ErrChecksumMismatch so callers can use errors.Is for classification.
	ChecksumError struct {
		Filename string
		Expected string
		Got      string
	}

	// ExtractError is returned when an archive cannot be unpacked or does not
	// contain the executable.
	ExtractError struct {
		Archive string
		Err     error
	}

	// ReplaceError is returned when the executable swap fails. When
	// ExecutableMissing is true the live path is empty and BackupPath holds
	// the only copy of the previous executable.
	ReplaceError struct {
		Step              string
		Path              string
		BackupPath        string
		ExecutableMissing bool
		Err               error
	}

	// ManagedInstallError is returned by Apply when quill was installed by a
	// package manager that should perform the upgrade instead.
	ManagedInstallError struct {
		Method InstallMethod
		Path   string
	}
)

// String returns the stage name used in log output and error messages.
func (s Stage) String() string {
	switch s {
	case StageFetch:
		return "fetch"
	case StageParse:
		return "parse"
	case StagePlatform:
		return "platform"
	case StageDownload:
		return "download"
	case StageVerify:
		return "verify"
	case StageExtract:
		return "extract"
	case StageReplace:
		return "replace"
	}
	return "unknown"
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching release feed %s: unexpected status %d", redactURL(e.URL), e.StatusCode)
	}
	return fmt.Sprintf("fetching release feed %s: %v", redactURL(e.URL), e.Err)
}

// Unwrap exposes both the stage sentinel and the underlying cause.
func (e *FetchError) Unwrap() []error { return []error{ErrFetch, e.Err} }

// Stage reports StageFetch.
func (e *FetchError) Stage() Stage { return StageFetch }

// Error formats the rate limit details as a human-readable message.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("GitHub API rate limit exceeded (%d remaining, resets at %s)",
		e.Remaining, e.ResetAt.UTC().Format("15:04 UTC"))
}

func (e *ParseError) Error() string {
	return "parsing release document: " + e.Reason
}

// Unwrap returns ErrParse.
func (e *ParseError) Unwrap() error { return ErrParse }

// Stage reports StageParse.
func (e *ParseError) Stage() Stage { return StageParse }

func (e *UnsupportedPlatformError) Error() string {
	if e.Asset == "" {
		return fmt.Sprintf("no release asset is published for %s", e.Platform)
	}
	return fmt.Sprintf("release does not include %s for %s", e.Asset, e.Platform)
}

// Unwrap returns ErrUnsupportedPlatform.
func (e *UnsupportedPlatformError) Unwrap() error { return ErrUnsupportedPlatform }

// Stage reports StagePlatform.
func (e *UnsupportedPlatformError) Stage() Stage { return StagePlatform }

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("downloading %s: unexpected status %d", redactURL(e.URL), e.StatusCode)
	}
	return fmt.Sprintf("downloading %s: %v", redactURL(e.URL), e.Err)
}

// Unwrap exposes both the stage sentinel and the underlying cause.
func (e *DownloadError) Unwrap() []error { return []error{ErrDownload, e.Err} }

// Stage reports StageDownload.
func (e *DownloadError) Stage() Stage { return StageDownload }

// Error returns a human-readable description of the checksum mismatch,
// showing both expected and actual hash values for debugging.
func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum verification failed for %s\nExpected: %s\nGot:      %s", e.Filename, e.Expected, e.Got)
}

// Unwrap returns ErrChecksumMismatch so callers can use errors.Is.
func (e *ChecksumError) Unwrap() error { return ErrChecksumMismatch }

// Stage reports StageVerify.
func (e *ChecksumError) Stage() Stage { return StageVerify }

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extracting %s: %v", e.Archive, e.Err)
}

// Unwrap exposes both the stage sentinel and the underlying cause.
func (e *ExtractError) Unwrap() []error { return []error{ErrExtract, e.Err} }

// Stage reports StageExtract.
func (e *ExtractError) Stage() Stage { return StageExtract }

func (e *ReplaceError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "replacing %s: %s: %v", e.Path, e.Step, e.Err)
	switch {
	case e.ExecutableMissing:
		fmt.Fprintf(&b, " (executable is missing; previous version saved at %s)", e.BackupPath)
	case e.BackupPath != "":
		fmt.Fprintf(&b, " (previous version kept at %s)", e.BackupPath)
	}
	return b.String()
}

// Unwrap exposes both the stage sentinel and the underlying cause.
func (e *ReplaceError) Unwrap() []error { return []error{ErrReplace, e.Err} }

// Stage reports StageReplace.
func (e *ReplaceError) Stage() Stage { return StageReplace }

func (e *ManagedInstallError) Error() string {
	return fmt.Sprintf("quill at %s is managed by %s", e.Path, e.Method)
}

// StageOf returns the pipeline stage recorded in err, or zero when err did
// not originate in this package.
func StageOf(err error) Stage {
	var staged interface{ Stage() Stage }
	if errors.As(err, &staged) {
		return staged.Stage()
	}
	if errors.Is(err, ErrChecksumMissing) || errors.Is(err, ErrUnverifiedAsset) {
		return StageVerify
	}
	return 0
}
