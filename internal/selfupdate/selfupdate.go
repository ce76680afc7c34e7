// SPDX-License-Identifier: MPL-2.0

package selfupdate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

var (
	//nolint:gochecknoglobals // Test seam for os.Executable().
	osExecutable = os.Executable

	//nolint:gochecknoglobals // Test seam for filepath.EvalSymlinks().
	evalSymlinks = filepath.EvalSymlinks
)

type (
	// VersionCheckResult is the outcome of Check. DownloadURL is set only when
	// an update is available and the release publishes an asset for the
	// running platform; ChecksumURL only when the release also publishes a
	// checksum manifest.
	VersionCheckResult struct {
		CurrentVersion    string
		LatestVersion     string
		UpdateAvailable   bool
		Platform          Platform
		PlatformSupported bool // false when no asset is mapped for Platform
		AssetName         string
		AssetSize         int64
		DownloadURL       string
		ChecksumURL       string
		ReleaseNotes      string
		ReleaseURL        string
		InstallMethod     InstallMethod
		CheckedAt         time.Time
	}

	// Updater composes the feed client, downloader, verifier, extractor, and
	// replacer into the Check and Apply operations.
	Updater struct {
		currentVersion  string
		feed            FeedClient
		downloader      Downloader
		extractor       Extractor
		replacer        Replacer
		platform        Platform
		execPath        string
		tempDir         string
		requireChecksum bool
		logger          *log.Logger
		now             func() time.Time
	}

	// UpdaterOption configures an Updater during construction.
	UpdaterOption func(*Updater)
)

// WithFeed sets the release feed client.
func WithFeed(f FeedClient) UpdaterOption {
	return func(u *Updater) { u.feed = f }
}

// WithDownloader sets the downloader used for assets and manifests.
func WithDownloader(d Downloader) UpdaterOption {
	return func(u *Updater) { u.downloader = d }
}

// WithExtractor sets the archive extractor.
func WithExtractor(e Extractor) UpdaterOption {
	return func(u *Updater) { u.extractor = e }
}

// WithReplacer sets the executable replacement strategy.
func WithReplacer(r Replacer) UpdaterOption {
	return func(u *Updater) { u.replacer = r }
}

// WithPlatform overrides the detected platform.
func WithPlatform(p Platform) UpdaterOption {
	return func(u *Updater) { u.platform = p }
}

// WithExecutablePath overrides the path of the executable to replace.
func WithExecutablePath(path string) UpdaterOption {
	return func(u *Updater) { u.execPath = path }
}

// WithTempDir sets the parent directory for per-update work directories.
func WithTempDir(dir string) UpdaterOption {
	return func(u *Updater) { u.tempDir = dir }
}

// WithRequireChecksum makes Apply refuse releases without a checksum manifest.
func WithRequireChecksum(require bool) UpdaterOption {
	return func(u *Updater) { u.requireChecksum = require }
}

// WithLogger sets the logger for stage progress.
func WithLogger(l *log.Logger) UpdaterOption {
	return func(u *Updater) { u.logger = l }
}

// NewUpdater creates an Updater for currentVersion. Unset collaborators get
// defaults: the GitHub feed, an HTTP downloader sharing its transport, the
// archive extractor, and the backup replacer.
func NewUpdater(currentVersion string, opts ...UpdaterOption) *Updater {
	u := &Updater{
		currentVersion: currentVersion,
		platform:       CurrentPlatform(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.logger == nil {
		u.logger = log.New(io.Discard)
	}
	if u.feed == nil {
		u.feed = NewGitHubFeed()
	}
	if u.downloader == nil {
		gh, _ := u.feed.(*GitHubFeed)
		u.downloader = NewHTTPDownloader(gh)
	}
	if u.extractor == nil {
		u.extractor = ArchiveExtractor{}
	}
	if u.replacer == nil {
		u.replacer = BackupReplacer{Logger: u.logger}
	}
	return u
}

// CurrentVersion returns the version the Updater compares against.
func (u *Updater) CurrentVersion() string { return u.currentVersion }

// Check fetches the latest release (or the release tagged target, when
// non-empty) and reports whether it is newer than the running version.
// Check writes nothing to the filesystem; its only side effect is the
// feed request.
func (u *Updater) Check(ctx context.Context, target string) (*VersionCheckResult, error) {
	var (
		raw string
		err error
	)
	if target != "" {
		tag, tagErr := normalizeTag(target)
		if tagErr != nil {
			return nil, tagErr
		}
		u.logger.Debug("fetching release", "tag", tag)
		raw, err = u.feed.FetchTag(ctx, tag)
	} else {
		u.logger.Debug("fetching latest release")
		raw, err = u.feed.FetchLatest(ctx)
	}
	if err != nil {
		return nil, err
	}

	desc, err := ParseRelease(raw)
	if err != nil {
		return nil, err
	}

	res := &VersionCheckResult{
		CurrentVersion:  u.currentVersion,
		LatestVersion:   desc.Version,
		UpdateAvailable: IsNewer(desc.Version, u.currentVersion),
		Platform:        u.platform,
		ReleaseNotes:    desc.Notes,
		ReleaseURL:      desc.HTMLURL,
		CheckedAt:       u.now(),
	}
	if execPath, pathErr := u.resolveExecPath(); pathErr == nil {
		res.InstallMethod = DetectInstallMethod(execPath)
	}

	assetName, supported := u.platform.ExpectedAssetName()
	res.PlatformSupported = supported
	if res.UpdateAvailable && supported {
		res.AssetName = assetName
		if asset, ok := FindAsset(desc, assetName); ok {
			res.DownloadURL = asset.URL
			res.AssetSize = asset.Size
			res.ChecksumURL, _ = FindChecksumManifestURL(desc)
		}
	}

	u.logger.Debug("checked release",
		"current", res.CurrentVersion, "latest", res.LatestVersion,
		"available", res.UpdateAvailable, "platform", u.platform, "asset", res.AssetName)

	return res, nil
}

// Apply downloads, verifies, extracts, and installs the release described
// by res, which must come from a Check reporting an available update.
// Every temporary file is removed before Apply returns; the live executable
// is not touched until the asset has been verified and extracted.
func (u *Updater) Apply(ctx context.Context, res *VersionCheckResult) error {
	if res == nil || !res.UpdateAvailable || !IsNewer(res.LatestVersion, u.currentVersion) {
		return ErrNoUpdateAvailable
	}
	if res.DownloadURL == "" {
		return &UnsupportedPlatformError{Platform: res.Platform, Asset: res.AssetName}
	}
	if res.ChecksumURL == "" && u.requireChecksum {
		return ErrUnverifiedAsset
	}

	execPath, err := u.resolveExecPath()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutableNotFound, err)
	}
	if method := DetectInstallMethod(execPath); method.Managed() {
		return &ManagedInstallError{Method: method, Path: execPath}
	}

	workDir, err := os.MkdirTemp(u.tempDir, "quill-update-*")
	if err != nil {
		return fmt.Errorf("creating work directory: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			u.logger.Warn("could not remove work directory", "path", workDir, "error", rmErr)
		}
	}()

	if err := checkFreeSpace(ctx, workDir, res.AssetSize); err != nil {
		return err
	}

	assetName := filepath.Base(res.AssetName)
	if assetName == "." || assetName == string(filepath.Separator) {
		assetName = "asset"
	}
	archivePath := filepath.Join(workDir, assetName)

	u.logger.Debug("downloading asset", "url", redactURL(res.DownloadURL), "path", archivePath)
	if err := u.downloader.Download(ctx, res.DownloadURL, archivePath); err != nil {
		return err
	}

	if err := u.verify(ctx, res, workDir, archivePath); err != nil {
		return err
	}

	extractDir := filepath.Join(workDir, "extract")
	u.logger.Debug("extracting archive", "archive", archivePath, "dir", extractDir)
	if err := u.extractor.Extract(archivePath, extractDir); err != nil {
		return err
	}
	binPath, err := LocateBinary(extractDir, res.Platform.BinaryName())
	if err != nil {
		return &ExtractError{Archive: assetName, Err: err}
	}

	u.logger.Debug("replacing executable", "path", execPath, "source", binPath)
	if err := u.replacer.Replace(binPath, execPath); err != nil {
		return err
	}

	u.logger.Info("updated", "from", u.currentVersion, "to", res.LatestVersion, "path", execPath)
	return nil
}

// verify checks the downloaded archive against the release's checksum
// manifest. A release without a manifest is accepted with a warning unless
// the Updater requires checksums; a manifest lacking the asset is an error.
func (u *Updater) verify(ctx context.Context, res *VersionCheckResult, workDir, archivePath string) error {
	if res.ChecksumURL == "" {
		u.logger.Warn("release publishes no checksum manifest; installing unverified asset", "asset", res.AssetName)
		return nil
	}

	manifestPath := filepath.Join(workDir, ChecksumManifestName)
	u.logger.Debug("downloading checksum manifest", "url", redactURL(res.ChecksumURL))
	if err := u.downloader.Download(ctx, res.ChecksumURL, manifestPath); err != nil {
		return err
	}

	manifest, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("reading checksum manifest: %w", err)
	}

	expected, ok := ExpectedDigest(string(manifest), res.AssetName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrChecksumMissing, res.AssetName)
	}

	if err := VerifyFile(archivePath, expected); err != nil {
		var mismatch *ChecksumError
		if errors.As(err, &mismatch) {
			mismatch.Filename = res.AssetName
		}
		return err
	}
	u.logger.Debug("checksum verified", "asset", res.AssetName, "digest", expected)
	return nil
}

// resolveExecPath returns the absolute, symlink-resolved path to the
// executable being updated.
func (u *Updater) resolveExecPath() (string, error) {
	if u.execPath != "" {
		return u.execPath, nil
	}

	p, err := osExecutable()
	if err != nil {
		return "", fmt.Errorf("determining executable path: %w", err)
	}

	resolved, err := evalSymlinks(p)
	if err != nil {
		return "", fmt.Errorf("resolving symlinks for %s: %w", p, err)
	}
	return resolved, nil
}
