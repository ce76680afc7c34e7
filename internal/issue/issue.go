// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Id identifies a known failure with a rendered help page.
type Id int

const (
	NetworkFailedId Id = iota + 1
	RateLimitedId
	ReleaseNotFoundId
	UnsupportedPlatformId
	ChecksumMismatchId
	ChecksumMissingId
	ArchiveInvalidId
	ManagedInstallId
	PermissionDeniedId
	InsufficientSpaceId
	ReplaceFailedId
	ConfigLoadFailedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue as terminal markdown using the glamour style at
// stylePath ("dark", "light", "notty", or a JSON style file).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range slices.Concat(i.docLinks, i.extLinks) {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

//nolint:gochecknoglobals // Static issue catalog and render seam.
var (
	render = glamour.Render

	networkFailedIssue = &Issue{
		id: NetworkFailedId,
		mdMsg: `
# Could not reach the release server

quill could not download release information or assets.

## Things you can try:
- Check your internet connection and proxy settings (HTTPS_PROXY)
- Raise the request timeout:
~~~
$ QUILL_UPDATE_TIMEOUT=2m quill upgrade
~~~
- Point quill at a mirror with ` + "`update.feed_url`" + ` in your config`,
	}

	rateLimitedIssue = &Issue{
		id: RateLimitedId,
		mdMsg: `
# GitHub API rate limit reached

Anonymous requests to the GitHub API are limited per hour.

## Things you can try:
- Wait until the limit resets and try again
- Authenticate with a token:
~~~
$ export GITHUB_TOKEN=<token>
$ quill upgrade
~~~`,
		extLinks: []HttpLink{"https://docs.github.com/en/rest/using-the-rest-api/rate-limits-for-the-rest-api"},
	}

	releaseNotFoundIssue = &Issue{
		id: ReleaseNotFoundId,
		mdMsg: `
# Release not found

The requested release does not exist or has no published assets.

## Things you can try:
- Check the version you asked for, e.g. ` + "`quill upgrade v1.2.0`" + `
- Run ` + "`quill upgrade --check`" + ` to see the latest release
- Verify ` + "`update.owner`" + ` and ` + "`update.repo`" + ` in your config`,
	}

	unsupportedPlatformIssue = &Issue{
		id: UnsupportedPlatformId,
		mdMsg: `
# No build for this platform

The release does not publish an archive for your operating system and architecture.

## Things you can try:
- Build quill from source with ` + "`go install`" + `
- Check the release page for the platforms that are published`,
	}

	checksumMismatchIssue = &Issue{
		id: ChecksumMismatchId,
		mdMsg: `
# Checksum verification failed

The downloaded archive does not match the digest published with the release.
Your installed binary has **not** been changed.

## Things you can try:
- Retry the upgrade; the download may have been corrupted in transit
- If this keeps happening, do not install the release and report it`,
	}

	checksumMissingIssue = &Issue{
		id: ChecksumMissingId,
		mdMsg: `
# Release cannot be verified

The release publishes no checksum for the archive and verification is required.
Your installed binary has **not** been changed.

## Things you can try:
- Wait for the release to publish ` + "`checksums.txt`" + `
- Set ` + "`update.require_checksum: false`" + ` to accept unverified archives`,
	}

	archiveInvalidIssue = &Issue{
		id: ArchiveInvalidId,
		mdMsg: `
# Release archive is unusable

The archive could not be unpacked or does not contain the quill binary.
Your installed binary has **not** been changed.

## Things you can try:
- Retry the upgrade
- Download the archive manually from the release page`,
	}

	managedInstallIssue = &Issue{
		id: ManagedInstallId,
		mdMsg: `
# quill is managed by a package manager

Replacing the binary in place would leave your package manager out of sync.

## Things you can try:
- Upgrade through the tool that installed quill, e.g.:
~~~
$ brew upgrade quill
$ go install github.com/quillhq/quill@latest
~~~`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied

quill is not allowed to write next to its own executable.

## Things you can try:
- Re-run the upgrade with elevated permissions:
~~~
$ sudo quill upgrade
~~~
- Install quill into a directory you own, e.g. ` + "`~/.local/bin`",
	}

	insufficientSpaceIssue = &Issue{
		id: InsufficientSpaceId,
		mdMsg: `
# Not enough disk space

There is not enough free space to download and unpack the release.

## Things you can try:
- Free some space and retry
- Point TMPDIR at a volume with more room`,
	}

	replaceFailedIssue = &Issue{
		id: ReplaceFailedId,
		mdMsg: `
# Replacing the executable failed

The new binary could not be put in place.

## Things you can try:
- If a backup was reported above, restore it by renaming it back:
~~~
$ mv /path/to/quill.old /path/to/quill
~~~
- Re-run the upgrade once the cause is fixed`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration

## Things you can try:
- Check the file for CUE syntax errors
- Show where quill looks for it:
~~~
$ quill config path
~~~
- Start over from the defaults with ` + "`quill config init`",
	}

	issues = map[Id]*Issue{
		networkFailedIssue.Id():       networkFailedIssue,
		rateLimitedIssue.Id():         rateLimitedIssue,
		releaseNotFoundIssue.Id():     releaseNotFoundIssue,
		unsupportedPlatformIssue.Id(): unsupportedPlatformIssue,
		checksumMismatchIssue.Id():    checksumMismatchIssue,
		checksumMissingIssue.Id():     checksumMissingIssue,
		archiveInvalidIssue.Id():      archiveInvalidIssue,
		managedInstallIssue.Id():      managedInstallIssue,
		permissionDeniedIssue.Id():    permissionDeniedIssue,
		insufficientSpaceIssue.Id():   insufficientSpaceIssue,
		replaceFailedIssue.Id():       replaceFailedIssue,
		configLoadFailedIssue.Id():    configLoadFailedIssue,
	}
)

// Values returns every known issue ordered by id.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int {
		return int(a.id) - int(b.id)
	})
}

func Get(id Id) *Issue {
	return issues[id]
}
