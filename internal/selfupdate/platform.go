// SPDX-License-Identifier: MPL-2.0

package selfupdate

import (
	"runtime"

	"github.com/quillhq/quill/pkg/platform"
)

const (
	// binaryBaseName is the executable name inside release archives.
	binaryBaseName = "quill"

	// ChecksumManifestName is the release asset listing SHA256 digests.
	ChecksumManifestName = "checksums.txt"
)

// Platform is the (GOOS, GOARCH) pair of a machine.
type Platform struct {
	OS   string
	Arch string
}

// assetNames maps supported platforms to release asset names. It must stay
// in lockstep with the release pipeline's archive naming.
//
//nolint:gochecknoglobals // Static lookup table.
var assetNames = map[Platform]string{
	{OS: platform.Linux, Arch: platform.AMD64}:   "quill-x86_64-unknown-linux-gnu.tar.gz",
	{OS: platform.Linux, Arch: platform.ARM64}:   "quill-aarch64-unknown-linux-gnu.tar.gz",
	{OS: platform.Darwin, Arch: platform.AMD64}:  "quill-x86_64-apple-darwin.tar.gz",
	{OS: platform.Darwin, Arch: platform.ARM64}:  "quill-aarch64-apple-darwin.tar.gz",
	{OS: platform.Windows, Arch: platform.AMD64}: "quill-x86_64-pc-windows-msvc.zip",
}

// CurrentPlatform returns the platform the process was built for.
func CurrentPlatform() Platform {
	return Platform{OS: runtime.GOOS, Arch: runtime.GOARCH}
}

// String renders the platform as "os/arch".
func (p Platform) String() string {
	return p.OS + "/" + p.Arch
}

// ExpectedAssetName returns the release asset for p. The boolean is false
// when no asset is published for p, meaning there is no update path on this
// platform (as opposed to no update being available).
func (p Platform) ExpectedAssetName() (string, bool) {
	name, ok := assetNames[p]
	return name, ok
}

// BinaryName returns the executable file name inside the archive for p.
func (p Platform) BinaryName() string {
	return binaryBaseName + platform.ExecutableSuffix(p.OS)
}

// SupportedPlatforms lists every platform with a published asset.
func SupportedPlatforms() []Platform {
	out := make([]Platform, 0, len(assetNames))
	for p := range assetNames {
		out = append(out, p)
	}
	return out
}
