// SPDX-License-Identifier: MPL-2.0

package platform

// OS name constants for runtime.GOOS comparisons.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

// Architecture constants for runtime.GOARCH comparisons.
const (
	AMD64 = "amd64"
	ARM64 = "arm64"
)

// IsWindows reports whether goos names the Windows target.
func IsWindows(goos string) bool { return goos == Windows }

// ExecutableSuffix returns ".exe" on Windows and an empty string elsewhere.
func ExecutableSuffix(goos string) string {
	if IsWindows(goos) {
		return ".exe"
	}
	return ""
}
