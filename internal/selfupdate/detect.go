// SPDX-License-Identifier: MPL-2.0

package selfupdate

import (
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/quillhq/quill/pkg/platform"
)

const (
	// InstallMethodUnknown covers manual downloads and the install script;
	// these installs are updated in place.
	InstallMethodUnknown InstallMethod = iota
	// InstallMethodHomebrew indicates `brew install quill`.
	InstallMethodHomebrew
	// InstallMethodGoInstall indicates `go install`.
	InstallMethodGoInstall
	// InstallMethodSnap indicates a Snap package; its files are read-only.
	InstallMethodSnap
	// InstallMethodFlatpak indicates a Flatpak package; its files are read-only.
	InstallMethodFlatpak

	// modulePath is the Go module path used to confirm go-install origin.
	modulePath = "github.com/quillhq/quill"
)

//nolint:gochecknoglobals // Homebrew prefixes on macOS ARM, macOS Intel, and Linux.
var homebrewPrefixes = []string{"/opt/homebrew/", "/usr/local/Cellar/", "/home/linuxbrew/.linuxbrew/"}

var (
	// installMethodHint is set via -ldflags at build time to override detection.
	//
	//nolint:gochecknoglobals // Build-time ldflags injection requires a package-level variable.
	installMethodHint string

	//nolint:gochecknoglobals // Test seam for debug.ReadBuildInfo.
	readBuildInfo = debug.ReadBuildInfo

	//nolint:gochecknoglobals // Test seam for platform.DetectSandbox.
	detectSandbox = platform.DetectSandbox
)

// InstallMethod identifies how quill was installed. Package-manager installs
// are upgraded by their package manager, never in place.
type InstallMethod int

// String returns a human-readable name for the install method.
func (m InstallMethod) String() string {
	switch m {
	case InstallMethodHomebrew:
		return "homebrew"
	case InstallMethodGoInstall:
		return "go install"
	case InstallMethodSnap:
		return "snap"
	case InstallMethodFlatpak:
		return "flatpak"
	case InstallMethodUnknown:
		return "unknown"
	}
	return "unknown"
}

// Managed reports whether a package manager owns the executable.
func (m InstallMethod) Managed() bool {
	switch m {
	case InstallMethodHomebrew, InstallMethodGoInstall, InstallMethodSnap, InstallMethodFlatpak:
		return true
	case InstallMethodUnknown:
		return false
	}
	return false
}

// UpgradeHint returns the command a user should run for a managed install.
func (m InstallMethod) UpgradeHint() string {
	switch m {
	case InstallMethodHomebrew:
		return "brew upgrade quill"
	case InstallMethodGoInstall:
		return "go install " + modulePath + "@latest"
	case InstallMethodSnap:
		return "snap refresh quill"
	case InstallMethodFlatpak:
		return "flatpak update"
	case InstallMethodUnknown:
		return ""
	}
	return ""
}

// DetectInstallMethod classifies execPath. The ldflags hint wins; otherwise
// a Snap or Flatpak sandbox, then Homebrew prefixes, then GOPATH/bin
// confirmed by the build info's module path.
func DetectInstallMethod(execPath string) InstallMethod {
	if installMethodHint != "" {
		switch strings.ToLower(installMethodHint) {
		case "homebrew":
			return InstallMethodHomebrew
		case "goinstall":
			return InstallMethodGoInstall
		case "snap":
			return InstallMethodSnap
		case "flatpak":
			return InstallMethodFlatpak
		default:
			return InstallMethodUnknown
		}
	}

	switch detectSandbox() {
	case platform.SandboxSnap:
		return InstallMethodSnap
	case platform.SandboxFlatpak:
		return InstallMethodFlatpak
	case platform.SandboxNone:
	}

	slashed := filepath.ToSlash(execPath)
	for _, prefix := range homebrewPrefixes {
		if strings.Contains(slashed, prefix) {
			return InstallMethodHomebrew
		}
	}

	// Both conditions are required: a binary copied into GOPATH/bin by hand
	// is still updated in place.
	if isInGOPATHBin(execPath) && builtFromModule() {
		return InstallMethodGoInstall
	}
	return InstallMethodUnknown
}

func isInGOPATHBin(execPath string) bool {
	gopath := os.Getenv("GOPATH")
	if gopath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return false
		}
		gopath = filepath.Join(home, "go")
	}

	gopathBin := filepath.Clean(filepath.Join(gopath, "bin"))
	cleanExec := filepath.Clean(execPath)
	return strings.HasPrefix(cleanExec, gopathBin+string(filepath.Separator))
}

func builtFromModule() bool {
	info, ok := readBuildInfo()
	if !ok || info == nil {
		return false
	}
	return strings.HasPrefix(info.Path, modulePath)
}
