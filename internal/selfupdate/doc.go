// SPDX-License-Identifier: MPL-2.0

// Package selfupdate keeps the quill executable current without a package
// manager. It checks a release feed for a newer build, downloads the archive
// for the running platform, verifies it against the published SHA256
// checksum manifest, and swaps it in for the running executable.
//
// The package is organized by stage:
//   - feed.go: release feed client (GitHub "latest release" document)
//   - release.go: release document parsing and asset lookup
//   - version.go: dotted-numeric version ordering
//   - platform.go: GOOS/GOARCH to release asset name table
//   - download.go, checksum.go, extract.go, replace.go: the apply stages
//   - selfupdate.go: Updater, which composes the stages into Check and Apply
package selfupdate
