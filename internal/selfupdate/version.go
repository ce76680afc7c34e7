// SPDX-License-Identifier: MPL-2.0

package selfupdate

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is a (major, minor, patch) triple. There is no pre-release or
// build metadata; comparison is purely numeric.
type Version struct {
	Major int
	Minor int
	Patch int
}

// ParseVersion splits s on "." and parses the first three segments as
// integers. A single leading "v" is ignored. Missing or non-numeric segments
// become 0, so ParseVersion never fails: an unexpected tag from the feed
// degrades to an old version instead of an error.
func ParseVersion(s string) Version {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "v"), "V")

	var parts [3]int
	for i, seg := range strings.SplitN(s, ".", 4) {
		if i == len(parts) {
			break
		}
		n, err := strconv.Atoi(seg)
		if err != nil || n < 0 {
			continue
		}
		parts[i] = n
	}
	return Version{Major: parts[0], Minor: parts[1], Patch: parts[2]}
}

// Compare returns -1, 0, or 1 as v is older than, equal to, or newer than o.
func (v Version) Compare(o Version) int {
	if c := cmp.Compare(v.Major, o.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Minor, o.Minor); c != 0 {
		return c
	}
	return cmp.Compare(v.Patch, o.Patch)
}

// String renders the triple as "major.minor.patch".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// IsNewer reports whether candidate is strictly newer than baseline.
func IsNewer(candidate, baseline string) bool {
	return ParseVersion(candidate).Compare(ParseVersion(baseline)) > 0
}

// normalizeTag turns a user-supplied target version into the "vX.Y.Z" tag
// form used by the release feed, rejecting anything that is not valid semver.
func normalizeTag(v string) (string, error) {
	norm := strings.TrimSpace(v)
	if !strings.HasPrefix(norm, "v") {
		norm = "v" + norm
	}
	if !semver.IsValid(norm) {
		return "", fmt.Errorf("%w: %q", ErrInvalidVersion, v)
	}
	return norm, nil
}
