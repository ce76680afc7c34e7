// SPDX-License-Identifier: MPL-2.0

package selfupdate

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//nolint:gochecknoglobals // Compiled once; used by the text-scan fallback.
var (
	tagFieldRe = regexp.MustCompile(`"?tag_name"?\s*:\s*"?([^"\s,}]+)"?`)
	urlFieldRe = regexp.MustCompile(`"?browser_download_url"?\s*:\s*"?([^"\s,}]+)"?`)
)

type (
	// ReleaseDescriptor is the parsed form of one release feed entry.
	ReleaseDescriptor struct {
		Tag     string     // Tag as published, e.g. "v1.2.3"
		Version string     // Tag with the leading "v" removed
		Name    string     // Human-readable release name
		Notes   string     // Release notes (markdown)
		HTMLURL string     // Browser URL for the release page
		Assets  []AssetRef // Published files, in feed order
	}

	// AssetRef is one downloadable file attached to a release.
	AssetRef struct {
		Name string
		URL  string
		Size int64 // zero when the feed does not report it
	}

	// releaseDocument is the wire shape shared by JSON and YAML feeds.
	releaseDocument struct {
		TagName string          `json:"tag_name" yaml:"tag_name"`
		Name    string          `json:"name" yaml:"name"`
		Body    string          `json:"body" yaml:"body"`
		HTMLURL string          `json:"html_url" yaml:"html_url"`
		Assets  []assetDocument `json:"assets" yaml:"assets"`
	}

	assetDocument struct {
		Name               string `json:"name" yaml:"name"`
		BrowserDownloadURL string `json:"browser_download_url" yaml:"browser_download_url"`
		Size               int64  `json:"size" yaml:"size"`
	}
)

// ParseRelease parses a release feed body. JSON is tried first, then YAML,
// then a tolerant text scan that accepts both "key: value" and "key:value"
// spacing. A missing version tag is a *ParseError; missing assets are not,
// since a release may legitimately omit a platform.
func ParseRelease(raw string) (*ReleaseDescriptor, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &ParseError{Reason: "empty document"}
	}

	var doc releaseDocument
	if err := json.Unmarshal([]byte(raw), &doc); err == nil && strings.TrimSpace(doc.TagName) != "" {
		return doc.descriptor()
	}

	doc = releaseDocument{}
	if err := yaml.Unmarshal([]byte(raw), &doc); err == nil && strings.TrimSpace(doc.TagName) != "" {
		return doc.descriptor()
	}

	return scanRelease(raw)
}

func (d releaseDocument) descriptor() (*ReleaseDescriptor, error) {
	tag := strings.TrimSpace(d.TagName)
	version, err := versionFromTag(tag)
	if err != nil {
		return nil, err
	}

	assets := make([]AssetRef, 0, len(d.Assets))
	for _, a := range d.Assets {
		assets = append(assets, AssetRef{Name: a.Name, URL: a.BrowserDownloadURL, Size: a.Size})
	}
	return &ReleaseDescriptor{
		Tag:     tag,
		Version: version,
		Name:    d.Name,
		Notes:   d.Body,
		HTMLURL: d.HTMLURL,
		Assets:  assets,
	}, nil
}

// scanRelease extracts the tag and asset URLs by pattern matching, for feed
// bodies that neither JSON nor YAML decoding accepts.
func scanRelease(raw string) (*ReleaseDescriptor, error) {
	m := tagFieldRe.FindStringSubmatch(raw)
	if m == nil || m[1] == "" {
		return nil, &ParseError{Reason: "no tag_name field found"}
	}

	version, err := versionFromTag(m[1])
	if err != nil {
		return nil, err
	}

	d := &ReleaseDescriptor{Tag: m[1], Version: version}
	for _, um := range urlFieldRe.FindAllStringSubmatch(raw, -1) {
		if name := assetNameFromURL(um[1]); name != "" {
			d.Assets = append(d.Assets, AssetRef{Name: name, URL: um[1]})
		}
	}
	return d, nil
}

// assetNameFromURL returns the unescaped last path segment of rawURL.
func assetNameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return ""
	}
	name, err := url.PathUnescape(path.Base(u.Path))
	if err != nil || name == "/" || name == "." {
		return ""
	}
	return name
}

// versionFromTag strips the prefix from tag; a tag with nothing left is a
// *ParseError.
func versionFromTag(tag string) (string, error) {
	version := stripVersionPrefix(strings.TrimSpace(tag))
	if version == "" {
		return "", &ParseError{Reason: fmt.Sprintf("tag_name %q carries no version", tag)}
	}
	return version, nil
}

func stripVersionPrefix(tag string) string {
	if strings.HasPrefix(tag, "v") || strings.HasPrefix(tag, "V") {
		return tag[1:]
	}
	return tag
}

// FindAsset returns the first asset whose name equals name exactly.
// Partial matches are never accepted, so one platform's archive cannot be
// mistaken for another's.
func FindAsset(d *ReleaseDescriptor, name string) (AssetRef, bool) {
	if d == nil || name == "" {
		return AssetRef{}, false
	}
	for _, a := range d.Assets {
		if a.Name == name {
			return a, true
		}
	}
	return AssetRef{}, false
}

// FindAssetURL returns the download URL of the asset named name.
func FindAssetURL(d *ReleaseDescriptor, name string) (string, bool) {
	a, ok := FindAsset(d, name)
	return a.URL, ok
}

// FindChecksumManifestURL returns the download URL of the checksum manifest.
func FindChecksumManifestURL(d *ReleaseDescriptor) (string, bool) {
	return FindAssetURL(d, ChecksumManifestName)
}
