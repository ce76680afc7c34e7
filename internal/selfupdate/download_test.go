// SPDX-License-Identifier: MPL-2.0

package selfupdate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestHTTPDownloader_Download(t *testing.T) {
	t.Parallel()

	const content = "binary-content-placeholder-for-test"
	var gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		fmt.Fprint(w, content)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "asset.tar.gz")
	// An existing file is overwritten, not appended to.
	if err := os.WriteFile(dest, []byte("stale content that is much longer than the download"), 0o644); err != nil {
		t.Fatal(err)
	}

	d := NewHTTPDownloader(NewGitHubFeed(WithBaseURL(srv.URL)))
	if err := d.Download(context.Background(), srv.URL+"/dl/asset.tar.gz", dest); err != nil {
		t.Fatalf("Download() error: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != content {
		t.Errorf("got %q, want %q", got, content)
	}
	if gotAccept != "application/octet-stream" {
		t.Errorf("got Accept %q", gotAccept)
	}
}

func TestHTTPDownloader_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "asset.tar.gz")
	err := NewHTTPDownloader(nil).Download(context.Background(), srv.URL+"/missing", dest)

	var de *DownloadError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DownloadError, got %T: %v", err, err)
	}
	if de.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", de.StatusCode)
	}
	if !errors.Is(err, ErrDownload) {
		t.Error("expected errors.Is(err, ErrDownload)")
	}
	if StageOf(err) != StageDownload {
		t.Errorf("StageOf() = %v, want %v", StageOf(err), StageDownload)
	}
	if _, statErr := os.Stat(dest); !errors.Is(statErr, os.ErrNotExist) {
		t.Errorf("destination should not exist after a failed download, stat err = %v", statErr)
	}
}

func TestHTTPDownloader_TruncatedBodyRemovesPartialFile(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Promise more bytes than are sent so the client sees an unexpected EOF.
		w.Header().Set("Content-Length", "1000")
		fmt.Fprint(w, "partial")
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "asset.tar.gz")
	err := NewHTTPDownloader(nil).Download(context.Background(), srv.URL, dest)
	if !errors.Is(err, ErrDownload) {
		t.Fatalf("expected ErrDownload, got %v", err)
	}
	if _, statErr := os.Stat(dest); !errors.Is(statErr, os.ErrNotExist) {
		t.Errorf("partial file left behind, stat err = %v", statErr)
	}
}

func TestHTTPDownloader_SlowBodyOutlastsTimeout(t *testing.T) {
	t.Parallel()

	const chunk = "0123456789"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, _ := w.(http.Flusher)
		for range 6 {
			fmt.Fprint(w, chunk)
			if flusher != nil {
				flusher.Flush()
			}
			select {
			case <-r.Context().Done():
				return
			case <-time.After(40 * time.Millisecond):
			}
		}
	}))
	defer srv.Close()

	// The whole transfer takes about 240ms, well past the 100ms timeout.
	d := NewHTTPDownloader(NewGitHubFeed(WithTimeout(100 * time.Millisecond)))
	dest := filepath.Join(t.TempDir(), "asset.tar.gz")
	if err := d.Download(context.Background(), srv.URL, dest); err != nil {
		t.Fatalf("Download() error: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if want := strings.Repeat(chunk, 6); string(got) != want {
		t.Errorf("got %d bytes, want %d", len(got), len(want))
	}
}

func TestHTTPDownloader_SlowHeadersTimeOut(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
			fmt.Fprint(w, "too late")
		}
	}))
	defer srv.Close()

	d := NewHTTPDownloader(NewGitHubFeed(WithTimeout(50 * time.Millisecond)))
	err := d.Download(context.Background(), srv.URL, filepath.Join(t.TempDir(), "asset.tar.gz"))
	if !errors.Is(err, ErrDownload) {
		t.Fatalf("expected ErrDownload, got %v", err)
	}
}

func TestNewHTTPDownloader_KeepsCustomClient(t *testing.T) {
	t.Parallel()

	custom := &http.Client{Timeout: time.Minute}
	if d := NewHTTPDownloader(NewGitHubFeed(WithHTTPClient(custom))); d.httpClient != custom {
		t.Error("a client set with WithHTTPClient should be used for downloads")
	}
	if d := NewHTTPDownloader(NewGitHubFeed()); d.httpClient.Timeout != 0 {
		t.Errorf("download client Timeout = %v, want 0 (body bounded by context)", d.httpClient.Timeout)
	}
}

func TestHTTPDownloader_TokenScoping(t *testing.T) {
	t.Parallel()

	var apiAuth, cdnAuth string
	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cdnAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, "x")
	}))
	defer cdn.Close()
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, "x")
	}))
	defer api.Close()

	d := NewHTTPDownloader(NewGitHubFeed(WithBaseURL(api.URL), WithToken("ghp_test"))) //nolint:gosec // Fake token for testing only.
	dir := t.TempDir()

	if err := d.Download(context.Background(), api.URL+"/asset", filepath.Join(dir, "a")); err != nil {
		t.Fatal(err)
	}
	if err := d.Download(context.Background(), cdn.URL+"/asset", filepath.Join(dir, "b")); err != nil {
		t.Fatal(err)
	}

	if apiAuth != "Bearer ghp_test" {
		t.Errorf("API host Authorization = %q", apiAuth)
	}
	if cdnAuth != "" {
		t.Errorf("token leaked to non-GitHub host: %q", cdnAuth)
	}
}
