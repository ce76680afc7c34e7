// SPDX-License-Identifier: MPL-2.0

package selfupdate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"
)

type (
	// Downloader saves the body of a URL to a local path.
	Downloader interface {
		Download(ctx context.Context, url, dest string) error
	}

	// HTTPDownloader is a Downloader over net/http. It performs a single
	// attempt; there is no resumption of partial transfers.
	HTTPDownloader struct {
		httpClient *http.Client
		userAgent  string
		token      string
		apiBaseURL string // used to decide whether the token may be sent
	}
)

// NewHTTPDownloader returns a downloader sharing the feed's user agent and
// token scoping. The feed timeout bounds dialing, the TLS handshake and the
// wait for response headers, but not reading the body: a large archive on
// a slow link is limited only by ctx. A client set with WithHTTPClient is
// used unchanged.
func NewHTTPDownloader(feed *GitHubFeed) *HTTPDownloader {
	if feed == nil {
		feed = NewGitHubFeed()
	}
	client := feed.httpClient
	if !feed.customClient {
		client = downloadClient(feed.timeout)
	}
	return &HTTPDownloader{
		httpClient: client,
		userAgent:  feed.userAgent,
		token:      feed.token,
		apiBaseURL: feed.baseURL,
	}
}

func downloadClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{Transport: transport}
}

// Download streams url into dest, creating or truncating it. On any failure
// the partially written file is removed and a *DownloadError is returned.
func (d *HTTPDownloader) Download(ctx context.Context, url, dest string) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return &DownloadError{URL: url, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Accept", "application/octet-stream")
	req.Header.Set("User-Agent", d.userAgent)
	if d.token != "" && isGitHubHost(req.URL, d.apiBaseURL) {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return &DownloadError{URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode != http.StatusOK {
		return &DownloadError{URL: url, StatusCode: resp.StatusCode, Err: errors.New(resp.Status)}
	}

	f, err := os.Create(dest)
	if err != nil {
		return &DownloadError{URL: url, Err: fmt.Errorf("creating %s: %w", dest, err)}
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = &DownloadError{URL: url, Err: fmt.Errorf("closing %s: %w", dest, closeErr)}
		}
		if err != nil {
			// Best-effort removal of the partially written file.
			_ = os.Remove(dest)
		}
	}()

	if _, copyErr := io.Copy(f, resp.Body); copyErr != nil {
		return &DownloadError{URL: url, Err: fmt.Errorf("writing %s: %w", dest, copyErr)}
	}
	return nil
}
