// SPDX-License-Identifier: MPL-2.0

package selfupdate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds every feed and download request. There are no
	// automatic retries; update checks are user-triggered.
	DefaultTimeout = 30 * time.Second

	// DefaultAPIBaseURL is the GitHub REST API root.
	DefaultAPIBaseURL = "https://api.github.com"

	// DefaultOwner and DefaultRepo identify the repository publishing releases.
	DefaultOwner = "quillhq"
	DefaultRepo  = "quill"

	// maxFeedBytes is the upper bound on release document size (10 MB).
	maxFeedBytes = 10 << 20
)

type (
	// FeedClient fetches raw release documents. It is the only component
	// that reads the release feed over the network.
	FeedClient interface {
		FetchLatest(ctx context.Context) (string, error)
		FetchTag(ctx context.Context, tag string) (string, error)
	}

	// GitHubFeed reads release documents from the GitHub Releases API, or
	// from an explicit feed URL serving the same document shape.
	GitHubFeed struct {
		httpClient   *http.Client
		customClient bool          // set by WithHTTPClient; downloads reuse it as is
		timeout      time.Duration // per-request bound for feed requests
		owner        string
		repo         string
		baseURL      string // API base URL (overridable for tests and mirrors)
		feedURL      string // when set, FetchLatest reads this URL instead of the API
		token        string // Optional GITHUB_TOKEN for authenticated requests
		userAgent    string
	}

	// FeedOption configures a GitHubFeed during construction.
	FeedOption func(*GitHubFeed)
)

// WithHTTPClient sets a custom HTTP client, useful for tests or proxy configurations.
func WithHTTPClient(c *http.Client) FeedOption {
	return func(g *GitHubFeed) {
		g.httpClient = c
		g.customClient = c != nil
	}
}

// WithBaseURL overrides the GitHub API base URL, primarily for test servers.
func WithBaseURL(base string) FeedOption {
	return func(g *GitHubFeed) {
		if base != "" {
			g.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithFeedURL points FetchLatest at a fixed document URL (a mirror or a
// static file) instead of the GitHub API.
func WithFeedURL(u string) FeedOption {
	return func(g *GitHubFeed) {
		g.feedURL = u
	}
}

// WithToken sets a GitHub personal access token for authenticated requests.
// Authenticated requests have a higher rate limit (5000/hour vs 60/hour).
func WithToken(token string) FeedOption {
	return func(g *GitHubFeed) {
		g.token = token
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) FeedOption {
	return func(g *GitHubFeed) {
		g.userAgent = ua
	}
}

// WithRepo overrides the default repository owner and name.
func WithRepo(owner, repo string) FeedOption {
	return func(g *GitHubFeed) {
		if owner != "" {
			g.owner = owner
		}
		if repo != "" {
			g.repo = repo
		}
	}
}

// WithTimeout bounds each feed request by d. Asset downloads only bound
// connecting and waiting for response headers by d; see NewHTTPDownloader.
func WithTimeout(d time.Duration) FeedOption {
	return func(g *GitHubFeed) {
		if d > 0 {
			g.timeout = d
			g.httpClient = &http.Client{Timeout: d}
			g.customClient = false
		}
	}
}

// NewGitHubFeed creates a GitHubFeed reading quillhq/quill releases with a
// DefaultTimeout-bounded client.
func NewGitHubFeed(opts ...FeedOption) *GitHubFeed {
	g := &GitHubFeed{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		timeout:    DefaultTimeout,
		owner:      DefaultOwner,
		repo:       DefaultRepo,
		baseURL:    DefaultAPIBaseURL,
		userAgent:  "quill/dev",
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// FetchLatest returns the raw body of the latest release document.
func (g *GitHubFeed) FetchLatest(ctx context.Context) (string, error) {
	target := g.feedURL
	if target == "" {
		target = fmt.Sprintf("%s/repos/%s/%s/releases/latest", g.baseURL, g.owner, g.repo)
	}
	return g.fetch(ctx, target)
}

// FetchTag returns the raw body of the release tagged tag (e.g. "v1.2.0").
// A 404 is reported as a FetchError wrapping ErrReleaseNotFound.
func (g *GitHubFeed) FetchTag(ctx context.Context, tag string) (string, error) {
	target := fmt.Sprintf("%s/repos/%s/%s/releases/tags/%s", g.baseURL, g.owner, g.repo, url.PathEscape(tag))
	return g.fetch(ctx, target)
}

func (g *GitHubFeed) fetch(ctx context.Context, target string) (string, error) {
	resp, err := g.doRequest(ctx, target)
	if err != nil {
		return "", &FetchError{URL: target, Err: err}
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if rlErr := checkRateLimit(resp); rlErr != nil {
		return "", &FetchError{URL: target, StatusCode: resp.StatusCode, Err: rlErr}
	}

	if resp.StatusCode == http.StatusNotFound {
		return "", &FetchError{URL: target, StatusCode: resp.StatusCode, Err: ErrReleaseNotFound}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &FetchError{URL: target, StatusCode: resp.StatusCode, Err: fmt.Errorf("status %s", resp.Status)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return "", &FetchError{URL: target, Err: fmt.Errorf("reading response: %w", err)}
	}
	return string(body), nil
}

// doRequest creates and executes a GET request with common GitHub API headers.
func (g *GitHubFeed) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", g.userAgent)

	// Only attach the token to known GitHub hosts so it never leaks to a
	// mirror or a CDN redirect target.
	if g.token != "" && isGitHubHost(req.URL, g.baseURL) {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	return resp, nil
}

// checkRateLimit returns a RateLimitError when X-RateLimit-Remaining is zero.
// Missing or malformed headers are not errors.
func checkRateLimit(resp *http.Response) error {
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	if remaining == "" {
		return nil
	}

	rem, err := strconv.Atoi(remaining)
	if err != nil || rem > 0 {
		return nil //nolint:nilerr // Non-numeric header is non-fatal.
	}

	limit, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))                 //nolint:errcheck // Best-effort header parsing.
	resetUnix, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64) //nolint:errcheck // Best-effort header parsing.

	return &RateLimitError{
		Limit:     limit,
		Remaining: 0,
		ResetAt:   time.Unix(resetUnix, 0),
	}
}

// isGitHubHost reports whether reqURL targets a known GitHub host, so the auth
// token can be safely attached. It matches the configured API base URL host and,
// when the base is api.github.com, also trusts github.com for asset downloads.
func isGitHubHost(reqURL *url.URL, baseURL string) bool {
	base, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	if strings.EqualFold(reqURL.Host, base.Host) {
		return true
	}
	return strings.EqualFold(base.Host, "api.github.com") && strings.EqualFold(reqURL.Host, "github.com")
}

// redactURL strips query parameters and fragments from a URL for safe inclusion
// in error messages, preventing accidental exposure of tokens or sensitive data.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
