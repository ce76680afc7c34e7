// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/quillhq/quill/internal/config"
	"github.com/quillhq/quill/internal/selfupdate"
)

const testAsset = "quill-x86_64-unknown-linux-gnu.tar.gz"

type (
	// staticProvider returns a fixed configuration or error.
	staticProvider struct {
		cfg *config.Config
		err error
	}

	// cliHarness runs the root command against an in-memory App.
	cliHarness struct {
		app      *App
		stdout   *bytes.Buffer
		stderr   *bytes.Buffer
		execPath string
		stateDir string
		cfg      *config.Config
	}
)

func (p staticProvider) Load(context.Context, config.LoadOptions) (*config.Config, error) {
	if p.err != nil {
		return nil, p.err
	}
	cfg := *p.cfg
	return &cfg, nil
}

// newReleaseServer serves a GitHub-style release for tag whose assets are
// files, plus the files themselves under /download/.
func newReleaseServer(t *testing.T, tag, notes string, files map[string][]byte) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/releases/latest") || strings.HasSuffix(r.URL.Path, "/releases/tags/"+tag) {
			type asset struct {
				Name               string `json:"name"`
				BrowserDownloadURL string `json:"browser_download_url"`
				Size               int64  `json:"size"`
			}
			doc := struct {
				TagName string  `json:"tag_name"`
				Body    string  `json:"body"`
				HTMLURL string  `json:"html_url"`
				Assets  []asset `json:"assets"`
			}{TagName: tag, Body: notes, HTMLURL: "https://example.com/releases/" + tag}
			for name, data := range files {
				doc.Assets = append(doc.Assets, asset{
					Name:               name,
					BrowserDownloadURL: "http://" + r.Host + "/download/" + name,
					Size:               int64(len(data)),
				})
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(doc)
			return
		}
		if name, ok := strings.CutPrefix(r.URL.Path, "/download/"); ok {
			if data, found := files[name]; found {
				_, _ = w.Write(data)
				return
			}
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// quillTarGz returns a tar.gz holding content as the quill executable.
func quillTarGz(t *testing.T, content string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	if err := tw.WriteHeader(&tar.Header{Name: "quill", Mode: 0o755, Size: int64(len(content)), Typeflag: tar.TypeReg}); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func manifestFor(name string, data []byte) []byte {
	sum := sha256.Sum256(data)
	return []byte(hex.EncodeToString(sum[:]) + "  " + name + "\n")
}

// newHarness builds an App whose updater talks to srv as version current,
// targets linux/amd64, and replaces a fake executable in a temp dir.
func newHarness(t *testing.T, srv *httptest.Server, current string, confirm ConfirmFunc) *cliHarness {
	t.Helper()

	h := &cliHarness{
		stdout:   &bytes.Buffer{},
		stderr:   &bytes.Buffer{},
		execPath: filepath.Join(t.TempDir(), "quill"),
		stateDir: t.TempDir(),
	}
	if err := os.WriteFile(h.execPath, []byte("old-binary"), 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.UI.ColorScheme = "notty"
	cfg.Update.APIBaseURL = srv.URL

	h.cfg = cfg

	h.app = NewApp(Dependencies{
		Config: staticProvider{cfg: cfg},
		NewUpdater: func(c *config.Config, logger *log.Logger) (*selfupdate.Updater, error) {
			feed := selfupdate.NewGitHubFeed(selfupdate.WithBaseURL(c.Update.APIBaseURL))
			return selfupdate.NewUpdater(current,
				selfupdate.WithFeed(feed),
				selfupdate.WithDownloader(selfupdate.NewHTTPDownloader(feed)),
				selfupdate.WithPlatform(selfupdate.Platform{OS: "linux", Arch: "amd64"}),
				selfupdate.WithExecutablePath(h.execPath),
				selfupdate.WithTempDir(t.TempDir()),
				selfupdate.WithLogger(logger),
			), nil
		},
		Confirm:  confirm,
		Stdout:   h.stdout,
		Stderr:   h.stderr,
		StateDir: h.stateDir,
	})
	return h
}

func (h *cliHarness) run(t *testing.T, args ...string) error {
	t.Helper()

	root := newRootCommand(h.app)
	root.SetArgs(args)
	root.SetOut(h.stdout)
	root.SetErr(h.stderr)
	return root.ExecuteContext(context.Background())
}

func (h *cliHarness) binary(t *testing.T) string {
	t.Helper()

	data, err := os.ReadFile(h.execPath)
	if err != nil {
		t.Fatalf("reading executable: %v", err)
	}
	return string(data)
}

func alwaysConfirm(answer bool) ConfirmFunc {
	return func(string) (bool, error) { return answer, nil }
}

func failOnConfirm(t *testing.T) ConfirmFunc {
	t.Helper()
	return func(title string) (bool, error) {
		t.Errorf("unexpected confirmation prompt %q", title)
		return false, nil
	}
}
