// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"

	"github.com/quillhq/quill/internal/config"
	"github.com/quillhq/quill/internal/selfupdate"
)

type (
	// UpdaterFactory builds the Updater for a loaded configuration.
	UpdaterFactory func(cfg *config.Config, logger *log.Logger) (*selfupdate.Updater, error)

	// ConfirmFunc asks the user a yes/no question.
	ConfirmFunc func(title string) (bool, error)

	// App wires CLI services and shared dependencies. Cobra handlers receive
	// an App and read the configuration loaded by the root command.
	App struct {
		Config     config.Provider
		NewUpdater UpdaterFactory
		Confirm    ConfirmFunc
		stdout     io.Writer
		stderr     io.Writer
		stateDir   string

		// Set by the root command before any subcommand runs.
		configPath string
		verbose    bool
		cfg        *config.Config
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config     config.Provider
		NewUpdater UpdaterFactory
		Confirm    ConfirmFunc
		Stdout     io.Writer
		Stderr     io.Writer
		// StateDir overrides the check-state directory (default: config dir).
		StateDir string
	}
)

// NewApp creates an App from deps.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config:     deps.Config,
		NewUpdater: deps.NewUpdater,
		Confirm:    deps.Confirm,
		stdout:     deps.Stdout,
		stderr:     deps.Stderr,
		stateDir:   deps.StateDir,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.NewUpdater == nil {
		app.NewUpdater = newDefaultUpdater
	}
	if app.Confirm == nil {
		app.Confirm = confirmPrompt
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	return app
}

// loadConfig loads the effective configuration. A broken config file is
// reported as a warning and the defaults are used, so that `quill upgrade`
// still works to fix a bad install.
func (a *App) loadConfig(ctx context.Context) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.configPath})
	if err != nil {
		fmt.Fprintln(a.stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, a.verbose))
		cfg = config.DefaultConfig()
	}
	a.cfg = cfg
	if !a.verbose {
		a.verbose = cfg.UI.Verbose
	}
}

// resolveStateDir returns the check-state directory, or "" when none can
// be determined.
func (a *App) resolveStateDir() string {
	if a.stateDir != "" {
		return a.stateDir
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return ""
	}
	return dir
}

// checkStateStore returns the store `upgrade` records checks in, or nil
// unless update.notify is on. Checks write nothing by default.
func (a *App) checkStateStore() *selfupdate.StateStore {
	if a.cfg == nil || !a.cfg.Update.Notify {
		return nil
	}
	dir := a.resolveStateDir()
	if dir == "" {
		return nil
	}
	return selfupdate.NewStateStore(dir)
}

// newLogger returns the stage logger on stderr: Debug when verbose, Warn
// otherwise.
func (a *App) newLogger() *log.Logger {
	level := log.WarnLevel
	if a.verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(a.stderr, log.Options{
		Prefix: "selfupdate",
		Level:  level,
	})
}

// newDefaultUpdater maps the update configuration onto the engine: feed
// location and credentials, request timeout, checksum policy, and the
// replacement strategy.
func newDefaultUpdater(cfg *config.Config, logger *log.Logger) (*selfupdate.Updater, error) {
	timeout, err := cfg.Update.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	feedOpts := []selfupdate.FeedOption{
		selfupdate.WithRepo(cfg.Update.Owner, cfg.Update.Repo),
		selfupdate.WithBaseURL(cfg.Update.APIBaseURL),
		selfupdate.WithTimeout(timeout),
		selfupdate.WithUserAgent("quill/" + Version),
	}
	if cfg.Update.FeedURL != "" {
		feedOpts = append(feedOpts, selfupdate.WithFeedURL(cfg.Update.FeedURL))
	}
	// Authenticated requests get 5000/hour instead of 60/hour.
	if cfg.Update.Token != "" {
		feedOpts = append(feedOpts, selfupdate.WithToken(cfg.Update.Token))
	}
	feed := selfupdate.NewGitHubFeed(feedOpts...)

	var replacer selfupdate.Replacer = selfupdate.BackupReplacer{Logger: logger}
	if cfg.Update.ReplaceStrategy == config.ReplaceAtomic {
		replacer = selfupdate.AtomicReplacer{Logger: logger}
	}

	opts := []selfupdate.UpdaterOption{
		selfupdate.WithFeed(feed),
		selfupdate.WithDownloader(selfupdate.NewHTTPDownloader(feed)),
		selfupdate.WithReplacer(replacer),
		selfupdate.WithRequireChecksum(cfg.Update.RequireChecksum),
		selfupdate.WithLogger(logger),
	}

	return selfupdate.NewUpdater(Version, opts...), nil
}

// confirmPrompt asks title with a huh confirm field.
func confirmPrompt(title string) (bool, error) {
	confirmed := false
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Affirmative("Yes").
			Negative("No").
			Value(&confirmed),
	))
	if err := form.Run(); err != nil {
		return false, err
	}
	return confirmed, nil
}
