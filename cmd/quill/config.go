// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quillhq/quill/internal/config"
	"github.com/quillhq/quill/internal/issue"
)

// newConfigCommand creates the `quill config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage quill configuration",
		Long: `Manage quill configuration.

Configuration is stored in:
  - Linux: ~/.config/quill/config.cue
  - macOS: ~/Library/Application Support/quill/config.cue
  - Windows: %APPDATA%\quill\config.cue

QUILL_UI_* and QUILL_UPDATE_* environment variables override file values.
GITHUB_TOKEN (or QUILL_UPDATE_TOKEN) authenticates release requests.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath(app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(app)
		},
	})

	return cfgCmd
}

// showConfig reloads the configuration so load errors surface here instead
// of the root command's fallback to defaults.
func showConfig(ctx context.Context, app *App) error {
	opts := config.LoadOptions{ConfigFilePath: app.configPath}
	cfg, err := app.Config.Load(ctx, opts)
	if err != nil {
		if rendered, renderErr := issue.Get(issue.ConfigLoadFailedId).Render(app.glamourStyle()); renderErr == nil {
			fmt.Fprint(app.stderr, rendered)
		}
		return err
	}

	source := "(using defaults)"
	if cfgPath, pathErr := config.ResolvePath(opts); pathErr == nil && fileExistsCheck(cfgPath) {
		source = cfgPath
	}
	fmt.Fprintf(app.stdout, "// source: %s\n", source)
	fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
	return nil
}

func showConfigPath(app *App) error {
	cfgPath, err := config.ResolvePath(config.LoadOptions{ConfigFilePath: app.configPath})
	if err != nil {
		return err
	}
	fmt.Fprintln(app.stdout, cfgPath)
	return nil
}

func initConfig(app *App) error {
	cfgPath, err := config.ResolvePath(config.LoadOptions{ConfigFilePath: app.configPath})
	if err != nil {
		return err
	}

	created, err := config.CreateDefaultConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	if !created {
		fmt.Fprintf(app.stdout, "%s Configuration already exists at %s\n", WarningStyle.Render("!"), cfgPath)
		return nil
	}

	fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), cfgPath)
	return nil
}

// glamourStyle returns the glamour style matching ui.color_scheme.
func (a *App) glamourStyle() string {
	if a.cfg == nil {
		return string(config.ColorSchemeAuto)
	}
	return a.cfg.UI.ColorScheme.String()
}

func fileExistsCheck(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
