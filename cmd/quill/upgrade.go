// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/quillhq/quill/internal/issue"
	"github.com/quillhq/quill/internal/selfupdate"
	"github.com/quillhq/quill/pkg/types"
)

//nolint:gochecknoglobals // Test seam for glamour.Render.
var renderMarkdown = glamour.Render

// upgradeParams bundles the dependencies and flags for the upgrade command,
// so runUpgrade can be tested without a real Cobra command or network.
type upgradeParams struct {
	stdout      io.Writer
	stderr      io.Writer
	updater     *selfupdate.Updater
	state       *selfupdate.StateStore // nil unless update.notify is on
	confirm     ConfirmFunc
	target      string // target version (empty = latest)
	check       bool   // --check: report availability without installing
	yes         bool   // --yes: skip confirmation prompt
	notes       bool   // --notes: print the release notes
	glamourType string // glamour style for release notes
}

// newUpgradeCommand creates the `quill upgrade` command.
func newUpgradeCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upgrade [version]",
		Short: "Update quill to the latest release or a specific version",
		Long: `Update quill to the latest release or a specific version.

The upgrade command downloads the release archive for this platform,
verifies its SHA256 checksum against the release's checksum manifest,
unpacks it, and replaces the running executable.

If quill was installed via Homebrew or go install, the command prints the
package manager command to run instead.`,
		Example: `  # Upgrade to latest
  quill upgrade

  # Check for updates without installing
  quill upgrade --check

  # Upgrade to a specific version and show what changed
  quill upgrade v1.2.0 --notes

  # Skip confirmation prompt
  quill upgrade --yes`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			checkFlag, _ := cmd.Flags().GetBool("check")
			yesFlag, _ := cmd.Flags().GetBool("yes")
			notesFlag, _ := cmd.Flags().GetBool("notes")

			var target string
			if len(args) > 0 {
				target = args[0]
			}

			updater, err := app.NewUpdater(app.cfg, app.newLogger())
			if err != nil {
				fmt.Fprintln(app.stderr, formatErrorForDisplay(err, app.verbose))
				return &ExitError{Code: types.ExitUserError, Err: err}
			}

			p := upgradeParams{
				stdout:      app.stdout,
				stderr:      app.stderr,
				updater:     updater,
				state:       app.checkStateStore(),
				confirm:     app.Confirm,
				target:      target,
				check:       checkFlag,
				yes:         yesFlag,
				notes:       notesFlag,
				glamourType: app.glamourStyle(),
			}

			if err := runUpgrade(cmd.Context(), p); err != nil {
				fmt.Fprintln(p.stderr, formatUpgradeError(err, p.glamourType))
				return &ExitError{Code: classifyUpgradeExitCode(err), Err: err}
			}

			return nil
		},
	}

	cmd.Flags().Bool("check", false, "Check for available upgrade without installing")
	cmd.Flags().BoolP("yes", "y", false, "Skip confirmation prompt")
	cmd.Flags().Bool("notes", false, "Show the release notes of the new version")

	return cmd
}

// runUpgrade is the core upgrade logic. All user-facing output goes through
// p.stdout.
//
// Flow:
//  1. Check the release feed, recording the result when notices are on.
//  2. If already up to date, report and return.
//  3. If the install is managed (Homebrew/go install), print guidance and return.
//  4. If --check, report availability and return.
//  5. Otherwise confirm (unless --yes), then download, verify, and replace.
func runUpgrade(ctx context.Context, p upgradeParams) error {
	res, err := p.updater.Check(ctx, p.target)
	if err != nil {
		return fmt.Errorf("checking for upgrade: %w", err)
	}
	if p.state != nil {
		if saveErr := p.state.Save(selfupdate.CheckStateOf(res)); saveErr != nil {
			fmt.Fprintln(p.stderr, WarningStyle.Render("Warning: ")+saveErr.Error())
		}
	}

	fmt.Fprintf(p.stdout, "Current version: %s\n", res.CurrentVersion)
	fmt.Fprintf(p.stdout, "Latest version:  %s\n", res.LatestVersion)

	if !res.UpdateAvailable {
		if selfupdate.IsNewer(res.CurrentVersion, res.LatestVersion) {
			fmt.Fprintf(p.stdout, "\nThe running version is newer than %s; nothing to do.\n", res.LatestVersion)
		} else {
			fmt.Fprintf(p.stdout, "\n%s\n", SuccessStyle.Render("quill is up to date."))
		}
		return nil
	}

	if p.notes {
		printReleaseNotes(p.stdout, res, p.glamourType)
	}

	if res.InstallMethod.Managed() {
		fmt.Fprintf(p.stdout, "\nquill was installed with %s. Upgrade it with:\n  %s\n",
			res.InstallMethod, CmdStyle.Render(res.InstallMethod.UpgradeHint()))
		return nil
	}

	if p.check {
		fmt.Fprintf(p.stdout, "\nAn upgrade is available: %s → %s\n", res.CurrentVersion, res.LatestVersion)
		if res.DownloadURL == "" {
			fmt.Fprintf(p.stdout, "No release archive is published for %s.\n", res.Platform)
		} else {
			fmt.Fprintln(p.stdout, "Run 'quill upgrade' to install.")
		}
		return nil
	}

	if res.DownloadURL == "" {
		return &selfupdate.UnsupportedPlatformError{Platform: res.Platform, Asset: res.AssetName}
	}

	if !p.yes {
		confirmed, confirmErr := p.confirm(fmt.Sprintf("Upgrade quill from %s to %s?", res.CurrentVersion, res.LatestVersion))
		if confirmErr != nil {
			return fmt.Errorf("confirmation prompt (use --yes to skip): %w", confirmErr)
		}
		if !confirmed {
			fmt.Fprintln(p.stdout, "Upgrade cancelled.")
			return nil
		}
	}

	fmt.Fprintf(p.stdout, "\nDownloading %s...\n", res.AssetName)

	if err := p.updater.Apply(ctx, res); err != nil {
		return fmt.Errorf("applying upgrade: %w", err)
	}

	if res.ChecksumURL != "" {
		fmt.Fprintln(p.stdout, "Verifying checksum... OK")
	}
	fmt.Fprintln(p.stdout, "Replacing binary...  OK")
	fmt.Fprintln(p.stdout, SuccessStyle.Render(fmt.Sprintf("Successfully upgraded to %s", res.LatestVersion)))

	return nil
}

// printReleaseNotes renders the release body as markdown, falling back to
// plain text when rendering fails.
func printReleaseNotes(w io.Writer, res *selfupdate.VersionCheckResult, style string) {
	if strings.TrimSpace(res.ReleaseNotes) == "" {
		fmt.Fprintln(w, SubtitleStyle.Render("\n(no release notes)"))
		return
	}
	out, err := renderMarkdown(res.ReleaseNotes, style)
	if err != nil {
		out = res.ReleaseNotes + "\n"
	}
	fmt.Fprint(w, "\n"+out)
	if res.ReleaseURL != "" {
		fmt.Fprintf(w, "%s\n", SubtitleStyle.Render(res.ReleaseURL))
	}
}

// classifyUpgradeExitCode maps an upgrade error to the process exit code.
// Conditions the user can correct exit with 1; network, integrity, and
// filesystem failures exit with 2.
func classifyUpgradeExitCode(err error) types.ExitCode {
	var managed *selfupdate.ManagedInstallError
	switch {
	case err == nil:
		return types.ExitSuccess
	case errors.Is(err, os.ErrPermission),
		errors.Is(err, selfupdate.ErrReleaseNotFound),
		errors.Is(err, selfupdate.ErrUnsupportedPlatform),
		errors.Is(err, selfupdate.ErrInvalidVersion),
		errors.As(err, &managed):
		return types.ExitUserError
	default:
		return types.ExitFailure
	}
}

// upgradeIssueFor picks the help page for an upgrade failure. The second
// result is false when no page applies.
func upgradeIssueFor(err error) (issue.Id, bool) {
	var (
		rateLimitErr *selfupdate.RateLimitError
		managed      *selfupdate.ManagedInstallError
	)
	switch {
	case errors.As(err, &rateLimitErr):
		return issue.RateLimitedId, true
	case errors.As(err, &managed):
		return issue.ManagedInstallId, true
	case errors.Is(err, os.ErrPermission):
		return issue.PermissionDeniedId, true
	case errors.Is(err, selfupdate.ErrInsufficientSpace):
		return issue.InsufficientSpaceId, true
	}

	switch selfupdate.StageOf(err) {
	case selfupdate.StageFetch, selfupdate.StageDownload:
		if errors.Is(err, selfupdate.ErrReleaseNotFound) {
			return issue.ReleaseNotFoundId, true
		}
		return issue.NetworkFailedId, true
	case selfupdate.StageParse:
		return issue.ReleaseNotFoundId, true
	case selfupdate.StagePlatform:
		return issue.UnsupportedPlatformId, true
	case selfupdate.StageVerify:
		if errors.Is(err, selfupdate.ErrChecksumMismatch) {
			return issue.ChecksumMismatchId, true
		}
		return issue.ChecksumMissingId, true
	case selfupdate.StageExtract:
		return issue.ArchiveInvalidId, true
	case selfupdate.StageReplace:
		return issue.ReplaceFailedId, true
	}

	if errors.Is(err, selfupdate.ErrReleaseNotFound) {
		return issue.ReleaseNotFoundId, true
	}
	return 0, false
}

// formatUpgradeError produces the error line, stage-specific details, and
// the rendered help page for err.
func formatUpgradeError(err error, style string) string {
	var b strings.Builder

	b.WriteString(ErrorStyle.Render("Error: "))
	b.WriteString(err.Error())
	b.WriteString("\n")

	var replaceErr *selfupdate.ReplaceError
	if errors.As(err, &replaceErr) && replaceErr.ExecutableMissing {
		fmt.Fprintf(&b, "\n%s the previous executable is saved at %s\n",
			WarningStyle.Render("Recovery:"), replaceErr.BackupPath)
		fmt.Fprintf(&b, "  mv %q %q\n", replaceErr.BackupPath, replaceErr.Path)
	}

	var rateLimitErr *selfupdate.RateLimitError
	if errors.As(err, &rateLimitErr) && !rateLimitErr.ResetAt.IsZero() {
		fmt.Fprintf(&b, "\nThe limit resets at %s.\n", rateLimitErr.ResetAt.Local().Format("15:04"))
	}

	id, ok := upgradeIssueFor(err)
	if !ok {
		return b.String()
	}
	rendered, renderErr := issue.Get(id).Render(style)
	if renderErr != nil {
		b.WriteString("\n")
		b.WriteString(string(issue.Get(id).MarkdownMsg()))
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString(rendered)
	return b.String()
}
