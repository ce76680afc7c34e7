// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/quillhq/quill/internal/config"
	"github.com/quillhq/quill/internal/selfupdate"
)

// notifyPendingUpdate prints a one-line notice when the last recorded check
// found a release newer than current. It reads only the state file and
// never touches the network.
func notifyPendingUpdate(w io.Writer, cfg *config.Config, stateDir, current string) {
	if cfg == nil || !cfg.Update.Notify || stateDir == "" || current == "dev" {
		return
	}

	st, err := selfupdate.NewStateStore(stateDir).Load()
	if err != nil || !st.PendingUpdate(current) {
		return
	}

	fmt.Fprintf(w, "\n%s %s → %s\nRun %s to install.\n",
		WarningStyle.Render("A new release of quill is available:"),
		current, CmdStyle.Render(st.LatestVersion),
		CmdStyle.Render("'quill upgrade'"))
}
