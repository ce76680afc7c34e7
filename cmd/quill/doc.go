// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the CLI commands for quill: the root command,
// `quill upgrade`, and `quill config`.
package cmd
