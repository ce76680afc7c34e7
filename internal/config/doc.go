// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/quill/config.cue (or $XDG_CONFIG_HOME/quill on Linux,
// ~/Library/Application Support/quill/config.cue on macOS, %APPDATA%\quill\config.cue
// on Windows), validated against the embedded config_schema.cue, and overridden by
// QUILL_* environment variables. GITHUB_TOKEN supplies the update token.
package config
