// SPDX-License-Identifier: MPL-2.0

package config

import "context"

type (
	// LoadOptions selects where quill's configuration is read from. The zero
	// value reads <ConfigDir()>/config.cue.
	LoadOptions struct {
		// ConfigFilePath is the --config flag. When set, the file must exist.
		ConfigFilePath string
		// ConfigDirPath replaces ConfigDir() when looking for config.cue.
		ConfigDirPath string
	}

	// Provider returns the effective configuration. Layers apply lowest
	// first: built-in defaults, the CUE file, then QUILL_* variables, with
	// GITHUB_TOKEN as a fallback for update.token. The result has passed
	// Config.IsValid.
	Provider interface {
		Load(ctx context.Context, opts LoadOptions) (*Config, error)
	}

	// cueFileProvider reads config.cue through viper on every call.
	cueFileProvider struct{}
)

// NewProvider returns the Provider used by the quill command.
func NewProvider() Provider {
	return cueFileProvider{}
}

func (cueFileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg, _, err := loadWithOptions(ctx, opts)
	return cfg, err
}
