// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/quillhq/quill/internal/selfupdate"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// ReplaceBackup keeps a ".old" backup while the new executable is copied in.
	ReplaceBackup ReplaceStrategy = "backup"
	// ReplaceAtomic renames a staged copy over the executable in one step.
	ReplaceAtomic ReplaceStrategy = "atomic"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidReplaceStrategy is returned when a ReplaceStrategy value is not recognized.
	ErrInvalidReplaceStrategy = errors.New("invalid replace strategy")
	// ErrInvalidTimeout is returned when update.timeout is not a positive duration.
	ErrInvalidTimeout = errors.New("invalid timeout")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// ReplaceStrategy selects how the executable is swapped during an update.
	ReplaceStrategy string

	// InvalidReplaceStrategyError is returned when a ReplaceStrategy value is
	// not recognized. It wraps ErrInvalidReplaceStrategy.
	InvalidReplaceStrategyError struct {
		Value ReplaceStrategy
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui"`
		// Update configures the self-update engine
		Update UpdateConfig `json:"update" mapstructure:"update"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme sets the color scheme
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables debug logging
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}

	// UpdateConfig configures where releases come from and how they are installed.
	UpdateConfig struct {
		Owner           string          `json:"owner" mapstructure:"owner"`
		Repo            string          `json:"repo" mapstructure:"repo"`
		APIBaseURL      string          `json:"api_base_url" mapstructure:"api_base_url"`
		FeedURL         string          `json:"feed_url" mapstructure:"feed_url"`
		Timeout         string          `json:"timeout" mapstructure:"timeout"`
		RequireChecksum bool            `json:"require_checksum" mapstructure:"require_checksum"`
		ReplaceStrategy ReplaceStrategy `json:"replace_strategy" mapstructure:"replace_strategy"`
		Notify          bool            `json:"notify" mapstructure:"notify"`

		// Token authenticates GitHub requests. It is read from the
		// environment only and never written to the config file.
		Token string `json:"-" mapstructure:"token"`
	}
)

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// Error implements the error interface for InvalidReplaceStrategyError.
func (e *InvalidReplaceStrategyError) Error() string {
	return fmt.Sprintf("invalid replace strategy %q (valid: backup, atomic)", e.Value)
}

// Unwrap returns ErrInvalidReplaceStrategy.
func (e *InvalidReplaceStrategyError) Unwrap() error { return ErrInvalidReplaceStrategy }

// String returns the string representation of the ReplaceStrategy.
func (s ReplaceStrategy) String() string { return string(s) }

// IsValid returns whether the ReplaceStrategy is recognized.
func (s ReplaceStrategy) IsValid() (bool, []error) {
	switch s {
	case ReplaceBackup, ReplaceAtomic:
		return true, nil
	default:
		return false, []error{&InvalidReplaceStrategyError{Value: s}}
	}
}

// TimeoutDuration parses Timeout. An empty value yields the engine default.
func (c UpdateConfig) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return selfupdate.DefaultTimeout, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %w", ErrInvalidTimeout, c.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w %q: must be positive", ErrInvalidTimeout, c.Timeout)
	}
	return d, nil
}

// IsValid returns whether the Config has valid fields, collecting every
// field error rather than stopping at the first.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.UI.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Update.ReplaceStrategy.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if _, err := c.Update.TimeoutDuration(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %v", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig and the field errors.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Verbose:     false,
		},
		Update: UpdateConfig{
			Owner:           selfupdate.DefaultOwner,
			Repo:            selfupdate.DefaultRepo,
			APIBaseURL:      selfupdate.DefaultAPIBaseURL,
			Timeout:         selfupdate.DefaultTimeout.String(),
			RequireChecksum: false,
			ReplaceStrategy: ReplaceBackup,
			Notify:          false,
		},
	}
}
