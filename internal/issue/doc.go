// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries an operation, resource, and suggestions for CLI
// output. Issue pages are Markdown help texts for known failures (rate
// limits, checksum mismatches, managed installs) rendered with glamour.
package issue
