// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")

	tests := []struct {
		name string
		err  *ActionableError
		want string
	}{
		{
			name: "operation only",
			err:  &ActionableError{Operation: "check for updates"},
			want: "failed to check for updates",
		},
		{
			name: "with resource",
			err:  &ActionableError{Operation: "load configuration", Resource: "/tmp/config.cue"},
			want: "failed to load configuration: /tmp/config.cue",
		},
		{
			name: "with resource and cause",
			err:  &ActionableError{Operation: "download asset", Resource: "quill.tar.gz", Cause: cause},
			want: "failed to download asset: quill.tar.gz: connection refused",
		},
		{
			name: "cause without resource",
			err:  &ActionableError{Operation: "download asset", Cause: cause},
			want: "failed to download asset: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActionableError_ErrorsIsAndAs(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("sentinel")
	err := fmt.Errorf("outer: %w", NewErrorContext().
		WithOperation("apply update").
		Wrap(fmt.Errorf("inner: %w", sentinel)).
		BuildError())

	if !errors.Is(err, sentinel) {
		t.Error("errors.Is should find the wrapped sentinel")
	}
	var ae *ActionableError
	if !errors.As(err, &ae) {
		t.Fatal("errors.As should find the ActionableError")
	}
	if ae.Operation != "apply update" {
		t.Errorf("Operation = %q, want %q", ae.Operation, "apply update")
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	inner := errors.New("permission denied")
	err := &ActionableError{
		Operation:   "replace executable",
		Resource:    "/usr/local/bin/quill",
		Suggestions: []string{"Run with sudo", "Install to ~/.local/bin"},
		Cause:       fmt.Errorf("rename: %w", inner),
	}

	plain := err.Format(false)
	if !strings.HasPrefix(plain, err.Error()) {
		t.Errorf("Format(false) should start with Error(), got %q", plain)
	}
	for _, s := range err.Suggestions {
		if !strings.Contains(plain, "• "+s) {
			t.Errorf("Format(false) missing suggestion %q", s)
		}
	}
	if strings.Contains(plain, "Error chain") {
		t.Error("Format(false) should not include the error chain")
	}

	verbose := err.Format(true)
	if !strings.Contains(verbose, "Error chain:") {
		t.Fatal("Format(true) should include the error chain")
	}
	if !strings.Contains(verbose, "1. rename: permission denied") || !strings.Contains(verbose, "2. permission denied") {
		t.Errorf("Format(true) chain incomplete:\n%s", verbose)
	}
}

func TestActionableError_HasSuggestions(t *testing.T) {
	t.Parallel()

	if (&ActionableError{Operation: "x"}).HasSuggestions() {
		t.Error("HasSuggestions() = true for no suggestions")
	}
	if !(&ActionableError{Operation: "x", Suggestions: []string{"y"}}).HasSuggestions() {
		t.Error("HasSuggestions() = false with a suggestion")
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	ae := NewErrorContext().
		WithOperation("verify checksum").
		WithResource("checksums.txt").
		WithSuggestion("first").
		WithSuggestions("second", "third").
		Wrap(cause).
		Build()

	if ae == nil {
		t.Fatal("Build() returned nil")
	}
	if ae.Operation != "verify checksum" || ae.Resource != "checksums.txt" {
		t.Errorf("Build() = %+v", ae)
	}
	if got := strings.Join(ae.Suggestions, ","); got != "first,second,third" {
		t.Errorf("Suggestions = %q", got)
	}
	if !errors.Is(ae, cause) {
		t.Error("Build() lost the cause")
	}
}

func TestErrorContext_BuildWithoutOperation(t *testing.T) {
	t.Parallel()

	ctx := NewErrorContext().WithResource("somewhere").Wrap(errors.New("x"))
	if ae := ctx.Build(); ae != nil {
		t.Errorf("Build() without operation = %+v, want nil", ae)
	}
	if err := ctx.BuildError(); err != nil {
		t.Errorf("BuildError() without operation = %v, want untyped nil", err)
	}
}

func TestWrapWithContext(t *testing.T) {
	t.Parallel()

	if WrapWithContext(nil, "op", "res") != nil {
		t.Error("WrapWithContext(nil) should return nil")
	}

	cause := errors.New("boom")
	ae := WrapWithContext(cause, "fetch release", "https://api.github.com")
	if ae.Operation != "fetch release" || ae.Resource != "https://api.github.com" || ae.Cause != cause {
		t.Errorf("WrapWithContext() = %+v", ae)
	}
}
