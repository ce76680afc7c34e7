// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"strings"
	"testing"
)

const testSchema = `
#Settings: {
	name?:    string
	retries?: int & >=0
	mode?:    "fast" | "safe"
}
`

func TestDecodeMap(t *testing.T) {
	t.Parallel()

	got, err := DecodeMap(testSchema, []byte(`name: "quill"
mode: "safe"
`), "#Settings", "settings.cue")
	if err != nil {
		t.Fatalf("DecodeMap() error: %v", err)
	}
	if got["name"] != "quill" || got["mode"] != "safe" {
		t.Errorf("DecodeMap() = %v", got)
	}
	if _, ok := got["retries"]; ok {
		t.Error("unset optional fields must be absent")
	}
}

func TestDecodeMap_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		wantSub string
	}{
		{"syntax error", "name: ", "settings.cue"},
		{"wrong type", `name: 42`, "name"},
		{"constraint violation", `retries: -1`, "retries"},
		{"disjunction miss", `mode: "reckless"`, "mode"},
		{"unknown field", `colour: "red"`, "colour"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := DecodeMap(testSchema, []byte(tt.data), "#Settings", "settings.cue")
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q should mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestDecodeMap_TooLarge(t *testing.T) {
	t.Parallel()

	data := []byte(strings.Repeat(" ", DefaultMaxFileSize+1))
	if _, err := DecodeMap(testSchema, data, "#Settings", "big.cue"); err == nil {
		t.Error("expected size error")
	}
}
