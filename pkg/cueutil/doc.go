// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates CUE documents against embedded schemas.
//
// Validation follows three steps:
//
//  1. Compile the embedded schema
//  2. Compile user data and unify it with a schema definition
//  3. Validate and decode the unified value
//
// # Usage
//
//	//go:embed config_schema.cue
//	var configSchema string
//
//	values, err := cueutil.DecodeMap(configSchema, data, "#Config", "config.cue")
//	if err != nil {
//	    return err // Error includes the CUE path of the offending field
//	}
package cueutil
