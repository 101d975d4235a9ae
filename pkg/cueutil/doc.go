// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates CUE documents against embedded schemas.
//
// Every CUE file the tool reads goes through the same flow: compile the
// embedded schema, compile the user document and unify it with the schema's
// root definition, then validate and decode into a Go value.
//
//	//go:embed build_schema.cue
//	var schema []byte
//
//	result, err := cueutil.ParseAndDecode[Build](schema, data, "#Build",
//	    cueutil.WithFilename("build.cue"))
//	if err != nil {
//	    return nil, err // message carries the offending field path
//	}
//	return result.Value, nil
package cueutil
