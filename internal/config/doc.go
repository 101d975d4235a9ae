// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as
// the file format.
//
// Values are layered: built-in defaults, then config.cue (from --config, the
// user config directory or the working directory, first found wins), then
// TOOLMODEL_* environment variables. The file is validated against the
// embedded config_schema.cue before it is merged.
package config
