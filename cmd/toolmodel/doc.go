// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for toolmodel.
//
// This package implements the Cobra command hierarchy for the toolmodel CLI:
// the root command, model queries against a build description, and listings
// of registered builders, service modules and configuration.
package cmd
