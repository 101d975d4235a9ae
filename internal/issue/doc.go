// SPDX-License-Identifier: MPL-2.0

// Package issue turns failures into user-facing errors.
//
// ActionableError carries the failed operation, the resource involved and
// suggestions for fixing it. Each failure class also has a Markdown issue page
// in the catalog, rendered with glamour when the CLI runs verbosely.
package issue
