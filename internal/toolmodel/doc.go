// SPDX-License-Identifier: MPL-2.0

// Package toolmodel defines the contract between the model registry and the
// builders that produce tooling models.
//
// A Builder answers two questions: whether it can build a given model type
// (CanBuild, a cheap and idempotent predicate) and what the model is
// (BuildModel, which may delegate to the build-configuration subsystem through
// the ScopeContext). Selection between builders is a flat, ordered list of
// these two-method capabilities; there is no builder hierarchy.
//
// The package also owns the error kinds shared by the registry, the scope
// lifecycle, and the CLI: each kind is a sentinel Err* value plus a typed error
// carrying context that unwraps to it.
package toolmodel
