// SPDX-License-Identifier: MPL-2.0

// Package scope implements the lifecycle of the registries that serve models.
//
// A Scope moves through Unregistered, Registering and Ready, and ends in either
// TornDown or Failed. Registration actions run exactly once, serially, while
// the scope is Registering; the registry is sealed before Ready is published,
// so every request served afterwards sees the same immutable builder list.
// Project scopes are children of a build scope: their registries fall back to
// the build registry and they are torn down with it.
package scope
