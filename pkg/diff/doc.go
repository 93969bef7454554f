// Package diff compares two [api.Api] values and reports what changed.
//
// A [Diff] names the [Rule] that fired, a [Severity] (Allow < Report <
// Warn) and where the change happened on each side. Comparisons are by
// name, never by id, since ids of two Apis are unrelated.
//
// # Checks
//
// The engine runs a list of [Check] functions. The only check shipped today
// is [PublicDependencies], which compares the external crates exposed by
// the public surface:
//
//   - a crate only on the before side is DEPENDENCY_REMOVED
//   - a crate only on the after side is DEPENDENCY_ADDED
//   - a crate whose requirement is unknown on either side is DEPENDENCY_AMBIGUOUS
//   - a crate whose requirement narrowed is DEPENDENCY_REQUIREMENT
//
// # Breaking Intervals
//
// A requirement narrows when the interval computed by [BreakingInterval]
// loses versions. Each comparator is pinned to its leftmost non-zero
// component, so with a major version of 1 or more only a major bump
// counts: "^1.0.0" to "^1.9.0" is compatible, "^1.0.0" to "^2.0.0" is not.
// Below 1.0 the minor component takes that role.
package diff
