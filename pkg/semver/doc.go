// Package semver parses semantic versions and Cargo-style version
// requirements.
//
// A [VersionReq] is a conjunction of [Comparator] values. Comparators keep the
// shape they were written in: a comparator written as "^0.3" has a nil Patch,
// which matters to callers that reason about which component of a
// requirement is allowed to vary.
//
//	req, _ := semver.ParseReq(">= 0.3, < 0.5")
//	fmt.Println(req) // >=0.3, <0.5
//
// Structural equality ([VersionReq.Equal]) compares comparators in order and
// does not attempt to decide whether two differently written requirements
// match the same set of versions.
package semver
