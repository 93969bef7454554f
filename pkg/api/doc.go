// Package api defines the normalized public-surface graph of a package.
//
// # Architecture
//
// An [Api] stores three append-only arenas addressed by small integer ids:
//
//   - [Paths]: named locations (modules, types, functions, re-exports)
//   - [Items]: the terminal payloads paths point at
//   - [Crates]: external dependencies reachable from the public surface
//
// Ids are dense and assigned in insertion order. They are never reused and
// never valid across two Api values; comparing two graphs is always done by
// name, never by id.
//
// The first path pushed by a builder is the root. Every other path is owned
// by exactly one parent's Children list, except that a path synthesized for a
// re-export copies its target's ItemID and Children by value.
//
// # Serialization
//
// Api values round-trip through JSON:
//
//	a, _ := api.ReadFile("before.json")
//	api.WriteFile(a, "copy.json")
//
// [Read] validates ids after decoding, so a hand-edited file with dangling
// references fails early with an API_PARSE error instead of panicking in a
// later stage.
package api
