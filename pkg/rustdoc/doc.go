// Package rustdoc reads rustdoc's JSON output and builds an [api.Api] from it.
//
// # Raw Tree
//
// [Parse] decodes only what the builder needs: the root id, the item index,
// the path table and the external crate table. Item bodies are reduced to a
// closed set of [Variant] shapes; anything that does not contain other items
// is a [Terminal].
//
// # Building
//
//	doc, err := rustdoc.ParseFile("target/doc/mycrate.json")
//	a, err := rustdoc.NewBuilder().Build(doc)
//
// Building is a breadth-first walk from the root followed by a second pass
// that resolves `pub use` re-exports. Structural children therefore always
// precede re-export children in a path's Children list.
//
// # Generating
//
// [Generate] shells out to `cargo +nightly doc` and returns the path of the
// JSON file. It is the only blocking call in the package and honours context
// cancellation.
package rustdoc
