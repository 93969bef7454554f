// Package nodelink renders the path tree of an Api as a node-link diagram.
//
// # Usage
//
// Convert an Api to DOT format, then render to SVG:
//
//	dot := nodelink.ToDOT(a, nodelink.Options{Detailed: false})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// # Options
//
// The [Options] struct controls diagram generation:
//
//   - Detailed: node labels include the path kind and originating crate
//   - MaxDepth: stop expanding paths below this depth
//
// # DOT Format
//
// The [ToDOT] function produces Graphviz DOT source that can be rendered
// via [RenderSVG] or saved and processed with external Graphviz tools.
// Nodes are laid out left to right from the root. A re-exported module
// shares its children with the original, so the drawing is a DAG rather
// than a tree.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering.
package nodelink
