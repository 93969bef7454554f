// Package render formats Apis and diff lists for people.
//
// # Markdown
//
// [APIMarkdown] prints the public surface as nested headings, followed by
// feature flags and public dependencies. [DiffMarkdown] prints diffs under
// "Breaking Changes" (warn) and "Changes" (report), grouped by category:
//
//	render.DiffMarkdown(os.Stdout, before, after, diffs)
//
// [DiffSummary] and [LocationName] are shared with the terminal renderer of
// the CLI.
//
// # Node-Link Diagrams
//
// The [nodelink] subpackage renders the path tree with Graphviz.
//
//	dot := nodelink.ToDOT(a, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// [nodelink]: github.com/matzehuels/crateapi/pkg/render/nodelink
package render
