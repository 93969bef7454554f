package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/crateapi/pkg/api"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds the path kind and originating crate to node labels.
	// When false, only the path is shown.
	Detailed bool

	// MaxDepth limits how far below the root paths are drawn. Zero means
	// no limit.
	MaxDepth int
}

// ToDOT converts the path tree of an Api to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG].
//
// Re-export paths are drawn with dashed outlines, and paths that belong to
// an external crate are filled grey.
func ToDOT(a *api.Api, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.2;\n")
	buf.WriteString("\n")

	root := a.Root()
	if root == nil {
		buf.WriteString("}\n")
		return buf.String()
	}

	type entry struct {
		id    api.PathID
		depth int
	}
	var nodes []api.PathID
	var edges [][2]api.PathID
	seen := map[api.PathID]bool{root.ID: true}
	queue := []entry{{root.ID, 0}}
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]
		nodes = append(nodes, e.id)
		if opts.MaxDepth > 0 && e.depth >= opts.MaxDepth {
			continue
		}
		for _, child := range a.Paths.Get(e.id).Children {
			edges = append(edges, [2]api.PathID{e.id, child})
			if !seen[child] {
				seen[child] = true
				queue = append(queue, entry{child, e.depth + 1})
			}
		}
	}

	for _, id := range nodes {
		p := a.Paths.Get(id)
		fmt.Fprintf(&buf, "  %s [%s];\n", nodeID(id), strings.Join(fmtAttrs(a, p, opts.Detailed), ", "))
	}

	buf.WriteString("\n")
	for _, e := range edges {
		fmt.Fprintf(&buf, "  %s -> %s;\n", nodeID(e[0]), nodeID(e[1]))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeID(id api.PathID) string {
	return "p" + strconv.Itoa(int(id))
}

func fmtLabel(a *api.Api, p *api.Path, detailed bool) string {
	if !detailed {
		return p.Path
	}
	parts := []string{"kind: " + p.Kind.String()}
	if p.CrateID != nil {
		if c := a.Crates.Get(*p.CrateID); c != nil {
			parts = append(parts, "crate: "+c.Name)
		}
	}
	return p.Path + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(a *api.Api, p *api.Path, detailed bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", fmtLabel(a, p, detailed))}
	switch {
	case p.Kind == api.PathKindImport:
		attrs = append(attrs, "style=\"rounded,filled,dashed\"")
	case p.Kind == api.PathKindModule:
		attrs = append(attrs, "penwidth=2")
	}
	if p.CrateID != nil {
		attrs = append(attrs, "fillcolor=lightgrey")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces graphviz's pt-sized svg tag with one that
// scales to its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
