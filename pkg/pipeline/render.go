package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/matzehuels/crateapi/pkg/api"
	"github.com/matzehuels/crateapi/pkg/diff"
	errs "github.com/matzehuels/crateapi/pkg/errors"
	"github.com/matzehuels/crateapi/pkg/render"
	"github.com/matzehuels/crateapi/pkg/render/nodelink"
)

// Render writes a in one of the file formats: md, json, dot or svg.
// Terminal formats (pretty, silent) are handled by the caller.
func Render(ctx context.Context, a *api.Api, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatMarkdown:
		if err := render.APIMarkdown(&buf, a); err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
	case FormatJSON:
		if err := api.Write(a, &buf); err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
	case FormatDOT:
		buf.WriteString(nodelink.ToDOT(a, nodelink.Options{Detailed: true}))
	case FormatSVG:
		data, err := nodelink.RenderSVG(ctx, nodelink.ToDOT(a, nodelink.Options{}))
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		return data, nil
	default:
		return nil, errs.New(errs.ErrCodeUnsupported, "unsupported api format: %s", format)
	}
	return buf.Bytes(), nil
}

// DiffDocument is the JSON shape of a diff report.
type DiffDocument struct {
	Breaking    bool          `json:"breaking"`
	MaxSeverity diff.Severity `json:"max_severity"`
	Diffs       []DiffEntry   `json:"diffs"`
}

// DiffEntry is a diff with its rendered summary.
type DiffEntry struct {
	Diff    diff.Diff `json:"diff"`
	Summary string    `json:"summary"`
}

// NewDiffDocument converts res for JSON output.
func NewDiffDocument(res *DiffResult) DiffDocument {
	doc := DiffDocument{
		Breaking:    res.Breaking(),
		MaxSeverity: res.MaxSeverity,
		Diffs:       make([]DiffEntry, 0, len(res.Diffs)),
	}
	for _, d := range res.Diffs {
		doc.Diffs = append(doc.Diffs, DiffEntry{
			Diff:    d,
			Summary: render.DiffSummary(res.Before.Api, res.After.Api, d),
		})
	}
	return doc
}

// RenderDiff writes res as md or json.
func RenderDiff(res *DiffResult, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatMarkdown:
		if err := render.DiffMarkdown(&buf, res.Before.Api, res.After.Api, res.Diffs); err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
	case FormatJSON:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(NewDiffDocument(res)); err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
	default:
		return nil, errs.New(errs.ErrCodeUnsupported, "unsupported diff format: %s", format)
	}
	return buf.Bytes(), nil
}
