package universe

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/dominikbraun/graph/draw"
	"github.com/goccy/go-graphviz"
)

// WriteDOT renders the universe as a Graphviz DOT document. Port sectors are
// drawn as filled boxes.
func (pf *PathFinder) WriteDOT(w io.Writer) error {
	if err := draw.DOT(pf.g, w); err != nil {
		return fmt.Errorf("failed to render universe: %w", err)
	}
	return nil
}

// ImageFormat is a rendered map format
type ImageFormat string

const (
	PNG ImageFormat = "png"
	SVG ImageFormat = "svg"
	JPG ImageFormat = "jpg"
)

var renderFormats = map[ImageFormat]graphviz.Format{
	PNG: graphviz.PNG,
	SVG: graphviz.SVG,
	JPG: graphviz.JPG,
}

// ImageFormatFor picks the format matching a file name's extension
func ImageFormatFor(path string) (ImageFormat, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "jpeg" {
		ext = "jpg"
	}
	format := ImageFormat(ext)
	if _, ok := renderFormats[format]; !ok {
		return "", fmt.Errorf("unsupported map format %q (want png, svg or jpg)", ext)
	}
	return format, nil
}

// WriteImage lays the universe out with the embedded graphviz renderer and
// writes it in the given format. Port sectors are drawn as filled boxes.
func (pf *PathFinder) WriteImage(ctx context.Context, w io.Writer, format ImageFormat) error {
	gvFormat, ok := renderFormats[format]
	if !ok {
		return fmt.Errorf("unsupported map format %q", format)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return fmt.Errorf("failed to create graphviz instance: %w", err)
	}
	defer gv.Close()

	gvGraph, err := gv.Graph()
	if err != nil {
		return fmt.Errorf("failed to create graphviz graph: %w", err)
	}
	defer gvGraph.Close()

	ids := make([]int, 0, len(pf.adj))
	for id := range pf.adj {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	nodes := make(map[int]*graphviz.Node, len(ids))
	for _, id := range ids {
		node, err := gvGraph.CreateNodeByName(strconv.Itoa(id))
		if err != nil {
			return fmt.Errorf("failed to add sector %d: %w", id, err)
		}
		_, props, err := pf.g.VertexWithProperties(id)
		if err == nil && props.Attributes["shape"] == "box" {
			node.SetShape("box")
			node.SetStyle("filled")
			node.SetFillColor("lightblue")
		}
		nodes[id] = node
	}

	// warps are symmetric; draw each pair once
	for _, id := range ids {
		for _, target := range pf.adj[id] {
			if target < id {
				continue
			}
			edge, err := gvGraph.CreateEdgeByName("", nodes[id], nodes[target])
			if err != nil {
				return fmt.Errorf("failed to add warp %d-%d: %w", id, target, err)
			}
			edge.SetDir("none")
		}
	}

	if err := gv.Render(ctx, gvGraph, gvFormat, w); err != nil {
		return fmt.Errorf("failed to render universe: %w", err)
	}
	return nil
}
