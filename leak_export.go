package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-graphviz"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// NodeKind returns a short label for the role of a node
func (lf *LeakFinder) NodeKind(id int) string {
	switch {
	case id == lf.start:
		return "start"
	case id == lf.end:
		return "end"
	case lf.nodes[id].Blocking:
		return "blocking"
	default:
		return "line"
	}
}

// GetGraphAsLineStrings returns the graph edges as line segments for visualization
func (lf *LeakFinder) GetGraphAsLineStrings() []orb.LineString {
	lines := make([]orb.LineString, 0)

	for _, node := range lf.nodes {
		for _, neighborID := range node.Neighbors {
			// Edges are symmetric, emit each one once
			if node.ID < neighborID {
				lines = append(lines, orb.LineString{node.Position, lf.nodes[neighborID].Position})
			}
		}
	}

	return lines
}

// FeatureCollection exports the node graph and, if a leak was found, its path
// as GeoJSON. Nodes become points with "kind", "skip" and "linedef"
// properties, edges become line strings with "kind": "edge", and the path is a
// single line string with "kind": "path".
func (lf *LeakFinder) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, node := range lf.nodes {
		f := geojson.NewFeature(node.Position)
		f.Properties["id"] = node.ID
		f.Properties["kind"] = lf.NodeKind(node.ID)
		f.Properties["skip"] = lf.state.skip[node.ID]
		if node.Linedef != nil {
			f.Properties["linedef"] = node.Linedef.Index
		}
		fc.Append(f)
	}

	for _, line := range lf.GetGraphAsLineStrings() {
		f := geojson.NewFeature(line)
		f.Properties["kind"] = "edge"
		fc.Append(f)
	}

	if points := lf.PathPoints(); len(points) > 1 {
		f := geojson.NewFeature(orb.LineString(points))
		f.Properties["kind"] = "path"
		f.Properties["attempts"] = lf.attempts
		fc.Append(f)
	}

	return fc
}

// SaveGeoJSON writes the feature collection to a file
func (lf *LeakFinder) SaveGeoJSON(filename string) error {
	data, err := lf.FeatureCollection().MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	lf.logger.Info("saved geojson", "file", filename, "bytes", len(data))
	return nil
}

// ToDOT returns a Graphviz DOT representation of the node graph. Nodes are
// pinned to their map positions for the neato engine, blocking nodes are drawn
// in purple and path edges in red.
func (lf *LeakFinder) ToDOT() string {
	onPath := make(map[[2]int]bool)
	path := lf.Path()
	for i := 1; i < len(path); i++ {
		onPath[edgeKey(path[i-1], path[i])] = true
	}

	var buf bytes.Buffer
	buf.WriteString("graph SoundLeak {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  node [shape=point, width=0.08];\n\n")

	for _, node := range lf.nodes {
		color := "black"
		switch lf.NodeKind(node.ID) {
		case "start":
			color = "green"
		case "end":
			color = "blue"
		case "blocking":
			color = "purple"
		}
		if lf.state.skip[node.ID] {
			color = "gray"
		}
		fmt.Fprintf(&buf, "  n%d [pos=\"%.2f,%.2f!\", color=%s];\n",
			node.ID, node.Position.X()/64, node.Position.Y()/64, color)
	}

	buf.WriteString("\n")
	for _, node := range lf.nodes {
		for _, neighborID := range node.Neighbors {
			if node.ID >= neighborID {
				continue
			}
			if onPath[edgeKey(node.ID, neighborID)] {
				fmt.Fprintf(&buf, "  n%d -- n%d [color=red, penwidth=2];\n", node.ID, neighborID)
			} else {
				fmt.Fprintf(&buf, "  n%d -- n%d [color=gray70];\n", node.ID, neighborID)
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders the DOT representation of the graph to SVG
func (lf *LeakFinder) RenderSVG(ctx context.Context) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(lf.ToDOT()))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

func edgeKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}
