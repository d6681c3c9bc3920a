package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/replan/pkg/domain"
	"github.com/aretw0/replan/pkg/graph"
)

const startID = "__start__"

// GraphOverlay contains run data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// OverlayFromSteps marks every node a run visited; the last one is current.
func OverlayFromSteps(steps []domain.Step) *GraphOverlay {
	overlay := &GraphOverlay{}
	for _, s := range steps {
		overlay.VisitedNodes = append(overlay.VisitedNodes, s.Node)
	}
	if len(steps) > 0 {
		overlay.CurrentNode = steps[len(steps)-1].Node
	}
	return overlay
}

// GenerateMermaid produces a Mermaid flowchart of a compiled graph.
// Start and end are drawn as ((circles)), nodes as [rectangles], and
// conditional edges carry their branch key as label.
// It also applies overlay styles (Visited/Current) if provided.
func GenerateMermaid(topo graph.Topology, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	fmt.Fprintf(&sb, "    %s((\"start\"))\n", startID)
	for _, name := range topo.Nodes {
		fmt.Fprintf(&sb, "    %s[\"%s\"]\n", sanitizeMermaidID(name), name)
	}
	fmt.Fprintf(&sb, "    %s((\"end\"))\n", sanitizeMermaidID(graph.End))

	fmt.Fprintf(&sb, "    %s --> %s\n", startID, sanitizeMermaidID(topo.Entry))
	for _, e := range topo.Edges {
		from, to := sanitizeMermaidID(e.From), sanitizeMermaidID(e.To)
		if e.Branch == "" {
			fmt.Fprintf(&sb, "    %s --> %s\n", from, to)
			continue
		}
		label := strings.ReplaceAll(string(e.Branch), "\"", "'")
		fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", from, label, to)
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high contrast regardless of theme.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if safeID != "" && !seen[safeID] {
				seen[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}
		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

var idReplacer = strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")

func sanitizeMermaidID(id string) string {
	return idReplacer.Replace(id)
}
