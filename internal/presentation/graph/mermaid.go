package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/roomservice/pkg/domain"
)

// GraphOverlay contains session state to highlight on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// GenerateMermaid produces a Mermaid flowchart of the conversation.
// Shapes:
// - Initial node: ((Circle))
// - Terminal node: ([Stadium])
// - Default: [Rectangle]
//
// Every action draws an edge to each declared successor, labelled with the
// action name. The fallback edge is dotted when it is not the first successor.
func GenerateMermaid(initial string, nodes []domain.Node, actions []domain.ActionSpec, overlay *GraphOverlay) string {
	specs := make(map[string]domain.ActionSpec, len(actions))
	for _, a := range actions {
		specs[a.Name] = a
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range nodes {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch {
		case node.ID == initial:
			opener, closer = "((", "))"
		case node.Terminal:
			opener, closer = "([", "])"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, node.ID, closer)

		for _, name := range node.Actions {
			spec, ok := specs[name]
			if !ok {
				continue
			}
			for i, to := range spec.Next {
				arrow := fmt.Sprintf("-- \"%s\" -->", name)
				if to == spec.Fallback && i > 0 {
					arrow = fmt.Sprintf("-. \"%s\" .->", name)
				}
				fmt.Fprintf(&sb, "    %s %s %s\n", safeID, arrow, sanitizeMermaidID(to))
			}
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for contrast on light fills in both themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visited := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visited[safeID] && safeID != "" {
				visited[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}
		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(id)
}
