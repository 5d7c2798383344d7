package graph

import "strings"

var mermaidClasses = []string{
	"classDef entity fill:#e1f5fe",
	"classDef derived fill:#fff3e0",
	"classDef function fill:#e8f5e9",
	"classDef scenario fill:#fce4ec",
	"classDef invariant fill:#f3e5f5",
}

// Mermaid renders the graph as a Mermaid flowchart. Node order is sorted
// by id, edge order is build order, so the output is stable for golden
// comparisons.
func (g *Graph) Mermaid() string {
	var b strings.Builder
	b.WriteString("graph LR\n")
	for _, class := range mermaidClasses {
		b.WriteString("    " + class + "\n")
	}
	for _, node := range g.Nodes() {
		b.WriteString("    " + mermaidID(node.ID) + "[" + node.Name + "]:::" + string(node.Kind) + "\n")
	}
	for _, edge := range g.edges {
		b.WriteString("    " + mermaidID(edge.Source) + " -->|" + edge.Relation + "| " + mermaidID(edge.Target) + "\n")
	}
	return b.String()
}

// mermaidID makes a node id safe for Mermaid identifiers.
func mermaidID(id string) string {
	id = strings.ReplaceAll(id, ":", "_")
	return strings.ReplaceAll(id, ".", "_")
}
