package graph

import (
	"fmt"
	"io"
	"strings"
)

// Visualizer provides methods to visualize the module graph
type Visualizer struct {
	graph *ModuleGraph
}

// NewVisualizer creates a new graph visualizer
func NewVisualizer(graph *ModuleGraph) *Visualizer {
	return &Visualizer{graph: graph}
}

// WriteDOT writes the graph in Graphviz DOT format
func (v *Visualizer) WriteDOT(w io.Writer) error {
	v.graph.mu.RLock()
	defer v.graph.mu.RUnlock()

	fmt.Fprintln(w, "digraph modules {")
	fmt.Fprintln(w, "  rankdir=LR;")
	fmt.Fprintln(w, "  node [shape=box];")

	nodeIDs := make(map[NodeKey]string)
	for i, key := range v.graph.order {
		node := v.graph.nodes[key]
		nodeID := fmt.Sprintf("n%d", i)
		nodeIDs[key] = nodeID

		fmt.Fprintf(w, "  %s [label=\"%s\", fillcolor=\"%s\", style=filled];\n",
			nodeID, v.formatNodeLabel(node), v.getNodeColor(node))
	}

	for _, from := range v.graph.order {
		for _, to := range v.graph.edges[from] {
			fmt.Fprintf(w, "  %s -> %s;\n", nodeIDs[from], nodeIDs[to])
		}
	}

	fmt.Fprintln(w, "}")
	return nil
}

// WriteText writes a text representation of the graph grouped by depth
func (v *Visualizer) WriteText(w io.Writer) error {
	roots, leaves := v.graph.Roots(), v.graph.Leaves()

	v.graph.mu.Lock()
	defer v.graph.mu.Unlock()

	fmt.Fprintln(w, "Module Graph:")
	fmt.Fprintln(w, "=============")
	fmt.Fprintln(w)

	sorted, err := v.graph.topologicalSort()
	if err != nil {
		fmt.Fprintf(w, "Warning: %v\n\n", err)
		sorted = make([]*Node, 0, len(v.graph.nodes))
		for _, key := range v.graph.order {
			sorted = append(sorted, v.graph.nodes[key])
		}
	}

	v.graph.calculateDepths()
	depthGroups := make(map[int][]*Node)
	maxDepth := 0
	for _, node := range sorted {
		depthGroups[node.Depth] = append(depthGroups[node.Depth], node)
		if node.Depth > maxDepth {
			maxDepth = node.Depth
		}
	}

	for depth := 0; depth <= maxDepth; depth++ {
		nodes, exists := depthGroups[depth]
		if !exists {
			continue
		}
		fmt.Fprintf(w, "Level %d:\n", depth)
		fmt.Fprintln(w, "--------")
		for _, node := range nodes {
			v.writeNodeDetails(w, node, "  ")
		}
		fmt.Fprintln(w)
	}

	if cyclic, exists := depthGroups[-1]; exists {
		fmt.Fprintln(w, "Modules in Cycles:")
		fmt.Fprintln(w, "------------------")
		for _, node := range cyclic {
			v.writeNodeDetails(w, node, "  ")
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Statistics:")
	fmt.Fprintln(w, "-----------")
	fmt.Fprintf(w, "  Total modules: %d\n", len(v.graph.nodes))
	fmt.Fprintf(w, "  Total imports: %d\n", v.countEdges())
	fmt.Fprintf(w, "  Roots: [%s]\n", joinNodes(roots))
	fmt.Fprintf(w, "  Leaves: [%s]\n", joinNodes(leaves))
	return nil
}

// WriteNode writes one module with its depth and its direct and transitive
// imports.
func (v *Visualizer) WriteNode(w io.Writer, key NodeKey) error {
	node := v.graph.Node(key)
	if node == nil {
		return fmt.Errorf("module %s is not in the graph", key)
	}
	depth, _ := v.graph.Depth(key)

	fmt.Fprintf(w, "Module: %s\n", key)
	if node.Prefix != "" {
		fmt.Fprintf(w, "  Prefix: %s\n", node.Prefix)
	}
	fmt.Fprintf(w, "  Global: %t\n", node.Global)
	fmt.Fprintf(w, "  Depth: %d\n", depth)
	fmt.Fprintf(w, "  Imports: [%s]\n", joinKeys(v.graph.Imports(key)))
	fmt.Fprintf(w, "  Transitive imports: [%s]\n", joinKeys(v.graph.TransitiveImports(key)))
	fmt.Fprintf(w, "  Imported by: [%s]\n", joinKeys(v.graph.Importers(key)))
	return nil
}

func (v *Visualizer) formatNodeLabel(node *Node) string {
	label := node.Key.Name
	if node.Prefix != "" {
		label += "\\n/" + strings.Trim(node.Prefix, "/")
	}
	return fmt.Sprintf("%s\\nIn:%d Out:%d", label, node.InDegree, node.OutDegree)
}

func (v *Visualizer) getNodeColor(node *Node) string {
	switch {
	case node.Global:
		return "lightgreen"
	case node.InDegree == 0:
		return "lightblue"
	default:
		return "white"
	}
}

func (v *Visualizer) writeNodeDetails(w io.Writer, node *Node, indent string) {
	fmt.Fprintf(w, "%s%s\n", indent, node.Key.String())

	if node.Global {
		fmt.Fprintf(w, "%s  Global: true\n", indent)
	}
	if node.Prefix != "" {
		fmt.Fprintf(w, "%s  Prefix: %s\n", indent, node.Prefix)
	}
	if len(node.Imports) > 0 {
		fmt.Fprintf(w, "%s  Imports: [%s]\n", indent, joinKeys(node.Imports))
	}
	if len(node.Importers) > 0 {
		fmt.Fprintf(w, "%s  Imported by: [%s]\n", indent, joinKeys(node.Importers))
	}
}

func (v *Visualizer) countEdges() int {
	count := 0
	for _, edges := range v.graph.edges {
		count += len(edges)
	}
	return count
}

func joinNodes(nodes []*Node) string {
	keys := make([]NodeKey, len(nodes))
	for i, n := range nodes {
		keys[i] = n.Key
	}
	return joinKeys(keys)
}

func joinKeys(keys []NodeKey) string {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	return strings.Join(names, ", ")
}
