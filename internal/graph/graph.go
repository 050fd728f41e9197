package graph

import (
	"fmt"
	"sort"
	"sync"
)

// ModuleGraph records modules and their import edges. It provides
// topological sorting and dependency analysis for introspection.
type ModuleGraph struct {
	mu    sync.RWMutex
	nodes map[NodeKey]*Node
	edges map[NodeKey][]NodeKey // adjacency list: module -> imports
	order []NodeKey             // insertion order, for deterministic output

	sortedNodes      []*Node
	sortedNodesDirty bool
}

// NodeKey uniquely identifies a module in the graph. Ref is the module's
// identity; Name is only used for display.
type NodeKey struct {
	Ref  any
	Name string
}

// Node represents a module in the graph
type Node struct {
	Key NodeKey

	// Attributes shown by the visualizer, such as the prefix or whether
	// the module is global.
	Prefix string
	Global bool

	InDegree  int // number of importers
	OutDegree int // number of imports
	Depth     int // depth in the import tree

	Imports   []NodeKey // modules this node imports
	Importers []NodeKey // modules that import this node
}

// New creates an empty module graph
func New() *ModuleGraph {
	return &ModuleGraph{
		nodes:            make(map[NodeKey]*Node),
		edges:            make(map[NodeKey][]NodeKey),
		sortedNodesDirty: true,
	}
}

// AddModule adds a module and its import edges. Adding the same key again
// replaces its edges.
func (g *ModuleGraph) AddModule(key NodeKey, prefix string, global bool, imports []NodeKey) {
	g.mu.Lock()
	defer g.mu.Unlock()

	node := g.ensure(key)
	node.Prefix = prefix
	node.Global = global

	deps := make([]NodeKey, 0, len(imports))
	for _, imp := range imports {
		g.ensure(imp)
		deps = append(deps, imp)
	}
	g.edges[key] = deps

	g.updateDegrees()
	g.sortedNodesDirty = true
}

func (g *ModuleGraph) ensure(key NodeKey) *Node {
	node, exists := g.nodes[key]
	if !exists {
		node = &Node{
			Key:       key,
			Imports:   make([]NodeKey, 0),
			Importers: make([]NodeKey, 0),
		}
		g.nodes[key] = node
		g.order = append(g.order, key)
	}
	return node
}

// updateDegrees recalculates in/out degrees for all nodes
func (g *ModuleGraph) updateDegrees() {
	for _, node := range g.nodes {
		node.InDegree = 0
		node.OutDegree = 0
		node.Importers = make([]NodeKey, 0, 4)
	}

	for _, from := range g.order {
		tos := g.edges[from]
		fromNode := g.nodes[from]
		fromNode.OutDegree = len(tos)
		fromNode.Imports = make([]NodeKey, len(tos))
		copy(fromNode.Imports, tos)

		for _, to := range tos {
			if toNode, exists := g.nodes[to]; exists {
				toNode.InDegree++
				toNode.Importers = append(toNode.Importers, from)
			}
		}
	}
}

// TopologicalSort returns modules in initialization order: imports before
// their importers.
func (g *ModuleGraph) TopologicalSort() ([]*Node, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.topologicalSort()
}

func (g *ModuleGraph) topologicalSort() ([]*Node, error) {
	if !g.sortedNodesDirty && g.sortedNodes != nil {
		result := make([]*Node, len(g.sortedNodes))
		copy(result, g.sortedNodes)
		return result, nil
	}

	// Kahn's algorithm over the reversed edges, so that leaves come first.
	remaining := make(map[NodeKey]int, len(g.nodes))
	for _, key := range g.order {
		remaining[key] = len(g.edges[key])
	}

	queue := make([]NodeKey, 0)
	for _, key := range g.order {
		if remaining[key] == 0 {
			queue = append(queue, key)
		}
	}

	result := make([]*Node, 0, len(g.nodes))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		node := g.nodes[current]
		result = append(result, node)

		for _, importer := range node.Importers {
			remaining[importer]--
			if remaining[importer] == 0 {
				queue = append(queue, importer)
			}
		}
	}

	if len(result) != len(g.nodes) {
		return nil, fmt.Errorf("import cycle detected: graph contains %d modules but only %d could be sorted",
			len(g.nodes), len(result))
	}

	g.sortedNodes = result
	g.sortedNodesDirty = false

	resultCopy := make([]*Node, len(result))
	copy(resultCopy, result)
	return resultCopy, nil
}

// Imports returns the direct imports of a module
func (g *ModuleGraph) Imports(key NodeKey) []NodeKey {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if node, exists := g.nodes[key]; exists {
		result := make([]NodeKey, len(node.Imports))
		copy(result, node.Imports)
		return result
	}
	return nil
}

// Importers returns the modules that import the given module
func (g *ModuleGraph) Importers(key NodeKey) []NodeKey {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if node, exists := g.nodes[key]; exists {
		result := make([]NodeKey, len(node.Importers))
		copy(result, node.Importers)
		return result
	}
	return nil
}

// TransitiveImports returns all imports (direct and indirect)
func (g *ModuleGraph) TransitiveImports(key NodeKey) []NodeKey {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := make(map[NodeKey]bool)
	result := make([]NodeKey, 0)

	var collect func(current NodeKey)
	collect = func(current NodeKey) {
		if visited[current] {
			return
		}
		visited[current] = true

		for _, dep := range g.edges[current] {
			if !visited[dep] {
				result = append(result, dep)
				collect(dep)
			}
		}
	}

	collect(key)
	return result
}

// Node returns the node for a given module
func (g *ModuleGraph) Node(key NodeKey) *Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[key]
}

// Size returns the number of modules in the graph
func (g *ModuleGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Roots returns modules nobody imports
func (g *ModuleGraph) Roots() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	roots := make([]*Node, 0)
	for _, key := range g.order {
		if node := g.nodes[key]; node.InDegree == 0 {
			roots = append(roots, node)
		}
	}
	return roots
}

// Leaves returns modules without imports
func (g *ModuleGraph) Leaves() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	leaves := make([]*Node, 0)
	for _, key := range g.order {
		if node := g.nodes[key]; node.OutDegree == 0 {
			leaves = append(leaves, node)
		}
	}
	return leaves
}

// Depth returns the distance of a module from the leaves. It is -1 for a
// module on a cycle and false for an unknown key.
func (g *ModuleGraph) Depth(key NodeKey) (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	node, exists := g.nodes[key]
	if !exists {
		return 0, false
	}
	g.calculateDepths()
	return node.Depth, true
}

func (g *ModuleGraph) calculateDepths() {
	for _, node := range g.nodes {
		node.Depth = -1
	}

	queue := make([]*Node, 0)
	for _, key := range g.order {
		node := g.nodes[key]
		if len(node.Imports) == 0 {
			node.Depth = 0
			queue = append(queue, node)
		}
	}

	// Bounded by the node count so that a cyclic graph terminates.
	limit := len(g.nodes)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, key := range current.Importers {
			if dep, exists := g.nodes[key]; exists {
				newDepth := current.Depth + 1
				if dep.Depth < newDepth && newDepth <= limit {
					dep.Depth = newDepth
					queue = append(queue, dep)
				}
			}
		}
	}
}

// Keys returns all module keys sorted by name
func (g *ModuleGraph) Keys() []NodeKey {
	g.mu.RLock()
	defer g.mu.RUnlock()

	keys := make([]NodeKey, len(g.order))
	copy(keys, g.order)
	sort.SliceStable(keys, func(i, j int) bool { return keys[i].Name < keys[j].Name })
	return keys
}

// String returns a string representation of the node key
func (k NodeKey) String() string {
	return k.Name
}

// String returns a string representation of the node
func (n *Node) String() string {
	return fmt.Sprintf("Node{%s, in:%d, out:%d, depth:%d}",
		n.Key.String(), n.InDegree, n.OutDegree, n.Depth)
}
