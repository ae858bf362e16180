package domain

import "sort"

// EdgePair is an ordered (u, v) directed edge between two node ids.
type EdgePair struct {
	U, V string
}

// Graph is the read-only fact graph the engine reasons over: a set of
// node ids, a set of directed edges, and ingestion-time label indices.
// The grounder (C6) does not read these label indices; it enumerates
// candidates from FactsIndex. Every listing method returns ids in
// sorted order so that iteration is reproducible across runs.
//
// Grounded on the teacher's WorkflowGraph (internal/application/executor/graph.go):
// dense id lookups built at construction time, adjacency lists resolved
// once and served sorted, no lazy re-derivation in hot paths.
type Graph struct {
	nodeIndex map[string]int
	nodes     []string // insertion order, for a stable dense index

	edgeIndex map[EdgePair]int
	edges     []EdgePair

	nodeLabels map[string]map[string]bool // label -> node id -> present
	edgeLabels map[string]map[EdgePair]bool

	out map[string][]string // sorted out-adjacency
	in  map[string][]string // sorted in-adjacency
}

// NewGraph builds a Graph from an ingested node id list and edge pair
// list. Both are insertion-ordered as they arrive from ingestion; the
// Graph itself produces sorted views for anything iteration-sensitive.
func NewGraph(nodeIDs []string, edges []EdgePair) *Graph {
	g := &Graph{
		nodeIndex:  make(map[string]int, len(nodeIDs)),
		nodes:      make([]string, 0, len(nodeIDs)),
		edgeIndex:  make(map[EdgePair]int, len(edges)),
		edges:      make([]EdgePair, 0, len(edges)),
		nodeLabels: make(map[string]map[string]bool),
		edgeLabels: make(map[string]map[EdgePair]bool),
		out:        make(map[string][]string),
		in:         make(map[string][]string),
	}
	for _, id := range nodeIDs {
		g.AddNode(id)
	}
	for _, e := range edges {
		g.AddEdge(e.U, e.V)
	}
	return g
}

// AddNode registers a node id if not already present.
func (g *Graph) AddNode(id string) {
	if _, ok := g.nodeIndex[id]; ok {
		return
	}
	g.nodeIndex[id] = len(g.nodes)
	g.nodes = append(g.nodes, id)
}

// AddEdge registers a directed edge, adding its endpoints as nodes if
// they are not already present.
func (g *Graph) AddEdge(u, v string) {
	g.AddNode(u)
	g.AddNode(v)
	p := EdgePair{U: u, V: v}
	if _, ok := g.edgeIndex[p]; ok {
		return
	}
	g.edgeIndex[p] = len(g.edges)
	g.edges = append(g.edges, p)
	g.out[u] = insertSorted(g.out[u], v)
	g.in[v] = insertSorted(g.in[v], u)
}

// LabelNode tags a node id with a label in the node label index.
func (g *Graph) LabelNode(label, id string) {
	g.AddNode(id)
	if g.nodeLabels[label] == nil {
		g.nodeLabels[label] = make(map[string]bool)
	}
	g.nodeLabels[label][id] = true
}

// LabelEdge tags an edge with a label, for the edge label index.
func (g *Graph) LabelEdge(label, u, v string) {
	g.AddEdge(u, v)
	p := EdgePair{U: u, V: v}
	if g.edgeLabels[label] == nil {
		g.edgeLabels[label] = make(map[EdgePair]bool)
	}
	g.edgeLabels[label][p] = true
}

func insertSorted(xs []string, x string) []string {
	i := sort.SearchStrings(xs, x)
	if i < len(xs) && xs[i] == x {
		return xs
	}
	xs = append(xs, "")
	copy(xs[i+1:], xs[i:])
	xs[i] = x
	return xs
}

// HasNode reports whether id was ingested.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodeIndex[id]
	return ok
}

// NodesWithLabel returns the sorted list of node ids carrying label.
// Empty (not nil) for an unknown label, never an error.
func (g *Graph) NodesWithLabel(label string) []string {
	set := g.nodeLabels[label]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// EdgesWithLabel returns the sorted list of edge pairs carrying label.
func (g *Graph) EdgesWithLabel(label string) []EdgePair {
	set := g.edgeLabels[label]
	out := make([]EdgePair, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].U != out[j].U {
			return out[i].U < out[j].U
		}
		return out[i].V < out[j].V
	})
	return out
}

// LabelCardinality returns |label-index| of the graph's own label index.
// The grounder's clause cost estimate uses FactsIndex.LabelCardinality
// instead.
func (g *Graph) LabelCardinality(kind string, label string) int {
	if kind == "edge" {
		return len(g.edgeLabels[label])
	}
	return len(g.nodeLabels[label])
}

// Out returns the sorted out-adjacency of u.
func (g *Graph) Out(u string) []string { return g.out[u] }

// In returns the sorted in-adjacency of v.
func (g *Graph) In(v string) []string { return g.in[v] }

// NodeHasLabel reports whether node id carries label.
func (g *Graph) NodeHasLabel(label, id string) bool { return g.nodeLabels[label][id] }

// EdgeHasLabel reports whether edge (u,v) carries label.
func (g *Graph) EdgeHasLabel(label, u, v string) bool {
	return g.edgeLabels[label][EdgePair{U: u, V: v}]
}
