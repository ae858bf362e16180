package reason

import (
	"github.com/smilemakc/reason/internal/domain"
)

// GraphNode is one ingested node: an id plus the labels it carries.
type GraphNode struct {
	ID     string
	Labels []string
}

// GraphEdge is one ingested directed edge: an (u, v) pair plus the
// labels it carries.
type GraphEdge struct {
	U, V   string
	Labels []string
}

// FactInput is one initial fact: either a node fact (len(Targets) == 1)
// or an edge fact (len(Targets) == 2), with its starting interval and
// static bit.
type FactInput struct {
	Label     string
	Targets   []string
	Lower     float64
	Upper     float64
	Static    bool
}

// buildGraph assembles a domain.Graph from the facade's plain-value
// input shape, the way the teacher's factory builds a WorkflowGraph from
// a parsed workflow definition before execution starts.
func buildGraph(nodes []GraphNode, edges []GraphEdge) *domain.Graph {
	g := domain.NewGraph(nil, nil)
	for _, n := range nodes {
		g.AddNode(n.ID)
		for _, l := range n.Labels {
			g.LabelNode(l, n.ID)
		}
	}
	for _, e := range edges {
		g.AddEdge(e.U, e.V)
		for _, l := range e.Labels {
			g.LabelEdge(l, e.U, e.V)
		}
	}
	return g
}

// buildFacts assembles a domain.FactsIndex from the initial fact list.
func buildFacts(facts []FactInput) (*domain.FactsIndex, error) {
	idx := domain.NewFactsIndex()
	for _, f := range facts {
		iv := domain.NewInterval(f.Lower, f.Upper)
		switch len(f.Targets) {
		case 1:
			if err := idx.SetNode(f.Label, f.Targets[0], iv, f.Static); err != nil {
				return nil, err
			}
		case 2:
			if err := idx.SetEdge(f.Label, f.Targets[0], f.Targets[1], iv, f.Static); err != nil {
				return nil, err
			}
		}
	}
	return idx, nil
}
