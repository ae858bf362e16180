package domain

import (
	"sort"

	domerr "github.com/smilemakc/reason/internal/domain/errors"
)

type factEntry struct {
	interval Interval
	static   bool
}

// FactsIndex is the mutable working set of facts: per-label maps from
// node id (or edge pair) to Interval, with a static bit per entry. It is
// owned exclusively by the engine during a run (§5); callers outside the
// driver only ever see it through Get/Iter.
type FactsIndex struct {
	node map[string]map[string]factEntry   // label -> node id -> entry
	edge map[string]map[EdgePair]factEntry // label -> (u,v) -> entry
}

// NewFactsIndex returns an empty working set.
func NewFactsIndex() *FactsIndex {
	return &FactsIndex{
		node: make(map[string]map[string]factEntry),
		edge: make(map[string]map[EdgePair]factEntry),
	}
}

// GetNode returns the interval for a node fact, or (Unknown, false) if
// the key has never been set — absent keys are implicitly Unknown for
// body evaluation but are never enumerated (§3 invariant iii).
func (f *FactsIndex) GetNode(label, id string) (Interval, bool) {
	e, ok := f.node[label][id]
	if !ok {
		return Unknown, false
	}
	return e.interval, true
}

// GetEdge returns the interval for an edge fact.
func (f *FactsIndex) GetEdge(label string, u, v string) (Interval, bool) {
	e, ok := f.edge[label][EdgePair{U: u, V: v}]
	if !ok {
		return Unknown, false
	}
	return e.interval, true
}

// IsStaticNode reports whether a node fact is frozen.
func (f *FactsIndex) IsStaticNode(label, id string) bool {
	return f.node[label][id].static
}

// IsStaticEdge reports whether an edge fact is frozen.
func (f *FactsIndex) IsStaticEdge(label string, u, v string) bool {
	return f.edge[label][EdgePair{U: u, V: v}].static
}

// SetNode writes a node fact. Returns a *errors.StaticViolation (not a
// panic) if the key is already frozen; the caller is expected to log and
// skip, never to crash (§4.3).
func (f *FactsIndex) SetNode(label, id string, iv Interval, static bool) error {
	if f.node[label] == nil {
		f.node[label] = make(map[string]factEntry)
	}
	cur, exists := f.node[label][id]
	if exists && cur.static {
		return &domerr.StaticViolation{StmtKey: string(NodeKey(label, id))}
	}
	f.node[label][id] = factEntry{interval: iv, static: static || (exists && cur.static)}
	return nil
}

// SetEdge writes an edge fact, with the same static-freeze semantics as SetNode.
func (f *FactsIndex) SetEdge(label string, u, v string, iv Interval, static bool) error {
	if f.edge[label] == nil {
		f.edge[label] = make(map[EdgePair]factEntry)
	}
	p := EdgePair{U: u, V: v}
	cur, exists := f.edge[label][p]
	if exists && cur.static {
		return &domerr.StaticViolation{StmtKey: string(EdgeKey(label, u, v))}
	}
	f.edge[label][p] = factEntry{interval: iv, static: static || (exists && cur.static)}
	return nil
}

// IterNodeLabel returns the sorted node ids that have an entry for label.
func (f *FactsIndex) IterNodeLabel(label string) []string {
	m := f.node[label]
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// LabelCardinality returns the number of present entries under label,
// used by the grounder's clause cost estimate (§4.5 step 1). Unlike
// Graph.LabelCardinality (the ingestion-time structural index), this
// counts facts actually present in the working set, which is what the
// grounder enumerates candidates from.
func (f *FactsIndex) LabelCardinality(kind, label string) int {
	if kind == "edge" {
		return len(f.edge[label])
	}
	return len(f.node[label])
}

// IterEdgeLabel returns the sorted edge pairs that have an entry for label.
func (f *FactsIndex) IterEdgeLabel(label string) []EdgePair {
	m := f.edge[label]
	out := make([]EdgePair, 0, len(m))
	for p := range m {
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

// Snapshot returns every statement key currently present with its
// interval, as an unordered map — the raw material for C11's facts
// export, which sorts the keys itself. It clones
// values so callers never alias internal buffers (§5).
func (f *FactsIndex) Snapshot() map[StmtKey]Interval {
	out := make(map[StmtKey]Interval)
	for label, m := range f.node {
		for id, e := range m {
			out[NodeKey(label, id)] = e.interval
		}
	}
	for label, m := range f.edge {
		for p, e := range m {
			out[EdgeKey(label, p.U, p.V)] = e.interval
		}
	}
	return out
}

// Get resolves an arbitrary statement key (node or edge form) against
// the index, for callers that only have the key string.
func (f *FactsIndex) Get(k StmtKey) (Interval, bool) {
	label, targets, ok := ParseKey(k)
	if !ok {
		return Unknown, false
	}
	switch len(targets) {
	case 1:
		return f.GetNode(label, targets[0])
	case 2:
		return f.GetEdge(label, targets[0], targets[1])
	default:
		return Unknown, false
	}
}
