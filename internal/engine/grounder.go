// Package engine implements C6-C10: the grounder, threshold evaluator,
// annotation registry, temporal scheduler, and fixed-point driver.
package engine

import (
	"sort"

	"github.com/smilemakc/reason/internal/domain"
)

// Assignment is one complete, satisfying variable binding for a rule,
// carrying the per-clause intervals used in source-clause order (C8
// aggregators consume them in that order).
type Assignment struct {
	Vars            map[string]string
	ClauseIntervals []domain.Interval
}

// Ground enumerates every variable assignment that satisfies all of
// rule's body clauses, in the deterministic order fixed by §4.5: node
// clauses before edge clauses, ascending label-index cardinality, ties
// broken by source position; within a clause, sorted index order.
//
// Candidates for an unbound clause variable are drawn from the
// FactsIndex's own per-label present keys (FactsIndex.IterNodeLabel /
// IterEdgeLabel), never from the graph's ingestion-time label index: a
// rule head written by an earlier rule (or an earlier time step) is
// applied to FactsIndex only (the graph is never mutated during a run),
// so sourcing candidates from the graph would make forward chaining
// over derived facts silently produce zero groundings. Symmetrically, a
// node that carries a structural graph label but has no FactsIndex entry
// must never be enumerated as satisfying a clause: §3 invariant (iii)
// says absent keys are Unknown for body evaluation but are not
// enumerated, and sourcing from the graph would enumerate them anyway.
func Ground(rule *domain.Rule, facts *domain.FactsIndex) []Assignment {
	order := orderClauses(rule.Body, facts)
	var out []Assignment
	assignment := make(map[string]string, 2)
	intervals := make([]domain.Interval, len(rule.Body))

	var walk func(pos int)
	walk = func(pos int) {
		if pos == len(order) {
			vars := make(map[string]string, len(assignment))
			for k, v := range assignment {
				vars[k] = v
			}
			ivs := make([]domain.Interval, len(intervals))
			copy(ivs, intervals)
			out = append(out, Assignment{Vars: vars, ClauseIntervals: ivs})
			return
		}
		ci := order[pos]
		c := rule.Body[ci]
		if c.Kind == domain.ClauseNode {
			groundNodeClause(c, ci, assignment, intervals, facts, func() { walk(pos + 1) })
		} else {
			groundEdgeClause(c, ci, assignment, intervals, facts, func() { walk(pos + 1) })
		}
	}
	walk(0)
	return out
}

// orderClauses implements the §4.5 step-1 cost estimate, using the
// FactsIndex's present-key cardinality rather than the graph's
// structural label index, since that is what the walk below actually
// enumerates.
func orderClauses(body []domain.Clause, facts *domain.FactsIndex) []int {
	idx := make([]int, len(body))
	for i := range idx {
		idx[i] = i
	}
	cost := func(c domain.Clause) int {
		if c.Kind == domain.ClauseNode {
			return facts.LabelCardinality("node", c.Label)
		}
		return facts.LabelCardinality("edge", c.Label)
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ca, cb := body[idx[a]], body[idx[b]]
		if ca.Kind != cb.Kind {
			return ca.Kind == domain.ClauseNode
		}
		costA, costB := cost(ca), cost(cb)
		if costA != costB {
			return costA < costB
		}
		return idx[a] < idx[b]
	})
	return idx
}

func groundNodeClause(
	c domain.Clause, clauseIdx int,
	assignment map[string]string, intervals []domain.Interval,
	facts *domain.FactsIndex,
	cont func(),
) {
	v := c.Vars[0]
	if target, bound := assignment[v]; bound {
		tryNode(c, clauseIdx, target, assignment, intervals, facts, nil, cont)
		return
	}
	for _, candidate := range facts.IterNodeLabel(c.Label) {
		newlyBound := map[string]string{v: candidate}
		tryNode(c, clauseIdx, candidate, assignment, intervals, facts, newlyBound, cont)
	}
}

func tryNode(
	c domain.Clause, clauseIdx int, target string,
	assignment map[string]string, intervals []domain.Interval,
	facts *domain.FactsIndex, bind map[string]string,
	cont func(),
) {
	iv, _ := facts.GetNode(c.Label, target)
	if !domain.ContainsThreshold(iv, c.Op, c.Threshold) {
		return
	}
	intervals[clauseIdx] = iv
	for k, val := range bind {
		assignment[k] = val
	}
	cont()
	for k := range bind {
		delete(assignment, k)
	}
}

func groundEdgeClause(
	c domain.Clause, clauseIdx int,
	assignment map[string]string, intervals []domain.Interval,
	facts *domain.FactsIndex,
	cont func(),
) {
	x, y := c.Vars[0], c.Vars[1]
	xv, xBound := assignment[x]
	yv, yBound := assignment[y]

	tryEdge := func(u, v string, bind map[string]string) {
		iv, _ := facts.GetEdge(c.Label, u, v)
		if !domain.ContainsThreshold(iv, c.Op, c.Threshold) {
			return
		}
		intervals[clauseIdx] = iv
		for k, val := range bind {
			assignment[k] = val
		}
		cont()
		for k := range bind {
			delete(assignment, k)
		}
	}

	switch {
	case xBound && yBound:
		tryEdge(xv, yv, nil)
	case xBound && !yBound:
		for _, p := range facts.IterEdgeLabel(c.Label) {
			if p.U == xv {
				tryEdge(p.U, p.V, map[string]string{y: p.V})
			}
		}
	case !xBound && yBound:
		for _, p := range facts.IterEdgeLabel(c.Label) {
			if p.V == yv {
				tryEdge(p.U, p.V, map[string]string{x: p.U})
			}
		}
	default:
		for _, p := range facts.IterEdgeLabel(c.Label) {
			if x == y {
				if p.U != p.V {
					continue
				}
				tryEdge(p.U, p.V, map[string]string{x: p.U})
				continue
			}
			tryEdge(p.U, p.V, map[string]string{x: p.U, y: p.V})
		}
	}
}
