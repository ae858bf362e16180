// Package interpretation implements C11: rendering a finished fixed-point
// run into the exported interpretation document (§4.11). Persisting the
// document is done elsewhere (internal/infrastructure/storage); this
// package has no persistence of its own.
package interpretation

import (
	"encoding/json"
	"sort"

	"github.com/smilemakc/reason/internal/domain"
	"github.com/smilemakc/reason/internal/engine"
)

// Document is the exported shape of a finished run. Facts and Supports
// are omitted entirely (not emitted as empty objects) when the run's
// config asked to suppress them, matching §4.11's emit_facts/emit_trace
// switches.
type Document struct {
	Facts    map[domain.StmtKey]domain.Interval `json:"facts,omitempty"`
	Supports map[domain.StmtKey][]string         `json:"supports,omitempty"`
	Trace    []TraceEvent                        `json:"trace,omitempty"`
	Meta     Meta                                `json:"meta"`
}

// TraceEvent is the exported form of one engine.TraceEntry.
type TraceEvent struct {
	T       int      `json:"t"`
	Rule    string   `json:"rule"`
	Head    string   `json:"head"`
	Clauses []string `json:"clauses"`
}

// Meta carries the run-level summary fields.
type Meta struct {
	Reason string `json:"reason"`
	Steps  int    `json:"steps"`
}

// FromResult builds the export Document for a finished run. emitFacts
// gates both Facts and Supports together since supports are meaningless
// without the facts they support; emitTrace gates Trace independently.
func FromResult(r *engine.Result, emitFacts, emitTrace bool) *Document {
	doc := &Document{Meta: Meta{Reason: r.Reason, Steps: r.Steps}}

	if emitFacts {
		doc.Facts = r.Facts.Snapshot()
		doc.Supports = r.Supports
	}
	if emitTrace {
		doc.Trace = make([]TraceEvent, len(r.Trace))
		for i, te := range r.Trace {
			clauses := make([]string, len(te.Clauses))
			for j, c := range te.Clauses {
				clauses[j] = string(c)
			}
			doc.Trace[i] = TraceEvent{T: te.T, Rule: te.Rule, Head: string(te.Head), Clauses: clauses}
		}
	}
	return doc
}

// MarshalJSON renders facts and supports in sorted statement-key order
// so two runs over the same inputs produce byte-identical output, since
// Go's default map iteration order is randomized.
func (d *Document) MarshalJSON() ([]byte, error) {
	type alias struct {
		Facts    json.RawMessage `json:"facts,omitempty"`
		Supports json.RawMessage `json:"supports,omitempty"`
		Trace    []TraceEvent    `json:"trace,omitempty"`
		Meta     Meta            `json:"meta"`
	}
	a := alias{Trace: d.Trace, Meta: d.Meta}

	if d.Facts != nil {
		raw, err := marshalOrderedFacts(d.Facts)
		if err != nil {
			return nil, err
		}
		a.Facts = raw
	}
	if d.Supports != nil {
		raw, err := marshalOrderedSupports(d.Supports)
		if err != nil {
			return nil, err
		}
		a.Supports = raw
	}
	return json.Marshal(a)
}

func marshalOrderedFacts(facts map[domain.StmtKey]domain.Interval) (json.RawMessage, error) {
	keys := make([]domain.StmtKey, 0, len(facts))
	for k := range facts {
		keys = append(keys, k)
	}
	domain.SortKeys(keys)

	buf := []byte{'{'}
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(string(k))
		if err != nil {
			return nil, err
		}
		vb, err := facts[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, vb...)
	}
	buf = append(buf, '}')
	return buf, nil
}

func marshalOrderedSupports(supports map[domain.StmtKey][]string) (json.RawMessage, error) {
	keys := make([]domain.StmtKey, 0, len(supports))
	for k := range supports {
		keys = append(keys, k)
	}
	domain.SortKeys(keys)

	buf := []byte{'{'}
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		ids := append([]string(nil), supports[k]...)
		sort.Strings(ids)
		kb, err := json.Marshal(string(k))
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(ids)
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, vb...)
	}
	buf = append(buf, '}')
	return buf, nil
}
