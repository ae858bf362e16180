package engine

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/smilemakc/reason/internal/domain"
)

// ExprRegistry backs the §4.7 `annotate=expr:<name>` escape hatch: a
// named expr-lang snippet, compiled once and LRU-cached. Grounded
// directly on the teacher's ConditionCache/ExprConditionEvaluator
// (internal/application/executor/conditions.go in the source tree):
// same compile-once-then-cache shape, same eviction policy, swapped
// from boolean condition evaluation to interval-bound aggregation.
type ExprRegistry struct {
	mu       sync.RWMutex
	source   map[string]string
	capacity int
	cache    map[string]*list.Element
	lru      *list.List
}

type exprCacheEntry struct {
	name    string
	program *vm.Program
}

// NewExprRegistry returns a registry with the given compiled-program
// cache capacity (0 defaults to 64).
func NewExprRegistry(capacity int) *ExprRegistry {
	if capacity <= 0 {
		capacity = 64
	}
	return &ExprRegistry{
		source:   make(map[string]string),
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Register associates name (the full "expr:<name>" annotation string)
// with an expr-lang snippet. The snippet sees `lowers []float64`,
// `uppers []float64`, and `ctx map[string]any` and must evaluate to a
// two-element []float64{l, u}.
func (r *ExprRegistry) Register(name, source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.source[name] = source
	if el, ok := r.cache[name]; ok {
		r.lru.Remove(el)
		delete(r.cache, name)
	}
}

func (r *ExprRegistry) compiled(name string) (*vm.Program, error) {
	r.mu.RLock()
	if el, ok := r.cache[name]; ok {
		r.mu.RUnlock()
		r.mu.Lock()
		r.lru.MoveToFront(el)
		r.mu.Unlock()
		return el.Value.(*exprCacheEntry).program, nil
	}
	src, ok := r.source[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no expr aggregator registered for %q", name)
	}

	program, err := expr.Compile(src, expr.Env(map[string]any{
		"lowers": []float64{},
		"uppers": []float64{},
		"ctx":    map[string]any{},
	}))
	if err != nil {
		return nil, fmt.Errorf("compiling expr aggregator %q: %w", name, err)
	}

	r.mu.Lock()
	el := r.lru.PushFront(&exprCacheEntry{name: name, program: program})
	r.cache[name] = el
	if r.lru.Len() > r.capacity {
		oldest := r.lru.Back()
		if oldest != nil {
			r.lru.Remove(oldest)
			delete(r.cache, oldest.Value.(*exprCacheEntry).name)
		}
	}
	r.mu.Unlock()
	return program, nil
}

// Eval compiles (if needed) and runs the named expr aggregator.
func (r *ExprRegistry) Eval(name string, intervals []domain.Interval, actx AnnotationContext) (domain.Interval, error) {
	program, err := r.compiled(name)
	if err != nil {
		return domain.Unknown, err
	}
	env := map[string]any{
		"lowers": lowers(intervals),
		"uppers": uppers(intervals),
		"ctx":    actx.Extra,
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return domain.Unknown, err
	}
	bounds, ok := toFloatPair(out)
	if !ok {
		return domain.Unknown, fmt.Errorf("expr aggregator %q must return a two-element numeric array, got %T", name, out)
	}
	return domain.NewInterval(bounds[0], bounds[1]), nil
}

func toFloatPair(v any) ([2]float64, bool) {
	switch xs := v.(type) {
	case []float64:
		if len(xs) == 2 {
			return [2]float64{xs[0], xs[1]}, true
		}
	case []any:
		if len(xs) == 2 {
			l, lok := toFloat(xs[0])
			u, uok := toFloat(xs[1])
			if lok && uok {
				return [2]float64{l, u}, true
			}
		}
	}
	return [2]float64{}, false
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}
