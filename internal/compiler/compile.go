package compiler

import (
	"bufio"
	"strings"

	"github.com/smilemakc/reason/internal/domain"
	domerr "github.com/smilemakc/reason/internal/domain/errors"
)

// builtinAnnotations is the §4.7 required aggregator set. An annotation
// name outside this set is accepted only with the "expr:" prefix (§4.7
// expansion), whose target is resolved against the engine's registry at
// run time, not at compile time.
var builtinAnnotations = map[string]bool{
	"average":                   true,
	"average_lower":             true,
	"maximum":                   true,
	"minimum":                   true,
	"legal_burden_civil_051":    true,
	"legal_burden_clear_075":    true,
	"legal_burden_criminal_090": true,
	"legal_conservative_min":    true,
	"precedent_weighted":        true,
}

func isKnownAnnotation(name string) bool {
	if builtinAnnotations[name] {
		return true
	}
	return strings.HasPrefix(name, "expr:") && len(name) > len("expr:")
}

// Compile parses and validates an entire rule DSL program (§6 wire
// form). It is all-or-nothing: a non-empty error return means no rule
// in src was accepted, even if most of them were well-formed.
func Compile(src string) ([]*domain.Rule, error) {
	var asts []*ruleAST
	var errs []*domerr.CompilationError

	scanner := bufio.NewScanner(strings.NewReader(src))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := stripComment(scanner.Text())
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		ast, lineErrs := parseLine(trimmed, lineNo)
		if len(lineErrs) > 0 {
			errs = append(errs, lineErrs...)
			continue
		}
		asts = append(asts, ast)
	}

	seen := make(map[string]bool, len(asts))
	for _, ast := range asts {
		if seen[ast.id] {
			errs = append(errs, &domerr.CompilationError{
				CompilationClause: domerr.CompilationClause{RuleID: ast.id, ClauseIndex: -1},
				Line:              ast.line,
				Message:           "duplicate rule id",
			})
			continue
		}
		seen[ast.id] = true
		if ruleErrs := validate(ast); len(ruleErrs) > 0 {
			errs = append(errs, ruleErrs...)
		}
	}

	if len(errs) > 0 {
		return nil, &domerr.CompilationErrors{Errors: errs}
	}

	rules := make([]*domain.Rule, 0, len(asts))
	for _, ast := range asts {
		rules = append(rules, toRule(ast))
	}
	return rules, nil
}

// validate applies the §4.4 semantic checks: duplicate in-clause
// variables that aren't bound by an earlier clause, head variables
// absent from the body, and unknown annotation names. Malformed
// thresholds are already caught during parsing.
func validate(ast *ruleAST) []*domerr.CompilationError {
	var errs []*domerr.CompilationError
	bound := make(map[string]bool)

	for ci, c := range ast.clauses {
		if len(c.atom.vars) == 2 && c.atom.vars[0] == c.atom.vars[1] && !bound[c.atom.vars[0]] {
			errs = append(errs, &domerr.CompilationError{
				CompilationClause: domerr.CompilationClause{RuleID: ast.id, ClauseIndex: ci},
				Line:              ast.line,
				Message:           "duplicate clause variable '" + c.atom.vars[0] + "' is not bound by an earlier clause",
			})
		}
		for _, v := range c.atom.vars {
			bound[v] = true
		}
	}

	for _, hv := range ast.head.vars {
		if !bound[hv] {
			errs = append(errs, &domerr.CompilationError{
				CompilationClause: domerr.CompilationClause{RuleID: ast.id, ClauseIndex: -1},
				Line:              ast.line,
				Message:           "head variable '" + hv + "' does not appear in any body clause",
			})
		}
	}

	if !isKnownAnnotation(ast.annotation) {
		errs = append(errs, &domerr.CompilationError{
			CompilationClause: domerr.CompilationClause{RuleID: ast.id, ClauseIndex: -1},
			Line:              ast.line,
			Message:           "unknown annotation '" + ast.annotation + "'",
		})
	}

	return errs
}

func toRule(ast *ruleAST) *domain.Rule {
	body := make([]domain.Clause, len(ast.clauses))
	weights := make(map[string]float64)
	for i, c := range ast.clauses {
		kind := domain.ClauseNode
		if len(c.atom.vars) == 2 {
			kind = domain.ClauseEdge
		}
		threshold := c.threshold
		if c.percent {
			threshold = threshold / 100.0
		}
		body[i] = domain.Clause{
			Kind:      kind,
			Label:     c.atom.label,
			Vars:      c.atom.vars,
			Op:        c.op,
			Threshold: threshold,
			Percent:   c.percent,
			Base:      c.base,
			Class:     c.class,
		}
		if c.class != "" {
			weights[c.class] = 1 // default weight; overridden via Config.PrecedentWeights at run time
		}
	}
	headKind := domain.ClauseNode
	if len(ast.head.vars) == 2 {
		headKind = domain.ClauseEdge
	}
	_ = headKind
	return &domain.Rule{
		ID:              ast.id,
		HeadLabel:       ast.head.label,
		HeadVars:        ast.head.vars,
		Body:            body,
		Annotation:      ast.annotation,
		Mode:            ast.mode,
		Static:          ast.static,
		PrecedentWeight: weights,
	}
}
