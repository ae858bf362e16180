package compiler

import (
	"strconv"

	"github.com/smilemakc/reason/internal/domain"
	domerr "github.com/smilemakc/reason/internal/domain/errors"
)

// atomAST is a parsed `Label(Var[,Var])` occurrence, before we know
// whether it is the head or a body clause.
type atomAST struct {
	label string
	vars  []string
}

type clauseAST struct {
	atom      atomAST
	op        domain.Op
	threshold float64
	percent   bool
	base      domain.Base
	class     string
	index     int
}

type ruleAST struct {
	id         string
	line       int
	head       atomAST
	clauses    []clauseAST
	annotation string
	mode       domain.Mode
	static     bool
}

type parser struct {
	toks   []token
	pos    int
	line   int
	ruleID string
	errs   []*domerr.CompilationError
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) fail(clauseIdx int, msg string) {
	p.errs = append(p.errs, &domerr.CompilationError{
		CompilationClause: domerr.CompilationClause{RuleID: p.ruleID, ClauseIndex: clauseIdx},
		Line:              p.line,
		Message:           msg,
	})
}

func (p *parser) expect(k tokenKind, what string, clauseIdx int) (token, bool) {
	t := p.peek()
	if t.kind != k {
		p.fail(clauseIdx, "expected "+what+", got '"+t.text+"'")
		return t, false
	}
	return p.advance(), true
}

// parseAtom parses `Label(Var[,Var])`.
func (p *parser) parseAtom(clauseIdx int) (atomAST, bool) {
	labelTok, ok := p.expect(tokIdent, "a label", clauseIdx)
	if !ok {
		return atomAST{}, false
	}
	if _, ok := p.expect(tokLParen, "'('", clauseIdx); !ok {
		return atomAST{}, false
	}
	var vars []string
	v, ok := p.expect(tokIdent, "a variable", clauseIdx)
	if !ok {
		return atomAST{}, false
	}
	vars = append(vars, v.text)
	if p.peek().kind == tokComma {
		p.advance()
		v2, ok := p.expect(tokIdent, "a second variable", clauseIdx)
		if !ok {
			return atomAST{}, false
		}
		vars = append(vars, v2.text)
	}
	if _, ok := p.expect(tokRParen, "')'", clauseIdx); !ok {
		return atomAST{}, false
	}
	if len(vars) > 2 {
		p.fail(clauseIdx, "atom has more than two variables")
		return atomAST{}, false
	}
	return atomAST{label: labelTok.text, vars: vars}, true
}

// parseClause parses `Label(Vars) op threshold[%][@base][class=name]`.
func (p *parser) parseClause(idx int) (clauseAST, bool) {
	atom, ok := p.parseAtom(idx)
	if !ok {
		return clauseAST{}, false
	}
	var op domain.Op
	switch p.peek().kind {
	case tokGE:
		op = domain.OpGE
		p.advance()
	case tokLE:
		op = domain.OpLE
		p.advance()
	case tokEQ:
		op = domain.OpEQ
		p.advance()
	default:
		p.fail(idx, "expected '>=', '<=' or '=', got '"+p.peek().text+"'")
		return clauseAST{}, false
	}
	numTok, ok := p.expect(tokNumber, "a threshold number", idx)
	if !ok {
		return clauseAST{}, false
	}
	x, err := strconv.ParseFloat(numTok.text, 64)
	if err != nil {
		p.fail(idx, "malformed threshold '"+numTok.text+"'")
		return clauseAST{}, false
	}
	percent := false
	if p.peek().kind == tokPercent {
		p.advance()
		percent = true
	}
	if percent && (x < 0 || x > 100) {
		p.fail(idx, "percent threshold out of range [0,100]")
		return clauseAST{}, false
	}
	base := domain.BaseTotal
	if p.peek().kind == tokAt {
		p.advance()
		baseTok, ok := p.expect(tokIdent, "'total' or 'available'", idx)
		if !ok {
			return clauseAST{}, false
		}
		switch baseTok.text {
		case "total":
			base = domain.BaseTotal
		case "available":
			base = domain.BaseAvailable
		default:
			p.fail(idx, "unknown threshold base '"+baseTok.text+"'")
			return clauseAST{}, false
		}
	}
	class := ""
	if p.peek().kind == tokIdent && p.peek().text == "class" {
		p.advance()
		if _, ok := p.expect(tokEQ, "'='", idx); !ok {
			return clauseAST{}, false
		}
		classTok, ok := p.expect(tokIdent, "a class name", idx)
		if !ok {
			return clauseAST{}, false
		}
		class = classTok.text
	}
	return clauseAST{atom: atom, op: op, threshold: x, percent: percent, base: base, class: class, index: idx}, true
}

// parseLine parses one non-comment, non-blank logical rule line.
func parseLine(line string, lineNo int) (*ruleAST, []*domerr.CompilationError) {
	toks, err := lex(line)
	if err != nil {
		return nil, []*domerr.CompilationError{{
			CompilationClause: domerr.CompilationClause{RuleID: "<unknown>", ClauseIndex: -1},
			Line:              lineNo,
			Message:           err.Error(),
		}}
	}
	p := &parser{toks: toks, line: lineNo}

	idTok, ok := p.expect(tokIdent, "a rule id", -1)
	if !ok {
		return nil, p.errs
	}
	p.ruleID = idTok.text

	if _, ok := p.expect(tokColon, "':'", -1); !ok {
		return nil, p.errs
	}
	head, ok := p.parseAtom(-1)
	if !ok {
		return nil, p.errs
	}
	if _, ok := p.expect(tokArrow, "'<-'", -1); !ok {
		return nil, p.errs
	}

	var clauses []clauseAST
	for {
		c, ok := p.parseClause(len(clauses))
		if !ok {
			return nil, p.errs
		}
		clauses = append(clauses, c)
		if p.peek().kind == tokComma {
			p.advance()
			continue
		}
		break
	}

	ast := &ruleAST{id: p.ruleID, line: lineNo, head: head, clauses: clauses, mode: domain.ModeIntersection}

	for p.peek().kind == tokIdent {
		switch p.peek().text {
		case "annotate":
			p.advance()
			if _, ok := p.expect(tokEQ, "'='", -1); !ok {
				return nil, p.errs
			}
			nameTok, ok := p.expect(tokIdent, "an annotation name", -1)
			if !ok {
				return nil, p.errs
			}
			ast.annotation = nameTok.text
		case "mode":
			p.advance()
			if _, ok := p.expect(tokEQ, "'='", -1); !ok {
				return nil, p.errs
			}
			modeTok, ok := p.expect(tokIdent, "'intersection' or 'override'", -1)
			if !ok {
				return nil, p.errs
			}
			m, ok := domain.ParseMode(modeTok.text)
			if !ok {
				p.fail(-1, "unknown mode '"+modeTok.text+"'")
				return nil, p.errs
			}
			ast.mode = m
		case "static":
			p.advance()
			ast.static = true
		default:
			p.fail(-1, "unexpected token '"+p.peek().text+"'")
			return nil, p.errs
		}
	}

	if p.peek().kind != tokEOF {
		p.fail(-1, "unexpected trailing token '"+p.peek().text+"'")
		return nil, p.errs
	}
	if ast.annotation == "" {
		p.fail(-1, "rule has no annotate=<name>")
		return nil, p.errs
	}
	return ast, nil
}
