// Package query implements the small declarative path-query language task
// assertions use to address values inside a structural diff. The language is
// a self-contained interpreter; its exact semantics are part of the engine's
// compatibility contract.
//
// Grammar:
//
//	query    := step ( '.' step )*
//	step     := field suffix* | suffix+
//	field    := identifier | '"' chars '"' | '*'
//	suffix   := '[' ']'                      flatten + projection
//	          | '[' '*' ']'                  list projection
//	          | '[' integer ']'              index (negative counts from end)
//	          | '[?' path op literal ']'     filter projection
//	path     := field ( '.' field )*
//	op       := '==' | '!=' | '<' | '<=' | '>' | '>='
//	literal  := number | '\'' chars '\'' | 'true' | 'false' | 'null'
//
// Field access on a non-object and indexing a non-array yield null, never an
// error. After a projection suffix, the remaining steps apply to every
// element and null results are dropped, so a query over a projection always
// yields an array. Quoted fields make diff paths addressable, e.g.:
//
//	values_changed."root['x']".new_value
package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Query is a parsed path-query ready for evaluation.
type Query struct {
	source string
	steps  []node
}

// Parse compiles a query expression.
func Parse(source string) (*Query, error) {
	p := &parser{input: source}
	steps, err := p.parseSteps()
	if err != nil {
		return nil, fmt.Errorf("invalid query %q: %w", source, err)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("invalid query %q: empty expression", source)
	}
	return &Query{source: source, steps: steps}, nil
}

// Search evaluates the query against a JSON-like document. A missing path
// yields nil; evaluation itself cannot fail.
func (q *Query) Search(doc any) any {
	return evalSteps(q.steps, doc)
}

// String returns the original expression.
func (q *Query) String() string { return q.source }

// Search is a convenience that parses and evaluates in one call.
func Search(expr string, doc any) (any, error) {
	q, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	return q.Search(doc), nil
}

// AST nodes.

type node interface{}

type fieldNode struct{ name string }

type objValuesNode struct{}

type indexNode struct{ idx int }

type wildcardNode struct{}

type flattenNode struct{}

type filterNode struct {
	path []node
	op   string
	lit  any
}

// Parser.

type parser struct {
	input string
	pos   int
}

func (p *parser) parseSteps() ([]node, error) {
	var steps []node

	for {
		p.skipSpace()
		if p.eof() {
			break
		}

		c := p.peek()
		switch {
		case c == '.':
			if len(steps) == 0 {
				return nil, p.errorf("unexpected '.'")
			}
			p.pos++
			continue
		case c == '[':
			n, err := p.parseBracket()
			if err != nil {
				return nil, err
			}
			steps = append(steps, n)
		case c == '*':
			p.pos++
			steps = append(steps, objValuesNode{})
		case c == '"':
			name, err := p.parseQuoted('"')
			if err != nil {
				return nil, err
			}
			steps = append(steps, fieldNode{name: name})
		case isIdentStart(c):
			steps = append(steps, fieldNode{name: p.parseIdent()})
		default:
			return nil, p.errorf("unexpected character %q", c)
		}
	}

	return steps, nil
}

func (p *parser) parseBracket() (node, error) {
	p.pos++ // consume '['
	p.skipSpace()
	if p.eof() {
		return nil, p.errorf("unterminated '['")
	}

	switch p.peek() {
	case ']':
		p.pos++
		return flattenNode{}, nil
	case '*':
		p.pos++
		if err := p.expect(']'); err != nil {
			return nil, err
		}
		return wildcardNode{}, nil
	case '?':
		p.pos++
		return p.parseFilter()
	default:
		start := p.pos
		for !p.eof() && p.peek() != ']' {
			p.pos++
		}
		if p.eof() {
			return nil, p.errorf("unterminated '['")
		}
		raw := strings.TrimSpace(p.input[start:p.pos])
		p.pos++ // consume ']'
		idx, err := strconv.Atoi(raw)
		if err != nil {
			return nil, p.errorf("invalid index %q", raw)
		}
		return indexNode{idx: idx}, nil
	}
}

func (p *parser) parseFilter() (node, error) {
	var path []node
	for {
		p.skipSpace()
		if p.eof() {
			return nil, p.errorf("unterminated filter")
		}
		c := p.peek()
		switch {
		case c == '.':
			p.pos++
		case c == '"':
			name, err := p.parseQuoted('"')
			if err != nil {
				return nil, err
			}
			path = append(path, fieldNode{name: name})
		case isIdentStart(c):
			path = append(path, fieldNode{name: p.parseIdent()})
		default:
			goto pathDone
		}
	}
pathDone:
	if len(path) == 0 {
		return nil, p.errorf("filter missing field path")
	}

	p.skipSpace()
	op, err := p.parseOperator()
	if err != nil {
		return nil, err
	}

	p.skipSpace()
	lit, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}

	p.skipSpace()
	if err := p.expect(']'); err != nil {
		return nil, err
	}

	return filterNode{path: path, op: op, lit: lit}, nil
}

func (p *parser) parseOperator() (string, error) {
	for _, op := range []string{"==", "!=", "<=", ">=", "<", ">"} {
		if strings.HasPrefix(p.input[p.pos:], op) {
			p.pos += len(op)
			return op, nil
		}
	}
	return "", p.errorf("expected comparison operator")
}

func (p *parser) parseLiteral() (any, error) {
	if p.eof() {
		return nil, p.errorf("expected literal")
	}

	c := p.peek()
	switch {
	case c == '\'':
		return p.parseQuoted('\'')
	case c == '-' || unicode.IsDigit(rune(c)):
		start := p.pos
		p.pos++
		for !p.eof() && (unicode.IsDigit(rune(p.peek())) || p.peek() == '.') {
			p.pos++
		}
		f, err := strconv.ParseFloat(p.input[start:p.pos], 64)
		if err != nil {
			return nil, p.errorf("invalid number literal %q", p.input[start:p.pos])
		}
		return f, nil
	case isIdentStart(c):
		word := p.parseIdent()
		switch word {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "null":
			return nil, nil
		}
		return nil, p.errorf("unknown literal %q", word)
	default:
		return nil, p.errorf("expected literal, found %q", c)
	}
}

func (p *parser) parseQuoted(quote byte) (string, error) {
	p.pos++ // opening quote
	var sb strings.Builder
	for !p.eof() {
		c := p.input[p.pos]
		if c == '\\' && p.pos+1 < len(p.input) {
			p.pos++
			sb.WriteByte(p.input[p.pos])
			p.pos++
			continue
		}
		if c == quote {
			p.pos++
			return sb.String(), nil
		}
		sb.WriteByte(c)
		p.pos++
	}
	return "", p.errorf("unterminated string")
}

func (p *parser) parseIdent() string {
	start := p.pos
	for !p.eof() && isIdentPart(p.input[p.pos]) {
		p.pos++
	}
	return p.input[start:p.pos]
}

func (p *parser) expect(c byte) error {
	if p.eof() || p.peek() != c {
		return p.errorf("expected %q", c)
	}
	p.pos++
	return nil
}

func (p *parser) skipSpace() {
	for !p.eof() && (p.peek() == ' ' || p.peek() == '\t') {
		p.pos++
	}
}

func (p *parser) peek() byte { return p.input[p.pos] }
func (p *parser) eof() bool  { return p.pos >= len(p.input) }

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("at offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func isIdentStart(c byte) bool {
	return c == '_' || unicode.IsLetter(rune(c))
}

func isIdentPart(c byte) bool {
	return c == '_' || c == '-' || unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c))
}

// Evaluation.

func evalSteps(steps []node, v any) any {
	for i, s := range steps {
		if v == nil {
			return nil
		}

		switch n := s.(type) {
		case fieldNode:
			m, ok := v.(map[string]any)
			if !ok {
				return nil
			}
			v = m[n.name]
		case indexNode:
			list, ok := v.([]any)
			if !ok {
				return nil
			}
			idx := n.idx
			if idx < 0 {
				idx += len(list)
			}
			if idx < 0 || idx >= len(list) {
				return nil
			}
			v = list[idx]
		case objValuesNode:
			m, ok := v.(map[string]any)
			if !ok {
				return nil
			}
			return project(sortedValues(m), steps[i+1:])
		case wildcardNode:
			list, ok := v.([]any)
			if !ok {
				return nil
			}
			return project(list, steps[i+1:])
		case flattenNode:
			list, ok := v.([]any)
			if !ok {
				return nil
			}
			return project(flatten(list), steps[i+1:])
		case filterNode:
			list, ok := v.([]any)
			if !ok {
				return nil
			}
			var kept []any
			for _, item := range list {
				if matchFilter(n, item) {
					kept = append(kept, item)
				}
			}
			return project(kept, steps[i+1:])
		}
	}
	return v
}

// project applies the remaining steps to each element, dropping nulls.
func project(items []any, rest []node) any {
	out := []any{}
	for _, item := range items {
		r := evalSteps(rest, item)
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func flatten(list []any) []any {
	out := make([]any, 0, len(list))
	for _, item := range list {
		if nested, ok := item.([]any); ok {
			out = append(out, nested...)
		} else {
			out = append(out, item)
		}
	}
	return out
}

// sortedValues returns object values ordered by key so wildcard projections
// are deterministic.
func sortedValues(m map[string]any) []any {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

func matchFilter(f filterNode, item any) bool {
	lhs := evalSteps(f.path, item)

	switch f.op {
	case "==":
		return literalEqual(lhs, f.lit)
	case "!=":
		return !literalEqual(lhs, f.lit)
	}

	// Ordering operators only apply to numbers.
	a, aok := lhs.(float64)
	b, bok := f.lit.(float64)
	if !aok || !bok {
		return false
	}
	switch f.op {
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	}
	return false
}

func literalEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
		return false
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}
