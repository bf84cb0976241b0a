package marker

import (
	"errors"
	"fmt"
	"strings"
)

// Expr is a node of a parsed marker expression.
type Expr interface {
	// Evaluate reports whether the expression holds in env.
	Evaluate(env Environment) bool
	String() string
}

// ParseMarker parses a marker expression such as
// `python_version < "3.8" and extra == "test"`.
func ParseMarker(s string) (Expr, error) {
	return parseMarker(s)
}

type boolOp struct {
	op          string // "and" or "or"
	left, right Expr
}

func (b *boolOp) Evaluate(env Environment) bool {
	if b.op == "and" {
		return b.left.Evaluate(env) && b.right.Evaluate(env)
	}
	return b.left.Evaluate(env) || b.right.Evaluate(env)
}

func (b *boolOp) String() string {
	return "(" + b.left.String() + " " + b.op + " " + b.right.String() + ")"
}

// operand is either a marker variable or a quoted literal.
type operand struct {
	variable string
	literal  string
}

func (o operand) value(env Environment) string {
	if o.variable != "" {
		return env[o.variable]
	}
	return o.literal
}

func (o operand) String() string {
	if o.variable != "" {
		return o.variable
	}
	return fmt.Sprintf("%q", o.literal)
}

type comparison struct {
	op          string
	left, right operand
}

func (c *comparison) Evaluate(env Environment) bool {
	lhs, rhs := c.left.value(env), c.right.value(env)
	if c.left.variable == "extra" || c.right.variable == "extra" {
		lhs, rhs = normalizeExtra(lhs), normalizeExtra(rhs)
	}
	return compare(c.op, lhs, rhs)
}

func (c *comparison) String() string {
	return c.left.String() + " " + c.op + " " + c.right.String()
}

// Variables that may appear in a marker. Legacy dotted spellings map onto
// their PEP 508 names.
var markerVariables = map[string]string{
	"python_version":                 "python_version",
	"python_full_version":            "python_full_version",
	"os_name":                        "os_name",
	"sys_platform":                   "sys_platform",
	"platform_release":               "platform_release",
	"platform_system":                "platform_system",
	"platform_version":               "platform_version",
	"platform_machine":               "platform_machine",
	"platform_python_implementation": "platform_python_implementation",
	"implementation_name":            "implementation_name",
	"implementation_version":         "implementation_version",
	"extra":                          "extra",
	"os.name":                        "os_name",
	"sys.platform":                   "sys_platform",
	"platform.version":               "platform_version",
	"platform.machine":               "platform_machine",
	"platform.python_implementation": "platform_python_implementation",
	"python_implementation":          "platform_python_implementation",
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLParen
	tokRParen
	tokString
	tokIdent
	tokOp
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type markerParser struct {
	src  string
	toks []token
	i    int
}

func parseMarker(s string) (Expr, error) {
	toks, err := tokenize(s)
	if err != nil {
		return nil, err
	}
	p := &markerParser{src: s, toks: toks}
	expr, err := p.or()
	if err != nil {
		return nil, err
	}
	if t := p.next(); t.kind != tokEOF {
		return nil, p.errorAt(t, "unexpected %q", t.text)
	}
	return expr, nil
}

func (p *markerParser) peek() token { return p.toks[p.i] }

func (p *markerParser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *markerParser) errorAt(t token, format string, args ...any) error {
	return &SyntaxError{Input: p.src, Offset: t.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *markerParser) or() (Expr, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokIdent && p.peek().text == "or" {
		p.next()
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = &boolOp{op: "or", left: left, right: right}
	}
	return left, nil
}

func (p *markerParser) and() (Expr, error) {
	left, err := p.atom()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokIdent && p.peek().text == "and" {
		p.next()
		right, err := p.atom()
		if err != nil {
			return nil, err
		}
		left = &boolOp{op: "and", left: left, right: right}
	}
	return left, nil
}

func (p *markerParser) atom() (Expr, error) {
	if p.peek().kind == tokLParen {
		p.next()
		expr, err := p.or()
		if err != nil {
			return nil, err
		}
		if t := p.next(); t.kind != tokRParen {
			return nil, p.errorAt(t, "expected ')'")
		}
		return expr, nil
	}

	left, err := p.operand()
	if err != nil {
		return nil, err
	}
	op, err := p.operator()
	if err != nil {
		return nil, err
	}
	right, err := p.operand()
	if err != nil {
		return nil, err
	}
	return &comparison{op: op, left: left, right: right}, nil
}

func (p *markerParser) operand() (operand, error) {
	t := p.next()
	switch t.kind {
	case tokString:
		return operand{literal: t.text}, nil
	case tokIdent:
		if name, ok := markerVariables[t.text]; ok {
			return operand{variable: name}, nil
		}
		return operand{}, p.errorAt(t, "unknown marker variable %q", t.text)
	default:
		return operand{}, p.errorAt(t, "expected marker variable or string")
	}
}

func (p *markerParser) operator() (string, error) {
	t := p.next()
	switch {
	case t.kind == tokOp:
		return t.text, nil
	case t.kind == tokIdent && t.text == "in":
		return "in", nil
	case t.kind == tokIdent && t.text == "not":
		if n := p.next(); n.kind == tokIdent && n.text == "in" {
			return "not in", nil
		}
		return "", p.errorAt(t, "expected 'in' after 'not'")
	}
	return "", p.errorAt(t, "expected comparison operator")
}

func tokenize(s string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c == '"' || c == '\'':
			end := strings.IndexByte(s[i+1:], c)
			if end < 0 {
				return nil, &SyntaxError{Input: s, Offset: i, Msg: "unterminated string"}
			}
			toks = append(toks, token{kind: tokString, text: s[i+1 : i+1+end], pos: i})
			i += end + 2
		case strings.ContainsRune("<>=!~", rune(c)):
			op := leadingOperator(s[i:])
			if op == "" {
				return nil, &SyntaxError{Input: s, Offset: i, Msg: fmt.Sprintf("invalid operator %q", string(c))}
			}
			toks = append(toks, token{kind: tokOp, text: op, pos: i})
			i += len(op)
		case isAlnum(c) || c == '_':
			start := i
			for i < len(s) && (isAlnum(s[i]) || s[i] == '_' || s[i] == '.') {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: s[start:i], pos: start})
		default:
			return nil, &SyntaxError{Input: s, Offset: i, Msg: fmt.Sprintf("unexpected character %q", string(c))}
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(s)}), nil
}

func normalizeExtra(s string) string {
	return strings.Trim(strings.NewReplacer("_", "-", ".", "-").Replace(strings.ToLower(s)), "-")
}

func asSyntax(err error, target **SyntaxError) bool {
	return errors.As(err, target)
}
