package marker

import (
	"fmt"
	"strings"
)

// SyntaxError reports a requirement or marker that does not follow the
// PEP 508 grammar. Offset is a byte offset into Input.
type SyntaxError struct {
	Input  string
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid requirement %q at offset %d: %s", e.Input, e.Offset, e.Msg)
}

// Requirement is one parsed PEP 508 dependency specification.
type Requirement struct {
	Name      string   // Distribution name as written
	Extras    []string // Requested extras, e.g. ["security"]
	Specifier string   // Version specifier without parentheses, e.g. ">=2.0,<3"
	URL       string   // Direct reference after "@", mutually exclusive with Specifier
	Marker    Expr     // Environment marker, nil when absent
}

// Applies reports whether the requirement is active in env. A requirement
// without a marker always applies.
func (r *Requirement) Applies(env Environment) bool {
	if r.Marker == nil {
		return true
	}
	return r.Marker.Evaluate(env)
}

func (r *Requirement) String() string {
	var b strings.Builder
	b.WriteString(r.Name)
	if len(r.Extras) > 0 {
		b.WriteString("[" + strings.Join(r.Extras, ",") + "]")
	}
	switch {
	case r.URL != "":
		b.WriteString(" @ " + r.URL)
	case r.Specifier != "":
		b.WriteString(r.Specifier)
	}
	if r.Marker != nil {
		b.WriteString("; " + r.Marker.String())
	}
	return b.String()
}

// ParseRequirement parses a requires_dist entry.
func ParseRequirement(s string) (*Requirement, error) {
	p := &reqParser{src: s}
	return p.parse()
}

type reqParser struct {
	src string
	pos int
}

func (p *reqParser) errorf(format string, args ...any) error {
	return &SyntaxError{Input: p.src, Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *reqParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *reqParser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

func (p *reqParser) parse() (*Requirement, error) {
	p.skipSpace()
	name := p.identifier()
	if name == "" {
		return nil, p.errorf("expected distribution name")
	}
	req := &Requirement{Name: name}

	p.skipSpace()
	if p.peek() == '[' {
		extras, err := p.extras()
		if err != nil {
			return nil, err
		}
		req.Extras = extras
	}

	p.skipSpace()
	var markerText string
	var markerPos int
	switch p.peek() {
	case '@':
		p.pos++
		p.skipSpace()
		start := p.pos
		// A URL may itself contain ';', so the marker separator must be
		// preceded by whitespace.
		for p.pos < len(p.src) {
			if p.src[p.pos] == ';' && p.pos > start && isSpace(p.src[p.pos-1]) {
				break
			}
			p.pos++
		}
		req.URL = strings.TrimSpace(p.src[start:p.pos])
		if req.URL == "" {
			return nil, p.errorf("empty URL after @")
		}
	default:
		start := p.pos
		for p.pos < len(p.src) && p.src[p.pos] != ';' {
			p.pos++
		}
		spec, err := normalizeSpecifier(p.src[start:p.pos])
		if err != nil {
			p.pos = start
			return nil, p.errorf("%v", err)
		}
		req.Specifier = spec
	}

	if p.peek() == ';' {
		p.pos++
		markerPos = p.pos
		markerText = p.src[p.pos:]
		if strings.TrimSpace(markerText) == "" {
			return nil, p.errorf("empty marker after ';'")
		}
		expr, err := parseMarker(markerText)
		if err != nil {
			var se *SyntaxError
			if asSyntax(err, &se) {
				se.Input = p.src
				se.Offset += markerPos
			}
			return nil, err
		}
		req.Marker = expr
	}
	return req, nil
}

func (p *reqParser) identifier() string {
	start := p.pos
	for p.pos < len(p.src) && isIdentChar(p.src[p.pos]) {
		p.pos++
	}
	ident := p.src[start:p.pos]
	// Names must start and end with a letter or digit.
	for len(ident) > 0 && !isAlnum(ident[len(ident)-1]) {
		ident = ident[:len(ident)-1]
		p.pos--
	}
	if ident != "" && !isAlnum(ident[0]) {
		p.pos = start
		return ""
	}
	return ident
}

func (p *reqParser) extras() ([]string, error) {
	p.pos++ // '['
	var extras []string
	for {
		p.skipSpace()
		if p.peek() == ']' {
			p.pos++
			return extras, nil
		}
		name := p.identifier()
		if name == "" {
			return nil, p.errorf("expected extra name")
		}
		extras = append(extras, name)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
		default:
			return nil, p.errorf("expected ',' or ']' in extras")
		}
	}
}

// normalizeSpecifier validates a version specifier list and returns it
// without surrounding parentheses or whitespace.
func normalizeSpecifier(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", nil
	}
	if strings.HasPrefix(s, "(") {
		if !strings.HasSuffix(s, ")") {
			return "", fmt.Errorf("unbalanced parenthesis in version specifier")
		}
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	parts := strings.Split(s, ",")
	for i, part := range parts {
		part = strings.TrimSpace(part)
		op := leadingOperator(part)
		if op == "" {
			return "", fmt.Errorf("version specifier %q has no comparison operator", part)
		}
		v := strings.TrimSpace(part[len(op):])
		if v == "" || strings.ContainsAny(v, " \t") {
			return "", fmt.Errorf("invalid version in specifier %q", part)
		}
		parts[i] = op + v
	}
	return strings.Join(parts, ","), nil
}

var versionOperators = []string{"===", "~=", "==", "!=", "<=", ">=", "<", ">"}

func leadingOperator(s string) string {
	for _, op := range versionOperators {
		if strings.HasPrefix(s, op) {
			return op
		}
	}
	return ""
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' }

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func isIdentChar(c byte) bool {
	return isAlnum(c) || c == '-' || c == '_' || c == '.'
}
