package patch

import (
	"fmt"
	"regexp"
	"strings"

	apperr "github.com/extsync/easyupdate/pkg/errors"
	"github.com/extsync/easyupdate/pkg/integrations"
	"github.com/extsync/easyupdate/pkg/resolve"
)

// Action is what Apply does with a declared entry.
type Action int

const (
	Copy Action = iota
	Substitute
	Drop
)

// Entry is one declared exts_list entry, in recipe order.
type Entry struct {
	Name       string // Name literal as written
	Version    string // Version literal as written, empty for bare entries
	Bare       bool
	Decision   resolve.Decision
	Action     Action
	NewVersion string // Replacement version for Substitute
}

// Addition is a new entry appended to the list.
type Addition struct {
	Name    string
	Version string
	Options []integrations.Option
}

// Format controls how additions are written. Zero fields are detected
// from the existing list.
type Format struct {
	Indent string // Indentation of one entry
	Quote  byte   // ' or "
}

// Plan is the input of [Apply].
type Plan struct {
	Entries   []Entry
	Additions []Addition
	Format    Format
}

// Counts summarizes the edits of a patch.
type Counts struct {
	Substituted      int
	Dropped          int
	Added            int
	ChecksumsDropped int
}

// Changed reports whether the output differs from the source.
func (c Counts) Changed() bool {
	return c.Substituted+c.Dropped+c.Added+c.ChecksumsDropped > 0
}

// Result is a successful patch.
type Result struct {
	Output []byte
	Spans  []Span
	Counts Counts
}

// AnchorError reports a text anchor the document does not contain where
// the plan expects it.
type AnchorError struct {
	Anchor string // "exts_list", "name", "version" or "entry"
	Name   string // Extension, empty for the list itself
	Offset int    // Search start
}

func (e *AnchorError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s anchor not found after offset %d", e.Anchor, e.Offset)
	}
	return fmt.Sprintf("%s anchor for %q not found after offset %d", e.Anchor, e.Name, e.Offset)
}

func anchorError(anchor, name string, offset int) error {
	cause := &AnchorError{Anchor: anchor, Name: name, Offset: offset}
	return apperr.Wrap(apperr.ErrCodeAnchorNotFound, cause, "cannot patch exts_list safely")
}

var openMarker = regexp.MustCompile(`(?m)^exts_list\s*=\s*\[`)

// Apply rewrites src according to plan. On error no output is returned.
func Apply(src []byte, plan Plan) (*Result, error) {
	loc := openMarker.FindIndex(src)
	if loc == nil {
		if len(plan.Entries) == 0 && len(plan.Additions) == 0 {
			c := newCursor(src)
			c.copyTo(len(src))
			return &Result{Output: c.out.Bytes(), Spans: c.spans}, nil
		}
		return nil, anchorError("exts_list", "", 0)
	}
	open := loc[1] - 1
	closing := matchBracket(src, open)
	if closing < 0 {
		return nil, anchorError("exts_list", "", open)
	}

	p := &patcher{c: newCursor(src), src: src, close: closing}
	p.c.copyTo(open + 1)
	p.body = p.c.out.Len()
	for _, e := range plan.Entries {
		if err := p.entry(e); err != nil {
			return nil, err
		}
	}
	if len(plan.Additions) > 0 {
		p.append(plan.Additions, detectFormat(src, open+1, closing, plan.Format))
	}
	p.c.copyTo(len(src))

	if err := checkTiling(p.c.spans, len(src)); err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInternal, err, "patch coverage")
	}
	return &Result{Output: p.c.out.Bytes(), Spans: p.c.spans, Counts: p.counts}, nil
}

type patcher struct {
	c      *cursor
	src    []byte
	close  int // Offset of the list's closing bracket
	body   int // Output offset of the list body
	counts Counts
}

func (p *patcher) entry(e Entry) error {
	qs, qe, ok := findString(p.src, p.c.pos, p.close, e.Name)
	if !ok {
		return anchorError("name", e.Name, p.c.pos)
	}

	start, end := qs, qe
	if j := lastToken(p.src, p.c.pos, qs); j >= 0 && p.src[j] == '(' {
		start = j
		if end = matchBracket(p.src, j); end < 0 {
			return anchorError("entry", e.Name, j)
		}
		end++
	}

	switch e.Action {
	case Copy:
		p.c.copyTo(end)
	case Drop:
		p.dropEntry(start, end)
	case Substitute:
		if e.Bare || start == qs {
			return anchorError("version", e.Name, qe)
		}
		return p.substitute(e, qe, end)
	}
	return nil
}

// dropEntry removes [start, end) and its trailing comma; whole lines go
// with it when the entry had them to itself.
func (p *patcher) dropEntry(start, end int) {
	if i := skipSpaces(p.src, end); i < p.close && p.src[i] == ',' {
		end = i + 1
	}
	ls := lineStart(p.src, start)
	if ls >= p.c.pos && blank(p.src, ls, start) {
		if eol := restOfLine(p.src, end); eol >= 0 && eol <= p.close {
			start, end = ls, eol
		}
	}
	p.c.copyTo(start)
	p.c.drop(end)
	p.counts.Dropped++
}

// substitute replaces the version literal following the name that ends
// at nameEnd and drops the checksums option of the entry ending at end.
func (p *patcher) substitute(e Entry, nameEnd, end int) error {
	i := skipTrivia(p.src, nameEnd)
	if i >= end || p.src[i] != ',' {
		return anchorError("version", e.Name, nameEnd)
	}
	vs := skipTrivia(p.src, i+1)
	if vs >= end || !isQuote(p.src[vs]) {
		return anchorError("version", e.Name, nameEnd)
	}
	ve := skipString(p.src, vs)
	if literal(p.src, vs, ve) != e.Version {
		return anchorError("version", e.Name, nameEnd)
	}

	q := string(p.src[vs])
	p.c.copyTo(vs)
	p.c.substitute(ve, q+escape(e.NewVersion, p.src[vs])+q)
	p.counts.Substituted++

	if ks, ke, ok := p.checksums(ve, end); ok {
		p.c.copyTo(ks)
		p.c.drop(ke)
		p.counts.ChecksumsDropped++
	}
	p.c.copyTo(end)
	return nil
}

// checksums locates the 'checksums' item of the options dict in
// [from, end) together with its trailing comma and, when it sits on its
// own line, the whole line.
func (p *patcher) checksums(from, end int) (int, int, bool) {
	i := skipTrivia(p.src, from)
	if i >= end || p.src[i] != ',' {
		return 0, 0, false
	}
	open := skipTrivia(p.src, i+1)
	if open >= end || p.src[open] != '{' {
		return 0, 0, false
	}
	dictEnd := matchBracket(p.src, open)
	if dictEnd < 0 || dictEnd >= end {
		return 0, 0, false
	}

	for k := skipTrivia(p.src, open+1); k < dictEnd; {
		if !isQuote(p.src[k]) {
			return 0, 0, false
		}
		keyEnd := skipString(p.src, k)
		colon := skipTrivia(p.src, keyEnd)
		if colon >= dictEnd || p.src[colon] != ':' {
			return 0, 0, false
		}
		vend := valueEnd(p.src, colon+1, dictEnd)
		itemEnd := lastToken(p.src, colon+1, vend) + 1
		if vend < dictEnd && p.src[vend] == ',' {
			itemEnd = vend + 1
		}
		if literal(p.src, k, keyEnd) == "checksums" {
			start, stop := k, skipSpaces(p.src, itemEnd)
			ls := lineStart(p.src, k)
			if blank(p.src, ls, k) {
				if eol := restOfLine(p.src, itemEnd); eol >= 0 {
					start, stop = ls, eol
				}
			}
			return start, stop, true
		}
		k = skipTrivia(p.src, itemEnd)
	}
	return 0, 0, false
}

// append writes additions before the closing bracket.
func (p *patcher) append(adds []Addition, f Format) {
	var b strings.Builder
	at := p.close
	ls := lineStart(p.src, p.close)
	if ls >= p.c.pos && blank(p.src, ls, p.close) {
		at = ls
	} else {
		b.WriteByte('\n')
	}
	p.c.copyTo(at)

	// The entry before the additions needs a trailing comma.
	out := p.c.out.Bytes()
	if last := lastToken(out, p.body, len(out)); last >= 0 && out[last] != ',' {
		p.c.insertAt(last+1, ",")
	}

	for _, a := range adds {
		writeAddition(&b, a, f)
	}
	p.c.insert(b.String())
	p.counts.Added += len(adds)
}

func writeAddition(b *strings.Builder, a Addition, f Format) {
	q := string(f.Quote)
	lit := func(s string) string { return q + escape(s, f.Quote) + q }

	b.WriteString(f.Indent + "(" + lit(a.Name) + ", " + lit(a.Version))
	if len(a.Options) == 0 {
		b.WriteString("),\n")
		return
	}
	b.WriteString(", {\n")
	for _, o := range a.Options {
		b.WriteString(f.Indent + f.Indent + lit(o.Key) + ": " + lit(o.Value) + ",\n")
	}
	b.WriteString(f.Indent + "}),\n")
}

func escape(s string, quote byte) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, string(quote), `\`+string(quote))
}

func skipSpaces(src []byte, i int) int {
	for i < len(src) && (src[i] == ' ' || src[i] == '\t') {
		i++
	}
	return i
}

// detectFormat fills the zero fields of f from the first entry of the
// list body [from, to).
func detectFormat(src []byte, from, to int, f Format) Format {
	first := skipTrivia(src, from)
	if f.Indent == "" {
		f.Indent = "    "
		if first < to {
			ls := lineStart(src, first)
			if ls > from && blank(src, ls, first) && first > ls {
				f.Indent = string(src[ls:first])
			}
		}
	}
	if f.Quote == 0 {
		f.Quote = '\''
		for i := first; i < to; i++ {
			if src[i] == '#' {
				i = skipComment(src, i)
				continue
			}
			if isQuote(src[i]) {
				f.Quote = src[i]
				break
			}
		}
	}
	return f
}
