package patch

import (
	"bytes"
	"fmt"
)

// SpanKind says what happened to a source range.
type SpanKind int

const (
	Copied SpanKind = iota
	Substituted
	Dropped
)

func (k SpanKind) String() string {
	switch k {
	case Copied:
		return "copied"
	case Substituted:
		return "substituted"
	}
	return "dropped"
}

// Span is a half-open source range [Start, End).
type Span struct {
	Kind       SpanKind
	Start, End int
}

// cursor emits src front to back. pos never moves backwards.
type cursor struct {
	src   []byte
	pos   int
	out   bytes.Buffer
	spans []Span
}

func newCursor(src []byte) *cursor {
	c := &cursor{src: src}
	c.out.Grow(len(src) + len(src)/8)
	return c
}

func (c *cursor) span(kind SpanKind, end int) {
	if end < c.pos {
		panic(fmt.Sprintf("patch: cursor moved backwards from %d to %d", c.pos, end))
	}
	if end == c.pos {
		return
	}
	if n := len(c.spans); n > 0 && kind == Copied && c.spans[n-1].Kind == Copied {
		c.spans[n-1].End = end
	} else {
		c.spans = append(c.spans, Span{Kind: kind, Start: c.pos, End: end})
	}
	c.pos = end
}

// copyTo emits src[pos:end] verbatim.
func (c *cursor) copyTo(end int) {
	c.out.Write(c.src[c.pos:end])
	c.span(Copied, end)
}

// substitute emits repl in place of src[pos:end].
func (c *cursor) substitute(end int, repl string) {
	c.out.WriteString(repl)
	c.span(Substituted, end)
}

// drop skips src[pos:end].
func (c *cursor) drop(end int) {
	c.span(Dropped, end)
}

// insert emits text that has no source range.
func (c *cursor) insert(text string) {
	c.out.WriteString(text)
}

// insertAt splices text into the output already emitted at offset off.
func (c *cursor) insertAt(off int, text string) {
	tail := append([]byte(text), c.out.Bytes()[off:]...)
	c.out.Truncate(off)
	c.out.Write(tail)
}

// checkTiling verifies that the spans cover src exactly once.
func checkTiling(spans []Span, size int) error {
	next := 0
	for _, s := range spans {
		if s.Start != next || s.End <= s.Start {
			return fmt.Errorf("span %s [%d,%d) does not continue at %d", s.Kind, s.Start, s.End, next)
		}
		next = s.End
	}
	if next != size {
		return fmt.Errorf("spans end at %d, source has %d bytes", next, size)
	}
	return nil
}
