package patch

// Lexical helpers for Python source. They only know enough of the
// language to skip string literals and comments while matching brackets.

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func isQuote(c byte) bool { return c == '\'' || c == '"' }

// skipString returns the offset just past the string literal starting at
// the quote at i, or len(src) if it is unterminated.
func skipString(src []byte, i int) int {
	q := src[i]
	if i+2 < len(src) && src[i+1] == q && src[i+2] == q {
		for j := i + 3; j < len(src); j++ {
			switch {
			case src[j] == '\\':
				j++
			case src[j] == q && j+2 < len(src) && src[j+1] == q && src[j+2] == q:
				return j + 3
			}
		}
		return len(src)
	}
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case q:
			return j + 1
		case '\n':
			return j
		}
	}
	return len(src)
}

// skipComment returns the offset of the newline ending the comment at i.
func skipComment(src []byte, i int) int {
	for i < len(src) && src[i] != '\n' {
		i++
	}
	return i
}

// skipTrivia skips whitespace and comments.
func skipTrivia(src []byte, i int) int {
	for i < len(src) {
		switch {
		case isSpace(src[i]):
			i++
		case src[i] == '#':
			i = skipComment(src, i)
		default:
			return i
		}
	}
	return i
}

// literal returns the raw text between the quotes of the single-line
// string at [start, end).
func literal(src []byte, start, end int) string {
	q := 1
	if end-start >= 6 && src[start+1] == src[start] && src[start+2] == src[start] {
		q = 3
	}
	if end-start < 2*q {
		return ""
	}
	return string(src[start+q : end-q])
}

// findString returns the bounds of the first string literal in
// [from, limit) whose text equals want.
func findString(src []byte, from, limit int, want string) (int, int, bool) {
	for i := from; i < limit; {
		switch c := src[i]; {
		case c == '#':
			i = skipComment(src, i)
		case isQuote(c):
			end := skipString(src, i)
			if literal(src, i, end) == want {
				return i, end, true
			}
			i = end
		default:
			i++
		}
	}
	return 0, 0, false
}

var closers = map[byte]byte{'(': ')', '[': ']', '{': '}'}

// matchBracket returns the offset of the bracket closing the one at
// open, or -1.
func matchBracket(src []byte, open int) int {
	var stack []byte
	for i := open; i < len(src); {
		switch c := src[i]; {
		case c == '#':
			i = skipComment(src, i)
			continue
		case isQuote(c):
			i = skipString(src, i)
			continue
		case closers[c] != 0:
			stack = append(stack, closers[c])
		case c == ')' || c == ']' || c == '}':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
		i++
	}
	return -1
}

// valueEnd returns the offset of the ',' or closing bracket that ends the
// expression starting at i, at the nesting level of i.
func valueEnd(src []byte, i, limit int) int {
	for i < limit {
		switch c := src[i]; {
		case c == '#':
			i = skipComment(src, i)
			continue
		case isQuote(c):
			i = skipString(src, i)
			continue
		case closers[c] != 0:
			if j := matchBracket(src, i); j >= 0 {
				i = j + 1
				continue
			}
			return limit
		case c == ',' || c == ')' || c == ']' || c == '}':
			return i
		}
		i++
	}
	return limit
}

// lastToken returns the offset of the last character in [from, to) that
// is neither whitespace nor part of a comment, or -1.
func lastToken(src []byte, from, to int) int {
	last := -1
	for i := from; i < to; {
		switch c := src[i]; {
		case c == '#':
			i = skipComment(src, i)
		case isQuote(c):
			i = skipString(src, i)
			last = i - 1
		case isSpace(c):
			i++
		default:
			last = i
			i++
		}
	}
	return last
}

// lineStart returns the offset of the first byte of the line holding i.
func lineStart(src []byte, i int) int {
	for i > 0 && src[i-1] != '\n' {
		i--
	}
	return i
}

// blank reports whether src[from:to] holds only spaces and tabs.
func blank(src []byte, from, to int) bool {
	for _, c := range src[from:to] {
		if c != ' ' && c != '\t' {
			return false
		}
	}
	return true
}

// restOfLine returns the offset just past the newline ending the line at
// i if only spaces, tabs or a comment follow i, otherwise -1.
func restOfLine(src []byte, i int) int {
	for i < len(src) && (src[i] == ' ' || src[i] == '\t') {
		i++
	}
	if i < len(src) && src[i] == '#' {
		i = skipComment(src, i)
	}
	switch {
	case i == len(src):
		return i
	case src[i] == '\n':
		return i + 1
	case src[i] == '\r' && i+1 < len(src) && src[i+1] == '\n':
		return i + 2
	}
	return -1
}
