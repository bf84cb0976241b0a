package bioconductor

import (
	"strings"
)

// parseDCF splits a PACKAGES document into records. Keys map to values
// with continuation lines joined by a single space.
func parseDCF(text string) []map[string]string {
	var (
		records []map[string]string
		cur     map[string]string
		lastKey string
	)
	flush := func() {
		if len(cur) > 0 {
			records = append(records, cur)
		}
		cur, lastKey = nil, ""
	}

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			if lastKey != "" {
				cur[lastKey] += " " + strings.TrimSpace(line)
			}
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if cur == nil {
			cur = make(map[string]string)
		}
		lastKey = strings.TrimSpace(key)
		cur[lastKey] = strings.TrimSpace(value)
	}
	flush()
	return records
}

// parseDependencyList extracts package names from a field such as
// "R (>= 3.5.0), gdsfmt (>= 1.36.0), methods". Constraints are dropped.
func parseDependencyList(field string) []string {
	var names []string
	depth, start := 0, 0
	emit := func(part string) {
		part = strings.TrimSpace(part)
		if i := strings.IndexAny(part, " \t("); i >= 0 {
			part = part[:i]
		}
		if part != "" {
			names = append(names, part)
		}
	}
	for i := 0; i < len(field); i++ {
		switch field[i] {
		case '(':
			depth++
		case ')':
			depth = max(depth-1, 0)
		case ',':
			if depth == 0 {
				emit(field[start:i])
				start = i + 1
			}
		}
	}
	emit(field[start:])
	return names
}
