package marker

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// compare applies a marker operator. Version operators fall back to string
// comparison when either side is not a version.
func compare(op, lhs, rhs string) bool {
	switch op {
	case "in":
		return strings.Contains(rhs, lhs)
	case "not in":
		return !strings.Contains(rhs, lhs)
	case "===":
		return lhs == rhs
	}
	if ok, matched := versionCompare(op, lhs, rhs); ok {
		return matched
	}
	switch op {
	case "==":
		return lhs == rhs
	case "!=":
		return lhs != rhs
	case "<":
		return lhs < rhs
	case "<=":
		return lhs <= rhs
	case ">":
		return lhs > rhs
	case ">=":
		return lhs >= rhs
	}
	return false
}

// versionCompare reports whether lhs satisfies "op rhs" as a version range.
// ok is false when the operands cannot be read as versions.
func versionCompare(op, lhs, rhs string) (ok, matched bool) {
	v, err := semver.NewVersion(lhs)
	if err != nil {
		return false, false
	}

	var expr string
	switch {
	case op == "~=":
		lower, upper, valid := compatibleRange(rhs)
		if !valid {
			return false, false
		}
		expr = ">= " + lower + ", < " + upper
	case (op == "==" || op == "!=") && strings.HasSuffix(rhs, ".*"):
		lower, upper, valid := prefixRange(strings.TrimSuffix(rhs, ".*"))
		if !valid {
			return false, false
		}
		c, err := semver.NewConstraint(">= " + lower + ", < " + upper)
		if err != nil {
			return false, false
		}
		in := c.Check(v)
		if op == "!=" {
			return true, !in
		}
		return true, in
	case op == "==":
		expr = "= " + rhs
	default:
		expr = op + " " + rhs
	}

	if _, err := semver.NewVersion(strings.TrimSpace(rhs)); err != nil && op != "~=" {
		return false, false
	}
	c, err := semver.NewConstraint(expr)
	if err != nil {
		return false, false
	}
	return true, c.Check(v)
}

// compatibleRange expands "~= X.Y.Z" into [X.Y.Z, X.(Y+1)).
func compatibleRange(rhs string) (lower, upper string, ok bool) {
	parts := strings.Split(strings.TrimSpace(rhs), ".")
	if len(parts) < 2 {
		return "", "", false
	}
	upper, ok = bump(parts[:len(parts)-1])
	return strings.Join(parts, "."), upper, ok
}

// prefixRange expands "== X.Y.*" into [X.Y, X.(Y+1)).
func prefixRange(prefix string) (lower, upper string, ok bool) {
	parts := strings.Split(strings.TrimSpace(prefix), ".")
	if len(parts) == 0 || parts[0] == "" {
		return "", "", false
	}
	upper, ok = bump(parts)
	return prefix, upper, ok
}

func bump(parts []string) (string, bool) {
	out := append([]string(nil), parts...)
	last, err := strconv.Atoi(out[len(out)-1])
	if err != nil {
		return "", false
	}
	out[len(out)-1] = strconv.Itoa(last + 1)
	return strings.Join(out, "."), true
}
