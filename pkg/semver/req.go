package semver

import (
	"fmt"
	"strings"
)

// Op is the operator of a single comparator.
type Op int

const (
	OpExact     Op = iota // =I.J.K
	OpGreater             // >I.J.K
	OpGreaterEq           // >=I.J.K
	OpLess                // <I.J.K
	OpLessEq              // <=I.J.K
	OpTilde               // ~I.J.K
	OpCaret               // ^I.J.K, also the default when no operator is given
	OpWildcard            // I.J.*, I.*
)

var opPrefixes = map[Op]string{
	OpExact:     "=",
	OpGreater:   ">",
	OpGreaterEq: ">=",
	OpLess:      "<",
	OpLessEq:    "<=",
	OpTilde:     "~",
	OpCaret:     "^",
	OpWildcard:  "",
}

// String returns the operator's textual prefix.
func (o Op) String() string { return opPrefixes[o] }

// Comparator is one operator plus a possibly partial version.
// Minor and Patch are nil when omitted or written as a wildcard.
type Comparator struct {
	Op    Op      `json:"op"`
	Major uint64  `json:"major"`
	Minor *uint64 `json:"minor,omitempty"`
	Patch *uint64 `json:"patch,omitempty"`
	Pre   string  `json:"pre,omitempty"`
}

// Equal reports whether two comparators are structurally identical.
func (c Comparator) Equal(o Comparator) bool {
	return c.Op == o.Op &&
		c.Major == o.Major &&
		optEqual(c.Minor, o.Minor) &&
		optEqual(c.Patch, o.Patch) &&
		c.Pre == o.Pre
}

// String formats the comparator the way Cargo prints requirements.
func (c Comparator) String() string {
	var b strings.Builder
	b.WriteString(c.Op.String())
	fmt.Fprintf(&b, "%d", c.Major)
	switch {
	case c.Minor != nil:
		fmt.Fprintf(&b, ".%d", *c.Minor)
		if c.Patch != nil {
			fmt.Fprintf(&b, ".%d", *c.Patch)
			if c.Pre != "" {
				b.WriteByte('-')
				b.WriteString(c.Pre)
			}
		} else if c.Op == OpWildcard {
			b.WriteString(".*")
		}
	case c.Op == OpWildcard:
		b.WriteString(".*")
	}
	return b.String()
}

// VersionReq is a conjunction of comparators. An empty requirement matches
// every version and prints as "*".
type VersionReq struct {
	Comparators []Comparator
}

// Any returns the unconstrained requirement.
func Any() VersionReq { return VersionReq{} }

// ParseReq parses a Cargo version requirement such as "^1.2", ">= 0.3, < 0.5"
// or "1.*". A bare version is a caret requirement.
func ParseReq(s string) (VersionReq, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return VersionReq{}, nil
	}
	var req VersionReq
	for _, part := range strings.Split(s, ",") {
		c, err := parseComparator(strings.TrimSpace(part))
		if err != nil {
			return VersionReq{}, fmt.Errorf("invalid version requirement %q: %w", s, err)
		}
		req.Comparators = append(req.Comparators, c)
	}
	return req, nil
}

// MustParseReq is like ParseReq but panics on error.
func MustParseReq(s string) VersionReq {
	r, err := ParseReq(s)
	if err != nil {
		panic(err)
	}
	return r
}

// IsAny reports whether the requirement has no comparators.
func (r VersionReq) IsAny() bool { return len(r.Comparators) == 0 }

// Equal reports structural equality, comparator by comparator.
func (r VersionReq) Equal(o VersionReq) bool {
	if len(r.Comparators) != len(o.Comparators) {
		return false
	}
	for i := range r.Comparators {
		if !r.Comparators[i].Equal(o.Comparators[i]) {
			return false
		}
	}
	return true
}

// String formats the requirement, joining comparators with ", ".
func (r VersionReq) String() string {
	if r.IsAny() {
		return "*"
	}
	parts := make([]string, len(r.Comparators))
	for i, c := range r.Comparators {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}

// MarshalText implements encoding.TextMarshaler.
func (r VersionReq) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *VersionReq) UnmarshalText(data []byte) error {
	parsed, err := ParseReq(string(data))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func parseComparator(s string) (Comparator, error) {
	if s == "" {
		return Comparator{}, fmt.Errorf("empty comparator")
	}

	op, rest, explicit := splitOp(s)
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return Comparator{}, fmt.Errorf("missing version after %q", s)
	}

	var pre string
	if i := strings.IndexByte(rest, '+'); i >= 0 {
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, '-'); i >= 0 {
		pre = rest[i+1:]
		rest = rest[:i]
	}

	parts := strings.Split(rest, ".")
	if len(parts) > 3 {
		return Comparator{}, fmt.Errorf("too many components in %q", s)
	}

	c := Comparator{Op: op, Pre: pre}
	wildcard := false
	for i, p := range parts {
		if isWildcard(p) {
			if i == 0 {
				return Comparator{}, fmt.Errorf("wildcard major in %q", s)
			}
			wildcard = true
			continue
		}
		if wildcard {
			return Comparator{}, fmt.Errorf("number after wildcard in %q", s)
		}
		n, err := parseNumber(p)
		if err != nil {
			return Comparator{}, err
		}
		switch i {
		case 0:
			c.Major = n
		case 1:
			c.Minor = &n
		case 2:
			c.Patch = &n
		}
	}

	if wildcard {
		if explicit && op != OpExact {
			return Comparator{}, fmt.Errorf("wildcard with operator %q", op)
		}
		c.Op = OpWildcard
	}
	if pre != "" && c.Patch == nil {
		return Comparator{}, fmt.Errorf("pre-release without patch in %q", s)
	}
	return c, nil
}

func splitOp(s string) (Op, string, bool) {
	switch {
	case strings.HasPrefix(s, ">="):
		return OpGreaterEq, s[2:], true
	case strings.HasPrefix(s, "<="):
		return OpLessEq, s[2:], true
	case strings.HasPrefix(s, ">"):
		return OpGreater, s[1:], true
	case strings.HasPrefix(s, "<"):
		return OpLess, s[1:], true
	case strings.HasPrefix(s, "="):
		return OpExact, s[1:], true
	case strings.HasPrefix(s, "~"):
		return OpTilde, s[1:], true
	case strings.HasPrefix(s, "^"):
		return OpCaret, s[1:], true
	}
	return OpCaret, s, false
}

func isWildcard(s string) bool {
	return s == "*" || s == "x" || s == "X"
}

func optEqual(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
