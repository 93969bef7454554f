package diff

import (
	"cmp"
	"math"

	"github.com/matzehuels/crateapi/pkg/semver"
)

// Interval is the band of versions a requirement is reduced to when
// deciding compatibility. Bounds are inclusive and only the numeric
// components are used.
type Interval struct {
	Lower semver.Version
	Upper semver.Version
}

var (
	minVersion = semver.Version{}
	maxVersion = semver.Version{Major: math.MaxUint64, Minor: math.MaxUint64, Patch: math.MaxUint64}
)

// Unbounded is the interval of a requirement without comparators.
var Unbounded = Interval{Lower: minVersion, Upper: maxVersion}

// BreakingInterval reduces req to the versions that are compatible with it
// under the rule that the leftmost non-zero component is the one that may
// not change. Comparators are intersected.
func BreakingInterval(req semver.VersionReq) Interval {
	iv := Unbounded
	for _, c := range req.Comparators {
		lower, upper := comparatorBounds(c)
		if lower != nil && compareVersion(*lower, iv.Lower) > 0 {
			iv.Lower = *lower
		}
		if upper != nil && compareVersion(*upper, iv.Upper) < 0 {
			iv.Upper = *upper
		}
	}
	return iv
}

// Narrows reports whether moving from old to new excludes versions old
// accepted: the lower bound rose or the upper bound fell.
func (iv Interval) Narrows(old Interval) bool {
	return compareVersion(iv.Lower, old.Lower) > 0 || compareVersion(iv.Upper, old.Upper) < 0
}

// component indexes the part of a version a comparator is pinned to.
type component int

const (
	major component = iota
	minor
	patch
)

// pin returns the comparator's pin point and which component it is pinned
// to. ok is false when no component is pinned, e.g. for "0" or "0.0.*".
func pin(c semver.Comparator) (v semver.Version, at component, ok bool) {
	switch {
	case c.Major >= 1:
		return semver.Version{Major: c.Major}, major, true
	case c.Minor != nil && *c.Minor >= 1:
		return semver.Version{Minor: *c.Minor}, minor, true
	case c.Patch != nil:
		return semver.Version{Patch: *c.Patch}, patch, true
	}
	return semver.Version{}, 0, false
}

func comparatorBounds(c semver.Comparator) (lower, upper *semver.Version) {
	v, at, ok := pin(c)
	if !ok {
		return nil, nil
	}
	switch c.Op {
	case semver.OpExact, semver.OpGreaterEq, semver.OpTilde, semver.OpCaret, semver.OpWildcard:
		return &v, &v
	case semver.OpGreater:
		next := step(v, at, 1)
		return &next, nil
	case semver.OpLess:
		prev := step(v, at, -1)
		return nil, &prev
	case semver.OpLessEq:
		return nil, &v
	}
	return nil, nil
}

// step moves the pinned component by delta, flooring at zero. The other
// components of a pin point are already zero.
func step(v semver.Version, at component, delta int) semver.Version {
	move := func(n uint64) uint64 {
		if delta < 0 {
			if n == 0 {
				return 0
			}
			return n - 1
		}
		return n + 1
	}
	switch at {
	case major:
		v.Major = move(v.Major)
	case minor:
		v.Minor = move(v.Minor)
	case patch:
		v.Patch = move(v.Patch)
	}
	return v
}

func compareVersion(a, b semver.Version) int {
	if c := cmp.Compare(a.Major, b.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Minor, b.Minor); c != 0 {
		return c
	}
	return cmp.Compare(a.Patch, b.Patch)
}
