package diff

import (
	"cmp"
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/crateapi/pkg/api"
)

// Check compares one aspect of two Apis. Checks are independent: each
// returns its own diffs and never sees those of another check.
type Check func(before, after *api.Api) []Diff

// DefaultChecks are the checks [Compute] runs.
var DefaultChecks = []Check{
	PublicDependencies,
}

// Engine runs a list of checks over a pair of Apis.
type Engine struct {
	checks []Check
	logger *log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithChecks replaces the default checks.
func WithChecks(checks ...Check) Option {
	return func(e *Engine) { e.checks = checks }
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an Engine running [DefaultChecks] unless overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		checks: DefaultChecks,
		logger: log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Diff returns every difference the engine's checks find, unordered.
func (e *Engine) Diff(before, after *api.Api) []Diff {
	var diffs []Diff
	for _, check := range e.checks {
		diffs = append(diffs, check(before, after)...)
	}
	e.logger.Debug("diffed apis", "checks", len(e.checks), "diffs", len(diffs))
	return diffs
}

// Compute diffs two Apis with the default checks.
func Compute(before, after *api.Api) []Diff {
	return NewEngine().Diff(before, after)
}

// Sort orders diffs for display: most severe first, then by category and
// rule name. The sort is stable.
func Sort(diffs []Diff) {
	slices.SortStableFunc(diffs, func(a, b Diff) int {
		if c := cmp.Compare(b.Severity, a.Severity); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Rule.Category, b.Rule.Category); c != 0 {
			return c
		}
		return cmp.Compare(a.Rule.Name, b.Rule.Name)
	})
}

// MaxSeverity returns the highest severity among diffs, or Allow for none.
func MaxSeverity(diffs []Diff) Severity {
	highest := SeverityAllow
	for _, d := range diffs {
		highest = max(highest, d.Severity)
	}
	return highest
}

// =============================================================================
// Public Dependencies
// =============================================================================

// PublicDependencies compares the external crates of both sides by name.
//
// When one side has several crates with the same name, the first one wins.
func PublicDependencies(before, after *api.Api) []Diff {
	beforeCrates := cratesByName(before)
	afterCrates := cratesByName(after)

	names := make([]string, 0, len(beforeCrates)+len(afterCrates))
	for name := range beforeCrates {
		names = append(names, name)
	}
	for name := range afterCrates {
		if _, ok := beforeCrates[name]; !ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	var diffs []Diff
	for _, name := range names {
		b, inBefore := beforeCrates[name]
		a, inAfter := afterCrates[name]
		switch {
		case inBefore && !inAfter:
			diffs = append(diffs, newDiff(DependencyRemoved, crateLocation(b), nil))
		case !inBefore && inAfter:
			diffs = append(diffs, newDiff(DependencyAdded, nil, crateLocation(a)))
		default:
			if d, ok := compareRequirements(before.Crates.Get(b), after.Crates.Get(a)); ok {
				diffs = append(diffs, d)
			}
		}
	}
	return diffs
}

func compareRequirements(before, after *api.Crate) (Diff, bool) {
	bl, al := crateLocation(before.ID), crateLocation(after.ID)
	if before.Version == nil || after.Version == nil {
		return newDiff(DependencyAmbiguous, bl, al), true
	}
	if before.Version.Equal(*after.Version) {
		return Diff{}, false
	}
	if BreakingInterval(*after.Version).Narrows(BreakingInterval(*before.Version)) {
		return newDiff(DependencyRequirement, bl, al), true
	}
	return Diff{}, false
}

func cratesByName(a *api.Api) map[string]api.CrateID {
	m := make(map[string]api.CrateID)
	if a == nil {
		return m
	}
	for _, c := range a.Crates {
		if _, ok := m[c.Name]; !ok {
			m[c.Name] = c.ID
		}
	}
	return m
}

func crateLocation(id api.CrateID) *Location {
	return &Location{CrateID: id.Ptr()}
}
