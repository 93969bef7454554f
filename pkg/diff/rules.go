package diff

// Dependency rules compare the external crates reachable from the public
// surface of both sides by name.
var (
	DependencyAdded = Rule{
		Name:            "DEPENDENCY_ADDED",
		Explanation:     "A public dependency was added",
		Category:        CategoryAdded,
		DefaultSeverity: SeverityReport,
	}

	// Removing a public dependency follows from removing the API that used
	// it, so it is not reported on its own.
	DependencyRemoved = Rule{
		Name:            "DEPENDENCY_REMOVED",
		Explanation:     "A public dependency was removed",
		Category:        CategoryRemoved,
		DefaultSeverity: SeverityAllow,
	}

	DependencyAmbiguous = Rule{
		Name:            "DEPENDENCY_AMBIGUOUS",
		Explanation:     "Could not determine the version requirement of a public dependency",
		Category:        CategoryUnknown,
		DefaultSeverity: SeverityAllow,
	}

	DependencyRequirement = Rule{
		Name:            "DEPENDENCY_REQUIREMENT",
		Explanation:     "The version requirement of a public dependency changed incompatibly",
		Category:        CategoryChanged,
		DefaultSeverity: SeverityWarn,
	}
)

// Rules lists every rule the engine can emit.
var Rules = []Rule{
	DependencyAdded,
	DependencyRemoved,
	DependencyAmbiguous,
	DependencyRequirement,
}

// LookupRule returns the rule with the given name.
func LookupRule(name string) (Rule, bool) {
	for _, r := range Rules {
		if r.Name == name {
			return r, true
		}
	}
	return Rule{}, false
}

func newDiff(rule Rule, before, after *Location) Diff {
	return Diff{
		Severity: rule.DefaultSeverity,
		Rule:     rule,
		Before:   before,
		After:    after,
	}
}
