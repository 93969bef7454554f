package diff

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/matzehuels/crateapi/pkg/api"
)

// =============================================================================
// Severity
// =============================================================================

// Severity says how loudly a difference is surfaced. The zero value is the
// quietest, and the integer order is the severity order.
type Severity int

const (
	SeverityAllow Severity = iota
	SeverityReport
	SeverityWarn
)

var severityNames = [...]string{
	SeverityAllow:  "allow",
	SeverityReport: "report",
	SeverityWarn:   "warn",
}

func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return fmt.Sprintf("severity(%d)", int(s))
	}
	return severityNames[s]
}

// ParseSeverity parses a severity name, case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	for i, name := range severityNames {
		if strings.EqualFold(s, name) {
			return Severity(i), nil
		}
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}

func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Severity) UnmarshalText(data []byte) error {
	parsed, err := ParseSeverity(string(data))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// =============================================================================
// Category
// =============================================================================

// Category classifies what happened to the thing a Diff is about.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryAdded
	CategoryRemoved
	CategoryChanged
)

var categoryNames = [...]string{
	CategoryUnknown: "unknown",
	CategoryAdded:   "added",
	CategoryRemoved: "removed",
	CategoryChanged: "changed",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Category) UnmarshalText(data []byte) error {
	for i, name := range categoryNames {
		if string(data) == name {
			*c = Category(i)
			return nil
		}
	}
	return fmt.Errorf("unknown category %q", data)
}

// =============================================================================
// Rule, Location, Diff
// =============================================================================

// Rule identifies a kind of difference.
type Rule struct {
	Name            string   `json:"name"`
	Explanation     string   `json:"explanation"`
	Category        Category `json:"category"`
	DefaultSeverity Severity `json:"default_severity"`
}

// Location points into one side's Api. Ids are only meaningful against the
// Api of that side.
type Location struct {
	CrateID *api.CrateID `json:"crate_id,omitempty"`
	PathID  *api.PathID  `json:"path_id,omitempty"`
	ItemID  *api.ItemID  `json:"item_id,omitempty"`
}

// IsZero reports whether no field is set.
func (l Location) IsZero() bool {
	return l.CrateID == nil && l.PathID == nil && l.ItemID == nil
}

// Name returns a display name for the location: the path, else the item
// name, else the crate name. It is empty when nothing resolves.
func (l Location) Name(a *api.Api) string {
	if a == nil {
		return ""
	}
	if l.PathID != nil {
		if p := a.Paths.Get(*l.PathID); p != nil {
			return p.Path
		}
	}
	if l.ItemID != nil {
		if it := a.Items.Get(*l.ItemID); it != nil && it.Name != "" {
			return it.Name
		}
	}
	if l.CrateID != nil {
		if c := a.Crates.Get(*l.CrateID); c != nil {
			return c.Name
		}
	}
	return ""
}

// Diff is one detected difference between a before and an after Api.
type Diff struct {
	Severity Severity  `json:"severity"`
	Rule     Rule      `json:"rule"`
	Before   *Location `json:"before,omitempty"`
	After    *Location `json:"after,omitempty"`
}

// Category is shorthand for d.Rule.Category.
func (d Diff) Category() Category { return d.Rule.Category }

// MarshalJSON adds the rule's category at the top level for consumers
// that filter on it.
func (d Diff) MarshalJSON() ([]byte, error) {
	type plain Diff
	return json.Marshal(struct {
		plain
		Category Category `json:"category"`
	}{plain(d), d.Rule.Category})
}
