package rustdoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	errs "github.com/matzehuels/crateapi/pkg/errors"
)

// ID is an opaque rustdoc item id. Older format versions write strings
// such as "0:42"; newer ones write integers, which are kept in decimal form
// so they match the string keys of [Crate.Index] and [Crate.Paths].
type ID string

// UnmarshalJSON accepts an id written as a JSON string or integer.
func (id *ID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n uint64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id %s: want string or integer", data)
	}
	*id = ID(strconv.FormatUint(n, 10))
	return nil
}

// Crate is the raw documentation tree emitted by rustdoc's JSON backend.
// Only the fields the graph builder consumes are decoded.
type Crate struct {
	Root           ID                       `json:"root"`
	CrateVersion   *string                  `json:"crate_version,omitempty"`
	Index          map[ID]*Item             `json:"index"`
	Paths          map[ID]ItemSummary       `json:"paths"`
	ExternalCrates map[uint32]ExternalCrate `json:"external_crates"`
	FormatVersion  int                      `json:"format_version"`
}

// Item is one entry of [Crate.Index].
type Item struct {
	ID      ID      `json:"id"`
	CrateID uint32  `json:"crate_id"`
	Name    *string `json:"name,omitempty"`
	Span    *Span   `json:"span,omitempty"`
	Kind    string  `json:"kind"`

	// Inner is decoded from the raw "inner" object according to Kind.
	Inner Variant `json:"-"`
}

// ItemSummary is one entry of [Crate.Paths].
type ItemSummary struct {
	CrateID uint32   `json:"crate_id"`
	Path    []string `json:"path"`
	Kind    string   `json:"kind"`
}

// ExternalCrate names a crate referenced by [Item.CrateID].
type ExternalCrate struct {
	Name        string  `json:"name"`
	HTMLRootURL *string `json:"html_root_url,omitempty"`
}

// Span is a source location; Begin and End are (line, column).
type Span struct {
	Filename string `json:"filename"`
	Begin    [2]int `json:"begin"`
	End      [2]int `json:"end"`
}

// =============================================================================
// Variants
// =============================================================================

// Variant is the closed set of item shapes the builder distinguishes.
// The concrete types are [Module], [Import], [Trait], [Impl], [Enum] and
// [Terminal].
type Variant interface {
	isVariant()
}

// Module lists its member items.
type Module struct {
	IsCrate bool `json:"is_crate"`
	Items   []ID `json:"items"`
}

// Import is a `use` declaration. ID is nil when the target is not an item
// (e.g. a primitive) or could not be resolved by rustdoc.
type Import struct {
	Source string `json:"source"`
	Name   string `json:"name"`
	ID     *ID    `json:"id"`
	Glob   bool   `json:"glob"`
	IsGlob bool   `json:"is_glob"`
}

// Trait lists its associated items.
type Trait struct {
	Items []ID `json:"items"`
}

// Impl lists the items of an impl block.
type Impl struct {
	Items []ID `json:"items"`
	Trait any  `json:"trait,omitempty"`
}

// Enum lists its variants.
type Enum struct {
	Variants []ID `json:"variants"`
}

// Terminal is any item that does not contain other items from the
// builder's point of view: structs, functions, constants, statics, etc.
type Terminal struct {
	Kind string
}

func (Module) isVariant()   {}
func (Import) isVariant()   {}
func (Trait) isVariant()    {}
func (Impl) isVariant()     {}
func (Enum) isVariant()     {}
func (Terminal) isVariant() {}

// UnmarshalJSON decodes the item and its kind-dependent inner object.
func (it *Item) UnmarshalJSON(data []byte) error {
	type plain Item
	var raw struct {
		plain
		Inner json.RawMessage `json:"inner"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*it = Item(raw.plain)

	// Newer format versions drop "kind" and wrap inner as {"<kind>": {...}},
	// or write just "<kind>" for kinds without fields.
	if it.Kind == "" {
		var tagged map[string]json.RawMessage
		var unit string
		if err := json.Unmarshal(raw.Inner, &tagged); err == nil && len(tagged) == 1 {
			for k, v := range tagged {
				it.Kind, raw.Inner = normalizeKind(k), v
			}
		} else if err := json.Unmarshal(raw.Inner, &unit); err == nil {
			it.Kind, raw.Inner = normalizeKind(unit), nil
		}
	}

	inner, err := decodeVariant(it.Kind, raw.Inner)
	if err != nil {
		return fmt.Errorf("item %s: %w", raw.ID, err)
	}
	it.Inner = inner
	return nil
}

// kindAliases maps kind names of newer format versions to the older names
// api.PathKind uses.
var kindAliases = map[string]string{
	"use":         "import",
	"type_alias":  "typedef",
	"extern_type": "foreign_type",
}

func normalizeKind(kind string) string {
	if alias, ok := kindAliases[kind]; ok {
		return alias
	}
	return kind
}

func decodeVariant(kind string, inner json.RawMessage) (Variant, error) {
	var v Variant
	switch normalizeKind(kind) {
	case "module":
		v = &Module{}
	case "import":
		v = &Import{}
	case "trait":
		v = &Trait{}
	case "impl":
		v = &Impl{}
	case "enum":
		v = &Enum{}
	case "":
		return nil, fmt.Errorf("missing kind")
	default:
		return Terminal{Kind: normalizeKind(kind)}, nil
	}
	if len(inner) == 0 || bytes.Equal(inner, []byte("null")) {
		return nil, fmt.Errorf("%s without inner", kind)
	}
	if err := json.Unmarshal(inner, v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return deref(v), nil
}

func deref(v Variant) Variant {
	switch v := v.(type) {
	case *Module:
		return *v
	case *Import:
		return *v
	case *Trait:
		return *v
	case *Impl:
		return *v
	case *Enum:
		return *v
	}
	return v
}

// =============================================================================
// Parsing
// =============================================================================

// Parse decodes a raw documentation tree. Malformed JSON and a missing root
// are reported as [errs.ErrCodeApiParse].
func Parse(data []byte) (*Crate, error) {
	var c Crate
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errs.Wrap(errs.ErrCodeApiParse, err, "parse rustdoc json")
	}
	if c.Root == "" {
		return nil, errs.New(errs.ErrCodeApiParse, "rustdoc json has no root id")
	}
	if _, ok := c.Index[c.Root]; !ok {
		return nil, errs.New(errs.ErrCodeApiParse, "root id %q not present in index", c.Root)
	}
	return &c, nil
}

// ParseFile reads and decodes a raw documentation tree from path.
func ParseFile(path string) (*Crate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeApiParse, err, "load %s", path)
	}
	return Parse(data)
}
