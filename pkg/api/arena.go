package api

import (
	"errors"
	"fmt"
)

// Paths is the append-only arena of paths. The PathID of an entry is its
// index.
type Paths []*Path

// Push appends p, assigns its id, and returns it.
func (ps *Paths) Push(p Path) PathID {
	p.ID = PathID(len(*ps))
	*ps = append(*ps, &p)
	return p.ID
}

// Get returns the path for id, or nil if id is out of range.
func (ps Paths) Get(id PathID) *Path {
	if id < 0 || int(id) >= len(ps) {
		return nil
	}
	return ps[id]
}

// Len returns the number of paths.
func (ps Paths) Len() int { return len(ps) }

func (ps Paths) validate() error {
	for i, p := range ps {
		if p == nil || p.ID != PathID(i) {
			return invalidf("paths[%d]: id mismatch", i)
		}
	}
	return nil
}

// Items is the append-only arena of items.
type Items []*Item

// Push appends it, assigns its id, and returns it.
func (is *Items) Push(it Item) ItemID {
	it.ID = ItemID(len(*is))
	*is = append(*is, &it)
	return it.ID
}

// Get returns the item for id, or nil if id is out of range.
func (is Items) Get(id ItemID) *Item {
	if id < 0 || int(id) >= len(is) {
		return nil
	}
	return is[id]
}

// Len returns the number of items.
func (is Items) Len() int { return len(is) }

func (is Items) validate() error {
	for i, it := range is {
		if it == nil || it.ID != ItemID(i) {
			return invalidf("items[%d]: id mismatch", i)
		}
	}
	return nil
}

// Crates is the append-only arena of crates.
type Crates []*Crate

// Push appends c, assigns its id, and returns it.
func (cs *Crates) Push(c Crate) CrateID {
	c.ID = CrateID(len(*cs))
	*cs = append(*cs, &c)
	return c.ID
}

// Get returns the crate for id, or nil if id is out of range.
func (cs Crates) Get(id CrateID) *Crate {
	if id < 0 || int(id) >= len(cs) {
		return nil
	}
	return cs[id]
}

// Len returns the number of crates.
func (cs Crates) Len() int { return len(cs) }

func (cs Crates) validate() error {
	for i, c := range cs {
		if c == nil || c.ID != CrateID(i) {
			return invalidf("crates[%d]: id mismatch", i)
		}
	}
	return nil
}

// ErrInvalidApi is wrapped by every error returned from [Api.Validate].
var ErrInvalidApi = errors.New("invalid api")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidApi, fmt.Sprintf(format, args...))
}
