package rustdoc

import (
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/crateapi/pkg/api"
	errs "github.com/matzehuels/crateapi/pkg/errors"
)

// localCrate is the raw crate id rustdoc uses for the documented package.
const localCrate uint32 = 0

// Builder turns a raw documentation tree into an [api.Api].
//
// A Builder holds configuration only; every call to [Builder.Build] starts
// from fresh state, so one Builder may be shared by concurrent builds.
type Builder struct {
	logger *log.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets the logger used for debug tracing of the build.
func WithLogger(l *log.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{logger: log.NewWithOptions(io.Discard, log.Options{})}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build converts doc into a normalized Api.
//
// The index is walked breadth-first from the root. Crates, paths and items
// are memoized per raw id, so no raw id is materialized twice. Re-exports
// are recorded during the walk and resolved once the queue drains, because
// their targets may not have been visited yet.
func (b *Builder) Build(doc *Crate) (*api.Api, error) {
	if doc == nil || doc.Root == "" {
		return nil, errs.New(errs.ErrCodeApiParse, "rustdoc json has no root id")
	}
	if _, ok := doc.Index[doc.Root]; !ok {
		return nil, errs.New(errs.ErrCodeApiParse, "root id %q not present in index", doc.Root)
	}

	s := newBuildState(doc, b.logger)
	if err := s.walk(); err != nil {
		return nil, err
	}
	imports := s.resolveImports()

	b.logger.Debug("built api",
		"paths", s.api.Paths.Len(),
		"items", s.api.Items.Len(),
		"crates", s.api.Crates.Len(),
		"imports", imports)
	return s.api, nil
}

// BuildBytes parses raw rustdoc JSON and builds it in one step.
func (b *Builder) BuildBytes(data []byte) (*api.Api, error) {
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return b.Build(doc)
}

// =============================================================================
// Build State
// =============================================================================

type queued struct {
	parent *api.PathID
	id     ID
}

type deferredImport struct {
	owner  api.PathID
	name   string
	target ID
}

type buildState struct {
	doc    *Crate
	logger *log.Logger
	api    *api.Api

	queue    []queued
	visited  map[ID]bool
	crateIDs map[uint32]*api.CrateID
	pathIDs  map[ID]api.PathID  // paths created for a raw id
	ambient  map[ID]*api.PathID // effective path: own path or inherited parent
	itemIDs  map[ID]api.ItemID
	deferred []deferredImport
}

func newBuildState(doc *Crate, logger *log.Logger) *buildState {
	return &buildState{
		doc:      doc,
		logger:   logger,
		api:      api.New(),
		visited:  make(map[ID]bool),
		crateIDs: make(map[uint32]*api.CrateID),
		pathIDs:  make(map[ID]api.PathID),
		ambient:  make(map[ID]*api.PathID),
		itemIDs:  make(map[ID]api.ItemID),
	}
}

func (s *buildState) walk() error {
	s.queue = append(s.queue, queued{id: s.doc.Root})
	for len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		if err := s.visit(next.parent, next.id); err != nil {
			return err
		}
	}
	return nil
}

func (s *buildState) visit(parent *api.PathID, id ID) error {
	if s.visited[id] {
		return nil
	}
	s.visited[id] = true

	raw, inIndex := s.doc.Index[id]

	rawCrate := localCrate
	if inIndex {
		rawCrate = raw.CrateID
	} else if summary, ok := s.doc.Paths[id]; ok {
		rawCrate = summary.CrateID
	}
	crateID := s.resolveCrate(rawCrate)

	pathID, err := s.resolvePath(parent, id, crateID, raw)
	if err != nil {
		return err
	}

	if !inIndex {
		// Items from crates documented with --no-deps appear only in the
		// path table; they get a path but nothing to descend into.
		return nil
	}

	switch inner := raw.Inner.(type) {
	case Module:
		s.enqueue(pathID, inner.Items)
	case Import:
		// The target is enqueued under the import's owner. When the import
		// is listed before the target's declaring module, the target is
		// reached here first and its path is attached to the owner.
		if inner.ID == nil {
			break
		}
		s.enqueue(pathID, []ID{*inner.ID})
		if pathID != nil {
			s.deferred = append(s.deferred, deferredImport{
				owner:  *pathID,
				name:   inner.Name,
				target: *inner.ID,
			})
		}
	case Trait:
		s.enqueue(pathID, inner.Items)
	case Impl:
		s.enqueue(pathID, inner.Items)
	case Enum:
		s.enqueue(pathID, inner.Variants)
	case Terminal:
		s.resolveItem(id, crateID, raw)
	default:
		return errs.New(errs.ErrCodeApiParse, "item %s: unsupported variant %T", id, raw.Inner)
	}
	return nil
}

func (s *buildState) enqueue(parent *api.PathID, ids []ID) {
	for _, id := range ids {
		s.queue = append(s.queue, queued{parent: parent, id: id})
	}
}

// resolveCrate maps a raw crate id to a Crate, creating it on first use.
// The local package (raw id 0) and crates missing from the external crate
// table have no Crate.
func (s *buildState) resolveCrate(raw uint32) *api.CrateID {
	if raw == localCrate {
		return nil
	}
	if id, ok := s.crateIDs[raw]; ok {
		return id
	}
	var id *api.CrateID
	if ext, ok := s.doc.ExternalCrates[raw]; ok {
		id = s.api.Crates.Push(api.Crate{Name: ext.Name}).Ptr()
	} else {
		s.logger.Debug("crate id missing from external_crates", "crate_id", raw)
	}
	s.crateIDs[raw] = id
	return id
}

// resolvePath creates the Path for a raw id listed in the path table, or
// inherits the parent's path when the id has no entry.
func (s *buildState) resolvePath(parent *api.PathID, id ID, crateID *api.CrateID, raw *Item) (*api.PathID, error) {
	if pid, ok := s.ambient[id]; ok {
		return pid, nil
	}

	summary, ok := s.doc.Paths[id]
	if !ok {
		s.ambient[id] = parent
		return parent, nil
	}

	kind, err := api.ParsePathKind(normalizeKind(summary.Kind))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeApiParse, err, "path entry %s", id)
	}

	p := api.Path{
		CrateID: crateID,
		Path:    strings.Join(summary.Path, "::"),
		Kind:    kind,
	}
	if raw != nil && raw.Span != nil {
		p.Span = convertSpan(raw.Span)
	}

	pid := s.api.Paths.Push(p)
	if parent != nil {
		owner := s.api.Paths.Get(*parent)
		owner.Children = append(owner.Children, pid)
	}
	if s.api.RootID == nil {
		s.api.RootID = pid.Ptr()
	}

	s.pathIDs[id] = pid
	s.ambient[id] = pid.Ptr()
	return pid.Ptr(), nil
}

func (s *buildState) resolveItem(id ID, crateID *api.CrateID, raw *Item) api.ItemID {
	if iid, ok := s.itemIDs[id]; ok {
		return iid
	}
	it := api.Item{CrateID: crateID}
	if raw.Name != nil {
		it.Name = *raw.Name
	}
	if raw.Span != nil {
		it.Span = convertSpan(raw.Span)
	}
	iid := s.api.Items.Push(it)
	s.itemIDs[id] = iid

	if pid, ok := s.pathIDs[id]; ok {
		s.api.Paths.Get(pid).ItemID = iid.Ptr()
	}
	return iid
}

// resolveImports synthesizes one Import path per recorded re-export, in
// recording order, after all structural children are in place. The recorded
// re-exports are consumed, so a second call adds nothing. It returns the
// number of re-exports processed.
func (s *buildState) resolveImports() int {
	pending := s.deferred
	s.deferred = nil
	for _, imp := range pending {
		target, ok := s.ambient[imp.target]
		if !ok || target == nil {
			s.logger.Debug("re-export target has no path", "target", imp.target, "name", imp.name)
			continue
		}
		owner := s.api.Paths.Get(imp.owner)
		resolved := s.api.Paths.Get(*target)

		p := api.Path{
			CrateID:  owner.CrateID,
			Path:     owner.Path + "::" + imp.name,
			Kind:     api.PathKindImport,
			ItemID:   resolved.ItemID,
			Children: slices.Clone(resolved.Children),
		}
		pid := s.api.Paths.Push(p)

		owner = s.api.Paths.Get(imp.owner)
		owner.Children = append(owner.Children, pid)
	}
	return len(pending)
}

func convertSpan(sp *Span) *api.Span {
	return &api.Span{Filename: sp.Filename, Begin: sp.Begin, End: sp.End}
}
