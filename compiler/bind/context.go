package bind

import (
	"log/slog"

	"github.com/syssam/relmap/dialect/sqlschema"
	"github.com/syssam/relmap/graph"
)

// BuildContext holds the state of a single build. It is created by Build
// (or NewBuildContext) and must not be reused once the build returned.
type BuildContext struct {
	// Graph is the resolved-entity table of the build.
	Graph     *graph.Graph
	Scheduler *Scheduler
	opts      *Options
	refs      *PropertyRefs
	overrides map[string]*sqlschema.ForeignKey
	// directives applied to each linked foreign key.
	directives map[*graph.ForeignKey]*sqlschema.ForeignKey
}

// NewBuildContext creates a build context over an empty graph.
func NewBuildContext(opts ...Option) (*BuildContext, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return &BuildContext{
		Graph:      graph.New(),
		Scheduler:  NewScheduler(o.Logger),
		opts:       o,
		refs:       newPropertyRefs(),
		overrides:  make(map[string]*sqlschema.ForeignKey),
		directives: make(map[*graph.ForeignKey]*sqlschema.ForeignKey),
	}, nil
}

// Options returns the options of the build.
func (c *BuildContext) Options() *Options { return c.opts }

// Logger returns the build logger.
func (c *BuildContext) Logger() *slog.Logger { return c.opts.Logger }

// Naming returns the naming strategy of the build.
func (c *BuildContext) Naming() Naming { return c.opts.Naming }

// PropertyRefs returns the property-reference index of the build.
func (c *BuildContext) PropertyRefs() *PropertyRefs { return c.refs }

// Entity returns the resolved entity with the given name, or an
// UnknownTargetEntity error.
func (c *BuildContext) Entity(name string) (*graph.Entity, error) {
	e, ok := c.Graph.Lookup(name)
	if !ok {
		return nil, errorf(UnknownTargetEntity, name, "", "", "entity %q is not declared", name)
	}
	return e, nil
}

// AddOverride attaches a foreign key directive to a qualified property path
// (e.g. "Order.customer" or "Order.id.customer").
func (c *BuildContext) AddOverride(path string, fk *sqlschema.ForeignKey) {
	c.overrides[path] = fk
}

// Override returns the directive attached to the given property path.
func (c *BuildContext) Override(path string) *sqlschema.ForeignKey {
	return c.overrides[path]
}

// PropertyRef records a property referenced by an association instead of
// the primary key.
type PropertyRef struct {
	Entity   string
	Property string
	// Unique is set when at least one to-one association references the
	// property.
	Unique bool
}

type refKey struct{ entity, property string }

// PropertyRefs indexes the non-primary-key references of a build, and the
// synthetic property created for each association.
type PropertyRefs struct {
	refs   []*PropertyRef
	index  map[refKey]*PropertyRef
	assocs map[refKey]string
}

func newPropertyRefs() *PropertyRefs {
	return &PropertyRefs{
		index:  make(map[refKey]*PropertyRef),
		assocs: make(map[refKey]string),
	}
}

// Add records a reference to entity.property. A unique reference upgrades
// an existing non-unique one.
func (x *PropertyRefs) Add(entity, property string, unique bool) {
	k := refKey{entity, property}
	if ref, ok := x.index[k]; ok {
		ref.Unique = ref.Unique || unique
		return
	}
	ref := &PropertyRef{Entity: entity, Property: property, Unique: unique}
	x.index[k] = ref
	x.refs = append(x.refs, ref)
}

// Lookup returns the reference recorded for entity.property.
func (x *PropertyRefs) Lookup(entity, property string) (PropertyRef, bool) {
	ref, ok := x.index[refKey{entity, property}]
	if !ok {
		return PropertyRef{}, false
	}
	return *ref, true
}

// All returns the recorded references in insertion order.
func (x *PropertyRefs) All() []PropertyRef {
	refs := make([]PropertyRef, len(x.refs))
	for i, ref := range x.refs {
		refs[i] = *ref
	}
	return refs
}

// AddAssociation records the referenced property name resolved for the
// association entity.property.
func (x *PropertyRefs) AddAssociation(entity, property, referenced string, inverse bool) {
	x.assocs[assocKey(entity, property, inverse)] = referenced
}

// Association returns the referenced property name resolved for the
// association entity.property.
func (x *PropertyRefs) Association(entity, property string, inverse bool) (string, bool) {
	name, ok := x.assocs[assocKey(entity, property, inverse)]
	return name, ok
}

func assocKey(entity, property string, inverse bool) refKey {
	if inverse {
		entity = "inverse__" + entity
	}
	return refKey{entity, property}
}
