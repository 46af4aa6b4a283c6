package bind

import (
	"errors"

	"github.com/syssam/relmap/compiler/load"
	"github.com/syssam/relmap/graph"
)

// keysTask creates the primary key of an entity table, the key of a joined
// subclass table and the keys of the entity secondary tables.
type keysTask struct {
	entity *graph.Entity
	decl   *load.Entity
}

func (t *keysTask) Dependency() Dependency { return Dependency{Entity: t.entity.Name} }

func (t *keysTask) Owner() string { return t.entity.Name }

func (t *keysTask) Run(ctx *BuildContext) error {
	e := t.entity
	if e.Superclass == nil {
		e.Table.SetPrimaryKey(ctx.Naming().PrimaryKeyName(e.Table.Name), e.Identifier.Value)
	}
	if e.Superclass == nil && len(t.decl.SecondaryTables) == 0 {
		return nil
	}
	if e.Superclass != nil && e.Table == e.Superclass.Table && len(t.decl.SecondaryTables) == 0 {
		return nil
	}
	// Dependent keys copy the primary key columns. If some of them are
	// linked by key foreign keys, wait for those first.
	if hasUnboundKey(e.IdentifierProperty()) {
		return ctx.Scheduler.Register(PhaseForeignKeys, &dependentKeysTask{t})
	}
	return t.dependentKeys(ctx)
}

func (t *keysTask) dependentKeys(ctx *BuildContext) error {
	e := t.entity
	if s := e.Superclass; s != nil && e.Table != s.Table && e.Table.PrimaryKey == nil {
		parent := s.KeyColumns()
		cols := make([]*graph.Column, len(parent))
		for i, c := range parent {
			cols[i] = e.Table.AddColumn(c.Name, false)
			cols[i].SQLType = c.SQLType
		}
		e.Table.SetPrimaryKeyColumns(ctx.Naming().PrimaryKeyName(e.Table.Name), cols...)
		fk := e.Table.AddForeignKey(&graph.ForeignKey{
			ReferencedEntity:  s.Name,
			ReferencedTable:   s.Table,
			Columns:           cols,
			ReferencedColumns: parent,
		})
		ctx.applyConstraint(fk, e.Name, nil, nil)
	}
	for i, st := range t.decl.SecondaryTables {
		if err := secondaryKey(ctx, e, e.Joins[i], st); err != nil {
			return err
		}
	}
	return nil
}

// dependentKeysTask creates the keys of a joined subclass table and of the
// secondary tables once the hierarchy identifier is fully linked.
type dependentKeysTask struct {
	*keysTask
}

func (t *dependentKeysTask) Dependency() Dependency {
	return Dependency{Entity: t.entity.Name, PrimaryKey: true}
}

func (t *dependentKeysTask) Run(ctx *BuildContext) error { return t.dependentKeys(ctx) }

// KeySources returns the entity and its superclasses. The copied key is
// shaped by the key tasks of the whole chain.
func (t *dependentKeysTask) KeySources() []string {
	var names []string
	for e := t.entity; e != nil; e = e.Superclass {
		names = append(names, e.Name)
	}
	return names
}

func secondaryKey(ctx *BuildContext, e *graph.Entity, j *graph.Join, st *load.SecondaryTable) error {
	pk := e.KeyColumns()
	if len(st.KeyColumns) > 0 && len(st.KeyColumns) != len(pk) {
		return errorf(ColumnCountMismatch, e.Name, "", "", "secondary table %s declares %d key columns for %d primary key columns", st.Name, len(st.KeyColumns), len(pk))
	}
	cols := make([]*graph.Column, len(pk))
	for i, c := range pk {
		name := c.Name
		if i < len(st.KeyColumns) {
			name = st.KeyColumns[i]
		}
		cols[i] = j.Table.AddColumn(name, false)
		cols[i].SQLType = c.SQLType
	}
	key := graph.NewToOne(j.Table, e.Name)
	key.SetColumns(j.Table, cols)
	key.ReferenceToPrimaryKey = true
	j.Table.SetPrimaryKeyColumns(ctx.Naming().PrimaryKeyName(j.Table.Name), cols...)
	key.ForeignKey = j.Table.AddForeignKey(&graph.ForeignKey{
		ReferencedEntity:  e.Name,
		ReferencedTable:   e.Table,
		Columns:           cols,
		ReferencedColumns: pk,
	})
	ctx.applyConstraint(key.ForeignKey, e.Name+"."+st.Name, st.ForeignKey, nil)
	j.Key = key
	return nil
}

func hasUnboundKey(id *graph.Property) bool {
	if id == nil {
		return false
	}
	c, ok := id.Value.(*graph.Component)
	if !ok {
		return false
	}
	for _, p := range c.Properties {
		if v, ok := p.Value.(*graph.ToOne); ok && v.ForeignKey == nil {
			return true
		}
	}
	return false
}

// toOneTask links the foreign key of an owning to-one association.
type toOneTask struct {
	owner *graph.Entity
	decl  *load.Property
	// path of the property relative to the owner (e.g. "id.customer").
	path  string
	value *graph.ToOne
	key   bool
}

func (t *toOneTask) Dependency() Dependency {
	return Dependency{Entity: t.decl.Target, PrimaryKey: t.key}
}

func (t *toOneTask) Owner() string { return t.owner.Name }

func (t *toOneTask) Run(ctx *BuildContext) error {
	target, err := ctx.Entity(t.decl.Target)
	if err != nil {
		return err
	}
	src := ForeignKeySource{
		Property:     t.path,
		ColumnPrefix: t.decl.Name,
		Columns:      t.decl.JoinColumns,
		NotNull:      t.key,
		ForeignKey:   t.decl.ForeignKey,
	}
	return BindForeignKey(ctx, t.owner, target, src, t.value, t.decl.Kind == load.KindOneToOne)
}

// mappedToOneTask binds the inverse side of a one-to-one association.
type mappedToOneTask struct {
	owner *graph.Entity
	decl  *load.Property
	value *graph.ToOne
}

func (t *mappedToOneTask) Dependency() Dependency { return Dependency{Entity: t.decl.Target} }

func (t *mappedToOneTask) Run(ctx *BuildContext) error {
	target, err := ctx.Entity(t.decl.Target)
	if err != nil {
		return err
	}
	return BindMappedBy(ctx, t.owner, target, t.decl.MappedBy, t.value)
}

// collectionTask binds the key and the element of a collection.
type collectionTask struct {
	owner    *graph.Entity
	decl     *load.Property
	value    *graph.Collection
	deferred bool
}

func (t *collectionTask) Dependency() Dependency { return Dependency{Entity: t.decl.Target} }

func (t *collectionTask) Run(ctx *BuildContext) error {
	target, err := ctx.Entity(t.decl.Target)
	if err != nil {
		return err
	}
	switch {
	case t.decl.MappedBy != "":
		err := BindMappedBy(ctx, t.owner, target, t.decl.MappedBy, t.value)
		// The owning collection may be queued after this one.
		if errors.Is(err, errOwningSideUnbound) && !t.deferred {
			t.deferred = true
			return ctx.Scheduler.Register(PhaseCollections, t)
		}
		return err
	case t.decl.Kind == load.KindOneToMany && t.decl.JoinTable == nil:
		return t.bindOneToMany(ctx, target)
	default:
		return t.bindJoinTable(ctx, target)
	}
}

// bindOneToMany keys the collection by columns of the element table.
func (t *collectionTask) bindOneToMany(ctx *BuildContext, target *graph.Entity) error {
	c := t.value
	c.CollectionTable = target.Table
	c.Key = graph.NewToOne(target.Table, t.owner.Name)
	c.Element = graph.NewToOne(target.Table, target.Name)
	c.Element.SetColumns(target.Table, target.KeyColumns())
	c.Element.ReferenceToPrimaryKey = true
	src := ForeignKeySource{
		Property:   t.decl.Name,
		Columns:    t.decl.JoinColumns,
		ForeignKey: t.decl.ForeignKey,
	}
	return BindForeignKey(ctx, t.owner, t.owner, src, c, false)
}

// bindJoinTable keys the collection and its element by columns of a join table.
func (t *collectionTask) bindJoinTable(ctx *BuildContext, target *graph.Entity) error {
	var (
		c    = t.value
		jt   = t.decl.JoinTable
		name = ctx.Naming().JoinTableName(t.owner.Table.Name, t.decl.Name)
		key  = ForeignKeySource{Property: t.decl.Name, ColumnPrefix: t.owner.Name, Columns: t.decl.JoinColumns, NotNull: true, ForeignKey: t.decl.ForeignKey}
		elem = ForeignKeySource{Property: t.decl.Name, Columns: t.decl.InverseJoinColumns, Inverse: true, NotNull: true}
	)
	if jt != nil {
		if jt.Name != "" {
			name = jt.Name
		}
		key.JoinTableForeignKey = jt.ForeignKey
		elem.JoinTableForeignKey = jt.InverseForeignKey
	}
	table := ctx.Graph.EnsureTable(name)
	c.CollectionTable = table
	c.Key = graph.NewToOne(table, t.owner.Name)
	c.Element = graph.NewToOne(table, target.Name)
	if err := BindForeignKey(ctx, t.owner, t.owner, key, c, false); err != nil {
		return err
	}
	if err := BindForeignKey(ctx, t.owner, target, elem, c.Element, c.OneToMany); err != nil {
		return err
	}
	if table.PrimaryKey == nil {
		cols := append(append([]*graph.Column(nil), c.Key.Columns()...), c.Element.Columns()...)
		table.SetPrimaryKeyColumns(ctx.Naming().PrimaryKeyName(table.Name), cols...)
	}
	return nil
}
