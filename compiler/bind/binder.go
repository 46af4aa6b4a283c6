package bind

import (
	"fmt"

	"github.com/syssam/relmap/compiler/load"
	"github.com/syssam/relmap/graph"
)

// Build binds the declarations of s into a mapping graph.
//
// Entities are bound eagerly in declaration order, superclasses first:
// tables, columns, identifiers, plain and embedded properties and secondary
// tables. Every binding that needs the shape of another entity is deferred
// to the second-pass scheduler, which runs once all entities exist. Build
// stops at the first error; the partial graph is not returned.
func Build(s *load.Schema, opts ...Option) (*graph.Graph, error) {
	ctx, err := NewBuildContext(opts...)
	if err != nil {
		return nil, err
	}
	s.Defaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	for _, o := range s.Overrides {
		ctx.AddOverride(o.Path, o.ForeignKey)
	}
	decls, err := hierarchyOrder(s.Entities)
	if err != nil {
		return nil, err
	}
	b := &binder{ctx: ctx}
	for _, d := range decls {
		if err := b.bindEntity(d); err != nil {
			return nil, err
		}
	}
	if err := ctx.Scheduler.Run(ctx); err != nil {
		return nil, err
	}
	ctx.Logger().Debug("build finished", "entities", ctx.Graph.Len(), "tables", len(ctx.Graph.Tables()))
	return ctx.Graph, nil
}

// hierarchyOrder returns the declarations with every superclass before its
// subclasses, keeping declaration order otherwise.
func hierarchyOrder(decls []*load.Entity) ([]*load.Entity, error) {
	done := make(map[string]bool, len(decls))
	order := make([]*load.Entity, 0, len(decls))
	for len(order) < len(decls) {
		progress := false
		for _, d := range decls {
			if done[d.Name] || (d.Extends != "" && !done[d.Extends]) {
				continue
			}
			done[d.Name] = true
			order = append(order, d)
			progress = true
		}
		if !progress {
			for _, d := range decls {
				if !done[d.Name] {
					return nil, fmt.Errorf("bind: entity %q: inheritance cycle", d.Name)
				}
			}
		}
	}
	return order, nil
}

// binder runs the eager pass over the declarations.
type binder struct {
	ctx *BuildContext
}

func (b *binder) bindEntity(d *load.Entity) error {
	var (
		g     = b.ctx.Graph
		super *graph.Entity
		table *graph.Table
		inh   = graph.SingleTable
	)
	if d.Extends != "" {
		super, _ = g.Lookup(d.Extends)
		inh = super.Inheritance
	}
	switch d.Inheritance {
	case load.Joined:
		inh = graph.Joined
	case load.SingleTable:
		inh = graph.SingleTable
	}
	if super != nil && inh == graph.SingleTable {
		table = super.Table
	} else {
		name := d.Table
		if name == "" {
			name = b.ctx.Naming().TableName(d.Name)
		}
		table = g.EnsureTable(name)
	}
	e := graph.NewEntity(d.Name, table)
	e.Superclass = super
	e.Inheritance = inh
	for _, st := range d.SecondaryTables {
		e.AddJoin(&graph.Join{Table: g.EnsureTable(st.Name)})
	}
	if len(d.ID) > 0 {
		if err := b.bindIdentifier(e, d); err != nil {
			return err
		}
	}
	for _, p := range d.Properties {
		t, add := e.Table, e.AddProperty
		if p.Table != "" {
			j, _ := e.Join(p.Table)
			t, add = j.Table, j.AddProperty
		}
		prop, err := b.bindProperty(e, t, p.Name, p, false)
		if err != nil {
			return err
		}
		add(prop)
	}
	if err := g.Add(e); err != nil {
		return err
	}
	b.ctx.Logger().Debug("bound entity", "entity", e.Name, "table", table.Name, "properties", len(e.Properties))
	return b.ctx.Scheduler.Register(PhaseCreateKeys, &keysTask{entity: e, decl: d})
}

func (b *binder) bindIdentifier(e *graph.Entity, d *load.Entity) error {
	if len(d.ID) == 1 && d.ID[0].Kind == load.KindBasic {
		p, err := b.bindProperty(e, e.Table, d.ID[0].Name, d.ID[0], true)
		if err != nil {
			return err
		}
		p.Entity = e
		e.Identifier = p
		return nil
	}
	name := d.IDName
	if name == "" {
		name = "id"
	}
	c := graph.NewComponent(e.Table, e)
	c.RoleName = e.Name + "." + name
	for _, idp := range d.ID {
		p, err := b.bindProperty(e, e.Table, name+"."+idp.Name, idp, true)
		if err != nil {
			return err
		}
		p.Entity = e
		c.AddProperty(p)
	}
	e.Identifier = &graph.Property{Name: name, Entity: e, Value: c}
	return nil
}

// bindProperty binds a declared property mapped to table t. The path is the
// property path relative to e. Key properties are part of the identifier.
func (b *binder) bindProperty(e *graph.Entity, t *graph.Table, path string, p *load.Property, key bool) (*graph.Property, error) {
	prop := &graph.Property{
		Name:       p.Name,
		Insertable: p.IsInsertable(),
		Updatable:  p.IsUpdatable(),
		NaturalID:  p.NaturalID,
		Optional:   p.Optional,
	}
	switch {
	case p.Kind == load.KindBasic:
		v, err := b.basicValue(e, t, p, key)
		if err != nil {
			return nil, err
		}
		prop.Value = v
	case p.Kind == load.KindEmbedded:
		c := graph.NewComponent(t, e)
		c.RoleName = e.Name + "." + path
		c.Embedded = true
		for _, cp := range p.Properties {
			child, err := b.bindProperty(e, t, path+"."+cp.Name, cp, key)
			if err != nil {
				return nil, err
			}
			child.Entity = e
			c.AddProperty(child)
		}
		prop.Value = c
	case p.IsCollection():
		c := &graph.Collection{
			Owner:     e,
			Role:      e.Name + "." + path,
			OneToMany: p.Kind == load.KindOneToMany,
			MappedBy:  p.MappedBy,
			Inverse:   p.MappedBy != "",
		}
		prop.Value = c
		if err := b.ctx.Scheduler.Register(PhaseCollections, &collectionTask{owner: e, decl: p, value: c}); err != nil {
			return nil, err
		}
	case p.MappedBy != "":
		v := graph.NewToOne(t, p.Target)
		v.Inverse = true
		v.MappedBy = p.MappedBy
		prop.Value = v
		prop.Insertable, prop.Updatable = false, false
		if err := b.ctx.Scheduler.Register(PhaseGeneral, &mappedToOneTask{owner: e, decl: p, value: v}); err != nil {
			return nil, err
		}
	default:
		v := graph.NewToOne(t, p.Target)
		if named(p.JoinColumns) {
			for _, jc := range p.JoinColumns {
				v.AddColumn(t.AddColumn(jc.Name, jc.IsNullable() && !key))
			}
		}
		prop.Value = v
		task := &toOneTask{owner: e, decl: p, path: path, value: v, key: key}
		if err := b.ctx.Scheduler.Register(PhaseForeignKeys, task); err != nil {
			return nil, err
		}
	}
	return prop, nil
}

func (b *binder) basicValue(e *graph.Entity, t *graph.Table, p *load.Property, key bool) (*graph.Basic, error) {
	v := graph.NewBasic(t)
	v.TypeName = p.Type
	if r := b.ctx.Options().Types; r != nil && p.Type != "" {
		typ, err := r.ResolveType(p.Type)
		if err != nil {
			return nil, fmt.Errorf("bind: entity %q property %q: resolve type %q: %w", e.Name, p.Name, p.Type, err)
		}
		v.Type = typ
	}
	cols := p.Columns
	if len(cols) == 0 {
		cols = []*load.Column{{Name: b.ctx.Naming().ColumnName(p.Name), Nullable: p.Optional && !key}}
	}
	for _, cd := range cols {
		c := t.AddColumn(cd.Name, cd.Nullable && !key)
		c.SQLType = cd.SQLType
		if c.SQLType == "" {
			c.SQLType = p.Type
		}
		v.AddColumn(c)
	}
	return v, nil
}

func named(columns []*load.JoinColumn) bool {
	for _, jc := range columns {
		if jc.Name == "" {
			return false
		}
	}
	return len(columns) > 0
}
