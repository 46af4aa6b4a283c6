package bind

import (
	"errors"
	"slices"

	"github.com/syssam/relmap/compiler/load"
	"github.com/syssam/relmap/dialect/sqlschema"
	"github.com/syssam/relmap/graph"
)

// ForeignKeySource describes the declared side of a foreign key.
type ForeignKeySource struct {
	// Property is the association name on the owner entity. It qualifies
	// overrides and names synthetic properties.
	Property string
	// ColumnPrefix prefixes implicit column names. Defaults to Property.
	ColumnPrefix string
	// Columns are the declared join columns, possibly empty.
	Columns []*load.JoinColumn
	// Inverse marks the element side of a many-to-many join table.
	Inverse bool
	// NotNull makes implicit columns non-nullable.
	NotNull bool
	// ForeignKey is the directive declared on the join columns.
	ForeignKey *sqlschema.ForeignKey
	// JoinTableForeignKey is the directive declared on the join table.
	JoinTableForeignKey *sqlschema.ForeignKey
}

// errOwningSideUnbound is the cause of mappedBy failures that may succeed
// once the owning side is bound.
var errOwningSideUnbound = errors.New("owning side is not bound yet")

// BindForeignKey links the dependent value of an association of owner to
// target. The dependent value is a *graph.ToOne, or a *graph.Collection
// whose key is linked. If the join columns reference the primary key of
// target, implicitly or by naming all its columns, the key is linked to it
// in primary key order. Otherwise the referenced columns are resolved to a
// property of target, synthesized if needed. When unique is set, the
// referencing columns form a unique key.
func BindForeignKey(ctx *BuildContext, owner, target *graph.Entity, src ForeignKeySource, dependent graph.Value, unique bool) error {
	key, coll, err := keyOf(owner, src, dependent)
	if err != nil {
		return err
	}
	path := owner.Name + "." + src.Property
	decls := src.Columns
	names := load.ReferencedColumns(decls)
	if len(names) > 0 && len(names) != len(decls) {
		return errorf(ColumnCountMismatch, owner.Name, path, "", "either all or none of the join columns must name a referenced column")
	}
	var (
		referenced []*graph.Column
		refProp    string
		pk         = target.KeyColumns()
		cols       = key.Columns()
	)
	switch {
	case len(names) == 0:
		referenced = pk
	case sameColumnNames(names, pk):
		perm := make([]int, len(pk))
		for i, c := range pk {
			perm[i] = slices.Index(names, c.Name)
		}
		decls = permute(decls, perm)
		if len(cols) == len(perm) {
			cols = permute(cols, perm)
		}
		referenced = pk
	default:
		refProp, err = CreateSyntheticPropertyReference(ctx, names, target, owner, dependent, src.Property, src.Inverse)
		if err != nil {
			return err
		}
		p, ok := target.Property(refProp)
		if !ok {
			return errorf(InternalInvariantViolation, target.Name, path, "", "referenced property %q not found", refProp)
		}
		referenced = p.Columns()
	}
	if len(referenced) == 0 {
		return errorf(InternalInvariantViolation, target.Name, path, "", "entity has no key columns")
	}
	if len(decls) > 0 && len(decls) != len(referenced) {
		return errorf(ColumnCountMismatch, owner.Name, path, "", "%d join columns for %d referenced columns", len(decls), len(referenced))
	}
	table := key.Table()
	if table == nil {
		return errorf(InternalInvariantViolation, owner.Name, path, "", "association has no table")
	}
	if len(cols) == 0 {
		cols = implicitColumns(ctx, table, src, decls, referenced)
	}
	if len(cols) != len(referenced) {
		return errorf(ColumnCountMismatch, owner.Name, path, "", "%d columns for %d referenced columns", len(cols), len(referenced))
	}
	for i, c := range cols {
		if c.SQLType == "" {
			c.SQLType = referenced[i].SQLType
		}
	}
	key.SetColumns(table, cols)
	key.ReferencedEntity = target.Name
	key.ReferencedProperty = refProp
	key.ReferenceToPrimaryKey = refProp == ""
	if coll != nil {
		coll.ReferencedProperty = refProp
	}
	fk := table.AddForeignKey(&graph.ForeignKey{
		ReferencedEntity:  target.Name,
		ReferencedTable:   referenced[0].Table,
		Columns:           cols,
		ReferencedColumns: referenced,
	})
	ctx.applyConstraint(fk, path, src.ForeignKey, src.JoinTableForeignKey)
	key.ForeignKey = fk
	if unique {
		key.Unique = true
		table.AddUniqueKey(ctx.Naming().UniqueKeyName(table.Name, graph.ColumnNames(cols)), false, cols...)
	}
	ctx.Logger().Debug("linked foreign key",
		"property", path, "foreign_key", fk.String(), "name", fk.Name, "disabled", fk.ConstraintDisabled)
	return nil
}

func keyOf(owner *graph.Entity, src ForeignKeySource, dependent graph.Value) (*graph.ToOne, *graph.Collection, error) {
	switch v := dependent.(type) {
	case *graph.ToOne:
		return v, nil, nil
	case *graph.Collection:
		if v.Key == nil {
			return nil, nil, errorf(InternalInvariantViolation, owner.Name, owner.Name+"."+src.Property, "", "collection has no key")
		}
		return v.Key, v, nil
	case *graph.Basic, *graph.Component:
		return nil, nil, errorf(InternalInvariantViolation, owner.Name, owner.Name+"."+src.Property, "", "%s value cannot hold a foreign key", v.Kind())
	default:
		return nil, nil, errorf(InternalInvariantViolation, owner.Name, owner.Name+"."+src.Property, "", "unexpected value %T", v)
	}
}

func implicitColumns(ctx *BuildContext, table *graph.Table, src ForeignKeySource, decls []*load.JoinColumn, referenced []*graph.Column) []*graph.Column {
	prefix := src.ColumnPrefix
	if prefix == "" {
		prefix = src.Property
	}
	cols := make([]*graph.Column, len(referenced))
	for i, rc := range referenced {
		name, nullable := ctx.Naming().JoinColumnName(prefix, rc.Name), !src.NotNull
		if i < len(decls) {
			if decls[i].Name != "" {
				name = decls[i].Name
			}
			if decls[i].Nullable != nil {
				nullable = *decls[i].Nullable
			}
		}
		cols[i] = table.AddColumn(name, nullable)
	}
	return cols
}

// applyConstraint sets the constraint metadata of fk from the first
// non-empty directive: the join columns, the join table, then the property
// override. Without any, the default constraint mode applies. A foreign key
// shared by several associations keeps the metadata already applied: a
// later association without directive leaves it as is, and a later
// directive is merged over it.
func (c *BuildContext) applyConstraint(fk *graph.ForeignKey, path string, join, joinTable *sqlschema.ForeignKey) {
	var winner *sqlschema.ForeignKey
	for _, d := range []*sqlschema.ForeignKey{join, joinTable, c.Override(path)} {
		if !d.IsZero() {
			winner = d
			break
		}
	}
	if prev, ok := c.directives[fk]; ok {
		if winner == nil {
			return
		}
		winner = sqlschema.Merge(prev, winner)
	}
	c.directives[fk] = winner
	if winner.Disabled(c.opts.DefaultConstraintMode) {
		fk.Name = ""
		fk.ConstraintDisabled = true
		return
	}
	fk.ConstraintDisabled = false
	fk.Name = c.Naming().ForeignKeyName(fk.Table.Name, graph.ColumnNames(fk.Columns))
	if winner == nil {
		return
	}
	if winner.Name != "" {
		fk.Name = winner.Name
	}
	fk.Definition = winner.Definition
	fk.Options = winner.Options
	fk.OnDelete = string(winner.OnDelete)
	fk.OnUpdate = string(winner.OnUpdate)
}

// BindMappedBy binds the inverse side of an association declared on
// inverse with the owning property mappedBy of owning. The inverse value
// borrows the key and the foreign key of the owning side:
//
//   - a collection mapped by a to-one uses the to-one columns as its key,
//   - a collection mapped by a collection uses the same join table with key
//     and element swapped,
//   - a to-one references the owning property, and its columns are the key
//     of the secondary table holding that property, or the primary key of
//     owning.
func BindMappedBy(ctx *BuildContext, inverse, owning *graph.Entity, mappedBy string, dependent graph.Value) error {
	prop, ok := owning.RecursiveProperty(mappedBy)
	if !ok {
		return errorf(UnknownMappedBy, owning.Name, owning.Name+"."+mappedBy, "", "no such property on %s", owning.Name)
	}
	switch d := dependent.(type) {
	case *graph.Collection:
		d.Inverse = true
		d.MappedBy = mappedBy
		switch ov := prop.Value.(type) {
		case *graph.ToOne:
			if err := checkMappedTarget(inverse, owning, prop, ov.ReferencedEntity); err != nil {
				return err
			}
			if ov.ForeignKey == nil {
				return unbound(owning, prop)
			}
			d.CollectionTable = ov.Table()
			d.Key = borrowKey(ov, inverse.Name)
			d.ReferencedProperty = ov.ReferencedProperty
			d.OneToMany = true
		case *graph.Collection:
			if ov.Element == nil || ov.Key == nil {
				return unbound(owning, prop)
			}
			if err := checkMappedTarget(inverse, owning, prop, ov.Element.ReferencedEntity); err != nil {
				return err
			}
			if ov.Key.ForeignKey == nil || ov.Element.ForeignKey == nil {
				return unbound(owning, prop)
			}
			d.CollectionTable = ov.CollectionTable
			d.Key = borrowKey(ov.Element, inverse.Name)
			d.Element = borrowKey(ov.Key, owning.Name)
			d.ReferencedProperty = ov.Element.ReferencedProperty
		default:
			return errorf(UnknownMappedBy, owning.Name, prop.Path(), "", "%s property is not an association", ov.Kind())
		}
	case *graph.ToOne:
		ov, ok := prop.Value.(*graph.ToOne)
		if !ok {
			return errorf(UnknownMappedBy, owning.Name, prop.Path(), "", "%s property is not a to-one association", prop.Value.Kind())
		}
		if err := checkMappedTarget(inverse, owning, prop, ov.ReferencedEntity); err != nil {
			return err
		}
		if ov.ForeignKey == nil {
			return unbound(owning, prop)
		}
		table, key := owning.Table, owning.KeyColumns()
		if j, ok := owning.JoinOf(prop); ok && j.Key != nil {
			table, key = j.Table, j.Key.Columns()
		}
		d.SetColumns(table, key)
		d.Inverse = true
		d.MappedBy = mappedBy
		d.ReferencedEntity = owning.Name
		d.ReferencedProperty = mappedBy
		d.ReferenceToPrimaryKey = false
		d.ForeignKey = ov.ForeignKey
		ctx.PropertyRefs().Add(owning.Name, mappedBy, true)
	default:
		return errorf(InternalInvariantViolation, inverse.Name, "", "", "%s value cannot be mapped by another property", dependent.Kind())
	}
	ctx.Logger().Debug("bound inverse association", "entity", inverse.Name, "mapped_by", owning.Name+"."+mappedBy)
	return nil
}

// borrowKey returns a to-one sharing the columns and the foreign key of v.
func borrowKey(v *graph.ToOne, referenced string) *graph.ToOne {
	k := graph.NewToOne(v.Table(), referenced)
	k.SetColumns(v.Table(), v.Columns())
	k.ForeignKey = v.ForeignKey
	k.ReferencedProperty = v.ReferencedProperty
	k.ReferenceToPrimaryKey = v.ReferenceToPrimaryKey
	k.Inverse = true
	return k
}

func checkMappedTarget(inverse, owning *graph.Entity, prop *graph.Property, referenced string) error {
	for e := inverse; e != nil; e = e.Superclass {
		if e.Name == referenced {
			return nil
		}
	}
	return errorf(UnknownMappedBy, owning.Name, owning.Name+"."+prop.Name, "", "property references %s, not %s", referenced, inverse.Name)
}

func unbound(owning *graph.Entity, prop *graph.Property) error {
	err := errorf(InternalInvariantViolation, owning.Name, prop.Path(), "", "mapped-by property is not bound")
	err.Cause = errOwningSideUnbound
	return err
}

func sameColumnNames(names []string, columns []*graph.Column) bool {
	if len(names) != len(columns) {
		return false
	}
	for _, c := range columns {
		if !slices.Contains(names, c.Name) {
			return false
		}
	}
	return true
}

func permute[T any](s []T, perm []int) []T {
	if len(s) != len(perm) {
		return s
	}
	out := make([]T, len(perm))
	for i, j := range perm {
		out[i] = s[j]
	}
	return out
}
