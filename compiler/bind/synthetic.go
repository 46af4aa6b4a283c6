package bind

import (
	"slices"
	"strings"

	"github.com/syssam/relmap/graph"
)

// SyntheticPropertyName returns the name of the synthetic property created
// for the association entity.property.
func SyntheticPropertyName(entity, property string, inverse bool) string {
	name := "_" + strings.ReplaceAll(entity, ".", "_") + "_" + strings.ReplaceAll(property, ".", "_")
	if inverse {
		name += "_inverse"
	}
	return name
}

// CreateSyntheticPropertyReference resolves the property of target that an
// association of owning references by the given columns, and records the
// reference on value. If exactly one plain property of target maps the
// columns, that property is reused. Otherwise a synthetic component
// property aggregating the matched properties is attached to the owner of
// the columns. It returns the referenced property name.
func CreateSyntheticPropertyReference(ctx *BuildContext, columns []string, target, owning *graph.Entity, value graph.Value, property string, inverse bool) (string, error) {
	if name, ok := ctx.PropertyRefs().Association(owning.Name, property, inverse); ok {
		if p, ok := target.Property(name); ok && slices.Equal(graph.ColumnNames(p.Columns()), columns) {
			if err := registerSyntheticProperty(ctx, target, owning, value, property, name, inverse); err != nil {
				return "", err
			}
			return name, nil
		}
	}
	owner, err := findReferencedColumnOwner(target, columns)
	if err != nil {
		return "", err
	}
	props, err := MatchProperties(owner, columns)
	if err != nil {
		return "", err
	}
	p, err := referencedProperty(ctx, target, owning, property, inverse, owner, props)
	if err != nil {
		return "", err
	}
	if err := registerSyntheticProperty(ctx, target, owning, value, property, p.Name, inverse); err != nil {
		return "", err
	}
	return p.Name, nil
}

func referencedProperty(ctx *BuildContext, target, owning *graph.Entity, property string, inverse bool, owner ColumnOwner, props []*graph.Property) (*graph.Property, error) {
	if len(props) == 0 {
		return nil, errorf(InternalInvariantViolation, target.Name, owning.Name+"."+property, "", "no property matched the referenced columns")
	}
	table := owner.Table()
	if len(props) == 1 && owner.Join == nil && owner.Entity == target && !props[0].IsToOne() {
		p := props[0]
		cols := p.Columns()
		table.AddUniqueKey(ctx.Naming().UniqueKeyName(table.Name, graph.ColumnNames(cols)), true, cols...)
		return p, nil
	}
	name := SyntheticPropertyName(owning.Name, property, inverse)
	if _, ok := target.Property(name); ok {
		return nil, errorf(InternalInvariantViolation, target.Name, owning.Name+"."+property, "", "property %s already maps other columns", name)
	}
	embedded := graph.NewComponent(table, owner.Entity)
	embedded.RoleName = target.Name + "." + name
	embedded.Embedded = true
	embedded.Synthetic = true
	for _, p := range props {
		embedded.AddProperty(cloneForReference(p))
	}
	synthetic := &graph.Property{
		Name:      name,
		Value:     embedded,
		Synthetic: true,
	}
	if owner.Join != nil {
		owner.Join.AddProperty(synthetic)
	} else {
		owner.Entity.AddProperty(synthetic)
	}
	cols := embedded.Columns()
	table.AddUniqueKey(ctx.Naming().UniqueKeyName(table.Name, graph.ColumnNames(cols)), true, cols...)
	ctx.Logger().Debug("created synthetic property",
		"entity", target.Name, "property", name, "table", table.Name, "columns", graph.ColumnNames(cols))
	return synthetic, nil
}

// cloneForReference copies a property into a synthetic component. Simple
// properties share their value, composite ones are cloned recursively.
func cloneForReference(p *graph.Property) *graph.Property {
	clone := p.Copy()
	clone.Insertable = false
	clone.Updatable = false
	clone.NaturalID = false
	if c, ok := p.Value.(*graph.Component); ok {
		sub := graph.NewComponent(c.Table(), c.Owner)
		sub.RoleName = c.RoleName
		sub.Embedded = true
		sub.Synthetic = true
		for _, child := range c.Properties {
			sub.AddProperty(cloneForReference(child))
		}
		clone.Value = sub
	}
	return clone
}

// registerSyntheticProperty records that value references the named
// property of target instead of its primary key.
func registerSyntheticProperty(ctx *BuildContext, target, owning *graph.Entity, value graph.Value, property, name string, inverse bool) error {
	switch v := value.(type) {
	case *graph.ToOne:
		v.ReferencedProperty = name
		v.ReferenceToPrimaryKey = false
		ctx.PropertyRefs().Add(target.Name, name, true)
	case *graph.Collection:
		v.ReferencedProperty = name
		ctx.PropertyRefs().Add(target.Name, name, false)
	case *graph.Basic, *graph.Component:
		return errorf(InternalInvariantViolation, owning.Name, owning.Name+"."+property, "", "%s value cannot reference a property", v.Kind())
	default:
		return errorf(InternalInvariantViolation, owning.Name, owning.Name+"."+property, "", "unexpected value %T", v)
	}
	ctx.PropertyRefs().AddAssociation(owning.Name, property, name, inverse)
	return nil
}
