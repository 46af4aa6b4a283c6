package bind

import (
	"github.com/syssam/relmap/graph"
)

// ColumnOwner is the entity or secondary table holding a set of referenced
// columns. Exactly one of Entity and Join is the owner; when Join is set,
// Entity is the entity of the join.
type ColumnOwner struct {
	Entity *graph.Entity
	Join   *graph.Join
}

// Table returns the owner table.
func (o ColumnOwner) Table() *graph.Table {
	if o.Join != nil {
		return o.Join.Table
	}
	return o.Entity.Table
}

// String implements the fmt.Stringer interface.
func (o ColumnOwner) String() string {
	if o.Join != nil {
		return o.Entity.Name + "(" + o.Join.Table.Name + ")"
	}
	return o.Entity.Name
}

func (o ColumnOwner) properties() []*graph.Property {
	if o.Join != nil {
		return o.Join.Properties
	}
	return o.Entity.PropertyClosure()
}

func (o ColumnOwner) identifier() *graph.Property {
	if o.Join != nil {
		return nil
	}
	return o.Entity.IdentifierProperty()
}

// FindColumnOwner returns the owner of the named column: the entity table,
// then the entity secondary tables, then the superclass chain.
func FindColumnOwner(e *graph.Entity, column string) (ColumnOwner, bool) {
	for c := e; c != nil; c = c.Superclass {
		if _, ok := c.Table.Column(column); ok {
			return ColumnOwner{Entity: c}, true
		}
		for _, j := range c.Joins {
			if _, ok := j.Table.Column(column); ok {
				return ColumnOwner{Entity: c, Join: j}, true
			}
		}
	}
	return ColumnOwner{}, false
}

// findReferencedColumnOwner returns the single owner of all the named columns.
func findReferencedColumnOwner(target *graph.Entity, columns []string) (ColumnOwner, error) {
	if len(columns) == 0 {
		return ColumnOwner{}, errorf(InternalInvariantViolation, target.Name, "", "", "no referenced columns")
	}
	owner, ok := FindColumnOwner(target, columns[0])
	if !ok {
		return ColumnOwner{}, errorf(UnmappedReferencedColumn, target.Name, "", columns[0], "column not found in any table of the entity")
	}
	for _, name := range columns[1:] {
		o, ok := FindColumnOwner(target, name)
		if !ok {
			return ColumnOwner{}, errorf(UnmappedReferencedColumn, target.Name, "", name, "column not found in any table of the entity")
		}
		if o != owner {
			return ColumnOwner{}, errorf(AmbiguousColumnOwner, target.Name, "", name, "column belongs to %s while %s belongs to %s", o, columns[0], owner)
		}
	}
	return owner, nil
}

// scanOrder returns the candidate properties of the owner: non-association
// properties first, then the identifier, then to-one properties and the
// synthetic properties last.
func scanOrder(o ColumnOwner) []*graph.Property {
	var plain, toOne, synthetic []*graph.Property
	for _, p := range o.properties() {
		switch p.Value.(type) {
		case *graph.Collection:
		case *graph.ToOne:
			if p.Synthetic {
				synthetic = append(synthetic, p)
			} else {
				toOne = append(toOne, p)
			}
		case *graph.Basic, *graph.Component:
			if p.Synthetic {
				synthetic = append(synthetic, p)
			} else {
				plain = append(plain, p)
			}
		}
	}
	order := plain
	if id := o.identifier(); id != nil {
		order = append(order, id)
	}
	order = append(order, toOne...)
	return append(order, synthetic...)
}

// MatchProperties returns the ordered, duplicate-free list of properties of
// the owner covering the named columns. A property spanning several columns
// must be covered by consecutive columns in its own column order. When a
// column is mapped by several properties, the first one in scan order wins.
func MatchProperties(o ColumnOwner, columns []string) ([]*graph.Property, error) {
	table := o.Table()
	requested := make([]*graph.Column, len(columns))
	wanted := make(map[*graph.Column]bool, len(columns))
	for i, name := range columns {
		c, ok := table.Column(name)
		if !ok {
			return nil, errorf(UnmappedReferencedColumn, o.Entity.Name, "", name, "column not found in table %s", table.Name)
		}
		requested[i] = c
		wanted[c] = true
	}
	candidates := make(map[*graph.Column][]*graph.Property, len(columns))
	for _, p := range scanOrder(o) {
		for _, c := range p.Columns() {
			if wanted[c] && !containsProperty(candidates[c], p) {
				candidates[c] = append(candidates[c], p)
			}
		}
	}
	var (
		orderedProperties []*graph.Property
		used              = make(map[*graph.Property]bool)
		current           *graph.Property
		next              int
	)
	for _, c := range requested {
		props := candidates[c]
		if len(props) == 0 {
			return nil, errorf(UnmappedReferencedColumn, o.Entity.Name, "", c.Name, "no property of %s maps the column", o)
		}
		if current != nil {
			if !containsProperty(props, current) {
				return nil, errorf(OutOfOrderColumn, o.Entity.Name, current.Path(), c.Name,
					"expected column %s of property %s", current.Columns()[next].Name, current.Name)
			}
			if current.Columns()[next] != c {
				return nil, errorf(OutOfOrderColumn, o.Entity.Name, current.Path(), c.Name,
					"expected column %s at position %d", current.Columns()[next].Name, next)
			}
			next++
			if next == current.ColumnSpan() {
				current = nil
			}
			continue
		}
		p := props[0]
		if used[p] {
			return nil, errorf(ColumnAlreadyConsumed, o.Entity.Name, p.Path(), c.Name, "property %s is already referenced", p.Name)
		}
		used[p] = true
		orderedProperties = append(orderedProperties, p)
		if span := p.ColumnSpan(); span > 1 {
			if p.Columns()[0] != c {
				return nil, errorf(OutOfOrderColumn, o.Entity.Name, p.Path(), c.Name,
					"expected column %s first", p.Columns()[0].Name)
			}
			current, next = p, 1
		}
	}
	if current != nil {
		return nil, errorf(OutOfOrderColumn, o.Entity.Name, current.Path(), current.Columns()[next].Name,
			"column %s of property %s is not referenced", current.Columns()[next].Name, current.Name)
	}
	return orderedProperties, nil
}

func containsProperty(props []*graph.Property, p *graph.Property) bool {
	for _, q := range props {
		if q == p {
			return true
		}
	}
	return false
}
