package graph

import "strings"

// Inheritance strategy of an entity hierarchy.
type Inheritance uint8

// List of inheritance strategies.
const (
	// SingleTable subclasses share the root table.
	SingleTable Inheritance = iota
	// Joined subclasses own a table keyed by the parent key.
	Joined
)

// String returns the strategy name.
func (i Inheritance) String() string {
	if i == Joined {
		return "joined"
	}
	return "single_table"
}

type (
	// Entity is a mapped type with its own identity.
	Entity struct {
		// Name of the entity.
		Name string
		// Table is the primary table of the entity.
		Table *Table
		// Identifier property. Nil for subclasses, which inherit it.
		Identifier *Property
		// Properties mapped to the primary table, in declaration order.
		// Synthetic properties are appended by reference resolution.
		Properties []*Property
		// Superclass of the entity, if any.
		Superclass *Entity
		// Inheritance strategy used to map this entity under its superclass.
		Inheritance Inheritance
		// Joins are the secondary tables of the entity.
		Joins []*Join
	}

	// Join is a secondary table of an entity. Its key references the
	// primary key of the entity.
	Join struct {
		Table  *Table
		Entity *Entity
		// Key columns of the join table.
		Key *ToOne
		// Properties mapped to the join table.
		Properties []*Property
	}

	// Property is a named attribute of an entity or a component.
	Property struct {
		Name string
		// Entity owning the property.
		Entity *Entity
		// Join owning the property, if it is mapped to a secondary table.
		Join  *Join
		Value Value
		// Insertable and Updatable are false for synthetic properties.
		Insertable bool
		Updatable  bool
		// Synthetic properties are created by reference resolution and
		// are never declared by the user.
		Synthetic bool
		NaturalID bool
		Optional  bool
	}
)

// NewEntity creates a new entity mapped to the given table.
func NewEntity(name string, t *Table) *Entity {
	return &Entity{Name: name, Table: t}
}

// AddProperty adds a property to the entity primary table.
func (e *Entity) AddProperty(p *Property) {
	p.Entity = e
	e.Properties = append(e.Properties, p)
}

// AddJoin adds a secondary table to the entity.
func (e *Entity) AddJoin(j *Join) {
	j.Entity = e
	e.Joins = append(e.Joins, j)
}

// Join returns the secondary table with the given name.
func (e *Entity) Join(table string) (*Join, bool) {
	for _, j := range e.Joins {
		if j.Table.Name == table {
			return j, true
		}
	}
	return nil, false
}

// JoinOf returns the secondary table containing the given property,
// looking at the entity joins and then the superclass chain.
func (e *Entity) JoinOf(p *Property) (*Join, bool) {
	for c := e; c != nil; c = c.Superclass {
		for _, j := range c.Joins {
			if j.Contains(p) {
				return j, true
			}
		}
	}
	return nil, false
}

// Root returns the root entity of the hierarchy.
func (e *Entity) Root() *Entity {
	for e.Superclass != nil {
		e = e.Superclass
	}
	return e
}

// IdentifierProperty returns the identifier of the hierarchy.
func (e *Entity) IdentifierProperty() *Property {
	for c := e; c != nil; c = c.Superclass {
		if c.Identifier != nil {
			return c.Identifier
		}
	}
	return nil
}

// KeyColumns returns the primary key columns of the entity table. Before
// the keys are created, the identifier columns are returned.
func (e *Entity) KeyColumns() []*Column {
	if e.Table.PrimaryKey != nil {
		return e.Table.PrimaryKey.Columns()
	}
	if id := e.IdentifierProperty(); id != nil {
		return id.Value.Columns()
	}
	return nil
}

// Property returns the property with the given name, looking at the
// identifier, the entity properties, its joins and then the superclass chain.
func (e *Entity) Property(name string) (*Property, bool) {
	for c := e; c != nil; c = c.Superclass {
		if c.Identifier != nil && c.Identifier.Name == name {
			return c.Identifier, true
		}
		for _, p := range c.Properties {
			if p.Name == name {
				return p, true
			}
		}
		for _, j := range c.Joins {
			for _, p := range j.Properties {
				if p.Name == name {
					return p, true
				}
			}
		}
	}
	return nil, false
}

// RecursiveProperty resolves a dotted property path, descending into
// components (e.g. "address.city").
func (e *Entity) RecursiveProperty(path string) (*Property, bool) {
	parts := strings.Split(path, ".")
	p, ok := e.Property(parts[0])
	for _, part := range parts[1:] {
		if !ok {
			return nil, false
		}
		c, isComponent := p.Value.(*Component)
		if !isComponent {
			return nil, false
		}
		p, ok = c.Property(part)
	}
	return p, ok
}

// PropertyClosure returns the superclass properties first, followed by the
// entity properties and the properties of its joins.
func (e *Entity) PropertyClosure() []*Property {
	var props []*Property
	if e.Superclass != nil {
		props = e.Superclass.PropertyClosure()
	}
	props = append(props, e.Properties...)
	for _, j := range e.Joins {
		props = append(props, j.Properties...)
	}
	return props
}

// String implements the fmt.Stringer interface.
func (e *Entity) String() string { return e.Name }

// AddProperty adds a property to the join table.
func (j *Join) AddProperty(p *Property) {
	p.Entity = j.Entity
	p.Join = j
	j.Properties = append(j.Properties, p)
}

// Contains reports if the property is mapped to the join.
func (j *Join) Contains(p *Property) bool {
	for _, jp := range j.Properties {
		if jp == p {
			return true
		}
	}
	return false
}

// Columns returns the property columns.
func (p *Property) Columns() []*Column {
	if p.Value == nil {
		return nil
	}
	return p.Value.Columns()
}

// ColumnSpan returns the number of columns of the property.
func (p *Property) ColumnSpan() int { return len(p.Columns()) }

// IsToOne reports if the property is a to-one association.
func (p *Property) IsToOne() bool {
	_, ok := p.Value.(*ToOne)
	return ok
}

// IsComposite reports if the property is a component.
func (p *Property) IsComposite() bool {
	_, ok := p.Value.(*Component)
	return ok
}

// Copy returns a shallow copy of the property sharing its value.
func (p *Property) Copy() *Property {
	c := *p
	return &c
}

// Path returns the qualified name of the property.
func (p *Property) Path() string {
	if p.Entity == nil {
		return p.Name
	}
	return p.Entity.Name + "." + p.Name
}
