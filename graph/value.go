package graph

// Kind of a Value.
type Kind uint8

// List of value kinds.
const (
	KindBasic Kind = iota + 1
	KindToOne
	KindCollection
	KindComponent
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindBasic:
		return "basic"
	case KindToOne:
		return "to-one"
	case KindCollection:
		return "collection"
	case KindComponent:
		return "component"
	default:
		return "unknown"
	}
}

// Value maps a property onto columns. The set of implementations is closed.
type Value interface {
	// Table returns the table the value columns live in.
	Table() *Table
	// Columns returns the value columns in declaration order.
	Columns() []*Column
	// Kind returns the value kind.
	Kind() Kind
	value()
}

type (
	// Basic is a plain value spanning one or more columns.
	Basic struct {
		table   *Table
		columns []*Column
		// TypeName is the declared type name of the value.
		TypeName string
		// Type is the type resolved for TypeName by the build's type resolver.
		Type any
	}

	// ToOne is a value referencing another entity: a many-to-one or
	// one-to-one association, or the key of a collection.
	ToOne struct {
		table   *Table
		columns []*Column
		// ReferencedEntity is the name of the referenced entity.
		ReferencedEntity string
		// ReferencedProperty is the name of the referenced property when the
		// reference does not target the primary key.
		ReferencedProperty string
		// ReferenceToPrimaryKey reports if the value references the
		// primary key of ReferencedEntity.
		ReferenceToPrimaryKey bool
		// ForeignKey created by the linker, or borrowed from the owning
		// side for inverse associations.
		ForeignKey *ForeignKey
		// Unique marks a one-to-one owning side.
		Unique bool
		// Inverse marks a value mapped by the other side of the association.
		Inverse bool
		// MappedBy is the owning property name for inverse values.
		MappedBy string
	}

	// Collection is a keyed collection. Its columns are the key columns
	// residing in the collection table.
	Collection struct {
		// Owner is the entity declaring the collection.
		Owner *Entity
		// Role is the qualified collection name (e.g. "User.groups").
		Role string
		// CollectionTable is the join table, or the element table for a
		// one-to-many without a join table.
		CollectionTable *Table
		// Key references the owner from the collection table.
		Key *ToOne
		// Element references the element entity.
		Element *ToOne
		// ReferencedProperty is the owner property referenced by the key
		// when it does not target the owner primary key.
		ReferencedProperty string
		// OneToMany reports if each element belongs to at most one owner.
		OneToMany bool
		Inverse   bool
		MappedBy  string
	}

	// Component is an ordered aggregate of child properties.
	Component struct {
		table *Table
		// Owner is the entity the component belongs to.
		Owner *Entity
		// RoleName is the qualified name of the component.
		RoleName   string
		Properties []*Property
		Embedded   bool
		Synthetic  bool
	}
)

// NewBasic creates a basic value over the given columns.
func NewBasic(t *Table, columns ...*Column) *Basic {
	return &Basic{table: t, columns: columns}
}

// NewToOne creates a to-one value whose columns live in t.
func NewToOne(t *Table, referenced string) *ToOne {
	return &ToOne{table: t, ReferencedEntity: referenced}
}

// NewComponent creates an empty component whose columns live in t.
func NewComponent(t *Table, owner *Entity) *Component {
	return &Component{table: t, Owner: owner}
}

// Table implements the Value interface.
func (v *Basic) Table() *Table { return v.table }

// Columns implements the Value interface.
func (v *Basic) Columns() []*Column { return v.columns }

// Kind implements the Value interface.
func (*Basic) Kind() Kind { return KindBasic }

func (*Basic) value() {}

// AddColumn appends a column to the value.
func (v *Basic) AddColumn(c *Column) { v.columns = append(v.columns, c) }

// Table implements the Value interface.
func (v *ToOne) Table() *Table { return v.table }

// Columns implements the Value interface.
func (v *ToOne) Columns() []*Column { return v.columns }

// Kind implements the Value interface.
func (*ToOne) Kind() Kind { return KindToOne }

func (*ToOne) value() {}

// AddColumn appends a column to the value.
func (v *ToOne) AddColumn(c *Column) { v.columns = append(v.columns, c) }

// SetColumns replaces the value columns and table. Used when a value
// borrows the key of another value.
func (v *ToOne) SetColumns(t *Table, columns []*Column) {
	v.table = t
	v.columns = append([]*Column(nil), columns...)
}

// Table implements the Value interface.
func (v *Collection) Table() *Table { return v.CollectionTable }

// Columns implements the Value interface.
func (v *Collection) Columns() []*Column {
	if v.Key == nil {
		return nil
	}
	return v.Key.Columns()
}

// Kind implements the Value interface.
func (*Collection) Kind() Kind { return KindCollection }

func (*Collection) value() {}

// Table implements the Value interface.
func (v *Component) Table() *Table { return v.table }

// Columns implements the Value interface. Child columns are flattened in
// property order.
func (v *Component) Columns() []*Column {
	var columns []*Column
	for _, p := range v.Properties {
		columns = append(columns, p.Value.Columns()...)
	}
	return columns
}

// Kind implements the Value interface.
func (*Component) Kind() Kind { return KindComponent }

func (*Component) value() {}

// AddProperty appends a child property.
func (v *Component) AddProperty(p *Property) {
	v.Properties = append(v.Properties, p)
}

// Property returns the child property with the given name.
func (v *Component) Property(name string) (*Property, bool) {
	for _, p := range v.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}
