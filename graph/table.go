package graph

import (
	"fmt"
	"strings"
)

type (
	// Table is a physical table of the mapping graph.
	Table struct {
		// Name of the table.
		Name string
		// Columns in creation order.
		Columns []*Column
		// PrimaryKey of the table, nil until the create-keys phase ran.
		PrimaryKey *PrimaryKey
		// ForeignKeys that reside in this table.
		ForeignKeys []*ForeignKey
		// UniqueKeys declared on this table, including derived ones.
		UniqueKeys []*UniqueKey
		columns    map[string]*Column
	}

	// Column is a column of a table. A column belongs to exactly one table,
	// while a property may span several columns.
	Column struct {
		Name     string
		Table    *Table
		Nullable bool
		// Unique is set for single-column unique references.
		Unique bool
		// SQLType is an opaque type hint carried from the declarations.
		SQLType string
	}

	// PrimaryKey of a table. When it is backed by an identifier value, its
	// columns follow that value, so columns added to a composite identifier
	// by later phases are picked up.
	PrimaryKey struct {
		Name    string
		value   Value
		columns []*Column
	}

	// UniqueKey is a uniqueness constraint over an ordered list of columns.
	UniqueKey struct {
		Name    string
		Columns []*Column
		// Derived indicates the key was created by reference resolution
		// rather than declared by the user.
		Derived bool
	}

	// ForeignKey links an ordered list of columns to an ordered list of
	// referenced columns of equal arity.
	ForeignKey struct {
		// Name of the constraint. Empty when the constraint is disabled.
		Name string
		// Table holding the referencing columns.
		Table *Table
		// ReferencedEntity is the name of the entity the key points to.
		ReferencedEntity string
		// ReferencedTable holds the referenced columns.
		ReferencedTable *Table
		// Columns and ReferencedColumns are paired by index.
		Columns           []*Column
		ReferencedColumns []*Column
		// Definition is a raw constraint definition override.
		Definition string
		// Options are extra constraint options (e.g. "DEFERRABLE").
		Options string
		// OnDelete and OnUpdate referential actions, empty for the default.
		OnDelete string
		OnUpdate string
		// ConstraintDisabled marks a logical key that must not be emitted
		// as a physical constraint.
		ConstraintDisabled bool
	}

	// ColumnPair is one referencing/referenced pair of a foreign key.
	ColumnPair struct {
		Column     *Column
		Referenced *Column
	}
)

// NewTable creates a new empty table.
func NewTable(name string) *Table {
	return &Table{Name: name, columns: make(map[string]*Column)}
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (*Column, bool) {
	c, ok := t.columns[name]
	return c, ok
}

// AddColumn adds a column to the table. If a column with the same name
// already exists, it is returned unchanged.
func (t *Table) AddColumn(name string, nullable bool) *Column {
	if c, ok := t.columns[name]; ok {
		return c
	}
	c := &Column{Name: name, Table: t, Nullable: nullable}
	t.columns[name] = c
	t.Columns = append(t.Columns, c)
	return c
}

// SetPrimaryKey sets the primary key of the table backed by the given value.
func (t *Table) SetPrimaryKey(name string, v Value) *PrimaryKey {
	t.PrimaryKey = &PrimaryKey{Name: name, value: v}
	return t.PrimaryKey
}

// SetPrimaryKeyColumns sets the primary key of the table to a fixed list of columns.
func (t *Table) SetPrimaryKeyColumns(name string, columns ...*Column) *PrimaryKey {
	t.PrimaryKey = &PrimaryKey{Name: name, columns: columns}
	return t.PrimaryKey
}

// AddForeignKey adds a foreign key to the table. A key over the same columns
// that references the same table is reused and returned instead.
func (t *Table) AddForeignKey(fk *ForeignKey) *ForeignKey {
	for _, existing := range t.ForeignKeys {
		if existing.ReferencedTable == fk.ReferencedTable && sameColumns(existing.Columns, fk.Columns) {
			return existing
		}
	}
	fk.Table = t
	t.ForeignKeys = append(t.ForeignKeys, fk)
	return fk
}

// AddUniqueKey adds a unique key over the given columns, unless one over
// the same columns already exists.
func (t *Table) AddUniqueKey(name string, derived bool, columns ...*Column) *UniqueKey {
	for _, uk := range t.UniqueKeys {
		if sameColumns(uk.Columns, columns) {
			return uk
		}
	}
	uk := &UniqueKey{Name: name, Derived: derived, Columns: append([]*Column(nil), columns...)}
	t.UniqueKeys = append(t.UniqueKeys, uk)
	if len(columns) == 1 {
		columns[0].Unique = true
	}
	return uk
}

// UniqueKeyFor returns the unique key declared over exactly the given columns.
func (t *Table) UniqueKeyFor(columns ...*Column) (*UniqueKey, bool) {
	for _, uk := range t.UniqueKeys {
		if sameColumns(uk.Columns, columns) {
			return uk, true
		}
	}
	return nil, false
}

// String implements the fmt.Stringer interface.
func (t *Table) String() string { return t.Name }

// Columns returns the primary key columns.
func (pk *PrimaryKey) Columns() []*Column {
	if pk.value != nil {
		return pk.value.Columns()
	}
	return pk.columns
}

// String implements the fmt.Stringer interface.
func (c *Column) String() string {
	if c.Table == nil {
		return c.Name
	}
	return c.Table.Name + "." + c.Name
}

// Pairs returns the column pairs of the key in declaration order.
func (fk *ForeignKey) Pairs() []ColumnPair {
	pairs := make([]ColumnPair, len(fk.Columns))
	for i := range fk.Columns {
		pairs[i] = ColumnPair{Column: fk.Columns[i], Referenced: fk.ReferencedColumns[i]}
	}
	return pairs
}

// String implements the fmt.Stringer interface.
func (fk *ForeignKey) String() string {
	return fmt.Sprintf("%s(%s) -> %s(%s)", fk.Table, columnNames(fk.Columns), fk.ReferencedTable, columnNames(fk.ReferencedColumns))
}

// ColumnNames returns the names of the given columns.
func ColumnNames(columns []*Column) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}

func columnNames(columns []*Column) string {
	return strings.Join(ColumnNames(columns), ", ")
}

func sameColumns(a, b []*Column) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
