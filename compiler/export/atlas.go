// Package export converts resolved mapping graphs to external schema models.
package export

import (
	"fmt"

	"ariga.io/atlas/sql/schema"

	"github.com/syssam/relmap/graph"
)

// Realm returns the atlas realm holding the tables of g in a single schema
// with the given name. Keys marked as disabled are logical only and are not
// exported; unique keys covering the primary key are skipped.
func Realm(g *graph.Graph, name string) (*schema.Realm, error) {
	s := schema.New(name)
	tables := make(map[*graph.Table]*schema.Table, len(g.Tables()))
	for _, t := range g.Tables() {
		at := schema.NewTable(t.Name)
		for _, c := range t.Columns {
			at.AddColumns(column(c))
		}
		s.AddTables(at)
		tables[t] = at
	}
	for _, t := range g.Tables() {
		if err := constraints(t, tables); err != nil {
			return nil, err
		}
	}
	return schema.NewRealm(s), nil
}

func column(c *graph.Column) *schema.Column {
	ac := schema.NewColumn(c.Name).SetNull(c.Nullable)
	if c.SQLType != "" {
		ac.SetType(&schema.UnsupportedType{T: c.SQLType})
	}
	return ac
}

func constraints(t *graph.Table, tables map[*graph.Table]*schema.Table) error {
	at := tables[t]
	var pk []*graph.Column
	if t.PrimaryKey != nil {
		pk = t.PrimaryKey.Columns()
		cols, err := columns(at, pk)
		if err != nil {
			return err
		}
		idx := schema.NewPrimaryKey(cols...)
		idx.Name = t.PrimaryKey.Name
		at.SetPrimaryKey(idx)
	}
	for _, uk := range t.UniqueKeys {
		if sameNames(uk.Columns, pk) {
			continue
		}
		cols, err := columns(at, uk.Columns)
		if err != nil {
			return err
		}
		at.AddIndexes(schema.NewUniqueIndex(uk.Name).AddColumns(cols...))
	}
	for _, fk := range t.ForeignKeys {
		if fk.ConstraintDisabled {
			continue
		}
		ref, ok := tables[fk.ReferencedTable]
		if !ok {
			return fmt.Errorf("export: foreign key %s references an unknown table", fk)
		}
		cols, err := columns(at, fk.Columns)
		if err != nil {
			return err
		}
		refCols, err := columns(ref, fk.ReferencedColumns)
		if err != nil {
			return err
		}
		afk := schema.NewForeignKey(fk.Name).
			AddColumns(cols...).
			SetRefTable(ref).
			AddRefColumns(refCols...)
		if fk.OnDelete != "" {
			afk.SetOnDelete(schema.ReferenceOption(fk.OnDelete))
		}
		if fk.OnUpdate != "" {
			afk.SetOnUpdate(schema.ReferenceOption(fk.OnUpdate))
		}
		at.AddForeignKeys(afk)
	}
	return nil
}

func columns(t *schema.Table, cols []*graph.Column) ([]*schema.Column, error) {
	out := make([]*schema.Column, len(cols))
	for i, c := range cols {
		ac, ok := t.Column(c.Name)
		if !ok {
			return nil, fmt.Errorf("export: column %q not found in table %q", c.Name, t.Name)
		}
		out[i] = ac
	}
	return out, nil
}

func sameNames(a, b []*graph.Column) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name {
			return false
		}
	}
	return true
}
