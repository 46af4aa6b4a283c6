package bind

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/relmap/graph"
	"github.com/syssam/relmap/internal/testutil"
)

// fixture builds mapping graphs by hand, bypassing the eager binder.
type fixture struct {
	t   *testing.T
	ctx *BuildContext
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	ctx, err := NewBuildContext(append([]Option{WithLogger(testutil.NewTestLogger(t))}, opts...)...)
	require.NoError(t, err)
	return &fixture{t: t, ctx: ctx}
}

// entity adds an entity with a basic identifier over the given columns.
func (f *fixture) entity(name string, idColumns ...string) *graph.Entity {
	f.t.Helper()
	e := graph.NewEntity(name, f.ctx.Graph.EnsureTable(strings.ToLower(name)+"s"))
	if len(idColumns) > 0 {
		e.Identifier = basicProperty(e.Table, "id", idColumns...)
		e.Identifier.Entity = e
		e.Table.SetPrimaryKey(e.Table.Name+"_pkey", e.Identifier.Value)
	}
	require.NoError(f.t, f.ctx.Graph.Add(e))
	return e
}

// basic adds a basic property to the entity table.
func (f *fixture) basic(e *graph.Entity, name string, columns ...string) *graph.Property {
	p := basicProperty(e.Table, name, columns...)
	e.AddProperty(p)
	return p
}

// component adds a component property to the entity table.
func (f *fixture) component(e *graph.Entity, name string, children ...*graph.Property) *graph.Property {
	c := graph.NewComponent(e.Table, e)
	c.RoleName = e.Name + "." + name
	c.Embedded = true
	for _, child := range children {
		child.Entity = e
		c.AddProperty(child)
	}
	p := &graph.Property{Name: name, Value: c, Insertable: true, Updatable: true}
	e.AddProperty(p)
	return p
}

// toOne adds a to-one property whose columns live in the entity table.
func (f *fixture) toOne(e *graph.Entity, name, target string, columns ...string) *graph.Property {
	v := graph.NewToOne(e.Table, target)
	for _, c := range columns {
		v.AddColumn(e.Table.AddColumn(c, true))
	}
	p := &graph.Property{Name: name, Value: v, Insertable: true, Updatable: true}
	e.AddProperty(p)
	return p
}

func basicProperty(t *graph.Table, name string, columns ...string) *graph.Property {
	v := graph.NewBasic(t)
	for _, c := range columns {
		v.AddColumn(t.AddColumn(c, false))
	}
	return &graph.Property{Name: name, Value: v, Insertable: true, Updatable: true}
}

func propertyNames(props []*graph.Property) []string {
	names := make([]string, len(props))
	for i, p := range props {
		names[i] = p.Name
	}
	return names
}
