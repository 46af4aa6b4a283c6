package bind

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relmap/graph"
)

func TestFindColumnOwner(t *testing.T) {
	f := newFixture(t)
	a := f.entity("A", "id")
	f.basic(a, "code", "code")
	details := &graph.Join{Table: f.ctx.Graph.EnsureTable("a_details")}
	a.AddJoin(details)
	details.AddProperty(basicProperty(details.Table, "bio", "bio"))

	b := graph.NewEntity("B", f.ctx.Graph.EnsureTable("bs"))
	b.Superclass = a
	b.Inheritance = graph.Joined
	f.basic(b, "rank", "rank")
	require.NoError(t, f.ctx.Graph.Add(b))

	t.Run("Entity table first", func(t *testing.T) {
		o, ok := FindColumnOwner(a, "code")
		require.True(t, ok)
		assert.Equal(t, a, o.Entity)
		assert.Nil(t, o.Join)
		assert.Equal(t, "as", o.Table().Name)
		assert.Equal(t, "A", o.String())
	})

	t.Run("Secondary tables", func(t *testing.T) {
		o, ok := FindColumnOwner(a, "bio")
		require.True(t, ok)
		assert.Equal(t, a, o.Entity)
		assert.Equal(t, details, o.Join)
		assert.Equal(t, "A(a_details)", o.String())
	})

	t.Run("Superclass chain", func(t *testing.T) {
		o, ok := FindColumnOwner(b, "code")
		require.True(t, ok)
		assert.Equal(t, a, o.Entity)
		o, ok = FindColumnOwner(b, "rank")
		require.True(t, ok)
		assert.Equal(t, b, o.Entity)
		_, ok = FindColumnOwner(b, "missing")
		assert.False(t, ok)
	})

	t.Run("Columns spread over tables", func(t *testing.T) {
		_, err := findReferencedColumnOwner(a, []string{"code", "bio"})
		require.Error(t, err)
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, AmbiguousColumnOwner, kind)
		assert.Contains(t, err.Error(), "column bio")
	})

	t.Run("Unknown column", func(t *testing.T) {
		_, err := findReferencedColumnOwner(a, []string{"code", "missing"})
		assert.True(t, errors.Is(err, ErrUnmappedReferencedColumn))
		_, err = findReferencedColumnOwner(a, nil)
		assert.True(t, errors.Is(err, ErrInternalInvariant))
	})
}

func TestMatchProperties(t *testing.T) {
	setup := func(t *testing.T) (*fixture, *graph.Entity) {
		f := newFixture(t)
		a := f.entity("A", "id")
		f.basic(a, "code", "code")
		f.basic(a, "first", "first")
		f.basic(a, "last", "last")
		f.component(a, "region",
			basicProperty(a.Table, "country", "country"),
			basicProperty(a.Table, "zone", "zone"),
		)
		return f, a
	}

	t.Run("Single column reuses the property", func(t *testing.T) {
		_, a := setup(t)
		props, err := MatchProperties(ColumnOwner{Entity: a}, []string{"code"})
		require.NoError(t, err)
		assert.Equal(t, []string{"code"}, propertyNames(props))
	})

	t.Run("Multi-column property in order", func(t *testing.T) {
		_, a := setup(t)
		props, err := MatchProperties(ColumnOwner{Entity: a}, []string{"country", "zone"})
		require.NoError(t, err)
		assert.Equal(t, []string{"region"}, propertyNames(props))
	})

	t.Run("Scattered columns keep the requested order", func(t *testing.T) {
		_, a := setup(t)
		props, err := MatchProperties(ColumnOwner{Entity: a}, []string{"last", "country", "zone", "first"})
		require.NoError(t, err)
		assert.Equal(t, []string{"last", "region", "first"}, propertyNames(props))
	})

	t.Run("Identifier is a candidate", func(t *testing.T) {
		_, a := setup(t)
		props, err := MatchProperties(ColumnOwner{Entity: a}, []string{"id", "code"})
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "code"}, propertyNames(props))
	})

	t.Run("Columns out of property order", func(t *testing.T) {
		_, a := setup(t)
		_, err := MatchProperties(ColumnOwner{Entity: a}, []string{"zone", "country"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrOutOfOrderColumn))
		var rerr *ResolutionError
		require.True(t, errors.As(err, &rerr))
		assert.Equal(t, "zone", rerr.Column)
		assert.Equal(t, "A.region", rerr.Property)
	})

	t.Run("Multi-column property interrupted", func(t *testing.T) {
		_, a := setup(t)
		_, err := MatchProperties(ColumnOwner{Entity: a}, []string{"country", "code", "zone"})
		assert.True(t, errors.Is(err, ErrOutOfOrderColumn))
	})

	t.Run("Multi-column property left incomplete", func(t *testing.T) {
		_, a := setup(t)
		_, err := MatchProperties(ColumnOwner{Entity: a}, []string{"code", "country"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrOutOfOrderColumn))
		assert.Contains(t, err.Error(), "column zone of property region is not referenced")
	})

	t.Run("Property referenced twice", func(t *testing.T) {
		_, a := setup(t)
		_, err := MatchProperties(ColumnOwner{Entity: a}, []string{"code", "first", "code"})
		require.Error(t, err)
		kind, _ := KindOf(err)
		assert.Equal(t, ColumnAlreadyConsumed, kind)
	})

	t.Run("Consumption is scoped to one call", func(t *testing.T) {
		_, a := setup(t)
		for range 2 {
			props, err := MatchProperties(ColumnOwner{Entity: a}, []string{"code"})
			require.NoError(t, err)
			assert.Len(t, props, 1)
		}
	})

	t.Run("Unmapped columns", func(t *testing.T) {
		_, a := setup(t)
		a.Table.AddColumn("orphan", true)
		_, err := MatchProperties(ColumnOwner{Entity: a}, []string{"orphan"})
		assert.True(t, errors.Is(err, ErrUnmappedReferencedColumn))
		_, err = MatchProperties(ColumnOwner{Entity: a}, []string{"missing"})
		assert.True(t, errors.Is(err, ErrUnmappedReferencedColumn))
	})

	t.Run("Plain properties win over to-one properties", func(t *testing.T) {
		f := newFixture(t)
		a := f.entity("A", "id")
		f.toOne(a, "parent", "A", "parent_id")
		f.basic(a, "parentID", "parent_id")
		props, err := MatchProperties(ColumnOwner{Entity: a}, []string{"parent_id"})
		require.NoError(t, err)
		assert.Equal(t, []string{"parentID"}, propertyNames(props))
	})

	t.Run("Collections are skipped", func(t *testing.T) {
		f := newFixture(t)
		a := f.entity("A", "id")
		key := graph.NewToOne(a.Table, "A")
		key.AddColumn(a.Table.AddColumn("owner_id", true))
		a.AddProperty(&graph.Property{Name: "children", Value: &graph.Collection{Owner: a, CollectionTable: a.Table, Key: key}})
		_, err := MatchProperties(ColumnOwner{Entity: a}, []string{"owner_id"})
		assert.True(t, errors.Is(err, ErrUnmappedReferencedColumn))
	})

	t.Run("Superclass properties are candidates", func(t *testing.T) {
		f, a := setup(t)
		b := graph.NewEntity("B", a.Table)
		b.Superclass = a
		f.basic(b, "extra", "extra")
		require.NoError(t, f.ctx.Graph.Add(b))
		props, err := MatchProperties(ColumnOwner{Entity: b}, []string{"code", "extra"})
		require.NoError(t, err)
		assert.Equal(t, []string{"code", "extra"}, propertyNames(props))
	})
}
