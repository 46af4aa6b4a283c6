package bind

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relmap/graph"
)

func TestSyntheticPropertyName(t *testing.T) {
	assert.Equal(t, "_Order_customer", SyntheticPropertyName("Order", "customer", false))
	assert.Equal(t, "_Order_customer_inverse", SyntheticPropertyName("Order", "customer", true))
	assert.Equal(t, "_Order_id_customer", SyntheticPropertyName("Order", "id.customer", false))
}

func TestCreateSyntheticPropertyReference(t *testing.T) {
	setup := func(t *testing.T) (*fixture, *graph.Entity, *graph.Entity, *graph.ToOne) {
		f := newFixture(t)
		a := f.entity("A", "id")
		f.basic(a, "code", "code")
		f.basic(a, "first", "first")
		f.basic(a, "last", "last")
		f.component(a, "name",
			basicProperty(a.Table, "given", "given"),
			basicProperty(a.Table, "family", "family"),
		)
		b := f.entity("B", "id")
		ref := f.toOne(b, "a", "A").Value.(*graph.ToOne)
		return f, a, b, ref
	}

	t.Run("Single plain property is reused", func(t *testing.T) {
		f, a, b, ref := setup(t)
		name, err := CreateSyntheticPropertyReference(f.ctx, []string{"code"}, a, b, ref, "a", false)
		require.NoError(t, err)
		assert.Equal(t, "code", name)
		assert.Equal(t, "code", ref.ReferencedProperty)
		assert.False(t, ref.ReferenceToPrimaryKey)
		for _, p := range a.Properties {
			assert.False(t, p.Synthetic)
		}
		code, _ := a.Table.Column("code")
		uk, ok := a.Table.UniqueKeyFor(code)
		require.True(t, ok)
		assert.True(t, uk.Derived)
		assert.Equal(t, "uk_as_code", uk.Name)
		assert.True(t, code.Unique)

		pr, ok := f.ctx.PropertyRefs().Lookup("A", "code")
		require.True(t, ok)
		assert.True(t, pr.Unique)
		assoc, ok := f.ctx.PropertyRefs().Association("B", "a", false)
		require.True(t, ok)
		assert.Equal(t, "code", assoc)
	})

	t.Run("Single component property is reused", func(t *testing.T) {
		f, a, b, ref := setup(t)
		name, err := CreateSyntheticPropertyReference(f.ctx, []string{"given", "family"}, a, b, ref, "a", false)
		require.NoError(t, err)
		assert.Equal(t, "name", name)
		_, ok := a.Property(SyntheticPropertyName("B", "a", false))
		assert.False(t, ok)
	})

	t.Run("Scattered properties are aggregated", func(t *testing.T) {
		f, a, b, ref := setup(t)
		name, err := CreateSyntheticPropertyReference(f.ctx, []string{"last", "first"}, a, b, ref, "a", false)
		require.NoError(t, err)
		assert.Equal(t, "_B_a", name)

		p, ok := a.Property(name)
		require.True(t, ok)
		assert.True(t, p.Synthetic)
		assert.False(t, p.Insertable)
		assert.False(t, p.Updatable)
		c, ok := p.Value.(*graph.Component)
		require.True(t, ok)
		assert.True(t, c.Synthetic)
		assert.True(t, c.Embedded)
		assert.Equal(t, "A._B_a", c.RoleName)
		assert.Equal(t, []string{"last", "first"}, propertyNames(c.Properties))
		assert.Equal(t, []string{"last", "first"}, graph.ColumnNames(p.Columns()))
		for _, child := range c.Properties {
			assert.False(t, child.Insertable)
			assert.False(t, child.Updatable)
		}
		first, _ := a.Property("first")
		assert.True(t, first.Insertable, "the original property is left untouched")

		uk, ok := a.Table.UniqueKeyFor(p.Columns()...)
		require.True(t, ok)
		assert.Equal(t, "uk_as_last_first", uk.Name)
		assert.True(t, uk.Derived)
		assert.Equal(t, "_B_a", ref.ReferencedProperty)
	})

	t.Run("Creation is idempotent", func(t *testing.T) {
		f, a, b, ref := setup(t)
		for range 2 {
			name, err := CreateSyntheticPropertyReference(f.ctx, []string{"first", "last"}, a, b, ref, "a", false)
			require.NoError(t, err)
			assert.Equal(t, "_B_a", name)
		}
		var synthetic int
		for _, p := range a.Properties {
			if p.Synthetic {
				synthetic++
			}
		}
		assert.Equal(t, 1, synthetic)
		assert.Len(t, f.ctx.PropertyRefs().All(), 1)
	})

	t.Run("Recorded associations are reused", func(t *testing.T) {
		f, a, b, ref := setup(t)
		f.ctx.PropertyRefs().AddAssociation("B", "a", "name", false)
		name, err := CreateSyntheticPropertyReference(f.ctx, []string{"given", "family"}, a, b, ref, "a", false)
		require.NoError(t, err)
		assert.Equal(t, "name", name)
		assert.Equal(t, "name", ref.ReferencedProperty)
		given, _ := a.Table.Column("given")
		family, _ := a.Table.Column("family")
		_, ok := a.Table.UniqueKeyFor(given, family)
		assert.False(t, ok, "columns are not matched again")

		_, err = CreateSyntheticPropertyReference(f.ctx, []string{"first", "last"}, a, b, ref, "a", false)
		require.NoError(t, err, "a recorded name over other columns is resolved again")
		assert.Equal(t, "_B_a", ref.ReferencedProperty)
	})

	t.Run("Synthetic name already taken", func(t *testing.T) {
		f, a, b, _ := setup(t)
		f.basic(a, "_B_a", "other")
		props := []*graph.Property{}
		for _, n := range []string{"first", "last"} {
			p, _ := a.Property(n)
			props = append(props, p)
		}
		_, err := referencedProperty(f.ctx, a, b, "a", false, ColumnOwner{Entity: a}, props)
		assert.True(t, errors.Is(err, ErrInternalInvariant))
	})

	t.Run("Inverse references get their own property", func(t *testing.T) {
		f, a, b, ref := setup(t)
		_, err := CreateSyntheticPropertyReference(f.ctx, []string{"first", "last"}, a, b, ref, "a", false)
		require.NoError(t, err)
		coll := &graph.Collection{Owner: b}
		name, err := CreateSyntheticPropertyReference(f.ctx, []string{"first", "last"}, a, b, coll, "a", true)
		require.NoError(t, err)
		assert.Equal(t, "_B_a_inverse", name)
		assert.Equal(t, name, coll.ReferencedProperty)

		pr, ok := f.ctx.PropertyRefs().Lookup("A", name)
		require.True(t, ok)
		assert.False(t, pr.Unique, "collections record non-unique references")
		assoc, ok := f.ctx.PropertyRefs().Association("B", "a", true)
		require.True(t, ok)
		assert.Equal(t, name, assoc)
		assoc, _ = f.ctx.PropertyRefs().Association("B", "a", false)
		assert.Equal(t, "_B_a", assoc)
	})

	t.Run("To-one properties are wrapped", func(t *testing.T) {
		f, a, b, ref := setup(t)
		f.toOne(a, "parent", "A", "parent_id")
		name, err := CreateSyntheticPropertyReference(f.ctx, []string{"parent_id"}, a, b, ref, "a", false)
		require.NoError(t, err)
		assert.Equal(t, "_B_a", name)
		p, _ := a.Property(name)
		c := p.Value.(*graph.Component)
		require.Len(t, c.Properties, 1)
		assert.True(t, c.Properties[0].IsToOne())
	})

	t.Run("Secondary table columns", func(t *testing.T) {
		f, a, b, ref := setup(t)
		j := &graph.Join{Table: f.ctx.Graph.EnsureTable("a_details")}
		a.AddJoin(j)
		j.AddProperty(basicProperty(j.Table, "bio", "bio"))
		name, err := CreateSyntheticPropertyReference(f.ctx, []string{"bio"}, a, b, ref, "a", false)
		require.NoError(t, err)
		assert.Equal(t, "_B_a", name)
		p, ok := a.Property(name)
		require.True(t, ok)
		assert.Equal(t, j, p.Join)
		assert.True(t, j.Contains(p))
		_, ok = j.Table.UniqueKeyFor(p.Columns()...)
		assert.True(t, ok)
	})

	t.Run("Superclass columns", func(t *testing.T) {
		f, a, _, _ := setup(t)
		sub := graph.NewEntity("S", f.ctx.Graph.EnsureTable("ss"))
		sub.Superclass = a
		sub.Inheritance = graph.Joined
		require.NoError(t, f.ctx.Graph.Add(sub))
		c := f.entity("C", "id")
		ref := f.toOne(c, "s", "S").Value.(*graph.ToOne)
		name, err := CreateSyntheticPropertyReference(f.ctx, []string{"code"}, sub, c, ref, "s", false)
		require.NoError(t, err)
		assert.Equal(t, "_C_s", name)
		p, ok := a.Property(name)
		require.True(t, ok, "the property is attached to the owner of the columns")
		assert.Equal(t, a, p.Entity)
		_, ok = sub.Property(name)
		assert.True(t, ok)
	})

	t.Run("Resolution errors", func(t *testing.T) {
		f, a, b, ref := setup(t)
		_, err := CreateSyntheticPropertyReference(f.ctx, []string{"given", "first"}, a, b, ref, "a", false)
		assert.True(t, errors.Is(err, ErrOutOfOrderColumn))
		_, err = CreateSyntheticPropertyReference(f.ctx, []string{"nope"}, a, b, ref, "a", false)
		assert.True(t, errors.Is(err, ErrUnmappedReferencedColumn))
		_, err = CreateSyntheticPropertyReference(f.ctx, []string{"code"}, a, b, graph.NewBasic(b.Table), "a", false)
		assert.True(t, errors.Is(err, ErrInternalInvariant))
	})

	t.Run("Empty match is an invariant violation", func(t *testing.T) {
		f, a, b, _ := setup(t)
		_, err := referencedProperty(f.ctx, a, b, "a", false, ColumnOwner{Entity: a}, nil)
		require.Error(t, err)
		kind, _ := KindOf(err)
		assert.Equal(t, InternalInvariantViolation, kind)
	})
}

func TestCloneForReference(t *testing.T) {
	f := newFixture(t)
	a := f.entity("A", "id")
	name := f.component(a, "name",
		basicProperty(a.Table, "given", "given"),
		basicProperty(a.Table, "family", "family"),
	)
	name.NaturalID = true

	clone := cloneForReference(name)
	assert.NotSame(t, name, clone)
	assert.False(t, clone.Insertable)
	assert.False(t, clone.NaturalID)
	assert.True(t, name.NaturalID)

	orig, cloned := name.Value.(*graph.Component), clone.Value.(*graph.Component)
	assert.NotSame(t, orig, cloned)
	assert.True(t, cloned.Synthetic)
	require.Len(t, cloned.Properties, 2)
	assert.NotSame(t, orig.Properties[0], cloned.Properties[0])
	assert.False(t, cloned.Properties[0].Updatable)
	assert.True(t, orig.Properties[0].Updatable)
	assert.Equal(t, graph.ColumnNames(orig.Columns()), graph.ColumnNames(cloned.Columns()))
}
