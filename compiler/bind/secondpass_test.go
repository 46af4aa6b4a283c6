package bind

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler(t *testing.T) {
	t.Run("Phases drain in order", func(t *testing.T) {
		f := newFixture(t)
		f.entity("A", "id")
		var order []string
		record := func(name string) func(*BuildContext) error {
			return func(*BuildContext) error {
				order = append(order, name)
				return nil
			}
		}
		s := f.ctx.Scheduler
		require.NoError(t, s.Register(PhaseGeneral, NewTask("", Dependency{}, record("general"))))
		require.NoError(t, s.Register(PhaseCollections, NewTask("", Dependency{}, record("collections"))))
		require.NoError(t, s.Register(PhaseForeignKeys, NewTask("", Dependency{Entity: "A"}, record("fk-1"))))
		require.NoError(t, s.Register(PhaseForeignKeys, NewTask("", Dependency{Entity: "A"}, record("fk-2"))))
		require.NoError(t, s.Register(PhaseCreateKeys, NewTask("", Dependency{}, record("keys"))))
		assert.Equal(t, 2, s.Len(PhaseForeignKeys))

		require.NoError(t, s.Run(f.ctx))
		assert.Equal(t, []string{"keys", "fk-1", "fk-2", "collections", "general"}, order)
	})

	t.Run("Tasks may register into the same or a later phase", func(t *testing.T) {
		f := newFixture(t)
		var order []string
		s := f.ctx.Scheduler
		require.NoError(t, s.Register(PhaseForeignKeys, NewTask("", Dependency{}, func(ctx *BuildContext) error {
			order = append(order, "X")
			if err := ctx.Scheduler.Register(PhaseForeignKeys, NewTask("", Dependency{}, func(*BuildContext) error {
				order = append(order, "Y")
				return nil
			})); err != nil {
				return err
			}
			return ctx.Scheduler.Register(PhaseGeneral, NewTask("", Dependency{}, func(*BuildContext) error {
				order = append(order, "Z")
				return nil
			}))
		})))
		require.NoError(t, s.Register(PhaseForeignKeys, NewTask("", Dependency{}, func(*BuildContext) error {
			order = append(order, "W")
			return nil
		})))
		require.NoError(t, s.Run(f.ctx))
		assert.Equal(t, []string{"X", "W", "Y", "Z"}, order)
	})

	t.Run("Registering into a drained phase fails", func(t *testing.T) {
		f := newFixture(t)
		s := f.ctx.Scheduler
		require.NoError(t, s.Register(PhaseCollections, NewTask("", Dependency{}, func(ctx *BuildContext) error {
			return ctx.Scheduler.Register(PhaseForeignKeys, NewTask("", Dependency{}, func(*BuildContext) error { return nil }))
		})))
		err := s.Run(f.ctx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInternalInvariant))
		assert.Contains(t, err.Error(), "collections phase")
		assert.Contains(t, err.Error(), "phase foreign-keys already drained")
	})

	t.Run("Unknown dependency fails the build", func(t *testing.T) {
		f := newFixture(t)
		ran := false
		require.NoError(t, f.ctx.Scheduler.Register(PhaseForeignKeys, NewTask("A", Dependency{Entity: "Missing"}, func(*BuildContext) error {
			ran = true
			return nil
		})))
		err := f.ctx.Scheduler.Run(f.ctx)
		require.Error(t, err)
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, UnknownTargetEntity, kind)
		assert.False(t, ran)
	})

	t.Run("Unknown phase is rejected", func(t *testing.T) {
		f := newFixture(t)
		err := f.ctx.Scheduler.Register(Phase(42), NewTask("", Dependency{}, nil))
		assert.True(t, errors.Is(err, ErrInternalInvariant))
		assert.Equal(t, "phase(42)", Phase(42).String())
		assert.Zero(t, f.ctx.Scheduler.Len(Phase(42)))
	})

	t.Run("Task errors stop the run", func(t *testing.T) {
		f := newFixture(t)
		boom := errors.New("boom")
		ran := false
		s := f.ctx.Scheduler
		require.NoError(t, s.Register(PhaseCreateKeys, NewTask("", Dependency{}, func(*BuildContext) error { return boom })))
		require.NoError(t, s.Register(PhaseGeneral, NewTask("", Dependency{}, func(*BuildContext) error {
			ran = true
			return nil
		})))
		err := s.Run(f.ctx)
		assert.ErrorIs(t, err, boom)
		assert.False(t, ran)
	})
}

func TestSchedulerKeyForeignKeys(t *testing.T) {
	t.Run("Primary key dependencies are routed and ordered", func(t *testing.T) {
		f := newFixture(t)
		f.entity("A", "id")
		f.entity("B", "id")
		f.entity("C", "id")
		var order []string
		task := func(owner, dep string) Task {
			return NewTask(owner, Dependency{Entity: dep, PrimaryKey: true}, func(*BuildContext) error {
				order = append(order, owner+"->"+dep)
				return nil
			})
		}
		s := f.ctx.Scheduler
		// C's key references B, whose key references A.
		require.NoError(t, s.Register(PhaseForeignKeys, task("C", "B")))
		require.NoError(t, s.Register(PhaseForeignKeys, task("B", "A")))
		require.NoError(t, s.Register(PhaseForeignKeys, NewTask("D", Dependency{Entity: "C"}, func(*BuildContext) error {
			order = append(order, "D->C")
			return nil
		})))
		assert.Equal(t, 2, s.Len(PhaseKeyForeignKeys))
		assert.Equal(t, 1, s.Len(PhaseForeignKeys))

		require.NoError(t, s.Run(f.ctx))
		assert.Equal(t, []string{"B->A", "C->B", "D->C"}, order)
	})

	t.Run("Self references keep registration order", func(t *testing.T) {
		ordered, err := sortKeyTasks([]Task{
			NewTask("A", Dependency{Entity: "A", PrimaryKey: true}, nil),
			NewTask("A", Dependency{Entity: "B", PrimaryKey: true}, nil),
		})
		require.NoError(t, err)
		assert.Len(t, ordered, 2)
		assert.Equal(t, "A", ordered[0].Dependency().Entity)
	})

	t.Run("Key copies wait for their sources", func(t *testing.T) {
		subKeys := &copyTask{owner: "Sub", sources: []string{"Sub", "Root"}}
		rootKeys := &copyTask{owner: "Root", sources: []string{"Root"}}
		rootToX := NewTask("Root", Dependency{Entity: "X", PrimaryKey: true}, nil)
		xToV := NewTask("X", Dependency{Entity: "V", PrimaryKey: true}, nil)
		ordered, err := sortKeyTasks([]Task{subKeys, rootKeys, rootToX, xToV})
		require.NoError(t, err)
		require.Len(t, ordered, 4)
		assert.Same(t, xToV, ordered[0])
		assert.Same(t, rootToX, ordered[1])
		assert.Same(t, rootKeys, ordered[2])
		assert.Same(t, subKeys, ordered[3])
	})

	t.Run("Circular key dependencies fail", func(t *testing.T) {
		f := newFixture(t)
		f.entity("A", "id")
		f.entity("B", "id")
		s := f.ctx.Scheduler
		noop := func(*BuildContext) error { return nil }
		require.NoError(t, s.Register(PhaseForeignKeys, NewTask("A", Dependency{Entity: "B", PrimaryKey: true}, noop)))
		require.NoError(t, s.Register(PhaseForeignKeys, NewTask("B", Dependency{Entity: "A", PrimaryKey: true}, noop)))
		err := s.Run(f.ctx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrCircularKeyDependency))
		assert.Contains(t, err.Error(), "A -> B")
	})
}

// copyTask copies the key of sources into tables of owner.
type copyTask struct {
	owner   string
	sources []string
}

func (c *copyTask) Dependency() Dependency {
	return Dependency{Entity: c.owner, PrimaryKey: true}
}

func (c *copyTask) Owner() string { return c.owner }

func (c *copyTask) Run(*BuildContext) error { return nil }

func (c *copyTask) KeySources() []string { return c.sources }
