package bind

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
)

// Phase of the second-pass scheduler. Phases drain in declaration order.
type Phase uint8

// List of second-pass phases.
const (
	// PhaseCreateKeys creates primary keys and secondary table keys.
	PhaseCreateKeys Phase = iota
	// PhaseKeyForeignKeys links foreign keys that are part of a composite
	// identifier, in dependency order.
	PhaseKeyForeignKeys
	// PhaseForeignKeys links to-one associations.
	PhaseForeignKeys
	// PhaseCollections binds collection keys and elements.
	PhaseCollections
	// PhaseGeneral binds the remaining deferred work, like inverse to-one
	// associations.
	PhaseGeneral

	numPhases = int(PhaseGeneral) + 1
)

var phaseNames = [numPhases]string{
	"create-keys",
	"key-foreign-keys",
	"foreign-keys",
	"collections",
	"general",
}

// String returns the phase name.
func (p Phase) String() string {
	if int(p) < numPhases {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Dependency is the entity a task needs to be resolved before it runs.
type Dependency struct {
	// Entity name. Empty for tasks without a dependency.
	Entity string
	// PrimaryKey marks a foreign key that is part of a composite
	// identifier.
	PrimaryKey bool
}

// Task is a unit of deferred binding work.
type Task interface {
	// Dependency returns the entity the task depends on.
	Dependency() Dependency
	// Run performs the binding. It may register further tasks.
	Run(*BuildContext) error
}

// ownedTask is implemented by tasks creating keys of an entity. The owner
// is used to order the key-foreign-keys phase.
type ownedTask interface {
	Owner() string
}

// keyCopier is implemented by tasks copying the primary key of an entity
// hierarchy into dependent tables. They run after all the key tasks owned
// by the entities returned by KeySources.
type keyCopier interface {
	KeySources() []string
}

// NewTask returns a task that runs fn on behalf of the owner entity.
func NewTask(owner string, dep Dependency, fn func(*BuildContext) error) Task {
	return &funcTask{owner: owner, dep: dep, fn: fn}
}

type funcTask struct {
	owner string
	dep   Dependency
	fn    func(*BuildContext) error
}

func (t *funcTask) Dependency() Dependency { return t.dep }

func (t *funcTask) Owner() string { return t.owner }

func (t *funcTask) Run(ctx *BuildContext) error { return t.fn(ctx) }

// Scheduler queues deferred tasks by phase and drains them in phase order.
type Scheduler struct {
	queues  [numPhases][]Task
	drained [numPhases]bool
	current Phase
	running bool
	logger  *slog.Logger
}

// NewScheduler creates an empty scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{logger: logger}
}

// Register queues a task in the given phase. Tasks in the foreign-keys
// phase that depend on a primary key are moved to the key-foreign-keys
// phase, unless it already drained. Registering into a drained phase fails.
func (s *Scheduler) Register(phase Phase, t Task) error {
	if int(phase) >= numPhases {
		return errorf(InternalInvariantViolation, "", "", "", "unknown phase %s", phase)
	}
	if phase == PhaseForeignKeys && t.Dependency().PrimaryKey && !s.drained[PhaseKeyForeignKeys] {
		phase = PhaseKeyForeignKeys
	}
	if s.drained[phase] || (s.running && phase < s.current) {
		return errorf(InternalInvariantViolation, t.Dependency().Entity, "", "", "phase %s already drained", phase)
	}
	s.queues[phase] = append(s.queues[phase], t)
	return nil
}

// Len returns the number of tasks queued in the phase.
func (s *Scheduler) Len(phase Phase) int {
	if int(phase) >= numPhases {
		return 0
	}
	return len(s.queues[phase])
}

// Run drains all phases in order. Tasks registered into the phase being
// drained run after the tasks already queued. Run stops at the first error.
func (s *Scheduler) Run(ctx *BuildContext) error {
	s.running = true
	defer func() { s.running = false }()
	for p := PhaseCreateKeys; int(p) < numPhases; p++ {
		s.current = p
		if p == PhaseKeyForeignKeys {
			ordered, err := sortKeyTasks(s.queues[p])
			if err != nil {
				return fmt.Errorf("%s phase: %w", p, err)
			}
			s.queues[p] = ordered
		}
		s.logger.Debug("draining second-pass phase", "phase", p.String(), "tasks", len(s.queues[p]))
		for i := 0; i < len(s.queues[p]); i++ {
			t := s.queues[p][i]
			if dep := t.Dependency(); dep.Entity != "" {
				if _, err := ctx.Entity(dep.Entity); err != nil {
					return fmt.Errorf("%s phase: %w", p, err)
				}
			}
			if err := t.Run(ctx); err != nil {
				return fmt.Errorf("%s phase: %w", p, err)
			}
		}
		s.queues[p] = nil
		s.drained[p] = true
	}
	return nil
}

func taskOwner(t Task) string {
	if o, ok := t.(ownedTask); ok {
		return o.Owner()
	}
	return ""
}

// sortKeyTasks orders tasks so that the key foreign keys of an entity are
// linked after the key foreign keys of the entities it references. The
// result is deterministic: when multiple tasks are ready, the one
// registered first runs first.
func sortKeyTasks(tasks []Task) ([]Task, error) {
	n := len(tasks)
	if n <= 1 {
		return tasks, nil
	}
	indeg := make([]int, n)
	out := make([][]int, n)
	for i, t := range tasks {
		owner := taskOwner(t)
		deps := []string{t.Dependency().Entity}
		kc, copies := t.(keyCopier)
		if copies {
			deps = kc.KeySources()
		}
		for j, u := range tasks {
			o := taskOwner(u)
			if i == j || o == "" || !slices.Contains(deps, o) {
				continue
			}
			// Key copies also wait for the key tasks of their own entity.
			if o == owner && !copies {
				continue
			}
			indeg[i]++
			out[j] = append(out[j], i)
		}
	}
	var ready []int
	for i := range n {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}
	order := make([]Task, 0, n)
	for len(ready) > 0 {
		i := ready[0]
		ready = ready[1:]
		order = append(order, tasks[i])
		for _, j := range out[i] {
			indeg[j]--
			if indeg[j] == 0 {
				k := sort.SearchInts(ready, j)
				ready = slices.Insert(ready, k, j)
			}
		}
	}
	if len(order) != n {
		var cycle []string
		for i := range n {
			if indeg[i] > 0 && !slices.Contains(cycle, taskOwner(tasks[i])) {
				cycle = append(cycle, taskOwner(tasks[i]))
			}
		}
		return nil, errorf(CircularKeyDependency, cycle[0], "", "", "composite identifiers reference each other: %s", strings.Join(cycle, " -> "))
	}
	return order, nil
}
