package graph

import "fmt"

// Graph holds the resolved entities of a build and every table they map to.
// Entities are kept in insertion order and are never removed.
type Graph struct {
	entities map[string]*Entity
	order    []*Entity
	tables   map[string]*Table
	tableSeq []*Table
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		entities: make(map[string]*Entity),
		tables:   make(map[string]*Table),
	}
}

// Add adds an entity to the graph. Its tables are registered as well.
func (g *Graph) Add(e *Entity) error {
	if _, ok := g.entities[e.Name]; ok {
		return fmt.Errorf("graph: entity %q already exists", e.Name)
	}
	g.entities[e.Name] = e
	g.order = append(g.order, e)
	g.AddTable(e.Table)
	for _, j := range e.Joins {
		g.AddTable(j.Table)
	}
	return nil
}

// Lookup returns the entity with the given name.
func (g *Graph) Lookup(name string) (*Entity, bool) {
	e, ok := g.entities[name]
	return e, ok
}

// Entities returns the entities in insertion order.
func (g *Graph) Entities() []*Entity { return g.order }

// Len returns the number of entities.
func (g *Graph) Len() int { return len(g.order) }

// Table returns the table with the given name.
func (g *Graph) Table(name string) (*Table, bool) {
	t, ok := g.tables[name]
	return t, ok
}

// EnsureTable returns the table with the given name, creating it if needed.
func (g *Graph) EnsureTable(name string) *Table {
	if t, ok := g.tables[name]; ok {
		return t
	}
	t := NewTable(name)
	g.AddTable(t)
	return t
}

// AddTable registers a table. Tables are unique by name.
func (g *Graph) AddTable(t *Table) {
	if t == nil {
		return
	}
	if _, ok := g.tables[t.Name]; ok {
		return
	}
	g.tables[t.Name] = t
	g.tableSeq = append(g.tableSeq, t)
}

// Tables returns all tables in registration order.
func (g *Graph) Tables() []*Table { return g.tableSeq }
