// Package graph provides the relational mapping graph built by relmap.
//
// The graph is the mutable output of a build: entities, their tables and
// columns, and the values that map properties onto those columns. It only
// ever grows during a build; structure attached by one resolution step is
// never removed by a later one.
//
// # Graph Structure
//
// The Graph type holds all entity definitions keyed by name, in insertion
// order, plus every table created along the way (entity tables, secondary
// tables and join tables):
//
//	type Graph struct {
//	    entities map[string]*Entity
//	    tables   map[string]*Table
//	}
//
// # Entity Representation
//
// Each Entity represents a mapped type with its own identity:
//
//	type Entity struct {
//	    Name       string       // Entity name (e.g., "User")
//	    Table      *Table       // Primary table
//	    Identifier *Property    // Basic or composite identifier
//	    Properties []*Property  // Declared and synthetic properties
//	    Superclass *Entity      // Optional superclass link
//	    Joins      []*Join      // Secondary tables
//	}
//
// # Values
//
// Every property holds a Value. The set of value kinds is closed:
//
//   - Basic: one or more plain columns
//   - ToOne: columns referencing another entity (many-to-one, one-to-one)
//   - Collection: a keyed collection living in another table
//   - Component: an ordered aggregate of child properties
//
// Callers distinguish kinds with an exhaustive type switch:
//
//	switch v := p.Value.(type) {
//	case *graph.Basic:
//	case *graph.ToOne:
//	case *graph.Collection:
//	case *graph.Component:
//	}
//
// Columns returned by a Value are always in declaration order, and the
// property order inside a Component is stable. Both orders are relied upon
// when foreign keys pair referencing and referenced columns.
package graph
