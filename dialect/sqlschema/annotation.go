// Package sqlschema provides SQL-specific foreign key directives for relmap
// declarations.
//
// A directive may be attached at three places of a declaration, and the
// most specific non-empty one wins when a foreign key is linked:
//
//  1. the join columns of an association (Property.ForeignKey)
//  2. the join table of a collection (JoinTable.ForeignKey / InverseForeignKey)
//  3. a property override addressed by qualified path (Override.ForeignKey)
//
// When none of them is set, the build's default constraint mode applies.
//
// # API Styles
//
// Functional style:
//
//	sqlschema.Named("fk_posts_author")
//	sqlschema.NoConstraint()
//	sqlschema.OnDelete(sqlschema.Cascade)
//
// Struct literal style:
//
//	&sqlschema.ForeignKey{
//	    Name:     "fk_posts_author",
//	    OnDelete: sqlschema.Cascade,
//	}
//
// In YAML declarations:
//
//	foreign_key:
//	  name: fk_posts_author
//	  on_delete: CASCADE
//
// # Cascade Actions
//
// Available constants for OnDelete and OnUpdate:
//
//	sqlschema.Cascade    - Delete/update related rows
//	sqlschema.SetNull    - Set foreign key to NULL
//	sqlschema.Restrict   - Prevent delete/update if related rows exist
//	sqlschema.SetDefault - Set foreign key to default value
//	sqlschema.NoAction   - No action (database default)
package sqlschema

import "fmt"

// CascadeAction defines cascade behavior for foreign key constraints.
type CascadeAction string

const (
	Cascade    CascadeAction = "CASCADE"
	SetNull    CascadeAction = "SET NULL"
	Restrict   CascadeAction = "RESTRICT"
	SetDefault CascadeAction = "SET DEFAULT"
	NoAction   CascadeAction = "NO ACTION"
)

// Validate reports an error for unknown actions. The empty action is valid.
func (a CascadeAction) Validate() error {
	switch a {
	case "", Cascade, SetNull, Restrict, SetDefault, NoAction:
		return nil
	default:
		return fmt.Errorf("sqlschema: unknown cascade action %q", string(a))
	}
}

// ConstraintMode controls whether a foreign key is emitted as a physical
// constraint.
type ConstraintMode string

const (
	// ProviderDefault defers to the build's default constraint mode.
	ProviderDefault ConstraintMode = ""
	// Constraint always emits the constraint.
	Constraint ConstraintMode = "constraint"
	// NoConstraintMode keeps the key logical only.
	NoConstraintMode ConstraintMode = "no_constraint"
)

// ParseConstraintMode parses a mode name as found in configuration files.
func ParseConstraintMode(s string) (ConstraintMode, error) {
	switch m := ConstraintMode(s); m {
	case ProviderDefault, Constraint, NoConstraintMode:
		return m, nil
	case "default", "provider_default":
		return ProviderDefault, nil
	default:
		return "", fmt.Errorf("sqlschema: unknown constraint mode %q", s)
	}
}

// ForeignKey holds the constraint metadata of a foreign key directive.
type ForeignKey struct {
	// Name overrides the constraint name.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Definition is a raw constraint definition.
	Definition string `json:"definition,omitempty" yaml:"definition,omitempty"`

	// Options are extra constraint options (e.g. "DEFERRABLE").
	Options string `json:"options,omitempty" yaml:"options,omitempty"`

	// Mode controls whether the constraint is emitted.
	Mode ConstraintMode `json:"mode,omitempty" yaml:"mode,omitempty"`

	// OnDelete sets the ON DELETE cascade action.
	OnDelete CascadeAction `json:"on_delete,omitempty" yaml:"on_delete,omitempty"`

	// OnUpdate sets the ON UPDATE cascade action.
	OnUpdate CascadeAction `json:"on_update,omitempty" yaml:"on_update,omitempty"`
}

// Named returns a directive that sets the constraint name.
//
// Example:
//
//	load.Property{Name: "author", ForeignKey: sqlschema.Named("fk_posts_author")}
func Named(name string) *ForeignKey {
	return &ForeignKey{Name: name, Mode: Constraint}
}

// NoConstraint returns a directive that disables the physical constraint.
func NoConstraint() *ForeignKey {
	return &ForeignKey{Mode: NoConstraintMode}
}

// OnDelete returns a directive that sets the ON DELETE action.
func OnDelete(action CascadeAction) *ForeignKey {
	return &ForeignKey{OnDelete: action}
}

// OnUpdate returns a directive that sets the ON UPDATE action.
func OnUpdate(action CascadeAction) *ForeignKey {
	return &ForeignKey{OnUpdate: action}
}

// IsZero reports if the directive carries no information. A zero directive
// does not take part in the precedence chain.
func (fk *ForeignKey) IsZero() bool {
	return fk == nil || *fk == ForeignKey{}
}

// Disabled reports if the directive turns the constraint off, given the
// build's default mode.
func (fk *ForeignKey) Disabled(def ConstraintMode) bool {
	mode := ProviderDefault
	if fk != nil {
		mode = fk.Mode
	}
	if mode == ProviderDefault {
		mode = def
	}
	return mode == NoConstraintMode
}

// Validate checks the directive values.
func (fk *ForeignKey) Validate() error {
	if fk == nil {
		return nil
	}
	if _, err := ParseConstraintMode(string(fk.Mode)); err != nil {
		return err
	}
	if err := fk.OnDelete.Validate(); err != nil {
		return err
	}
	return fk.OnUpdate.Validate()
}

// Merge combines multiple directives into one.
// Later directives override earlier ones for the same field.
func Merge(directives ...*ForeignKey) *ForeignKey {
	result := &ForeignKey{}
	for _, fk := range directives {
		if fk == nil {
			continue
		}
		if fk.Name != "" {
			result.Name = fk.Name
		}
		if fk.Definition != "" {
			result.Definition = fk.Definition
		}
		if fk.Options != "" {
			result.Options = fk.Options
		}
		if fk.Mode != ProviderDefault {
			result.Mode = fk.Mode
		}
		if fk.OnDelete != "" {
			result.OnDelete = fk.OnDelete
		}
		if fk.OnUpdate != "" {
			result.OnUpdate = fk.OnUpdate
		}
	}
	return result
}
