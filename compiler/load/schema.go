// Package load decodes relmap entity declarations.
//
// Declarations are immutable records produced by a reading layer (JSON or
// YAML documents) and consumed by the binder. They carry no resolved state.
package load

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/syssam/relmap/dialect/sqlschema"
)

// Property kinds.
const (
	KindBasic      = "basic"
	KindEmbedded   = "embedded"
	KindManyToOne  = "many_to_one"
	KindOneToOne   = "one_to_one"
	KindOneToMany  = "one_to_many"
	KindManyToMany = "many_to_many"
)

// Inheritance strategies.
const (
	SingleTable = "single_table"
	Joined      = "joined"
)

// Schema is a set of entity declarations loaded from a document.
type Schema struct {
	Entities  []*Entity   `json:"entities,omitempty" yaml:"entities,omitempty"`
	Overrides []*Override `json:"overrides,omitempty" yaml:"overrides,omitempty"`
}

// Entity declares a mapped type.
type Entity struct {
	Name string `json:"name" yaml:"name"`
	// Table is optional. The naming strategy derives it from Name if empty.
	Table string `json:"table,omitempty" yaml:"table,omitempty"`
	// Extends names the superclass entity.
	Extends     string `json:"extends,omitempty" yaml:"extends,omitempty"`
	Inheritance string `json:"inheritance,omitempty" yaml:"inheritance,omitempty"`
	// IDName names a composite identifier. Defaults to "id".
	IDName          string            `json:"id_name,omitempty" yaml:"id_name,omitempty"`
	ID              []*Property       `json:"id,omitempty" yaml:"id,omitempty"`
	Properties      []*Property       `json:"properties,omitempty" yaml:"properties,omitempty"`
	SecondaryTables []*SecondaryTable `json:"secondary_tables,omitempty" yaml:"secondary_tables,omitempty"`
}

// Property declares an attribute or an association of an entity.
type Property struct {
	Name string `json:"name" yaml:"name"`
	// Kind defaults to "basic".
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`
	// Columns of a basic property. A single implicit column is used if empty.
	Columns []*Column `json:"columns,omitempty" yaml:"columns,omitempty"`
	// Properties of an embedded property.
	Properties []*Property `json:"properties,omitempty" yaml:"properties,omitempty"`
	// Target entity of an association.
	Target             string        `json:"target,omitempty" yaml:"target,omitempty"`
	JoinColumns        []*JoinColumn `json:"join_columns,omitempty" yaml:"join_columns,omitempty"`
	InverseJoinColumns []*JoinColumn `json:"inverse_join_columns,omitempty" yaml:"inverse_join_columns,omitempty"`
	JoinTable          *JoinTable    `json:"join_table,omitempty" yaml:"join_table,omitempty"`
	MappedBy           string        `json:"mapped_by,omitempty" yaml:"mapped_by,omitempty"`
	// Table names the secondary table the property is mapped to.
	Table     string `json:"table,omitempty" yaml:"table,omitempty"`
	NaturalID bool   `json:"natural_id,omitempty" yaml:"natural_id,omitempty"`
	Optional  bool   `json:"optional,omitempty" yaml:"optional,omitempty"`
	// Insertable and Updatable default to true.
	Insertable *bool                 `json:"insertable,omitempty" yaml:"insertable,omitempty"`
	Updatable  *bool                 `json:"updatable,omitempty" yaml:"updatable,omitempty"`
	ForeignKey *sqlschema.ForeignKey `json:"foreign_key,omitempty" yaml:"foreign_key,omitempty"`
	// Type is an opaque type name handed to the type resolver.
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
}

// Column declares a physical column of a basic property.
type Column struct {
	Name     string `json:"name" yaml:"name"`
	Nullable bool   `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	SQLType  string `json:"sql_type,omitempty" yaml:"sql_type,omitempty"`
}

// JoinColumn declares a referencing column and, optionally, the name of the
// referenced column in the target table.
type JoinColumn struct {
	Name             string `json:"name,omitempty" yaml:"name,omitempty"`
	ReferencedColumn string `json:"referenced_column,omitempty" yaml:"referenced_column,omitempty"`
	Nullable         *bool  `json:"nullable,omitempty" yaml:"nullable,omitempty"`
}

// JoinTable declares the table of a many-to-many association.
type JoinTable struct {
	Name              string                `json:"name,omitempty" yaml:"name,omitempty"`
	ForeignKey        *sqlschema.ForeignKey `json:"foreign_key,omitempty" yaml:"foreign_key,omitempty"`
	InverseForeignKey *sqlschema.ForeignKey `json:"inverse_foreign_key,omitempty" yaml:"inverse_foreign_key,omitempty"`
}

// SecondaryTable declares an additional table of an entity.
type SecondaryTable struct {
	Name string `json:"name" yaml:"name"`
	// KeyColumns name the key columns. They default to the primary key names.
	KeyColumns []string              `json:"key_columns,omitempty" yaml:"key_columns,omitempty"`
	ForeignKey *sqlschema.ForeignKey `json:"foreign_key,omitempty" yaml:"foreign_key,omitempty"`
}

// Override attaches a foreign key directive to a qualified property path.
type Override struct {
	Path       string                `json:"path" yaml:"path"`
	ForeignKey *sqlschema.ForeignKey `json:"foreign_key,omitempty" yaml:"foreign_key,omitempty"`
}

// UnmarshalSchema decodes the given JSON buffer to a loaded schema.
func UnmarshalSchema(buf []byte) (*Schema, error) {
	s := &Schema{}
	if err := json.Unmarshal(buf, s); err != nil {
		return nil, err
	}
	s.Defaults()
	return s, nil
}

// UnmarshalYAML decodes the given YAML buffer to a loaded schema.
func UnmarshalYAML(buf []byte) (*Schema, error) {
	s := &Schema{}
	if err := yaml.Unmarshal(buf, s); err != nil {
		return nil, err
	}
	s.Defaults()
	return s, nil
}

// ReadFile decodes the declarations file at path. Files with a ".json"
// extension are decoded as JSON, anything else as YAML.
func ReadFile(path string) (*Schema, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	decode := UnmarshalYAML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		decode = UnmarshalSchema
	}
	s, err := decode(buf)
	if err != nil {
		return nil, fmt.Errorf("load: decode %s: %w", path, err)
	}
	return s, nil
}

// Entity returns the entity declaration with the given name.
func (s *Schema) Entity(name string) (*Entity, bool) {
	for _, e := range s.Entities {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}

// Defaults fills in the default values of the declarations. It is
// idempotent and is called by the decoders.
func (s *Schema) Defaults() {
	for _, e := range s.Entities {
		for _, p := range e.ID {
			p.defaults()
		}
		for _, p := range e.Properties {
			p.defaults()
		}
	}
}

func (p *Property) defaults() {
	if p.Kind == "" {
		p.Kind = KindBasic
	}
	for _, c := range p.Properties {
		c.defaults()
	}
}

// IsInsertable reports if the property columns are insertable.
func (p *Property) IsInsertable() bool { return p.Insertable == nil || *p.Insertable }

// IsUpdatable reports if the property columns are updatable.
func (p *Property) IsUpdatable() bool { return p.Updatable == nil || *p.Updatable }

// IsAssociation reports if the property references another entity.
func (p *Property) IsAssociation() bool {
	switch p.Kind {
	case KindManyToOne, KindOneToOne, KindOneToMany, KindManyToMany:
		return true
	default:
		return false
	}
}

// IsCollection reports if the property is a to-many association.
func (p *Property) IsCollection() bool {
	return p.Kind == KindOneToMany || p.Kind == KindManyToMany
}

// IsNullable reports if the join column accepts NULL. Defaults to true.
func (c *JoinColumn) IsNullable() bool { return c.Nullable == nil || *c.Nullable }

// ReferencedColumns returns the referenced column names, or nil if none of
// the join columns names one.
func ReferencedColumns(columns []*JoinColumn) []string {
	var names []string
	for _, c := range columns {
		if c.ReferencedColumn != "" {
			names = append(names, c.ReferencedColumn)
		}
	}
	return names
}

// Validate checks the structural well-formedness of the declarations.
// It does not resolve references between entities beyond their names.
func (s *Schema) Validate() error {
	seen := make(map[string]bool, len(s.Entities))
	for _, e := range s.Entities {
		if e.Name == "" {
			return fmt.Errorf("load: entity with empty name")
		}
		if seen[e.Name] {
			return fmt.Errorf("load: duplicate entity %q", e.Name)
		}
		seen[e.Name] = true
	}
	for _, e := range s.Entities {
		if err := s.validateEntity(e, seen); err != nil {
			return fmt.Errorf("load: entity %q: %w", e.Name, err)
		}
	}
	for _, o := range s.Overrides {
		if o.Path == "" {
			return fmt.Errorf("load: override with empty path")
		}
		if err := o.ForeignKey.Validate(); err != nil {
			return fmt.Errorf("load: override %q: %w", o.Path, err)
		}
	}
	return nil
}

func (s *Schema) validateEntity(e *Entity, entities map[string]bool) error {
	switch e.Inheritance {
	case "", SingleTable, Joined:
	default:
		return fmt.Errorf("unknown inheritance %q", e.Inheritance)
	}
	if e.Extends != "" {
		if !entities[e.Extends] {
			return fmt.Errorf("unknown superclass %q", e.Extends)
		}
		if len(e.ID) > 0 {
			return fmt.Errorf("subclass cannot declare an identifier")
		}
	} else if len(e.ID) == 0 {
		return fmt.Errorf("missing identifier")
	}
	tables := make(map[string]bool, len(e.SecondaryTables))
	for _, st := range e.SecondaryTables {
		if st.Name == "" {
			return fmt.Errorf("secondary table with empty name")
		}
		tables[st.Name] = true
	}
	for _, p := range e.ID {
		if p.Kind != KindBasic && p.Kind != KindManyToOne {
			return fmt.Errorf("identifier property %q: unsupported kind %q", p.Name, p.Kind)
		}
		if err := validateProperty(p, entities, nil); err != nil {
			return err
		}
	}
	names := make(map[string]bool, len(e.Properties))
	for _, p := range e.Properties {
		if names[p.Name] {
			return fmt.Errorf("duplicate property %q", p.Name)
		}
		names[p.Name] = true
		if err := validateProperty(p, entities, tables); err != nil {
			return err
		}
	}
	return nil
}

func validateProperty(p *Property, entities, tables map[string]bool) error {
	if p.Name == "" {
		return fmt.Errorf("property with empty name")
	}
	if p.Table != "" && !tables[p.Table] {
		return fmt.Errorf("property %q: unknown secondary table %q", p.Name, p.Table)
	}
	if err := p.ForeignKey.Validate(); err != nil {
		return fmt.Errorf("property %q: %w", p.Name, err)
	}
	switch p.Kind {
	case KindBasic:
		if p.Target != "" {
			return fmt.Errorf("property %q: basic property with target", p.Name)
		}
	case KindEmbedded:
		if len(p.Properties) == 0 {
			return fmt.Errorf("property %q: embedded property without properties", p.Name)
		}
		for _, c := range p.Properties {
			if c.IsCollection() || c.MappedBy != "" {
				return fmt.Errorf("property %q: embedded %q must be basic, embedded or an owning to-one", p.Name, c.Name)
			}
			if err := validateProperty(c, entities, tables); err != nil {
				return fmt.Errorf("property %q: %w", p.Name, err)
			}
		}
	case KindManyToOne, KindOneToOne, KindOneToMany, KindManyToMany:
		if p.Target == "" {
			return fmt.Errorf("property %q: missing target", p.Name)
		}
		if p.MappedBy != "" && p.Kind == KindManyToOne {
			return fmt.Errorf("property %q: many-to-one cannot be mapped by another property", p.Name)
		}
		if jt := p.JoinTable; jt != nil {
			if err := jt.ForeignKey.Validate(); err != nil {
				return fmt.Errorf("property %q: %w", p.Name, err)
			}
			if err := jt.InverseForeignKey.Validate(); err != nil {
				return fmt.Errorf("property %q: %w", p.Name, err)
			}
		}
	default:
		return fmt.Errorf("property %q: unknown kind %q", p.Name, p.Kind)
	}
	return nil
}
