package export

import (
	"fmt"
	"slices"
	"strings"

	"ariga.io/atlas/sql/schema"
)

// MaxIdentifierLen is the identifier length PostgreSQL keeps; longer names
// are silently truncated.
const MaxIdentifierLen = 63

// ValidationError represents an issue found in an exported schema.
type ValidationError struct {
	Table   string
	Column  string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s.%s: %s", e.Table, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Table, e.Message)
}

// ValidationResult holds the results of a validation.
type ValidationResult struct {
	Errors   []*ValidationError
	Warnings []*ValidationError
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// String returns a human-readable summary of the validation result.
func (r *ValidationResult) String() string {
	var sb strings.Builder
	write := func(title string, errs []*ValidationError) {
		if len(errs) == 0 {
			return
		}
		sb.WriteString(title)
		sb.WriteString(":\n")
		for _, e := range errs {
			sb.WriteString("  - ")
			sb.WriteString(e.Error())
			sb.WriteString("\n")
		}
	}
	write("Errors", r.Errors)
	write("Warnings", r.Warnings)
	if !r.HasErrors() && !r.HasWarnings() {
		sb.WriteString("No issues found")
	}
	return sb.String()
}

func (r *ValidationResult) errorf(table, column, format string, args ...any) {
	r.Errors = append(r.Errors, &ValidationError{Table: table, Column: column, Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResult) warnf(table, column, format string, args ...any) {
	r.Warnings = append(r.Warnings, &ValidationError{Table: table, Column: column, Message: fmt.Sprintf(format, args...)})
}

// Validate checks the schemas of an exported realm. Errors describe a schema
// the database would reject; warnings describe one it would accept with a
// surprise.
func Validate(r *schema.Realm) *ValidationResult {
	result := &ValidationResult{}
	for _, s := range r.Schemas {
		validateSchema(s, result)
	}
	return result
}

func validateSchema(s *schema.Schema, result *ValidationResult) {
	// Constraint and index names share one namespace per schema.
	names := make(map[string]string)
	claim := func(table, name string) {
		if name == "" {
			return
		}
		if long(name) {
			result.warnf(table, "", "constraint name %q exceeds %d bytes", name, MaxIdentifierLen)
		}
		if prev, ok := names[name]; ok {
			result.errorf(table, "", "constraint name %q is already used on table %s", name, prev)
			return
		}
		names[name] = table
	}
	for _, t := range s.Tables {
		if long(t.Name) {
			result.warnf(t.Name, "", "table name exceeds %d bytes", MaxIdentifierLen)
		}
		for _, c := range t.Columns {
			if long(c.Name) {
				result.warnf(t.Name, c.Name, "column name exceeds %d bytes", MaxIdentifierLen)
			}
		}
		if t.PrimaryKey == nil {
			result.warnf(t.Name, "", "table has no primary key")
		} else {
			claim(t.Name, t.PrimaryKey.Name)
		}
		for _, idx := range t.Indexes {
			claim(t.Name, idx.Name)
		}
		for _, fk := range t.ForeignKeys {
			claim(t.Name, fk.Symbol)
			validateForeignKey(t, fk, result)
		}
	}
}

func validateForeignKey(t *schema.Table, fk *schema.ForeignKey, result *ValidationResult) {
	name := fk.Symbol
	if name == "" {
		name = "(" + strings.Join(columnNames(fk.Columns), ", ") + ")"
	}
	if len(fk.Columns) != len(fk.RefColumns) {
		result.errorf(t.Name, "", "foreign key %s has %d columns but references %d", name, len(fk.Columns), len(fk.RefColumns))
		return
	}
	if fk.RefTable == nil {
		result.errorf(t.Name, "", "foreign key %s has no referenced table", name)
		return
	}
	if !referenceable(fk.RefTable, columnNames(fk.RefColumns)) {
		result.errorf(t.Name, "", "foreign key %s references %s(%s), which is neither its primary key nor unique",
			name, fk.RefTable.Name, strings.Join(columnNames(fk.RefColumns), ", "))
	}
	for i, c := range fk.Columns {
		ct, rt := rawType(c), rawType(fk.RefColumns[i])
		if ct != "" && rt != "" && !strings.EqualFold(ct, rt) {
			result.warnf(t.Name, c.Name, "type %s differs from referenced column %s.%s of type %s",
				ct, fk.RefTable.Name, fk.RefColumns[i].Name, rt)
		}
	}
}

// referenceable reports whether cols, in any order, form the primary key or
// a unique index of t.
func referenceable(t *schema.Table, cols []string) bool {
	keys := make([]*schema.Index, 0, len(t.Indexes)+1)
	if t.PrimaryKey != nil {
		keys = append(keys, t.PrimaryKey)
	}
	for _, idx := range t.Indexes {
		if idx.Unique {
			keys = append(keys, idx)
		}
	}
	want := slices.Sorted(slices.Values(cols))
	for _, k := range keys {
		if slices.Equal(want, slices.Sorted(slices.Values(partNames(k.Parts)))) {
			return true
		}
	}
	return false
}

func rawType(c *schema.Column) string {
	if c.Type == nil {
		return ""
	}
	if u, ok := c.Type.Type.(*schema.UnsupportedType); ok {
		return u.T
	}
	return c.Type.Raw
}

func long(name string) bool {
	return len(name) > MaxIdentifierLen
}

func columnNames(cols []*schema.Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

func partNames(parts []*schema.IndexPart) []string {
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p.C != nil {
			names = append(names, p.C.Name)
		}
	}
	return names
}
