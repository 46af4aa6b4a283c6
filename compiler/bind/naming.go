package bind

import (
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
)

// Naming derives implicit physical names. It is consulted only for names
// the declarations leave out.
type Naming interface {
	// TableName returns the table name of an entity.
	TableName(entity string) string
	// ColumnName returns the column name of a basic property.
	ColumnName(property string) string
	// JoinColumnName returns the name of a referencing column built from
	// the association name and the referenced column.
	JoinColumnName(association, referenced string) string
	// JoinTableName returns the name of a many-to-many join table.
	JoinTableName(ownerTable, property string) string
	// PrimaryKeyName returns the primary key constraint name.
	PrimaryKeyName(table string) string
	// ForeignKeyName returns the foreign key constraint name.
	ForeignKeyName(table string, columns []string) string
	// UniqueKeyName returns the unique key constraint name.
	UniqueKeyName(table string, columns []string) string
}

// DefaultNaming is the default naming strategy: snake_case plural table
// names and <association>_<column> join columns.
type DefaultNaming struct{}

var rules = ruleset()

func ruleset() *inflect.Ruleset {
	rules := inflect.NewDefaultRuleset()
	for _, w := range []string{"ACL", "API", "ASCII", "DB", "HTML", "HTTP", "ID", "JSON", "SQL", "UID", "URL", "UUID", "XML"} {
		rules.AddAcronym(w)
	}
	return rules
}

// TableName implements the Naming interface.
func (DefaultNaming) TableName(entity string) string {
	return snake(rules.Pluralize(entity))
}

// ColumnName implements the Naming interface.
func (DefaultNaming) ColumnName(property string) string {
	return snake(strings.ReplaceAll(property, ".", "_"))
}

// JoinColumnName implements the Naming interface.
func (DefaultNaming) JoinColumnName(association, referenced string) string {
	return snake(association) + "_" + referenced
}

// JoinTableName implements the Naming interface.
func (DefaultNaming) JoinTableName(ownerTable, property string) string {
	return ownerTable + "_" + snake(property)
}

// PrimaryKeyName implements the Naming interface.
func (DefaultNaming) PrimaryKeyName(table string) string {
	return table + "_pkey"
}

// ForeignKeyName implements the Naming interface.
func (DefaultNaming) ForeignKeyName(table string, columns []string) string {
	return strings.Join(append([]string{"fk", table}, columns...), "_")
}

// UniqueKeyName implements the Naming interface.
func (DefaultNaming) UniqueKeyName(table string, columns []string) string {
	return strings.Join(append([]string{"uk", table}, columns...), "_")
}

// snake converts the given struct or field name into a snake_case.
//
//	Username => username
//	FullName => full_name
//	HTTPCode => http_code
func snake(s string) string {
	var (
		j int
		b strings.Builder
	)
	for i := 0; i < len(s); i++ {
		r := rune(s[i])
		// Put '_' if it is not a start or end of a word, current letter is uppercase,
		// and previous is lowercase (cases like: "UserInfo"), or next letter is also
		// a lowercase and previous letter is not "_".
		if i > 0 && i < len(s)-1 && unicode.IsUpper(r) {
			if unicode.IsLower(rune(s[i-1])) ||
				j != i-1 && unicode.IsLower(rune(s[i+1])) && unicode.IsLetter(rune(s[i-1])) {
				j = i
				b.WriteString("_")
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
