package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderTables prints the columns of all tables followed by their foreign keys.
func renderTables(w io.Writer, views []tableView) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Table", "Column", "Type", "Null", "Key"})
	var fks int
	for _, v := range views {
		for _, c := range v.Columns {
			t.AppendRow(table.Row{v.Name, c.Name, c.Type, yesNo(c.Nullable), keyFlags(v, c.Name)})
		}
		t.AppendSeparator()
		fks += len(v.ForeignKeys)
	}
	t.Render()
	if fks == 0 {
		_, _ = fmt.Fprintln(w, "(0 foreign keys)")
		return
	}

	t = table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Table", "Foreign Key", "Columns", "References", "On Delete"})
	for _, v := range views {
		for _, fk := range v.ForeignKeys {
			name := fk.Name
			if fk.Logical {
				name = "(logical)"
			}
			ref := fmt.Sprintf("%s(%s)", fk.RefTable, strings.Join(fk.RefColumns, ", "))
			t.AppendRow(table.Row{v.Name, name, strings.Join(fk.Columns, ", "), ref, fk.OnDelete})
		}
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d foreign keys)\n", fks)
}

func keyFlags(v tableView, column string) string {
	var flags []string
	if v.PrimaryKey != nil && slices.Contains(v.PrimaryKey.Columns, column) {
		flags = append(flags, "PK")
	}
	for _, uk := range v.UniqueKeys {
		if slices.Contains(uk.Columns, column) {
			flags = append(flags, "UK")
			break
		}
	}
	for _, fk := range v.ForeignKeys {
		if slices.Contains(fk.Columns, column) {
			flags = append(flags, "FK")
			break
		}
	}
	return strings.Join(flags, ",")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
