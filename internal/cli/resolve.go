package cli

import (
	"errors"
	"fmt"

	"ariga.io/atlas/sql/schema"
	"github.com/spf13/cobra"

	"github.com/syssam/relmap/compiler/bind"
	"github.com/syssam/relmap/compiler/export"
	"github.com/syssam/relmap/compiler/load"
	"github.com/syssam/relmap/graph"
	"github.com/syssam/relmap/internal/config"
)

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve [file]",
		Short: "Resolve declarations and print the physical schema",
		Long: `Resolve binds the declarations and prints every table with its columns,
keys and foreign keys. Foreign keys kept logical by a no-constraint
directive are listed but marked as logical.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd)
			g, err := buildGraph(cmd, cfg, args)
			if err != nil {
				return err
			}
			realm, err := export.Realm(g, cfg.SchemaName)
			if err != nil {
				return err
			}
			views := tableViews(realm.Schemas[0], g)
			if cfg.Output == "json" {
				return renderJSON(cmd.OutOrStdout(), views)
			}
			renderTables(cmd.OutOrStdout(), views)
			return nil
		},
	}
}

// buildGraph reads the declarations named on the command line, or in the
// configuration, and binds them.
func buildGraph(cmd *cobra.Command, cfg *config.Config, args []string) (*graph.Graph, error) {
	path := cfg.Schema
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return nil, errors.New("no declarations file: pass one as argument or set schema in relmap.yaml")
	}
	s, err := load.ReadFile(path)
	if err != nil {
		return nil, err
	}
	opts, err := cfg.BuildOptions(cfg.Logger(cmd.ErrOrStderr()))
	if err != nil {
		return nil, err
	}
	return bind.Build(s, opts...)
}

type (
	tableView struct {
		Name        string           `json:"name"`
		Columns     []columnView     `json:"columns"`
		PrimaryKey  *keyView         `json:"primary_key,omitempty"`
		UniqueKeys  []keyView        `json:"unique_keys,omitempty"`
		ForeignKeys []foreignKeyView `json:"foreign_keys,omitempty"`
	}
	columnView struct {
		Name     string `json:"name"`
		Type     string `json:"type,omitempty"`
		Nullable bool   `json:"nullable"`
	}
	keyView struct {
		Name    string   `json:"name,omitempty"`
		Columns []string `json:"columns"`
	}
	foreignKeyView struct {
		Name       string   `json:"name,omitempty"`
		Columns    []string `json:"columns"`
		RefTable   string   `json:"ref_table"`
		RefColumns []string `json:"ref_columns"`
		OnDelete   string   `json:"on_delete,omitempty"`
		OnUpdate   string   `json:"on_update,omitempty"`
		// Logical keys are not emitted as constraints.
		Logical bool `json:"logical,omitempty"`
	}
)

// tableViews describes the exported tables of s. Logical foreign keys are
// taken from the graph, as the exported schema leaves them out.
func tableViews(s *schema.Schema, g *graph.Graph) []tableView {
	views := make([]tableView, 0, len(s.Tables))
	for _, t := range s.Tables {
		v := tableView{Name: t.Name}
		for _, c := range t.Columns {
			v.Columns = append(v.Columns, columnView{Name: c.Name, Type: typeName(c), Nullable: c.Type != nil && c.Type.Null})
		}
		if t.PrimaryKey != nil {
			v.PrimaryKey = &keyView{Name: t.PrimaryKey.Name, Columns: partNames(t.PrimaryKey.Parts)}
		}
		for _, idx := range t.Indexes {
			if idx.Unique {
				v.UniqueKeys = append(v.UniqueKeys, keyView{Name: idx.Name, Columns: partNames(idx.Parts)})
			}
		}
		for _, fk := range t.ForeignKeys {
			v.ForeignKeys = append(v.ForeignKeys, foreignKeyView{
				Name:       fk.Symbol,
				Columns:    columnNames(fk.Columns),
				RefTable:   fk.RefTable.Name,
				RefColumns: columnNames(fk.RefColumns),
				OnDelete:   string(fk.OnDelete),
				OnUpdate:   string(fk.OnUpdate),
			})
		}
		if gt, ok := g.Table(t.Name); ok {
			for _, fk := range gt.ForeignKeys {
				if !fk.ConstraintDisabled {
					continue
				}
				v.ForeignKeys = append(v.ForeignKeys, foreignKeyView{
					Columns:    graph.ColumnNames(fk.Columns),
					RefTable:   fk.ReferencedTable.Name,
					RefColumns: graph.ColumnNames(fk.ReferencedColumns),
					Logical:    true,
				})
			}
		}
		views = append(views, v)
	}
	return views
}

func typeName(c *schema.Column) string {
	if c.Type == nil || c.Type.Type == nil {
		return ""
	}
	if u, ok := c.Type.Type.(*schema.UnsupportedType); ok {
		return u.T
	}
	return fmt.Sprintf("%T", c.Type.Type)
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

func columnNames(cols []*schema.Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}
