package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syssam/relmap/compiler/bind"
	"github.com/syssam/relmap/compiler/export"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [file]",
		Short: "Validate declarations without printing the schema",
		Long: `Check resolves the declarations and lints the exported schema.
Warnings are printed to stderr; resolution or schema errors fail the command.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd)
			g, err := buildGraph(cmd, cfg, args)
			if err != nil {
				if kind, ok := bind.KindOf(err); ok {
					return fmt.Errorf("resolution failed (%s): %w", kind, err)
				}
				return err
			}
			realm, err := export.Realm(g, cfg.SchemaName)
			if err != nil {
				return err
			}
			result := export.Validate(realm)
			for _, w := range result.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}
			if result.HasErrors() {
				errs := make([]error, len(result.Errors))
				for i, e := range result.Errors {
					errs[i] = e
				}
				return fmt.Errorf("schema validation failed: %w", errors.Join(errs...))
			}
			var fks, logical int
			for _, t := range g.Tables() {
				for _, fk := range t.ForeignKeys {
					fks++
					if fk.ConstraintDisabled {
						logical++
					}
				}
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "ok: %d entities, %d tables, %d foreign keys (%d logical)\n",
				g.Len(), len(g.Tables()), fks, logical)
			return err
		},
	}
}
