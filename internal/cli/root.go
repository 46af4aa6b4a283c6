// Package cli provides the relmap command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/syssam/relmap/internal/config"
)

// Version information (set at build time).
var Version = "0.1.0"

// configKey is used to store the config in the command context.
type configKey struct{}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string
	root := &cobra.Command{
		Use:   "relmap",
		Short: "Resolve relational mapping declarations into a schema",
		Long: `relmap binds entity declarations to tables, columns and keys.

It resolves associations, composite keys, references to non-key columns,
inverse sides and secondary tables, and reports the resulting physical schema.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			if cfg.Verbose && cfg.File != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Using config file: %s\n", cfg.File)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./relmap.yaml)")
	flags.StringP("schema", "s", "", "Path to the declarations file (.yaml or .json)")
	flags.StringP("output", "o", "", "Output format (table|json)")
	flags.String("schema-name", "", "Name of the exported database schema")
	flags.Bool("no-constraints", false, "Keep foreign keys without a directive logical")
	flags.BoolP("verbose", "v", false, "Print resolution records to stderr")

	_ = root.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(newResolveCmd())
	root.AddCommand(newCheckCmd())
	return root
}

// Execute runs the root command.
func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func configFrom(cmd *cobra.Command) *config.Config {
	if cfg, ok := cmd.Context().Value(configKey{}).(*config.Config); ok {
		return cfg
	}
	return &config.Config{Output: config.DefaultOutput, SchemaName: config.DefaultSchemaName}
}
