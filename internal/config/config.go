// Package config loads relmap CLI settings from defaults, a YAML file,
// RELMAP_ environment variables and command-line flags.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/syssam/relmap/compiler/bind"
	"github.com/syssam/relmap/dialect/sqlschema"
)

// Default values.
const (
	DefaultFile       = "relmap.yaml"
	DefaultOutput     = "table"
	DefaultSchemaName = "public"
	envPrefix         = "RELMAP_"
)

// Config holds the CLI settings.
type Config struct {
	// Schema is the path of the declarations document.
	Schema string `koanf:"schema"`
	// Output format: table or json.
	Output string `koanf:"output"`
	// ConstraintMode is the default constraint mode of foreign keys.
	ConstraintMode string `koanf:"constraint_mode"`
	// SchemaName names the exported database schema.
	SchemaName string `koanf:"schema_name"`
	Verbose    bool   `koanf:"verbose"`

	// File is the config file that was loaded, if any.
	File string `koanf:"-"`
}

// Load reads the configuration. Precedence, from highest to lowest: flags
// that were set, environment variables, the config file, defaults. An empty
// cfgFile loads ./relmap.yaml when present.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(map[string]any{
		"output":          DefaultOutput,
		"constraint_mode": string(sqlschema.Constraint),
		"schema_name":     DefaultSchemaName,
		"verbose":         false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if cfgFile == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			cfgFile = DefaultFile
		}
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// RELMAP_CONSTRAINT_MODE -> constraint_mode
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if key == "no_constraints" {
				if v, _ := flags.GetBool(f.Name); v {
					return "constraint_mode", string(sqlschema.NoConstraintMode)
				}
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = cfgFile
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the option values.
func (c *Config) Validate() error {
	switch c.Output {
	case "table", "json":
	default:
		return fmt.Errorf("config: unknown output format %q (use table or json)", c.Output)
	}
	if _, err := sqlschema.ParseConstraintMode(c.ConstraintMode); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Logger returns the logger of the build: debug records on w when verbose,
// nothing otherwise.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	if !c.Verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// BuildOptions returns the build options matching the configuration.
func (c *Config) BuildOptions(logger *slog.Logger) ([]bind.Option, error) {
	opts := []bind.Option{bind.WithLogger(logger)}
	mode, err := sqlschema.ParseConstraintMode(c.ConstraintMode)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if mode != sqlschema.ProviderDefault {
		opts = append(opts, bind.WithDefaultConstraintMode(mode))
	}
	return opts, nil
}
