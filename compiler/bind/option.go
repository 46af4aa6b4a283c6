package bind

import (
	"log/slog"

	"github.com/syssam/relmap/dialect/sqlschema"
)

// TypeResolver resolves declared type names of basic properties. It is
// called synchronously while values are constructed.
type TypeResolver interface {
	ResolveType(name string) (any, error)
}

// TypeResolverFunc adapts a function to the TypeResolver interface.
type TypeResolverFunc func(name string) (any, error)

// ResolveType implements the TypeResolver interface.
func (f TypeResolverFunc) ResolveType(name string) (any, error) { return f(name) }

// Options of a build.
type Options struct {
	// Logger receives debug records of the resolution phases.
	Logger *slog.Logger
	// DefaultConstraintMode applies to foreign keys without a directive.
	DefaultConstraintMode sqlschema.ConstraintMode
	// Naming derives implicit names.
	Naming Naming
	// Types resolves declared type names. Optional.
	Types TypeResolver
}

// Option configures a build.
type Option func(*Options) error

func defaultOptions() *Options {
	return &Options{
		Logger:                slog.New(slog.DiscardHandler),
		DefaultConstraintMode: sqlschema.Constraint,
		Naming:                DefaultNaming{},
	}
}

// WithLogger sets the logger of the build.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) error {
		if l == nil {
			return NewConfigError("Logger", nil, "logger cannot be nil")
		}
		o.Logger = l
		return nil
	}
}

// WithDefaultConstraintMode sets the constraint mode of foreign keys that
// carry no directive. Use sqlschema.NoConstraintMode to keep keys logical.
func WithDefaultConstraintMode(m sqlschema.ConstraintMode) Option {
	return func(o *Options) error {
		switch m {
		case sqlschema.Constraint, sqlschema.NoConstraintMode:
			o.DefaultConstraintMode = m
			return nil
		case sqlschema.ProviderDefault:
			return NewConfigError("DefaultConstraintMode", nil, "mode cannot be empty")
		default:
			return NewConfigError("DefaultConstraintMode", m, "unknown mode; use constraint or no_constraint")
		}
	}
}

// WithNaming sets the naming strategy.
func WithNaming(n Naming) Option {
	return func(o *Options) error {
		if n == nil {
			return NewConfigError("Naming", nil, "naming strategy cannot be nil")
		}
		o.Naming = n
		return nil
	}
}

// WithTypeResolver sets the resolver of declared type names.
func WithTypeResolver(r TypeResolver) Option {
	return func(o *Options) error {
		if r == nil {
			return NewConfigError("TypeResolver", nil, "type resolver cannot be nil")
		}
		o.Types = r
		return nil
	}
}
