package bind

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for reference resolution failures.
var (
	// ErrUnmappedReferencedColumn indicates a referenced column that no
	// property of the column owner maps.
	ErrUnmappedReferencedColumn = errors.New("relmap: unmapped referenced column")
	// ErrOutOfOrderColumn indicates referenced columns that do not follow the
	// column order of a multi-column property.
	ErrOutOfOrderColumn = errors.New("relmap: referenced column out of order")
	// ErrColumnAlreadyConsumed indicates a property matched twice by one
	// reference.
	ErrColumnAlreadyConsumed = errors.New("relmap: referenced column already consumed")
	// ErrAmbiguousColumnOwner indicates referenced columns spread over
	// several tables.
	ErrAmbiguousColumnOwner = errors.New("relmap: ambiguous referenced column owner")
	// ErrUnknownTargetEntity indicates a reference to an entity that is not
	// declared.
	ErrUnknownTargetEntity = errors.New("relmap: unknown target entity")
	// ErrInternalInvariant indicates a broken engine invariant.
	ErrInternalInvariant = errors.New("relmap: internal invariant violation")
	// ErrUnknownMappedBy indicates a mappedBy attribute naming no property
	// of the owning entity.
	ErrUnknownMappedBy = errors.New("relmap: unknown mapped-by property")
	// ErrCircularKeyDependency indicates foreign keys of composite
	// identifiers that depend on each other.
	ErrCircularKeyDependency = errors.New("relmap: circular key dependency")
	// ErrColumnCountMismatch indicates join columns whose count differs from
	// the referenced columns.
	ErrColumnCountMismatch = errors.New("relmap: join column count mismatch")
	// ErrInvalidOption indicates an invalid build option.
	ErrInvalidOption = errors.New("relmap: invalid option")
)

// Kind identifies the family of a ResolutionError.
type Kind uint8

// List of resolution error kinds.
const (
	UnmappedReferencedColumn Kind = iota + 1
	OutOfOrderColumn
	ColumnAlreadyConsumed
	AmbiguousColumnOwner
	UnknownTargetEntity
	InternalInvariantViolation
	UnknownMappedBy
	CircularKeyDependency
	ColumnCountMismatch
)

var kindSentinels = map[Kind]error{
	UnmappedReferencedColumn:   ErrUnmappedReferencedColumn,
	OutOfOrderColumn:           ErrOutOfOrderColumn,
	ColumnAlreadyConsumed:      ErrColumnAlreadyConsumed,
	AmbiguousColumnOwner:       ErrAmbiguousColumnOwner,
	UnknownTargetEntity:        ErrUnknownTargetEntity,
	InternalInvariantViolation: ErrInternalInvariant,
	UnknownMappedBy:            ErrUnknownMappedBy,
	CircularKeyDependency:      ErrCircularKeyDependency,
	ColumnCountMismatch:        ErrColumnCountMismatch,
}

// String returns the sentinel message of the kind.
func (k Kind) String() string {
	if err, ok := kindSentinels[k]; ok {
		return strings.TrimPrefix(err.Error(), "relmap: ")
	}
	return "unknown error"
}

// ResolutionError represents a failure to resolve a reference. It carries
// the entity, the property path and the column the failure is about.
type ResolutionError struct {
	Kind     Kind
	Entity   string
	Property string
	Column   string
	Message  string
	Cause    error
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	var b strings.Builder
	b.WriteString("relmap: ")
	b.WriteString(e.Kind.String())
	if e.Entity != "" {
		b.WriteString(" on entity ")
		b.WriteString(e.Entity)
	}
	if e.Property != "" {
		b.WriteString(" property ")
		b.WriteString(e.Property)
	}
	if e.Column != "" {
		b.WriteString(" column ")
		b.WriteString(e.Column)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error of the kind.
func (e *ResolutionError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// NewResolutionError creates a new ResolutionError.
func NewResolutionError(kind Kind, entity, property, column, message string) *ResolutionError {
	return &ResolutionError{
		Kind:     kind,
		Entity:   entity,
		Property: property,
		Column:   column,
		Message:  message,
	}
}

func errorf(kind Kind, entity, property, column, format string, args ...any) *ResolutionError {
	return NewResolutionError(kind, entity, property, column, fmt.Sprintf(format, args...))
}

// IsResolutionError reports whether the error is a ResolutionError.
func IsResolutionError(err error) bool {
	var resErr *ResolutionError
	return errors.As(err, &resErr)
}

// KindOf returns the kind of the first ResolutionError in the error chain.
func KindOf(err error) (Kind, bool) {
	var resErr *ResolutionError
	if errors.As(err, &resErr) {
		return resErr.Kind, true
	}
	return 0, false
}

// ConfigError represents an invalid build option.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("relmap: config error for %q (value: %v): %s", e.Option, e.Value, e.Message)
	}
	return fmt.Sprintf("relmap: config error for %q: %s", e.Option, e.Message)
}

// Is reports whether the target matches the sentinel error for ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidOption
}

// NewConfigError creates a new ConfigError.
func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{
		Option:  option,
		Value:   value,
		Message: message,
	}
}

// IsConfigError reports whether the error is a ConfigError.
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}
