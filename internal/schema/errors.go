package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the fatal failure classes.
var (
	// ErrUnresolvedRelationTarget indicates a relation naming an unknown entity.
	ErrUnresolvedRelationTarget = errors.New("schema: unresolved relation target")
	// ErrInvalidJoinTable indicates a many-to-many mapping that cannot be materialized.
	ErrInvalidJoinTable = errors.New("schema: invalid join table")
	// ErrInvalidSchema indicates any other descriptor the engine cannot synthesize.
	ErrInvalidSchema = errors.New("schema: invalid schema")
)

// RelationError reports a relation whose target is absent from the entity set.
type RelationError struct {
	Entity string
	Field  string
	Target string
}

// Error implements the error interface.
func (e *RelationError) Error() string {
	return fmt.Sprintf("schema: relation %s.%s targets unknown entity %q", e.Entity, e.Field, e.Target)
}

// Is reports whether the target matches ErrUnresolvedRelationTarget.
func (e *RelationError) Is(target error) bool {
	return target == ErrUnresolvedRelationTarget
}

// JoinTableError reports a field for which no join table can be built.
type JoinTableError struct {
	Entity  string
	Field   string
	Message string
}

// Error implements the error interface.
func (e *JoinTableError) Error() string {
	return fmt.Sprintf("schema: join table for %s.%s: %s", e.Entity, e.Field, e.Message)
}

// Is reports whether the target matches ErrInvalidJoinTable.
func (e *JoinTableError) Is(target error) bool {
	return target == ErrInvalidJoinTable
}

// DefinitionError reports any other descriptor the synthesizer rejects.
type DefinitionError struct {
	Entity  string
	Field   string
	Message string
}

// Error implements the error interface.
func (e *DefinitionError) Error() string {
	var b strings.Builder
	b.WriteString("schema: ")
	b.WriteString(e.Entity)
	if e.Field != "" {
		b.WriteString(".")
		b.WriteString(e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	return b.String()
}

// Is reports whether the target matches ErrInvalidSchema.
func (e *DefinitionError) Is(target error) bool {
	return target == ErrInvalidSchema
}

// Issue codes for non-fatal findings.
const (
	CodeUnrecognizedType   = "unrecognized_field_type"
	CodeDuplicateReverseFK = "duplicate_reverse_fk"
	CodeReverseFKConflict  = "reverse_fk_conflict"
	CodeEnumWithoutValues  = "enum_without_values"
	CodeUnknownUniqueField = "unknown_unique_field"
	CodeMappedByMismatch   = "mapped_by_mismatch"
	CodeColumnRemoved      = "column_removed"
	CodeColumnRetyped      = "column_retyped"
	CodeNullabilityChanged = "nullability_changed"
	CodeConstraintChanged  = "constraint_changed"
	CodeTableRemoved       = "table_removed"
	CodeEntityRemoved      = "entity_removed"
	CodeManifestUnreadable = "manifest_unreadable"
	CodeDialectChanged     = "dialect_changed"

	// lint-only codes for the fatal classes
	CodeUnresolvedTarget = "unresolved_relation_target"
	CodeInvalidJoinTable = "invalid_join_table"
	CodeInvalidSchema    = "invalid_schema"
)

// Issue is a soft warning: generation proceeds, the caller surfaces it.
type Issue struct {
	Entity  string `json:"entity"`
	Field   string `json:"field,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	loc := i.Entity
	if i.Field != "" {
		loc += "." + i.Field
	}
	if loc == "" {
		return fmt.Sprintf("[%s] %s", i.Code, i.Message)
	}
	return fmt.Sprintf("%s: [%s] %s", loc, i.Code, i.Message)
}
