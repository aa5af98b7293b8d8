package schema

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/go-openapi/inflect"

	"crudgen/internal/dsl"
)

// maxIdentLen is the shortest identifier limit among the supported dialects.
const maxIdentLen = 63

var reserved = map[string]struct{}{
	"user": {}, "select": {}, "table": {}, "insert": {}, "update": {}, "delete": {},
	"where": {}, "join": {}, "group": {}, "order": {}, "limit": {}, "offset": {},
	"primary": {}, "foreign": {}, "key": {}, "constraint": {}, "default": {},
	"from": {}, "into": {}, "values": {}, "unique": {}, "index": {}, "create": {},
	"drop": {}, "alter": {}, "schema": {}, "grant": {}, "revoke": {}, "check": {},
	"references": {}, "column": {}, "all": {}, "and": {}, "or": {}, "not": {},
	"null": {}, "by": {}, "as": {}, "on": {}, "in": {}, "is": {}, "like": {},
	"case": {}, "when": {}, "then": {}, "else": {}, "end": {}, "distinct": {},
	"having": {}, "union": {}, "desc": {}, "asc": {}, "to": {}, "with": {},
	"range": {}, "rank": {}, "rows": {}, "window": {}, "trigger": {},
}

func isReserved(s string) bool { _, ok := reserved[strings.ToLower(s)]; return ok }

// TableName returns the storage name of an entity: the explicit table name,
// or the snake_case logical name.
func TableName(e *dsl.Entity) string {
	if t := strings.TrimSpace(e.Table); t != "" {
		return t
	}
	return snake(e.Name)
}

// ColumnName returns the storage column of a scalar field.
func ColumnName(f dsl.Field) string {
	if f.Column != nil && strings.TrimSpace(f.Column.Name) != "" {
		return strings.TrimSpace(f.Column.Name)
	}
	return snake(f.Name)
}

// strippedName is the entity name used as a foreign-key column prefix:
// snake_case with a trailing "Entity" suffix removed ("OrderEntity" -> "order").
func strippedName(name string) string {
	if s := strings.TrimSuffix(name, "Entity"); s != "" {
		name = s
	}
	return snake(name)
}

func fkColumnName(entityName string) string { return strippedName(entityName) + "_id" }

func snake(s string) string {
	return strings.ToLower(inflect.Underscore(s))
}

// SequenceName returns the sequence backing a sequence-strategy identifier.
func SequenceName(id *dsl.Identifier, table, column string) string {
	if id != nil && strings.TrimSpace(id.Sequence) != "" {
		return strings.TrimSpace(id.Sequence)
	}
	return fmt.Sprintf("%s_%s_seq", table, column)
}

// ConstraintName joins prefix and parts and keeps the result within maxIdentLen by
// replacing the tail with a hash.
func ConstraintName(prefix string, parts ...string) string {
	name := prefix + "_" + strings.Join(parts, "_")
	if len(name) <= maxIdentLen {
		return name
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	suffix := fmt.Sprintf("_%08x", h.Sum32())
	return name[:maxIdentLen-len(suffix)] + suffix
}
