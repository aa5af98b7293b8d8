package schema

import (
	"fmt"
	"strings"

	"crudgen/internal/dsl"
)

// Dialect is one of the supported relational engines.
type Dialect uint8

const (
	Postgres Dialect = iota + 1
	MySQL
	SQLite
	SQLServer
)

// Dialects lists every supported dialect.
var Dialects = []Dialect{Postgres, MySQL, SQLite, SQLServer}

const (
	// DefaultStringLength applies to text and enum columns without an explicit length.
	DefaultStringLength = 255

	decimalType    = "decimal(21,2)"
	bigIntegerType = "decimal(38,0)"
)

// dialectSpec holds everything one dialect contributes to DDL generation.
type dialectSpec struct {
	name string

	// types maps every abstract kind to a column type. String and enum kinds
	// are formatted with the column length.
	types [dsl.NumKinds]string

	identity        string                  // identity/auto decoration, "" for none
	sequenceDefault func(seq string) string // nil when the engine has no sequences
	createSequence  func(seq string) string
	now             string
	quote           [2]string

	// inlineFK renders foreign keys inside CREATE TABLE / ADD COLUMN because
	// the engine cannot add constraints to an existing table.
	inlineFK bool
	// addColumn is the ALTER TABLE keyword sequence for a new column.
	addColumn string
}

var postgres = dialectSpec{
	name: "postgres",
	types: [dsl.NumKinds]string{
		dsl.KindUnknown:    "bigint",
		dsl.KindString:     "varchar(%d)",
		dsl.KindInt16:      "smallint",
		dsl.KindInt32:      "integer",
		dsl.KindInt64:      "bigint",
		dsl.KindBool:       "boolean",
		dsl.KindFloat32:    "real",
		dsl.KindFloat64:    "double precision",
		dsl.KindDecimal:    "numeric(21,2)",
		dsl.KindBigInteger: "numeric(38,0)",
		dsl.KindDate:       "date",
		dsl.KindDateTime:   "timestamp",
		dsl.KindInstant:    "timestamp with time zone",
		dsl.KindUUID:       "uuid",
		dsl.KindEnum:       "varchar(%d)",
		dsl.KindJSON:       "jsonb",
	},
	identity: "generated by default as identity",
	sequenceDefault: func(seq string) string {
		return fmt.Sprintf("default nextval('%s')", seq)
	},
	createSequence: func(seq string) string {
		return fmt.Sprintf("create sequence if not exists %s start with 1 increment by 1", seq)
	},
	now:       "current_timestamp",
	quote:     [2]string{`"`, `"`},
	addColumn: "add column",
}

var mysql = dialectSpec{
	name: "mysql",
	types: [dsl.NumKinds]string{
		dsl.KindUnknown:    "bigint",
		dsl.KindString:     "varchar(%d)",
		dsl.KindInt16:      "smallint",
		dsl.KindInt32:      "integer",
		dsl.KindInt64:      "bigint",
		dsl.KindBool:       "boolean",
		dsl.KindFloat32:    "float",
		dsl.KindFloat64:    "double",
		dsl.KindDecimal:    decimalType,
		dsl.KindBigInteger: bigIntegerType,
		dsl.KindDate:       "date",
		dsl.KindDateTime:   "datetime(6)",
		dsl.KindInstant:    "datetime(6)",
		dsl.KindUUID:       "binary(16)",
		dsl.KindEnum:       "varchar(%d)",
		dsl.KindJSON:       "json",
	},
	// no sequences: sequence strategies fall back to auto_increment
	identity:  "auto_increment",
	now:       "current_timestamp(6)",
	quote:     [2]string{"`", "`"},
	addColumn: "add column",
}

var sqlite = dialectSpec{
	name: "sqlite",
	types: [dsl.NumKinds]string{
		dsl.KindUnknown:    "integer",
		dsl.KindString:     "varchar(%d)",
		dsl.KindInt16:      "integer",
		dsl.KindInt32:      "integer",
		dsl.KindInt64:      "integer",
		dsl.KindBool:       "boolean",
		dsl.KindFloat32:    "real",
		dsl.KindFloat64:    "double",
		dsl.KindDecimal:    decimalType,
		dsl.KindBigInteger: bigIntegerType,
		dsl.KindDate:       "date",
		dsl.KindDateTime:   "timestamp",
		dsl.KindInstant:    "timestamp",
		dsl.KindUUID:       "char(36)",
		dsl.KindEnum:       "varchar(%d)",
		dsl.KindJSON:       "text",
	},
	// an integer primary key is the rowid alias and needs no decoration
	identity:  "",
	now:       "current_timestamp",
	quote:     [2]string{`"`, `"`},
	inlineFK:  true,
	addColumn: "add column",
}

var sqlserver = dialectSpec{
	name: "sqlserver",
	types: [dsl.NumKinds]string{
		dsl.KindUnknown:    "bigint",
		dsl.KindString:     "varchar(%d)",
		dsl.KindInt16:      "smallint",
		dsl.KindInt32:      "int",
		dsl.KindInt64:      "bigint",
		dsl.KindBool:       "bit",
		dsl.KindFloat32:    "real",
		dsl.KindFloat64:    "float",
		dsl.KindDecimal:    decimalType,
		dsl.KindBigInteger: bigIntegerType,
		dsl.KindDate:       "date",
		dsl.KindDateTime:   "datetime2",
		dsl.KindInstant:    "datetimeoffset",
		dsl.KindUUID:       "uniqueidentifier",
		dsl.KindEnum:       "varchar(%d)",
		dsl.KindJSON:       "nvarchar(max)",
	},
	identity: "identity(1,1)",
	sequenceDefault: func(seq string) string {
		return fmt.Sprintf("default next value for %s", seq)
	},
	createSequence: func(seq string) string {
		return fmt.Sprintf("create sequence %s start with 1 increment by 1", seq)
	},
	now:       "sysdatetimeoffset()",
	quote:     [2]string{"[", "]"},
	addColumn: "add",
}

func (d Dialect) spec() *dialectSpec {
	switch d {
	case Postgres:
		return &postgres
	case MySQL:
		return &mysql
	case SQLite:
		return &sqlite
	case SQLServer:
		return &sqlserver
	}
	panic(fmt.Sprintf("schema: unknown dialect %d", d))
}

// ParseDialect resolves a dialect by name.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	case "mysql", "mariadb":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "sqlserver", "mssql":
		return SQLServer, nil
	}
	return 0, fmt.Errorf("unsupported dialect %q", name)
}

func (d Dialect) String() string {
	switch d {
	case Postgres, MySQL, SQLite, SQLServer:
		return d.spec().name
	}
	return fmt.Sprintf("Dialect(%d)", uint8(d))
}

// MarshalText encodes the dialect by name.
func (d Dialect) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText decodes a dialect name.
func (d *Dialect) UnmarshalText(b []byte) error {
	v, err := ParseDialect(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// KindType maps an abstract kind to the dialect's column type. length only
// matters for string and enum kinds.
func (d Dialect) KindType(k dsl.Kind, length int) string {
	if k >= dsl.NumKinds {
		k = dsl.KindUnknown
	}
	t := d.spec().types[k]
	if strings.Contains(t, "%d") {
		if length <= 0 {
			length = DefaultStringLength
		}
		return fmt.Sprintf(t, length)
	}
	return t
}

// ColumnType maps a field to its SQL column type. Collection fields map their
// element kind. Unrecognized types fall back to a 64-bit integer; the caller
// reports them.
func (d Dialect) ColumnType(f dsl.Field) string {
	return d.KindType(f.Type.Kind, f.Length(DefaultStringLength))
}

// IdentityClause returns the column decoration for a primary-key generation
// strategy, or "" when the strategy needs none.
func (d Dialect) IdentityClause(id *dsl.Identifier, table, column string) string {
	if id == nil {
		return ""
	}
	s := d.spec()
	switch id.Strategy {
	case dsl.StrategyTable:
		return ""
	case dsl.StrategySequence:
		if s.sequenceDefault == nil {
			return s.identity
		}
		return s.sequenceDefault(SequenceName(id, table, column))
	default:
		return s.identity
	}
}

// SupportsSequences reports whether the dialect has CREATE SEQUENCE.
func (d Dialect) SupportsSequences() bool { return d.spec().createSequence != nil }

// CreateSequence returns the statement creating seq, or "" when unsupported.
func (d Dialect) CreateSequence(seq string) string {
	if s := d.spec(); s.createSequence != nil {
		return s.createSequence(seq)
	}
	return ""
}

// Now is the current-timestamp expression used as the audit column default.
func (d Dialect) Now() string { return d.spec().now }

// AuditType is the column type of the audit timestamps.
func (d Dialect) AuditType() string { return d.KindType(dsl.KindInstant, 0) }

// InlineForeignKeys reports whether foreign keys must be declared with the column.
func (d Dialect) InlineForeignKeys() bool { return d.spec().inlineFK }

// AddColumnKeyword is "add column", or "add" where the engine rejects COLUMN.
func (d Dialect) AddColumnKeyword() string { return d.spec().addColumn }

// Quote quotes an identifier when it is a reserved word.
func (d Dialect) Quote(ident string) string {
	if !isReserved(ident) {
		return ident
	}
	q := d.spec().quote
	return q[0] + ident + q[1]
}
