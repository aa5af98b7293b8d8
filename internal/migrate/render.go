package migrate

import (
	"fmt"
	"strings"

	"crudgen/internal/schema"
)

// Statement is one SQL statement, without its terminator, optionally followed
// by comment lines.
type Statement struct {
	SQL     string
	Comment []string
}

// Renderer turns table definitions into dialect DDL.
type Renderer struct {
	Dialect schema.Dialect
}

func (r Renderer) q(ident string) string { return r.Dialect.Quote(ident) }

func (r Renderer) columnDef(c schema.Column) string {
	var b strings.Builder
	b.WriteString(r.q(c.Name))
	b.WriteString(" ")
	b.WriteString(c.Type)
	if !c.Nullable {
		b.WriteString(" not null")
	}
	if c.Default != "" {
		b.WriteString(" default ")
		b.WriteString(c.Default)
	}
	if c.Identity != "" {
		b.WriteString(" ")
		b.WriteString(c.Identity)
	}
	if c.Unique {
		b.WriteString(" unique")
	}
	return b.String()
}

func (r Renderer) columnList(cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = r.q(c)
	}
	return strings.Join(out, ", ")
}

func (r Renderer) fkClause(fk schema.ForeignKey) string {
	return fmt.Sprintf("constraint %s foreign key (%s) references %s (%s)",
		fk.Name, r.q(fk.Column), r.q(fk.RefTable), r.q(fk.RefColumn))
}

// CreateTable renders the sequences and the CREATE TABLE of t: columns in
// synthesizer order, the primary key, check constraints, unique keys and, on
// dialects that need it, inline foreign keys.
func (r Renderer) CreateTable(t *schema.TableDef) []Statement {
	var out []Statement
	for _, seq := range t.Sequences {
		out = append(out, Statement{SQL: r.Dialect.CreateSequence(seq)})
	}

	lines := make([]string, 0, len(t.Columns)+len(t.Checks)+2)
	for _, c := range t.Columns {
		lines = append(lines, r.columnDef(c))
	}
	if len(t.PrimaryKey) > 0 {
		lines = append(lines, fmt.Sprintf("primary key (%s)", r.columnList(t.PrimaryKey)))
	}
	for _, ck := range t.Checks {
		lines = append(lines, fmt.Sprintf("constraint %s check (%s)", ck.Name, ck.Expression))
	}
	for _, uk := range t.UniqueKeys {
		lines = append(lines, fmt.Sprintf("constraint %s unique (%s)", uk.Name, r.columnList(uk.Columns)))
	}
	if r.Dialect.InlineForeignKeys() {
		for _, fk := range t.ForeignKeys {
			lines = append(lines, r.fkClause(fk))
		}
	}

	stmt := Statement{
		SQL: fmt.Sprintf("create table %s (\n    %s\n)", r.q(t.Name), strings.Join(lines, ",\n    ")),
	}
	if t.Audit {
		stmt.Comment = append(stmt.Comment, fmt.Sprintf("audit columns: %s, %s", schema.CreatedAtColumn, schema.UpdatedAtColumn))
	}
	if t.Versioned {
		stmt.Comment = append(stmt.Comment, "optimistic locking column: "+schema.VersionColumn)
	}
	return append(out, stmt)
}

// AddForeignKey renders a foreign key added after both tables exist. It
// returns false on dialects that only support inline foreign keys.
func (r Renderer) AddForeignKey(table string, fk schema.ForeignKey) (Statement, bool) {
	if r.Dialect.InlineForeignKeys() {
		return Statement{}, false
	}
	return Statement{SQL: fmt.Sprintf("alter table %s add %s", r.q(table), r.fkClause(fk))}, true
}

// AddColumn renders the statements adding c to an existing table t, with the
// checks, foreign keys and unique keys that only involve new columns.
func (r Renderer) AddColumn(t *schema.TableDef, c schema.Column) []Statement {
	inline := r.Dialect.InlineForeignKeys()
	def := c
	if inline {
		// unique columns cannot be added in place; an index follows instead
		def.Unique = false
	}
	sql := fmt.Sprintf("alter table %s %s %s", r.q(t.Name), r.Dialect.AddColumnKeyword(), r.columnDef(def))
	if inline {
		for _, ck := range t.ChecksOf(c.Name) {
			sql += fmt.Sprintf(" constraint %s check (%s)", ck.Name, ck.Expression)
		}
		for _, fk := range t.ForeignKeysOf(c.Name) {
			sql += fmt.Sprintf(" references %s (%s)", r.q(fk.RefTable), r.q(fk.RefColumn))
		}
	}
	out := []Statement{{SQL: sql}}

	if inline {
		if c.Unique {
			out = append(out, Statement{SQL: fmt.Sprintf("create unique index %s on %s (%s)",
				schema.ConstraintName("uk", t.Name, c.Name), r.q(t.Name), r.q(c.Name))})
		}
		return out
	}
	for _, ck := range t.ChecksOf(c.Name) {
		out = append(out, Statement{SQL: fmt.Sprintf("alter table %s add constraint %s check (%s)", r.q(t.Name), ck.Name, ck.Expression)})
	}
	for _, fk := range t.ForeignKeysOf(c.Name) {
		st, _ := r.AddForeignKey(t.Name, fk)
		out = append(out, st)
	}
	return out
}

// AddUniqueKey renders a unique key added to an existing table.
func (r Renderer) AddUniqueKey(table string, uk schema.UniqueKey) Statement {
	if r.Dialect.InlineForeignKeys() {
		return Statement{SQL: fmt.Sprintf("create unique index %s on %s (%s)", uk.Name, r.q(table), r.columnList(uk.Columns))}
	}
	return Statement{SQL: fmt.Sprintf("alter table %s add constraint %s unique (%s)", r.q(table), uk.Name, r.columnList(uk.Columns))}
}

// DDL renders the complete CREATE DDL of a schema, foreign keys last.
func (r Renderer) DDL(s *schema.Schema) []Statement {
	var out, fks []Statement
	for _, t := range s.Tables() {
		out = append(out, r.CreateTable(t)...)
		for _, fk := range t.ForeignKeys {
			if st, ok := r.AddForeignKey(t.Name, fk); ok {
				fks = append(fks, st)
			}
		}
	}
	return append(out, fks...)
}

// Format renders statements as script text: each statement terminated by a
// semicolon, its comments below it.
func Format(header string, stmts []Statement) string {
	var b strings.Builder
	if header != "" {
		for _, line := range strings.Split(header, "\n") {
			b.WriteString("-- ")
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	for i, st := range stmts {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(st.SQL)
		b.WriteString(";\n")
		for _, c := range st.Comment {
			b.WriteString("-- ")
			b.WriteString(c)
			b.WriteString("\n")
		}
	}
	return b.String()
}
