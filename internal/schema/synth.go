package schema

import (
	"fmt"
	"log/slog"
	"strings"

	"crudgen/internal/dsl"
)

// Names of the columns the synthesizer adds on its own.
const (
	VersionColumn   = "version"
	CreatedAtColumn = "created_at"
	UpdatedAtColumn = "updated_at"
)

// Options tune synthesis. Entities may override both defaults.
type Options struct {
	Audit          bool
	OptimisticLock bool
	Logger         *slog.Logger
}

// Synthesize resolves the relations of the whole entity set and builds the
// table definitions of every entity in declaration order.
func Synthesize(entities []*dsl.Entity, d Dialect, opts Options) (*Schema, error) {
	res, err := Resolve(entities, d, opts.Logger)
	if err != nil {
		return nil, err
	}
	return res.Synthesize(opts)
}

// Synthesize builds the table definitions from resolved facts.
func (r *Resolution) Synthesize(opts Options) (*Schema, error) {
	s := &Schema{Dialect: r.dialect}
	for _, info := range r.order {
		def, err := r.entityDef(info, opts)
		if err != nil {
			return nil, err
		}
		s.Entities = append(s.Entities, def)
	}
	s.Issues = r.Issues()
	return s, nil
}

// mergeReverse reconciles a reverse foreign key with a column the child
// table already declares. A plain column of the same type takes the
// constraint; anything else is reported and the constraint is dropped.
func (r *Resolution) mergeReverse(t *TableDef, c FKColumn) {
	existing, _ := t.Column(c.Column.Name)
	fks := t.ForeignKeysOf(c.Column.Name)
	switch {
	case len(fks) == 0 && existing.Type == c.Column.Type:
		t.ForeignKeys = append(t.ForeignKeys, c.FK)
	case len(fks) > 0 && fks[0].RefTable == c.FK.RefTable && fks[0].RefColumn == c.FK.RefColumn:
		r.log.logger.Debug("reverse foreign key already present", "table", t.Name, "column", c.Column.Name, "from", c.Entity+"."+c.Field)
	default:
		held := "type " + existing.Type
		if len(fks) > 0 {
			held = "a foreign key to " + fks[0].RefTable
		}
		r.log.add(Issue{
			Entity:  c.Entity,
			Field:   c.Field,
			Code:    CodeReverseFKConflict,
			Message: fmt.Sprintf("column %s.%s already exists with %s; foreign key to %s not added", t.Name, c.Column.Name, held, c.FK.RefTable),
		})
	}
}

func (r *Resolution) entityDef(info *entityInfo, opts Options) (*EntityDef, error) {
	e := info.entity
	d := r.dialect
	t := &TableDef{Name: info.table, Kind: TableEntity}

	add := func(field string, c Column) error {
		if t.HasColumn(c.Name) {
			return &DefinitionError{Entity: e.Name, Field: field, Message: fmt.Sprintf("column %q declared twice", c.Name)}
		}
		t.Columns = append(t.Columns, c)
		return nil
	}
	fieldColumns := make(map[string]string, len(e.Fields))

	for _, f := range e.Fields {
		if f.Relation != nil || f.IsCollection() {
			if f.ID != nil {
				return nil, &DefinitionError{Entity: e.Name, Field: f.Name, Message: "identifier must be a scalar field"}
			}
			continue
		}
		name := ColumnName(f)
		typ := d.ColumnType(f)
		r.log.unrecognized(e, f, typ)

		c := Column{Name: name, Type: typ, Nullable: f.NullableOr(true), Unique: f.Unique()}
		if f.ID != nil {
			c.PrimaryKey, c.Nullable, c.Unique = true, false, false
			if f.Type.Kind.Integral() {
				c.Identity = d.IdentityClause(f.ID, t.Name, name)
				if f.ID.Strategy == dsl.StrategySequence && d.SupportsSequences() {
					t.Sequences = append(t.Sequences, SequenceName(f.ID, t.Name, name))
				}
			}
			t.PrimaryKey = append(t.PrimaryKey, name)
		}
		if err := add(f.Name, c); err != nil {
			return nil, err
		}
		fieldColumns[f.Name] = name

		if f.Type.Kind == dsl.KindEnum {
			if len(f.Enum) == 0 {
				r.log.add(Issue{Entity: e.Name, Field: f.Name, Code: CodeEnumWithoutValues, Message: "enum field has no literal values; no check constraint"})
				continue
			}
			t.Checks = append(t.Checks, enumCheck(d, t.Name, name, f.Enum))
		}
	}

	for _, c := range r.Owned[e.Name] {
		if err := add(c.Field, c.Column); err != nil {
			return nil, err
		}
		t.ForeignKeys = append(t.ForeignKeys, c.FK)
		fieldColumns[c.Field] = c.Column.Name
	}

	for _, c := range r.Reverse[t.Name] {
		if t.HasColumn(c.Column.Name) {
			r.mergeReverse(t, c)
			continue
		}
		t.Columns = append(t.Columns, c.Column)
		t.ForeignKeys = append(t.ForeignKeys, c.FK)
	}

	if flag(e.OptimisticLock, opts.OptimisticLock) {
		t.Versioned = true
		if err := add("", Column{Name: VersionColumn, Type: d.KindType(dsl.KindInt64, 0), Default: "0"}); err != nil {
			return nil, err
		}
	}
	if flag(e.Audit, opts.Audit) {
		t.Audit = true
		for _, name := range []string{CreatedAtColumn, UpdatedAtColumn} {
			if err := add("", Column{Name: name, Type: d.AuditType(), Default: d.Now()}); err != nil {
				return nil, err
			}
		}
	}

	for _, set := range e.Unique {
		if uk, ok := r.uniqueKey(e, t.Name, set, fieldColumns); ok {
			t.UniqueKeys = append(t.UniqueKeys, uk)
		}
	}

	def := &EntityDef{Entity: e.Name, Table: t}
	for _, j := range r.Joins[e.Name] {
		def.JoinTables = append(def.JoinTables, joinTable(j))
	}
	for _, c := range r.Collections[e.Name] {
		def.Collections = append(def.Collections, collectionTable(c))
	}
	return def, nil
}

func flag(override *bool, def bool) bool {
	if override != nil {
		return *override
	}
	return def
}

func (r *Resolution) uniqueKey(e *dsl.Entity, table string, fields []string, columns map[string]string) (UniqueKey, bool) {
	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		c, ok := columns[f]
		if !ok {
			r.log.add(Issue{Entity: e.Name, Field: f, Code: CodeUnknownUniqueField, Message: fmt.Sprintf("unique(%s) names an unknown field", strings.Join(fields, ", "))})
			return UniqueKey{}, false
		}
		cols = append(cols, c)
	}
	return UniqueKey{Name: ConstraintName("uk", append([]string{table}, cols...)...), Columns: cols}, true
}

func enumCheck(d Dialect, table, column string, values []string) Check {
	lits := make([]string, len(values))
	for i, v := range values {
		lits[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
	}
	return Check{
		Name:       ConstraintName("ck", table, column),
		Column:     column,
		Values:     append([]string(nil), values...),
		Expression: fmt.Sprintf("%s in (%s)", d.Quote(column), strings.Join(lits, ", ")),
	}
}

func joinTable(j JoinFact) *TableDef {
	return &TableDef{
		Name:        j.Table,
		Kind:        TableJoin,
		Columns:     []Column{j.Left.Column, j.Right.Column},
		PrimaryKey:  []string{j.Left.Column.Name, j.Right.Column.Name},
		ForeignKeys: []ForeignKey{j.Left.FK, j.Right.FK},
	}
}

func collectionTable(c CollectionFact) *TableDef {
	t := &TableDef{
		Name:        c.Table,
		Kind:        TableCollection,
		Columns:     []Column{c.Owner.Column, c.Value},
		ForeignKeys: []ForeignKey{c.Owner.FK},
	}
	if c.Order != nil {
		t.Columns = append(t.Columns, *c.Order)
	} else {
		t.UniqueKeys = []UniqueKey{{
			Name:    ConstraintName("uk", c.Table, c.Owner.Column.Name, c.Value.Name),
			Columns: []string{c.Owner.Column.Name, c.Value.Name},
		}}
	}
	return t
}
