package schema

// Column is one synthesized column.
type Column struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Nullable   bool   `json:"nullable"`
	Unique     bool   `json:"unique,omitempty"`
	PrimaryKey bool   `json:"primaryKey,omitempty"`
	Default    string `json:"default,omitempty"`
	Identity   string `json:"identity,omitempty"`
}

// ForeignKey references the primary-key column of another table.
type ForeignKey struct {
	Name      string `json:"name"`
	Column    string `json:"column"`
	RefTable  string `json:"refTable"`
	RefColumn string `json:"refColumn"`
}

// Check restricts an enum column to its literal values.
type Check struct {
	Name       string   `json:"name"`
	Column     string   `json:"column"`
	Values     []string `json:"values"`
	Expression string   `json:"expression"`
}

// UniqueKey is a multi-column uniqueness constraint.
type UniqueKey struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

// TableKind tells what produced a table.
type TableKind string

const (
	TableEntity     TableKind = "entity"
	TableJoin       TableKind = "join"
	TableCollection TableKind = "collection"
)

// TableDef is the synthesized relational shape of one table.
type TableDef struct {
	Name        string       `json:"name"`
	Kind        TableKind    `json:"kind"`
	Columns     []Column     `json:"columns"`
	PrimaryKey  []string     `json:"primaryKey"`
	Checks      []Check      `json:"checks"`
	ForeignKeys []ForeignKey `json:"foreignKeys"`
	UniqueKeys  []UniqueKey  `json:"uniqueKeys"`
	Sequences   []string     `json:"sequences"`
	Audit       bool         `json:"audit,omitempty"`
	Versioned   bool         `json:"versioned,omitempty"`
}

// Column returns the named column.
func (t *TableDef) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// HasColumn reports whether the table has the named column.
func (t *TableDef) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// ForeignKeysOf returns the foreign keys declared on column.
func (t *TableDef) ForeignKeysOf(column string) []ForeignKey {
	var out []ForeignKey
	for _, fk := range t.ForeignKeys {
		if fk.Column == column {
			out = append(out, fk)
		}
	}
	return out
}

// ChecksOf returns the check constraints on column.
func (t *TableDef) ChecksOf(column string) []Check {
	var out []Check
	for _, c := range t.Checks {
		if c.Column == column {
			out = append(out, c)
		}
	}
	return out
}

// EntityDef groups an entity's base table with the auxiliary tables it owns.
type EntityDef struct {
	Entity      string      `json:"entity"`
	Table       *TableDef   `json:"table"`
	JoinTables  []*TableDef `json:"joinTables,omitempty"`
	Collections []*TableDef `json:"collections,omitempty"`
}

// Tables returns the base table followed by join and collection tables.
func (d *EntityDef) Tables() []*TableDef {
	out := make([]*TableDef, 0, 1+len(d.JoinTables)+len(d.Collections))
	out = append(out, d.Table)
	out = append(out, d.JoinTables...)
	return append(out, d.Collections...)
}

// Schema is the result of one synthesis pass.
type Schema struct {
	Dialect  Dialect      `json:"dialect"`
	Entities []*EntityDef `json:"entities"`
	Issues   []Issue      `json:"issues,omitempty"`
}

// Entity returns the definition of the named entity, or nil.
func (s *Schema) Entity(name string) *EntityDef {
	for _, d := range s.Entities {
		if d.Entity == name {
			return d
		}
	}
	return nil
}

// Tables returns every table of the schema in entity-declaration order.
func (s *Schema) Tables() []*TableDef {
	var out []*TableDef
	for _, d := range s.Entities {
		out = append(out, d.Tables()...)
	}
	return out
}
