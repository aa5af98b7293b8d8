package migrate

import (
	"fmt"
	"slices"
	"strings"

	"crudgen/internal/schema"
)

// Status classifies an entity against its last emitted snapshot.
type Status uint8

const (
	StatusUnchanged Status = iota
	StatusNew
	StatusChanged
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusChanged:
		return "changed"
	default:
		return "unchanged"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// TableChange is the additive part of a changed entity for one table.
type TableChange struct {
	Table   *schema.TableDef `json:"table"`
	Created bool             `json:"created,omitempty"`
	Columns []schema.Column  `json:"columns,omitempty"`
	// unique keys involving at least one new column
	UniqueKeys []schema.UniqueKey `json:"uniqueKeys,omitempty"`
}

// EntityChange is the classification of one entity.
type EntityChange struct {
	Entity string            `json:"entity"`
	Status Status            `json:"status"`
	Def    *schema.EntityDef `json:"-"`
	Tables []TableChange     `json:"tables,omitempty"`
	Issues []schema.Issue    `json:"issues,omitempty"`
}

// Classify compares every entity of s against the manifest, in declaration
// order. Only net-new columns and tables count as changes; anything else is
// reported as an issue and left alone.
func Classify(m *Manifest, s *schema.Schema) []EntityChange {
	out := make([]EntityChange, 0, len(s.Entities))
	for _, def := range s.Entities {
		out = append(out, classify(m.Snapshot(def.Entity), def))
	}
	return out
}

func classify(snap *EntitySnapshot, def *schema.EntityDef) EntityChange {
	ch := EntityChange{Entity: def.Entity, Def: def}
	if snap == nil {
		ch.Status = StatusNew
		return ch
	}
	fresh := Snapshot(def)
	if Fingerprint(snap.Tables) == fresh.Fingerprint {
		ch.Status = StatusUnchanged
		return ch
	}

	issue := func(code, format string, args ...any) {
		ch.Issues = append(ch.Issues, schema.Issue{Entity: def.Entity, Code: code, Message: fmt.Sprintf(format, args...)})
	}

	for _, t := range def.Tables() {
		old := snap.TableNamed(t.Name)
		if old == nil {
			ch.Tables = append(ch.Tables, TableChange{Table: t, Created: true})
			continue
		}
		tc := TableChange{Table: t}
		added := map[string]bool{}
		for _, c := range t.Columns {
			prev, ok := old.Column(c.Name)
			if !ok {
				tc.Columns = append(tc.Columns, c)
				added[c.Name] = true
				continue
			}
			if prev.Type != c.Type {
				issue(schema.CodeColumnRetyped, "column %s.%s changed type from %s to %s; not migrated", t.Name, c.Name, prev.Type, c.Type)
			}
			if prev.Nullable != c.Nullable {
				issue(schema.CodeNullabilityChanged, "column %s.%s changed nullability; not migrated", t.Name, c.Name)
			}
			if prev.Unique != c.Unique || prev.Default != c.Default || prev.Identity != c.Identity || prev.PrimaryKey != c.PrimaryKey {
				issue(schema.CodeConstraintChanged, "column %s.%s changed its constraints; not migrated", t.Name, c.Name)
			}
		}
		for _, c := range old.Columns {
			if !t.HasColumn(c.Name) {
				issue(schema.CodeColumnRemoved, "column %s.%s is no longer defined; not dropped", t.Name, c.Name)
			}
		}
		for _, uk := range t.UniqueKeys {
			if anyAdded(uk.Columns, added) {
				tc.UniqueKeys = append(tc.UniqueKeys, uk)
			}
		}
		if !slices.Equal(constraintSet(old, nil), constraintSet(t, added)) {
			issue(schema.CodeConstraintChanged, "constraints of %s changed; not migrated", t.Name)
		}
		if len(tc.Columns) > 0 {
			ch.Tables = append(ch.Tables, tc)
		}
	}
	for _, old := range snap.Tables {
		if !slices.ContainsFunc(def.Tables(), func(t *schema.TableDef) bool { return t.Name == old.Name }) {
			issue(schema.CodeTableRemoved, "table %s is no longer defined; not dropped", old.Name)
		}
	}

	if len(ch.Tables) > 0 {
		ch.Status = StatusChanged
	}
	return ch
}

// anyAdded reports whether a constraint over cols involves a new column. Such
// a constraint cannot exist in the database yet.
func anyAdded(cols []string, added map[string]bool) bool {
	for _, c := range cols {
		if added[c] {
			return true
		}
	}
	return false
}

// constraintSet lists the table-level constraints of t in a comparable form,
// leaving out those that touch a column in skip.
func constraintSet(t *schema.TableDef, skip map[string]bool) []string {
	var out []string
	touches := func(cols ...string) bool {
		for _, c := range cols {
			if skip[c] {
				return true
			}
		}
		return false
	}
	out = append(out, "pk:"+strings.Join(t.PrimaryKey, ","))
	for _, fk := range t.ForeignKeys {
		if !touches(fk.Column) {
			out = append(out, fmt.Sprintf("fk:%s:%s>%s.%s", fk.Name, fk.Column, fk.RefTable, fk.RefColumn))
		}
	}
	for _, ck := range t.Checks {
		if !touches(ck.Column) {
			out = append(out, fmt.Sprintf("ck:%s:%s", ck.Name, ck.Expression))
		}
	}
	for _, uk := range t.UniqueKeys {
		if !touches(uk.Columns...) {
			out = append(out, fmt.Sprintf("uk:%s:%s", uk.Name, strings.Join(uk.Columns, ",")))
		}
	}
	for _, seq := range t.Sequences {
		out = append(out, "seq:"+seq)
	}
	slices.Sort(out)
	return out
}

// RemovedEntities reports snapshots whose entity no longer exists.
func RemovedEntities(m *Manifest, s *schema.Schema) []schema.Issue {
	var out []schema.Issue
	for _, snap := range m.Entities {
		if s.Entity(snap.Name) == nil {
			out = append(out, schema.Issue{
				Entity:  snap.Name,
				Code:    schema.CodeEntityRemoved,
				Message: fmt.Sprintf("entity is no longer defined; table %s is not dropped", snap.Table),
			})
		}
	}
	return out
}
