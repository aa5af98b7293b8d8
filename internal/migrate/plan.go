package migrate

import (
	"fmt"
	"maps"
	"slices"

	"crudgen/internal/schema"
	"crudgen/internal/version"
)

// Script is one migration file.
type Script struct {
	Version    int
	Name       string
	Statements []Statement
}

// Content renders the file body.
func (s Script) Content(d schema.Dialect) string {
	return Format(fmt.Sprintf("%s\ndialect: %s", s.Name, d), s.Statements)
}

// SQL returns the bare statements, in order.
func (s Script) SQL() []string {
	out := make([]string, len(s.Statements))
	for i, st := range s.Statements {
		out[i] = st.SQL
	}
	return out
}

// Plan is the outcome of comparing a schema against a manifest. Scripts are
// listed in the order they must be applied.
type Plan struct {
	Version  int
	Changes  []EntityChange
	Scripts  []Script
	Issues   []schema.Issue
	Manifest *Manifest // nil when nothing is to be emitted
}

// Empty reports whether the plan emits nothing.
func (p *Plan) Empty() bool { return len(p.Scripts) == 0 }

// BuildPlan classifies every entity of s against m and renders the scripts
// of the next version. m is not modified.
func BuildPlan(m *Manifest, s *schema.Schema) *Plan {
	p := &Plan{Changes: Classify(m, s)}
	p.Issues = append(p.Issues, s.Issues...)
	if m.Dialect != "" && m.Dialect != s.Dialect.String() {
		p.Issues = append(p.Issues, schema.Issue{
			Code:    schema.CodeDialectChanged,
			Message: fmt.Sprintf("manifest was generated for %s, current dialect is %s", m.Dialect, s.Dialect),
		})
	}
	p.Issues = append(p.Issues, RemovedEntities(m, s)...)
	for _, ch := range p.Changes {
		p.Issues = append(p.Issues, ch.Issues...)
	}

	next := m.LastScriptVersion + 1
	e := &emitter{
		r:        Renderer{Dialect: s.Dialect},
		version:  next,
		existing: map[string]bool{},
		created:  map[string]bool{},
		deferred: map[string][]Statement{},
	}
	for _, snap := range m.Entities {
		for _, t := range snap.Tables {
			e.existing[t.Name] = true
		}
	}
	for _, ch := range p.Changes {
		if ch.Status == StatusNew {
			e.create(ch.Def)
		}
	}
	e.flushDeferred()
	var alters []TableChange
	for _, ch := range p.Changes {
		if ch.Status == StatusChanged {
			alters = append(alters, ch.Tables...)
		}
	}
	e.alter(alters)

	if len(e.scripts) == 0 {
		return p
	}
	p.Version = next
	p.Scripts = e.scripts
	p.Manifest = &Manifest{
		GeneratorVersion:  version.Version,
		Dialect:           s.Dialect.String(),
		LastScriptVersion: next,
		Entities:          make([]EntitySnapshot, 0, len(s.Entities)),
	}
	for _, def := range s.Entities {
		p.Manifest.Entities = append(p.Manifest.Entities, Snapshot(def))
	}
	return p
}

type emitter struct {
	r        Renderer
	version  int
	existing map[string]bool // tables emitted by earlier runs
	created  map[string]bool // tables created by this run so far
	deferred map[string][]Statement
	scripts  []Script
}

func (e *emitter) exists(table string) bool { return e.existing[table] || e.created[table] }

// create emits the CREATE script of a new entity: its tables, then the
// foreign keys whose referenced table already exists, then foreign keys of
// earlier scripts that were waiting for one of these tables.
func (e *emitter) create(def *schema.EntityDef) {
	tables := def.Tables()
	var stmts []Statement
	for _, t := range tables {
		stmts = append(stmts, e.r.CreateTable(t)...)
		e.created[t.Name] = true
	}
	for _, t := range tables {
		for _, fk := range t.ForeignKeys {
			st, ok := e.r.AddForeignKey(t.Name, fk)
			if !ok {
				continue
			}
			if e.exists(fk.RefTable) {
				stmts = append(stmts, st)
			} else {
				e.deferred[fk.RefTable] = append(e.deferred[fk.RefTable], st)
			}
		}
	}
	for _, t := range tables {
		stmts = append(stmts, e.deferred[t.Name]...)
		delete(e.deferred, t.Name)
	}
	e.scripts = append(e.scripts, Script{
		Version:    e.version,
		Name:       fmt.Sprintf("V%d__create_%s.sql", e.version, def.Table.Name),
		Statements: stmts,
	})
}

// flushDeferred appends foreign keys whose referenced table is not created
// by this run to the last CREATE script. They reference tables of entities
// outside the set; the database will reject them if the table is missing.
func (e *emitter) flushDeferred() {
	if len(e.deferred) == 0 || len(e.scripts) == 0 {
		return
	}
	last := &e.scripts[len(e.scripts)-1]
	for _, name := range slices.Sorted(maps.Keys(e.deferred)) {
		last.Statements = append(last.Statements, e.deferred[name]...)
	}
	e.deferred = map[string][]Statement{}
}

// alter emits the single ALTER batch of the run, grouped by table.
func (e *emitter) alter(changes []TableChange) {
	if len(changes) == 0 {
		return
	}
	var stmts []Statement
	for _, tc := range changes {
		if tc.Created {
			stmts = append(stmts, e.r.CreateTable(tc.Table)...)
			for _, fk := range tc.Table.ForeignKeys {
				if st, ok := e.r.AddForeignKey(tc.Table.Name, fk); ok {
					stmts = append(stmts, st)
				}
			}
			continue
		}
		for _, c := range tc.Columns {
			stmts = append(stmts, e.r.AddColumn(tc.Table, c)...)
		}
		for _, uk := range tc.UniqueKeys {
			stmts = append(stmts, e.r.AddUniqueKey(tc.Table.Name, uk))
		}
	}
	e.scripts = append(e.scripts, Script{
		Version:    e.version,
		Name:       fmt.Sprintf("V%d__alter_tables.sql", e.version),
		Statements: stmts,
	})
}
