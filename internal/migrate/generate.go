package migrate

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"crudgen/internal/dsl"
	"crudgen/internal/schema"
)

// State is the terminal state of a run.
type State string

const (
	StateClean     State = "clean"
	StatePersisted State = "persisted"
)

// Options configure a generator run.
type Options struct {
	schema.Options
}

// ScriptFile is a script written by a run.
type ScriptFile struct {
	Name       string   `json:"name"`
	Path       string   `json:"path"`
	Statements []string `json:"statements"`
}

// Report summarizes a run. Scripts are listed in apply order.
type Report struct {
	State   State          `json:"state"`
	Version int            `json:"version"`
	RunID   string         `json:"runId,omitempty"`
	Changes []EntityChange `json:"changes"`
	Scripts []ScriptFile   `json:"scripts,omitempty"`
	Issues  []schema.Issue `json:"issues,omitempty"`
}

// Count returns how many entities ended in status st.
func (r *Report) Count(st Status) int {
	n := 0
	for _, ch := range r.Changes {
		if ch.Status == st {
			n++
		}
	}
	return n
}

// Generate runs the full cycle against projectRoot: load the manifest,
// synthesize, classify, write the scripts and finally the manifest. Nothing
// is written when a relation cannot be resolved or when no entity changed.
func Generate(entities []*dsl.Entity, d schema.Dialect, projectRoot string, opts Options) (*Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	opts.Logger = logger

	manifestPath := ManifestPath(projectRoot)
	m, loadErr := LoadManifest(manifestPath)
	var issues []schema.Issue
	if loadErr != nil {
		logger.Warn("manifest unreadable, starting from an empty one", "path", manifestPath, "error", loadErr)
		issues = append(issues, schema.Issue{Code: schema.CodeManifestUnreadable, Message: loadErr.Error()})
	}
	// a lost manifest must not restart numbering over existing scripts
	recorded := m.LastScriptVersion
	onDisk, err := m.CatchUp(projectRoot)
	if err != nil {
		return nil, err
	}
	if onDisk > recorded {
		logger.Warn("scripts on disk are ahead of the manifest", "manifest", recorded, "disk", onDisk)
	}

	s, err := schema.Synthesize(entities, d, opts.Options)
	if err != nil {
		return nil, err
	}

	plan := BuildPlan(m, s)
	rep := &Report{
		State:   StateClean,
		Version: m.LastScriptVersion,
		Changes: plan.Changes,
		Issues:  append(issues, plan.Issues...),
	}
	if plan.Empty() {
		logger.Info("schema up to date", "version", m.LastScriptVersion, "entities", len(s.Entities))
		return rep, nil
	}

	dir := filepath.Join(projectRoot, ScriptsDir)
	for _, sc := range plan.Scripts {
		path := filepath.Join(dir, sc.Name)
		if err := writeFileAtomic(path, []byte(sc.Content(d))); err != nil {
			return nil, fmt.Errorf("write %s: %w", sc.Name, err)
		}
		logger.Debug("script written", "path", path, "statements", len(sc.Statements))
		rep.Scripts = append(rep.Scripts, ScriptFile{Name: sc.Name, Path: path, Statements: sc.SQL()})
	}

	plan.Manifest.LastRunID = newRunID()
	if err := SaveManifest(manifestPath, plan.Manifest); err != nil {
		return nil, fmt.Errorf("save manifest: %w", err)
	}
	rep.State = StatePersisted
	rep.Version = plan.Version
	rep.RunID = plan.Manifest.LastRunID
	logger.Info("migration generated",
		"version", plan.Version,
		"scripts", len(plan.Scripts),
		"new", rep.Count(StatusNew),
		"changed", rep.Count(StatusChanged),
		"run", rep.RunID,
	)
	return rep, nil
}
