package migrate

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"crudgen/internal/schema"
)

// Locations relative to the project root.
const (
	StateDir     = ".crudgen"
	ManifestFile = "migration-manifest.json"
	ScriptsDir   = "db/migrations"
)

// ManifestPath returns the manifest location under root.
func ManifestPath(root string) string {
	return filepath.Join(root, StateDir, ManifestFile)
}

// Manifest is the persisted record of what the previous runs emitted.
type Manifest struct {
	GeneratorVersion  string           `json:"generatorVersion"`
	Dialect           string           `json:"dialect,omitempty"`
	LastScriptVersion int              `json:"lastScriptVersion"`
	LastRunID         string           `json:"lastRunId,omitempty"`
	Entities          []EntitySnapshot `json:"entities"`
}

// EntitySnapshot is the synthesized shape of one entity as last emitted.
type EntitySnapshot struct {
	Name        string            `json:"name"`
	Table       string            `json:"table"`
	Fingerprint string            `json:"fingerprint"`
	Tables      []schema.TableDef `json:"tables"`
}

// NewManifest returns the manifest of a project that has never been migrated.
func NewManifest() *Manifest {
	return &Manifest{Entities: []EntitySnapshot{}}
}

// Snapshot returns the snapshot of the named entity, or nil.
func (m *Manifest) Snapshot(name string) *EntitySnapshot {
	for i := range m.Entities {
		if m.Entities[i].Name == name {
			return &m.Entities[i]
		}
	}
	return nil
}

// TableNamed returns the snapshot of the named table, or nil.
func (s *EntitySnapshot) TableNamed(name string) *schema.TableDef {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// Snapshot captures def for the manifest.
func Snapshot(def *schema.EntityDef) EntitySnapshot {
	tables := def.Tables()
	snap := EntitySnapshot{
		Name:   def.Entity,
		Table:  def.Table.Name,
		Tables: make([]schema.TableDef, len(tables)),
	}
	for i, t := range tables {
		snap.Tables[i] = *t
	}
	snap.Fingerprint = Fingerprint(snap.Tables)
	return snap
}

// Fingerprint hashes the canonical form of a table set. Empty and absent
// lists hash the same, so a snapshot read back from disk matches the
// definition it was taken from.
func Fingerprint(tables []schema.TableDef) string {
	canon := make([]schema.TableDef, len(tables))
	for i, t := range tables {
		canon[i] = canonical(t)
	}
	b, err := json.Marshal(canon)
	if err != nil {
		// plain strings and bools only
		panic(err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func canonical(t schema.TableDef) schema.TableDef {
	t.Columns = nilIfEmpty(t.Columns)
	t.PrimaryKey = nilIfEmpty(t.PrimaryKey)
	t.ForeignKeys = nilIfEmpty(t.ForeignKeys)
	t.Sequences = nilIfEmpty(t.Sequences)
	if len(t.Checks) == 0 {
		t.Checks = nil
	} else {
		checks := make([]schema.Check, len(t.Checks))
		for i, c := range t.Checks {
			c.Values = nilIfEmpty(c.Values)
			checks[i] = c
		}
		t.Checks = checks
	}
	if len(t.UniqueKeys) == 0 {
		t.UniqueKeys = nil
	} else {
		uks := make([]schema.UniqueKey, len(t.UniqueKeys))
		for i, uk := range t.UniqueKeys {
			uk.Columns = nilIfEmpty(uk.Columns)
			uks[i] = uk
		}
		t.UniqueKeys = uks
	}
	return t
}

func nilIfEmpty[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}
	return s
}

// LoadManifest reads the manifest at path. A missing file yields an empty
// manifest; an unreadable one yields an empty manifest and the error.
func LoadManifest(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewManifest(), nil
	}
	if err != nil {
		return NewManifest(), fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return NewManifest(), fmt.Errorf("decode manifest %s: %w", path, err)
	}
	return &m, nil
}

// LastScriptOnDisk returns the highest version among the V<n>__*.sql
// scripts in dir, or 0 when there are none.
func LastScriptOnDisk(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	last := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "V") || !strings.HasSuffix(name, ".sql") {
			continue
		}
		num, _, ok := strings.Cut(name[1:], "__")
		if !ok {
			continue
		}
		if v, err := strconv.Atoi(num); err == nil && v > last {
			last = v
		}
	}
	return last, nil
}

// CatchUp raises LastScriptVersion to the newest script under root's
// scripts directory and returns the version found there.
func (m *Manifest) CatchUp(root string) (int, error) {
	onDisk, err := LastScriptOnDisk(filepath.Join(root, ScriptsDir))
	if err != nil {
		return 0, fmt.Errorf("scan scripts: %w", err)
	}
	if onDisk > m.LastScriptVersion {
		m.LastScriptVersion = onDisk
	}
	return onDisk, nil
}

// SaveManifest writes m to path atomically.
func SaveManifest(path string, m *Manifest) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, append(b, '\n'))
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it over path, so readers see either the old or the new content.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	cleanup := func() { _ = os.Remove(tmp) }
	if _, err := f.Write(data); err != nil {
		f.Close()
		cleanup()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		cleanup()
		return err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		cleanup()
		return err
	}
	return nil
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

func newRunID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
