package migrate

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crudgen/internal/dsl"
	"crudgen/internal/schema"
)

func scriptFiles(t *testing.T, root string) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(root, ScriptsDir))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestGenerateNewEntity(t *testing.T) {
	root := t.TempDir()
	rep, err := Generate([]*dsl.Entity{orderEntity()}, schema.Postgres, root, quiet())
	require.NoError(t, err)

	assert.Equal(t, StatePersisted, rep.State)
	assert.Equal(t, 1, rep.Version)
	assert.Equal(t, 1, rep.Count(StatusNew))
	require.Len(t, rep.Scripts, 1)
	assert.Equal(t, filepath.Join(root, ScriptsDir, "V1__create_order.sql"), rep.Scripts[0].Path)
	assert.Equal(t, []string{"V1__create_order.sql"}, scriptFiles(t, root))

	body, err := os.ReadFile(rep.Scripts[0].Path)
	require.NoError(t, err)
	assert.Contains(t, string(body), `create table "order" (`)
	assert.Contains(t, string(body), "primary key (id)")
	assert.Contains(t, string(body), "name varchar(255)")

	m, err := LoadManifest(ManifestPath(root))
	require.NoError(t, err)
	assert.Equal(t, 1, m.LastScriptVersion)
	assert.NotEmpty(t, m.GeneratorVersion)
	_, err = ulid.Parse(m.LastRunID)
	assert.NoError(t, err)
	assert.Equal(t, rep.RunID, m.LastRunID)
}

func TestGenerateIsIdempotent(t *testing.T) {
	root := t.TempDir()
	_, err := Generate([]*dsl.Entity{orderEntity()}, schema.Postgres, root, quiet())
	require.NoError(t, err)
	before, err := os.ReadFile(ManifestPath(root))
	require.NoError(t, err)

	rep, err := Generate([]*dsl.Entity{orderEntity()}, schema.Postgres, root, quiet())
	require.NoError(t, err)
	assert.Equal(t, StateClean, rep.State)
	assert.Equal(t, 1, rep.Version)
	assert.Empty(t, rep.Scripts)

	after, err := os.ReadFile(ManifestPath(root))
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Len(t, scriptFiles(t, root), 1)
}

func TestGenerateVersionsAreMonotonic(t *testing.T) {
	root := t.TempDir()
	runs := [][]*dsl.Entity{
		{orderEntity()},
		{orderEntity(scalar("note", "String"))},
		{orderEntity(scalar("note", "String")), {Name: "Customer", Fields: []dsl.Field{idField("id")}}},
		{orderEntity(scalar("note", "String"), scalar("paid", "Boolean")), {Name: "Customer", Fields: []dsl.Field{idField("id"), scalar("email", "String")}}},
	}
	last := 0
	for i, entities := range runs {
		rep, err := Generate(entities, schema.Postgres, root, quiet())
		require.NoError(t, err, "run %d", i)
		require.Equal(t, StatePersisted, rep.State, "run %d", i)
		assert.Greater(t, rep.Version, last)
		for _, sc := range rep.Scripts {
			assert.True(t, strings.HasPrefix(sc.Name, "V"+strconv.Itoa(rep.Version)+"__"), sc.Name)
		}
		m, err := LoadManifest(ManifestPath(root))
		require.NoError(t, err)
		assert.Equal(t, rep.Version, m.LastScriptVersion)
		last = rep.Version
	}
	assert.Equal(t, 4, last)
	assert.ElementsMatch(t, []string{
		"V1__create_order.sql",
		"V2__alter_tables.sql",
		"V3__create_customer.sql",
		"V4__alter_tables.sql",
	}, scriptFiles(t, root))

	body, err := os.ReadFile(filepath.Join(root, ScriptsDir, "V4__alter_tables.sql"))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(body), "add column"))
}

func TestGenerateCorruptManifestIsColdStart(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, StateDir), 0o755))
	require.NoError(t, os.WriteFile(ManifestPath(root), []byte("{not json"), 0o644))

	rep, err := Generate([]*dsl.Entity{orderEntity()}, schema.Postgres, root, quiet())
	require.NoError(t, err)
	assert.Equal(t, StatePersisted, rep.State)
	assert.Equal(t, 1, rep.Version)
	assert.Equal(t, StatusNew, rep.Changes[0].Status)
	assert.Contains(t, issueCodes(rep.Issues), schema.CodeManifestUnreadable)

	m, err := LoadManifest(ManifestPath(root))
	require.NoError(t, err)
	assert.Equal(t, 1, m.LastScriptVersion)
}

func TestGenerateUnresolvedTargetWritesNothing(t *testing.T) {
	root := t.TempDir()
	_, err := Generate([]*dsl.Entity{orderEntity(ref("customer", dsl.ManyToOne, "Customer"))}, schema.Postgres, root, quiet())
	require.ErrorIs(t, err, schema.ErrUnresolvedRelationTarget)

	assert.Empty(t, scriptFiles(t, root))
	_, err = os.Stat(ManifestPath(root))
	assert.True(t, os.IsNotExist(err))
}

func TestGenerateDeletedManifestRecreatesEverything(t *testing.T) {
	root := t.TempDir()
	_, err := Generate([]*dsl.Entity{orderEntity()}, schema.Postgres, root, quiet())
	require.NoError(t, err)
	require.NoError(t, os.Remove(ManifestPath(root)))

	rep, err := Generate([]*dsl.Entity{orderEntity()}, schema.Postgres, root, quiet())
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Version)
	assert.Equal(t, StatusNew, rep.Changes[0].Status)
	assert.Equal(t, []string{"V1__create_order.sql", "V2__create_order.sql"}, scriptFiles(t, root))
}

func TestGenerateLostManifestKeepsExistingScripts(t *testing.T) {
	for name, lose := range map[string]func(path string) error{
		"deleted": os.Remove,
		"corrupt": func(path string) error { return os.WriteFile(path, []byte("{not json"), 0o644) },
	} {
		t.Run(name, func(t *testing.T) {
			root := t.TempDir()
			_, err := Generate([]*dsl.Entity{orderEntity()}, schema.Postgres, root, quiet())
			require.NoError(t, err)
			v1 := filepath.Join(root, ScriptsDir, "V1__create_order.sql")
			before, err := os.ReadFile(v1)
			require.NoError(t, err)

			require.NoError(t, lose(ManifestPath(root)))
			rep, err := Generate([]*dsl.Entity{orderEntity(scalar("note", "String"))}, schema.Postgres, root, quiet())
			require.NoError(t, err)
			assert.Equal(t, 2, rep.Version)
			require.Len(t, rep.Scripts, 1)
			assert.Equal(t, "V2__create_order.sql", rep.Scripts[0].Name)

			after, err := os.ReadFile(v1)
			require.NoError(t, err)
			assert.Equal(t, string(before), string(after))

			m, err := LoadManifest(ManifestPath(root))
			require.NoError(t, err)
			assert.Equal(t, 2, m.LastScriptVersion)
		})
	}
}

func TestLastScriptOnDisk(t *testing.T) {
	dir := t.TempDir()
	v, err := LastScriptOnDisk(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Zero(t, v)

	for _, name := range []string{"V2__create_order.sql", "V10__alter_tables.sql", "V11__notes.txt", "README.sql", "Vx__bad.sql"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	v, err = LastScriptOnDisk(dir)
	require.NoError(t, err)
	assert.Equal(t, 10, v)
}
