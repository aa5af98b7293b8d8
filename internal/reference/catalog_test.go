package reference

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnumCatalog(t *testing.T) {
	dir := t.TempDir()
	named := "name: OrderStatus\nitems:\n  - code: NEW\n    name: New\n  - code: PAID\n    name: Paid\n    order: 2\n  - name: blank code is skipped\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "status.yaml"), []byte(named), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Currency.yml"), []byte("items:\n  - code: EUR\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a catalog"), 0o644))

	cat, err := LoadEnumCatalog(dir)
	require.NoError(t, err)
	require.Len(t, cat, 2)
	assert.Equal(t, []string{"NEW", "PAID"}, cat["OrderStatus"].Codes())
	assert.Equal(t, 2, cat["OrderStatus"].Items[1].Order)
	assert.Equal(t, []string{"EUR"}, cat["Currency"].Codes())
}

func TestLoadEnumCatalogMissingDir(t *testing.T) {
	cat, err := LoadEnumCatalog(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, cat)
}

func TestLoadEnumCatalogInvalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("items: {code: ["), 0o644))
	_, err := LoadEnumCatalog(dir)
	assert.Error(t, err)
}
