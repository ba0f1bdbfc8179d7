package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manual-markers/internal/catalog"
	"manual-markers/pkg/colorutil"
)

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fileteadora.mmproj")

	p := New("Baader 581")
	p.SetManual(path, filepath.Join(dir, "manuales", "b581.pdf"))
	require.NoError(t, p.Save(path))
	assert.Equal(t, filepath.Join("manuales", "b581.pdf"), p.Manual)

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Baader 581", got.Name)
	assert.Equal(t, filepath.Join(dir, "manuales", "b581.pdf"), got.ManualURL(path))
	assert.Equal(t, catalog.FormaRectangulo, got.Defaults.Forma)
	assert.Equal(t, filepath.Join(dir, "fileteadora_catalog.db"), got.CatalogPath(path))
}

func TestManualURLKeptAsIs(t *testing.T) {
	p := New("m")
	p.SetManual("/proj/m.mmproj", "s3://manuales/b581.pdf")
	assert.Equal(t, "s3://manuales/b581.pdf", p.ManualURL("/proj/m.mmproj"))
}

func TestLoadFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.mmproj")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":1,"name":"x","catalog":"/data/c.db"}`), 0o644))
	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, colorutil.DefaultFill, p.Defaults.Color)
	assert.Equal(t, "/data/c.db", p.CatalogPath(path))
}

func TestLoadRejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.mmproj")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":9}`), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
