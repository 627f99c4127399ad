package manifest

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/block/goose-packager/internal/pipeline"
)

// TestBuild verifies entries mirror the staged set and checksums are stable.
func TestBuild(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	goosePath := filepath.Join(dir, "goose")
	require.NoError(t, os.WriteFile(goosePath, []byte("primary"), 0o755))

	entries := []pipeline.Entry{{Name: "goose", Path: goosePath}}

	m, err := Build("x86_64-unknown-linux-gnu", "goose-x86_64-unknown-linux-gnu.tar.gz", entries)
	require.NoError(t, err)
	require.Len(t, m.Files, 1)

	sum, err := FileChecksum(goosePath)
	require.NoError(t, err)
	require.Equal(t, base64.StdEncoding.EncodeToString(sum), m.Files["goose"])

	again, err := Build("x86_64-unknown-linux-gnu", "goose-x86_64-unknown-linux-gnu.tar.gz", entries)
	require.NoError(t, err)
	require.Equal(t, m.Files, again.Files)
}

// TestBuildMissingFile verifies a vanished staged file is an error, not a
// silently empty checksum.
func TestBuildMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Build("triple", "archive", []pipeline.Entry{
		{Name: "goose", Path: filepath.Join(t.TempDir(), "absent")},
	})
	require.Error(t, err)
}

// TestSaveLoadRoundtrip ensures the manifest persists and loads back intact.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "temporal-service")
	require.NoError(t, os.WriteFile(file, []byte("aux"), 0o755))

	m, err := Build("aarch64-unknown-linux-gnu", "goose-aarch64-unknown-linux-gnu.tar.gz",
		[]pipeline.Entry{{Name: "temporal-service", Path: file}})
	require.NoError(t, err)

	path := filepath.Join(dir, "manifest.yaml")
	require.NoError(t, m.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, m, loaded)
}
