package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

// TestCreateExtractRoundtrip archives a directory and unpacks it again,
// checking membership, content and executable permission.
func TestCreateExtractRoundtrip(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "goose"), []byte("primary"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "temporal-service"), []byte("aux"), 0o755))

	dest := filepath.Join(t.TempDir(), "goose-x86_64-unknown-linux-gnu.tar.gz")
	require.NoError(t, Create(src, dest))

	names, err := List(dest)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"goose", "temporal-service"}, names)

	unpacked := t.TempDir()
	require.NoError(t, Extract(dest, unpacked))

	data, err := os.ReadFile(filepath.Join(unpacked, "goose"))
	require.NoError(t, err)
	require.Equal(t, []byte("primary"), data)

	info, err := os.Stat(filepath.Join(unpacked, "temporal-service"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

// TestCreateDeterministicMembership verifies two runs over identical inputs
// produce archives with identical entry sets.
func TestCreateDeterministicMembership(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	for _, name := range []string{"b", "a", "c"} {
		require.NoError(t, os.WriteFile(filepath.Join(src, name), []byte(name), 0o644))
	}

	first := filepath.Join(t.TempDir(), "one.tar.gz")
	second := filepath.Join(t.TempDir(), "two.tar.gz")
	require.NoError(t, Create(src, first))
	require.NoError(t, Create(src, second))

	firstNames, err := List(first)
	require.NoError(t, err)

	secondNames, err := List(second)
	require.NoError(t, err)

	require.Equal(t, firstNames, secondNames)
	require.Equal(t, []string{"a", "b", "c"}, firstNames)
}

// TestExtractZip unpacks a zip archive with a nested entry.
func TestExtractZip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "release.zip")

	f, err := os.Create(src)
	require.NoError(t, err)

	zw := zip.NewWriter(f)

	w, err := zw.Create("bin/temporal")
	require.NoError(t, err)

	_, err = w.Write([]byte("external"))
	require.NoError(t, err)

	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	dest := t.TempDir()
	require.NoError(t, Extract(src, dest))

	data, err := os.ReadFile(filepath.Join(dest, "bin", "temporal"))
	require.NoError(t, err)
	require.Equal(t, []byte("external"), data)
}

// TestExtractRejectsTraversal verifies entries escaping the destination are refused.
func TestExtractRejectsTraversal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "evil.zip")

	f, err := os.Create(src)
	require.NoError(t, err)

	zw := zip.NewWriter(f)

	w, err := zw.Create("../escape")
	require.NoError(t, err)

	_, err = w.Write([]byte("nope"))
	require.NoError(t, err)

	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	err = Extract(src, t.TempDir())
	require.ErrorContains(t, err, "illegal file path")
}

// TestExtractUnsupportedFormat pins the error for unknown extensions.
func TestExtractUnsupportedFormat(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "release.rar")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	err := Extract(src, dir)
	require.ErrorContains(t, err, "unsupported archive format")
}
