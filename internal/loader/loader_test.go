package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func realDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

func TestDiscover(t *testing.T) {
	dir := realDir(t)
	a := writeFile(t, dir, "a.py", "print(1)")
	b := writeFile(t, dir, "nested/b.py", "print(2)")
	writeFile(t, dir, "notes.txt", "ignore")

	paths := Discover([]string{
		filepath.Join(dir, "**", "*.py"),
		filepath.Join(dir, "a.py"), // duplicate
		filepath.Join(dir, "missing-*.go"),
		filepath.Join(dir, "[invalid"),
	})

	assert.Equal(t, []string{a, b}, paths)
}

func TestDiscover_NoPatterns(t *testing.T) {
	assert.Empty(t, Discover(nil))
}

func TestDecode(t *testing.T) {
	assert.Equal(t, "plain ascii", Decode([]byte("plain ascii")))
	assert.Equal(t, "héllo", Decode([]byte("héllo")))

	// Latin-1 bytes for "café crème, déjà vu" are not valid UTF-8.
	latin1 := []byte{'c', 'a', 'f', 0xe9, ' ', 'c', 'r', 0xe8, 'm', 'e', ',', ' ', 'd', 0xe9, 'j', 0xe0, ' ', 'v', 'u'}
	decoded := Decode(latin1)
	assert.True(t, utf8.ValidString(decoded))
	assert.NotEmpty(t, decoded)
}

func TestToValidUTF8(t *testing.T) {
	out := toValidUTF8([]byte{'o', 'k', 0xff})
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, "ok�", out)
}

func TestReadAll_PreservesOrder(t *testing.T) {
	dir := realDir(t)
	var paths []string
	for _, name := range []string{"z.txt", "a.txt", "m.txt", "b.txt"} {
		paths = append(paths, writeFile(t, dir, name, "content of "+name))
	}

	entries, err := ReadAll(context.Background(), paths, 2)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	for i, entry := range entries {
		assert.Equal(t, paths[i], entry.ID)
		assert.Equal(t, "content of "+filepath.Base(paths[i]), entry.Text)
	}
}

func TestReadAll_MissingFile(t *testing.T) {
	dir := realDir(t)
	_, err := ReadAll(context.Background(), []string{filepath.Join(dir, "nope.txt")}, 0)
	assert.Error(t, err)
}
