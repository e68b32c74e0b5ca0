package compdb_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cgraph/internal/compdb"
)

func writeDB(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "compile_commands.json")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAndArgsFor(t *testing.T) {
	dir := t.TempDir()
	path := writeDB(t, dir, `[
  {
    "directory": "`+dir+`",
    "file": "src/main.c",
    "arguments": ["cc", "-Iinclude", "-DDEBUG=1", "-c", "src/main.c"]
  },
  {
    "directory": "`+dir+`",
    "file": "src/util.c",
    "command": "cc -I include -D NAME=\"demo tool\" -c src/util.c"
  }
]`)

	db, err := compdb.Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, db.Path())

	args, ok := db.ArgsFor(filepath.Join(dir, "src", "main.c"))
	require.True(t, ok)
	assert.Equal(t, []string{"-Iinclude", "-DDEBUG=1", "-c", "src/main.c"}, args)

	args, ok = db.ArgsFor(filepath.Join(dir, "src", "util.c"))
	require.True(t, ok)
	assert.Equal(t, []string{"-I", "include", "-D", "NAME=demo tool", "-c", "src/util.c"}, args)

	_, ok = db.ArgsFor(filepath.Join(dir, "src", "unknown.c"))
	assert.False(t, ok)
}

func TestLoadFirstEntryPerFileWins(t *testing.T) {
	dir := t.TempDir()
	path := writeDB(t, dir, `[
  {"directory": "`+dir+`", "file": "a.c", "arguments": ["cc", "-DFIRST"]},
  {"directory": "`+dir+`", "file": "a.c", "arguments": ["cc", "-DSECOND"]}
]`)

	db, err := compdb.Load(path)
	require.NoError(t, err)

	args, ok := db.ArgsFor(filepath.Join(dir, "a.c"))
	require.True(t, ok)
	assert.Equal(t, []string{"-DFIRST"}, args)
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeDB(t, dir, `{"not": "an array"}`)

	_, err := compdb.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse compilation database")
}

func TestDiscoverPrecedence(t *testing.T) {
	root := t.TempDir()
	buildDB := writeDB(t, filepath.Join(root, "build"), "[]")

	assert.Equal(t, buildDB, compdb.Discover(root, ""))

	rootDB := writeDB(t, root, "[]")
	assert.Equal(t, rootDB, compdb.Discover(root, ""), "root copy beats build copy")

	override := writeDB(t, filepath.Join(root, "out"), "[]")
	assert.Equal(t, override, compdb.Discover(root, override))

	assert.Equal(t, rootDB, compdb.Discover(root, filepath.Join(root, "missing.json")),
		"absent override falls back to the standard locations")

	assert.Equal(t, "", compdb.Discover(filepath.Join(root, "empty-root"), ""))
}

func TestSplitCommandQuoting(t *testing.T) {
	dir := t.TempDir()
	path := writeDB(t, dir, `[
  {
    "directory": "`+dir+`",
    "file": "q.c",
    "command": "cc '-DALPHA=a b' -DBETA=\"c d\" -D\\ ESCAPED q.c"
  }
]`)

	db, err := compdb.Load(path)
	require.NoError(t, err)

	args, ok := db.ArgsFor(filepath.Join(dir, "q.c"))
	require.True(t, ok)
	assert.Equal(t, []string{"-DALPHA=a b", "-DBETA=c d", "-D ESCAPED", "q.c"}, args)
}
