package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/memex-index/internal/model"
)

// run executes the CLI in-process against the data directory dir.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(append([]string{"memex", "--config", dir}, args...))
	return out.String(), err
}

func writePage(t *testing.T, dir, name, id, url, text string, visit int64) string {
	t.Helper()
	req := model.PageRequest{
		PageDoc:   model.PageDoc{ID: id, URL: url, Content: model.Content{FullText: text}},
		VisitDocs: []model.TimestampDoc{{Time: visit}},
	}
	data, err := json.Marshal(req)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestIndexSearchAndTag(t *testing.T) {
	dir := t.TempDir()
	p1 := writePage(t, dir, "p1.json", "p1", "http://a.com/one", "golang concurrency patterns", 1000)
	p2 := writePage(t, dir, "p2.json", "p2", "http://b.com/two", "golang generics", 2000)

	out, err := run(t, dir, "index", p1, p2)
	require.NoError(t, err)
	assert.Contains(t, out, "indexed http://a.com/one")

	out, err = run(t, dir, "search", "golang")
	require.NoError(t, err)
	assert.Less(t, bytes.Index([]byte(out), []byte("http://b.com/two")), bytes.Index([]byte(out), []byte("http://a.com/one")))

	_, err = run(t, dir, "tag", "add", "p1", "reading")
	require.NoError(t, err)
	out, err = run(t, dir, "search", "--tag", "reading", "golang")
	require.NoError(t, err)
	assert.Contains(t, out, "http://a.com/one")
	assert.NotContains(t, out, "http://b.com/two")

	out, err = run(t, dir, "suggest", "tags", "rea")
	require.NoError(t, err)
	assert.Equal(t, "reading\n", out)

	out, err = run(t, dir, "verify")
	require.NoError(t, err)
	assert.Contains(t, out, "index is consistent")
}

func TestDeleteUnknownPageFails(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "delete", "nope")
	assert.Error(t, err)
}

func TestUnopenableStoreIsFatal(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "--db", dir, "stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fatal error: cannot open index")
}

func TestDumpAndRestore(t *testing.T) {
	src := t.TempDir()
	p1 := writePage(t, src, "p1.json", "p1", "http://a.com/one", "golang concurrency", 1000)
	_, err := run(t, src, "index", p1)
	require.NoError(t, err)

	dumpDir := filepath.Join(t.TempDir(), "dump")
	out, err := run(t, src, "dump", "--dir", dumpDir, "--chunk-size", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "dumped")

	dst := t.TempDir()
	out, err = run(t, dst, "restore", dumpDir)
	require.NoError(t, err)
	assert.Contains(t, out, "restored")

	out, err = run(t, dst, "search", "concurrency")
	require.NoError(t, err)
	assert.Contains(t, out, "http://a.com/one")
}

func TestConfigFileIsApplied(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "memex.toml"), []byte("[store]\npath = \"custom.db\"\n"), 0o644))

	_, err := run(t, dir, "stats")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "custom.db"))
}
