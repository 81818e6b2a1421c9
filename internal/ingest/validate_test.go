package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRequestFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, data []byte) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, data, 0o644))
		return path
	}

	assert.NoError(t, validateRequestFile(write("ok.json", []byte("\n  {\"pageDoc\":{}}"))))
	assert.ErrorContains(t, validateRequestFile(write("array.json", []byte(`[1,2]`))), "JSON object")
	assert.ErrorContains(t, validateRequestFile(write("empty.json", nil)), "JSON object")
	assert.ErrorContains(t, validateRequestFile(write("bin.json", []byte{0, 1, 2, 3, 4, 5, '{'})), "binary")
	assert.ErrorContains(t, validateRequestFile(dir), "not a regular file")
	assert.Error(t, validateRequestFile(filepath.Join(dir, "missing.json")))
}

func TestIsBinaryData(t *testing.T) {
	assert.False(t, isBinaryData(nil))
	assert.False(t, isBinaryData([]byte("{\"a\":\t1}\r\n")))
	assert.True(t, isBinaryData([]byte{0x00, 0x01, 0x02, 'a'}))
}
