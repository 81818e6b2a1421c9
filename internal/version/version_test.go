package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFullInfo(t *testing.T) {
	assert.Contains(t, FullInfo(), "memex "+Version)
	assert.Equal(t, Version, Info())
}

func TestComputeBuildID(t *testing.T) {
	assert.Equal(t, Version+"-"+GitCommit, computeBuildID(nil, false))

	info := &debug.BuildInfo{GoVersion: "go1.24.2", Main: debug.Module{Path: "github.com/standardbeagle/memex-index"}}
	id := computeBuildID(info, true)
	assert.Len(t, id, 16)
	assert.Equal(t, id, computeBuildID(info, true))

	info.Settings = []debug.BuildSetting{{Key: "vcs.revision", Value: "abc"}}
	assert.NotEqual(t, id, computeBuildID(info, true))
	assert.NotEmpty(t, BuildID())
}
