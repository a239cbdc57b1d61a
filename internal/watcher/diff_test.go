package watcher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/memkit/packdex/pkg/types"
)

func TestDiffAddedModifiedAndDeletedNotSurfaced(t *testing.T) {
	pack := []types.FileInfo{
		{Path: "a", Timestamp: 1, FileSize: 10},
		{Path: "b", Timestamp: 2, FileSize: 20},
	}
	current := []types.FileInfo{
		{Path: "a", Timestamp: 1, FileSize: 10},
		{Path: "b", Timestamp: 3, FileSize: 20}, // modified (timestamp differs)
		{Path: "c", Timestamp: 4, FileSize: 5},  // added
	}

	result := diff(current, pack)
	assert.Equal(t, []string{"b", "c"}, result)
}

func TestDiffPackOnlyFileNotSurfaced(t *testing.T) {
	pack := []types.FileInfo{
		{Path: "a", Timestamp: 1, FileSize: 10},
		{Path: "deleted", Timestamp: 9, FileSize: 9},
	}
	current := []types.FileInfo{
		{Path: "a", Timestamp: 1, FileSize: 10},
	}

	result := diff(current, pack)
	assert.Empty(t, result, "deletions are not surfaced by the startup diff")
}

func TestDiffUnchanged(t *testing.T) {
	pack := []types.FileInfo{{Path: "a", Timestamp: 1, FileSize: 10}}
	current := []types.FileInfo{{Path: "a", Timestamp: 1, FileSize: 10}}

	assert.Empty(t, diff(current, pack))
}
