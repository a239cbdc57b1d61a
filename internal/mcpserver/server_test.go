package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memkit/packdex/internal/builder"
	"github.com/memkit/packdex/internal/collab"
	"github.com/memkit/packdex/internal/output"
	"github.com/memkit/packdex/internal/watcher"
)

// fakeDirWatcher lets a test push synthetic change events on demand
// instead of depending on real OS filesystem notifications.
type fakeDirWatcher struct {
	events chan string
}

func newFakeDirWatcher() *fakeDirWatcher {
	return &fakeDirWatcher{events: make(chan string, 4096)}
}

func (f *fakeDirWatcher) push(path string) { f.events <- path }

func (f *fakeDirWatcher) Watch(ctx context.Context, dir string, onChange func(file string)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case p := <-f.events:
			onChange(p)
		}
	}
}

func buildEmptyPack(t *testing.T, dir string) string {
	t.Helper()
	packPath := filepath.Join(dir, "project.qgd")
	b := builder.New(output.Discard{}, collab.FlateCodec{}, collab.UTF8Normalizer{}, collab.StatFileAttributes{})
	require.NoError(t, b.Start(packPath))
	require.NoError(t, b.Close())
	return packPath
}

// testHarness wires a real *watcher.Watcher to a Server, with a fake
// DirectoryWatcher the test drives directly.
type testHarness struct {
	srv         *Server
	fw          *fakeDirWatcher
	w           *watcher.Watcher
	repackCalls int32
	stop        func()
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	dir := t.TempDir()
	projectPath := filepath.Join(dir, "project")
	buildEmptyPack(t, dir)
	require.NoError(t, os.Rename(filepath.Join(dir, "project.qgd"), watcher.PackPath(projectPath)))

	h := &testHarness{fw: newFakeDirWatcher()}
	h.w = watcher.New(output.Discard{}, collab.StatFileAttributes{}, collab.FlateCodec{}, h.fw)

	repack := func(context.Context) error {
		atomic.AddInt32(&h.repackCalls, 1)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- h.w.Start(ctx, watcher.Config{
			ProjectPath: projectPath,
			Dirs:        []string{dir},
			Repack:      repack,
			Threshold:   100,
			Timeout:     30 * time.Millisecond,
		})
	}()

	h.srv = NewServer(h.w, repack)
	h.stop = func() {
		cancel()
		<-done
	}

	t.Cleanup(h.stop)
	return h
}

func (h *testHarness) waitForChangedCount(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		paths, _ := h.w.Snapshot()
		return len(paths) == n
	}, time.Second, 5*time.Millisecond)
}

func decodeResult(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected a text content block")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &decoded))
	return decoded
}

func TestHandleWatchStatusReportsChangedCount(t *testing.T) {
	h := newTestHarness(t)

	h.fw.push("a.go")
	h.fw.push("b.go")
	h.waitForChangedCount(t, 2)

	result, err := h.srv.handleWatchStatus(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)

	decoded := decodeResult(t, result)
	assert.Equal(t, float64(2), decoded["changed_count"])
	assert.Equal(t, "b.go", decoded["last_changed"])
	assert.Equal(t, float64(0), decoded["escalations"])
}

func TestHandleListChangesListsSortedPaths(t *testing.T) {
	h := newTestHarness(t)

	h.fw.push("z.go")
	h.fw.push("a.go")
	h.waitForChangedCount(t, 2)

	result, err := h.srv.handleListChanges(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)

	decoded := decodeResult(t, result)
	changes, ok := decoded["changes"].([]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{"a.go", "z.go"}, changes)
}

func TestHandleTriggerRepackClearsChangedSetAndRunsRepack(t *testing.T) {
	h := newTestHarness(t)

	h.fw.push("a.go")
	h.fw.push("b.go")
	h.waitForChangedCount(t, 2)

	result, err := h.srv.handleTriggerRepack(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)

	decoded := decodeResult(t, result)
	assert.Equal(t, true, decoded["repacked"])

	paths, _ := h.w.Snapshot()
	assert.Empty(t, paths)
	assert.Equal(t, 1, h.w.Escalations())
	assert.Equal(t, int32(1), atomic.LoadInt32(&h.repackCalls))
}
