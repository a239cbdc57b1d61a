package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memkit/packdex/internal/builder"
	"github.com/memkit/packdex/internal/collab"
	"github.com/memkit/packdex/internal/output"
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

func TestWatcherWritesIncrementalChangesBelowThreshold(t *testing.T) {
	dir := t.TempDir()
	projectPath := filepath.Join(dir, "project")
	buildEmptyPack(t, dir)
	// rename to match ProjectPath's derived pack path.
	require.NoError(t, os.Rename(filepath.Join(dir, "project.qgd"), PackPath(projectPath)))

	fw := newFakeDirWatcher()
	w := New(output.Discard{}, collab.StatFileAttributes{}, collab.FlateCodec{}, fw)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- w.Start(ctx, Config{
			ProjectPath: projectPath,
			Dirs:        []string{dir},
			Threshold:   100,
			Timeout:     50 * time.Millisecond,
		})
	}()

	fw.push("a.go")
	fw.push("b.go")

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(ChangesPath(projectPath))
		return err == nil && string(data) == "a.go\nb.go\n"
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestWatcherEscalatesPastThreshold(t *testing.T) {
	dir := t.TempDir()
	projectPath := filepath.Join(dir, "project")
	buildEmptyPack(t, dir)
	require.NoError(t, os.Rename(filepath.Join(dir, "project.qgd"), PackPath(projectPath)))

	fw := newFakeDirWatcher()
	w := New(output.Discard{}, collab.StatFileAttributes{}, collab.FlateCodec{}, fw)

	var repackCalls int32
	repack := func(context.Context) error {
		atomic.AddInt32(&repackCalls, 1)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- w.Start(ctx, Config{
			ProjectPath: projectPath,
			Dirs:        []string{dir},
			Repack:      repack,
			Threshold:   100,
			Timeout:     30 * time.Millisecond,
		})
	}()

	for i := 0; i < 150; i++ {
		fw.push(fmt.Sprintf("file%d.go", i))
	}

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&repackCalls) == 1
	}, 2*time.Second, 5*time.Millisecond)

	paths, _ := w.Snapshot()
	assert.Empty(t, paths, "changed set must be cleared after escalation")
	assert.Equal(t, 1, w.Escalations())

	cancel()
	<-done
}

func TestWatcherChangesFileRemovedWhenEmpty(t *testing.T) {
	dir := t.TempDir()
	changesPath := filepath.Join(dir, "project.qgc")
	require.NoError(t, os.WriteFile(changesPath, []byte("stale\n"), 0o644))

	require.NoError(t, writeChanges(changesPath, nil))
	_, err := os.Stat(changesPath)
	assert.True(t, os.IsNotExist(err))
}

func TestWatcherChangesFileAtomicWrite(t *testing.T) {
	dir := t.TempDir()
	changesPath := filepath.Join(dir, "project.qgc")

	require.NoError(t, writeChanges(changesPath, []string{"b.go", "a.go"}))
	data, err := os.ReadFile(changesPath)
	require.NoError(t, err)
	assert.Equal(t, "a.go\nb.go\n", string(data))

	_, err = os.Stat(changesPath + "_")
	assert.True(t, os.IsNotExist(err), "temp file must not survive a successful write")
}
