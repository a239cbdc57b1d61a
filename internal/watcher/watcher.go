// Package watcher implements the change-watcher: it reconciles the
// current on-disk project against the file metadata stored in a pack,
// maintains a live "changed" set under concurrent
// filesystem-notification input, and emits either an incremental
// changes file or, past a threshold, triggers a full repack.
package watcher

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/memkit/packdex/internal/collab"
	"github.com/memkit/packdex/internal/config"
	"github.com/memkit/packdex/internal/output"
	"github.com/memkit/packdex/internal/reader"
	"github.com/memkit/packdex/pkg/types"
)

// RepackFunc is a full repack orchestrator the watcher calls once a
// change burst settles. Supplying one is the caller's responsibility
// (the ambient CLI); the watcher only ever calls it and clears its own
// changed set.
type RepackFunc func(ctx context.Context) error

// Accept reports whether a change under a watched root should be
// tracked at all.
type Accept func(dir, relPath string) bool

// Normalize maps a watched root and the relative path a
// DirectoryWatcher reports into the canonical string used everywhere
// else (scan time, pack paths, the changes file).
type Normalize func(dir, relPath string) string

// Config configures a single watch session.
type Config struct {
	// ProjectPath is the project's own path; PackPath and ChangesPath
	// derive from it by extension substitution.
	ProjectPath string
	// Dirs are the directories to watch, one notifier goroutine each.
	Dirs []string
	// Current is the project's freshly scanned file list, supplied by
	// the caller.
	Current []types.FileInfo
	// Accept and Normalize default to permissive/identity if nil.
	Accept    Accept
	Normalize Normalize
	// Repack is called once the changed set quiesces past threshold.
	Repack RepackFunc
	// Threshold and Timeout override config.WatchUpdateThresholdFiles
	// and config.WatchUpdateTimeout when non-zero.
	Threshold int
	Timeout   time.Duration
}

// Watcher owns the live changed-set and runs the coordinator loop.
// Construct with New, then call Start.
type Watcher struct {
	sink   output.Sink
	attrs  collab.FileAttributes
	codec  collab.Codec
	dirw   collab.DirectoryWatcher
	reader *reader.Reader

	mu          sync.Mutex
	changed     map[string]struct{}
	changedLast string
	notify      chan struct{} // replaced and closed on every insert, for waiters

	escalations int // count of repack escalations, for the catalog/MCP surface
}

// New constructs a Watcher. sink, attrs, codec, and dirw are its
// ambient collaborators.
func New(sink output.Sink, attrs collab.FileAttributes, codec collab.Codec, dirw collab.DirectoryWatcher) *Watcher {
	return &Watcher{
		sink:    sink,
		attrs:   attrs,
		codec:   codec,
		dirw:    dirw,
		reader:  reader.New(codec, attrs),
		changed: make(map[string]struct{}),
		notify:  make(chan struct{}),
	}
}

// insert adds path to the changed set and wakes any waiter.
func (w *Watcher) insert(path string) {
	w.mu.Lock()
	w.changed[path] = struct{}{}
	w.changedLast = path
	old := w.notify
	w.notify = make(chan struct{})
	w.mu.Unlock()
	close(old)
}

// snapshot returns the changed set's current paths (sorted) and the
// most recently inserted path, read together under one lock so they
// describe the same instant.
func (w *Watcher) snapshot() ([]string, string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	paths := make([]string, 0, len(w.changed))
	for p := range w.changed {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, w.changedLast
}

func (w *Watcher) size() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.changed)
}

func (w *Watcher) waitChan() chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.notify
}

// clear empties the changed set, used when a repack escalation fires.
func (w *Watcher) clear() {
	w.mu.Lock()
	w.changed = make(map[string]struct{})
	w.changedLast = ""
	w.escalations++
	w.mu.Unlock()
}

// Escalations returns the number of times the watcher has cleared the
// changed set and invoked Repack, for status reporting.
func (w *Watcher) Escalations() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.escalations
}

// Snapshot exposes the current changed set for monitoring surfaces
// (the MCP watch_status/list_changes tools); it never mutates state.
func (w *Watcher) Snapshot() (paths []string, last string) {
	return w.snapshot()
}

// TriggerRepack forces the escalation path immediately, regardless of
// the current changed-set size or quiescence — used by the
// trigger_repack MCP tool and by tests.
func (w *Watcher) TriggerRepack(ctx context.Context, repack RepackFunc) error {
	w.clear()
	if repack == nil {
		return nil
	}
	return repack(ctx)
}

// Start runs one watch session: it removes any stale changes file,
// computes the startup diff against the pack, writes the initial
// changes file, spawns one notifier goroutine per watched directory,
// and runs the coordinator loop until ctx is canceled. It returns the
// first error from any notifier, or nil on clean cancellation.
func (w *Watcher) Start(ctx context.Context, cfg Config) error {
	accept := cfg.Accept
	if accept == nil {
		accept = func(string, string) bool { return true }
	}
	normalize := cfg.Normalize
	if normalize == nil {
		normalize = func(_, relPath string) string { return relPath }
	}

	packPath := PackPath(cfg.ProjectPath)
	changesPath := ChangesPath(cfg.ProjectPath)

	// A changes file from a previous, now-stopped watch session must
	// never be mistaken for current state.
	_ = writeChanges(changesPath, nil)

	packFiles, err := w.reader.ReadMetadata(packPath)
	if err != nil {
		return fmt.Errorf("read pack metadata %s: %w", packPath, err)
	}

	initial := diff(cfg.Current, packFiles)
	w.mu.Lock()
	for _, p := range initial {
		w.changed[p] = struct{}{}
	}
	if len(initial) > 0 {
		w.changedLast = initial[len(initial)-1]
	}
	w.mu.Unlock()

	if len(initial) > 0 {
		w.sink.Print("%d files changed; listening for further changes", len(initial))
	} else {
		w.sink.Print("listening for changes")
	}

	if err := writeChanges(changesPath, initial); err != nil {
		w.sink.Error("saving changes to %s: %v", changesPath, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, dir := range cfg.Dirs {
		dir := dir
		w.sink.Print("watching folder %s...", dir)
		g.Go(func() error {
			err := w.dirw.Watch(gctx, dir, func(file string) {
				if !accept(dir, file) {
					return
				}
				w.insert(normalize(dir, file))
			})
			if err != nil {
				w.sink.Error("watching folder %s: %v", dir, err)
			} else {
				w.sink.Print("no longer watching folder %s", dir)
			}
			return err
		})
	}

	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = config.WatchUpdateThresholdFiles
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = config.WatchUpdateTimeout
	}

	g.Go(func() error {
		return w.coordinate(gctx, cfg.ProjectPath, cfg.Repack, threshold, timeout)
	})

	return g.Wait()
}

// coordinate runs the two-tier escalation loop: below threshold it
// waits for the changed-set size to move and writes the changes file;
// at/above threshold it waits with a timeout and, on quiescence,
// clears the set and triggers a repack.
func (w *Watcher) coordinate(ctx context.Context, projectPath string, repack RepackFunc, threshold int, timeout time.Duration) error {
	changesPath := ChangesPath(projectPath)
	lastSize := w.size()

	for {
		ch := w.waitChan()
		size := w.size()

		if size >= threshold {
			select {
			case <-ctx.Done():
				return nil
			case <-ch:
				continue
			case <-time.After(timeout):
				w.clear()
				if repack != nil {
					if err := repack(ctx); err != nil {
						w.sink.Error("repack failed: %v", err)
					}
				}
				lastSize = 0
				continue
			}
		}

		if size == lastSize {
			select {
			case <-ctx.Done():
				return nil
			case <-ch:
				continue
			}
		}

		lastSize = size
		paths, last := w.snapshot()
		w.sink.Print("%d files changed; last: %s", len(paths), last)

		if err := writeChanges(changesPath, paths); err != nil {
			w.sink.Error("saving changes to %s: %v", changesPath, err)
		}
	}
}
