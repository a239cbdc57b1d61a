package collab

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// PollWatcher implements DirectoryWatcher by periodically re-scanning
// a directory tree and diffing modification times, standing in for a
// native filesystem-notification mechanism.
type PollWatcher struct {
	// Interval between scans. Zero means DefaultPollInterval.
	Interval time.Duration
}

// DefaultPollInterval is used when PollWatcher.Interval is zero.
const DefaultPollInterval = 500 * time.Millisecond

type pollEntry struct {
	modTime time.Time
	size    int64
}

// Watch scans dir every Interval, calling onChange (with a path
// relative to dir, using forward slashes) for every file that is new,
// removed, or whose mtime/size changed since the previous scan. It
// returns when ctx is canceled.
func (w PollWatcher) Watch(ctx context.Context, dir string, onChange func(file string)) error {
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	known := make(map[string]pollEntry)
	w.seed(dir, known)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.scan(dir, known, onChange)
		}
	}
}

// seed populates known with the directory's current state without
// invoking onChange, so the first real scan has something to diff
// against instead of reporting every pre-existing file as changed.
func (w PollWatcher) seed(dir string, known map[string]pollEntry) {
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		known[rel] = pollEntry{modTime: info.ModTime(), size: info.Size()}
		return nil
	})
}

// scan updates known in place and invokes onChange for every path
// whose entry is new, changed, or removed.
func (w PollWatcher) scan(dir string, known map[string]pollEntry, onChange func(file string)) {
	seen := make(map[string]struct{}, len(known))

	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		seen[rel] = struct{}{}

		cur := pollEntry{modTime: info.ModTime(), size: info.Size()}
		prev, ok := known[rel]
		if !ok || prev != cur {
			known[rel] = cur
			onChange(rel)
		}
		return nil
	})

	for rel := range known {
		if _, ok := seen[rel]; !ok {
			delete(known, rel)
			onChange(rel)
		}
	}
}
