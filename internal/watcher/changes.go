package watcher

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/memkit/packdex/internal/config"
)

// PackPath returns the pack file path for a project path: the
// project's extension replaced with config.PackExtension.
func PackPath(projectPath string) string {
	return replaceExtension(projectPath, config.PackExtension)
}

// ChangesPath returns the changes-file path for a project path: the
// project's extension replaced with config.ChangesExtension.
func ChangesPath(projectPath string) string {
	return replaceExtension(projectPath, config.ChangesExtension)
}

func replaceExtension(path, ext string) string {
	if dot := strings.LastIndexByte(path, '.'); dot >= 0 && dot > strings.LastIndexByte(path, '/') {
		return path[:dot] + ext
	}
	return path + ext
}

// writeChanges writes paths, sorted, one per line LF-terminated, to a
// sibling temp path and atomically renames it over target — the
// temp-then-rename pattern that guarantees readers never see a torn
// write. If paths is empty, target is removed instead (an absent
// changes file means "no changes").
func writeChanges(target string, paths []string) error {
	if len(paths) == 0 {
		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove changes file %s: %w", target, err)
		}
		return nil
	}

	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	var buf strings.Builder
	for _, p := range sorted {
		buf.WriteString(p)
		buf.WriteByte('\n')
	}

	tmp := target + "_"
	if err := os.WriteFile(tmp, []byte(buf.String()), 0o644); err != nil {
		return fmt.Errorf("write temp changes file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("rename %s to %s: %w", tmp, target, err)
	}
	return nil
}
