// Package project walks a directory tree to the sorted list of files
// the builder and watcher operate on.
package project

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/memkit/packdex/internal/collab"
	"github.com/memkit/packdex/internal/config"
	"github.com/memkit/packdex/pkg/types"
)

// Scan walks root and returns every regular file beneath it, sorted by
// path, as relative-path, forward-slash-separated names. Pack and
// changes-file artifacts (config.PackExtension, config.ChangesExtension)
// are skipped: a project's own default project path often derives a
// pack path underneath the directory being scanned, and packing the
// pack into itself would corrupt the build.
func Scan(root string) ([]string, error) {
	var paths []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if isPackArtifact(path) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func isPackArtifact(path string) bool {
	ext := filepath.Ext(path)
	return ext == config.PackExtension || ext == config.ChangesExtension
}

// Stat builds the types.FileInfo list for paths (relative to root),
// using attrs for the (timestamp, size) pair. The result is the shape
// the watcher's startup diff compares against a pack's metadata.
func Stat(root string, paths []string, attrs collab.FileAttributes) []types.FileInfo {
	infos := make([]types.FileInfo, 0, len(paths))
	for _, p := range paths {
		timestamp, size, ok := attrs.Stat(filepath.Join(root, p))
		if !ok {
			continue
		}
		infos = append(infos, types.FileInfo{Path: p, Timestamp: timestamp, FileSize: size})
	}
	return infos
}
