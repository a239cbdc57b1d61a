package watcher

import (
	"sort"

	"github.com/memkit/packdex/pkg/types"
)

// diff computes the set of paths that have drifted between current
// (freshly scanned from disk) and pack (read from the pack's file
// table): a path present in current but not pack is added; present in
// both with a differing timestamp or size is modified; present in
// pack but absent from current is a deletion and is deliberately not
// surfaced here (deletions are left to the next full repack).
func diff(current, pack []types.FileInfo) []string {
	cur := append([]types.FileInfo(nil), current...)
	sort.Slice(cur, func(i, j int) bool { return cur[i].Path < cur[j].Path })

	packSorted := append([]types.FileInfo(nil), pack...)
	sort.Slice(packSorted, func(i, j int) bool { return packSorted[i].Path < packSorted[j].Path })

	var result []string
	i := 0

	for _, pf := range packSorted {
		for i < len(cur) && cur[i].Path < pf.Path {
			result = append(result, cur[i].Path)
			i++
		}
		if i < len(cur) && cur[i].Path == pf.Path {
			if cur[i].Timestamp != pf.Timestamp || cur[i].FileSize != pf.FileSize {
				result = append(result, cur[i].Path)
			}
			i++
		}
	}

	for i < len(cur) {
		result = append(result, cur[i].Path)
		i++
	}

	return result
}
