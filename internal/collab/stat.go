package collab

import "os"

// StatFileAttributes implements FileAttributes on top of os.Stat. The
// modification timestamp is the file's mtime as Unix nanoseconds,
// which is opaque to the rest of packdex — it is only ever compared
// for equality, never decoded.
type StatFileAttributes struct{}

func (StatFileAttributes) Stat(path string) (timestamp uint64, size uint64, ok bool) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, 0, false
	}
	return uint64(info.ModTime().UnixNano()), uint64(info.Size()), true
}
