package types

import "errors"

// Sentinel errors returned by the builder, reader, and watcher.
var (
	// ErrFormatMismatch is returned when a pack's magic does not match
	// the format this build of packdex understands.
	ErrFormatMismatch = errors.New("pack format is out of date, rebuild the project")
	// ErrCorrupt is returned when a chunk header implies a read past
	// EOF, or decompression fails.
	ErrCorrupt = errors.New("pack file is corrupt")
	// ErrNotFound reports that a requested entity does not exist. No
	// function in this module returns it.
	ErrNotFound = errors.New("not found")
)
