// Package collab holds the interfaces for the ambient collaborators
// the builder and watcher depend on — file attributes, filesystem
// notification, UTF-8 normalization, and compression — plus one
// concrete default implementation of each, so the rest of the module
// is runnable end to end.
package collab

import (
	"context"
	"time"
)

// FileAttributes reports the modification stamp and size packdex
// associates with a file, without reading its contents.
type FileAttributes interface {
	// Stat returns the file's modification timestamp (opaque, but
	// stable and comparable across calls) and its size in bytes. ok is
	// false if the file does not exist or cannot be statted.
	Stat(path string) (timestamp uint64, size uint64, ok bool)
}

// DirectoryWatcher pushes a relative file path to onChange whenever
// the operating system reports a change under dir. It blocks until ctx
// is canceled and then returns.
type DirectoryWatcher interface {
	Watch(ctx context.Context, dir string, onChange func(file string)) error
}

// Normalizer converts arbitrary file bytes to UTF-8. The conversion is
// lossy on encoding (e.g. invalid byte sequences become the Unicode
// replacement character) but preserves content semantics for
// already-valid UTF-8 and ASCII input.
type Normalizer interface {
	ToUTF8(data []byte) ([]byte, error)
}

// Codec compresses chunk payloads and supports decompressing only a
// prefix of a known-size output, so a reader can recover a chunk's
// file table without materializing its body bytes.
type Codec interface {
	// Compress returns the compressed form of data.
	Compress(data []byte) ([]byte, error)
	// DecompressPartial decompresses compressed, which is known to
	// expand to exactly uncompressedSize bytes, but stops once
	// neededPrefix bytes of output have been produced. The returned
	// slice has length neededPrefix (or uncompressedSize, whichever is
	// smaller).
	DecompressPartial(compressed []byte, uncompressedSize int, neededPrefix int) ([]byte, error)
}

// Clock abstracts time.Now for the wall-clock stamps cmd/packdex
// records in the catalog, so tests can inject a fixed time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the default Clock, backed by time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
