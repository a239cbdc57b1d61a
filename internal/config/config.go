// Package config holds the build-time constants that tune the pack
// builder and the watcher. A production deployment may want these
// configurable per project; for now they are fixed the way the
// original implementation fixed them, and documented here instead of
// scattered across call sites.
package config

import "time"

const (
	// ChunkSize is the target uncompressed size of a chunk, in bytes.
	// The builder accumulates pending fragments until it can cut a
	// chunk of roughly this size; see internal/builder.
	ChunkSize = 1 << 20 // 1 MiB

	// BloomRatioDivisor expresses the target bloom filter size as a
	// fraction of a chunk's uncompressed size: IndexSize ≈
	// UncompressedSize / BloomRatioDivisor. It is derived from an
	// empirical ~5x LZ4 compression ratio on source text and a target
	// index size of ~10% of the compressed size (5 * 10 = 50).
	BloomRatioDivisor = 50

	// BloomMinSize is the smallest bloom filter the builder will
	// bother writing. Below this, the index is omitted entirely
	// (IndexSize = 0) because the filter would reject too little to be
	// worth the disk space.
	BloomMinSize = 1024

	// BloomMaxHashIterations and BloomMinHashIterations clamp the
	// computed hash count k for the bloom filter.
	BloomMaxHashIterations = 16
	BloomMinHashIterations = 1

	// WatchUpdateThresholdFiles is the change-count at or above which
	// the watcher prefers a full repack over writing an incremental
	// changes file.
	WatchUpdateThresholdFiles = 100

	// WatchUpdateTimeout is the quiescence window the watcher waits
	// for, once at or above WatchUpdateThresholdFiles, before escalating to
	// a full repack.
	WatchUpdateTimeout = 10 * time.Second

	// PackExtension and ChangesExtension are the file extensions
	// packdex substitutes for a project's own extension to derive the
	// pack path and the changes-file path.
	PackExtension    = ".qgd"
	ChangesExtension = ".qgc"
)
