// Package types defines the on-disk and in-memory shapes shared by the
// pack builder, the pack reader, and the watcher.
//
// The pack file format is defined by the types in pack.go. In short: a FileHeader, followed by a sequence of chunks, each a
// ChunkHeader followed by an optional bloom index and an LZ4-class
// compressed payload whose decompressed form is a contiguous
// [FileTableEntry...] array, then concatenated names, then concatenated
// bodies.
package types
