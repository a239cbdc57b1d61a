package types

import "encoding/binary"

// Magic is the fixed ASCII tag at the start of every pack file. A
// format change (field layout, bloom hash scheme) must bump this
// constant so that old readers refuse the new format cleanly instead
// of misinterpreting it.
const Magic = "PKDX0001"

// FileHeaderSize is the on-disk size, in bytes, of FileHeader.
const FileHeaderSize = len(Magic)

// FileHeader is the first thing written to a pack file.
type FileHeader struct {
	Magic [FileHeaderSize]byte
}

// NewFileHeader returns a FileHeader stamped with the current Magic.
func NewFileHeader() FileHeader {
	var h FileHeader
	copy(h.Magic[:], Magic)
	return h
}

// Valid reports whether the header's magic matches this build's Magic.
func (h FileHeader) Valid() bool {
	return string(h.Magic[:]) == Magic
}

// Marshal encodes the header to its on-disk representation.
func (h FileHeader) Marshal() []byte {
	out := make([]byte, FileHeaderSize)
	copy(out, h.Magic[:])
	return out
}

// UnmarshalFileHeader decodes a FileHeader from its on-disk bytes.
func UnmarshalFileHeader(b []byte) (FileHeader, error) {
	var h FileHeader
	if len(b) < FileHeaderSize {
		return h, ErrCorrupt
	}
	copy(h.Magic[:], b[:FileHeaderSize])
	return h, nil
}

// ChunkHeaderSize is the on-disk size, in bytes, of ChunkHeader: seven
// little-endian u32 fields.
const ChunkHeaderSize = 7 * 4

// ChunkHeader precedes every chunk's (optional) reserved region,
// (optional) bloom index, and compressed payload.
type ChunkHeader struct {
	FileCount        uint32
	UncompressedSize uint32
	CompressedSize   uint32
	IndexSize        uint32 // bloom filter bytes; 0 if omitted
	IndexHashIters   uint32 // k for the bloom filter
	FileTableSize    uint32 // prefix of uncompressed payload that is the file table + names
	ExtraSize        uint32 // reserved; skipped by readers
}

// Marshal encodes the header to its on-disk representation.
func (h ChunkHeader) Marshal() []byte {
	out := make([]byte, ChunkHeaderSize)
	binary.LittleEndian.PutUint32(out[0:4], h.FileCount)
	binary.LittleEndian.PutUint32(out[4:8], h.UncompressedSize)
	binary.LittleEndian.PutUint32(out[8:12], h.CompressedSize)
	binary.LittleEndian.PutUint32(out[12:16], h.IndexSize)
	binary.LittleEndian.PutUint32(out[16:20], h.IndexHashIters)
	binary.LittleEndian.PutUint32(out[20:24], h.FileTableSize)
	binary.LittleEndian.PutUint32(out[24:28], h.ExtraSize)
	return out
}

// UnmarshalChunkHeader decodes a ChunkHeader from its on-disk bytes.
func UnmarshalChunkHeader(b []byte) (ChunkHeader, error) {
	var h ChunkHeader
	if len(b) < ChunkHeaderSize {
		return h, ErrCorrupt
	}
	h.FileCount = binary.LittleEndian.Uint32(b[0:4])
	h.UncompressedSize = binary.LittleEndian.Uint32(b[4:8])
	h.CompressedSize = binary.LittleEndian.Uint32(b[8:12])
	h.IndexSize = binary.LittleEndian.Uint32(b[12:16])
	h.IndexHashIters = binary.LittleEndian.Uint32(b[16:20])
	h.FileTableSize = binary.LittleEndian.Uint32(b[20:24])
	h.ExtraSize = binary.LittleEndian.Uint32(b[24:28])
	return h, nil
}

// FileTableEntrySize is the on-disk size, in bytes, of FileTableEntry:
// six little-endian u32 fields followed by two little-endian u64 fields.
const FileTableEntrySize = 6*4 + 2*8

// FileTableEntry describes one file fragment within a chunk's
// decompressed payload. Offsets are relative to the start of that
// payload.
type FileTableEntry struct {
	NameOffset uint32
	NameLength uint32
	DataOffset uint32
	DataSize   uint32
	StartLine  uint32
	Reserved   uint32
	FileSize   uint64
	Timestamp  uint64
}

// Marshal encodes the entry to its on-disk representation.
func (e FileTableEntry) Marshal() []byte {
	out := make([]byte, FileTableEntrySize)
	binary.LittleEndian.PutUint32(out[0:4], e.NameOffset)
	binary.LittleEndian.PutUint32(out[4:8], e.NameLength)
	binary.LittleEndian.PutUint32(out[8:12], e.DataOffset)
	binary.LittleEndian.PutUint32(out[12:16], e.DataSize)
	binary.LittleEndian.PutUint32(out[16:20], e.StartLine)
	binary.LittleEndian.PutUint32(out[20:24], e.Reserved)
	binary.LittleEndian.PutUint64(out[24:32], e.FileSize)
	binary.LittleEndian.PutUint64(out[32:40], e.Timestamp)
	return out
}

// UnmarshalFileTableEntry decodes a FileTableEntry from its on-disk bytes.
func UnmarshalFileTableEntry(b []byte) (FileTableEntry, error) {
	var e FileTableEntry
	if len(b) < FileTableEntrySize {
		return e, ErrCorrupt
	}
	e.NameOffset = binary.LittleEndian.Uint32(b[0:4])
	e.NameLength = binary.LittleEndian.Uint32(b[4:8])
	e.DataOffset = binary.LittleEndian.Uint32(b[8:12])
	e.DataSize = binary.LittleEndian.Uint32(b[12:16])
	e.StartLine = binary.LittleEndian.Uint32(b[16:20])
	e.Reserved = binary.LittleEndian.Uint32(b[20:24])
	e.FileSize = binary.LittleEndian.Uint64(b[24:32])
	e.Timestamp = binary.LittleEndian.Uint64(b[32:40])
	return e, nil
}

// FileInfo is the metadata the reader reconstructs for each top-level
// file (StartLine == 0) in a pack, used by the watcher's startup diff.
type FileInfo struct {
	Path      string
	Timestamp uint64
	FileSize  uint64
}
