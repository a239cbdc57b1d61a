package builder

import (
	"fmt"

	"github.com/memkit/packdex/internal/bloom"
	"github.com/memkit/packdex/pkg/types"
)

// emitChunk lays out c's decompressed payload, builds its bloom index,
// compresses the payload, and writes the framed chunk to the pack
// file. It does nothing if c has no files.
func (b *Builder) emitChunk(c cut) error {
	if len(c.fragments) == 0 {
		return nil
	}

	payload, fileTableSize := buildPayload(c.fragments)

	dataSize := 0
	for _, f := range c.fragments {
		dataSize += len(f.contents)
	}

	var ngrams map[uint32]struct{}
	if dataSize > 0 {
		ngrams = collectChunkNgrams(c.fragments)
	}
	// Indexed against the chunk's body-byte total, not the full
	// payload including the file table and names.
	filter, k := bloom.Build(dataSize, ngrams)

	compressed, err := b.codec.Compress(payload)
	if err != nil {
		return fmt.Errorf("compress chunk payload: %w", err)
	}

	header := types.ChunkHeader{
		FileCount:        uint32(len(c.fragments)),
		UncompressedSize: uint32(len(payload)),
		CompressedSize:   uint32(len(compressed)),
		FileTableSize:    uint32(fileTableSize),
	}
	if filter != nil {
		header.IndexSize = uint32(len(filter.Bytes()))
		header.IndexHashIters = uint32(k)
	}

	if _, err := b.out.Write(header.Marshal()); err != nil {
		return fmt.Errorf("write chunk header: %w", err)
	}
	if filter != nil {
		if _, err := b.out.Write(filter.Bytes()); err != nil {
			return fmt.Errorf("write chunk index: %w", err)
		}
	}
	if _, err := b.out.Write(compressed); err != nil {
		return fmt.Errorf("write chunk payload: %w", err)
	}

	for _, f := range c.fragments {
		if f.startLine == 0 {
			b.stats.FileCount++
		}
	}
	b.stats.UncompressedBytes += uint64(len(payload))
	b.stats.CompressedBytes += uint64(len(compressed))

	return nil
}

// buildPayload lays out a chunk's decompressed payload as
// [FileTableEntry...], then concatenated names, then concatenated
// bodies, so that name bytes precede body bytes and a reader can
// recover the full file table plus names by decompressing only a
// fileTableSize prefix. It returns the payload and the size of that
// prefix (the table plus all names, with no body bytes included).
func buildPayload(fragments []fragment) (payload []byte, fileTableSize int) {
	headerSize := types.FileTableEntrySize * len(fragments)

	nameSize := 0
	dataSize := 0
	for _, f := range fragments {
		nameSize += len(f.name)
		dataSize += len(f.contents)
	}

	total := headerSize + nameSize + dataSize
	out := make([]byte, total)

	nameOffset := headerSize
	dataOffset := headerSize + nameSize

	for i, f := range fragments {
		copy(out[nameOffset:], f.name)
		copy(out[dataOffset:], f.contents)

		entry := types.FileTableEntry{
			NameOffset: uint32(nameOffset),
			NameLength: uint32(len(f.name)),
			DataOffset: uint32(dataOffset),
			DataSize:   uint32(len(f.contents)),
			StartLine:  f.startLine,
			FileSize:   f.fileSize,
			Timestamp:  f.timestamp,
		}
		copy(out[i*types.FileTableEntrySize:], entry.Marshal())

		nameOffset += len(f.name)
		dataOffset += len(f.contents)
	}

	if nameOffset != headerSize+nameSize || dataOffset != total {
		panic("builder: file table offsets did not reach the expected totals")
	}

	return out, headerSize + nameSize
}

// collectChunkNgrams merges the distinct 4-gram sets of every
// fragment's body in the chunk into one set.
func collectChunkNgrams(fragments []fragment) map[uint32]struct{} {
	ngrams := make(map[uint32]struct{})
	for _, f := range fragments {
		for v := range bloom.CollectNgrams(f.contents) {
			ngrams[v] = struct{}{}
		}
	}
	return ngrams
}
