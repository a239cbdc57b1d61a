// Package reader implements a metadata-only pack scan: it iterates a
// pack's chunks without materializing file bodies, decompressing only
// the file-table-plus-names prefix of each chunk's payload, and
// reconstructs (path, timestamp, size) tuples for top-level files
// (StartLine == 0). It is the watcher's sole means of learning what
// the pack currently believes is on disk.
package reader

import (
	"fmt"
	"io"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/memkit/packdex/internal/collab"
	"github.com/memkit/packdex/pkg/types"
)

// cacheSize bounds the number of distinct pack files whose metadata
// Reader will keep warm, mirroring searcher.NewSearcher's fixed
// 1000-entry LRU for query results — a watcher only ever has one pack
// open at a time in practice, so this is generous headroom rather than
// a tuned limit.
const cacheSize = 64

type cacheKey struct {
	path  string
	mtime uint64
	size  uint64
}

// Reader reads pack metadata, caching the result for a given
// (path, mtime, size) so that repeated watcher startups against an
// unchanged pack skip a full chunk-header scan.
type Reader struct {
	codec collab.Codec
	attrs collab.FileAttributes
	cache *lru.Cache[cacheKey, []types.FileInfo]
}

// New constructs a Reader. codec and attrs are the same
// out-of-core-scope collaborators the builder takes.
func New(codec collab.Codec, attrs collab.FileAttributes) *Reader {
	cache, err := lru.New[cacheKey, []types.FileInfo](cacheSize)
	if err != nil {
		// Only possible with a non-positive size, which cacheSize
		// never is.
		panic(fmt.Sprintf("reader: failed to create LRU cache: %v", err))
	}
	return &Reader{codec: codec, attrs: attrs, cache: cache}
}

// ReadMetadata returns the (path, timestamp, size) of every top-level
// file recorded in the pack at path, in pack order. It returns
// types.ErrFormatMismatch if the pack's magic is unrecognized, and
// types.ErrCorrupt if a chunk header implies a read past EOF or
// decompression fails.
func (r *Reader) ReadMetadata(path string) ([]types.FileInfo, error) {
	if mtime, size, ok := r.attrs.Stat(path); ok {
		key := cacheKey{path: path, mtime: mtime, size: size}
		if cached, ok := r.cache.Get(key); ok {
			return cached, nil
		}

		infos, err := r.readMetadata(path)
		if err != nil {
			return nil, err
		}
		r.cache.Add(key, infos)
		return infos, nil
	}

	return r.readMetadata(path)
}

func (r *Reader) readMetadata(path string) ([]types.FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pack file %s: %w", path, err)
	}
	defer f.Close()

	headerBuf := make([]byte, types.FileHeaderSize)
	if _, err := io.ReadFull(f, headerBuf); err != nil {
		return nil, fmt.Errorf("read pack header: %w", err)
	}
	header, err := types.UnmarshalFileHeader(headerBuf)
	if err != nil {
		return nil, err
	}
	if !header.Valid() {
		return nil, types.ErrFormatMismatch
	}

	var result []types.FileInfo

	chunkHeaderBuf := make([]byte, types.ChunkHeaderSize)
	for {
		_, err := io.ReadFull(f, chunkHeaderBuf)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read chunk header: %v", types.ErrCorrupt, err)
		}

		chunk, err := types.UnmarshalChunkHeader(chunkHeaderBuf)
		if err != nil {
			return nil, err
		}

		if err := skip(f, int64(chunk.ExtraSize)); err != nil {
			return nil, fmt.Errorf("%w: skip reserved region: %v", types.ErrCorrupt, err)
		}
		if err := skip(f, int64(chunk.IndexSize)); err != nil {
			return nil, fmt.Errorf("%w: skip bloom index: %v", types.ErrCorrupt, err)
		}

		compressed := make([]byte, chunk.CompressedSize)
		if _, err := io.ReadFull(f, compressed); err != nil {
			return nil, fmt.Errorf("%w: read compressed payload: %v", types.ErrCorrupt, err)
		}

		prefix, err := r.codec.DecompressPartial(compressed, int(chunk.UncompressedSize), int(chunk.FileTableSize))
		if err != nil {
			return nil, fmt.Errorf("%w: decompress chunk: %v", types.ErrCorrupt, err)
		}
		if len(prefix) < int(chunk.FileTableSize) {
			return nil, fmt.Errorf("%w: partial decompression short of file table", types.ErrCorrupt)
		}

		entries, err := processChunk(prefix, int(chunk.FileCount))
		if err != nil {
			return nil, err
		}
		result = append(result, entries...)
	}

	return result, nil
}

// processChunk reconstructs (name, timestamp, size) tuples for every
// top-level file table entry in data. data must be the decompressed
// file-table-plus-names prefix of the chunk's payload — every offset
// FileTableEntry names falls within it by construction.
func processChunk(data []byte, fileCount int) ([]types.FileInfo, error) {
	var result []types.FileInfo

	for i := 0; i < fileCount; i++ {
		start := i * types.FileTableEntrySize
		if start+types.FileTableEntrySize > len(data) {
			return nil, fmt.Errorf("%w: file table entry %d out of bounds", types.ErrCorrupt, i)
		}

		entry, err := types.UnmarshalFileTableEntry(data[start:])
		if err != nil {
			return nil, err
		}
		if entry.StartLine != 0 {
			continue
		}

		end := int(entry.NameOffset) + int(entry.NameLength)
		if end > len(data) {
			return nil, fmt.Errorf("%w: file name out of bounds", types.ErrCorrupt)
		}

		result = append(result, types.FileInfo{
			Path:      string(data[entry.NameOffset:end]),
			Timestamp: entry.Timestamp,
			FileSize:  entry.FileSize,
		})
	}

	return result, nil
}

func skip(f *os.File, n int64) error {
	if n == 0 {
		return nil
	}
	_, err := f.Seek(n, io.SeekCurrent)
	return err
}
