package builder

import (
	"bytes"
	"compress/flate"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memkit/packdex/internal/collab"
	"github.com/memkit/packdex/internal/config"
	"github.com/memkit/packdex/internal/output"
	"github.com/memkit/packdex/pkg/types"
)

// readPack fully decompresses every chunk of the pack at path and
// returns, per chunk, the file table entries alongside their names and
// bodies, decoded the same way a full (non-metadata-only) reader would.
type chunkFile struct {
	entry types.FileTableEntry
	name  string
	body  []byte
}

func readPack(t *testing.T, path string) [][]chunkFile {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	header, err := types.UnmarshalFileHeader(data)
	require.NoError(t, err)
	require.True(t, header.Valid())

	pos := types.FileHeaderSize
	var chunks [][]chunkFile

	for pos < len(data) {
		ch, err := types.UnmarshalChunkHeader(data[pos:])
		require.NoError(t, err)
		pos += types.ChunkHeaderSize

		pos += int(ch.ExtraSize)
		pos += int(ch.IndexSize)

		compressed := data[pos : pos+int(ch.CompressedSize)]
		pos += int(ch.CompressedSize)

		r := flate.NewReader(bytes.NewReader(compressed))
		payload, err := io.ReadAll(r)
		require.NoError(t, err)
		require.NoError(t, r.Close())
		require.Len(t, payload, int(ch.UncompressedSize))

		var files []chunkFile
		for i := 0; i < int(ch.FileCount); i++ {
			entry, err := types.UnmarshalFileTableEntry(payload[i*types.FileTableEntrySize:])
			require.NoError(t, err)

			name := string(payload[entry.NameOffset : entry.NameOffset+entry.NameLength])
			body := payload[entry.DataOffset : entry.DataOffset+entry.DataSize]
			files = append(files, chunkFile{entry: entry, name: name, body: body})
		}
		chunks = append(chunks, files)
	}

	return chunks
}

func newTestBuilder() *Builder {
	return New(output.Discard{}, collab.FlateCodec{}, collab.UTF8Normalizer{}, collab.StatFileAttributes{})
}

func TestEmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), nil, 0o644))

	packPath := filepath.Join(dir, "out.qgd")
	b := newTestBuilder()
	require.NoError(t, b.Start(packPath))
	b.AppendFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, b.Close())

	chunks := readPack(t, packPath)
	require.Len(t, chunks, 1)
	require.Len(t, chunks[0], 1)
	assert.Equal(t, uint32(0), chunks[0][0].entry.DataSize)
	assert.Equal(t, uint32(0), chunks[0][0].entry.StartLine)
}

func TestSingleSmallFile(t *testing.T) {
	dir := t.TempDir()
	content := "hello\nworld\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hi.txt"), []byte(content), 0o644))

	packPath := filepath.Join(dir, "out.qgd")
	b := newTestBuilder()
	require.NoError(t, b.Start(packPath))
	b.AppendFile(filepath.Join(dir, "hi.txt"))
	require.NoError(t, b.Close())

	data, err := os.ReadFile(packPath)
	require.NoError(t, err)
	pos := types.FileHeaderSize
	ch, err := types.UnmarshalChunkHeader(data[pos:])
	require.NoError(t, err)
	assert.Equal(t, uint32(0), ch.IndexSize, "12-byte body is far below the bloom minimum")

	chunks := readPack(t, packPath)
	require.Len(t, chunks, 1)
	require.Len(t, chunks[0], 1)
	f := chunks[0][0]
	assert.Equal(t, uint64(12), f.entry.FileSize)
	assert.Equal(t, uint32(12), f.entry.DataSize)
	assert.Equal(t, content, string(f.body))
}

func TestRoundTripBodies(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"a.go":      "package a\n\nfunc A() {}\n",
		"b/c.go":    "package c\n",
		"empty.txt": "",
	}
	for name, content := range files {
		full := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}

	packPath := filepath.Join(dir, "out.qgd")
	b := newTestBuilder()
	require.NoError(t, b.Start(packPath))
	for name := range files {
		b.AppendFile(filepath.Join(dir, name))
	}
	require.NoError(t, b.Close())

	chunks := readPack(t, packPath)

	reconstructed := make(map[string][]byte)
	for _, chunk := range chunks {
		for _, f := range chunk {
			if f.entry.StartLine == 0 {
				reconstructed[f.name] = append([]byte{}, f.body...)
			} else {
				reconstructed[f.name] = append(reconstructed[f.name], f.body...)
			}
		}
	}

	for name, content := range files {
		full := filepath.Join(dir, name)
		assert.Equal(t, content, string(reconstructed[full]), "round-trip mismatch for %s", name)
	}
}

func TestExactSplitAcrossChunks(t *testing.T) {
	dir := t.TempDir()

	line := strings.Repeat("x", 79) + "\n" // 80 bytes/line
	totalBytes := config.ChunkSize + config.ChunkSize/2
	lineCount := totalBytes / 80
	content := strings.Repeat(line, lineCount)

	path := filepath.Join(dir, "big.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	packPath := filepath.Join(dir, "out.qgd")
	b := newTestBuilder()
	require.NoError(t, b.Start(packPath))
	b.AppendFile(path)
	require.NoError(t, b.Close())

	chunks := readPack(t, packPath)
	require.Len(t, chunks, 2, "expected an exact two-way split")

	first := chunks[0][0]
	second := chunks[1][0]

	assert.Equal(t, uint32(0), first.entry.StartLine)
	assert.LessOrEqual(t, int(first.entry.DataSize), config.ChunkSize)
	assert.Equal(t, 0, int(first.entry.DataSize)%80, "split must land on a line boundary")
	assert.Equal(t, first.entry.DataSize/80, second.entry.StartLine)

	assert.Equal(t, content, string(first.body)+string(second.body))
}

func TestLineLongerThanChunk(t *testing.T) {
	dir := t.TempDir()
	content := strings.Repeat("y", config.ChunkSize*2)
	path := filepath.Join(dir, "oneline.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	packPath := filepath.Join(dir, "out.qgd")
	b := newTestBuilder()
	require.NoError(t, b.Start(packPath))
	b.AppendFile(path)
	require.NoError(t, b.Close())

	chunks := readPack(t, packPath)
	require.Len(t, chunks, 1)
	require.Len(t, chunks[0], 1)
	assert.Greater(t, int(chunks[0][0].entry.DataSize), config.ChunkSize)
	assert.Equal(t, content, string(chunks[0][0].body))
}

func TestStatisticsCountsDistinctFiles(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("f%d.txt", i)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("line\n"), 0o644))
	}

	packPath := filepath.Join(dir, "out.qgd")
	b := newTestBuilder()
	require.NoError(t, b.Start(packPath))
	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("f%d.txt", i)
		b.AppendFile(filepath.Join(dir, name))
	}
	require.NoError(t, b.Close())

	stats := b.Statistics()
	assert.Equal(t, 5, stats.FileCount)
	assert.Greater(t, stats.UncompressedBytes, uint64(0))
	assert.Greater(t, stats.CompressedBytes, uint64(0))
}

func TestAppendFileReportsReadErrorAndContinues(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.txt")
	require.NoError(t, os.WriteFile(good, []byte("ok\n"), 0o644))

	var errs []string
	sink := &recordingSink{errs: &errs}

	packPath := filepath.Join(dir, "out.qgd")
	b := New(sink, collab.FlateCodec{}, collab.UTF8Normalizer{}, collab.StatFileAttributes{})
	require.NoError(t, b.Start(packPath))
	b.AppendFile(filepath.Join(dir, "missing.txt"))
	b.AppendFile(good)
	require.NoError(t, b.Close())

	require.Len(t, errs, 1)
	assert.Equal(t, 1, b.Statistics().FileCount)
}

type recordingSink struct {
	errs *[]string
}

func (s *recordingSink) Print(string, ...any) {}
func (s *recordingSink) Error(format string, args ...any) {
	*s.errs = append(*s.errs, fmt.Sprintf(format, args...))
}
