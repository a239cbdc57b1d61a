// Package builder assembles a stream of file bodies into a chunked,
// bloom-indexed, compressed pack file.
//
// Construct with New, call Start once, then AppendFile/AppendFilePart
// per input file, then Flush (or Close, which flushes) when done.
//
//	b := builder.New(output.NewLogger(log.Default()), collab.FlateCodec{}, collab.UTF8Normalizer{}, collab.StatFileAttributes{})
//	if err := b.Start(path); err != nil { ... }
//	for _, f := range files {
//	    b.AppendFile(f)
//	}
//	if err := b.Close(); err != nil { ... }
package builder

import (
	"fmt"
	"os"

	"github.com/memkit/packdex/internal/collab"
	"github.com/memkit/packdex/internal/config"
	"github.com/memkit/packdex/internal/output"
	"github.com/memkit/packdex/pkg/types"
)

// Statistics summarizes a build in progress.
type Statistics struct {
	FileCount         int
	UncompressedBytes uint64
	CompressedBytes   uint64
}

// Builder buffers incoming file bodies, cuts line-aligned chunks,
// builds each chunk's bloom index, compresses its payload, and appends
// the framed result to an output pack file. It is single-threaded.
type Builder struct {
	out    *os.File
	sink   output.Sink
	codec  collab.Codec
	norm   collab.Normalizer
	attrs  collab.FileAttributes
	stats  Statistics
	pretty uint64 // last reported CompressedBytes, to dedup progress prints

	pending      fragmentQueue
	pendingBytes int
}

// New constructs a Builder. sink, codec, norm, and attrs are the
// ambient collaborators it depends on.
func New(sink output.Sink, codec collab.Codec, norm collab.Normalizer, attrs collab.FileAttributes) *Builder {
	return &Builder{sink: sink, codec: codec, norm: norm, attrs: attrs}
}

// Start creates (truncating) the pack file at path and writes its
// header. It fails if path is not writable.
func (b *Builder) Start(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open pack file %s for writing: %w", path, err)
	}

	header := types.NewFileHeader()
	if _, err := f.Write(header.Marshal()); err != nil {
		_ = f.Close()
		return fmt.Errorf("write pack header: %w", err)
	}

	b.out = f
	return nil
}

// AppendFile reads path, normalizes it to UTF-8, records its
// modification stamp and original size, and enqueues it as a single
// fragment with StartLine 0. A read error is reported to the sink and
// the file is skipped; the build continues.
func (b *Builder) AppendFile(path string) {
	if err := b.appendFile(path); err != nil {
		b.sink.Error("reading file %s: %v", path, err)
	}
	b.printStatistics()
}

func (b *Builder) appendFile(path string) error {
	timestamp, size, ok := b.attrs.Stat(path)
	if !ok {
		return fmt.Errorf("stat failed")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	contents, err := b.norm.ToUTF8(raw)
	if err != nil {
		return fmt.Errorf("normalize to utf-8: %w", err)
	}

	b.appendFilePart(path, 0, contents, timestamp, size)
	return nil
}

// AppendFilePart enqueues an already-read fragment, used when an outer
// collaborator has decoded an archive or extracted content outside
// the builder.
func (b *Builder) AppendFilePart(path string, startLine uint32, data []byte, timestamp uint64, fileSize uint64) {
	b.appendFilePart(path, startLine, data, timestamp, fileSize)
	b.printStatistics()
}

func (b *Builder) appendFilePart(path string, startLine uint32, data []byte, timestamp uint64, fileSize uint64) {
	b.pending.pushBack(fragment{
		name:      path,
		startLine: startLine,
		fileSize:  fileSize,
		timestamp: timestamp,
		contents:  data,
	})
	b.pendingBytes += len(data)

	b.flushIfNeeded()
}

// flushIfNeeded cuts chunks while there is enough buffered to do so
// without risking an immediate short chunk afterward — 2x hysteresis
// on the target chunk size.
func (b *Builder) flushIfNeeded() {
	for b.pendingBytes >= config.ChunkSize*2 {
		b.cutChunk(config.ChunkSize)
	}
}

// Flush drains all pending fragments, including zero-length ones, into
// chunks. It must be called before Close (Close calls it for you).
func (b *Builder) Flush() error {
	for b.pendingBytes > 0 || !b.pending.empty() {
		if err := b.cutChunk(config.ChunkSize); err != nil {
			return err
		}
	}
	return nil
}

// Statistics returns the build's running totals.
func (b *Builder) Statistics() Statistics {
	return b.stats
}

// Close flushes any remaining pending bytes and closes the output
// file.
func (b *Builder) Close() error {
	if err := b.Flush(); err != nil {
		return err
	}
	if b.out == nil {
		return nil
	}
	return b.out.Close()
}

// printStatistics reports progress, deduplicated so it only prints
// when the compressed total has actually moved since the last report.
func (b *Builder) printStatistics() {
	if b.stats.CompressedBytes == b.pretty {
		return
	}
	b.pretty = b.stats.CompressedBytes
	b.sink.Print("%d files, %d MB in, %d MB out",
		b.stats.FileCount,
		b.stats.UncompressedBytes/1024/1024,
		b.stats.CompressedBytes/1024/1024)
}

// cut represents one chunk in progress, accumulating whole or
// partial fragments until it reaches its target size.
type cut struct {
	fragments []fragment
	total     int
}

// cutChunk pops fragments from the head of the pending queue until the
// chunk reaches size bytes (the last cut, at Flush time, may be
// short), splitting the fragment that would overflow it on a line
// boundary, then emits the resulting chunk.
func (b *Builder) cutChunk(size int) error {
	c := cut{}

	for c.total < size {
		f, ok := b.pending.popFront()
		if !ok {
			break
		}

		remaining := size - c.total
		if len(f.contents) <= remaining {
			c.total += len(f.contents)
			c.fragments = append(c.fragments, f)
			continue
		}

		// f does not fit completely; take a line-aligned prefix (if
		// any) and push the remainder back onto the queue front. It
		// is impossible to add anything more to this chunk without
		// exceeding the requested size, so stop after this.
		appendPrefixAndRequeue(&c, &b.pending, f, remaining)
		break
	}

	if c.total > b.pendingBytes {
		// Should never happen; guards against a bookkeeping bug
		// silently corrupting a pack.
		return fmt.Errorf("internal error: chunk claims %d bytes, only %d pending", c.total, b.pendingBytes)
	}
	b.pendingBytes -= c.total

	return b.emitChunk(c)
}

// appendPrefixAndRequeue implements the line-aligned split: take the
// largest prefix of f of length <= remaining ending in '\n' if one
// exists; otherwise, if the chunk under construction is still empty,
// accept an over-budget line rather than emit an empty chunk;
// otherwise take nothing and requeue f unchanged.
func appendPrefixAndRequeue(c *cut, pending *fragmentQueue, f fragment, remaining int) {
	data := f.contents
	pos, lines := skipByLines(data, remaining)

	if pos == 0 && len(c.fragments) != 0 {
		// No newline within budget, and the chunk already has
		// content: close it without taking anything from f.
		pending.pushFront(f)
		return
	}

	skipSize := pos
	skipLines := lines
	if pos == 0 {
		// The chunk is empty: accept the whole next line (or the
		// whole fragment, if it has no newline at all) rather than
		// emit an empty chunk.
		skipSize = skipOneLine(data)
		skipLines = 1
	}

	prefix := splitPrefix(&f, skipSize, skipLines)
	c.total += len(prefix.contents)
	c.fragments = append(c.fragments, prefix)

	if len(f.contents) > 0 {
		pending.pushFront(f)
	}
}
