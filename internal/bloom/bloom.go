// Package bloom builds and queries the per-chunk ngram bloom filter
// used to skip decompressing chunks that can't contain a match. The
// filter has one-sided error (no false negatives): downstream search
// only decompresses a chunk whose filter admits every 4-gram of the
// query, so a false negative would hide a real match.
package bloom

import (
	"math"

	"github.com/memkit/packdex/internal/config"
)

// Ngram packs a 4-byte window into a 32-bit integer by concatenating
// the bytes in order. This exact mapping is part of the on-disk
// contract a downstream searcher must reproduce bit-exactly, and must
// never change without bumping types.Magic.
func Ngram(a, b, c, d byte) uint32 {
	return uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d)
}

// CollectNgrams returns the set of distinct 4-gram values in data,
// skipping any window that contains a newline byte (line-crossing
// ngrams are never queried downstream, so indexing them would only
// waste filter capacity).
func CollectNgrams(data []byte) map[uint32]struct{} {
	ngrams := make(map[uint32]struct{})
	for i := 3; i < len(data); i++ {
		a, b, c, d := data[i-3], data[i-2], data[i-1], data[i]
		if a == '\n' || b == '\n' || c == '\n' || d == '\n' {
			continue
		}
		ngrams[Ngram(a, b, c, d)] = struct{}{}
	}
	return ngrams
}

// SizeForUncompressed returns the bloom filter size, in bytes, packdex
// should use for a chunk whose decompressed payload is
// uncompressedSize bytes: the index targets ~10% of the compressed
// size, and LZ4-class compression achieves roughly a 5x ratio on
// source text, so raw index bytes ≈ uncompressedSize / 50. Returns 0
// if that would be smaller than config.BloomMinSize (the index is
// omitted entirely rather than stored tiny).
func SizeForUncompressed(uncompressedSize int) int {
	size := uncompressedSize / config.BloomRatioDivisor
	if size < config.BloomMinSize {
		return 0
	}
	return size
}

// HashIterations returns the optimal number of hash functions k for a
// bloom filter of indexSize bytes expected to hold itemCount distinct
// items, clamped to [config.BloomMinHashIterations,
// config.BloomMaxHashIterations]. See
// http://pages.cs.wisc.edu/~cao/papers/summary-cache/node8.html.
func HashIterations(indexSize int, itemCount int) int {
	if itemCount == 0 {
		return config.BloomMinHashIterations
	}

	m := float64(indexSize) * 8
	n := float64(itemCount)
	k := math.Round(math.Ln2 * m / n)

	switch {
	case k < float64(config.BloomMinHashIterations):
		return config.BloomMinHashIterations
	case k > float64(config.BloomMaxHashIterations):
		return config.BloomMaxHashIterations
	default:
		return int(k)
	}
}

// Filter is a fixed-width bit array supporting set-membership tests
// with no false negatives, built over 4-gram values.
type Filter struct {
	bits []byte
	k    int
}

// New allocates a filter of sizeBytes bytes using k hash iterations
// per insertion/query.
func New(sizeBytes int, k int) *Filter {
	return &Filter{bits: make([]byte, sizeBytes), k: k}
}

// Build constructs a filter sized for ngrams using the sizing formulas
// above, inserts every value in ngrams, and returns it. It returns nil
// if the computed size is 0 (index omitted).
func Build(uncompressedSize int, ngrams map[uint32]struct{}) (*Filter, int) {
	size := SizeForUncompressed(uncompressedSize)
	if size == 0 {
		return nil, 0
	}

	k := HashIterations(size, len(ngrams))
	f := New(size, k)
	for v := range ngrams {
		f.Insert(v)
	}
	return f, k
}

// bitPositions derives the filter's k bit positions for value v using
// a double-hashing scheme: position i is (h1 + i*h2) mod m, with h1
// and h2 independent 32-bit mixes of v. This must stay stable across
// versions for the same reason the ngram mapping must: it is part of
// the on-disk contract with the downstream searcher.
func (f *Filter) bitPositions(v uint32) func(i int) uint64 {
	m := uint64(len(f.bits)) * 8
	h1 := uint64(mix32(v))
	h2 := uint64(mix32(v^0x9e3779b9)) | 1 // force odd so it's coprime with power-of-two-ish m

	return func(i int) uint64 {
		return (h1 + uint64(i)*h2) % m
	}
}

// mix32 is a small avalanching mix (the finalizer from Murmur3) used
// to derive independent-looking hash seeds from a single ngram value.
func mix32(x uint32) uint32 {
	x ^= x >> 16
	x *= 0x85ebca6b
	x ^= x >> 13
	x *= 0xc2b2ae35
	x ^= x >> 16
	return x
}

// Insert sets the k bits corresponding to v.
func (f *Filter) Insert(v uint32) {
	pos := f.bitPositions(v)
	for i := 0; i < f.k; i++ {
		setBit(f.bits, pos(i))
	}
}

// Test reports whether v may be present (true) or is definitely absent
// (false). It never returns false for a value that was Insert-ed.
func (f *Filter) Test(v uint32) bool {
	pos := f.bitPositions(v)
	for i := 0; i < f.k; i++ {
		if !getBit(f.bits, pos(i)) {
			return false
		}
	}
	return true
}

// Bytes returns the filter's underlying bit array.
func (f *Filter) Bytes() []byte { return f.bits }

func setBit(bits []byte, pos uint64) {
	bits[pos/8] |= 1 << (pos % 8)
}

func getBit(bits []byte, pos uint64) bool {
	return bits[pos/8]&(1<<(pos%8)) != 0
}

// Load wraps raw on-disk bloom bytes for querying, with the given hash
// iteration count k (read from the chunk header).
func Load(bits []byte, k int) *Filter {
	return &Filter{bits: bits, k: k}
}
