package builder

// fragment is a contiguous byte slice of one source file, line-aligned
// at its start unless it's the file's first fragment. Its contents
// slice aliases a shared backing array; splitting a fragment with
// splitPrefix never copies bytes — both the returned prefix and the
// mutated remainder share storage, the way Go slicing gives you
// zero-copy splits for free.
type fragment struct {
	name      string
	startLine uint32
	fileSize  uint64
	timestamp uint64
	contents  []byte
}

// splitPrefix removes the first size bytes of f's contents, returning
// them as a new fragment with f's current startLine, and advances f's
// startLine by the number of newlines contained in that prefix.
func splitPrefix(f *fragment, size int, newlines uint32) fragment {
	prefix := fragment{
		name:      f.name,
		startLine: f.startLine,
		fileSize:  f.fileSize,
		timestamp: f.timestamp,
		contents:  f.contents[:size],
	}
	f.contents = f.contents[size:]
	f.startLine += newlines
	return prefix
}

// skipByLines scans the first limit bytes of data (limit must be <=
// len(data)) and returns the offset just past the last newline found,
// and the count of newlines found. pos is 0 if no newline occurs in
// that range.
func skipByLines(data []byte, limit int) (pos int, lines uint32) {
	for i := 0; i < limit; i++ {
		if data[i] == '\n' {
			pos = i + 1
			lines++
		}
	}
	return pos, lines
}

// skipOneLine returns the offset just past the first newline in data,
// or len(data) if there is none.
func skipOneLine(data []byte) int {
	for i, b := range data {
		if b == '\n' {
			return i + 1
		}
	}
	return len(data)
}
