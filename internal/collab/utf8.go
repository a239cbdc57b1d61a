package collab

import "unicode/utf8"

// UTF8Normalizer implements Normalizer by validating the input as
// UTF-8 and, if it is already valid, returning it unchanged (no copy).
// Invalid byte sequences are replaced one byte at a time with the
// Unicode replacement rune, which is lossy on encoding but preserves
// the rest of the content verbatim.
type UTF8Normalizer struct{}

func (UTF8Normalizer) ToUTF8(data []byte) ([]byte, error) {
	if utf8.Valid(data) {
		return data, nil
	}

	out := make([]byte, 0, len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			out = utf8.AppendRune(out, utf8.RuneError)
			data = data[1:]
			continue
		}
		out = append(out, data[:size]...)
		data = data[size:]
	}
	return out, nil
}
