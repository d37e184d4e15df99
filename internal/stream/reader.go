// Package stream decodes incremental text streams from network responses.
package stream

import (
	"errors"
	"io"
	"iter"
	"unicode/utf8"
)

// Chunks reads r incrementally and yields decoded text fragments as they
// arrive, each fragment being the newly available text since the previous
// one. Multi-byte UTF-8 sequences split across read boundaries are held back
// until complete, so every yielded fragment is valid text on its own. The
// sequence ends when r reports io.EOF; any other read error terminates the
// sequence after yielding whatever text was decoded from the same read. The
// stream is not seekable and cannot be consumed twice.
func Chunks(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		buf := make([]byte, 4096)
		// pending holds the tail bytes of a rune cut off by a read boundary.
		var pending []byte

		for {
			n, err := r.Read(buf)
			if n > 0 {
				pending = append(pending, buf[:n]...)
				complete := completePrefix(pending)
				if complete > 0 {
					if !yield(string(pending[:complete]), nil) {
						return
					}
					pending = pending[complete:]
				}
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					// A rune truncated at end of stream is passed through
					// rather than silently dropped.
					if len(pending) > 0 {
						yield(string(pending), nil)
					}
					return
				}
				yield("", err)
				return
			}
		}
	}
}

// completePrefix returns the length of the longest prefix of b that does not
// end in a truncated UTF-8 sequence.
func completePrefix(b []byte) int {
	end := len(b)
	i := end - 1
	for ; i >= 0 && end-i < utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			break
		}
	}
	if i < 0 || end-i >= utf8.UTFMax {
		// No rune start within reach: the tail is not a truncated rune but
		// invalid data, which is emitted as-is.
		return end
	}
	if utf8.FullRune(b[i:]) {
		return end
	}
	return i
}
