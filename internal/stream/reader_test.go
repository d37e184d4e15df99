package stream_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/webfolio/chatd/internal/stream"
)

// chunkReader returns one predefined chunk per Read call, then io.EOF. It
// simulates a network body delivering bytes at arbitrary boundaries.
type chunkReader struct {
	chunks [][]byte
	idx    int
	err    error
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.idx >= len(r.chunks) {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[r.idx])
	r.idx++
	return n, nil
}

func collect(t *testing.T, r io.Reader) (string, error) {
	t.Helper()
	var sb strings.Builder
	for fragment, err := range stream.Chunks(r) {
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(fragment)
	}
	return sb.String(), nil
}

func TestChunksConcatenation(t *testing.T) {
	text := "Hello, 世界! Grüße aus dem Straßencafé 🎉"

	tests := []struct {
		name   string
		chunks [][]byte
	}{
		{
			name:   "single chunk",
			chunks: [][]byte{[]byte(text)},
		},
		{
			name:   "byte at a time",
			chunks: splitEvery([]byte(text), 1),
		},
		{
			name:   "three bytes at a time",
			chunks: splitEvery([]byte(text), 3),
		},
		{
			name:   "uneven boundaries",
			chunks: splitEvery([]byte(text), 7),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := collect(t, &chunkReader{chunks: tt.chunks})
			if err != nil {
				t.Fatalf("Chunks() error = %v", err)
			}
			if got != text {
				t.Errorf("Chunks() = %q, want %q", got, text)
			}
		})
	}
}

func TestChunksFragmentsAreValidText(t *testing.T) {
	// A 4-byte emoji split across reads must never surface as a torn rune.
	emoji := []byte("🎉🎉")
	r := &chunkReader{chunks: splitEvery(emoji, 3)}

	for fragment, err := range stream.Chunks(r) {
		if err != nil {
			t.Fatalf("Chunks() error = %v", err)
		}
		if !strings.Contains("🎉🎉", fragment) {
			t.Errorf("fragment %q is not a clean slice of the input", fragment)
		}
	}
}

func TestChunksSurfacesTerminalError(t *testing.T) {
	readErr := errors.New("connection reset")
	r := &chunkReader{
		chunks: [][]byte{[]byte("partial ")},
		err:    readErr,
	}

	got, err := collect(t, r)
	if !errors.Is(err, readErr) {
		t.Fatalf("Chunks() error = %v, want %v", err, readErr)
	}
	// Text decoded before the failure is not silently dropped.
	if got != "partial " {
		t.Errorf("Chunks() partial text = %q, want %q", got, "partial ")
	}
}

func TestChunksFlushesTruncatedTailAtEOF(t *testing.T) {
	// Stream ends mid-rune: the dangling byte is passed through, not lost.
	r := &chunkReader{chunks: [][]byte{{0xE4}}}

	got, err := collect(t, r)
	if err != nil {
		t.Fatalf("Chunks() error = %v", err)
	}
	if got != string([]byte{0xE4}) {
		t.Errorf("Chunks() = %q, want the raw dangling byte", got)
	}
}

func splitEvery(b []byte, n int) [][]byte {
	var chunks [][]byte
	for len(b) > 0 {
		end := n
		if end > len(b) {
			end = len(b)
		}
		chunks = append(chunks, b[:end])
		b = b[end:]
	}
	return chunks
}
