// Package lineindex implements the Line Indexer (C2): a streaming scan
// that builds a compact per-line byte-offset index across three text
// encodings, correctly carrying byte-pair boundaries across buffer reads.
//
// The scan loop is adapted from the teacher's internal/core/LineScanner
// (single-pass, bytes.IndexByte-driven, zero-allocation line iteration),
// generalized from a single in-memory buffer to a streaming io.Reader with
// a bounded 64 KiB window, and extended with the UTF-16 boundary-carry
// logic spec.md §4.1 and §9 require.
package lineindex

import (
	"bytes"
	"io"
)

// Mode is the encoding mode of the byte stream being indexed.
type Mode int

const (
	// AsciiCompatible covers ASCII and UTF-8: terminators are a single
	// 0x0A byte.
	AsciiCompatible Mode = iota
	// Utf16LE: terminators are the pair 0x0A 0x00 with 0x0A at an even
	// absolute offset.
	Utf16LE
	// Utf16BE: terminators are the pair 0x00 0x0A with 0x0A at an odd
	// absolute offset.
	Utf16BE
)

// TerminatorWidth returns the byte width of one line terminator: 1 for
// AsciiCompatible, 2 for either UTF-16 variant.
func (m Mode) TerminatorWidth() int {
	if m == AsciiCompatible {
		return 1
	}
	return 2
}

// DefaultBufferSize is the documented default streaming window (§4.1).
const DefaultBufferSize = 64 * 1024

// Scan reads r until EOF (or error), appending the absolute byte offset of
// every confirmed line terminator's 0x0A byte to appendOffset, starting
// the stream's logical position at startOffset. It returns the final
// absolute offset, i.e. startOffset plus every byte consumed from r.
//
// bufSize selects the streaming window; DefaultBufferSize (64 KiB) is used
// when bufSize <= 0.
func Scan(r io.Reader, startOffset int64, mode Mode, bufSize int, appendOffset func(int64)) (int64, error) {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	switch mode {
	case Utf16LE:
		return scanUTF16LE(r, startOffset, bufSize, appendOffset)
	case Utf16BE:
		return scanUTF16BE(r, startOffset, bufSize, appendOffset)
	default:
		return scanASCII(r, startOffset, bufSize, appendOffset)
	}
}

// scanASCII has no cross-buffer hazard: a 0x0A byte is a complete
// terminator wherever it falls, so no lookbehind/lookahead needs to
// survive a buffer boundary.
func scanASCII(r io.Reader, base int64, bufSize int, appendOffset func(int64)) (int64, error) {
	buf := make([]byte, bufSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data := buf[:n]
			idx := 0
			for {
				rel := bytes.IndexByte(data[idx:], 0x0A)
				if rel < 0 {
					break
				}
				appendOffset(base + int64(idx+rel))
				idx += rel + 1
			}
			base += int64(n)
		}
		if err == io.EOF {
			return base, nil
		}
		if err != nil {
			return base, err
		}
		if n == 0 {
			return base, nil
		}
	}
}

// scanUTF16LE carries exactly one deferred candidate across buffers: a
// 0x0A seen as the very last byte of a buffer at an even absolute offset,
// whose companion 0x00 (if any) is the first byte of the next buffer.
func scanUTF16LE(r io.Reader, base int64, bufSize int, appendOffset func(int64)) (int64, error) {
	buf := make([]byte, bufSize)
	pendingOffset := int64(-1) // -1 means "no deferred candidate"

	for {
		n, err := r.Read(buf)
		if n > 0 {
			data := buf[:n]

			if pendingOffset >= 0 {
				if data[0] == 0x00 {
					appendOffset(pendingOffset)
				}
				pendingOffset = -1
			}

			idx := 0
			for {
				rel := bytes.IndexByte(data[idx:], 0x0A)
				if rel < 0 {
					break
				}
				posInBuf := idx + rel
				abs := base + int64(posInBuf)
				if abs%2 == 0 {
					if posInBuf+1 < len(data) {
						if data[posInBuf+1] == 0x00 {
							appendOffset(abs)
						}
					} else {
						// Last byte of this buffer: defer the decision
						// until we see the first byte of the next one.
						pendingOffset = abs
					}
				}
				idx = posInBuf + 1
			}
			base += int64(n)
		}
		if err == io.EOF {
			return base, nil
		}
		if err != nil {
			return base, err
		}
		if n == 0 {
			return base, nil
		}
	}
}

// scanUTF16BE carries the last byte value of the previous buffer, used
// when a 0x0A at an odd absolute offset is the very first byte of the
// current buffer (its companion 0x00, if any, was the previous buffer's
// last byte).
func scanUTF16BE(r io.Reader, base int64, bufSize int, appendOffset func(int64)) (int64, error) {
	buf := make([]byte, bufSize)
	var lastByte byte
	haveLastByte := false

	for {
		n, err := r.Read(buf)
		if n > 0 {
			data := buf[:n]

			idx := 0
			for {
				rel := bytes.IndexByte(data[idx:], 0x0A)
				if rel < 0 {
					break
				}
				posInBuf := idx + rel
				abs := base + int64(posInBuf)
				if abs%2 == 1 {
					if posInBuf > 0 {
						if data[posInBuf-1] == 0x00 {
							appendOffset(abs)
						}
					} else if haveLastByte && lastByte == 0x00 {
						appendOffset(abs)
					}
				}
				idx = posInBuf + 1
			}

			lastByte = data[len(data)-1]
			haveLastByte = true
			base += int64(n)
		}
		if err == io.EOF {
			return base, nil
		}
		if err != nil {
			return base, err
		}
		if n == 0 {
			return base, nil
		}
	}
}
