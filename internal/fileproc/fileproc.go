// Package fileproc implements the File Processor (C3): it owns a path, its
// line index, the last known file size and the encoding mode, and offers
// range reads plus an incremental refresh.
//
// Structurally this mirrors the teacher's FileContentStore (internal/core):
// one struct owning a path, a byte slice and a derived line-offset table,
// mutated through a narrow set of operations rather than exposed fields.
// Unlike the teacher's store, a File Processor owns exactly one file (no
// FileID registry) and never holds the whole file in memory — it re-opens
// the path for every scan and range read.
package fileproc

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf16"
	"unicode/utf8"

	logerrors "github.com/standardbeagle/logviewer-engine/internal/errors"
	"github.com/standardbeagle/logviewer-engine/internal/lineindex"
)

func isAbsolutePath(path string) bool {
	return filepath.IsAbs(path)
}

func errInvalidPath(path string) error {
	return fmt.Errorf("path must be absolute: %s", path)
}

func errEmptyFile() error {
	return fmt.Errorf("file is empty")
}

func errOutOfRange(start, lineCount int) error {
	return fmt.Errorf("start line %d is out of range (line count %d)", start, lineCount)
}

func errBadRange(start, end int) error {
	return fmt.Errorf("start line %d is greater than end line %d", start, end)
}

// RefreshKind tags what RefreshIfNeeded observed.
type RefreshKind int

const (
	// RefreshNone means the file size was unchanged.
	RefreshNone RefreshKind = iota
	// RefreshTruncated means the file shrank; the index was rebuilt
	// from scratch.
	RefreshTruncated
	// RefreshLinesAdded means the file grew; the index was extended
	// incrementally.
	RefreshLinesAdded
)

// RefreshResult reports the outcome of one RefreshIfNeeded call.
type RefreshResult struct {
	Kind     RefreshKind
	OldCount int
	NewCount int
	// NewLines holds the decoded lines [OldCount, NewCount) when Kind is
	// RefreshLinesAdded; it is always empty for the other kinds.
	NewLines []string
}

// FileProcessor owns one open log file's line index and encoding mode.
type FileProcessor struct {
	Path         string
	Mode         lineindex.Mode
	Index        []int64
	LastFileSize int64
	// bomLen is the number of leading bytes occupied by a byte-order mark,
	// skipped when computing line 0's start position and stripped from
	// decoded output.
	bomLen int64
	// bufSize is the Line Indexer's streaming read buffer size (spec.md
	// §4.1), configurable via Config.BufferSizeKB.
	bufSize int
}

func modeFromLabel(supported bool, label string) (lineindex.Mode, bool) {
	if !supported {
		return lineindex.AsciiCompatible, false
	}
	switch label {
	case "utf-16le":
		return lineindex.Utf16LE, true
	case "utf-16be":
		return lineindex.Utf16BE, true
	default:
		return lineindex.AsciiCompatible, true
	}
}

// DetectFunc is the narrow slice of the Encoding Oracle (C1) this package
// depends on: a label string plus a support flag for a path.
type DetectFunc func(path string) (label string, supported bool)

// Open builds a File Processor for path, detecting its encoding via detect
// and running the Line Indexer from offset 0. It returns an Info callback
// invocation (via onInfo, which may be nil) when the detected encoding is
// unsupported and gets coerced to ASCII-compatible, per spec. bufSize sets
// the Line Indexer's streaming read buffer size (spec.md §4.1); a value
// <= 0 uses lineindex.DefaultBufferSize.
func Open(path string, detect DetectFunc, onInfo func(string), bufSize int) (*FileProcessor, error) {
	if !isAbsolutePath(path) {
		return nil, logerrors.InvalidInput("fileproc.Open", errInvalidPath(path))
	}
	if bufSize <= 0 {
		bufSize = lineindex.DefaultBufferSize
	}

	label, supported := detect(path)
	mode, ok := modeFromLabel(supported, label)
	if !ok {
		mode = lineindex.AsciiCompatible
		if onInfo != nil {
			onInfo("unsupported encoding for " + path + ", treating as ASCII-compatible")
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, logerrors.IO("fileproc.Open", err).WithPath(path)
	}
	defer f.Close()

	fp := &FileProcessor{Path: path, Mode: mode, bufSize: bufSize}

	header := make([]byte, 3)
	n, _ := f.Read(header)
	fp.bomLen = bomLength(mode, header[:n])
	if _, err := f.Seek(fp.bomLen, 0); err != nil {
		return nil, logerrors.IO("fileproc.Open", err).WithPath(path)
	}

	final, err := lineindex.Scan(f, fp.bomLen, mode, fp.bufSize, func(o int64) {
		fp.Index = append(fp.Index, o)
	})
	if err != nil {
		return nil, logerrors.IO("fileproc.Open", err).WithPath(path)
	}
	fp.LastFileSize = final

	info, err := os.Stat(path)
	if err != nil {
		return nil, logerrors.IO("fileproc.Open", err).WithPath(path)
	}
	fp.LastFileSize = info.Size()

	return fp, nil
}

func bomLength(mode lineindex.Mode, header []byte) int64 {
	switch mode {
	case lineindex.Utf16LE:
		if len(header) >= 2 && header[0] == 0xFF && header[1] == 0xFE {
			return 2
		}
	case lineindex.Utf16BE:
		if len(header) >= 2 && header[0] == 0xFE && header[1] == 0xFF {
			return 2
		}
	default:
		// A UTF-8 BOM is left in place for the Line Indexer (it contains no
		// 0x0A byte) and stripped on decode by trimLeadingBOMRune instead.
	}
	return 0
}

// LineCount returns the number of complete lines currently indexed.
func (fp *FileProcessor) LineCount() int {
	return len(fp.Index)
}

// RefreshIfNeeded compares the current on-disk size to LastFileSize and
// reconciles the index, per spec.md §4.2.
func (fp *FileProcessor) RefreshIfNeeded() (*RefreshResult, error) {
	info, err := os.Stat(fp.Path)
	if err != nil {
		return nil, logerrors.IO("fileproc.RefreshIfNeeded", err).WithPath(fp.Path)
	}
	size := info.Size()

	switch {
	case size < fp.LastFileSize:
		oldCount := fp.LineCount()
		fp.Index = fp.Index[:0]

		f, err := os.Open(fp.Path)
		if err != nil {
			return nil, logerrors.IO("fileproc.RefreshIfNeeded", err).WithPath(fp.Path)
		}
		defer f.Close()

		if _, err := f.Seek(fp.bomLen, 0); err != nil {
			return nil, logerrors.IO("fileproc.RefreshIfNeeded", err).WithPath(fp.Path)
		}
		final, err := lineindex.Scan(f, fp.bomLen, fp.Mode, fp.bufSize, func(o int64) {
			fp.Index = append(fp.Index, o)
		})
		if err != nil {
			return nil, logerrors.IO("fileproc.RefreshIfNeeded", err).WithPath(fp.Path)
		}
		fp.LastFileSize = size
		_ = final
		return &RefreshResult{Kind: RefreshTruncated, OldCount: oldCount, NewCount: fp.LineCount()}, nil

	case size > fp.LastFileSize:
		oldCount := fp.LineCount()

		startOffset := fp.LastFileSize
		width := int64(fp.Mode.TerminatorWidth())
		if width == 2 {
			// Round down to an even offset for UTF-16 pair safety.
			startOffset -= (startOffset - fp.bomLen) % 2
		}

		f, err := os.Open(fp.Path)
		if err != nil {
			return nil, logerrors.IO("fileproc.RefreshIfNeeded", err).WithPath(fp.Path)
		}
		defer f.Close()

		if _, err := f.Seek(startOffset, 0); err != nil {
			return nil, logerrors.IO("fileproc.RefreshIfNeeded", err).WithPath(fp.Path)
		}
		final, err := lineindex.Scan(f, startOffset, fp.Mode, fp.bufSize, func(o int64) {
			fp.Index = append(fp.Index, o)
		})
		if err != nil {
			return nil, logerrors.IO("fileproc.RefreshIfNeeded", err).WithPath(fp.Path)
		}
		fp.LastFileSize = size
		_ = final

		newCount := fp.LineCount()
		var newLines []string
		if newCount > oldCount {
			newLines, err = fp.ReadLinesRange(oldCount, newCount-1)
			if err != nil {
				return nil, err
			}
		}
		return &RefreshResult{Kind: RefreshLinesAdded, OldCount: oldCount, NewCount: newCount, NewLines: newLines}, nil

	default:
		return nil, nil
	}
}

// ReadLinesRange returns the decoded lines [start, end], clamping end to
// the last valid line index, per spec.md §4.2.
func (fp *FileProcessor) ReadLinesRange(start, end int) ([]string, error) {
	lineCount := fp.LineCount()
	if lineCount == 0 {
		return nil, logerrors.InvalidInput("fileproc.ReadLinesRange", errEmptyFile())
	}
	if start >= lineCount {
		return nil, logerrors.InvalidInput("fileproc.ReadLinesRange", errOutOfRange(start, lineCount))
	}
	if start > end {
		return nil, logerrors.InvalidInput("fileproc.ReadLinesRange", errBadRange(start, end))
	}
	if end > lineCount-1 {
		end = lineCount - 1
	}

	width := int64(fp.Mode.TerminatorWidth())
	var startPos int64
	if start == 0 {
		startPos = fp.bomLen
	} else {
		startPos = fp.Index[start-1] + width
	}
	endPos := fp.Index[end] + width

	f, err := os.Open(fp.Path)
	if err != nil {
		return nil, logerrors.IO("fileproc.ReadLinesRange", err).WithPath(fp.Path)
	}
	defer f.Close()

	if _, err := f.Seek(startPos, 0); err != nil {
		return nil, logerrors.IO("fileproc.ReadLinesRange", err).WithPath(fp.Path)
	}

	raw := make([]byte, endPos-startPos)
	if _, err := readFull(f, raw); err != nil {
		return nil, logerrors.IO("fileproc.ReadLinesRange", err).WithPath(fp.Path)
	}

	return decode(fp.Mode, raw), nil
}

func readFull(f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}

// decode turns a contiguous byte range into lines, stripping a leading BOM
// and dropping trailing empty lines produced by a final terminator.
func decode(mode lineindex.Mode, raw []byte) []string {
	var text string
	switch mode {
	case lineindex.Utf16LE:
		text = decodeUTF16(raw, false)
	case lineindex.Utf16BE:
		text = decodeUTF16(raw, true)
	default:
		text = decodeASCIICompatible(raw)
	}

	text = trimLeadingBOMRune(text)

	lines := splitUniversalNewlines(text)
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func decodeASCIICompatible(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	return string(bytes.ToValidUTF8(raw, []byte("�")))
}

func decodeUTF16(raw []byte, bigEndian bool) string {
	n := len(raw) / 2
	units := make([]uint16, n)
	for i := 0; i < n; i++ {
		hi, lo := raw[2*i], raw[2*i+1]
		if bigEndian {
			units[i] = uint16(hi)<<8 | uint16(lo)
		} else {
			units[i] = uint16(lo)<<8 | uint16(hi)
		}
	}
	return string(utf16.Decode(units))
}

func trimLeadingBOMRune(s string) string {
	const bom = "﻿"
	if len(s) >= len(bom) && s[:len(bom)] == bom {
		return s[len(bom):]
	}
	return s
}

// splitUniversalNewlines splits on \r\n, \r, or \n.
func splitUniversalNewlines(s string) []string {
	normalized := bytes.ReplaceAll([]byte(s), []byte("\r\n"), []byte("\n"))
	normalized = bytes.ReplaceAll(normalized, []byte("\r"), []byte("\n"))
	parts := bytes.Split(normalized, []byte("\n"))
	lines := make([]string, len(parts))
	for i, p := range parts {
		lines[i] = string(p)
	}
	return lines
}
