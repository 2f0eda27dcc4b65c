// Package filestate implements the File-State Engine and tail watcher (C7):
// a single, replaceable slot binding an open File Processor to an active
// parse regex and expected column count, plus a background 1 Hz poll loop
// that detects truncation and appends.
//
// The poll-and-reseek loop is grounded on the tailer's followByDescriptor
// (other_examples' jmurray2011/wail tail package): a ticker fires at a
// fixed interval, the previous read position is compared against the
// current file state, and new content is read incrementally. Unlike that
// tailer, State never loses its place on a shrink: it treats a smaller
// size as authoritative truncation and fully re-indexes, it holds a
// explicit atomic stop flag instead of relying on context cancellation
// alone (so OpenFile can deterministically stop exactly one watcher before
// installing the next), and it talks to fileproc.FileProcessor directly
// rather than re-reading lines itself.
package filestate

import (
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	logerrors "github.com/standardbeagle/logviewer-engine/internal/errors"
	"github.com/standardbeagle/logviewer-engine/internal/fileproc"
	"github.com/standardbeagle/logviewer-engine/internal/logformat"
	"github.com/standardbeagle/logviewer-engine/internal/logparser"
)

// DefaultPollInterval is the tail watcher's poll period (spec.md §4.6: 1 Hz).
const DefaultPollInterval = time.Second

// ParsingInfo mirrors the ParsingInformation response.
type ParsingInfo struct {
	LogFormat logformat.Format
}

// Events is the set of callbacks the tail watcher invokes to surface
// asynchronous output. Any field may be nil.
type Events struct {
	OnLinesAdded    func(oldCount, newCount int, newLines [][]string)
	OnFileTruncated func(lineCount int)
}

// State is the single replaceable File-State slot (spec.md §4.6). Build one
// with New; the zero value has no poll interval or Format Library and is
// not ready to use.
type State struct {
	mu        sync.Mutex
	processor *fileproc.FileProcessor
	parseRe   *regexp.Regexp
	expectedColumns int
	hasExpectedColumns bool
	library   *logformat.Library

	watcherStop  atomic.Bool
	watcherDone  chan struct{}
	pollInterval time.Duration
	bufSize      int

	events Events
}

// New builds an empty State using lib to resolve built-in and custom log
// formats during ParseFile/GetParsingInformation. pollInterval configures
// the tail watcher's tick period; a value <= 0 uses DefaultPollInterval.
// bufSize configures the Line Indexer's streaming read buffer size (spec.md
// §4.1) for every File Processor OpenFile builds; a value <= 0 uses
// lineindex.DefaultBufferSize.
func New(lib *logformat.Library, pollInterval time.Duration, bufSize int, events Events) *State {
	if lib == nil {
		lib = logformat.NewLibrary()
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &State{library: lib, pollInterval: pollInterval, bufSize: bufSize, events: events}
}

// OpenFile implements spec.md §4.6's OpenFile sequence: stop any running
// watcher, build a new File Processor, replace the slot, and spawn a fresh
// watcher. On construction failure the previous state is left intact.
func (s *State) OpenFile(path string, detect fileproc.DetectFunc, onInfo func(string)) (lineCount int, err error) {
	s.stopWatcher()

	processor, err := fileproc.Open(path, detect, onInfo, s.bufSize)
	if err != nil {
		s.startWatcherIfPossible()
		return 0, err
	}

	s.mu.Lock()
	s.processor = processor
	s.parseRe = nil
	s.expectedColumns = 0
	s.hasExpectedColumns = false
	lineCount = processor.LineCount()
	s.mu.Unlock()

	s.startWatcher()
	return lineCount, nil
}

// ParseFile implements spec.md §4.6's ParseFile resolution: an explicit
// pattern/column count override the Format Library's built-in lookup.
func (s *State) ParseFile(format logformat.Format, pattern string, nbrColumns int, hasNbrColumns bool) (ParsingInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var re *regexp.Regexp
	if pattern != "" {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return ParsingInfo{}, logerrors.InvalidInput("filestate.ParseFile", err)
		}
		re = compiled
	} else {
		re = s.library.GetPattern(format)
	}

	columns, hasColumns := nbrColumns, hasNbrColumns
	if !hasColumns {
		columns, hasColumns = s.library.GetColumnCount(format)
	}

	s.parseRe = re
	s.expectedColumns = columns
	s.hasExpectedColumns = hasColumns

	return ParsingInfo{LogFormat: format}, nil
}

// GetParsingInformation reads the first line of the active file and
// classifies it via the Format Library, per spec.md §4.6.
func (s *State) GetParsingInformation() (ParsingInfo, error) {
	s.mu.Lock()
	processor := s.processor
	lib := s.library
	s.mu.Unlock()

	if processor == nil {
		return ParsingInfo{}, errNoFileOpen("filestate.GetParsingInformation")
	}

	lines, err := processor.ReadLinesRange(0, 0)
	if err != nil {
		return ParsingInfo{}, err
	}
	if len(lines) == 0 {
		return ParsingInfo{LogFormat: logformat.Other}, nil
	}
	return ParsingInfo{LogFormat: lib.DetectFormat(lines[0])}, nil
}

// GetChunk returns decoded lines [startLine, endLine) parsed with the
// active regex, per spec.md §6.3's exclusive-upper-bound convention. info
// is the "Failed to parse N line(s)" summary (spec.md §4.4), or "" if every
// line parsed cleanly; the Command Core is responsible for emitting it.
func (s *State) GetChunk(startLine, endLine int) (data [][]string, actualEndLine int, info string, err error) {
	s.mu.Lock()
	processor := s.processor
	re := s.parseRe
	columns := s.expectedColumns
	hasColumns := s.hasExpectedColumns
	s.mu.Unlock()

	if processor == nil {
		return nil, 0, "", errNoFileOpen("filestate.GetChunk")
	}

	inclusiveEnd := endLine
	if inclusiveEnd > 0 {
		inclusiveEnd--
	}
	lines, err := processor.ReadLinesRange(startLine, inclusiveEnd)
	if err != nil {
		return nil, 0, "", err
	}

	parsed := logparser.ParseData(re, columns, hasColumns, lines, startLine, true)
	return parsed.Columns, startLine + len(parsed.Columns), parsed.InfoMessage(), nil
}

// Processor exposes the active File Processor for the Chunked Searcher
// (C6), or nil if no file is open.
func (s *State) Processor() *fileproc.FileProcessor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processor
}

// ActiveRegex returns the active parse regex and expected column count.
func (s *State) ActiveRegex() (*regexp.Regexp, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parseRe, s.expectedColumns, s.hasExpectedColumns
}

func (s *State) startWatcher() {
	s.watcherStop.Store(false)
	s.watcherDone = make(chan struct{})
	go s.watchLoop(s.watcherDone)
}

// startWatcherIfPossible restarts the watcher over whatever processor is
// still installed, used when OpenFile fails and the previous state (if
// any) must keep being tailed.
func (s *State) startWatcherIfPossible() {
	s.mu.Lock()
	hasProcessor := s.processor != nil
	s.mu.Unlock()
	if hasProcessor {
		s.startWatcher()
	}
}

func (s *State) stopWatcher() {
	if s.watcherDone == nil {
		return
	}
	s.watcherStop.Store(true)
	<-s.watcherDone
	s.watcherDone = nil
}

// Close stops the tail watcher, if any. It does not close the underlying
// file handle since FileProcessor re-opens its path per operation.
func (s *State) Close() {
	s.stopWatcher()
}

func (s *State) watchLoop(done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for range ticker.C {
		if s.watcherStop.Load() {
			return
		}

		s.mu.Lock()
		processor := s.processor
		re := s.parseRe
		columns := s.expectedColumns
		hasColumns := s.hasExpectedColumns
		var result *fileproc.RefreshResult
		var err error
		if processor != nil {
			result, err = processor.RefreshIfNeeded()
		}
		s.mu.Unlock()

		if err != nil || result == nil {
			continue
		}

		switch result.Kind {
		case fileproc.RefreshTruncated:
			if s.events.OnFileTruncated != nil {
				s.events.OnFileTruncated(result.NewCount)
			}
		case fileproc.RefreshLinesAdded:
			parsed := logparser.ParseData(re, columns, hasColumns, result.NewLines, result.OldCount, false)
			if s.events.OnLinesAdded != nil {
				s.events.OnLinesAdded(result.OldCount, result.NewCount, parsed.Columns)
			}
		}
	}
}

func errNoFileOpen(op string) error {
	return logerrors.InvalidInput(op, fmt.Errorf("no file is open; issue OpenFile first"))
}
