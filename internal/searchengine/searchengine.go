// Package searchengine implements the Chunked Searcher (C6): a
// work-partitioned, column-aware regular-expression search with bounded
// result collection and monotonic decile progress reporting.
//
// The bounded worker pool and first-error-is-not-fatal fan-out is grounded
// on the teacher's FileLoader.LoadFiles concurrent batch loader
// (internal/core/file_loader.go): a fixed worker count draining a work
// channel, redone here with golang.org/x/sync/errgroup so that a per-chunk
// failure is caught and reported rather than propagated as the group's
// terminal error.
package searchengine

import (
	"context"
	"regexp"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/coregx/coregex"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/logviewer-engine/internal/logparser"
)

// Chunk is the line-count granularity search work is partitioned into.
const Chunk = 10_000

// MaxResults bounds the total number of matches collected across every
// worker, per spec.md §4.5.
const MaxResults = 1_000

// Match is one located occurrence of the search pattern within one parsed
// column of one line.
type Match struct {
	LineNumber int `json:"line_number"`
	Column     int `json:"column"`
	StartIndex int `json:"start_index"`
	EndIndex   int `json:"end_index"`
}

// Results is the terminal outcome of one Search call.
type Results struct {
	Matches       []Match
	TotalMatches  int
	SearchComplete bool
}

// Reader is the narrow slice of the File Processor (C3) this package
// depends on: reading a range of already-decoded lines.
type Reader interface {
	ReadLinesRange(start, end int) ([]string, error)
}

// Reporter receives progress and per-chunk failure notifications during a
// search. Either callback may be nil.
type Reporter struct {
	OnProgress func(percent int)
	OnInfo     func(message string)
}

// Search partitions [0, lineCount) into chunks of up to chunkSize lines,
// processes them concurrently, and returns at most maxResults matches.
// chunkSize and maxResults fall back to Chunk and MaxResults, respectively,
// when <= 0. parseRe and hasExpectedColumns/expectedColumns mirror the
// Parser's optional active-format contract (C5); searchRe is compiled
// against each parsed column's text.
func Search(ctx context.Context, reader Reader, lineCount int, parseRe *regexp.Regexp, expectedColumns int, hasExpectedColumns bool, searchRe *coregex.Regex, workers int, chunkSize int, maxResults int, reporter Reporter) (*Results, error) {
	report := func(percent int) {
		if reporter.OnProgress != nil {
			reporter.OnProgress(percent)
		}
	}
	info := func(msg string) {
		if reporter.OnInfo != nil {
			reporter.OnInfo(msg)
		}
	}

	if chunkSize <= 0 {
		chunkSize = Chunk
	}
	if maxResults <= 0 {
		maxResults = MaxResults
	}

	report(0)

	if lineCount == 0 {
		report(100)
		return &Results{SearchComplete: true}, nil
	}

	totalChunks := (lineCount + chunkSize - 1) / chunkSize

	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var (
		mu          sync.Mutex
		matches     []Match
		completed   int64
		lastReported int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	full := false

	for c := 0; c < totalChunks; c++ {
		chunkStart := c * chunkSize
		chunkEnd := chunkStart + chunkSize - 1
		if chunkEnd > lineCount-1 {
			chunkEnd = lineCount - 1
		}

		g.Go(func() error {
			select {
			case <-gctx.Done():
				return nil
			default:
			}

			mu.Lock()
			stop := full
			mu.Unlock()
			if stop {
				advanceProgress(&completed, &lastReported, totalChunks, report)
				return nil
			}

			found, err := searchChunk(reader, chunkStart, chunkEnd, parseRe, expectedColumns, hasExpectedColumns, searchRe)
			if err != nil {
				info("failed to search chunk starting at line " + strconv.Itoa(chunkStart) + ": " + err.Error())
				advanceProgress(&completed, &lastReported, totalChunks, report)
				return nil
			}

			mu.Lock()
			if !full {
				matches = append(matches, found...)
				if len(matches) >= maxResults {
					matches = matches[:maxResults]
					full = true
				}
			}
			mu.Unlock()

			advanceProgress(&completed, &lastReported, totalChunks, report)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	report(100)

	return &Results{
		Matches:       matches,
		TotalMatches:  len(matches),
		SearchComplete: len(matches) < maxResults,
	}, nil
}

// progressMu serializes the compare-and-swap with its report call, so that
// concurrent workers deliver milestones in increasing order.
var progressMu sync.Mutex

func advanceProgress(completed, lastReported *int64, totalChunks int, report func(int)) {
	done := atomic.AddInt64(completed, 1)
	percent := int(done) * 100 / totalChunks
	milestone := (percent / 10) * 10
	if milestone <= 0 || milestone >= 100 {
		return
	}
	progressMu.Lock()
	defer progressMu.Unlock()
	for {
		last := atomic.LoadInt64(lastReported)
		if int64(milestone) <= last {
			return
		}
		if atomic.CompareAndSwapInt64(lastReported, last, int64(milestone)) {
			report(milestone)
			return
		}
	}
}

func searchChunk(reader Reader, chunkStart, chunkEnd int, parseRe *regexp.Regexp, expectedColumns int, hasExpectedColumns bool, searchRe *coregex.Regex) ([]Match, error) {
	lines, err := reader.ReadLinesRange(chunkStart, chunkEnd)
	if err != nil {
		return nil, err
	}

	parsed := logparser.ParseData(parseRe, expectedColumns, hasExpectedColumns, lines, chunkStart, false)

	var found []Match
	for i, columns := range parsed.Columns {
		lineNumber := chunkStart + i
		for c, text := range columns {
			for _, loc := range findAllIndexNonOverlapping(searchRe, text) {
				found = append(found, Match{
					LineNumber: lineNumber,
					Column:     c,
					StartIndex: loc[0],
					EndIndex:   loc[1],
				})
			}
		}
	}
	return found, nil
}

// findAllIndexNonOverlapping is grounded directly on coregex's own
// Regex.FindAll loop: repeated FindStringIndex plus position advance, since
// coregex v1.0 does not expose a FindAllStringIndex method.
func findAllIndexNonOverlapping(re *coregex.Regex, s string) [][2]int {
	var locs [][2]int
	pos := 0
	for pos <= len(s) {
		loc := re.FindStringIndex(s[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		locs = append(locs, [2]int{start, end})
		if end > pos {
			pos = end
		} else {
			pos++
		}
	}
	return locs
}
