// Package logparser implements the Parser (C5): applies an active regex to
// raw lines, producing column vectors with rolling failure accounting.
//
// The failure-preview bookkeeping (first N offenders plus a total count,
// collapsed into one summary message) is grounded on the teacher's
// regex_analyzer match-statistics accumulator, generalized from "matches
// found" counting to "parse failures" counting.
package logparser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const maxFailurePreview = 5

// Result holds the parsed column vectors for a batch of lines, plus the
// rolling failure-preview state spec.md §4.4 requires.
type Result struct {
	Columns       [][]string
	FailureCount  int
	FailurePreview []int
}

// InfoMessage builds the exact "Failed to parse N line(s): [...]" summary
// line, or "" if there were no failures. Callers only invoke this when
// showErrors is true, per spec.
func (r *Result) InfoMessage() string {
	if r.FailureCount == 0 {
		return ""
	}
	parts := make([]string, len(r.FailurePreview))
	for i, n := range r.FailurePreview {
		parts[i] = strconv.Itoa(n)
	}
	msg := fmt.Sprintf("Failed to parse %d line(s): [%s]", r.FailureCount, strings.Join(parts, ", "))
	if r.FailureCount > maxFailurePreview {
		msg += "..."
	}
	return msg
}

// ParseData applies re to every line, producing one column vector per line.
// A nil re means no active parse regex: every line becomes a single-column
// vector containing the raw line. startLineNumber is the absolute line
// number of lines[0], used to compute failure-preview line numbers.
// showErrors controls only whether the caller is expected to surface
// InfoMessage(); ParseData always tracks failures regardless.
func ParseData(re *regexp.Regexp, expectedColumns int, hasExpectedColumns bool, lines []string, startLineNumber int, showErrors bool) *Result {
	result := &Result{Columns: make([][]string, len(lines))}

	if re == nil {
		for i, line := range lines {
			result.Columns[i] = []string{line}
		}
		return result
	}

	for i, line := range lines {
		groups, ok := captureGroups(re, line)
		if !ok {
			result.Columns[i] = []string{line}
			recordFailure(result, startLineNumber+i)
			continue
		}
		if hasExpectedColumns && len(groups) != expectedColumns {
			result.Columns[i] = []string{line}
			recordFailure(result, startLineNumber+i)
			continue
		}
		result.Columns[i] = groups
	}

	return result
}

// captureGroups runs a full-line match and collects groups 1..n, skipping
// absent optional groups, per spec.md §4.4 step 2.
func captureGroups(re *regexp.Regexp, line string) ([]string, bool) {
	match := re.FindStringSubmatchIndex(line)
	if match == nil {
		return nil, false
	}

	var groups []string
	for g := 1; g*2+1 < len(match); g++ {
		start, end := match[g*2], match[g*2+1]
		if start < 0 {
			continue // optional group did not participate
		}
		groups = append(groups, line[start:end])
	}
	return groups, true
}

func recordFailure(result *Result, lineNumber int) {
	result.FailureCount++
	if len(result.FailurePreview) < maxFailurePreview {
		result.FailurePreview = append(result.FailurePreview, lineNumber)
	}
}
