package logparser

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Invariant 9 from spec §8: parser round-trip with no regex.
func TestParseDataNoRegexReturnsRawLines(t *testing.T) {
	lines := []string{"a", "bb", "ccc"}
	result := ParseData(nil, 0, false, lines, 0, false)
	assert.Equal(t, [][]string{{"a"}, {"bb"}, {"ccc"}}, result.Columns)
	assert.Equal(t, 0, result.FailureCount)
}

func TestParseDataWithRegexCapturesGroups(t *testing.T) {
	re := regexp.MustCompile(`^(\S+) (\S+)$`)
	result := ParseData(re, 2, true, []string{"foo bar"}, 0, false)
	assert.Equal(t, [][]string{{"foo", "bar"}}, result.Columns)
	assert.Equal(t, 0, result.FailureCount)
}

func TestParseDataNonMatchFallsBackToRawLine(t *testing.T) {
	re := regexp.MustCompile(`^(\S+) (\S+)$`)
	result := ParseData(re, 2, true, []string{"this does not match at all"}, 5, true)
	assert.Equal(t, [][]string{{"this does not match at all"}}, result.Columns)
	assert.Equal(t, 1, result.FailureCount)
	assert.Equal(t, []int{5}, result.FailurePreview)
	assert.Equal(t, "Failed to parse 1 line(s): [5]", result.InfoMessage())
}

func TestParseDataColumnCountMismatchFallsBack(t *testing.T) {
	re := regexp.MustCompile(`^(\S+) (\S+)(?: (\S+))?$`)
	result := ParseData(re, 3, true, []string{"a b"}, 0, true)
	assert.Equal(t, [][]string{{"a b"}}, result.Columns)
	assert.Equal(t, 1, result.FailureCount)
}

func TestParseDataSkipsAbsentOptionalGroups(t *testing.T) {
	re := regexp.MustCompile(`^(\S+)(?: (\S+))?$`)
	result := ParseData(re, 0, false, []string{"solo"}, 0, false)
	assert.Equal(t, [][]string{{"solo"}}, result.Columns)
}

func TestParseDataFailurePreviewCapsAtFiveWithEllipsis(t *testing.T) {
	re := regexp.MustCompile(`^NEVERMATCHES$`)
	lines := make([]string, 7)
	for i := range lines {
		lines[i] = "line"
	}
	result := ParseData(re, 0, false, lines, 100, true)
	assert.Equal(t, 7, result.FailureCount)
	assert.Equal(t, []int{100, 101, 102, 103, 104}, result.FailurePreview)
	assert.Equal(t, "Failed to parse 7 line(s): [100, 101, 102, 103, 104]...", result.InfoMessage())
}

func TestInfoMessageEmptyWhenNoFailures(t *testing.T) {
	re := regexp.MustCompile(`^(\S+)$`)
	result := ParseData(re, 1, true, []string{"ok"}, 0, true)
	assert.Equal(t, "", result.InfoMessage())
}
