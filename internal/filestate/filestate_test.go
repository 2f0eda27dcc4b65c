package filestate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/standardbeagle/logviewer-engine/internal/logformat"
)

func asciiDetect(_ string) (string, bool) { return "ascii-compatible", true }

func writeTemp(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestOpenFileReportsLineCount(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := writeTemp(t, "a.log", []byte("a\nb\nc\n"))
	state := New(nil, 20*time.Millisecond, 0, Events{})
	defer state.Close()

	n, err := state.OpenFile(path, asciiDetect, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestGetChunkRequiresOpenFile(t *testing.T) {
	defer goleak.VerifyNone(t)

	state := New(nil, 20*time.Millisecond, 0, Events{})
	defer state.Close()

	_, _, _, err := state.GetChunk(0, 1)
	assert.Error(t, err)
}

func TestGetChunkExclusiveUpperBound(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := writeTemp(t, "chunk.log", []byte("a\nbb\nccc\n"))
	state := New(nil, 20*time.Millisecond, 0, Events{})
	defer state.Close()

	_, err := state.OpenFile(path, asciiDetect, nil)
	require.NoError(t, err)

	data, endLine, info, err := state.GetChunk(0, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}, {"bb"}}, data)
	assert.Equal(t, 2, endLine)
	assert.Equal(t, "", info)
}

func TestParseFileResolvesBuiltinFormat(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := writeTemp(t, "clf.log", []byte(`127.0.0.1 - frank [10/Oct/2000:13:55:36 -0700] "GET /apache_pb.gif HTTP/1.0" 200 2326` + "\n"))
	state := New(nil, 20*time.Millisecond, 0, Events{})
	defer state.Close()

	_, err := state.OpenFile(path, asciiDetect, nil)
	require.NoError(t, err)

	info, err := state.ParseFile(logformat.CommonLogFormat, "", 0, false)
	require.NoError(t, err)
	assert.Equal(t, logformat.CommonLogFormat, info.LogFormat)

	data, _, _, err := state.GetChunk(0, 1)
	require.NoError(t, err)
	require.Len(t, data, 1)
	assert.Len(t, data[0], 8)
}

func TestGetParsingInformationDetectsFormat(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := writeTemp(t, "detect.log", []byte(`127.0.0.1 - frank [10/Oct/2000:13:55:36 -0700] "GET /apache_pb.gif HTTP/1.0" 200 2326` + "\n"))
	state := New(nil, 20*time.Millisecond, 0, Events{})
	defer state.Close()

	_, err := state.OpenFile(path, asciiDetect, nil)
	require.NoError(t, err)

	info, err := state.GetParsingInformation()
	require.NoError(t, err)
	assert.Equal(t, logformat.CommonLogFormat, info.LogFormat)
}

// S6 from spec §8, driven through the watcher instead of RefreshIfNeeded
// directly.
func TestWatcherEmitsLinesAdded(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := writeTemp(t, "append.log", []byte("a\nb\n"))

	added := make(chan [2]int, 1)
	state := New(nil, 10*time.Millisecond, 0, Events{
		OnLinesAdded: func(oldCount, newCount int, _ [][]string) {
			select {
			case added <- [2]int{oldCount, newCount}:
			default:
			}
		},
	})
	defer state.Close()

	_, err := state.OpenFile(path, asciiDetect, nil)
	require.NoError(t, err)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("c\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	select {
	case got := <-added:
		assert.Equal(t, [2]int{2, 3}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for LinesAdded event")
	}
}

// S7 from spec §8.
func TestWatcherEmitsFileTruncated(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := writeTemp(t, "trunc.log", []byte("a\nb\nc\nd\ne\nf\ng\nh\ni\nj\n"))

	truncated := make(chan int, 1)
	state := New(nil, 10*time.Millisecond, 0, Events{
		OnFileTruncated: func(lineCount int) {
			select {
			case truncated <- lineCount:
			default:
			}
		},
	})
	defer state.Close()

	_, err := state.OpenFile(path, asciiDetect, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("x\ny\nz\n"), 0o644))

	select {
	case got := <-truncated:
		assert.Equal(t, 3, got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for FileTruncated event")
	}
}

func TestOpenFileStopsPreviousWatcher(t *testing.T) {
	defer goleak.VerifyNone(t)

	first := writeTemp(t, "first.log", []byte("a\n"))
	second := writeTemp(t, "second.log", []byte("b\nc\n"))

	state := New(nil, 10*time.Millisecond, 0, Events{})
	defer state.Close()

	_, err := state.OpenFile(first, asciiDetect, nil)
	require.NoError(t, err)

	n, err := state.OpenFile(second, asciiDetect, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
