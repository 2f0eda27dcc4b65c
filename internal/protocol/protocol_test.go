package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/logviewer-engine/internal/encoding"
	"github.com/standardbeagle/logviewer-engine/internal/filestate"
	"github.com/standardbeagle/logviewer-engine/internal/logformat"
)

type fakeOracle struct {
	label     encoding.Label
	supported bool
}

func (o fakeOracle) Detect(string) (encoding.Label, bool) { return o.label, o.supported }

func writeTemp(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func newRouter(t *testing.T) (*Router, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	state := filestate.New(logformat.NewLibrary(), 0, 0, filestate.Events{})
	t.Cleanup(state.Close)
	return &Router{
		Oracle:           fakeOracle{label: encoding.LabelASCIICompatible, supported: true},
		State:            state,
		Library:          logformat.NewLibrary(),
		SearchWorkers:    2,
		SearchChunkSize:  0,
		SearchMaxResults: 0,
		Out:              NewWriter(out),
	}, out
}

func decodeLines(t *testing.T, out *bytes.Buffer) []Message {
	t.Helper()
	var messages []Message
	for _, line := range strings.Split(strings.TrimRight(out.String(), "\n"), "\n") {
		if line == "" {
			continue
		}
		var msg Message
		require.NoError(t, json.Unmarshal([]byte(line), &msg))
		messages = append(messages, msg)
	}
	return messages
}

func TestDispatchGetFileEncoding(t *testing.T) {
	router, out := newRouter(t)

	router.Dispatch(context.Background(), Command{Command: "GetFileEncoding", Path: "/var/log/whatever.log"})

	messages := decodeLines(t, out)
	require.Len(t, messages, 1)
	assert.Equal(t, "Encoding", messages[0].Type)
	assert.Equal(t, "ascii-compatible", messages[0].Encoding)
	require.NotNil(t, messages[0].IsSupported)
	assert.True(t, *messages[0].IsSupported)
}

func TestDispatchOpenFileThenGetChunk(t *testing.T) {
	router, out := newRouter(t)
	path := writeTemp(t, "a.log", []byte("one\ntwo\nthree\n"))

	router.Dispatch(context.Background(), Command{Command: "OpenFile", Path: path})
	messages := decodeLines(t, out)
	require.Len(t, messages, 1)
	assert.Equal(t, "FileOpened", messages[0].Type)
	require.NotNil(t, messages[0].LineCount)
	assert.Equal(t, 3, *messages[0].LineCount)

	out.Reset()
	start, end := 0, 2
	router.Dispatch(context.Background(), Command{Command: "GetChunk", StartLine: &start, EndLine: &end})
	messages = decodeLines(t, out)
	require.Len(t, messages, 1)
	assert.Equal(t, "Chunk", messages[0].Type)
	assert.Equal(t, [][]string{{"one"}, {"two"}}, messages[0].Data)
}

func TestDispatchGetChunkWithoutOpenFileIsError(t *testing.T) {
	router, out := newRouter(t)

	start, end := 0, 1
	router.Dispatch(context.Background(), Command{Command: "GetChunk", StartLine: &start, EndLine: &end})

	messages := decodeLines(t, out)
	require.Len(t, messages, 1)
	assert.Equal(t, "Error", messages[0].Type)
}

func TestDispatchFilterIsRejected(t *testing.T) {
	router, out := newRouter(t)

	router.Dispatch(context.Background(), Command{Command: "Filter"})

	messages := decodeLines(t, out)
	require.Len(t, messages, 1)
	assert.Equal(t, "Error", messages[0].Type)
	assert.Equal(t, "Filter is not implemented", messages[0].Message)
}

func TestDispatchUnknownCommand(t *testing.T) {
	router, out := newRouter(t)

	router.Dispatch(context.Background(), Command{Command: "DoesNotExist"})

	messages := decodeLines(t, out)
	require.Len(t, messages, 1)
	assert.Equal(t, "Error", messages[0].Type)
}

func TestServeSkipsMalformedLineAndContinues(t *testing.T) {
	router, out := newRouter(t)

	input := strings.NewReader("not json\n" + `{"command":"Filter"}` + "\n")
	err := router.Serve(context.Background(), input)
	require.NoError(t, err)

	messages := decodeLines(t, out)
	require.Len(t, messages, 2)
	assert.Equal(t, "Error", messages[0].Type)
	assert.Equal(t, "malformed JSON command", messages[0].Message)
	assert.Equal(t, "Error", messages[1].Type)
	assert.Equal(t, "Filter is not implemented", messages[1].Message)
}

func TestServeProcessesMultipleCommandsInOrder(t *testing.T) {
	router, out := newRouter(t)
	path := writeTemp(t, "b.log", []byte("x\ny\n"))

	input := strings.NewReader(
		`{"command":"OpenFile","path":"` + path + `"}` + "\n" +
			`{"command":"GetParsingInformation"}` + "\n",
	)
	err := router.Serve(context.Background(), input)
	require.NoError(t, err)

	messages := decodeLines(t, out)
	require.Len(t, messages, 2)
	assert.Equal(t, "FileOpened", messages[0].Type)
	assert.Equal(t, "ParsingInformation", messages[1].Type)
}

func TestDispatchSearchWithoutOpenFileIsError(t *testing.T) {
	router, out := newRouter(t)

	router.Dispatch(context.Background(), Command{Command: "Search", Pattern: "hello"})

	messages := decodeLines(t, out)
	require.Len(t, messages, 1)
	assert.Equal(t, "Error", messages[0].Type)
}

func TestDispatchSearchFindsMatches(t *testing.T) {
	router, out := newRouter(t)
	path := writeTemp(t, "search.log", []byte("hello world\ngoodbye\nhello there\n"))

	router.Dispatch(context.Background(), Command{Command: "OpenFile", Path: path})
	out.Reset()

	router.Dispatch(context.Background(), Command{Command: "Search", Pattern: "hello"})
	messages := decodeLines(t, out)
	// A single-chunk search still emits the 0% and 100% progress events
	// (searchengine.Search reports both unconditionally) ahead of the result.
	require.Len(t, messages, 3)
	assert.Equal(t, "SearchProgress", messages[0].Type)
	assert.Equal(t, "SearchProgress", messages[1].Type)
	assert.Equal(t, "SearchResults", messages[2].Type)
	require.NotNil(t, messages[2].TotalMatches)
	assert.Equal(t, 2, *messages[2].TotalMatches)
	require.NotNil(t, messages[2].SearchComplete)
	assert.True(t, *messages[2].SearchComplete)
}
