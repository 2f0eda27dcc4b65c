// Package protocol implements the Command Core (C8): line-delimited JSON
// framing over standard input/output and routing of typed commands to the
// Encoding Oracle, File-State Engine and Chunked Searcher.
//
// The read-decode-dispatch-write loop and the mutex-guarded single writer
// are grounded on the shape of the teacher's MCP stdio transport (the
// vendored google/jsonschema-go + modelcontextprotocol/go-sdk stack backing
// internal/mcp): one line of JSON in, one or more lines of JSON out, a
// single writer serialized against concurrent event emission. This package
// reimplements that shape directly with encoding/json and bufio instead of
// pulling in the MCP SDK, since the wire format here is a small bespoke
// protocol rather than JSON-RPC.
package protocol

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/standardbeagle/logviewer-engine/internal/debug"
	"github.com/standardbeagle/logviewer-engine/internal/encoding"
	logerrors "github.com/standardbeagle/logviewer-engine/internal/errors"
	"github.com/standardbeagle/logviewer-engine/internal/filestate"
	"github.com/standardbeagle/logviewer-engine/internal/logformat"
	"github.com/standardbeagle/logviewer-engine/internal/searchengine"

	"github.com/coregx/coregex"
)

// Command is the wire shape of every inbound message (spec.md §6.2). Only
// the fields relevant to Command are populated by the caller.
type Command struct {
	Command    string `json:"command"`
	Path       string `json:"path,omitempty"`
	LogFormat  string `json:"log_format,omitempty"`
	Pattern    string `json:"pattern,omitempty"`
	NbrColumns *int   `json:"nbr_columns,omitempty"`
	StartLine  *int   `json:"start_line,omitempty"`
	EndLine    *int   `json:"end_line,omitempty"`
}

// Message is the wire shape of every outbound response or event
// (spec.md §6.3). Fields are tagged omitempty so each concrete message only
// serializes what it sets.
type Message struct {
	Type          string     `json:"type"`
	Encoding      string     `json:"encoding,omitempty"`
	IsSupported   *bool      `json:"is_supported,omitempty"`
	LineCount     *int       `json:"line_count,omitempty"`
	LogFormat     string     `json:"log_format,omitempty"`
	Data          [][]string `json:"data,omitempty"`
	StartLine     *int       `json:"start_line,omitempty"`
	EndLine       *int       `json:"end_line,omitempty"`
	Matches       []searchengine.Match `json:"matches,omitempty"`
	TotalMatches  *int       `json:"total_matches,omitempty"`
	SearchComplete *bool     `json:"search_complete,omitempty"`
	Percent       *int       `json:"percent,omitempty"`
	OldLineCount  *int       `json:"old_line_count,omitempty"`
	NewLineCount  *int       `json:"new_line_count,omitempty"`
	NewLines      [][]string `json:"new_lines,omitempty"`
	Message       string     `json:"message,omitempty"`
}

func intPtr(n int) *int    { return &n }
func boolPtr(b bool) *bool { return &b }

// Writer serializes concurrent writes of single-line JSON messages to w, so
// that asynchronous watcher/search events never interleave with (or split)
// a response line, per spec.md §5.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter wraps w for synchronized line-delimited JSON output.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write emits one message as a single JSON line.
func (pw *Writer) Write(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	pw.mu.Lock()
	defer pw.mu.Unlock()
	_, err = pw.w.Write(append(data, '\n'))
	return err
}

// Router dispatches decoded Commands to the core components and writes the
// resulting responses/events through a shared Writer.
type Router struct {
	Oracle        encoding.Oracle
	State         *filestate.State
	Library       *logformat.Library
	SearchWorkers int
	SearchChunkSize  int
	SearchMaxResults int

	Out *Writer
}

// Serve reads line-delimited JSON commands from r until EOF or a read
// error, dispatching each to Dispatch. Malformed JSON produces an Error
// message and does not abort the loop, per spec.md §6.1.
func (router *Router) Serve(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var cmd Command
		if err := json.Unmarshal(line, &cmd); err != nil {
			debug.LogProtocol("malformed command: %v", err)
			_ = router.Out.Write(Message{Type: "Error", Message: "malformed JSON command"})
			continue
		}

		router.Dispatch(ctx, cmd)
	}
	return scanner.Err()
}

// Dispatch routes one command to its handler and writes every response or
// event it produces.
func (router *Router) Dispatch(ctx context.Context, cmd Command) {
	switch cmd.Command {
	case "GetFileEncoding":
		router.handleGetFileEncoding(cmd)
	case "OpenFile":
		router.handleOpenFile(cmd)
	case "GetParsingInformation":
		router.handleGetParsingInformation()
	case "ParseFile":
		router.handleParseFile(cmd)
	case "GetChunk":
		router.handleGetChunk(cmd)
	case "Search":
		router.handleSearch(ctx, cmd)
	case "Filter":
		_ = router.Out.Write(Message{Type: "Error", Message: "Filter is not implemented"})
	default:
		_ = router.Out.Write(Message{Type: "Error", Message: "unknown command: " + cmd.Command})
	}
}

func (router *Router) handleGetFileEncoding(cmd Command) {
	label, supported := router.Oracle.Detect(cmd.Path)
	_ = router.Out.Write(Message{
		Type:        "Encoding",
		Encoding:    string(label),
		IsSupported: boolPtr(supported),
	})
}

func (router *Router) handleOpenFile(cmd Command) {
	detect := func(path string) (string, bool) {
		label, supported := router.Oracle.Detect(path)
		return string(label), supported
	}
	onInfo := func(msg string) {
		_ = router.Out.Write(Message{Type: "Info", Message: msg})
	}

	lineCount, err := router.State.OpenFile(cmd.Path, detect, onInfo)
	if err != nil {
		router.writeErr(err)
		return
	}
	_ = router.Out.Write(Message{Type: "FileOpened", LineCount: intPtr(lineCount)})
}

func (router *Router) handleGetParsingInformation() {
	info, err := router.State.GetParsingInformation()
	if err != nil {
		router.writeErr(err)
		return
	}
	_ = router.Out.Write(Message{Type: "ParsingInformation", LogFormat: string(info.LogFormat)})
}

func (router *Router) handleParseFile(cmd Command) {
	nbrColumns, hasNbrColumns := 0, false
	if cmd.NbrColumns != nil {
		nbrColumns, hasNbrColumns = *cmd.NbrColumns, true
	}

	info, err := router.State.ParseFile(logformat.Format(cmd.LogFormat), cmd.Pattern, nbrColumns, hasNbrColumns)
	if err != nil {
		router.writeErr(err)
		return
	}
	_ = router.Out.Write(Message{Type: "ParsingInformation", LogFormat: string(info.LogFormat)})
}

func (router *Router) handleGetChunk(cmd Command) {
	start, end := 0, 0
	if cmd.StartLine != nil {
		start = *cmd.StartLine
	}
	if cmd.EndLine != nil {
		end = *cmd.EndLine
	}

	data, actualEnd, info, err := router.State.GetChunk(start, end)
	if err != nil {
		router.writeErr(err)
		return
	}
	if info != "" {
		_ = router.Out.Write(Message{Type: "Info", Message: info})
	}
	_ = router.Out.Write(Message{
		Type:      "Chunk",
		Data:      data,
		StartLine: intPtr(start),
		EndLine:   intPtr(actualEnd),
	})
}

func (router *Router) handleSearch(ctx context.Context, cmd Command) {
	processor := router.State.Processor()
	if processor == nil {
		router.writeErr(logerrors.InvalidInput("protocol.Search", errNoFileOpenForSearch()))
		return
	}

	searchRe, err := coregex.Compile(cmd.Pattern)
	if err != nil {
		router.writeErr(logerrors.InvalidInput("protocol.Search", err))
		return
	}

	parseRe, columns, hasColumns := router.State.ActiveRegex()

	results, err := searchengine.Search(ctx, processor, processor.LineCount(), parseRe, columns, hasColumns, searchRe, router.SearchWorkers, router.SearchChunkSize, router.SearchMaxResults, searchengine.Reporter{
		OnProgress: func(percent int) {
			_ = router.Out.Write(Message{Type: "SearchProgress", Percent: intPtr(percent)})
		},
		OnInfo: func(msg string) {
			_ = router.Out.Write(Message{Type: "Info", Message: msg})
		},
	})
	if err != nil {
		router.writeErr(logerrors.IO("protocol.Search", err))
		return
	}

	_ = router.Out.Write(Message{
		Type:          "SearchResults",
		Matches:       results.Matches,
		TotalMatches:  intPtr(results.TotalMatches),
		SearchComplete: boolPtr(results.SearchComplete),
	})
}

func (router *Router) writeErr(err error) {
	_ = router.Out.Write(Message{Type: "Error", Message: err.Error()})
}

func errNoFileOpenForSearch() error {
	return errNoFile{}
}

type errNoFile struct{}

func (errNoFile) Error() string { return "no file is open; issue OpenFile first" }
