package config

import (
	"fmt"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// applyKDL parses an "engine { ... }" KDL document and overlays any values
// it sets on top of cfg's existing (default) values. Unknown nodes are
// ignored rather than rejected, matching the teacher's forward-compatible
// parsing style.
func applyKDL(cfg *Config, content string) error {
	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		if nodeName(n) != "engine" {
			continue
		}
		for _, cn := range n.Children {
			switch nodeName(cn) {
			case "buffer-size-kb":
				if v, ok := firstIntArg(cn); ok {
					cfg.BufferSizeKB = v
				}
			case "tail-poll-ms":
				if v, ok := firstIntArg(cn); ok {
					cfg.TailPollMs = v
				}
			case "search-chunk-size":
				if v, ok := firstIntArg(cn); ok {
					cfg.SearchChunkSize = v
				}
			case "search-max-results":
				if v, ok := firstIntArg(cn); ok {
					cfg.SearchMaxResults = v
				}
			case "search-workers":
				if v, ok := firstIntArg(cn); ok {
					cfg.SearchWorkers = v
				}
			case "log-formats-file":
				if s, ok := firstStringArg(cn); ok {
					cfg.LogFormatsFile = s
				}
			}
		}
	}

	return nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}
