// Package config loads the engine's tunables from an optional KDL file,
// the same mechanism the teacher project uses for its own configuration
// (github.com/sblinch/kdl-go), rescoped down to the handful of knobs this
// engine actually exposes: the indexer's buffer size, the tail watcher's
// poll interval, and the chunked searcher's chunk size and result cap.
package config

import (
	"os"
	"runtime"
)

// Defaults mirror the constants named in spec §4.1, §4.5 and §4.6.
const (
	DefaultBufferSizeKB    = 64
	DefaultTailPollMs      = 1000
	DefaultSearchChunkSize = 10_000
	DefaultSearchMaxResult = 1_000
)

// Config holds every runtime-tunable value for the engine.
type Config struct {
	// BufferSizeKB is the Line Indexer's streaming read buffer size (§4.1).
	BufferSizeKB int

	// TailPollMs is the tail watcher's poll interval (§4.6, "every 1 second").
	TailPollMs int

	// SearchChunkSize is the Chunked Searcher's CHUNK constant (§4.5).
	SearchChunkSize int

	// SearchMaxResults is the Chunked Searcher's MAX_RESULTS constant (§4.5).
	SearchMaxResults int

	// SearchWorkers bounds the chunked searcher's parallelism. 0 means
	// auto-detect (runtime.NumCPU()).
	SearchWorkers int

	// LogFormatsFile optionally points at a TOML file of custom log-format
	// definitions supplementing the built-in Format Library (C4).
	LogFormatsFile string
}

// Default returns the spec's hard-coded defaults.
func Default() *Config {
	return &Config{
		BufferSizeKB:     DefaultBufferSizeKB,
		TailPollMs:       DefaultTailPollMs,
		SearchChunkSize:  DefaultSearchChunkSize,
		SearchMaxResults: DefaultSearchMaxResult,
		SearchWorkers:    runtime.NumCPU(),
	}
}

// Load reads a KDL config file at path. A missing file is not an error —
// Default() is returned instead, matching the teacher's "no config file
// means use baked-in defaults" behavior.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := applyKDL(cfg, string(content)); err != nil {
		return nil, err
	}
	return cfg, nil
}
