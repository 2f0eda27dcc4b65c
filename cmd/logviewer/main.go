package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/logviewer-engine/internal/config"
	"github.com/standardbeagle/logviewer-engine/internal/debug"
	"github.com/standardbeagle/logviewer-engine/internal/encoding"
	"github.com/standardbeagle/logviewer-engine/internal/filestate"
	"github.com/standardbeagle/logviewer-engine/internal/logformat"
	"github.com/standardbeagle/logviewer-engine/internal/protocol"
	"github.com/standardbeagle/logviewer-engine/internal/version"
)

func main() {
	app := &cli.App{
		Name:    "logviewer-engine",
		Usage:   "Backend engine for a log-viewing UI, speaking line-delimited JSON over stdio",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path (KDL)",
				Value:   ".logviewer.kdl",
			},
			&cli.StringFlag{
				Name:  "log-formats",
				Usage: "Path to a TOML file of custom log-format definitions (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable verbose diagnostic logging on stderr",
			},
		},
		Action: runServe,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func runServe(c *cli.Context) error {
	if c.Bool("debug") {
		os.Setenv("DEBUG", "1")
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if override := c.String("log-formats"); override != "" {
		cfg.LogFormatsFile = override
	}

	library := logformat.NewLibrary()
	if err := logformat.LoadCustomFormats(library, cfg.LogFormatsFile); err != nil {
		return fmt.Errorf("failed to load custom log formats from %s: %w", cfg.LogFormatsFile, err)
	}

	out := protocol.NewWriter(os.Stdout)

	state := filestate.New(library, time.Duration(cfg.TailPollMs)*time.Millisecond, cfg.BufferSizeKB*1024, filestate.Events{
		OnLinesAdded: func(oldCount, newCount int, newLines [][]string) {
			_ = out.Write(protocol.Message{
				Type:         "LinesAdded",
				OldLineCount: intPtr(oldCount),
				NewLineCount: intPtr(newCount),
				NewLines:     newLines,
			})
		},
		OnFileTruncated: func(lineCount int) {
			_ = out.Write(protocol.Message{
				Type:      "FileTruncated",
				LineCount: intPtr(lineCount),
			})
		},
	})
	defer state.Close()

	router := &protocol.Router{
		Oracle:           encoding.NewDefaultOracle(),
		State:            state,
		Library:          library,
		SearchWorkers:    cfg.SearchWorkers,
		SearchChunkSize:  cfg.SearchChunkSize,
		SearchMaxResults: cfg.SearchMaxResults,
		Out:              out,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		debug.Warn("received shutdown signal, closing tail watcher")
		cancel()
	}()

	return router.Serve(ctx, os.Stdin)
}

func intPtr(n int) *int { return &n }
