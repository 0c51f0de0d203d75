// Command thaiseg is the per-video Thai word-segmentation service.
//
// Usage:
//
//	thaiseg -config thaiseg.yaml -addr :8453      # HTTP daemon
//	thaiseg -db thaiseg.db -mcp                   # MCP server on stdio
//	thaiseg -video ep01 -srt ep01.srt -text "..." # warm up and segment once
//	thaiseg -video ep01 -text "ผมกินข้าว"          # segment one line and exit
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/khamlab/thaiseg/engine"
	"github.com/khamlab/thaiseg/httpapi"
	"github.com/khamlab/thaiseg/kvstore"
	"github.com/khamlab/thaiseg/subtitle"
)

func main() {
	configPath := flag.String("config", "", "path to thaiseg.yaml config file")
	dbPath := flag.String("db", "", "path to SQLite cache database (memory-only when empty)")
	addr := flag.String("addr", ":8453", "HTTP listen address (daemon mode)")
	mcpStdio := flag.Bool("mcp", false, "serve MCP on stdio instead of HTTP")
	videoID := flag.String("video", "", "video ID for one-shot operations")
	srtPath := flag.String("srt", "", "SRT file to warm the video's merge cache from")
	text := flag.String("text", "", "segment one line and exit (requires -video)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *dbPath, *addr, *mcpStdio, *videoID, *srtPath, *text); err != nil {
		logger.Error("thaiseg: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, dbPath, addr string, mcpStdio bool, videoID, srtPath, text string) error {
	cfg := engine.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = engine.LoadConfigFile(configPath); err != nil {
			return err
		}
	}

	opts := []engine.Option{engine.WithLogger(logger)}
	if dbPath != "" {
		store, err := kvstore.OpenSQLite(dbPath, kvstore.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("open cache db: %w", err)
		}
		defer store.Close()
		store.StartGC(cfg.LineTTL / 10)
		opts = append(opts, engine.WithStore(store))
	}

	eng, err := engine.New(cfg, opts...)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer eng.Close()

	// One-shot: warm up from an SRT file.
	if srtPath != "" {
		if videoID == "" {
			return fmt.Errorf("-srt requires -video")
		}
		f, err := os.Open(srtPath)
		if err != nil {
			return fmt.Errorf("open srt: %w", err)
		}
		cues, err := subtitle.ParseSRT(f)
		f.Close()
		if err != nil {
			return err
		}
		lines := subtitle.Lines(cues)
		added := eng.WarmUpVideo(ctx, videoID, lines)
		logger.Info("warm-up complete", "video_id", videoID, "lines", len(lines), "added", added)
	}

	// One-shot: segment a line.
	if text != "" {
		if videoID == "" {
			return fmt.Errorf("-text requires -video")
		}
		spans := eng.Segment(videoID, text)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(spans)
	}
	if srtPath != "" {
		return nil
	}

	// MCP on stdio.
	if mcpStdio {
		srv := mcp.NewServer(&mcp.Implementation{
			Name:    "thaiseg",
			Version: "1.0.0",
		}, nil)
		eng.RegisterMCP(srv)
		logger.Info("thaiseg: MCP serving on stdio")
		return srv.Run(ctx, &mcp.StdioTransport{})
	}

	// HTTP daemon.
	api := httpapi.New(eng, logger)
	httpSrv := &http.Server{Addr: addr, Handler: api.Router()}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutCtx)
	}()

	logger.Info("thaiseg: HTTP serving", "addr", addr)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info("thaiseg: shutting down")
	return nil
}
