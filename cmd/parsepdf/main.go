package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/efris-reports/internal/bootstrap"
	"github.com/joseph-ayodele/efris-reports/internal/common"
	"github.com/joseph-ayodele/efris-reports/internal/parse"
)

// parsepdf extracts and parses one PDF and prints the candidate record. It
// never touches the store.
func main() {
	logger := bootstrap.NewLogger(os.Stderr, slog.LevelInfo, true)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "parsepdf <file.pdf>")
		os.Exit(2)
	}
	path := os.Args[1]
	content, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read file", "path", path, "error", err)
		os.Exit(1)
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	start := time.Now()
	res := bootstrap.NewExtractor(cfg.Extract, logger).Extract(ctx, content)
	if res.Empty() {
		logger.Error("no text extracted",
			"path", path, "method", res.Method, "warnings", res.Warnings,
			"duration_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}
	logger.Info("text extraction OK",
		"method", res.Method,
		"pages", res.Pages,
		"bytes", len(res.Text),
		"duration_ms", res.Duration.Milliseconds(),
	)

	cand := parse.New(logger).Parse(res.Text)
	if v := common.ValidateCandidate(cand); v.HasErrors() {
		logger.Warn("candidate incomplete", "problems", v.ErrorMessage())
	}

	out := map[string]any{}
	for col, v := range cand.Fields() {
		if s, ok := v.Get(); ok {
			out[col] = s
		} else {
			out[col] = nil
		}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
		os.Exit(1)
	}
}
