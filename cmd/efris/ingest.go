package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/joseph-ayodele/efris-reports/internal/bootstrap"
	"github.com/joseph-ayodele/efris-reports/internal/common"
	"github.com/joseph-ayodele/efris-reports/internal/ingest"
	"github.com/joseph-ayodele/efris-reports/internal/pipeline"
	"github.com/joseph-ayodele/efris-reports/internal/repository"
)

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "Extract, parse and store report PDFs (files or directories)",
		ArgsUsage: "<path> [path...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "skip-hidden",
				Usage: "Skip hidden files and directories while walking",
				Value: true,
			},
			&cli.StringFlag{
				Name:  "context-file",
				Usage: "Ingestion context file (JSON or TOML), overrides INGEST_CONTEXT_FILE",
			},
			&cli.BoolFlag{
				Name:  "no-progress",
				Usage: "Do not draw the progress bar",
			},
		},
		Action: runIngest,
	}
}

func runIngest(c *cli.Context) error {
	paths := c.Args().Slice()
	if len(paths) == 0 {
		return errors.New("at least one path is required")
	}
	logger := slog.Default()
	out := c.App.Writer

	db, cfg, err := openStore(c)
	if err != nil {
		return err
	}
	defer db.Close()

	defaults := cfg.Ingest.Defaults
	if f := c.String("context-file"); f != "" {
		if defaults, err = common.LoadIngestDefaults(f); err != nil {
			return err
		}
	}

	col, err := ingest.NewFSIngestor(logger).Collect(c.Context, paths, c.Bool("skip-hidden"))
	if err != nil {
		return err
	}
	var size int64
	for _, f := range col.Files {
		if f.Err != "" {
			fmt.Fprintf(out, "[SKIP] %s: %s\n", f.Path, f.Err)
			continue
		}
		size += f.Size
	}
	fmt.Fprintf(out, "collected %d PDF(s), %s\n", len(col.Items), humanize.Bytes(uint64(size)))
	if len(col.Items) == 0 {
		return nil
	}

	var onProgress func(float64)
	if !c.Bool("no-progress") {
		onProgress = progressBar(c.App.ErrWriter, len(col.Items))
	}

	p := pipeline.New(logger, bootstrap.NewExtractor(cfg.Extract, logger), nil)
	ictx := pipeline.NewIngestContext(repository.NewReportRepository(db, logger), defaults)
	res, err := p.Ingest(c.Context, ictx, col.Items, onProgress)
	for _, line := range res.Log {
		fmt.Fprintln(out, line)
	}
	if err != nil {
		return fmt.Errorf("batch %s rolled back: %w", res.BatchID, err)
	}
	fmt.Fprintf(out, "inserted %d, skipped %d (batch %s)\n", res.Inserted, res.Skipped, res.BatchID)
	return nil
}

const barWidth = 30

// progressBar draws "[=====     ]  50% (2/4)" on w, redrawn in place.
func progressBar(w io.Writer, total int) func(float64) {
	return func(frac float64) {
		if frac < 0 {
			frac = 0
		}
		if frac > 1 {
			frac = 1
		}
		filled := int(frac * barWidth)
		done := int(frac * float64(total))
		fmt.Fprintf(w, "\r[%s%s] %3d%% (%d/%d)",
			strings.Repeat("=", filled), strings.Repeat(" ", barWidth-filled),
			int(frac*100), done, total)
		if frac == 1 {
			fmt.Fprintln(w)
		}
	}
}
