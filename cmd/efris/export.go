package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/joseph-ayodele/efris-reports/internal/export"
	"github.com/joseph-ayodele/efris-reports/internal/reports"
	"github.com/joseph-ayodele/efris-reports/internal/repository"
)

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write stored reports to a CSV or XLSX file",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "format", Usage: "csv or xlsx", Value: "csv"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file, - for stdout (default efris_report.<format>)"},
		}, filterFlags()...),
		Action: runExport,
	}
}

func runExport(c *cli.Context) error {
	format := strings.ToLower(c.String("format"))
	if format != "csv" && format != "xlsx" {
		return fmt.Errorf("unsupported --format %q: use csv or xlsx", format)
	}
	f, err := filterFromFlags(c)
	if err != nil {
		return err
	}
	db, _, err := openStore(c)
	if err != nil {
		return err
	}
	defer db.Close()

	logger := slog.Default()
	recs, err := reports.NewService(repository.NewReportRepository(db, logger), logger).List(c.Context, f)
	if err != nil {
		return err
	}

	ex := export.NewService(logger)
	var data []byte
	if format == "csv" {
		var buf bytes.Buffer
		if err := ex.CSV(&buf, recs); err != nil {
			return err
		}
		data = buf.Bytes()
	} else if data, err = ex.XLSX(recs); err != nil {
		return err
	}

	dest := c.String("out")
	if dest == "" {
		dest = "efris_report." + format
	}
	if dest != "-" {
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", dest, err)
		}
		fmt.Fprintf(c.App.Writer, "wrote %d row(s) to %s (%s)\n", len(recs), dest, humanize.Bytes(uint64(len(data))))
		return nil
	}
	_, err = c.App.Writer.Write(data)
	return err
}
