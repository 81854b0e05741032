package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/joseph-ayodele/efris-reports/internal/bootstrap"
	"github.com/joseph-ayodele/efris-reports/internal/common"
	"github.com/joseph-ayodele/efris-reports/internal/reports"
	"github.com/joseph-ayodele/efris-reports/internal/repository"
)

func main() {
	app := newApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "efris",
		Usage:     "Ingest EFRIS compliance-report PDFs and query the stored reports",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
			&cli.BoolFlag{
				Name:  "log-json",
				Usage: "Log as JSON instead of text",
			},
			&cli.StringFlag{
				Name:    "db",
				Usage:   "SQLite database file (overrides DB_FILEPATH)",
				EnvVars: []string{"EFRIS_DB"},
			},
			&cli.StringFlag{
				Name:  "table",
				Usage: "Report table name (overrides TABLE_NAME)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			ingestCommand(),
			listCommand(),
			exportCommand(),
			snapshotCommand(),
		},
	}
}

func setupLogger(c *cli.Context) error {
	level, err := bootstrap.ParseLevel(c.String("log-level"))
	if err != nil {
		return err
	}
	bootstrap.NewLogger(c.App.ErrWriter, level, c.Bool("log-json"))
	return nil
}

// loadConfig reads the environment and applies the global flag overrides.
func loadConfig(c *cli.Context) (*common.Config, error) {
	cfg, err := common.LoadConfig()
	if err != nil {
		return nil, err
	}
	if db := c.String("db"); db != "" {
		cfg.Database.Driver = common.DriverSQLite
		cfg.Database.FilePath = db
	}
	if table := c.String("table"); table != "" {
		cfg.Database.Table = table
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openStore(c *cli.Context) (*repository.DB, *common.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	db, err := bootstrap.OpenStore(c.Context, cfg.Database, 1, slog.Default())
	if err != nil {
		return nil, nil, err
	}
	return db, cfg, nil
}

func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "tin", Usage: "TIN contains"},
		&cli.StringFlag{Name: "assessment", Usage: "Assessment Number contains"},
		&cli.StringFlag{Name: "from", Usage: "Activity Date from, YYYY-MM-DD"},
		&cli.StringFlag{Name: "to", Usage: "Activity Date to, YYYY-MM-DD"},
		&cli.IntFlag{Name: "limit", Usage: "Maximum rows (0 = all)"},
	}
}

func filterFromFlags(c *cli.Context) (reports.Filter, error) {
	f := reports.Filter{
		TINContains:        strings.TrimSpace(c.String("tin")),
		AssessmentContains: strings.TrimSpace(c.String("assessment")),
		Limit:              c.Int("limit"),
	}
	parse := func(name string) (*time.Time, error) {
		v := strings.TrimSpace(c.String(name))
		if v == "" {
			return nil, nil
		}
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return nil, fmt.Errorf("invalid --%s date, use YYYY-MM-DD: %w", name, err)
		}
		return &t, nil
	}
	var err error
	if f.From, err = parse("from"); err != nil {
		return f, err
	}
	if f.To, err = parse("to"); err != nil {
		return f, err
	}
	return f, nil
}
