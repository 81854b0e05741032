package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
	"golang.org/x/text/language"

	"github.com/joseph-ayodele/efris-reports/constants"
	"github.com/joseph-ayodele/efris-reports/internal/entity"
	"github.com/joseph-ayodele/efris-reports/internal/reports"
	"github.com/joseph-ayodele/efris-reports/internal/repository"
)

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "Show stored reports with a summary",
		Flags: append([]cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print the rows as JSON"},
		}, filterFlags()...),
		Action: runList,
	}
}

func runList(c *cli.Context) error {
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
	svc := reports.NewService(repository.NewReportRepository(db, logger), logger)
	recs, err := svc.List(c.Context, f)
	if err != nil {
		return err
	}

	out := c.App.Writer
	if c.Bool("json") {
		if recs == nil {
			recs = []entity.Report{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader(constants.Columns())
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	for _, r := range recs {
		table.Append(tableRow(r))
	}
	table.Render()

	sum := reports.Summarize(recs)
	fmt.Fprintf(out, "Rows: %s\n", sum.FormatRows(language.English))
	if total := sum.FormatTotal(language.English); total != "" {
		fmt.Fprintf(out, "Total Amount Assessed: %s\n", total)
	}
	if dr := sum.DateRange(); dr != "" {
		fmt.Fprintf(out, "Data Date Range: %s\n", dr)
	}
	return nil
}

func tableRow(r entity.Report) []string {
	amount := ""
	if r.AmountAssessed != nil {
		amount = strconv.FormatFloat(*r.AmountAssessed, 'f', 2, 64)
	}
	return []string{
		r.TIN,
		r.TaxpayerName,
		r.Region,
		r.Location,
		r.RiskSource,
		r.Risk,
		r.Activity,
		r.ActivityDate,
		r.TaxHead,
		r.AssessmentNumber,
		amount,
	}
}
