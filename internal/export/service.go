package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/efris-reports/constants"
	"github.com/joseph-ayodele/efris-reports/internal/entity"
)

// SheetName is the worksheet holding the exported rows.
const SheetName = "Reports"

// Service turns report rows into downloadable CSV and XLSX files.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// CSV writes recs with a header row in store column order. A missing amount
// is written as an empty field.
func (s *Service) CSV(w io.Writer, recs []entity.Report) error {
	start := time.Now()
	cw := csv.NewWriter(w)
	if err := cw.Write(constants.Columns()); err != nil {
		return fmt.Errorf("csv header: %w", err)
	}
	for _, r := range recs {
		row := values(r)
		line := make([]string, len(row))
		for i, v := range row {
			switch t := v.(type) {
			case float64:
				line[i] = strconv.FormatFloat(t, 'f', -1, 64)
			case string:
				line[i] = t
			}
		}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csv flush: %w", err)
	}
	s.logger.Info("export.csv.ok", "rows", len(recs), "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}

// XLSX returns a workbook (as bytes) with one sheet of recs.
func (s *Service) XLSX(recs []entity.Report) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// NewFile starts with "Sheet1"; rename it rather than leave an empty sheet behind.
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}
	idx, _ := f.GetSheetIndex(SheetName)
	f.SetActiveSheet(idx)

	for i, h := range constants.Columns() {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}

	for n, r := range recs {
		row := n + 2
		for i, v := range values(r) {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return nil, fmt.Errorf("xlsx cell %s: %w", cell, err)
			}
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 14) // tin
	_ = f.SetColWidth(SheetName, "B", "B", 32) // taxpayer
	_ = f.SetColWidth(SheetName, "C", "I", 14)
	_ = f.SetColWidth(SheetName, "J", "J", 24) // assessment number
	_ = f.SetColWidth(SheetName, "K", "K", 16) // amount

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// values lays out r in constants.Columns order. A NULL amount is nil.
func values(r entity.Report) []any {
	var amount any
	if r.AmountAssessed != nil {
		amount = *r.AmountAssessed
	}
	return []any{
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
