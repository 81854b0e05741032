// Package reports serves read-only queries over stored reports.
package reports

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joseph-ayodele/efris-reports/internal/common"
	"github.com/joseph-ayodele/efris-reports/internal/entity"
	"github.com/joseph-ayodele/efris-reports/internal/repository"
)

// Service handles report listing and summaries.
type Service struct {
	repo   repository.ReportRepository
	logger *slog.Logger
}

// NewService creates a new report service.
func NewService(repo repository.ReportRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Filter represents report listing parameters. From and To bound the
// activity date inclusively, by calendar day.
type Filter struct {
	TINContains        string
	AssessmentContains string
	From               *time.Time
	To                 *time.Time
	Limit              int
}

// List returns reports matching f. With a date bound set, records whose
// activity date does not parse are left out.
func (s *Service) List(ctx context.Context, f Filter) ([]entity.Report, error) {
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, common.NewAppError("INVALID_RANGE", "to date is before from date", common.ErrInvalidInput)
	}
	if f.Limit < 0 {
		return nil, common.NewAppError("INVALID_LIMIT", "limit must not be negative", common.ErrInvalidInput)
	}

	s.logger.Info("listing reports",
		"tin_contains", f.TINContains,
		"assessment_contains", f.AssessmentContains,
		"from_date", f.From,
		"to_date", f.To,
	)
	lf := repository.ListFilter{
		TINContains:        strings.TrimSpace(f.TINContains),
		AssessmentContains: strings.TrimSpace(f.AssessmentContains),
	}
	if f.From == nil && f.To == nil {
		lf.Limit = f.Limit
	}
	recs, err := s.repo.List(ctx, lf)
	if err != nil {
		s.logger.Error("failed to list reports", "error", err)
		return nil, err
	}

	if f.From != nil || f.To != nil {
		from, to := dayBounds(f.From, f.To)
		kept := recs[:0]
		for _, r := range recs {
			d, ok := ParseActivityDate(r.ActivityDate)
			if !ok {
				continue
			}
			if (from.IsZero() || !d.Before(from)) && (to.IsZero() || d.Before(to)) {
				kept = append(kept, r)
			}
		}
		recs = kept
		if f.Limit > 0 && len(recs) > f.Limit {
			recs = recs[:f.Limit]
		}
	}

	s.logger.Info("reports listed successfully", "count", len(recs))
	return recs, nil
}

// dayBounds turns inclusive calendar days into [from, to) instants.
func dayBounds(from, to *time.Time) (time.Time, time.Time) {
	var lo, hi time.Time
	if from != nil {
		lo = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	}
	if to != nil {
		hi = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	}
	return lo, hi
}

// ParseActivityDate reads a stored activity date day-first (05/06/2024 is
// 5 June 2024).
func ParseActivityDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(raw, time.UTC, dateparse.PreferMonthFirst(false))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Summary holds the headline numbers for a set of reports.
type Summary struct {
	Rows        int
	TotalAmount *float64 // nil when no record has an amount
	MinDate     *time.Time
	MaxDate     *time.Time
}

// Summarize counts rows, totals known amounts and finds the activity date range.
func Summarize(recs []entity.Report) Summary {
	s := Summary{Rows: len(recs)}
	var total float64
	var haveAmount bool
	for _, r := range recs {
		if r.AmountAssessed != nil {
			total += *r.AmountAssessed
			haveAmount = true
		}
		d, ok := ParseActivityDate(r.ActivityDate)
		if !ok {
			continue
		}
		if s.MinDate == nil || d.Before(*s.MinDate) {
			dd := d
			s.MinDate = &dd
		}
		if s.MaxDate == nil || d.After(*s.MaxDate) {
			dd := d
			s.MaxDate = &dd
		}
	}
	if haveAmount {
		s.TotalAmount = &total
	}
	return s
}

// FormatRows renders the row count with grouping, e.g. "1,204".
func (s Summary) FormatRows(tag language.Tag) string {
	return message.NewPrinter(tag).Sprintf("%d", s.Rows)
}

// FormatTotal renders the total with grouping and two decimals, or "" when
// there is no total.
func (s Summary) FormatTotal(tag language.Tag) string {
	if s.TotalAmount == nil {
		return ""
	}
	return message.NewPrinter(tag).Sprintf("%.2f", *s.TotalAmount)
}

// DateRange renders "2024-06-05 → 2024-06-30", or "" without dates.
func (s Summary) DateRange() string {
	if s.MinDate == nil || s.MaxDate == nil {
		return ""
	}
	return s.MinDate.Format(time.DateOnly) + " → " + s.MaxDate.Format(time.DateOnly)
}
