// Package parse turns extracted report text into candidate records.
package parse

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/efris-reports/constants"
	"github.com/joseph-ayodele/efris-reports/internal/entity"
)

type Parser struct {
	rules  []FieldRules
	logger *slog.Logger
}

// New returns a Parser over rules, or DefaultRules when none are given.
func New(logger *slog.Logger, rules ...FieldRules) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Parser{rules: rules, logger: logger}
}

// Parse matches every field independently. Fields no rule matches are unknown.
func (p *Parser) Parse(text string) entity.Candidate {
	var c entity.Candidate
	if strings.TrimSpace(text) == "" {
		return c
	}

	known := 0
	for _, fr := range p.rules {
		v, label, ok := match(fr.Rules, text)
		if !ok {
			continue
		}
		known++
		p.logger.Debug("parse.field.matched", "column", fr.Column, "rule", label)
		switch fr.Column {
		case constants.ColTIN:
			c.TIN = entity.Some(v)
		case constants.ColTaxpayerName:
			c.TaxpayerName = entity.Some(v)
		case constants.ColActivityDate:
			c.ActivityDate = entity.Some(v)
		case constants.ColAssessmentNumber:
			c.AssessmentNumber = entity.Some(v)
		case constants.ColAmountAssessed:
			c.AmountRaw = entity.Some(v)
		default:
			p.logger.Warn("parse.rule.unknown_column", "column", fr.Column)
		}
	}
	p.logger.Debug("parse.done", "fields_known", known, "text_len", len(text))
	return c
}

func match(rules []Rule, text string) (value, label string, ok bool) {
	for _, r := range rules {
		m := r.Pattern.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		if v := strings.TrimSpace(m[1]); v != "" {
			return v, r.Label, true
		}
	}
	return "", "", false
}

// Amount converts a raw amount to a number after stripping thousands separators.
func Amount(raw string) (float64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("parse amount %q: not a finite number", raw)
	}
	return f, nil
}
