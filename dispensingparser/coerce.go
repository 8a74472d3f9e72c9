package dispensingparser

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// parseNumber returns nil for empty or non-numeric cells. NaN and infinities
// are not numbers a form can hold, so they are rejected too.
func parseNumber(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ParseCurrency reads a pt-BR monetary value such as "1.234,56" or
// "R$ 1.234,56": grouping dots are removed, then the decimal comma becomes a
// point.
func ParseCurrency(s string) *float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(s, "R$"))
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	return parseNumber(s)
}

var dayFirstLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04",
	"02/01/2006 15:04:05",
	"2/1/2006 15:04:05",
	"02-01-2006",
	"02.01.2006",
	"02/01/06",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseDayFirst parses a date written day first and drops the time of day.
// Unparsable values return nil.
func ParseDayFirst(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	return nil
}

// MonthlyConsumption estimates 30 days of use from the authorized quantity and
// the dosing interval. Missing inputs or a zero interval give nil.
func MonthlyConsumption(quantity, frequency *float64) *float64 {
	if quantity == nil || frequency == nil || *frequency == 0 {
		return nil
	}
	v := *quantity / *frequency * 30
	return &v
}

// isMissingName reports whether an interested-party value stands for no one.
func isMissingName(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nan", "none":
		return true
	}
	return false
}
