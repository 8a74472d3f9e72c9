package entities

import "time"

// SourceFile describes one file read during a load and the encoding that decoded it.
type SourceFile struct {
	Path         string `json:"path"`
	Encoding     string `json:"encoding"`
	Rows         int    `json:"rows"`
	SkippedLines int    `json:"skippedLines"`
}

// LoadReport collects the counters of a single load cycle
type LoadReport struct {
	Kind                string        `json:"kind"`
	StartedAt           time.Time     `json:"startedAt"`
	Duration            time.Duration `json:"-"`
	DurationMs          int64         `json:"durationMs"`
	Files               []SourceFile  `json:"files"`
	RowsRead            int           `json:"rowsRead"`
	RowsLoaded          int           `json:"rowsLoaded"`
	SkippedLines        int           `json:"skippedLines"`
	BlankInterested     int           `json:"blankInterested"`
	ExcludedSupplements int           `json:"excludedSupplements"`
	InvalidNumbers      int           `json:"invalidNumbers"`
	InvalidDates        int           `json:"invalidDates"`
	LookupSize          int           `json:"lookupSize"`
	LookupWarning       string        `json:"lookupWarning,omitempty"`
}

// Dropped returns the number of rows removed by cleanup rules.
func (r *LoadReport) Dropped() int {
	return r.BlankInterested + r.ExcludedSupplements
}
