// Package interfaces defines core abstractions for the dispensing API
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/giygas/dispensacao-api/dispensingparser/entities"
)

// LoadRun is one recorded load attempt, successful or not.
type LoadRun struct {
	ID                  string    `db:"id" json:"id"`
	Kind                string    `db:"kind" json:"kind"`
	StartedAt           time.Time `db:"started_at" json:"startedAt"`
	DurationMs          int64     `db:"duration_ms" json:"durationMs"`
	Files               int       `db:"files" json:"files"`
	RowsRead            int       `db:"rows_read" json:"rowsRead"`
	RowsLoaded          int       `db:"rows_loaded" json:"rowsLoaded"`
	SkippedLines        int       `db:"skipped_lines" json:"skippedLines"`
	BlankInterested     int       `db:"blank_interested" json:"blankInterested"`
	ExcludedSupplements int       `db:"excluded_supplements" json:"excludedSupplements"`
	InvalidNumbers      int       `db:"invalid_numbers" json:"invalidNumbers"`
	InvalidDates        int       `db:"invalid_dates" json:"invalidDates"`
	LookupWarning       string    `db:"lookup_warning" json:"lookupWarning,omitempty"`
	Error               string    `db:"error" json:"error,omitempty"`
}

// DataStore defines the contract for the load memo.
// Each load identity is loaded at most once until invalidated; failures
// are returned to the caller and not memoized.
type DataStore interface {
	// Data retrieval methods
	Patients() ([]entities.PatientRecord, error)
	Distributions() ([]entities.DistributionRecord, error)
	Reports() []*entities.LoadReport
	LoadErrors() map[string]string
	GetLastUpdated() time.Time
	IsUpdating() bool
	GetServerStartTime() time.Time

	// Cache control
	Invalidate()
	Refresh() ([]*entities.LoadReport, error)
}

// Parser defines the contract for reading the source exports.
// It handles decoding, cleanup, and transforming raw files into records.
type Parser interface {
	// LoadLookup reads the drug-name lookup table
	LoadLookup() (entities.DrugLookup, error)

	// LoadPatients reads the registration folder
	LoadPatients(lookup entities.DrugLookup) ([]entities.PatientRecord, *entities.LoadReport, error)

	// LoadDistributions reads the distribution folder
	LoadDistributions(lookup entities.DrugLookup) ([]entities.DistributionRecord, *entities.LoadReport, error)
}

// LoadRecorder keeps an audit trail of load attempts.
type LoadRecorder interface {
	Record(ctx context.Context, kind string, report *entities.LoadReport, loadErr error) error
	Recent(ctx context.Context, limit int) ([]LoadRun, error)
	Close() error
}

// Scheduler defines the contract for job scheduling and staleness monitoring.
type Scheduler interface {
	// Lifecycle management
	Start() error
	Stop()
}

// HTTPHandler defines the contract for HTTP request handlers.
// It provides a consistent interface for all API endpoints.
type HTTPHandler interface {
	// Views
	ServePatients(w http.ResponseWriter, r *http.Request)
	ServeSummary(w http.ResponseWriter, r *http.Request)
	ServeDistributions(w http.ResponseWriter, r *http.Request)

	// CSV downloads
	ExportPatients(w http.ResponseWriter, r *http.Request)
	ExportSummary(w http.ResponseWriter, r *http.Request)
	ExportDistributions(w http.ResponseWriter, r *http.Request)

	ServeFilters(w http.ResponseWriter, r *http.Request)
	Refresh(w http.ResponseWriter, r *http.Request)
	ServeLoads(w http.ResponseWriter, r *http.Request)
	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// HealthChecker defines the contract for health check functionality.
// It provides system health monitoring and reporting.
type HealthChecker interface {
	// HealthCheck returns current system health status and the HTTP code to answer with
	HealthCheck() (status string, data map[string]any, httpStatus int)

	// CalculateNextUpdate returns the next scheduled refresh time
	CalculateNextUpdate() time.Time
}

// DataValidator defines the contract for request input validation.
type DataValidator interface {
	// ValidateInput validates a free-text filter value
	ValidateInput(input string) error

	// ValidateSelection validates every value of a multi-select filter
	ValidateSelection(param string, values []string) error

	// ValidatePeriod parses a date-range filter given as YYYY-MM-DD values
	ValidatePeriod(values []string) ([]time.Time, error)

	// ValidateEncoding checks an export encoding name
	ValidateEncoding(input string) (string, error)

	// ValidateLimit parses a positive result limit
	ValidateLimit(input string, defaultLimit, maxLimit int) (int, error)
}
