package dispensingparser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/giygas/dispensacao-api/dispensingparser/entities"
	"github.com/giygas/dispensacao-api/logging"
)

// Load kinds, also used as memo identities and history labels.
const (
	KindPatients      = "patients"
	KindDistributions = "distributions"
)

var sourceExtensions = map[string]bool{".csv": true, ".txt": true}

var errNoSourceFiles = errors.New("no .csv or .txt files found")

// Options carries the immutable tables a load cycle runs with.
type Options struct {
	Encodings     []Encoding
	Substitutions []Substitution
	Lookup        DrugLookup
	LookupWarning string
	ExcludedTerms []string
}

// DefaultOptions returns the built-in tables with an empty lookup.
func DefaultOptions() Options {
	return Options{
		Encodings:     DefaultEncodings(),
		Substitutions: DefaultSubstitutions,
		Lookup:        DrugLookup{},
		ExcludedTerms: ExcludedTerms,
	}
}

func (o Options) withDefaults() Options {
	if len(o.Encodings) == 0 {
		o.Encodings = DefaultEncodings()
	}
	if o.Substitutions == nil {
		o.Substitutions = DefaultSubstitutions
	}
	if o.Lookup == nil {
		o.Lookup = DrugLookup{}
	}
	if o.ExcludedTerms == nil {
		o.ExcludedTerms = ExcludedTerms
	}
	return o
}

// listSourceFiles returns the regular .csv/.txt files of dir sorted by name.
func listSourceFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if sourceExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)

	if len(files) == 0 {
		return nil, errNoSourceFiles
	}
	return files, nil
}

// readSources reads every source file of dir and stacks them in file order.
// Any failure is a ConfigError for the whole load.
func readSources(kind, dir string, columns []string, encodings []Encoding, report *entities.LoadReport) (*Table, error) {
	files, err := listSourceFiles(dir)
	if err != nil {
		return nil, &ConfigError{Kind: kind, Path: dir, Err: err}
	}

	tables := make([]*Table, 0, len(files))
	for _, path := range files {
		res, err := ReadDelimited(path, columns, encodings)
		if err != nil {
			return nil, &ConfigError{Kind: kind, Path: path, Err: err}
		}

		report.Files = append(report.Files, entities.SourceFile{
			Path:         path,
			Encoding:     res.Encoding,
			Rows:         len(res.Table.Rows),
			SkippedLines: res.SkippedLines,
		})
		report.RowsRead += len(res.Table.Rows)
		report.SkippedLines += res.SkippedLines
		tables = append(tables, res.Table)
	}

	return Concat(tables...), nil
}

// cleanTable repairs mojibake then trims names and cells.
func cleanTable(t *Table, opts Options) {
	NewRepairer(opts.Substitutions).RepairTable(t)
	t.TrimSpace()
}

// canonicalizeDrugs uppercases drug names and rewrites them through the lookup.
func canonicalizeDrugs(t *Table, lookup DrugLookup) {
	t.MapColumn(ColMedicamento, func(s string) string {
		if s == "" {
			return s
		}
		return lookup.Canonical(s)
	})
}

func newReport(kind string, opts Options) *entities.LoadReport {
	return &entities.LoadReport{
		Kind:          kind,
		StartedAt:     time.Now(),
		LookupSize:    len(opts.Lookup),
		LookupWarning: opts.LookupWarning,
	}
}

func finishReport(report *entities.LoadReport, loaded int) {
	report.RowsLoaded = loaded
	report.Duration = time.Since(report.StartedAt)
	report.DurationMs = report.Duration.Milliseconds()

	logging.Info(fmt.Sprintf("%s load completed", report.Kind),
		"files", len(report.Files),
		"rows_read", report.RowsRead,
		"rows_loaded", report.RowsLoaded,
		"skipped_lines", report.SkippedLines,
		"blank_interested", report.BlankInterested,
		"excluded_supplements", report.ExcludedSupplements,
		"invalid_numbers", report.InvalidNumbers,
		"invalid_dates", report.InvalidDates,
		"duration", report.Duration)
}

// coerceNumber parses a cell and counts it as invalid when a non-empty value
// could not be read.
func coerceNumber(cell string, parse func(string) *float64, invalid *int) *float64 {
	v := parse(cell)
	if v == nil && strings.TrimSpace(cell) != "" {
		*invalid++
	}
	return v
}
