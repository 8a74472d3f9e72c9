package dispensingparser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/giygas/dispensacao-api/dispensingparser/entities"
	"github.com/giygas/dispensacao-api/logging"
	"github.com/xuri/excelize/v2"
)

// DrugLookup is the raw → canonical drug-name table.
type DrugLookup = entities.DrugLookup

// LoadDrugLookup reads the raw → canonical table from the first sheet of a
// workbook. The first row is a header; the first two columns are used
// positionally. A .csv path is read through ReadDelimited instead.
func LoadDrugLookup(path string, encodings []Encoding) (DrugLookup, error) {
	var rows [][]string

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		res, err := ReadDelimited(path, nil, encodings)
		if err != nil {
			return nil, err
		}
		rows = res.Table.Rows

	default:
		sheetRows, err := readFirstSheet(path)
		if err != nil {
			return nil, err
		}
		if len(sheetRows) > 0 {
			rows = sheetRows[1:]
		}
	}

	// Source names are repaired before they are looked up, so keys are too
	repairer := NewRepairer(DefaultSubstitutions)

	lookup := make(DrugLookup, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		raw := strings.ToUpper(strings.TrimSpace(repairer.Fix(row[0])))
		canonical := strings.ToUpper(strings.TrimSpace(repairer.Fix(row[1])))
		if raw == "" {
			continue
		}
		// Duplicate raw names: the last row wins
		lookup[raw] = canonical
	}

	logging.Info("Drug lookup loaded", "path", path, "entries", len(lookup))
	return lookup, nil
}

func readFirstSheet(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open lookup workbook %s: %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("Failed to close lookup workbook", "path", path, "error", err)
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("lookup workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}
