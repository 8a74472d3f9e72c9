package dispensingparser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/giygas/dispensacao-api/logging"
)

// Separator used by every export of the program.
const Separator = ';'

// ReadResult is what ReadDelimited returns for one file.
type ReadResult struct {
	Table        *Table
	Encoding     string
	SkippedLines int
}

// ReadDelimited reads a ;-separated file trying each encoding in order. The
// first encoding that decodes the whole file wins. Lines whose field count
// does not match the header are skipped. When columns is not empty the table
// is reduced to the requested columns that exist.
func ReadDelimited(path string, columns []string, encodings []Encoding) (*ReadResult, error) {
	if len(encodings) == 0 {
		encodings = DefaultEncodings()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}

	attempted := make([]string, 0, len(encodings))
	var lastErr error

	for _, enc := range encodings {
		attempted = append(attempted, enc.Name)

		text, err := enc.Decode(raw)
		if err != nil {
			logging.Debug("Encoding rejected", "path", path, "encoding", enc.Name, "error", err)
			lastErr = err
			continue
		}

		table, skipped, err := parseDelimited(strings.NewReader(text))
		if err != nil {
			lastErr = err
			continue
		}

		if len(columns) > 0 {
			table = table.Project(columns)
		}

		if skipped > 0 {
			logging.Info("Malformed lines skipped", "path", path, "encoding", enc.Name, "skipped", skipped)
		}

		return &ReadResult{Table: table, Encoding: enc.Name, SkippedLines: skipped}, nil
	}

	return nil, &ReadError{Path: path, Attempted: attempted, Err: lastErr}
}

func parseDelimited(r io.Reader) (*Table, int, error) {
	reader := csv.NewReader(r)
	reader.Comma = Separator
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, 0, errors.New("file is empty")
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read header: %w", err)
	}

	header = append([]string(nil), header...)
	// A line-ending separator leaves an unnamed trailing column
	if n := len(header); n > 1 && strings.TrimSpace(header[n-1]) == "" {
		header = header[:n-1]
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	table := &Table{Header: header}
	skipped := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				skipped++
				continue
			}
			return nil, 0, err
		}

		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if len(record) == len(header)+1 && strings.TrimSpace(record[len(header)]) == "" {
			record = record[:len(header)]
		}
		if len(record) != len(header) {
			skipped++
			continue
		}

		table.Rows = append(table.Rows, append([]string(nil), record...))
	}

	return table, skipped, nil
}
