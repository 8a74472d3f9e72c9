// Package validation checks request input for the dispensing API.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/giygas/dispensacao-api/interfaces"
)

const (
	maxInputLength  = 200
	maxSelectionLen = 100
	periodLayout    = "2006-01-02"
)

var (
	// Facility, status and drug names: letters of any script, digits and the
	// punctuation found in the source exports
	inputRegex = regexp.MustCompile(`^[\p{L}\p{N}\s\-\.\+'/(),:%ºª&]+$`)

	dangerousPatterns = []string{
		"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
		"eval(", "expression(", "@import",
		// SQL injection patterns
		"' or ", "\" or ", "union select", "drop table", "delete from", "insert into",
		"--", "/*", "*/", "exec(", "execute(",
		// Command injection patterns
		"`", "$(", "${",
		// Path traversal patterns
		"../", "..\\", "%2e%2e", "file://",
	}

	exportEncodings = map[string]string{
		"utf-8-sig":  "utf-8-sig",
		"utf8-sig":   "utf-8-sig",
		"utf-8":      "utf-8",
		"utf8":       "utf-8",
		"latin1":     "latin1",
		"latin-1":    "latin1",
		"iso-8859-1": "latin1",
	}
)

// DataValidatorImpl implements the interfaces.DataValidator interface
type DataValidatorImpl struct{}

// NewDataValidator creates a new data validator
func NewDataValidator() interfaces.DataValidator {
	return &DataValidatorImpl{}
}

// ValidateInput validates one filter value
func (v *DataValidatorImpl) ValidateInput(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("input cannot be empty")
	}

	if utf8.RuneCountInString(input) > maxInputLength {
		return fmt.Errorf("input too long: maximum %d characters", maxInputLength)
	}

	lowerInput := strings.ToLower(input)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowerInput, pattern) {
			return fmt.Errorf("input contains potentially dangerous content")
		}
	}

	if !inputRegex.MatchString(input) {
		return fmt.Errorf("input contains invalid characters")
	}

	if v.hasExcessiveRepetition(input) {
		return fmt.Errorf("input contains excessive character repetition")
	}

	return nil
}

// ValidateSelection validates every value of a repeated query parameter
func (v *DataValidatorImpl) ValidateSelection(param string, values []string) error {
	if len(values) > maxSelectionLen {
		return fmt.Errorf("%s: too many values (maximum %d)", param, maxSelectionLen)
	}
	for _, value := range values {
		if err := v.ValidateInput(value); err != nil {
			return fmt.Errorf("%s: %w", param, err)
		}
	}
	return nil
}

// ValidatePeriod parses YYYY-MM-DD boundaries. Any count is accepted; only a
// pair restricts the distribution view. Boundaries must be in order.
func (v *DataValidatorImpl) ValidatePeriod(values []string) ([]time.Time, error) {
	if len(values) > 2 {
		return nil, fmt.Errorf("period accepts at most two dates, got %d", len(values))
	}

	period := make([]time.Time, 0, len(values))
	for _, value := range values {
		d, err := time.Parse(periodLayout, strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("period date %q must use YYYY-MM-DD", value)
		}
		period = append(period, d)
	}

	if len(period) == 2 && period[1].Before(period[0]) {
		return nil, fmt.Errorf("period end %s is before start %s", values[1], values[0])
	}
	return period, nil
}

// ValidateEncoding normalizes an export encoding name
func (v *DataValidatorImpl) ValidateEncoding(input string) (string, error) {
	name, ok := exportEncodings[strings.ToLower(strings.TrimSpace(input))]
	if !ok {
		return "", fmt.Errorf("unsupported encoding %q: use utf-8-sig, utf-8 or latin1", input)
	}
	return name, nil
}

// ValidateLimit parses a result limit, defaulting when empty and capping at maxLimit
func (v *DataValidatorImpl) ValidateLimit(input string, defaultLimit, maxLimit int) (int, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return defaultLimit, nil
	}

	limit, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("limit must be a number")
	}
	if limit < 1 {
		return 0, fmt.Errorf("limit must be positive")
	}
	if limit > maxLimit {
		return maxLimit, nil
	}
	return limit, nil
}

// hasExcessiveRepetition reports the same byte repeated more than 10 times in a row
func (v *DataValidatorImpl) hasExcessiveRepetition(input string) bool {
	run := 1
	for i := 1; i < len(input); i++ {
		if input[i] == input[i-1] {
			run++
			if run > 10 {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}
