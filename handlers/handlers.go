// Package handlers provides HTTP request handlers for the dispensing API
// endpoints: the patient, summary and distribution views, their CSV
// downloads, filter options, refresh, load history and health checks.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/giygas/dispensacao-api/dispensingparser"
	"github.com/giygas/dispensacao-api/logging"
)

// RespondWithJSON writes a JSON response
func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	w.WriteHeader(code)
	if _, err := w.Write(data); err != nil {
		logging.Debug("Failed to write response", "error", err)
	}
}

// RespondWithError writes a JSON error response
func RespondWithError(w http.ResponseWriter, code int, message string) {
	errorResponse := map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	}
	RespondWithJSON(w, code, errorResponse)
}

// respondWithLoadError maps a failed table load to a response. A configuration
// error halts only the view that needed the table.
func respondWithLoadError(w http.ResponseWriter, err error) {
	var cfgErr *dispensingparser.ConfigError
	if errors.As(err, &cfgErr) {
		RespondWithError(w, http.StatusServiceUnavailable, cfgErr.Error())
		return
	}
	logging.Error("Unexpected load failure", "error", err)
	RespondWithError(w, http.StatusInternalServerError, "failed to load data")
}

// queryValues returns the non-empty values of a repeated query parameter
func queryValues(r *http.Request, param string) []string {
	var values []string
	for _, v := range r.URL.Query()[param] {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// formatUptimeHuman formats duration into a human-readable string
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}
