// Package health provides health checking functionality for the dispensing API.
package health

import (
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/giygas/dispensacao-api/interfaces"
)

// Compile-time check to ensure HealthCheckerImpl implements HealthChecker
var _ interfaces.HealthChecker = (*HealthCheckerImpl)(nil)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	dataStore    interfaces.DataStore
	refreshTimes []clock
	staleAfter   time.Duration
}

type clock struct {
	hour, minute int
}

// NewHealthChecker creates a health checker. refreshAt is the scheduler time
// list ("06:00;18:00"); staleAfter of zero disables the staleness rule.
func NewHealthChecker(dataStore interfaces.DataStore, refreshAt string, staleAfter time.Duration) interfaces.HealthChecker {
	return &HealthCheckerImpl{
		dataStore:    dataStore,
		refreshTimes: parseRefreshTimes(refreshAt),
		staleAfter:   staleAfter,
	}
}

func parseRefreshTimes(refreshAt string) []clock {
	var times []clock
	for _, s := range strings.Split(refreshAt, ";") {
		t, err := time.Parse("15:04", strings.TrimSpace(s))
		if err != nil {
			continue
		}
		times = append(times, clock{hour: t.Hour(), minute: t.Minute()})
	}
	sort.Slice(times, func(i, j int) bool {
		if times[i].hour != times[j].hour {
			return times[i].hour < times[j].hour
		}
		return times[i].minute < times[j].minute
	})
	return times
}

// HealthCheck reports on the memoized tables without triggering a load.
// Used by /health HTTP endpoint
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	reports := h.dataStore.Reports()
	loadErrors := h.dataStore.LoadErrors()
	lastUpdate := h.dataStore.GetLastUpdated()
	isUpdating := h.dataStore.IsUpdating()

	rows := map[string]int{}
	var warnings []string
	for _, r := range reports {
		rows[r.Kind] = r.RowsLoaded
		if r.LookupWarning != "" {
			warnings = append(warnings, r.LookupWarning)
		}
	}

	var dataAge time.Duration
	if !lastUpdate.IsZero() {
		dataAge = time.Since(lastUpdate)
	}

	switch {
	case len(reports) == 0:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case len(loadErrors) > 0:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	case h.staleAfter > 0 && dataAge > h.staleAfter:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"data_age_hours": math.Round(dataAge.Hours()*10) / 10,
		"patients":       rows["patients"],
		"distributions":  rows["distributions"],
		"is_updating":    isUpdating,
	}
	if !lastUpdate.IsZero() {
		data["last_update"] = lastUpdate.Format(time.RFC3339)
	}
	if len(loadErrors) > 0 {
		data["load_errors"] = loadErrors
	}
	if len(warnings) > 0 {
		data["warnings"] = warnings
	}
	if next := h.CalculateNextUpdate(); !next.IsZero() {
		data["next_update"] = next.Format(time.RFC3339)
	}
	if start := h.dataStore.GetServerStartTime(); !start.IsZero() {
		data["uptime_seconds"] = int64(time.Since(start).Seconds())
	}

	return status, data, httpStatus
}

// CalculateNextUpdate returns the next scheduled refresh time, or the zero
// time when scheduled refreshes are disabled.
func (h *HealthCheckerImpl) CalculateNextUpdate() time.Time {
	return h.nextUpdateAfter(time.Now())
}

func (h *HealthCheckerImpl) nextUpdateAfter(now time.Time) time.Time {
	if len(h.refreshTimes) == 0 {
		return time.Time{}
	}

	for _, c := range h.refreshTimes {
		t := time.Date(now.Year(), now.Month(), now.Day(), c.hour, c.minute, 0, 0, now.Location())
		if t.After(now) {
			return t
		}
	}

	// Past the last slot of today: first slot tomorrow
	first := h.refreshTimes[0]
	return time.Date(now.Year(), now.Month(), now.Day()+1, first.hour, first.minute, 0, 0, now.Location())
}
