// Package scheduler provides automated data refresh scheduling and staleness
// monitoring for the dispensing API. It drops the memoized tables at the
// configured times so the next read sees new exports.
package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/giygas/dispensacao-api/data"
	"github.com/giygas/dispensacao-api/interfaces"
	"github.com/giygas/dispensacao-api/logging"
	"github.com/go-co-op/gocron"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// Scheduler handles data refreshes and staleness monitoring using dependency injection
type Scheduler struct {
	dataStore  interfaces.DataStore
	refreshAt  string
	staleAfter time.Duration
	scheduler  *gocron.Scheduler
	done       chan struct{}
}

// NewScheduler creates a new scheduler. refreshAt is a gocron time list such
// as "06:00;18:00"; an empty value disables scheduled refreshes.
func NewScheduler(dataStore interfaces.DataStore, refreshAt string, staleAfter time.Duration) *Scheduler {
	return &Scheduler{
		dataStore:  dataStore,
		refreshAt:  refreshAt,
		staleAfter: staleAfter,
		scheduler:  gocron.NewScheduler(time.Local),
		done:       make(chan struct{}),
	}
}

// Start loads both tables once, then schedules refreshes and health monitoring.
// A failed initial load is logged: the failing view reports its error on
// request while the other view keeps working.
func (s *Scheduler) Start() error {
	if err := s.updateData(); err != nil {
		logging.Error("Initial data load incomplete", "error", err)
	}

	if s.refreshAt != "" {
		_, err := s.scheduler.Every(1).Days().At(s.refreshAt).Do(func() {
			if err := s.updateData(); err != nil {
				logging.Error("Failed to refresh data", "error", err)
			}
		})
		if err != nil {
			logging.Error("Failed to schedule refreshes", "error", err)
			return fmt.Errorf("failed to schedule refreshes: %w", err)
		}
		s.scheduler.StartAsync()
		logging.Info("Scheduled data refreshes", "at", s.refreshAt)
	}

	s.startHealthMonitoring()

	return nil
}

// Stop stops the scheduler and the monitoring goroutine
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// updateData invalidates and reloads the memoized tables
func (s *Scheduler) updateData() error {
	logging.Info(fmt.Sprintf("Starting data refresh at: %s", time.Now().Format(time.RFC3339)))
	start := time.Now()

	reports, err := s.dataStore.Refresh()
	if errors.Is(err, data.ErrRefreshInProgress) {
		logging.Info("Refresh already in progress, skipping...")
		return nil
	}

	for _, r := range reports {
		logging.Info("Table loaded",
			"kind", r.Kind,
			"rows", r.RowsLoaded,
			"dropped", r.Dropped(),
			"skipped_lines", r.SkippedLines)
	}

	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	logging.Info("Data refresh completed", "duration", time.Since(start).String())
	return nil
}

// startHealthMonitoring warns hourly when the data is older than staleAfter
func (s *Scheduler) startHealthMonitoring() {
	if s.staleAfter <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-s.done:
				return
			case now := <-ticker.C:
				s.checkStaleness(now)
			}
		}
	}()
}

// checkStaleness logs a warning and returns true when the data is stale
func (s *Scheduler) checkStaleness(now time.Time) bool {
	lastUpdate := s.dataStore.GetLastUpdated()
	if lastUpdate.IsZero() {
		logging.Warn("No data has been loaded yet", "errors", s.dataStore.LoadErrors())
		return true
	}
	if now.Sub(lastUpdate) > s.staleAfter {
		logging.Warn(fmt.Sprintf("Data hasn't been updated in over %s", s.staleAfter),
			"last_update", lastUpdate.Format(time.RFC3339))
		return true
	}
	return false
}
