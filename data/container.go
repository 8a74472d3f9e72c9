// Package data provides the load memo for the dispensing API.
// It includes the DataContainer struct, which loads each table at most once,
// keeps the last successful result until invalidated, and records every load
// attempt.
package data

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/giygas/dispensacao-api/dispensingparser/entities"
	"github.com/giygas/dispensacao-api/interfaces"
	"github.com/giygas/dispensacao-api/logging"
	"github.com/giygas/dispensacao-api/metrics"
)

// Compile-time check to ensure DataContainer implements DataStore
var _ interfaces.DataStore = (*DataContainer)(nil)

// ErrRefreshInProgress is returned when Refresh is called while another
// refresh is running.
var ErrRefreshInProgress = errors.New("refresh already in progress")

// Memo identities
const (
	KindLookup        = "lookup"
	KindPatients      = "patients"
	KindDistributions = "distributions"
)

type memoEntry[T any] struct {
	value    T
	report   *entities.LoadReport
	loadedAt time.Time
}

type loadFailure struct {
	err error
	at  time.Time
}

// memo holds one load identity. Loads are serialized by mu; readers of a
// memoized value never take the lock.
type memo[T any] struct {
	mu      sync.Mutex
	entry   atomic.Pointer[memoEntry[T]]
	failure atomic.Pointer[loadFailure]
}

func (m *memo[T]) get(load func() (T, *entities.LoadReport, error)) (*memoEntry[T], error) {
	if e := m.entry.Load(); e != nil {
		return e, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if e := m.entry.Load(); e != nil {
		return e, nil
	}

	value, report, err := load()
	if err != nil {
		m.failure.Store(&loadFailure{err: err, at: time.Now()})
		return nil, err
	}

	e := &memoEntry[T]{value: value, report: report, loadedAt: time.Now()}
	m.entry.Store(e)
	m.failure.Store(nil)
	return e, nil
}

func (m *memo[T]) reset() {
	m.entry.Store(nil)
	m.failure.Store(nil)
}

// lookupValue is the memoized lookup, degraded to empty when it failed to load.
type lookupValue struct {
	names   entities.DrugLookup
	warning string
}

// DataContainer memoizes the lookup, patient and distribution loads
type DataContainer struct {
	parser   interfaces.Parser
	recorder interfaces.LoadRecorder

	lookup        memo[lookupValue]
	patients      memo[[]entities.PatientRecord]
	distributions memo[[]entities.DistributionRecord]

	updating        atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewDataContainer creates an empty memo over parser. recorder may be nil.
func NewDataContainer(parser interfaces.Parser, recorder interfaces.LoadRecorder) *DataContainer {
	dc := &DataContainer{parser: parser, recorder: recorder}
	dc.serverStartTime.Store(time.Time{})
	return dc
}

// Patients returns the memoized patient records, loading them on first use
func (dc *DataContainer) Patients() ([]entities.PatientRecord, error) {
	e, err := dc.patients.get(func() ([]entities.PatientRecord, *entities.LoadReport, error) {
		lookup := dc.drugLookup()
		records, report, err := dc.parser.LoadPatients(lookup.names)
		dc.afterLoad(KindPatients, lookup, report, err)
		return records, report, err
	})
	if err != nil {
		return nil, err
	}
	return e.value, nil
}

// Distributions returns the memoized distribution records, loading them on first use
func (dc *DataContainer) Distributions() ([]entities.DistributionRecord, error) {
	e, err := dc.distributions.get(func() ([]entities.DistributionRecord, *entities.LoadReport, error) {
		lookup := dc.drugLookup()
		records, report, err := dc.parser.LoadDistributions(lookup.names)
		dc.afterLoad(KindDistributions, lookup, report, err)
		return records, report, err
	})
	if err != nil {
		return nil, err
	}
	return e.value, nil
}

// drugLookup never fails: a lookup that cannot be read becomes an empty one
// plus a warning carried by the load reports.
func (dc *DataContainer) drugLookup() lookupValue {
	e, _ := dc.lookup.get(func() (lookupValue, *entities.LoadReport, error) {
		names, err := dc.parser.LoadLookup()
		if err != nil {
			warning := fmt.Sprintf("drug lookup unavailable, names are not normalized: %v", err)
			logging.Warn("Drug lookup could not be loaded", "error", err)
			return lookupValue{names: entities.DrugLookup{}, warning: warning}, nil, nil
		}
		return lookupValue{names: names}, nil, nil
	})
	return e.value
}

func (dc *DataContainer) afterLoad(kind string, lookup lookupValue, report *entities.LoadReport, err error) {
	if report != nil {
		report.LookupSize = len(lookup.names)
		report.LookupWarning = lookup.warning
	}

	metrics.ObserveLoad(kind, report, err)

	if err != nil {
		logging.Error("Load failed", "kind", kind, "error", err)
	}

	if dc.recorder != nil {
		if recErr := dc.recorder.Record(context.Background(), kind, report, err); recErr != nil {
			logging.Warn("Failed to record load run", "kind", kind, "error", recErr)
		}
	}
}

// Invalidate clears every memoized load; the next read reloads from disk
func (dc *DataContainer) Invalidate() {
	dc.lookup.reset()
	dc.patients.reset()
	dc.distributions.reset()
	logging.Info("Memoized tables invalidated")
}

// Refresh invalidates the memo and reloads both tables. Both loads are
// attempted; the first error is returned.
func (dc *DataContainer) Refresh() ([]*entities.LoadReport, error) {
	if !dc.BeginUpdate() {
		return nil, ErrRefreshInProgress
	}
	defer dc.EndUpdate()

	dc.Invalidate()

	var firstErr error
	if _, err := dc.Patients(); err != nil {
		firstErr = err
	}
	if _, err := dc.Distributions(); err != nil && firstErr == nil {
		firstErr = err
	}

	return dc.Reports(), firstErr
}

// Reports returns the reports of the memoized loads, patients first
func (dc *DataContainer) Reports() []*entities.LoadReport {
	var reports []*entities.LoadReport
	if e := dc.patients.entry.Load(); e != nil && e.report != nil {
		reports = append(reports, e.report)
	}
	if e := dc.distributions.entry.Load(); e != nil && e.report != nil {
		reports = append(reports, e.report)
	}
	return reports
}

// LoadErrors returns the last failure of each identity that has no value
func (dc *DataContainer) LoadErrors() map[string]string {
	errs := make(map[string]string)
	if f := dc.patients.failure.Load(); f != nil {
		errs[KindPatients] = f.err.Error()
	}
	if f := dc.distributions.failure.Load(); f != nil {
		errs[KindDistributions] = f.err.Error()
	}
	return errs
}

// GetLastUpdated returns the time of the most recent successful load
func (dc *DataContainer) GetLastUpdated() time.Time {
	var last time.Time
	if e := dc.patients.entry.Load(); e != nil && e.loadedAt.After(last) {
		last = e.loadedAt
	}
	if e := dc.distributions.entry.Load(); e != nil && e.loadedAt.After(last) {
		last = e.loadedAt
	}
	return last
}

// IsUpdating returns true if a refresh is currently in progress
func (dc *DataContainer) IsUpdating() bool {
	return dc.updating.Load()
}

// SetServerStartTime sets the server start time
func (dc *DataContainer) SetServerStartTime(startTime time.Time) {
	dc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (dc *DataContainer) GetServerStartTime() time.Time {
	if v := dc.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}

	logging.Warn("Could not get the server start time value")
	return time.Time{}
}

// BeginUpdate marks the start of a refresh
// Returns true if the refresh can proceed, false if another one is in progress
func (dc *DataContainer) BeginUpdate() bool {
	return dc.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a refresh
func (dc *DataContainer) EndUpdate() {
	dc.updating.Store(false)
}
