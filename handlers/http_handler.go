package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/giygas/dispensacao-api/dashboard"
	"github.com/giygas/dispensacao-api/data"
	"github.com/giygas/dispensacao-api/dispensingparser/entities"
	"github.com/giygas/dispensacao-api/export"
	"github.com/giygas/dispensacao-api/interfaces"
	"github.com/giygas/dispensacao-api/logging"
)

// Compile-time check to ensure HTTPHandlerImpl implements HTTPHandler
var _ interfaces.HTTPHandler = (*HTTPHandlerImpl)(nil)

const (
	defaultLoadsLimit = 20
	maxLoadsLimit     = 500
)

// ExportEncodings holds the default download encoding of each view
type ExportEncodings struct {
	Patients      string
	Summary       string
	Distributions string
}

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	dataStore     interfaces.DataStore
	validator     interfaces.DataValidator
	recorder      interfaces.LoadRecorder
	healthChecker interfaces.HealthChecker
	encodings     ExportEncodings
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies.
// recorder may be nil when load history is disabled.
func NewHTTPHandler(
	dataStore interfaces.DataStore,
	validator interfaces.DataValidator,
	recorder interfaces.LoadRecorder,
	healthChecker interfaces.HealthChecker,
	encodings ExportEncodings,
) interfaces.HTTPHandler {
	return &HTTPHandlerImpl{
		dataStore:     dataStore,
		validator:     validator,
		recorder:      recorder,
		healthChecker: healthChecker,
		encodings:     encodings,
	}
}

// PatientsResponse is the patient list view
type PatientsResponse struct {
	Units   string                   `json:"units"`
	Metrics []dashboard.Metric       `json:"metrics"`
	Total   int                      `json:"total"`
	Records []entities.PatientRecord `json:"records"`
}

// SummaryResponse is the per-drug summary view
type SummaryResponse struct {
	Units   string                 `json:"units"`
	Metrics []dashboard.Metric     `json:"metrics"`
	Rows    []entities.DrugSummary `json:"rows"`
}

// DistributionView is a distribution record as shown to users
type DistributionView struct {
	NumeroDistribuicao string   `json:"numeroDistribuicao"`
	UnidadeDestino     string   `json:"unidadeDestino"`
	Medicamento        string   `json:"medicamento"`
	Quantidade         *float64 `json:"quantidade"`
	ValorTotal         *float64 `json:"valorTotal"`
	DataDistribuicao   string   `json:"dataDistribuicao"`
}

// DistributionsResponse is the distribution view
type DistributionsResponse struct {
	Metrics []dashboard.Metric `json:"metrics"`
	Total   int                `json:"total"`
	Records []DistributionView `json:"records"`
}

// FiltersResponse lists the filter choices of both tables. A table that
// failed to load has no options and an entry in Errors.
type FiltersResponse struct {
	Patients      *dashboard.PatientOptions      `json:"patients,omitempty"`
	Distributions *dashboard.DistributionOptions `json:"distributions,omitempty"`
	Errors        map[string]string              `json:"errors,omitempty"`
}

// RefreshResponse is returned by POST /refresh
type RefreshResponse struct {
	Reports []*entities.LoadReport `json:"reports"`
	Errors  map[string]string      `json:"errors,omitempty"`
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status  string                 `json:"status"`
	Uptime  string                 `json:"uptime,omitempty"`
	Data    map[string]any         `json:"data"`
	Reports []*entities.LoadReport `json:"reports"`
}

// patientFilter reads and validates the patient filter parameters
func (h *HTTPHandlerImpl) patientFilter(r *http.Request) (dashboard.PatientFilter, error) {
	f := dashboard.PatientFilter{
		Facilities:  queryValues(r, "facility"),
		Statuses:    queryValues(r, "status"),
		Drugs:       queryValues(r, "drug"),
		ActionTypes: queryValues(r, "action"),
	}

	checks := []struct {
		param  string
		values []string
	}{
		{"facility", f.Facilities},
		{"status", f.Statuses},
		{"drug", f.Drugs},
		{"action", f.ActionTypes},
	}
	for _, c := range checks {
		if err := h.validator.ValidateSelection(c.param, c.values); err != nil {
			return f, err
		}
	}
	return f, nil
}

// distributionFilter reads and validates the distribution filter parameters
func (h *HTTPHandlerImpl) distributionFilter(r *http.Request) (dashboard.DistributionFilter, error) {
	f := dashboard.DistributionFilter{
		Destinations: queryValues(r, "destination"),
		Drugs:        queryValues(r, "drug"),
	}

	if err := h.validator.ValidateSelection("destination", f.Destinations); err != nil {
		return f, err
	}
	if err := h.validator.ValidateSelection("drug", f.Drugs); err != nil {
		return f, err
	}

	period, err := h.validator.ValidatePeriod(queryValues(r, "period"))
	if err != nil {
		return f, err
	}
	f.Period = period
	return f, nil
}

// filteredPatients loads and filters the patient table, answering the
// request itself on failure
func (h *HTTPHandlerImpl) filteredPatients(w http.ResponseWriter, r *http.Request) (dashboard.PatientFilter, []entities.PatientRecord, bool) {
	f, err := h.patientFilter(r)
	if err != nil {
		logging.Warn("Unusual user input", "path", r.URL.Path, "error", err)
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return f, nil, false
	}

	records, err := h.dataStore.Patients()
	if err != nil {
		respondWithLoadError(w, err)
		return f, nil, false
	}

	return f, dashboard.FilterPatients(records, f), true
}

func (h *HTTPHandlerImpl) filteredDistributions(w http.ResponseWriter, r *http.Request) ([]entities.DistributionRecord, bool) {
	f, err := h.distributionFilter(r)
	if err != nil {
		logging.Warn("Unusual user input", "path", r.URL.Path, "error", err)
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	records, err := h.dataStore.Distributions()
	if err != nil {
		respondWithLoadError(w, err)
		return nil, false
	}

	return dashboard.FilterDistributions(records, f), true
}

// exportEncoding resolves ?encoding= against the view default
func (h *HTTPHandlerImpl) exportEncoding(w http.ResponseWriter, r *http.Request, defaultEncoding string) (string, bool) {
	requested := r.URL.Query().Get("encoding")
	if requested == "" {
		requested = defaultEncoding
	}
	enc, err := h.validator.ValidateEncoding(requested)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return enc, true
}

// writeCSV renders the download in memory so an encoding failure can still
// be answered with an error status
func (h *HTTPHandlerImpl) writeCSV(w http.ResponseWriter, filename, enc string, header []string, rows [][]string) {
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, header, rows, enc); err != nil {
		logging.Error("Failed to render CSV export", "file", filename, "error", err)
		RespondWithError(w, http.StatusInternalServerError, "failed to render export")
		return
	}

	w.Header().Set("Content-Type", export.ContentType(enc))
	w.Header().Set("Content-Disposition", export.ContentDisposition(filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logging.Debug("Failed to write export", "file", filename, "error", err)
	}
}

// ServePatients returns the filtered patient list with its metrics
func (h *HTTPHandlerImpl) ServePatients(w http.ResponseWriter, r *http.Request) {
	f, records, ok := h.filteredPatients(w, r)
	if !ok {
		return
	}

	RespondWithJSON(w, http.StatusOK, PatientsResponse{
		Units:   dashboard.SelectedUnits(f.Facilities),
		Metrics: dashboard.PatientMetrics(records),
		Total:   len(records),
		Records: records,
	})
}

// ServeSummary returns the per-drug summary of the filtered active patients
func (h *HTTPHandlerImpl) ServeSummary(w http.ResponseWriter, r *http.Request) {
	f, records, ok := h.filteredPatients(w, r)
	if !ok {
		return
	}

	rows := dashboard.SummarizeByDrug(records)
	RespondWithJSON(w, http.StatusOK, SummaryResponse{
		Units:   dashboard.SelectedUnits(f.Facilities),
		Metrics: dashboard.SummaryMetrics(rows),
		Rows:    rows,
	})
}

// ServeDistributions returns the filtered distributions with their metrics
func (h *HTTPHandlerImpl) ServeDistributions(w http.ResponseWriter, r *http.Request) {
	records, ok := h.filteredDistributions(w, r)
	if !ok {
		return
	}

	views := make([]DistributionView, 0, len(records))
	for _, rec := range records {
		views = append(views, DistributionView{
			NumeroDistribuicao: rec.NumeroDistribuicao,
			UnidadeDestino:     rec.UnidadeDestino,
			Medicamento:        rec.Medicamento,
			Quantidade:         rec.Quantidade,
			ValorTotal:         rec.ValorTotal,
			DataDistribuicao:   export.FormatDate(rec.DataDistribuicao),
		})
	}

	RespondWithJSON(w, http.StatusOK, DistributionsResponse{
		Metrics: dashboard.DistributionMetrics(records),
		Total:   len(records),
		Records: views,
	})
}

// ExportPatients downloads the filtered patient list
func (h *HTTPHandlerImpl) ExportPatients(w http.ResponseWriter, r *http.Request) {
	enc, ok := h.exportEncoding(w, r, h.encodings.Patients)
	if !ok {
		return
	}
	_, records, ok := h.filteredPatients(w, r)
	if !ok {
		return
	}
	h.writeCSV(w, export.PatientsFile, enc, export.PatientHeader, export.PatientRows(records))
}

// ExportSummary downloads the per-drug summary
func (h *HTTPHandlerImpl) ExportSummary(w http.ResponseWriter, r *http.Request) {
	enc, ok := h.exportEncoding(w, r, h.encodings.Summary)
	if !ok {
		return
	}
	_, records, ok := h.filteredPatients(w, r)
	if !ok {
		return
	}
	rows := dashboard.SummarizeByDrug(records)
	h.writeCSV(w, export.SummaryFile, enc, export.SummaryHeader, export.SummaryRows(rows))
}

// ExportDistributions downloads the filtered distributions
func (h *HTTPHandlerImpl) ExportDistributions(w http.ResponseWriter, r *http.Request) {
	enc, ok := h.exportEncoding(w, r, h.encodings.Distributions)
	if !ok {
		return
	}
	records, ok := h.filteredDistributions(w, r)
	if !ok {
		return
	}
	h.writeCSV(w, export.DistributionsFile, enc, export.DistributionHeader, export.DistributionRows(records))
}

// ServeFilters returns the filter choices of both tables
func (h *HTTPHandlerImpl) ServeFilters(w http.ResponseWriter, r *http.Request) {
	resp := FiltersResponse{Errors: map[string]string{}}

	if patients, err := h.dataStore.Patients(); err != nil {
		resp.Errors[data.KindPatients] = err.Error()
	} else {
		opts := dashboard.FilterOptions(patients)
		resp.Patients = &opts
	}

	if distributions, err := h.dataStore.Distributions(); err != nil {
		resp.Errors[data.KindDistributions] = err.Error()
	} else {
		opts := dashboard.DistributionFilterOptions(distributions)
		resp.Distributions = &opts
	}

	code := http.StatusOK
	if resp.Patients == nil && resp.Distributions == nil {
		code = http.StatusServiceUnavailable
	}
	RespondWithJSON(w, code, resp)
}

// Refresh drops the memoized tables and reloads both
func (h *HTTPHandlerImpl) Refresh(w http.ResponseWriter, r *http.Request) {
	reports, err := h.dataStore.Refresh()
	if errors.Is(err, data.ErrRefreshInProgress) {
		RespondWithError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		logging.Warn("Refresh completed with errors", "error", err)
	}

	if reports == nil {
		reports = []*entities.LoadReport{}
	}
	RespondWithJSON(w, http.StatusOK, RefreshResponse{
		Reports: reports,
		Errors:  h.dataStore.LoadErrors(),
	})
}

// ServeLoads lists the most recent load runs
func (h *HTTPHandlerImpl) ServeLoads(w http.ResponseWriter, r *http.Request) {
	limit, err := h.validator.ValidateLimit(r.URL.Query().Get("limit"), defaultLoadsLimit, maxLoadsLimit)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.recorder == nil {
		RespondWithJSON(w, http.StatusOK, []interfaces.LoadRun{})
		return
	}

	runs, err := h.recorder.Recent(r.Context(), limit)
	if err != nil {
		logging.Error("Failed to read load history", "error", err)
		RespondWithError(w, http.StatusInternalServerError, "failed to read load history")
		return
	}
	RespondWithJSON(w, http.StatusOK, runs)
}

// HealthCheck returns server health information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, healthData, httpStatus := h.healthChecker.HealthCheck()

	response := HealthResponse{
		Status:  status,
		Data:    healthData,
		Reports: h.dataStore.Reports(),
	}
	if response.Reports == nil {
		response.Reports = []*entities.LoadReport{}
	}
	if start := h.dataStore.GetServerStartTime(); !start.IsZero() {
		response.Uptime = formatUptimeHuman(time.Since(start))
	}

	RespondWithJSON(w, httpStatus, response)
}
