package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/giygas/dispensacao-api/dispensingparser/entities"
	"github.com/giygas/dispensacao-api/interfaces"
)

// ============================================================================
// TEST DATA FACTORY
// ============================================================================

// TestDataFactory creates consistent test data across all tests
type TestDataFactory struct{}

func NewTestDataFactory() *TestDataFactory {
	return &TestDataFactory{}
}

func ptr(v float64) *float64 { return &v }

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// CreatePatient creates a single patient record
func (f *TestDataFactory) CreatePatient(name, drug, facility, status string, quantity, frequency float64) entities.PatientRecord {
	return entities.PatientRecord{
		NumeroProcesso:       fmt.Sprintf("%s/2024", name),
		DataEntrada:          "10/01/2024",
		Interessado:          name,
		Medicamento:          drug,
		UnidadeDispensadora:  facility,
		Status:               status,
		TipoAcao:             "ADMINISTRATIVA",
		QuantidadeAutorizada: ptr(quantity),
		Frequencia:           ptr(frequency),
		ConsumoMensal:        ptr(quantity / frequency * 30),
	}
}

// CreatePatients returns a small mixed patient table
func (f *TestDataFactory) CreatePatients() []entities.PatientRecord {
	return []entities.PatientRecord{
		f.CreatePatient("Ana", "DIPIRONA SODICA", "UBS Centro", "ATIVO", 30, 1),
		f.CreatePatient("Bia", "DIPIRONA SODICA", "UBS Norte", "ATIVO", 10, 2),
		f.CreatePatient("Caio", "LOSARTANA", "UBS Centro", "INATIVO", 60, 1),
		f.CreatePatient("Ana", "LOSARTANA", "UBS Centro", "ATIVO", 30, 1),
	}
}

// CreateDistributions returns a small distribution table
func (f *TestDataFactory) CreateDistributions() []entities.DistributionRecord {
	return []entities.DistributionRecord{
		{NumeroDistribuicao: "1", UnidadeDestino: "UBS Centro", UnidadeOrigem: "CAF", Medicamento: "DIPIRONA SODICA",
			Quantidade: ptr(100), ValorTotal: ptr(1234.56), DataDistribuicao: datePtr(2024, time.January, 15)},
		{NumeroDistribuicao: "2", UnidadeDestino: "UBS Norte", UnidadeOrigem: "CAF", Medicamento: "LOSARTANA",
			Quantidade: ptr(50), ValorTotal: ptr(200), DataDistribuicao: datePtr(2024, time.February, 1)},
		{NumeroDistribuicao: "3", UnidadeDestino: "UBS Centro", UnidadeOrigem: "CAF", Medicamento: "LOSARTANA",
			Quantidade: nil, ValorTotal: nil, DataDistribuicao: nil},
	}
}

// ============================================================================
// MOCKS
// ============================================================================

// MockDataStore implements interfaces.DataStore for handler tests
type MockDataStore struct {
	patients         []entities.PatientRecord
	distributions    []entities.DistributionRecord
	patientsErr      error
	distributionsErr error
	reports          []*entities.LoadReport
	refreshErr       error
	refreshCount     int
	startTime        time.Time
}

func (m *MockDataStore) Patients() ([]entities.PatientRecord, error) {
	if m.patientsErr != nil {
		return nil, m.patientsErr
	}
	return m.patients, nil
}

func (m *MockDataStore) Distributions() ([]entities.DistributionRecord, error) {
	if m.distributionsErr != nil {
		return nil, m.distributionsErr
	}
	return m.distributions, nil
}

func (m *MockDataStore) Reports() []*entities.LoadReport { return m.reports }

func (m *MockDataStore) LoadErrors() map[string]string {
	errs := map[string]string{}
	if m.patientsErr != nil {
		errs["patients"] = m.patientsErr.Error()
	}
	if m.distributionsErr != nil {
		errs["distributions"] = m.distributionsErr.Error()
	}
	return errs
}

func (m *MockDataStore) GetLastUpdated() time.Time { return time.Now() }

func (m *MockDataStore) IsUpdating() bool { return false }

func (m *MockDataStore) GetServerStartTime() time.Time { return m.startTime }

func (m *MockDataStore) Invalidate() {}

func (m *MockDataStore) Refresh() ([]*entities.LoadReport, error) {
	m.refreshCount++
	return m.reports, m.refreshErr
}

// MockDataStoreBuilder provides fluent interface for building mock data stores
type MockDataStoreBuilder struct {
	mock *MockDataStore
}

func NewMockDataStoreBuilder() *MockDataStoreBuilder {
	return &MockDataStoreBuilder{
		mock: &MockDataStore{
			patients:      []entities.PatientRecord{},
			distributions: []entities.DistributionRecord{},
		},
	}
}

func (b *MockDataStoreBuilder) WithPatients(records []entities.PatientRecord) *MockDataStoreBuilder {
	b.mock.patients = records
	return b
}

func (b *MockDataStoreBuilder) WithDistributions(records []entities.DistributionRecord) *MockDataStoreBuilder {
	b.mock.distributions = records
	return b
}

func (b *MockDataStoreBuilder) WithPatientsError(err error) *MockDataStoreBuilder {
	b.mock.patientsErr = err
	return b
}

func (b *MockDataStoreBuilder) WithDistributionsError(err error) *MockDataStoreBuilder {
	b.mock.distributionsErr = err
	return b
}

func (b *MockDataStoreBuilder) WithReports(reports []*entities.LoadReport) *MockDataStoreBuilder {
	b.mock.reports = reports
	return b
}

func (b *MockDataStoreBuilder) WithRefreshError(err error) *MockDataStoreBuilder {
	b.mock.refreshErr = err
	return b
}

func (b *MockDataStoreBuilder) WithStartTime(t time.Time) *MockDataStoreBuilder {
	b.mock.startTime = t
	return b
}

func (b *MockDataStoreBuilder) Build() *MockDataStore {
	return b.mock
}

// MockHealthChecker implements interfaces.HealthChecker
type MockHealthChecker struct {
	status     string
	data       map[string]any
	httpStatus int
}

func (m *MockHealthChecker) HealthCheck() (string, map[string]any, int) {
	return m.status, m.data, m.httpStatus
}

func (m *MockHealthChecker) CalculateNextUpdate() time.Time {
	return time.Now().Add(time.Hour)
}

// MockHealthCheckerBuilder provides fluent interface for building health checkers
type MockHealthCheckerBuilder struct {
	mock *MockHealthChecker
}

func NewMockHealthCheckerBuilder() *MockHealthCheckerBuilder {
	return &MockHealthCheckerBuilder{
		mock: &MockHealthChecker{
			status:     "healthy",
			data:       map[string]any{"patients": 4},
			httpStatus: http.StatusOK,
		},
	}
}

func (b *MockHealthCheckerBuilder) WithStatus(status string, httpStatus int) *MockHealthCheckerBuilder {
	b.mock.status = status
	b.mock.httpStatus = httpStatus
	return b
}

func (b *MockHealthCheckerBuilder) Build() *MockHealthChecker {
	return b.mock
}

// MockLoadRecorder implements interfaces.LoadRecorder
type MockLoadRecorder struct {
	runs      []interfaces.LoadRun
	err       error
	lastLimit int
}

func (m *MockLoadRecorder) Record(context.Context, string, *entities.LoadReport, error) error {
	return nil
}

func (m *MockLoadRecorder) Recent(_ context.Context, limit int) ([]interfaces.LoadRun, error) {
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	if limit < len(m.runs) {
		return m.runs[:limit], nil
	}
	return m.runs, nil
}

func (m *MockLoadRecorder) Close() error { return nil }

// ============================================================================
// HTTP TEST UTILITIES
// ============================================================================

// HTTPTestHelper provides utilities for HTTP handler testing
type HTTPTestHelper struct {
	t *testing.T
}

func NewHTTPTestHelper(t *testing.T) *HTTPTestHelper {
	return &HTTPTestHelper{t: t}
}

// ExecuteRequest executes an HTTP handler
func (h *HTTPTestHelper) ExecuteRequest(handler http.HandlerFunc, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

// AssertJSONResponse asserts that response contains valid JSON with expected status
func (h *HTTPTestHelper) AssertJSONResponse(resp *httptest.ResponseRecorder, expectedStatus int, target any) {
	h.t.Helper()
	if resp.Code != expectedStatus {
		h.t.Errorf("Expected status %d, got %d: %s", expectedStatus, resp.Code, resp.Body.String())
	}

	if err := json.Unmarshal(resp.Body.Bytes(), target); err != nil {
		h.t.Errorf("Response should be valid JSON, got error: %v", err)
	}
}

// AssertErrorResponse asserts that response contains an error with expected status
func (h *HTTPTestHelper) AssertErrorResponse(resp *httptest.ResponseRecorder, expectedStatus int) map[string]any {
	h.t.Helper()
	if resp.Code != expectedStatus {
		h.t.Errorf("Expected status %d, got %d: %s", expectedStatus, resp.Code, resp.Body.String())
	}

	var errorResp map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &errorResp); err != nil {
		h.t.Errorf("Error response should be valid JSON, got error: %v", err)
		return nil
	}

	for _, field := range []string{"error", "message", "code"} {
		if _, ok := errorResp[field]; !ok {
			h.t.Errorf("Error response should have %s field", field)
		}
	}
	return errorResp
}
