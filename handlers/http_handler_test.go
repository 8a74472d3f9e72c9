package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/giygas/dispensacao-api/dashboard"
	"github.com/giygas/dispensacao-api/data"
	"github.com/giygas/dispensacao-api/dispensingparser"
	"github.com/giygas/dispensacao-api/dispensingparser/entities"
	"github.com/giygas/dispensacao-api/interfaces"
	"github.com/giygas/dispensacao-api/validation"
)

var defaultEncodings = ExportEncodings{
	Patients:      "utf-8-sig",
	Summary:       "utf-8-sig",
	Distributions: "latin1",
}

func newTestHandler(store *MockDataStore, recorder interfaces.LoadRecorder) *HTTPHandlerImpl {
	return NewHTTPHandler(store, validation.NewDataValidator(), recorder,
		NewMockHealthCheckerBuilder().Build(), defaultEncodings).(*HTTPHandlerImpl)
}

func populatedStore() *MockDataStore {
	factory := NewTestDataFactory()
	return NewMockDataStoreBuilder().
		WithPatients(factory.CreatePatients()).
		WithDistributions(factory.CreateDistributions()).
		Build()
}

func configError(kind string) error {
	return &dispensingparser.ConfigError{Kind: kind, Path: "/data/" + kind, Err: errors.New("no .csv or .txt files found")}
}

func metricValue(metrics []dashboard.Metric, label string) float64 {
	for _, m := range metrics {
		if m.Label == label {
			return m.Value
		}
	}
	return -1
}

func TestServePatients(t *testing.T) {
	helper := NewHTTPTestHelper(t)
	handler := newTestHandler(populatedStore(), nil)

	tests := []struct {
		name          string
		target        string
		expectedTotal int
		expectedUnits string
	}{
		{"no filters", "/patients", 4, "Todas as Unidades"},
		{"one facility", "/patients?facility=UBS+Centro", 3, "UBS Centro"},
		{"two facilities", "/patients?facility=UBS+Centro&facility=UBS+Norte", 4, "UBS Centro, UBS Norte"},
		{"facility and status", "/patients?facility=UBS+Centro&status=ATIVO", 2, "UBS Centro"},
		{"drug", "/patients?drug=LOSARTANA", 2, "Todas as Unidades"},
		{"no match", "/patients?action=JUDICIAL", 0, "Todas as Unidades"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := helper.ExecuteRequest(handler.ServePatients, "GET", tt.target)

			var resp PatientsResponse
			helper.AssertJSONResponse(rr, http.StatusOK, &resp)

			if resp.Total != tt.expectedTotal || len(resp.Records) != tt.expectedTotal {
				t.Errorf("Expected %d records, got total=%d len=%d", tt.expectedTotal, resp.Total, len(resp.Records))
			}
			if resp.Units != tt.expectedUnits {
				t.Errorf("Expected units %q, got %q", tt.expectedUnits, resp.Units)
			}
		})
	}
}

func TestServePatients_Metrics(t *testing.T) {
	helper := NewHTTPTestHelper(t)
	handler := newTestHandler(populatedStore(), nil)

	rr := helper.ExecuteRequest(handler.ServePatients, "GET", "/patients?facility=UBS+Centro")

	var resp PatientsResponse
	helper.AssertJSONResponse(rr, http.StatusOK, &resp)

	if v := metricValue(resp.Metrics, "Total Pacientes"); v != 2 {
		t.Errorf("Expected 2 distinct patients, got %v", v)
	}
	if v := metricValue(resp.Metrics, "Total Medicamentos"); v != 2 {
		t.Errorf("Expected 2 distinct drugs, got %v", v)
	}
}

func TestServeSummary(t *testing.T) {
	helper := NewHTTPTestHelper(t)
	handler := newTestHandler(populatedStore(), nil)

	rr := helper.ExecuteRequest(handler.ServeSummary, "GET", "/summary")

	var resp SummaryResponse
	helper.AssertJSONResponse(rr, http.StatusOK, &resp)

	expected := []entities.DrugSummary{
		{Medicamento: "DIPIRONA SODICA", Pacientes: 2, Quantidade: 40, ConsumoMensal: 1050},
		{Medicamento: "LOSARTANA", Pacientes: 1, Quantidade: 30, ConsumoMensal: 900},
	}
	if len(resp.Rows) != len(expected) {
		t.Fatalf("Expected %d rows, got %d", len(expected), len(resp.Rows))
	}
	for i, row := range resp.Rows {
		if row != expected[i] {
			t.Errorf("Row %d: expected %+v, got %+v", i, expected[i], row)
		}
	}

	if metricValue(resp.Metrics, "Total Pacientes") != 3 ||
		metricValue(resp.Metrics, "Total Quantidade") != 70 ||
		metricValue(resp.Metrics, "Total Consumo 30d") != 1950 {
		t.Errorf("Unexpected summary metrics %+v", resp.Metrics)
	}
}

func TestServeDistributions(t *testing.T) {
	helper := NewHTTPTestHelper(t)
	handler := newTestHandler(populatedStore(), nil)

	tests := []struct {
		name          string
		target        string
		expectedTotal int
	}{
		{"no filters", "/distributions", 3},
		{"january", "/distributions?period=2024-01-01&period=2024-01-31", 1},
		{"single date does not restrict", "/distributions?period=2024-01-01", 3},
		{"destination", "/distributions?destination=UBS+Centro", 2},
		{"destination and drug", "/distributions?destination=UBS+Centro&drug=LOSARTANA", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := helper.ExecuteRequest(handler.ServeDistributions, "GET", tt.target)

			var resp DistributionsResponse
			helper.AssertJSONResponse(rr, http.StatusOK, &resp)

			if resp.Total != tt.expectedTotal {
				t.Errorf("Expected %d records, got %d", tt.expectedTotal, resp.Total)
			}
		})
	}
}

func TestServeDistributions_Rendering(t *testing.T) {
	helper := NewHTTPTestHelper(t)
	handler := newTestHandler(populatedStore(), nil)

	rr := helper.ExecuteRequest(handler.ServeDistributions, "GET", "/distributions?period=2024-01-01&period=2024-01-31")

	var resp DistributionsResponse
	helper.AssertJSONResponse(rr, http.StatusOK, &resp)

	if len(resp.Records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(resp.Records))
	}
	if resp.Records[0].DataDistribuicao != "15/01/2024" {
		t.Errorf("Expected dd/mm/yyyy date, got %q", resp.Records[0].DataDistribuicao)
	}
	if strings.Contains(rr.Body.String(), "CAF") {
		t.Error("Origin facility should never be exposed")
	}

	var value string
	for _, m := range resp.Metrics {
		if m.Label == "Valor Total Distribuído (R$)" {
			value = m.Formatted
		}
	}
	if value != "1.234,56" {
		t.Errorf("Expected formatted value 1.234,56, got %q", value)
	}
}

func TestViews_InvalidInput(t *testing.T) {
	helper := NewHTTPTestHelper(t)
	handler := newTestHandler(populatedStore(), nil)

	tests := []struct {
		name    string
		handler http.HandlerFunc
		target  string
	}{
		{"script in facility", handler.ServePatients, "/patients?facility=%3Cscript%3E"},
		{"sql in drug", handler.ServeSummary, "/summary?drug=x%27+or+1%3D1"},
		{"bad period date", handler.ServeDistributions, "/distributions?period=2024-13-01&period=2024-12-31"},
		{"reversed period", handler.ServeDistributions, "/distributions?period=2024-02-01&period=2024-01-01"},
		{"three period dates", handler.ServeDistributions, "/distributions?period=2024-01-01&period=2024-01-02&period=2024-01-03"},
		{"bad export encoding", handler.ExportPatients, "/patients/export?encoding=utf-16"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := helper.ExecuteRequest(tt.handler, "GET", tt.target)
			helper.AssertErrorResponse(rr, http.StatusBadRequest)
		})
	}
}

func TestViews_ConfigurationErrorHaltsOnlyThatView(t *testing.T) {
	helper := NewHTTPTestHelper(t)
	store := NewMockDataStoreBuilder().
		WithPatientsError(configError("patients")).
		WithDistributions(NewTestDataFactory().CreateDistributions()).
		Build()
	handler := newTestHandler(store, nil)

	for _, h := range []http.HandlerFunc{handler.ServePatients, handler.ServeSummary, handler.ExportPatients, handler.ExportSummary} {
		rr := helper.ExecuteRequest(h, "GET", "/patients")
		resp := helper.AssertErrorResponse(rr, http.StatusServiceUnavailable)
		if msg, _ := resp["message"].(string); !strings.Contains(msg, "no .csv or .txt files found") {
			t.Errorf("Expected the configuration error in the message, got %q", msg)
		}
	}

	rr := helper.ExecuteRequest(handler.ServeDistributions, "GET", "/distributions")
	if rr.Code != http.StatusOK {
		t.Errorf("Distribution view should keep working, got %d", rr.Code)
	}
}

func TestViews_UnexpectedLoadError(t *testing.T) {
	helper := NewHTTPTestHelper(t)
	store := NewMockDataStoreBuilder().WithDistributionsError(errors.New("boom")).Build()
	handler := newTestHandler(store, nil)

	rr := helper.ExecuteRequest(handler.ServeDistributions, "GET", "/distributions")
	helper.AssertErrorResponse(rr, http.StatusInternalServerError)
}

func TestExportSummary(t *testing.T) {
	helper := NewHTTPTestHelper(t)
	handler := newTestHandler(populatedStore(), nil)

	rr := helper.ExecuteRequest(handler.ExportSummary, "GET", "/summary/export")

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Errorf("Unexpected Content-Type %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "resumo_medicamentos.csv") {
		t.Errorf("Unexpected Content-Disposition %q", cd)
	}

	body := rr.Body.Bytes()
	if !bytes.HasPrefix(body, []byte{0xEF, 0xBB, 0xBF}) {
		t.Error("Expected a UTF-8 BOM by default")
	}
	lines := strings.Split(strings.TrimSpace(string(body[3:])), "\n")
	if lines[0] != "Medicamento;Pacientes;Quantidade;Consumo_Mensal" {
		t.Errorf("Unexpected header %q", lines[0])
	}
	if lines[1] != "DIPIRONA SODICA;2;40;1050" {
		t.Errorf("Unexpected first row %q", lines[1])
	}
}

func TestExportPatients_EncodingOverride(t *testing.T) {
	helper := NewHTTPTestHelper(t)
	handler := newTestHandler(populatedStore(), nil)

	rr := helper.ExecuteRequest(handler.ExportPatients, "GET", "/patients/export?encoding=utf-8&facility=UBS+Norte")

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if strings.HasPrefix(body, "\xEF\xBB\xBF") {
		t.Error("utf-8 export should not carry a BOM")
	}
	if !strings.HasPrefix(body, "Número do processo;") {
		t.Errorf("Unexpected header line %q", strings.SplitN(body, "\n", 2)[0])
	}
	if lines := strings.Split(strings.TrimSpace(body), "\n"); len(lines) != 2 {
		t.Errorf("Expected header and 1 row, got %d lines", len(lines))
	}
}

func TestExportDistributions_Latin1Default(t *testing.T) {
	helper := NewHTTPTestHelper(t)
	handler := newTestHandler(populatedStore(), nil)

	rr := helper.ExecuteRequest(handler.ExportDistributions, "GET", "/distributions/export")

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/csv; charset=iso-8859-1" {
		t.Errorf("Unexpected Content-Type %q", ct)
	}

	body := rr.Body.Bytes()
	if !bytes.HasPrefix(body, []byte("N\xba Distribui\xe7\xe3o;")) {
		t.Errorf("Expected a latin1 header, got %q", body)
	}
	if !bytes.Contains(body, []byte("1;UBS Centro;DIPIRONA SODICA;100;1234.56;15/01/2024")) {
		t.Errorf("Expected the first distribution row, got %q", body)
	}
	if bytes.Contains(body, []byte("CAF")) {
		t.Error("Origin facility should never be exported")
	}
}

func TestServeFilters(t *testing.T) {
	helper := NewHTTPTestHelper(t)

	t.Run("both tables", func(t *testing.T) {
		handler := newTestHandler(populatedStore(), nil)
		rr := helper.ExecuteRequest(handler.ServeFilters, "GET", "/filters")

		var resp FiltersResponse
		helper.AssertJSONResponse(rr, http.StatusOK, &resp)

		if resp.Patients == nil || resp.Distributions == nil {
			t.Fatal("Expected options for both tables")
		}
		if got := strings.Join(resp.Patients.Facilities, ","); got != "UBS Centro,UBS Norte" {
			t.Errorf("Unexpected facilities %q", got)
		}
		if got := strings.Join(resp.Distributions.Drugs, ","); got != "DIPIRONA SODICA,LOSARTANA" {
			t.Errorf("Unexpected drugs %q", got)
		}
		if len(resp.Errors) != 0 {
			t.Errorf("Expected no errors, got %v", resp.Errors)
		}
	})

	t.Run("one table failing", func(t *testing.T) {
		store := NewMockDataStoreBuilder().
			WithPatientsError(configError("patients")).
			WithDistributions(NewTestDataFactory().CreateDistributions()).
			Build()
		handler := newTestHandler(store, nil)
		rr := helper.ExecuteRequest(handler.ServeFilters, "GET", "/filters")

		var resp FiltersResponse
		helper.AssertJSONResponse(rr, http.StatusOK, &resp)

		if resp.Patients != nil {
			t.Error("Expected no patient options")
		}
		if resp.Errors[data.KindPatients] == "" {
			t.Error("Expected a patients error")
		}
	})

	t.Run("both failing", func(t *testing.T) {
		store := NewMockDataStoreBuilder().
			WithPatientsError(configError("patients")).
			WithDistributionsError(configError("distributions")).
			Build()
		handler := newTestHandler(store, nil)
		rr := helper.ExecuteRequest(handler.ServeFilters, "GET", "/filters")

		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected 503, got %d", rr.Code)
		}
	})
}

func TestRefresh(t *testing.T) {
	helper := NewHTTPTestHelper(t)
	reports := []*entities.LoadReport{{Kind: "patients", RowsLoaded: 4}, {Kind: "distributions", RowsLoaded: 3}}

	t.Run("success", func(t *testing.T) {
		store := NewMockDataStoreBuilder().WithReports(reports).Build()
		handler := newTestHandler(store, nil)

		rr := helper.ExecuteRequest(handler.Refresh, "POST", "/refresh")

		var resp RefreshResponse
		helper.AssertJSONResponse(rr, http.StatusOK, &resp)
		if len(resp.Reports) != 2 {
			t.Errorf("Expected 2 reports, got %d", len(resp.Reports))
		}
		if store.refreshCount != 1 {
			t.Errorf("Expected 1 refresh, got %d", store.refreshCount)
		}
	})

	t.Run("already running", func(t *testing.T) {
		store := NewMockDataStoreBuilder().WithRefreshError(data.ErrRefreshInProgress).Build()
		handler := newTestHandler(store, nil)

		rr := helper.ExecuteRequest(handler.Refresh, "POST", "/refresh")
		helper.AssertErrorResponse(rr, http.StatusConflict)
	})

	t.Run("load failure", func(t *testing.T) {
		err := configError("distributions")
		store := NewMockDataStoreBuilder().
			WithReports(reports[:1]).
			WithDistributionsError(err).
			WithRefreshError(err).
			Build()
		handler := newTestHandler(store, nil)

		rr := helper.ExecuteRequest(handler.Refresh, "POST", "/refresh")

		var resp RefreshResponse
		helper.AssertJSONResponse(rr, http.StatusOK, &resp)
		if resp.Errors[data.KindDistributions] == "" {
			t.Errorf("Expected distributions error, got %v", resp.Errors)
		}
	})
}

func TestServeLoads(t *testing.T) {
	helper := NewHTTPTestHelper(t)
	runs := []interfaces.LoadRun{
		{ID: "3", Kind: "distributions"},
		{ID: "2", Kind: "patients"},
		{ID: "1", Kind: "patients", Error: "no source files"},
	}

	tests := []struct {
		name          string
		target        string
		expectedCode  int
		expectedLimit int
	}{
		{"default limit", "/loads", http.StatusOK, defaultLoadsLimit},
		{"explicit limit", "/loads?limit=2", http.StatusOK, 2},
		{"capped limit", "/loads?limit=100000", http.StatusOK, maxLoadsLimit},
		{"invalid limit", "/loads?limit=abc", http.StatusBadRequest, 0},
		{"negative limit", "/loads?limit=-1", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := &MockLoadRecorder{runs: runs}
			handler := newTestHandler(populatedStore(), recorder)

			rr := helper.ExecuteRequest(handler.ServeLoads, "GET", tt.target)

			if rr.Code != tt.expectedCode {
				t.Errorf("Expected %d, got %d", tt.expectedCode, rr.Code)
			}
			if recorder.lastLimit != tt.expectedLimit {
				t.Errorf("Expected limit %d, got %d", tt.expectedLimit, recorder.lastLimit)
			}
		})
	}
}

func TestServeLoads_NoHistory(t *testing.T) {
	helper := NewHTTPTestHelper(t)
	handler := newTestHandler(populatedStore(), nil)

	rr := helper.ExecuteRequest(handler.ServeLoads, "GET", "/loads")

	var runs []interfaces.LoadRun
	helper.AssertJSONResponse(rr, http.StatusOK, &runs)
	if len(runs) != 0 {
		t.Errorf("Expected no runs, got %d", len(runs))
	}
}

func TestServeLoads_RecorderError(t *testing.T) {
	helper := NewHTTPTestHelper(t)
	handler := newTestHandler(populatedStore(), &MockLoadRecorder{err: errors.New("database is locked")})

	rr := helper.ExecuteRequest(handler.ServeLoads, "GET", "/loads")
	helper.AssertErrorResponse(rr, http.StatusInternalServerError)
}

func TestHealthCheck(t *testing.T) {
	helper := NewHTTPTestHelper(t)

	tests := []struct {
		status string
		code   int
	}{
		{"healthy", http.StatusOK},
		{"degraded", http.StatusServiceUnavailable},
		{"unhealthy", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			store := NewMockDataStoreBuilder().
				WithStartTime(time.Now().Add(-90 * time.Minute)).
				WithReports([]*entities.LoadReport{{Kind: "patients"}}).
				Build()
			checker := NewMockHealthCheckerBuilder().WithStatus(tt.status, tt.code).Build()
			handler := NewHTTPHandler(store, validation.NewDataValidator(), nil, checker, defaultEncodings)

			rr := helper.ExecuteRequest(handler.HealthCheck, "GET", "/health")

			var resp HealthResponse
			helper.AssertJSONResponse(rr, tt.code, &resp)
			if resp.Status != tt.status {
				t.Errorf("Expected status %s, got %s", tt.status, resp.Status)
			}
			if resp.Uptime != "1h 30m 0s" {
				t.Errorf("Expected uptime '1h 30m 0s', got %q", resp.Uptime)
			}
			if len(resp.Reports) != 1 {
				t.Errorf("Expected 1 report, got %d", len(resp.Reports))
			}
		})
	}
}
