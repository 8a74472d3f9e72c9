package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

// setBaseEnv sets a valid minimal environment; t.Setenv restores it after the test
func setBaseEnv(t *testing.T) {
	t.Helper()
	for _, key := range GetEnvVars() {
		t.Setenv(key, "")
	}
	t.Setenv("PORT", "8002")
	t.Setenv("ADDRESS", "127.0.0.1")
	t.Setenv("ENV", "dev")
	t.Setenv("LOG_LEVEL", "info")
}

func TestLoadValidConfig(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PATIENTS_DIR", "/srv/dados/pacientes")
	t.Setenv("SOURCE_ENCODINGS", "utf-8, cp1252")
	t.Setenv("REFRESH_AT", "06:00;18:00")
	t.Setenv("STALE_AFTER_HOURS", "13")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8002" {
		t.Errorf("Expected port 8002, got %s", cfg.Port)
	}
	if cfg.Env != EnvDevelopment {
		t.Errorf("Expected env dev, got %s", cfg.Env)
	}
	if cfg.PatientsDir != "/srv/dados/pacientes" {
		t.Errorf("Expected patients dir from env, got %s", cfg.PatientsDir)
	}
	if cfg.RefreshAt != "06:00;18:00" {
		t.Errorf("Expected two refresh times, got %s", cfg.RefreshAt)
	}
	if cfg.StaleAfter() != 13*time.Hour {
		t.Errorf("Expected 13h staleness, got %v", cfg.StaleAfter())
	}
}

func TestLoadWithDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	checks := []struct {
		name     string
		got      string
		expected string
	}{
		{"patients dir", cfg.PatientsDir, "Cadastro_de_pacientes"},
		{"distributions dir", cfg.DistributionsDir, "Distribuicao"},
		{"source encodings", cfg.SourceEncodings, "utf-8,windows-1252,iso-8859-1"},
		{"patient export", cfg.ExportEncodingPatients, "utf-8-sig"},
		{"summary export", cfg.ExportEncodingSummary, "utf-8-sig"},
		{"distribution export", cfg.ExportEncodingDistributions, "latin1"},
	}
	for _, c := range checks {
		if c.got != c.expected {
			t.Errorf("Expected default %s %q, got %q", c.name, c.expected, c.got)
		}
	}
	if cfg.StaleAfterHours != 25 {
		t.Errorf("Expected default staleness 25h, got %d", cfg.StaleAfterHours)
	}
}

func TestOptionalSettings(t *testing.T) {
	t.Run("unset uses the default", func(t *testing.T) {
		setBaseEnv(t)
		// setBaseEnv sets every variable to "", so clear the optional ones
		for _, key := range []string{"LOOKUP_FILE", "REFRESH_AT", "HISTORY_DB"} {
			unsetForTest(t, key)
		}

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.LookupFile != "Tabela_Dicionario.xlsx" || cfg.RefreshAt != "06:00" || cfg.HistoryDB != "data/history.db" {
			t.Errorf("Unexpected defaults: lookup=%q refresh=%q history=%q", cfg.LookupFile, cfg.RefreshAt, cfg.HistoryDB)
		}
	})

	t.Run("empty disables", func(t *testing.T) {
		setBaseEnv(t)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.LookupFile != "" || cfg.RefreshAt != "" || cfg.HistoryDB != "" {
			t.Errorf("Expected disabled features: lookup=%q refresh=%q history=%q", cfg.LookupFile, cfg.RefreshAt, cfg.HistoryDB)
		}
	})
}

func TestInvalidSettings(t *testing.T) {
	testCases := []struct {
		key      string
		value    string
		expected string
	}{
		{"PORT", "abc", "PORT must be a valid number"},
		{"PORT", "0", "PORT must be between 1 and 65535"},
		{"PORT", "65536", "PORT must be between 1 and 65535"},
		{"PORT", "80", "PORT 80 is privileged"},
		{"ADDRESS", "invalid", "ADDRESS must be a valid IP address"},
		{"ADDRESS", "8.8.8.8", "public IP"},
		{"ENV", "invalid", "ENV must be one of"},
		{"LOG_LEVEL", "invalid", "LOG_LEVEL must be one of"},
		{"SOURCE_ENCODINGS", "utf-16", "unsupported encoding"},
		{"SOURCE_ENCODINGS", " , ", "at least one encoding"},
		{"EXPORT_ENCODING_DISTRIBUTIONS", "ascii", "unsupported export encoding"},
		{"REFRESH_AT", "6h", "must use HH:MM"},
		{"REFRESH_AT", "06:00;25:00", "must use HH:MM"},
		{"STALE_AFTER_HOURS", "-1", "STALE_AFTER_HOURS"},
		{"MAX_LOG_FILE_SIZE", "1024", "too small"},
		{"LOG_RETENTION_WEEKS", "60", "too large"},
	}

	for _, tc := range testCases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			if err == nil {
				t.Fatalf("Expected error for %s=%s, got nil", tc.key, tc.value)
			}
			if !strings.Contains(err.Error(), tc.expected) {
				t.Errorf("Expected error containing %q, got %v", tc.expected, err)
			}
		})
	}
}

func TestPrivateAddressAccepted(t *testing.T) {
	for _, address := range []string{"localhost", "::1", "10.1.2.3", "192.168.0.10", "0.0.0.0"} {
		t.Run(address, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv("ADDRESS", address)

			if _, err := Load(); err != nil {
				t.Errorf("Expected %s to be accepted, got %v", address, err)
			}
		})
	}
}

func TestParseEnvironment(t *testing.T) {
	tests := []struct {
		input    string
		expected Environment
		hasError bool
	}{
		{"dev", EnvDevelopment, false},
		{"development", EnvDevelopment, false},
		{"staging", EnvStaging, false},
		{"prod", EnvProduction, false},
		{"production", EnvProduction, false},
		{"PROD", EnvProduction, false},
		{"test", EnvTest, false},
		{"invalid", EnvDevelopment, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			env, err := ParseEnvironment(tt.input)
			if tt.hasError {
				if err == nil {
					t.Errorf("Expected error for %s, got none", tt.input)
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error for %s: %v", tt.input, err)
				}
				if env != tt.expected {
					t.Errorf("Expected %v, got %v", tt.expected, env)
				}
			}
		})
	}
}

func TestEnvironmentString(t *testing.T) {
	tests := []struct {
		env      Environment
		expected string
	}{
		{EnvDevelopment, "dev"},
		{EnvStaging, "staging"},
		{EnvProduction, "prod"},
		{EnvTest, "test"},
	}

	for _, tt := range tests {
		if got := tt.env.String(); got != tt.expected {
			t.Errorf("Expected %s, got %s", tt.expected, got)
		}
	}
}

// unsetForTest removes key for the rest of the test; t.Setenv restores it
func unsetForTest(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset %s: %v", key, err)
	}
}
