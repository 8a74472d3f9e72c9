// Package config has the configuration file for the app
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment is the deployment stage the process runs in
type Environment string

const (
	EnvDevelopment Environment = "dev"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
)

// String returns the ENV spelling of the environment
func (e Environment) String() string {
	return string(e)
}

// ParseEnvironment accepts the short and long spellings of each environment
func ParseEnvironment(value string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "development":
		return EnvDevelopment, nil
	case "staging":
		return EnvStaging, nil
	case "prod", "production":
		return EnvProduction, nil
	case "test":
		return EnvTest, nil
	}
	return EnvDevelopment, fmt.Errorf("ENV must be one of: [dev staging prod test], got: %s", value)
}

// Config holds all application configuration
type Config struct {
	Port              string
	Address           string
	Env               Environment
	LogLevel          string
	LogDir            string
	LogRetentionWeeks int   // Number of weeks to keep log files
	MaxLogFileSize    int64 // Maximum log file size in bytes
	MaxRequestBody    int64 // Maximum request body size in bytes
	MaxHeaderSize     int64 // Maximum header size in bytes

	// Source data
	PatientsDir      string
	DistributionsDir string
	LookupFile       string // Empty disables drug-name normalization
	SourceEncodings  string // Comma separated fallback order

	// CSV downloads
	ExportEncodingPatients      string
	ExportEncodingSummary       string
	ExportEncodingDistributions string

	// Refresh
	RefreshAt       string // gocron time list, "06:00;18:00"; empty disables
	StaleAfterHours int

	HistoryDB string // Empty disables load history
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnvWithDefault("PORT", "8000"),
		Address:           getEnvWithDefault("ADDRESS", "127.0.0.1"),
		Env:               EnvDevelopment,
		LogLevel:          getEnvWithDefault("LOG_LEVEL", "info"),
		LogDir:            getEnvWithDefault("LOG_DIR", "logs"),
		LogRetentionWeeks: getIntEnvWithDefault("LOG_RETENTION_WEEKS", 4),         // 4 weeks default
		MaxLogFileSize:    getInt64EnvWithDefault("MAX_LOG_FILE_SIZE", 104857600), // 100MB default
		MaxRequestBody:    getInt64EnvWithDefault("MAX_REQUEST_BODY", 1048576),    // 1MB default
		MaxHeaderSize:     getInt64EnvWithDefault("MAX_HEADER_SIZE", 1048576),     // 1MB default

		PatientsDir:      getEnvWithDefault("PATIENTS_DIR", "Cadastro_de_pacientes"),
		DistributionsDir: getEnvWithDefault("DISTRIBUTIONS_DIR", "Distribuicao"),
		LookupFile:       getOptionalEnv("LOOKUP_FILE", "Tabela_Dicionario.xlsx"),
		SourceEncodings:  getEnvWithDefault("SOURCE_ENCODINGS", "utf-8,windows-1252,iso-8859-1"),

		ExportEncodingPatients:      getEnvWithDefault("EXPORT_ENCODING_PATIENTS", "utf-8-sig"),
		ExportEncodingSummary:       getEnvWithDefault("EXPORT_ENCODING_SUMMARY", "utf-8-sig"),
		ExportEncodingDistributions: getEnvWithDefault("EXPORT_ENCODING_DISTRIBUTIONS", "latin1"),

		RefreshAt:       getOptionalEnv("REFRESH_AT", "06:00"),
		StaleAfterHours: getIntEnvWithDefault("STALE_AFTER_HOURS", 25),

		HistoryDB: getOptionalEnv("HISTORY_DB", "data/history.db"),
	}

	env, err := ParseEnvironment(getEnvWithDefault("ENV", "dev"))
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: invalid ENV: %w", err)
	}
	cfg.Env = env

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// StaleAfter returns the staleness threshold as a duration
func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.StaleAfterHours) * time.Hour
}

// validateConfig validates all configuration values
func validateConfig(cfg *Config) error {
	// Validate PORT
	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	// Validate ADDRESS
	if err := validateAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid ADDRESS: %w", err)
	}

	// Validate ENV
	if err := validateEnv(string(cfg.Env)); err != nil {
		return fmt.Errorf("invalid ENV: %w", err)
	}

	// Validate LOG_LEVEL
	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	// Validate MAX_REQUEST_BODY
	if err := validateSizeLimit(cfg.MaxRequestBody, "MAX_REQUEST_BODY"); err != nil {
		return fmt.Errorf("invalid MAX_REQUEST_BODY: %w", err)
	}

	// Validate MAX_HEADER_SIZE
	if err := validateSizeLimit(cfg.MaxHeaderSize, "MAX_HEADER_SIZE"); err != nil {
		return fmt.Errorf("invalid MAX_HEADER_SIZE: %w", err)
	}

	// Validate LOG_RETENTION_WEEKS
	if err := validateLogRetentionWeeks(cfg.LogRetentionWeeks); err != nil {
		return fmt.Errorf("invalid LOG_RETENTION_WEEKS: %w", err)
	}

	// Validate MAX_LOG_FILE_SIZE
	if err := validateMaxLogFileSize(cfg.MaxLogFileSize); err != nil {
		return fmt.Errorf("invalid MAX_LOG_FILE_SIZE: %w", err)
	}

	if cfg.PatientsDir == "" {
		return fmt.Errorf("invalid PATIENTS_DIR: cannot be empty")
	}
	if cfg.DistributionsDir == "" {
		return fmt.Errorf("invalid DISTRIBUTIONS_DIR: cannot be empty")
	}

	if err := validateSourceEncodings(cfg.SourceEncodings); err != nil {
		return fmt.Errorf("invalid SOURCE_ENCODINGS: %w", err)
	}

	exports := map[string]string{
		"EXPORT_ENCODING_PATIENTS":      cfg.ExportEncodingPatients,
		"EXPORT_ENCODING_SUMMARY":       cfg.ExportEncodingSummary,
		"EXPORT_ENCODING_DISTRIBUTIONS": cfg.ExportEncodingDistributions,
	}
	for name, value := range exports {
		if err := validateExportEncoding(value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	if err := validateRefreshAt(cfg.RefreshAt); err != nil {
		return fmt.Errorf("invalid REFRESH_AT: %w", err)
	}

	if cfg.StaleAfterHours <= 0 {
		return fmt.Errorf("invalid STALE_AFTER_HOURS: must be positive, got: %d", cfg.StaleAfterHours)
	}

	return nil
}

// validatePort validates the PORT environment variable
func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}

	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	// Check for privileged ports
	if portNum < 1024 {
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}

	return nil
}

// validateAddress validates the ADDRESS environment variable
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}

	if address == "127.0.0.1" || address == "::1" || address == "localhost" {
		return nil
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}

	// Patient data stays on private networks
	if !ip.IsLoopback() && !ip.IsPrivate() && !ip.IsUnspecified() {
		return fmt.Errorf("ADDRESS %s is a public IP, use a loopback or private network address", address)
	}

	return nil
}

// validateEnv validates the ENV environment variable
func validateEnv(env string) error {
	if env == "" {
		return fmt.Errorf("ENV cannot be empty")
	}

	validEnvs := []string{"dev", "staging", "prod", "test"}
	env = strings.ToLower(env)

	for _, validEnv := range validEnvs {
		if env == validEnv {
			return nil
		}
	}

	return fmt.Errorf("ENV must be one of: %v, got: %s", validEnvs, env)
}

// validateLogLevel validates the LOG_LEVEL environment variable
func validateLogLevel(logLevel string) error {
	if logLevel == "" {
		return fmt.Errorf("LOG_LEVEL cannot be empty")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	logLevel = strings.ToLower(logLevel)

	for _, level := range validLevels {
		if logLevel == level {
			return nil
		}
	}

	return fmt.Errorf("LOG_LEVEL must be one of: %v, got: %s", validLevels, logLevel)
}

// validateSizeLimit validates size limit configuration values
func validateSizeLimit(size int64, configName string) error {
	if size <= 0 {
		return fmt.Errorf("%s must be positive, got: %d", configName, size)
	}

	if size > 100*1024*1024 { // 100MB
		return fmt.Errorf("%s is too large (max 100MB), got: %d bytes", configName, size)
	}

	return nil
}

// validateLogRetentionWeeks validates the LOG_RETENTION_WEEKS environment variable
func validateLogRetentionWeeks(weeks int) error {
	if weeks <= 0 {
		return fmt.Errorf("LOG_RETENTION_WEEKS must be positive, got: %d", weeks)
	}

	if weeks > 52 { // 1 year maximum
		return fmt.Errorf("LOG_RETENTION_WEEKS is too large (max 52 weeks), got: %d", weeks)
	}

	return nil
}

// validateMaxLogFileSize validates the MAX_LOG_FILE_SIZE environment variable
func validateMaxLogFileSize(size int64) error {
	if size <= 0 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE must be positive, got: %d", size)
	}

	// Minimum 1MB, maximum 1GB
	if size < 1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too small (min 1MB), got: %d bytes", size)
	}

	if size > 1024*1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too large (max 1GB), got: %d bytes", size)
	}

	return nil
}

// validateSourceEncodings checks a comma separated decoder list
func validateSourceEncodings(list string) error {
	count := 0
	for _, name := range strings.Split(list, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		switch name {
		case "utf-8", "utf8", "utf-8-sig", "utf_8",
			"windows-1252", "cp1252", "win1252",
			"iso-8859-1", "latin1", "latin-1", "iso8859-1":
			count++
		default:
			return fmt.Errorf("unsupported encoding %q", name)
		}
	}
	if count == 0 {
		return fmt.Errorf("at least one encoding is required")
	}
	return nil
}

// validateExportEncoding accepts the encodings the CSV writer supports
func validateExportEncoding(name string) error {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "utf-8-sig", "utf-8", "utf8", "latin1", "latin-1", "iso-8859-1":
		return nil
	}
	return fmt.Errorf("unsupported export encoding %q (use utf-8-sig, utf-8 or latin1)", name)
}

// validateRefreshAt checks a ;-separated list of HH:MM times
func validateRefreshAt(refreshAt string) error {
	if refreshAt == "" {
		return nil
	}
	for _, t := range strings.Split(refreshAt, ";") {
		if _, err := time.Parse("15:04", strings.TrimSpace(t)); err != nil {
			return fmt.Errorf("time %q must use HH:MM", t)
		}
	}
	return nil
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getOptionalEnv is like getEnvWithDefault but an explicitly empty variable
// disables the feature instead of selecting the default.
func getOptionalEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

// getIntEnvWithDefault gets an environment variable as int with a default value
func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getInt64EnvWithDefault gets an environment variable as int64 with a default value
func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvVars returns a list of all expected environment variables
func GetEnvVars() []string {
	return []string{
		"PORT",
		"ADDRESS",
		"ENV",
		"LOG_LEVEL",
		"LOG_DIR",
		"LOG_RETENTION_WEEKS",
		"MAX_LOG_FILE_SIZE",
		"MAX_REQUEST_BODY",
		"MAX_HEADER_SIZE",
		"PATIENTS_DIR",
		"DISTRIBUTIONS_DIR",
		"LOOKUP_FILE",
		"SOURCE_ENCODINGS",
		"EXPORT_ENCODING_PATIENTS",
		"EXPORT_ENCODING_SUMMARY",
		"EXPORT_ENCODING_DISTRIBUTIONS",
		"REFRESH_AT",
		"STALE_AFTER_HOURS",
		"HISTORY_DB",
	}
}
