package backend

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"lanchonete/internal/config"
)

// Config holds configuration for reader creation
type Config struct {
	// Backend type
	Type BackendType

	// Time zone naive spreadsheet dates are read in
	Location *time.Location

	// xlsx specific; memory reads LedgerFile when it is a CSV
	LedgerFile  string
	LedgerSheet string

	// SQLite specific
	SQLiteDBPath string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleMaxRetries         int

	// Memory backend seeds a demo year when no CSV is given
	DemoYear int
}

// BackendType represents the type of backend
type BackendType string

const (
	XLSXBackend   BackendType = "xlsx"
	SheetsBackend BackendType = "sheets"
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case XLSXBackend, SheetsBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:     backendType,
		Location: appConfig.Location(),

		LedgerFile:  appConfig.LedgerFile,
		LedgerSheet: appConfig.LedgerSheet,

		SQLiteDBPath: appConfig.SQLiteDBPath,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		GoogleMaxRetries:         appConfig.GoogleMaxRetries,

		DemoYear: time.Now().Year(),
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case XLSXBackend:
		if c.LedgerFile == "" {
			return fmt.Errorf("ledger file is required for xlsx backend")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			return fmt.Errorf("either GoogleServiceAccountJSON or GoogleServiceAccountFile must be provided for sheets backend")
		}
	case MemoryBackend:
		// Memory backend falls back to demo data
	}

	return nil
}

// isCSV reports whether the memory backend should load LedgerFile.
func (c Config) isCSV() bool {
	return strings.EqualFold(filepath.Ext(c.LedgerFile), ".csv")
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{XLSXBackend, SheetsBackend, SQLiteBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
