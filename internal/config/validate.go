package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ConfigurationError is a missing or out-of-range setting. It is fatal at startup.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

// Validate returns every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)})
	}

	if t := c.Match.SimilarityThreshold; math.IsNaN(t) || t < 0 || t > 1 {
		add("match.similarity_threshold", "%v is outside [0,1]", t)
	}
	if c.Match.DateWindowDays < 0 {
		add("match.date_window_days", "%d is negative", c.Match.DateWindowDays)
	}

	for _, col := range []struct{ field, value string }{
		{"columns.date", c.Columns.Date},
		{"columns.description", c.Columns.Description},
		{"columns.amount", c.Columns.Amount},
	} {
		if strings.TrimSpace(col.value) == "" {
			add(col.field, "is required")
		}
	}

	if c.Sheet.SkipRows < 0 {
		add("sheet.skip_rows", "%d is negative", c.Sheet.SkipRows)
	}

	switch c.Storage.Driver {
	case DriverSQLite, DriverCSV:
	default:
		add("storage.driver", "unknown driver %q (want %s or %s)", c.Storage.Driver, DriverSQLite, DriverCSV)
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		add("storage.path", "is required")
	}

	if c.Notify.Enabled {
		if err := c.SMTP().Validate(); err != nil {
			add("notify.smtp", "%v", strings.ReplaceAll(err.Error(), "\n", "; "))
		}
	}

	if c.Server.MaxUploadMB <= 0 {
		add("server.max_upload_mb", "%d must be positive", c.Server.MaxUploadMB)
	}

	return errors.Join(errs...)
}
