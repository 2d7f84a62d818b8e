package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/bankfeed/internal/dedup"
	"github.com/cleared-dev/bankfeed/internal/importer"
	"github.com/cleared-dev/bankfeed/internal/normalize"
	"github.com/cleared-dev/bankfeed/internal/notify"
)

// FileName is the configuration file at the workspace root.
const FileName = "bankfeed.yaml"

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverCSV    = "csv"
)

// Config represents the top-level bankfeed.yaml configuration.
type Config struct {
	Match   MatchConfig   `yaml:"match"`
	Columns ColumnsConfig `yaml:"columns"`
	Sheet   SheetConfig   `yaml:"sheet"`
	Storage StorageConfig `yaml:"storage"`
	Notify  NotifyConfig  `yaml:"notify"`
	Server  ServerConfig  `yaml:"server"`
	Git     GitConfig     `yaml:"git"`
}

// MatchConfig is the duplicate matching policy.
type MatchConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	DateWindowDays      int     `yaml:"date_window_days"`
}

// ColumnsConfig names the spreadsheet columns holding each field.
type ColumnsConfig struct {
	Date        string `yaml:"date"`
	Description string `yaml:"description"`
	Amount      string `yaml:"amount"`
	BankID      string `yaml:"bank_id,omitempty"`
}

// SheetConfig locates the data in a workbook.
type SheetConfig struct {
	Name     string `yaml:"name,omitempty"` // first sheet when empty
	SkipRows int    `yaml:"skip_rows"`
}

// StorageConfig selects where transactions are kept.
type StorageConfig struct {
	Driver string `yaml:"driver"` // sqlite or csv
	Path   string `yaml:"path"`   // relative to the workspace root
}

// NotifyConfig controls email notification of new transactions.
type NotifyConfig struct {
	Enabled bool       `yaml:"enabled"`
	SMTP    SMTPConfig `yaml:"smtp"`
}

// SMTPConfig holds mail server settings.
type SMTPConfig struct {
	Host          string   `yaml:"host"`
	Port          int      `yaml:"port"`
	Username      string   `yaml:"username"`
	Password      string   `yaml:"password,omitempty"`
	From          string   `yaml:"from"`
	To            []string `yaml:"to,omitempty"`
	HeaderImage   string   `yaml:"header_image,omitempty"`
	SubjectPrefix string   `yaml:"subject_prefix,omitempty"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

// GitConfig controls committing the workspace after imports.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Load reads a bankfeed.yaml file from disk. Keys absent from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new workspace.
func Default() *Config {
	return &Config{
		Match: MatchConfig{
			SimilarityThreshold: dedup.DefaultSimilarityThreshold,
			DateWindowDays:      dedup.DefaultDateWindowDays,
		},
		Columns: ColumnsConfig{
			Date:        "Fecha",
			Description: "Descripción",
			Amount:      "Importe",
		},
		Storage: StorageConfig{
			Driver: DriverSQLite,
			Path:   "data/bankfeed.db",
		},
		Notify: NotifyConfig{
			SMTP: SMTPConfig{
				Port:          587,
				SubjectPrefix: "Bankfeed",
			},
		},
		Server: ServerConfig{
			Addr:        ":5001",
			MaxUploadMB: 16,
		},
		Git: GitConfig{
			AuthorName:  "Bankfeed",
			AuthorEmail: "bankfeed@localhost",
		},
	}
}

// Dedup returns the matching policy.
func (c *Config) Dedup() dedup.Config {
	return dedup.Config{
		SimilarityThreshold: c.Match.SimilarityThreshold,
		DateWindowDays:      c.Match.DateWindowDays,
	}
}

// Mapping returns the column mapping for the normalizer.
func (c *Config) Mapping() normalize.Mapping {
	return normalize.Mapping{
		Date:        c.Columns.Date,
		Description: c.Columns.Description,
		Amount:      c.Columns.Amount,
		BankID:      c.Columns.BankID,
	}
}

// ImportOptions returns the spreadsheet extraction options.
func (c *Config) ImportOptions() importer.Options {
	return importer.Options{
		Sheet:    c.Sheet.Name,
		SkipRows: c.Sheet.SkipRows,
		Mapping:  c.Mapping(),
	}
}

// SMTP returns the email notifier settings.
func (c *Config) SMTP() notify.SMTPConfig {
	s := c.Notify.SMTP
	return notify.SMTPConfig{
		Host:          s.Host,
		Port:          s.Port,
		Username:      s.Username,
		Password:      s.Password,
		From:          s.From,
		To:            s.To,
		HeaderImage:   s.HeaderImage,
		SubjectPrefix: s.SubjectPrefix,
	}
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}
