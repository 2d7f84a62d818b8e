package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. BANKFEED_MATCH_DATE_WINDOW_DAYS.
const EnvPrefix = "BANKFEED"

// NewViper returns a viper instance that resolves dotted keys from
// BANKFEED_* environment variables.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

type override struct {
	key   string
	apply func(c *Config, raw any) error
}

func asString(set func(c *Config, s string)) func(*Config, any) error {
	return func(c *Config, raw any) error {
		s, err := cast.ToStringE(raw)
		if err != nil {
			return err
		}
		set(c, s)
		return nil
	}
}

func asFloat(set func(c *Config, f float64)) func(*Config, any) error {
	return func(c *Config, raw any) error {
		f, err := cast.ToFloat64E(raw)
		if err != nil {
			return err
		}
		set(c, f)
		return nil
	}
}

func asInt(set func(c *Config, n int)) func(*Config, any) error {
	return func(c *Config, raw any) error {
		n, err := cast.ToIntE(raw)
		if err != nil {
			return err
		}
		set(c, n)
		return nil
	}
}

func asBool(set func(c *Config, b bool)) func(*Config, any) error {
	return func(c *Config, raw any) error {
		b, err := cast.ToBoolE(raw)
		if err != nil {
			return err
		}
		set(c, b)
		return nil
	}
}

var overrides = []override{
	{"match.similarity_threshold", asFloat(func(c *Config, f float64) { c.Match.SimilarityThreshold = f })},
	{"match.date_window_days", asInt(func(c *Config, n int) { c.Match.DateWindowDays = n })},
	{"columns.date", asString(func(c *Config, s string) { c.Columns.Date = s })},
	{"columns.description", asString(func(c *Config, s string) { c.Columns.Description = s })},
	{"columns.amount", asString(func(c *Config, s string) { c.Columns.Amount = s })},
	{"columns.bank_id", asString(func(c *Config, s string) { c.Columns.BankID = s })},
	{"sheet.name", asString(func(c *Config, s string) { c.Sheet.Name = s })},
	{"sheet.skip_rows", asInt(func(c *Config, n int) { c.Sheet.SkipRows = n })},
	{"storage.driver", asString(func(c *Config, s string) { c.Storage.Driver = s })},
	{"storage.path", asString(func(c *Config, s string) { c.Storage.Path = s })},
	{"notify.enabled", asBool(func(c *Config, b bool) { c.Notify.Enabled = b })},
	{"notify.smtp.host", asString(func(c *Config, s string) { c.Notify.SMTP.Host = s })},
	{"notify.smtp.port", asInt(func(c *Config, n int) { c.Notify.SMTP.Port = n })},
	{"notify.smtp.username", asString(func(c *Config, s string) { c.Notify.SMTP.Username = s })},
	{"notify.smtp.password", asString(func(c *Config, s string) { c.Notify.SMTP.Password = s })},
	{"notify.smtp.from", asString(func(c *Config, s string) { c.Notify.SMTP.From = s })},
	{"notify.smtp.to", asString(func(c *Config, s string) { c.Notify.SMTP.To = splitList(s) })},
	{"notify.smtp.header_image", asString(func(c *Config, s string) { c.Notify.SMTP.HeaderImage = s })},
	{"notify.smtp.subject_prefix", asString(func(c *Config, s string) { c.Notify.SMTP.SubjectPrefix = s })},
	{"server.addr", asString(func(c *Config, s string) { c.Server.Addr = s })},
	{"server.max_upload_mb", asInt(func(c *Config, n int) { c.Server.MaxUploadMB = n })},
	{"git.auto_commit", asBool(func(c *Config, b bool) { c.Git.AutoCommit = b })},
}

// ApplyOverrides copies every key set in v (environment or bound flags) onto c.
// A value that does not convert to the field's type is a ConfigurationError.
func (c *Config) ApplyOverrides(v *viper.Viper) error {
	var errs []error
	for _, o := range overrides {
		if !v.IsSet(o.key) {
			continue
		}
		raw := v.Get(o.key)
		if err := o.apply(c, raw); err != nil {
			errs = append(errs, &ConfigurationError{Field: o.key, Reason: fmt.Sprintf("invalid value %q", cast.ToString(raw))})
		}
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
