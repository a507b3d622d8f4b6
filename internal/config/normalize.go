package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMatching()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	overrides := []struct {
		env   string
		key   string
		value *string
	}{
		{"CARDMATCH_INDEX_DB", "paths.index_db", &c.Paths.IndexDB},
		{"CARDMATCH_RECORDS_DB", "paths.records_db", &c.Paths.RecordsDB},
		{"CARDMATCH_OCR_DB", "paths.ocr_db", &c.Paths.OCRDB},
		{"CARDMATCH_OUTPUT_DIR", "paths.output_dir", &c.Paths.OutputDir},
		{"", "paths.log_dir", &c.Paths.LogDir},
	}
	for _, o := range overrides {
		if o.env != "" {
			if value, ok := os.LookupEnv(o.env); ok && strings.TrimSpace(value) != "" {
				*o.value = strings.TrimSpace(value)
			}
		}
		expanded, err := expandPath(strings.TrimSpace(*o.value))
		if err != nil {
			return fmt.Errorf("%s: %w", o.key, err)
		}
		*o.value = expanded
	}
	return nil
}

func (c *Config) normalizeMatching() {
	if c.Matching.Workers <= 0 {
		c.Matching.Workers = runtime.NumCPU()
	}
	if c.Matching.FuzzyPrefixLength < 0 {
		c.Matching.FuzzyPrefixLength = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
