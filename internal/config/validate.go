package config

import (
	"errors"
	"fmt"
	"strings"

	"cardmatch/internal/logging"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	for key, value := range map[string]string{
		"paths.index_db":   c.Paths.IndexDB,
		"paths.records_db": c.Paths.RecordsDB,
		"paths.ocr_db":     c.Paths.OCRDB,
		"paths.output_dir": c.Paths.OutputDir,
	} {
		if strings.TrimSpace(value) == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = "~/.config/cardmatch/config.toml"
			}
			return fmt.Errorf("%s must be set. Edit %s (create with 'cardmatch config init')", key, defaultPath)
		}
	}
	return nil
}

func (c *Config) validateMatching() error {
	m := c.Matching
	if err := ensurePositiveMap(map[string]int{
		"matching.min_matched_fields": m.MinMatchedFields,
		"matching.min_token_length":   m.MinTokenLength,
		"matching.workers":            m.Workers,
	}); err != nil {
		return err
	}
	if m.RetrievalTimeoutSeconds < 0 {
		return errors.New("matching.retrieval_timeout_seconds must be >= 0 (0 disables the bound)")
	}
	if m.DistanceThreshold <= 0 || m.DistanceThreshold >= 1 {
		return errors.New("matching.distance_threshold must be between 0 and 1 (exclusive)")
	}
	if m.DistanceLimit < 2 {
		return errors.New("matching.distance_limit must be at least 2")
	}
	if m.FuzzyMaxEdits < 0 || m.FuzzyMaxEdits > 2 {
		return errors.New("matching.fuzzy_max_edits must be between 0 and 2")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.ProgressEvery < 0 || c.Logging.ProgressEvery > 100 {
		return errors.New("logging.progress_every must be a percentage between 0 and 100")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
