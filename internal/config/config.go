package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"cardmatch/internal/matching"
	"cardmatch/internal/query"
	"cardmatch/internal/textmatch"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains database and directory locations.
type Paths struct {
	IndexDB   string `toml:"index_db"`
	RecordsDB string `toml:"records_db"`
	OCRDB     string `toml:"ocr_db"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// Matching contains the thresholds that decide whether a card matches a record.
type Matching struct {
	MinMatchedFields        int     `toml:"min_matched_fields"`
	RetrievalTimeoutSeconds int     `toml:"retrieval_timeout_seconds"`
	Workers                 int     `toml:"workers"`
	DistanceThreshold       float64 `toml:"distance_threshold"`
	DistanceLimit           int     `toml:"distance_limit"`
	MinTokenLength          int     `toml:"min_token_length"`
	FuzzyMaxEdits           int     `toml:"fuzzy_max_edits"`
	FuzzyPrefixLength       int     `toml:"fuzzy_prefix_length"`
}

// Logging contains logging configuration.
type Logging struct {
	Format        string  `toml:"format"`
	Level         string  `toml:"level"`
	ProgressEvery float64 `toml:"progress_every"`
	RetentionDays int     `toml:"retention_days"`
}

// Config encapsulates all configuration values for cardmatch.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Matching Matching `toml:"matching"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/cardmatch/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cardmatch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Policy translates the [matching] section into matcher thresholds.
func (c *Config) Policy() matching.Policy {
	return matching.Policy{
		MinMatchedFields: c.Matching.MinMatchedFields,
		RetrievalTimeout: time.Duration(c.Matching.RetrievalTimeoutSeconds) * time.Second,
		Schedule: textmatch.Schedule{
			Threshold: c.Matching.DistanceThreshold,
			Limit:     c.Matching.DistanceLimit,
		},
		Query: query.Options{
			MinTokenLength: c.Matching.MinTokenLength,
			MaxEdits:       c.Matching.FuzzyMaxEdits,
			PrefixLength:   c.Matching.FuzzyPrefixLength,
		},
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
