package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"cardmatch/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(tempHome, ".config", "cardmatch", "config.toml"); resolved != want {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, want)
	}

	wantIndex := filepath.Join(tempHome, ".local", "share", "cardmatch", "index.db")
	if cfg.Paths.IndexDB != wantIndex {
		t.Fatalf("unexpected index db: got %q want %q", cfg.Paths.IndexDB, wantIndex)
	}
	if cfg.Matching.MinMatchedFields != 3 {
		t.Fatalf("unexpected min matched fields: %d", cfg.Matching.MinMatchedFields)
	}
	if cfg.Matching.Workers != runtime.NumCPU() {
		t.Fatalf("expected workers to default to NumCPU, got %d", cfg.Matching.Workers)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}
}

func TestLoadEnvOverridesPaths(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Setenv("CARDMATCH_INDEX_DB", filepath.Join(dir, "idx.db"))
	t.Setenv("CARDMATCH_OUTPUT_DIR", filepath.Join(dir, "out"))

	cfg, _, _, err := config.Load(filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.IndexDB != filepath.Join(dir, "idx.db") {
		t.Fatalf("index db not overridden: %q", cfg.Paths.IndexDB)
	}
	if cfg.Paths.OutputDir != filepath.Join(dir, "out") {
		t.Fatalf("output dir not overridden: %q", cfg.Paths.OutputDir)
	}
}

func TestLoadCustomConfigFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	path := filepath.Join(t.TempDir(), "cardmatch.toml")

	payload := map[string]any{
		"paths": map[string]any{
			"index_db":   "~/cards/index.db",
			"records_db": "~/cards/store.db",
			"ocr_db":     "~/cards/store.db",
			"output_dir": "~/cards/out",
		},
		"matching": map[string]any{
			"min_matched_fields":        4,
			"retrieval_timeout_seconds": 0,
			"workers":                   2,
			"distance_threshold":        0.3,
			"distance_limit":            5,
			"min_token_length":          3,
			"fuzzy_max_edits":           1,
		},
		"logging": map[string]any{
			"format": "JSON",
			"level":  "debug",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %q to be used, got %q (exists=%v)", path, resolved, exists)
	}
	if cfg.Paths.RecordsDB != filepath.Join(tempHome, "cards", "store.db") {
		t.Fatalf("unexpected records db: %q", cfg.Paths.RecordsDB)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected format to be lowercased, got %q", cfg.Logging.Format)
	}

	policy := cfg.Policy()
	if policy.MinMatchedFields != 4 {
		t.Fatalf("unexpected policy min matched fields: %d", policy.MinMatchedFields)
	}
	if policy.RetrievalTimeout != 0 {
		t.Fatalf("expected disabled retrieval bound, got %v", policy.RetrievalTimeout)
	}
	if policy.Schedule.Threshold != 0.3 || policy.Schedule.Limit != 5 {
		t.Fatalf("unexpected schedule: %+v", policy.Schedule)
	}
	if policy.Query.MinTokenLength != 3 || policy.Query.MaxEdits != 1 {
		t.Fatalf("unexpected query options: %+v", policy.Query)
	}
}

func TestDefaultPolicyTimeout(t *testing.T) {
	cfg := config.Default()
	if got := cfg.Policy().RetrievalTimeout; got != 60*time.Second {
		t.Fatalf("unexpected default retrieval timeout: %v", got)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "cardmatch.toml")
	if err := os.WriteFile(path, []byte("[matching]\nmin_fields = 2\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestValidateRejectsImpossibleValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"min matched", func(c *config.Config) { c.Matching.MinMatchedFields = 0 }, "matching.min_matched_fields"},
		{"timeout", func(c *config.Config) { c.Matching.RetrievalTimeoutSeconds = -1 }, "retrieval_timeout_seconds"},
		{"threshold", func(c *config.Config) { c.Matching.DistanceThreshold = 1 }, "distance_threshold"},
		{"limit", func(c *config.Config) { c.Matching.DistanceLimit = 1 }, "distance_limit"},
		{"edits", func(c *config.Config) { c.Matching.FuzzyMaxEdits = 3 }, "fuzzy_max_edits"},
		{"level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"progress", func(c *config.Config) { c.Logging.ProgressEvery = 150 }, "progress_every"},
		{"index path", func(c *config.Config) { c.Paths.IndexDB = " " }, "paths.index_db"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Matching.DistanceLimit != 6 {
		t.Fatalf("unexpected sample distance limit: %d", cfg.Matching.DistanceLimit)
	}
}
