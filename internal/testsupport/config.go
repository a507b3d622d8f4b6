package testsupport

import (
	"path/filepath"
	"testing"

	"cardmatch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp paths per test.
// Records and OCR texts share one database file unless overridden.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.IndexDB = filepath.Join(base, "index.db")
	cfgVal.Paths.RecordsDB = filepath.Join(base, "store.db")
	cfgVal.Paths.OCRDB = cfgVal.Paths.RecordsDB
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Matching.Workers = 2
	cfgVal.Logging.RetentionDays = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithSeparateOCRDB stores OCR texts in their own database file.
func WithSeparateOCRDB() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.OCRDB = filepath.Join(b.baseDir, "ocr.db")
	}
}

// WithWorkers overrides the worker count.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Matching.Workers = n
	}
}

// WithMinMatchedFields overrides the acceptance threshold.
func WithMinMatchedFields(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Matching.MinMatchedFields = n
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.IndexDB)
}
