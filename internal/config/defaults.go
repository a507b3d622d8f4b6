package config

import "runtime"

const (
	defaultIndexDB                 = "~/.local/share/cardmatch/index.db"
	defaultRecordsDB               = "~/.local/share/cardmatch/records.db"
	defaultOCRDB                   = "~/.local/share/cardmatch/ocr.db"
	defaultOutputDir               = "~/.local/share/cardmatch/output"
	defaultLogDir                  = "~/.local/share/cardmatch/logs"
	defaultMinMatchedFields        = 3
	defaultRetrievalTimeoutSeconds = 60
	defaultDistanceThreshold       = 0.25
	defaultDistanceLimit           = 6
	defaultMinTokenLength          = 4
	defaultFuzzyMaxEdits           = 2
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultProgressEvery           = 5
	defaultLogRetentionDays        = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			IndexDB:   defaultIndexDB,
			RecordsDB: defaultRecordsDB,
			OCRDB:     defaultOCRDB,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Matching: Matching{
			MinMatchedFields:        defaultMinMatchedFields,
			RetrievalTimeoutSeconds: defaultRetrievalTimeoutSeconds,
			Workers:                 runtime.NumCPU(),
			DistanceThreshold:       defaultDistanceThreshold,
			DistanceLimit:           defaultDistanceLimit,
			MinTokenLength:          defaultMinTokenLength,
			FuzzyMaxEdits:           defaultFuzzyMaxEdits,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			ProgressEvery: defaultProgressEvery,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
