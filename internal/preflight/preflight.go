package preflight

import (
	"context"

	"cardmatch/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every check a match run depends on. Store checks are
// skipped when the file itself is missing or unreadable.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	indexDB := CheckDatabaseFile("Index database", cfg.Paths.IndexDB)
	results = append(results, indexDB)
	if indexDB.Passed {
		results = append(results, CheckIndex(ctx, cfg.Paths.IndexDB))
	}

	recordsDB := CheckDatabaseFile("Records database", cfg.Paths.RecordsDB)
	results = append(results, recordsDB)
	if recordsDB.Passed {
		results = append(results, CheckDocstore(ctx, "Records store", cfg.Paths.RecordsDB, false))
	}

	if cfg.Paths.OCRDB == cfg.Paths.RecordsDB {
		if recordsDB.Passed {
			results = append(results, CheckDocstore(ctx, "OCR store", cfg.Paths.OCRDB, true))
		}
	} else {
		ocrDB := CheckDatabaseFile("OCR database", cfg.Paths.OCRDB)
		results = append(results, ocrDB)
		if ocrDB.Passed {
			results = append(results, CheckDocstore(ctx, "OCR store", cfg.Paths.OCRDB, true))
		}
	}

	results = append(results, CheckCreatableDirectory("Output directory", cfg.Paths.OutputDir))
	results = append(results, CheckCreatableDirectory("Log directory", cfg.Paths.LogDir))
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
