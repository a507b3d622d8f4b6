package matching

import (
	"time"

	"cardmatch/internal/query"
	"cardmatch/internal/textmatch"
)

// Policy centralizes matching thresholds.
type Policy struct {
	// MinMatchedFields is the smallest alignment size accepted as a match.
	MinMatchedFields int
	// RetrievalTimeout bounds one candidate retrieval; zero disables it.
	RetrievalTimeout time.Duration
	Schedule         textmatch.Schedule
	Query            query.Options
}

// DefaultPolicy returns the defaults used by the command line.
func DefaultPolicy() Policy {
	return Policy{
		MinMatchedFields: 3,
		RetrievalTimeout: 60 * time.Second,
		Schedule:         textmatch.DefaultSchedule(),
		Query:            query.DefaultOptions(),
	}
}

func (p Policy) normalized() Policy {
	d := DefaultPolicy()
	if p.MinMatchedFields <= 0 {
		p.MinMatchedFields = d.MinMatchedFields
	}
	if p.RetrievalTimeout < 0 {
		p.RetrievalTimeout = d.RetrievalTimeout
	}
	if p.Query == (query.Options{}) {
		p.Query = d.Query
	}
	return p
}
