package index

import (
	"cardmatch/internal/query"
	"cardmatch/internal/records"
	"cardmatch/internal/textutil"
)

// documentFields tokenizes a record into index field → tokens. The first
// author value goes to the primary author field and every later one to the
// secondary field; other labels use the field the query builder targets.
func documentFields(rec records.Record) map[string][]string {
	out := make(map[string][]string)
	authors := 0
	for _, field := range records.Expand(rec) {
		var name string
		if field.Label == records.LabelAuthor {
			name = query.FieldAuthorSecondary
			if authors == 0 {
				name = query.FieldAuthorPrimary
			}
			authors++
		} else {
			name = query.FieldsFor(string(field.Label))[0]
		}
		out[name] = append(out[name], textutil.Tokenize(field.Text)...)
	}
	for name, tokens := range out {
		if len(tokens) == 0 {
			delete(out, name)
		}
	}
	return out
}
