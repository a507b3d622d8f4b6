// Package docstore is the key/document store behind record lookup and OCR
// text lookup.
//
// Records are kept as JSON documents keyed by record id; OCR transcriptions
// are kept as normalized text keyed by card path. Both tables share one
// schema, so a single database file may serve either role or both.
package docstore
