// Package records models reference bibliographic records and expands their
// stored fields into atomic label/value pairs.
//
// A stored record is a JSON object keyed by raw field name. Repeated fields
// carry an ordinal suffix ("author1", "author2") and multi-valued fields
// separate values with ";" or "|". Expand undoes both conventions.
package records
