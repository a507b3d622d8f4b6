// Package query turns the field texts an NER model found on a card into an
// approximate full-text query.
//
// Every whitespace token longer than three runes becomes a fuzzy term over
// the index field that stores that label. The query is a plain disjunction:
// a record matching any term is a candidate.
package query
