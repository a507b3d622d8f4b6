// Package matching decides which reference record, if any, a catalog card
// describes.
//
// For one card the Matcher builds a fuzzy query from the NER field texts,
// retrieves ranked candidates, and re-verifies each candidate by locating its
// field values in the OCR text (Verifier). Overlapping field hypotheses are
// resolved into a disjoint alignment whose size is the candidate's score.
// Select keeps the best-scoring candidate when it clears the policy's
// minimum number of matched fields.
//
// Every card ends in exactly one Outcome. Problems with a single candidate
// (missing record, unresolvable alignment) are counted on the card's Report
// and never abort the card.
package matching
