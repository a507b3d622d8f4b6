// Package overlap turns competing field-span hypotheses into one consistent
// labeling of a card.
//
// Verification of a reference record produces at most one span per field
// value, but spans from different fields frequently collide (a title that
// happens to contain the author's surname, an ID that overlaps a date). The
// resolver keeps the most confident hypothesis for every rune and truncates
// the losers to whatever they still cover alone, so partial evidence survives
// instead of being discarded. The resolved ranges are authoritative: span
// text is always re-sliced from the card after resolution.
package overlap
