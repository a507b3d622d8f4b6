// Package batch drives the inference stream through a fixed pool of matching
// workers.
//
// Each worker owns its matcher and the store sessions behind it; nothing is
// shared between workers except the job and report channels. Reports are
// re-ordered so accepted matches reach the sink in input order whatever order
// workers finish in. When the run context is cancelled the feeder stops, the
// cards already decided are still flushed, and the run reports how many cards
// were left undecided.
package batch
