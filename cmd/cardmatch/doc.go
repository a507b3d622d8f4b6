// Package main hosts the cardmatch CLI entrypoint and command graph.
//
// The Cobra-based command tree loads reference records and card texts into
// the local stores, checks that a run can start, and matches NER inference
// output against the record index. It centralizes configuration resolution
// and logger setup so subcommands stay declarative; the matching pipeline
// itself lives in the internal packages.
package main
