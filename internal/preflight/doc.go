// Package preflight provides readiness checks for the databases and
// directories a match run depends on.
//
// These checks run in two contexts:
//   - "cardmatch match" calls RunAll before starting workers and refuses to
//     run when a store cannot be opened, so a long batch does not fail late.
//   - "cardmatch check" prints every result as a table.
package preflight
