// Package sqlitedb opens the SQLite databases cardmatch keeps its stores in.
//
// Connection pragmas travel in the DSN so every pooled connection gets them,
// not only the first. Each store owns a named schema component whose version
// is recorded in a shared schema_versions table, which lets several stores
// live in one file.
package sqlitedb
