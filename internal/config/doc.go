// Package config loads, normalizes, and validates cardmatch configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides for the
// database and output locations. Policy converts the [matching] section into
// the thresholds consumed by the matcher.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical log formats, and clear validation errors.
package config
