// Package config loads and merges triage configuration.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (TRIAGE_FORMAT, TRIAGE_SONAR_HOSTURL, etc.)
//  3. Config file ($XDG_CONFIG_HOME/triage/config.yaml)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged [Config], [Init] to write a default config
// file, and [Set] to update a single dotted key in the file. Enum-valued
// settings (comments.defaultAuthors, format) are validated on load; a bad
// value fails before any fetch is attempted.
package config
