// Package cli wires together the Cobra command tree for the triage binary.
//
// It defines the root command and all subcommands (comments, checks, sonar,
// config, cache, version), binds flags, reads configuration, drives the
// fetch clients, hands their payloads to the aggregator, and returns
// deterministic exit codes: 0 success, 2 usage or filter-validation error,
// 3 authentication error, 4 runtime error. Partial upstream failure is never
// an exit code; it surfaces as warnings alongside whatever did load.
package cli
