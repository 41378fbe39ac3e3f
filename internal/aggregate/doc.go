// Package aggregate normalizes raw upstream API payloads into a single
// filtered record listing.
//
// It defines the Record and Result types, projects each payload kind
// (GitHub review threads, issue comments, check runs, status contexts,
// SonarQube issues, security hotspots) into the common Record shape through
// a per-kind projection table, merges duplicate observations of the same
// entity, deduplicates check runs against legacy status contexts, and
// applies the caller's filters as pure predicates.
//
// The package performs no network I/O: callers hand it already-fetched JSON
// documents as [SourcePayload] values. A payload that is missing or cannot
// be decoded contributes an empty set and a warning on the [Result] rather
// than an error, so partial upstream failures still yield partial listings.
// Only filter validation fails hard, before any payload is touched.
//
// Output ordering is a contract: kinds appear in a fixed declared order
// (review comments, issue comments, check runs, status contexts, issues,
// security hotspots) with arrival order preserved within each kind, because
// downstream numbering ("Comment #1") depends on it.
package aggregate
