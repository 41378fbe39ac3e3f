// Package output formats aggregation results for display or machine
// consumption.
//
// Five formats are supported:
//   - text: human-readable numbered blocks, grouped by kind (default)
//   - json: the full Result document, warnings included
//   - markdown: PR-comment-friendly summary with collapsible kind sections
//   - sarif: SARIF v2.1.0 for Sonar records, for code-scanning upload
//   - count: the bare post-filter total
//
// Use [GetWriter] to obtain a [Writer] for a format string, or [WriteResult]
// to handle destination selection. Text numbering follows the aggregator's
// ordering contract, so "#3" means the same item on every run against the
// same data.
package output
