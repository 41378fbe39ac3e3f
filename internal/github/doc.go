// Package github provides a minimal GitHub REST and GraphQL client for
// fetching pull-request feedback: inline review comments (both API views),
// issue comments, check runs, and legacy status contexts.
//
// It reads GITHUB_TOKEN from the environment and detects the current
// repository from the local git remote. Responses are returned as raw JSON
// bodies for the aggregate package to project; this package never reshapes
// them. Requests are paced with a client-side rate limiter and optionally
// served from the response cache. A failed call is reported once, with no
// retry; callers degrade the source to an empty set.
package github
