// Package cache provides a short-lived file cache for upstream API responses.
//
// Entries are keyed by a SHA-256 hash of the request (method, URL, and body,
// since GraphQL posts every query to one URL) and store the raw response
// body with a creation timestamp and TTL. Expired entries are removed on
// read. The default TTL is two minutes: long enough that listing, counting,
// and re-rendering the same pull request hits the network once, short enough
// that fresh review activity shows up.
//
// The default directory is $XDG_CACHE_HOME/triage or the OS equivalent.
package cache
