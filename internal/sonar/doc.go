// Package sonar provides a minimal SonarQube Web API client for fetching
// issues and security hotspots.
//
// Searches default to the unresolved scope (resolved=false for issues,
// TO_REVIEW for hotspots); setting Scope.IncludeResolved widens to the full
// scope, which is how the key-lookup retry finds already-resolved findings.
// An exact key search ignores project and pull-request scoping.
//
// Authentication is a SONAR_TOKEN sent as a basic-auth username. Responses
// are raw JSON bodies for the aggregate package to project.
package sonar
