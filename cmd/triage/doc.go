// Triage is a CLI for reading the feedback attached to a pull request in
// one place: inline review comments, conversation comments, CI check runs
// and legacy commit statuses, and SonarQube issues and security hotspots.
//
// Usage:
//
//	triage comments 142                # unresolved bot comments on PR 142
//	triage comments 142 --humans       # human comments instead
//	triage comments 142 --show-resolved --details
//	triage checks 142                  # check runs + statuses, deduplicated
//	triage sonar --pr 142 -s BLOCKER   # blocker-severity Sonar findings
//	triage sonar -k AYx4T...           # exact key, retries resolved scope
//	triage comments 142 --count        # just the number
//
// See https://github.com/dshills/triage for full documentation.
package main
