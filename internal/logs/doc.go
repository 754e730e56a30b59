// Package logs reads the server log for `cherrycake logs`: the last N lines
// of a file and, in follow mode, lines appended afterwards. Follow mode
// tracks the cherrycaked.log pointer, so a server restart that retargets it
// is picked up.
package logs
