// Package preflight checks the directories and external services cherrycake
// depends on.
//
// The server runs RunAll at startup and logs failures as warnings; the
// `cherrycake check` command prints the same results as a table. Services
// that are not configured report as disabled and pass.
package preflight
