// Package main hosts the cherrycake CLI.
//
// The command tree wraps the internal packages for local use: serving the
// site, rendering or playing a visualization in the terminal, checking the
// analysis datasets, searching narratives, and reading the contact inbox.
// Commands resolve configuration once through commandContext.
package main
