// Package player plays a mounted visualization in the terminal. On a TTY it
// runs a bubbletea program; otherwise it prints sampled status lines.
package player
