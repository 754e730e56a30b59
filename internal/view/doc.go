// Package view ties the pieces of a visualization together: the catalog of
// definitions, the mount/run/unmount lifecycle over the shared loop driver,
// and a process-wide library of loaded views for snapshot rendering.
//
// Every surface (HTTP snapshots, the WebSocket stream, the terminal player
// and the render command) goes through this package, so the load-once and
// clock-reset-on-mount rules hold everywhere.
package view
