// Package config loads, normalizes, and validates cherrycake configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SMTP_HOST and SMTP_PASSWORD for the contact relay. The Config type collects
// every knob the server, the renderers, and the CLI need: where datasets live,
// how long each visualization loop runs, and how large the full and embedded
// canvases are.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
