// Package dataset loads the static JSON analysis documents that feed every
// visualization.
//
// Documents are addressed by a relative path (for example
// "tension_per_measure.json") and resolved against a base that is either an
// http(s) URL prefix or a local directory. Each document is fetched once;
// failures are terminal for the caller and never retried. Decoding is lenient:
// numbers may arrive as JSON numbers, numeric strings, or null, and optional
// fields receive documented defaults so renderers never see NaN or empty
// identifiers.
package dataset
