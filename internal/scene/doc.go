// Package scene paints visualization frames as SVG documents.
//
// Each renderer is built once from its datasets, precomputing everything
// that does not depend on time, and then draws a frame from a loop tick.
// Rendering is a pure function of the frame: the same progress and options
// always produce the same document, which lets the server stream frames,
// the CLI render stills, and tests compare output without a clock.
//
// Embed mode drops text overlays, legends and progress bars and shrinks the
// default surface from 3840x2160 to 1920x1080.
package scene
