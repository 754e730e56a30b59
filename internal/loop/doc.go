// Package loop drives the time-based progress value shared by every
// visualization.
//
// A Driver receives candidate frame timestamps from a Scheduler (a ticker at
// the display refresh rate in production, a manual feed in tests), throttles
// them to the target frame rate, and hands accepted frames to a paint
// callback as a Tick carrying elapsed time and loop progress in [0,1). The
// loop never pauses and does no I/O of its own; cancellation is permanent.
package loop
