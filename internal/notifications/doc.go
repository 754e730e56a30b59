// Package notifications delivers site events via ntfy.
//
// NewService returns a no-op notifier when no topic is configured, so callers
// publish unconditionally. Events map to a fixed title, tag set and priority;
// the payload only fills in the message text.
package notifications
