// Package inbox persists contact submissions in SQLite.
//
// Every accepted submission is stored before any relay is attempted, so a
// mail or push outage never loses a message. The relay outcome is recorded
// afterwards with MarkRelayed. The schema is embedded and versioned; a
// database written by a different schema version is refused with
// ErrSchemaMismatch rather than migrated.
package inbox
