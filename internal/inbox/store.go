package inbox

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes incompatibly.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by another schema
// version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// RelayStatus is the delivery state of a stored message.
type RelayStatus string

const (
	RelayPending RelayStatus = "pending"
	RelaySent    RelayStatus = "sent"
	RelayFailed  RelayStatus = "failed"
	RelaySkipped RelayStatus = "skipped"
)

const (
	defaultLimit            = 50
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Message is one stored contact submission.
type Message struct {
	ID          int64       `json:"id"`
	PublicID    string      `json:"public_id"`
	Name        string      `json:"name,omitempty"`
	Email       string      `json:"email"`
	Body        string      `json:"message"`
	RemoteAddr  string      `json:"remote_addr,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	RelayStatus RelayStatus `json:"relay_status"`
	RelayError  string      `json:"relay_error,omitempty"`
	RelayedAt   *time.Time  `json:"relayed_at,omitempty"`
}

// Store manages submission persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the inbox database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure inbox directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, now: func() time.Time { return time.Now().UTC() }}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (move %s aside to start a fresh inbox)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Save stores a new submission in RelayPending and returns it with its
// identifiers assigned.
func (s *Store) Save(ctx context.Context, name, email, body, remoteAddr string) (*Message, error) {
	msg := &Message{
		PublicID:    uuid.NewString(),
		Name:        strings.TrimSpace(name),
		Email:       strings.TrimSpace(email),
		Body:        body,
		RemoteAddr:  remoteAddr,
		CreatedAt:   s.now(),
		RelayStatus: RelayPending,
	}
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx,
			`INSERT INTO messages (public_id, name, email, body, remote_addr, created_at, relay_status)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			msg.PublicID,
			nullableString(msg.Name),
			msg.Email,
			msg.Body,
			nullableString(msg.RemoteAddr),
			msg.CreatedAt.Format(time.RFC3339Nano),
			msg.RelayStatus,
		)
		return execErr
	})
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	msg.ID = id
	return msg, nil
}

// MarkRelayed records the relay outcome. A nil relayErr marks the message
// sent; skipped marks it as not relayed because no transport is configured.
func (s *Store) MarkRelayed(ctx context.Context, id int64, status RelayStatus, relayErr error) error {
	var errText any
	if relayErr != nil {
		errText = relayErr.Error()
	}
	var relayedAt any
	if status == RelaySent {
		relayedAt = s.now().Format(time.RFC3339Nano)
	}
	err := retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			`UPDATE messages SET relay_status = ?, relay_error = ?, relayed_at = ? WHERE id = ?`,
			status, errText, relayedAt, id,
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("update relay status: %w", err)
	}
	return nil
}

const messageColumns = "id, public_id, name, email, body, remote_addr, created_at, relay_status, relay_error, relayed_at"

// Get returns a message by id, or nil when it does not exist.
func (s *Store) Get(ctx context.Context, id int64) (*Message, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return msg, nil
}

// List returns the newest messages first. A non-positive limit uses 50.
func (s *Store) List(ctx context.Context, limit int, statuses ...RelayStatus) ([]*Message, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	query := `SELECT ` + messageColumns + ` FROM messages`
	args := make([]any, 0, len(statuses)+1)
	if len(statuses) > 0 {
		query += ` WHERE relay_status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, st := range statuses {
			args = append(args, st)
		}
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// Count returns the number of stored messages.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM messages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

func scanMessage(scanner interface{ Scan(dest ...any) error }) (*Message, error) {
	var (
		msg        Message
		name       sql.NullString
		remote     sql.NullString
		createdRaw string
		status     string
		relayErr   sql.NullString
		relayedRaw sql.NullString
	)
	if err := scanner.Scan(&msg.ID, &msg.PublicID, &name, &msg.Email, &msg.Body, &remote,
		&createdRaw, &status, &relayErr, &relayedRaw); err != nil {
		return nil, err
	}
	msg.Name = name.String
	msg.RemoteAddr = remote.String
	msg.RelayStatus = RelayStatus(status)
	msg.RelayError = relayErr.String
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		msg.CreatedAt = created
	}
	if relayedRaw.Valid {
		if relayed, err := time.Parse(time.RFC3339Nano, relayedRaw.String); err == nil {
			msg.RelayedAt = &relayed
		}
	}
	return &msg, nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil || !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = min(delay*2, busyRetryMaxBackoff)
	}
	return lastErr
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}
