// Package store provides SQLite persistence for the engine: an
// append-only audit log of emitted envelopes and the tables backing the
// idempotent side-effect tools.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/decisive-systems/conductor/core/logging"
	"github.com/decisive-systems/conductor/core/protocol"
)

// Store wraps a SQLite database. The schema is created automatically and
// parent directories are created if needed.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// New opens (or creates) the database at path. Use ":memory:" for an
// ephemeral store in tests.
func New(path string, logger logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL improves concurrent read performance; no-op for :memory:.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db, logger: logger.Bind("component", "store")}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	s.logger.Info("store_initialized", "path", path)
	return s, nil
}

func (s *Store) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS audit_log (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			request_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at TEXT NOT NULL,
			UNIQUE(session_id, request_id, seq)
		);
		CREATE INDEX IF NOT EXISTS idx_audit_session ON audit_log(session_id, created_at);

		CREATE TABLE IF NOT EXISTS registered_views (
			name TEXT PRIMARY KEY,
			definition TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS records (
			namespace TEXT NOT NULL,
			record_key TEXT NOT NULL,
			body TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY(namespace, record_key)
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// AUDIT LOG
// =============================================================================

// AppendEnvelope records one emitted envelope. Appends are idempotent on
// (session_id, request_id, seq): a retried emission leaves one row.
func (s *Store) AppendEnvelope(ctx context.Context, env *protocol.Envelope, seq int) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshaling envelope: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, session_id, request_id, seq, kind, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, request_id, seq) DO NOTHING`,
		uuid.NewString(), env.SessionID, env.RequestID, seq, string(env.Kind),
		string(payload), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("appending audit entry: %w", err)
	}
	return nil
}

// LastResponse returns the most recently appended response envelope for a
// session, or nil when none exists. Used to reconstruct resume state
// after a restart.
func (s *Store) LastResponse(ctx context.Context, sessionID string) (*protocol.Envelope, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM audit_log
		WHERE session_id = ? AND kind = ?
		ORDER BY rowid DESC
		LIMIT 1`,
		sessionID, string(protocol.KindResponse),
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying last response: %w", err)
	}

	var env protocol.Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return nil, fmt.Errorf("unmarshaling audit entry: %w", err)
	}
	return &env, nil
}

// SessionEnvelopes returns all audit entries for a session in emission
// order.
func (s *Store) SessionEnvelopes(ctx context.Context, sessionID string) ([]*protocol.Envelope, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM audit_log
		WHERE session_id = ?
		ORDER BY rowid ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying session envelopes: %w", err)
	}
	defer rows.Close()

	var out []*protocol.Envelope
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		var env protocol.Envelope
		if err := json.Unmarshal([]byte(payload), &env); err != nil {
			return nil, fmt.Errorf("unmarshaling audit entry: %w", err)
		}
		out = append(out, &env)
	}
	return out, rows.Err()
}

// =============================================================================
// IDEMPOTENT SIDE EFFECTS
// =============================================================================

// identRe restricts view names to plain SQL identifiers. View names are
// interpolated into DDL, so anything else is rejected up front.
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// RegisterView creates or replaces a named SQL view. Applying the same
// registration twice leaves one view with the latest definition.
func (s *Store) RegisterView(ctx context.Context, name, query string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("invalid view name %q", name)
	}
	if query == "" {
		return fmt.Errorf("view %q: empty definition", name)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP VIEW IF EXISTS %s", name)); err != nil {
		return fmt.Errorf("dropping view %q: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE VIEW %s AS %s", name, query)); err != nil {
		return fmt.Errorf("creating view %q: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO registered_views (name, definition, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET definition = excluded.definition, updated_at = excluded.updated_at`,
		name, query, time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("recording view %q: %w", name, err)
	}

	return tx.Commit()
}

// ViewDefinition returns the recorded definition of a view, or "" when
// the view is not registered.
func (s *Store) ViewDefinition(ctx context.Context, name string) (string, error) {
	var def string
	err := s.db.QueryRowContext(ctx,
		`SELECT definition FROM registered_views WHERE name = ?`, name,
	).Scan(&def)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying view %q: %w", name, err)
	}
	return def, nil
}

// UpsertRecord inserts or replaces one record by (namespace, key).
// Applying the same upsert twice leaves one row.
func (s *Store) UpsertRecord(ctx context.Context, namespace, key string, body map[string]any) error {
	if namespace == "" || key == "" {
		return fmt.Errorf("upsert requires namespace and key")
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling record body: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (namespace, record_key, body, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(namespace, record_key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		namespace, key, string(data), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upserting record %s/%s: %w", namespace, key, err)
	}
	return nil
}

// GetRecord returns one record body, or nil when absent.
func (s *Store) GetRecord(ctx context.Context, namespace, key string) (map[string]any, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM records WHERE namespace = ? AND record_key = ?`,
		namespace, key,
	).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying record %s/%s: %w", namespace, key, err)
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return nil, fmt.Errorf("unmarshaling record %s/%s: %w", namespace, key, err)
	}
	return out, nil
}

// CountRecords returns the number of records in a namespace.
func (s *Store) CountRecords(ctx context.Context, namespace string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE namespace = ?`, namespace,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting records in %q: %w", namespace, err)
	}
	return n, nil
}

// ExecSQL runs one statement and returns the affected row count. Used by
// the SQL-execution step agent through the execute_sql tool.
func (s *Store) ExecSQL(ctx context.Context, statement string) (int64, error) {
	res, err := s.db.ExecContext(ctx, statement)
	if err != nil {
		return 0, fmt.Errorf("executing statement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// QueryRows runs one read statement and returns the rows as maps. Used by
// the view-querying tools.
func (s *Store) QueryRows(ctx context.Context, query string) ([]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
