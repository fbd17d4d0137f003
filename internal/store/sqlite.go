package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/chatkeep/internal/domain"
	"github.com/ashureev/chatkeep/internal/shared"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	sqliteMaxRetries = 3
	sqliteRetryDelay = 50 * time.Millisecond
)

// SQLiteStore implements Repository using SQLite.
// Each session turn is a row keyed by (session_id, seq); each index entry is a
// row keyed by (owner_id, seq). Writes run in immediate transactions.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL for concurrent readers; immediate transactions so appends serialize on the write lock.
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_owner ON sessions(owner_id, created_at);

	CREATE TABLE IF NOT EXISTS session_turns (
		session_id TEXT NOT NULL REFERENCES sessions(id),
		seq INTEGER NOT NULL,
		role TEXT NOT NULL,
		parts_json TEXT NOT NULL,
		img TEXT,
		PRIMARY KEY (session_id, seq)
	);

	CREATE TABLE IF NOT EXISTS user_chats (
		owner_id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS user_chat_entries (
		owner_id TEXT NOT NULL REFERENCES user_chats(owner_id),
		seq INTEGER NOT NULL,
		session_id TEXT NOT NULL,
		title TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (owner_id, seq)
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_user_chat_entries_session ON user_chat_entries(owner_id, session_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// CreateSession persists a new session with a single initial turn.
func (s *SQLiteStore) CreateSession(ctx context.Context, ownerID string, initial domain.Turn) (*domain.Session, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	session := &domain.Session{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		History:   []domain.Turn{initial},
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (id, owner_id, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			session.ID, ownerID, now.UnixMilli(), now.UnixMilli(),
		); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		return insertTurns(ctx, tx, session.ID, 0, session.History)
	})
	if err != nil {
		return nil, classify("create session", err)
	}
	return session, nil
}

// GetSession retrieves a session owned by ownerID.
func (s *SQLiteStore) GetSession(ctx context.Context, id, ownerID string) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, created_at, updated_at FROM sessions WHERE id = ? AND owner_id = ?`,
		id, ownerID,
	)

	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, classify("get session", fmt.Errorf("scan session row: %w", err))
	}

	if session.History, err = s.loadHistory(ctx, session.ID); err != nil {
		return nil, classify("get session", err)
	}
	return session, nil
}

// AppendTurns appends turns to a session owned by ownerID in one transaction.
func (s *SQLiteStore) AppendTurns(ctx context.Context, id, ownerID string, turns []domain.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM sessions WHERE id = ? AND owner_id = ?`, id, ownerID,
		).Scan(&exists)
		if err == sql.ErrNoRows {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("check session owner: %w", err)
		}

		var next int64
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq), -1) + 1 FROM session_turns WHERE session_id = ?`, id,
		).Scan(&next); err != nil {
			return fmt.Errorf("next turn seq: %w", err)
		}

		if err := insertTurns(ctx, tx, id, next, turns); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE sessions SET updated_at = ? WHERE id = ?`, time.Now().UTC().UnixMilli(), id,
		); err != nil {
			return fmt.Errorf("touch session: %w", err)
		}
		return nil
	})
	if err != nil {
		return classify("append turns", err)
	}
	return nil
}

// ListSessionsByOwner returns every session of an owner in creation order.
func (s *SQLiteStore) ListSessionsByOwner(ctx context.Context, ownerID string) ([]*domain.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, created_at, updated_at FROM sessions
		 WHERE owner_id = ? ORDER BY created_at, rowid`, ownerID,
	)
	if err != nil {
		return nil, classify("list sessions", fmt.Errorf("query sessions: %w", err))
	}

	var sessions []*domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			closeRows(rows)
			return nil, classify("list sessions", fmt.Errorf("scan session row: %w", err))
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		closeRows(rows)
		return nil, classify("list sessions", fmt.Errorf("iterate sessions: %w", err))
	}
	closeRows(rows)

	for _, session := range sessions {
		if session.History, err = s.loadHistory(ctx, session.ID); err != nil {
			return nil, classify("list sessions", err)
		}
	}
	return sessions, nil
}

// ListOwners returns the distinct owners that have sessions.
func (s *SQLiteStore) ListOwners(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT owner_id FROM sessions ORDER BY owner_id`)
	if err != nil {
		return nil, classify("list owners", fmt.Errorf("query owners: %w", err))
	}
	defer closeRows(rows)

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, classify("list owners", fmt.Errorf("scan owner: %w", err))
		}
		owners = append(owners, owner)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list owners", fmt.Errorf("iterate owners: %w", err))
	}
	return owners, nil
}

// GetIndex returns the session index of a user, ordered by session creation.
func (s *SQLiteStore) GetIndex(ctx context.Context, ownerID string) (*domain.SessionIndex, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM user_chats WHERE owner_id = ?`, ownerID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, classify("get index", fmt.Errorf("query index: %w", err))
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, title, created_at FROM user_chat_entries WHERE owner_id = ? ORDER BY created_at, seq`, ownerID,
	)
	if err != nil {
		return nil, classify("get index", fmt.Errorf("query index entries: %w", err))
	}
	defer closeRows(rows)

	index := &domain.SessionIndex{OwnerID: ownerID, Chats: []domain.SessionSummary{}}
	for rows.Next() {
		var summary domain.SessionSummary
		var createdAt int64
		if err := rows.Scan(&summary.ID, &summary.Title, &createdAt); err != nil {
			return nil, classify("get index", fmt.Errorf("scan index entry: %w", err))
		}
		summary.CreatedAt = time.UnixMilli(createdAt).UTC()
		index.Chats = append(index.Chats, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("get index", fmt.Errorf("iterate index entries: %w", err))
	}
	return index, nil
}

// CreateIndex creates a user's index holding a single summary.
func (s *SQLiteStore) CreateIndex(ctx context.Context, ownerID string, first domain.SessionSummary) (*domain.SessionIndex, error) {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_chats (owner_id, created_at) VALUES (?, ?)`,
			ownerID, time.Now().UTC().UnixMilli(),
		); err != nil {
			if shared.IsSQLiteUniqueError(err) {
				return domain.ErrAlreadyExists
			}
			return fmt.Errorf("insert index: %w", err)
		}
		return insertSummary(ctx, tx, ownerID, 0, first)
	})
	if err != nil {
		return nil, classify("create index", err)
	}
	return &domain.SessionIndex{OwnerID: ownerID, Chats: []domain.SessionSummary{first}}, nil
}

// AddSummary appends a summary to an existing index.
// A summary whose session is already listed is left as it is.
func (s *SQLiteStore) AddSummary(ctx context.Context, ownerID string, summary domain.SessionSummary) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM user_chats WHERE owner_id = ?`, ownerID).Scan(&exists)
		if err == sql.ErrNoRows {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("query index: %w", err)
		}

		var next int64
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq), -1) + 1 FROM user_chat_entries WHERE owner_id = ?`, ownerID,
		).Scan(&next); err != nil {
			return fmt.Errorf("next index seq: %w", err)
		}
		return insertSummary(ctx, tx, ownerID, next, summary)
	})
	if err != nil {
		return classify("add summary", err)
	}
	return nil
}

// inTx runs fn in a transaction, retrying the whole transaction on SQLITE_BUSY.
func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	var err error
	for i := 0; i < sqliteMaxRetries; i++ {
		err = s.runTx(ctx, fn)
		if err == nil || !shared.IsSQLiteConflictError(err) {
			return err
		}
		if i < sqliteMaxRetries-1 {
			delay := sqliteRetryDelay * time.Duration(1<<i) // exponential backoff: 50ms, 100ms, 200ms
			slog.Debug("SQLite transaction busy, retrying", "attempt", i+1, "delay", delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return fmt.Errorf("transaction failed after %d attempts: %w", sqliteMaxRetries, err)
}

func (s *SQLiteStore) runTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Warn("failed to roll back transaction", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) loadHistory(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, parts_json, img FROM session_turns WHERE session_id = ? ORDER BY seq`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer closeRows(rows)

	var records []domain.TurnRecord
	for rows.Next() {
		var rec domain.TurnRecord
		var partsJSON string
		var img sql.NullString
		if err := rows.Scan(&rec.Role, &partsJSON, &img); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		if err := json.Unmarshal([]byte(partsJSON), &rec.Parts); err != nil {
			return nil, fmt.Errorf("decode turn parts: %w", err)
		}
		rec.Image = img.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return domain.TurnsOf(records)
}

func insertTurns(ctx context.Context, tx *sql.Tx, sessionID string, firstSeq int64, turns []domain.Turn) error {
	for i, t := range turns {
		rec := domain.RecordOf(t)
		partsJSON, err := json.Marshal(rec.Parts)
		if err != nil {
			return fmt.Errorf("encode turn parts: %w", err)
		}

		var img interface{}
		if rec.Image != "" {
			img = rec.Image
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_turns (session_id, seq, role, parts_json, img) VALUES (?, ?, ?, ?, ?)`,
			sessionID, firstSeq+int64(i), string(rec.Role), string(partsJSON), img,
		); err != nil {
			return fmt.Errorf("insert turn: %w", err)
		}
	}
	return nil
}

func insertSummary(ctx context.Context, tx *sql.Tx, ownerID string, seq int64, summary domain.SessionSummary) error {
	createdAt := summary.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_chat_entries (owner_id, seq, session_id, title, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (owner_id, session_id) DO NOTHING`,
		ownerID, seq, summary.ID, summary.Title, createdAt.UnixMilli(),
	); err != nil {
		return fmt.Errorf("insert index entry: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var session domain.Session
	var createdAt, updatedAt int64
	if err := row.Scan(&session.ID, &session.OwnerID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	session.CreatedAt = time.UnixMilli(createdAt).UTC()
	session.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &session, nil
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		slog.Warn("failed to close rows", "error", err)
	}
}

// classify passes domain outcomes through and marks everything else as a storage failure.
func classify(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrAlreadyExists) {
		return err
	}
	return domain.NewStorageError(op, err)
}
