package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store on a single kv table.
type SQLiteStore struct {
	db     *sql.DB
	ownsDB bool

	getOne    *sql.Stmt
	upsert    *sql.Stmt
	insertLog *sql.Stmt
}

// AuditEntry is one row of the audit log.
type AuditEntry struct {
	Action string `json:"action"`
	Detail string `json:"detail"`
	TS     string `json:"ts"`
}

// Auditor is implemented by stores that keep a log of destructive actions.
type Auditor interface {
	Audit(ctx context.Context, action, detail string) error
}

// OpenSQLite opens (creating if needed) the database at path, migrates it and
// returns a store that closes the database on Close.
func OpenSQLite(path, journalMode string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// All writes are serialized by the coordinator; one connection also keeps
	// ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	if err := NewMigrationRunnerWithJournal(db, journalMode).Run(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	s, err := NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.ownsDB = true
	return s, nil
}

// NewSQLiteStore wraps an already migrated database. The caller keeps
// ownership of db.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.getOne, err = s.db.Prepare(`SELECT value FROM kv WHERE key = ?`)
	if err != nil {
		return err
	}
	s.upsert, err = s.db.Prepare(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`)
	if err != nil {
		return err
	}
	s.insertLog, err = s.db.Prepare(`INSERT INTO audit_log (action, detail) VALUES (?, ?)`)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage)

	if len(keys) == 0 {
		rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM kv`)
		if err != nil {
			return nil, fmt.Errorf("query kv: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var k string
			var v []byte
			if err := rows.Scan(&k, &v); err != nil {
				return nil, fmt.Errorf("scan kv: %w", err)
			}
			out[k] = v
		}
		return out, rows.Err()
	}

	for _, k := range keys {
		var v []byte
		err := s.getOne.QueryRowContext(ctx, k).Scan(&v)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

func (s *SQLiteStore) Set(ctx context.Context, items map[string]json.RawMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt := tx.StmtContext(ctx, s.upsert)
	for k, v := range items {
		if _, err := stmt.ExecContext(ctx, k, []byte(v)); err != nil {
			return fmt.Errorf("set %s: %w", k, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv`); err != nil {
		return fmt.Errorf("clear kv: %w", err)
	}
	return nil
}

func (s *SQLiteStore) BytesInUse(ctx context.Context) (int64, error) {
	var n sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT SUM(LENGTH(CAST(key AS BLOB)) + LENGTH(value)) FROM kv`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("bytes in use: %w", err)
	}
	return n.Int64, nil
}

// Audit appends an entry to the audit log.
func (s *SQLiteStore) Audit(ctx context.Context, action, detail string) error {
	if _, err := s.insertLog.ExecContext(ctx, action, detail); err != nil {
		return fmt.Errorf("audit %s: %w", action, err)
	}
	return nil
}

// RecentAudit returns up to limit audit entries, newest first.
func (s *SQLiteStore) RecentAudit(ctx context.Context, limit int) ([]AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT action, detail, ts FROM audit_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	entries := []AuditEntry{}
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.Action, &e.Detail, &e.TS); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases prepared statements, and the database if OpenSQLite
// created it.
func (s *SQLiteStore) Close() error {
	var errs []string
	for _, stmt := range []*sql.Stmt{s.getOne, s.upsert, s.insertLog} {
		if stmt == nil {
			continue
		}
		if err := stmt.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if s.ownsDB {
		if err := s.db.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close: %s", strings.Join(errs, "; "))
	}
	return nil
}
