// Package journal keeps a local SQLite record of accepted submissions.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sistema-agil/vistoria/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS submissions (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id      TEXT NOT NULL,
	kind            TEXT NOT NULL,
	remote_id       TEXT NOT NULL DEFAULT '',
	token           TEXT NOT NULL DEFAULT '',
	url             TEXT NOT NULL DEFAULT '',
	placa           TEXT NOT NULL DEFAULT '',
	modelo          TEXT NOT NULL DEFAULT '',
	nome_cliente    TEXT NOT NULL DEFAULT '',
	nome_conferente TEXT NOT NULL DEFAULT '',
	photos          INTEGER NOT NULL DEFAULT 0,
	has_document    INTEGER NOT NULL DEFAULT 0,
	media_bytes     INTEGER NOT NULL DEFAULT 0,
	submitted_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_submissions_submitted_at ON submissions(submitted_at);
`

// fixed width so that text ordering matches time ordering
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type Journal struct {
	db *sql.DB
}

// Open opens or creates the journal at path. ":memory:" is accepted.
func Open(path string) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// a single connection keeps ":memory:" databases coherent
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Record implements the wizard's recorder.
func (j *Journal) Record(ctx context.Context, r models.Receipt) error {
	if r.SubmittedAt.IsZero() {
		r.SubmittedAt = time.Now()
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO submissions (session_id, kind, remote_id, token, url, placa, modelo,
			nome_cliente, nome_conferente, photos, has_document, media_bytes, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SessionID, string(r.Kind), r.RemoteID, r.Token, r.URL, r.Placa, r.Modelo,
		r.NomeCliente, r.NomeConferente, r.Photos, r.HasDocument, r.MediaBytes,
		r.SubmittedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to record submission: %w", err)
	}
	slog.Debug("Submission recorded", "session_id", r.SessionID, "kind", r.Kind, "token", r.Token)
	return nil
}

// List returns the most recent receipts first. limit <= 0 returns all.
func (j *Journal) List(ctx context.Context, limit int) ([]models.Receipt, error) {
	query := `SELECT session_id, kind, remote_id, token, url, placa, modelo, nome_cliente,
		nome_conferente, photos, has_document, media_bytes, submitted_at
		FROM submissions ORDER BY submitted_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var out []models.Receipt
	for rows.Next() {
		var (
			r         models.Receipt
			kind      string
			submitted string
		)
		if err := rows.Scan(&r.SessionID, &kind, &r.RemoteID, &r.Token, &r.URL, &r.Placa, &r.Modelo,
			&r.NomeCliente, &r.NomeConferente, &r.Photos, &r.HasDocument, &r.MediaBytes, &submitted); err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}
		r.Kind = models.ReceiptKind(kind)
		r.SubmittedAt, err = time.Parse(timeLayout, submitted)
		if err != nil {
			return nil, fmt.Errorf("failed to parse submitted_at %q: %w", submitted, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	return out, nil
}
