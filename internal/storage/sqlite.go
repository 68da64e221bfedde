package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/rewired-gh/credscore/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS scoring_runs (
	run_id      TEXT PRIMARY KEY,
	started_at  TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	wallets     INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS wallet_scores (
	user_wallet  TEXT PRIMARY KEY,
	credit_score INTEGER NOT NULL,
	score_rank   INTEGER NOT NULL,
	run_id       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_wallet_scores_rank ON wallet_scores(score_rank);
`

// ScoreDB is a SQLite copy of the latest scores. wallet_scores always holds
// exactly the scores of the most recent run; scoring_runs keeps every run.
type ScoreDB struct {
	db *sql.DB
}

// RunInfo describes a scoring run as recorded in the database.
type RunInfo struct {
	ID        uuid.UUID
	StartedAt time.Time
	Duration  time.Duration
	Wallets   int
}

// OpenScoreDB opens (creating if needed) the database at path.
func OpenScoreDB(path string, dirPermissions os.FileMode) (*ScoreDB, error) {
	if dirPermissions == 0 {
		dirPermissions = 0o755
	}
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Single writer; avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &ScoreDB{db: db}, nil
}

// Close closes the database.
func (d *ScoreDB) Close() error {
	return d.db.Close()
}

// ReplaceScores records run and replaces wallet_scores with ranked in one
// transaction. ranked must already be sorted; score_rank is its 1-based position.
func (d *ScoreDB) ReplaceScores(ctx context.Context, run RunInfo, ranked []models.ScoredWallet) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO scoring_runs(run_id, started_at, duration_ms, wallets) VALUES(?, ?, ?, ?)",
		run.ID.String(), run.StartedAt.UTC().Format(time.RFC3339Nano), run.Duration.Milliseconds(), len(ranked),
	); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM wallet_scores"); err != nil {
		return fmt.Errorf("failed to clear previous scores: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO wallet_scores(user_wallet, credit_score, score_rank, run_id) VALUES(?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, s := range ranked {
		if _, err := stmt.ExecContext(ctx, s.UserWallet, s.CreditScore, i+1, run.ID.String()); err != nil {
			return fmt.Errorf("failed to insert score for %s: %w", s.UserWallet, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scores: %w", err)
	}
	return nil
}

// TopScores returns up to limit wallets by rank.
func (d *ScoreDB) TopScores(ctx context.Context, limit int) ([]models.ScoredWallet, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT user_wallet, credit_score FROM wallet_scores ORDER BY score_rank LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scores: %w", err)
	}
	defer rows.Close()

	scores := []models.ScoredWallet{}
	for rows.Next() {
		var s models.ScoredWallet
		if err := rows.Scan(&s.UserWallet, &s.CreditScore); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

// Runs returns every recorded run, oldest first.
func (d *ScoreDB) Runs(ctx context.Context) ([]RunInfo, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT run_id, started_at, duration_ms, wallets FROM scoring_runs ORDER BY started_at")
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var (
			id, started string
			ms          int64
			r           RunInfo
		)
		if err := rows.Scan(&id, &started, &ms, &r.Wallets); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid run id %q: %w", id, err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("invalid run start %q: %w", started, err)
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
