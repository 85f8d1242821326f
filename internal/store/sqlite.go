package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/advisor-api/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS history (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	inputs        TEXT NOT NULL,
	results       TEXT NOT NULL,
	chat_messages TEXT NOT NULL DEFAULT '[]',
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_history_user ON history(user_id);
CREATE INDEX IF NOT EXISTS idx_history_user_created ON history(user_id, created_at DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) AddHistory(ctx context.Context, userID string, inputs model.HistoryInputs, results model.HistoryResults) (*model.HistoryEntry, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	inputsJSON, err := json.Marshal(inputs)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal inputs")
	}
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal results")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO history (id, user_id, inputs, results, chat_messages, created_at) VALUES (?, ?, ?, ?, '[]', ?)`,
		id, userID, string(inputsJSON), string(resultsJSON), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert history")
	}

	return &model.HistoryEntry{
		ID:           id,
		UserID:       userID,
		CreatedAt:    now,
		Inputs:       inputs,
		Results:      results,
		ChatMessages: []model.ChatMessage{},
	}, nil
}

func (s *SQLiteStore) GetHistory(ctx context.Context, id string) (*model.HistoryEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, inputs, results, chat_messages, created_at FROM history WHERE id = ?`,
		id,
	)
	return scanHistory(row)
}

func (s *SQLiteStore) ListHistory(ctx context.Context, userID string) ([]model.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, inputs, results, chat_messages, created_at FROM history WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list history")
	}
	defer rows.Close()

	var entries []model.HistoryEntry
	for rows.Next() {
		entry, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: iterate history")
}

// ReplaceChatMessages overwrites the stored chat thread with msgs. This is
// deliberately last-write-wins; see the Store doc comment.
func (s *SQLiteStore) ReplaceChatMessages(ctx context.Context, id string, msgs []model.ChatMessage) error {
	if msgs == nil {
		msgs = []model.ChatMessage{}
	}
	msgsJSON, err := json.Marshal(msgs)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal chat messages")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE history SET chat_messages = ? WHERE id = ?`,
		string(msgsJSON), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update chat messages %s", id)
	}
	return checkRowsAffected(res)
}

func (s *SQLiteStore) DeleteHistory(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete history %s", id)
	}
	return checkRowsAffected(res)
}

func (s *SQLiteStore) DeleteAllHistory(ctx context.Context, userID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE user_id = ?`, userID)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: delete all history for %s", userID)
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// helpers

func checkRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanHistory(row scannable) (*model.HistoryEntry, error) {
	var e model.HistoryEntry
	var inputsJSON, resultsJSON, msgsJSON string

	err := row.Scan(&e.ID, &e.UserID, &inputsJSON, &resultsJSON, &msgsJSON, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan history")
	}

	if err := json.Unmarshal([]byte(inputsJSON), &e.Inputs); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal inputs")
	}
	if err := json.Unmarshal([]byte(resultsJSON), &e.Results); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal results")
	}
	if err := json.Unmarshal([]byte(msgsJSON), &e.ChatMessages); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal chat messages")
	}
	return &e, nil
}
