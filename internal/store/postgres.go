package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/advisor-api/internal/db"
	"github.com/sells-group/advisor-api/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_history":     `INSERT INTO history (id, user_id, inputs, results, chat_messages, created_at) VALUES ($1, $2, $3, $4, '[]', $5)`,
	"get_history":        `SELECT id, user_id, inputs, results, chat_messages, created_at FROM history WHERE id = $1`,
	"list_history":       `SELECT id, user_id, inputs, results, chat_messages, created_at FROM history WHERE user_id = $1 ORDER BY created_at DESC`,
	"replace_chat":       `UPDATE history SET chat_messages = $1 WHERE id = $2`,
	"delete_history":     `DELETE FROM history WHERE id = $1`,
	"delete_all_history": `DELETE FROM history WHERE user_id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS history (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id       TEXT NOT NULL,
	inputs        JSONB NOT NULL,
	results       JSONB NOT NULL,
	chat_messages JSONB NOT NULL DEFAULT '[]',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_history_user ON history(user_id);
CREATE INDEX IF NOT EXISTS idx_history_user_created ON history(user_id, created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) AddHistory(ctx context.Context, userID string, inputs model.HistoryInputs, results model.HistoryResults) (*model.HistoryEntry, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	inputsJSON, err := json.Marshal(inputs)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal inputs")
	}
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal results")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO history (id, user_id, inputs, results, chat_messages, created_at) VALUES ($1, $2, $3, $4, '[]', $5)`,
		id, userID, inputsJSON, resultsJSON, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert history")
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

func (s *PostgresStore) GetHistory(ctx context.Context, id string) (*model.HistoryEntry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, inputs, results, chat_messages, created_at FROM history WHERE id = $1`,
		id,
	)
	return scanPgHistory(row)
}

func (s *PostgresStore) ListHistory(ctx context.Context, userID string) ([]model.HistoryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, inputs, results, chat_messages, created_at FROM history WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list history")
	}
	defer rows.Close()

	var entries []model.HistoryEntry
	for rows.Next() {
		entry, err := scanPgHistory(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: iterate history")
}

// ReplaceChatMessages overwrites the stored chat thread with msgs. This is
// deliberately last-write-wins; see the Store doc comment.
func (s *PostgresStore) ReplaceChatMessages(ctx context.Context, id string, msgs []model.ChatMessage) error {
	if msgs == nil {
		msgs = []model.ChatMessage{}
	}
	msgsJSON, err := json.Marshal(msgs)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal chat messages")
	}

	tag, err := s.pool.Exec(ctx, `UPDATE history SET chat_messages = $1 WHERE id = $2`, msgsJSON, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: update chat messages %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteHistory(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM history WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete history %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteAllHistory(ctx context.Context, userID string) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM history WHERE user_id = $1`, userID)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: delete all history for %s", userID)
	}
	return int(tag.RowsAffected()), nil
}

func scanPgHistory(row pgx.Row) (*model.HistoryEntry, error) {
	var e model.HistoryEntry
	var inputsJSON, resultsJSON, msgsJSON []byte

	err := row.Scan(&e.ID, &e.UserID, &inputsJSON, &resultsJSON, &msgsJSON, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan history")
	}

	if err := json.Unmarshal(inputsJSON, &e.Inputs); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal inputs")
	}
	if err := json.Unmarshal(resultsJSON, &e.Results); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal results")
	}
	if err := json.Unmarshal(msgsJSON, &e.ChatMessages); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal chat messages")
	}
	return &e, nil
}
