// Package store persists per-user analysis history.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/advisor-api/internal/model"
)

// ErrNotFound is returned when no history entry exists for the given id.
var ErrNotFound = eris.New("history entry not found")

// Store defines the persistence interface for analysis history. Chat
// messages are replaced wholesale: the store performs no merge, so the last
// writer wins when two clients race on the same entry.
type Store interface {
	AddHistory(ctx context.Context, userID string, inputs model.HistoryInputs, results model.HistoryResults) (*model.HistoryEntry, error)
	GetHistory(ctx context.Context, id string) (*model.HistoryEntry, error)
	ListHistory(ctx context.Context, userID string) ([]model.HistoryEntry, error)
	ReplaceChatMessages(ctx context.Context, id string, msgs []model.ChatMessage) error
	DeleteHistory(ctx context.Context, id string) error
	DeleteAllHistory(ctx context.Context, userID string) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
