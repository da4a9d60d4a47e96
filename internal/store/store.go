package store

import (
	"context"
	"errors"

	"gptodo/internal/models"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("not found")

// StateKey is the fixed key the client state is persisted under.
const StateKey = "gpt-todo/state"

// Store defines the interface for data persistence operations.
type Store interface {
	// Key-value operations
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error

	// Mutation log operations
	RecordMutation(ctx context.Context, record *models.MutationRecord) error
	ListMutations(ctx context.Context, status models.MutationStatus, limit int) ([]models.MutationRecord, error)

	// Lifecycle
	Close() error
}
