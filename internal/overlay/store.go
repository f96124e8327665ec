package overlay

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Store.Get when no row exists for the task.
var ErrNotFound = errors.New("overlay not found")

// Store persists overlay fields keyed by provider task id.
// Upsert replaces the whole document for the id.
type Store interface {
	Get(ctx context.Context, taskID string) (*Fields, error)
	GetMany(ctx context.Context, taskIDs []string) (map[string]Fields, error)
	List(ctx context.Context) (map[string]Fields, error)
	Upsert(ctx context.Context, taskID string, fields Fields) error
	Delete(ctx context.Context, taskID string) error
}
