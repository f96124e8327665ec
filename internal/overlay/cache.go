package overlay

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Outcome is the result of a best-effort write. Callers log it and move on;
// a failed Outcome never fails the request that produced it.
type Outcome struct {
	Op     string
	TaskID string
	Err    error
}

// Failed reports whether the write did not reach the store.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Cache applies the best-effort policy on top of a Store: reads that fail
// behave like "nothing cached", writes report an Outcome instead of an error.
type Cache struct {
	store  Store
	logger *zap.Logger
}

// NewCache wraps store.
func NewCache(store Store, logger *zap.Logger) *Cache {
	return &Cache{store: store, logger: logger}
}

// Load returns the stored fields for a task, or nil when none are stored or
// the store failed. answered is false only when the store failed, so callers
// can tell "no row" apart from "unknown".
func (c *Cache) Load(ctx context.Context, taskID string) (fields *Fields, answered bool) {
	f, err := c.store.Get(ctx, taskID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, true
		}
		c.logger.Warn("Overlay read failed", zap.String("task_id", taskID), zap.Error(err))
		return nil, false
	}
	return f, true
}

// LoadMany returns the stored fields for every id that has a row.
// answered is false when the store failed and the map is empty for that reason.
func (c *Cache) LoadMany(ctx context.Context, taskIDs []string) (rows map[string]Fields, answered bool) {
	if len(taskIDs) == 0 {
		return map[string]Fields{}, true
	}
	rows, err := c.store.GetMany(ctx, taskIDs)
	if err != nil {
		c.logger.Warn("Overlay batch read failed", zap.Int("count", len(taskIDs)), zap.Error(err))
		return map[string]Fields{}, false
	}
	return rows, true
}

// All returns every stored row. Unlike the other reads it surfaces the error,
// since callers use it to decide what to prune.
func (c *Cache) All(ctx context.Context) (map[string]Fields, error) {
	return c.store.List(ctx)
}

// Save upserts the fields for a task.
func (c *Cache) Save(ctx context.Context, taskID string, fields Fields) Outcome {
	out := Outcome{Op: "upsert", TaskID: taskID, Err: c.store.Upsert(ctx, taskID, fields)}
	c.report(out)
	return out
}

// Remove deletes the row for a task.
func (c *Cache) Remove(ctx context.Context, taskID string) Outcome {
	out := Outcome{Op: "delete", TaskID: taskID, Err: c.store.Delete(ctx, taskID)}
	c.report(out)
	return out
}

func (c *Cache) report(o Outcome) {
	if !o.Failed() {
		return
	}
	c.logger.Warn("Overlay write failed, keeping provider state as source of truth",
		zap.String("op", o.Op),
		zap.String("task_id", o.TaskID),
		zap.Error(o.Err),
	)
}
