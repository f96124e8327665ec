package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/config"
	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/overlay"
	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/pkg/timestamp"
	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/provider"
	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/task"
)

// Orchestrator runs the create/read/update/delete cycle for scheduled tasks
// against the provider and keeps the local overlay in step with it.
type Orchestrator struct {
	provider provider.Client
	overlays *overlay.Cache
	logger   *zap.Logger
	now      func() time.Time
	pageSize int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock replaces time.Now. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithPageSize sets the page size Resync lists the provider with.
func WithPageSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

// New creates an Orchestrator.
func New(client provider.Client, overlays *overlay.Cache, logger *zap.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider: client,
		overlays: overlays,
		logger:   logger,
		now:      time.Now,
		pageSize: 50,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Create validates input, aligns its schedule, submits it and stores the overlay fields.
func (o *Orchestrator) Create(ctx context.Context, input map[string]any) (provider.Record, error) {
	s, err := task.Sanitize(input, task.ModeCreate)
	if err != nil {
		return nil, err
	}
	if err := task.Align(&s.Payload, o.now()); err != nil {
		return nil, err
	}

	// an in-flight write is finished even if the caller goes away
	wctx := context.WithoutCancel(ctx)

	rec, err := o.provider.CreateTask(wctx, s.Payload)
	if err != nil {
		return nil, err
	}
	timestamp.NormalizeRecord(rec)
	id := rec.ID()

	if s.Payload.IsInterval() && id != "" {
		rec = o.correctStaleRun(wctx, id, s.Payload, rec)
	}

	fields := s.Overlay.Clone()
	fields.EnforceProxy(proxyEnabled(rec, s.Payload.UseProxy))
	if id == "" {
		o.logger.Warn("Provider returned a task without id, overlay not stored")
	} else {
		o.overlays.Save(wctx, id, fields)
	}

	o.logger.Info("Scheduled task created",
		zap.String("task_id", id),
		zap.Strings("fields", s.Payload.Keys()),
	)
	return Merge(rec, &fields), nil
}

// correctStaleRun issues the single corrective update when the provider computed
// a first run that has already elapsed, then re-reads the task. A second stale
// value is returned as is.
func (o *Orchestrator) correctStaleRun(ctx context.Context, id string, sent task.Payload, rec provider.Record) provider.Record {
	next, _ := timestamp.Normalize(rec["next_run_at"])
	if !task.NextRunStale(next, o.now()) {
		return rec
	}

	fix := task.Realign(sent, o.now())
	o.logger.Info("Provider computed an elapsed first run, realigning",
		zap.String("task_id", id),
		zap.String("next_run_at", next.String()),
		zap.String("start_at", fix.StartAt.String()),
	)

	updated, err := o.provider.UpdateTask(ctx, id, fix)
	if err != nil {
		o.logger.Warn("Corrective update failed", zap.String("task_id", id), zap.Error(err))
		return rec
	}
	fresh, err := o.provider.GetTask(ctx, id)
	if err != nil {
		o.logger.Warn("Re-read after corrective update failed", zap.String("task_id", id), zap.Error(err))
		fresh = updated
	}
	timestamp.NormalizeRecord(fresh)
	return fresh
}

// Get reads one task and merges its overlay. A task seen for the first time
// gets an overlay row seeded from the record.
func (o *Orchestrator) Get(ctx context.Context, id string) (provider.Record, error) {
	rec, err := o.provider.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	timestamp.NormalizeRecord(rec)

	fields, answered := o.overlays.Load(ctx, id)
	if fields == nil && answered {
		seeded := overlay.FromRecord(rec)
		o.overlays.Save(context.WithoutCancel(ctx), id, seeded)
		fields = &seeded
	}
	return Merge(rec, fields), nil
}

// Update sends only what changed. When the current state cannot be read the
// full sanitized payload is sent instead. A rejected update is retried once
// with the minimal payload.
func (o *Orchestrator) Update(ctx context.Context, id string, input map[string]any) (provider.Record, error) {
	s, err := task.Sanitize(input, task.ModeUpdate)
	if err != nil {
		return nil, err
	}

	current, err := o.provider.GetTask(ctx, id)
	if errors.Is(err, config.ErrMissingCredential) {
		return nil, err
	}
	if err != nil {
		o.logger.Warn("Could not read current task, sending full payload",
			zap.String("task_id", id),
			zap.Error(err),
		)
		current = nil
	} else {
		timestamp.NormalizeRecord(current)
	}

	payload := s.Payload
	if current != nil {
		enabled := proxyEnabled(current, nil)
		if s.Payload.UseProxy != nil {
			enabled = *s.Payload.UseProxy
		}
		if !enabled {
			s.Overlay.ProxyCountryCode = nil
		}
		payload = task.Diff(task.CurrentFromRecord(current), s.Payload)
	}

	wctx := context.WithoutCancel(ctx)
	rec := current
	if current == nil || !payload.IsEmpty() {
		rec, err = o.send(wctx, id, payload)
		if err != nil {
			return nil, err
		}
		timestamp.NormalizeRecord(rec)
	} else {
		o.logger.Debug("Update is a no-op for the provider", zap.String("task_id", id))
	}

	fields := o.applyOverlay(wctx, id, rec, s)

	o.logger.Info("Scheduled task updated",
		zap.String("task_id", id),
		zap.Strings("fields", payload.Keys()),
		zap.Bool("degraded", current == nil),
	)
	return Merge(rec, fields), nil
}

// send issues the update and, if the provider rejects it, one retry with the minimal payload.
func (o *Orchestrator) send(ctx context.Context, id string, payload task.Payload) (provider.Record, error) {
	rec, err := o.provider.UpdateTask(ctx, id, payload)
	if err == nil {
		return rec, nil
	}

	var perr *provider.Error
	if !errors.As(err, &perr) || !perr.Retryable() {
		return nil, err
	}
	minimal := payload.Minimal()
	if minimal.IsEmpty() || len(minimal.Keys()) == len(payload.Keys()) {
		return nil, err
	}

	o.logger.Warn("Provider rejected update, retrying with minimal payload",
		zap.String("task_id", id),
		zap.Int("status", perr.StatusCode),
		zap.Strings("fields", minimal.Keys()),
	)
	rec, retryErr := o.provider.UpdateTask(ctx, id, minimal)
	if retryErr != nil {
		return nil, fmt.Errorf("minimal update retry: %w", retryErr)
	}
	return rec, nil
}

// applyOverlay folds the update's overlay fields into the stored row.
func (o *Orchestrator) applyOverlay(ctx context.Context, id string, rec provider.Record, s *task.Sanitized) *overlay.Fields {
	existing, answered := o.overlays.Load(ctx, id)

	var base overlay.Fields
	switch {
	case existing != nil:
		base = *existing
	case answered:
		base = overlay.FromRecord(rec)
	}
	next := base.Apply(s.Overlay)
	dropped := next.EnforceProxy(proxyEnabled(rec, s.Payload.UseProxy))

	switch {
	case !answered && !s.Overlay.IsEmpty():
		// writing the patch alone would replace the unread row
		o.logger.Warn("Overlay store unavailable, update not persisted locally", zap.String("task_id", id))
	case answered && (existing == nil || dropped || !s.Overlay.IsEmpty()):
		o.overlays.Save(ctx, id, next)
	}
	return &next
}

// Delete removes the task from the provider, then its overlay row.
func (o *Orchestrator) Delete(ctx context.Context, id string) (any, error) {
	wctx := context.WithoutCancel(ctx)
	body, err := o.provider.DeleteTask(wctx, id)
	if err != nil {
		return nil, err
	}
	o.overlays.Remove(wctx, id)

	o.logger.Info("Scheduled task deleted", zap.String("task_id", id))
	if body == nil {
		return map[string]any{"id": id, "deleted": true}, nil
	}
	return body, nil
}

// List returns one page of tasks merged with their overlays, seeding rows for
// tasks seen for the first time.
func (o *Orchestrator) List(ctx context.Context, page, limit int) (*provider.Page, error) {
	p, err := o.provider.ListTasks(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	p.Items, _ = o.mergePage(ctx, p.Items)
	return p, nil
}

// mergePage merges overlays into records and seeds missing rows. It returns
// the merged records and how many rows were seeded.
func (o *Orchestrator) mergePage(ctx context.Context, items []provider.Record) ([]provider.Record, int) {
	ids := make([]string, 0, len(items))
	for _, rec := range items {
		if id := rec.ID(); id != "" {
			ids = append(ids, id)
		}
	}
	rows, answered := o.overlays.LoadMany(ctx, ids)

	wctx := context.WithoutCancel(ctx)
	seeded := 0
	merged := make([]provider.Record, 0, len(items))
	for _, rec := range items {
		id := rec.ID()
		if fields, ok := rows[id]; ok {
			merged = append(merged, Merge(rec, &fields))
			continue
		}
		if id == "" || !answered {
			merged = append(merged, Merge(rec, nil))
			continue
		}
		fields := overlay.FromRecord(rec)
		if !o.overlays.Save(wctx, id, fields).Failed() {
			seeded++
		}
		merged = append(merged, Merge(rec, &fields))
	}
	return merged, seeded
}
