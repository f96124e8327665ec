package reconcile

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// maxResyncPages bounds a resync pass against a provider that never reports a last page.
const maxResyncPages = 1000

// SyncStats summarizes one Resync pass.
type SyncStats struct {
	Pages    int           `json:"pages"`
	Seen     int           `json:"seen"`
	Seeded   int           `json:"seeded"`
	Pruned   int           `json:"pruned"`
	Complete bool          `json:"complete"`
	Duration time.Duration `json:"duration"`
}

// Resync walks the whole provider listing, seeds overlay rows for tasks that
// have none and, when the listing was complete, drops rows whose task is gone.
// An empty listing only prunes when the provider reports a total of zero.
func (o *Orchestrator) Resync(ctx context.Context) (SyncStats, error) {
	start := o.now()
	var stats SyncStats
	seen := make(map[string]struct{})

	// Only rows that existed before the walk may be pruned. A task created
	// meanwhile has a row but may sit on a page that was already listed.
	before, snapErr := o.overlays.All(ctx)
	emptyListing := false

	for page := 1; page <= maxResyncPages; page++ {
		p, err := o.provider.ListTasks(ctx, page, o.pageSize)
		if err != nil {
			stats.Duration = o.now().Sub(start)
			return stats, fmt.Errorf("resync page %d: %w", page, err)
		}
		stats.Pages++
		if page == 1 {
			emptyListing = len(p.Items) == 0 && p.ReportsEmpty()
		}

		fresh := 0
		for _, rec := range p.Items {
			id := rec.ID()
			if id == "" {
				continue
			}
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				fresh++
			}
		}
		_, seeded := o.mergePage(ctx, p.Items)
		stats.Seeded += seeded

		if p.Last(page, o.pageSize) || len(p.Items) == 0 {
			stats.Complete = true
			break
		}
		if fresh == 0 {
			// the provider is repeating itself; the listing cannot be trusted as complete
			o.logger.Warn("Provider listing repeated a page, stopping resync", zap.Int("page", page))
			break
		}
	}
	stats.Seen = len(seen)

	if snapErr != nil {
		stats.Duration = o.now().Sub(start)
		return stats, fmt.Errorf("resync list overlays: %w", snapErr)
	}
	if stats.Complete && len(seen) == 0 && len(before) > 0 && !emptyListing {
		o.logger.Warn("Provider listing came back empty without reporting zero tasks, not pruning",
			zap.Int("rows", len(before)),
		)
		stats.Complete = false
	}

	if stats.Complete {
		for id := range before {
			if _, ok := seen[id]; ok {
				continue
			}
			if !o.overlays.Remove(context.WithoutCancel(ctx), id).Failed() {
				stats.Pruned++
			}
		}
	}

	stats.Duration = o.now().Sub(start)
	o.logger.Info("Resync finished",
		zap.Int("pages", stats.Pages),
		zap.Int("seen", stats.Seen),
		zap.Int("seeded", stats.Seeded),
		zap.Int("pruned", stats.Pruned),
		zap.Bool("complete", stats.Complete),
		zap.Duration("duration", stats.Duration),
	)
	return stats, nil
}
