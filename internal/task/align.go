package task

import (
	"time"

	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/pkg/timestamp"
)

const (
	// MinStartLead is how far in the future an interval start must be to be kept as sent.
	MinStartLead = 30 * time.Second
	// StartSafetyOffset is added past the minute boundary so the first run
	// survives network transit.
	StartSafetyOffset = 15 * time.Second
	// StaleGrace is the window within which a computed next run counts as already elapsed.
	StaleGrace = 5 * time.Second
)

// Align makes an interval create payload safe to submit: the first run is in
// the future and the window fits at least one run. Cron payloads are left alone.
func Align(p *Payload, now time.Time) error {
	if !p.IsInterval() {
		return nil
	}
	if p.IntervalMinutes == nil || *p.IntervalMinutes < 1 {
		return invalid("interval_minutes", "interval_minutes must be at least 1 for interval schedules")
	}

	if p.StartAt.IsZero() || p.StartAt.Before(now.Add(MinStartLead)) {
		p.StartAt = AlignedStart(now)
	}
	p.EndAt = alignEnd(p.StartAt, p.EndAt, *p.IntervalMinutes)
	return nil
}

// AlignedStart returns the next whole minute after now plus the safety
// offset, moved one more minute when that would fall inside MinStartLead.
// The result is always within [now+30s, now+90s].
func AlignedStart(now time.Time) timestamp.Instant {
	start := now.Truncate(time.Minute).Add(time.Minute).Add(StartSafetyOffset)
	if start.Before(now.Add(MinStartLead)) {
		start = start.Add(time.Minute)
	}
	return timestamp.Of(start)
}

// NextRunStale reports whether a provider computed next run has already
// elapsed, or is about to.
func NextRunStale(next timestamp.Instant, now time.Time) bool {
	if next.IsZero() {
		return false
	}
	return !next.After(now.Add(StaleGrace))
}

// Realign builds the corrective update for a task whose first run came back
// stale: a fresh start and, when the window became too narrow, a wider end.
func Realign(p Payload, now time.Time) Payload {
	fix := Payload{StartAt: AlignedStart(now)}
	if p.IntervalMinutes != nil && !p.EndAt.IsZero() {
		end := alignEnd(fix.StartAt, p.EndAt, *p.IntervalMinutes)
		if !end.Equal(p.EndAt) {
			fix.EndAt = end
		}
	}
	return fix
}

func alignEnd(start, end timestamp.Instant, intervalMinutes int) timestamp.Instant {
	if end.IsZero() {
		return end
	}
	interval := time.Duration(intervalMinutes) * time.Minute
	if end.Sub(start.Time) < interval+time.Minute {
		return timestamp.Of(start.Add(2 * interval))
	}
	return end
}
