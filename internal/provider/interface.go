package provider

import (
	"context"
	"fmt"
)

// Record is a scheduled task as the provider returns it. Every field the
// provider sends is kept, including ones this service does not know about.
type Record map[string]any

// ID returns the task identifier, or "" when the record carries none.
func (r Record) ID() string {
	switch v := r["id"].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	}
	return ""
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Page is one page of the task listing.
type Page struct {
	Items []Record
	// Envelope holds the other fields of an object response. Nil when the
	// provider returned a bare array.
	Envelope map[string]any
	// ItemsKey is the envelope key the items were found under.
	ItemsKey string
}

// Body rebuilds the provider response with items replaced by p.Items.
func (p *Page) Body() any {
	if p.Envelope == nil {
		return p.Items
	}
	out := make(map[string]any, len(p.Envelope)+1)
	for k, v := range p.Envelope {
		out[k] = v
	}
	out[p.ItemsKey] = p.Items
	return out
}

// Last reports whether page is the final page of the listing.
func (p *Page) Last(page, limit int) bool {
	if p.Envelope != nil {
		if total, ok := p.Envelope["total_pages"].(float64); ok {
			return float64(page) >= total
		}
		if more, ok := p.Envelope["has_more"].(bool); ok {
			return !more
		}
	}
	return len(p.Items) < limit
}

// ReportsEmpty reports whether the envelope states that the listing has no
// tasks at all. A bare array never does.
func (p *Page) ReportsEmpty() bool {
	if p.Envelope == nil {
		return false
	}
	for _, key := range []string{"total", "total_count", "total_items", "count", "total_pages"} {
		if n, ok := p.Envelope[key].(float64); ok {
			return n == 0
		}
	}
	return false
}

// Client defines the scheduled-task endpoints of the provider API.
type Client interface {
	// GetTask fetches one task.
	GetTask(ctx context.Context, id string) (Record, error)

	// CreateTask submits a new task and returns the provider's record of it.
	CreateTask(ctx context.Context, payload any) (Record, error)

	// UpdateTask applies a partial update and returns the updated record.
	UpdateTask(ctx context.Context, id string, payload any) (Record, error)

	// DeleteTask removes a task and returns whatever the provider answered.
	DeleteTask(ctx context.Context, id string) (any, error)

	// ListTasks returns one page of tasks.
	ListTasks(ctx context.Context, page, limit int) (*Page, error)
}
