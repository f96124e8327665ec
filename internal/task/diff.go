package task

import (
	"encoding/json"
	"math"

	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/pkg/timestamp"
)

// Diff returns the considered fields of desired that differ from current.
// Fields desired leaves out are never part of the result, and fields outside
// the considered set (overlay settings, metadata) are never diffed.
func Diff(current, desired Payload) Payload {
	var out Payload

	out.Task = changed(current.Task, desired.Task)
	out.ScheduleType = changed(current.ScheduleType, desired.ScheduleType)
	out.IntervalMinutes = changed(current.IntervalMinutes, desired.IntervalMinutes)
	out.CronExpression = changed(current.CronExpression, desired.CronExpression)
	out.IsActive = changed(current.IsActive, desired.IsActive)
	out.UseAdblock = changed(current.UseAdblock, desired.UseAdblock)
	out.UseProxy = changed(current.UseProxy, desired.UseProxy)
	out.HighlightElements = changed(current.HighlightElements, desired.HighlightElements)
	out.LLMModel = changed(current.LLMModel, desired.LLMModel)
	out.SaveBrowserData = changed(current.SaveBrowserData, desired.SaveBrowserData)
	out.StructuredOutputJSON = changedJSON(current.StructuredOutputJSON, desired.StructuredOutputJSON)

	if !desired.StartAt.IsZero() && !desired.StartAt.Equal(current.StartAt) {
		out.StartAt = desired.StartAt
	}
	if !desired.EndAt.IsZero() && !desired.EndAt.Equal(current.EndAt) {
		out.EndAt = desired.EndAt
	}
	return out
}

func changed[T comparable](current, desired *T) *T {
	if desired == nil {
		return nil
	}
	if current != nil && *current == *desired {
		return nil
	}
	return desired
}

// changedJSON compares two JSON documents structurally, so formatting
// differences alone do not count as a change.
func changedJSON(current, desired *string) *string {
	if desired == nil {
		return nil
	}
	if current == nil {
		return desired
	}
	if *current == *desired {
		return nil
	}
	var a, b any
	if json.Unmarshal([]byte(*current), &a) != nil || json.Unmarshal([]byte(*desired), &b) != nil {
		return desired
	}
	ra, _ := json.Marshal(a)
	rb, _ := json.Marshal(b)
	if string(ra) == string(rb) {
		return nil
	}
	return desired
}

// CurrentFromRecord reads the considered fields out of a provider record.
// Values of an unexpected type are treated as absent, which makes Diff send them.
func CurrentFromRecord(rec map[string]any) Payload {
	var p Payload

	p.Task = recordString(rec, "task")
	if st := recordString(rec, "schedule_type"); st != nil {
		t := ScheduleType(*st)
		p.ScheduleType = &t
	}
	if v, ok := rec["interval_minutes"].(float64); ok && v == math.Trunc(v) {
		n := int(v)
		p.IntervalMinutes = &n
	}
	p.CronExpression = recordString(rec, "cron_expression")
	p.StartAt, _ = timestamp.Normalize(rec["start_at"])
	p.EndAt, _ = timestamp.Normalize(rec["end_at"])
	p.IsActive = recordBool(rec, "is_active")
	p.UseAdblock = recordBool(rec, "use_adblock")
	p.UseProxy = recordBool(rec, "use_proxy")
	p.HighlightElements = recordBool(rec, "highlight_elements")
	p.LLMModel = recordString(rec, "llm_model")
	p.SaveBrowserData = recordBool(rec, "save_browser_data")

	switch v := rec["structured_output_json"].(type) {
	case string:
		p.StructuredOutputJSON = &v
	case map[string]any, []any:
		if raw, err := json.Marshal(v); err == nil {
			p.StructuredOutputJSON = ptr(string(raw))
		}
	}
	return p
}

func recordString(rec map[string]any, key string) *string {
	if v, ok := rec[key].(string); ok {
		return &v
	}
	return nil
}

func recordBool(rec map[string]any, key string) *bool {
	if v, ok := rec[key].(bool); ok {
		return &v
	}
	return nil
}
