package task

import (
	"errors"
	"strings"
	"testing"
)

func intervalInput() map[string]any {
	return map[string]any{
		"task":             "  check the pricing page  ",
		"schedule_type":    "interval",
		"interval_minutes": float64(60),
	}
}

func TestSanitizeCreateRequiresTaskAndType(t *testing.T) {
	tests := []struct {
		name  string
		input map[string]any
		field string
	}{
		{"missing task", map[string]any{"schedule_type": "interval", "interval_minutes": float64(5)}, "task"},
		{"blank task", map[string]any{"task": "   ", "schedule_type": "interval", "interval_minutes": float64(5)}, "task"},
		{"missing schedule type", map[string]any{"task": "x", "interval_minutes": float64(5)}, "schedule_type"},
		{"unknown schedule type", map[string]any{"task": "x", "schedule_type": "weekly"}, "schedule_type"},
		{"cron without expression", map[string]any{"task": "x", "schedule_type": "cron"}, "cron_expression"},
		{"bad cron", map[string]any{"task": "x", "schedule_type": "cron", "cron_expression": "every day"}, "cron_expression"},
		{"zero interval", map[string]any{"task": "x", "schedule_type": "interval", "interval_minutes": float64(0)}, "interval_minutes"},
		{"fractional interval", map[string]any{"task": "x", "schedule_type": "interval", "interval_minutes": 1.5}, "interval_minutes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Sanitize(tt.input, ModeCreate)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("expected field %q, got %q (%s)", tt.field, verr.Field, verr.Reason)
			}
		})
	}
}

func TestSanitizeScheduleExclusivity(t *testing.T) {
	in := intervalInput()
	in["cron_expression"] = "0 * * * *"

	s, err := Sanitize(in, ModeCreate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Payload.CronExpression != nil {
		t.Errorf("cron_expression should be dropped for interval schedules")
	}
	if s.Payload.Task == nil || *s.Payload.Task != "check the pricing page" {
		t.Errorf("task should be trimmed, got %v", s.Payload.Task)
	}

	cronIn := map[string]any{
		"task":             "x",
		"schedule_type":    "CRON",
		"cron_expression":  " 0 9 * * 1-5 ",
		"interval_minutes": float64(10),
	}
	s, err = Sanitize(cronIn, ModeCreate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Payload.IntervalMinutes != nil {
		t.Errorf("interval_minutes should be dropped for cron schedules")
	}
	if *s.Payload.CronExpression != "0 9 * * 1-5" {
		t.Errorf("cron_expression should be trimmed, got %q", *s.Payload.CronExpression)
	}

	_, err = Sanitize(map[string]any{"interval_minutes": float64(5), "cron_expression": "* * * * *"}, ModeUpdate)
	if err == nil {
		t.Errorf("update with both schedule fields and no type should fail")
	}
}

func TestSanitizeRanges(t *testing.T) {
	tests := []struct {
		name    string
		mode    Mode
		key     string
		value   any
		wantErr bool
	}{
		{"create viewport width floor", ModeCreate, "browser_viewport_width", float64(799), true},
		{"create viewport width ok", ModeCreate, "browser_viewport_width", float64(800), false},
		{"update viewport width floor", ModeUpdate, "browser_viewport_width", float64(320), false},
		{"update viewport width below", ModeUpdate, "browser_viewport_width", float64(319), true},
		{"viewport width ceiling", ModeUpdate, "browser_viewport_width", float64(3841), true},
		{"create viewport height floor", ModeCreate, "browser_viewport_height", float64(599), true},
		{"update viewport height ok", ModeUpdate, "browser_viewport_height", float64(240), false},
		{"steps zero", ModeCreate, "max_agent_steps", float64(0), true},
		{"steps max", ModeCreate, "max_agent_steps", float64(200), false},
		{"steps over", ModeUpdate, "max_agent_steps", float64(201), true},
		{"fps over", ModeCreate, "recording_fps", float64(61), true},
		{"fps ok", ModeCreate, "recording_fps", float64(30), false},
		{"quality enum", ModeCreate, "recording_quality", "ultra", true},
		{"quality ok", ModeCreate, "recording_quality", "High", false},
		{"resolution pattern", ModeCreate, "recording_resolution", "4k", true},
		{"resolution ok", ModeCreate, "recording_resolution", "1920x1080", false},
		{"llm enum", ModeCreate, "llm_model", "gpt-2", true},
		{"llm ok", ModeUpdate, "llm_model", "gpt-4o", false},
		{"proxy country enum", ModeUpdate, "proxy_country_code", "zz", true},
		{"structured output invalid", ModeUpdate, "structured_output_json", "{not json", true},
		{"structured output object", ModeUpdate, "structured_output_json", map[string]any{"type": "object"}, false},
		{"bool as string", ModeUpdate, "is_active", "false", false},
		{"bool wrong type", ModeUpdate, "is_active", float64(1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := map[string]any{tt.key: tt.value}
			if tt.mode == ModeCreate {
				in = intervalInput()
				in[tt.key] = tt.value
			}
			_, err := Sanitize(in, tt.mode)
			if tt.wantErr && err == nil {
				t.Errorf("expected error for %s=%v", tt.key, tt.value)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error for %s=%v: %v", tt.key, tt.value, err)
			}
		})
	}
}

func TestSanitizeMetadata(t *testing.T) {
	tooMany := map[string]any{}
	for i := 0; i < 11; i++ {
		tooMany[string(rune('a'+i))] = "v"
	}

	tests := []struct {
		name    string
		meta    any
		wantErr bool
	}{
		{"ok", map[string]any{"team": "growth"}, false},
		{"too many keys", tooMany, true},
		{"key too long", map[string]any{strings.Repeat("k", 101): "v"}, true},
		{"value too long", map[string]any{"k": strings.Repeat("v", 1001)}, true},
		{"non string value", map[string]any{"k": float64(1)}, true},
		{"not an object", "team=growth", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := intervalInput()
			in["metadata"] = tt.meta
			_, err := Sanitize(in, ModeCreate)
			if (err != nil) != tt.wantErr {
				t.Errorf("wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}

	s, err := Sanitize(map[string]any{"metadata": map[string]any{"k": "v"}}, ModeUpdate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Payload.Metadata != nil {
		t.Errorf("metadata must not be sent on update")
	}
}

func TestSanitizeProxyRule(t *testing.T) {
	in := intervalInput()
	in["proxy_country_code"] = "US"
	s, err := Sanitize(in, ModeCreate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Payload.ProxyCountryCode != nil || s.Overlay.ProxyCountryCode != nil {
		t.Errorf("proxy code must be dropped on create without use_proxy")
	}

	in["use_proxy"] = true
	s, err = Sanitize(in, ModeCreate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Payload.ProxyCountryCode == nil || *s.Payload.ProxyCountryCode != "us" {
		t.Errorf("expected proxy code us, got %v", s.Payload.ProxyCountryCode)
	}
	if s.Overlay.ProxyCountryCode == nil || *s.Overlay.ProxyCountryCode != "us" {
		t.Errorf("expected overlay proxy code us, got %v", s.Overlay.ProxyCountryCode)
	}

	s, err = Sanitize(map[string]any{"proxy_country_code": "de"}, ModeUpdate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Overlay.ProxyCountryCode == nil {
		t.Errorf("update without use_proxy keeps the code for a later check against the current task")
	}

	s, err = Sanitize(map[string]any{"proxy_country_code": "de", "use_proxy": false}, ModeUpdate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Overlay.ProxyCountryCode != nil || s.Payload.ProxyCountryCode != nil {
		t.Errorf("update with use_proxy=false must drop the proxy code")
	}
}

func TestSanitizeUpdateWireProjection(t *testing.T) {
	in := map[string]any{
		"allowed_domains":        []any{"example.com", " "},
		"browser_viewport_width": float64(1280),
		"enable_recording":       true,
		"secrets":                map[string]any{"token": "s"},
		"unknown_field":          "ignored",
	}
	s, err := Sanitize(in, ModeUpdate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	keys := strings.Join(s.Payload.Keys(), ",")
	if keys != "browser_viewport_width" {
		t.Errorf("unexpected update wire keys: %s", keys)
	}
	if len(s.Overlay.AllowedDomains) != 1 || s.Overlay.AllowedDomains[0] != "example.com" {
		t.Errorf("allowed_domains should be kept in the overlay, got %v", s.Overlay.AllowedDomains)
	}
	if s.Overlay.EnableRecording == nil || !*s.Overlay.EnableRecording {
		t.Errorf("enable_recording should be kept in the overlay")
	}
	if s.Overlay.Secrets["token"] != "s" {
		t.Errorf("secrets should be kept in the overlay")
	}
}

func TestSanitizeTimestamps(t *testing.T) {
	in := intervalInput()
	in["start_at"] = "2025-03-01T10:00"
	in["end_at"] = "not a date"

	s, err := Sanitize(in, ModeCreate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Payload.StartAt.String(); got != "2025-03-01T10:00:00.000Z" {
		t.Errorf("bare start_at should be read as UTC, got %s", got)
	}
	if !s.Payload.EndAt.IsZero() {
		t.Errorf("malformed end_at should be dropped, got %s", s.Payload.EndAt)
	}
}
