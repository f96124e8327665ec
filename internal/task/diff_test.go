package task

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/pkg/timestamp"
)

func providerRecord(t *testing.T) map[string]any {
	t.Helper()
	raw := `{
		"id": "st_1",
		"task": "check prices",
		"schedule_type": "interval",
		"interval_minutes": 60,
		"start_at": "2025-06-01T10:00:00Z",
		"end_at": null,
		"is_active": true,
		"use_adblock": true,
		"use_proxy": false,
		"highlight_elements": false,
		"llm_model": "gpt-4o",
		"save_browser_data": false,
		"structured_output_json": {"type": "object"}
	}`
	var rec map[string]any
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	return rec
}

func TestDiffOfIdenticalIsEmpty(t *testing.T) {
	current := CurrentFromRecord(providerRecord(t))
	if d := Diff(current, current); !d.IsEmpty() {
		t.Errorf("diff of identical payloads should be empty, got %v", d.Keys())
	}
}

func TestDiffOnlyChangedFields(t *testing.T) {
	current := CurrentFromRecord(providerRecord(t))

	desired := Payload{
		IsActive:   ptr(false),
		UseAdblock: ptr(true),
		LLMModel:   ptr("gpt-4o"),
		StartAt:    timestamp.Of(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)),
	}
	d := Diff(current, desired)

	if got := d.Keys(); !reflect.DeepEqual(got, []string{"is_active"}) {
		t.Errorf("expected only is_active, got %v", got)
	}
	if d.IsActive == nil || *d.IsActive {
		t.Errorf("expected is_active=false in diff")
	}
}

func TestDiffIgnoresFieldsOutsideConsideredSet(t *testing.T) {
	current := CurrentFromRecord(providerRecord(t))
	desired := Payload{
		ProxyCountryCode:     ptr("us"),
		BrowserViewportWidth: ptr(1280),
		MaxAgentSteps:        ptr(10),
		Metadata:             map[string]string{"k": "v"},
	}
	if d := Diff(current, desired); !d.IsEmpty() {
		t.Errorf("overlay fields must not be diffed, got %v", d.Keys())
	}
}

func TestDiffStructuredOutputComparesStructure(t *testing.T) {
	current := CurrentFromRecord(providerRecord(t))

	same := Payload{StructuredOutputJSON: ptr(`{ "type" : "object" }`)}
	if d := Diff(current, same); !d.IsEmpty() {
		t.Errorf("reformatted JSON should not count as a change, got %v", d.Keys())
	}

	other := Payload{StructuredOutputJSON: ptr(`{"type":"array"}`)}
	if d := Diff(current, other); d.StructuredOutputJSON == nil {
		t.Errorf("different JSON should be part of the diff")
	}
}

func TestDiffSendsFieldsMissingFromCurrent(t *testing.T) {
	rec := providerRecord(t)
	delete(rec, "llm_model")
	rec["interval_minutes"] = "sixty"
	current := CurrentFromRecord(rec)

	d := Diff(current, Payload{LLMModel: ptr("gpt-4o"), IntervalMinutes: ptr(60)})
	if got := d.Keys(); !reflect.DeepEqual(got, []string{"interval_minutes", "llm_model"}) {
		t.Errorf("unexpected diff keys %v", got)
	}
}

func TestDiffTimestampsCompareAsInstants(t *testing.T) {
	current := CurrentFromRecord(providerRecord(t))

	desired := Payload{StartAt: timestamp.Of(time.Date(2025, 6, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600)))}
	if d := Diff(current, desired); !d.IsEmpty() {
		t.Errorf("same instant in another zone is not a change, got %v", d.Keys())
	}

	desired.EndAt = timestamp.Of(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	if d := Diff(current, desired); !reflect.DeepEqual(d.Keys(), []string{"end_at"}) {
		t.Errorf("expected end_at in diff, got %v", d.Keys())
	}
}

func TestMinimal(t *testing.T) {
	p := Payload{
		Task:                 ptr("x"),
		ScheduleType:         ptr(ScheduleCron),
		CronExpression:       ptr("0 * * * *"),
		IntervalMinutes:      ptr(5),
		IsActive:             ptr(true),
		LLMModel:             ptr("gpt-4o"),
		BrowserViewportWidth: ptr(1280),
	}
	got := p.Minimal().Keys()
	want := []string{"cron_expression", "is_active", "schedule_type", "task"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Minimal() keys = %v, want %v", got, want)
	}

	if !(Payload{LLMModel: ptr("gpt-4o")}).Minimal().IsEmpty() {
		t.Errorf("Minimal of a payload without core fields should be empty")
	}
}
