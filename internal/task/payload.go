package task

import (
	"encoding/json"
	"sort"

	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/overlay"
	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/pkg/timestamp"
)

// ScheduleType selects how the provider repeats a task.
type ScheduleType string

const (
	ScheduleInterval ScheduleType = "interval"
	ScheduleCron     ScheduleType = "cron"
)

// Mode selects the allow-list and ranges used by Sanitize.
type Mode int

const (
	ModeCreate Mode = iota
	ModeUpdate
)

func (m Mode) String() string {
	if m == ModeCreate {
		return "create"
	}
	return "update"
}

// Payload is a scheduled-task request body for the provider.
// Nil pointers, nil maps/slices and zero instants are absent and never sent.
type Payload struct {
	Task                 *string           `json:"task,omitempty"`
	ScheduleType         *ScheduleType     `json:"schedule_type,omitempty"`
	IntervalMinutes      *int              `json:"interval_minutes,omitempty"`
	CronExpression       *string           `json:"cron_expression,omitempty"`
	StartAt              timestamp.Instant `json:"start_at,omitzero"`
	EndAt                timestamp.Instant `json:"end_at,omitzero"`
	IsActive             *bool             `json:"is_active,omitempty"`
	LLMModel             *string           `json:"llm_model,omitempty"`
	UseAdblock           *bool             `json:"use_adblock,omitempty"`
	UseProxy             *bool             `json:"use_proxy,omitempty"`
	ProxyCountryCode     *string           `json:"proxy_country_code,omitempty"`
	HighlightElements    *bool             `json:"highlight_elements,omitempty"`
	SaveBrowserData      *bool             `json:"save_browser_data,omitempty"`
	StructuredOutputJSON *string           `json:"structured_output_json,omitempty"`
	Metadata             map[string]string `json:"metadata,omitzero"`

	AllowedDomains        []string          `json:"allowed_domains,omitzero"`
	IncludedFileNames     []string          `json:"included_file_names,omitzero"`
	Secrets               map[string]string `json:"secrets,omitzero"`
	BrowserViewportWidth  *int              `json:"browser_viewport_width,omitempty"`
	BrowserViewportHeight *int              `json:"browser_viewport_height,omitempty"`
	MaxAgentSteps         *int              `json:"max_agent_steps,omitempty"`
	EnablePublicShare     *bool             `json:"enable_public_share,omitempty"`
	EnableRecording       *bool             `json:"enable_recording,omitempty"`
	RecordingQuality      *string           `json:"recording_quality,omitempty"`
	RecordingFPS          *int              `json:"recording_fps,omitempty"`
	RecordingResolution   *string           `json:"recording_resolution,omitempty"`
	BrowserProfileID      *string           `json:"browser_profile_id,omitempty"`
}

// Sanitized is the output of Sanitize: what goes to the provider, and what
// stays in the local overlay.
type Sanitized struct {
	Payload Payload
	Overlay overlay.Fields
}

// Keys returns the JSON keys present in the payload, sorted.
func (p Payload) Keys() []string {
	m := p.Map()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map returns the payload as it would appear on the wire.
func (p Payload) Map() map[string]any {
	raw, err := json.Marshal(p)
	if err != nil {
		return map[string]any{}
	}
	out := make(map[string]any)
	_ = json.Unmarshal(raw, &out)
	return out
}

// IsEmpty reports whether the payload carries no field at all.
func (p Payload) IsEmpty() bool {
	return len(p.Map()) == 0
}

// IsInterval reports whether the payload describes an interval schedule.
func (p Payload) IsInterval() bool {
	return p.ScheduleType != nil && *p.ScheduleType == ScheduleInterval
}

// Minimal keeps only the fields every provider version accepts on update:
// task text, the active schedule fields, the window and the active flag.
func (p Payload) Minimal() Payload {
	out := Payload{
		Task:         p.Task,
		ScheduleType: p.ScheduleType,
		StartAt:      p.StartAt,
		EndAt:        p.EndAt,
		IsActive:     p.IsActive,
	}
	switch {
	case p.ScheduleType == nil:
		out.IntervalMinutes = p.IntervalMinutes
		out.CronExpression = p.CronExpression
	case *p.ScheduleType == ScheduleInterval:
		out.IntervalMinutes = p.IntervalMinutes
	case *p.ScheduleType == ScheduleCron:
		out.CronExpression = p.CronExpression
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}
