package task

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/robfig/cron/v3"

	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/overlay"
	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/pkg/timestamp"
)

const (
	maxMetadataKeys     = 10
	maxMetadataKeyLen   = 100
	maxMetadataValueLen = 1000
	minAgentSteps       = 1
	maxAgentSteps       = 200
	minRecordingFPS     = 1
	maxRecordingFPS     = 60
	maxViewportWidth    = 3840
	maxViewportHeight   = 2160
	createMinViewportW  = 800
	createMinViewportH  = 600
	updateMinViewportW  = 320
	updateMinViewportH  = 240
	maxProfileIDLen     = 128
	maxResolutionLen    = 16
)

// LLMModels is the set of model names the provider accepts.
var LLMModels = setOf(
	"gpt-4o",
	"gpt-4o-mini",
	"gpt-4.1",
	"gpt-4.1-mini",
	"o4-mini",
	"o3",
	"gemini-2.0-flash",
	"gemini-2.0-flash-lite",
	"gemini-2.5-flash",
	"gemini-2.5-pro",
	"claude-3-7-sonnet-20250219",
	"claude-sonnet-4-20250514",
	"llama-4-maverick-17b-128e-instruct",
)

// ProxyCountries is the set of proxy exit countries, lower case.
var ProxyCountries = setOf("us", "uk", "fr", "it", "jp", "au", "de", "fi", "ca", "in")

// RecordingQualities is the set of accepted recording_quality values.
var RecordingQualities = setOf("standard", "high")

var resolutionPattern = regexp.MustCompile(`^(\d{3,4}p|\d{3,4}x\d{3,4})$`)

// Sanitize projects input onto the fields the provider accepts in mode and
// splits off the overlay fields. It performs no I/O.
func Sanitize(input map[string]any, mode Mode) (*Sanitized, error) {
	r := reader{in: input}
	var p Payload

	task, err := r.str("task")
	if err != nil {
		return nil, err
	}
	if task != nil {
		trimmed := strings.TrimSpace(*task)
		if trimmed == "" {
			return nil, invalid("task", "task must not be empty")
		}
		p.Task = &trimmed
	} else if mode == ModeCreate {
		return nil, invalid("task", "task is required")
	}

	if err := sanitizeSchedule(r, mode, &p); err != nil {
		return nil, err
	}

	if v, ok := r.get("start_at"); ok {
		p.StartAt, _ = timestamp.Normalize(v)
	}
	if v, ok := r.get("end_at"); ok {
		p.EndAt, _ = timestamp.Normalize(v)
	}

	for key, dst := range map[string]**bool{
		"is_active":          &p.IsActive,
		"use_adblock":        &p.UseAdblock,
		"use_proxy":          &p.UseProxy,
		"highlight_elements": &p.HighlightElements,
		"save_browser_data":  &p.SaveBrowserData,
	} {
		if *dst, err = r.boolean(key); err != nil {
			return nil, err
		}
	}

	if p.LLMModel, err = r.str("llm_model"); err != nil {
		return nil, err
	}
	if p.LLMModel != nil && !LLMModels[*p.LLMModel] {
		return nil, invalid("llm_model", "llm_model %q is not supported", *p.LLMModel)
	}

	if p.StructuredOutputJSON, err = r.jsonText("structured_output_json"); err != nil {
		return nil, err
	}

	if mode == ModeCreate {
		if p.Metadata, err = r.metadata("metadata"); err != nil {
			return nil, err
		}
	}

	ov, err := sanitizeOverlay(r, mode)
	if err != nil {
		return nil, err
	}

	switch {
	case mode == ModeCreate && (p.UseProxy == nil || !*p.UseProxy):
		ov.ProxyCountryCode = nil
	case mode == ModeUpdate && p.UseProxy != nil && !*p.UseProxy:
		ov.ProxyCountryCode = nil
	}

	p.ProxyCountryCode = ov.ProxyCountryCode
	p.BrowserViewportWidth = ov.BrowserViewportWidth
	p.BrowserViewportHeight = ov.BrowserViewportHeight
	p.MaxAgentSteps = ov.MaxAgentSteps
	p.EnablePublicShare = ov.EnablePublicShare
	if mode == ModeCreate {
		p.AllowedDomains = ov.AllowedDomains
		p.IncludedFileNames = ov.IncludedFileNames
		p.Secrets = ov.Secrets
		p.EnableRecording = ov.EnableRecording
		p.RecordingQuality = ov.RecordingQuality
		p.RecordingFPS = ov.RecordingFPS
		p.RecordingResolution = ov.RecordingResolution
		p.BrowserProfileID = ov.BrowserProfileID
	}

	return &Sanitized{Payload: p, Overlay: ov.Clone()}, nil
}

func sanitizeSchedule(r reader, mode Mode, p *Payload) error {
	rawType, err := r.str("schedule_type")
	if err != nil {
		return err
	}
	if rawType != nil {
		st := ScheduleType(strings.ToLower(strings.TrimSpace(*rawType)))
		if st != ScheduleInterval && st != ScheduleCron {
			return invalid("schedule_type", "schedule_type must be %q or %q", ScheduleInterval, ScheduleCron)
		}
		p.ScheduleType = &st
	} else if mode == ModeCreate {
		return invalid("schedule_type", "schedule_type is required")
	}

	if p.IntervalMinutes, err = r.integer("interval_minutes"); err != nil {
		return err
	}
	if p.IntervalMinutes != nil && *p.IntervalMinutes < 1 {
		return invalid("interval_minutes", "interval_minutes must be at least 1")
	}

	if p.CronExpression, err = r.str("cron_expression"); err != nil {
		return err
	}
	if p.CronExpression != nil {
		expr := strings.TrimSpace(*p.CronExpression)
		if expr == "" {
			p.CronExpression = nil
		} else {
			p.CronExpression = &expr
		}
	}

	switch {
	case p.ScheduleType == nil:
		if p.IntervalMinutes != nil && p.CronExpression != nil {
			return invalid("schedule_type", "schedule_type is required when both interval_minutes and cron_expression are sent")
		}
	case *p.ScheduleType == ScheduleInterval:
		p.CronExpression = nil
	case *p.ScheduleType == ScheduleCron:
		p.IntervalMinutes = nil
		if mode == ModeCreate && p.CronExpression == nil {
			return invalid("cron_expression", "cron_expression is required for cron schedules")
		}
	}

	if p.CronExpression != nil {
		if _, err := cron.ParseStandard(*p.CronExpression); err != nil {
			return invalid("cron_expression", "cron_expression is invalid: %v", err)
		}
	}
	return nil
}

func sanitizeOverlay(r reader, mode Mode) (overlay.Fields, error) {
	var (
		f   overlay.Fields
		err error
	)

	minW, minH := updateMinViewportW, updateMinViewportH
	if mode == ModeCreate {
		minW, minH = createMinViewportW, createMinViewportH
	}

	if f.AllowedDomains, err = r.stringList("allowed_domains"); err != nil {
		return f, err
	}
	if f.IncludedFileNames, err = r.stringList("included_file_names"); err != nil {
		return f, err
	}
	if f.Secrets, err = r.stringMap("secrets"); err != nil {
		return f, err
	}

	if f.ProxyCountryCode, err = r.str("proxy_country_code"); err != nil {
		return f, err
	}
	if f.ProxyCountryCode != nil {
		code := strings.ToLower(strings.TrimSpace(*f.ProxyCountryCode))
		switch {
		case code == "":
			f.ProxyCountryCode = nil
		case !ProxyCountries[code]:
			return f, invalid("proxy_country_code", "proxy_country_code %q is not supported", code)
		default:
			f.ProxyCountryCode = &code
		}
	}

	if f.BrowserViewportWidth, err = r.boundedInt("browser_viewport_width", minW, maxViewportWidth); err != nil {
		return f, err
	}
	if f.BrowserViewportHeight, err = r.boundedInt("browser_viewport_height", minH, maxViewportHeight); err != nil {
		return f, err
	}
	if f.MaxAgentSteps, err = r.boundedInt("max_agent_steps", minAgentSteps, maxAgentSteps); err != nil {
		return f, err
	}
	if f.EnablePublicShare, err = r.boolean("enable_public_share"); err != nil {
		return f, err
	}
	if f.EnableRecording, err = r.boolean("enable_recording"); err != nil {
		return f, err
	}

	if f.RecordingQuality, err = r.str("recording_quality"); err != nil {
		return f, err
	}
	if f.RecordingQuality != nil {
		q := strings.ToLower(strings.TrimSpace(*f.RecordingQuality))
		if !RecordingQualities[q] {
			return f, invalid("recording_quality", "recording_quality must be \"standard\" or \"high\"")
		}
		f.RecordingQuality = &q
	}
	if f.RecordingFPS, err = r.boundedInt("recording_fps", minRecordingFPS, maxRecordingFPS); err != nil {
		return f, err
	}
	if f.RecordingResolution, err = r.str("recording_resolution"); err != nil {
		return f, err
	}
	if f.RecordingResolution != nil {
		res := strings.ToLower(strings.TrimSpace(*f.RecordingResolution))
		if len(res) > maxResolutionLen || !resolutionPattern.MatchString(res) {
			return f, invalid("recording_resolution", "recording_resolution must look like 1080p or 1920x1080")
		}
		f.RecordingResolution = &res
	}

	if f.BrowserProfileID, err = r.str("browser_profile_id"); err != nil {
		return f, err
	}
	if f.BrowserProfileID != nil {
		id := strings.TrimSpace(*f.BrowserProfileID)
		switch {
		case id == "":
			f.BrowserProfileID = nil
		case len(id) > maxProfileIDLen:
			return f, invalid("browser_profile_id", "browser_profile_id is too long")
		default:
			f.BrowserProfileID = &id
		}
	}
	return f, nil
}

// reader reads loosely typed JSON input. JSON null counts as absent.
type reader struct {
	in map[string]any
}

func (r reader) get(key string) (any, bool) {
	v, ok := r.in[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (r reader) str(key string) (*string, error) {
	v, ok := r.get(key)
	if !ok {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, invalid(key, "%s must be a string", key)
	}
	return &s, nil
}

func (r reader) boolean(key string) (*bool, error) {
	v, ok := r.get(key)
	if !ok {
		return nil, nil
	}
	switch t := v.(type) {
	case bool:
		return &t, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return nil, invalid(key, "%s must be a boolean", key)
		}
		return &b, nil
	}
	return nil, invalid(key, "%s must be a boolean", key)
}

func (r reader) integer(key string) (*int, error) {
	v, ok := r.get(key)
	if !ok {
		return nil, nil
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		return &t, nil
	case int64:
		n := int(t)
		return &n, nil
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return nil, invalid(key, "%s must be an integer", key)
		}
		f = parsed
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return nil, invalid(key, "%s must be an integer", key)
		}
		return &n, nil
	default:
		return nil, invalid(key, "%s must be an integer", key)
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return nil, invalid(key, "%s must be an integer", key)
	}
	n := int(f)
	return &n, nil
}

func (r reader) boundedInt(key string, lo, hi int) (*int, error) {
	n, err := r.integer(key)
	if err != nil || n == nil {
		return n, err
	}
	if *n < lo || *n > hi {
		return nil, invalid(key, "%s must be between %d and %d", key, lo, hi)
	}
	return n, nil
}

func (r reader) stringList(key string) ([]string, error) {
	v, ok := r.get(key)
	if !ok {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, invalid(key, "%s must be a list of strings", key)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, invalid(key, "%s must be a list of strings", key)
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r reader) stringMap(key string) (map[string]string, error) {
	v, ok := r.get(key)
	if !ok {
		return nil, nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, invalid(key, "%s must be an object of strings", key)
	}
	out := make(map[string]string, len(obj))
	for k, item := range obj {
		s, ok := item.(string)
		if !ok {
			return nil, invalid(key, "%s.%s must be a string", key, k)
		}
		out[k] = s
	}
	return out, nil
}

func (r reader) metadata(key string) (map[string]string, error) {
	m, err := r.stringMap(key)
	if err != nil || m == nil {
		return m, err
	}
	if len(m) > maxMetadataKeys {
		return nil, invalid(key, "metadata may have at most %d keys", maxMetadataKeys)
	}
	for k, v := range m {
		if utf8.RuneCountInString(k) > maxMetadataKeyLen {
			return nil, invalid(key, "metadata keys may be at most %d characters", maxMetadataKeyLen)
		}
		if utf8.RuneCountInString(v) > maxMetadataValueLen {
			return nil, invalid(key, "metadata value for %q may be at most %d characters", k, maxMetadataValueLen)
		}
	}
	return m, nil
}

// jsonText accepts either a JSON document as a string or an inline object/array.
func (r reader) jsonText(key string) (*string, error) {
	v, ok := r.get(key)
	if !ok {
		return nil, nil
	}
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, nil
		}
		if !json.Valid([]byte(t)) {
			return nil, invalid(key, "%s must be valid JSON", key)
		}
		return &t, nil
	case map[string]any, []any:
		raw, err := json.Marshal(t)
		if err != nil {
			return nil, invalid(key, "%s must be valid JSON", key)
		}
		s := string(raw)
		return &s, nil
	}
	return nil, invalid(key, "%s must be a JSON object or string", key)
}

func setOf(values ...string) map[string]bool {
	out := make(map[string]bool, len(values))
	for _, v := range values {
		out[v] = true
	}
	return out
}
