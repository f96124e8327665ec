package overlay

import (
	"encoding/json"
	"maps"
	"slices"
)

// Keys lists the JSON keys owned by the local overlay.
var Keys = []string{
	"allowed_domains",
	"included_file_names",
	"secrets",
	"proxy_country_code",
	"browser_viewport_width",
	"browser_viewport_height",
	"max_agent_steps",
	"enable_public_share",
	"enable_recording",
	"recording_quality",
	"recording_fps",
	"recording_resolution",
	"browser_profile_id",
}

// Fields holds the advanced task settings the provider does not persist.
// A nil field is absent; absent fields never overwrite stored values on Apply.
type Fields struct {
	AllowedDomains        []string          `json:"allowed_domains,omitempty"`
	IncludedFileNames     []string          `json:"included_file_names,omitempty"`
	Secrets               map[string]string `json:"secrets,omitempty"`
	ProxyCountryCode      *string           `json:"proxy_country_code,omitempty"`
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

// IsEmpty reports whether no field is set. An empty but non-nil list or map
// is set: it clears the stored value on Apply.
func (f Fields) IsEmpty() bool {
	return f.AllowedDomains == nil &&
		f.IncludedFileNames == nil &&
		f.Secrets == nil &&
		f.ProxyCountryCode == nil &&
		f.BrowserViewportWidth == nil &&
		f.BrowserViewportHeight == nil &&
		f.MaxAgentSteps == nil &&
		f.EnablePublicShare == nil &&
		f.EnableRecording == nil &&
		f.RecordingQuality == nil &&
		f.RecordingFPS == nil &&
		f.RecordingResolution == nil &&
		f.BrowserProfileID == nil
}

// Apply returns f with every field set in patch overwritten.
func (f Fields) Apply(patch Fields) Fields {
	out := f.Clone()
	if patch.AllowedDomains != nil {
		out.AllowedDomains = slices.Clone(patch.AllowedDomains)
	}
	if patch.IncludedFileNames != nil {
		out.IncludedFileNames = slices.Clone(patch.IncludedFileNames)
	}
	if patch.Secrets != nil {
		out.Secrets = maps.Clone(patch.Secrets)
	}
	if patch.ProxyCountryCode != nil {
		out.ProxyCountryCode = ptr(*patch.ProxyCountryCode)
	}
	if patch.BrowserViewportWidth != nil {
		out.BrowserViewportWidth = ptr(*patch.BrowserViewportWidth)
	}
	if patch.BrowserViewportHeight != nil {
		out.BrowserViewportHeight = ptr(*patch.BrowserViewportHeight)
	}
	if patch.MaxAgentSteps != nil {
		out.MaxAgentSteps = ptr(*patch.MaxAgentSteps)
	}
	if patch.EnablePublicShare != nil {
		out.EnablePublicShare = ptr(*patch.EnablePublicShare)
	}
	if patch.EnableRecording != nil {
		out.EnableRecording = ptr(*patch.EnableRecording)
	}
	if patch.RecordingQuality != nil {
		out.RecordingQuality = ptr(*patch.RecordingQuality)
	}
	if patch.RecordingFPS != nil {
		out.RecordingFPS = ptr(*patch.RecordingFPS)
	}
	if patch.RecordingResolution != nil {
		out.RecordingResolution = ptr(*patch.RecordingResolution)
	}
	if patch.BrowserProfileID != nil {
		out.BrowserProfileID = ptr(*patch.BrowserProfileID)
	}
	return out
}

// Clone returns a deep copy.
func (f Fields) Clone() Fields {
	out := Fields{
		AllowedDomains:    slices.Clone(f.AllowedDomains),
		IncludedFileNames: slices.Clone(f.IncludedFileNames),
		Secrets:           maps.Clone(f.Secrets),
	}
	out.ProxyCountryCode = clonePtr(f.ProxyCountryCode)
	out.BrowserViewportWidth = clonePtr(f.BrowserViewportWidth)
	out.BrowserViewportHeight = clonePtr(f.BrowserViewportHeight)
	out.MaxAgentSteps = clonePtr(f.MaxAgentSteps)
	out.EnablePublicShare = clonePtr(f.EnablePublicShare)
	out.EnableRecording = clonePtr(f.EnableRecording)
	out.RecordingQuality = clonePtr(f.RecordingQuality)
	out.RecordingFPS = clonePtr(f.RecordingFPS)
	out.RecordingResolution = clonePtr(f.RecordingResolution)
	out.BrowserProfileID = clonePtr(f.BrowserProfileID)
	return out
}

// EnforceProxy drops the proxy country code unless the proxy is enabled.
// It reports whether anything was removed.
func (f *Fields) EnforceProxy(useProxy bool) bool {
	if f.ProxyCountryCode == nil {
		return false
	}
	if useProxy && *f.ProxyCountryCode != "" {
		return false
	}
	f.ProxyCountryCode = nil
	return true
}

// Map returns the set fields keyed by their JSON names.
func (f Fields) Map() map[string]any {
	raw, err := json.Marshal(f)
	if err != nil {
		return map[string]any{}
	}
	out := make(map[string]any)
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}

// FromRecord picks the overlay-owned keys a provider record happens to carry.
// Used to seed a local row the first time a task is observed.
func FromRecord(rec map[string]any) Fields {
	picked := make(map[string]any)
	for _, key := range Keys {
		if v, ok := rec[key]; ok && v != nil {
			picked[key] = v
		}
	}
	var f Fields
	// Keys are decoded one at a time so a value of the wrong shape only loses itself.
	for key, v := range picked {
		one, err := json.Marshal(map[string]any{key: v})
		if err != nil {
			continue
		}
		var single Fields
		if err := json.Unmarshal(one, &single); err != nil {
			continue
		}
		f = f.Apply(single)
	}
	if f.ProxyCountryCode != nil && *f.ProxyCountryCode == "" {
		f.ProxyCountryCode = nil
	}
	return f
}

func ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	return ptr(*p)
}
