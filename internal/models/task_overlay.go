package models

import "time"

// TaskOverlay stores the advanced settings of a provider scheduled task that
// the provider itself does not keep. Nil columns are absent settings.
type TaskOverlay struct {
	TaskID                string            `gorm:"column:task_id;primaryKey;size:191" json:"task_id"`
	AllowedDomains        []string          `gorm:"column:allowed_domains;type:text;serializer:json" json:"allowed_domains,omitempty"`
	IncludedFileNames     []string          `gorm:"column:included_file_names;type:text;serializer:json" json:"included_file_names,omitempty"`
	Secrets               map[string]string `gorm:"column:secrets;type:text;serializer:json" json:"-"`
	ProxyCountryCode      *string           `gorm:"column:proxy_country_code;size:8" json:"proxy_country_code,omitempty"`
	BrowserViewportWidth  *int              `gorm:"column:browser_viewport_width" json:"browser_viewport_width,omitempty"`
	BrowserViewportHeight *int              `gorm:"column:browser_viewport_height" json:"browser_viewport_height,omitempty"`
	MaxAgentSteps         *int              `gorm:"column:max_agent_steps" json:"max_agent_steps,omitempty"`
	EnablePublicShare     *bool             `gorm:"column:enable_public_share" json:"enable_public_share,omitempty"`
	EnableRecording       *bool             `gorm:"column:enable_recording" json:"enable_recording,omitempty"`
	RecordingQuality      *string           `gorm:"column:recording_quality;size:16" json:"recording_quality,omitempty"`
	RecordingFPS          *int              `gorm:"column:recording_fps" json:"recording_fps,omitempty"`
	RecordingResolution   *string           `gorm:"column:recording_resolution;size:16" json:"recording_resolution,omitempty"`
	BrowserProfileID      *string           `gorm:"column:browser_profile_id;size:128" json:"browser_profile_id,omitempty"`
	CreatedAt             time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (TaskOverlay) TableName() string {
	return "scheduled_task_overlays"
}
