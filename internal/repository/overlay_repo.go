package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/models"
	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/overlay"
)

// lookupBatch keeps IN lists under the placeholder limits of both drivers.
const lookupBatch = 500

// overlayColumns are replaced on upsert; created_at is kept from the first insert.
var overlayColumns = []string{
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
	"updated_at",
}

// OverlayRepository is the SQL implementation of overlay.Store.
type OverlayRepository struct {
	db *gorm.DB
}

func NewOverlayRepository(db *gorm.DB) *OverlayRepository {
	return &OverlayRepository{db: db}
}

func (r *OverlayRepository) Get(ctx context.Context, taskID string) (*overlay.Fields, error) {
	var row models.TaskOverlay
	err := r.db.WithContext(ctx).Where("task_id = ?", taskID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, overlay.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	f := toFields(row)
	return &f, nil
}

func (r *OverlayRepository) GetMany(ctx context.Context, taskIDs []string) (map[string]overlay.Fields, error) {
	out := make(map[string]overlay.Fields, len(taskIDs))
	for start := 0; start < len(taskIDs); start += lookupBatch {
		end := min(start+lookupBatch, len(taskIDs))

		var rows []models.TaskOverlay
		if err := r.db.WithContext(ctx).Where("task_id IN ?", taskIDs[start:end]).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			out[row.TaskID] = toFields(row)
		}
	}
	return out, nil
}

func (r *OverlayRepository) List(ctx context.Context) (map[string]overlay.Fields, error) {
	out := make(map[string]overlay.Fields)
	var batch []models.TaskOverlay
	err := r.db.WithContext(ctx).FindInBatches(&batch, lookupBatch, func(tx *gorm.DB, _ int) error {
		for _, row := range batch {
			out[row.TaskID] = toFields(row)
		}
		return nil
	}).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert replaces every overlay column of the row, inserting it when missing.
func (r *OverlayRepository) Upsert(ctx context.Context, taskID string, fields overlay.Fields) error {
	row := fromFields(taskID, fields)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "task_id"}},
			DoUpdates: clause.AssignmentColumns(overlayColumns),
		}).
		Create(&row).Error
}

func (r *OverlayRepository) Delete(ctx context.Context, taskID string) error {
	return r.db.WithContext(ctx).Where("task_id = ?", taskID).Delete(&models.TaskOverlay{}).Error
}

func toFields(row models.TaskOverlay) overlay.Fields {
	f := overlay.Fields{
		AllowedDomains:        row.AllowedDomains,
		IncludedFileNames:     row.IncludedFileNames,
		Secrets:               row.Secrets,
		ProxyCountryCode:      row.ProxyCountryCode,
		BrowserViewportWidth:  row.BrowserViewportWidth,
		BrowserViewportHeight: row.BrowserViewportHeight,
		MaxAgentSteps:         row.MaxAgentSteps,
		EnablePublicShare:     row.EnablePublicShare,
		EnableRecording:       row.EnableRecording,
		RecordingQuality:      row.RecordingQuality,
		RecordingFPS:          row.RecordingFPS,
		RecordingResolution:   row.RecordingResolution,
		BrowserProfileID:      row.BrowserProfileID,
	}
	return f.Clone()
}

func fromFields(taskID string, f overlay.Fields) models.TaskOverlay {
	f = f.Clone()
	return models.TaskOverlay{
		TaskID:                taskID,
		AllowedDomains:        f.AllowedDomains,
		IncludedFileNames:     f.IncludedFileNames,
		Secrets:               f.Secrets,
		ProxyCountryCode:      f.ProxyCountryCode,
		BrowserViewportWidth:  f.BrowserViewportWidth,
		BrowserViewportHeight: f.BrowserViewportHeight,
		MaxAgentSteps:         f.MaxAgentSteps,
		EnablePublicShare:     f.EnablePublicShare,
		EnableRecording:       f.EnableRecording,
		RecordingQuality:      f.RecordingQuality,
		RecordingFPS:          f.RecordingFPS,
		RecordingResolution:   f.RecordingResolution,
		BrowserProfileID:      f.BrowserProfileID,
	}
}
