package storage

import (
	"context"
	"errors"
	"time"

	"tg-moderator/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SanctionRepository persists active temporary bans, one row per subject.
type SanctionRepository struct {
	db *gorm.DB
}

// NewSanctionRepository creates a new SanctionRepository
func NewSanctionRepository(db *gorm.DB) *SanctionRepository {
	return &SanctionRepository{db: db}
}

// MigrateTable ensures the sanctions table exists
func (r *SanctionRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.SanctionRecord{})
}

// Upsert records that subject was banned at imposedAt, replacing any earlier record so
// the expiry clock restarts.
func (r *SanctionRepository) Upsert(ctx context.Context, subject int64, imposedAt time.Time) error {
	record := models.SanctionRecord{
		SubjectID: subject,
		ImposedAt: imposedAt.UTC(),
		Kind:      models.SanctionTemporaryBan,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subject_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"imposed_at", "kind", "updated_at"}),
	}).Create(&record).Error
}

// Remove deletes the record for subject. Removing an absent record is not an error.
func (r *SanctionRepository) Remove(ctx context.Context, subject int64) error {
	return r.db.WithContext(ctx).Where("subject_id = ?", subject).Delete(&models.SanctionRecord{}).Error
}

// ListExpired returns the subjects whose ImposedAt + duration <= now, in ascending order.
func (r *SanctionRepository) ListExpired(ctx context.Context, now time.Time, duration time.Duration) ([]int64, error) {
	cutoff := now.Add(-duration).UTC()
	var subjects []int64
	err := r.db.WithContext(ctx).Model(&models.SanctionRecord{}).
		Where("imposed_at <= ?", cutoff).
		Order("subject_id").
		Pluck("subject_id", &subjects).Error
	return subjects, err
}

// Get returns the record for subject, or nil when there is none.
func (r *SanctionRepository) Get(ctx context.Context, subject int64) (*models.SanctionRecord, error) {
	var record models.SanctionRecord
	err := r.db.WithContext(ctx).Where("subject_id = ?", subject).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Count returns the number of active records.
func (r *SanctionRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.SanctionRecord{}).Count(&n).Error
	return n, err
}
