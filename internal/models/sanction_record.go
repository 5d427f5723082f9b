package models

import "time"

// SanctionKind names a persisted sanction. Only temporary bans carry expiry state.
type SanctionKind string

const SanctionTemporaryBan SanctionKind = "temporary_ban"

// SanctionRecord is an active temporary ban. One row per subject; re-banning renews ImposedAt.
type SanctionRecord struct {
	SubjectID int64        `gorm:"primaryKey;autoIncrement:false"`
	ImposedAt time.Time    `gorm:"index;not null"`
	Kind      SanctionKind `gorm:"type:varchar(32);not null;default:'temporary_ban'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SanctionRecord) TableName() string {
	return "sanctions"
}

// ExpiresAt returns when the record lapses under the given sanction duration.
func (r *SanctionRecord) ExpiresAt(duration time.Duration) time.Time {
	return r.ImposedAt.Add(duration)
}

// Expired reports whether ImposedAt + duration <= now.
func (r *SanctionRecord) Expired(now time.Time, duration time.Duration) bool {
	return !r.ExpiresAt(duration).After(now)
}
