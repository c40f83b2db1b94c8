package domain

import (
	"time"

	"github.com/google/uuid"
)

// DownloadGrant records one issued offline download. Grants count against the
// per-user quota until they expire.
type DownloadGrant struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	LessonID   uuid.UUID `gorm:"type:uuid;not null;index" json:"lesson_id"`
	StorageKey string    `gorm:"not null" json:"-"`
	SignedURL  string    `gorm:"type:text" json:"signed_url"`
	ExpiresAt  time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt  time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (DownloadGrant) TableName() string { return "download_grant" }
