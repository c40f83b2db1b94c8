package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type LiveClass struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CourseID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"course_id"`
	HostUserID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"host_user_id"`
	Topic            string         `gorm:"not null" json:"topic"`
	ProviderMeetingID string        `gorm:"index" json:"provider_meeting_id,omitempty"`
	JoinURL          string         `json:"join_url,omitempty"`
	StartsAt         time.Time      `gorm:"not null;index" json:"starts_at"`
	DurationMinutes  int            `gorm:"not null;default:60" json:"duration_minutes"`
	Status           string         `gorm:"not null;default:scheduled;index" json:"status"`
	Metadata         datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt        time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (LiveClass) TableName() string { return "live_class" }

// Recording tracks one provider recording through transfer into our bucket.
type Recording struct {
	ID                  uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	LiveClassID         uuid.UUID `gorm:"type:uuid;not null;index" json:"live_class_id"`
	ProviderRecordingID string    `gorm:"uniqueIndex" json:"provider_recording_id"`
	SourceURL           string    `json:"-"`
	StorageKey          string    `json:"storage_key,omitempty"`
	DurationSeconds     int       `json:"duration_seconds,omitempty"`
	Status              string    `gorm:"not null;default:pending;index" json:"status"`
	CreatedAt           time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt           time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Recording) TableName() string { return "recording" }
