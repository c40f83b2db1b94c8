package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

const (
	JobTypeTutorAnswer       = "tutor_answer"
	JobTypeRecordingTransfer = "recording_transfer"
	JobTypeNarration         = "narration"
)

// JobRecord tracks one asynchronous external operation from submission to its
// terminal outcome. Progress is monotone while non-terminal; completed/failed
// rows are never mutated again.
type JobRecord struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OwnerUserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	JobType        string         `gorm:"not null;index" json:"job_type"`
	ExternalHandle string         `gorm:"index" json:"external_handle,omitempty"`
	Status         string         `gorm:"not null;default:pending;index" json:"status"`
	Stage          string         `gorm:"not null;default:pending" json:"stage"`
	Progress       int            `gorm:"not null;default:0" json:"progress"`
	Error          string         `json:"error,omitempty"`
	Payload        datatypes.JSON `gorm:"type:jsonb" json:"payload,omitempty"`
	Result         datatypes.JSON `gorm:"type:jsonb" json:"result,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (JobRecord) TableName() string { return "job_record" }

func (j *JobRecord) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

func TerminalStatuses() []string {
	return []string{JobStatusCompleted, JobStatusFailed}
}
