package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// TutorAnswer is one cached tutor answer keyed by the question fingerprint
// (normalized question + scope + language). At most one row per fingerprint;
// rows are never deleted, only written once and re-read.
type TutorAnswer struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Fingerprint string         `gorm:"size:64;not null;uniqueIndex" json:"fingerprint"`
	ScopeID     string         `gorm:"not null;index" json:"scope_id"`
	Language    string         `gorm:"not null;default:en" json:"language"`
	Question    string         `gorm:"type:text;not null" json:"question"`
	Answer      datatypes.JSON `gorm:"type:jsonb;not null" json:"answer"`
	UsageCount  int            `gorm:"not null;default:0" json:"usage_count"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (TutorAnswer) TableName() string { return "tutor_answer" }
