package domain

import (
	"time"

	"github.com/google/uuid"
)

type SupportThread struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Subject   string    `gorm:"not null" json:"subject"`
	Status    string    `gorm:"not null;default:open;index" json:"status"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (SupportThread) TableName() string { return "support_thread" }

type SupportMessage struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ThreadID     uuid.UUID `gorm:"type:uuid;not null;index" json:"thread_id"`
	SenderUserID uuid.UUID `gorm:"type:uuid;not null;index" json:"sender_user_id"`
	Body         string    `gorm:"type:text;not null" json:"body"`
	CreatedAt    time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (SupportMessage) TableName() string { return "support_message" }
