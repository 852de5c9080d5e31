package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Message struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key;index:idx_messages_thread_order,priority:3" json:"id"`
	ThreadID      uuid.UUID `gorm:"type:uuid;not null;index:idx_messages_thread_order,priority:1" json:"threadId"`
	SenderID      uuid.UUID `gorm:"type:uuid;not null" json:"senderId"`
	Body          string    `gorm:"type:text;not null" json:"body"`
	AttachmentURL *string   `gorm:"type:text" json:"attachmentUrl"`
	CreatedAt     time.Time `gorm:"not null;index:idx_messages_thread_order,priority:2" json:"createdAt"`
}

// BeforeCreate assigns a time-ordered UUIDv7 so ids sort with creation order.
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		m.ID = id
	}
	return nil
}
