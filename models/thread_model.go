package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Thread is a 1:1 conversation between an item's owner and one other user.
// At most one thread exists per (item, participant); the unique index enforces it.
type Thread struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ItemID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_threads_item_participant,priority:1" json:"itemId"`
	OwnerID       uuid.UUID `gorm:"type:uuid;not null;index" json:"ownerId"`
	ParticipantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_threads_item_participant,priority:2;index" json:"participantId"`

	OwnerLastReadMessageID       *uuid.UUID `gorm:"type:uuid" json:"ownerLastReadMessageId"`
	OwnerLastReadAt              *time.Time `json:"ownerLastReadAt"`
	ParticipantLastReadMessageID *uuid.UUID `gorm:"type:uuid" json:"participantLastReadMessageId"`
	ParticipantLastReadAt        *time.Time `json:"participantLastReadAt"`

	Item        *Item `gorm:"foreignkey:ItemID" json:"-"`
	Owner       *User `gorm:"foreignkey:OwnerID" json:"-"`
	Participant *User `gorm:"foreignkey:ParticipantID" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (t *Thread) BeforeCreate(tx *gorm.DB) error {
	assignID(&t.ID)
	return nil
}

func (t *Thread) IsOwner(userID uuid.UUID) bool       { return t.OwnerID == userID }
func (t *Thread) IsParticipant(userID uuid.UUID) bool { return t.ParticipantID == userID }

func (t *Thread) HasMember(userID uuid.UUID) bool {
	return t.IsOwner(userID) || t.IsParticipant(userID)
}

// CounterpartyID returns the other member relative to userID.
func (t *Thread) CounterpartyID(userID uuid.UUID) uuid.UUID {
	if t.IsOwner(userID) {
		return t.ParticipantID
	}
	return t.OwnerID
}
