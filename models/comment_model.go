package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Comment struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ItemID   uuid.UUID `gorm:"type:uuid;not null;index" json:"itemId"`
	AuthorID uuid.UUID `gorm:"type:uuid;not null" json:"authorId"`
	Body     string    `gorm:"type:text;not null" json:"body"`

	Author *User `gorm:"foreignkey:AuthorID" json:"-"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	assignID(&c.ID)
	return nil
}

type SeenMark struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ItemID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_seen_marks_item_user,priority:1" json:"itemId"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_seen_marks_item_user,priority:2" json:"userId"`

	Item *Item `gorm:"foreignkey:ItemID" json:"-"`
	User *User `gorm:"foreignkey:UserID" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
}

func (s *SeenMark) BeforeCreate(tx *gorm.DB) error {
	assignID(&s.ID)
	return nil
}
