package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ItemStatusLost     = "LOST"
	ItemStatusFound    = "FOUND"
	ItemStatusResolved = "RESOLVED"
)

type Item struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	OwnerID      uuid.UUID `gorm:"type:uuid;not null;index" json:"ownerId"`
	CategoryID   uuid.UUID `gorm:"type:uuid;not null;index" json:"categoryId"`
	Title        string    `gorm:"size:200;not null" json:"title"`
	Description  *string   `gorm:"type:text" json:"description"`
	Status       string    `gorm:"size:20;not null;index" json:"status"`
	IsResolved   bool      `gorm:"not null;default:false" json:"isResolved"`
	ZipCode      *string   `gorm:"size:20" json:"zipCode"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
	DateReported time.Time `gorm:"not null;index" json:"dateReported"`

	Owner    *User       `gorm:"foreignkey:OwnerID" json:"owner,omitempty"`
	Category *Category   `gorm:"foreignkey:CategoryID" json:"category,omitempty"`
	Photos   []ItemPhoto `gorm:"foreignkey:ItemID" json:"photos"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (i *Item) BeforeCreate(tx *gorm.DB) error {
	assignID(&i.ID)
	if i.DateReported.IsZero() {
		i.DateReported = tx.NowFunc()
	}
	return nil
}

func (i *Item) PrimaryPhotoURL() *string {
	if len(i.Photos) == 0 {
		return nil
	}
	url := i.Photos[0].URL
	return &url
}

// ItemSummary is the item projection embedded in thread listings.
type ItemSummary struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Status          string    `json:"status"`
	PrimaryPhotoURL *string   `json:"primaryPhotoUrl"`
}

func (i *Item) Summary() *ItemSummary {
	if i == nil || i.ID == uuid.Nil {
		return nil
	}
	return &ItemSummary{ID: i.ID, Title: i.Title, Status: i.Status, PrimaryPhotoURL: i.PrimaryPhotoURL()}
}

type ItemPhoto struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ItemID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_item_photos_item_url,priority:1" json:"itemId"`
	URL       string    `gorm:"size:1024;not null;uniqueIndex:idx_item_photos_item_url,priority:2" json:"url"`
	PublicID  *string   `gorm:"size:255" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

func (p *ItemPhoto) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}
