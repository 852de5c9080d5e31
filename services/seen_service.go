package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/retrieveapp/retrieve-api/database"
	"github.com/retrieveapp/retrieve-api/models"
	"github.com/retrieveapp/retrieve-api/utils"
	"gorm.io/gorm"
)

const DefaultSeenLimit = 10

// seenSortColumns maps accepted sortBy values to columns.
var seenSortColumns = map[string]string{
	"createdAt": "created_at",
	"userId":    "user_id",
}

type SeenService struct {
	db    *gorm.DB
	items ItemOwnerLookup
}

func NewSeenService(db *gorm.DB, items ItemOwnerLookup) *SeenService {
	return &SeenService{db: db, items: items}
}

type SeenQuery struct {
	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}

type SeenMarkView struct {
	models.SeenMark
	User *models.UserSummary `json:"user"`
}

func newSeenMarkView(m *models.SeenMark) SeenMarkView {
	return SeenMarkView{SeenMark: *m, User: m.User.Summary()}
}

// Mark records that userID has seen the item. A second mark by the same user
// is rejected by the unique index.
func (s *SeenService) Mark(ctx context.Context, itemID, userID uuid.UUID) (*SeenMarkView, error) {
	if _, err := s.items.OwnerOf(ctx, itemID); err != nil {
		return nil, err
	}

	mark := models.SeenMark{ItemID: itemID, UserID: userID}
	db := s.db.WithContext(ctx)
	if err := db.Create(&mark).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrAlreadySeen
		}
		return nil, fmt.Errorf("create seen mark: %w", err)
	}
	if err := db.Preload("User").First(&mark, "id = ?", mark.ID).Error; err != nil {
		return nil, fmt.Errorf("reload seen mark: %w", err)
	}
	view := newSeenMarkView(&mark)
	return &view, nil
}

func (s *SeenService) List(ctx context.Context, itemID uuid.UUID, q SeenQuery) ([]SeenMarkView, int64, error) {
	if _, err := s.items.OwnerOf(ctx, itemID); err != nil {
		return nil, 0, err
	}

	limit := utils.ClampInt(q.Limit, DefaultSeenLimit, 1, utils.MaxPageSize)
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	column, ok := seenSortColumns[q.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(q.SortOrder, "asc") {
		direction = "ASC"
	}

	db := s.db.WithContext(ctx)
	var total int64
	if err := db.Model(&models.SeenMark{}).Where("item_id = ?", itemID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count seen marks: %w", err)
	}

	var marks []models.SeenMark
	err := db.Preload("User").
		Where("item_id = ?", itemID).
		Order(column + " " + direction).
		Order("id " + direction).
		Offset(offset).
		Limit(limit).
		Find(&marks).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list seen marks: %w", err)
	}

	views := make([]SeenMarkView, len(marks))
	for i := range marks {
		views[i] = newSeenMarkView(&marks[i])
	}
	return views, total, nil
}

func (s *SeenService) Get(ctx context.Context, itemID, markID uuid.UUID) (*SeenMarkView, error) {
	mark, err := s.load(ctx, itemID, markID)
	if err != nil {
		return nil, err
	}
	view := newSeenMarkView(mark)
	return &view, nil
}

// Delete removes a mark. The user who made it and the item owner may do so.
func (s *SeenService) Delete(ctx context.Context, itemID, markID, userID uuid.UUID) error {
	mark, err := s.load(ctx, itemID, markID)
	if err != nil {
		return err
	}
	if mark.UserID != userID && (mark.Item == nil || mark.Item.OwnerID != userID) {
		return ErrSeenMarkForbidden
	}
	if err := s.db.WithContext(ctx).Delete(&models.SeenMark{}, "id = ?", markID).Error; err != nil {
		return fmt.Errorf("delete seen mark: %w", err)
	}
	return nil
}

func (s *SeenService) load(ctx context.Context, itemID, markID uuid.UUID) (*models.SeenMark, error) {
	var mark models.SeenMark
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Item", func(db *gorm.DB) *gorm.DB { return db.Select("id", "owner_id") }).
		First(&mark, "id = ?", markID).Error
	if database.IsNotFound(err) {
		return nil, ErrSeenMarkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load seen mark: %w", err)
	}
	if mark.ItemID != itemID {
		return nil, ErrSeenMarkNotFound
	}
	return &mark, nil
}
