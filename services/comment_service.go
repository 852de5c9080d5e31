package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/retrieveapp/retrieve-api/database"
	"github.com/retrieveapp/retrieve-api/models"
	"github.com/retrieveapp/retrieve-api/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	MaxCommentLength    = 1000
	DefaultCommentLimit = 10
)

var ErrCommentTooLong = utils.ErrValidation("Max 1000 chars")

type CommentService struct {
	db     *gorm.DB
	items  ItemOwnerLookup
	policy *bluemonday.Policy
	log    *zap.Logger
}

func NewCommentService(db *gorm.DB, items ItemOwnerLookup, log *zap.Logger) *CommentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CommentService{db: db, items: items, policy: bluemonday.StrictPolicy(), log: log}
}

type CommentView struct {
	models.Comment
	Author *models.UserSummary `json:"author"`
}

func newCommentView(c *models.Comment) CommentView {
	return CommentView{Comment: *c, Author: c.Author.Summary()}
}

// Create stores a comment with all markup stripped.
func (s *CommentService) Create(ctx context.Context, itemID, authorID uuid.UUID, body string) (*CommentView, error) {
	if _, err := s.items.OwnerOf(ctx, itemID); err != nil {
		return nil, err
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrCommentEmpty
	}
	if utf8.RuneCountInString(body) > MaxCommentLength {
		return nil, ErrCommentTooLong
	}
	body = strings.TrimSpace(s.policy.Sanitize(body))
	if body == "" {
		return nil, ErrCommentEmpty
	}

	comment := models.Comment{ItemID: itemID, AuthorID: authorID, Body: body}
	db := s.db.WithContext(ctx)
	if err := db.Create(&comment).Error; err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	if err := db.Preload("Author").First(&comment, "id = ?", comment.ID).Error; err != nil {
		return nil, fmt.Errorf("reload comment: %w", err)
	}
	view := newCommentView(&comment)
	return &view, nil
}

// List returns comments on an item newest first, with the total count.
func (s *CommentService) List(ctx context.Context, itemID uuid.UUID, limit, offset int) ([]CommentView, int64, error) {
	if _, err := s.items.OwnerOf(ctx, itemID); err != nil {
		return nil, 0, err
	}
	limit = utils.ClampInt(limit, DefaultCommentLimit, 1, utils.MaxPageSize)
	if offset < 0 {
		offset = 0
	}

	db := s.db.WithContext(ctx)
	var total int64
	if err := db.Model(&models.Comment{}).Where("item_id = ?", itemID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count comments: %w", err)
	}

	var comments []models.Comment
	err := db.Preload("Author").
		Where("item_id = ?", itemID).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&comments).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list comments: %w", err)
	}

	views := make([]CommentView, len(comments))
	for i := range comments {
		views[i] = newCommentView(&comments[i])
	}
	return views, total, nil
}

func (s *CommentService) Delete(ctx context.Context, commentID, userID uuid.UUID) error {
	db := s.db.WithContext(ctx)
	var comment models.Comment
	err := db.Select("id", "author_id").First(&comment, "id = ?", commentID).Error
	if database.IsNotFound(err) {
		return ErrCommentNotFound
	}
	if err != nil {
		return fmt.Errorf("load comment: %w", err)
	}
	if comment.AuthorID != userID {
		return ErrNotCommentAuthor
	}
	if err := db.Delete(&models.Comment{}, "id = ?", commentID).Error; err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}
