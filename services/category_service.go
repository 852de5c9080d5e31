package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/retrieveapp/retrieve-api/cache"
	"github.com/retrieveapp/retrieve-api/database"
	"github.com/retrieveapp/retrieve-api/models"
	"github.com/retrieveapp/retrieve-api/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrCategoryInUse = utils.ErrConflict("CATEGORY_IN_USE", "Category still has items")

type CategoryService struct {
	db    *gorm.DB
	cache cache.Service
	log   *zap.Logger
}

func NewCategoryService(db *gorm.DB, c cache.Service, log *zap.Logger) *CategoryService {
	if c == nil {
		c = cache.NewService(nil)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CategoryService{db: db, cache: c, log: log}
}

type CategoryInput struct {
	Name        string
	Description *string
}

// List returns every category by name. The list is small and read on every
// item form, so it is cached until the next write.
func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.cache.Get(ctx, cache.KeyCategories, &categories); err == nil {
		return categories, nil
	}

	if err := s.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if err := s.cache.Set(ctx, cache.KeyCategories, categories, cache.TTLCategories); err != nil {
		s.log.Warn("failed to cache categories", zap.Error(err))
	}
	return categories, nil
}

func (s *CategoryService) Get(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	err := s.db.WithContext(ctx).First(&category, "id = ?", id).Error
	if database.IsNotFound(err) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &category, nil
}

func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrCategoryNameEmpty
	}

	category := models.Category{Name: name, Description: in.Description}
	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrCategoryExists
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	s.invalidate(ctx)
	return &category, nil
}

func (s *CategoryService) Update(ctx context.Context, id uuid.UUID, in CategoryInput) (*models.Category, error) {
	category, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if in.Name != "" {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return nil, ErrCategoryNameEmpty
		}
		updates["name"] = name
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if len(updates) == 0 {
		return category, nil
	}

	if err := s.db.WithContext(ctx).Model(category).Updates(updates).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrCategoryExists
		}
		return nil, fmt.Errorf("update category: %w", err)
	}
	s.invalidate(ctx)
	return s.Get(ctx, id)
}

func (s *CategoryService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	db := s.db.WithContext(ctx)
	var items int64
	if err := db.Model(&models.Item{}).Where("category_id = ?", id).Count(&items).Error; err != nil {
		return fmt.Errorf("count category items: %w", err)
	}
	if items > 0 {
		return ErrCategoryInUse
	}
	if err := db.Delete(&models.Category{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *CategoryService) invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, cache.KeyCategories); err != nil {
		s.log.Warn("failed to invalidate category cache", zap.Error(err))
	}
}
