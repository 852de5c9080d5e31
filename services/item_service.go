package services

import (
	"context"
	"fmt"
	"math"
	"mime/multipart"
	"strings"

	"github.com/google/uuid"
	"github.com/retrieveapp/retrieve-api/cache"
	"github.com/retrieveapp/retrieve-api/database"
	"github.com/retrieveapp/retrieve-api/models"
	"github.com/retrieveapp/retrieve-api/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultItemLimit    = 10
	MaxItemLimit        = 50
	DefaultRadiusMiles  = 10.0
	MaxPhotosPerRequest = 10
)

type ItemService struct {
	db       *gorm.DB
	geocoder Geocoder
	images   ImageStore
	cache    cache.Service
	log      *zap.Logger
}

type ItemDeps struct {
	Geocoder Geocoder
	Images   ImageStore
	Cache    cache.Service
	Log      *zap.Logger
}

func NewItemService(db *gorm.DB, deps ItemDeps) *ItemService {
	if deps.Cache == nil {
		deps.Cache = cache.NewService(nil)
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	return &ItemService{
		db:       db,
		geocoder: deps.Geocoder,
		images:   deps.Images,
		cache:    deps.Cache,
		log:      deps.Log,
	}
}

// ItemFilter narrows an item listing. Lat/Lng or Zip switch on the radius
// search; Zip wins when both are given.
type ItemFilter struct {
	Status     string
	Category   string
	IsResolved *bool
	Query      string
	Lat        *float64
	Lng        *float64
	Radius     *float64
	Zip        string
	Page       int
	Limit      int
}

type ItemResult struct {
	models.Item
	DistanceMiles *float64 `json:"distanceMiles,omitempty"`
}

type ItemPage struct {
	Items []ItemResult
	Total int64
	Page  int
	Limit int
}

type CreateItemInput struct {
	Title       string
	Description *string
	Status      string
	CategoryID  uuid.UUID
	ZipCode     *string
	Latitude    *float64
	Longitude   *float64
	IsResolved  *bool
}

// UpdateItemInput is a partial update; nil fields are left untouched.
type UpdateItemInput struct {
	Title        *string
	Description  *string
	Status       *string
	CategoryID   *uuid.UUID
	CategoryName *string
	ZipCode      *string
	Latitude     *float64
	Longitude    *float64
	IsResolved   *bool
}

type PhotoInput struct {
	URL      string
	PublicID *string
}

// OwnerOf implements ItemOwnerLookup.
func (s *ItemService) OwnerOf(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error) {
	var item models.Item
	err := s.db.WithContext(ctx).Select("id", "owner_id").First(&item, "id = ?", itemID).Error
	if database.IsNotFound(err) {
		return uuid.Nil, ErrItemNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("load item owner: %w", err)
	}
	return item.OwnerID, nil
}

func (s *ItemService) withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Owner").
		Preload("Category").
		Preload("Photos", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		})
}

func (s *ItemService) GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	err := s.withRelations(s.db.WithContext(ctx)).First(&item, "id = ?", id).Error
	if database.IsNotFound(err) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &item, nil
}

// ListItems returns items newest report first. A radius search filters by a
// bounding box in SQL, then by great-circle distance.
func (s *ItemService) ListItems(ctx context.Context, f ItemFilter) (*ItemPage, error) {
	page := f.Page
	if page < 1 {
		page = 1
	}
	limit := utils.ClampInt(f.Limit, DefaultItemLimit, 1, MaxItemLimit)

	center, radius, err := s.resolveCenter(ctx, f)
	if err != nil {
		return nil, err
	}

	scope := func(db *gorm.DB) *gorm.DB {
		if f.Status != "" {
			db = db.Where("status = ?", f.Status)
		}
		if f.IsResolved != nil {
			db = db.Where("is_resolved = ?", *f.IsResolved)
		}
		if f.Category != "" {
			sub := s.db.Model(&models.Category{}).Select("id").Where("name = ?", f.Category)
			db = db.Where("category_id IN (?)", sub)
		}
		if q := strings.TrimSpace(f.Query); q != "" {
			like := "%" + strings.ToLower(q) + "%"
			db = db.Where("(LOWER(title) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ?)", like, like)
		}
		if center != nil {
			box := utils.BoundingBoxFor(center.Lat, center.Lng, radius)
			db = db.Where("latitude IS NOT NULL AND longitude IS NOT NULL").
				Where("latitude BETWEEN ? AND ?", box.MinLat, box.MaxLat).
				Where("longitude BETWEEN ? AND ?", box.MinLng, box.MaxLng)
		}
		return db
	}

	db := s.db.WithContext(ctx)
	if center == nil {
		var total int64
		if err := db.Model(&models.Item{}).Scopes(scope).Count(&total).Error; err != nil {
			return nil, fmt.Errorf("count items: %w", err)
		}
		var items []models.Item
		err := s.withRelations(db).Scopes(scope).
			Order("date_reported DESC").
			Order("id DESC").
			Offset(utils.Offset(page, limit)).
			Limit(limit).
			Find(&items).Error
		if err != nil {
			return nil, fmt.Errorf("list items: %w", err)
		}
		results := make([]ItemResult, len(items))
		for i := range items {
			results[i] = ItemResult{Item: items[i]}
		}
		return &ItemPage{Items: results, Total: total, Page: page, Limit: limit}, nil
	}

	var candidates []models.Item
	err = s.withRelations(db).Scopes(scope).
		Order("date_reported DESC").
		Order("id DESC").
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("list items near: %w", err)
	}

	matched := make([]ItemResult, 0, len(candidates))
	for _, item := range candidates {
		d := utils.HaversineMiles(center.Lat, center.Lng, *item.Latitude, *item.Longitude)
		if d > radius {
			continue
		}
		d = math.Round(d*100) / 100
		matched = append(matched, ItemResult{Item: item, DistanceMiles: &d})
	}
	total := int64(len(matched))
	start := utils.Offset(page, limit)
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return &ItemPage{Items: matched[start:end], Total: total, Page: page, Limit: limit}, nil
}

func (s *ItemService) resolveCenter(ctx context.Context, f ItemFilter) (*Coordinates, float64, error) {
	radius := DefaultRadiusMiles
	if f.Radius != nil && *f.Radius > 0 {
		radius = *f.Radius
	}

	if zip := strings.TrimSpace(f.Zip); zip != "" {
		if s.geocoder == nil {
			return nil, 0, ErrZipNotFound
		}
		coords, err := s.geocoder.ZipToCoords(ctx, zip)
		if err != nil {
			return nil, 0, fmt.Errorf("geocode zip: %w", err)
		}
		if coords == nil {
			return nil, 0, ErrZipNotFound
		}
		return coords, radius, nil
	}
	if f.Lat != nil && f.Lng != nil {
		return &Coordinates{Lat: *f.Lat, Lng: *f.Lng}, radius, nil
	}
	return nil, 0, nil
}

func (s *ItemService) ListOwnItems(ctx context.Context, ownerID uuid.UUID, page, limit int) (*ItemPage, error) {
	if page < 1 {
		page = 1
	}
	limit = utils.ClampInt(limit, DefaultItemLimit, 1, MaxItemLimit)

	db := s.db.WithContext(ctx)
	var total int64
	if err := db.Model(&models.Item{}).Where("owner_id = ?", ownerID).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count own items: %w", err)
	}
	var items []models.Item
	err := s.withRelations(db).
		Where("owner_id = ?", ownerID).
		Order("date_reported DESC").
		Order("id DESC").
		Offset(utils.Offset(page, limit)).
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list own items: %w", err)
	}
	results := make([]ItemResult, len(items))
	for i := range items {
		results[i] = ItemResult{Item: items[i]}
	}
	return &ItemPage{Items: results, Total: total, Page: page, Limit: limit}, nil
}

func (s *ItemService) CreateItem(ctx context.Context, ownerID uuid.UUID, in CreateItemInput) (*models.Item, error) {
	db := s.db.WithContext(ctx)

	var categories int64
	if err := db.Model(&models.Category{}).Where("id = ?", in.CategoryID).Count(&categories).Error; err != nil {
		return nil, fmt.Errorf("check category: %w", err)
	}
	if categories == 0 {
		return nil, ErrCategoryNotFound
	}

	item := models.Item{
		OwnerID:     ownerID,
		CategoryID:  in.CategoryID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Status:      in.Status,
		IsResolved:  in.Status == models.ItemStatusResolved,
		ZipCode:     in.ZipCode,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
	}
	if in.IsResolved != nil {
		item.IsResolved = *in.IsResolved
	}
	if item.ZipCode != nil && (item.Latitude == nil || item.Longitude == nil) {
		if coords := s.tryGeocode(ctx, *item.ZipCode); coords != nil {
			if item.Latitude == nil {
				item.Latitude = &coords.Lat
			}
			if item.Longitude == nil {
				item.Longitude = &coords.Lng
			}
		}
	}

	if err := db.Create(&item).Error; err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	s.log.Info("item created", zap.String("item_id", item.ID.String()), zap.String("owner_id", ownerID.String()))
	return s.GetItem(ctx, item.ID)
}

// tryGeocode never fails a write; unknown ZIPs and lookup errors leave the
// coordinates empty.
func (s *ItemService) tryGeocode(ctx context.Context, zip string) *Coordinates {
	if s.geocoder == nil {
		return nil
	}
	coords, err := s.geocoder.ZipToCoords(ctx, zip)
	if err != nil {
		s.log.Warn("geocoding failed", zap.String("zip", zip), zap.Error(err))
		return nil
	}
	return coords
}

func (s *ItemService) loadOwned(ctx context.Context, id, ownerID uuid.UUID) (*models.Item, error) {
	var item models.Item
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if database.IsNotFound(err) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load item: %w", err)
	}
	if item.OwnerID != ownerID {
		return nil, ErrNotItemOwner
	}
	return &item, nil
}

func (s *ItemService) UpdateItem(ctx context.Context, id, ownerID uuid.UUID, in UpdateItemInput) (*models.Item, error) {
	item, err := s.loadOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	updates := map[string]any{}
	if in.Title != nil {
		updates["title"] = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Status != nil {
		updates["status"] = *in.Status
		if *in.Status == models.ItemStatusResolved && in.IsResolved == nil {
			updates["is_resolved"] = true
		}
	}
	if in.IsResolved != nil {
		updates["is_resolved"] = *in.IsResolved
	}

	switch {
	case in.CategoryID != nil:
		var n int64
		if err := db.Model(&models.Category{}).Where("id = ?", *in.CategoryID).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("check category: %w", err)
		}
		if n == 0 {
			return nil, ErrCategoryNotFound
		}
		updates["category_id"] = *in.CategoryID
	case in.CategoryName != nil:
		var category models.Category
		err := db.Select("id").First(&category, "name = ?", strings.TrimSpace(*in.CategoryName)).Error
		if database.IsNotFound(err) {
			return nil, ErrCategoryNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("find category: %w", err)
		}
		updates["category_id"] = category.ID
	}

	if in.Latitude != nil {
		updates["latitude"] = *in.Latitude
	}
	if in.Longitude != nil {
		updates["longitude"] = *in.Longitude
	}
	if in.ZipCode != nil {
		updates["zip_code"] = *in.ZipCode
		if in.Latitude == nil || in.Longitude == nil {
			if coords := s.tryGeocode(ctx, *in.ZipCode); coords != nil {
				if in.Latitude == nil {
					updates["latitude"] = coords.Lat
				}
				if in.Longitude == nil {
					updates["longitude"] = coords.Lng
				}
			}
		}
	}

	if len(updates) > 0 {
		if err := db.Model(item).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update item: %w", err)
		}
	}
	return s.GetItem(ctx, id)
}

// DeleteItem removes the item and everything hanging off it in one
// transaction. Remote photo assets are released afterwards.
func (s *ItemService) DeleteItem(ctx context.Context, id, ownerID uuid.UUID) error {
	if _, err := s.loadOwned(ctx, id, ownerID); err != nil {
		return err
	}

	var photos []models.ItemPhoto
	var members []models.Thread
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", id).Find(&photos).Error; err != nil {
			return err
		}
		if err := tx.Select("id", "owner_id", "participant_id").Where("item_id = ?", id).Find(&members).Error; err != nil {
			return err
		}

		threadIDs := tx.Model(&models.Thread{}).Select("id").Where("item_id = ?", id)
		if err := tx.Where("thread_id IN (?)", threadIDs).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		for _, model := range []any{&models.Thread{}, &models.Comment{}, &models.SeenMark{}, &models.ItemPhoto{}} {
			if err := tx.Where("item_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Item{}, "id = ?", id).Error
	})
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}

	affected := make([]uuid.UUID, 0, len(members)*2)
	for _, t := range members {
		affected = append(affected, t.OwnerID, t.ParticipantID)
	}
	invalidateUnread(ctx, s.cache, s.log, affected...)
	s.releasePhotos(photos)

	s.log.Info("item deleted", zap.String("item_id", id.String()), zap.Int("threads", len(members)))
	return nil
}

func (s *ItemService) releasePhotos(photos []models.ItemPhoto) {
	if s.images == nil {
		return
	}
	for _, p := range photos {
		if p.PublicID == nil {
			continue
		}
		publicID := *p.PublicID
		go func() {
			if err := s.images.Destroy(context.Background(), publicID); err != nil {
				s.log.Warn("failed to destroy photo asset", zap.String("public_id", publicID), zap.Error(err))
			}
		}()
	}
}

// AddPhotos attaches photos by URL, skipping URLs already on the item, and
// returns every photo of the item oldest first.
func (s *ItemService) AddPhotos(ctx context.Context, itemID, ownerID uuid.UUID, photos []PhotoInput) ([]models.ItemPhoto, error) {
	if _, err := s.loadOwned(ctx, itemID, ownerID); err != nil {
		return nil, err
	}
	if len(photos) > MaxPhotosPerRequest {
		return nil, utils.ErrValidation(fmt.Sprintf("At most %d photos per request", MaxPhotosPerRequest))
	}

	db := s.db.WithContext(ctx)
	if len(photos) > 0 {
		rows := make([]models.ItemPhoto, 0, len(photos))
		for _, p := range photos {
			url := strings.TrimSpace(p.URL)
			if url == "" {
				continue
			}
			rows = append(rows, models.ItemPhoto{ItemID: itemID, URL: url, PublicID: p.PublicID})
		}
		if len(rows) > 0 {
			if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
				return nil, fmt.Errorf("add photos: %w", err)
			}
		}
	}

	var all []models.ItemPhoto
	if err := db.Where("item_id = ?", itemID).Order("created_at ASC").Order("id ASC").Find(&all).Error; err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	return all, nil
}

// UploadPhotos pushes multipart files to the image store and attaches them.
func (s *ItemService) UploadPhotos(ctx context.Context, itemID, ownerID uuid.UUID, files []*multipart.FileHeader) ([]models.ItemPhoto, error) {
	if _, err := s.loadOwned(ctx, itemID, ownerID); err != nil {
		return nil, err
	}
	if s.images == nil {
		return nil, utils.NewAppError(503, "SERVICE_UNAVAILABLE", "Image uploads are not configured")
	}
	if len(files) > MaxPhotosPerRequest {
		return nil, utils.ErrValidation(fmt.Sprintf("At most %d photos per request", MaxPhotosPerRequest))
	}

	inputs := make([]PhotoInput, 0, len(files))
	for _, fh := range files {
		uploaded, err := s.images.Upload(ctx, fh, FolderItems)
		if err != nil {
			return nil, err
		}
		publicID := uploaded.PublicID
		inputs = append(inputs, PhotoInput{URL: uploaded.URL, PublicID: &publicID})
	}
	return s.AddPhotos(ctx, itemID, ownerID, inputs)
}

func (s *ItemService) DeletePhoto(ctx context.Context, itemID, ownerID, photoID uuid.UUID) error {
	if _, err := s.loadOwned(ctx, itemID, ownerID); err != nil {
		return err
	}

	db := s.db.WithContext(ctx)
	var photo models.ItemPhoto
	err := db.First(&photo, "id = ? AND item_id = ?", photoID, itemID).Error
	if database.IsNotFound(err) {
		return ErrPhotoNotFound
	}
	if err != nil {
		return fmt.Errorf("load photo: %w", err)
	}
	if err := db.Delete(&photo).Error; err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	s.releasePhotos([]models.ItemPhoto{photo})
	return nil
}
