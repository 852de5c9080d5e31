package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/retrieveapp/retrieve-api/database"
	"github.com/retrieveapp/retrieve-api/models"
	"github.com/retrieveapp/retrieve-api/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type UserService struct {
	db     *gorm.DB
	images ImageStore
	log    *zap.Logger
}

func NewUserService(db *gorm.DB, images ImageStore, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{db: db, images: images, log: log}
}

type UpdateProfileInput struct {
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	ZipCode     *string
}

func (s *UserService) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if database.IsNotFound(err) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, in UpdateProfileInput) (*models.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if in.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*in.LastName)
	}
	if in.PhoneNumber != nil {
		updates["phone_number"] = NormalizePhone(*in.PhoneNumber)
	}
	if in.ZipCode != nil {
		updates["zip_code"] = strings.TrimSpace(*in.ZipCode)
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.Get(ctx, userID)
}

// UpdateAvatar uploads file as the new avatar and releases the previous asset.
func (s *UserService) UpdateAvatar(ctx context.Context, userID uuid.UUID, file any) (*models.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.images == nil {
		return nil, utils.NewAppError(503, "SERVICE_UNAVAILABLE", "Image uploads are not configured")
	}

	uploaded, err := s.images.Upload(ctx, file, FolderAvatars)
	if err != nil {
		return nil, err
	}

	previous := user.AvatarPublicID
	err = s.db.WithContext(ctx).Model(user).Updates(map[string]any{
		"avatar_url":       uploaded.URL,
		"avatar_public_id": uploaded.PublicID,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("save avatar: %w", err)
	}

	if previous != nil && *previous != "" && *previous != uploaded.PublicID {
		if err := s.images.Destroy(ctx, *previous); err != nil {
			s.log.Warn("failed to destroy previous avatar", zap.String("public_id", *previous), zap.Error(err))
		}
	}
	return s.Get(ctx, userID)
}
