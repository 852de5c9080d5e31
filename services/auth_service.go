package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/retrieveapp/retrieve-api/database"
	"github.com/retrieveapp/retrieve-api/models"
	"github.com/retrieveapp/retrieve-api/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthConfig struct {
	JWTSecret     string
	TokenLifetime time.Duration
	BcryptCost    int
	ResetTokenTTL time.Duration
	FrontendURL   string
}

type AuthService struct {
	db     *gorm.DB
	cfg    AuthConfig
	mailer Mailer
	log    *zap.Logger
}

func NewAuthService(db *gorm.DB, cfg AuthConfig, mailer Mailer, log *zap.Logger) *AuthService {
	if cfg.TokenLifetime <= 0 {
		cfg.TokenLifetime = time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = 30 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{db: db, cfg: cfg, mailer: mailer, log: log}
}

type RegisterInput struct {
	FirstName   string
	LastName    string
	Email       string
	Password    string
	ZipCode     string
	PhoneNumber *string
	AvatarURL   *string
}

type AuthResult struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"accessToken"`
}

// NormalizePhone keeps digits and a single leading plus sign.
func NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	for i, r := range raw {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Email:     normalizeEmail(in.Email),
		Password:  string(hashed),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		AvatarURL: in.AvatarURL,
	}
	if zip := strings.TrimSpace(in.ZipCode); zip != "" {
		user.ZipCode = &zip
	}
	if in.PhoneNumber != nil {
		phone := NormalizePhone(*in.PhoneNumber)
		user.PhoneNumber = &phone
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.IssueToken(user.ID)
	if err != nil {
		return nil, err
	}
	s.log.Info("user registered", zap.String("user_id", user.ID.String()))
	return &AuthResult{User: &user, AccessToken: token}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if database.IsNotFound(err) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.IssueToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: &user, AccessToken: token}, nil
}

// IssueToken signs an HS256 access token carrying the user id.
func (s *AuthService) IssueToken(userID uuid.UUID) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"exp":     time.Now().Add(s.cfg.TokenLifetime).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates an access token and returns its user id. It is used
// where the JWT middleware cannot run, such as websocket auth frames.
func (s *AuthService) ParseToken(raw string) (uuid.UUID, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, utils.ErrUnauthorized("Invalid or expired token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, utils.ErrUnauthorized("Invalid or expired token")
	}
	sub, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, utils.ErrUnauthorized("Invalid or expired token")
	}
	return userID, nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ForgotPassword issues a single-use reset token and emails a link. Unknown
// emails are silently ignored so the response never reveals accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	db := s.db.WithContext(ctx)

	var user models.User
	err := db.Where("email = ?", normalizeEmail(email)).First(&user).Error
	if database.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	token := hex.EncodeToString(tokenBytes)
	now := db.NowFunc()

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.PasswordResetToken{}).
			Where("user_id = ? AND used_at IS NULL AND expires_at > ?", user.ID, now).
			Update("expires_at", now).Error; err != nil {
			return err
		}
		return tx.Create(&models.PasswordResetToken{
			UserID:    user.ID,
			TokenHash: hashResetToken(token),
			ExpiresAt: now.Add(s.cfg.ResetTokenTTL),
		}).Error
	})
	if err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	if s.mailer != nil {
		link := fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(s.cfg.FrontendURL, "/"), token)
		body := fmt.Sprintf("<h1>Password Reset</h1><p>Click the link below to reset your password. This link is valid for %d minutes.</p><p><a href='%s'>Reset Password</a></p>",
			int(s.cfg.ResetTokenTTL.Minutes()), html.EscapeString(link))
		name, address := user.FirstName, user.Email
		go func() {
			if err := s.mailer.Send(context.Background(), name, address, "Your Password Reset Link", body); err != nil {
				s.log.Warn("reset email failed", zap.Error(err), zap.String("user_id", user.ID.String()))
			}
		}()
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	db := s.db.WithContext(ctx)
	now := db.NowFunc()

	var record models.PasswordResetToken
	err := db.Where("token_hash = ? AND used_at IS NULL AND expires_at > ?", hashResetToken(token), now).
		First(&record).Error
	if database.IsNotFound(err) {
		return ErrResetTokenInvalid
	}
	if err != nil {
		return fmt.Errorf("find reset token: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.PasswordResetToken{}).
			Where("id = ? AND used_at IS NULL", record.ID).
			Update("used_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrResetTokenInvalid
		}
		if err := tx.Model(&models.PasswordResetToken{}).
			Where("user_id = ? AND id <> ? AND used_at IS NULL AND expires_at > ?", record.UserID, record.ID, now).
			Update("expires_at", now).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", record.UserID).Update("password", string(hashed)).Error
	})
	if errors.Is(err, ErrResetTokenInvalid) {
		return ErrResetTokenInvalid
	}
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	s.log.Info("password reset", zap.String("user_id", record.UserID.String()))
	return nil
}

// PurgeResetTokens deletes used and expired reset tokens.
func (s *AuthService) PurgeResetTokens(ctx context.Context) (int64, error) {
	db := s.db.WithContext(ctx)
	res := db.Where("used_at IS NOT NULL OR expires_at <= ?", db.NowFunc()).Delete(&models.PasswordResetToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge reset tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}
