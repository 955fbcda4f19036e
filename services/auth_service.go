package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"clicker-battle/logger"
	"clicker-battle/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 50
	minPasswordLen = 6
	tokenIssuer    = "clicker-battle"
)

// AuthService registers users and issues and verifies bearer tokens.
type AuthService struct {
	DB  *gorm.DB
	Log *logger.Logger

	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthService(db *gorm.DB, log *logger.Logger, secret string, ttl time.Duration) *AuthService {
	return &AuthService{DB: db, Log: log, secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Register creates a user with the default rating. Usernames that slug to an existing
// handle ("Bob" vs "bob") are rejected as duplicates.
func (s *AuthService) Register(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if n := utf8.RuneCountInString(username); n < minUsernameLen || n > maxUsernameLen {
		return nil, fmt.Errorf("%w: username must be %d-%d characters", ErrInvalidInput, minUsernameLen, maxUsernameLen)
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	}
	handle := slug.Make(username)
	if handle == "" {
		return nil, fmt.Errorf("%w: username must contain letters or digits", ErrInvalidInput)
	}

	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR handle = ?", username, handle).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: username %q is taken", ErrConflict, username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Handle:       handle,
		PasswordHash: string(hash),
		EloRating:    models.DefaultRating,
	}
	if err := s.DB.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: username %q is taken", ErrConflict, username)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.Log.Info("user registered", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// Login checks the password, stamps last_login and returns a signed token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.DB.WithContext(ctx).Model(&user).
		Updates(map[string]any{"last_login": now, "last_activity": now}).Error; err != nil {
		return "", nil, fmt.Errorf("stamp last login: %w", err)
	}
	user.LastLogin = &now
	user.LastActivity = &now

	token, err := s.IssueToken(user.ID)
	if err != nil {
		return "", nil, err
	}
	return token, &user, nil
}

// IssueToken signs an HS256 token whose subject is the user id.
func (s *AuthService) IssueToken(userID string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify returns the user id carried by a valid token.
func (s *AuthService) Verify(token string) (string, error) {
	if token == "" {
		return "", ErrUnauthorized
	}
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", ErrUnauthorized
	}
	return claims.Subject, nil
}
