package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"go-rating/internal/model"
)

const minPasswordLength = 8

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// RegisterInput 注册参数
type RegisterInput struct {
	Username        string `json:"username" binding:"required,max=150"`
	Email           string `json:"email" binding:"omitempty,email"`
	Password        string `json:"password" binding:"required"`
	PasswordConfirm string `json:"password_confirm" binding:"required"`
}

// Register 创建用户
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrValidation)
	}
	if in.Password != in.PasswordConfirm {
		return nil, fmt.Errorf("%w: passwords do not match", ErrValidation)
	}
	if len(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        in.Email,
		PasswordHash: string(hash),
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: username %q is taken", ErrConflict, username)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login 校验用户名密码, 返回 (或创建) 该用户的令牌
func (s *UserService) Login(ctx context.Context, username, password string) (*model.Token, error) {
	db := s.db.WithContext(ctx)

	var user model.User
	if err := db.Where("username = ?", username).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}

	var token model.Token
	err := db.Where("user_id = ?", user.ID).Take(&token).Error
	if err == nil {
		return &token, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find token: %w", err)
	}

	token = model.Token{Key: newTokenKey(), UserID: user.ID}
	if err := db.Create(&token).Error; err != nil {
		return nil, fmt.Errorf("create token: %w", err)
	}
	return &token, nil
}

// Authenticate 根据令牌查找用户
func (s *UserService) Authenticate(ctx context.Context, key string) (*model.User, error) {
	if key == "" {
		return nil, ErrUnauthorized
	}

	var token model.Token
	if err := s.db.WithContext(ctx).Preload("User").Where("key = ?", key).Take(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: invalid token", ErrUnauthorized)
		}
		return nil, fmt.Errorf("find token: %w", err)
	}
	return &token.User, nil
}

func newTokenKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
