package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"agora/internal/models"
	"agora/internal/rbac"
	"agora/internal/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const minPasswordLength = 8

type UserService struct {
	db    *gorm.DB
	guard *rbac.Guard
	log   *zap.Logger
}

func NewUserService(conn *gorm.DB, guard *rbac.Guard, log *zap.Logger) *UserService {
	return &UserService{db: conn, guard: guard, log: log}
}

// Register creates a user with the default role and a zero trust score.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if n := utf8.RuneCountInString(username); n < 2 || n > 30 {
		return nil, invalidf("username must be 2-30 characters")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalidf("invalid email address")
	}
	if len(password) < minPasswordLength {
		return nil, invalidf("password must be at least %d characters", minPasswordLength)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{
		Username: username,
		Email:    email,
		Password: hash,
		Role:     string(rbac.RoleUser),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return nil, err
	}
	s.log.Info("user registered", zap.Uint("user_id", user.ID))
	return &user, nil
}

// Authenticate checks credentials. Unknown emails and wrong passwords are indistinguishable.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPasswordHash(password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) List(ctx context.Context, actor *rbac.Actor, limit, offset int) ([]models.User, error) {
	if err := s.guard.Authorize(actor, rbac.PermManageUsers); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var users []models.User
	err := s.db.WithContext(ctx).Order("id ASC").Limit(limit).Offset(offset).Find(&users).Error
	return users, err
}

// ChangeRole writes the canonical role and clears the legacy admin flag.
func (s *UserService) ChangeRole(ctx context.Context, actor *rbac.Actor, userID uint, role string) (*models.User, error) {
	if err := s.guard.Authorize(actor, rbac.PermManageRoles); err != nil {
		return nil, err
	}
	target, ok := rbac.ParseRole(role)
	if !ok || target == rbac.RoleGuest {
		return nil, invalidf("role %q cannot be assigned", role)
	}
	if userID == actor.ID {
		return nil, invalidf("cannot change your own role")
	}

	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{
		"role":     string(target),
		"is_admin": nil,
	}
	if target != rbac.RoleContributor {
		updates["contributor_type"] = ""
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Updates(updates).Error; err != nil {
			return err
		}
		return notify(tx, models.Notification{
			UserID:  user.ID,
			ActorID: &actor.ID,
			Type:    models.NotifyRoleChanged,
			Reason:  fmt.Sprintf("Your role is now %s.", target),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("role changed",
		zap.Uint("actor_id", actor.ID),
		zap.Uint("user_id", userID),
		zap.String("role", string(target)),
	)
	return s.Get(ctx, userID)
}

func (s *UserService) SetVerified(ctx context.Context, actor *rbac.Actor, userID uint, verified bool) (*models.User, error) {
	if err := s.guard.Authorize(actor, rbac.PermManageUsers); err != nil {
		return nil, err
	}
	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("verified", verified)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, userID)
}
