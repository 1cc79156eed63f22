package service

import (
	"context"
	"strings"
	"time"

	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/gomicro/database"
	"github.com/suteetoe/erpsuite/gomicro/logger"
	"github.com/suteetoe/erpsuite/services/user-service/internal/model"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

// CreateUserInput describes a new user
type CreateUserInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// UpdateUserInput carries the fields to change; nil means unchanged
type UpdateUserInput struct {
	Email      *string
	FirstName  *string
	LastName   *string
	IsActive   *bool
	IsVerified *bool
	Password   *string
}

// UserFilter narrows ListUsers
type UserFilter struct {
	Search string
	Active *bool
	ListOptions
}

// UserService manages global identities
type UserService struct {
	db          *gorm.DB
	userTenants *UserTenantService
	cache       DecisionCache
	bcryptCost  int
	now         func() time.Time
}

// NewUserService creates a user service
func NewUserService(db *gorm.DB, userTenants *UserTenantService, cache DecisionCache) *UserService {
	if cache == nil {
		cache = NoopCache()
	}
	return &UserService{
		db:          db,
		userTenants: userTenants,
		cache:       cache,
		bcryptCost:  bcrypt.DefaultCost,
		now:         time.Now,
	}
}

func (s *UserService) hash(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", apperror.Validation("password must be at least %d characters", minPasswordLength)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", apperror.Internal(err, "failed to hash password")
	}
	return string(hashed), nil
}

// Create registers an active, unverified user
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Username == "" || in.Email == "" {
		return nil, apperror.Validation("username and email are required")
	}
	if !strings.Contains(in.Email, "@") {
		return nil, apperror.Validation("invalid email %q", in.Email)
	}
	hashed, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hashed,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		IsActive:     true,
	}
	if err := database.FromContext(ctx, s.db).Create(user).Error; err != nil {
		return nil, writeError(err, "username or email already registered", "user")
	}

	logger.FromContext(ctx).Info("User created", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// Get returns one user
func (s *UserService) Get(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := database.FromContext(ctx, s.db).First(&user, id).Error; err != nil {
		return nil, lookupError(err, "user", id)
	}
	return &user, nil
}

// List returns users matching filter
func (s *UserService) List(ctx context.Context, filter UserFilter) ([]model.User, int64, error) {
	q := database.FromContext(ctx, s.db).Model(&model.User{})
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		q = q.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}
	if filter.Active != nil {
		q = q.Where("is_active = ?", *filter.Active)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperror.Internal(err, "failed to count users")
	}
	users := []model.User{}
	if err := q.Order("id").Limit(filter.limit()).Offset(filter.Offset).Find(&users).Error; err != nil {
		return nil, 0, apperror.Internal(err, "failed to list users")
	}
	return users, total, nil
}

// Update applies the non-nil fields of in
func (s *UserService) Update(ctx context.Context, id uint, in UpdateUserInput) (*model.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if !strings.Contains(email, "@") {
			return nil, apperror.Validation("invalid email %q", *in.Email)
		}
		updates["email"] = email
	}
	if in.FirstName != nil {
		updates["first_name"] = *in.FirstName
	}
	if in.LastName != nil {
		updates["last_name"] = *in.LastName
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}
	if in.IsVerified != nil {
		updates["is_verified"] = *in.IsVerified
	}
	if in.Password != nil {
		hashed, err := s.hash(*in.Password)
		if err != nil {
			return nil, err
		}
		updates["password_hash"] = hashed
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := database.FromContext(ctx, s.db).Model(user).Updates(updates).Error; err != nil {
		return nil, writeError(err, "email already registered", "user")
	}
	if in.IsActive != nil {
		if err := s.cache.InvalidateUser(ctx, id); err != nil {
			logger.FromContext(ctx).Warn("Failed to invalidate permission cache", zap.Error(err))
		}
	}
	return s.Get(ctx, id)
}

// Deactivate is the soft delete of a user
func (s *UserService) Deactivate(ctx context.Context, id uint) (*model.User, error) {
	inactive := false
	return s.Update(ctx, id, UpdateUserInput{IsActive: &inactive})
}

// Authenticate checks credentials by username or email, stamps last_login_at
// and returns the user together with the primary tenant, if any.
func (s *UserService) Authenticate(ctx context.Context, login, password string) (*model.User, *model.Tenant, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, nil, apperror.Validation("login and password are required")
	}

	var user model.User
	err := database.FromContext(ctx, s.db).
		Where("username = ? OR email = ?", login, strings.ToLower(login)).
		First(&user).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, nil, apperror.Forbidden("invalid credentials")
		}
		return nil, nil, apperror.Internal(err, "failed to load user")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, apperror.Forbidden("invalid credentials")
	}
	if !user.IsActive {
		return nil, nil, apperror.Forbidden("user is inactive")
	}

	now := s.now()
	if err := database.FromContext(ctx, s.db).Model(&user).Update("last_login_at", now).Error; err != nil {
		logger.FromContext(ctx).Warn("Failed to stamp last login", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	user.LastLoginAt = &now

	tenant, err := s.userTenants.GetPrimaryTenant(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return &user, tenant, nil
}
