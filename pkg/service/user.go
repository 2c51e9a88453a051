package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, f models.UserFilter, offset, limit int) ([]models.User, error)
	Update(ctx context.Context, id uint, updates map[string]interface{}) (*models.User, error)
	Delete(ctx context.Context, id uint) error
}

// TokenBlacklist invalidates issued tokens until they expire on their own.
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, token string, ttl time.Duration) error
	IsTokenBlacklisted(ctx context.Context, token string) (bool, error)
}

type RegisterInput struct {
	FirstName    string
	LastName     string
	Email        string
	Password     string
	Phone        string
	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	PostalCode   string
	Country      string
}

type UserUpdate struct {
	FirstName    *string
	LastName     *string
	Phone        *string
	AddressLine1 *string
	AddressLine2 *string
	City         *string
	State        *string
	PostalCode   *string
	Country      *string
}

type UserService struct {
	repo      UserRepository
	tokens    *auth.TokenManager
	blacklist TokenBlacklist
	audit     AuditLogger
	logger    *zap.Logger
}

func NewUserService(repo UserRepository, tokens *auth.TokenManager, blacklist TokenBlacklist, audit AuditLogger, logger *zap.Logger) *UserService {
	return &UserService{
		repo:      repo,
		tokens:    tokens,
		blacklist: blacklist,
		audit:     audit,
		logger:    logger,
	}
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if in.Email == "" || in.Password == "" {
		return nil, apperr.Validation("email and password are required")
	}
	if len(in.Password) < 8 {
		return nil, apperr.Validation("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", zap.Error(err))
		return nil, apperr.ErrPersistence
	}

	user := &models.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		Phone:        in.Phone,
		Password:     string(hash),
		Role:         models.RoleCustomer,
		AddressLine1: in.AddressLine1,
		AddressLine2: in.AddressLine2,
		City:         in.City,
		State:        in.State,
		PostalCode:   in.PostalCode,
		Country:      in.Country,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if domainError(err) {
			return nil, err
		}
		s.logger.Error("failed to create user", zap.String("email", in.Email), zap.Error(err))
		return nil, apperr.ErrPersistence
	}

	if s.audit != nil {
		go s.audit.LogAction(context.Background(), "register_user", "user", fmt.Sprint(user.ID), map[string]interface{}{
			"email": user.Email,
		})
	}

	s.logger.Info("user registered", zap.Uint("user_id", user.ID), zap.String("email", user.Email))
	return user, nil
}

// Login verifies credentials and returns a signed access token. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if domainError(err) {
			return "", nil, apperr.ErrAuthentication
		}
		s.logger.Error("failed to load user for login", zap.Error(err))
		return "", nil, apperr.ErrPersistence
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		s.logger.Warn("login rejected", zap.String("email", email))
		return "", nil, apperr.ErrAuthentication
	}

	token, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		s.logger.Error("failed to issue token", zap.Uint("user_id", user.ID), zap.Error(err))
		return "", nil, apperr.ErrPersistence
	}

	s.logger.Info("user logged in", zap.Uint("user_id", user.ID))
	return token, user, nil
}

// Logout blacklists the presented token for its remaining lifetime.
func (s *UserService) Logout(ctx context.Context, token string, claims *auth.Claims) error {
	if s.blacklist == nil {
		return nil
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	if err := s.blacklist.BlacklistToken(ctx, token, ttl); err != nil {
		s.logger.Error("failed to blacklist token", zap.Uint("user_id", claims.UserID), zap.Error(err))
		return apperr.ErrPersistence
	}
	return nil
}

func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if domainError(err) {
			return nil, err
		}
		s.logger.Error("failed to retrieve user", zap.Uint("user_id", id), zap.Error(err))
		return nil, apperr.ErrPersistence
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context, f models.UserFilter, offset, limit int) ([]models.User, error) {
	users, err := s.repo.List(ctx, f, offset, limit)
	if err != nil {
		s.logger.Error("failed to list users", zap.Error(err))
		return nil, apperr.ErrPersistence
	}
	return users, nil
}

func (s *UserService) UpdateUser(ctx context.Context, id uint, in UserUpdate) (*models.User, error) {
	updates := make(map[string]interface{})
	set := func(column string, value *string) {
		if value != nil {
			updates[column] = *value
		}
	}
	set("first_name", in.FirstName)
	set("last_name", in.LastName)
	set("phone", in.Phone)
	set("address_line1", in.AddressLine1)
	set("address_line2", in.AddressLine2)
	set("city", in.City)
	set("state", in.State)
	set("postal_code", in.PostalCode)
	set("country", in.Country)

	if len(updates) == 0 {
		return nil, apperr.Validation("no fields to update")
	}

	user, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		if domainError(err) {
			return nil, err
		}
		s.logger.Error("failed to update user", zap.Uint("user_id", id), zap.Error(err))
		return nil, apperr.ErrPersistence
	}

	if s.audit != nil {
		go s.audit.LogAction(context.Background(), "update_user", "user", fmt.Sprint(id), map[string]interface{}{
			"fields": len(updates),
		})
	}
	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if domainError(err) {
			return err
		}
		s.logger.Error("failed to delete user", zap.Uint("user_id", id), zap.Error(err))
		return apperr.ErrPersistence
	}

	if s.audit != nil {
		go s.audit.LogAction(context.Background(), "delete_user", "user", fmt.Sprint(id), nil)
	}
	return nil
}
