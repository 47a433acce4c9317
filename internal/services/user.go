package service

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aaravmahajanofficial/sellit-backend/internal/api/middleware"
	"github.com/aaravmahajanofficial/sellit-backend/internal/cache"
	"github.com/aaravmahajanofficial/sellit-backend/internal/errors"
	"github.com/aaravmahajanofficial/sellit-backend/internal/metrics"
	"github.com/aaravmahajanofficial/sellit-backend/internal/models"
	repository "github.com/aaravmahajanofficial/sellit-backend/internal/repositories"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type UserService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
	GetProfile(ctx context.Context, userID int64) (*models.User, error)
	UpdateProfile(ctx context.Context, userID int64, req *models.UpdateProfileRequest) (*models.User, error)
	ChangePassword(ctx context.Context, userID int64, req *models.UpdatePasswordRequest) error
	DeleteAccount(ctx context.Context, userID int64) error
}

type userService struct {
	repo        repository.UserRepository
	productRepo repository.ProductRepository
	rateLimiter repository.RateLimitRepository
	tx          repository.Transactor
	cache       cache.Cache
	jwtKey      []byte
	tokenTTL    time.Duration
}

func NewUserService(repo repository.UserRepository, productRepo repository.ProductRepository, rateLimiter repository.RateLimitRepository, tx repository.Transactor, productCache cache.Cache, jwtKey []byte, tokenTTL time.Duration) UserService {
	return &userService{
		repo:        repo,
		productRepo: productRepo,
		rateLimiter: rateLimiter,
		tx:          tx,
		cache:       productCache,
		jwtKey:      jwtKey,
		tokenTTL:    tokenTTL,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func duplicateError(err error) (*errors.AppError, bool) {
	switch {
	case stdErrors.Is(err, repository.ErrDuplicateUsername):
		return errors.DuplicateEntryError("Username already taken").WithError(err), true
	case stdErrors.Is(err, repository.ErrDuplicateEmail):
		return errors.DuplicateEntryError("Email already registered").WithError(err), true
	}

	return nil, false
}

// accountGone answers writes made with a still-valid token for a deleted user.
func accountGone(err error) *errors.AppError {
	return errors.UnauthorizedError("Account no longer exists").WithError(err)
}

func (s *userService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {

	logger := middleware.LoggerFromContext(ctx)

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.InternalError("Failed to secure password").WithError(err)
	}

	user := &models.User{
		Username: strings.TrimSpace(req.Username),
		Email:    normalizeEmail(req.Email),
		Password: string(hashedPassword),
	}

	// uniqueness is enforced by the users constraints, not a prior lookup
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if appErr, ok := duplicateError(err); ok {
			logger.Info("Signup rejected, duplicate user", slog.String("reason", appErr.Message))
			return nil, appErr
		}

		return nil, errors.DatabaseError("Failed to create user").WithError(err)
	}

	logger.Info("User registered", slog.Int64("userId", user.ID))

	return user, nil
}

func (s *userService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {

	logger := middleware.LoggerFromContext(ctx)
	email := normalizeEmail(req.Email)

	allowed, _, retryAfter, err := s.rateLimiter.CheckLoginRateLimit(ctx, email)
	if err != nil {
		metrics.ObserveLogin("error")
		return nil, errors.ThirdPartyError("Rate limit check failed").WithError(err)
	}

	if !allowed {
		metrics.ObserveLogin("rate_limited")
		return nil, errors.TooManyRequestsError("Too many login attempts. Please try again later.").WithRetryAfter(retryAfter)
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil && !stdErrors.Is(err, sql.ErrNoRows) {
		metrics.ObserveLogin("error")
		return nil, errors.DatabaseError("Failed to fetch user").WithError(err)
	}

	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		metrics.ObserveLogin("invalid_credentials")
		return nil, errors.UnauthorizedError("Invalid email or password")
	}

	now := time.Now()

	claims := &models.Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtKey)
	if err != nil {
		metrics.ObserveLogin("error")
		return nil, errors.InternalError("Failed to generate authentication token").WithError(err)
	}

	if err := s.rateLimiter.ResetLoginAttempts(ctx, email); err != nil {
		logger.Warn("Failed to reset login attempts", slog.Any("error", err))
	}

	metrics.ObserveLogin("success")
	logger.Info("User logged in", slog.Int64("userId", user.ID))

	return &models.LoginResponse{
		Token:     tokenString,
		Username:  user.Username,
		ExpiresIn: int(s.tokenTTL.Seconds()),
	}, nil
}

func (s *userService) GetProfile(ctx context.Context, userID int64) (*models.User, error) {

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundError("User not found").WithError(err)
		}

		return nil, errors.DatabaseError("Failed to fetch user").WithError(err)
	}

	return user, nil
}

// UpdateProfile changes username and/or email. A rename also drops the cached
// products of the user, which carry the seller name.
func (s *userService) UpdateProfile(ctx context.Context, userID int64, req *models.UpdateProfileRequest) (*models.User, error) {

	var user *models.User
	var staleKeys []string

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {

		var err error

		user, err = s.GetProfile(ctx, userID)
		if err != nil {
			return err
		}

		if req.Username != nil {
			username := strings.TrimSpace(*req.Username)

			if username != user.Username {
				if staleKeys, err = s.productKeys(ctx, userID); err != nil {
					return err
				}
			}

			user.Username = username
		}

		if req.Email != nil {
			user.Email = normalizeEmail(*req.Email)
		}

		if err := s.repo.UpdateProfile(ctx, user); err != nil {
			if appErr, ok := duplicateError(err); ok {
				return appErr
			}

			if stdErrors.Is(err, sql.ErrNoRows) {
				return errors.NotFoundError("User not found").WithError(err)
			}

			return errors.DatabaseError("Failed to update profile").WithError(err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateProducts(ctx, staleKeys)

	return user, nil
}

func (s *userService) ChangePassword(ctx context.Context, userID int64, req *models.UpdatePasswordRequest) error {

	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {

		user, err := s.GetProfile(ctx, userID)
		if err != nil {
			return err
		}

		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)) != nil {
			return errors.BadRequestError("Current password is incorrect")
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return errors.InternalError("Failed to secure password").WithError(err)
		}

		if err := s.repo.UpdatePassword(ctx, userID, string(hashedPassword)); err != nil {
			if stdErrors.Is(err, sql.ErrNoRows) {
				return errors.NotFoundError("User not found").WithError(err)
			}

			return errors.DatabaseError("Failed to update password").WithError(err)
		}

		return nil
	})
}

// DeleteAccount removes the user; their products and cart go with them, and the
// products' cache entries are dropped once the delete has committed.
func (s *userService) DeleteAccount(ctx context.Context, userID int64) error {

	var staleKeys []string

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {

		var err error

		if staleKeys, err = s.productKeys(ctx, userID); err != nil {
			return err
		}

		if err := s.repo.DeleteUser(ctx, userID); err != nil {
			if stdErrors.Is(err, sql.ErrNoRows) {
				return errors.NotFoundError("User not found").WithError(err)
			}

			return errors.DatabaseError("Failed to delete account").WithError(err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateProducts(ctx, staleKeys)

	middleware.LoggerFromContext(ctx).Info("User account deleted", slog.Int64("userId", userID))

	return nil
}

// productKeys lists the cache keys of every product sold by userID.
func (s *userService) productKeys(ctx context.Context, userID int64) ([]string, error) {

	products, err := s.productRepo.ListProductsBySeller(ctx, userID)
	if err != nil {
		return nil, errors.DatabaseError("Failed to fetch seller products").WithError(err)
	}

	keys := make([]string, 0, len(products))
	for _, product := range products {
		keys = append(keys, cache.ProductKey(product.ID))
	}

	return keys, nil
}

func (s *userService) invalidateProducts(ctx context.Context, keys []string) {

	if len(keys) == 0 {
		return
	}

	if err := s.cache.Delete(ctx, keys...); err != nil {
		middleware.LoggerFromContext(ctx).Warn("Product cache invalidation failed", slog.Int("keys", len(keys)), slog.Any("error", err))
	}
}
