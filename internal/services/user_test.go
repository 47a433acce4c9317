package service_test

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/aaravmahajanofficial/sellit-backend/internal/cache"
	cacheMocks "github.com/aaravmahajanofficial/sellit-backend/internal/cache/mocks"
	appErrors "github.com/aaravmahajanofficial/sellit-backend/internal/errors"
	"github.com/aaravmahajanofficial/sellit-backend/internal/models"
	repository "github.com/aaravmahajanofficial/sellit-backend/internal/repositories"
	"github.com/aaravmahajanofficial/sellit-backend/internal/repositories/mocks"
	service "github.com/aaravmahajanofficial/sellit-backend/internal/services"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testJwtKey = []byte("test-secret-key-123456789012345")

type userFixture struct {
	users    *mocks.UserRepository
	products *mocks.ProductRepository
	limiter  *mocks.RateLimitRepository
	cache    *cacheMocks.Cache
	service  service.UserService
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()

	f := &userFixture{
		users:    new(mocks.UserRepository),
		products: new(mocks.ProductRepository),
		limiter:  new(mocks.RateLimitRepository),
		cache:    new(cacheMocks.Cache),
	}
	f.service = service.NewUserService(f.users, f.products, f.limiter, new(mocks.Transactor), f.cache, testJwtKey, time.Hour)

	t.Cleanup(func() {
		f.users.AssertExpectations(t)
		f.products.AssertExpectations(t)
		f.limiter.AssertExpectations(t)
		f.cache.AssertExpectations(t)
	})

	return f
}

func storedUser(t *testing.T, password string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	return &models.User{ID: buyerID, Username: "jane_doe", Email: "jane@example.com", Password: string(hash)}
}

func TestRegister(t *testing.T) {
	req := &models.RegisterRequest{Username: "jane_doe", Email: " Jane@Example.com ", Password: "s3cret-pass"}

	t.Run("Hashes the password and normalises the email", func(t *testing.T) {
		f := newUserFixture(t)

		f.users.On("CreateUser", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
			return u.Username == "jane_doe" && u.Email == "jane@example.com" &&
				bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("s3cret-pass")) == nil
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*models.User).ID = 42
		}).Return(nil).Once()

		user, err := f.service.Register(t.Context(), req)

		require.NoError(t, err)
		assert.Equal(t, int64(42), user.ID)
		assert.NotEqual(t, "s3cret-pass", user.Password)
	})

	t.Run("Duplicate username", func(t *testing.T) {
		f := newUserFixture(t)

		f.users.On("CreateUser", mock.Anything, mock.Anything).Return(repository.ErrDuplicateUsername).Once()

		_, err := f.service.Register(t.Context(), req)

		appErr := requireAppError(t, err, appErrors.ErrCodeDuplicateEntry)
		assert.Equal(t, 409, appErr.StatusCode)
		assert.Equal(t, "Username already taken", appErr.Message)
	})

	t.Run("Duplicate email", func(t *testing.T) {
		f := newUserFixture(t)

		f.users.On("CreateUser", mock.Anything, mock.Anything).Return(repository.ErrDuplicateEmail).Once()

		_, err := f.service.Register(t.Context(), req)

		appErr := requireAppError(t, err, appErrors.ErrCodeDuplicateEntry)
		assert.Equal(t, "Email already registered", appErr.Message)
	})

	t.Run("Database error", func(t *testing.T) {
		f := newUserFixture(t)

		f.users.On("CreateUser", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

		_, err := f.service.Register(t.Context(), req)

		requireAppError(t, err, appErrors.ErrCodeDatabaseError)
	})
}

func TestLogin(t *testing.T) {
	req := &models.LoginRequest{Email: "Jane@example.com", Password: "s3cret-pass"}

	t.Run("Issues a token and resets attempts", func(t *testing.T) {
		f := newUserFixture(t)
		user := storedUser(t, "s3cret-pass")

		f.limiter.On("CheckLoginRateLimit", mock.Anything, "jane@example.com").Return(true, 4, 0, nil).Once()
		f.users.On("GetUserByEmail", mock.Anything, "jane@example.com").Return(user, nil).Once()
		f.limiter.On("ResetLoginAttempts", mock.Anything, "jane@example.com").Return(nil).Once()

		resp, err := f.service.Login(t.Context(), req)

		require.NoError(t, err)
		assert.Equal(t, "jane_doe", resp.Username)
		assert.Equal(t, 3600, resp.ExpiresIn)

		claims := &models.Claims{}
		_, err = jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (any, error) { return testJwtKey, nil })
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
		assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
	})

	t.Run("Wrong password", func(t *testing.T) {
		f := newUserFixture(t)

		f.limiter.On("CheckLoginRateLimit", mock.Anything, "jane@example.com").Return(true, 4, 0, nil).Once()
		f.users.On("GetUserByEmail", mock.Anything, "jane@example.com").Return(storedUser(t, "other-pass"), nil).Once()

		_, err := f.service.Login(t.Context(), req)

		appErr := requireAppError(t, err, appErrors.ErrCodeUnauthorized)
		assert.Equal(t, "Invalid email or password", appErr.Message)
		f.limiter.AssertNotCalled(t, "ResetLoginAttempts", mock.Anything, mock.Anything)
	})

	t.Run("Unknown email looks like a wrong password", func(t *testing.T) {
		f := newUserFixture(t)

		f.limiter.On("CheckLoginRateLimit", mock.Anything, "jane@example.com").Return(true, 4, 0, nil).Once()
		f.users.On("GetUserByEmail", mock.Anything, "jane@example.com").Return(nil, sql.ErrNoRows).Once()

		_, err := f.service.Login(t.Context(), req)

		appErr := requireAppError(t, err, appErrors.ErrCodeUnauthorized)
		assert.Equal(t, "Invalid email or password", appErr.Message)
	})

	t.Run("Rate limited", func(t *testing.T) {
		f := newUserFixture(t)

		f.limiter.On("CheckLoginRateLimit", mock.Anything, "jane@example.com").Return(false, 0, 120, nil).Once()

		_, err := f.service.Login(t.Context(), req)

		appErr := requireAppError(t, err, appErrors.ErrCodeTooManyRequests)
		assert.Equal(t, 429, appErr.StatusCode)
		assert.Equal(t, 120, appErr.RetryAfter)
		f.users.AssertNotCalled(t, "GetUserByEmail", mock.Anything, mock.Anything)
	})

	t.Run("Rate limiter unavailable", func(t *testing.T) {
		f := newUserFixture(t)

		f.limiter.On("CheckLoginRateLimit", mock.Anything, "jane@example.com").Return(false, 0, 0, errors.New("redis down")).Once()

		_, err := f.service.Login(t.Context(), req)

		requireAppError(t, err, appErrors.ErrCodeThirdPartyError)
	})
}

func TestProfile(t *testing.T) {
	t.Run("GetProfile missing user", func(t *testing.T) {
		f := newUserFixture(t)

		f.users.On("GetUserByID", mock.Anything, buyerID).Return(nil, sql.ErrNoRows).Once()

		_, err := f.service.GetProfile(t.Context(), buyerID)

		requireAppError(t, err, appErrors.ErrCodeNotFound)
	})

	t.Run("UpdateProfile changes only the given fields", func(t *testing.T) {
		f := newUserFixture(t)
		newEmail := "NEW@example.com"

		f.users.On("GetUserByID", mock.Anything, buyerID).Return(storedUser(t, "pw-123456"), nil).Once()
		f.users.On("UpdateProfile", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
			return u.Username == "jane_doe" && u.Email == "new@example.com"
		})).Return(nil).Once()

		user, err := f.service.UpdateProfile(t.Context(), buyerID, &models.UpdateProfileRequest{Email: &newEmail})

		require.NoError(t, err)
		assert.Equal(t, "new@example.com", user.Email)
	})

	t.Run("UpdateProfile to a taken username", func(t *testing.T) {
		f := newUserFixture(t)
		name := "taken_name"

		f.users.On("GetUserByID", mock.Anything, buyerID).Return(storedUser(t, "pw-123456"), nil).Once()
		f.products.On("ListProductsBySeller", mock.Anything, buyerID).Return(sellerProducts(11), nil).Once()
		f.users.On("UpdateProfile", mock.Anything, mock.Anything).Return(repository.ErrDuplicateUsername).Once()

		_, err := f.service.UpdateProfile(t.Context(), buyerID, &models.UpdateProfileRequest{Username: &name})

		requireAppError(t, err, appErrors.ErrCodeDuplicateEntry)
		f.cache.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("Rename evicts the seller's cached products", func(t *testing.T) {
		f := newUserFixture(t)
		name := "jane_renamed"

		f.users.On("GetUserByID", mock.Anything, buyerID).Return(storedUser(t, "pw-123456"), nil).Once()
		f.products.On("ListProductsBySeller", mock.Anything, buyerID).Return(sellerProducts(11, 12), nil).Once()
		f.users.On("UpdateProfile", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
			return u.Username == "jane_renamed"
		})).Return(nil).Once()
		f.cache.On("Delete", mock.Anything, []string{cache.ProductKey(11), cache.ProductKey(12)}).Return(nil).Once()

		user, err := f.service.UpdateProfile(t.Context(), buyerID, &models.UpdateProfileRequest{Username: &name})

		require.NoError(t, err)
		assert.Equal(t, "jane_renamed", user.Username)
	})

	t.Run("Same username leaves the cache alone", func(t *testing.T) {
		f := newUserFixture(t)
		name := " jane_doe "

		f.users.On("GetUserByID", mock.Anything, buyerID).Return(storedUser(t, "pw-123456"), nil).Once()
		f.users.On("UpdateProfile", mock.Anything, mock.Anything).Return(nil).Once()

		_, err := f.service.UpdateProfile(t.Context(), buyerID, &models.UpdateProfileRequest{Username: &name})

		require.NoError(t, err)
		f.products.AssertNotCalled(t, "ListProductsBySeller", mock.Anything, mock.Anything)
	})
}

func sellerProducts(ids ...int64) []*models.Product {
	products := make([]*models.Product, 0, len(ids))
	for _, id := range ids {
		products = append(products, &models.Product{ID: id, SellerID: buyerID})
	}

	return products
}

func TestChangePassword(t *testing.T) {
	t.Run("Verifies the current password", func(t *testing.T) {
		f := newUserFixture(t)

		f.users.On("GetUserByID", mock.Anything, buyerID).Return(storedUser(t, "old-password"), nil).Once()
		f.users.On("UpdatePassword", mock.Anything, buyerID, mock.MatchedBy(func(hash string) bool {
			return bcrypt.CompareHashAndPassword([]byte(hash), []byte("new-password")) == nil
		})).Return(nil).Once()

		err := f.service.ChangePassword(t.Context(), buyerID, &models.UpdatePasswordRequest{CurrentPassword: "old-password", NewPassword: "new-password"})

		require.NoError(t, err)
	})

	t.Run("Wrong current password", func(t *testing.T) {
		f := newUserFixture(t)

		f.users.On("GetUserByID", mock.Anything, buyerID).Return(storedUser(t, "old-password"), nil).Once()

		err := f.service.ChangePassword(t.Context(), buyerID, &models.UpdatePasswordRequest{CurrentPassword: "guess", NewPassword: "new-password"})

		appErr := requireAppError(t, err, appErrors.ErrCodeBadRequest)
		assert.Equal(t, 400, appErr.StatusCode)
		f.users.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDeleteAccount(t *testing.T) {
	t.Run("Evicts the seller's cached products after the delete", func(t *testing.T) {
		f := newUserFixture(t)

		f.products.On("ListProductsBySeller", mock.Anything, buyerID).Return(sellerProducts(11, 12), nil).Once()
		f.users.On("DeleteUser", mock.Anything, buyerID).Return(nil).Once()
		f.cache.On("Delete", mock.Anything, []string{cache.ProductKey(11), cache.ProductKey(12)}).Return(nil).Once()

		require.NoError(t, f.service.DeleteAccount(t.Context(), buyerID))
	})

	t.Run("No products, no cache call", func(t *testing.T) {
		f := newUserFixture(t)

		f.products.On("ListProductsBySeller", mock.Anything, buyerID).Return([]*models.Product{}, nil).Once()
		f.users.On("DeleteUser", mock.Anything, buyerID).Return(nil).Once()

		require.NoError(t, f.service.DeleteAccount(t.Context(), buyerID))
		f.cache.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("Cache failure does not fail the delete", func(t *testing.T) {
		f := newUserFixture(t)

		f.products.On("ListProductsBySeller", mock.Anything, buyerID).Return(sellerProducts(11), nil).Once()
		f.users.On("DeleteUser", mock.Anything, buyerID).Return(nil).Once()
		f.cache.On("Delete", mock.Anything, []string{cache.ProductKey(11)}).Return(errors.New("redis down")).Once()

		require.NoError(t, f.service.DeleteAccount(t.Context(), buyerID))
	})

	t.Run("Already gone", func(t *testing.T) {
		f := newUserFixture(t)

		f.products.On("ListProductsBySeller", mock.Anything, buyerID).Return([]*models.Product{}, nil).Once()
		f.users.On("DeleteUser", mock.Anything, buyerID).Return(sql.ErrNoRows).Once()

		requireAppError(t, f.service.DeleteAccount(t.Context(), buyerID), appErrors.ErrCodeNotFound)
	})
}
