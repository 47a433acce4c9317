package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aaravmahajanofficial/sellit-backend/internal/api/handlers"
	appErrors "github.com/aaravmahajanofficial/sellit-backend/internal/errors"
	"github.com/aaravmahajanofficial/sellit-backend/internal/models"
	"github.com/aaravmahajanofficial/sellit-backend/internal/services/mocks"
	"github.com/aaravmahajanofficial/sellit-backend/internal/testutils"
	"github.com/aaravmahajanofficial/sellit-backend/internal/utils/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testUserID int64 = 7

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()

	body, err := json.Marshal(v)
	require.NoError(t, err)

	return bytes.NewReader(body)
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) response.ErrorResponse {
	t.Helper()

	var resp response.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	return resp
}

func setupUserTest(t *testing.T) (*mocks.UserService, *handlers.UserHandler) {
	t.Helper()

	mockUserService := new(mocks.UserService)
	t.Cleanup(func() { mockUserService.AssertExpectations(t) })

	return mockUserService, handlers.NewUserHandler(mockUserService)
}

func TestRegister(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockUserService, h := setupUserTest(t)
		reqBody := models.RegisterRequest{Username: "jane_doe", Email: "jane@example.com", Password: "s3cret-pass"}

		mockUserService.On("Register", mock.Anything, &reqBody).Return(&models.User{ID: 42, Username: "jane_doe"}, nil).Once()

		rr := httptest.NewRecorder()
		h.Register()(rr, testutils.CreateTestRequestWithoutContext(http.MethodPost, "/signup", jsonBody(t, reqBody), nil))

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp models.RegisterResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "User created successfully", resp.Message)
		assert.Equal(t, int64(42), resp.UserID)
		assert.NotContains(t, rr.Body.String(), "password")
	})

	t.Run("Validation error uses JSON field names", func(t *testing.T) {
		mockUserService, h := setupUserTest(t)
		reqBody := models.RegisterRequest{Username: "jd", Email: "not-an-email", Password: "short"}

		rr := httptest.NewRecorder()
		h.Register()(rr, testutils.CreateTestRequestWithoutContext(http.MethodPost, "/signup", jsonBody(t, reqBody), nil))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		resp := decodeError(t, rr)
		assert.Equal(t, appErrors.ErrCodeValidation, resp.Code)
		assert.Contains(t, resp.Details, "Field username must be at least 6")
		assert.Contains(t, resp.Details, "Field email must be a valid email address")
		mockUserService.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
	})

	t.Run("Malformed JSON", func(t *testing.T) {
		_, h := setupUserTest(t)

		rr := httptest.NewRecorder()
		h.Register()(rr, testutils.CreateTestRequestWithoutContext(http.MethodPost, "/signup", strings.NewReader("{bad json"), nil))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, appErrors.ErrCodeBadRequest, decodeError(t, rr).Code)
	})

	t.Run("Duplicate user", func(t *testing.T) {
		mockUserService, h := setupUserTest(t)
		reqBody := models.RegisterRequest{Username: "jane_doe", Email: "jane@example.com", Password: "s3cret-pass"}

		mockUserService.On("Register", mock.Anything, &reqBody).Return(nil, appErrors.DuplicateEntryError("Email already registered")).Once()

		rr := httptest.NewRecorder()
		h.Register()(rr, testutils.CreateTestRequestWithoutContext(http.MethodPost, "/signup", jsonBody(t, reqBody), nil))

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "Email already registered", decodeError(t, rr).Error)
	})
}

func TestLogin(t *testing.T) {
	reqBody := models.LoginRequest{Email: "jane@example.com", Password: "s3cret-pass"}

	t.Run("Success", func(t *testing.T) {
		mockUserService, h := setupUserTest(t)

		mockUserService.On("Login", mock.Anything, &reqBody).Return(&models.LoginResponse{Token: "jwt", Username: "jane_doe", ExpiresIn: 3600}, nil).Once()

		rr := httptest.NewRecorder()
		h.Login()(rr, testutils.CreateTestRequestWithoutContext(http.MethodPost, "/login", jsonBody(t, reqBody), nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"token":"jwt","username":"jane_doe","expires_in":3600}`, rr.Body.String())
	})

	t.Run("Invalid credentials", func(t *testing.T) {
		mockUserService, h := setupUserTest(t)

		mockUserService.On("Login", mock.Anything, &reqBody).Return(nil, appErrors.UnauthorizedError("Invalid email or password")).Once()

		rr := httptest.NewRecorder()
		h.Login()(rr, testutils.CreateTestRequestWithoutContext(http.MethodPost, "/login", jsonBody(t, reqBody), nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, appErrors.ErrCodeUnauthorized, decodeError(t, rr).Code)
	})

	t.Run("Rate limited sets Retry-After", func(t *testing.T) {
		mockUserService, h := setupUserTest(t)

		mockUserService.On("Login", mock.Anything, &reqBody).
			Return(nil, appErrors.TooManyRequestsError("Too many login attempts. Please try again later.").WithRetryAfter(90)).Once()

		rr := httptest.NewRecorder()
		h.Login()(rr, testutils.CreateTestRequestWithoutContext(http.MethodPost, "/login", jsonBody(t, reqBody), nil))

		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.Equal(t, "90", rr.Header().Get("Retry-After"))
	})
}

func TestProfile(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockUserService, h := setupUserTest(t)

		mockUserService.On("GetProfile", mock.Anything, testUserID).Return(&models.User{ID: testUserID, Username: "jane_doe", Password: "hash"}, nil).Once()

		rr := httptest.NewRecorder()
		h.Profile()(rr, testutils.CreateTestRequestWithContext(http.MethodGet, "/api/user/profile", nil, testUserID, nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"username":"jane_doe"`)
		assert.NotContains(t, rr.Body.String(), "hash")
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		mockUserService, h := setupUserTest(t)

		rr := httptest.NewRecorder()
		h.Profile()(rr, testutils.CreateTestRequestWithoutContext(http.MethodGet, "/api/user/profile", nil, nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		mockUserService.AssertNotCalled(t, "GetProfile", mock.Anything, mock.Anything)
	})

	t.Run("Update", func(t *testing.T) {
		mockUserService, h := setupUserTest(t)
		email := "new@example.com"
		reqBody := models.UpdateProfileRequest{Email: &email}

		mockUserService.On("UpdateProfile", mock.Anything, testUserID, &reqBody).Return(&models.User{ID: testUserID, Email: email}, nil).Once()

		rr := httptest.NewRecorder()
		h.UpdateProfile()(rr, testutils.CreateTestRequestWithContext(http.MethodPut, "/api/user/profile", jsonBody(t, reqBody), testUserID, nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), email)
	})
}

func TestChangePassword(t *testing.T) {
	reqBody := models.UpdatePasswordRequest{CurrentPassword: "old-password", NewPassword: "new-password"}

	t.Run("Success", func(t *testing.T) {
		mockUserService, h := setupUserTest(t)

		mockUserService.On("ChangePassword", mock.Anything, testUserID, &reqBody).Return(nil).Once()

		rr := httptest.NewRecorder()
		h.ChangePassword()(rr, testutils.CreateTestRequestWithContext(http.MethodPut, "/api/user/password", jsonBody(t, reqBody), testUserID, nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"message":"Password updated successfully"}`, rr.Body.String())
	})

	t.Run("Wrong current password", func(t *testing.T) {
		mockUserService, h := setupUserTest(t)

		mockUserService.On("ChangePassword", mock.Anything, testUserID, &reqBody).Return(appErrors.BadRequestError("Current password is incorrect")).Once()

		rr := httptest.NewRecorder()
		h.ChangePassword()(rr, testutils.CreateTestRequestWithContext(http.MethodPut, "/api/user/password", jsonBody(t, reqBody), testUserID, nil))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestDeleteAccount(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockUserService, h := setupUserTest(t)

		mockUserService.On("DeleteAccount", mock.Anything, testUserID).Return(nil).Once()

		rr := httptest.NewRecorder()
		h.DeleteAccount()(rr, testutils.CreateTestRequestWithContext(http.MethodDelete, "/api/user/account", nil, testUserID, nil))

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Empty(t, rr.Body.String())
	})

	t.Run("Unexpected error is not leaked", func(t *testing.T) {
		mockUserService, h := setupUserTest(t)

		mockUserService.On("DeleteAccount", mock.Anything, testUserID).Return(assert.AnError).Once()

		rr := httptest.NewRecorder()
		h.DeleteAccount()(rr, testutils.CreateTestRequestWithContext(http.MethodDelete, "/api/user/account", nil, testUserID, nil))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		resp := decodeError(t, rr)
		assert.Equal(t, appErrors.ErrCodeInternal, resp.Code)
		assert.NotContains(t, rr.Body.String(), assert.AnError.Error())
	})
}

func TestHome(t *testing.T) {
	rr := httptest.NewRecorder()
	handlers.Home()(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"Welcome to the Sellit API"}`, rr.Body.String())
}
