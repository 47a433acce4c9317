package handlers

import (
	"net/http"

	"github.com/aaravmahajanofficial/sellit-backend/internal/api/middleware"
	"github.com/aaravmahajanofficial/sellit-backend/internal/models"
	service "github.com/aaravmahajanofficial/sellit-backend/internal/services"
	"github.com/aaravmahajanofficial/sellit-backend/internal/utils"
	"github.com/aaravmahajanofficial/sellit-backend/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

type UserHandler struct {
	userService service.UserService
	validator   *validator.Validate
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService, validator: utils.NewValidator()}
}

func (h *UserHandler) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		var req models.RegisterRequest

		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		user, err := h.userService.Register(r.Context(), &req)
		if err != nil {
			writeServiceError(w, r, "User registration failed", err)
			return
		}

		response.Success(w, http.StatusOK, models.RegisterResponse{Message: "User created successfully", UserID: user.ID})
	}
}

func (h *UserHandler) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		var req models.LoginRequest

		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		resp, err := h.userService.Login(r.Context(), &req)
		if err != nil {
			writeServiceError(w, r, "Login failed", err)
			return
		}

		response.Success(w, http.StatusOK, resp)
	}
}

func (h *UserHandler) Profile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}

		user, err := h.userService.GetProfile(r.Context(), userID)
		if err != nil {
			writeServiceError(w, r, "Failed to fetch profile", err)
			return
		}

		response.Success(w, http.StatusOK, user)
	}
}

func (h *UserHandler) UpdateProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}

		var req models.UpdateProfileRequest

		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		user, err := h.userService.UpdateProfile(r.Context(), userID, &req)
		if err != nil {
			writeServiceError(w, r, "Failed to update profile", err)
			return
		}

		middleware.LoggerFromContext(r.Context()).Info("Profile updated")
		response.Success(w, http.StatusOK, user)
	}
}

func (h *UserHandler) ChangePassword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}

		var req models.UpdatePasswordRequest

		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		if err := h.userService.ChangePassword(r.Context(), userID, &req); err != nil {
			writeServiceError(w, r, "Failed to change password", err)
			return
		}

		response.Success(w, http.StatusOK, models.MessageResponse{Message: "Password updated successfully"})
	}
}

func (h *UserHandler) DeleteAccount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}

		if err := h.userService.DeleteAccount(r.Context(), userID); err != nil {
			writeServiceError(w, r, "Failed to delete account", err)
			return
		}

		response.NoContent(w)
	}
}
