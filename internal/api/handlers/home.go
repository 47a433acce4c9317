package handlers

import (
	"net/http"

	"github.com/aaravmahajanofficial/sellit-backend/internal/models"
	"github.com/aaravmahajanofficial/sellit-backend/internal/utils/response"
)

func Home() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.Success(w, http.StatusOK, models.MessageResponse{Message: "Welcome to the Sellit API"})
	}
}
