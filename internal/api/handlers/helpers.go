package handlers

import (
	"log/slog"
	"net/http"

	"github.com/aaravmahajanofficial/sellit-backend/internal/api/middleware"
	"github.com/aaravmahajanofficial/sellit-backend/internal/errors"
	"github.com/aaravmahajanofficial/sellit-backend/internal/utils/response"
)

// currentUserID returns the authenticated caller, writing a 401 when the route
// was mounted without the auth middleware.
func currentUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		middleware.LoggerFromContext(r.Context()).Warn("Unauthorized access attempt")
		response.Error(w, errors.UnauthorizedError("Authentication required"))
		return 0, false
	}

	return claims.UserID, true
}

// writeServiceError logs unexpected failures before writing err as a response.
func writeServiceError(w http.ResponseWriter, r *http.Request, msg string, err error) {

	logger := middleware.LoggerFromContext(r.Context())

	if appErr, ok := errors.IsAppError(err); ok && appErr.StatusCode < http.StatusInternalServerError {
		logger.Warn(msg, slog.String("code", appErr.Code), slog.String("error", appErr.Error()))
	} else {
		logger.Error(msg, slog.String("error", err.Error()))
	}

	response.Error(w, err)
}
