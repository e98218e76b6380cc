package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pageza/dynamic-recipe/backend/internal/middleware"
	"github.com/pageza/dynamic-recipe/backend/internal/service"
	"go.uber.org/zap"
)

// RetryMessage is shown when the generation backend answered with something unusable
const RetryMessage = "The recipe could not be generated. Please try again."

// currentUserID returns the authenticated user's id, or "" when there is none
func currentUserID(c *gin.Context) string {
	return middleware.CurrentUserID(c)
}

// respondError maps a service error onto an HTTP status and JSON body
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var backendErr *service.BackendError
	var malformed *service.MalformedRecipeError

	switch {
	case errors.Is(err, service.ErrInvalidPreference), errors.Is(err, service.ErrInvalidRecipe):
		c.JSON(http.StatusBadRequest, middleware.ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrUnauthenticated):
		// the auth middleware should have stopped this request
		logger.Error("recipe store called without a current user", zap.String("path", c.FullPath()))
		c.JSON(http.StatusUnauthorized, middleware.ErrorResponse{Error: "user not authenticated"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, middleware.ErrorResponse{Error: err.Error()})
	case errors.As(err, &backendErr):
		status := backendErr.Status
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		logger.Warn("generation backend failed", zap.Int("status", backendErr.Status), zap.String("detail", backendErr.Detail))
		c.JSON(status, gin.H{"error": rawOrString([]byte(backendErr.Detail))})
	case errors.Is(err, service.ErrEmptyResponse), errors.As(err, &malformed):
		c.JSON(http.StatusBadGateway, middleware.ErrorResponse{Error: RetryMessage})
	default:
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, middleware.ErrorResponse{Error: "Internal Server Error"})
	}
}

// rawOrString passes a JSON object or array through unchanged and quotes anything else
func rawOrString(b []byte) interface{} {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') && json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	return string(b)
}
