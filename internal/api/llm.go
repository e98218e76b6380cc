package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pageza/dynamic-recipe/backend/internal/middleware"
	"github.com/pageza/dynamic-recipe/backend/internal/service"
	"github.com/pageza/dynamic-recipe/backend/internal/types"
	"go.uber.org/zap"
)

// InvalidChatRequestMessage is returned when /api/chat has no messages array
const InvalidChatRequestMessage = "Invalid request: messages field is required and should be an array."

// LLMHandler handles requests that reach the generation backend
type LLMHandler struct {
	llmService    service.LLMServiceInterface
	recipeService service.IRecipeService
	guard         *middleware.InFlightGuard
	timeout       time.Duration
	logger        *zap.Logger
}

// NewLLMHandler creates a new LLMHandler instance. A nil guard leaves the
// generate route unguarded.
func NewLLMHandler(llmService service.LLMServiceInterface, recipeService service.IRecipeService, guard *middleware.InFlightGuard, timeout time.Duration, logger *zap.Logger) *LLMHandler {
	return &LLMHandler{
		llmService:    llmService,
		recipeService: recipeService,
		guard:         guard,
		timeout:       timeout,
		logger:        logger,
	}
}

// RegisterRoutes registers the generate route under an authenticated group
func (h *LLMHandler) RegisterRoutes(router *gin.RouterGroup) {
	handlers := []gin.HandlerFunc{h.Generate}
	if h.guard != nil {
		handlers = append([]gin.HandlerFunc{h.guard.Middleware()}, handlers...)
	}
	router.POST("/recipes/generate", handlers...)
}

// RegisterChatRoutes registers the raw chat proxy
func (h *LLMHandler) RegisterChatRoutes(router *gin.RouterGroup) {
	router.POST("/chat", h.Chat)
}

// Generate turns the submitted preferences into a prompt, asks the backend for
// one recipe and stores it in the caller's collection.
func (h *LLMHandler) Generate(c *gin.Context) {
	var req GenerateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, middleware.ErrorResponse{Error: "Invalid request body"})
		return
	}

	snap, err := types.NewPreferenceSnapshot(req.Ingredients, req.Diets, req.Cuisines)
	if err != nil {
		c.JSON(http.StatusBadRequest, middleware.ErrorResponse{Error: err.Error()})
		return
	}

	system, user, err := service.BuildPrompt(snap)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		respondError(c, h.logger, service.ErrUnauthenticated)
		return
	}

	// finish and persist even if the client disconnects
	ctx := context.WithoutCancel(c.Request.Context())
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	draft, err := h.llmService.Synthesize(ctx, system, user)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	recipe, err := h.recipeService.Create(ctx, userID, draft)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("recipe generated",
		zap.String("user_id", userID),
		zap.String("recipe_id", recipe.ID),
		zap.Int("ingredients", len(snap.Ingredients)),
	)
	c.JSON(http.StatusCreated, gin.H{"recipe": newRecipeResponse(*recipe, "")})
}

// Chat forwards a message list to the backend and relays its answer untouched
func (h *LLMHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, middleware.ErrorResponse{Error: InvalidChatRequestMessage})
		return
	}

	body, err := h.llmService.Chat(c.Request.Context(), req.Messages)
	if err != nil {
		var backendErr *service.BackendError
		if !errors.As(err, &backendErr) {
			h.logger.Error("chat request failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": service.GenericBackendDetail})
			return
		}

		status := backendErr.Status
		if status < http.StatusBadRequest {
			status = http.StatusInternalServerError
		}
		var detail interface{} = service.GenericBackendDetail
		if len(backendErr.Body) > 0 {
			detail = rawOrString(backendErr.Body)
		}
		h.logger.Warn("chat request rejected by backend", zap.Int("status", backendErr.Status))
		c.JSON(status, gin.H{"error": detail})
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
