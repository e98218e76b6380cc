package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pageza/dynamic-recipe/backend/internal/api"
	"github.com/pageza/dynamic-recipe/backend/internal/middleware"
)

// Dependencies holds everything the routes need
type Dependencies struct {
	AuthHandler    *api.AuthHandler
	RecipeHandler  *api.RecipeHandler
	LLMHandler     *api.LLMHandler
	TokenValidator middleware.TokenValidator
	AllowedOrigins []string
	Logger         *zap.Logger
}

// SetupRouter configures the application routes
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New()

	router.Use(middleware.ErrorHandler(deps.Logger))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.CORS(deps.AllowedOrigins))

	// Health check endpoint (no auth required)
	router.GET("/health", api.HealthCheck)
	router.GET("/api/health", api.HealthCheck)

	requireAuth := middleware.AuthMiddleware(deps.TokenValidator)

	// Raw chat proxy
	chat := router.Group("/api", requireAuth)
	deps.LLMHandler.RegisterChatRoutes(chat)

	// API v1 routes
	v1 := router.Group("/api/v1")
	deps.AuthHandler.RegisterRoutes(v1)

	// Protected routes
	protected := v1.Group("", requireAuth)
	deps.LLMHandler.RegisterRoutes(protected)
	deps.RecipeHandler.RegisterRoutes(protected)

	return router
}
