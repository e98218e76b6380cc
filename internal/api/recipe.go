package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pageza/dynamic-recipe/backend/internal/middleware"
	"github.com/pageza/dynamic-recipe/backend/internal/model"
	"github.com/pageza/dynamic-recipe/backend/internal/search"
	"github.com/pageza/dynamic-recipe/backend/internal/service"
)

type RecipeHandler struct {
	recipeService service.IRecipeService
	exportService service.IExportService
	logger        *zap.Logger
}

// NewRecipeHandler creates a RecipeHandler. exportService may be nil when no
// bucket is configured.
func NewRecipeHandler(recipeService service.IRecipeService, exportService service.IExportService, logger *zap.Logger) *RecipeHandler {
	return &RecipeHandler{
		recipeService: recipeService,
		exportService: exportService,
		logger:        logger,
	}
}

// RegisterRoutes registers the collection routes under an authenticated group
func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	recipes := router.Group("/recipes")
	{
		recipes.GET("", h.ListRecipes)
		recipes.PATCH("/:id", h.UpdateRecipe)
		recipes.DELETE("/:id", h.DeleteRecipe)
		recipes.POST("/:id/favorite", h.ToggleFavorite)
		if h.exportService != nil {
			recipes.POST("/export", h.ExportRecipes)
		}
	}
}

// ListRecipes returns the caller's collection, narrowed by ?q= when given.
// ?refresh=true reloads it from the store instead of the cache.
func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	userID := currentUserID(c)

	var (
		recipes []model.Recipe
		err     error
	)
	if c.Query("refresh") == "true" {
		recipes, err = h.recipeService.List(c.Request.Context(), userID)
	} else {
		recipes, err = h.recipeService.Collection(c.Request.Context(), userID)
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	query := c.Query("q")
	filtered := search.Filter(recipes, query)

	resp := RecipeListResponse{
		Recipes: make([]RecipeResponse, 0, len(filtered)),
		Count:   len(filtered),
		Query:   query,
	}
	for _, r := range filtered {
		resp.Recipes = append(resp.Recipes, newRecipeResponse(r, query))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	var req UpdateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, middleware.ErrorResponse{Error: "Invalid request body"})
		return
	}

	recipe, err := h.recipeService.Update(c.Request.Context(), currentUserID(c), c.Param("id"), req.toUpdate())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipe": newRecipeResponse(*recipe, "")})
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	if err := h.recipeService.Delete(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) ToggleFavorite(c *gin.Context) {
	recipe, err := h.recipeService.ToggleFavorite(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipe": newRecipeResponse(*recipe, "")})
}

// ExportRecipes uploads the collection as JSON and returns a download link
func (h *RecipeHandler) ExportRecipes(c *gin.Context) {
	result, err := h.exportService.Export(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
