package service

import (
	"context"

	"github.com/pageza/dynamic-recipe/backend/internal/model"
	"github.com/pageza/dynamic-recipe/backend/internal/models"
	"github.com/pageza/dynamic-recipe/backend/internal/types"
)

// LLMServiceInterface is the generation backend client
type LLMServiceInterface interface {
	Synthesize(ctx context.Context, system, user string) (*model.RecipeDraft, error)
	Chat(ctx context.Context, messages []Message) ([]byte, error)
}

// IRecipeService defines the per-user recipe collection operations
type IRecipeService interface {
	List(ctx context.Context, userID string) ([]model.Recipe, error)
	Collection(ctx context.Context, userID string) ([]model.Recipe, error)
	Create(ctx context.Context, userID string, draft *model.RecipeDraft) (*model.Recipe, error)
	Update(ctx context.Context, userID, id string, update model.RecipeUpdate) (*model.Recipe, error)
	Delete(ctx context.Context, userID, id string) error
	ToggleFavorite(ctx context.Context, userID, id string) (*model.Recipe, error)
}

// IAuthService defines the interface for authentication operations
type IAuthService interface {
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	GenerateToken(user *models.User) (string, error)
	ValidateToken(token string) (*types.TokenClaims, error)
}

// IExportService exports a user's collection
type IExportService interface {
	Export(ctx context.Context, userID string) (*ExportResult, error)
}

var (
	_ LLMServiceInterface = (*LLMService)(nil)
	_ IRecipeService      = (*RecipeService)(nil)
	_ IAuthService        = (*AuthService)(nil)
	_ IExportService      = (*ExportService)(nil)
	_ RecipeLister        = (*RecipeService)(nil)
	_ CollectionCache     = (*MemoryCollectionCache)(nil)
	_ CollectionCache     = (*RedisCollectionCache)(nil)
)
