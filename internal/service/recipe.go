package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pageza/dynamic-recipe/backend/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RecipeService persists each user's recipe collection and keeps the cached
// copy of it in step with every successful write.
type RecipeService struct {
	db     *gorm.DB
	cache  CollectionCache
	logger *zap.Logger
	now    func() time.Time
}

// NewRecipeService creates a new RecipeService instance. A nil cache falls back
// to an in-process one.
func NewRecipeService(db *gorm.DB, cache CollectionCache, logger *zap.Logger) *RecipeService {
	if cache == nil {
		cache = NewMemoryCollectionCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecipeService{
		db:     db,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// List reads the user's whole collection from the store and refreshes the
// cache. If a write lands while the store is being read, the cached entry is
// dropped instead so the next read reloads.
func (s *RecipeService) List(ctx context.Context, userID string) ([]model.Recipe, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	version, verr := s.cache.Version(ctx, userID)
	recipes, err := s.fetch(ctx, userID)
	if err != nil {
		return nil, err
	}
	if verr != nil {
		s.logger.Warn("failed to read recipe collection version", zap.String("user_id", userID), zap.Error(verr))
		return recipes, nil
	}

	stored, err := s.cache.StoreIfUnchanged(ctx, userID, recipes, version)
	if err != nil {
		s.logger.Warn("failed to cache recipe collection", zap.String("user_id", userID), zap.Error(err))
		return recipes, nil
	}
	if !stored {
		s.logger.Debug("recipe collection changed during reload", zap.String("user_id", userID))
		if err := s.cache.Invalidate(ctx, userID); err != nil {
			s.logger.Error("failed to invalidate recipe collection cache", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return recipes, nil
}

// Fetch reads the user's collection from the store without touching the cache
func (s *RecipeService) Fetch(ctx context.Context, userID string) ([]model.Recipe, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	return s.fetch(ctx, userID)
}

func (s *RecipeService) fetch(ctx context.Context, userID string) ([]model.Recipe, error) {
	recipes := []model.Recipe{}
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	return recipes, nil
}

// Collection returns the cached collection, loading it from the store on a miss
func (s *RecipeService) Collection(ctx context.Context, userID string) ([]model.Recipe, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	recipes, ok, err := s.cache.Load(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to read recipe collection cache", zap.String("user_id", userID), zap.Error(err))
	}
	if ok && err == nil {
		return recipes, nil
	}
	return s.List(ctx, userID)
}

// Create stores a new recipe from a draft and appends it to the cached collection
func (s *RecipeService) Create(ctx context.Context, userID string, draft *model.RecipeDraft) (*model.Recipe, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if draft == nil || strings.TrimSpace(draft.Title) == "" {
		return nil, ErrInvalidRecipe
	}

	recipe := model.Recipe{
		UserID:       userID,
		Title:        draft.Title,
		Ingredients:  model.JSONBStringArray(nonNil(draft.Ingredients)),
		Instructions: model.JSONBStringArray(nonNil(draft.Instructions)),
		Notes:        draft.Notes,
		IsFavorite:   false,
		CreatedAt:    s.now().UTC().Truncate(time.Second),
	}
	if err := s.db.WithContext(ctx).Create(&recipe).Error; err != nil {
		return nil, fmt.Errorf("failed to create recipe: %w", err)
	}

	s.syncCache(ctx, userID, appendRecipe(recipe))
	return &recipe, nil
}

// Update merges the supplied fields into an existing recipe. Fields left nil
// are not written.
func (s *RecipeService) Update(ctx context.Context, userID, id string, update model.RecipeUpdate) (*model.Recipe, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if update.Title != nil && strings.TrimSpace(*update.Title) == "" {
		return nil, ErrInvalidRecipe
	}

	var recipe model.Recipe
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if !update.IsEmpty() {
			res := tx.Model(&model.Recipe{}).
				Where("id = ? AND user_id = ?", id, userID).
				Updates(update.Columns())
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrNotFound
			}
		}
		return findRecipe(tx, userID, id, &recipe)
	})
	if errors.Is(err, ErrNotFound) {
		// the entity is gone; drop any stale cached copy
		s.syncCache(ctx, userID, removeRecipe(id))
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update recipe: %w", err)
	}

	s.syncCache(ctx, userID, replaceRecipe(recipe))
	return &recipe, nil
}

// Delete removes a recipe from the user's collection. Deleting a missing id is not an error.
func (s *RecipeService) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrUnauthenticated
	}

	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.Recipe{}).Error; err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}

	s.syncCache(ctx, userID, removeRecipe(id))
	return nil
}

// ToggleFavorite flips is_favorite and re-sorts the cached collection so
// favorites come first. Concurrent toggles on the same id are last-write-wins.
func (s *RecipeService) ToggleFavorite(ctx context.Context, userID, id string) (*model.Recipe, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	var recipe model.Recipe
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findRecipe(tx, userID, id, &recipe); err != nil {
			return err
		}
		recipe.IsFavorite = !recipe.IsFavorite
		return tx.Model(&recipe).
			Where("user_id = ?", userID).
			Update("is_favorite", recipe.IsFavorite).Error
	})
	if errors.Is(err, ErrNotFound) {
		s.syncCache(ctx, userID, removeRecipe(id))
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to toggle favorite: %w", err)
	}

	updated := recipe
	s.syncCache(ctx, userID, func(list []model.Recipe) []model.Recipe {
		return favoritesFirst(replaceRecipe(updated)(list))
	})
	return &recipe, nil
}

func findRecipe(tx *gorm.DB, userID, id string, out *model.Recipe) error {
	err := tx.Where("id = ? AND user_id = ?", id, userID).First(out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// syncCache applies fn to the cached collection. If that fails the entry is
// dropped so the next read reloads from the store.
func (s *RecipeService) syncCache(ctx context.Context, userID string, fn func([]model.Recipe) []model.Recipe) {
	err := s.cache.Mutate(ctx, userID, fn)
	if err == nil {
		return
	}
	s.logger.Warn("failed to update recipe collection cache", zap.String("user_id", userID), zap.Error(err))
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.Error("failed to invalidate recipe collection cache", zap.String("user_id", userID), zap.Error(err))
	}
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
