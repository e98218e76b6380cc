package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pageza/dynamic-recipe/backend/internal/model"
	"go.uber.org/zap"
)

// ObjectStore uploads objects and hands out time-limited download links
type ObjectStore interface {
	PutObject(ctx context.Context, objectKey string, body []byte, contentType string) error
	GeneratePresignedURL(ctx context.Context, objectKey string, expiration time.Duration) (string, error)
}

// RecipeLister reads a user's full collection from the store
type RecipeLister interface {
	Fetch(ctx context.Context, userID string) ([]model.Recipe, error)
}

// ExportResult describes an uploaded collection export
type ExportResult struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Count     int       `json:"count"`
	ExpiresAt time.Time `json:"expires_at"`
}

type exportDocument struct {
	UserID     string         `json:"user_id"`
	ExportedAt time.Time      `json:"exported_at"`
	Count      int            `json:"count"`
	Recipes    []model.Recipe `json:"recipes"`
}

// ExportService writes a user's collection to object storage as JSON
type ExportService struct {
	recipes RecipeLister
	storage ObjectStore
	urlTTL  time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

func NewExportService(recipes RecipeLister, storage ObjectStore, urlTTL time.Duration, logger *zap.Logger) *ExportService {
	if urlTTL <= 0 {
		urlTTL = 15 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		recipes: recipes,
		storage: storage,
		urlTTL:  urlTTL,
		logger:  logger,
		now:     time.Now,
	}
}

// Export uploads the user's collection and returns a presigned download URL
func (s *ExportService) Export(ctx context.Context, userID string) (*ExportResult, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	recipes, err := s.recipes.Fetch(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	body, err := json.MarshalIndent(exportDocument{
		UserID:     userID,
		ExportedAt: now,
		Count:      len(recipes),
		Recipes:    recipes,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export: %w", err)
	}

	key := fmt.Sprintf("exports/%s/%d.json", userID, now.Unix())
	if err := s.storage.PutObject(ctx, key, body, "application/json"); err != nil {
		return nil, fmt.Errorf("failed to upload export: %w", err)
	}

	url, err := s.storage.GeneratePresignedURL(ctx, key, s.urlTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to presign export: %w", err)
	}

	s.logger.Info("exported recipe collection",
		zap.String("user_id", userID),
		zap.String("key", key),
		zap.Int("count", len(recipes)),
	)

	return &ExportResult{
		Key:       key,
		URL:       url,
		Count:     len(recipes),
		ExpiresAt: now.Add(s.urlTTL),
	}, nil
}
