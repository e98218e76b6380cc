package mocks

import (
	"context"
	"time"

	"github.com/pageza/dynamic-recipe/backend/internal/model"
	"github.com/pageza/dynamic-recipe/backend/internal/service"
	"github.com/stretchr/testify/mock"
)

// MockLLMService is a mock implementation of the generation backend client
type MockLLMService struct {
	mock.Mock
}

func (m *MockLLMService) Synthesize(ctx context.Context, system, user string) (*model.RecipeDraft, error) {
	args := m.Called(ctx, system, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RecipeDraft), args.Error(1)
}

func (m *MockLLMService) Chat(ctx context.Context, messages []service.Message) ([]byte, error) {
	args := m.Called(ctx, messages)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockObjectStore records uploads instead of talking to S3
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	args := m.Called(ctx, key, body, contentType)
	return args.Error(0)
}

func (m *MockObjectStore) GeneratePresignedURL(ctx context.Context, key string, expiration time.Duration) (string, error) {
	args := m.Called(ctx, key, expiration)
	return args.String(0), args.Error(1)
}

var (
	_ service.LLMServiceInterface = (*MockLLMService)(nil)
	_ service.ObjectStore         = (*MockObjectStore)(nil)
)
