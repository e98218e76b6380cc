package api

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pageza/dynamic-recipe/backend/internal/middleware"
	"github.com/pageza/dynamic-recipe/backend/internal/service"
	"github.com/pageza/dynamic-recipe/backend/internal/testhelpers"
	"github.com/pageza/dynamic-recipe/backend/internal/testhelpers/mocks"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// testEnv wires real services over SQLite with a mocked generation backend
type testEnv struct {
	router   *gin.Engine
	db       *gorm.DB
	auth     *service.AuthService
	recipes  *service.RecipeService
	llm      *mocks.MockLLMService
	backend  service.LLMServiceInterface
	exporter service.IExportService
}

type envOption func(*testEnv)

// withBackend replaces the mocked generation backend
func withBackend(llm service.LLMServiceInterface) envOption {
	return func(e *testEnv) { e.backend = llm }
}

func withExporter(store service.ObjectStore) envOption {
	return func(e *testEnv) {
		e.exporter = service.NewExportService(e.recipes, store, 15*time.Minute, zap.NewNop())
	}
}

func setupTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testhelpers.SetupSQLiteDB(t)
	env := &testEnv{
		db:      db,
		auth:    service.NewAuthService(db, "test-secret", time.Hour),
		recipes: service.NewRecipeService(db, service.NewMemoryCollectionCache(), zap.NewNop()),
		llm:     new(mocks.MockLLMService),
	}
	env.backend = env.llm
	for _, opt := range opts {
		opt(env)
	}

	logger := zap.NewNop()
	guard := middleware.NewGenerationGuard(middleware.NewMemoryInFlightStore(), time.Minute, logger)
	llmHandler := NewLLMHandler(env.backend, env.recipes, guard, 5*time.Second, logger)

	router := gin.New()
	router.Use(middleware.ErrorHandler(logger))
	router.GET("/health", HealthCheck)

	requireAuth := middleware.AuthMiddleware(env.auth)
	llmHandler.RegisterChatRoutes(router.Group("/api", requireAuth))

	v1 := router.Group("/api/v1")
	NewAuthHandler(env.auth, logger).RegisterRoutes(v1)
	protected := v1.Group("", requireAuth)
	llmHandler.RegisterRoutes(protected)
	NewRecipeHandler(env.recipes, env.exporter, logger).RegisterRoutes(protected)

	env.router = router
	return env
}

// login creates a user and returns their id and a bearer token
func (e *testEnv) login(t *testing.T) (string, string) {
	t.Helper()
	user := testhelpers.CreateTestUser(t, e.db)
	token, err := e.auth.GenerateToken(user)
	require.NoError(t, err)
	return user.ID.String(), token
}

// performRequest is a helper function to make HTTP requests in tests
func performRequest(router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf *bytes.Reader
	switch b := body.(type) {
	case nil:
		buf = bytes.NewReader(nil)
	case string:
		buf = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			panic(err)
		}
		buf = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type recipeBody struct {
	Recipe RecipeResponse `json:"recipe"`
}

type errorBody struct {
	Error string `json:"error"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
