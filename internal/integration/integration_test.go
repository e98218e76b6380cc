package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/dynamic-recipe/backend/internal/api"
	"github.com/pageza/dynamic-recipe/backend/internal/middleware"
	"github.com/pageza/dynamic-recipe/backend/internal/router"
	"github.com/pageza/dynamic-recipe/backend/internal/service"
	"github.com/pageza/dynamic-recipe/backend/internal/testhelpers"
)

// stack is the full application wired the way cmd/api wires it
type stack struct {
	router   *gin.Engine
	upstream *httptest.Server
	calls    *int32
}

type stackConfig struct {
	db       *gorm.DB
	cache    service.CollectionCache
	inFlight middleware.InFlightStore
	// handler answers chat-completion requests; defaults to fakeBackend
	handler http.HandlerFunc
}

// recipeContent is what the fake backend returns as message content
const recipeContent = `{"title":"Lemon Pasta","ingredients":["pasta","lemon"],"instructions":["Boil pasta","Zest lemon"],"notes":"Serve immediately\nTop with pepper"}`

func fakeBackend(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": recipeContent}},
		},
	})
}

func newStack(t *testing.T, cfg stackConfig) *stack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if cfg.db == nil {
		cfg.db = testhelpers.SetupSQLiteDB(t)
	}
	if cfg.cache == nil {
		cfg.cache = service.NewMemoryCollectionCache()
	}
	if cfg.inFlight == nil {
		cfg.inFlight = middleware.NewMemoryInFlightStore()
	}
	if cfg.handler == nil {
		cfg.handler = fakeBackend
	}

	var calls int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		cfg.handler(w, r)
	}))
	t.Cleanup(upstream.Close)

	logger := zap.NewNop()
	authService := service.NewAuthService(cfg.db, "integration-secret", time.Hour)
	recipeService := service.NewRecipeService(cfg.db, cfg.cache, logger)
	llmService, err := service.NewLLMService(service.LLMConfig{
		APIKey:  "integration-key",
		APIURL:  upstream.URL,
		Model:   "test-model",
		Timeout: 5 * time.Second,
	}, logger)
	require.NoError(t, err)

	engine := router.SetupRouter(router.Dependencies{
		AuthHandler:    api.NewAuthHandler(authService, logger),
		RecipeHandler:  api.NewRecipeHandler(recipeService, nil, logger),
		LLMHandler:     api.NewLLMHandler(llmService, recipeService, middleware.NewGenerationGuard(cfg.inFlight, time.Minute, logger), 10*time.Second, logger),
		TokenValidator: authService,
		AllowedOrigins: []string{"http://localhost:3000"},
		Logger:         logger,
	})

	return &stack{router: engine, upstream: upstream, calls: &calls}
}

func (s *stack) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reqBody []byte
	if body != nil {
		var err error
		reqBody, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// register creates an account and returns its token
func (s *stack) register(t *testing.T, email string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name":     "Cook",
		"email":    email,
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp api.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

type listBody struct {
	Recipes []api.RecipeResponse `json:"recipes"`
	Count   int                  `json:"count"`
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) listBody {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out listBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestIntegrationGenerateSearchFavoriteDelete(t *testing.T) {
	s := newStack(t, stackConfig{})
	token := s.register(t, "cook@example.com")

	// generate two recipes
	var ids []string
	for i := 0; i < 2; i++ {
		w := s.do(t, http.MethodPost, "/api/v1/recipes/generate", token, map[string][]string{
			"ingredients": {"pasta", "lemon"},
			"cuisines":    {"Italian"},
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var created struct {
			Recipe api.RecipeResponse `json:"recipe"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
		assert.Equal(t, []string{"Serve immediately", "Top with pepper"}, created.Recipe.NoteLines)
		ids = append(ids, created.Recipe.ID)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(s.calls))

	// rename the second so search can tell them apart
	w := s.do(t, http.MethodPatch, "/api/v1/recipes/"+ids[1], token, map[string]string{"title": "Garlic Bread"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	list := decodeList(t, s.do(t, http.MethodGet, "/api/v1/recipes?q=garlic", token, nil))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, ids[1], list.Recipes[0].ID)
	require.NotNil(t, list.Recipes[0].Highlight)

	// favorite moves the recipe to the front
	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/recipes/%s/favorite", ids[1]), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list = decodeList(t, s.do(t, http.MethodGet, "/api/v1/recipes", token, nil))
	require.Equal(t, 2, list.Count)
	assert.Equal(t, ids[1], list.Recipes[0].ID)
	assert.True(t, list.Recipes[0].IsFavorite)

	// the cached view agrees with the store
	fresh := decodeList(t, s.do(t, http.MethodGet, "/api/v1/recipes?refresh=true", token, nil))
	assert.Equal(t, 2, fresh.Count)

	w = s.do(t, http.MethodDelete, "/api/v1/recipes/"+ids[0], token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	list = decodeList(t, s.do(t, http.MethodGet, "/api/v1/recipes", token, nil))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "Garlic Bread", list.Recipes[0].Title)

	// another account sees nothing
	other := s.register(t, "other@example.com")
	assert.Equal(t, 0, decodeList(t, s.do(t, http.MethodGet, "/api/v1/recipes", other, nil)).Count)
}

func TestIntegrationEmptyPreferencesSkipBackend(t *testing.T) {
	s := newStack(t, stackConfig{})
	token := s.register(t, "cook@example.com")

	w := s.do(t, http.MethodPost, "/api/v1/recipes/generate", token, map[string][]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, int32(0), atomic.LoadInt32(s.calls))
}

func TestIntegrationBackendFailureStoresNothing(t *testing.T) {
	s := newStack(t, stackConfig{handler: func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"Rate limit reached"}}`)
	}})
	token := s.register(t, "cook@example.com")

	w := s.do(t, http.MethodPost, "/api/v1/recipes/generate", token, map[string][]string{"diets": {"Vegan"}})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":{"message":"Rate limit reached"}}`, w.Body.String())

	assert.Equal(t, 0, decodeList(t, s.do(t, http.MethodGet, "/api/v1/recipes", token, nil)).Count)
}

func TestIntegrationMalformedRecipe(t *testing.T) {
	s := newStack(t, stackConfig{handler: func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"Here is your recipe: pasta with lemon"}}]}`)
	}})
	token := s.register(t, "cook@example.com")

	w := s.do(t, http.MethodPost, "/api/v1/recipes/generate", token, map[string][]string{"ingredients": {"pasta"}})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotContains(t, w.Body.String(), "Here is your recipe")
	assert.Equal(t, 0, decodeList(t, s.do(t, http.MethodGet, "/api/v1/recipes", token, nil)).Count)
}

func TestIntegrationHealthAndCORS(t *testing.T) {
	s := newStack(t, stackConfig{})

	for _, path := range []string{"/health", "/api/health"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"Server is running"}`, w.Body.String())
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestIntegrationChatProxy(t *testing.T) {
	s := newStack(t, stackConfig{})
	token := s.register(t, "cook@example.com")

	w := s.do(t, http.MethodPost, "/api/chat", token, map[string]interface{}{
		"messages": []map[string]string{{"role": "user", "content": "What can I cook with eggs?"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Lemon Pasta")

	w = s.do(t, http.MethodPost, "/api/chat", token, map[string]interface{}{"messages": "eggs"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"`+api.InvalidChatRequestMessage+`"}`, w.Body.String())
}
