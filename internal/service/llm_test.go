package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionBody(t *testing.T, content string) string {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	require.NoError(t, err)
	return string(body)
}

func newTestLLMService(t *testing.T, handler http.HandlerFunc) *LLMService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewLLMService(LLMConfig{APIKey: "test-api-key", APIURL: server.URL, Timeout: 5 * time.Second}, nil)
	require.NoError(t, err)
	return svc
}

func TestNewLLMService(t *testing.T) {
	t.Run("should create service with defaults", func(t *testing.T) {
		svc, err := NewLLMService(LLMConfig{APIKey: "test-api-key"}, nil)
		require.NoError(t, err)
		assert.Equal(t, DefaultLLMAPIURL, svc.apiURL)
		assert.Equal(t, DefaultLLMModel, svc.model)
		assert.NotNil(t, svc.client)
	})

	t.Run("should fail without API key", func(t *testing.T) {
		svc, err := NewLLMService(LLMConfig{}, nil)
		assert.Error(t, err)
		assert.Nil(t, svc)
	})
}

func TestLLMService_Synthesize(t *testing.T) {
	var got Request
	svc := newTestLLMService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody(t, `{"title":"Tomato Basil Pasta","ingredients":["200g pasta","3 tomatoes"],"instructions":["Boil pasta","Make sauce"],"notes":"Serve hot.\nAdd parmesan."}`)))
	})

	draft, err := svc.Synthesize(context.Background(), "sys", "Ingredients: tomato")
	require.NoError(t, err)

	assert.Equal(t, DefaultLLMModel, got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, Message{Role: "system", Content: "sys"}, got.Messages[0])
	assert.Equal(t, Message{Role: "user", Content: "Ingredients: tomato"}, got.Messages[1])

	assert.Equal(t, "Tomato Basil Pasta", draft.Title)
	assert.Equal(t, []string{"200g pasta", "3 tomatoes"}, draft.Ingredients)
	assert.Equal(t, []string{"Boil pasta", "Make sauce"}, draft.Instructions)
	assert.Equal(t, "Serve hot.\nAdd parmesan.", draft.Notes)
}

func TestLLMService_SynthesizeBackendErrors(t *testing.T) {
	t.Run("upstream error object is passed through", func(t *testing.T) {
		svc := newTestLLMService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"Invalid API Key","type":"invalid_request_error"}}`))
		})

		_, err := svc.Synthesize(context.Background(), "sys", "user")
		var be *BackendError
		require.True(t, errors.As(err, &be))
		assert.Equal(t, http.StatusUnauthorized, be.Status)
		assert.JSONEq(t, `{"message":"Invalid API Key","type":"invalid_request_error"}`, be.Detail)
	})

	t.Run("plain text body", func(t *testing.T) {
		svc := newTestLLMService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("overloaded"))
		})

		_, err := svc.Synthesize(context.Background(), "sys", "user")
		var be *BackendError
		require.True(t, errors.As(err, &be))
		assert.Equal(t, http.StatusServiceUnavailable, be.Status)
		assert.Equal(t, "overloaded", be.Detail)
	})

	t.Run("empty error body", func(t *testing.T) {
		svc := newTestLLMService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := svc.Synthesize(context.Background(), "sys", "user")
		var be *BackendError
		require.True(t, errors.As(err, &be))
		assert.Equal(t, GenericBackendDetail, be.Detail)
	})

	t.Run("transport failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		svc, err := NewLLMService(LLMConfig{APIKey: "k", APIURL: url, Timeout: time.Second}, nil)
		require.NoError(t, err)

		_, err = svc.Synthesize(context.Background(), "sys", "user")
		var be *BackendError
		require.True(t, errors.As(err, &be))
		assert.Equal(t, http.StatusInternalServerError, be.Status)
	})
}

func TestLLMService_SynthesizeEmptyResponse(t *testing.T) {
	bodies := map[string]string{
		"no choices":    `{"choices":[]}`,
		"blank content": `{"choices":[{"message":{"content":"   "}}]}`,
		"not json":      `<html>oops</html>`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			svc := newTestLLMService(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			})
			_, err := svc.Synthesize(context.Background(), "sys", "user")
			assert.ErrorIs(t, err, ErrEmptyResponse)
		})
	}
}

func TestLLMService_SynthesizeMalformed(t *testing.T) {
	svc := newTestLLMService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionBody(t, `Here is your recipe: {"title":"Soup"}`)))
	})

	_, err := svc.Synthesize(context.Background(), "sys", "user")
	var me *MalformedRecipeError
	require.True(t, errors.As(err, &me))
	assert.Contains(t, me.Payload, "Here is your recipe")
}

func TestLLMService_SynthesizeSingleAttempt(t *testing.T) {
	var calls int32
	svc := newTestLLMService(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := svc.Synthesize(context.Background(), "sys", "user")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestLLMService_Chat(t *testing.T) {
	upstream := `{"id":"chatcmpl-1","choices":[{"message":{"role":"assistant","content":"hi"}}]}`
	svc := newTestLLMService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(upstream))
	})

	body, err := svc.Chat(context.Background(), []Message{{Role: "user", Content: "hello"}})
	require.NoError(t, err)
	assert.JSONEq(t, upstream, string(body))
}

func TestParseRecipe(t *testing.T) {
	valid := []struct {
		name    string
		payload string
		notes   string
	}{
		{"with notes", `{"title":"A","ingredients":["x"],"instructions":["y"],"notes":"n"}`, "n"},
		{"notes absent", `{"title":"A","ingredients":["x"],"instructions":["y"]}`, ""},
		{"notes null", `{"title":"A","ingredients":["x"],"instructions":["y"],"notes":null}`, ""},
		{"surrounding whitespace", "\n  {\"title\":\"A\",\"ingredients\":[],\"instructions\":[]}  \n", ""},
	}
	for _, tt := range valid {
		t.Run(tt.name, func(t *testing.T) {
			draft, err := ParseRecipe(tt.payload)
			require.NoError(t, err)
			assert.Equal(t, "A", draft.Title)
			assert.Equal(t, tt.notes, draft.Notes)
		})
	}

	invalid := map[string]string{
		"not json":              `title: A`,
		"array payload":         `[{"title":"A"}]`,
		"null payload":          `null`,
		"missing title":         `{"ingredients":["x"],"instructions":["y"]}`,
		"empty title":           `{"title":"  ","ingredients":["x"],"instructions":["y"]}`,
		"numeric title":         `{"title":5,"ingredients":["x"],"instructions":["y"]}`,
		"missing ingredients":   `{"title":"A","instructions":["y"]}`,
		"ingredients as string": `{"title":"A","ingredients":"x, y","instructions":["y"]}`,
		"null ingredients":      `{"title":"A","ingredients":null,"instructions":["y"]}`,
		"non-string ingredient": `{"title":"A","ingredients":["x",{"qty":1}],"instructions":["y"]}`,
		"missing instructions":  `{"title":"A","ingredients":["x"]}`,
		"numeric instruction":   `{"title":"A","ingredients":["x"],"instructions":[1]}`,
		"notes as array":        `{"title":"A","ingredients":["x"],"instructions":["y"],"notes":["n"]}`,
		"trailing data":         `{"title":"A","ingredients":["x"],"instructions":["y"]} extra`,
		"two objects":           `{"title":"A","ingredients":["x"],"instructions":["y"]}{}`,
	}
	for name, payload := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRecipe(payload)
			var me *MalformedRecipeError
			require.True(t, errors.As(err, &me), "expected MalformedRecipeError, got %v", err)
			assert.Equal(t, payload, me.Payload)
		})
	}
}
