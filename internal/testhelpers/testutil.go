package testhelpers

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/pageza/dynamic-recipe/backend/internal/model"
	"github.com/pageza/dynamic-recipe/backend/internal/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestPassword is the plain-text password of every user made by CreateTestUser
const TestPassword = "testpassword123"

// CreateTestUser creates a test user with a unique email and a known password
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	require.NoError(t, err)

	id := uuid.New()
	user := &models.User{
		ID:           id,
		Name:         "Test User",
		Email:        fmt.Sprintf("testuser+%s@example.com", id.String()),
		PasswordHash: string(hashedPassword),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTestRecipe stores a recipe directly, bypassing the collection cache
func CreateTestRecipe(t *testing.T, db *gorm.DB, userID, title string) *model.Recipe {
	t.Helper()
	recipe := &model.Recipe{
		UserID:       userID,
		Title:        title,
		Ingredients:  model.JSONBStringArray{"ingredient1", "ingredient2"},
		Instructions: model.JSONBStringArray{"step1", "step2"},
	}
	require.NoError(t, db.Create(recipe).Error)
	return recipe
}

// JSONMarshal is a helper function to marshal JSON for testing
func JSONMarshal(t *testing.T, v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to marshal JSON: %v", err)
	}
	return data
}
