package service

import (
	"context"
	"strings"
	"testing"

	"github.com/pageza/dynamic-recipe/backend/internal/model"
	"github.com/pageza/dynamic-recipe/backend/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecipeService_Postgres(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	svc := NewRecipeService(db, NewMemoryCollectionCache(), nil)
	ctx := context.Background()

	d := newDraft("Soup")
	d.Notes = "line one\r\nline two"
	created, err := svc.Create(ctx, "user-1", d)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "user-1", newDraft("Stew"))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "user-1", created.ID, model.RecipeUpdate{
		Ingredients: &[]string{"leek", "potato"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"leek", "potato"}, []string(updated.Ingredients))
	assert.Equal(t, []string{"line one", "line two"}, updated.NoteLines())

	fav, err := svc.ToggleFavorite(ctx, "user-1", created.ID)
	require.NoError(t, err)
	assert.True(t, fav.IsFavorite)

	require.NoError(t, svc.Delete(ctx, "user-1", created.ID))
	list, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Stew"}, titles(list))
}

func TestRecipeService_PostgresLongTitle(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	svc := NewRecipeService(db, NewMemoryCollectionCache(), nil)
	ctx := context.Background()

	var dataType string
	require.NoError(t, db.Raw(
		"SELECT data_type FROM information_schema.columns WHERE table_name = 'recipes' AND column_name = 'title'",
	).Scan(&dataType).Error)
	assert.Equal(t, "text", dataType)

	generated := strings.Repeat("Slow-Braised Short Rib ", 15)
	require.Greater(t, len(generated), 255)
	created, err := svc.Create(ctx, "user-1", newDraft(generated))
	require.NoError(t, err)

	edited := strings.Repeat("a", 1000)
	updated, err := svc.Update(ctx, "user-1", created.ID, model.RecipeUpdate{Title: &edited})
	require.NoError(t, err)
	assert.Equal(t, edited, updated.Title)

	list, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, edited, list[0].Title)
}
