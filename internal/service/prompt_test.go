package service

import (
	"strings"
	"testing"

	"github.com/pageza/dynamic-recipe/backend/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrompt(t *testing.T) {
	tests := []struct {
		name string
		snap types.PreferenceSnapshot
		want string
	}{
		{
			name: "all selections",
			snap: types.PreferenceSnapshot{
				Ingredients: []string{"chicken", "rice"},
				Diets:       []types.Diet{types.DietGlutenFree},
				Cuisines:    []types.Cuisine{types.CuisineIndian, types.CuisineJapanese},
			},
			want: "Ingredients: chicken, rice\nDietary preferences: Gluten-Free\nCuisines: Indian, Japanese",
		},
		{
			name: "ingredients only",
			snap: types.PreferenceSnapshot{Ingredients: []string{"egg"}},
			want: "Ingredients: egg",
		},
		{
			name: "diet and cuisine without ingredients",
			snap: types.PreferenceSnapshot{
				Diets:    []types.Diet{types.DietVegan},
				Cuisines: []types.Cuisine{types.CuisineMexican},
			},
			want: "Dietary preferences: Vegan\nCuisines: Mexican",
		},
		{
			name: "cuisine only",
			snap: types.PreferenceSnapshot{Cuisines: []types.Cuisine{types.CuisineItalian}},
			want: "Cuisines: Italian",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			system, user, err := BuildPrompt(tt.snap)
			require.NoError(t, err)
			assert.Equal(t, RecipeSystemInstruction, system)
			assert.Equal(t, tt.want, user)
		})
	}
}

func TestBuildPromptEmptySnapshot(t *testing.T) {
	_, _, err := BuildPrompt(types.PreferenceSnapshot{})
	assert.ErrorIs(t, err, ErrInvalidPreference)
}

func TestBuildPromptUnknownVocabulary(t *testing.T) {
	_, _, err := BuildPrompt(types.PreferenceSnapshot{Diets: []types.Diet{"Carnivore"}})
	assert.ErrorIs(t, err, ErrInvalidPreference)
}

func TestRecipeSystemInstructionNamesOutputFields(t *testing.T) {
	for _, field := range []string{`"title"`, `"ingredients"`, `"instructions"`, `"notes"`} {
		assert.True(t, strings.Contains(RecipeSystemInstruction, field), field)
	}
}
