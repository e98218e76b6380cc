package api

import (
	"github.com/pageza/dynamic-recipe/backend/internal/model"
	"github.com/pageza/dynamic-recipe/backend/internal/models"
	"github.com/pageza/dynamic-recipe/backend/internal/search"
	"github.com/pageza/dynamic-recipe/backend/internal/service"
)

// GenerateRecipeRequest carries the preference snapshot for one synthesis
type GenerateRecipeRequest struct {
	Ingredients []string `json:"ingredients"`
	Diets       []string `json:"diets"`
	Cuisines    []string `json:"cuisines"`
}

// UpdateRecipeRequest holds the fields to merge into a stored recipe. Omitted
// fields keep their stored values.
type UpdateRecipeRequest struct {
	Title        *string   `json:"title"`
	Ingredients  *[]string `json:"ingredients"`
	Instructions *[]string `json:"instructions"`
	Notes        *string   `json:"notes"`
}

func (r UpdateRecipeRequest) toUpdate() model.RecipeUpdate {
	return model.RecipeUpdate{
		Title:        r.Title,
		Ingredients:  r.Ingredients,
		Instructions: r.Instructions,
		Notes:        r.Notes,
	}
}

// ChatRequest is forwarded to the generation backend as is
type ChatRequest struct {
	Messages []service.Message `json:"messages" binding:"required,dive"`
}

// RecipeResponse represents the response structure for recipe-related API endpoints
type RecipeResponse struct {
	model.Recipe
	NoteLines []string                `json:"note_lines"`
	Highlight *search.RecipeHighlight `json:"highlight,omitempty"`
}

func newRecipeResponse(r model.Recipe, query string) RecipeResponse {
	resp := RecipeResponse{
		Recipe:    r,
		NoteLines: r.NoteLines(),
	}
	if query != "" {
		h := search.HighlightRecipe(r, query)
		resp.Highlight = &h
	}
	return resp
}

// RecipeListResponse is the body of GET /recipes
type RecipeListResponse struct {
	Recipes []RecipeResponse `json:"recipes"`
	Count   int              `json:"count"`
	Query   string           `json:"query,omitempty"`
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}
