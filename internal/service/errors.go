package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPreference is returned when a recipe request has nothing to work from
	// or names values outside the preference vocabulary.
	ErrInvalidPreference = errors.New("select at least one ingredient, diet or cuisine")
	// ErrInvalidRecipe is returned when a recipe write would leave it without a title
	ErrInvalidRecipe = errors.New("recipe title must not be empty")
	// ErrEmptyResponse is returned when the generation backend answered without content
	ErrEmptyResponse = errors.New("generation backend returned no content")
	// ErrUnauthenticated is returned when a store operation has no current user
	ErrUnauthenticated = errors.New("no authenticated user")
	// ErrNotFound is returned when a recipe id does not exist in the user's collection
	ErrNotFound = errors.New("recipe not found")
	// ErrUserExists is returned on registration with a taken email
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials is returned on a failed login
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// GenericBackendDetail is reported when the backend gives nothing more specific
const GenericBackendDetail = "An error occurred while processing your request."

// BackendError is a transport failure or non-success status from the generation backend
type BackendError struct {
	Status int
	Detail string
	// Body is the raw upstream response, if any
	Body []byte
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("generation backend error (status %d): %s", e.Status, e.Detail)
}

// MalformedRecipeError is returned when the backend content is not a well-formed recipe.
// Payload is kept for logging only.
type MalformedRecipeError struct {
	Reason  string
	Payload string
}

func (e *MalformedRecipeError) Error() string {
	return "malformed recipe payload: " + e.Reason
}

// invalidPreference wraps a validation failure so it matches ErrInvalidPreference
func invalidPreference(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidPreference, err)
}
