package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Diet is a dietary restriction the recipe must respect
type Diet string

// Cuisine is a cuisine style the recipe should follow
type Cuisine string

const (
	DietVegetarian Diet = "Vegetarian"
	DietVegan      Diet = "Vegan"
	DietGlutenFree Diet = "Gluten-Free"
	DietDairyFree  Diet = "Dairy-Free"
	DietKeto       Diet = "Keto"
)

const (
	CuisineItalian  Cuisine = "Italian"
	CuisineChinese  Cuisine = "Chinese"
	CuisineMexican  Cuisine = "Mexican"
	CuisineIndian   Cuisine = "Indian"
	CuisineJapanese Cuisine = "Japanese"
)

// DietOptions lists the diet vocabulary in display order
var DietOptions = []Diet{DietVegetarian, DietVegan, DietGlutenFree, DietDairyFree, DietKeto}

// CuisineOptions lists the cuisine vocabulary in display order
var CuisineOptions = []Cuisine{CuisineItalian, CuisineChinese, CuisineMexican, CuisineIndian, CuisineJapanese}

// ErrEmptyIngredient is returned when an ingredient is blank after trimming
var ErrEmptyIngredient = errors.New("ingredient must not be empty")

var validate = validator.New()

// PreferenceSnapshot is an immutable copy of a PreferenceForm taken at submit time
type PreferenceSnapshot struct {
	Ingredients []string  `json:"ingredients" validate:"dive,required"`
	Diets       []Diet    `json:"diets" validate:"dive,oneof=Vegetarian Vegan Gluten-Free Dairy-Free Keto"`
	Cuisines    []Cuisine `json:"cuisines" validate:"dive,oneof=Italian Chinese Mexican Indian Japanese"`
}

// IsEmpty reports whether all three selections are empty
func (s PreferenceSnapshot) IsEmpty() bool {
	return len(s.Ingredients) == 0 && len(s.Diets) == 0 && len(s.Cuisines) == 0
}

// Validate checks ingredient content and vocabulary membership
func (s PreferenceSnapshot) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	if strings.HasPrefix(fe.StructField(), "Ingredients") {
		return ErrEmptyIngredient
	}
	field := strings.ToLower(fe.StructField())
	if i := strings.IndexByte(field, '['); i >= 0 {
		field = field[:i]
	}
	return fmt.Errorf("invalid %s value %q", field, fmt.Sprint(fe.Value()))
}

// NewPreferenceSnapshot builds a snapshot from raw request values. Ingredients
// are trimmed; diets and cuisines are deduplicated and put in vocabulary order.
func NewPreferenceSnapshot(ingredients, diets, cuisines []string) (PreferenceSnapshot, error) {
	raw := PreferenceSnapshot{
		Ingredients: make([]string, 0, len(ingredients)),
		Diets:       make([]Diet, 0, len(diets)),
		Cuisines:    make([]Cuisine, 0, len(cuisines)),
	}
	for _, ing := range ingredients {
		raw.Ingredients = append(raw.Ingredients, strings.TrimSpace(ing))
	}
	for _, d := range diets {
		raw.Diets = append(raw.Diets, Diet(d))
	}
	for _, c := range cuisines {
		raw.Cuisines = append(raw.Cuisines, Cuisine(c))
	}
	if err := raw.Validate(); err != nil {
		return PreferenceSnapshot{}, err
	}

	form := NewPreferenceForm()
	form.ingredients = raw.Ingredients
	for _, d := range raw.Diets {
		form.diets[d] = true
	}
	for _, c := range raw.Cuisines {
		form.cuisines[c] = true
	}
	return form.Snapshot(), nil
}

// PreferenceForm accumulates a user's selections before a recipe is requested.
// It is not safe for concurrent use.
type PreferenceForm struct {
	ingredients []string
	diets       map[Diet]bool
	cuisines    map[Cuisine]bool
}

func NewPreferenceForm() *PreferenceForm {
	return &PreferenceForm{
		diets:    make(map[Diet]bool),
		cuisines: make(map[Cuisine]bool),
	}
}

// AddIngredient appends a trimmed ingredient. Duplicates are kept.
func (f *PreferenceForm) AddIngredient(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return ErrEmptyIngredient
	}
	f.ingredients = append(f.ingredients, s)
	return nil
}

// RemoveIngredient drops the ingredient at index i. Out of range is a no-op.
func (f *PreferenceForm) RemoveIngredient(i int) {
	if i < 0 || i >= len(f.ingredients) {
		return
	}
	f.ingredients = append(f.ingredients[:i], f.ingredients[i+1:]...)
}

// ToggleDiet flips membership of d and reports the new state
func (f *PreferenceForm) ToggleDiet(d Diet) (bool, error) {
	if !isDiet(d) {
		return false, fmt.Errorf("invalid diets value %q", string(d))
	}
	f.diets[d] = !f.diets[d]
	return f.diets[d], nil
}

// ToggleCuisine flips membership of c and reports the new state
func (f *PreferenceForm) ToggleCuisine(c Cuisine) (bool, error) {
	if !isCuisine(c) {
		return false, fmt.Errorf("invalid cuisines value %q", string(c))
	}
	f.cuisines[c] = !f.cuisines[c]
	return f.cuisines[c], nil
}

// Snapshot copies the current selections
func (f *PreferenceForm) Snapshot() PreferenceSnapshot {
	ingredients := make([]string, len(f.ingredients))
	copy(ingredients, f.ingredients)
	return PreferenceSnapshot{
		Ingredients: ingredients,
		Diets:       f.selectedDiets(),
		Cuisines:    f.selectedCuisines(),
	}
}

func (f *PreferenceForm) selectedDiets() []Diet {
	out := []Diet{}
	for _, d := range DietOptions {
		if f.diets[d] {
			out = append(out, d)
		}
	}
	return out
}

func (f *PreferenceForm) selectedCuisines() []Cuisine {
	out := []Cuisine{}
	for _, c := range CuisineOptions {
		if f.cuisines[c] {
			out = append(out, c)
		}
	}
	return out
}

func isDiet(d Diet) bool {
	for _, opt := range DietOptions {
		if opt == d {
			return true
		}
	}
	return false
}

func isCuisine(c Cuisine) bool {
	for _, opt := range CuisineOptions {
		if opt == c {
			return true
		}
	}
	return false
}
