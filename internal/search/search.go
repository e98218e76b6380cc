// Package search filters a recipe collection by free text and marks where the
// text matched. It holds no state and never touches the store.
package search

import (
	"strings"
	"unicode/utf8"

	"github.com/pageza/dynamic-recipe/backend/internal/model"
)

// Segment is a run of text that either matched the query or did not
type Segment struct {
	Text  string `json:"text"`
	Match bool   `json:"match"`
}

// RecipeHighlight holds highlighted segments for every searchable field.
// Notes are highlighted per line.
type RecipeHighlight struct {
	Title        []Segment   `json:"title"`
	Ingredients  [][]Segment `json:"ingredients"`
	Instructions [][]Segment `json:"instructions"`
	Notes        [][]Segment `json:"notes"`
}

// Filter returns the recipes whose title, ingredients, instructions or notes
// contain query, ignoring case. Order is preserved and the input is not
// modified. An empty query returns every recipe.
func Filter(recipes []model.Recipe, query string) []model.Recipe {
	out := make([]model.Recipe, 0, len(recipes))
	for _, r := range recipes {
		if Matches(r, query) {
			out = append(out, r)
		}
	}
	return out
}

// Matches reports whether any searchable field of r contains query
func Matches(r model.Recipe, query string) bool {
	if query == "" {
		return true
	}
	if containsFold(r.Title, query) || containsFold(r.Notes, query) {
		return true
	}
	for _, s := range r.Ingredients {
		if containsFold(s, query) {
			return true
		}
	}
	for _, s := range r.Instructions {
		if containsFold(s, query) {
			return true
		}
	}
	return false
}

// Highlight splits text into segments, marking each case-insensitive
// occurrence of query. Matches are found left to right without overlap.
func Highlight(text, query string) []Segment {
	if text == "" {
		return []Segment{}
	}
	if query == "" {
		return []Segment{{Text: text}}
	}

	var segs []Segment
	last := 0
	for i := 0; i < len(text); {
		if n, ok := matchAt(text, i, query); ok {
			if i > last {
				segs = append(segs, Segment{Text: text[last:i]})
			}
			segs = append(segs, Segment{Text: text[i : i+n], Match: true})
			i += n
			last = i
			continue
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	if last < len(text) {
		segs = append(segs, Segment{Text: text[last:]})
	}
	return segs
}

// HighlightRecipe highlights every searchable field of r
func HighlightRecipe(r model.Recipe, query string) RecipeHighlight {
	h := RecipeHighlight{
		Title:        Highlight(r.Title, query),
		Ingredients:  make([][]Segment, 0, len(r.Ingredients)),
		Instructions: make([][]Segment, 0, len(r.Instructions)),
		Notes:        [][]Segment{},
	}
	for _, s := range r.Ingredients {
		h.Ingredients = append(h.Ingredients, Highlight(s, query))
	}
	for _, s := range r.Instructions {
		h.Instructions = append(h.Instructions, Highlight(s, query))
	}
	for _, line := range r.NoteLines() {
		h.Notes = append(h.Notes, Highlight(line, query))
	}
	return h
}

func containsFold(text, query string) bool {
	for i := 0; i < len(text); {
		if _, ok := matchAt(text, i, query); ok {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	return false
}

// matchAt reports whether query matches text starting at byte offset i,
// comparing rune by rune with simple case folding. It returns the number of
// bytes of text consumed by the match.
func matchAt(text string, i int, query string) (int, bool) {
	j := i
	for _, qr := range query {
		if j >= len(text) {
			return 0, false
		}
		tr, size := utf8.DecodeRuneInString(text[j:])
		if !strings.EqualFold(string(tr), string(qr)) {
			return 0, false
		}
		j += size
	}
	return j - i, true
}
