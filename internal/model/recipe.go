package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// JSONBStringArray is a custom type for handling string arrays in JSONB
type JSONBStringArray []string

// Value implements the driver.Valuer interface
func (a JSONBStringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface
func (a *JSONBStringArray) Scan(value interface{}) error {
	if value == nil {
		*a = JSONBStringArray{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for JSONBStringArray", value)
	}

	return json.Unmarshal(bytes, a)
}

// GormDBDataType stores the array as jsonb on postgres and text elsewhere
func (JSONBStringArray) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "jsonb"
	}
	return "text"
}

// Recipe is a saved recipe inside one user's private collection
type Recipe struct {
	ID           string           `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID       string           `gorm:"type:varchar(128);not null;index" json:"user_id"`
	Title        string           `gorm:"type:text;not null" json:"title"`
	Ingredients  JSONBStringArray `gorm:"not null;default:'[]'" json:"ingredients"`
	Instructions JSONBStringArray `gorm:"not null;default:'[]'" json:"instructions"`
	Notes        string           `gorm:"type:text;not null;default:''" json:"notes"`
	IsFavorite   bool             `gorm:"not null;default:false" json:"is_favorite"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// BeforeCreate lets the store assign the identifier
func (r *Recipe) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// NoteLines splits notes on line breaks so each renders on its own line
func (r Recipe) NoteLines() []string {
	return SplitLines(r.Notes)
}

// SplitLines splits text on \n, \r\n and \r. Empty text yields no lines.
func SplitLines(text string) []string {
	if text == "" {
		return []string{}
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

// RecipeDraft is a recipe produced by the generation backend that has not been stored yet
type RecipeDraft struct {
	Title        string   `json:"title"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	Notes        string   `json:"notes"`
}

// RecipeUpdate carries a partial update. Nil fields are left untouched.
type RecipeUpdate struct {
	Title        *string
	Ingredients  *[]string
	Instructions *[]string
	Notes        *string
}

// IsEmpty reports whether no field was supplied
func (u RecipeUpdate) IsEmpty() bool {
	return u.Title == nil && u.Ingredients == nil && u.Instructions == nil && u.Notes == nil
}

// Columns returns the column/value pairs to write for a merge update
func (u RecipeUpdate) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if u.Title != nil {
		cols["title"] = *u.Title
	}
	if u.Ingredients != nil {
		cols["ingredients"] = JSONBStringArray(*u.Ingredients)
	}
	if u.Instructions != nil {
		cols["instructions"] = JSONBStringArray(*u.Instructions)
	}
	if u.Notes != nil {
		cols["notes"] = *u.Notes
	}
	return cols
}
