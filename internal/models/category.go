package models

import "time"

const (
	// MaxCategoryNameLen is the longest allowed category name.
	MaxCategoryNameLen = 50
	// MaxCategoryDescriptionLen is the longest allowed category description.
	MaxCategoryDescriptionLen = 200
)

// Category groups posts under a shared topic.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
