package models

import "time"

// Post is a blog entry. Category and Author are embedded when a post is
// read back through the service layer, so responses carry the full related
// records rather than bare IDs.
type Post struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Slug          string    `json:"slug"`
	Content       string    `json:"content"`
	Excerpt       string    `json:"excerpt,omitempty"`
	FeaturedImage string    `json:"featuredImage,omitempty"`
	CategoryID    string    `json:"-"`
	AuthorID      string    `json:"-"`
	Category      *Category `json:"category,omitempty"`
	Author        *User     `json:"author,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
