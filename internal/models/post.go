package models

import "time"

// Post is a blog post as the backend reports it. Mutation is permitted
// only when the acting user's id equals AuthorID; the backend enforces
// this and the web layer mirrors it.
type Post struct {
	ID         int        `json:"id"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	AuthorID   int        `json:"author_id"`
	AuthorName string     `json:"author_name"`
	ImageURL   string     `json:"image_url,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// CreatePostRequest is the JSON body for POST /posts.
type CreatePostRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	ImageURL string `json:"image_url,omitempty"`
}

// UpdatePostRequest is the JSON body for PUT /posts/{id}. Nil fields
// are omitted so the backend treats the update as partial.
type UpdatePostRequest struct {
	Title    *string `json:"title,omitempty"`
	Content  *string `json:"content,omitempty"`
	ImageURL *string `json:"image_url,omitempty"`
}
