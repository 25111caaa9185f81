package domain

import (
	"context"
	"time"
)

// Post is a blog entry that can be mailed to a list.
// swagger:model Post
type Post struct {
	ID        int64     `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	AuthorID  *int64    `json:"author_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PostRepository reads posts.
type PostRepository interface {
	GetByID(ctx context.Context, id int64) (*Post, error)
}
