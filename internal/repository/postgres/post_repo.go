package postgres

import (
	"context"
	"database/sql"

	"townhall/internal/domain"
)

type postRepository struct {
	DB *sql.DB
}

func NewPostRepository(db *sql.DB) domain.PostRepository {
	return &postRepository{DB: db}
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*domain.Post, error) {
	p := &domain.Post{}
	var author sql.NullInt64
	err := conn(ctx, r.DB).QueryRowContext(ctx, `
		SELECT id, slug, title, content, author_id, created_at
		FROM posts
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Slug, &p.Title, &p.Content, &author, &p.CreatedAt)
	if err != nil {
		if errNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p.AuthorID = int64Ptr(author)
	return p, nil
}
