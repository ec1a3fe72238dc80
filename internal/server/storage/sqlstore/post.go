package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iudanet/custadmin/internal/models"
	"github.com/iudanet/custadmin/internal/server/storage"
)

const postColumns = `id, user_id, title, content, status, created_at, updated_at`

// CreatePost inserts a new post
func (s *Storage) CreatePost(ctx context.Context, p *models.Post) error {
	query := `INSERT INTO posts (` + postColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.exec(ctx, query,
		p.ID, p.UserID, p.Title, p.Content, string(p.Status), utc(p.CreatedAt), utc(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}

	return nil
}

// GetPost retrieves post by ID
func (s *Storage) GetPost(ctx context.Context, id string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = ?`

	p, err := scanPost(s.queryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	return p, nil
}

// ListPosts returns posts newest first
func (s *Storage) ListPosts(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts ORDER BY created_at DESC LIMIT ? OFFSET ?`

	rows, err := s.query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	posts := make([]*models.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return posts, nil
}

// UpdatePost updates title, content and status
func (s *Storage) UpdatePost(ctx context.Context, p *models.Post) error {
	query := `UPDATE posts SET title = ?, content = ?, status = ?, updated_at = ? WHERE id = ?`

	res, err := s.exec(ctx, query, p.Title, p.Content, string(p.Status), utc(p.UpdatedAt), p.ID)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}

	return expectOneRow(res, storage.ErrPostNotFound)
}

// DeletePost removes post by ID
func (s *Storage) DeletePost(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	return expectOneRow(res, storage.ErrPostNotFound)
}

func scanPost(row rowScanner) (*models.Post, error) {
	p := &models.Post{}
	var status string

	if err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.Content, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}

	p.Status = models.PostStatus(status)
	return p, nil
}
