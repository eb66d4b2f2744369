package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/memory-journal/internal/apperror"
	"github.com/sakif/memory-journal/internal/model"
	"github.com/sakif/memory-journal/internal/repository"
)

// ListPrompts returns active prompts, optionally narrowed to one category.
func (db *DB) ListPrompts(ctx context.Context, category string) ([]model.MemoryPrompt, error) {
	query := `SELECT id, category, prompt, is_active FROM memory_prompts WHERE is_active = ?`
	args := []any{true}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY id`

	rows, err := db.conn.QueryContext(ctx, db.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("%s: listing prompts: %w", db.name(), err)
	}
	defer rows.Close()

	prompts := []model.MemoryPrompt{}
	for rows.Next() {
		var p model.MemoryPrompt
		if err := rows.Scan(&p.ID, &p.Category, &p.Prompt, &p.IsActive); err != nil {
			return nil, fmt.Errorf("%s: scanning prompt row: %w", db.name(), err)
		}
		prompts = append(prompts, p)
	}
	return prompts, rows.Err()
}

// RandomPrompt picks one active prompt. Both engines spell it random().
func (db *DB) RandomPrompt(ctx context.Context) (*model.MemoryPrompt, error) {
	var p model.MemoryPrompt
	err := db.conn.QueryRowContext(ctx, db.q(
		`SELECT id, category, prompt, is_active FROM memory_prompts WHERE is_active = ? ORDER BY random() LIMIT 1`), true,
	).Scan(&p.ID, &p.Category, &p.Prompt, &p.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("prompt", "random")
	}
	if err != nil {
		return nil, fmt.Errorf("%s: picking random prompt: %w", db.name(), err)
	}
	return &p, nil
}

func (db *DB) ListPromptCategories(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, db.q(
		`SELECT DISTINCT category FROM memory_prompts WHERE is_active = ? ORDER BY category`), true)
	if err != nil {
		return nil, fmt.Errorf("%s: listing prompt categories: %w", db.name(), err)
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("%s: scanning category: %w", db.name(), err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (db *DB) CreatePrompt(ctx context.Context, prompt *model.MemoryPrompt) error {
	err := db.conn.QueryRowContext(ctx, db.q(
		`INSERT INTO memory_prompts (category, prompt, is_active) VALUES (?, ?, ?) RETURNING id`),
		prompt.Category, prompt.Prompt, prompt.IsActive,
	).Scan(&prompt.ID)
	if err != nil {
		return fmt.Errorf("%s: inserting prompt: %w", db.name(), err)
	}
	return nil
}

// seedPrompts fills an empty prompt table with repository.DefaultPrompts.
func (db *DB) seedPrompts(ctx context.Context) error {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_prompts`).Scan(&n); err != nil {
		return fmt.Errorf("counting prompts: %w", err)
	}
	if n > 0 {
		return nil
	}

	for _, p := range repository.DefaultPrompts {
		p.IsActive = true
		if err := db.CreatePrompt(ctx, &p); err != nil {
			return fmt.Errorf("seeding prompts: %w", err)
		}
	}
	return nil
}
