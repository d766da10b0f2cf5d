package recipe

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Repository is a database-backed repository for recipe candidates.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// Save inserts or updates a recipe. A recipe without an ID gets a fresh one,
// which is returned.
func (r *Repository) Save(ctx context.Context, rec Candidate) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to marshal recipe to JSON: %w", err)
	}

	updatedAt := time.Now().UTC()
	if rec.UpdatedAt != "" {
		if parsed, err := time.Parse(time.RFC3339, rec.UpdatedAt); err == nil {
			updatedAt = parsed
		}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO recipes (id, name, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, data = excluded.data, updated_at = excluded.updated_at`,
		rec.ID, rec.Name, string(data), updatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to save recipe %s: %w", rec.ID, err)
	}
	return rec.ID, nil
}

// Get retrieves a recipe by its ID. It returns nil, nil when not found.
func (r *Repository) Get(ctx context.Context, id string) (*Candidate, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM recipes WHERE id = ?`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recipe by ID: %w", err)
	}

	var rec Candidate
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recipe JSON: %w", err)
	}
	return &rec, nil
}

// List retrieves all recipes ordered by name. Rows that fail to decode are
// skipped and reported through the returned count.
func (r *Repository) List(ctx context.Context) ([]Candidate, int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, data FROM recipes ORDER BY name, id`)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	var (
		recipes []Candidate
		skipped int
	)
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, 0, fmt.Errorf("failed to scan recipe row: %w", err)
		}
		var rec Candidate
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			skipped++
			continue
		}
		recipes = append(recipes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate recipes: %w", err)
	}
	return recipes, skipped, nil
}

// Exists reports whether the recipe is stored with the given source version.
func (r *Repository) Exists(ctx context.Context, id, updatedAt string) (bool, error) {
	rec, err := r.Get(ctx, id)
	if err != nil || rec == nil {
		return false, err
	}
	return updatedAt == "" || rec.UpdatedAt == updatedAt, nil
}

// Delete removes a recipe.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete recipe %s: %w", id, err)
	}
	return nil
}

// Count returns the number of recipes in the database.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count recipes: %w", err)
	}
	return count, nil
}
