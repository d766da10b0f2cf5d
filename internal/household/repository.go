package household

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"balanced-meal-planner/internal/textmatch"

	"github.com/goccy/go-json"
)

// Repository persists preferences, feedback and pantry stock per user.
type Repository struct {
	db       *sql.DB
	defaults Preferences
}

// NewRepository creates a Repository. defaults are returned for users who
// never saved preferences.
func NewRepository(d *sql.DB, defaults Preferences) *Repository {
	return &Repository{db: d, defaults: defaults}
}

// SavePreferences validates and stores prefs for userID.
func (r *Repository) SavePreferences(ctx context.Context, userID string, prefs Preferences) error {
	if err := prefs.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO preferences (user_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		userID, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save preferences for user %s: %w", userID, err)
	}
	return nil
}

// GetPreferences returns the stored preferences or the defaults.
func (r *Repository) GetPreferences(ctx context.Context, userID string) (Preferences, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM preferences WHERE user_id = ?`, userID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.defaults, nil
		}
		return Preferences{}, fmt.Errorf("failed to get preferences for user %s: %w", userID, err)
	}

	var prefs Preferences
	if err := json.Unmarshal([]byte(data), &prefs); err != nil {
		return Preferences{}, fmt.Errorf("failed to unmarshal preferences: %w", err)
	}
	return prefs, nil
}

// AddFeedback records a like or dislike.
func (r *Repository) AddFeedback(ctx context.Context, userID string, f Feedback) error {
	if f.Sentiment != Like && f.Sentiment != Dislike {
		return fmt.Errorf("unknown sentiment %q", f.Sentiment)
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO feedback (user_id, recipe_id, recipe_name, sentiment, created_at) VALUES (?, ?, ?, ?, ?)`,
		userID, f.RecipeID, f.RecipeName, string(f.Sentiment), f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	return nil
}

// ListFeedback returns the user's feedback history, oldest first.
func (r *Repository) ListFeedback(ctx context.Context, userID string) ([]Feedback, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT recipe_id, recipe_name, sentiment, created_at FROM feedback
		WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	var history []Feedback
	for rows.Next() {
		var (
			f         Feedback
			sentiment string
		)
		if err := rows.Scan(&f.RecipeID, &f.RecipeName, &sentiment, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback row: %w", err)
		}
		f.Sentiment = Sentiment(sentiment)
		history = append(history, f)
	}
	return history, rows.Err()
}

// GetStock returns the user's pantry snapshot.
func (r *Repository) GetStock(ctx context.Context, userID string) (Stock, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM stock_items WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return Stock{}, fmt.Errorf("failed to get stock: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return Stock{}, fmt.Errorf("failed to scan stock row: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return Stock{}, fmt.Errorf("failed to iterate stock: %w", err)
	}
	return NewStock(names...), nil
}

// AddStock adds items to the pantry. Existing items are left untouched.
func (r *Repository) AddStock(ctx context.Context, userID string, names ...string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertStock(ctx, tx, userID, names); err != nil {
		return err
	}
	return tx.Commit()
}

// SetStock replaces the whole pantry.
func (r *Repository) SetStock(ctx context.Context, userID string, stock Stock) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM stock_items WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to clear stock: %w", err)
	}
	if err := insertStock(ctx, tx, userID, stock.Names()); err != nil {
		return err
	}
	return tx.Commit()
}

// RemoveStock deletes items from the pantry.
func (r *Repository) RemoveStock(ctx context.Context, userID string, names ...string) error {
	for _, n := range names {
		key := textmatch.Normalize(n)
		if key == "" {
			continue
		}
		if _, err := r.db.ExecContext(ctx, `DELETE FROM stock_items WHERE user_id = ? AND item_key = ?`, userID, key); err != nil {
			return fmt.Errorf("failed to remove stock item %q: %w", n, err)
		}
	}
	return nil
}

func insertStock(ctx context.Context, tx *sql.Tx, userID string, names []string) error {
	for _, n := range names {
		key := textmatch.Normalize(n)
		if key == "" {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO stock_items (user_id, item_key, name) VALUES (?, ?, ?)
			ON CONFLICT(user_id, item_key) DO NOTHING`, userID, key, n)
		if err != nil {
			return fmt.Errorf("failed to insert stock item %q: %w", n, err)
		}
	}
	return nil
}
