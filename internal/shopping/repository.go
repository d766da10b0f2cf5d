package shopping

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Repository handles persistence of shopping lists.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new shopping list repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// Save stores the list, replacing any previous list of the same plan.
func (r *Repository) Save(ctx context.Context, list *ShoppingList) (int64, error) {
	itemsJSON, err := json.Marshal(list.Items)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal shopping list items: %w", err)
	}
	stockJSON, err := json.Marshal(list.InStock)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal shopping list stock: %w", err)
	}

	if list.CreatedAt.IsZero() {
		list.CreatedAt = time.Now().UTC()
	}
	var id int64
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO shopping_lists (user_id, plan_id, items, in_stock, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(plan_id) DO UPDATE SET items = excluded.items, in_stock = excluded.in_stock, created_at = excluded.created_at
		RETURNING id`,
		list.UserID, list.PlanID, string(itemsJSON), string(stockJSON), list.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert shopping list: %w", err)
	}
	list.ID = id
	return id, nil
}

// GetByPlanID retrieves a shopping list by plan ID. It returns nil, nil
// when the plan has no list yet.
func (r *Repository) GetByPlanID(ctx context.Context, planID string) (*ShoppingList, error) {
	var (
		list           ShoppingList
		items, inStock string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, plan_id, items, in_stock, created_at FROM shopping_lists WHERE plan_id = ?`,
		planID,
	).Scan(&list.ID, &list.UserID, &list.PlanID, &items, &inStock, &list.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No shopping list found
		}
		return nil, fmt.Errorf("failed to get shopping list by plan ID: %w", err)
	}

	if err := json.Unmarshal([]byte(items), &list.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shopping list items: %w", err)
	}
	if err := json.Unmarshal([]byte(inStock), &list.InStock); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shopping list stock: %w", err)
	}
	return &list, nil
}

// DeleteByPlanID deletes a shopping list by plan ID.
func (r *Repository) DeleteByPlanID(ctx context.Context, planID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM shopping_lists WHERE plan_id = ?`, planID); err != nil {
		return fmt.Errorf("failed to delete shopping list: %w", err)
	}
	return nil
}
