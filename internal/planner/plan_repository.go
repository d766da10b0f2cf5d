package planner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// PlanRepository is a database-backed repository for week plans. There is
// at most one plan per user and week.
type PlanRepository struct {
	db *sql.DB
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(d *sql.DB) *PlanRepository {
	return &PlanRepository{db: d}
}

// Save inserts or replaces the user's plan for plan.Start. A plan without an
// ID takes the ID of the stored plan for that week, or a new one.
func (r *PlanRepository) Save(ctx context.Context, plan *WeekPlan) error {
	if plan == nil {
		return fmt.Errorf("failed to save meal plan: plan is nil")
	}
	now := time.Now().UTC()
	if plan.ID == "" {
		existing, err := r.GetForWeek(ctx, plan.UserID, plan.Start)
		if err != nil {
			return err
		}
		if existing != nil {
			plan.ID = existing.ID
			plan.CreatedAt = existing.CreatedAt
		} else {
			plan.ID = uuid.NewString()
		}
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now

	data, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to marshal meal plan: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO week_plans (id, user_id, week_start, plan_data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET plan_data = excluded.plan_data, updated_at = excluded.updated_at`,
		plan.ID, plan.UserID, weekKey(plan.Start), string(data), plan.CreatedAt, plan.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save meal plan for user %s: %w", plan.UserID, err)
	}
	return nil
}

// Get retrieves a plan by ID. It returns nil, nil when not found.
func (r *PlanRepository) Get(ctx context.Context, id string) (*WeekPlan, error) {
	row := r.db.QueryRowContext(ctx, `SELECT plan_data FROM week_plans WHERE id = ?`, id)
	return scanPlan(row)
}

// GetForWeek retrieves the user's plan starting on weekStart, or nil, nil.
func (r *PlanRepository) GetForWeek(ctx context.Context, userID string, weekStart time.Time) (*WeekPlan, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT plan_data FROM week_plans WHERE user_id = ? AND week_start = ?`,
		userID, weekKey(weekStart),
	)
	return scanPlan(row)
}

// ExistsForWeek reports whether the user already has a plan for weekStart.
func (r *PlanRepository) ExistsForWeek(ctx context.Context, userID string, weekStart time.Time) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM week_plans WHERE user_id = ? AND week_start = ?`,
		userID, weekKey(weekStart),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check meal plan existence: %w", err)
	}
	return count > 0, nil
}

// ListRecentByUserID retrieves the N most recent week plans for a given user.
func (r *PlanRepository) ListRecentByUserID(ctx context.Context, userID string, limit int) ([]WeekPlan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT plan_data FROM week_plans WHERE user_id = ? ORDER BY week_start DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent meal plans for user %s: %w", userID, err)
	}
	defer rows.Close()

	var plans []WeekPlan
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan meal plan row: %w", err)
		}
		var plan WeekPlan
		if err := json.Unmarshal([]byte(data), &plan); err != nil {
			return nil, fmt.Errorf("failed to unmarshal meal plan: %w", err)
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate meal plans: %w", err)
	}
	return plans, nil
}

// Delete removes a plan.
func (r *PlanRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM week_plans WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete meal plan %s: %w", id, err)
	}
	return nil
}

func scanPlan(row *sql.Row) (*WeekPlan, error) {
	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get meal plan: %w", err)
	}
	var plan WeekPlan
	if err := json.Unmarshal([]byte(data), &plan); err != nil {
		return nil, fmt.Errorf("failed to unmarshal meal plan: %w", err)
	}
	return &plan, nil
}

// weekKey stores week starts as plain dates so lookups compare exactly.
func weekKey(t time.Time) string {
	return truncateDay(t).Format(time.DateOnly)
}
