package telegram

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Session types.
const (
	SessionSwap  = "swap"
	SessionStock = "stock"
)

// Session represents an active user session (e.g., awaiting a swap choice)
type Session struct {
	ID          int64
	UserID      string
	SessionType string
	State       string
	ContextData SessionContextData
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// SessionContextData holds structured data stored in the context_data JSON field
type SessionContextData struct {
	PlanID    string   `json:"plan_id,omitempty"`
	SlotIndex int      `json:"slot_index,omitempty"`
	RecipeIDs []string `json:"recipe_ids,omitempty"`
	StockMode string   `json:"stock_mode,omitempty"`
}

// SessionRepository provides access to session persistence operations
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository instance
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create creates a new session and returns its ID
func (sr *SessionRepository) Create(ctx context.Context, userID, sessionType, state string, contextData SessionContextData, ttl time.Duration) (int64, error) {
	jsonData, err := json.Marshal(contextData)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal session data: %w", err)
	}

	now := time.Now()
	res, err := sr.db.ExecContext(ctx, `
		INSERT INTO sessions (user_id, session_type, state, context_data, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		userID, sessionType, state, string(jsonData), now.Add(ttl).Unix(), now.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create session: %w", err)
	}
	return res.LastInsertId()
}

// Get returns a session by id if it belongs to userID and has not expired.
// It returns nil, nil otherwise.
func (sr *SessionRepository) Get(ctx context.Context, id int64, userID string, now time.Time) (*Session, error) {
	row := sr.db.QueryRowContext(ctx, `
		SELECT id, user_id, session_type, state, context_data, expires_at, created_at
		FROM sessions WHERE id = ? AND user_id = ? AND expires_at > ?`,
		id, userID, now.Unix(),
	)
	return scanSession(row)
}

// GetActive retrieves the most recent active session of the given type for a user (non-expired)
func (sr *SessionRepository) GetActive(ctx context.Context, userID, sessionType string, now time.Time) (*Session, error) {
	row := sr.db.QueryRowContext(ctx, `
		SELECT id, user_id, session_type, state, context_data, expires_at, created_at
		FROM sessions WHERE user_id = ? AND session_type = ? AND expires_at > ?
		ORDER BY id DESC LIMIT 1`,
		userID, sessionType, now.Unix(),
	)
	return scanSession(row)
}

func scanSession(row *sql.Row) (*Session, error) {
	var (
		s                    Session
		data                 string
		expiresAt, createdAt int64
	)
	err := row.Scan(&s.ID, &s.UserID, &s.SessionType, &s.State, &data, &expiresAt, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &s.ContextData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}
	s.ExpiresAt = time.Unix(expiresAt, 0)
	s.CreatedAt = time.Unix(createdAt, 0)
	return &s, nil
}

// Delete removes a session
func (sr *SessionRepository) Delete(ctx context.Context, sessionID int64) error {
	if _, err := sr.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteByType removes every session of a type for a user.
func (sr *SessionRepository) DeleteByType(ctx context.Context, userID, sessionType string) error {
	_, err := sr.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ? AND session_type = ?`, userID, sessionType)
	if err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	return nil
}

// CleanupExpired removes all expired sessions and returns how many were removed.
func (sr *SessionRepository) CleanupExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := sr.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up sessions: %w", err)
	}
	return res.RowsAffected()
}
