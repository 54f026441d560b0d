package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"piggybank/internal/database"
	"piggybank/internal/models"
)

// SessionRepository stores issued session ids so tokens can be revoked
type SessionRepository struct {
	db database.DBTX
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db database.DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateSession records an issued session
func (r *SessionRepository) CreateSession(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (id, principal_kind, principal_id, family_id, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		string(session.Kind),
		session.PrincipalID,
		session.FamilyID,
		session.CreatedAt,
		session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID
func (r *SessionRepository) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	query := `
		SELECT id, principal_kind, principal_id, family_id, created_at, expires_at, revoked_at
		FROM sessions
		WHERE id = ?
	`
	session := &models.Session{}
	var kind string
	var revokedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(
		&session.ID,
		&kind,
		&session.PrincipalID,
		&session.FamilyID,
		&session.CreatedAt,
		&session.ExpiresAt,
		&revokedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	session.Kind = models.PrincipalKind(kind)
	session.RevokedAt = timePtr(revokedAt)
	return session, nil
}

// RevokeSession marks a session revoked. Revoking twice is a no-op.
func (r *SessionRepository) RevokeSession(ctx context.Context, sessionID string, now time.Time) error {
	_, err := r.db.ExecContext(ctx, "UPDATE sessions SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL", now, sessionID)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions whose expiry has passed
func (r *SessionRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < ?", now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}
