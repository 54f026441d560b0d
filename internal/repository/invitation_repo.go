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

// InvitationRepository handles database operations for invitations.
// Every state change is a conditional UPDATE guarded on status = 'pending'.
type InvitationRepository struct {
	db database.DBTX
}

// NewInvitationRepository creates a new invitation repository
func NewInvitationRepository(db database.DBTX) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *InvitationRepository) WithTx(tx *database.Tx) *InvitationRepository {
	return &InvitationRepository{db: tx}
}

const invitationColumns = "id, family_id, invite_code, status, email, created_by_parent_id, redeemed_by_parent_id, created_at, expires_at, redeemed_at, revoked_at"

// CreateInvitation inserts a pending invitation. A code collision yields ErrDuplicate.
func (r *InvitationRepository) CreateInvitation(ctx context.Context, inv *models.Invitation) error {
	query := `
		INSERT INTO invitations (family_id, invite_code, status, email, created_by_parent_id, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		inv.FamilyID,
		inv.Code,
		string(models.InvitationPending),
		nullString(inv.Email),
		nullInt64(inv.CreatedByParentID),
		inv.CreatedAt,
		inv.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create invitation: %w", classify(r.db, err))
	}
	inv.ID = id
	inv.Status = models.InvitationPending
	return nil
}

// CountActivePending counts a family's pending invitations that have not expired at now
func (r *InvitationRepository) CountActivePending(ctx context.Context, familyID int64, now time.Time) (int, error) {
	query := "SELECT COUNT(*) FROM invitations WHERE family_id = ? AND status = 'pending' AND expires_at > ?"
	var count int
	if err := r.db.QueryRowContext(ctx, query, familyID, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pending invitations: %w", err)
	}
	return count, nil
}

// CodeExists reports whether any invitation already uses code
func (r *InvitationRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM invitations WHERE invite_code = ?", code).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check invitation code: %w", err)
	}
	return count > 0, nil
}

// GetInvitationByCode retrieves an invitation by its code
func (r *InvitationRepository) GetInvitationByCode(ctx context.Context, code string) (*models.Invitation, error) {
	query := "SELECT " + invitationColumns + " FROM invitations WHERE invite_code = ?"
	return r.getOne(ctx, query, code)
}

// GetFamilyInvitations lists a family's invitations, newest first.
// A nil status returns every state.
func (r *InvitationRepository) GetFamilyInvitations(ctx context.Context, familyID int64, status *models.InvitationStatus) ([]models.Invitation, error) {
	query := "SELECT " + invitationColumns + " FROM invitations WHERE family_id = ?"
	args := []any{familyID}
	if status != nil {
		query += " AND status = ?"
		args = append(args, string(*status))
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	invitations := []models.Invitation{}
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, *inv)
	}
	return invitations, rows.Err()
}

// RevokeInvitation moves a pending invitation of familyID to revoked.
// It reports false when no such pending invitation exists.
func (r *InvitationRepository) RevokeInvitation(ctx context.Context, invitationID, familyID int64, now time.Time) (bool, error) {
	query := `
		UPDATE invitations SET status = 'revoked', revoked_at = ?
		WHERE id = ? AND family_id = ? AND status = 'pending'
	`
	result, err := r.db.ExecContext(ctx, query, now, invitationID, familyID)
	if err != nil {
		return false, fmt.Errorf("failed to revoke invitation: %w", err)
	}
	return rowsAffected(result)
}

// ClaimInvitation atomically moves a pending, unexpired invitation to
// redeemed. Exactly one concurrent caller can win for a given code.
func (r *InvitationRepository) ClaimInvitation(ctx context.Context, code string, now time.Time) (bool, error) {
	query := `
		UPDATE invitations SET status = 'redeemed', redeemed_at = ?
		WHERE invite_code = ? AND status = 'pending' AND expires_at > ?
	`
	result, err := r.db.ExecContext(ctx, query, now, code, now)
	if err != nil {
		return false, fmt.Errorf("failed to claim invitation: %w", err)
	}
	return rowsAffected(result)
}

// SetRedeemedBy records which parent consumed a claimed invitation
func (r *InvitationRepository) SetRedeemedBy(ctx context.Context, invitationID, parentID int64) error {
	_, err := r.db.ExecContext(ctx, "UPDATE invitations SET redeemed_by_parent_id = ? WHERE id = ?", parentID, invitationID)
	if err != nil {
		return fmt.Errorf("failed to record invitation redeemer: %w", err)
	}
	return nil
}

// RevokeExpired moves pending invitations whose expiry has passed to revoked
func (r *InvitationRepository) RevokeExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE invitations SET status = 'revoked', revoked_at = ?
		WHERE status = 'pending' AND expires_at <= ?
	`
	result, err := r.db.ExecContext(ctx, query, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke expired invitations: %w", err)
	}
	return result.RowsAffected()
}

func (r *InvitationRepository) getOne(ctx context.Context, query string, args ...any) (*models.Invitation, error) {
	inv, err := scanInvitation(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return inv, nil
}

func scanInvitation(row scanner) (*models.Invitation, error) {
	inv := &models.Invitation{}
	var (
		status                sql.NullString
		email                 sql.NullString
		createdBy, redeemedBy sql.NullInt64
		redeemedAt, revokedAt sql.NullTime
	)
	err := row.Scan(
		&inv.ID,
		&inv.FamilyID,
		&inv.Code,
		&status,
		&email,
		&createdBy,
		&redeemedBy,
		&inv.CreatedAt,
		&inv.ExpiresAt,
		&redeemedAt,
		&revokedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.Status = models.InvitationStatus(status.String)
	inv.Email = stringPtr(email)
	inv.CreatedByParentID = int64Ptr(createdBy)
	inv.RedeemedByParentID = int64Ptr(redeemedBy)
	inv.RedeemedAt = timePtr(redeemedAt)
	inv.RevokedAt = timePtr(revokedAt)
	return inv, nil
}
