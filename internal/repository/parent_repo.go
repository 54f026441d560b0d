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

// ParentRepository handles database operations for parents
type ParentRepository struct {
	db database.DBTX
}

// NewParentRepository creates a new parent repository
func NewParentRepository(db database.DBTX) *ParentRepository {
	return &ParentRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *ParentRepository) WithTx(tx *database.Tx) *ParentRepository {
	return &ParentRepository{db: tx}
}

const parentColumns = "id, family_id, username, name, password_hash, role, created_at"

// CreateParent inserts a parent. A taken username yields ErrDuplicate.
func (r *ParentRepository) CreateParent(ctx context.Context, familyID int64, username, name, passwordHash string, role models.Role, now time.Time) (*models.Parent, error) {
	query := `
		INSERT INTO parents (family_id, username, name, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, familyID, username, name, passwordHash, string(role), now)
	if err != nil {
		return nil, fmt.Errorf("failed to create parent: %w", classify(r.db, err))
	}

	return &models.Parent{
		ID:           id,
		FamilyID:     familyID,
		Username:     username,
		Name:         name,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
	}, nil
}

// GetParentByUsername retrieves a parent by login name
func (r *ParentRepository) GetParentByUsername(ctx context.Context, username string) (*models.Parent, error) {
	query := "SELECT " + parentColumns + " FROM parents WHERE username = ?"
	return r.getOne(ctx, query, username)
}

// GetParentByID retrieves a parent by ID
func (r *ParentRepository) GetParentByID(ctx context.Context, id int64) (*models.Parent, error) {
	query := "SELECT " + parentColumns + " FROM parents WHERE id = ?"
	return r.getOne(ctx, query, id)
}

// GetFamilyParents lists the parents of a family, owner first
func (r *ParentRepository) GetFamilyParents(ctx context.Context, familyID int64) ([]models.Parent, error) {
	query := "SELECT " + parentColumns + " FROM parents WHERE family_id = ? ORDER BY CASE role WHEN 'owner' THEN 0 ELSE 1 END, id"
	rows, err := r.db.QueryContext(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list parents: %w", err)
	}
	defer rows.Close()

	var parents []models.Parent
	for rows.Next() {
		parent, err := scanParent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan parent: %w", err)
		}
		parents = append(parents, *parent)
	}
	return parents, rows.Err()
}

func (r *ParentRepository) getOne(ctx context.Context, query string, arg any) (*models.Parent, error) {
	parent, err := scanParent(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get parent: %w", err)
	}
	return parent, nil
}

func scanParent(row scanner) (*models.Parent, error) {
	parent := &models.Parent{}
	var role string
	err := row.Scan(
		&parent.ID,
		&parent.FamilyID,
		&parent.Username,
		&parent.Name,
		&parent.PasswordHash,
		&role,
		&parent.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	parent.Role = models.Role(role)
	return parent, nil
}
