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

// FamilyRepository handles database operations for families
type FamilyRepository struct {
	db database.DBTX
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db database.DBTX) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *FamilyRepository) WithTx(tx *database.Tx) *FamilyRepository {
	return &FamilyRepository{db: tx}
}

// CreateFamily inserts a new family
func (r *FamilyRepository) CreateFamily(ctx context.Context, name string, now time.Time) (*models.Family, error) {
	query := "INSERT INTO families (name, created_at, updated_at) VALUES (?, ?, ?)"
	id, err := r.db.ExecReturningID(ctx, query, name, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create family: %w", err)
	}

	return &models.Family{
		ID:        id,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetFamilyByID retrieves a family by ID
func (r *FamilyRepository) GetFamilyByID(ctx context.Context, familyID int64) (*models.Family, error) {
	query := "SELECT id, name, created_at, updated_at FROM families WHERE id = ?"
	family := &models.Family{}
	err := r.db.QueryRowContext(ctx, query, familyID).Scan(
		&family.ID,
		&family.Name,
		&family.CreatedAt,
		&family.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	return family, nil
}

// TouchFamily bumps updated_at. Inside a transaction this takes the family
// row's write lock, serializing concurrent writers for the same family.
func (r *FamilyRepository) TouchFamily(ctx context.Context, familyID int64, now time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, "UPDATE families SET updated_at = ? WHERE id = ?", now, familyID)
	if err != nil {
		return false, fmt.Errorf("failed to touch family: %w", err)
	}
	return rowsAffected(result)
}
