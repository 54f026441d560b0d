package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"piggybank/internal/database"
	"piggybank/internal/models"
)

// ChildRepository handles database operations for children
type ChildRepository struct {
	db database.DBTX
}

// NewChildRepository creates a new child repository
func NewChildRepository(db database.DBTX) *ChildRepository {
	return &ChildRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *ChildRepository) WithTx(tx *database.Tx) *ChildRepository {
	return &ChildRepository{db: tx}
}

const childColumns = "id, family_id, username, name, pin_hash, avatar, age, balance_cents, version, created_at, updated_at"

// CreateChild inserts a child with a zero balance. A taken username yields ErrDuplicate.
func (r *ChildRepository) CreateChild(ctx context.Context, familyID int64, username, name, pinHash, avatar string, age *int, now time.Time) (*models.Child, error) {
	query := `
		INSERT INTO children (family_id, username, name, pin_hash, avatar, age, balance_cents, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, 0, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, familyID, username, name, pinHash, avatar, nullIntFromPtr(age), now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create child: %w", classify(r.db, err))
	}

	return &models.Child{
		ID:        id,
		FamilyID:  familyID,
		Username:  username,
		Name:      name,
		PINHash:   pinHash,
		Avatar:    avatar,
		Age:       age,
		Balance:   models.Cents(0),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetChildByID retrieves a child by ID
func (r *ChildRepository) GetChildByID(ctx context.Context, childID int64) (*models.Child, error) {
	query := "SELECT " + childColumns + " FROM children WHERE id = ?"
	return r.getOne(ctx, query, childID)
}

// GetFamilyChild retrieves a child only if it belongs to familyID
func (r *ChildRepository) GetFamilyChild(ctx context.Context, childID, familyID int64) (*models.Child, error) {
	query := "SELECT " + childColumns + " FROM children WHERE id = ? AND family_id = ?"
	return r.getOne(ctx, query, childID, familyID)
}

// GetChildByUsername retrieves a child by login name
func (r *ChildRepository) GetChildByUsername(ctx context.Context, username string) (*models.Child, error) {
	query := "SELECT " + childColumns + " FROM children WHERE username = ?"
	return r.getOne(ctx, query, username)
}

// GetFamilyChildren lists a family's children in creation order
func (r *ChildRepository) GetFamilyChildren(ctx context.Context, familyID int64) ([]models.Child, error) {
	query := "SELECT " + childColumns + " FROM children WHERE family_id = ? ORDER BY created_at, id"
	rows, err := r.db.QueryContext(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	defer rows.Close()

	children := []models.Child{}
	for rows.Next() {
		child, err := scanChild(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		children = append(children, *child)
	}
	return children, rows.Err()
}

// UpdateChildProfile applies the non-nil fields of update. It reports false
// when the child does not exist in familyID.
func (r *ChildRepository) UpdateChildProfile(ctx context.Context, childID, familyID int64, update models.ChildUpdate, now time.Time) (bool, error) {
	sets := []string{"updated_at = ?"}
	args := []any{now}

	if update.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *update.Name)
	}
	if update.Avatar != nil {
		sets = append(sets, "avatar = ?")
		args = append(args, *update.Avatar)
	}
	if update.Age != nil {
		sets = append(sets, "age = ?")
		args = append(args, *update.Age)
	}

	query := "UPDATE children SET " + strings.Join(sets, ", ") + " WHERE id = ? AND family_id = ?"
	args = append(args, childID, familyID)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update child: %w", err)
	}
	return rowsAffected(result)
}

// CompareAndSetBalance writes a new balance only if the row still carries
// expectedVersion, bumping the version. It reports false when another
// writer got there first.
func (r *ChildRepository) CompareAndSetBalance(ctx context.Context, childID, expectedVersion, balanceCents int64, now time.Time) (bool, error) {
	query := `
		UPDATE children
		SET balance_cents = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`
	result, err := r.db.ExecContext(ctx, query, balanceCents, now, childID, expectedVersion)
	if err != nil {
		return false, fmt.Errorf("failed to update balance: %w", err)
	}
	return rowsAffected(result)
}

func (r *ChildRepository) getOne(ctx context.Context, query string, args ...any) (*models.Child, error) {
	child, err := scanChild(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	return child, nil
}

func scanChild(row scanner) (*models.Child, error) {
	child := &models.Child{}
	var age sql.NullInt64
	var balanceCents int64
	err := row.Scan(
		&child.ID,
		&child.FamilyID,
		&child.Username,
		&child.Name,
		&child.PINHash,
		&child.Avatar,
		&age,
		&balanceCents,
		&child.Version,
		&child.CreatedAt,
		&child.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	child.Age = intPtr(age)
	child.Balance = models.Cents(balanceCents)
	return child, nil
}
