package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"piggybank/internal/database"
	"piggybank/internal/models"
)

// TransactionRepository appends and reads ledger entries. Entries are never
// updated or deleted.
type TransactionRepository struct {
	db database.DBTX
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db database.DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *TransactionRepository) WithTx(tx *database.Tx) *TransactionRepository {
	return &TransactionRepository{db: tx}
}

const transactionColumns = "t.id, t.child_id, t.parent_id, t.type, t.amount_cents, t.balance_before_cents, t.balance_after_cents, t.description, t.category, t.created_at"

// AppendTransaction inserts tx and sets its ID
func (r *TransactionRepository) AppendTransaction(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (child_id, parent_id, type, amount_cents, balance_before_cents, balance_after_cents, description, category, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		tx.ChildID,
		nullInt64(tx.ActingParentID),
		string(tx.Type),
		tx.Amount.Cents(),
		tx.BalanceBefore.Cents(),
		tx.BalanceAfter.Cents(),
		nullString(tx.Description),
		nullString(tx.Category),
		tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	tx.ID = id
	return nil
}

// GetFamilyTransaction retrieves a transaction only if its child belongs to familyID
func (r *TransactionRepository) GetFamilyTransaction(ctx context.Context, transactionID, familyID int64) (*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions t
		JOIN children c ON c.id = t.child_id
		WHERE t.id = ? AND c.family_id = ?
	`
	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, transactionID, familyID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

// GetChildTransactions lists one child's ledger, newest first
func (r *TransactionRepository) GetChildTransactions(ctx context.Context, childID int64, limit, offset int) ([]models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions t
		WHERE t.child_id = ?
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT ? OFFSET ?
	`
	return r.list(ctx, query, childID, limit, offset)
}

// GetFamilyTransactions lists the ledgers of every child in a family, newest first
func (r *TransactionRepository) GetFamilyTransactions(ctx context.Context, familyID int64, limit, offset int) ([]models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions t
		JOIN children c ON c.id = t.child_id
		WHERE c.family_id = ?
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT ? OFFSET ?
	`
	return r.list(ctx, query, familyID, limit, offset)
}

func (r *TransactionRepository) list(ctx context.Context, query string, args ...any) ([]models.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *tx)
	}
	return transactions, rows.Err()
}

func scanTransaction(row scanner) (*models.Transaction, error) {
	tx := &models.Transaction{}
	var (
		parentID                            sql.NullInt64
		txType                              string
		amount, balanceBefore, balanceAfter int64
		description, category               sql.NullString
	)
	err := row.Scan(
		&tx.ID,
		&tx.ChildID,
		&parentID,
		&txType,
		&amount,
		&balanceBefore,
		&balanceAfter,
		&description,
		&category,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	tx.ActingParentID = int64Ptr(parentID)
	tx.Type = models.TransactionType(txType)
	tx.Amount = models.Cents(amount)
	tx.BalanceBefore = models.Cents(balanceBefore)
	tx.BalanceAfter = models.Cents(balanceAfter)
	tx.Description = stringPtr(description)
	tx.Category = stringPtr(category)
	return tx, nil
}
