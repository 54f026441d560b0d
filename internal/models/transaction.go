package models

import (
	"errors"
	"time"
)

// TransactionType is the direction of a ledger entry
type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

// ErrInsufficientBalance is returned by Apply when a debit exceeds the balance
var ErrInsufficientBalance = errors.New("insufficient balance")

func (t TransactionType) Valid() bool {
	return t == TransactionCredit || t == TransactionDebit
}

// Apply computes the balance after moving amount cents in direction t
func (t TransactionType) Apply(balance, amount int64) (int64, error) {
	switch t {
	case TransactionCredit:
		if balance > MaxCents-amount {
			return 0, ErrMoneyRange
		}
		return balance + amount, nil
	case TransactionDebit:
		if amount > balance {
			return 0, ErrInsufficientBalance
		}
		return balance - amount, nil
	default:
		return 0, errors.New("unknown transaction type")
	}
}

// Transaction is an immutable ledger entry for one child
type Transaction struct {
	ID             int64           `json:"id"`
	ChildID        int64           `json:"child_id"`
	ActingParentID *int64          `json:"acting_parent_id"`
	Type           TransactionType `json:"type"`
	Amount         Money           `json:"amount"`
	BalanceBefore  Money           `json:"balance_before"`
	BalanceAfter   Money           `json:"balance_after"`
	Description    *string         `json:"description"`
	Category       *string         `json:"category"`
	CreatedAt      time.Time       `json:"created_at"`
}
