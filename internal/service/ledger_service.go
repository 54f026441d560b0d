package service

import (
	"context"
	"errors"

	"piggybank/internal/database"
	"piggybank/internal/events"
	"piggybank/internal/log"
	"piggybank/internal/models"
	"piggybank/internal/repository"
	"piggybank/internal/validation"
)

// errVersionConflict signals that another writer moved the balance between
// our read and our compare-and-set.
var errVersionConflict = errors.New("balance version changed")

// ApplyInput describes one money movement on a child's balance
type ApplyInput struct {
	ChildID     int64
	Type        models.TransactionType
	Amount      models.Money
	Description *string
	Category    *string
}

// Page selects a window of a transaction history
type Page struct {
	Limit  int
	Offset int
}

// LedgerService moves money in and out of children's balances and keeps
// the append-only transaction history consistent with them.
type LedgerService struct {
	db           *database.DB
	children     *repository.ChildRepository
	transactions *repository.TransactionRepository
	publisher    events.Publisher
	maxRetries   int
	logger       *log.Logger
	now          Clock
}

// NewLedgerService creates a new ledger service
func NewLedgerService(db *database.DB, publisher events.Publisher, maxRetries int, logger *log.Logger) *LedgerService {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &LedgerService{
		db:           db,
		children:     repository.NewChildRepository(db),
		transactions: repository.NewTransactionRepository(db),
		publisher:    publisher,
		maxRetries:   maxRetries,
		logger:       logger.WithComponent(log.ComponentLedger),
		now:          SystemClock,
	}
}

// ApplyTransaction credits or debits a child of the caller's family. The
// balance write and the ledger entry commit together or not at all.
func (s *LedgerService) ApplyTransaction(ctx context.Context, p models.Principal, in ApplyInput) (*models.Transaction, error) {
	if err := requireParent(p); err != nil {
		return nil, err
	}
	if !in.Type.Valid() {
		return nil, validation.ValidationError{Field: "type", Message: "type must be credit or debit"}
	}
	if !in.Amount.IsPositive() {
		return nil, validation.ValidationError{Field: "amount", Message: "amount must be greater than zero"}
	}
	in.Description = trimmedOrNil(in.Description)
	in.Category = trimmedOrNil(in.Category)
	if err := validation.ValidateDescription(in.Description); err != nil {
		return nil, err
	}
	if err := validation.ValidateCategory(in.Category); err != nil {
		return nil, err
	}

	logger := s.logger.With(
		log.FieldFamilyID, p.FamilyID,
		log.FieldChildID, in.ChildID,
		log.FieldTxType, string(in.Type),
		log.FieldAmountCents, in.Amount.Cents(),
	)

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if attempt > 0 {
			if err := backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		entry, err := s.applyOnce(ctx, p, in)
		if err == nil {
			logger.InfoContext(ctx, "transaction applied",
				log.FieldOperation, "apply_transaction",
				log.FieldAttempt, attempt+1,
			)
			publish(ctx, s.publisher, s.logger, events.TransactionCreated, p.FamilyID, entry.CreatedAt, entry)
			return entry, nil
		}

		if !errors.Is(err, errVersionConflict) && !s.db.GetDialect().IsRetryable(err) {
			return nil, err
		}
		logger.DebugContext(ctx, "balance contended, retrying", log.FieldAttempt, attempt+1, log.FieldError, err)
	}

	logger.WarnContext(ctx, "ledger retries exhausted", log.FieldAttempt, s.maxRetries)
	return nil, ErrLedgerBusy
}

// applyOnce runs one read-compute-write-append cycle in its own transaction
func (s *LedgerService) applyOnce(ctx context.Context, p models.Principal, in ApplyInput) (*models.Transaction, error) {
	var entry *models.Transaction

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		children := s.children.WithTx(tx)

		child, err := children.GetFamilyChild(ctx, in.ChildID, p.FamilyID)
		if err != nil {
			return err
		}
		if child == nil {
			return ErrChildNotFound
		}

		before := child.Balance.Cents()
		after, err := in.Type.Apply(before, in.Amount.Cents())
		switch {
		case errors.Is(err, models.ErrInsufficientBalance):
			return ErrInsufficientFunds
		case errors.Is(err, models.ErrMoneyRange):
			return validation.ValidationError{Field: "amount", Message: "resulting balance is out of range"}
		case err != nil:
			return err
		}

		now := s.now()
		ok, err := children.CompareAndSetBalance(ctx, child.ID, child.Version, after, now)
		if err != nil {
			return err
		}
		if !ok {
			return errVersionConflict
		}

		actingParent := p.ID
		entry = &models.Transaction{
			ChildID:        child.ID,
			ActingParentID: &actingParent,
			Type:           in.Type,
			Amount:         in.Amount,
			BalanceBefore:  models.Cents(before),
			BalanceAfter:   models.Cents(after),
			Description:    in.Description,
			Category:       in.Category,
			CreatedAt:      now,
		}
		return s.transactions.WithTx(tx).AppendTransaction(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// GetTransaction returns one ledger entry. Parents see any entry of their
// family, a child only its own; anything else is not found.
func (s *LedgerService) GetTransaction(ctx context.Context, p models.Principal, transactionID int64) (*models.Transaction, error) {
	entry, err := s.transactions.GetFamilyTransaction(ctx, transactionID, p.FamilyID)
	if err != nil {
		return nil, err
	}
	if entry == nil || (p.IsChild() && entry.ChildID != p.ID) {
		return nil, ErrTransactionNotFound
	}
	return entry, nil
}

// ListChildTransactions pages through one child's history, newest first
func (s *LedgerService) ListChildTransactions(ctx context.Context, p models.Principal, childID int64, page Page) ([]models.Transaction, error) {
	if err := requireParent(p); err != nil {
		return nil, err
	}
	limit, offset, err := validation.Pagination(page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}

	child, err := s.children.GetFamilyChild(ctx, childID, p.FamilyID)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, ErrChildNotFound
	}

	return s.transactions.GetChildTransactions(ctx, childID, limit, offset)
}

// ListFamilyTransactions pages through every child's history in the caller's family
func (s *LedgerService) ListFamilyTransactions(ctx context.Context, p models.Principal, page Page) ([]models.Transaction, error) {
	if err := requireParent(p); err != nil {
		return nil, err
	}
	limit, offset, err := validation.Pagination(page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	return s.transactions.GetFamilyTransactions(ctx, p.FamilyID, limit, offset)
}

// ListMyTransactions pages through the calling child's own history
func (s *LedgerService) ListMyTransactions(ctx context.Context, p models.Principal, page Page) ([]models.Transaction, error) {
	if err := requireChild(p); err != nil {
		return nil, err
	}
	limit, offset, err := validation.Pagination(page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	return s.transactions.GetChildTransactions(ctx, p.ID, limit, offset)
}
