package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/storage"
)

var (
	ErrSameAccount     = errors.New("transfer needs two distinct accounts")
	ErrAlreadyReversed = errors.New("transaction already reversed")
)

// LedgerService orchestrates ledger writes across SQLite and AMQP
type LedgerService struct {
	storage    *storage.Repository
	amqpClient *amqp.Client
}

func NewLedgerService(storage *storage.Repository, amqpClient *amqp.Client) *LedgerService {
	return &LedgerService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// CreateAccount validates and saves a new account, assigning its id.
func (s *LedgerService) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	a.ID = uuid.NewString()
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	if err := s.storage.CreateAccount(ctx, a); err != nil {
		return core.Account{}, err
	}
	return a, nil
}

// CreateCard validates and saves a new credit card, assigning its id.
func (s *LedgerService) CreateCard(ctx context.Context, c core.CreditCard) (core.CreditCard, error) {
	c.ID = uuid.NewString()
	if err := c.Validate(); err != nil {
		return core.CreditCard{}, err
	}
	if err := s.storage.CreateCard(ctx, c); err != nil {
		return core.CreditCard{}, err
	}
	return c, nil
}

// CreateCategory validates and saves a new category, assigning its id.
func (s *LedgerService) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.ID = uuid.NewString()
	if c.FamilyID == "" {
		return core.Category{}, core.ErrEmptyFamily
	}
	if c.Name == "" {
		return core.Category{}, core.ErrEmptyDescription
	}
	if !validCategoryKind(c.Kind) {
		return core.Category{}, fmt.Errorf("invalid category kind %q", c.Kind)
	}
	if err := s.storage.CreateCategory(ctx, c); err != nil {
		return core.Category{}, err
	}
	return c, nil
}

func validCategoryKind(k core.CategoryKind) bool {
	switch k {
	case core.CategoryIncome, core.CategoryExpense, core.CategoryTransfer, core.CategoryCreditCard:
		return true
	}
	return false
}

// CreateTransaction saves a movement locally and publishes a sync message
func (s *LedgerService) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = uuid.NewString()
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.storage.CreateTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	// Publish async sync message (non-blocking, version 1 for a new row)
	if err := s.publishSyncMessage(ctx, t.ID, 1); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", t.ID, "error", err)
		// Don't fail the request - the transaction is saved locally
	}

	return t, nil
}

// ReverseTransaction marks a movement as reversed. The row is kept so the
// log stays append-only; the engine simply stops counting it.
func (s *LedgerService) ReverseTransaction(ctx context.Context, id string) error {
	t, err := s.storage.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if t.Status == core.StatusReversed {
		return ErrAlreadyReversed
	}

	version, err := s.storage.UpdateTransactionStatus(ctx, id, core.StatusReversed)
	if err != nil {
		return fmt.Errorf("reverse transaction: %w", err)
	}

	if err := s.publishSyncMessage(ctx, id, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", id, "error", err)
	}
	return nil
}

// MarkTransactionPaid settles a pending movement.
func (s *LedgerService) MarkTransactionPaid(ctx context.Context, id string) error {
	t, err := s.storage.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if t.Status == core.StatusReversed {
		return ErrAlreadyReversed
	}
	if t.Status == core.StatusPaid {
		return nil
	}

	version, err := s.storage.UpdateTransactionStatus(ctx, id, core.StatusPaid)
	if err != nil {
		return fmt.Errorf("mark transaction paid: %w", err)
	}

	if err := s.publishSyncMessage(ctx, id, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", id, "error", err)
	}
	return nil
}

// Transfer describes a movement of money between two accounts of the
// same family. Amount is always positive; the service derives the signs.
type Transfer struct {
	FamilyID      string
	FromAccountID string
	ToAccountID   string
	CategoryID    string
	Description   string
	Amount        core.Money
	Date          core.Date
	Recurrence    core.Recurrence
	Installments  int
}

// CreateTransfer records a transfer as two paired movements: a negative
// leg on the source account and a positive leg on the destination. Only
// the source leg carries the recurrence marker; the destination leg is
// always a plain movement so recurrence processing generates one pair
// per period, not two.
func (s *LedgerService) CreateTransfer(ctx context.Context, tr Transfer) ([]core.Transaction, error) {
	if tr.FromAccountID == tr.ToAccountID {
		return nil, ErrSameAccount
	}
	if tr.Amount.Cents <= 0 {
		return nil, core.ErrInvalidAmount
	}
	if tr.Recurrence == "" {
		tr.Recurrence = core.RecurrenceNone
	}

	out := core.Transaction{
		FamilyID:     tr.FamilyID,
		AccountID:    tr.FromAccountID,
		CategoryID:   tr.CategoryID,
		Description:  tr.Description,
		Amount:       tr.Amount.Neg(),
		Date:         tr.Date,
		Status:       core.StatusPaid,
		Recurrence:   tr.Recurrence,
		Installments: tr.Installments,
	}
	outLeg, err := s.CreateTransaction(ctx, out)
	if err != nil {
		return nil, fmt.Errorf("transfer source leg: %w", err)
	}

	in := core.Transaction{
		FamilyID:    tr.FamilyID,
		AccountID:   tr.ToAccountID,
		CategoryID:  tr.CategoryID,
		Description: tr.Description,
		Amount:      tr.Amount,
		Date:        tr.Date,
		Status:      core.StatusPaid,
		Recurrence:  core.RecurrenceNone,
	}
	inLeg, err := s.CreateTransaction(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("transfer destination leg: %w", err)
	}

	slog.InfoContext(ctx, "Transfer recorded",
		"from", tr.FromAccountID,
		"to", tr.ToAccountID,
		"amount_cents", tr.Amount.Cents)

	return []core.Transaction{outLeg, inLeg}, nil
}

// Overview loads the family snapshot and derives every dashboard figure.
func (s *LedgerService) Overview(ctx context.Context, familyID string, target core.Date) (core.Overview, error) {
	snap, err := s.storage.LoadSnapshot(ctx, familyID)
	if err != nil {
		return core.Overview{}, err
	}
	return core.Derive(snap, target), nil
}

func (s *LedgerService) publishSyncMessage(ctx context.Context, id string, version int64) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}

	return s.amqpClient.PublishTransactionSync(ctx, id, version)
}

// Close closes both storage and AMQP connections
func (s *LedgerService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}

	return nil
}
