package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// Fixtures run against a real SQLite database in a temp dir. The AMQP
// client stays nil; publishing is skipped and logged in that case.
func newLedgerFixture(t *testing.T) (*storage.Repository, *LedgerService) {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo, NewLedgerService(repo, nil)
}

func seedFamily(t *testing.T, ledger *LedgerService) (core.Account, core.Account, core.CreditCard, core.Category) {
	t.Helper()
	ctx := context.Background()

	checking, err := ledger.CreateAccount(ctx, core.Account{
		FamilyID: "fam-1", Name: "Conto corrente", Type: core.AccountChecking,
		InitialBalance: core.Money{Cents: 100000},
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	savings, err := ledger.CreateAccount(ctx, core.Account{
		FamilyID: "fam-1", Name: "Risparmi", Type: core.AccountSavings,
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	card, err := ledger.CreateCard(ctx, core.CreditCard{
		FamilyID: "fam-1", Name: "Visa", CreditLimit: core.Money{Cents: 100000},
		ClosingDay: 15, DueDay: 22,
	})
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}

	category, err := ledger.CreateCategory(ctx, core.Category{
		FamilyID: "fam-1", Name: "Spesa", Kind: core.CategoryExpense,
	})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}

	return checking, savings, card, category
}

func TestCreateTransaction(t *testing.T) {
	repo, ledger := newLedgerFixture(t)
	checking, _, _, category := seedFamily(t, ledger)
	ctx := context.Background()

	created, err := ledger.CreateTransaction(ctx, core.Transaction{
		FamilyID: "fam-1", AccountID: checking.ID, CategoryID: category.ID,
		Description: "groceries", Amount: core.Money{Cents: -4550},
		Date: core.NewDate(2026, 3, 12), Status: core.StatusPaid, Recurrence: core.RecurrenceNone,
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected an assigned id")
	}

	stored, err := repo.GetTransaction(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if stored.Amount.Cents != -4550 || stored.Status != core.StatusPaid {
		t.Fatalf("unexpected stored transaction %+v", stored)
	}

	// validation failures never reach storage
	_, err = ledger.CreateTransaction(ctx, core.Transaction{
		FamilyID: "fam-1", AccountID: checking.ID, CardID: "card-x", CategoryID: category.ID,
		Description: "both owners", Amount: core.Money{Cents: -100},
		Date: core.NewDate(2026, 3, 12), Status: core.StatusPaid, Recurrence: core.RecurrenceNone,
	})
	if !errors.Is(err, core.ErrBothOwners) {
		t.Fatalf("expected ErrBothOwners, got %v", err)
	}
}

func TestReverseTransaction(t *testing.T) {
	repo, ledger := newLedgerFixture(t)
	checking, _, _, category := seedFamily(t, ledger)
	ctx := context.Background()

	created, err := ledger.CreateTransaction(ctx, core.Transaction{
		FamilyID: "fam-1", AccountID: checking.ID, CategoryID: category.ID,
		Description: "duplicate charge", Amount: core.Money{Cents: -2000},
		Date: core.NewDate(2026, 3, 5), Status: core.StatusPaid, Recurrence: core.RecurrenceNone,
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	if err := ledger.ReverseTransaction(ctx, created.ID); err != nil {
		t.Fatalf("ReverseTransaction: %v", err)
	}
	stored, err := repo.GetTransaction(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if stored.Status != core.StatusReversed {
		t.Fatalf("expected reversed, got %s", stored.Status)
	}

	if err := ledger.ReverseTransaction(ctx, created.ID); !errors.Is(err, ErrAlreadyReversed) {
		t.Fatalf("expected ErrAlreadyReversed, got %v", err)
	}
	if err := ledger.ReverseTransaction(ctx, "tx-missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkTransactionPaid(t *testing.T) {
	repo, ledger := newLedgerFixture(t)
	checking, _, _, category := seedFamily(t, ledger)
	ctx := context.Background()

	created, err := ledger.CreateTransaction(ctx, core.Transaction{
		FamilyID: "fam-1", AccountID: checking.ID, CategoryID: category.ID,
		Description: "salary", Amount: core.Money{Cents: 250000},
		Date: core.NewDate(2026, 3, 27), Status: core.StatusPending, Recurrence: core.RecurrenceNone,
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	if err := ledger.MarkTransactionPaid(ctx, created.ID); err != nil {
		t.Fatalf("MarkTransactionPaid: %v", err)
	}
	stored, _ := repo.GetTransaction(ctx, created.ID)
	if stored.Status != core.StatusPaid {
		t.Fatalf("expected paid, got %s", stored.Status)
	}

	// settling twice is a no-op
	if err := ledger.MarkTransactionPaid(ctx, created.ID); err != nil {
		t.Fatalf("second MarkTransactionPaid: %v", err)
	}
}

func TestCreateTransfer(t *testing.T) {
	repo, ledger := newLedgerFixture(t)
	checking, savings, _, category := seedFamily(t, ledger)
	ctx := context.Background()

	legs, err := ledger.CreateTransfer(ctx, Transfer{
		FamilyID: "fam-1", FromAccountID: checking.ID, ToAccountID: savings.ID,
		CategoryID: category.ID, Description: "monthly savings",
		Amount: core.Money{Cents: 30000}, Date: core.NewDate(2026, 3, 1),
		Recurrence: core.RecurrenceFixed,
	})
	if err != nil {
		t.Fatalf("CreateTransfer: %v", err)
	}
	if len(legs) != 2 {
		t.Fatalf("expected 2 legs, got %d", len(legs))
	}

	out, in := legs[0], legs[1]
	if out.Amount.Cents != -30000 || out.AccountID != checking.ID || out.Recurrence != core.RecurrenceFixed {
		t.Fatalf("unexpected source leg %+v", out)
	}
	// destination leg is a plain movement regardless of the recurrence
	if in.Amount.Cents != 30000 || in.AccountID != savings.ID || in.Recurrence != core.RecurrenceNone {
		t.Fatalf("unexpected destination leg %+v", in)
	}

	all, err := repo.ListTransactions(ctx, "fam-1")
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 stored movements, got %d", len(all))
	}

	if _, err := ledger.CreateTransfer(ctx, Transfer{
		FamilyID: "fam-1", FromAccountID: checking.ID, ToAccountID: checking.ID,
		CategoryID: category.ID, Description: "loop",
		Amount: core.Money{Cents: 100}, Date: core.NewDate(2026, 3, 1),
	}); !errors.Is(err, ErrSameAccount) {
		t.Fatalf("expected ErrSameAccount, got %v", err)
	}

	if _, err := ledger.CreateTransfer(ctx, Transfer{
		FamilyID: "fam-1", FromAccountID: checking.ID, ToAccountID: savings.ID,
		CategoryID: category.ID, Description: "nothing",
		Amount: core.Money{Cents: -5}, Date: core.NewDate(2026, 3, 1),
	}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestOverview(t *testing.T) {
	_, ledger := newLedgerFixture(t)
	checking, _, _, category := seedFamily(t, ledger)
	ctx := context.Background()

	movements := []core.Transaction{
		{
			FamilyID: "fam-1", AccountID: checking.ID, CategoryID: category.ID,
			Description: "rent", Amount: core.Money{Cents: -20000},
			Date: core.NewDate(2026, 3, 5), Status: core.StatusPaid, Recurrence: core.RecurrenceNone,
		},
		{
			FamilyID: "fam-1", AccountID: checking.ID, CategoryID: category.ID,
			Description: "salary", Amount: core.Money{Cents: 50000},
			Date: core.NewDate(2026, 3, 27), Status: core.StatusPending, Recurrence: core.RecurrenceNone,
		},
	}
	for _, m := range movements {
		if _, err := ledger.CreateTransaction(ctx, m); err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
	}

	ov, err := ledger.Overview(ctx, "fam-1", core.NewDate(2026, 3, 10))
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	// 1000.00 initial - 200.00 paid; both accounts summed
	if ov.AvailableNow.Cents != 80000 {
		t.Fatalf("available expected 80000, got %d", ov.AvailableNow.Cents)
	}
	if ov.ProjectedBalance.Cents != 130000 {
		t.Fatalf("projected expected 130000, got %d", ov.ProjectedBalance.Cents)
	}
	if len(ov.DailyCumulative) != 31 {
		t.Fatalf("expected 31 daily entries, got %d", len(ov.DailyCumulative))
	}
}
