package services

import (
	"context"
	"errors"
	"testing"

	"bilancio/internal/core"
)

func TestFileCardCharges(t *testing.T) {
	repo, ledger := newLedgerFixture(t)
	_, _, card, category := seedFamily(t, ledger)
	statements := NewStatementService(repo)
	ctx := context.Background()

	// closing day 15: the day-10 charge bills in March, the day-20 one in April
	charges := []core.Transaction{
		{
			FamilyID: "fam-1", CardID: card.ID, CategoryID: category.ID,
			Description: "restaurant", Amount: core.Money{Cents: -7800},
			Date: core.NewDate(2026, 3, 10), Status: core.StatusPaid, Recurrence: core.RecurrenceNone,
		},
		{
			FamilyID: "fam-1", CardID: card.ID, CategoryID: category.ID,
			Description: "fuel", Amount: core.Money{Cents: -5500},
			Date: core.NewDate(2026, 3, 20), Status: core.StatusPaid, Recurrence: core.RecurrenceNone,
		},
	}
	for _, c := range charges {
		if _, err := ledger.CreateTransaction(ctx, c); err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
	}

	filed, err := statements.FileCardCharges(ctx, card.ID)
	if err != nil {
		t.Fatalf("FileCardCharges: %v", err)
	}
	if filed != 2 {
		t.Fatalf("expected 2 charges filed, got %d", filed)
	}

	march, err := repo.FindStatement(ctx, card.ID, 3, 2026)
	if err != nil {
		t.Fatalf("FindStatement march: %v", err)
	}
	april, err := repo.FindStatement(ctx, card.ID, 4, 2026)
	if err != nil {
		t.Fatalf("FindStatement april: %v", err)
	}
	if march.Status != core.StatementOpen || april.Status != core.StatementOpen {
		t.Fatalf("expected open statements, got %s and %s", march.Status, april.Status)
	}

	unfiled, err := repo.ListUnfiledCardCharges(ctx, card.ID)
	if err != nil {
		t.Fatalf("ListUnfiledCardCharges: %v", err)
	}
	if len(unfiled) != 0 {
		t.Fatalf("expected no unfiled charges, got %+v", unfiled)
	}

	// a second run has nothing left to file
	filed, err = statements.FileCardCharges(ctx, card.ID)
	if err != nil {
		t.Fatalf("second FileCardCharges: %v", err)
	}
	if filed != 0 {
		t.Fatalf("expected 0 charges filed on rerun, got %d", filed)
	}
}

func TestFileCardChargesRollsPastPaidPeriod(t *testing.T) {
	repo, ledger := newLedgerFixture(t)
	_, _, card, category := seedFamily(t, ledger)
	statements := NewStatementService(repo)
	ctx := context.Background()

	paid := core.CardStatement{
		ID: "st-paid", CardID: card.ID, Month: 3, Year: 2026, Status: core.StatementPaid,
	}
	if err := repo.CreateStatement(ctx, paid); err != nil {
		t.Fatalf("CreateStatement: %v", err)
	}

	// bills in March, but March is already settled
	late, err := ledger.CreateTransaction(ctx, core.Transaction{
		FamilyID: "fam-1", CardID: card.ID, CategoryID: category.ID,
		Description: "late charge", Amount: core.Money{Cents: -1200},
		Date: core.NewDate(2026, 3, 10), Status: core.StatusPaid, Recurrence: core.RecurrenceNone,
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	if _, err := statements.FileCardCharges(ctx, card.ID); err != nil {
		t.Fatalf("FileCardCharges: %v", err)
	}

	april, err := repo.FindStatement(ctx, card.ID, 4, 2026)
	if err != nil {
		t.Fatalf("FindStatement april: %v", err)
	}
	stored, err := repo.GetTransaction(ctx, late.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if stored.StatementID != april.ID {
		t.Fatalf("expected charge filed into april statement %s, got %q", april.ID, stored.StatementID)
	}
}

func TestStatementLifecycle(t *testing.T) {
	repo, ledger := newLedgerFixture(t)
	_, _, card, _ := seedFamily(t, ledger)
	statements := NewStatementService(repo)
	ctx := context.Background()

	stmt := core.CardStatement{
		ID: "st-1", CardID: card.ID, Month: 3, Year: 2026, Status: core.StatementOpen,
	}
	if err := repo.CreateStatement(ctx, stmt); err != nil {
		t.Fatalf("CreateStatement: %v", err)
	}

	// paying an open statement skips the closed step
	if err := statements.PayStatement(ctx, "st-1"); !errors.Is(err, ErrBadStatementTransition) {
		t.Fatalf("expected ErrBadStatementTransition, got %v", err)
	}

	if err := statements.CloseStatement(ctx, "st-1"); err != nil {
		t.Fatalf("CloseStatement: %v", err)
	}
	if err := statements.CloseStatement(ctx, "st-1"); !errors.Is(err, ErrBadStatementTransition) {
		t.Fatalf("expected ErrBadStatementTransition on double close, got %v", err)
	}

	if err := statements.PayStatement(ctx, "st-1"); err != nil {
		t.Fatalf("PayStatement: %v", err)
	}
	got, err := repo.GetStatement(ctx, "st-1")
	if err != nil {
		t.Fatalf("GetStatement: %v", err)
	}
	if got.Status != core.StatementPaid {
		t.Fatalf("expected paid statement, got %s", got.Status)
	}
}
