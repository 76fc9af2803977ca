package memory

import (
	"context"
	"testing"

	"bilancio/internal/core"
)

func TestAppend(t *testing.T) {
	store := New()
	ctx := context.Background()

	tx := core.Transaction{
		ID: "tx-1", FamilyID: "fam-1", AccountID: "acc-1", CategoryID: "cat-1",
		Description: "groceries", Amount: core.Money{Cents: -4550},
		Date: core.NewDate(2026, 3, 12), Status: core.StatusPaid, Recurrence: core.RecurrenceNone,
	}
	ref, err := store.Append(ctx, tx)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if ref != "mem:1" {
		t.Fatalf("expected mem:1, got %s", ref)
	}
	if items := store.Items(); len(items) != 1 || items[0].ID != "tx-1" {
		t.Fatalf("unexpected items %+v", items)
	}

	// invalid transactions are rejected
	tx.Description = ""
	if _, err := store.Append(ctx, tx); err == nil {
		t.Fatalf("expected validation error")
	}
}
