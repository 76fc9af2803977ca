package storage

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"bilancio/internal/core"
)

// LoadSnapshot reads every entity collection for one family. The four
// queries run concurrently; the first failure cancels the rest.
func (r *Repository) LoadSnapshot(ctx context.Context, familyID string) (core.Snapshot, error) {
	var snap core.Snapshot

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.Accounts, err = r.ListAccounts(ctx, familyID)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Transactions, err = r.ListTransactions(ctx, familyID)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Cards, err = r.ListCards(ctx, familyID)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Statements, err = r.ListStatements(ctx, familyID)
		return err
	})

	if err := g.Wait(); err != nil {
		return core.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, nil
}
