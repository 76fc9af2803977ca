package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

var ErrBadStatementTransition = errors.New("invalid statement status transition")

// StatementService files card charges into billing statements and walks
// each statement through its open, closed, paid lifecycle.
type StatementService struct {
	storage *storage.Repository
}

func NewStatementService(storage *storage.Repository) *StatementService {
	return &StatementService{storage: storage}
}

// FileCardCharges assigns every unfiled charge of a card to the statement
// of its billing period, creating statements on demand. A charge landing
// on an already paid period rolls forward to the next one. Returns the
// number of charges filed.
func (s *StatementService) FileCardCharges(ctx context.Context, cardID string) (int, error) {
	card, err := s.storage.GetCard(ctx, cardID)
	if err != nil {
		return 0, fmt.Errorf("load card: %w", err)
	}

	charges, err := s.storage.ListUnfiledCardCharges(ctx, cardID)
	if err != nil {
		return 0, fmt.Errorf("list unfiled charges: %w", err)
	}

	filed := 0
	for _, charge := range charges {
		period := core.StatementPeriodFor(charge.Date, card.ClosingDay)

		stmt, err := s.findOrCreateOpenStatement(ctx, cardID, period)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to resolve statement for charge",
				"transaction_id", charge.ID,
				"card_id", cardID,
				"month", period.Month,
				"year", period.Year,
				"error", err)
			continue
		}

		if err := s.storage.AssignStatement(ctx, charge.ID, stmt.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to file charge",
				"transaction_id", charge.ID,
				"statement_id", stmt.ID,
				"error", err)
			continue
		}
		filed++
	}

	slog.InfoContext(ctx, "Card charges filed",
		"card_id", cardID,
		"filed", filed,
		"total_unfiled", len(charges))

	return filed, nil
}

// findOrCreateOpenStatement resolves the statement a charge files into.
// Paid periods no longer accept charges, so the lookup rolls forward one
// month at a time until it reaches a period that does.
func (s *StatementService) findOrCreateOpenStatement(ctx context.Context, cardID string, period core.StatementPeriod) (core.CardStatement, error) {
	for {
		stmt, err := s.storage.FindStatement(ctx, cardID, period.Month, period.Year)
		if errors.Is(err, storage.ErrNotFound) {
			stmt = core.CardStatement{
				ID:     uuid.NewString(),
				CardID: cardID,
				Month:  period.Month,
				Year:   period.Year,
				Status: core.StatementOpen,
			}
			if err := s.storage.CreateStatement(ctx, stmt); err != nil {
				return core.CardStatement{}, err
			}
			return stmt, nil
		}
		if err != nil {
			return core.CardStatement{}, err
		}
		if stmt.Status != core.StatementPaid {
			return stmt, nil
		}

		period.Month++
		if period.Month > 12 {
			period.Month = 1
			period.Year++
		}
	}
}

// CloseStatement moves an open statement to closed.
func (s *StatementService) CloseStatement(ctx context.Context, id string) error {
	return s.transition(ctx, id, core.StatementOpen, core.StatementClosed)
}

// PayStatement settles a closed statement. Paying releases its charges
// from the card's live limit.
func (s *StatementService) PayStatement(ctx context.Context, id string) error {
	return s.transition(ctx, id, core.StatementClosed, core.StatementPaid)
}

func (s *StatementService) transition(ctx context.Context, id string, from, to core.StatementStatus) error {
	stmt, err := s.storage.GetStatement(ctx, id)
	if err != nil {
		return err
	}
	if stmt.Status != from {
		return fmt.Errorf("%w: %s -> %s", ErrBadStatementTransition, stmt.Status, to)
	}
	return s.storage.UpdateStatementStatus(ctx, id, to)
}
