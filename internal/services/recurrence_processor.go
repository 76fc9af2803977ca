package services

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// RecurrenceProcessor materializes future movements from recurring
// originals: monthly copies for fixed recurrences and the remaining
// pending installments for installment plans. It is idempotent; running
// it twice in the same period creates nothing new.
type RecurrenceProcessor struct {
	storage *storage.Repository
	ledger  *LedgerService
}

func NewRecurrenceProcessor(storage *storage.Repository, ledger *LedgerService) *RecurrenceProcessor {
	return &RecurrenceProcessor{
		storage: storage,
		ledger:  ledger,
	}
}

// ProcessDue walks every recurring original and creates whatever copies
// are due as of now. Returns the number of movements created.
func (p *RecurrenceProcessor) ProcessDue(ctx context.Context, now core.Date) (int, error) {
	if p.storage == nil || p.ledger == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	roots, err := p.storage.ListRecurrenceRoots(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recurring transactions: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring transactions",
		"total_roots", len(roots),
		"processing_date", now.String())

	created := 0
	for _, root := range roots {
		children, err := p.storage.ListChildren(ctx, root.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to list generated copies",
				"root_id", root.ID,
				"error", err)
			continue
		}

		var n int
		switch root.Recurrence {
		case core.RecurrenceFixed:
			n, err = p.processFixed(ctx, root, children, now)
		case core.RecurrenceInstallment:
			n, err = p.processInstallment(ctx, root, children)
		default:
			slog.WarnContext(ctx, "Skipping root with unknown recurrence",
				"root_id", root.ID,
				"recurrence", root.Recurrence)
			continue
		}
		if err != nil {
			slog.ErrorContext(ctx, "Failed to process recurring transaction",
				"root_id", root.ID,
				"description", root.Description,
				"error", err)
			continue
		}
		created += n
	}

	slog.InfoContext(ctx, "Recurring transaction processing complete",
		"created", created,
		"total_roots", len(roots))

	return created, nil
}

// processFixed creates this month's copy of a fixed recurring movement
// once the target day is reached. The original's own month never gets a
// copy; the original is that month's occurrence.
func (p *RecurrenceProcessor) processFixed(ctx context.Context, root core.Transaction, children []core.Transaction, now core.Date) (int, error) {
	if root.Date.SameMonth(now) || now.Before(root.Date.Time) {
		return 0, nil
	}
	for _, c := range children {
		if c.Date.SameMonth(now) {
			return 0, nil
		}
	}

	targetDay := clampDay(root.Date.Day(), now)
	if now.Day() < targetDay {
		return 0, nil
	}

	copyTx := root
	copyTx.ID = ""
	copyTx.StatementID = ""
	copyTx.Date = core.NewDate(now.Year(), now.Month(), targetDay)
	copyTx.Status = core.StatusPending
	copyTx.Recurrence = core.RecurrenceNone
	copyTx.Installments = 0
	copyTx.ParentID = root.ID

	if _, err := p.ledger.CreateTransaction(ctx, copyTx); err != nil {
		return 0, fmt.Errorf("create fixed copy: %w", err)
	}

	slog.InfoContext(ctx, "Created fixed recurring copy",
		"root_id", root.ID,
		"description", root.Description,
		"date", copyTx.Date.String())
	return 1, nil
}

// processInstallment creates every missing installment of a plan. The
// original is installment one; copies two through N are pending movements
// in the following months, so projections see the whole plan at once.
func (p *RecurrenceProcessor) processInstallment(ctx context.Context, root core.Transaction, children []core.Transaction) (int, error) {
	created := 0
	for i := len(children) + 2; i <= root.Installments; i++ {
		copyTx := root
		copyTx.ID = ""
		copyTx.StatementID = ""
		copyTx.Date = monthsAfter(root.Date, i-1)
		copyTx.Status = core.StatusPending
		copyTx.Recurrence = core.RecurrenceNone
		copyTx.Installments = 0
		copyTx.ParentID = root.ID
		copyTx.Description = fmt.Sprintf("%s (%d/%d)", root.Description, i, root.Installments)

		if _, err := p.ledger.CreateTransaction(ctx, copyTx); err != nil {
			return created, fmt.Errorf("create installment %d: %w", i, err)
		}
		created++
	}

	if created > 0 {
		slog.InfoContext(ctx, "Created installment copies",
			"root_id", root.ID,
			"description", root.Description,
			"created", created,
			"total", root.Installments)
	}
	return created, nil
}

// clampDay pulls a target day back to the last day of the month when the
// month is too short, e.g. a day-31 recurrence lands on Feb 28.
func clampDay(day int, month core.Date) int {
	if last := month.DaysInMonth(); day > last {
		return last
	}
	return day
}

// monthsAfter returns the date n months after d, keeping the day of
// month and clamping it when the target month is shorter.
func monthsAfter(d core.Date, n int) core.Date {
	month := d.Month() + n
	year := d.Year() + (month-1)/12
	month = (month-1)%12 + 1

	target := core.NewDate(year, month, 1)
	return core.NewDate(year, month, clampDay(d.Day(), target))
}
