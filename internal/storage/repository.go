package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"bilancio/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// --- accounts ---

func (r *Repository) CreateAccount(ctx context.Context, a core.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, family_id, owner_id, name, type, initial_balance_cents)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.FamilyID, nullable(a.OwnerID), a.Name, string(a.Type), a.InitialBalance.Cents)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	slog.InfoContext(ctx, "Account saved",
		"id", a.ID,
		"name", a.Name,
		"type", a.Type)
	return nil
}

func (r *Repository) GetAccount(ctx context.Context, id string) (core.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, family_id, COALESCE(owner_id, ''), name, type, COALESCE(initial_balance_cents, 0)
		 FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

func (r *Repository) ListAccounts(ctx context.Context, familyID string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, family_id, COALESCE(owner_id, ''), name, type, COALESCE(initial_balance_cents, 0)
		 FROM accounts WHERE family_id = ? ORDER BY name`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// --- credit cards ---

func (r *Repository) CreateCard(ctx context.Context, c core.CreditCard) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credit_cards (id, family_id, name, credit_limit_cents, closing_day, due_day)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.FamilyID, c.Name, c.CreditLimit.Cents, c.ClosingDay, c.DueDay)
	if err != nil {
		return fmt.Errorf("create credit card: %w", err)
	}

	slog.InfoContext(ctx, "Credit card saved",
		"id", c.ID,
		"name", c.Name,
		"closing_day", c.ClosingDay)
	return nil
}

func (r *Repository) GetCard(ctx context.Context, id string) (core.CreditCard, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, family_id, name, COALESCE(credit_limit_cents, 0), closing_day, due_day
		 FROM credit_cards WHERE id = ?`, id)
	return scanCard(row)
}

func (r *Repository) ListCards(ctx context.Context, familyID string) ([]core.CreditCard, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, family_id, name, COALESCE(credit_limit_cents, 0), closing_day, due_day
		 FROM credit_cards WHERE family_id = ? ORDER BY name`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list credit cards: %w", err)
	}
	defer rows.Close()

	var cards []core.CreditCard
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// --- categories ---

func (r *Repository) CreateCategory(ctx context.Context, c core.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, family_id, name, kind) VALUES (?, ?, ?, ?)`,
		c.ID, c.FamilyID, c.Name, string(c.Kind))
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (r *Repository) ListCategories(ctx context.Context, familyID string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, family_id, name, kind FROM categories WHERE family_id = ? ORDER BY name`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var c core.Category
		var kind string
		if err := rows.Scan(&c.ID, &c.FamilyID, &c.Name, &kind); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Kind = core.CategoryKind(kind)
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// --- card statements ---

func (r *Repository) CreateStatement(ctx context.Context, s core.CardStatement) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO card_statements (id, card_id, month, year, status) VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.CardID, s.Month, s.Year, string(s.Status))
	if err != nil {
		return fmt.Errorf("create statement: %w", err)
	}

	slog.InfoContext(ctx, "Statement created",
		"id", s.ID,
		"card_id", s.CardID,
		"month", s.Month,
		"year", s.Year)
	return nil
}

func (r *Repository) GetStatement(ctx context.Context, id string) (core.CardStatement, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, card_id, month, year, status FROM card_statements WHERE id = ?`, id)
	return scanStatement(row)
}

// FindStatement looks up the statement for a card and billing period.
// Returns ErrNotFound when the period has no statement yet.
func (r *Repository) FindStatement(ctx context.Context, cardID string, month, year int) (core.CardStatement, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, card_id, month, year, status FROM card_statements
		 WHERE card_id = ? AND month = ? AND year = ?`, cardID, month, year)
	return scanStatement(row)
}

func (r *Repository) ListStatements(ctx context.Context, familyID string) ([]core.CardStatement, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.id, s.card_id, s.month, s.year, s.status
		 FROM card_statements s
		 JOIN credit_cards c ON c.id = s.card_id
		 WHERE c.family_id = ?
		 ORDER BY s.year, s.month`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list statements: %w", err)
	}
	defer rows.Close()

	var statements []core.CardStatement
	for rows.Next() {
		s, err := scanStatement(rows)
		if err != nil {
			return nil, err
		}
		statements = append(statements, s)
	}
	return statements, rows.Err()
}

func (r *Repository) UpdateStatementStatus(ctx context.Context, id string, status core.StatementStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE card_statements SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update statement status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	slog.InfoContext(ctx, "Statement status updated", "id", id, "status", status)
	return nil
}

// --- transactions ---

func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions
		 (id, family_id, account_id, card_id, statement_id, category_id, description,
		  amount_cents, date, status, recurrence, installments, parent_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.FamilyID, nullable(t.AccountID), nullable(t.CardID), nullable(t.StatementID),
		t.CategoryID, t.Description, t.Amount.Cents, t.Date.String(),
		string(t.Status), string(t.Recurrence), t.Installments, nullable(t.ParentID))
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"description", t.Description,
		"amount_cents", t.Amount.Cents,
		"date", t.Date.String(),
		"status", t.Status)
	return nil
}

func (r *Repository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, selectTransaction+` WHERE id = ?`, id)
	return scanTransaction(row)
}

func (r *Repository) ListTransactions(ctx context.Context, familyID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		selectTransaction+` WHERE family_id = ? ORDER BY date DESC, created_at DESC`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// UpdateTransactionStatus changes a transaction's status, re-queues it
// for export and returns the bumped row version.
func (r *Repository) UpdateTransactionStatus(ctx context.Context, id string, status core.TransactionStatus) (int64, error) {
	var version int64
	err := r.db.QueryRowContext(ctx,
		`UPDATE transactions
		 SET status = ?, sync_status = 'pending', version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?
		 RETURNING version`, string(status), id).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("update transaction status: %w", err)
	}

	slog.InfoContext(ctx, "Transaction status updated", "id", id, "status", status, "version", version)
	return version, nil
}

// AssignStatement files a card charge into a statement.
func (r *Repository) AssignStatement(ctx context.Context, txID, statementID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		 SET statement_id = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND card_id IS NOT NULL`, statementID, txID)
	if err != nil {
		return fmt.Errorf("assign statement: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUnfiledCardCharges returns non-reversed card charges without a statement.
func (r *Repository) ListUnfiledCardCharges(ctx context.Context, cardID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		selectTransaction+` WHERE card_id = ? AND statement_id IS NULL AND status != 'reversed' ORDER BY date`, cardID)
	if err != nil {
		return nil, fmt.Errorf("list unfiled card charges: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ListRecurrenceRoots returns original recurring transactions across all
// families, oldest first. Generated copies carry a parent id and are excluded.
func (r *Repository) ListRecurrenceRoots(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		selectTransaction+` WHERE recurrence != 'none' AND parent_id IS NULL ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("list recurrence roots: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (r *Repository) ListChildren(ctx context.Context, parentID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		selectTransaction+` WHERE parent_id = ? ORDER BY date`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// --- sync queue ---

// PendingSyncTransaction is the minimal row identity carried on sync messages.
type PendingSyncTransaction struct {
	ID        string
	Version   int64
	CreatedAt time.Time
}

func (r *Repository) GetPendingSyncTransactions(ctx context.Context, limit int) ([]PendingSyncTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, version, created_at FROM transactions
		 WHERE sync_status = 'pending' ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	defer rows.Close()

	var pending []PendingSyncTransaction
	for rows.Next() {
		var p PendingSyncTransaction
		if err := rows.Scan(&p.ID, &p.Version, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending sync transaction: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

func (r *Repository) MarkSynced(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'synced' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}

	slog.InfoContext(ctx, "Transaction marked as synced", "id", id)
	return nil
}

func (r *Repository) MarkSyncError(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'error' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}

	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}

// --- scan helpers ---

const selectTransaction = `SELECT id, family_id, COALESCE(account_id, ''), COALESCE(card_id, ''),
	COALESCE(statement_id, ''), category_id, description, COALESCE(amount_cents, 0), date,
	status, recurrence, COALESCE(installments, 0), COALESCE(parent_id, '')
	FROM transactions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (core.Account, error) {
	var a core.Account
	var typ string
	err := row.Scan(&a.ID, &a.FamilyID, &a.OwnerID, &a.Name, &typ, &a.InitialBalance.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("scan account: %w", err)
	}
	a.Type = core.AccountType(typ)
	return a, nil
}

func scanCard(row rowScanner) (core.CreditCard, error) {
	var c core.CreditCard
	err := row.Scan(&c.ID, &c.FamilyID, &c.Name, &c.CreditLimit.Cents, &c.ClosingDay, &c.DueDay)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CreditCard{}, ErrNotFound
	}
	if err != nil {
		return core.CreditCard{}, fmt.Errorf("scan credit card: %w", err)
	}
	return c, nil
}

func scanStatement(row rowScanner) (core.CardStatement, error) {
	var s core.CardStatement
	var status string
	err := row.Scan(&s.ID, &s.CardID, &s.Month, &s.Year, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CardStatement{}, ErrNotFound
	}
	if err != nil {
		return core.CardStatement{}, fmt.Errorf("scan statement: %w", err)
	}
	s.Status = core.StatementStatus(status)
	return s, nil
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var t core.Transaction
	var date, status, recurrence string
	err := row.Scan(&t.ID, &t.FamilyID, &t.AccountID, &t.CardID, &t.StatementID,
		&t.CategoryID, &t.Description, &t.Amount.Cents, &date, &status, &recurrence,
		&t.Installments, &t.ParentID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	t.Status = core.TransactionStatus(status)
	t.Recurrence = core.Recurrence(recurrence)
	if t.Date, err = core.ParseDate(date); err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction date %q: %w", date, err)
	}
	return t, nil
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var transactions []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
