package http

import (
	"context"
	"net/http"

	"bilancio/internal/core"
	"bilancio/internal/services"
)

// --- JSON views ---

type accountView struct {
	ID             string `json:"id"`
	FamilyID       string `json:"family_id"`
	OwnerID        string `json:"owner_id,omitempty"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	InitialBalance int64  `json:"initial_balance_cents"`
}

func toAccountView(a core.Account) accountView {
	return accountView{
		ID:             a.ID,
		FamilyID:       a.FamilyID,
		OwnerID:        a.OwnerID,
		Name:           a.Name,
		Type:           string(a.Type),
		InitialBalance: a.InitialBalance.Cents,
	}
}

type cardView struct {
	ID          string `json:"id"`
	FamilyID    string `json:"family_id"`
	Name        string `json:"name"`
	CreditLimit int64  `json:"credit_limit_cents"`
	ClosingDay  int    `json:"closing_day"`
	DueDay      int    `json:"due_day"`
}

func toCardView(c core.CreditCard) cardView {
	return cardView{
		ID:          c.ID,
		FamilyID:    c.FamilyID,
		Name:        c.Name,
		CreditLimit: c.CreditLimit.Cents,
		ClosingDay:  c.ClosingDay,
		DueDay:      c.DueDay,
	}
}

type categoryView struct {
	ID       string `json:"id"`
	FamilyID string `json:"family_id"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
}

type transactionView struct {
	ID           string `json:"id"`
	FamilyID     string `json:"family_id"`
	AccountID    string `json:"account_id,omitempty"`
	CardID       string `json:"card_id,omitempty"`
	CategoryID   string `json:"category_id"`
	StatementID  string `json:"statement_id,omitempty"`
	ParentID     string `json:"parent_id,omitempty"`
	Description  string `json:"description"`
	Amount       int64  `json:"amount_cents"`
	Date         string `json:"date"`
	Status       string `json:"status"`
	Recurrence   string `json:"recurrence"`
	Installments int    `json:"installments,omitempty"`
}

func toTransactionView(t core.Transaction) transactionView {
	return transactionView{
		ID:           t.ID,
		FamilyID:     t.FamilyID,
		AccountID:    t.AccountID,
		CardID:       t.CardID,
		CategoryID:   t.CategoryID,
		StatementID:  t.StatementID,
		ParentID:     t.ParentID,
		Description:  t.Description,
		Amount:       t.Amount.Cents,
		Date:         t.Date.String(),
		Status:       string(t.Status),
		Recurrence:   string(t.Recurrence),
		Installments: t.Installments,
	}
}

type statementView struct {
	ID     string `json:"id"`
	CardID string `json:"card_id"`
	Month  int    `json:"month"`
	Year   int    `json:"year"`
	Status string `json:"status"`
}

type overviewView struct {
	Accounts         []overviewAccount `json:"accounts"`
	AvailableNow     int64             `json:"available_now_cents"`
	Cards            []overviewCard    `json:"cards"`
	ProjectedBalance int64             `json:"projected_balance_cents"`
	DailyCumulative  []overviewDay     `json:"daily_cumulative"`
}

type overviewAccount struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Balance int64  `json:"balance_cents"`
}

type overviewCard struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	CreditLimit    int64  `json:"credit_limit_cents"`
	LimitUsed      int64  `json:"limit_used_cents"`
	LimitAvailable int64  `json:"limit_available_cents"`
}

type overviewDay struct {
	Day     int   `json:"day"`
	Balance int64 `json:"balance_cents"`
}

func toOverviewView(ov core.Overview) overviewView {
	out := overviewView{
		AvailableNow:     ov.AvailableNow.Cents,
		ProjectedBalance: ov.ProjectedBalance.Cents,
		Accounts:         make([]overviewAccount, 0, len(ov.AccountBalances)),
		Cards:            make([]overviewCard, 0, len(ov.CardUtilizations)),
		DailyCumulative:  make([]overviewDay, 0, len(ov.DailyCumulative)),
	}
	for _, b := range ov.AccountBalances {
		out.Accounts = append(out.Accounts, overviewAccount{
			ID:      b.ID,
			Name:    b.Name,
			Type:    string(b.Type),
			Balance: b.CurrentBalance.Cents,
		})
	}
	for _, u := range ov.CardUtilizations {
		out.Cards = append(out.Cards, overviewCard{
			ID:             u.ID,
			Name:           u.Name,
			CreditLimit:    u.CreditLimit.Cents,
			LimitUsed:      u.LimitUsed.Cents,
			LimitAvailable: u.LimitAvailable.Cents,
		})
	}
	for _, d := range ov.DailyCumulative {
		out.DailyCumulative = append(out.DailyCumulative, overviewDay{
			Day:     d.Day,
			Balance: d.Balance.Cents,
		})
	}
	return out
}

// --- overview ---

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	familyID := r.URL.Query().Get("family")
	if familyID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "family query parameter required"})
		return
	}

	target := parseTarget(r)
	key := s.overviewCacheKey(familyID, target)
	if cached, ok := s.overviewCache.Get(key); ok {
		writeJSON(w, http.StatusOK, toOverviewView(cached))
		return
	}

	ov, err := s.ledger.Overview(r.Context(), familyID, target)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.overviewCache.Set(key, ov)
	writeJSON(w, http.StatusOK, toOverviewView(ov))
}

// --- accounts, cards, categories ---

type createAccountRequest struct {
	FamilyID       string `json:"family_id"`
	OwnerID        string `json:"owner_id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	InitialBalance int64  `json:"initial_balance_cents"`
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}

	account, err := s.ledger.CreateAccount(r.Context(), core.Account{
		FamilyID:       req.FamilyID,
		OwnerID:        req.OwnerID,
		Name:           sanitizeInput(req.Name),
		Type:           core.AccountType(req.Type),
		InitialBalance: core.Money{Cents: req.InitialBalance},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateFamily(account.FamilyID)
	writeJSON(w, http.StatusCreated, toAccountView(account))
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	familyID := r.URL.Query().Get("family")
	if familyID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "family query parameter required"})
		return
	}

	accounts, err := s.storage.ListAccounts(r.Context(), familyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountView(a))
	}
	writeJSON(w, http.StatusOK, out)
}

type createCardRequest struct {
	FamilyID    string `json:"family_id"`
	Name        string `json:"name"`
	CreditLimit int64  `json:"credit_limit_cents"`
	ClosingDay  int    `json:"closing_day"`
	DueDay      int    `json:"due_day"`
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var req createCardRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}

	card, err := s.ledger.CreateCard(r.Context(), core.CreditCard{
		FamilyID:    req.FamilyID,
		Name:        sanitizeInput(req.Name),
		CreditLimit: core.Money{Cents: req.CreditLimit},
		ClosingDay:  req.ClosingDay,
		DueDay:      req.DueDay,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateFamily(card.FamilyID)
	writeJSON(w, http.StatusCreated, toCardView(card))
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	familyID := r.URL.Query().Get("family")
	if familyID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "family query parameter required"})
		return
	}

	cards, err := s.storage.ListCards(r.Context(), familyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]cardView, 0, len(cards))
	for _, c := range cards {
		out = append(out, toCardView(c))
	}
	writeJSON(w, http.StatusOK, out)
}

type createCategoryRequest struct {
	FamilyID string `json:"family_id"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}

	category, err := s.ledger.CreateCategory(r.Context(), core.Category{
		FamilyID: req.FamilyID,
		Name:     sanitizeInput(req.Name),
		Kind:     core.CategoryKind(req.Kind),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, categoryView{
		ID:       category.ID,
		FamilyID: category.FamilyID,
		Name:     category.Name,
		Kind:     string(category.Kind),
	})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	familyID := r.URL.Query().Get("family")
	if familyID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "family query parameter required"})
		return
	}

	categories, err := s.storage.ListCategories(r.Context(), familyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]categoryView, 0, len(categories))
	for _, c := range categories {
		out = append(out, categoryView{
			ID:       c.ID,
			FamilyID: c.FamilyID,
			Name:     c.Name,
			Kind:     string(c.Kind),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// --- transactions ---

type createTransactionRequest struct {
	FamilyID     string `json:"family_id"`
	AccountID    string `json:"account_id"`
	CardID       string `json:"card_id"`
	CategoryID   string `json:"category_id"`
	Description  string `json:"description"`
	Amount       string `json:"amount"`
	Date         string `json:"date"`
	Status       string `json:"status"`
	Recurrence   string `json:"recurrence"`
	Installments int    `json:"installments"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}

	cents, err := core.ParseSignedCents(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if req.Status == "" {
		req.Status = string(core.StatusPaid)
	}
	if req.Recurrence == "" {
		req.Recurrence = string(core.RecurrenceNone)
	}

	tx, err := s.ledger.CreateTransaction(r.Context(), core.Transaction{
		FamilyID:     req.FamilyID,
		AccountID:    req.AccountID,
		CardID:       req.CardID,
		CategoryID:   req.CategoryID,
		Description:  sanitizeInput(req.Description),
		Amount:       core.Money{Cents: cents},
		Date:         date,
		Status:       core.TransactionStatus(req.Status),
		Recurrence:   core.Recurrence(req.Recurrence),
		Installments: req.Installments,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateFamily(tx.FamilyID)
	writeJSON(w, http.StatusCreated, toTransactionView(tx))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	familyID := r.URL.Query().Get("family")
	if familyID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "family query parameter required"})
		return
	}

	transactions, err := s.storage.ListTransactions(r.Context(), familyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]transactionView, 0, len(transactions))
	for _, t := range transactions {
		out = append(out, toTransactionView(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleReverseTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	tx, err := s.storage.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.ReverseTransaction(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateFamily(tx.FamilyID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePayTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	tx, err := s.storage.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.MarkTransactionPaid(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateFamily(tx.FamilyID)
	w.WriteHeader(http.StatusNoContent)
}

// --- transfers ---

type createTransferRequest struct {
	FamilyID      string `json:"family_id"`
	FromAccountID string `json:"from_account_id"`
	ToAccountID   string `json:"to_account_id"`
	CategoryID    string `json:"category_id"`
	Description   string `json:"description"`
	Amount        string `json:"amount"`
	Date          string `json:"date"`
	Recurrence    string `json:"recurrence"`
	Installments  int    `json:"installments"`
}

func (s *Server) handleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req createTransferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}

	cents, err := core.ParseSignedCents(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	legs, err := s.ledger.CreateTransfer(r.Context(), services.Transfer{
		FamilyID:      req.FamilyID,
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		CategoryID:    req.CategoryID,
		Description:   sanitizeInput(req.Description),
		Amount:        core.Money{Cents: cents},
		Date:          date,
		Recurrence:    core.Recurrence(req.Recurrence),
		Installments:  req.Installments,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateFamily(req.FamilyID)
	out := make([]transactionView, 0, len(legs))
	for _, leg := range legs {
		out = append(out, toTransactionView(leg))
	}
	writeJSON(w, http.StatusCreated, out)
}

// --- statements ---

func (s *Server) handleFileCharges(w http.ResponseWriter, r *http.Request) {
	cardID := r.PathValue("id")

	card, err := s.storage.GetCard(r.Context(), cardID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filed, err := s.statements.FileCardCharges(r.Context(), cardID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateFamily(card.FamilyID)
	writeJSON(w, http.StatusOK, map[string]int{"filed": filed})
}

func (s *Server) handleListStatements(w http.ResponseWriter, r *http.Request) {
	familyID := r.URL.Query().Get("family")
	if familyID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "family query parameter required"})
		return
	}

	statements, err := s.storage.ListStatements(r.Context(), familyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]statementView, 0, len(statements))
	for _, st := range statements {
		out = append(out, statementView{
			ID:     st.ID,
			CardID: st.CardID,
			Month:  st.Month,
			Year:   st.Year,
			Status: string(st.Status),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCloseStatement(w http.ResponseWriter, r *http.Request) {
	s.handleStatementTransition(w, r, s.statements.CloseStatement)
}

func (s *Server) handlePayStatement(w http.ResponseWriter, r *http.Request) {
	s.handleStatementTransition(w, r, s.statements.PayStatement)
}

func (s *Server) handleStatementTransition(w http.ResponseWriter, r *http.Request, transition func(ctx context.Context, id string) error) {
	id := r.PathValue("id")

	stmt, err := s.storage.GetStatement(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := transition(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	// paying a statement changes the card's live utilization
	if card, err := s.storage.GetCard(r.Context(), stmt.CardID); err == nil {
		s.invalidateFamily(card.FamilyID)
	}
	w.WriteHeader(http.StatusNoContent)
}
