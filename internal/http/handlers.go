package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"contabile/internal/core"
	"contabile/internal/export"
	"contabile/internal/services"
	"contabile/internal/storage"
)

// maxImportSize caps uploaded import files at 10 MiB.
const maxImportSize = 10 << 20

type moneyJSON struct {
	Cents   int64  `json:"cents"`
	Decimal string `json:"decimal"`
}

func money(m core.Money) moneyJSON {
	return moneyJSON{Cents: m.Cents, Decimal: m.DecimalString()}
}

type categoryJSON struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type cardJSON struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type transactionJSON struct {
	ID          int64     `json:"id"`
	Kind        string    `json:"kind"`
	Amount      moneyJSON `json:"amount"`
	Date        string    `json:"date"`
	CategoryID  int64     `json:"category_id"`
	Category    string    `json:"category"`
	CardID      int64     `json:"card_id,omitempty"`
	Card        string    `json:"card,omitempty"`
	Description string    `json:"description,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	IsRecurring bool      `json:"is_recurring"`
}

func transaction(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          t.ID,
		Kind:        string(t.Kind),
		Amount:      money(t.Amount),
		Date:        t.Date.ISO(),
		CategoryID:  t.CategoryID,
		Category:    t.Category,
		CardID:      t.CardID,
		Card:        t.Card,
		Description: t.Description,
		Notes:       t.Notes,
		IsRecurring: t.IsRecurring,
	}
}

func transactions(txs []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, len(txs))
	for i, t := range txs {
		out[i] = transaction(t)
	}
	return out
}

type paymentJSON struct {
	ID     int64     `json:"id"`
	CardID int64     `json:"card_id"`
	Card   string    `json:"card"`
	Amount moneyJSON `json:"amount"`
	Date   string    `json:"date"`
	Notes  string    `json:"notes,omitempty"`
}

// transactionRequest carries raw textual fields; all parsing happens in
// the validator so the API and file imports reject inputs identically.
type transactionRequest struct {
	Kind        string `json:"kind"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Category    string `json:"category"`
	Card        string `json:"card"`
	Description string `json:"description"`
	Notes       string `json:"notes"`
	IsRecurring bool   `json:"is_recurring"`
}

func (req transactionRequest) input() core.TransactionInput {
	return core.TransactionInput{
		Kind:        req.Kind,
		Amount:      req.Amount,
		Date:        req.Date,
		Category:    req.Category,
		Card:        req.Card,
		Description: req.Description,
		Notes:       req.Notes,
		IsRecurring: strconv.FormatBool(req.IsRecurring),
	}
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// ---- categories ----

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request, owner core.User) {
	cats, err := s.categories.List(r.Context(), owner.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]categoryJSON, len(cats))
	for i, c := range cats {
		out[i] = categoryJSON{ID: c.ID, Name: c.Name, Kind: string(c.Kind)}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request, owner core.User) {
	var req struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	cat, err := s.categories.Create(r.Context(), owner.ID, core.CategoryInput{Name: req.Name, Kind: req.Kind})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, categoryJSON{ID: cat.ID, Name: cat.Name, Kind: string(cat.Kind)})
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request, owner core.User) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	cat, err := s.categories.Update(r.Context(), owner.ID, id, core.CategoryInput{Name: req.Name, Kind: req.Kind})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categoryJSON{ID: cat.ID, Name: cat.Name, Kind: string(cat.Kind)})
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request, owner core.User) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.categories.Delete(r.Context(), owner.ID, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- cards ----

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request, owner core.User) {
	cards, err := s.cards.List(r.Context(), owner.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]cardJSON, len(cards))
	for i, c := range cards {
		out[i] = cardJSON{ID: c.ID, Name: c.Name}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request, owner core.User) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	card, err := s.cards.Create(r.Context(), owner.ID, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cardJSON{ID: card.ID, Name: card.Name})
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request, owner core.User) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	card, err := s.cards.Update(r.Context(), owner.ID, id, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cardJSON{ID: card.ID, Name: card.Name})
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request, owner core.User) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.cards.Delete(r.Context(), owner.ID, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- transactions ----

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, owner core.User) {
	filter := storage.TransactionFilter{
		Year:       queryInt(r, "year", 0),
		Month:      queryInt(r, "month", 0),
		CategoryID: queryInt64(r, "category_id"),
		CardID:     queryInt64(r, "card_id"),
		Search:     r.URL.Query().Get("q"),
		Limit:      queryInt(r, "limit", 0),
	}

	txs, err := s.transactions.List(r.Context(), owner.ID, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transactions(txs))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, owner core.User) {
	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := s.transactions.Create(r.Context(), owner.ID, req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, transaction(tx))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request, owner core.User) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := s.transactions.Get(r.Context(), owner.ID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transaction(tx))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request, owner core.User) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := s.transactions.Update(r.Context(), owner.ID, id, req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transaction(tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, owner core.User) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.transactions.Delete(r.Context(), owner.ID, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- card payments ----

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request, owner core.User) {
	payments, err := s.cards.ListPayments(r.Context(), owner.ID,
		queryInt(r, "year", 0), queryInt(r, "month", 0), queryInt64(r, "card_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]paymentJSON, len(payments))
	for i, p := range payments {
		out[i] = paymentJSON{
			ID: p.ID, CardID: p.CardID, Card: p.Card,
			Amount: money(p.Amount), Date: p.Date.ISO(), Notes: p.Notes,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request, owner core.User) {
	var req struct {
		CardID int64  `json:"card_id"`
		Amount string `json:"amount"`
		Date   string `json:"date"`
		Notes  string `json:"notes"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p, err := s.cards.CreatePayment(r.Context(), owner.ID, services.PaymentInput{
		CardID: req.CardID, Amount: req.Amount, Date: req.Date, Notes: req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, paymentJSON{
		ID: p.ID, CardID: p.CardID, Card: p.Card,
		Amount: money(p.Amount), Date: p.Date.ISO(), Notes: p.Notes,
	})
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request, owner core.User) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.cards.DeletePayment(r.Context(), owner.ID, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- summary and dashboard ----

func yearMonth(r *http.Request) (int, int) {
	now := time.Now()
	return queryInt(r, "year", now.Year()), queryInt(r, "month", int(now.Month()))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, owner core.User) {
	year, month := yearMonth(r)
	summary, err := s.summaries.Monthly(r.Context(), owner.ID, year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryToJSON(summary))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, owner core.User) {
	year, month := yearMonth(r)
	dash, err := s.summaries.Dashboard(r.Context(), owner.ID, year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}

	evolution := make([]flowJSON, len(dash.Evolution))
	for i, f := range dash.Evolution {
		evolution[i] = flowJSON{
			Year: f.Year, Month: f.Month,
			Income: money(f.Income), Expense: money(f.Expense),
		}
	}
	writeJSON(w, http.StatusOK, dashboardJSON{
		Summary:   summaryToJSON(dash.Summary),
		Recent:    transactions(dash.Recent),
		Evolution: evolution,
	})
}

// ---- import and export ----

func (s *Server) handleImportTransactions(w http.ResponseWriter, r *http.Request, owner core.User) {
	name, file, err := importFile(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer file.Close()

	report, err := s.imports.ImportTransactions(r.Context(), owner.ID, name, file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reportToJSON(report))
}

func (s *Server) handleImportCategories(w http.ResponseWriter, r *http.Request, owner core.User) {
	name, file, err := importFile(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer file.Close()

	report, err := s.imports.ImportCategories(r.Context(), owner.ID, name, file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reportToJSON(report))
}

func (s *Server) handleImportSheet(w http.ResponseWriter, r *http.Request, owner core.User) {
	var req struct {
		Sheet string `json:"sheet"`
	}
	// An empty body means the default sheet.
	if r.Body != nil && r.ContentLength != 0 {
		if err := decodeBody(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}

	report, err := s.imports.ImportFromSheet(r.Context(), owner.ID, req.Sheet)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reportToJSON(report))
}

func (s *Server) handleExportTransactions(w http.ResponseWriter, r *http.Request, owner core.User) {
	filter := storage.TransactionFilter{
		Year:       queryInt(r, "year", 0),
		Month:      queryInt(r, "month", 0),
		CategoryID: queryInt64(r, "category_id"),
		CardID:     queryInt64(r, "card_id"),
		Search:     r.URL.Query().Get("q"),
	}
	txs, err := s.transactions.List(r.Context(), owner.ID, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
	if err := export.WriteTransactionsCSV(w, txs); err != nil {
		slog.ErrorContext(r.Context(), "Failed to write export", "error", err)
	}
}

func importFile(r *http.Request) (string, multipart.File, error) {
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		return "", nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, fmt.Errorf("%w: missing file field", errBadRequest)
	}
	return header.Filename, file, nil
}
