package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"contabile/internal/cache"
	"contabile/internal/services"
	"contabile/internal/sheets/memory"
	"contabile/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, _ := newTestServerWithImports(t)
	return s
}

func newTestServerWithImports(t *testing.T) (*Server, *services.ImportService) {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "http_test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	manager := cache.NewManager()
	summaries := services.NewSummaryService(store, manager)
	txService := services.NewTransactionService(store, nil)
	txService.OnChange(summaries.InvalidateOwner)
	cards := services.NewCardService(store)
	cards.OnChange(summaries.InvalidateOwner)
	imports := services.NewImportService(store, nil)
	imports.OnChange(summaries.InvalidateOwner)

	return NewServer(":0", store, txService, services.NewCategoryService(store), cards, summaries, imports), imports
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-Account", "tester")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func TestMissingAccountHeader(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		s.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestCategoryLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/categories", map[string]string{"name": "Food", "kind": "expense"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	created := decode[categoryJSON](t, rec)
	if created.Kind != "EXPENSE" {
		t.Fatalf("expected normalized kind, got %q", created.Kind)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/categories", map[string]string{"name": "food", "kind": "despesa"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate: expected 409, got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/categories", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	if cats := decode[[]categoryJSON](t, rec); len(cats) != 1 {
		t.Fatalf("expected 1 category, got %d", len(cats))
	}

	rec = doJSON(t, s, http.MethodDelete, fmt.Sprintf("/api/categories/%d", created.ID), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/api/categories", map[string]string{"name": "Food", "kind": "expense"})

	rec := doJSON(t, s, http.MethodPost, "/api/transactions", transactionRequest{
		Kind: "despesa", Amount: "R$ 89,90", Date: "10/03/2025",
		Category: "Food", Description: "Lunch",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	tx := decode[transactionJSON](t, rec)
	if tx.Amount.Cents != 8990 || tx.Amount.Decimal != "89.90" || tx.Date != "2025-03-10" {
		t.Fatalf("unexpected transaction: %+v", tx)
	}

	rec = doJSON(t, s, http.MethodGet, fmt.Sprintf("/api/transactions/%d", tx.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/transactions?year=2025&month=3", nil)
	if got := decode[[]transactionJSON](t, rec); len(got) != 1 {
		t.Fatalf("expected 1 transaction in March, got %d", len(got))
	}

	rec = doJSON(t, s, http.MethodDelete, fmt.Sprintf("/api/transactions/%d", tx.ID), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodGet, fmt.Sprintf("/api/transactions/%d", tx.ID), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", rec.Code)
	}
}

func TestTransactionValidationErrors(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/api/categories", map[string]string{"name": "Food", "kind": "expense"})

	tests := []struct {
		name string
		req  transactionRequest
		code string
	}{
		{"bad kind", transactionRequest{Kind: "gift", Amount: "10.00", Date: "2025-03-10", Category: "Food"}, "invalid_kind"},
		{"bad amount", transactionRequest{Kind: "expense", Amount: "-5", Date: "2025-03-10", Category: "Food"}, "invalid_amount"},
		{"bad date", transactionRequest{Kind: "expense", Amount: "10.00", Date: "03/2025", Category: "Food"}, "invalid_date"},
		{"unknown category", transactionRequest{Kind: "expense", Amount: "10.00", Date: "2025-03-10", Category: "Nope"}, "category_not_found"},
	}
	for _, tt := range tests {
		rec := doJSON(t, s, http.MethodPost, "/api/transactions", tt.req)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("%s: expected 422, got %d (%s)", tt.name, rec.Code, rec.Body.String())
			continue
		}
		resp := decode[errorResponse](t, rec)
		if resp.Code != tt.code {
			t.Errorf("%s: expected code %q, got %q", tt.name, tt.code, resp.Code)
		}
	}
}

func TestOwnersAreIsolated(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/api/categories", map[string]string{"name": "Food", "kind": "expense"})

	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	req.Header.Set("X-Account", "someone-else")
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if cats := decode[[]categoryJSON](t, rec); len(cats) != 0 {
		t.Fatalf("expected empty list for other account, got %d", len(cats))
	}
}

func TestImportAndExport(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/api/categories", map[string]string{"name": "Food", "kind": "expense"})

	csvData := "type,amount,date,category,description\n" +
		"expense,10.00,2025-03-10,Food,Groceries\n" +
		"expense,oops,2025-03-11,Food,Broken\n"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "movements.csv")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	fw.Write([]byte(csvData))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/import/transactions", &buf)
	req.Header.Set("X-Account", "tester")
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("import: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	report := decode[reportJSON](t, rec)
	if report.Created != 1 || len(report.Failed) != 1 || report.Failed[0].Row != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/export/transactions.csv?year=2025&month=3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export: expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "date,type,category,card,amount,description,notes,is_recurring") {
		t.Fatalf("unexpected export header: %q", body)
	}
	if !strings.Contains(body, "2025-03-10,expense,Food,,10.00,Groceries,,false") {
		t.Fatalf("expected imported row in export, got %q", body)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/api/categories", map[string]string{"name": "Food", "kind": "expense"})
	doJSON(t, s, http.MethodPost, "/api/categories", map[string]string{"name": "Salary", "kind": "income"})
	doJSON(t, s, http.MethodPost, "/api/transactions", transactionRequest{
		Kind: "income", Amount: "1000.00", Date: "2025-03-01", Category: "Salary",
	})
	doJSON(t, s, http.MethodPost, "/api/transactions", transactionRequest{
		Kind: "expense", Amount: "250.00", Date: "2025-03-10", Category: "Food",
	})

	rec := doJSON(t, s, http.MethodGet, "/api/summary?year=2025&month=3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	summary := decode[summaryJSON](t, rec)
	if summary.TotalIncome.Cents != 100000 || summary.TotalExpense.Cents != 25000 || summary.Balance.Cents != 75000 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(summary.ExpenseShares) != 1 || summary.ExpenseShares[0].Share != 1.0 {
		t.Fatalf("unexpected shares: %+v", summary.ExpenseShares)
	}
}

func TestSheetImport(t *testing.T) {
	s, imports := newTestServerWithImports(t)
	doJSON(t, s, http.MethodPost, "/api/categories", map[string]string{"name": "Food", "kind": "expense"})

	imports.SetSheetReader(memory.NewTable([][]string{
		{"type", "amount", "date", "category", "description"},
		{"expense", "42.00", "2025-04-02", "Food", "Market"},
		{"expense", "oops", "2025-04-03", "Food", "Broken"},
	}))

	rec := doJSON(t, s, http.MethodPost, "/api/import/sheet", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	report := decode[reportJSON](t, rec)
	if report.Created != 1 || len(report.Failed) != 1 || report.Failed[0].Row != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/transactions?year=2025&month=4", nil)
	if got := decode[[]transactionJSON](t, rec); len(got) != 1 || got[0].Description != "Market" {
		t.Fatalf("expected the sheet row to be stored, got %+v", got)
	}
}

func TestSheetImportUnconfigured(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/import/sheet", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestExportTransactionsFilters(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/categories", map[string]string{"name": "Food", "kind": "expense"})
	food := decode[categoryJSON](t, rec)
	doJSON(t, s, http.MethodPost, "/api/categories", map[string]string{"name": "Rent", "kind": "expense"})

	doJSON(t, s, http.MethodPost, "/api/transactions", transactionRequest{
		Kind: "expense", Amount: "10.00", Date: "2025-03-10", Category: "Food", Description: "Groceries",
	})
	doJSON(t, s, http.MethodPost, "/api/transactions", transactionRequest{
		Kind: "expense", Amount: "800.00", Date: "2025-03-01", Category: "Rent", Description: "March rent",
	})

	rec = doJSON(t, s, http.MethodGet, fmt.Sprintf("/api/export/transactions.csv?category_id=%d", food.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export: expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Groceries") || strings.Contains(body, "March rent") {
		t.Fatalf("category filter not applied: %q", body)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/export/transactions.csv?q=rent", nil)
	body = rec.Body.String()
	if !strings.Contains(body, "March rent") || strings.Contains(body, "Groceries") {
		t.Fatalf("search filter not applied: %q", body)
	}
}
