package http

import (
	"contabile/internal/core"
	"contabile/internal/importer"
)

type categoryTotalJSON struct {
	Name  string    `json:"name"`
	Total moneyJSON `json:"total"`
}

type categoryShareJSON struct {
	Name  string    `json:"name"`
	Total moneyJSON `json:"total"`
	Share float64   `json:"share"`
}

type cardSummaryJSON struct {
	CardID   int64     `json:"card_id"`
	Name     string    `json:"name"`
	Charges  moneyJSON `json:"charges"`
	Payments moneyJSON `json:"payments"`
	Net      moneyJSON `json:"net"`
}

type summaryJSON struct {
	Year  int `json:"year"`
	Month int `json:"month"`

	TotalIncome  moneyJSON `json:"total_income"`
	TotalExpense moneyJSON `json:"total_expense"`
	Balance      moneyJSON `json:"balance"`

	IncomeByCategory  []categoryTotalJSON `json:"income_by_category"`
	ExpenseByCategory []categoryTotalJSON `json:"expense_by_category"`
	ExpenseShares     []categoryShareJSON `json:"expense_shares"`
	Cards             []cardSummaryJSON   `json:"cards"`
}

type flowJSON struct {
	Year    int       `json:"year"`
	Month   int       `json:"month"`
	Income  moneyJSON `json:"income"`
	Expense moneyJSON `json:"expense"`
}

type dashboardJSON struct {
	Summary   summaryJSON       `json:"summary"`
	Recent    []transactionJSON `json:"recent"`
	Evolution []flowJSON        `json:"evolution"`
}

func summaryToJSON(s core.MonthlySummary) summaryJSON {
	out := summaryJSON{
		Year:              s.Year,
		Month:             s.Month,
		TotalIncome:       money(s.TotalIncome),
		TotalExpense:      money(s.TotalExpense),
		Balance:           money(s.Balance),
		IncomeByCategory:  make([]categoryTotalJSON, len(s.IncomeByCategory)),
		ExpenseByCategory: make([]categoryTotalJSON, len(s.ExpenseByCategory)),
		ExpenseShares:     make([]categoryShareJSON, len(s.ExpenseShares)),
		Cards:             make([]cardSummaryJSON, len(s.Cards)),
	}
	for i, ct := range s.IncomeByCategory {
		out.IncomeByCategory[i] = categoryTotalJSON{Name: ct.Name, Total: money(ct.Total)}
	}
	for i, ct := range s.ExpenseByCategory {
		out.ExpenseByCategory[i] = categoryTotalJSON{Name: ct.Name, Total: money(ct.Total)}
	}
	for i, cs := range s.ExpenseShares {
		out.ExpenseShares[i] = categoryShareJSON{Name: cs.Name, Total: money(cs.Total), Share: cs.Share}
	}
	for i, c := range s.Cards {
		out.Cards[i] = cardSummaryJSON{
			CardID:   c.CardID,
			Name:     c.Name,
			Charges:  money(c.Charges),
			Payments: money(c.Payments),
			Net:      money(c.Net),
		}
	}
	return out
}

type rowErrorJSON struct {
	Row    int      `json:"row"`
	Raw    []string `json:"raw,omitempty"`
	Reason string   `json:"reason"`
}

type reportJSON struct {
	BatchID string         `json:"batch_id"`
	Rows    int            `json:"rows"`
	Created int            `json:"created"`
	Skipped int            `json:"skipped"`
	Failed  []rowErrorJSON `json:"failed"`
}

func reportToJSON(r importer.Report) reportJSON {
	out := reportJSON{
		BatchID: r.BatchID,
		Rows:    r.Rows,
		Created: r.Created,
		Skipped: r.Skipped,
		Failed:  make([]rowErrorJSON, len(r.Failed)),
	}
	for i, f := range r.Failed {
		out.Failed[i] = rowErrorJSON{Row: f.Row, Raw: f.Raw, Reason: f.Reason()}
	}
	return out
}
