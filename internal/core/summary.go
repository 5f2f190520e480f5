package core

import "sort"

type (
	// CategoryTotal is an amount aggregated by category name.
	CategoryTotal struct {
		Name  string
		Total Money
	}

	// CategoryShare is a category total with its fraction of the month's
	// total expense (0 when there is no expense).
	CategoryShare struct {
		Name  string
		Total Money
		Share float64
	}

	// CardSummary is the monthly position of one credit card: charges
	// booked against it, payments made, and the resulting net.
	CardSummary struct {
		CardID   int64
		Name     string
		Charges  Money
		Payments Money
		Net      Money
	}

	// MonthlySummary aggregates one owner's month. Card charges are
	// ordinary expense transactions, so they are already part of
	// TotalExpense and the expense breakdown; card payments only affect
	// the per-card net.
	MonthlySummary struct {
		Year  int
		Month int

		TotalIncome  Money
		TotalExpense Money
		Balance      Money

		IncomeByCategory  []CategoryTotal
		ExpenseByCategory []CategoryTotal
		ExpenseShares     []CategoryShare
		Cards             []CardSummary
	}

	// MonthlyFlow is one point of the income/expense evolution series.
	MonthlyFlow struct {
		Year    int
		Month   int
		Income  Money
		Expense Money
	}

	YearMonth struct {
		Year  int
		Month int
	}
)

// BuildMonthlySummary computes the monthly aggregation from already
// fetched, owner-scoped records. Transactions outside the given month
// are ignored, so callers may pass broader result sets.
func BuildMonthlySummary(year, month int, txs []Transaction, cards []Card, payments []CardPayment) MonthlySummary {
	s := MonthlySummary{Year: year, Month: month}

	incomeByCat := map[string]int64{}
	expenseByCat := map[string]int64{}
	chargesByCard := map[int64]int64{}
	paymentsByCard := map[int64]int64{}

	for _, t := range txs {
		if t.Date.Year() != year || t.Date.Month() != month {
			continue
		}
		switch t.Kind {
		case Income:
			s.TotalIncome.Cents += t.Amount.Cents
			incomeByCat[t.Category] += t.Amount.Cents
		case Expense:
			s.TotalExpense.Cents += t.Amount.Cents
			expenseByCat[t.Category] += t.Amount.Cents
			if t.CardID != 0 {
				chargesByCard[t.CardID] += t.Amount.Cents
			}
		}
	}
	for _, p := range payments {
		if p.Date.Year() != year || p.Date.Month() != month {
			continue
		}
		paymentsByCard[p.CardID] += p.Amount.Cents
	}

	s.Balance.Cents = s.TotalIncome.Cents - s.TotalExpense.Cents
	s.IncomeByCategory = sortedTotals(incomeByCat)
	s.ExpenseByCategory = sortedTotals(expenseByCat)

	s.ExpenseShares = make([]CategoryShare, len(s.ExpenseByCategory))
	for i, ct := range s.ExpenseByCategory {
		share := 0.0
		if s.TotalExpense.Cents > 0 {
			share = float64(ct.Total.Cents) / float64(s.TotalExpense.Cents)
		}
		s.ExpenseShares[i] = CategoryShare{Name: ct.Name, Total: ct.Total, Share: share}
	}

	for _, c := range cards {
		charges := chargesByCard[c.ID]
		paid := paymentsByCard[c.ID]
		s.Cards = append(s.Cards, CardSummary{
			CardID:   c.ID,
			Name:     c.Name,
			Charges:  Money{Cents: charges},
			Payments: Money{Cents: paid},
			Net:      Money{Cents: charges - paid},
		})
	}
	sort.Slice(s.Cards, func(i, j int) bool {
		if s.Cards[i].Net.Cents != s.Cards[j].Net.Cents {
			return s.Cards[i].Net.Cents > s.Cards[j].Net.Cents
		}
		return s.Cards[i].Name < s.Cards[j].Name
	})

	return s
}

// sortedTotals orders breakdowns by descending total, ties by name, so
// output is deterministic.
func sortedTotals(byCat map[string]int64) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(byCat))
	for name, cents := range byCat {
		out = append(out, CategoryTotal{Name: name, Total: Money{Cents: cents}})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total.Cents != out[j].Total.Cents {
			return out[i].Total.Cents > out[j].Total.Cents
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// LastMonths lists the n months ending at (year, month), oldest first.
func LastMonths(year, month, n int) []YearMonth {
	months := make([]YearMonth, 0, n)
	for i := 0; i < n; i++ {
		months = append(months, YearMonth{Year: year, Month: month})
		month--
		if month == 0 {
			month = 12
			year--
		}
	}
	for i, j := 0, len(months)-1; i < j; i, j = i+1, j-1 {
		months[i], months[j] = months[j], months[i]
	}
	return months
}

// ClampDay limits a day of month to the last valid day of (year, month).
func ClampDay(year, month, day int) int {
	last := NewDate(year, month+1, 0).Day()
	if day > last {
		return last
	}
	return day
}
