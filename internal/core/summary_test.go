package core

import (
	"math"
	"testing"
)

func TestBuildMonthlySummaryTotals(t *testing.T) {
	txs := []Transaction{
		{Kind: Income, Amount: Money{Cents: 520000}, Date: NewDate(2024, 3, 5), Category: "Salary"},
		{Kind: Expense, Amount: Money{Cents: 20000}, Date: NewDate(2024, 3, 7), Category: "Food"},
		{Kind: Expense, Amount: Money{Cents: 10000}, Date: NewDate(2024, 3, 9), Category: "Transport"},
		// Outside the month: ignored.
		{Kind: Expense, Amount: Money{Cents: 99999}, Date: NewDate(2024, 2, 9), Category: "Food"},
	}

	s := BuildMonthlySummary(2024, 3, txs, nil, nil)
	if s.TotalIncome.Cents != 520000 || s.TotalExpense.Cents != 30000 {
		t.Fatalf("unexpected totals: %+v", s)
	}
	if s.Balance.Cents != 490000 {
		t.Fatalf("balance: got %d", s.Balance.Cents)
	}
	if len(s.ExpenseByCategory) != 2 || s.ExpenseByCategory[0].Name != "Food" {
		t.Fatalf("unexpected expense breakdown: %+v", s.ExpenseByCategory)
	}
}

func TestBuildMonthlySummaryCardNet(t *testing.T) {
	cardA := Card{ID: 1, Name: "A"}
	txs := []Transaction{
		{Kind: Expense, Amount: Money{Cents: 10000}, Date: NewDate(2024, 3, 1), Category: "Food", CardID: 1, Card: "A"},
		{Kind: Expense, Amount: Money{Cents: 5000}, Date: NewDate(2024, 3, 2), Category: "Food", CardID: 1, Card: "A"},
	}
	payments := []CardPayment{
		{CardID: 1, Card: "A", Amount: Money{Cents: 3000}, Date: NewDate(2024, 3, 20)},
	}

	s := BuildMonthlySummary(2024, 3, txs, []Card{cardA}, payments)
	if len(s.Cards) != 1 {
		t.Fatalf("expected one card summary, got %d", len(s.Cards))
	}
	c := s.Cards[0]
	if c.Charges.Cents != 15000 || c.Payments.Cents != 3000 || c.Net.Cents != 12000 {
		t.Fatalf("unexpected card summary: %+v", c)
	}
	// Card charges are expenses; payments are not.
	if s.TotalExpense.Cents != 15000 {
		t.Fatalf("expected card charges in total expense, got %d", s.TotalExpense.Cents)
	}
}

func TestExpenseSharesSumToOne(t *testing.T) {
	txs := []Transaction{
		{Kind: Expense, Amount: Money{Cents: 7001}, Date: NewDate(2024, 5, 1), Category: "A"},
		{Kind: Expense, Amount: Money{Cents: 1999}, Date: NewDate(2024, 5, 2), Category: "B"},
		{Kind: Expense, Amount: Money{Cents: 1000}, Date: NewDate(2024, 5, 3), Category: "C"},
	}
	s := BuildMonthlySummary(2024, 5, txs, nil, nil)

	var sum float64
	for _, cs := range s.ExpenseShares {
		if cs.Share < 0 || cs.Share > 1 {
			t.Fatalf("share out of range: %+v", cs)
		}
		sum += cs.Share
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Fatalf("shares sum to %f", sum)
	}
}

func TestExpenseSharesEmptyMonth(t *testing.T) {
	s := BuildMonthlySummary(2024, 5, nil, nil, nil)
	if len(s.ExpenseShares) != 0 || s.TotalExpense.Cents != 0 {
		t.Fatalf("expected empty summary, got %+v", s)
	}
}

func TestSortedTotalsOrdering(t *testing.T) {
	txs := []Transaction{
		{Kind: Expense, Amount: Money{Cents: 100}, Date: NewDate(2024, 1, 1), Category: "Zeta"},
		{Kind: Expense, Amount: Money{Cents: 100}, Date: NewDate(2024, 1, 1), Category: "Alpha"},
		{Kind: Expense, Amount: Money{Cents: 300}, Date: NewDate(2024, 1, 1), Category: "Mid"},
	}
	s := BuildMonthlySummary(2024, 1, txs, nil, nil)
	got := []string{s.ExpenseByCategory[0].Name, s.ExpenseByCategory[1].Name, s.ExpenseByCategory[2].Name}
	want := []string{"Mid", "Alpha", "Zeta"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ordering: got %v, want %v", got, want)
		}
	}
}

func TestLastMonths(t *testing.T) {
	months := LastMonths(2024, 2, 4)
	want := []YearMonth{{2023, 11}, {2023, 12}, {2024, 1}, {2024, 2}}
	if len(months) != len(want) {
		t.Fatalf("got %v", months)
	}
	for i := range want {
		if months[i] != want[i] {
			t.Fatalf("got %v, want %v", months, want)
		}
	}
}

func TestClampDay(t *testing.T) {
	cases := []struct {
		year, month, day, want int
	}{
		{2024, 2, 31, 29},
		{2023, 2, 31, 28},
		{2024, 4, 31, 30},
		{2024, 1, 15, 15},
	}
	for _, tc := range cases {
		if got := ClampDay(tc.year, tc.month, tc.day); got != tc.want {
			t.Fatalf("ClampDay(%d,%d,%d) = %d, want %d", tc.year, tc.month, tc.day, got, tc.want)
		}
	}
}
