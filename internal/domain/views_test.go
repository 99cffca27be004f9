package domain

import "testing"

func testDocument() *BudgetDocument {
	doc := &BudgetDocument{
		Incomes: []Entry{
			{ID: 1, Title: "Salary", Amount: 4500, Date: "2025-01-01"},
		},
		Expenses: []Entry{
			{ID: 1, Title: "Rent", Amount: 1800, Date: "2025-01-01"},
			{ID: 2, Title: "Groceries", Amount: 150, Date: "2025-01-05"},
		},
		Subscriptions: []Subscription{
			{ID: 1, Name: "Netflix", Amount: 15.99},
		},
		Categories: []BudgetCategory{
			{ID: 1, Name: "Groceries", Budgeted: 500},
			{ID: 2, Name: "Entertainment", Budgeted: 200},
		},
		DynamicExpenses: []DynamicExpense{
			{ID: 1, Title: "Gas", Amount: 45, Date: "2025-01-08"},
			{ID: 2, Title: "Coffee", Amount: 12.5, Date: "2025-02-10"},
		},
		MonthlyOverrides:          map[string]MonthlyOverride{},
		DisabledCategoriesByMonth: map[string][]int{},
	}
	return doc
}

func TestIncomesForMonth_FallsBackToBase(t *testing.T) {
	doc := testDocument()

	got := IncomesForMonth(doc, "2025-03")
	if len(got) != 1 || got[0].Title != "Salary" {
		t.Errorf("expected base incomes for month without override, got %+v", got)
	}
}

func TestIncomesForMonth_UsesOverride(t *testing.T) {
	doc := testDocument()
	doc.MonthlyOverrides["2025-03"] = MonthlyOverride{
		Incomes: []Entry{{ID: 1, Title: "Salary", Amount: 5000}},
	}

	got := IncomesForMonth(doc, "2025-03")
	if len(got) != 1 || got[0].Amount != 5000 {
		t.Errorf("expected override incomes, got %+v", got)
	}

	// Other months still resolve to base.
	if got := IncomesForMonth(doc, "2025-04"); got[0].Amount != 4500 {
		t.Errorf("expected base incomes for other months, got %+v", got)
	}
}

func TestExpensesForMonth_OverrideOnlyAffectsItsSide(t *testing.T) {
	doc := testDocument()
	doc.MonthlyOverrides["2025-03"] = MonthlyOverride{
		Incomes: []Entry{{ID: 1, Title: "Salary", Amount: 5000}},
	}

	// An incomes-only override must not shadow the base expenses.
	got := ExpensesForMonth(doc, "2025-03")
	if len(got) != 2 {
		t.Errorf("expected base expenses, got %+v", got)
	}
}

func TestDynamicExpensesForMonth(t *testing.T) {
	doc := testDocument()

	jan := DynamicExpensesForMonth(doc, "2025-01")
	if len(jan) != 1 || jan[0].Title != "Gas" {
		t.Errorf("expected one January dynamic expense, got %+v", jan)
	}

	if got := DynamicExpensesForMonth(doc, "2025-05"); len(got) != 0 {
		t.Errorf("expected no dynamic expenses for empty month, got %+v", got)
	}
}

func TestTotalBudgeted_ExcludesDisabled(t *testing.T) {
	doc := testDocument()

	if got := TotalBudgeted(doc, "2025-01"); got != 700 {
		t.Errorf("expected 700 with nothing disabled, got %v", got)
	}

	doc.DisabledCategoriesByMonth["2025-01"] = []int{2}
	if got := TotalBudgeted(doc, "2025-01"); got != 500 {
		t.Errorf("expected 500 with category 2 disabled, got %v", got)
	}

	// Disabling is per month.
	if got := TotalBudgeted(doc, "2025-02"); got != 700 {
		t.Errorf("expected 700 for other months, got %v", got)
	}
}

func TestDisabledCategories_NeverNil(t *testing.T) {
	doc := testDocument()
	if got := DisabledCategories(doc, "2025-09"); got == nil {
		t.Error("expected empty slice, got nil")
	}
}

func TestSubscriptionName(t *testing.T) {
	doc := testDocument()

	if got := SubscriptionName(doc, 1); got != "Netflix" {
		t.Errorf("expected Netflix, got %q", got)
	}
	if got := SubscriptionName(doc, 42); got != "" {
		t.Errorf("expected empty string for dangling reference, got %q", got)
	}
}
