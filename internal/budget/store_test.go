package budget

import (
	"errors"
	"testing"

	"github.com/boddenberg/budget-sync-go/internal/domain"
)

func TestAddEntry_AssignsNextID(t *testing.T) {
	s := NewStore()

	// Existing three incomes -> the next add gets id 3 on a fresh default
	// doc (two seeded incomes), then 4.
	if err := s.AddEntry(ListIncomes, "2025-01", domain.Entry{Title: "Bonus", Amount: 300, Date: "2025-01-20"}); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	if err := s.AddEntry(ListIncomes, "2025-01", domain.Entry{Title: "Refund", Amount: 50, Date: "2025-01-21"}); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}

	incomes := domain.IncomesForMonth(s.Snapshot(), "2025-01")
	if len(incomes) != 4 {
		t.Fatalf("expected 4 incomes, got %d", len(incomes))
	}
	if incomes[2].ID != 3 || incomes[3].ID != 4 {
		t.Errorf("expected ids 3 and 4, got %d and %d", incomes[2].ID, incomes[3].ID)
	}
}

func TestAddEntry_LazilyCreatesOverride(t *testing.T) {
	s := NewStore()

	if err := s.AddEntry(ListExpenses, "2025-02", domain.Entry{Title: "Concert", Amount: 80, Date: "2025-02-14"}); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}

	doc := s.Snapshot()

	// The edited month carries the copied base list plus the new entry.
	feb := domain.ExpensesForMonth(doc, "2025-02")
	if len(feb) != len(doc.Expenses)+1 {
		t.Fatalf("expected override of %d entries, got %d", len(doc.Expenses)+1, len(feb))
	}

	// Untouched months still follow the base list.
	mar := domain.ExpensesForMonth(doc, "2025-03")
	if len(mar) != len(doc.Expenses) {
		t.Errorf("expected other months to follow base expenses, got %d entries", len(mar))
	}

	// The base list itself is unchanged.
	if ov := doc.MonthlyOverrides["2025-02"]; ov.Expenses == nil {
		t.Error("expected an expenses override for the edited month")
	}
}

func TestAddEntry_ValidationError(t *testing.T) {
	s := NewStore()

	err := s.AddEntry(ListIncomes, "2025-01", domain.Entry{Title: "", Amount: 10})
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	err = s.AddEntry(ListIncomes, "2025-01", domain.Entry{Title: "x", Amount: -5})
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error for negative amount, got %v", err)
	}
}

func TestEditEntry_MissingIDIsNoOp(t *testing.T) {
	s := NewStore()
	before := domain.IncomesForMonth(s.Snapshot(), "2025-01")

	if err := s.EditEntry(ListIncomes, "2025-01", domain.Entry{ID: 999, Title: "Ghost", Amount: 1}); err != nil {
		t.Fatalf("EditEntry: %v", err)
	}

	after := domain.IncomesForMonth(s.Snapshot(), "2025-01")
	if len(after) != len(before) {
		t.Errorf("expected entry count unchanged, got %d", len(after))
	}
	for _, e := range after {
		if e.Title == "Ghost" {
			t.Error("no-op edit must not insert the entry")
		}
	}
}

func TestDeleteEntry_IsIdempotent(t *testing.T) {
	s := NewStore()

	s.DeleteEntry(ListIncomes, "2025-01", 1)
	s.DeleteEntry(ListIncomes, "2025-01", 1)

	incomes := domain.IncomesForMonth(s.Snapshot(), "2025-01")
	if len(incomes) != 1 {
		t.Fatalf("expected 1 income after delete, got %d", len(incomes))
	}

	// Ids are never reused: the next add continues from the old max.
	if err := s.AddEntry(ListIncomes, "2025-01", domain.Entry{Title: "New", Amount: 1, Date: "2025-01-02"}); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	incomes = domain.IncomesForMonth(s.Snapshot(), "2025-01")
	if got := incomes[len(incomes)-1].ID; got != 3 {
		t.Errorf("expected id 3 after deleting id 1, got %d", got)
	}
}

func TestReorder_ReplacesListWholesale(t *testing.T) {
	s := NewStore()
	doc := s.Snapshot()

	reversed := []domain.Entry{doc.Incomes[1], doc.Incomes[0]}
	s.Reorder(ListIncomes, "2025-01", reversed)

	got := domain.IncomesForMonth(s.Snapshot(), "2025-01")
	if got[0].ID != 2 || got[1].ID != 1 {
		t.Errorf("expected reversed order, got ids %d, %d", got[0].ID, got[1].ID)
	}

	// Mutating the caller's slice afterwards must not leak into the store.
	reversed[0].Title = "mutated"
	got = domain.IncomesForMonth(s.Snapshot(), "2025-01")
	if got[0].Title == "mutated" {
		t.Error("store aliases the caller's reorder slice")
	}
}

func TestDeleteSubscription_NoCascade(t *testing.T) {
	s := NewStore()
	subID := 1

	if err := s.AddEntry(ListExpenses, "2025-01", domain.Entry{Title: "Streaming", Amount: 15.99, Date: "2025-01-03", SubscriptionID: &subID}); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	s.DeleteSubscription(subID)

	doc := s.Snapshot()
	expenses := domain.ExpensesForMonth(doc, "2025-01")
	var found *domain.Entry
	for i := range expenses {
		if expenses[i].Title == "Streaming" {
			found = &expenses[i]
		}
	}
	if found == nil {
		t.Fatal("expected the streaming expense to survive")
	}
	if found.SubscriptionID == nil || *found.SubscriptionID != subID {
		t.Error("expected subscriptionId to be kept after subscription delete")
	}
	if got := domain.SubscriptionName(doc, subID); got != "" {
		t.Errorf("expected dangling reference to resolve to empty name, got %q", got)
	}
}

func TestDeleteCategory_CascadesToAllExpenses(t *testing.T) {
	s := NewStore()
	catID := 1

	// Reference category 1 from an override expense and a dynamicexpense
	// on top of the seeded base reference.
	if err := s.AddEntry(ListExpenses, "2025-04", domain.Entry{Title: "Farmers market", Amount: 30, Date: "2025-04-05", CategoryID: &catID}); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	if err := s.AddDynamicExpense(domain.DynamicExpense{Title: "Snacks", Amount: 10, Date: "2025-04-06", CategoryID: &catID}); err != nil {
		t.Fatalf("AddDynamicExpense: %v", err)
	}

	s.DeleteCategory(catID)
	doc := s.Snapshot()

	for _, c := range doc.Categories {
		if c.ID == catID {
			t.Fatal("expected category to be removed")
		}
	}
	for _, e := range doc.Expenses {
		if e.CategoryID != nil && *e.CategoryID == catID {
			t.Error("base expense still references deleted category")
		}
	}
	for month, ov := range doc.MonthlyOverrides {
		for _, e := range ov.Expenses {
			if e.CategoryID != nil && *e.CategoryID == catID {
				t.Errorf("override expense in %s still references deleted category", month)
			}
		}
	}
	for _, e := range doc.DynamicExpenses {
		if e.CategoryID != nil && *e.CategoryID == catID {
			t.Error("dynamic expense still references deleted category")
		}
	}
}

func TestToggleCategoryForMonth_RoundTrip(t *testing.T) {
	s := NewStore()

	if err := s.ToggleCategoryForMonth(2, "2025-01"); err != nil {
		t.Fatalf("ToggleCategoryForMonth: %v", err)
	}
	doc := s.Snapshot()
	if got := domain.DisabledCategories(doc, "2025-01"); len(got) != 1 || got[0] != 2 {
		t.Fatalf("expected [2], got %v", got)
	}
	if got := domain.DisabledCategories(doc, "2025-02"); len(got) != 0 {
		t.Errorf("expected other months untouched, got %v", got)
	}

	if err := s.ToggleCategoryForMonth(2, "2025-01"); err != nil {
		t.Fatalf("ToggleCategoryForMonth: %v", err)
	}
	doc = s.Snapshot()
	if got := domain.DisabledCategories(doc, "2025-01"); len(got) != 0 {
		t.Errorf("expected toggle round-trip to restore the set, got %v", got)
	}
}

func TestToggleCategoryForMonth_UnknownCategory(t *testing.T) {
	s := NewStore()

	var notified bool
	unsubscribe := s.Subscribe(func(*domain.BudgetDocument) { notified = true })
	defer unsubscribe()

	err := s.ToggleCategoryForMonth(99, "2025-01")
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound for unknown category, got %v", err)
	}
	if got := domain.DisabledCategories(s.Snapshot(), "2025-01"); len(got) != 0 {
		t.Errorf("expected disabled set untouched, got %v", got)
	}
	if notified {
		t.Error("expected no change notification for a rejected toggle")
	}
}

func TestSubscribe_NotifiesSynchronously(t *testing.T) {
	s := NewStore()

	var seen []*domain.BudgetDocument
	unsubscribe := s.Subscribe(func(doc *domain.BudgetDocument) {
		seen = append(seen, doc)
	})

	if err := s.AddCategory(domain.BudgetCategory{Name: "Travel", Budgeted: 300}); err != nil {
		t.Fatalf("AddCategory: %v", err)
	}
	if len(seen) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(seen))
	}

	// The snapshot is a copy: mutating it does not affect the store.
	seen[0].Categories = nil
	if len(s.Snapshot().Categories) == 0 {
		t.Error("subscriber snapshot aliases store state")
	}

	unsubscribe()
	unsubscribe() // idempotent
	s.DeleteCategory(1)
	if len(seen) != 1 {
		t.Errorf("expected no notification after unsubscribe, got %d", len(seen))
	}
}

func TestSetDocument_NormalizesAndCopies(t *testing.T) {
	s := NewStore()

	incoming := &domain.BudgetDocument{
		Incomes: []domain.Entry{{ID: 1, Title: "Salary", Amount: 2000}},
	}
	s.SetDocument(incoming)

	doc := s.Snapshot()
	if doc.MonthlyOverrides == nil || doc.DisabledCategoriesByMonth == nil {
		t.Error("expected maps to be initialized on apply")
	}
	if len(doc.Incomes) != 1 || doc.Incomes[0].Amount != 2000 {
		t.Errorf("expected applied incomes, got %+v", doc.Incomes)
	}

	// The caller's document is not aliased.
	incoming.Incomes[0].Amount = 0
	if s.Snapshot().Incomes[0].Amount != 2000 {
		t.Error("store aliases the applied document")
	}
}

func TestReset_RestoresDefaults(t *testing.T) {
	s := NewStore()
	s.DeleteCategory(1)
	s.DeleteCategory(2)

	s.Reset()

	doc := s.Snapshot()
	if len(doc.Categories) != 4 {
		t.Errorf("expected default categories after reset, got %d", len(doc.Categories))
	}
}
