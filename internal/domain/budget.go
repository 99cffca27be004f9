// Package domain holds the budget document model and the pure functions
// that derive per-month views from it. Nothing in here talks to the
// network or mutates shared state.
package domain

import (
	"fmt"
	"math"
	"time"
)

// Entry is a single income or expense line.
// IDs are unique within the owning list and assigned as max(id)+1.
type Entry struct {
	ID             int     `json:"id"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Amount         float64 `json:"amount"`
	Date           string  `json:"date"`
	SubscriptionID *int    `json:"subscriptionId,omitempty"`
	CategoryID     *int    `json:"categoryId,omitempty"`
}

// Subscription is a named recurring amount. Entries may reference one via
// SubscriptionID; deleting a subscription does not cascade, dangling
// references simply fail to resolve a display name.
type Subscription struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// BudgetCategory is a named budget allocation.
type BudgetCategory struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Budgeted float64 `json:"budgeted"`
}

// DynamicExpense is a date-stamped ad hoc expense outside the fixed lists.
type DynamicExpense struct {
	ID         int     `json:"id"`
	Title      string  `json:"title"`
	Amount     float64 `json:"amount"`
	Date       string  `json:"date"`
	CategoryID *int    `json:"categoryId,omitempty"`
}

// MonthlyOverride replaces the base incomes and/or expenses for one month.
// Each side is created lazily on the first edit within that month; a nil
// side means "fall back to the base list".
type MonthlyOverride struct {
	Incomes  []Entry `json:"incomes,omitempty"`
	Expenses []Entry `json:"expenses,omitempty"`
}

// BudgetDocument is the full persisted state for one user.
type BudgetDocument struct {
	Incomes                   []Entry                    `json:"incomes"`
	Expenses                  []Entry                    `json:"expenses"`
	Subscriptions             []Subscription             `json:"subscriptions"`
	Categories                []BudgetCategory           `json:"categories"`
	DynamicExpenses           []DynamicExpense           `json:"dynamicExpenses"`
	MonthlyOverrides          map[string]MonthlyOverride `json:"monthlyOverrides"`
	DisabledCategoriesByMonth map[string][]int           `json:"disabledCategoriesByMonth"`
}

// DefaultDocument returns the seed document used for brand-new users and
// after session teardown.
func DefaultDocument() *BudgetDocument {
	return &BudgetDocument{
		Incomes: []Entry{
			{ID: 1, Title: "Salary", Description: "Monthly salary", Amount: 4500, Date: "2025-01-01"},
			{ID: 2, Title: "Freelance", Description: "Side project", Amount: 800, Date: "2025-01-15"},
		},
		Expenses: []Entry{
			{ID: 1, Title: "Rent", Description: "Monthly rent", Amount: 1800, Date: "2025-01-01"},
			{ID: 2, Title: "Groceries", Description: "Weekly groceries", Amount: 150, Date: "2025-01-05", CategoryID: intPtr(1)},
		},
		Subscriptions: []Subscription{
			{ID: 1, Name: "Netflix", Amount: 15.99},
			{ID: 2, Name: "Spotify", Amount: 9.99},
			{ID: 3, Name: "Notion", Amount: 10},
		},
		Categories: []BudgetCategory{
			{ID: 1, Name: "Groceries", Budgeted: 500},
			{ID: 2, Name: "Entertainment", Budgeted: 200},
			{ID: 3, Name: "Transportation", Budgeted: 150},
			{ID: 4, Name: "Dining Out", Budgeted: 250},
		},
		DynamicExpenses: []DynamicExpense{
			{ID: 1, Title: "Weekly groceries", Amount: 85.5, Date: "2025-01-05", CategoryID: intPtr(1)},
			{ID: 2, Title: "Gas", Amount: 45.0, Date: "2025-01-08", CategoryID: intPtr(3)},
			{ID: 3, Title: "Coffee shop", Amount: 12.5, Date: "2025-01-10", CategoryID: intPtr(4)},
		},
		MonthlyOverrides:          map[string]MonthlyOverride{},
		DisabledCategoriesByMonth: map[string][]int{},
	}
}

func intPtr(v int) *int { return &v }

// Normalize repairs a document loaded from an older or partial snapshot:
// missing categories/dynamic expenses fall back to the defaults, missing
// maps become empty maps. The document is modified in place.
func (d *BudgetDocument) Normalize() {
	def := DefaultDocument()
	if d.Categories == nil {
		d.Categories = def.Categories
	}
	if d.DynamicExpenses == nil {
		d.DynamicExpenses = def.DynamicExpenses
	}
	if d.MonthlyOverrides == nil {
		d.MonthlyOverrides = map[string]MonthlyOverride{}
	}
	if d.DisabledCategoriesByMonth == nil {
		d.DisabledCategoriesByMonth = map[string][]int{}
	}
	if d.Incomes == nil {
		d.Incomes = []Entry{}
	}
	if d.Expenses == nil {
		d.Expenses = []Entry{}
	}
	if d.Subscriptions == nil {
		d.Subscriptions = []Subscription{}
	}
}

// Clone returns a deep copy of the document. Snapshots handed to
// subscribers and to the sync scheduler must not alias store-owned slices.
func (d *BudgetDocument) Clone() *BudgetDocument {
	c := &BudgetDocument{
		Incomes:                   cloneEntries(d.Incomes),
		Expenses:                  cloneEntries(d.Expenses),
		Subscriptions:             append([]Subscription(nil), d.Subscriptions...),
		Categories:                append([]BudgetCategory(nil), d.Categories...),
		DynamicExpenses:           cloneDynamicExpenses(d.DynamicExpenses),
		MonthlyOverrides:          make(map[string]MonthlyOverride, len(d.MonthlyOverrides)),
		DisabledCategoriesByMonth: make(map[string][]int, len(d.DisabledCategoriesByMonth)),
	}
	for month, ov := range d.MonthlyOverrides {
		c.MonthlyOverrides[month] = MonthlyOverride{
			Incomes:  cloneEntries(ov.Incomes),
			Expenses: cloneEntries(ov.Expenses),
		}
	}
	for month, ids := range d.DisabledCategoriesByMonth {
		c.DisabledCategoriesByMonth[month] = append([]int(nil), ids...)
	}
	return c
}

func cloneEntries(entries []Entry) []Entry {
	if entries == nil {
		return nil
	}
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = e
		if e.SubscriptionID != nil {
			v := *e.SubscriptionID
			out[i].SubscriptionID = &v
		}
		if e.CategoryID != nil {
			v := *e.CategoryID
			out[i].CategoryID = &v
		}
	}
	return out
}

func cloneDynamicExpenses(expenses []DynamicExpense) []DynamicExpense {
	if expenses == nil {
		return nil
	}
	out := make([]DynamicExpense, len(expenses))
	for i, e := range expenses {
		out[i] = e
		if e.CategoryID != nil {
			v := *e.CategoryID
			out[i].CategoryID = &v
		}
	}
	return out
}

// NextEntryID returns the next id for a list of entries: max(id)+1, or 1
// for an empty list. Holds after deletions — ids are never reused within
// a session.
func NextEntryID(entries []Entry) int {
	next := 1
	for _, e := range entries {
		if e.ID >= next {
			next = e.ID + 1
		}
	}
	return next
}

// NextSubscriptionID returns max(id)+1 for subscriptions.
func NextSubscriptionID(subs []Subscription) int {
	next := 1
	for _, s := range subs {
		if s.ID >= next {
			next = s.ID + 1
		}
	}
	return next
}

// NextCategoryID returns max(id)+1 for categories.
func NextCategoryID(cats []BudgetCategory) int {
	next := 1
	for _, c := range cats {
		if c.ID >= next {
			next = c.ID + 1
		}
	}
	return next
}

// NextDynamicExpenseID returns max(id)+1 for dynamic expenses.
func NextDynamicExpenseID(expenses []DynamicExpense) int {
	next := 1
	for _, e := range expenses {
		if e.ID >= next {
			next = e.ID + 1
		}
	}
	return next
}

// MonthKey formats a time as the YYYY-MM key used to partition monthly
// overrides and disabled-category sets.
func MonthKey(t time.Time) string {
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

// MonthKeyFromDate computes the month key from an entry date string
// (YYYY-MM-DD or RFC3339). Unparseable dates return an empty key so the
// entry never matches a month filter.
func MonthKeyFromDate(date string) string {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, date); err == nil {
			return MonthKey(t)
		}
	}
	return ""
}

// ValidAmount reports whether v is a finite, non-negative amount.
func ValidAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
