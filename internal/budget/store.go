// Package budget provides the Local Budget Store: the authoritative
// in-memory budget document plus its mutation operations. The store is
// the single writer of document state — every change flows through one
// of the methods below, and subscribers are notified synchronously with
// a snapshot of the new document.
package budget

import (
	"strconv"
	"sync"

	"github.com/boddenberg/budget-sync-go/internal/domain"
)

// ListName selects one of the two ordered entry lists.
type ListName string

const (
	// ListIncomes addresses the incomes list.
	ListIncomes ListName = "incomes"
	// ListExpenses addresses the expenses list.
	ListExpenses ListName = "expenses"
)

// SubscriberFunc receives a deep copy of the document after each mutation.
// Delivery is synchronous: the mutating call does not return until every
// subscriber has run.
type SubscriberFunc func(*domain.BudgetDocument)

// Store holds the authoritative BudgetDocument for one session.
type Store struct {
	mu      sync.Mutex
	doc     *domain.BudgetDocument
	subs    map[int]SubscriberFunc
	nextSub int
}

// NewStore creates a store seeded with the default document.
func NewStore() *Store {
	return &Store{
		doc:  domain.DefaultDocument(),
		subs: map[int]SubscriberFunc{},
	}
}

// Subscribe registers fn for synchronous change notification and returns
// an unsubscribe func. The unsubscribe func is idempotent.
func (s *Store) Subscribe(fn SubscriberFunc) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Snapshot returns a deep copy of the current document.
func (s *Store) Snapshot() *domain.BudgetDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// SetDocument replaces the document wholesale, normalizing structural
// defaults first. Used when applying a remote snapshot.
func (s *Store) SetDocument(doc *domain.BudgetDocument) {
	copied := doc.Clone()
	copied.Normalize()
	s.mutate(func(d *domain.BudgetDocument) *domain.BudgetDocument {
		return copied
	})
}

// Reset restores the default document. Called on session teardown.
func (s *Store) Reset() {
	s.SetDocument(domain.DefaultDocument())
}

// mutate applies fn to the current document under the lock, then notifies
// all subscribers synchronously with a snapshot of the result. fn may
// return a replacement document or mutate and return its argument; a nil
// return aborts without notifying.
func (s *Store) mutate(fn func(*domain.BudgetDocument) *domain.BudgetDocument) {
	s.mu.Lock()
	next := fn(s.doc)
	if next == nil {
		s.mu.Unlock()
		return
	}
	s.doc = next
	snapshot := s.doc.Clone()
	subs := make([]SubscriberFunc, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snapshot)
	}
}

// validateEntry checks the fields shared by add and edit.
func validateEntry(e domain.Entry) error {
	if e.Title == "" {
		return &domain.ErrValidation{Field: "title", Message: "title is required"}
	}
	if !domain.ValidAmount(e.Amount) {
		return &domain.ErrValidation{Field: "amount", Message: "amount must be a finite non-negative number"}
	}
	return nil
}

// listForMonth resolves the effective list (override or base) for reads
// during a mutation.
func listForMonth(d *domain.BudgetDocument, list ListName, month string) []domain.Entry {
	ov := d.MonthlyOverrides[month]
	switch list {
	case ListIncomes:
		if ov.Incomes != nil {
			return ov.Incomes
		}
		return d.Incomes
	default:
		if ov.Expenses != nil {
			return ov.Expenses
		}
		return d.Expenses
	}
}

// setListForMonth writes the month's override side. Income and expense
// mutations always land in the override: the base lists only change via
// SetDocument. This is the "copy forward unless explicitly edited"
// semantics — untouched months keep following the base lists.
func setListForMonth(d *domain.BudgetDocument, list ListName, month string, entries []domain.Entry) {
	ov := d.MonthlyOverrides[month]
	if list == ListIncomes {
		ov.Incomes = entries
	} else {
		ov.Expenses = entries
	}
	d.MonthlyOverrides[month] = ov
}

// AddEntry appends to the month's income or expense list with a freshly
// assigned id, lazily creating the monthly override from the base list.
func (s *Store) AddEntry(list ListName, month string, e domain.Entry) error {
	if err := validateEntry(e); err != nil {
		return err
	}
	s.mutate(func(d *domain.BudgetDocument) *domain.BudgetDocument {
		current := listForMonth(d, list, month)
		e.ID = domain.NextEntryID(current)
		next := make([]domain.Entry, 0, len(current)+1)
		next = append(next, current...)
		next = append(next, e)
		setListForMonth(d, list, month, next)
		return d
	})
	return nil
}

// EditEntry replaces the entry matching e.ID in the month's list. A
// missing id is a no-op — tolerant of a concurrent delete.
func (s *Store) EditEntry(list ListName, month string, e domain.Entry) error {
	if err := validateEntry(e); err != nil {
		return err
	}
	s.mutate(func(d *domain.BudgetDocument) *domain.BudgetDocument {
		current := listForMonth(d, list, month)
		next := make([]domain.Entry, len(current))
		for i, existing := range current {
			if existing.ID == e.ID {
				next[i] = e
			} else {
				next[i] = existing
			}
		}
		setListForMonth(d, list, month, next)
		return d
	})
	return nil
}

// DeleteEntry removes the entry with the given id from the month's list.
// Idempotent.
func (s *Store) DeleteEntry(list ListName, month string, id int) {
	s.mutate(func(d *domain.BudgetDocument) *domain.BudgetDocument {
		current := listForMonth(d, list, month)
		next := make([]domain.Entry, 0, len(current))
		for _, existing := range current {
			if existing.ID != id {
				next = append(next, existing)
			}
		}
		setListForMonth(d, list, month, next)
		return d
	})
}

// Reorder replaces the month's list wholesale in the given order. The
// caller is responsible for supplying a permutation of existing entries.
func (s *Store) Reorder(list ListName, month string, entries []domain.Entry) {
	copied := append([]domain.Entry(nil), entries...)
	s.mutate(func(d *domain.BudgetDocument) *domain.BudgetDocument {
		setListForMonth(d, list, month, copied)
		return d
	})
}

// AddSubscription appends a subscription with a freshly assigned id.
func (s *Store) AddSubscription(sub domain.Subscription) error {
	if sub.Name == "" {
		return &domain.ErrValidation{Field: "name", Message: "name is required"}
	}
	if !domain.ValidAmount(sub.Amount) {
		return &domain.ErrValidation{Field: "amount", Message: "amount must be a finite non-negative number"}
	}
	s.mutate(func(d *domain.BudgetDocument) *domain.BudgetDocument {
		sub.ID = domain.NextSubscriptionID(d.Subscriptions)
		d.Subscriptions = append(d.Subscriptions, sub)
		return d
	})
	return nil
}

// DeleteSubscription removes a subscription. No cascade: entries keep
// their subscriptionId and simply fail to resolve a display name.
func (s *Store) DeleteSubscription(id int) {
	s.mutate(func(d *domain.BudgetDocument) *domain.BudgetDocument {
		next := make([]domain.Subscription, 0, len(d.Subscriptions))
		for _, sub := range d.Subscriptions {
			if sub.ID != id {
				next = append(next, sub)
			}
		}
		d.Subscriptions = next
		return d
	})
}

// AddCategory appends a category with a freshly assigned id.
func (s *Store) AddCategory(c domain.BudgetCategory) error {
	if c.Name == "" {
		return &domain.ErrValidation{Field: "name", Message: "name is required"}
	}
	if !domain.ValidAmount(c.Budgeted) {
		return &domain.ErrValidation{Field: "budgeted", Message: "budgeted must be a finite non-negative number"}
	}
	s.mutate(func(d *domain.BudgetDocument) *domain.BudgetDocument {
		c.ID = domain.NextCategoryID(d.Categories)
		d.Categories = append(d.Categories, c)
		return d
	})
	return nil
}

// EditCategory replaces the category matching c.ID. Missing id is a no-op.
func (s *Store) EditCategory(c domain.BudgetCategory) error {
	if !domain.ValidAmount(c.Budgeted) {
		return &domain.ErrValidation{Field: "budgeted", Message: "budgeted must be a finite non-negative number"}
	}
	s.mutate(func(d *domain.BudgetDocument) *domain.BudgetDocument {
		for i, existing := range d.Categories {
			if existing.ID == c.ID {
				d.Categories[i] = c
			}
		}
		return d
	})
	return nil
}

// DeleteCategory removes the category and nulls categoryId on every
// expense and dynamic expense referencing it — base lists and monthly
// overrides alike — in one atomic update. Idempotent.
func (s *Store) DeleteCategory(id int) {
	s.mutate(func(d *domain.BudgetDocument) *domain.BudgetDocument {
		next := make([]domain.BudgetCategory, 0, len(d.Categories))
		for _, c := range d.Categories {
			if c.ID != id {
				next = append(next, c)
			}
		}
		d.Categories = next

		d.Expenses = clearCategoryRefs(d.Expenses, id)
		for month, ov := range d.MonthlyOverrides {
			ov.Expenses = clearCategoryRefs(ov.Expenses, id)
			d.MonthlyOverrides[month] = ov
		}
		for i, e := range d.DynamicExpenses {
			if e.CategoryID != nil && *e.CategoryID == id {
				d.DynamicExpenses[i].CategoryID = nil
			}
		}
		return d
	})
}

func clearCategoryRefs(entries []domain.Entry, categoryID int) []domain.Entry {
	for i, e := range entries {
		if e.CategoryID != nil && *e.CategoryID == categoryID {
			entries[i].CategoryID = nil
		}
	}
	return entries
}

// ToggleCategoryForMonth flips membership of categoryID in the month's
// disabled set. Toggling twice restores the original set for that month
// and never touches other months. An unknown category id is rejected —
// the disabled set must only ever reference live categories.
func (s *Store) ToggleCategoryForMonth(categoryID int, month string) error {
	var notFound error
	s.mutate(func(d *domain.BudgetDocument) *domain.BudgetDocument {
		known := false
		for _, c := range d.Categories {
			if c.ID == categoryID {
				known = true
				break
			}
		}
		if !known {
			notFound = &domain.ErrNotFound{Resource: "category", ID: strconv.Itoa(categoryID)}
			return nil
		}

		current := d.DisabledCategoriesByMonth[month]
		next := make([]int, 0, len(current)+1)
		found := false
		for _, id := range current {
			if id == categoryID {
				found = true
				continue
			}
			next = append(next, id)
		}
		if !found {
			next = append(next, categoryID)
		}
		d.DisabledCategoriesByMonth[month] = next
		return d
	})
	return notFound
}

// AddDynamicExpense appends a dynamic expense with a freshly assigned id.
func (s *Store) AddDynamicExpense(e domain.DynamicExpense) error {
	if e.Title == "" {
		return &domain.ErrValidation{Field: "title", Message: "title is required"}
	}
	if !domain.ValidAmount(e.Amount) {
		return &domain.ErrValidation{Field: "amount", Message: "amount must be a finite non-negative number"}
	}
	s.mutate(func(d *domain.BudgetDocument) *domain.BudgetDocument {
		e.ID = domain.NextDynamicExpenseID(d.DynamicExpenses)
		d.DynamicExpenses = append(d.DynamicExpenses, e)
		return d
	})
	return nil
}

// EditDynamicExpense replaces the matching dynamic expense. Missing id is
// a no-op.
func (s *Store) EditDynamicExpense(e domain.DynamicExpense) error {
	if !domain.ValidAmount(e.Amount) {
		return &domain.ErrValidation{Field: "amount", Message: "amount must be a finite non-negative number"}
	}
	s.mutate(func(d *domain.BudgetDocument) *domain.BudgetDocument {
		for i, existing := range d.DynamicExpenses {
			if existing.ID == e.ID {
				d.DynamicExpenses[i] = e
			}
		}
		return d
	})
	return nil
}

// DeleteDynamicExpense removes the matching dynamic expense. Idempotent.
func (s *Store) DeleteDynamicExpense(id int) {
	s.mutate(func(d *domain.BudgetDocument) *domain.BudgetDocument {
		next := make([]domain.DynamicExpense, 0, len(d.DynamicExpenses))
		for _, e := range d.DynamicExpenses {
			if e.ID != id {
				next = append(next, e)
			}
		}
		d.DynamicExpenses = next
		return d
	})
}
