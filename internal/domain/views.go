package domain

// Derived per-month views. These are pure reads over a document snapshot;
// the store never caches their results.

// IncomesForMonth resolves to the month's override when one exists for
// incomes, otherwise the base list.
func IncomesForMonth(d *BudgetDocument, month string) []Entry {
	if ov, ok := d.MonthlyOverrides[month]; ok && ov.Incomes != nil {
		return ov.Incomes
	}
	return d.Incomes
}

// ExpensesForMonth resolves to the month's override when one exists for
// expenses, otherwise the base list.
func ExpensesForMonth(d *BudgetDocument, month string) []Entry {
	if ov, ok := d.MonthlyOverrides[month]; ok && ov.Expenses != nil {
		return ov.Expenses
	}
	return d.Expenses
}

// DynamicExpensesForMonth filters dynamic expenses whose date falls in the
// given month.
func DynamicExpensesForMonth(d *BudgetDocument, month string) []DynamicExpense {
	out := []DynamicExpense{}
	for _, e := range d.DynamicExpenses {
		if MonthKeyFromDate(e.Date) == month {
			out = append(out, e)
		}
	}
	return out
}

// TotalEntries sums entry amounts.
func TotalEntries(entries []Entry) float64 {
	var sum float64
	for _, e := range entries {
		sum += e.Amount
	}
	return sum
}

// TotalDynamicExpenses sums dynamic expense amounts.
func TotalDynamicExpenses(expenses []DynamicExpense) float64 {
	var sum float64
	for _, e := range expenses {
		sum += e.Amount
	}
	return sum
}

// DisabledCategories returns the ids excluded from the month's budget
// totals. Never nil.
func DisabledCategories(d *BudgetDocument, month string) []int {
	if ids, ok := d.DisabledCategoriesByMonth[month]; ok {
		return ids
	}
	return []int{}
}

// TotalBudgeted sums category allocations, excluding categories disabled
// for the given month.
func TotalBudgeted(d *BudgetDocument, month string) float64 {
	disabled := map[int]bool{}
	for _, id := range DisabledCategories(d, month) {
		disabled[id] = true
	}
	var sum float64
	for _, c := range d.Categories {
		if !disabled[c.ID] {
			sum += c.Budgeted
		}
	}
	return sum
}

// SubscriptionName resolves a subscription id to its display name.
// Dangling references resolve to the empty string.
func SubscriptionName(d *BudgetDocument, id int) string {
	for _, s := range d.Subscriptions {
		if s.ID == id {
			return s.Name
		}
	}
	return ""
}
