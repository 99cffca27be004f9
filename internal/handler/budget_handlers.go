package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/boddenberg/budget-sync-go/internal/budget"
	"github.com/boddenberg/budget-sync-go/internal/domain"
	"github.com/boddenberg/budget-sync-go/internal/syncengine"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Budget document & month views
// ============================================================

func getBudgetHandler(sessions *syncengine.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/budget")
		defer span.End()

		userID := UserIDFromContext(ctx)
		span.SetAttributes(attribute.String("user.id", userID))

		s := sessions.Acquire(ctx, userID)
		writeJSON(w, http.StatusOK, map[string]any{
			"document": s.Store.Snapshot(),
			"sync":     s.Orch.Status(),
		})
	}
}

func getMonthHandler(sessions *syncengine.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/budget/months/{month}")
		defer span.End()

		month := chi.URLParam(r, "month")
		span.SetAttributes(attribute.String("budget.month", month))

		s := sessions.Acquire(ctx, UserIDFromContext(ctx))
		doc := s.Store.Snapshot()

		incomes := domain.IncomesForMonth(doc, month)
		expenses := domain.ExpensesForMonth(doc, month)
		dynamic := domain.DynamicExpensesForMonth(doc, month)

		writeJSON(w, http.StatusOK, map[string]any{
			"month":              month,
			"incomes":            incomes,
			"expenses":           expenses,
			"dynamicExpenses":    dynamic,
			"disabledCategories": domain.DisabledCategories(doc, month),
			"totals": map[string]float64{
				"incomes":         domain.TotalEntries(incomes),
				"expenses":        domain.TotalEntries(expenses),
				"dynamicExpenses": domain.TotalDynamicExpenses(dynamic),
				"budgeted":        domain.TotalBudgeted(doc, month),
			},
		})
	}
}

// ============================================================
// Incomes & expenses (per month)
// ============================================================

func addEntryHandler(sessions *syncengine.Manager, list budget.ListName, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/budget/months/{month}/"+string(list))
		defer span.End()

		month := chi.URLParam(r, "month")

		var e domain.Entry
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		s := sessions.Acquire(ctx, UserIDFromContext(ctx))
		if err := s.Store.AddEntry(list, month, e); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, s.Store.Snapshot())
	}
}

func editEntryHandler(sessions *syncengine.Manager, list budget.ListName, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/budget/months/{month}/"+string(list)+"/{id}")
		defer span.End()

		month := chi.URLParam(r, "month")
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid entry id")
			return
		}

		var e domain.Entry
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		e.ID = id

		s := sessions.Acquire(ctx, UserIDFromContext(ctx))
		if err := s.Store.EditEntry(list, month, e); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, s.Store.Snapshot())
	}
}

func deleteEntryHandler(sessions *syncengine.Manager, list budget.ListName, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/budget/months/{month}/"+string(list)+"/{id}")
		defer span.End()

		month := chi.URLParam(r, "month")
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid entry id")
			return
		}

		s := sessions.Acquire(ctx, UserIDFromContext(ctx))
		s.Store.DeleteEntry(list, month, id)
		writeJSON(w, http.StatusOK, s.Store.Snapshot())
	}
}

func reorderEntriesHandler(sessions *syncengine.Manager, list budget.ListName, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/budget/months/{month}/"+string(list)+"/order")
		defer span.End()

		month := chi.URLParam(r, "month")

		var entries []domain.Entry
		if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		s := sessions.Acquire(ctx, UserIDFromContext(ctx))
		s.Store.Reorder(list, month, entries)
		writeJSON(w, http.StatusOK, s.Store.Snapshot())
	}
}

// ============================================================
// Subscriptions
// ============================================================

func addSubscriptionHandler(sessions *syncengine.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/budget/subscriptions")
		defer span.End()

		var sub domain.Subscription
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		s := sessions.Acquire(ctx, UserIDFromContext(ctx))
		if err := s.Store.AddSubscription(sub); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, s.Store.Snapshot())
	}
}

func deleteSubscriptionHandler(sessions *syncengine.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/budget/subscriptions/{id}")
		defer span.End()

		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid subscription id")
			return
		}

		s := sessions.Acquire(ctx, UserIDFromContext(ctx))
		s.Store.DeleteSubscription(id)
		writeJSON(w, http.StatusOK, s.Store.Snapshot())
	}
}

// ============================================================
// Categories
// ============================================================

func addCategoryHandler(sessions *syncengine.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/budget/categories")
		defer span.End()

		var c domain.BudgetCategory
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		s := sessions.Acquire(ctx, UserIDFromContext(ctx))
		if err := s.Store.AddCategory(c); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, s.Store.Snapshot())
	}
}

func editCategoryHandler(sessions *syncengine.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/budget/categories/{id}")
		defer span.End()

		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid category id")
			return
		}

		var c domain.BudgetCategory
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		c.ID = id

		s := sessions.Acquire(ctx, UserIDFromContext(ctx))
		if err := s.Store.EditCategory(c); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, s.Store.Snapshot())
	}
}

func deleteCategoryHandler(sessions *syncengine.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/budget/categories/{id}")
		defer span.End()

		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid category id")
			return
		}

		s := sessions.Acquire(ctx, UserIDFromContext(ctx))
		s.Store.DeleteCategory(id)
		writeJSON(w, http.StatusOK, s.Store.Snapshot())
	}
}

func toggleCategoryHandler(sessions *syncengine.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/budget/categories/{id}/toggle/{month}")
		defer span.End()

		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid category id")
			return
		}
		month := chi.URLParam(r, "month")

		s := sessions.Acquire(ctx, UserIDFromContext(ctx))
		if err := s.Store.ToggleCategoryForMonth(id, month); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		doc := s.Store.Snapshot()
		writeJSON(w, http.StatusOK, map[string]any{
			"month":              month,
			"disabledCategories": domain.DisabledCategories(doc, month),
			"totalBudgeted":      domain.TotalBudgeted(doc, month),
		})
	}
}

// ============================================================
// Dynamic expenses
// ============================================================

func addDynamicExpenseHandler(sessions *syncengine.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/budget/dynamic-expenses")
		defer span.End()

		var e domain.DynamicExpense
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		s := sessions.Acquire(ctx, UserIDFromContext(ctx))
		if err := s.Store.AddDynamicExpense(e); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, s.Store.Snapshot())
	}
}

func editDynamicExpenseHandler(sessions *syncengine.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/budget/dynamic-expenses/{id}")
		defer span.End()

		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid dynamic expense id")
			return
		}

		var e domain.DynamicExpense
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		e.ID = id

		s := sessions.Acquire(ctx, UserIDFromContext(ctx))
		if err := s.Store.EditDynamicExpense(e); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, s.Store.Snapshot())
	}
}

func deleteDynamicExpenseHandler(sessions *syncengine.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/budget/dynamic-expenses/{id}")
		defer span.End()

		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid dynamic expense id")
			return
		}

		s := sessions.Acquire(ctx, UserIDFromContext(ctx))
		s.Store.DeleteDynamicExpense(id)
		writeJSON(w, http.StatusOK, s.Store.Snapshot())
	}
}

// ============================================================
// Session
// ============================================================

func signoutHandler(sessions *syncengine.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/session/signout")
		defer span.End()

		userID := UserIDFromContext(ctx)
		span.SetAttributes(attribute.String("user.id", userID))

		sessions.Release(userID)
		logger.Info("session signed out", zap.String("user_id", userID))
		writeJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
	}
}
