package docstore_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/budget-sync-go/internal/domain"
	"github.com/boddenberg/budget-sync-go/internal/infra/docstore"
	"github.com/boddenberg/budget-sync-go/internal/infra/resilience"

	"go.uber.org/zap"
)

func newTestClient(baseURL string) *docstore.Client {
	cfg := resilience.Config{MaxRetries: 1, InitialBackoff: time.Millisecond, MaxConcurrency: 10}
	cb := resilience.NewCircuitBreaker("docstore-test")
	return docstore.NewClient(&http.Client{Timeout: 2 * time.Second}, baseURL, "test-key", cb, cfg, zap.NewNop())
}

func TestReadOnce_ReturnsDocument(t *testing.T) {
	doc := domain.DefaultDocument()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/v1/documents/budgets/user-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		json.NewEncoder(w).Encode(doc)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	got, err := c.ReadOnce(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ReadOnce: %v", err)
	}
	if got == nil || len(got.Incomes) != len(doc.Incomes) {
		t.Errorf("unexpected document: %+v", got)
	}
}

func TestReadOnce_AbsentDocumentIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	got, err := c.ReadOnce(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("expected nil error for 404, got %v", err)
	}
	if got != nil {
		t.Errorf("expected nil document for 404, got %+v", got)
	}
}

func TestReadOnce_ServerErrorWrapsExternalService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.ReadOnce(context.Background(), "user-1")

	var external *domain.ErrExternalService
	if !errors.As(err, &external) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
}

func TestReadOnce_OpenBreakerIsCircuitOpen(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	// Five failed executions trip the breaker (>=5 requests, 60% failure).
	for i := 0; i < 5; i++ {
		if _, err := c.ReadOnce(context.Background(), "user-1"); err == nil {
			t.Fatal("expected failure against a 500 server")
		}
	}

	_, err := c.ReadOnce(context.Background(), "user-1")
	var open *domain.ErrCircuitOpen
	if !errors.As(err, &open) {
		t.Fatalf("expected ErrCircuitOpen once the breaker tripped, got %v", err)
	}
	if open.Service != "docstore/read" {
		t.Errorf("unexpected service %q", open.Service)
	}
}

func TestWriteReplace_SendsSanitizedDocument(t *testing.T) {
	var body []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	catID := 1
	doc := domain.DefaultDocument()
	doc.Expenses = append(doc.Expenses, domain.Entry{ID: 3, Title: "Gym", Amount: 40, Date: "2025-01-03", CategoryID: &catID})

	c := newTestClient(server.URL)
	if err := c.WriteReplace(context.Background(), "user-1", doc); err != nil {
		t.Fatalf("WriteReplace: %v", err)
	}

	if strings.Contains(string(body), "null") {
		t.Errorf("expected sanitized body without nulls, got %s", body)
	}
	var back domain.BudgetDocument
	if err := json.Unmarshal(body, &back); err != nil {
		t.Fatalf("body does not decode: %v", err)
	}
	if len(back.Expenses) != 3 {
		t.Errorf("expected 3 expenses in written body, got %d", len(back.Expenses))
	}
}

func TestWriteReplace_RetriesTransientFailure(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	if err := c.WriteReplace(context.Background(), "user-1", domain.DefaultDocument()); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}
