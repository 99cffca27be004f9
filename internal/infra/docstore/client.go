// Package docstore provides the remote Document Store Adapter: one JSON
// document per user, addressed by user id, with full-replacement writes
// and a live WebSocket subscription channel. It isolates the sync engine
// from the concrete document database behind the HTTP API.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/boddenberg/budget-sync-go/internal/domain"
	"github.com/boddenberg/budget-sync-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("docstore")

// Client talks to the remote document store HTTP API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cb         *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
	cfg        resilience.Config
	logger     *zap.Logger
}

// NewClient creates a document store client. Concurrent remote calls are
// capped by a bulkhead sized from cfg.MaxConcurrency.
func NewClient(httpClient *http.Client, baseURL, apiKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		cb:         cb,
		bulkhead:   resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:        cfg,
		logger:     logger,
	}
}

func (c *Client) docPath(userID string) string {
	return fmt.Sprintf("%s/v1/documents/budgets/%s", c.baseURL, url.PathEscape(userID))
}

// remoteErr wraps a failed remote call. An open (or half-open saturated)
// breaker is its own error type so the handler layer can answer 503
// instead of 502.
func remoteErr(service string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: service}
	}
	return &domain.ErrExternalService{Service: service, Err: err}
}

// ReadOnce fetches the user's document. Returns (nil, nil) when the
// document does not exist.
func (c *Client) ReadOnce(ctx context.Context, userID string) (*domain.BudgetDocument, error) {
	ctx, span := tracer.Start(ctx, "DocStore.ReadOnce")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, &domain.ErrExternalService{Service: "docstore/read", Err: err}
	}
	defer c.bulkhead.Release()

	var doc *domain.BudgetDocument

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.docPath(userID), nil)
			if err != nil {
				return err
			}
			c.setHeaders(req)

			resp, err := c.httpClient.Do(req)
			if err != nil {
				c.logger.Error("docstore: read request failed",
					zap.String("user_id", userID),
					zap.Error(err),
				)
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNotFound {
				doc = nil
				return nil
			}

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				c.logger.Warn("docstore: read non-2xx",
					zap.String("user_id", userID),
					zap.Int("status", resp.StatusCode),
					zap.String("body", string(body)),
				)
				return fmt.Errorf("docstore read returned %d: %s", resp.StatusCode, string(body))
			}

			var decoded domain.BudgetDocument
			if err := json.Unmarshal(body, &decoded); err != nil {
				return fmt.Errorf("failed to decode document: %w", err)
			}
			decoded.Normalize()
			doc = &decoded
			return nil
		})
	})

	if err != nil {
		return nil, remoteErr("docstore/read", err)
	}
	return doc, nil
}

// WriteReplace stores the document wholesale — last writer fully
// overwrites. Null-valued optional fields are stripped before the write.
func (c *Client) WriteReplace(ctx context.Context, userID string, doc *domain.BudgetDocument) error {
	ctx, span := tracer.Start(ctx, "DocStore.WriteReplace")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	body, err := MarshalDocument(doc)
	if err != nil {
		return &domain.ErrExternalService{Service: "docstore/write", Err: err}
	}

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return &domain.ErrExternalService{Service: "docstore/write", Err: err}
	}
	defer c.bulkhead.Release()

	_, err = c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.docPath(userID), bytes.NewReader(body))
			if err != nil {
				return err
			}
			c.setHeaders(req)

			resp, err := c.httpClient.Do(req)
			if err != nil {
				c.logger.Error("docstore: write request failed",
					zap.String("user_id", userID),
					zap.Error(err),
				)
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				respBody, _ := io.ReadAll(resp.Body)
				c.logger.Warn("docstore: write non-2xx",
					zap.String("user_id", userID),
					zap.Int("status", resp.StatusCode),
					zap.String("body", string(respBody)),
				)
				return fmt.Errorf("docstore write returned %d: %s", resp.StatusCode, string(respBody))
			}

			c.logger.Debug("docstore: write OK", zap.String("user_id", userID))
			return nil
		})
	})

	if err != nil {
		return remoteErr("docstore/write", err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}
	req.Header.Set("Content-Type", "application/json")
}
