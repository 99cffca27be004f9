// Package localstore is a SQLite-backed document store used when no
// remote store is configured. It persists one JSON document per user
// and satisfies the same interface as the remote adapter, so the sync
// engine does not care which one it is wired to.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/boddenberg/budget-sync-go/internal/domain"
	"github.com/boddenberg/budget-sync-go/internal/port"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Store persists budget documents in a local SQLite database.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStore opens (or creates) the database at dbPath and runs migrations.
func NewStore(dbPath string, logger *zap.Logger) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// ReadOnce returns the user's document, or (nil, nil) when none is stored.
func (s *Store) ReadOnce(ctx context.Context, userID string) (*domain.BudgetDocument, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM budget_snapshots WHERE user_id = ?`, userID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "localstore/read", Err: err}
	}

	var doc domain.BudgetDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, &domain.ErrExternalService{Service: "localstore/read", Err: fmt.Errorf("decode document: %w", err)}
	}
	doc.Normalize()
	return &doc, nil
}

// WriteReplace stores the document wholesale, overwriting any previous
// version for the user.
func (s *Store) WriteReplace(ctx context.Context, userID string, doc *domain.BudgetDocument) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return &domain.ErrExternalService{Service: "localstore/write", Err: err}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO budget_snapshots (user_id, document, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   document = excluded.document,
		   updated_at = excluded.updated_at`,
		userID, string(raw), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return &domain.ErrExternalService{Service: "localstore/write", Err: err}
	}

	s.logger.Debug("localstore: write OK", zap.String("user_id", userID))
	return nil
}

// Subscribe delivers the current state once. SQLite has no change feed,
// so there are no further events; the channel stays open until cancelled.
func (s *Store) Subscribe(ctx context.Context, userID string, fn port.SnapshotFunc, onErr func(error)) (func(), error) {
	doc, err := s.ReadOnce(ctx, userID)
	if err != nil {
		return nil, &domain.ErrSubscription{Err: err}
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		default:
		}
		fn(port.Snapshot{Document: doc})
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}, nil
}
