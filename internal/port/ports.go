// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the sync engine
// from concrete document store implementations.
package port

import (
	"context"

	"github.com/boddenberg/budget-sync-go/internal/domain"
)

// Snapshot is one delivery from a document store subscription. A nil
// Document means the remote document does not exist (absent).
type Snapshot struct {
	Document *domain.BudgetDocument
}

// SnapshotFunc receives subscription deliveries.
type SnapshotFunc func(Snapshot)

// DocumentStore is the contract over a remote key-value document store,
// one document per user id. Writes are full replacements: last writer
// fully overwrites, no merge semantics.
type DocumentStore interface {
	// ReadOnce fetches the user's document. Returns (nil, nil) when no
	// document exists.
	ReadOnce(ctx context.Context, userID string) (*domain.BudgetDocument, error)

	// WriteReplace stores the document wholesale, replacing any previous
	// content.
	WriteReplace(ctx context.Context, userID string, doc *domain.BudgetDocument) error

	// Subscribe opens a live subscription. The current state (present or
	// absent) is delivered immediately, then again on every remote change.
	// The returned cancel func closes the channel; onErr, if non-nil, is
	// invoked once if the channel fails. A failed channel is not reopened.
	Subscribe(ctx context.Context, userID string, fn SnapshotFunc, onErr func(error)) (cancel func(), err error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
