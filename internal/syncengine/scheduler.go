package syncengine

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/boddenberg/budget-sync-go/internal/domain"
	"github.com/boddenberg/budget-sync-go/internal/infra/observability"
	"github.com/boddenberg/budget-sync-go/internal/port"

	"go.uber.org/zap"
)

// Scheduler rate-limits remote writes with a trailing-edge debounce:
// each Schedule call replaces the pending payload and re-arms the timer,
// so only the latest document ever reaches the store and intermediate
// states are dropped. That loss is acceptable — the local store already
// reflects the final state.
type Scheduler struct {
	docs         port.DocumentStore
	interval     time.Duration
	writeTimeout time.Duration
	onError      func(error)
	onWritten    func(time.Time)
	logger       *zap.Logger
	metrics      *observability.Metrics

	mu          sync.Mutex
	gen         uint64
	closed      bool
	timer       *time.Timer
	pendingUser string
	pending     *domain.BudgetDocument
	lastWritten *domain.BudgetDocument
}

// NewScheduler creates a debounced scheduler writing to docs. onError, if
// non-nil, receives an *domain.ErrSyncWrite when a fired write fails; the
// scheduler never retries on its own — the next local change naturally
// re-triggers scheduling. onWritten, if non-nil, observes the completion
// time of each successful write.
func NewScheduler(docs port.DocumentStore, interval, writeTimeout time.Duration, onError func(error), onWritten func(time.Time), metrics *observability.Metrics, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		docs:         docs,
		interval:     interval,
		writeTimeout: writeTimeout,
		onError:      onError,
		onWritten:    onWritten,
		logger:       logger,
		metrics:      metrics,
	}
}

// Mark records doc as the last-known remote state without writing it.
// Called after the first remote snapshot is applied so the equality check
// has a baseline and a re-notified identical document never schedules.
func (s *Scheduler) Mark(doc *domain.BudgetDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastWritten = doc
}

// Schedule arms (or re-arms) the debounce timer for doc. Documents deep-
// equal to the last-known written state are skipped entirely, which
// breaks notify loops caused by no-op changes.
func (s *Scheduler) Schedule(userID string, doc *domain.BudgetDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		// A store notification can still be in flight when teardown runs;
		// arming a timer here would write under a dead session's user id.
		return
	}
	if s.lastWritten != nil && reflect.DeepEqual(doc, s.lastWritten) {
		s.metrics.IncrWriteSkipped()
		return
	}

	s.pendingUser = userID
	s.pending = doc
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(s.interval, func() { s.fire(gen) })
	s.metrics.IncrWriteScheduled()
}

// Cancel clears any pending write and closes the scheduler for good:
// later Schedule calls are refused. Must be called on teardown — a
// leaked timer firing after a user switch would overwrite the new
// user's document with the old user's data.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = nil
	s.pendingUser = ""
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.pending == nil {
		// Superseded by a newer Schedule or a Cancel.
		s.mu.Unlock()
		return
	}
	userID, doc := s.pendingUser, s.pending
	s.pending = nil
	s.timer = nil
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()

	start := time.Now()
	err := s.docs.WriteReplace(ctx, userID, doc)
	s.metrics.ObserveRemoteWrite(time.Since(start), err == nil)

	if err != nil {
		s.logger.Warn("debounced remote write failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		if s.onError != nil {
			s.onError(&domain.ErrSyncWrite{Err: err})
		}
		return
	}

	s.mu.Lock()
	s.lastWritten = doc
	s.mu.Unlock()

	if s.onWritten != nil {
		s.onWritten(time.Now())
	}
	s.logger.Debug("remote write ok",
		zap.String("user_id", userID),
		zap.Duration("took", time.Since(start)),
	)
}
