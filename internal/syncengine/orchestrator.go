// Package syncengine reconciles the local budget store with the remote
// document store. The orchestrator owns a per-session state machine
// (Idle → Initializing → Subscribing → Syncing → TornDown), the debounced
// scheduler coalesces local edits into single remote writes, and the echo
// guard keeps remote-origin updates from being written straight back.
package syncengine

import (
	"context"
	"sync"
	"time"

	"github.com/boddenberg/budget-sync-go/internal/budget"
	"github.com/boddenberg/budget-sync-go/internal/domain"
	"github.com/boddenberg/budget-sync-go/internal/infra/observability"
	"github.com/boddenberg/budget-sync-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("syncengine")

// State is the orchestrator lifecycle state.
type State string

const (
	// StateIdle means the orchestrator has not started.
	StateIdle State = "idle"
	// StateInitializing means the remote read-or-create is in flight.
	StateInitializing State = "initializing"
	// StateSubscribing means the remote subscription is open but the
	// first snapshot has not been consumed yet.
	StateSubscribing State = "subscribing"
	// StateSyncing is steady state: the change watcher is attached.
	StateSyncing State = "syncing"
	// StateTornDown means the session ended; the orchestrator is dead.
	StateTornDown State = "torn_down"
)

// Config holds the tunable windows of the engine.
type Config struct {
	// DebounceInterval is the quiescence window before a remote write.
	DebounceInterval time.Duration
	// SuppressionWindow is the echo guard cool-down after applying a
	// remote snapshot. Expected useful range is 500ms–2s.
	SuppressionWindow time.Duration
	// WriteTimeout bounds a single remote write.
	WriteTimeout time.Duration
}

// Status is a point-in-time view of the sync lifecycle, surfaced to the
// UI boundary so it can render sync state and failures.
type Status struct {
	State        State      `json:"state"`
	LastError    string     `json:"lastError,omitempty"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
}

// Orchestrator wires initialization, the remote subscription, and the
// debounced writer together for one authenticated session.
type Orchestrator struct {
	userID  string
	store   *budget.Store
	docs    port.DocumentStore
	sched   *Scheduler
	guard   *EchoGuard
	cfg     Config
	logger  *zap.Logger
	metrics *observability.Metrics

	mu           sync.Mutex
	state        State
	loadedOnce   bool
	lastErr      error
	lastSyncedAt time.Time
	cancelRemote func()
	unwatchStore func()
}

// NewOrchestrator creates an orchestrator for one user session. Call
// Start to run the lifecycle and Teardown on session end.
func NewOrchestrator(userID string, store *budget.Store, docs port.DocumentStore, cfg Config, metrics *observability.Metrics, logger *zap.Logger) *Orchestrator {
	o := &Orchestrator{
		userID:  userID,
		store:   store,
		docs:    docs,
		guard:   NewEchoGuard(),
		cfg:     cfg,
		logger:  logger.With(zap.String("user_id", userID)),
		metrics: metrics,
		state:   StateIdle,
	}
	o.sched = NewScheduler(docs, cfg.DebounceInterval, cfg.WriteTimeout, o.recordWriteError, o.noteSynced, metrics, o.logger)
	return o
}

// Start runs initialization and opens the remote subscription. All
// failures are recoverable: they are recorded on the status and the
// session keeps operating on the local store.
func (o *Orchestrator) Start(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "Orchestrator.Start")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", o.userID))

	o.setState(StateInitializing)

	// Read-or-create: a brand-new user gets the default document written
	// remotely; an existing document is left untouched.
	initial, err := o.docs.ReadOnce(ctx, o.userID)
	if err != nil {
		o.recordError(&domain.ErrInitialization{Err: err}, "initialization")
	} else if initial == nil {
		if err := o.docs.WriteReplace(ctx, o.userID, domain.DefaultDocument()); err != nil {
			o.recordError(&domain.ErrInitialization{Err: err}, "initialization")
		} else {
			o.logger.Info("created remote document with defaults")
		}
	}

	o.setState(StateSubscribing)

	cancel, err := o.docs.Subscribe(ctx, o.userID, o.onSnapshot, o.onSubscriptionError)
	if err != nil {
		o.recordError(&domain.ErrSubscription{Err: err}, "subscription")
		// Degraded path: no first snapshot will ever arrive, so apply
		// whatever ReadOnce produced and go steady-state on local edits.
		o.applyFirstSnapshot(port.Snapshot{Document: initial})
		return
	}

	o.mu.Lock()
	if o.state == StateTornDown {
		// Torn down while subscribing; close the channel we just opened.
		o.mu.Unlock()
		cancel()
		return
	}
	o.cancelRemote = cancel
	o.mu.Unlock()
}

// onSnapshot consumes remote subscription deliveries. Only the first
// snapshot is applied; later ones are counted and ignored — last-loaded-
// wins per session, matching the hardened sync variant. The subscription
// stays open only so a racing first write from another client can still
// resolve late.
func (o *Orchestrator) onSnapshot(snap port.Snapshot) {
	o.mu.Lock()
	if o.state == StateTornDown {
		o.mu.Unlock()
		return
	}
	if o.loadedOnce {
		o.mu.Unlock()
		o.metrics.IncrSnapshotIgnored()
		return
	}
	o.mu.Unlock()

	o.applyFirstSnapshot(snap)
}

// applyFirstSnapshot applies the initial remote state to the local store
// under the echo guard, then attaches the change watcher. The watcher
// must not attach earlier: otherwise the default document could be echoed
// back and clobber a just-arrived remote snapshot.
func (o *Orchestrator) applyFirstSnapshot(snap port.Snapshot) {
	o.mu.Lock()
	if o.state == StateTornDown || o.loadedOnce {
		o.mu.Unlock()
		return
	}
	o.loadedOnce = true
	o.mu.Unlock()

	doc := snap.Document
	if doc == nil {
		doc = domain.DefaultDocument()
	}

	// Suppress before SetDocument: store notification is synchronous, so
	// the guard must already be active when subscribers run.
	o.guard.Suppress(o.cfg.SuppressionWindow)
	normalized := doc.Clone()
	normalized.Normalize()
	o.sched.Mark(normalized)
	o.store.SetDocument(doc)

	o.mu.Lock()
	o.lastSyncedAt = time.Now()
	if o.state != StateTornDown {
		o.unwatchStore = o.store.Subscribe(o.watchChange)
		o.state = StateSyncing
	}
	o.mu.Unlock()

	o.logger.Info("first remote snapshot applied",
		zap.Bool("was_absent", snap.Document == nil),
	)
}

// watchChange is the store change watcher: every local mutation lands
// here synchronously. Remote-origin echoes are dropped; real edits are
// handed to the debounced scheduler.
func (o *Orchestrator) watchChange(doc *domain.BudgetDocument) {
	if o.guard.Active() {
		o.metrics.IncrSuppressedEcho()
		return
	}
	o.sched.Schedule(o.userID, doc)
}

func (o *Orchestrator) onSubscriptionError(err error) {
	// Not reopened automatically; surfaced once on the status.
	o.recordError(&domain.ErrSubscription{Err: err}, "subscription")
}

func (o *Orchestrator) recordWriteError(err error) {
	o.recordError(err, "write")
}

func (o *Orchestrator) recordError(err error, kind string) {
	o.mu.Lock()
	o.lastErr = err
	o.mu.Unlock()
	o.metrics.IncrSyncError(kind)
	o.logger.Warn("recoverable sync error",
		zap.String("kind", kind),
		zap.Error(err),
	)
}

// noteSynced records a successful write time on the status.
func (o *Orchestrator) noteSynced(t time.Time) {
	o.mu.Lock()
	o.lastSyncedAt = t
	o.mu.Unlock()
}

// Teardown ends the session: cancels the remote subscription and the
// store watcher, drops any pending debounced write, and resets the store
// to defaults. Safe to call more than once. After teardown nothing may
// write under this user id — a leaked timer would corrupt the next
// user's document.
func (o *Orchestrator) Teardown() {
	o.mu.Lock()
	if o.state == StateTornDown {
		o.mu.Unlock()
		return
	}
	o.state = StateTornDown
	cancelRemote := o.cancelRemote
	unwatch := o.unwatchStore
	o.cancelRemote = nil
	o.unwatchStore = nil
	o.mu.Unlock()

	// Detach the watcher before resetting the store so the reset itself
	// can never be scheduled as a write.
	if unwatch != nil {
		unwatch()
	}
	o.sched.Cancel()
	if cancelRemote != nil {
		cancelRemote()
	}
	o.store.Reset()

	o.logger.Info("session torn down")
}

// Status returns the current lifecycle status.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := Status{State: o.state}
	if o.lastErr != nil {
		s.LastError = o.lastErr.Error()
	}
	if !o.lastSyncedAt.IsZero() {
		t := o.lastSyncedAt
		s.LastSyncedAt = &t
	}
	return s
}

// Guard exposes the echo guard, mainly for tests that need to reason
// about the suppression window.
func (o *Orchestrator) Guard() *EchoGuard { return o.guard }

// Scheduler exposes the debounced scheduler for the session layer.
func (o *Orchestrator) Scheduler() *Scheduler { return o.sched }

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	if o.state != StateTornDown {
		o.state = s
	}
	o.mu.Unlock()
}
