package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mariia-hub/hubsync/internal/db"
	"github.com/mariia-hub/hubsync/internal/events"
	"github.com/mariia-hub/hubsync/internal/models"
	"github.com/mariia-hub/hubsync/internal/resolve"
)

// RetryPolicy controls the exponential backoff applied to failed
// pushes. Delay for attempt n is BaseDelay << (n-1), capped at MaxDelay.
// After MaxAttempts the operation is dropped from the queue and
// reported as a permanent failure.
type RetryPolicy struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// DefaultRetryPolicy matches the shipped configuration defaults.
var DefaultRetryPolicy = RetryPolicy{
	BaseDelay:   time.Second,
	MaxDelay:    30 * time.Second,
	MaxAttempts: 5,
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Coordinator owns the pending-operation queue and the device's view
// of sync state. All mutations go through it so that subscribers see a
// consistent sequence of Status snapshots.
type Coordinator struct {
	store  *db.DB
	sink   OperationSink
	retry  RetryPolicy
	logger *slog.Logger

	mu        sync.Mutex
	online    bool
	flushing  bool
	lastError string
	subs      map[int]func(Status)
	nextSub   int

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewCoordinator starts offline; callers flip it online once the
// network layer reports connectivity.
func NewCoordinator(store *db.DB, sink OperationSink, retry RetryPolicy, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:  store,
		sink:   sink,
		retry:  retry,
		logger: logger,
		subs:   make(map[int]func(Status)),
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Status returns a snapshot of the coordinator and its queue.
func (c *Coordinator) Status() (Status, error) {
	c.mu.Lock()
	st := Status{Online: c.online, Flushing: c.flushing, LastError: c.lastError}
	c.mu.Unlock()

	pending, err := c.store.CountPendingOperations()
	if err != nil {
		return st, fmt.Errorf("counting pending operations: %w", err)
	}
	conflicts, err := c.store.CountConflicts()
	if err != nil {
		return st, fmt.Errorf("counting conflicts: %w", err)
	}
	last, err := c.store.LastSyncAt()
	if err != nil {
		return st, fmt.Errorf("reading last sync time: %w", err)
	}
	st.PendingCount = pending
	st.ConflictCount = conflicts
	st.LastSyncAt = last
	return st, nil
}

// Subscribe registers an observer. Observers are invoked in
// registration order, outside the coordinator lock, after every state
// change. The returned token is passed to Unsubscribe.
func (c *Coordinator) Subscribe(fn func(Status)) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	token := c.nextSub
	c.nextSub++
	c.subs[token] = fn
	return token
}

// Unsubscribe removes an observer. Unknown tokens are ignored.
func (c *Coordinator) Unsubscribe(token int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subs, token)
}

func (c *Coordinator) notify() {
	st, err := c.Status()
	if err != nil {
		c.logger.Warn("status snapshot failed", "err", err)
		return
	}
	c.mu.Lock()
	tokens := make([]int, 0, len(c.subs))
	for token := range c.subs {
		tokens = append(tokens, token)
	}
	sort.Ints(tokens)
	fns := make([]func(Status), 0, len(tokens))
	for _, token := range tokens {
		fns = append(fns, c.subs[token])
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}

// Online reports the current connectivity flag.
func (c *Coordinator) Online() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

// SetOnline records a connectivity change. Coming online flushes the
// queue; going offline leaves queued operations in place.
func (c *Coordinator) SetOnline(ctx context.Context, online bool) error {
	c.mu.Lock()
	changed := c.online != online
	c.online = online
	c.mu.Unlock()
	if !changed {
		return nil
	}
	c.logger.Info("connectivity changed", "online", online)
	c.notify()
	if online {
		if _, err := c.Flush(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Enqueue records a local change for later delivery. A second change
// to the same entity coalesces into the existing queue slot, keeping
// its position. Enqueue never touches the network: delivery happens
// through Flush, driven by SetOnline transitions and the Run loop.
func (c *Coordinator) Enqueue(ctx context.Context, entityType, entityID string, payload json.RawMessage) error {
	if entityID == "" {
		return fmt.Errorf("enqueue: entity id is required")
	}
	canonical, ok := events.NormalizeEntityType(entityType)
	if !ok {
		return fmt.Errorf("enqueue: unknown entity type %q", entityType)
	}
	entityType = string(canonical)
	if !json.Valid(payload) {
		return fmt.Errorf("enqueue %s/%s: payload is not valid JSON", entityType, entityID)
	}

	base, err := c.store.AckedRevision(entityType, entityID)
	if err != nil {
		return fmt.Errorf("reading acked revision: %w", err)
	}
	op, err := c.store.EnqueueOperation(entityType, entityID, payload, base)
	if err != nil {
		return err
	}
	c.logger.Debug("operation queued", "op", op.ID, "entity", entityType+"/"+entityID, "base", base)
	c.notify()
	return nil
}

// Flush pushes queued operations in enqueue order. Transient failures
// back off exponentially; an operation that exhausts its retry budget
// is dropped and reported in the result rather than blocking the rest
// of the queue.
func (c *Coordinator) Flush(ctx context.Context) (FlushResult, error) {
	var result FlushResult

	c.mu.Lock()
	if !c.online {
		c.mu.Unlock()
		return result, ErrOffline
	}
	if c.flushing {
		c.mu.Unlock()
		return result, nil
	}
	c.flushing = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.flushing = false
		c.mu.Unlock()
		c.notify()
	}()
	c.notify()

	ops, err := c.store.ListPendingOperations()
	if err != nil {
		return result, fmt.Errorf("listing pending operations: %w", err)
	}

	for _, op := range ops {
		// Skip entities that already sit in conflict; they stay queued
		// until the conflict is resolved.
		conflict, err := c.store.GetConflict(op.EntityType, op.EntityID)
		if err != nil {
			return result, err
		}
		if conflict != nil {
			continue
		}

		revision, pushErr := c.pushWithRetry(ctx, op)
		if pushErr != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.Failed = append(result.Failed, PermanentFailure{Op: op, Err: pushErr})
			c.setLastError(pushErr)
			if err := c.store.DeletePendingOperation(op.ID); err != nil {
				return result, err
			}
			c.logger.Warn("operation dropped after retries",
				"op", op.ID, "entity", op.EntityType+"/"+op.EntityID, "err", pushErr)
			continue
		}

		if err := c.store.SaveEntityState(op.EntityType, op.EntityID, op.Payload, revision); err != nil {
			return result, err
		}
		if err := c.store.DeletePendingOperation(op.ID); err != nil {
			return result, err
		}
		result.Pushed++
		c.logger.Debug("operation pushed", "op", op.ID, "revision", revision)
	}

	if result.Pushed > 0 || len(ops) == 0 {
		if err := c.store.TouchLastSync(time.Now().UTC()); err != nil {
			return result, err
		}
	}
	if len(result.Failed) == 0 {
		c.setLastError(nil)
	}
	return result, nil
}

func (c *Coordinator) pushWithRetry(ctx context.Context, op models.PendingOperation) (int64, error) {
	for {
		revision, err := c.sink.Push(ctx, op)
		if err == nil {
			return revision, nil
		}
		attempts, incErr := c.store.IncrementAttempt(op.ID)
		if incErr != nil {
			return 0, incErr
		}
		if attempts >= c.retry.MaxAttempts {
			return 0, fmt.Errorf("push failed after %d attempts: %w", attempts, err)
		}
		delay := c.retry.delay(attempts)
		c.logger.Debug("push failed, backing off",
			"op", op.ID, "attempt", attempts, "delay", delay, "err", err)
		if err := c.sleep(ctx, delay); err != nil {
			return 0, err
		}
	}
}

func (c *Coordinator) setLastError(err error) {
	c.mu.Lock()
	if err == nil {
		c.lastError = ""
	} else {
		c.lastError = err.Error()
	}
	c.mu.Unlock()
}

// OnRemoteEvent folds one server-side change into local state. With no
// pending local change the event applies directly. A remote copy
// identical to the queued payload is treated as our own write echoed
// back. A remote change built on the same base revision as the queued
// operation applies cleanly and the queued change is rebased onto the
// new revision. Only when the bases diverge is a conflict recorded;
// the pending operation then stays queued until resolution.
func (c *Coordinator) OnRemoteEvent(ev RemoteEvent) error {
	if ev.EntityType == "" || ev.EntityID == "" {
		return fmt.Errorf("remote event missing entity identity")
	}

	pending, err := c.store.GetPendingOperation(ev.EntityType, ev.EntityID)
	if err != nil {
		return err
	}

	if pending == nil {
		acked, err := c.store.AckedRevision(ev.EntityType, ev.EntityID)
		if err != nil {
			return err
		}
		if ev.Revision <= acked {
			return nil // stale replay
		}
		if err := c.store.SaveEntityState(ev.EntityType, ev.EntityID, ev.Data, ev.Revision); err != nil {
			return err
		}
		c.logger.Debug("remote event applied", "entity", ev.EntityType+"/"+ev.EntityID, "revision", ev.Revision)
		c.notify()
		return nil
	}

	if ev.Revision <= pending.BaseRevision {
		return nil // predates the branch point, nothing new
	}

	if bytes.Equal(normalizeJSON(ev.Data), normalizeJSON(pending.Payload)) {
		// Same content from another path: accept and drop the queued op.
		if err := c.store.SaveEntityState(ev.EntityType, ev.EntityID, ev.Data, ev.Revision); err != nil {
			return err
		}
		if err := c.store.DeletePendingOperation(pending.ID); err != nil {
			return err
		}
		c.notify()
		return nil
	}

	if pending.BaseRevision > 0 && ev.BaseRevision == pending.BaseRevision {
		// Shared branch point: accept the remote state and carry the
		// queued change forward atop the new revision.
		if err := c.store.SaveEntityState(ev.EntityType, ev.EntityID, ev.Data, ev.Revision); err != nil {
			return err
		}
		if err := c.store.RebasePendingOperation(ev.EntityType, ev.EntityID, ev.Revision); err != nil {
			return err
		}
		c.logger.Debug("pending operation rebased",
			"entity", ev.EntityType+"/"+ev.EntityID, "base", ev.Revision)
		c.notify()
		return nil
	}

	// Divergence. A pending op without a known base revision gives the
	// resolver nothing to reason from, so only manual resolution applies.
	manualOnly := pending.BaseRevision == 0 && !hasStoredBase(c.store, ev.EntityType, ev.EntityID)
	conflict := models.ConflictRecord{
		EntityType:     ev.EntityType,
		EntityID:       ev.EntityID,
		LocalData:      pending.Payload,
		RemoteData:     ev.Data,
		RemoteRevision: ev.Revision,
		DetectedAt:     time.Now().UTC(),
		ManualOnly:     manualOnly,
	}
	if err := c.store.ReplaceConflict(conflict); err != nil {
		return err
	}
	c.logger.Info("conflict detected",
		"entity", ev.EntityType+"/"+ev.EntityID, "remote_revision", ev.Revision, "manual_only", manualOnly)
	c.notify()
	return nil
}

func hasStoredBase(store *db.DB, entityType, entityID string) bool {
	state, err := store.GetEntityState(entityType, entityID)
	return err == nil && state != nil
}

func normalizeJSON(raw json.RawMessage) []byte {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return raw
	}
	out, err := json.Marshal(v)
	if err != nil {
		return raw
	}
	return out
}

// Resolve applies strategy to the recorded conflict for an entity.
// use_remote accepts the server copy and discards the queued local
// change; every other strategy re-queues the winning document against
// the remote revision.
func (c *Coordinator) Resolve(ctx context.Context, entityType, entityID string, strategy models.ResolutionStrategy) error {
	return c.resolveWith(ctx, entityType, entityID, func(conflict models.ConflictRecord) (resolve.Outcome, error) {
		return resolve.Resolve(conflict, strategy)
	})
}

// ResolveManual resolves a conflict with a caller-supplied document.
func (c *Coordinator) ResolveManual(ctx context.Context, entityType, entityID string, doc json.RawMessage) error {
	return c.resolveWith(ctx, entityType, entityID, func(conflict models.ConflictRecord) (resolve.Outcome, error) {
		return resolve.ResolveManual(conflict, doc)
	})
}

func (c *Coordinator) resolveWith(ctx context.Context, entityType, entityID string, fn func(models.ConflictRecord) (resolve.Outcome, error)) error {
	if canonical, ok := events.NormalizeEntityType(entityType); ok {
		entityType = string(canonical)
	}
	conflict, err := c.store.GetConflict(entityType, entityID)
	if err != nil {
		return err
	}
	if conflict == nil {
		return ErrConflictNotFound
	}

	outcome, err := fn(*conflict)
	if err != nil {
		return err
	}

	// The remote copy is acknowledged either way; the winning document
	// becomes local state on top of it.
	if err := c.store.SaveEntityState(entityType, entityID, outcome.Merged, conflict.RemoteRevision); err != nil {
		return err
	}
	if err := c.store.DeletePendingForEntity(entityType, entityID); err != nil {
		return err
	}
	if err := c.store.DeleteConflict(entityType, entityID); err != nil {
		return err
	}
	c.logger.Info("conflict resolved", "entity", entityType+"/"+entityID, "outbound", outcome.Outbound)

	if outcome.Outbound {
		if _, err := c.store.EnqueueOperation(entityType, entityID, outcome.Merged, conflict.RemoteRevision); err != nil {
			return err
		}
	}
	c.notify()

	if outcome.Outbound && c.Online() {
		if _, err := c.Flush(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Run polls the event source on the given interval until ctx is
// cancelled, folding remote events in and flushing the queue while
// online. Pull errors flip the coordinator offline; a later successful
// pull flips it back.
func (c *Coordinator) Run(ctx context.Context, source EventSource, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			events, err := source.Pull(ctx)
			if err != nil {
				c.logger.Warn("pull failed", "err", err)
				c.setLastError(err)
				if err := c.SetOnline(ctx, false); err != nil {
					return err
				}
				continue
			}
			if err := c.SetOnline(ctx, true); err != nil {
				c.logger.Warn("flush after reconnect failed", "err", err)
			}
			for _, ev := range events {
				if err := c.OnRemoteEvent(ev); err != nil {
					c.logger.Warn("remote event rejected",
						"entity", ev.EntityType+"/"+ev.EntityID, "err", err)
				}
			}
			if _, err := c.Flush(ctx); err != nil && err != ErrOffline {
				c.logger.Warn("periodic flush failed", "err", err)
			}
		}
	}
}
