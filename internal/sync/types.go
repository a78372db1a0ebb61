// Package sync coordinates local changes with the Mariia Hub server:
// a durable pending-operation queue, conflict detection against remote
// events, and an observable online/offline status.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mariia-hub/hubsync/internal/models"
)

// Status is a point-in-time snapshot of the coordinator, handed to
// subscribers on every change.
type Status struct {
	Online        bool
	Flushing      bool
	PendingCount  int
	ConflictCount int
	LastSyncAt    *time.Time
	LastError     string
}

// RemoteEvent is one entity change received from the server.
// BaseRevision is the revision the originating device built its change
// on; zero means the origin had no acked state for the entity.
type RemoteEvent struct {
	EntityType   string          `json:"entity_type"`
	EntityID     string          `json:"entity_id"`
	Data         json.RawMessage `json:"data"`
	Revision     int64           `json:"revision"`
	BaseRevision int64           `json:"base_revision"`
}

// OperationSink pushes a local operation to the server and returns the
// revision the server assigned to the resulting entity state.
type OperationSink interface {
	Push(ctx context.Context, op models.PendingOperation) (int64, error)
}

// EventSource delivers remote events, typically by polling the server.
type EventSource interface {
	Pull(ctx context.Context) ([]RemoteEvent, error)
}

// PermanentFailure records an operation dropped after exhausting its
// retry budget.
type PermanentFailure struct {
	Op  models.PendingOperation
	Err error
}

// FlushResult summarizes one pass over the pending queue.
type FlushResult struct {
	Pushed    int
	Conflicts int
	Failed    []PermanentFailure
}

// ErrOffline is returned when a flush is requested while offline.
var ErrOffline = errors.New("sync: offline")

// ErrConflictNotFound is returned when resolving an entity that has no
// recorded conflict.
var ErrConflictNotFound = errors.New("sync: no conflict recorded for entity")
