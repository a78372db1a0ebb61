// Package resolve applies conflict resolution strategies to divergent
// entity snapshots. Resolution is pure: the same inputs always produce
// the same output document, so replaying a resolution is safe.
package resolve

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mariia-hub/hubsync/internal/models"
)

// Outcome is the result of resolving a conflict. Merged holds the
// document that becomes the entity's new state. Outbound reports
// whether that document still needs to be pushed to the server
// (use_remote accepts the server copy as-is, so nothing goes out).
type Outcome struct {
	Merged   json.RawMessage
	Outbound bool
}

// Resolve applies strategy to the conflict's local and remote snapshots.
// Manual-only conflicts reject every automatic strategy.
func Resolve(conflict models.ConflictRecord, strategy models.ResolutionStrategy) (Outcome, error) {
	if !models.ValidStrategy(strategy) {
		return Outcome{}, fmt.Errorf("unknown resolution strategy %q", strategy)
	}
	if conflict.ManualOnly && strategy != models.StrategyManual {
		return Outcome{}, fmt.Errorf("conflict on %s/%s requires manual resolution", conflict.EntityType, conflict.EntityID)
	}

	switch strategy {
	case models.StrategyUseLocal:
		return Outcome{Merged: conflict.LocalData, Outbound: true}, nil
	case models.StrategyUseRemote:
		return Outcome{Merged: conflict.RemoteData, Outbound: false}, nil
	case models.StrategyMerge:
		merged, err := mergeDocuments(conflict.LocalData, conflict.RemoteData)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Merged: merged, Outbound: true}, nil
	case models.StrategyManual:
		// Manual resolution is performed by the caller supplying an
		// explicit document via ResolveManual.
		return Outcome{}, fmt.Errorf("manual strategy requires an explicit document")
	}
	return Outcome{}, fmt.Errorf("unknown resolution strategy %q", strategy)
}

// ResolveManual accepts a caller-supplied document as the resolution.
func ResolveManual(conflict models.ConflictRecord, doc json.RawMessage) (Outcome, error) {
	if !json.Valid(doc) {
		return Outcome{}, fmt.Errorf("manual resolution for %s/%s is not valid JSON", conflict.EntityType, conflict.EntityID)
	}
	return Outcome{Merged: doc, Outbound: true}, nil
}

// mergeDocuments performs a key-level union of two JSON objects. Keys
// present on only one side are kept. A key present on both sides is
// decided per key: when its value is a record carrying an updated_at
// timestamp, the side with the later timestamp wins that key; any
// other contested value takes the remote copy. encoding/json sorts
// object keys on marshal, which keeps the output byte-stable.
func mergeDocuments(local, remote json.RawMessage) (json.RawMessage, error) {
	var localDoc, remoteDoc map[string]json.RawMessage
	if err := json.Unmarshal(local, &localDoc); err != nil {
		return nil, fmt.Errorf("parsing local document: %w", err)
	}
	if err := json.Unmarshal(remote, &remoteDoc); err != nil {
		return nil, fmt.Errorf("parsing remote document: %w", err)
	}

	merged := make(map[string]json.RawMessage, len(localDoc)+len(remoteDoc))
	for key, value := range remoteDoc {
		merged[key] = value
	}
	for key, value := range localDoc {
		remoteValue, both := remoteDoc[key]
		if !both || localNewer(value, remoteValue) {
			merged[key] = value
		}
	}

	out, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("encoding merged document: %w", err)
	}
	return out, nil
}

// localNewer compares the two values at a contested key. The local
// value wins only when it is a timestamped record that is strictly
// newer than the remote one (or the remote carries no timestamp at
// all); everything else defaults to remote.
func localNewer(local, remote json.RawMessage) bool {
	localAt, ok := recordTime(local)
	if !ok {
		return false
	}
	remoteAt, ok := recordTime(remote)
	if !ok {
		return true
	}
	return localAt.After(remoteAt)
}

// recordTime extracts an RFC 3339 updated_at field from a JSON object
// value. Non-object values and unparseable timestamps report false.
func recordTime(value json.RawMessage) (time.Time, bool) {
	var rec map[string]json.RawMessage
	if err := json.Unmarshal(value, &rec); err != nil {
		return time.Time{}, false
	}
	raw, ok := rec["updated_at"]
	if !ok {
		return time.Time{}, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, false
	}
	at, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return at, true
}
