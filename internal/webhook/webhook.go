package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Event kinds posted to the webhook endpoint.
const (
	KindSyncCompleted    = "sync_completed"
	KindConflictDetected = "conflict_detected"
	KindOperationFailed  = "operation_failed"
	KindBackupCreated    = "backup_created"
)

// Payload is the top-level webhook POST body.
type Payload struct {
	DeviceID  string  `json:"device_id"`
	Timestamp string  `json:"timestamp"`
	Events    []Event `json:"events"`
}

// Event is one sync lifecycle event within a webhook payload.
type Event struct {
	Kind       string `json:"kind"`
	EntityType string `json:"entity_type,omitempty"`
	EntityID   string `json:"entity_id,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// NewEvent builds a timestamped event.
func NewEvent(kind, entityType, entityID, detail string) Event {
	return Event{
		Kind:       kind,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
}

// BuildPayload wraps events with the originating device and current time.
func BuildPayload(deviceID string, events []Event) Payload {
	return Payload{
		DeviceID:  deviceID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Events:    events,
	}
}

// Dispatch performs a synchronous HTTP POST to the webhook URL.
// When secret is set the request carries an HMAC-SHA256 signature over
// "<unix timestamp>.<body>" so receivers can authenticate the sender.
// Returns nil on success (2xx status).
func Dispatch(url, secret string, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequest("POST", url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "hubsync-webhook/1")

	unixTS := fmt.Sprintf("%d", time.Now().Unix())
	req.Header.Set("X-Hubsync-Timestamp", unixTS)

	if secret != "" {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(unixTS))
		mac.Write([]byte("."))
		mac.Write(body)
		sig := hex.EncodeToString(mac.Sum(nil))
		req.Header.Set("X-Hubsync-Signature", "sha256="+sig)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("POST %s: status %d", url, resp.StatusCode)
	}
	return nil
}
