// Package syncclient is the HTTP client for the Mariia Hub sync
// server. It implements the coordinator's push and pull boundaries.
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/mariia-hub/hubsync/internal/models"
	syncpkg "github.com/mariia-hub/hubsync/internal/sync"
)

// Sentinel errors for common HTTP error classes.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// Client talks to the hub sync API.
type Client struct {
	BaseURL  string
	APIKey   string
	DeviceID string
	HTTP     *http.Client

	// cursor is the last server sequence folded into local state;
	// Pull resumes from it.
	cursor atomic.Int64
}

// New creates a sync client for the given device.
func New(baseURL, apiKey, deviceID string) *Client {
	return &Client{
		BaseURL:  baseURL,
		APIKey:   apiKey,
		DeviceID: deviceID,
		HTTP:     &http.Client{Timeout: 30 * time.Second},
	}
}

// SetCursor seeds the pull cursor, typically from persisted state.
func (c *Client) SetCursor(seq int64) { c.cursor.Store(seq) }

// Cursor returns the current pull cursor.
func (c *Client) Cursor() int64 { return c.cursor.Load() }

// --- Device registry ---

// DeviceResponse represents a registered device on the server.
type DeviceResponse struct {
	ID         string `json:"id"`
	Platform   string `json:"platform"`
	Name       string `json:"name"`
	CreatedAt  string `json:"created_at"`
	LastSeenAt string `json:"last_seen_at,omitempty"`
}

// RegisterDevice announces this device to the server registry. The
// call is idempotent: re-registering updates name and last-seen.
func (c *Client) RegisterDevice(ctx context.Context, dev models.Device) (*DeviceResponse, error) {
	body := map[string]string{
		"id":       dev.ID,
		"platform": string(dev.Platform),
		"name":     dev.Name,
	}
	var resp DeviceResponse
	if err := c.do(ctx, "POST", "/v1/devices", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListDevices lists every device registered to the account.
func (c *Client) ListDevices(ctx context.Context) ([]DeviceResponse, error) {
	var resp []DeviceResponse
	if err := c.do(ctx, "GET", "/v1/devices", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// --- Sync ---

// pushRequest is the body for POST /v1/sync/push.
type pushRequest struct {
	DeviceID     string          `json:"device_id"`
	OpID         string          `json:"op_id"`
	EntityType   string          `json:"entity_type"`
	EntityID     string          `json:"entity_id"`
	Payload      json.RawMessage `json:"payload"`
	BaseRevision int64           `json:"base_revision"`
}

// pushResponse carries the revision the server assigned.
type pushResponse struct {
	Revision int64 `json:"revision"`
}

// Push uploads one queued operation and returns the server-assigned
// revision. It satisfies the coordinator's OperationSink.
func (c *Client) Push(ctx context.Context, op models.PendingOperation) (int64, error) {
	body := pushRequest{
		DeviceID:     c.DeviceID,
		OpID:         op.ID,
		EntityType:   op.EntityType,
		EntityID:     op.EntityID,
		Payload:      op.Payload,
		BaseRevision: op.BaseRevision,
	}
	var resp pushResponse
	if err := c.do(ctx, "POST", "/v1/sync/push", body, &resp); err != nil {
		return 0, err
	}
	return resp.Revision, nil
}

// eventsResponse is the body of GET /v1/sync/events.
type eventsResponse struct {
	Events []eventRecord `json:"events"`
	Cursor int64         `json:"cursor"`
}

type eventRecord struct {
	Seq          int64           `json:"seq"`
	DeviceID     string          `json:"device_id"`
	EntityType   string          `json:"entity_type"`
	EntityID     string          `json:"entity_id"`
	Data         json.RawMessage `json:"data"`
	Revision     int64           `json:"revision"`
	BaseRevision int64           `json:"base_revision"`
}

// Pull fetches events after the current cursor and advances it. It
// satisfies the coordinator's EventSource. Events originated by this
// device are filtered server-side but dropped again here in case an
// older server echoes them.
func (c *Client) Pull(ctx context.Context) ([]syncpkg.RemoteEvent, error) {
	path := "/v1/sync/events?after=" + strconv.FormatInt(c.cursor.Load(), 10) +
		"&exclude_device=" + c.DeviceID
	var resp eventsResponse
	if err := c.do(ctx, "GET", path, nil, &resp); err != nil {
		return nil, err
	}

	events := make([]syncpkg.RemoteEvent, 0, len(resp.Events))
	for _, ev := range resp.Events {
		if ev.DeviceID == c.DeviceID {
			continue
		}
		events = append(events, syncpkg.RemoteEvent{
			EntityType:   ev.EntityType,
			EntityID:     ev.EntityID,
			Data:         ev.Data,
			Revision:     ev.Revision,
			BaseRevision: ev.BaseRevision,
		})
	}
	if resp.Cursor > c.cursor.Load() {
		c.cursor.Store(resp.Cursor)
	}
	return events, nil
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// HealthCheck verifies server reachability.
func (c *Client) HealthCheck(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do(ctx, "GET", "/healthz", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Transport ---

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Code != "" {
			switch resp.StatusCode {
			case http.StatusUnauthorized:
				return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
			case http.StatusForbidden:
				return fmt.Errorf("%w: %s", ErrForbidden, apiErr.Message)
			case http.StatusNotFound:
				return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message)
			default:
				return &apiErr
			}
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
