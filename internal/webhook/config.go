// Package webhook posts signed sync lifecycle events to a
// user-configured HTTP endpoint.
package webhook

import (
	"os"

	"github.com/mariia-hub/hubsync/internal/config"
)

// GetURL returns the webhook URL.
// Priority: HUBSYNC_WEBHOOK_URL env > config.json webhook.url.
func GetURL() string {
	if v := os.Getenv("HUBSYNC_WEBHOOK_URL"); v != "" {
		return v
	}
	cfg, err := config.Load()
	if err != nil {
		return ""
	}
	if cfg.Webhook != nil {
		return cfg.Webhook.URL
	}
	return ""
}

// GetSecret returns the webhook HMAC secret.
// Priority: HUBSYNC_WEBHOOK_SECRET env > config.json webhook.secret.
func GetSecret() string {
	if v := os.Getenv("HUBSYNC_WEBHOOK_SECRET"); v != "" {
		return v
	}
	cfg, err := config.Load()
	if err != nil {
		return ""
	}
	if cfg.Webhook != nil {
		return cfg.Webhook.Secret
	}
	return ""
}

// IsEnabled returns true if a webhook URL is configured.
func IsEnabled() bool {
	return GetURL() != ""
}
