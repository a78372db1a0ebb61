package cmd

import (
	"log/slog"
	"os"

	"github.com/mariia-hub/hubsync/internal/config"
	"github.com/mariia-hub/hubsync/internal/db"
	"github.com/mariia-hub/hubsync/internal/device"
	"github.com/mariia-hub/hubsync/internal/models"
	"github.com/mariia-hub/hubsync/internal/sync"
	"github.com/mariia-hub/hubsync/internal/syncclient"
)

// openDB opens the local database, failing with a hint when the
// directory was never initialized.
func openDB() (*db.DB, error) {
	return db.Open(getBaseDir())
}

// loadDevice returns this device's identity, creating it on first use.
func loadDevice() (*models.Device, error) {
	return device.Load()
}

// newClient builds the HTTP client for the configured server, seeded
// with the device identity.
func newClient(dev *models.Device) *syncclient.Client {
	return syncclient.New(config.GetServerURL(), config.GetAPIKey(), dev.ID)
}

// retryPolicy reads the configured backoff parameters.
func retryPolicy() sync.RetryPolicy {
	return sync.RetryPolicy{
		BaseDelay:   config.GetRetryBaseDelay(),
		MaxDelay:    config.GetRetryMaxDelay(),
		MaxAttempts: config.GetRetryMaxAttempts(),
	}
}

// newLogger builds the CLI logger. HUBSYNC_DEBUG=1 enables debug
// output; everything goes to stderr so stdout stays scriptable.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if os.Getenv("HUBSYNC_DEBUG") != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
