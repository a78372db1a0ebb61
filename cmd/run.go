package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/mariia-hub/hubsync/internal/config"
	"github.com/mariia-hub/hubsync/internal/notify"
	"github.com/mariia-hub/hubsync/internal/output"
	"github.com/mariia-hub/hubsync/internal/prefs"
	"github.com/mariia-hub/hubsync/internal/sync"
	"github.com/mariia-hub/hubsync/internal/webhook"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:     "run",
	Short:   "Run the sync agent in the foreground",
	GroupID: "sync",
	Long: `Runs the background sync loop: polls the server on the configured
interval, folds remote events into local state, flushes the pending
queue and dispatches notifications for sync activity. Stops on
SIGINT/SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !config.IsAuthenticated() {
			output.Error("not authenticated: set HUBSYNC_API_KEY or add api_key to the config file")
			return fmt.Errorf("not authenticated")
		}

		database, err := openDB()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		dev, err := loadDevice()
		if err != nil {
			output.Error("%v", err)
			return err
		}

		logger := newLogger()
		client := newClient(dev)
		coordinator := sync.NewCoordinator(database, client, retryPolicy(), logger)
		dispatcher := notify.NewDispatcher(database, prefs.NewFileStore(), nil, notify.Options{
			MaxVisible: config.GetNotifyMaxVisible(),
			DisplayFor: config.GetNotifyDisplayFor(),
		}, logger)
		defer dispatcher.Stop()

		// Surface conflicts as they appear.
		var lastConflicts int
		coordinator.Subscribe(func(st sync.Status) {
			if st.ConflictCount > lastConflicts {
				_, err := dispatcher.Dispatch(
					"system_update",
					"Sync conflict",
					fmt.Sprintf("%d change(s) need resolution", st.ConflictCount),
					7,
				)
				if err != nil {
					logger.Warn("conflict notification failed", "err", err)
				}
				if webhook.IsEnabled() {
					payload := webhook.BuildPayload(dev.ID, []webhook.Event{
						webhook.NewEvent(webhook.KindConflictDetected, "", "",
							fmt.Sprintf("%d conflict(s) pending", st.ConflictCount)),
					})
					go func() {
						if err := webhook.Dispatch(webhook.GetURL(), webhook.GetSecret(), payload); err != nil {
							logger.Warn("webhook dispatch failed", "err", err)
						}
					}()
				}
			}
			lastConflicts = st.ConflictCount
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if _, err := client.RegisterDevice(ctx, *dev); err != nil {
			output.Warning("device registration failed: %v", err)
		}

		interval := config.GetSyncInterval()
		fmt.Printf("hubsync agent running (device %s, every %s); ctrl+c to stop\n", dev.ID, interval)

		err = coordinator.Run(ctx, client, interval)
		if errors.Is(err, context.Canceled) {
			fmt.Println("stopped")
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
