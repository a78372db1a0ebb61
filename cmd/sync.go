package cmd

import (
	"fmt"

	"github.com/mariia-hub/hubsync/internal/config"
	"github.com/mariia-hub/hubsync/internal/output"
	"github.com/mariia-hub/hubsync/internal/sync"
	"github.com/mariia-hub/hubsync/internal/webhook"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	Short:   "Flush queued operations to the server now",
	GroupID: "sync",
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

		client := newClient(dev)
		coordinator := sync.NewCoordinator(database, client, retryPolicy(), newLogger())

		// One poll first so remote changes land before we push ours.
		events, err := client.Pull(cmd.Context())
		if err != nil {
			output.Error("server unreachable: %v", err)
			return err
		}
		for _, ev := range events {
			if err := coordinator.OnRemoteEvent(ev); err != nil {
				output.Warning("event for %s/%s rejected: %v", ev.EntityType, ev.EntityID, err)
			}
		}

		if err := coordinator.SetOnline(cmd.Context(), true); err != nil {
			output.Error("%v", err)
			return err
		}
		result, err := coordinator.Flush(cmd.Context())
		if err != nil {
			output.Error("%v", err)
			return err
		}

		output.Success("pushed %d operation(s), pulled %d event(s)", result.Pushed, len(events))
		for _, failure := range result.Failed {
			output.Warning("dropped %s/%s: %v", failure.Op.EntityType, failure.Op.EntityID, failure.Err)
		}

		st, err := coordinator.Status()
		if err == nil && st.ConflictCount > 0 {
			output.Warning("%d conflict(s) need resolution (run 'hubsync conflicts')", st.ConflictCount)
		}

		if webhook.IsEnabled() {
			hookEvents := []webhook.Event{
				webhook.NewEvent(webhook.KindSyncCompleted, "", "",
					fmt.Sprintf("pushed %d, pulled %d", result.Pushed, len(events))),
			}
			if result.Conflicts > 0 {
				hookEvents = append(hookEvents, webhook.NewEvent(webhook.KindConflictDetected, "", "",
					fmt.Sprintf("%d conflict(s) recorded", result.Conflicts)))
			}
			for _, failure := range result.Failed {
				hookEvents = append(hookEvents, webhook.NewEvent(webhook.KindOperationFailed, failure.Op.EntityType, failure.Op.EntityID, failure.Err.Error()))
			}
			if err := webhook.Dispatch(webhook.GetURL(), webhook.GetSecret(), webhook.BuildPayload(dev.ID, hookEvents)); err != nil {
				output.Warning("webhook dispatch failed: %v", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
