package cmd

import (
	"fmt"

	"github.com/mariia-hub/hubsync/internal/config"
	"github.com/mariia-hub/hubsync/internal/dateparse"
	"github.com/mariia-hub/hubsync/internal/models"
	"github.com/mariia-hub/hubsync/internal/notify"
	"github.com/mariia-hub/hubsync/internal/output"
	"github.com/mariia-hub/hubsync/internal/prefs"
	"github.com/spf13/cobra"
)

var notifyCmd = &cobra.Command{
	Use:     "notify",
	Short:   "Inspect and test notifications",
	GroupID: "notify",
}

var notifyHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		if limit <= 0 || limit > 1000 {
			output.Error("limit must be between 1 and 1000")
			return fmt.Errorf("invalid limit: %d", limit)
		}

		database, err := openDB()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		records, err := database.ListRecentNotifications(limit)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if since, _ := cmd.Flags().GetString("since"); since != "" {
			cutoff, err := dateparse.ParseSince(since)
			if err != nil {
				output.Error("%v", err)
				return err
			}
			filtered := records[:0]
			for _, rec := range records {
				if !rec.CreatedAt.Before(cutoff) {
					filtered = append(filtered, rec)
				}
			}
			records = filtered
		}
		if len(records) == 0 {
			fmt.Println("No notifications.")
			return nil
		}
		for _, rec := range records {
			fmt.Println(output.FormatNotification(rec))
		}
		return nil
	},
}

var notifySendCmd = &cobra.Command{
	Use:   "send <title>",
	Short: "Dispatch a notification locally (for testing preferences)",
	Long: `Dispatches a notification through the full pipeline: preference
checks, quiet hours and the bounded on-screen queue all apply. The
message body supports markdown.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, _ := cmd.Flags().GetString("type")
		message, _ := cmd.Flags().GetString("message")
		priority, _ := cmd.Flags().GetInt("priority")

		database, err := openDB()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		dispatcher := notify.NewDispatcher(database, prefs.NewFileStore(), nil, notify.Options{
			MaxVisible: config.GetNotifyMaxVisible(),
			DisplayFor: config.GetNotifyDisplayFor(),
		}, newLogger())
		defer dispatcher.Stop()

		rec, err := dispatcher.Dispatch(models.NotificationType(typ), args[0], message, priority)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		switch rec.State {
		case models.NotificationDisplayed:
			output.Success("displayed %s", rec.ID)
			if message != "" {
				if rendered, err := output.RenderMarkdown(message); err == nil {
					fmt.Println(rendered)
				}
			}
		default:
			output.Warning("suppressed by preferences (recorded as %s)", rec.ID)
		}
		return nil
	},
}

var notifyReadCmd = &cobra.Command{
	Use:   "read <id>",
	Short: "Mark a notification as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		if err := database.SetNotificationState(args[0], models.NotificationRead); err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("marked %s read", args[0])
		return nil
	},
}

func init() {
	notifyHistoryCmd.Flags().Int("limit", 20, "Max notifications to show")
	notifyHistoryCmd.Flags().String("since", "", "Only show notifications since (e.g. 7d, yesterday, 2026-08-01)")
	notifySendCmd.Flags().String("type", string(models.NotifySystemUpdate), "Notification type")
	notifySendCmd.Flags().String("message", "", "Message body (markdown)")
	notifySendCmd.Flags().Int("priority", 5, "Priority 0-9 (7+ goes to the native surface)")
	notifyCmd.AddCommand(notifyHistoryCmd)
	notifyCmd.AddCommand(notifySendCmd)
	notifyCmd.AddCommand(notifyReadCmd)
	rootCmd.AddCommand(notifyCmd)
}
