package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mariia-hub/hubsync/internal/output"
	"github.com/mariia-hub/hubsync/internal/prefs"
	"github.com/mariia-hub/hubsync/internal/sync"
	"github.com/spf13/cobra"
)

var prefsCmd = &cobra.Command{
	Use:     "prefs",
	Short:   "Show or change notification preferences",
	GroupID: "notify",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := prefs.NewFileStore().Load()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		fmt.Printf("Notifications: %s\n", onOff(p.EnableNotifications))
		if p.QuietHours.Enabled {
			fmt.Printf("Quiet hours:   %s to %s\n", p.QuietHours.Start, p.QuietHours.End)
		} else {
			fmt.Println("Quiet hours:   off")
		}
		return nil
	},
}

var prefsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change preferences and queue them for sync",
	Long: `Changes notification preferences. The new state is saved locally and
queued as a sync operation so other devices pick it up.

Examples:
  hubsync prefs set --enable
  hubsync prefs set --quiet-hours 22:00-08:00
  hubsync prefs set --no-quiet-hours`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := prefs.NewFileStore()
		p, err := store.Load()
		if err != nil {
			output.Error("%v", err)
			return err
		}

		changed := false
		if cmd.Flags().Changed("enable") {
			enable, _ := cmd.Flags().GetBool("enable")
			p.EnableNotifications = enable
			changed = true
		}
		if window, _ := cmd.Flags().GetString("quiet-hours"); window != "" {
			start, end, ok := strings.Cut(window, "-")
			if !ok {
				output.Error("quiet hours must look like 22:00-08:00")
				return fmt.Errorf("invalid quiet hours %q", window)
			}
			p.QuietHours.Enabled = true
			p.QuietHours.Start = start
			p.QuietHours.End = end
			changed = true
		}
		if noQuiet, _ := cmd.Flags().GetBool("no-quiet-hours"); noQuiet {
			p.QuietHours.Enabled = false
			changed = true
		}
		if !changed {
			output.Warning("nothing to change; see 'hubsync prefs set --help'")
			return nil
		}

		if err := prefs.Validate(p); err != nil {
			output.Error("%v", err)
			return err
		}
		if err := store.Save(p); err != nil {
			output.Error("%v", err)
			return err
		}

		// Queue the change so other devices converge on it.
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
		payload, err := json.Marshal(p)
		if err != nil {
			return err
		}
		// Preferences are one shared entity per account; every device
		// edits the same document, which is what makes conflicts possible.
		coordinator := sync.NewCoordinator(database, newClient(dev), retryPolicy(), newLogger())
		if err := coordinator.Enqueue(cmd.Context(), "preferences", "default", payload); err != nil {
			output.Error("%v", err)
			return err
		}

		output.Success("preferences saved and queued for sync")
		return nil
	},
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func init() {
	prefsSetCmd.Flags().Bool("enable", true, "Enable or disable notifications")
	prefsSetCmd.Flags().String("quiet-hours", "", "Quiet hours window, e.g. 22:00-08:00 (may cross midnight)")
	prefsSetCmd.Flags().Bool("no-quiet-hours", false, "Disable quiet hours")
	prefsCmd.AddCommand(prefsSetCmd)
	rootCmd.AddCommand(prefsCmd)
}
