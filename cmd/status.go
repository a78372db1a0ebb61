package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/mariia-hub/hubsync/internal/config"
	"github.com/mariia-hub/hubsync/internal/output"
	"github.com/mariia-hub/hubsync/internal/sync"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show sync state, queue depth and conflicts",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		var st sync.Status
		if st.PendingCount, err = database.CountPendingOperations(); err != nil {
			output.Error("%v", err)
			return err
		}
		if st.ConflictCount, err = database.CountConflicts(); err != nil {
			output.Error("%v", err)
			return err
		}
		if st.LastSyncAt, err = database.LastSyncAt(); err != nil {
			output.Error("%v", err)
			return err
		}

		// One-shot reachability probe; offline is a state, not an error.
		if config.IsAuthenticated() {
			if dev, derr := loadDevice(); derr == nil {
				ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
				if _, herr := newClient(dev).HealthCheck(ctx); herr == nil {
					st.Online = true
				}
				cancel()
			}
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			return output.JSON(st)
		}

		dev, err := loadDevice()
		if err == nil {
			fmt.Println(output.FormatDevice(*dev, true))
		}
		fmt.Print(output.FormatSyncStatus(st))

		cycles, err := database.TotalSyncCycles()
		if err == nil && cycles > 0 {
			fmt.Printf("Sync cycles: %d\n", cycles)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("json", false, "Output as JSON")
	rootCmd.AddCommand(statusCmd)
}
