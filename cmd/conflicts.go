package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/mariia-hub/hubsync/internal/input"
	"github.com/mariia-hub/hubsync/internal/models"
	"github.com/mariia-hub/hubsync/internal/output"
	"github.com/mariia-hub/hubsync/internal/sync"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var conflictsCmd = &cobra.Command{
	Use:     "conflicts",
	Short:   "List unresolved sync conflicts",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		conflicts, err := database.ListConflicts()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if len(conflicts) == 0 {
			fmt.Println("No conflicts.")
			return nil
		}
		for _, c := range conflicts {
			fmt.Println(output.FormatConflict(c))
		}
		fmt.Printf("\nResolve with: hubsync conflicts resolve <entity-type> <entity-id>\n")
		return nil
	},
}

var conflictsShowCmd = &cobra.Command{
	Use:   "show <entity-type> <entity-id>",
	Short: "Show both sides of a conflict",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		conflict, err := database.GetConflict(args[0], args[1])
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if conflict == nil {
			output.Error("no conflict recorded for %s/%s", args[0], args[1])
			return fmt.Errorf("conflict not found")
		}
		fmt.Print(output.FormatConflictDetail(*conflict))
		return nil
	},
}

var conflictsResolveCmd = &cobra.Command{
	Use:   "resolve <entity-type> <entity-id>",
	Short: "Resolve a conflict with a chosen strategy",
	Long: `Resolves a conflict. Without --strategy an interactive picker is shown.

Strategies:
  use_local   keep this device's change and push it
  use_remote  accept the server copy, discard the local change
  merge       field-level merge, newer timestamp wins contested fields
  manual      supply the winning document with --file`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		entityType, entityID := args[0], args[1]

		database, err := openDB()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		conflict, err := database.GetConflict(entityType, entityID)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if conflict == nil {
			output.Error("no conflict recorded for %s/%s", entityType, entityID)
			return fmt.Errorf("conflict not found")
		}

		strategy := models.ResolutionStrategy(resolveStrategy)
		if strategy == "" {
			strategy, err = pickStrategy(*conflict)
			if err != nil {
				return err
			}
		}

		var coordinator *sync.Coordinator
		dev, err := loadDevice()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		coordinator = sync.NewCoordinator(database, newClient(dev), retryPolicy(), newLogger())

		if strategy == models.StrategyManual {
			file, _ := cmd.Flags().GetString("file")
			if file == "" {
				output.Error("manual resolution needs --file with the winning JSON document")
				return fmt.Errorf("missing --file")
			}
			doc, err := input.ReadDocument(file)
			if err != nil {
				output.Error("read %s: %v", file, err)
				return err
			}
			if err := coordinator.ResolveManual(cmd.Context(), entityType, entityID, json.RawMessage(doc)); err != nil {
				output.Error("%v", err)
				return err
			}
		} else {
			if err := coordinator.Resolve(cmd.Context(), entityType, entityID, strategy); err != nil {
				output.Error("%v", err)
				return err
			}
		}

		output.Success("resolved %s/%s with %s", entityType, entityID, strategy)
		if strategy != models.StrategyUseRemote {
			output.Info("the winning copy is queued; run 'hubsync sync' to push it")
		}
		return nil
	},
}

// strategyValue is a pflag.Value that rejects unknown strategies at
// parse time instead of deep inside the resolve path.
type strategyValue string

var resolveStrategy strategyValue

var _ pflag.Value = (*strategyValue)(nil)

func (s *strategyValue) String() string { return string(*s) }
func (s *strategyValue) Type() string   { return "strategy" }

func (s *strategyValue) Set(v string) error {
	if !models.ValidStrategy(models.ResolutionStrategy(v)) {
		return fmt.Errorf("unknown strategy %q (use_local, use_remote, merge, manual)", v)
	}
	*s = strategyValue(v)
	return nil
}

// pickStrategy prompts for a resolution strategy. Manual-only
// conflicts offer only manual resolution.
func pickStrategy(conflict models.ConflictRecord) (models.ResolutionStrategy, error) {
	options := []huh.Option[models.ResolutionStrategy]{
		huh.NewOption("Keep my change (use_local)", models.StrategyUseLocal),
		huh.NewOption("Accept server copy (use_remote)", models.StrategyUseRemote),
		huh.NewOption("Merge both (merge)", models.StrategyMerge),
		huh.NewOption("Manual (supply document)", models.StrategyManual),
	}
	if conflict.ManualOnly {
		options = options[3:]
	}

	var strategy models.ResolutionStrategy
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[models.ResolutionStrategy]().
			Title(fmt.Sprintf("Resolve %s/%s", conflict.EntityType, conflict.EntityID)).
			Description("Both devices changed this entity while apart.").
			Options(options...).
			Value(&strategy),
	))
	if err := form.Run(); err != nil {
		return "", err
	}
	return strategy, nil
}

func init() {
	conflictsResolveCmd.Flags().Var(&resolveStrategy, "strategy", "Resolution strategy (use_local, use_remote, merge, manual)")
	conflictsResolveCmd.Flags().String("file", "", "JSON document for manual resolution")
	conflictsCmd.AddCommand(conflictsShowCmd)
	conflictsCmd.AddCommand(conflictsResolveCmd)
	rootCmd.AddCommand(conflictsCmd)
}
