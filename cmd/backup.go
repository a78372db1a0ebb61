package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mariia-hub/hubsync/internal/backup"
	"github.com/mariia-hub/hubsync/internal/config"
	"github.com/mariia-hub/hubsync/internal/dateparse"
	"github.com/mariia-hub/hubsync/internal/input"
	"github.com/mariia-hub/hubsync/internal/output"
	"github.com/mariia-hub/hubsync/internal/prefs"
	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:     "backup",
	Short:   "Create, restore and manage preference backups",
	GroupID: "backup",
}

func newManager() (*backup.Manager, func(), error) {
	database, err := openDB()
	if err != nil {
		return nil, nil, err
	}
	dev, err := loadDevice()
	if err != nil {
		database.Close()
		return nil, nil, err
	}
	m := backup.NewManager(database, prefs.NewFileStore(), dev.ID, config.GetBackupRetention(), newLogger())
	return m, func() { database.Close() }, nil
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Snapshot the current preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, closer, err := newManager()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer closer()

		rec, err := m.Create()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("created backup %s (version %s, %s)", rec.ID, rec.BackupVersion, output.FormatSize(rec.SizeBytes))
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List restorable backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, closer, err := newManager()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer closer()

		records, err := m.List()
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
			fmt.Println("No backups.")
			return nil
		}
		for _, rec := range records {
			fmt.Println(output.FormatBackup(rec))
		}
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Replace current preferences with a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, closer, err := newManager()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer closer()

		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			var confirmed bool
			form := huh.NewForm(huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Restore backup %s?", args[0])).
					Description("Current preferences will be replaced.").
					Value(&confirmed),
			))
			if err := form.Run(); err != nil {
				return err
			}
			if !confirmed {
				fmt.Println("Aborted.")
				return nil
			}
		}

		p, err := m.Restore(args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("restored backup %s", args[0])
		fmt.Printf("Notifications: %s\n", onOff(p.EnableNotifications))
		return nil
	},
}

var backupDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a backup from the restorable set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, closer, err := newManager()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer closer()

		if err := m.SoftDelete(args[0]); err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("deleted backup %s", args[0])
		return nil
	},
}

var backupExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Write a backup's snapshot to a file or stdout",
	Long: `Write a backup's snapshot to a file or stdout.

With --passphrase the snapshot is sealed with AES-256-GCM under a key
derived from the passphrase, so the export can be stored off-device.
Sealed exports are read back with 'hubsync backup import'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, closer, err := newManager()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer closer()

		out := os.Stdout
		if path, _ := cmd.Flags().GetString("out"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				output.Error("%v", err)
				return err
			}
			defer f.Close()
			out = f
		}
		if passphrase, _ := cmd.Flags().GetString("passphrase"); passphrase != "" {
			if _, err := m.ExportSealed(args[0], passphrase, out); err != nil {
				output.Error("%v", err)
				return err
			}
			return nil
		}
		if _, err := m.Export(args[0], out); err != nil {
			output.Error("%v", err)
			return err
		}
		return nil
	},
}

var backupImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Store an exported snapshot as a new backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := input.ReadDocument(args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}

		m, closer, err := newManager()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer closer()

		passphrase, _ := cmd.Flags().GetString("passphrase")
		rec, err := m.Import(data, passphrase)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("imported backup %s (version %s, %s)", rec.ID, rec.BackupVersion, output.FormatSize(rec.SizeBytes))
		return nil
	},
}

func init() {
	backupRestoreCmd.Flags().Bool("yes", false, "Skip the confirmation prompt")
	backupListCmd.Flags().String("since", "", "Only show backups created since (e.g. 7d, yesterday, 2026-08-01)")
	backupExportCmd.Flags().String("out", "", "Output file (default stdout)")
	backupExportCmd.Flags().String("passphrase", "", "Seal the export with a passphrase")
	backupImportCmd.Flags().String("passphrase", "", "Passphrase for a sealed export")
	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	backupCmd.AddCommand(backupDeleteCmd)
	backupCmd.AddCommand(backupExportCmd)
	backupCmd.AddCommand(backupImportCmd)
	rootCmd.AddCommand(backupCmd)
}
