package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mariia-hub/hubsync/internal/db"
	"github.com/mariia-hub/hubsync/internal/output"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:     "init",
	Short:   "Initialize local sync state",
	Long:    `Creates the local .hubsync directory, the SQLite database and this device's identity.`,
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir := getBaseDir()

		if _, err := os.Stat(filepath.Join(baseDir, ".hubsync")); err == nil {
			output.Warning(".hubsync/ already exists")
			return nil
		}

		database, err := db.Initialize(baseDir)
		if err != nil {
			output.Error("failed to initialize database: %v", err)
			return err
		}
		defer database.Close()

		fmt.Println("INITIALIZED .hubsync/")

		dev, err := loadDevice()
		if err != nil {
			output.Error("failed to create device identity: %v", err)
			return err
		}
		fmt.Printf("Device: %s [%s] %s\n", dev.ID, dev.Platform, dev.Name)

		addToGitignore(filepath.Join(baseDir, ".gitignore"))
		return nil
	},
}

func addToGitignore(path string) {
	content, _ := os.ReadFile(path)
	if strings.Contains(string(content), ".hubsync/") {
		return
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()

	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		f.WriteString("\n")
	}
	f.WriteString(".hubsync/\n")
}

func init() {
	rootCmd.AddCommand(initCmd)
}
