package cmd

import (
	"fmt"

	"github.com/mariia-hub/hubsync/internal/config"
	"github.com/mariia-hub/hubsync/internal/device"
	"github.com/mariia-hub/hubsync/internal/models"
	"github.com/mariia-hub/hubsync/internal/output"
	"github.com/spf13/cobra"
)

var deviceCmd = &cobra.Command{
	Use:     "device",
	Short:   "Show or manage this device's identity",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		dev, err := loadDevice()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		fmt.Println(output.FormatDevice(*dev, true))
		return nil
	},
}

var deviceRenameCmd = &cobra.Command{
	Use:   "rename <name>",
	Short: "Rename this device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dev, err := device.Rename(args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("renamed device to %q", dev.Name)
		return nil
	},
}

var deviceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all devices registered to the account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !config.IsAuthenticated() {
			output.Error("not authenticated: set HUBSYNC_API_KEY or add api_key to the config file")
			return fmt.Errorf("not authenticated")
		}
		dev, err := loadDevice()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		client := newClient(dev)
		devices, err := client.ListDevices(cmd.Context())
		if err != nil {
			output.Error("list devices: %v", err)
			return err
		}
		if len(devices) == 0 {
			fmt.Println("No devices registered.")
			return nil
		}
		for _, d := range devices {
			fmt.Println(output.FormatDevice(models.Device{
				ID:       d.ID,
				Platform: models.Platform(d.Platform),
				Name:     d.Name,
			}, d.ID == dev.ID))
		}
		return nil
	},
}

var deviceRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register this device with the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		dev, err := loadDevice()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		client := newClient(dev)
		resp, err := client.RegisterDevice(cmd.Context(), *dev)
		if err != nil {
			output.Error("register device: %v", err)
			return err
		}
		output.Success("registered %s [%s] %s", resp.ID, resp.Platform, resp.Name)
		return nil
	},
}

func init() {
	deviceCmd.AddCommand(deviceRenameCmd)
	deviceCmd.AddCommand(deviceListCmd)
	deviceCmd.AddCommand(deviceRegisterCmd)
	rootCmd.AddCommand(deviceCmd)
}
