package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/mikettle/internal/config"
	"github.com/muurk/mikettle/internal/kettle"
	"github.com/muurk/mikettle/internal/ui"
)

var (
	makeDefault   bool
	generateToken bool
	assumeYes     bool
)

func init() {
	devicesAddCmd.Flags().BoolVar(&makeDefault, "default", false, "Make this the default device")
	devicesAddCmd.Flags().BoolVar(&generateToken, "generate-token", false, "Store a random session token instead of the built-in one")
	devicesRemoveCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")

	devicesCmd.AddCommand(devicesAddCmd)
	devicesCmd.AddCommand(devicesListCmd)
	devicesCmd.AddCommand(devicesRemoveCmd)
	tokenCmd.AddCommand(tokenGenerateCmd)

	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(tokenCmd)
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Manage saved kettles",
	Long: `Save kettles in the config file so they can be selected with --device.

The config file lives in the user config directory (mikettle/config.yaml)
and is written with user-only permissions because it stores session tokens.`,
}

var devicesAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Save a kettle",
	Example: `  mikettle devices add kitchen --mac AA:BB:CC:DD:EE:FF --product-id 275
  mikettle devices add office --mac 11:22:33:44:55:66 --product-id 131 --interface hci0 --default`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if macAddress == "" {
			return fmt.Errorf("--mac is required")
		}
		if !cmd.Flags().Changed("product-id") {
			return fmt.Errorf("--product-id is required")
		}

		device := &config.Device{
			MAC:       macAddress,
			ProductID: productID,
			Token:     tokenHex,
			Interface: iface,
		}
		if generateToken {
			if tokenHex != "" {
				return fmt.Errorf("--token and --generate-token are mutually exclusive")
			}
			tok, err := kettle.RandomToken()
			if err != nil {
				return err
			}
			device.Token = tok.String()
		}
		if cacheTTLArg != "" {
			ttl, err := time.ParseDuration(cacheTTLArg)
			if err != nil {
				return fmt.Errorf("invalid --cache-ttl: %w", err)
			}
			device.CacheTTL = ttl
		}

		registry, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		if err := registry.AddDevice(name, device); err != nil {
			return err
		}
		if makeDefault {
			registry.Preferences.DefaultDevice = name
		}
		if err := registry.Save(); err != nil {
			return err
		}

		path, _ := config.GetConfigPath()
		ui.NewPrinter(nil).PrintSuccess("Saved "+name, map[string]string{
			"MAC":        device.MAC,
			"Product id": strconv.Itoa(int(device.ProductID)),
			"Default":    strconv.FormatBool(registry.Preferences.DefaultDevice == name),
			"Config":     path,
		})
		return nil
	},
}

var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved kettles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := config.LoadRegistry()
		if err != nil {
			return err
		}

		names := registry.DeviceNames()
		if len(names) == 0 {
			fmt.Println("No devices saved.")
			fmt.Println("\nUse 'mikettle devices add <name> --mac <address> --product-id <id>' to add one.")
			return nil
		}

		fmt.Printf("%d device(s):\n\n", len(names))
		for i, name := range names {
			d := registry.GetDevice(name)
			marker := ""
			if registry.Preferences.DefaultDevice == name {
				marker = " (default)"
			}
			fmt.Printf("%d. %s%s\n", i+1, name, marker)
			fmt.Printf("   MAC:        %s\n", d.MAC)
			fmt.Printf("   Product id: %d\n", d.ProductID)
			if d.Interface != "" {
				fmt.Printf("   Interface:  %s\n", d.Interface)
			}
			if !d.LastSeen.IsZero() {
				fmt.Printf("   Last seen:  %s\n", d.LastSeen.Local().Format(time.RFC1123))
			}
			fmt.Println()
		}
		return nil
	},
}

var devicesRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Forget a saved kettle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		registry, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		if registry.GetDevice(name) == nil {
			return fmt.Errorf("device %q not found in config", name)
		}

		if !assumeYes {
			ok := ui.Confirm(os.Stdin, os.Stdout, "Remove "+name, []string{
				"The saved address and token are deleted from the config file",
				"A generated token cannot be recovered",
			}, "yes")
			if !ok {
				return nil
			}
		}

		if err := registry.RemoveDevice(name); err != nil {
			return err
		}
		if err := registry.Save(); err != nil {
			return err
		}
		fmt.Printf("Removed %s\n", name)
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Session token utilities",
}

var tokenGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Print a random session token",
	Long: `Print a random 12-byte session token as hex.

Pass it with --token, or store it with 'mikettle devices add --token'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tok, err := kettle.RandomToken()
		if err != nil {
			return err
		}
		fmt.Println(tok)
		return nil
	},
}
