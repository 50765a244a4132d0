// Mikettle reads and configures a Xiaomi Mi Kettle over Bluetooth LE.
//
// It authenticates with the kettle, decodes its status notifications and
// can serve the readings to the local network over HTTP and WebSocket.
//
// Usage:
//
//	mikettle [command] [flags]
//
// Kettles are addressed with --mac and --product-id, or saved once with
// 'mikettle devices add' and selected with --device.
// See 'mikettle --help' for available commands.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/mikettle/internal/config"
	"github.com/muurk/mikettle/internal/kettle"
	"github.com/muurk/mikettle/internal/logging"
	"github.com/muurk/mikettle/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		var shown errSilent
		if errors.As(err, &shown) {
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var ke *kettle.KettleError
		if errors.As(err, &ke) {
			fmt.Fprintf(os.Stderr, "\n%s\n", kettle.TroubleshootingHint(err))
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mikettle",
	Short: "Xiaomi Mi Kettle Bluetooth client",
	Long: `Read and configure a Xiaomi Mi Kettle (YM-K1501) over Bluetooth LE.

The kettle only reports its status to an authenticated session. mikettle
performs the vendor handshake, subscribes to status notifications and caches
the decoded readings so repeated queries do not wake the radio.`,
	Version:           version.Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initLogging,
}

// Connection flags (persistent on root)
var (
	deviceName  string
	macAddress  string
	productID   uint16
	tokenHex    string
	iface       string
	logLevel    string
	fresh       bool
	cacheTTLArg string
)

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&deviceName, "device", "d", "", "Saved device name (see 'mikettle devices list')")
	flags.StringVar(&macAddress, "mac", "", "Kettle MAC address, e.g. AA:BB:CC:DD:EE:FF (skips the config file)")
	flags.Uint16Var(&productID, "product-id", 0, "Product id printed on the kettle base, e.g. 275")
	flags.StringVar(&tokenHex, "token", "", "Session token as 24 hex characters (default: built-in token)")
	flags.StringVarP(&iface, "interface", "i", "", "Bluetooth adapter, e.g. hci0")
	flags.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides "+logging.LogLevelEnvVar)
	flags.BoolVar(&fresh, "fresh", false, "Bypass the status cache and poll the kettle")
	flags.StringVar(&cacheTTLArg, "cache-ttl", "", "How long a reading stays fresh, e.g. 10m (default 10m)")

	rootCmd.AddCommand(versionCmd)
}

// initLogging applies --log-level, then the config preference, then the environment
func initLogging(cmd *cobra.Command, args []string) error {
	level := logLevel
	if level == "" {
		if registry, err := config.LoadRegistry(); err == nil && registry.Preferences != nil {
			level = registry.Preferences.LogLevel
		}
	}
	if level == "" {
		return logging.InitializeFromEnv()
	}
	return logging.Initialize(level)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()
		fmt.Printf("mikettle %s (commit: %s, %s, %s)\n", info.Version, info.Commit, info.GoVersion, info.Platform)
	},
}
