package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/mikettle/internal/discovery"
	"github.com/muurk/mikettle/internal/kettle"
	"github.com/muurk/mikettle/internal/server"
)

// Server command flags
var (
	serveHost     string
	servePort     int
	certPath      string
	keyPath       string
	selfSigned    bool
	advertise     bool
	instanceName  string
	scanTimeout   time.Duration
	waitForKettle string
)

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen address (empty = all interfaces)")
	serveCmd.Flags().IntVar(&servePort, "port", discovery.DefaultPort, "Listen port")
	serveCmd.Flags().StringVar(&certPath, "cert", "", "Path to TLS certificate file (serves HTTPS with --key)")
	serveCmd.Flags().StringVar(&keyPath, "key", "", "Path to TLS private key file")
	serveCmd.Flags().BoolVar(&selfSigned, "self-signed", false, "Serve HTTPS with a generated in-memory certificate")
	serveCmd.Flags().BoolVar(&advertise, "advertise", true, "Advertise the server over mDNS")
	serveCmd.Flags().StringVar(&instanceName, "name", "", "mDNS instance name (default: mikettle-<device>)")

	discoverCmd.Flags().DurationVar(&scanTimeout, "timeout", discovery.DefaultScanTimeout, "Scan timeout")
	discoverCmd.Flags().StringVar(&waitForKettle, "kettle", "", "Stop at the first server reading this kettle MAC")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(discoverCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the kettle status over HTTP and WebSocket",
	Long: `Start a status server in front of the kettle.

Endpoints:
  GET /status          cached reading as JSON (?fresh=1 polls the kettle)
  GET /ws              WebSocket; send "status" or "refresh" for a reading
  GET /healthz         liveness
  GET /version         build information

The server advertises itself as a _mikettle._tcp mDNS service so
'mikettle discover' on other hosts can find it.`,
	Example: `  # Serve the default saved kettle on port 8480
  mikettle serve

  # HTTPS on a custom port, without mDNS
  mikettle serve --port 8443 --cert cert.pem --key key.pem --advertise=false

  # HTTPS with a throwaway certificate
  mikettle serve --self-signed`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if (certPath == "") != (keyPath == "") {
		return fmt.Errorf("both --cert and --key must be provided together")
	}
	if selfSigned && certPath != "" {
		return fmt.Errorf("--self-signed cannot be combined with --cert and --key")
	}
	if certPath != "" {
		if _, err := os.Stat(certPath); os.IsNotExist(err) {
			return fmt.Errorf("certificate file not found: %s", certPath)
		}
		if _, err := os.Stat(keyPath); os.IsNotExist(err) {
			return fmt.Errorf("private key file not found: %s", keyPath)
		}
	}

	return withClient(cmd, func(client *kettle.Client, t target) error {
		name := instanceName
		if name == "" {
			name = "mikettle-" + t.label()
		}

		srv, err := server.New(&server.Config{
			Host:         serveHost,
			Port:         servePort,
			CertPath:     certPath,
			KeyPath:      keyPath,
			GenerateCert: selfSigned,
			Advertise:    advertise,
			InstanceName: name,
		}, client)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		fmt.Printf("Serving %s on port %d (Ctrl+C to stop)\n", t.label(), servePort)
		return srv.Start()
	})
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find mikettle status servers on the network",
	Long:  `Browse mDNS for _mikettle._tcp services started with 'mikettle serve'.`,
	Example: `  mikettle discover
  mikettle discover --timeout 10s
  mikettle discover --kettle AA:BB:CC:DD:EE:FF`,
	Args: cobra.NoArgs,
	RunE: runDiscover,
}

func runDiscover(cmd *cobra.Command, args []string) error {
	scanner := discovery.NewScanner()
	scanner.Timeout = scanTimeout

	if waitForKettle != "" {
		mac, err := kettle.ParseMAC(waitForKettle)
		if err != nil {
			return err
		}
		inst, err := scanner.WaitForKettleWithContext(cmd.Context(), mac.String())
		if err != nil {
			return err
		}
		fmt.Println(inst.StatusURL())
		return nil
	}

	fmt.Printf("Scanning for status servers (timeout: %s)...\n\n", scanTimeout)

	instances, err := scanner.ScanWithContext(cmd.Context())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(instances) == 0 {
		fmt.Println("No status servers found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Start one with 'mikettle serve' on a host near the kettle")
		fmt.Println("  - Check that multicast (UDP 5353) is allowed on this network")
		fmt.Println("  - Try increasing --timeout")
		return nil
	}

	fmt.Printf("Found %d server(s):\n\n", len(instances))
	for i, inst := range instances {
		fmt.Printf("%d. %s\n", i+1, inst.Name)
		fmt.Printf("   Kettle:    %s\n", inst.Kettle)
		fmt.Printf("   Status:    %s\n", inst.StatusURL())
		fmt.Printf("   WebSocket: %s\n", inst.WebSocketURL())
		if v := inst.GetMetadata("version"); v != "" {
			fmt.Printf("   Version:   %s\n", v)
		}
		fmt.Println()
	}
	return nil
}
