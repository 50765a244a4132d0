// Package config provides user configuration management for mikettle.
//
// This package manages a YAML-based configuration file that stores the
// kettles a user has set up (address, product id, token and tuning) and
// application preferences. The configuration follows OS-specific conventions
// for storage location.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/mikettle/config.yaml or $HOME/.config/mikettle/config.yaml
//   - macOS: $HOME/.config/mikettle/config.yaml
//   - Windows: %LOCALAPPDATA%\mikettle\config.yaml
//
// # File Format
//
//	version: 1
//	devices:
//	  kitchen:
//	    mac: AA:BB:CC:DD:EE:FF
//	    product_id: 275
//	    token: 015ccba8800abdc12eb8ed82
//	    interface: hci0
//	    cache_ttl: 10m0s
//	preferences:
//	  default_device: kitchen
//
// # Security
//
// The token authenticates with the kettle, so the file is written with
// 0600 permissions in a 0700 directory.
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	_, device, err := registry.ResolveDevice("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	opts, err := device.ToOptions()
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config
