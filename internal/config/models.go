package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/muurk/mikettle/internal/kettle"
)

// CurrentVersion is the registry file format version
const CurrentVersion = 1

// Registry represents the entire user configuration file.
// This stores the kettles the user has set up and application preferences.
type Registry struct {
	Version     int                `yaml:"version"`
	Devices     map[string]*Device `yaml:"devices,omitempty"` // Keyed by user-chosen device name
	Preferences *Preferences       `yaml:"preferences,omitempty"`
}

// Device holds what is needed to talk to one kettle.
// Zero durations and retries fall back to the kettle package defaults.
type Device struct {
	MAC           string        `yaml:"mac"`                      // e.g. "AA:BB:CC:DD:EE:FF"
	ProductID     uint16        `yaml:"product_id"`               // Printed on the kettle base, e.g. 275
	Token         string        `yaml:"token,omitempty"`          // 24 hex characters; empty uses the built-in token
	Interface     string        `yaml:"interface,omitempty"`      // Bluetooth adapter, e.g. "hci0"
	CacheTTL      time.Duration `yaml:"cache_ttl,omitempty"`      // e.g. "10m"
	Retries       int           `yaml:"retries,omitempty"`        // Fill attempts per refill
	NotifyTimeout time.Duration `yaml:"notify_timeout,omitempty"` // e.g. "10s"
	LastSeen      time.Time     `yaml:"last_seen,omitempty"`      // Last successful status read
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DefaultDevice string `yaml:"default_device,omitempty"` // Used when --device is not given
	LogLevel      string `yaml:"log_level,omitempty"`      // debug, info, warn or error
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     CurrentVersion,
		Devices:     make(map[string]*Device),
		Preferences: &Preferences{},
	}
}

// GetDevice retrieves a device by name.
// Returns nil if the device doesn't exist in the registry.
func (r *Registry) GetDevice(name string) *Device {
	return r.Devices[name]
}

// AddDevice validates d and stores it under name, replacing any existing entry.
// The first device added becomes the default.
func (r *Registry) AddDevice(name string, d *Device) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("device name must not be empty")
	}
	if err := d.Validate(); err != nil {
		return fmt.Errorf("device %q: %w", name, err)
	}

	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}
	if r.Preferences == nil {
		r.Preferences = &Preferences{}
	}

	first := len(r.Devices) == 0
	r.Devices[name] = d
	if first && r.Preferences.DefaultDevice == "" {
		r.Preferences.DefaultDevice = name
	}
	return nil
}

// RemoveDevice deletes a device. Removing the default device clears the default.
func (r *Registry) RemoveDevice(name string) error {
	if _, ok := r.Devices[name]; !ok {
		return fmt.Errorf("device %q not found", name)
	}
	delete(r.Devices, name)
	if r.Preferences != nil && r.Preferences.DefaultDevice == name {
		r.Preferences.DefaultDevice = ""
	}
	return nil
}

// DeviceNames returns the configured device names in sorted order
func (r *Registry) DeviceNames() []string {
	names := make([]string, 0, len(r.Devices))
	for name := range r.Devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveDevice returns the named device, or the default device when name is
// empty. A registry holding a single device resolves to it without a default.
func (r *Registry) ResolveDevice(name string) (string, *Device, error) {
	if name == "" && r.Preferences != nil {
		name = r.Preferences.DefaultDevice
	}
	if name == "" && len(r.Devices) == 1 {
		for only := range r.Devices {
			name = only
		}
	}
	if name == "" {
		return "", nil, fmt.Errorf("no device selected: pass --device or --mac, or add one with 'mikettle devices add'")
	}

	d, ok := r.Devices[name]
	if !ok {
		return "", nil, fmt.Errorf("device %q not found in config", name)
	}
	return name, d, nil
}

// UpdateDeviceLastSeen records a successful read for a device.
func (r *Registry) UpdateDeviceLastSeen(name string, at time.Time) {
	if d, ok := r.Devices[name]; ok {
		d.LastSeen = at
	}
}

// Validate checks every device entry
func (r *Registry) Validate() error {
	if r.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", r.Version, CurrentVersion)
	}
	for _, name := range r.DeviceNames() {
		if err := r.Devices[name].Validate(); err != nil {
			return fmt.Errorf("device %q: %w", name, err)
		}
	}
	if r.Preferences != nil && r.Preferences.DefaultDevice != "" {
		if _, ok := r.Devices[r.Preferences.DefaultDevice]; !ok {
			return fmt.Errorf("default device %q not found", r.Preferences.DefaultDevice)
		}
	}
	return nil
}

// Validate checks the device's address, token and tuning values
func (d *Device) Validate() error {
	if d == nil {
		return fmt.Errorf("device is nil")
	}
	if _, err := kettle.ParseMAC(d.MAC); err != nil {
		return err
	}
	if d.Token != "" {
		if _, err := kettle.ParseToken(d.Token); err != nil {
			return err
		}
	}
	if d.CacheTTL < 0 || d.NotifyTimeout < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	if d.Retries < 0 {
		return fmt.Errorf("retries must not be negative, got %d", d.Retries)
	}
	return nil
}

// ToOptions converts the entry into client options. Logger, Events and Clock
// are left for the caller.
func (d *Device) ToOptions() (kettle.Options, error) {
	if err := d.Validate(); err != nil {
		return kettle.Options{}, err
	}

	opts := kettle.Options{
		MAC:           d.MAC,
		ProductID:     d.ProductID,
		Interface:     d.Interface,
		CacheTTL:      d.CacheTTL,
		Retries:       d.Retries,
		NotifyTimeout: d.NotifyTimeout,
	}
	if d.Token != "" {
		tok, err := kettle.ParseToken(d.Token)
		if err != nil {
			return kettle.Options{}, err
		}
		opts.Token = tok[:]
	}
	return opts, nil
}
