package main

import (
	"fmt"
	"time"

	"github.com/muurk/mikettle/internal/ble"
	"github.com/muurk/mikettle/internal/config"
	"github.com/muurk/mikettle/internal/kettle"
	"github.com/muurk/mikettle/internal/logging"
	"go.uber.org/zap"
)

// target is a resolved kettle: a saved device or one given by flags
type target struct {
	name string // empty when given by --mac
	opts kettle.Options
}

// label names the kettle in output
func (t target) label() string {
	if t.name != "" {
		return t.name
	}
	return t.opts.MAC
}

// resolveTarget builds client options from --mac or the config file.
// Flags that were set override saved values.
func resolveTarget(changed func(string) bool) (target, error) {
	var t target

	if macAddress != "" {
		t.opts = kettle.Options{MAC: macAddress}
		if !changed("product-id") {
			return t, fmt.Errorf("--product-id is required with --mac")
		}
	} else {
		registry, err := config.LoadRegistry()
		if err != nil {
			return t, err
		}
		name, device, err := registry.ResolveDevice(deviceName)
		if err != nil {
			return t, err
		}
		opts, err := device.ToOptions()
		if err != nil {
			return t, fmt.Errorf("device %q: %w", name, err)
		}
		t.name = name
		t.opts = opts
	}

	if changed("product-id") {
		t.opts.ProductID = productID
	}
	if changed("token") {
		tok, err := kettle.ParseToken(tokenHex)
		if err != nil {
			return t, err
		}
		t.opts.Token = tok[:]
	}
	if changed("interface") {
		t.opts.Interface = iface
	}
	if changed("cache-ttl") {
		ttl, err := time.ParseDuration(cacheTTLArg)
		if err != nil {
			return t, fmt.Errorf("invalid --cache-ttl: %w", err)
		}
		t.opts.CacheTTL = ttl
	}
	return t, nil
}

// openClient connects a kettle client over the system Bluetooth adapter
func openClient(changed func(string) bool) (*kettle.Client, target, error) {
	t, err := resolveTarget(changed)
	if err != nil {
		return nil, t, err
	}

	logger := logging.Named("kettle")
	t.opts.Logger = logger
	t.opts.Events = kettle.LogSink{Logger: logger.Named("events")}

	client, err := kettle.New(ble.NewTransport(logging.Named("ble")), t.opts)
	if err != nil {
		return nil, t, err
	}
	return client, t, nil
}

// recordLastSeen stamps a saved device after a successful read
func recordLastSeen(t target) {
	if t.name == "" {
		return
	}
	registry, err := config.LoadRegistry()
	if err != nil {
		return
	}
	registry.UpdateDeviceLastSeen(t.name, time.Now())
	if err := registry.Save(); err != nil {
		logging.Warn("Failed to update last seen", zap.String("device", t.name), zap.Error(err))
	}
}
