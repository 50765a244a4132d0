package ble

import (
	"fmt"
	"strings"
	"time"

	"tinygo.org/x/bluetooth"
)

func adapterName(iface string) string {
	if iface == "" {
		return "default"
	}
	return iface
}

// scanFor scans until a device advertising address is seen or timeout elapses
func scanFor(adapter *bluetooth.Adapter, address string, timeout time.Duration) (bluetooth.Address, error) {
	var (
		found bluetooth.Address
		seen  bool
	)

	timer := time.AfterFunc(timeout, func() {
		_ = adapter.StopScan()
	})
	defer timer.Stop()

	err := adapter.Scan(func(a *bluetooth.Adapter, result bluetooth.ScanResult) {
		if seen || !strings.EqualFold(result.Address.String(), address) {
			return
		}
		found = result.Address
		seen = true
		_ = a.StopScan()
	})
	if err != nil {
		return found, fmt.Errorf("scan failed: %w", err)
	}
	if !seen {
		return found, fmt.Errorf("%s not seen within %s", address, timeout)
	}
	return found, nil
}
