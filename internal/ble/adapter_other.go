//go:build !linux

package ble

import (
	"errors"
	"fmt"
	"time"

	"tinygo.org/x/bluetooth"
)

// ackedWriter is implemented by characteristics that support write requests
type ackedWriter interface {
	Write(p []byte) (int, error)
}

// adapterFor returns the default adapter; other platforms cannot select one
func adapterFor(iface string) (*bluetooth.Adapter, error) {
	if iface != "" {
		return nil, fmt.Errorf("adapter %s cannot be selected on this platform", iface)
	}
	return bluetooth.DefaultAdapter, nil
}

// writeAcked performs a GATT write request
func writeAcked(c gattCharacteristic, data []byte) error {
	w, ok := c.(ackedWriter)
	if !ok {
		return errors.New("write requests are not supported")
	}
	_, err := w.Write(data)
	return err
}

// connect finds the kettle by scanning, then dials it
func connect(adapter *bluetooth.Adapter, address string, scanTimeout time.Duration) (bluetooth.Device, error) {
	found, err := scanFor(adapter, address, scanTimeout)
	if err != nil {
		return bluetooth.Device{}, err
	}
	return adapter.Connect(found, bluetooth.ConnectionParams{})
}
