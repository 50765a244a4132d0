//go:build linux

package ble

import (
	"fmt"
	"time"

	"tinygo.org/x/bluetooth"
)

// defaultInterface is the only adapter the BlueZ backend can address
const defaultInterface = "hci0"

// adapterFor returns the BlueZ adapter named iface. The bluetooth package
// only exposes hci0, so any other name is rejected.
func adapterFor(iface string) (*bluetooth.Adapter, error) {
	if iface != "" && iface != defaultInterface {
		return nil, fmt.Errorf("adapter %s is not supported, only %s can be used", iface, defaultInterface)
	}
	return bluetooth.DefaultAdapter, nil
}

// writeAcked performs a GATT write request. BlueZ picks a write request for
// WriteValue calls without a type option when the characteristic allows one,
// and the D-Bus call returns after the kettle's response.
func writeAcked(c gattCharacteristic, data []byte) error {
	_, err := c.WriteWithoutResponse(data)
	return err
}

// connect dials the kettle by MAC. BlueZ only knows devices it has seen, so a
// failed dial falls back to a scan.
func connect(adapter *bluetooth.Adapter, address string, scanTimeout time.Duration) (bluetooth.Device, error) {
	mac, err := bluetooth.ParseMAC(address)
	if err != nil {
		return bluetooth.Device{}, err
	}

	device, err := adapter.Connect(bluetooth.Address{MACAddress: bluetooth.MACAddress{MAC: mac}}, bluetooth.ConnectionParams{})
	if err == nil {
		return device, nil
	}

	found, scanErr := scanFor(adapter, address, scanTimeout)
	if scanErr != nil {
		return bluetooth.Device{}, scanErr
	}
	return adapter.Connect(found, bluetooth.ConnectionParams{})
}
