// Package ble provides a kettle.Transport backed by tinygo.org/x/bluetooth.
//
// The kettle protocol addresses characteristics by ATT handle, while the
// bluetooth package addresses them by service and characteristic UUID. The
// transport keeps a fixed table mapping every handle the kettle client uses
// to its UUIDs, and resolves the table against the device once per
// connection.
//
// Notification-enable descriptors are not exposed by the bluetooth package.
// The transport reports each notifying characteristic's descriptor at the
// handle following its value handle and turns a subscribe write on that
// handle into EnableNotifications.
//
// # Usage Example
//
//	t := ble.NewTransport(logger)
//	client, err := kettle.New(t, kettle.Options{MAC: mac, ProductID: 275})
//
// On Linux the transport runs on BlueZ adapter hci0, the only adapter the
// bluetooth package can address; Options.Interface may be empty or "hci0".
// Acknowledged writes go through BlueZ WriteValue, which sends a write
// request when the characteristic supports one. Other platforms use the
// default adapter, reject an explicit interface and locate the kettle by
// scanning.
package ble
