package ble

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/muurk/mikettle/internal/kettle"
	"tinygo.org/x/bluetooth"
)

var (
	deviceInfoServiceUUID    = bluetooth.New16BitUUID(0x180A)
	genericAccessServiceUUID = bluetooth.New16BitUUID(0x1800)
	kettleServiceUUID        = bluetooth.New16BitUUID(0xFE95)
	dataServiceUUID          = mustParseUUID(kettle.DataServiceUUID)
)

func mustParseUUID(s string) bluetooth.UUID {
	u, err := bluetooth.ParseUUID(s)
	if err != nil {
		panic(fmt.Sprintf("invalid UUID %q: %v", s, err))
	}
	return u
}

// characteristic locates a kettle handle on the GATT server
type characteristic struct {
	name    string
	service bluetooth.UUID
	uuid    bluetooth.UUID
}

// characteristics maps every handle the kettle client uses
var characteristics = map[kettle.Handle]characteristic{
	kettle.HandleManufacturer:    {"manufacturer", deviceInfoServiceUUID, bluetooth.New16BitUUID(0x2A29)},
	kettle.HandleFirmwareVersion: {"firmware version", deviceInfoServiceUUID, bluetooth.New16BitUUID(0x2A26)},
	kettle.HandleName:            {"device name", genericAccessServiceUUID, bluetooth.New16BitUUID(0x2A00)},
	kettle.HandleAuth:            {"auth", kettleServiceUUID, bluetooth.New16BitUUID(0x0001)},
	kettle.HandleVerify:          {"verify", kettleServiceUUID, bluetooth.New16BitUUID(0x0004)},
	kettle.HandleAuthInit:        {"auth init", kettleServiceUUID, bluetooth.New16BitUUID(0x0010)},
	kettle.HandleKeepWarm:        {"keep warm", dataServiceUUID, bluetooth.New16BitUUID(0xAA01)},
	kettle.HandleStatus:          {"status", dataServiceUUID, bluetooth.New16BitUUID(0xAA02)},
	kettle.HandleKeepWarmTime:    {"keep warm time", dataServiceUUID, bluetooth.New16BitUUID(0xAA04)},
	kettle.HandleExtendedWarmUp:  {"extended warm up", dataServiceUUID, bluetooth.New16BitUUID(0xAA05)},
}

// Notify descriptors sit one handle after the characteristic value
const (
	authNotifyDescriptor   = kettle.HandleAuth + 1
	statusNotifyDescriptor = kettle.HandleStatus + 1
)

// descriptorLayout lists each service's descriptor handles in attribute-table
// order. Only the notify descriptors can be written.
var descriptorLayout = map[string][]kettle.Handle{
	kettle.KettleServiceUUID: {kettle.HandleAuth - 1, authNotifyDescriptor},
	kettle.DataServiceUUID:   {kettle.HandleKeepWarm - 1, kettle.HandleKeepWarm + 1, kettle.HandleStatus - 1, statusNotifyDescriptor},
}

// notifyTargets maps a notify descriptor to the characteristic it controls
var notifyTargets = map[kettle.Handle]kettle.Handle{
	authNotifyDescriptor:   kettle.HandleAuth,
	statusNotifyDescriptor: kettle.HandleStatus,
}

var (
	enableNotifications  = []byte{0x01, 0x00}
	disableNotifications = []byte{0x00, 0x00}
)

// descriptors returns the layout for a service UUID
func descriptors(service string) ([]kettle.Handle, error) {
	layout, ok := descriptorLayout[service]
	if !ok {
		return nil, fmt.Errorf("unknown service %s", service)
	}
	return append([]kettle.Handle(nil), layout...), nil
}

// notifyTarget resolves a descriptor write to the characteristic and the
// requested notification state.
func notifyTarget(descriptor kettle.Handle, value []byte) (kettle.Handle, bool, error) {
	target, ok := notifyTargets[descriptor]
	if !ok {
		return 0, false, kettle.NewValidationError(fmt.Sprintf("descriptor %d is not writable", descriptor))
	}
	switch {
	case bytes.Equal(value, enableNotifications):
		return target, true, nil
	case bytes.Equal(value, disableNotifications):
		return target, false, nil
	default:
		return 0, false, kettle.NewValidationError(fmt.Sprintf("unsupported descriptor value % X", value))
	}
}

// serviceUUIDs lists the services to discover, without duplicates
func serviceUUIDs() []bluetooth.UUID {
	seen := make(map[bluetooth.UUID]bool)
	var out []bluetooth.UUID
	for _, h := range sortedHandles() {
		svc := characteristics[h].service
		if !seen[svc] {
			seen[svc] = true
			out = append(out, svc)
		}
	}
	return out
}

// sortedHandles returns the table's handles in ascending order
func sortedHandles() []kettle.Handle {
	handles := make([]kettle.Handle, 0, len(characteristics))
	for h := range characteristics {
		handles = append(handles, h)
	}
	slices.Sort(handles)
	return handles
}
