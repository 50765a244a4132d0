package ble

import (
	"fmt"
	"sync"
	"time"

	"github.com/muurk/mikettle/internal/kettle"
	"github.com/muurk/mikettle/internal/logging"
	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"
)

const (
	// DefaultScanTimeout bounds the scan used to find the kettle on
	// platforms that cannot connect by MAC address
	DefaultScanTimeout = 15 * time.Second

	// maxValueSize is the largest characteristic value read in one call
	maxValueSize = 512
)

// gattCharacteristic is the part of bluetooth.DeviceCharacteristic the
// transport drives
type gattCharacteristic interface {
	Read(p []byte) (int, error)
	WriteWithoutResponse(p []byte) (int, error)
	EnableNotifications(callback func(buf []byte)) error
}

// gattDevice is a connected peripheral
type gattDevice interface {
	Disconnect() error
}

// Transport implements kettle.Transport on a local Bluetooth adapter
type Transport struct {
	logger      *zap.Logger
	scanTimeout time.Duration

	mu      sync.Mutex
	device  gattDevice
	address string
	chars   map[kettle.Handle]gattCharacteristic

	handlerMu sync.RWMutex
	handler   kettle.NotificationHandler
}

// NewTransport creates a disconnected transport. A nil logger disables logging.
func NewTransport(logger *zap.Logger) *Transport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{
		logger:      logger,
		scanTimeout: DefaultScanTimeout,
	}
}

// SetScanTimeout overrides DefaultScanTimeout
func (t *Transport) SetScanTimeout(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scanTimeout = d
}

// Connect enables the adapter named by iface, connects to address and
// resolves the handle table. It is a no-op while connected.
func (t *Transport) Connect(address, iface string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.device != nil {
		return nil
	}

	adapter, err := adapterFor(iface)
	if err != nil {
		return kettle.NewValidationError(err.Error())
	}
	if err := adapter.Enable(); err != nil {
		return kettle.NewTransportError(fmt.Sprintf("failed to enable Bluetooth adapter %s", adapterName(iface)), err)
	}

	t.logger.Debug("Connecting",
		zap.String("address", address),
		zap.String("adapter", adapterName(iface)),
	)

	device, err := connect(adapter, address, t.scanTimeout)
	if err != nil {
		return kettle.NewTransportError(fmt.Sprintf("failed to connect to %s", address), err)
	}

	chars, err := t.discover(device)
	if err != nil {
		_ = device.Disconnect()
		return kettle.NewTransportError(fmt.Sprintf("service discovery failed on %s", address), err)
	}

	t.attach(device, address, chars)

	t.logger.Debug("Connected",
		zap.String("address", address),
		zap.Int("characteristics", len(chars)),
	)
	return nil
}

// attach records an established connection. Caller holds t.mu.
func (t *Transport) attach(device gattDevice, address string, chars map[kettle.Handle]gattCharacteristic) {
	t.device = device
	t.address = address
	t.chars = chars
}

// discover maps every handle in the table to a characteristic on device.
// Handles whose service or characteristic is absent are left out.
func (t *Transport) discover(device bluetooth.Device) (map[kettle.Handle]gattCharacteristic, error) {
	services, err := device.DiscoverServices(nil)
	if err != nil {
		return nil, err
	}

	wanted := make(map[bluetooth.UUID]bool)
	for _, u := range serviceUUIDs() {
		wanted[u] = true
	}

	found := make(map[charID]bluetooth.DeviceCharacteristic)
	for _, svc := range services {
		if !wanted[svc.UUID()] {
			continue
		}
		chars, err := svc.DiscoverCharacteristics(nil)
		if err != nil {
			return nil, fmt.Errorf("characteristics of service %s: %w", svc.UUID(), err)
		}
		for _, c := range chars {
			found[charID{svc.UUID(), c.UUID()}] = c
		}
	}

	out := make(map[kettle.Handle]gattCharacteristic)
	for _, h := range sortedHandles() {
		spec := characteristics[h]
		c, ok := found[charID{spec.service, spec.uuid}]
		if !ok {
			t.logger.Debug("Characteristic not found",
				zap.Uint16("handle", uint16(h)),
				zap.String("name", spec.name),
			)
			continue
		}
		out[h] = c
	}

	for _, required := range []kettle.Handle{kettle.HandleAuth, kettle.HandleAuthInit, kettle.HandleStatus} {
		if _, ok := out[required]; !ok {
			return nil, fmt.Errorf("required characteristic %q not found", characteristics[required].name)
		}
	}
	return out, nil
}

type charID struct {
	service bluetooth.UUID
	char    bluetooth.UUID
}

// lookup returns the characteristic at handle. Caller holds t.mu.
func (t *Transport) lookup(handle kettle.Handle) (gattCharacteristic, error) {
	if t.device == nil {
		return nil, kettle.NewTransportError("not connected", nil)
	}
	c, ok := t.chars[handle]
	if !ok {
		name := fmt.Sprintf("handle %d", handle)
		if spec, known := characteristics[handle]; known {
			name = spec.name
		}
		return nil, kettle.NewMissingCharacteristicError(name, handle, t.address)
	}
	return c, nil
}

// ReadCharacteristic reads the value at handle
func (t *Transport) ReadCharacteristic(handle kettle.Handle) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, err := t.lookup(handle)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, maxValueSize)
	n, err := c.Read(buf)
	if err != nil {
		return nil, kettle.NewTransportError(fmt.Sprintf("read of handle %d failed", handle), err)
	}
	logging.LogGATT(t.logger, "read", uint16(handle), buf[:n])
	return buf[:n], nil
}

// WriteCharacteristic writes data to handle
func (t *Transport) WriteCharacteristic(handle kettle.Handle, data []byte, withResponse bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, err := t.lookup(handle)
	if err != nil {
		return err
	}

	logging.LogGATT(t.logger, "write", uint16(handle), data)
	if withResponse {
		err = writeAcked(c, data)
	} else {
		_, err = c.WriteWithoutResponse(data)
	}
	if err != nil {
		return kettle.NewTransportError(fmt.Sprintf("write to handle %d failed", handle), err)
	}
	return nil
}

// DescriptorsForService returns the descriptor layout of a kettle service
func (t *Transport) DescriptorsForService(uuid string) ([]kettle.Handle, error) {
	return descriptors(uuid)
}

// WriteDescriptor enables or disables notifications for the characteristic
// owning descriptor. Writes to other descriptors are rejected.
func (t *Transport) WriteDescriptor(descriptor kettle.Handle, data []byte, withResponse bool) error {
	target, enable, err := notifyTarget(descriptor, data)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	c, err := t.lookup(target)
	if err != nil {
		return err
	}

	var callback func([]byte)
	if enable {
		callback = func(buf []byte) {
			t.notify(target, buf)
		}
	}

	t.logger.Debug("Set notifications",
		zap.Uint16("handle", uint16(target)),
		zap.Bool("enabled", enable),
	)
	if err := c.EnableNotifications(callback); err != nil {
		return kettle.NewTransportError(fmt.Sprintf("subscribe to handle %d failed", target), err)
	}
	return nil
}

// SetNotificationHandler registers the callback for incoming notifications
func (t *Transport) SetNotificationHandler(h kettle.NotificationHandler) {
	t.handlerMu.Lock()
	defer t.handlerMu.Unlock()
	t.handler = h
}

func (t *Transport) notify(handle kettle.Handle, buf []byte) {
	t.handlerMu.RLock()
	h := t.handler
	t.handlerMu.RUnlock()

	logging.LogGATT(t.logger, "notify", uint16(handle), buf)
	if h != nil {
		h(handle, append([]byte(nil), buf...))
	}
}

// Disconnect closes the connection. It is a no-op while disconnected.
func (t *Transport) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.device == nil {
		return nil
	}

	err := t.device.Disconnect()
	t.logger.Debug("Disconnected", zap.String("address", t.address), zap.Error(err))

	t.device = nil
	t.chars = nil
	if err != nil {
		return kettle.NewTransportError(fmt.Sprintf("disconnect from %s failed", t.address), err)
	}
	return nil
}

// Connected reports whether the transport holds a connection
func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.device != nil
}
