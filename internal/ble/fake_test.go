package ble

import (
	"errors"
	"sync"

	"github.com/muurk/mikettle/internal/kettle"
)

// fakeCharacteristic records calls made by the transport. It implements both
// write forms so writeAcked works on every platform.
type fakeCharacteristic struct {
	mu sync.Mutex

	value     []byte
	readErr   error
	writeErr  error
	notifyErr error

	written  [][]byte
	callback func([]byte)
	enables  int
}

func (c *fakeCharacteristic) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return 0, c.readErr
	}
	return copy(p, c.value), nil
}

func (c *fakeCharacteristic) record(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	c.written = append(c.written, append([]byte(nil), p...))
	return len(p), nil
}

func (c *fakeCharacteristic) Write(p []byte) (int, error) {
	return c.record(p)
}

func (c *fakeCharacteristic) WriteWithoutResponse(p []byte) (int, error) {
	return c.record(p)
}

func (c *fakeCharacteristic) EnableNotifications(callback func(buf []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notifyErr != nil {
		return c.notifyErr
	}
	c.enables++
	c.callback = callback
	return nil
}

func (c *fakeCharacteristic) fire(buf []byte) bool {
	c.mu.Lock()
	cb := c.callback
	c.mu.Unlock()
	if cb == nil {
		return false
	}
	cb(buf)
	return true
}

type fakeDevice struct {
	err         error
	disconnects int
}

func (d *fakeDevice) Disconnect() error {
	d.disconnects++
	return d.err
}

var errLinkLost = errors.New("link lost")

// connectedTransport returns a transport attached to a fake device exposing
// chars
func connectedTransport(chars map[kettle.Handle]*fakeCharacteristic) (*Transport, *fakeDevice) {
	tr := NewTransport(nil)
	dev := &fakeDevice{}
	table := make(map[kettle.Handle]gattCharacteristic, len(chars))
	for h, c := range chars {
		table[h] = c
	}
	tr.mu.Lock()
	tr.attach(dev, "66:55:44:33:22:11", table)
	tr.mu.Unlock()
	return tr, dev
}
