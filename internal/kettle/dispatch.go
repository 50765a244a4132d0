package kettle

import (
	"encoding/hex"

	"go.uber.org/zap"
)

// Notification is a classified notification payload.
// Concrete types are AuthResponse, StatusFrame and Unrecognized.
type Notification interface {
	isNotification()
}

// AuthResponse is the kettle's answer to the auth challenge
type AuthResponse struct {
	Payload []byte
}

// StatusFrame is a status notification
type StatusFrame struct {
	Payload []byte
}

// Unrecognized is a notification on any other handle
type Unrecognized struct {
	Handle  Handle
	Payload []byte
}

func (AuthResponse) isNotification() {}
func (StatusFrame) isNotification()  {}
func (Unrecognized) isNotification() {}

// Classify maps a handle and payload to its Notification type
func Classify(handle Handle, payload []byte) Notification {
	switch handle {
	case HandleAuth:
		return AuthResponse{Payload: payload}
	case HandleStatus:
		return StatusFrame{Payload: payload}
	default:
		return Unrecognized{Handle: handle, Payload: payload}
	}
}

// HandleNotification is the single entry point for notifications.
// The client registers it with its Transport; it never blocks.
func (c *Client) HandleNotification(handle Handle, payload []byte) {
	switch n := Classify(handle, payload).(type) {
	case AuthResponse:
		if !c.auth.deliver(n.Payload) {
			c.unrecognized(handle, payload)
		}

	case StatusFrame:
		c.handleStatusFrame(n)

	case Unrecognized:
		c.unrecognized(n.Handle, n.Payload)
	}
}

func (c *Client) handleStatusFrame(n StatusFrame) {
	c.logger.Debug("Status update",
		zap.String("address", c.identity.Address()),
		zap.String("hex", hex.EncodeToString(n.Payload)),
	)

	status, err := DecodeStatus(n.Payload)
	if err != nil {
		c.logger.Debug("Failed to parse status frame",
			zap.String("address", c.identity.Address()),
			zap.Error(err),
		)
		c.events.Record(Event{Type: EventMalformedFrame, Time: c.clock.Now(), Address: c.identity.Address(), Handle: HandleStatus, Err: err})
		offer(c.statusSignal, err)
		return
	}

	c.mu.Lock()
	c.status = &status
	c.lastRead = c.clock.Now()
	c.mu.Unlock()

	c.logger.Debug("Status parsed",
		zap.String("address", c.identity.Address()),
		zap.Stringer("status", status),
	)
	offer[error](c.statusSignal, nil)
}

func (c *Client) unrecognized(handle Handle, payload []byte) {
	err := NewUnrecognizedNotificationError(handle)
	c.logger.Warn("Unknown notification",
		zap.String("address", c.identity.Address()),
		zap.Uint16("handle", uint16(handle)),
		zap.String("hex", hex.EncodeToString(payload)),
	)
	c.events.Record(Event{Type: EventUnrecognizedNotification, Time: c.clock.Now(), Address: c.identity.Address(), Handle: handle, Err: err})
}
