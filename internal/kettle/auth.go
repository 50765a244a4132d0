package kettle

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// AuthState is the handshake progress of a session
type AuthState int32

const (
	Unauthenticated AuthState = iota
	AwaitingDeviceVerify
	Authenticated
)

// String returns a human-readable name for the state
func (s AuthState) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case AwaitingDeviceVerify:
		return "awaiting device verify"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("AuthState(%d)", int32(s))
	}
}

// authenticator drives the vendor handshake over a Transport.
// Its state is read by the notification dispatcher from the transport's
// goroutine, so it is stored atomically.
type authenticator struct {
	identity  Identity
	transport Transport
	clock     Clock
	logger    *zap.Logger
	events    EventSink
	timeout   time.Duration

	state    atomic.Int32
	response chan []byte // single slot for the kettle's auth response
}

func newAuthenticator(id Identity, t Transport, clock Clock, logger *zap.Logger, events EventSink, timeout time.Duration) *authenticator {
	return &authenticator{
		identity:  id,
		transport: t,
		clock:     clock,
		logger:    logger,
		events:    events,
		timeout:   timeout,
		response:  make(chan []byte, 1),
	}
}

// State returns the current handshake state
func (a *authenticator) State() AuthState {
	return AuthState(a.state.Load())
}

func (a *authenticator) setState(s AuthState) {
	prev := AuthState(a.state.Swap(int32(s)))
	if prev != s {
		a.logger.Debug("Auth state changed",
			zap.String("from", prev.String()),
			zap.String("to", s.String()),
		)
	}
}

// Reset returns the session to Unauthenticated. Called on disconnect.
func (a *authenticator) Reset() {
	a.setState(Unauthenticated)
	drain(a.response)
}

// deliver hands the kettle's auth response to a waiting Authenticate.
// It reports false when no handshake is waiting for one.
func (a *authenticator) deliver(payload []byte) bool {
	if a.State() != AwaitingDeviceVerify {
		return false
	}
	offer(a.response, append([]byte(nil), payload...))
	return true
}

// Authenticate performs the handshake unless the session is already authenticated.
func (a *authenticator) Authenticate() error {
	if a.State() == Authenticated {
		return nil
	}

	address := a.identity.Address()
	a.logger.Debug("Attempt to auth, because session is not authenticated",
		zap.String("address", address),
	)

	if err := a.handshake(); err != nil {
		a.Reset()
		return err
	}

	a.setState(Authenticated)
	a.events.Record(Event{Type: EventAuthenticated, Time: a.clock.Now(), Address: address})
	return nil
}

func (a *authenticator) handshake() error {
	address := a.identity.Address()

	if err := a.transport.WriteCharacteristic(HandleAuthInit, Key1, true); err != nil {
		return err
	}

	descriptors, err := a.transport.DescriptorsForService(KettleServiceUUID)
	if err != nil {
		return err
	}
	if len(descriptors) <= AuthNotifyDescriptorIndex {
		return NewMissingCharacteristicError("auth notify descriptor", HandleAuth, address)
	}
	if err := a.transport.WriteDescriptor(descriptors[AuthNotifyDescriptorIndex], SubscribeValue, true); err != nil {
		return err
	}

	token := a.identity.Token()
	challenge := Cipher(a.identity.mixA(), token[:])

	// The kettle may answer before WriteCharacteristic returns
	drain(a.response)
	a.setState(AwaitingDeviceVerify)
	if err := a.transport.WriteCharacteristic(HandleAuth, challenge, true); err != nil {
		return err
	}

	response, ok := await(a.clock, a.response, a.timeout)
	if !ok {
		a.events.Record(Event{Type: EventTimeout, Time: a.clock.Now(), Address: address, Handle: HandleAuth})
		return NewTimeoutError(fmt.Sprintf("no auth response from %s within %s", address, a.timeout))
	}

	if !a.verify(response) {
		err := NewAuthMismatchError(address)
		a.logger.Warn("Authentication failed",
			zap.String("address", address),
			zap.String("response", hex.EncodeToString(response)),
		)
		a.events.Record(Event{Type: EventAuthMismatch, Time: a.clock.Now(), Address: address, Handle: HandleAuth, Err: err})
		return err
	}

	if err := a.transport.WriteCharacteristic(HandleAuth, Cipher(token[:], Key2), true); err != nil {
		return err
	}

	if _, err := a.transport.ReadCharacteristic(HandleVerify); err != nil {
		return err
	}

	return nil
}

// verify checks the kettle's response against the session token
func (a *authenticator) verify(response []byte) bool {
	token := a.identity.Token()
	derived := Cipher(a.identity.mixB(), Cipher(a.identity.mixA(), response))
	return bytes.Equal(derived, token[:])
}

// await waits up to timeout for a value on slot
func await[T any](clock Clock, slot <-chan T, timeout time.Duration) (T, bool) {
	// A value that is already waiting wins over an expired timer
	select {
	case v := <-slot:
		return v, true
	default:
	}

	select {
	case v := <-slot:
		return v, true
	case <-clock.After(timeout):
		var zero T
		return zero, false
	}
}

// offer places v in a single-slot channel, replacing any unread value
func offer[T any](slot chan T, v T) {
	for {
		select {
		case slot <- v:
			return
		default:
		}
		select {
		case <-slot:
		default:
		}
	}
}

// drain discards any unread value
func drain[T any](slot chan T) {
	select {
	case <-slot:
	default:
	}
}
